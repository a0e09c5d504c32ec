package crypto

import (
	"crypto/subtle"
	"runtime"
)

// ZeroBytes overwrites data with zeros in place. It is used to scrub key
// material and shared secrets from memory once they are no longer needed.
func ZeroBytes(data []byte) {
	if len(data) == 0 {
		return
	}

	zeros := make([]byte, len(data))
	subtle.ConstantTimeCopy(1, data, zeros)

	// Discourage the compiler from eliding the write above.
	runtime.KeepAlive(data)
}
