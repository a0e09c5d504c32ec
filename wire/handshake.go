package wire

import (
	"bytes"
	"fmt"
)

// SplitHandshakeLine locates the first newline in buf and splits it into
// the handshake JSON line (without the newline) and everything after it,
// which belongs to the next framing (encrypted frames) and must not be
// discarded even though it arrived in the same TCP read as the handshake.
// ok is false if buf does not yet contain a complete line.
func SplitHandshakeLine(buf []byte) (line, rest []byte, ok bool) {
	idx := bytes.IndexByte(buf, '\n')
	if idx < 0 {
		return nil, nil, false
	}
	return buf[:idx], buf[idx+1:], true
}

// EncodeHandshakeLine marshals msg and appends the newline terminator
// required by the handshake framing.
func EncodeHandshakeLine(msg any) ([]byte, error) {
	b, err := Encode(msg)
	if err != nil {
		return nil, fmt.Errorf("wire: encode handshake line: %w", err)
	}
	return append(b, '\n'), nil
}
