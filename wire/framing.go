package wire

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// LengthPrefixSize is the width of the big-endian frame length header.
const LengthPrefixSize = 4

// DefaultMaxFrameBytes is the default ceiling on a decoded frame's AEAD
// blob, guarding against a malicious or buggy peer declaring an enormous
// length and exhausting memory before decryption is even attempted.
const DefaultMaxFrameBytes = 16 * 1024 * 1024

// ErrFrameTooLarge is a fatal protocol error: the peer declared a frame
// length exceeding the configured maximum.
var ErrFrameTooLarge = errors.New("wire: frame exceeds maximum size")

// EncodeFrame prepends a 4-byte big-endian length prefix to blob, producing
// one complete frame ready to write to the socket.
func EncodeFrame(blob []byte) []byte {
	frame := make([]byte, LengthPrefixSize+len(blob))
	binary.BigEndian.PutUint32(frame[:LengthPrefixSize], uint32(len(blob)))
	copy(frame[LengthPrefixSize:], blob)
	return frame
}

// ConsumeFrames scans buf for complete length-prefixed frames and returns
// the decoded blobs found, plus the unconsumed remainder of buf (a partial
// frame's header or body, if any). It never copies more than is necessary
// and never blocks; callers feed it whatever bytes have arrived so far.
//
// If any frame declares a length greater than maxFrameBytes, ConsumeFrames
// returns ErrFrameTooLarge immediately; this is a fatal protocol error and
// the caller must close the connection rather than keep reading.
func ConsumeFrames(buf []byte, maxFrameBytes int) (frames [][]byte, remainder []byte, err error) {
	if maxFrameBytes <= 0 {
		maxFrameBytes = DefaultMaxFrameBytes
	}

	offset := 0
	for {
		if len(buf)-offset < LengthPrefixSize {
			break
		}

		length := binary.BigEndian.Uint32(buf[offset : offset+LengthPrefixSize])
		if int(length) > maxFrameBytes {
			return frames, nil, fmt.Errorf("%w: declared %d bytes, max %d", ErrFrameTooLarge, length, maxFrameBytes)
		}

		frameEnd := offset + LengthPrefixSize + int(length)
		if frameEnd > len(buf) {
			break
		}

		blob := make([]byte, length)
		copy(blob, buf[offset+LengthPrefixSize:frameEnd])
		frames = append(frames, blob)
		offset = frameEnd
	}

	remainder = append([]byte(nil), buf[offset:]...)
	return frames, remainder, nil
}
