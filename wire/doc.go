// Package wire implements the LEO wire format: the JSON message schema
// exchanged between client and server, and the two framings that carry it
// over a single TCP socket (a newline-terminated handshake line followed
// by length-prefixed encrypted frames).
//
// Example:
//
//	frame := wire.EncodeFrame(blob)
//	msgs, rest, err := wire.ConsumeFrames(buffered, wire.DefaultMaxFrameBytes)
package wire
