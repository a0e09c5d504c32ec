package client

import (
	"fmt"

	"github.com/opd-ai/leo/wire"
)

// ErrGetMetaMissing indicates the server's first reply to GET_BEGIN was not
// GET_META, so no download can be tracked.
var ErrGetMetaMissing = fmt.Errorf("client: server did not reply with GET_META")

// ErrGetIncomplete indicates the accumulated GET_CHUNK payload length did
// not match the size announced in GET_META once GET_END arrived.
var ErrGetIncomplete = fmt.Errorf("client: download ended short of announced size")

// ErrTimeout indicates a pending request received no reply within its
// configured timeout.
var ErrTimeout = fmt.Errorf("client: request timed out")

// ErrClosed indicates an operation was attempted after the connection was
// closed, either explicitly or by a transport failure.
var ErrClosed = fmt.Errorf("client: connection closed")

// RemoteError wraps a typed ERROR, AUTH_ERROR, or DEL_ERROR reply from the
// server. Callers should branch on Code, never on Message.
type RemoteError struct {
	Code    wire.ErrorCode
	Message string
	Details string
}

func (e *RemoteError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("client: remote error %s: %s (%s)", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("client: remote error %s: %s", e.Code, e.Message)
}

// ProtocolError indicates the server sent a well-formed but unexpected
// message type in reply to a request.
type ProtocolError struct {
	Want string
	Got  any
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("client: expected %s, got %T", e.Want, e.Got)
}

// TransportError wraps a socket-level failure (read/write error, EOF on an
// unexpected close) that killed the connection while a request was
// outstanding.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string { return fmt.Sprintf("client: transport failure: %v", e.Err) }
func (e *TransportError) Unwrap() error { return e.Err }
