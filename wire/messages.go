package wire

import (
	"encoding/json"
	"fmt"
)

// Message type discriminators, exchanged in the mandatory JSON "type" field.
const (
	TypeClientHello = "CLIENT_HELLO"
	TypeServerHello = "SERVER_HELLO"
	TypeAuth        = "AUTH"
	TypeAuthOK      = "AUTH_OK"
	TypeAuthError   = "AUTH_ERROR"
	TypePutBegin    = "PUT_BEGIN"
	TypePutChunk    = "PUT_CHUNK"
	TypePutEnd      = "PUT_END"
	TypePutOK       = "PUT_OK"
	TypeGetBegin    = "GET_BEGIN"
	TypeGetMeta     = "GET_META"
	TypeGetChunk    = "GET_CHUNK"
	TypeGetEnd      = "GET_END"
	TypeList        = "LIST"
	TypeListResult  = "LIST_RESULT"
	TypeDel         = "DEL"
	TypeDelOK       = "DEL_OK"
	TypeDelError    = "DEL_ERROR"
	TypeInfo        = "INFO"
	TypeInfoResult  = "INFO_RESULT"
	TypeBye         = "BYE"
	TypeError       = "ERROR"
)

// UnknownTypeError is returned when a decoded message carries a "type" this
// implementation does not recognize.
type UnknownTypeError struct {
	Type string
}

func (e *UnknownTypeError) Error() string {
	return fmt.Sprintf("wire: unknown message type %q", e.Type)
}

// ClientHello is the client's first and only handshake line.
type ClientHello struct {
	Type            string `json:"type"`
	Version         int    `json:"version"`
	Cipher          string `json:"cipher"`
	Kex             string `json:"kex"`
	ClientPublicKey string `json:"clientPublicKey"`
}

// NewClientHello builds a CLIENT_HELLO advertising the mandatory ciphersuite.
func NewClientHello(clientPublicKeyB64 string) *ClientHello {
	return &ClientHello{
		Type:            TypeClientHello,
		Version:         1,
		Cipher:          "AES-256-GCM",
		Kex:             "X25519",
		ClientPublicKey: clientPublicKeyB64,
	}
}

// ServerHello is the server's only handshake line, sent in response.
type ServerHello struct {
	Type            string `json:"type"`
	OK              bool   `json:"ok"`
	Version         int    `json:"version"`
	Cipher          string `json:"cipher"`
	Kex             string `json:"kex"`
	ServerPublicKey string `json:"serverPublicKey"`
	SessionID       string `json:"sessionId"`
	Error           string `json:"error,omitempty"`
}

// NewServerHello builds a successful SERVER_HELLO.
func NewServerHello(serverPublicKeyB64, sessionID string) *ServerHello {
	return &ServerHello{
		Type:            TypeServerHello,
		OK:              true,
		Version:         1,
		Cipher:          "AES-256-GCM",
		Kex:             "X25519",
		ServerPublicKey: serverPublicKeyB64,
		SessionID:       sessionID,
	}
}

// Auth carries credentials for the AUTH command.
type Auth struct {
	Type     string `json:"type"`
	Username string `json:"username"`
	Password string `json:"password"`
}

// NewAuth builds an AUTH request.
func NewAuth(username, password string) *Auth {
	return &Auth{Type: TypeAuth, Username: username, Password: password}
}

// AuthOK acknowledges successful authentication.
type AuthOK struct {
	Type string `json:"type"`
}

// NewAuthOK builds an AUTH_OK reply.
func NewAuthOK() *AuthOK { return &AuthOK{Type: TypeAuthOK} }

// AuthError reports failed authentication.
type AuthError struct {
	Type      string    `json:"type"`
	Error     string    `json:"error"`
	ErrorCode ErrorCode `json:"errorCode"`
	Message   string    `json:"message,omitempty"`
	Details   string    `json:"details,omitempty"`
}

// NewAuthError builds an AUTH_ERROR reply.
func NewAuthError(code ErrorCode, message string) *AuthError {
	return &AuthError{Type: TypeAuthError, Error: string(code), ErrorCode: code, Message: message}
}

// PutBegin announces an upload of size bytes to path.
type PutBegin struct {
	Type string `json:"type"`
	Path string `json:"path"`
	Size uint64 `json:"size"`
}

// NewPutBegin builds a PUT_BEGIN request.
func NewPutBegin(path string, size uint64) *PutBegin {
	return &PutBegin{Type: TypePutBegin, Path: path, Size: size}
}

// PutChunk carries one base64-encoded slice of upload data at offset.
type PutChunk struct {
	Type   string `json:"type"`
	Path   string `json:"path"`
	Offset uint64 `json:"offset"`
	Data   string `json:"data"`
}

// NewPutChunk builds a PUT_CHUNK request.
func NewPutChunk(path string, offset uint64, dataB64 string) *PutChunk {
	return &PutChunk{Type: TypePutChunk, Path: path, Offset: offset, Data: dataB64}
}

// PutEnd closes an upload.
type PutEnd struct {
	Type string `json:"type"`
	Path string `json:"path"`
}

// NewPutEnd builds a PUT_END request.
func NewPutEnd(path string) *PutEnd { return &PutEnd{Type: TypePutEnd, Path: path} }

// PutOK acknowledges a completed upload.
type PutOK struct {
	Type string `json:"type"`
	Path string `json:"path"`
}

// NewPutOK builds a PUT_OK reply.
func NewPutOK(path string) *PutOK { return &PutOK{Type: TypePutOK, Path: path} }

// GetBegin requests a download of path.
type GetBegin struct {
	Type string `json:"type"`
	Path string `json:"path"`
}

// NewGetBegin builds a GET_BEGIN request.
func NewGetBegin(path string) *GetBegin { return &GetBegin{Type: TypeGetBegin, Path: path} }

// GetMeta announces the total size of a download about to stream.
type GetMeta struct {
	Type string `json:"type"`
	Path string `json:"path"`
	Size uint64 `json:"size"`
}

// NewGetMeta builds a GET_META reply.
func NewGetMeta(path string, size uint64) *GetMeta {
	return &GetMeta{Type: TypeGetMeta, Path: path, Size: size}
}

// GetChunk carries one base64-encoded slice of download data at offset.
type GetChunk struct {
	Type   string `json:"type"`
	Path   string `json:"path"`
	Offset uint64 `json:"offset"`
	Data   string `json:"data"`
}

// NewGetChunk builds a GET_CHUNK reply.
func NewGetChunk(path string, offset uint64, dataB64 string) *GetChunk {
	return &GetChunk{Type: TypeGetChunk, Path: path, Offset: offset, Data: dataB64}
}

// GetEnd closes a download stream.
type GetEnd struct {
	Type string `json:"type"`
	Path string `json:"path"`
}

// NewGetEnd builds a GET_END reply.
func NewGetEnd(path string) *GetEnd { return &GetEnd{Type: TypeGetEnd, Path: path} }

// List requests the contents of a directory.
type List struct {
	Type string `json:"type"`
	Path string `json:"path"`
}

// NewList builds a LIST request.
func NewList(path string) *List { return &List{Type: TypeList, Path: path} }

// ListItem describes one directory entry.
type ListItem struct {
	Name string  `json:"name"`
	Type string  `json:"type"` // "file" or "dir"
	Size *uint64 `json:"size,omitempty"`
}

// ListResult is the reply to LIST.
type ListResult struct {
	Type  string     `json:"type"`
	Path  string     `json:"path"`
	Items []ListItem `json:"items"`
}

// NewListResult builds a LIST_RESULT reply.
func NewListResult(path string, items []ListItem) *ListResult {
	return &ListResult{Type: TypeListResult, Path: path, Items: items}
}

// Del requests deletion of a file.
type Del struct {
	Type string `json:"type"`
	Path string `json:"path"`
}

// NewDel builds a DEL request.
func NewDel(path string) *Del { return &Del{Type: TypeDel, Path: path} }

// DelOK acknowledges a successful deletion.
type DelOK struct {
	Type string `json:"type"`
	Path string `json:"path"`
}

// NewDelOK builds a DEL_OK reply.
func NewDelOK(path string) *DelOK { return &DelOK{Type: TypeDelOK, Path: path} }

// DelError reports a failed deletion. It duplicates Message into Error for
// legacy clients that read that field instead of Message.
type DelError struct {
	Type      string    `json:"type"`
	Path      string    `json:"path"`
	ErrorCode ErrorCode `json:"errorCode"`
	Message   string    `json:"message"`
	Error     string    `json:"error"`
}

// NewDelError builds a DEL_ERROR reply.
func NewDelError(path string, code ErrorCode, message string) *DelError {
	return &DelError{Type: TypeDelError, Path: path, ErrorCode: code, Message: message, Error: message}
}

// Info requests the server's capability and version information.
type Info struct {
	Type string `json:"type"`
}

// NewInfo builds an INFO request.
func NewInfo() *Info { return &Info{Type: TypeInfo} }

// InfoResult is the reply to INFO.
type InfoResult struct {
	Type            string   `json:"type"`
	Version         string   `json:"version"`
	ProtocolVersion int      `json:"protocolVersion"`
	Capabilities    []string `json:"capabilities"`
	StorageRoot     string   `json:"storageRoot,omitempty"`
	MaxUploadSize   *uint64  `json:"maxUploadSize,omitempty"`
}

// NewInfoResult builds an INFO_RESULT reply.
func NewInfoResult(version string, protocolVersion int, capabilities []string, storageRoot string, maxUploadSize *uint64) *InfoResult {
	return &InfoResult{
		Type:            TypeInfoResult,
		Version:         version,
		ProtocolVersion: protocolVersion,
		Capabilities:    capabilities,
		StorageRoot:     storageRoot,
		MaxUploadSize:   maxUploadSize,
	}
}

// Bye announces a clean disconnect.
type Bye struct {
	Type string `json:"type"`
}

// NewBye builds a BYE request.
func NewBye() *Bye { return &Bye{Type: TypeBye} }

// Error is the generic post-handshake error envelope.
type Error struct {
	Type      string    `json:"type"`
	Error     string    `json:"error"`
	ErrorCode ErrorCode `json:"errorCode"`
	Message   string    `json:"message"`
	Details   string    `json:"details,omitempty"`
}

// NewError builds an ERROR reply.
func NewError(code ErrorCode, message string) *Error {
	return &Error{Type: TypeError, Error: string(code), ErrorCode: code, Message: message}
}

// NewErrorWithDetails builds an ERROR reply carrying supplementary details.
func NewErrorWithDetails(code ErrorCode, message, details string) *Error {
	e := NewError(code, message)
	e.Details = details
	return e
}

// Encode marshals any LEO message struct to its JSON wire representation.
func Encode(msg any) ([]byte, error) {
	b, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("wire: encode %T: %w", msg, err)
	}
	return b, nil
}

// Decode inspects the "type" field of raw and unmarshals it into the
// matching concrete message struct, returned as an any. Callers switch on
// the dynamic type to dispatch. An unrecognized "type" yields
// *UnknownTypeError; malformed JSON yields the underlying json error.
func Decode(raw []byte) (any, error) {
	var probe struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return nil, fmt.Errorf("wire: decode envelope: %w", err)
	}

	var msg any
	switch probe.Type {
	case TypeClientHello:
		msg = &ClientHello{}
	case TypeServerHello:
		msg = &ServerHello{}
	case TypeAuth:
		msg = &Auth{}
	case TypeAuthOK:
		msg = &AuthOK{}
	case TypeAuthError:
		msg = &AuthError{}
	case TypePutBegin:
		msg = &PutBegin{}
	case TypePutChunk:
		msg = &PutChunk{}
	case TypePutEnd:
		msg = &PutEnd{}
	case TypePutOK:
		msg = &PutOK{}
	case TypeGetBegin:
		msg = &GetBegin{}
	case TypeGetMeta:
		msg = &GetMeta{}
	case TypeGetChunk:
		msg = &GetChunk{}
	case TypeGetEnd:
		msg = &GetEnd{}
	case TypeList:
		msg = &List{}
	case TypeListResult:
		msg = &ListResult{}
	case TypeDel:
		msg = &Del{}
	case TypeDelOK:
		msg = &DelOK{}
	case TypeDelError:
		msg = &DelError{}
	case TypeInfo:
		msg = &Info{}
	case TypeInfoResult:
		msg = &InfoResult{}
	case TypeBye:
		msg = &Bye{}
	case TypeError:
		msg = &Error{}
	default:
		return nil, &UnknownTypeError{Type: probe.Type}
	}

	if err := json.Unmarshal(raw, msg); err != nil {
		return nil, fmt.Errorf("wire: decode %s: %w", probe.Type, err)
	}
	return msg, nil
}
