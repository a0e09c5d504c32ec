package client

import (
	"encoding/base64"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/opd-ai/leo/crypto"
	"github.com/opd-ai/leo/logging"
	"github.com/opd-ai/leo/wire"
)

// putChunkSize is the fixed size of PUT_CHUNK payloads, matching the
// server's GET_CHUNK size so both directions stream in the same unit.
const putChunkSize = 65536

// Client is the dual of the server's session actor: it holds one TCP
// connection, the directional keys derived during the handshake, and a
// FIFO of waiters correlating requests with their replies.
type Client struct {
	conn          net.Conn
	keys          *crypto.SessionKeys
	sessionID     string
	timeout       time.Duration
	maxFrameBytes int

	writeMu sync.Mutex

	mu       sync.Mutex
	waiters  []*waiter
	closed   bool
	closeErr error
}

// Connect dials host:port, performs the CLIENT_HELLO/SERVER_HELLO
// handshake, derives session keys, and starts the background read loop.
// timeout bounds both the TCP dial and the handshake round trip; it also
// becomes the default per-request timeout for subsequent calls.
func Connect(host string, port int, timeout time.Duration) (*Client, error) {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	addr := net.JoinHostPort(host, strconv.Itoa(port))
	conn, err := net.DialTimeout("tcp", addr, timeout)
	if err != nil {
		return nil, fmt.Errorf("client: dial %s: %w", addr, err)
	}

	c, err := handshake(conn, timeout)
	if err != nil {
		conn.Close()
		return nil, err
	}
	return c, nil
}

func handshake(conn net.Conn, timeout time.Duration) (*Client, error) {
	log := logging.For("client")

	kp, err := crypto.GenerateKeyPair()
	if err != nil {
		return nil, fmt.Errorf("client: generate keypair: %w", err)
	}

	hello := wire.NewClientHello(base64.StdEncoding.EncodeToString(kp.Public[:]))
	line, err := wire.EncodeHandshakeLine(hello)
	if err != nil {
		return nil, fmt.Errorf("client: encode CLIENT_HELLO: %w", err)
	}

	conn.SetDeadline(time.Now().Add(timeout))
	defer conn.SetDeadline(time.Time{})

	if _, err := conn.Write(line); err != nil {
		return nil, fmt.Errorf("client: write CLIENT_HELLO: %w", err)
	}

	replyLine, rest, err := readHandshakeLine(conn)
	if err != nil {
		return nil, fmt.Errorf("client: read SERVER_HELLO: %w", err)
	}

	msg, err := wire.Decode(replyLine)
	if err != nil {
		return nil, fmt.Errorf("client: decode SERVER_HELLO: %w", err)
	}
	sh, ok := msg.(*wire.ServerHello)
	if !ok {
		return nil, &ProtocolError{Want: "SERVER_HELLO", Got: msg}
	}
	if !sh.OK {
		return nil, fmt.Errorf("client: handshake rejected: %s", sh.Error)
	}

	serverPubRaw, err := base64.StdEncoding.DecodeString(sh.ServerPublicKey)
	if err != nil || len(serverPubRaw) != 32 {
		return nil, fmt.Errorf("client: malformed server public key")
	}
	var serverPub [32]byte
	copy(serverPub[:], serverPubRaw)

	shared, err := crypto.DeriveSharedSecret(kp.Private, serverPub)
	if err != nil {
		return nil, fmt.Errorf("client: derive shared secret: %w", err)
	}
	defer crypto.ZeroBytes(shared[:])
	kp.Wipe()

	keys, err := crypto.DeriveSessionKeys(shared, sh.SessionID)
	if err != nil {
		return nil, fmt.Errorf("client: derive session keys: %w", err)
	}

	c := &Client{
		conn:          conn,
		keys:          keys,
		sessionID:     sh.SessionID,
		timeout:       timeout,
		maxFrameBytes: wire.DefaultMaxFrameBytes,
	}
	log.WithField("sessionId", sh.SessionID).Info("handshake complete")

	go c.readLoop(rest)
	return c, nil
}

// readHandshakeLine reads from conn until a newline-terminated handshake
// line is available, returning the line and any bytes already read past
// it that belong to the encrypted framing.
func readHandshakeLine(conn net.Conn) (line, rest []byte, err error) {
	buf := make([]byte, 0, 512)
	tmp := make([]byte, 512)
	for {
		if l, r, ok := wire.SplitHandshakeLine(buf); ok {
			return l, r, nil
		}
		n, rerr := conn.Read(tmp)
		if n > 0 {
			buf = append(buf, tmp[:n]...)
		}
		if rerr != nil {
			return nil, nil, rerr
		}
	}
}

// readLoop owns the socket's read side for the lifetime of the connection,
// peeling encrypted frames off the stream and dispatching decoded messages
// to the correlator. It is the client-side mirror of the session actor's
// frameLoop.
func (c *Client) readLoop(initial []byte) {
	log := logging.For("client")
	pending := initial
	tmp := make([]byte, 4096)

	for {
		frames, remainder, err := wire.ConsumeFrames(pending, c.maxFrameBytes)
		if err != nil {
			log.WithError(err).Warn("oversize frame from server, closing")
			c.failAll(&TransportError{Err: err})
			c.conn.Close()
			return
		}
		pending = remainder

		for _, blob := range frames {
			plaintext, err := crypto.Decrypt(c.keys.S2C, blob)
			if err != nil {
				log.WithError(err).Warn("aead failure, closing")
				c.failAll(&TransportError{Err: err})
				c.conn.Close()
				return
			}
			msg, err := wire.Decode(plaintext)
			if err != nil {
				log.WithError(err).Warn("malformed reply, closing")
				c.failAll(&TransportError{Err: err})
				c.conn.Close()
				return
			}
			c.dispatch(msg)
		}

		n, rerr := c.conn.Read(tmp)
		if n > 0 {
			pending = append(pending, tmp[:n]...)
		}
		if rerr != nil {
			c.failAll(&TransportError{Err: rerr})
			return
		}
	}
}

func (c *Client) send(msg any) error {
	plaintext, err := wire.Encode(msg)
	if err != nil {
		return fmt.Errorf("client: encode %T: %w", msg, err)
	}
	blob, err := crypto.Encrypt(c.keys.C2S, plaintext)
	if err != nil {
		return fmt.Errorf("client: encrypt %T: %w", msg, err)
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if _, err := c.conn.Write(wire.EncodeFrame(blob)); err != nil {
		return &TransportError{Err: err}
	}
	return nil
}

// beginCall enqueues a waiter for the reply to req and sends req. The
// waiter must be retired with endCall once the caller has consumed every
// message it cares about.
func (c *Client) beginCall(req any) (*waiter, error) {
	if closed, err := c.isClosed(); closed {
		return nil, err
	}
	w := newWaiter()
	c.enqueue(w)
	if err := c.send(req); err != nil {
		c.retire(w)
		return nil, err
	}
	return w, nil
}

func (c *Client) endCall(w *waiter) {
	c.retire(w)
}

// recv blocks for the next message dispatched to w, or returns ErrTimeout
// if none arrives within the client's configured timeout.
func (c *Client) recv(w *waiter) (any, error) {
	select {
	case res := <-w.ch:
		return res.msg, res.err
	case <-time.After(c.timeout):
		return nil, ErrTimeout
	}
}

// call performs a single request/response round trip: send req, await
// exactly one reply, retire the waiter.
func (c *Client) call(req any) (any, error) {
	w, err := c.beginCall(req)
	if err != nil {
		return nil, err
	}
	defer c.endCall(w)
	return c.recv(w)
}

// Auth sends AUTH and returns nil on AUTH_OK, or a *RemoteError carrying
// AUTH_INVALID_CREDENTIALS on rejection.
func (c *Client) Auth(username, password string) error {
	msg, err := c.call(wire.NewAuth(username, password))
	if err != nil {
		return err
	}
	switch m := msg.(type) {
	case *wire.AuthOK:
		return nil
	case *wire.AuthError:
		return &RemoteError{Code: m.ErrorCode, Message: m.Message, Details: m.Details}
	default:
		return &ProtocolError{Want: "AUTH_OK or AUTH_ERROR", Got: msg}
	}
}

// Put reads localPath fully, then streams it to remotePath via
// PUT_BEGIN/PUT_CHUNK*/PUT_END, returning once PUT_OK arrives.
func (c *Client) Put(localPath, remotePath string) error {
	data, err := os.ReadFile(localPath)
	if err != nil {
		return fmt.Errorf("client: read %s: %w", localPath, err)
	}

	if err := c.send(wire.NewPutBegin(remotePath, uint64(len(data)))); err != nil {
		return err
	}

	for offset := 0; offset < len(data); offset += putChunkSize {
		end := offset + putChunkSize
		if end > len(data) {
			end = len(data)
		}
		chunk := base64.StdEncoding.EncodeToString(data[offset:end])
		if err := c.send(wire.NewPutChunk(remotePath, uint64(offset), chunk)); err != nil {
			return err
		}
	}

	msg, err := c.call(wire.NewPutEnd(remotePath))
	if err != nil {
		return err
	}
	switch m := msg.(type) {
	case *wire.PutOK:
		return nil
	case *wire.Error:
		return &RemoteError{Code: m.ErrorCode, Message: m.Message, Details: m.Details}
	default:
		return &ProtocolError{Want: "PUT_OK", Got: msg}
	}
}

// Get downloads remotePath into localPath, creating parent directories as
// needed. It requires GET_META to be the first reply and verifies the
// accumulated byte count against the announced size once GET_END arrives.
func (c *Client) Get(remotePath, localPath string) error {
	w, err := c.beginCall(wire.NewGetBegin(remotePath))
	if err != nil {
		return err
	}
	defer c.endCall(w)

	msg, err := c.recv(w)
	if err != nil {
		return err
	}
	meta, ok := msg.(*wire.GetMeta)
	if !ok {
		if em, isErr := msg.(*wire.Error); isErr {
			return &RemoteError{Code: em.ErrorCode, Message: em.Message, Details: em.Details}
		}
		return ErrGetMetaMissing
	}

	var data []byte
	var received uint64
	for {
		msg, err := c.recv(w)
		if err != nil {
			return err
		}
		switch m := msg.(type) {
		case *wire.GetChunk:
			chunk, derr := base64.StdEncoding.DecodeString(m.Data)
			if derr != nil {
				return fmt.Errorf("client: decode GET_CHUNK: %w", derr)
			}
			end := m.Offset + uint64(len(chunk))
			if end > uint64(len(data)) {
				grown := make([]byte, end)
				copy(grown, data)
				data = grown
			}
			copy(data[m.Offset:end], chunk)
			received += uint64(len(chunk))
		case *wire.GetEnd:
			return c.finishGet(meta, data, received, localPath)
		case *wire.Error:
			return &RemoteError{Code: m.ErrorCode, Message: m.Message, Details: m.Details}
		default:
			return &ProtocolError{Want: "GET_CHUNK or GET_END", Got: msg}
		}
	}
}

func (c *Client) finishGet(meta *wire.GetMeta, data []byte, received uint64, localPath string) error {
	if received != meta.Size {
		return ErrGetIncomplete
	}
	if err := os.MkdirAll(filepath.Dir(localPath), 0o755); err != nil {
		return fmt.Errorf("client: create parent dirs for %s: %w", localPath, err)
	}
	if err := os.WriteFile(localPath, data, 0o644); err != nil {
		return fmt.Errorf("client: write %s: %w", localPath, err)
	}
	return nil
}

// List requests the contents of remotePath and returns the server's
// directory entries.
func (c *Client) List(remotePath string) ([]wire.ListItem, error) {
	msg, err := c.call(wire.NewList(remotePath))
	if err != nil {
		return nil, err
	}
	switch m := msg.(type) {
	case *wire.ListResult:
		return m.Items, nil
	case *wire.Error:
		return nil, &RemoteError{Code: m.ErrorCode, Message: m.Message, Details: m.Details}
	default:
		return nil, &ProtocolError{Want: "LIST_RESULT", Got: msg}
	}
}

// Del requests deletion of remotePath.
func (c *Client) Del(remotePath string) error {
	msg, err := c.call(wire.NewDel(remotePath))
	if err != nil {
		return err
	}
	switch m := msg.(type) {
	case *wire.DelOK:
		return nil
	case *wire.DelError:
		return &RemoteError{Code: m.ErrorCode, Message: m.Message}
	default:
		return &ProtocolError{Want: "DEL_OK or DEL_ERROR", Got: msg}
	}
}

// Info requests the server's capability and version information.
func (c *Client) Info() (*wire.InfoResult, error) {
	msg, err := c.call(wire.NewInfo())
	if err != nil {
		return nil, err
	}
	switch m := msg.(type) {
	case *wire.InfoResult:
		return m, nil
	case *wire.Error:
		return nil, &RemoteError{Code: m.ErrorCode, Message: m.Message, Details: m.Details}
	default:
		return nil, &ProtocolError{Want: "INFO_RESULT", Got: msg}
	}
}

// Bye announces a clean disconnect and closes the connection. The server
// sends no reply to BYE, so Bye does not wait for one.
func (c *Client) Bye() error {
	sendErr := c.send(wire.NewBye())
	closeErr := c.Close()
	if sendErr != nil {
		return sendErr
	}
	return closeErr
}

// Close tears down the connection, wipes session key material, and
// rejects any outstanding waiters with ErrClosed.
func (c *Client) Close() error {
	c.failAll(ErrClosed)
	c.keys.Wipe()
	return c.conn.Close()
}

// SessionID returns the server-assigned session identifier established
// during the handshake.
func (c *Client) SessionID() string { return c.sessionID }
