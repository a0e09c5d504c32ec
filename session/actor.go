package session

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"io"
	"net"
	"time"

	"github.com/opd-ai/leo/crypto"
	"github.com/opd-ai/leo/logging"
	"github.com/opd-ai/leo/metrics"
	"github.com/opd-ai/leo/storage"
	"github.com/opd-ai/leo/wire"
	"github.com/sirupsen/logrus"
)

// handshakeTimeout bounds the time a connection may spend in AwaitHello
// before it is closed.
const handshakeTimeout = 10 * time.Second

// getChunkSize is the fixed size of GET_CHUNK payloads, matching the
// client's PUT_CHUNK size so both directions stream in the same unit.
const getChunkSize = 65536

type sessionState int

const (
	stateAwaitHello sessionState = iota
	stateAwaitAuth
	stateReady
	stateClosed
)

type uploadState struct {
	declaredSize uint64
	received     uint64
}

// session is the per-connection actor: one goroutine owns it end to end, so
// its fields need no locking.
type session struct {
	conn          net.Conn
	cfg           Config
	info          ServerInfo
	storage       *storage.Root
	metrics       *metrics.Recorder
	maxFrameBytes int

	log *logrus.Entry

	state sessionState
	id    string
	keys  *crypto.SessionKeys
	kp    *crypto.KeyPair

	uploads map[string]*uploadState
}

func newSession(conn net.Conn, cfg Config, info ServerInfo, store *storage.Root, rec *metrics.Recorder, maxFrameBytes int) *session {
	return &session{
		conn:          conn,
		cfg:           cfg,
		info:          info,
		storage:       store,
		metrics:       rec,
		maxFrameBytes: maxFrameBytes,
		log:           logging.For("session").WithField("remote", conn.RemoteAddr().String()),
		state:         stateAwaitHello,
		uploads:       make(map[string]*uploadState),
	}
}

func (s *session) run(ctx context.Context) {
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			s.conn.Close()
		case <-done:
		}
	}()
	defer s.cleanup()

	rest, ok := s.awaitHello()
	if !ok {
		return
	}
	s.state = stateAwaitAuth
	s.frameLoop(rest)
}

func (s *session) cleanup() {
	s.state = stateClosed
	s.keys.Wipe()
	s.kp.Wipe()
	s.uploads = nil
	s.conn.Close()
}

// awaitHello buffers inbound bytes until a full handshake line arrives,
// validates it as CLIENT_HELLO, and on success replies with SERVER_HELLO
// and derives the session's directional keys. It returns any bytes read
// past the handshake line's terminator, which already belong to the
// encrypted framing and must not be discarded. ok is false if the
// handshake failed in any way; the caller must not proceed further.
func (s *session) awaitHello() (rest []byte, ok bool) {
	s.conn.SetReadDeadline(time.Now().Add(handshakeTimeout))
	defer s.conn.SetReadDeadline(time.Time{})

	line, rest, err := readHandshakeLine(s.conn)
	if err != nil {
		s.log.WithError(err).Debug("handshake read failed, closing")
		return nil, false
	}

	msg, err := wire.Decode(line)
	if err != nil {
		s.log.WithError(err).Warn("unparseable CLIENT_HELLO, closing")
		return nil, false
	}
	hello, valid := msg.(*wire.ClientHello)
	if !valid {
		s.log.Warn("first handshake line was not CLIENT_HELLO, closing")
		return nil, false
	}

	clientPub, err := validateClientHello(hello)
	if err != nil {
		s.log.WithError(err).Warn("invalid CLIENT_HELLO, closing")
		return nil, false
	}

	kp, err := crypto.GenerateKeyPair()
	if err != nil {
		s.log.WithError(err).Warn("server keypair generation failed, closing")
		return nil, false
	}
	s.kp = kp

	shared, err := crypto.DeriveSharedSecret(kp.Private, clientPub)
	if err != nil {
		s.log.WithError(err).Warn("dh agreement failed, closing")
		return nil, false
	}
	defer crypto.ZeroBytes(shared[:])

	sessionID, err := generateSessionID()
	if err != nil {
		s.log.WithError(err).Warn("session id generation failed, closing")
		return nil, false
	}
	s.id = sessionID

	keys, err := crypto.DeriveSessionKeys(shared, sessionID)
	if err != nil {
		s.log.WithError(err).Warn("session key derivation failed, closing")
		return nil, false
	}
	s.keys = keys

	reply := wire.NewServerHello(base64.StdEncoding.EncodeToString(kp.Public[:]), sessionID)
	line2, err := wire.EncodeHandshakeLine(reply)
	if err != nil {
		s.log.WithError(err).Warn("encode SERVER_HELLO failed, closing")
		return nil, false
	}
	if _, err := s.conn.Write(line2); err != nil {
		s.log.WithError(err).Debug("write SERVER_HELLO failed, closing")
		return nil, false
	}

	s.log.WithField("sessionId", sessionID).Info("handshake complete")
	return rest, true
}

func validateClientHello(h *wire.ClientHello) ([32]byte, error) {
	var pub [32]byte

	if h.Type != wire.TypeClientHello {
		return pub, errors.New("session: wrong handshake type")
	}
	if h.Version != 1 {
		return pub, errors.New("session: unsupported version")
	}
	if h.Cipher != "AES-256-GCM" {
		return pub, errors.New("session: unsupported cipher")
	}
	if h.Kex != "X25519" {
		return pub, errors.New("session: unsupported kex")
	}
	if h.ClientPublicKey == "" {
		return pub, errors.New("session: missing client public key")
	}

	raw, err := base64.StdEncoding.DecodeString(h.ClientPublicKey)
	if err != nil {
		return pub, errors.New("session: client public key is not valid base64")
	}
	if len(raw) != 32 {
		return pub, errors.New("session: client public key has wrong length")
	}
	copy(pub[:], raw)
	return pub, nil
}

func generateSessionID() (string, error) {
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

// readHandshakeLine reads from conn until a newline-terminated handshake
// line is available, returning the line and any bytes already read past
// it.
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

// frameLoop consumes length-prefixed encrypted frames from the connection,
// starting with any bytes already buffered (initial), until the socket
// closes, BYE is received, or a fatal protocol error occurs.
func (s *session) frameLoop(initial []byte) {
	pending := initial
	tmp := make([]byte, 4096)

	for {
		frames, remainder, err := wire.ConsumeFrames(pending, s.maxFrameBytes)
		if err != nil {
			s.log.WithError(err).Warn("oversize frame, closing")
			return
		}
		pending = remainder

		for _, blob := range frames {
			if !s.handleFrame(blob) {
				return
			}
		}

		n, rerr := s.conn.Read(tmp)
		if n > 0 {
			pending = append(pending, tmp[:n]...)
		}
		if rerr != nil {
			if rerr != io.EOF {
				s.log.WithError(rerr).Debug("connection read failed")
			}
			return
		}
	}
}

func (s *session) handleFrame(blob []byte) bool {
	plaintext, err := crypto.Decrypt(s.keys.C2S, blob)
	if err != nil {
		s.log.WithError(err).Debug("aead failure, closing")
		return false
	}

	msg, err := wire.Decode(plaintext)
	if err != nil {
		var unknown *wire.UnknownTypeError
		if errors.As(err, &unknown) {
			s.sendError(wire.ErrInvalidCommand, "unrecognized command")
			return true
		}
		s.log.WithError(err).Warn("malformed JSON frame, closing")
		s.sendError(wire.ErrInvalidMessage, "Message illisible")
		return false
	}

	return s.dispatch(msg)
}

func (s *session) dispatch(msg any) bool {
	if s.state == stateAwaitAuth {
		if auth, ok := msg.(*wire.Auth); ok {
			s.handleAuth(auth)
			return true
		}
		s.sendError(wire.ErrUnauthorized, "Authentification requise")
		return true
	}

	switch m := msg.(type) {
	case *wire.Auth:
		s.handleAuth(m)
	case *wire.PutBegin:
		s.handlePutBegin(m)
	case *wire.PutChunk:
		s.handlePutChunk(m)
	case *wire.PutEnd:
		s.handlePutEnd(m)
	case *wire.GetBegin:
		s.handleGetBegin(m)
	case *wire.List:
		s.handleList(m)
	case *wire.Del:
		s.handleDel(m)
	case *wire.Info:
		s.handleInfo(m)
	case *wire.Bye:
		s.log.Debug("BYE received")
		s.halfClose()
		return false
	default:
		s.sendError(wire.ErrInvalidCommand, "unrecognized command")
	}
	return true
}

func (s *session) halfClose() {
	if tc, ok := s.conn.(*net.TCPConn); ok {
		tc.CloseWrite()
		return
	}
	s.conn.Close()
}

func (s *session) handleAuth(m *wire.Auth) {
	validUser := subtle.ConstantTimeCompare([]byte(m.Username), []byte(s.cfg.Username)) == 1
	validPass := subtle.ConstantTimeCompare([]byte(m.Password), []byte(s.cfg.Password)) == 1

	if validUser && validPass {
		s.state = stateReady
		s.send(wire.NewAuthOK())
		s.log.Info("authenticated")
		return
	}

	s.metrics.AuthFailure()
	s.log.Warn("rejected AUTH")
	s.send(wire.NewAuthError(wire.ErrAuthInvalidCreds, "invalid credentials"))
}

func (s *session) send(msg any) bool {
	plaintext, err := wire.Encode(msg)
	if err != nil {
		s.log.WithError(err).Warn("encode reply failed")
		return false
	}
	blob, err := crypto.Encrypt(s.keys.S2C, plaintext)
	if err != nil {
		s.log.WithError(err).Warn("encrypt reply failed")
		return false
	}
	if _, err := s.conn.Write(wire.EncodeFrame(blob)); err != nil {
		s.log.WithError(err).Debug("write reply failed")
		return false
	}
	return true
}

func (s *session) sendError(code wire.ErrorCode, message string) {
	s.send(wire.NewError(code, message))
}
