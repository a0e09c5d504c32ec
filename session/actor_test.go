package session

import (
	"context"
	"encoding/base64"
	"net"
	"testing"

	"github.com/opd-ai/leo/crypto"
	"github.com/opd-ai/leo/storage"
	"github.com/opd-ai/leo/wire"
)

// testRig drives a session actor end to end over a net.Pipe, playing the
// client side of the handshake and encrypted framing by hand so this
// package's tests do not depend on the client package.
type testRig struct {
	t    *testing.T
	conn net.Conn
	c2s  [32]byte
	s2c  [32]byte

	pending []byte
	queue   [][]byte
}

func newTestServer(t *testing.T, username, password string) (*storage.Root, Config) {
	t.Helper()
	dir := t.TempDir()
	root, err := storage.NewRoot(dir)
	if err != nil {
		t.Fatalf("NewRoot: %v", err)
	}
	cfg := Config{
		Username:        username,
		Password:        password,
		ProtocolVersion: 1,
		Capabilities:    DefaultCapabilities,
		StoragePath:     dir,
	}
	return root, cfg
}

func startRig(t *testing.T, cfg Config, root *storage.Root) *testRig {
	t.Helper()
	serverConn, clientConn := net.Pipe()
	info := infoFromConfig(cfg, cfg.StoragePath)
	sess := newSession(serverConn, cfg, info, root, nil, wire.DefaultMaxFrameBytes)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go sess.run(ctx)

	r := &testRig{t: t, conn: clientConn}
	r.handshake()
	return r
}

func (r *testRig) handshake() {
	t := r.t
	kp, err := crypto.GenerateKeyPair()
	if err != nil {
		t.Fatalf("GenerateKeyPair: %v", err)
	}

	line, err := wire.EncodeHandshakeLine(wire.NewClientHello(base64.StdEncoding.EncodeToString(kp.Public[:])))
	if err != nil {
		t.Fatalf("encode CLIENT_HELLO: %v", err)
	}
	if _, err := r.conn.Write(line); err != nil {
		t.Fatalf("write CLIENT_HELLO: %v", err)
	}

	replyLine, rest := r.readHandshakeLine()
	r.pending = rest

	msg, err := wire.Decode(replyLine)
	if err != nil {
		t.Fatalf("decode SERVER_HELLO: %v", err)
	}
	sh, ok := msg.(*wire.ServerHello)
	if !ok {
		t.Fatalf("expected ServerHello, got %T", msg)
	}
	if !sh.OK {
		t.Fatalf("handshake rejected: %s", sh.Error)
	}

	serverPubRaw, err := base64.StdEncoding.DecodeString(sh.ServerPublicKey)
	if err != nil || len(serverPubRaw) != 32 {
		t.Fatalf("bad server public key: %v", err)
	}
	var serverPub [32]byte
	copy(serverPub[:], serverPubRaw)

	shared, err := crypto.DeriveSharedSecret(kp.Private, serverPub)
	if err != nil {
		t.Fatalf("DeriveSharedSecret: %v", err)
	}
	keys, err := crypto.DeriveSessionKeys(shared, sh.SessionID)
	if err != nil {
		t.Fatalf("DeriveSessionKeys: %v", err)
	}
	r.c2s = keys.C2S
	r.s2c = keys.S2C
}

func (r *testRig) readHandshakeLine() (line, rest []byte) {
	t := r.t
	buf := make([]byte, 0, 512)
	tmp := make([]byte, 512)
	for {
		if l, rst, ok := wire.SplitHandshakeLine(buf); ok {
			return l, rst
		}
		n, err := r.conn.Read(tmp)
		if n > 0 {
			buf = append(buf, tmp[:n]...)
		}
		if err != nil {
			t.Fatalf("read handshake line: %v", err)
		}
	}
}

func (r *testRig) send(msg any) {
	t := r.t
	plaintext, err := wire.Encode(msg)
	if err != nil {
		t.Fatalf("encode %T: %v", msg, err)
	}
	blob, err := crypto.Encrypt(r.c2s, plaintext)
	if err != nil {
		t.Fatalf("encrypt %T: %v", msg, err)
	}
	if _, err := r.conn.Write(wire.EncodeFrame(blob)); err != nil {
		t.Fatalf("write %T: %v", msg, err)
	}
}

// recv blocks for the next decrypted, decoded message from the server.
func (r *testRig) recv() any {
	t := r.t
	blob := r.nextFrame()
	plaintext, err := crypto.Decrypt(r.s2c, blob)
	if err != nil {
		t.Fatalf("decrypt reply: %v", err)
	}
	msg, err := wire.Decode(plaintext)
	if err != nil {
		t.Fatalf("decode reply: %v", err)
	}
	return msg
}

func (r *testRig) nextFrame() []byte {
	t := r.t
	tmp := make([]byte, 65536+4096)
	for len(r.queue) == 0 {
		frames, remainder, err := wire.ConsumeFrames(r.pending, 0)
		if err != nil {
			t.Fatalf("consume frames: %v", err)
		}
		r.pending = remainder
		r.queue = append(r.queue, frames...)
		if len(r.queue) > 0 {
			break
		}
		n, err := r.conn.Read(tmp)
		if n > 0 {
			r.pending = append(r.pending, tmp[:n]...)
		}
		if err != nil {
			t.Fatalf("read frame: %v", err)
		}
	}
	blob := r.queue[0]
	r.queue = r.queue[1:]
	return blob
}

func TestHappyPathPutListGetBye(t *testing.T) {
	root, cfg := newTestServer(t, "user", "pass")
	r := startRig(t, cfg, root)

	r.send(wire.NewAuth("user", "pass"))
	if _, ok := r.recv().(*wire.AuthOK); !ok {
		t.Fatal("expected AUTH_OK")
	}

	content := []byte("hello leo")
	r.send(wire.NewPutBegin("remote/file.txt", uint64(len(content))))
	r.send(wire.NewPutChunk("remote/file.txt", 0, base64.StdEncoding.EncodeToString(content)))
	r.send(wire.NewPutEnd("remote/file.txt"))
	ok, isPutOK := r.recv().(*wire.PutOK)
	if !isPutOK || ok.Path != "remote/file.txt" {
		t.Fatalf("expected PUT_OK for remote/file.txt, got %+v", ok)
	}

	r.send(wire.NewList("remote"))
	lr, isList := r.recv().(*wire.ListResult)
	if !isList {
		t.Fatal("expected LIST_RESULT")
	}
	if len(lr.Items) != 1 || lr.Items[0].Name != "file.txt" || lr.Items[0].Type != "file" || lr.Items[0].Size == nil || *lr.Items[0].Size != uint64(len(content)) {
		t.Fatalf("unexpected LIST_RESULT items: %+v", lr.Items)
	}

	r.send(wire.NewGetBegin("remote/file.txt"))
	meta, isMeta := r.recv().(*wire.GetMeta)
	if !isMeta || meta.Size != uint64(len(content)) {
		t.Fatalf("expected GET_META with size %d, got %+v", len(content), meta)
	}
	chunk, isChunk := r.recv().(*wire.GetChunk)
	if !isChunk || chunk.Offset != 0 {
		t.Fatalf("expected GET_CHUNK at offset 0, got %+v", chunk)
	}
	got, err := base64.StdEncoding.DecodeString(chunk.Data)
	if err != nil || string(got) != string(content) {
		t.Fatalf("GET_CHUNK payload = %q, want %q", got, content)
	}
	if _, isEnd := r.recv().(*wire.GetEnd); !isEnd {
		t.Fatal("expected GET_END")
	}

	r.send(wire.NewBye())
}

func TestBadCredentialsThenRetry(t *testing.T) {
	root, cfg := newTestServer(t, "user", "pass")
	r := startRig(t, cfg, root)

	r.send(wire.NewAuth("user", "wrong"))
	ae, isAuthErr := r.recv().(*wire.AuthError)
	if !isAuthErr || ae.ErrorCode != wire.ErrAuthInvalidCreds {
		t.Fatalf("expected AUTH_ERROR AUTH_INVALID_CREDENTIALS, got %+v", ae)
	}

	r.send(wire.NewAuth("user", "pass"))
	if _, ok := r.recv().(*wire.AuthOK); !ok {
		t.Fatal("expected second AUTH to succeed")
	}
}

func TestCommandBeforeAuthIsUnauthorized(t *testing.T) {
	root, cfg := newTestServer(t, "user", "pass")
	r := startRig(t, cfg, root)

	r.send(wire.NewInfo())
	errMsg, isErr := r.recv().(*wire.Error)
	if !isErr || errMsg.ErrorCode != wire.ErrUnauthorized {
		t.Fatalf("expected ERROR UNAUTHORIZED, got %+v", errMsg)
	}
}

func TestPathTraversalOnDel(t *testing.T) {
	root, cfg := newTestServer(t, "user", "pass")
	r := startRig(t, cfg, root)

	r.send(wire.NewAuth("user", "pass"))
	r.recv()

	r.send(wire.NewDel("../evil.txt"))
	de, isDelErr := r.recv().(*wire.DelError)
	if !isDelErr || de.ErrorCode != wire.ErrInvalidPath {
		t.Fatalf("expected DEL_ERROR INVALID_PATH, got %+v", de)
	}
}

func TestMissingFileOnDel(t *testing.T) {
	root, cfg := newTestServer(t, "user", "pass")
	r := startRig(t, cfg, root)

	r.send(wire.NewAuth("user", "pass"))
	r.recv()

	r.send(wire.NewDel("missing.txt"))
	de, isDelErr := r.recv().(*wire.DelError)
	if !isDelErr || de.ErrorCode != wire.ErrFileNotFound {
		t.Fatalf("expected DEL_ERROR FILE_NOT_FOUND, got %+v", de)
	}
}

func TestMissingFileOnGet(t *testing.T) {
	root, cfg := newTestServer(t, "user", "pass")
	r := startRig(t, cfg, root)

	r.send(wire.NewAuth("user", "pass"))
	r.recv()

	r.send(wire.NewGetBegin("absent.txt"))
	errMsg, isErr := r.recv().(*wire.Error)
	if !isErr || errMsg.ErrorCode != wire.ErrFileNotFound {
		t.Fatalf("expected ERROR FILE_NOT_FOUND, got %+v", errMsg)
	}
}

func TestInfoReportsCapabilities(t *testing.T) {
	root, cfg := newTestServer(t, "user", "pass")
	r := startRig(t, cfg, root)

	r.send(wire.NewAuth("user", "pass"))
	r.recv()

	r.send(wire.NewInfo())
	ir, isInfo := r.recv().(*wire.InfoResult)
	if !isInfo || ir.ProtocolVersion != 1 {
		t.Fatalf("expected INFO_RESULT with protocolVersion 1, got %+v", ir)
	}
	found := false
	for _, c := range ir.Capabilities {
		if c == "DEL" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected capabilities to include DEL, got %v", ir.Capabilities)
	}
}

func TestPutChunkWithoutBeginIsRejected(t *testing.T) {
	root, cfg := newTestServer(t, "user", "pass")
	r := startRig(t, cfg, root)

	r.send(wire.NewAuth("user", "pass"))
	r.recv()

	r.send(wire.NewPutChunk("never-begun.txt", 0, base64.StdEncoding.EncodeToString([]byte("x"))))
	errMsg, isErr := r.recv().(*wire.Error)
	if !isErr || errMsg.ErrorCode != wire.ErrUploadNotInitialized {
		t.Fatalf("expected ERROR UPLOAD_NOT_INITIALIZED, got %+v", errMsg)
	}
}

func TestUnknownCommandType(t *testing.T) {
	root, cfg := newTestServer(t, "user", "pass")
	r := startRig(t, cfg, root)

	r.send(wire.NewAuth("user", "pass"))
	r.recv()

	plaintext, err := wire.Encode(struct {
		Type string `json:"type"`
	}{Type: "NOT_A_REAL_COMMAND"})
	if err != nil {
		t.Fatalf("encode bogus message: %v", err)
	}
	blob, err := crypto.Encrypt(r.c2s, plaintext)
	if err != nil {
		t.Fatalf("encrypt bogus message: %v", err)
	}
	if _, err := r.conn.Write(wire.EncodeFrame(blob)); err != nil {
		t.Fatalf("write bogus frame: %v", err)
	}

	errMsg, isErr := r.recv().(*wire.Error)
	if !isErr || errMsg.ErrorCode != wire.ErrInvalidCommand {
		t.Fatalf("expected ERROR INVALID_COMMAND, got %+v", errMsg)
	}
}
