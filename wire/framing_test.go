package wire

import (
	"bytes"
	"testing"
)

func TestConsumeFramesRoundTrip(t *testing.T) {
	inputs := [][]byte{
		[]byte("hello"),
		[]byte(""),
		bytes.Repeat([]byte{0x42}, 10000),
	}

	var stream []byte
	for _, b := range inputs {
		stream = append(stream, EncodeFrame(b)...)
	}

	frames, remainder, err := ConsumeFrames(stream, 0)
	if err != nil {
		t.Fatalf("ConsumeFrames: %v", err)
	}
	if len(remainder) != 0 {
		t.Fatalf("expected empty remainder, got %d bytes", len(remainder))
	}
	if len(frames) != len(inputs) {
		t.Fatalf("got %d frames, want %d", len(frames), len(inputs))
	}
	for i, want := range inputs {
		if !bytes.Equal(frames[i], want) {
			t.Fatalf("frame %d mismatch: got %v want %v", i, frames[i], want)
		}
	}
}

func TestConsumeFramesTruncationIsPrefixSafe(t *testing.T) {
	inputs := [][]byte{[]byte("aaa"), []byte("bbb"), []byte("ccc")}

	var stream []byte
	for _, b := range inputs {
		stream = append(stream, EncodeFrame(b)...)
	}

	for cut := 0; cut <= len(stream); cut++ {
		withheld := stream[cut:]
		frames, remainder, err := ConsumeFrames(stream[:cut], 0)
		if err != nil {
			t.Fatalf("ConsumeFrames at cut=%d: %v", cut, err)
		}

		if len(frames) > len(inputs) {
			t.Fatalf("cut=%d: returned more frames than exist", cut)
		}
		for i, got := range frames {
			if !bytes.Equal(got, inputs[i]) {
				t.Fatalf("cut=%d frame %d mismatch", cut, i)
			}
		}

		consumed := 0
		for _, f := range frames {
			consumed += LengthPrefixSize + len(f)
		}
		tail := stream[consumed:]
		gotTail := append(append([]byte(nil), remainder...), withheld...)
		if !bytes.Equal(gotTail, tail) {
			t.Fatalf("cut=%d: remainder+withheld != original tail", cut)
		}
	}
}

func TestConsumeFramesRejectsOversizeFrame(t *testing.T) {
	frame := EncodeFrame(make([]byte, 100))

	_, _, err := ConsumeFrames(frame, 10)
	if err != ErrFrameTooLarge && !bytes.Contains([]byte(err.Error()), []byte("frame exceeds maximum size")) {
		t.Fatalf("expected ErrFrameTooLarge, got %v", err)
	}
}

func TestSplitHandshakeLinePreservesTrailingBytes(t *testing.T) {
	line := []byte(`{"type":"CLIENT_HELLO"}`)
	trailing := EncodeFrame([]byte("next frame"))

	buf := append(append(append([]byte{}, line...), '\n'), trailing...)

	got, rest, ok := SplitHandshakeLine(buf)
	if !ok {
		t.Fatal("expected a complete handshake line")
	}
	if !bytes.Equal(got, line) {
		t.Fatalf("line mismatch: got %q want %q", got, line)
	}
	if !bytes.Equal(rest, trailing) {
		t.Fatalf("rest mismatch: got %v want %v", rest, trailing)
	}
}

func TestSplitHandshakeLineIncomplete(t *testing.T) {
	_, _, ok := SplitHandshakeLine([]byte(`{"type":"CLIENT_HELLO"`))
	if ok {
		t.Fatal("expected incomplete line to report ok=false")
	}
}
