package logging

import (
	"bytes"
	"encoding/json"
	"os"
	"testing"
)

func TestInfoRoutesToStdout(t *testing.T) {
	var stdout, stderr bytes.Buffer
	SetOutputs(&stdout, &stderr)
	defer SetOutputs(os.Stdout, os.Stderr)

	For("test").Info("hello")

	if stdout.Len() == 0 {
		t.Fatal("expected an info record on stdout")
	}
	if stderr.Len() != 0 {
		t.Fatal("info record leaked onto stderr")
	}

	var rec map[string]any
	if err := json.Unmarshal(stdout.Bytes(), &rec); err != nil {
		t.Fatalf("record is not valid JSON: %v", err)
	}
	for _, field := range []string{"ts", "level", "message", "context"} {
		if _, ok := rec[field]; !ok {
			t.Fatalf("record missing field %q: %v", field, rec)
		}
	}
	if rec["context"] != "test" {
		t.Fatalf("unexpected context: %v", rec["context"])
	}
}

func TestErrorRoutesToStderr(t *testing.T) {
	var stdout, stderr bytes.Buffer
	SetOutputs(&stdout, &stderr)
	defer SetOutputs(os.Stdout, os.Stderr)

	For("test").Error("boom")

	if stderr.Len() == 0 {
		t.Fatal("expected an error record on stderr")
	}
	if stdout.Len() != 0 {
		t.Fatal("error record leaked onto stdout")
	}
}
