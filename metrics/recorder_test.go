package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecorderCountersIncrement(t *testing.T) {
	r := New()

	r.SessionOpened()
	r.SessionOpened()
	r.SessionClosed()
	r.AuthFailure()
	r.BytesUploaded(100)
	r.BytesDownloaded(40)
	r.CommandDuration("PUT_END", "ok", 5*time.Millisecond)

	if got := testutil.ToFloat64(r.sessionsActive); got != 1 {
		t.Fatalf("sessionsActive = %v, want 1", got)
	}
	if got := testutil.ToFloat64(r.sessionsTotal); got != 2 {
		t.Fatalf("sessionsTotal = %v, want 2", got)
	}
	if got := testutil.ToFloat64(r.authFailures); got != 1 {
		t.Fatalf("authFailures = %v, want 1", got)
	}
	if got := testutil.ToFloat64(r.bytesUploaded); got != 100 {
		t.Fatalf("bytesUploaded = %v, want 100", got)
	}
	if got := testutil.ToFloat64(r.bytesDownloaded); got != 40 {
		t.Fatalf("bytesDownloaded = %v, want 40", got)
	}
}

func TestNilRecorderMethodsAreNoops(t *testing.T) {
	var r *Recorder

	r.SessionOpened()
	r.SessionClosed()
	r.AuthFailure()
	r.BytesUploaded(10)
	r.BytesDownloaded(10)
	r.CommandDuration("INFO", "ok", time.Millisecond)

	if h := r.Handler(); h == nil {
		t.Fatal("Handler on nil Recorder returned nil")
	}
}

func TestHandlerExposesRegisteredMetrics(t *testing.T) {
	r := New()
	r.SessionOpened()

	req := httptest.NewRequest("GET", "/metrics", nil)
	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, req)

	body, err := io.ReadAll(rec.Result().Body)
	if err != nil {
		t.Fatalf("read response body: %v", err)
	}
	if !strings.Contains(string(body), "leo_sessions_active 1") {
		t.Fatalf("expected leo_sessions_active in exposition, got:\n%s", body)
	}
}
