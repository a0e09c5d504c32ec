package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder owns the LEO protocol's Prometheus collectors. All methods are
// safe to call on a nil *Recorder, in which case they do nothing.
type Recorder struct {
	registry *prometheus.Registry

	sessionsActive  prometheus.Gauge
	sessionsTotal   prometheus.Counter
	authFailures    prometheus.Counter
	bytesUploaded   prometheus.Counter
	bytesDownloaded prometheus.Counter
	commandDuration *prometheus.HistogramVec
}

// New builds a Recorder registered against a fresh registry.
func New() *Recorder {
	reg := prometheus.NewRegistry()

	r := &Recorder{
		registry: reg,
		sessionsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "leo_sessions_active",
			Help: "Number of currently open LEO sessions.",
		}),
		sessionsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "leo_sessions_total",
			Help: "Total LEO sessions accepted since process start.",
		}),
		authFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "leo_auth_failures_total",
			Help: "Total AUTH requests rejected for bad credentials.",
		}),
		bytesUploaded: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "leo_bytes_uploaded_total",
			Help: "Total bytes received via PUT_CHUNK.",
		}),
		bytesDownloaded: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "leo_bytes_downloaded_total",
			Help: "Total bytes sent via GET_CHUNK.",
		}),
		commandDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name: "leo_command_duration_seconds",
			Help: "Time to service one post-handshake command.",
		}, []string{"command", "outcome"}),
	}

	reg.MustRegister(r.sessionsActive, r.sessionsTotal, r.authFailures, r.bytesUploaded, r.bytesDownloaded, r.commandDuration)
	return r
}

// Handler returns the promhttp handler serving this recorder's registry.
func (r *Recorder) Handler() http.Handler {
	if r == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// SessionOpened records a newly accepted connection.
func (r *Recorder) SessionOpened() {
	if r == nil {
		return
	}
	r.sessionsActive.Inc()
	r.sessionsTotal.Inc()
}

// SessionClosed records a session's destruction.
func (r *Recorder) SessionClosed() {
	if r == nil {
		return
	}
	r.sessionsActive.Dec()
}

// AuthFailure records one rejected AUTH attempt.
func (r *Recorder) AuthFailure() {
	if r == nil {
		return
	}
	r.authFailures.Inc()
}

// BytesUploaded adds n to the cumulative PUT_CHUNK byte count.
func (r *Recorder) BytesUploaded(n int) {
	if r == nil || n <= 0 {
		return
	}
	r.bytesUploaded.Add(float64(n))
}

// BytesDownloaded adds n to the cumulative GET_CHUNK byte count.
func (r *Recorder) BytesDownloaded(n int) {
	if r == nil || n <= 0 {
		return
	}
	r.bytesDownloaded.Add(float64(n))
}

// CommandDuration reports how long command took to service, labeled with
// outcome ("ok" or "error").
func (r *Recorder) CommandDuration(command, outcome string, d time.Duration) {
	if r == nil {
		return
	}
	r.commandDuration.WithLabelValues(command, outcome).Observe(d.Seconds())
}
