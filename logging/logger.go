package logging

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// base is the single process-wide logger every component logs through.
var base = newBase()

func newBase() *logrus.Logger {
	l := logrus.New()
	l.SetLevel(logrus.DebugLevel)

	// logrus.Logger.Out is a single writer; it cannot route by level on
	// its own. Routing by level is the documented escape hatch: a hook
	// does the actual writing and Out is discarded so records are never
	// emitted twice.
	l.SetOutput(io.Discard)
	l.SetFormatter(&logrus.JSONFormatter{
		TimestampFormat: "2006-01-02T15:04:05.000Z07:00",
		FieldMap: logrus.FieldMap{
			logrus.FieldKeyTime: "ts",
			logrus.FieldKeyMsg:  "message",
			logrus.FieldKeyLevel: "level",
		},
	})
	l.AddHook(&levelRoutingHook{stdout: os.Stdout, stderr: os.Stderr})

	return l
}

// levelRoutingHook writes every formatted record to stdout, except
// error-and-above records which go to stderr, per the protocol's logging
// contract.
type levelRoutingHook struct {
	stdout io.Writer
	stderr io.Writer
}

func (h *levelRoutingHook) Levels() []logrus.Level {
	return logrus.AllLevels
}

func (h *levelRoutingHook) Fire(entry *logrus.Entry) error {
	line, err := entry.Logger.Formatter.Format(entry)
	if err != nil {
		return err
	}

	if entry.Level <= logrus.ErrorLevel {
		_, err = h.stderr.Write(line)
	} else {
		_, err = h.stdout.Write(line)
	}
	return err
}

// For returns a logger entry pre-tagged with the given component context
// (e.g. "session", "client", "storage", "crypto").
func For(context string) *logrus.Entry {
	return base.WithField("context", context)
}

// SetOutputs redirects stdout/stderr-level records to the given writers.
// Tests use this to capture log output instead of polluting the real
// process streams.
func SetOutputs(stdout, stderr io.Writer) {
	base.ReplaceHooks(make(logrus.LevelHooks))
	base.AddHook(&levelRoutingHook{stdout: stdout, stderr: stderr})
}
