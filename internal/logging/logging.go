package logging

import (
	"os"

	"github.com/sirupsen/logrus"
)

// Config is the subset of internal/config.Config this package reads,
// kept as its own small struct so logging doesn't import config and
// risk a dependency cycle with anything config eventually needs to log
// during its own Load.
type Config struct {
	Level  string
	Format string
}

// New builds the root logger a star process seeds every component
// from, parsing cfg.Level and selecting a text or JSON formatter per
// cfg.Format. An unrecognized level falls back to Info rather than
// failing start-up over a typo in a config file.
func New(cfg Config) *logrus.Entry {
	log := logrus.New()
	log.SetOutput(os.Stderr)

	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	log.SetLevel(level)

	if cfg.Format == "json" {
		log.SetFormatter(&logrus.JSONFormatter{})
	} else {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	return logrus.NewEntry(log)
}

// ForComponent scopes root with a "component" field, the convention
// every package in this module constructs its own logger under
// (star, locator, interchange, reply-tracker, and so on).
func ForComponent(root *logrus.Entry, name string) *logrus.Entry {
	return root.WithField("component", name)
}

// Discard returns a logger that writes nowhere, for tests that don't
// want log noise but still need a non-nil *logrus.Entry to satisfy a
// constructor.
func Discard() *logrus.Entry {
	log := logrus.New()
	log.SetOutput(discardWriter{})
	return logrus.NewEntry(log)
}

type discardWriter struct{}

func (discardWriter) Write(p []byte) (int, error) { return len(p), nil }
