// Package logging configures logrus from the application config.
package logging

import (
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

type Config struct {
	Level  string
	Format string // "text" or "json"
	Output string // "stdout", "stderr" or a file path
}

// Init configures the standard logger and returns it.
func Init(cfg Config) *logrus.Logger {
	return Configure(logrus.StandardLogger(), cfg)
}

// Configure applies cfg to l. Bad values are reported on l and replaced by
// info level, text format and stdout.
func Configure(l *logrus.Logger, cfg Config) *logrus.Logger {
	level, err := logrus.ParseLevel(strings.TrimSpace(cfg.Level))
	if err != nil {
		if cfg.Level != "" {
			l.Warnf("Invalid log level '%s', using 'info' instead. Error: %v", cfg.Level, err)
		}
		level = logrus.InfoLevel
	}
	l.SetLevel(level)

	switch strings.ToLower(strings.TrimSpace(cfg.Format)) {
	case "json":
		l.SetFormatter(&logrus.JSONFormatter{})
	default:
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	var output io.Writer
	switch out := strings.TrimSpace(cfg.Output); strings.ToLower(out) {
	case "", "stdout":
		output = os.Stdout
	case "stderr":
		output = os.Stderr
	default:
		file, err := os.OpenFile(out, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			l.Warnf("Failed to open log file '%s', using 'stdout' instead. Error: %v", out, err)
			output = os.Stdout
		} else {
			output = file
		}
	}
	l.SetOutput(output)
	return l
}
