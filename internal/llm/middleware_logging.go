package llm

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

// WithLogging logs request size, latency and errors. A nil logger uses the
// logrus standard logger.
func WithLogging(logger logrus.FieldLogger) Middleware {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return func(next TextClient) TextClient {
		return &logging{next: next, log: logger}
	}
}

type logging struct {
	next TextClient
	log  logrus.FieldLogger
}

func (l *logging) Name() string { return l.next.Name() }
func (l *logging) Close() error { return l.next.Close() }

func (l *logging) GenerateText(ctx context.Context, prompt string) (string, error) {
	start := time.Now()
	entry := l.log.WithFields(logrus.Fields{"model": l.next.Name(), "bytes": len(prompt)})
	entry.Debug("llm request")
	out, err := l.next.GenerateText(ctx, prompt)
	entry = entry.WithField("elapsed", time.Since(start).Round(time.Millisecond))
	if err != nil {
		entry.WithError(err).Warn("llm error")
		return out, err
	}
	entry.WithField("response_bytes", len(out)).Debug("llm response")
	return out, nil
}
