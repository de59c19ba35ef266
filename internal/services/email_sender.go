package services

import (
	"context"
	"time"

	"github.com/sethvargo/go-retry"
	"go.uber.org/zap"

	"authgate/internal/metrics"
)

type Message struct {
	To      string
	Subject string
	Text    string
	HTML    string
}

type EmailSender interface {
	Send(ctx context.Context, msg Message) error
}

// RetryingSender retries failed deliveries with exponential backoff.
type RetryingSender struct {
	next       EmailSender
	maxRetries uint64
	base       time.Duration
}

func NewRetryingSender(next EmailSender, maxRetries int) *RetryingSender {
	if maxRetries < 0 {
		maxRetries = 0
	}
	return &RetryingSender{next: next, maxRetries: uint64(maxRetries), base: 200 * time.Millisecond}
}

func (s *RetryingSender) Send(ctx context.Context, msg Message) error {
	backoff := retry.WithMaxRetries(s.maxRetries, retry.NewExponential(s.base))

	attempt := 0
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		if err := s.next.Send(ctx, msg); err != nil {
			zap.L().Warn("Email delivery attempt failed",
				zap.String("to", msg.To),
				zap.Int("attempt", attempt),
				zap.Error(err),
			)
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		metrics.EmailSends.WithLabelValues("failed").Inc()
		return err
	}
	metrics.EmailSends.WithLabelValues("sent").Inc()
	return nil
}

// LogSender writes messages to the log instead of delivering them. Used when
// no SMTP host is configured.
type LogSender struct{}

func (LogSender) Send(_ context.Context, msg Message) error {
	zap.L().Info("Email not delivered, SMTP is not configured",
		zap.String("to", msg.To),
		zap.String("subject", msg.Subject),
		zap.String("text", msg.Text),
	)
	return nil
}
