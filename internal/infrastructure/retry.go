package infrastructure

import (
	"context"
	"log/slog"
	"time"
)

// Retrier runs remote reads with a fixed attempt count and linearly
// increasing backoff. After the last attempt the error is returned to the
// caller, which abandons the specific read, not the whole cycle.
type Retrier struct {
	Attempts int
	Backoff  time.Duration
	Logger   *slog.Logger
}

// NewRetrier creates a retrier with sane floors (1 attempt minimum).
func NewRetrier(attempts int, backoff time.Duration, logger *slog.Logger) Retrier {
	if attempts < 1 {
		attempts = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return Retrier{Attempts: attempts, Backoff: backoff, Logger: logger}
}

// Do invokes fn until it succeeds or attempts are exhausted. The delay
// before attempt n+1 is n times the base backoff.
func (r Retrier) Do(ctx context.Context, op string, fn func() error) error {
	var err error
	for attempt := 1; attempt <= r.Attempts; attempt++ {
		if err = fn(); err == nil {
			return nil
		}
		if attempt == r.Attempts {
			break
		}
		delay := time.Duration(attempt) * r.Backoff
		r.Logger.WarnContext(ctx, "remote read failed, retrying",
			slog.String("op", op),
			slog.Int("attempt", attempt),
			slog.Duration("delay", delay),
			slog.String("error", err.Error()))
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return err
}
