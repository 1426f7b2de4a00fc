package pgconn

import (
	"context"
	"time"

	"github.com/cloudflare/backoff"
)

const (
	maxBackoffDuration = 30 * time.Second
	backoffInterval    = 250 * time.Millisecond
)

// ConnectWithRetry calls Connect, retrying any failure with an
// exponential backoff (grounded in xataio-pgroll's pkg/db.RDB, which uses
// the same cloudflare/backoff for its own Postgres reconnection logic) up
// to maxAttempts times or until ctx is done. maxAttempts of 0 means "try
// once, no retry".
func ConnectWithRetry(ctx context.Context, cfg Config, maxAttempts int) (*Conn, error) {
	b := backoff.New(maxBackoffDuration, backoffInterval)

	var lastErr error
	for attempt := 0; attempt <= maxAttempts; attempt++ {
		conn, err := Connect(ctx, cfg)
		if err == nil {
			return conn, nil
		}
		lastErr = err
		if attempt == maxAttempts {
			break
		}
		if err := sleepCtx(ctx, b.Duration()); err != nil {
			return nil, err
		}
	}
	return nil, lastErr
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}
