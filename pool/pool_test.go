package pool

import (
	"context"
	"testing"
	"time"

	"github.com/qail-lang/qail/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigDefaultsMaxConnections(t *testing.T) {
	cfg := Config{}.withDefaults()
	assert.Equal(t, 10, cfg.MaxConnections)
}

// Get against an unreachable address returns a dial error and, critically,
// must not leak the semaphore permit it acquired — a second Get after a
// failed first one should still be attempted rather than hang (verified by
// a bounded context timeout rather than dialing a real server).
func TestGetReleasesPermitOnDialFailure(t *testing.T) {
	p := New(Config{
		ConnConfig:     pgconn.Config{Host: "127.0.0.1", Port: "1"}, // nothing listens on port 1
		MaxConnections: 1,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, err := p.Get(ctx)
	require.Error(t, err)

	ctx2, cancel2 := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel2()
	_, err = p.Get(ctx2)
	require.Error(t, err, "the permit from the first failed Get must have been released")
}

func TestStatsReportsMaxSize(t *testing.T) {
	p := New(Config{MaxConnections: 7})
	assert.Equal(t, 7, p.Stats().MaxSize)
	assert.Equal(t, 0, p.Stats().Idle)
	assert.Equal(t, 0, p.Stats().InUse)
}

func TestAcquireRespectsContextCancellation(t *testing.T) {
	p := New(Config{MaxConnections: 1})

	// Exhaust the single permit by acquiring it directly via the semaphore,
	// simulating one connection checked out and never returned.
	require.NoError(t, p.sem.Acquire(context.Background(), 1))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := p.Get(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
