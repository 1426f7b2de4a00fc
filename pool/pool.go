// Package pool implements a connection pool: a semaphore of size
// max_connections guarding a FIFO of idle connections, using a true
// semaphore (rather than an unbounded-wait buffered channel) so callers
// can be cancelled via context while waiting for a permit, and tracking
// the pool's own observability counters explicitly.
package pool

import (
	"container/list"
	"context"
	"sync"
	"sync/atomic"

	"github.com/qail-lang/qail/pgconn"
	"golang.org/x/sync/semaphore"
)

// Config configures a Pool. MaxConnections and MinIdle mirror spec §4.I's
// named defaults (10 and 0); ConnConfig is passed to pgconn.Connect for
// every new connection the pool establishes.
type Config struct {
	ConnConfig     pgconn.Config
	MaxConnections int
	MinIdle        int
	HealthCheck    bool // issue SELECT 1 on acquisition (spec §4.I)
}

func (c Config) withDefaults() Config {
	if c.MaxConnections <= 0 {
		c.MaxConnections = 10
	}
	return c
}

// Stats reports the observability counters spec §4.I names.
type Stats struct {
	Idle         int
	InUse        int
	MaxSize      int
	CreatedTotal int64
}

// Pool is a FIFO idle-connection pool guarded by a counting semaphore.
type Pool struct {
	cfg Config
	sem *semaphore.Weighted

	mu    sync.Mutex
	idle  *list.List // of *pgconn.Conn, front = least recently released
	inUse int

	createdTotal atomic.Int64
}

// New creates a pool. It does not eagerly establish any connections —
// MinIdle is enforced lazily, topped up by Warm.
func New(cfg Config) *Pool {
	cfg = cfg.withDefaults()
	return &Pool{
		cfg:  cfg,
		sem:  semaphore.NewWeighted(int64(cfg.MaxConnections)),
		idle: list.New(),
	}
}

// Warm establishes connections until MinIdle idle connections exist.
func (p *Pool) Warm(ctx context.Context) error {
	var held []*pgconn.Conn
	defer func() {
		for _, conn := range held {
			p.Put(conn)
		}
	}()
	for {
		p.mu.Lock()
		need := p.cfg.MinIdle - p.idle.Len() - len(held)
		p.mu.Unlock()
		if need <= 0 {
			return nil
		}
		conn, err := p.Get(ctx)
		if err != nil {
			return err
		}
		held = append(held, conn)
	}
}

// Get acquires a permit (blocking, FIFO, per spec §4.I step 1), then takes
// an idle connection if one exists or dials a new one (step 2). The
// returned connection must be passed back to Put (or Discard, on error)
// exactly once.
func (p *Pool) Get(ctx context.Context) (*pgconn.Conn, error) {
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}

	p.mu.Lock()
	el := p.idle.Front()
	if el != nil {
		p.idle.Remove(el)
	}
	p.mu.Unlock()

	if el != nil {
		conn := el.Value.(*pgconn.Conn)
		if !p.cfg.HealthCheck || conn.Healthy() {
			p.mu.Lock()
			p.inUse++
			p.mu.Unlock()
			return conn, nil
		}
		conn.Close()
	}

	conn, err := pgconn.Connect(ctx, p.cfg.ConnConfig)
	if err != nil {
		p.sem.Release(1)
		return nil, err
	}
	p.createdTotal.Add(1)

	p.mu.Lock()
	p.inUse++
	p.mu.Unlock()
	return conn, nil
}

// Put returns a healthy connection to the idle list and releases its
// permit (spec §4.I step 3: "returns ... to the pool on drop").
func (p *Pool) Put(conn *pgconn.Conn) {
	p.mu.Lock()
	p.inUse--
	p.idle.PushBack(conn)
	p.mu.Unlock()
	p.sem.Release(1)
}

// Discard closes conn instead of returning it to the idle list (used when
// the caller knows the connection is no longer usable — a failed
// operation, an unrecovered COPY state, an unhandled ErrorResponse
// outside the simple protocol's auto-recovery) and releases its permit.
func (p *Pool) Discard(conn *pgconn.Conn) {
	conn.Close()
	p.mu.Lock()
	p.inUse--
	p.mu.Unlock()
	p.sem.Release(1)
}

// Stats reports the pool's current counters.
func (p *Pool) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return Stats{
		Idle:         p.idle.Len(),
		InUse:        p.inUse,
		MaxSize:      p.cfg.MaxConnections,
		CreatedTotal: p.createdTotal.Load(),
	}
}

// Close closes every idle connection. Connections checked out via Get at
// the time are not closed by it: a later Put returns such a connection
// to the idle list, and only Discard closes it.
func (p *Pool) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for el := p.idle.Front(); el != nil; el = el.Next() {
		el.Value.(*pgconn.Conn).Close()
	}
	p.idle.Init()
}
