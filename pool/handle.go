package pool

import (
	"context"

	"github.com/qail-lang/qail/pgconn"
)

// Handle wraps a checked-out connection so it is always returned (or
// discarded) exactly once. Rust's equivalent relies on Drop to return the
// connection automatically; Go has no destructor, so the idiomatic
// substitute is "acquire, defer release" via With, which wraps Acquire
// and a deferred Release.
type Handle struct {
	pool    *Pool
	conn    *pgconn.Conn
	broken  bool
	release func()
}

// Conn exposes the underlying connection for the duration of the handle.
func (h *Handle) Conn() *pgconn.Conn { return h.conn }

// MarkBroken records that this connection must not be reused; Release (or
// the deferred call from With) will discard it instead of returning it to
// the idle list.
func (h *Handle) MarkBroken() { h.broken = true }

// Release returns the connection to the pool, or discards it if
// MarkBroken was called. Calls after the first do nothing.
func (h *Handle) Release() {
	if h.release == nil {
		return
	}
	if h.broken {
		h.pool.Discard(h.conn)
	} else {
		h.pool.Put(h.conn)
	}
	h.release = nil
}

// Acquire checks out a connection and wraps it in a Handle. Callers
// should `defer h.Release()` immediately.
func (p *Pool) Acquire(ctx context.Context) (*Handle, error) {
	conn, err := p.Get(ctx)
	if err != nil {
		return nil, err
	}
	h := &Handle{pool: p, conn: conn}
	h.release = func() {}
	return h, nil
}

// With acquires a connection, runs fn, and always returns the connection
// to the pool afterward — discarding it instead if fn returns an error,
// on the assumption that an error may have left the connection in an
// unknown protocol state (spec §5: "On abandonment without cancel, the
// connection MUST be drained (or discarded) before reuse").
func (p *Pool) With(ctx context.Context, fn func(*pgconn.Conn) error) error {
	h, err := p.Acquire(ctx)
	if err != nil {
		return err
	}
	defer h.Release()

	if err := fn(h.conn); err != nil {
		h.MarkBroken()
		return err
	}
	return nil
}
