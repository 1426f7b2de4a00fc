package qail

import (
	"context"
	"fmt"
	"strings"

	"github.com/qail-lang/qail/pgconn"
	"github.com/qail-lang/qail/pool"
)

// TxState mirrors spec §3.6's connection transaction state (None |
// InTransaction | InTransactionErrored), scoped here to one checked-out
// Tx rather than the raw connection.
type TxState int

const (
	TxNone TxState = iota
	TxActive
	TxErrored
)

// Tx is one connection checked out of the pool and placed in a
// transaction. It holds the connection exclusively until Commit or
// Rollback returns it.
type Tx struct {
	handle *pool.Handle
	state  TxState
}

// Begin checks out a connection and issues BEGIN (spec §4.H transaction
// control).
func (d *Driver) Begin(ctx context.Context) (*Tx, error) {
	h, err := d.pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	if _, err := h.Conn().SimpleExec("BEGIN"); err != nil {
		h.MarkBroken()
		h.Release()
		return nil, translatePgError(err)
	}
	return &Tx{handle: h, state: TxActive}, nil
}

func (t *Tx) checkActive() error {
	if t.state == TxErrored {
		return ErrInTransactionErrored
	}
	return nil
}

// conn exposes the underlying connection for the duration of this
// transaction.
func (t *Tx) conn() *pgconn.Conn { return t.handle.Conn() }

// noteOutcome marks the transaction errored if the server's last
// ReadyForQuery reported a failed transaction block (PostgreSQL sets
// this after any statement error inside BEGIN...COMMIT; every subsequent
// statement other than ROLLBACK/ROLLBACK TO is rejected by the server
// until the block ends).
func (t *Tx) noteOutcome(err error) {
	if t.conn().TxStatus() == pgconn.TxInFailed {
		t.state = TxErrored
	}
	_ = err
}

// FetchAll runs cmd inside this transaction.
func (t *Tx) FetchAll(cmd *Command) ([]Row, error) {
	if err := t.checkActive(); err != nil {
		return nil, err
	}
	sql, params, err := renderForWire(cmd)
	if err != nil {
		return nil, err
	}
	rs, err := t.conn().Fetch(sql, params, nil, isDML(cmd.Action))
	t.noteOutcome(err)
	if err != nil {
		return nil, translatePgError(err)
	}
	rows := make([]Row, len(rs.Rows))
	for i, cols := range rs.Rows {
		rows[i] = Row{fields: rs.Fields, cols: cols}
	}
	return rows, nil
}

// FetchOne is FetchAll but returns ErrNoRows on an empty result.
func (t *Tx) FetchOne(cmd *Command) (Row, error) {
	rows, err := t.FetchAll(cmd)
	if err != nil {
		return Row{}, err
	}
	if len(rows) == 0 {
		return Row{}, ErrNoRows
	}
	return rows[0], nil
}

// Execute runs cmd inside this transaction and returns the affected
// row count.
func (t *Tx) Execute(cmd *Command) (int64, error) {
	if err := t.checkActive(); err != nil {
		return 0, err
	}
	sql, params, err := renderForWire(cmd)
	if err != nil {
		return 0, err
	}
	rs, err := t.conn().Fetch(sql, params, nil, isDML(cmd.Action))
	t.noteOutcome(err)
	if err != nil {
		return 0, translatePgError(err)
	}
	return rs.AffectedRows(), nil
}

// Commit issues COMMIT and returns the connection to the pool. Returns
// ErrInTransactionErrored without touching the connection if the
// transaction is already in a failed state — the caller must Rollback
// instead.
func (t *Tx) Commit() error {
	if t.state == TxErrored {
		return ErrInTransactionErrored
	}
	_, err := t.conn().SimpleExec("COMMIT")
	if err != nil {
		t.handle.MarkBroken()
	}
	t.handle.Release()
	return translatePgError(err)
}

// Rollback issues ROLLBACK and returns the connection to the pool.
// Always permitted, regardless of TxState (spec §3.6).
func (t *Tx) Rollback() error {
	_, err := t.conn().SimpleExec("ROLLBACK")
	if err != nil {
		t.handle.MarkBroken()
	}
	t.handle.Release()
	return translatePgError(err)
}

// Savepoint issues SAVEPOINT name.
func (t *Tx) Savepoint(name string) error {
	if err := t.checkActive(); err != nil {
		return err
	}
	_, err := t.conn().SimpleExec("SAVEPOINT " + quoteSavepoint(name))
	t.noteOutcome(err)
	return translatePgError(err)
}

// RollbackTo issues ROLLBACK TO SAVEPOINT name, which clears the errored
// transaction state (PostgreSQL allows ROLLBACK TO even in a failed
// transaction block, and it restores the block to a usable state).
func (t *Tx) RollbackTo(name string) error {
	_, err := t.conn().SimpleExec("ROLLBACK TO SAVEPOINT " + quoteSavepoint(name))
	if err != nil {
		t.handle.MarkBroken()
		return translatePgError(err)
	}
	t.state = TxActive
	return nil
}

// ReleaseSavepoint issues RELEASE SAVEPOINT name.
func (t *Tx) ReleaseSavepoint(name string) error {
	if err := t.checkActive(); err != nil {
		return err
	}
	_, err := t.conn().SimpleExec("RELEASE SAVEPOINT " + quoteSavepoint(name))
	t.noteOutcome(err)
	return translatePgError(err)
}

// SetStatementTimeout sets this transaction's connection-local statement
// timeout (spec §4.H set_statement_timeout).
func (t *Tx) SetStatementTimeout(ms int) error {
	_, err := t.conn().SimpleExec(fmt.Sprintf("SET statement_timeout = %d", ms))
	return translatePgError(err)
}

// ResetStatementTimeout restores the server default.
func (t *Tx) ResetStatementTimeout() error {
	_, err := t.conn().SimpleExec("RESET statement_timeout")
	return translatePgError(err)
}

// quoteSavepoint quotes a savepoint/identifier name for use in a
// simple-query transaction-control statement (these are never rendered
// through package transpile/wireenc, so they need their own minimal
// quoting here).
func quoteSavepoint(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
