package qail

import (
	"context"

	"github.com/qail-lang/qail/transpile"
)

// Stream is an open server-side cursor: a DECLARE'd statement backed by
// its own transaction, fed a batch at a time via FETCH FORWARD (spec
// §4.H stream_cmd). The caller must call Close exactly once, whether or
// not it drained the cursor, to release the transaction and connection.
type Stream struct {
	tx        *Tx
	cursor    string
	batch     int
	exhausted bool
}

// StreamCmd opens a cursor over cmd's result set. It begins an implicit
// transaction (cursors require one) and declares the cursor inline; the
// caller drives it with Next and must Close it when done.
func (d *Driver) StreamCmd(ctx context.Context, cmd *Command, batchSize int) (*Stream, error) {
	if batchSize <= 0 {
		batchSize = 1000
	}

	tx, err := d.Begin(ctx)
	if err != nil {
		return nil, err
	}

	dialect, _ := transpile.ByName("postgres")
	sql, err := transpile.Render(cmd, dialect)
	if err != nil {
		tx.Rollback()
		return nil, err
	}

	cursor, err := tx.conn().DeclareCursor(sql)
	if err != nil {
		tx.Rollback()
		return nil, translatePgError(err)
	}

	return &Stream{tx: tx, cursor: cursor, batch: batchSize}, nil
}

// Next fetches the next batch of rows. An empty, nil-error result means
// the cursor is exhausted; the caller should stop calling Next and call
// Close.
func (s *Stream) Next() ([]Row, error) {
	if s.exhausted {
		return nil, nil
	}
	rs, err := s.tx.conn().FetchCursor(s.cursor, s.batch)
	if err != nil {
		return nil, translatePgError(err)
	}
	rows := make([]Row, len(rs.Rows))
	for i, cols := range rs.Rows {
		rows[i] = Row{fields: rs.Fields, cols: cols}
	}
	if len(rows) < s.batch {
		s.exhausted = true
	}
	return rows, nil
}

// Close closes the cursor and ends the transaction that backs it,
// committing it (the cursor never mutates data, so commit and rollback
// are equivalent; commit is chosen to avoid surprising callers who
// layered writes into the same transaction through other means).
func (s *Stream) Close() error {
	if err := s.tx.conn().CloseCursor(s.cursor); err != nil {
		s.tx.Rollback()
		return translatePgError(err)
	}
	return s.tx.Commit()
}
