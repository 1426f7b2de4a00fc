package qail

import (
	"context"

	"github.com/qail-lang/qail/pgconn"
	"github.com/qail-lang/qail/wireenc"
)

// PipelineBatch encodes every command in cmds and sends them back-to-back
// with a single trailing Sync, the highest-throughput path (spec §4.H
// pipeline_batch). It returns the number of CommandComplete replies
// observed, i.e. the number of commands the server finished executing
// before any error.
func (d *Driver) PipelineBatch(ctx context.Context, cmds []*Command) (int, error) {
	sqls := make([]string, len(cmds))
	paramsBatch := make([][][]byte, len(cmds))
	for i, cmd := range cmds {
		sql, params, err := renderForWire(cmd)
		if err != nil {
			return 0, err
		}
		sqls[i] = sql
		paramsBatch[i] = params
	}

	var n int
	err := d.pool.With(ctx, func(conn *pgconn.Conn) error {
		var err error
		n, err = conn.PipelineBatch(sqls, paramsBatch)
		return translatePgError(err)
	})
	return n, err
}

// PipelinePreparedFast issues a single Parse for stmt followed by one
// Bind+Execute per entry in paramsBatch and a single trailing Sync,
// matching the server's parse-once-bind-many pipeline (spec §4.H
// pipeline_prepared_fast). stmt must be a DML command (Get/With/Set/
// Del/Add/Put) built with bind parameters (ValParam) rather than
// literals, since every entry in paramsBatch supplies the same
// placeholders with different values.
func (d *Driver) PipelinePreparedFast(ctx context.Context, stmt *Command, paramsBatch [][]Value) (int, error) {
	var enc wireenc.Encoder
	if err := enc.Encode(stmt); err != nil {
		return 0, err
	}
	sql := enc.SQL.String()
	encoded := encodeParamBatch(paramsBatch)

	var n int
	err := d.pool.With(ctx, func(conn *pgconn.Conn) error {
		var err error
		n, err = conn.PipelinePreparedFast(sql, encoded)
		return translatePgError(err)
	})
	return n, err
}

// encodeParamBatch renders each row of bind-parameter values into the
// text-format byte slices the wire protocol expects, using the same
// unquoted text rendering as COPY (Bind's text format has no SQL
// quoting, just like COPY's), a nil slice standing in for SQL NULL.
func encodeParamBatch(paramsBatch [][]Value) [][][]byte {
	encoded := make([][][]byte, len(paramsBatch))
	for i, row := range paramsBatch {
		cols := make([][]byte, len(row))
		for j, v := range row {
			if v.Kind == ValNull {
				cols[j] = nil
				continue
			}
			cols[j] = []byte(copyText(v))
		}
		encoded[i] = cols
	}
	return encoded
}
