package qail

import (
	"context"
	"strconv"
	"strings"

	"github.com/qail-lang/qail/pgconn"
)

// affectedFromTagText extracts the numeric tail of a command tag
// ("UPDATE 3" -> 3), duplicated from pgconn's own unexported
// affectedFromTag since ExecuteRaw only has the tag text, not a full
// pgconn.ResultSet, to call AffectedRows on.
func affectedFromTagText(tag string) int64 {
	fields := strings.Fields(tag)
	if len(fields) == 0 {
		return 0
	}
	n, err := strconv.ParseInt(fields[len(fields)-1], 10, 64)
	if err != nil {
		return 0
	}
	return n
}

// FetchAll executes cmd and returns every row (spec §4.H fetch_all:
// "cached by default"). DML commands go through wireenc's literal-
// hoisting Postgres encoder and are cached by the connection's prepared
// statement LRU; DDL commands go through package transpile uncached
// (there is nothing to cache — DDL never repeats with different
// parameters).
func (d *Driver) FetchAll(ctx context.Context, cmd *Command) ([]Row, error) {
	sql, params, err := renderForWire(cmd)
	if err != nil {
		return nil, err
	}

	var rows []Row
	err = d.pool.With(ctx, func(conn *pgconn.Conn) error {
		rs, ferr := conn.Fetch(sql, params, nil, isDML(cmd.Action))
		if ferr != nil {
			return translatePgError(ferr)
		}
		rows = make([]Row, len(rs.Rows))
		for i, cols := range rs.Rows {
			rows[i] = Row{fields: rs.Fields, cols: cols}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// FetchOne is FetchAll but returns ErrNoRows when the result set is empty
// (spec §4.H fetch_one).
func (d *Driver) FetchOne(ctx context.Context, cmd *Command) (Row, error) {
	rows, err := d.FetchAll(ctx, cmd)
	if err != nil {
		return Row{}, err
	}
	if len(rows) == 0 {
		return Row{}, ErrNoRows
	}
	return rows[0], nil
}

// Execute runs cmd and returns the number of affected rows, extracted
// from the command tag (spec §4.H execute).
func (d *Driver) Execute(ctx context.Context, cmd *Command) (int64, error) {
	sql, params, err := renderForWire(cmd)
	if err != nil {
		return 0, err
	}

	var affected int64
	err = d.pool.With(ctx, func(conn *pgconn.Conn) error {
		rs, ferr := conn.Fetch(sql, params, nil, isDML(cmd.Action))
		if ferr != nil {
			return translatePgError(ferr)
		}
		affected = rs.AffectedRows()
		return nil
	})
	return affected, err
}

// ExecuteBatch runs every command in cmds inside one transaction: begin,
// execute each in order, commit; the first failure triggers a rollback
// and the error (with the already-collected affected counts) propagates
// (spec §4.H execute_batch).
func (d *Driver) ExecuteBatch(ctx context.Context, cmds []*Command) ([]int64, error) {
	affected := make([]int64, 0, len(cmds))

	err := d.pool.With(ctx, func(conn *pgconn.Conn) error {
		if _, err := conn.SimpleExec("BEGIN"); err != nil {
			return translatePgError(err)
		}

		for _, cmd := range cmds {
			sql, params, err := renderForWire(cmd)
			if err != nil {
				conn.SimpleExec("ROLLBACK")
				return err
			}
			rs, err := conn.Fetch(sql, params, nil, isDML(cmd.Action))
			if err != nil {
				conn.SimpleExec("ROLLBACK")
				return translatePgError(err)
			}
			affected = append(affected, rs.AffectedRows())
		}

		if _, err := conn.SimpleExec("COMMIT"); err != nil {
			return translatePgError(err)
		}
		return nil
	})
	if err != nil {
		return affected, err
	}
	return affected, nil
}

// ExecuteRaw runs sql directly through the simple query protocol,
// bypassing the AST entirely. Documented as discouraged (spec §4.H
// execute_raw): it exists for operations the AST cannot express. The
// migration runner does not use it: its bootstrap DDL is an AST command
// run through Execute and rendered by package transpile.
func (d *Driver) ExecuteRaw(ctx context.Context, sql string) (int64, error) {
	var affected int64
	err := d.pool.With(ctx, func(conn *pgconn.Conn) error {
		tag, err := conn.SimpleExec(sql)
		if err != nil {
			return translatePgError(err)
		}
		affected = affectedFromTagText(tag)
		return nil
	})
	return affected, err
}
