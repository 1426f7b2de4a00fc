package qail

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/qail-lang/qail/pgconn"
	"github.com/qail-lang/qail/transpile"
)

// CopyBulk loads rows into cmd's table via COPY ... FROM STDIN (spec
// §4.H copy_bulk). cmd.Table names the target and cmd.Projections (set
// via Command.Columns) names the destination columns in row order.
func (d *Driver) CopyBulk(ctx context.Context, cmd *Command, rows [][]Value) (int64, error) {
	return d.CopyBulkBytes(ctx, cmd, encodeCopyRows(rows))
}

// CopyBulkBytes is copy_bulk_bytes: the caller has already produced
// COPY text-format payload bytes (e.g. read from a file) and wants them
// streamed in as-is, skipping row-by-row encoding.
func (d *Driver) CopyBulkBytes(ctx context.Context, cmd *Command, payload []byte) (int64, error) {
	sql, err := copyInStatement(cmd)
	if err != nil {
		return 0, err
	}

	var affected int64
	err = d.pool.With(ctx, func(conn *pgconn.Conn) error {
		if err := conn.BeginCopyIn(sql); err != nil {
			return translatePgError(err)
		}

		const chunkSize = 64 * 1024
		for off := 0; off < len(payload); off += chunkSize {
			end := off + chunkSize
			if end > len(payload) {
				end = len(payload)
			}
			if err := conn.WriteCopyData(payload[off:end]); err != nil {
				conn.AbortCopyIn(err.Error())
				return translatePgError(err)
			}
		}

		n, err := conn.EndCopyIn()
		if err != nil {
			return translatePgError(err)
		}
		affected = n
		return nil
	})
	return affected, err
}

// copyInStatement renders "COPY table (cols) FROM STDIN" for cmd,
// reusing package transpile's Postgres identifier quoting so table and
// column names are escaped identically to every other DDL/DML path.
func copyInStatement(cmd *Command) (string, error) {
	dialect, _ := transpile.ByName("postgres")

	var b strings.Builder
	b.WriteString("COPY ")
	b.WriteString(dialect.QuoteIdentifier(cmd.Table))

	if len(cmd.Projections) > 0 {
		b.WriteString(" (")
		for i, p := range cmd.Projections {
			if i > 0 {
				b.WriteString(", ")
			}
			if p.Kind != ExprNamed {
				return "", fmt.Errorf("qail: copy_bulk columns must be plain names, got %v", p.Kind)
			}
			b.WriteString(dialect.QuoteIdentifier(p.Name))
		}
		b.WriteString(")")
	}

	b.WriteString(" FROM STDIN")
	return b.String(), nil
}

// encodeCopyRows renders rows in PostgreSQL COPY text format: values
// tab-separated, rows newline-terminated, \N for NULL, backslash-
// escaping of backslash, tab, newline, and carriage return (spec §4.H).
func encodeCopyRows(rows [][]Value) []byte {
	var b strings.Builder
	for _, row := range rows {
		for i, v := range row {
			if i > 0 {
				b.WriteByte('\t')
			}
			b.WriteString(copyText(v))
		}
		b.WriteByte('\n')
	}
	return []byte(b.String())
}

// copyText renders one value in COPY's raw (unquoted) text format, then
// escapes it.
func copyText(v Value) string {
	switch v.Kind {
	case ValNull:
		return `\N`
	case ValBool:
		if v.Bool {
			return "t"
		}
		return "f"
	case ValInt:
		return strconv.FormatInt(v.Int, 10)
	case ValFloat:
		return strconv.FormatFloat(v.Float, 'g', -1, 64)
	case ValString:
		return escapeCopyText(v.Str)
	case ValUuid:
		return v.Uuid.String()
	case ValTimestamp:
		return v.Time.Format("2006-01-02 15:04:05.999999Z07:00")
	case ValBytes:
		return escapeCopyText(fmt.Sprintf("\\x%x", v.Bytes))
	default:
		return escapeCopyText(v.String())
	}
}

// escapeCopyText backslash-escapes the four bytes COPY text format
// treats specially.
func escapeCopyText(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch r {
		case '\\':
			b.WriteString(`\\`)
		case '\t':
			b.WriteString(`\t`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}
