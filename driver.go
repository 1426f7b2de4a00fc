package qail

import (
	"context"
	"strconv"
	"time"

	"github.com/qail-lang/qail/pgconn"
	"github.com/qail-lang/qail/pool"
	"github.com/qail-lang/qail/protocol"
	"github.com/qail-lang/qail/transpile"
	"github.com/qail-lang/qail/wireenc"
)

// Config configures a Driver end to end: connection parameters plus pool
// sizing.
type Config struct {
	Host     string
	Port     string
	User     string
	Database string
	Password string
	SSLMode  string // "disable", "prefer", "require", "verify-full"

	ApplicationName  string
	ConnectTimeout   time.Duration
	StatementTimeout time.Duration

	MaxConnections int
	MinIdle        int
	HealthCheck    bool
}

func (c Config) poolConfig() pool.Config {
	return pool.Config{
		ConnConfig: pgconn.Config{
			Host: c.Host, Port: c.Port, User: c.User, Database: c.Database,
			Password: c.Password, SSLMode: c.SSLMode,
			ApplicationName:  c.ApplicationName,
			ConnectTimeout:   c.ConnectTimeout,
			StatementTimeout: c.StatementTimeout,
		},
		MaxConnections: c.MaxConnections,
		MinIdle:        c.MinIdle,
		HealthCheck:    c.HealthCheck,
	}
}

// Driver is the top-level entry point: a connection pool plus the
// AST-to-wire glue (wireenc for DML, transpile for DDL) that every public
// operation in this file and in facade.go/transaction.go/stream.go/
// copyop.go/pipeline.go shares.
type Driver struct {
	pool *pool.Pool
}

// Connect builds a pool for cfg. When cfg.MinIdle > 0 it warms the pool
// to MinIdle connections before returning; otherwise no connection is
// dialed until the first Get, matching pool.New's lazy posture.
func Connect(ctx context.Context, cfg Config) (*Driver, error) {
	p := pool.New(cfg.poolConfig())
	if cfg.MinIdle > 0 {
		if err := p.Warm(ctx); err != nil {
			return nil, err
		}
	}
	return &Driver{pool: p}, nil
}

// Close closes every idle connection in the pool.
func (d *Driver) Close() { d.pool.Close() }

// Stats exposes the pool's observability counters (spec §4.I).
func (d *Driver) Stats() pool.Stats { return d.pool.Stats() }

// isDML reports whether action is one of the five parameterized actions
// package wireenc knows how to encode; everything else (DDL, index ops,
// export) goes through package transpile instead.
func isDML(a Action) bool {
	switch a {
	case ActionGet, ActionWith, ActionSet, ActionDel, ActionAdd, ActionPut:
		return true
	default:
		return false
	}
}

// renderForWire produces SQL text and parameter bytes for cmd, choosing
// wireenc's literal-hoisting Postgres path for DML and package
// transpile's inlining Postgres renderer for everything else (DDL has no
// bind parameters to hoist in the first place).
func renderForWire(cmd *Command) (sql string, params [][]byte, err error) {
	if isDML(cmd.Action) {
		var enc wireenc.Encoder
		if err := enc.Encode(cmd); err != nil {
			return "", nil, err
		}
		return enc.SQL.String(), enc.Params, nil
	}

	dialect, _ := transpile.ByName("postgres")
	sql, err = transpile.Render(cmd, dialect)
	if err != nil {
		return "", nil, err
	}
	return sql, nil, nil
}

// translatePgError converts a *pgconn.QueryError into the root package's
// *QueryError (pgconn cannot import this package back, so it carries an
// equivalent, unexported-from-qail's-perspective error shape that this
// function bridges at the one boundary that needs it).
func translatePgError(err error) error {
	if err == nil {
		return nil
	}
	if qe, ok := err.(*pgconn.QueryError); ok {
		return &QueryError{Message: qe.Message, Severity: qe.Severity, SQLState: qe.SQLState}
	}
	return err
}

// Row is one decoded result row: raw text-format column bytes plus the
// field metadata needed to parse them, covering every type oid the
// wire protocol can describe rather than just GetString/GetInt.
type Row struct {
	fields []protocol.FieldDescription
	cols   [][]byte
}

// NumColumns returns the number of columns this row carries.
func (r Row) NumColumns() int { return len(r.fields) }

// ColumnName returns the name of the column at idx.
func (r Row) ColumnName(idx int) string {
	if idx < 0 || idx >= len(r.fields) {
		return ""
	}
	return r.fields[idx].Name
}

// Get returns the raw text-format bytes of column idx, or nil if the
// value is SQL NULL or idx is out of range.
func (r Row) Get(idx int) []byte {
	if idx < 0 || idx >= len(r.cols) {
		return nil
	}
	return r.cols[idx]
}

// IsNull reports whether column idx is SQL NULL.
func (r Row) IsNull(idx int) bool { return r.Get(idx) == nil }

// GetString returns column idx as a string ("" for NULL).
func (r Row) GetString(idx int) string { return string(r.Get(idx)) }

// GetInt parses column idx as a base-10 integer (0 for NULL or a
// non-numeric value).
func (r Row) GetInt(idx int) int64 {
	b := r.Get(idx)
	if b == nil {
		return 0
	}
	neg := false
	var n int64
	for i, c := range b {
		if i == 0 && c == '-' {
			neg = true
			continue
		}
		if c < '0' || c > '9' {
			break
		}
		n = n*10 + int64(c-'0')
	}
	if neg {
		n = -n
	}
	return n
}

// GetFloat parses column idx as a float64 (0 for NULL or unparsable text).
func (r Row) GetFloat(idx int) float64 {
	b := r.Get(idx)
	if b == nil {
		return 0
	}
	f, _ := strconv.ParseFloat(string(b), 64)
	return f
}

// GetBool parses column idx as a boolean ("t"/"true"/"1" are true).
func (r Row) GetBool(idx int) bool {
	switch r.GetString(idx) {
	case "t", "true", "1":
		return true
	default:
		return false
	}
}

// ByName returns the index of the column named name, or -1.
func (r Row) ByName(name string) int {
	for i, f := range r.fields {
		if f.Name == name {
			return i
		}
	}
	return -1
}
