// Package wireenc is the Postgres-only performance path (spec §4.E): it
// renders a *qail.Command into SQL text and a parallel parameter byte
// vector held in an Encoder's reusable buffers, ready to be wrapped into
// Parse/Bind/Execute/Sync frames by package pgconn.
//
// This is deliberately a second, narrower renderer than package
// transpile's general multi-dialect Render: transpile covers any of
// twelve dialects, wireenc covers Postgres only and hoists literals into
// bind parameters. Encoding scans the command once for explicit $n
// indices and then renders it; rendering builds intermediate strings and
// a per-command scope map, so each Encode call allocates beyond the
// growth of the Encoder's own buffers.
package wireenc

import (
	"strconv"
	"strings"

	"github.com/qail-lang/qail"
)

// smallInts is the pre-interned 0-99 literal table (spec §4.E: "numeric
// literals 0-99 use a pre-interned byte table to avoid formatting").
var smallInts [100]string

func init() {
	for i := range smallInts {
		smallInts[i] = strconv.Itoa(i)
	}
}

func formatInt(n int64) string {
	if n >= 0 && n < int64(len(smallInts)) {
		return smallInts[n]
	}
	return strconv.FormatInt(n, 10)
}

// Encoder owns the two reusable output buffers for one encoding pass.
// Callers should keep an Encoder alive across many Encode calls (e.g.
// one per pooled connection) to amortize allocation.
type Encoder struct {
	SQL    strings.Builder
	Params [][]byte // nil element = SQL NULL

	scope     scope
	nextParam int
}

// Reset clears both buffers for reuse without releasing their backing
// arrays (spec §4.E: "reuses caller-owned buffers, clears on entry").
func (e *Encoder) Reset() {
	e.SQL.Reset()
	e.Params = e.Params[:0]
}

type scope struct {
	main  string
	known map[string]string
}

func newScope(cmd *qail.Command) scope {
	main := mainTableName(cmd.Table)
	s := scope{main: main, known: map[string]string{main: main}}
	for _, j := range cmd.Joins {
		jt := mainTableName(j.Table)
		alias := j.Alias
		if alias == "" {
			alias = jt
		}
		s.known[alias] = jt
	}
	return s
}

func mainTableName(table string) string {
	if i := strings.IndexByte(table, ' '); i >= 0 {
		return table[:i]
	}
	return table
}

// Encode renders cmd as Postgres SQL text into e.SQL. Every inline literal
// value the command carries (bools, numbers, strings, UUIDs, timestamps,
// intervals, bytes, vectors, arrays) is hoisted into its own bind
// parameter rather than quoted into the SQL text, and its PostgreSQL
// text-format bytes are appended to e.Params — this is what makes the
// emitted SQL safe to cache and reuse as a prepared statement regardless
// of what values a caller passes through the AST. An already-explicit
// ValParam (from `$1`-style source text) keeps its own index and is left
// for the caller to bind; string values are validated against embedded
// NUL bytes before anything is written (spec §4.E, qail.ErrNullByte).
// Encode clears both buffers on entry, as Reset does.
func (e *Encoder) Encode(cmd *qail.Command) error {
	e.Reset()
	if err := cmd.Validate(); err != nil {
		return qail.NewEncodeError(qail.EncodeErrUnknown, err.Error())
	}
	return e.encodeCommand(cmd)
}

// bindParam records the encoded text-format bytes for bind parameter n
// (1-based), growing e.Params as needed. The caller (package pgconn) uses
// e.Params directly as the Bind message's parameter value list.
func (e *Encoder) bindParam(n int, data []byte) {
	for len(e.Params) < n {
		e.Params = append(e.Params, nil)
	}
	e.Params[n-1] = data
}
