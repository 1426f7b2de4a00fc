// Package transpile renders a *qail.Command into a SQL string for one of
// twelve target dialects (spec §4.D). PostgreSQL is authoritative; the
// other dialects are expressed as small overrides of a shared emitter,
// the same way xataio-pgroll's sql2pgroll package centralizes statement
// assembly and only varies small rendering details per backend.
package transpile

import "github.com/qail-lang/qail"

// Dialect is the set of rendering decisions that differ between SQL
// backends (spec §4.D): identifier quoting, placeholder syntax, boolean
// literal rendering, string concatenation, fuzzy-match operator, JSON
// access syntax, and LIMIT/OFFSET vs FETCH rendering.
type Dialect interface {
	// Name identifies the dialect for diagnostics ("postgres", "mysql", ...).
	Name() string

	// QuoteIdentifier quotes a table/column/alias name.
	QuoteIdentifier(name string) string

	// Placeholder renders the nth (1-based) bind parameter.
	Placeholder(n int) string

	// BoolLiteral renders a boolean literal.
	BoolLiteral(b bool) string

	// StringConcat renders a binary string-concatenation expression whose
	// operand SQL text is already rendered.
	StringConcat(left, right string) string

	// FuzzyExpr renders `col OP value-expr` for Operator.OpFuzzy given the
	// already-rendered column and value SQL. Most dialects want
	// `col ILIKE '%' || val || '%'`-shaped text; MySQL and others prefer
	// `col LIKE CONCAT('%', val, '%')`.
	FuzzyExpr(col, val string) string

	// JSONAccess renders one `->`/`->>`-style path step given the
	// already-rendered base expression and the path segment.
	JSONAccess(base string, seg qail.JSONPathSegment) string

	// LimitOffset renders the LIMIT/OFFSET (or FETCH) tail given cages
	// already extracted by the caller; either may be absent (nil).
	LimitOffset(limit, offset *int64, fetch *qail.FetchClause) string

	// SupportsReturning reports whether the dialect can render RETURNING.
	SupportsReturning() bool

	// SupportsOnConflict reports whether the dialect can render
	// ON CONFLICT. For a dialect that reports false, Render omits the
	// conflict clause; no MERGE/REPLACE form is emitted in its place.
	SupportsOnConflict() bool

	// SupportsTableSample reports whether TABLESAMPLE is available.
	SupportsTableSample() bool

	// SupportsQualify reports whether the dialect supports a QUALIFY
	// clause natively (Snowflake, BigQuery, DuckDB); others must wrap the
	// query in a subquery and filter in an outer WHERE — Non-goal per
	// spec, QUALIFY is only emitted for dialects that support it.
	SupportsQualify() bool
}

// Registry maps a dialect name to its implementation.
var Registry = map[string]Dialect{}

func register(d Dialect) { Registry[d.Name()] = d }

// ByName looks up a dialect, returning (nil, false) if unknown.
func ByName(name string) (Dialect, bool) {
	d, ok := Registry[name]
	return d, ok
}
