package transpile

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/qail-lang/qail"
)

// configDialect implements Dialect from a table of closures/flags, used
// for every non-authoritative dialect (spec §4.D: the eleven differ from
// Postgres in quoting, placeholders, boolean literals, string concat,
// LIMIT/OFFSET vs FETCH, JSON access, the fuzzy operator, and which of
// RETURNING, ON CONFLICT, TABLESAMPLE and QUALIFY they support — none of
// them need their own statement-assembly logic, since render.go is
// shared).
type configDialect struct {
	name         string
	quoteOpen    string
	quoteClose   string
	placeholder  func(n int) string
	boolTrue     string
	boolFalse    string
	concat       func(l, r string) string
	fuzzy        func(col, val string) string
	jsonAccess   func(base string, seg qail.JSONPathSegment) string
	limitOffset  func(limit, offset *int64, fetch *qail.FetchClause) string
	returning    bool
	onConflict   bool
	tableSample  bool
	qualify      bool
}

func (c configDialect) Name() string { return c.name }

func (c configDialect) QuoteIdentifier(name string) string {
	if name == "*" {
		return name
	}
	return c.quoteOpen + strings.ReplaceAll(name, c.quoteClose, c.quoteClose+c.quoteClose) + c.quoteClose
}

func (c configDialect) Placeholder(n int) string                        { return c.placeholder(n) }
func (c configDialect) BoolLiteral(b bool) string {
	if b {
		return c.boolTrue
	}
	return c.boolFalse
}
func (c configDialect) StringConcat(left, right string) string         { return c.concat(left, right) }
func (c configDialect) FuzzyExpr(col, val string) string               { return c.fuzzy(col, val) }
func (c configDialect) JSONAccess(base string, seg qail.JSONPathSegment) string {
	return c.jsonAccess(base, seg)
}
func (c configDialect) LimitOffset(limit, offset *int64, fetch *qail.FetchClause) string {
	return c.limitOffset(limit, offset, fetch)
}
func (c configDialect) SupportsReturning() bool   { return c.returning }
func (c configDialect) SupportsOnConflict() bool  { return c.onConflict }
func (c configDialect) SupportsTableSample() bool { return c.tableSample }
func (c configDialect) SupportsQualify() bool     { return c.qualify }

func simpleLimitOffset(limit, offset *int64, _ *qail.FetchClause) string {
	var parts []string
	if limit != nil {
		parts = append(parts, "LIMIT "+strconv.FormatInt(*limit, 10))
	}
	if offset != nil {
		parts = append(parts, "OFFSET "+strconv.FormatInt(*offset, 10))
	}
	return strings.Join(parts, " ")
}

// fetchLimitOffset renders the SQL-standard OFFSET...FETCH form used by
// SQL Server and Oracle 12c+ (spec §4.D step 10). FETCH requires an
// explicit OFFSET, which defaults to 0 when only a LIMIT was given.
func fetchLimitOffset(limit, offset *int64, fetch *qail.FetchClause) string {
	if limit == nil && offset == nil && fetch == nil {
		return ""
	}
	off := int64(0)
	if offset != nil {
		off = *offset
	}
	s := fmt.Sprintf("OFFSET %d ROWS", off)
	if limit != nil {
		s += fmt.Sprintf(" FETCH NEXT %d ROWS ONLY", *limit)
	} else if fetch != nil {
		tie := "ONLY"
		if fetch.WithTies {
			tie = "WITH TIES"
		}
		s += fmt.Sprintf(" FETCH NEXT %d ROWS %s", fetch.Count, tie)
	}
	return s
}

func questionPlaceholder(int) string { return "?" }

func jsonPathDollar(wrapper string) func(base string, seg qail.JSONPathSegment) string {
	return func(base string, seg qail.JSONPathSegment) string {
		return fmt.Sprintf("%s(%s, '$.%s')", wrapper, base, strings.Trim(seg.Key, "'\""))
	}
}

func init() {
	register(configDialect{
		name: "mysql", quoteOpen: "`", quoteClose: "`",
		placeholder: questionPlaceholder,
		boolTrue:    "1", boolFalse: "0",
		concat: func(l, r string) string { return fmt.Sprintf("CONCAT(%s, %s)", l, r) },
		fuzzy:  func(col, val string) string { return fmt.Sprintf("%s LIKE CONCAT('%%', %s, '%%')", col, val) },
		jsonAccess: func(base string, seg qail.JSONPathSegment) string {
			expr := fmt.Sprintf("JSON_EXTRACT(%s, '$.%s')", base, strings.Trim(seg.Key, "'\""))
			if seg.AsText {
				return "JSON_UNQUOTE(" + expr + ")"
			}
			return expr
		},
		limitOffset: simpleLimitOffset,
		onConflict:  false, // ON DUPLICATE KEY UPDATE has different syntax; not modeled
	})

	register(configDialect{
		name: "sqlite", quoteOpen: `"`, quoteClose: `"`,
		placeholder: questionPlaceholder,
		boolTrue:    "1", boolFalse: "0",
		concat: func(l, r string) string { return l + " || " + r },
		fuzzy:  func(col, val string) string { return fmt.Sprintf("%s LIKE '%%' || %s || '%%'", col, val) },
		jsonAccess: jsonPathDollar("json_extract"),
		limitOffset: simpleLimitOffset,
		returning:   true,
		onConflict:  true,
	})

	register(configDialect{
		name: "mssql", quoteOpen: "[", quoteClose: "]",
		placeholder: func(n int) string { return "@p" + strconv.Itoa(n) },
		boolTrue:    "1", boolFalse: "0",
		concat: func(l, r string) string { return l + " + " + r },
		fuzzy:  func(col, val string) string { return fmt.Sprintf("%s LIKE '%%' + %s + '%%'", col, val) },
		jsonAccess: func(base string, seg qail.JSONPathSegment) string {
			key := strings.Trim(seg.Key, "'\"")
			if seg.AsText {
				return fmt.Sprintf("JSON_VALUE(%s, '$.%s')", base, key)
			}
			return fmt.Sprintf("JSON_QUERY(%s, '$.%s')", base, key)
		},
		limitOffset: fetchLimitOffset,
		tableSample: true,
	})

	register(configDialect{
		name: "oracle", quoteOpen: `"`, quoteClose: `"`,
		placeholder: func(n int) string { return ":" + strconv.Itoa(n) },
		boolTrue:    "1", boolFalse: "0",
		concat: func(l, r string) string { return l + " || " + r },
		fuzzy:  func(col, val string) string { return fmt.Sprintf("%s LIKE '%%' || %s || '%%'", col, val) },
		jsonAccess: jsonPathDollar("JSON_VALUE"),
		limitOffset: fetchLimitOffset,
	})

	register(configDialect{
		name: "snowflake", quoteOpen: `"`, quoteClose: `"`,
		placeholder: questionPlaceholder,
		boolTrue:    "TRUE", boolFalse: "FALSE",
		concat: func(l, r string) string { return l + " || " + r },
		fuzzy:  func(col, val string) string { return fmt.Sprintf("%s ILIKE '%%' || %s || '%%'", col, val) },
		jsonAccess: func(base string, seg qail.JSONPathSegment) string {
			key := strings.Trim(seg.Key, "'\"")
			if seg.AsText {
				return fmt.Sprintf("%s:%s::string", base, key)
			}
			return fmt.Sprintf("%s:%s", base, key)
		},
		limitOffset: simpleLimitOffset,
		tableSample: true,
		qualify:     true,
	})

	register(configDialect{
		name: "bigquery", quoteOpen: "`", quoteClose: "`",
		placeholder: questionPlaceholder,
		boolTrue:    "TRUE", boolFalse: "FALSE",
		concat: func(l, r string) string { return fmt.Sprintf("CONCAT(%s, %s)", l, r) },
		fuzzy:  func(col, val string) string { return fmt.Sprintf("%s LIKE CONCAT('%%', %s, '%%')", col, val) },
		jsonAccess: func(base string, seg qail.JSONPathSegment) string {
			key := strings.Trim(seg.Key, "'\"")
			wrapper := "JSON_EXTRACT"
			if seg.AsText {
				wrapper = "JSON_EXTRACT_SCALAR"
			}
			return fmt.Sprintf("%s(%s, '$.%s')", wrapper, base, key)
		},
		limitOffset: simpleLimitOffset,
		tableSample: true,
		qualify:     true,
	})

	register(configDialect{
		name: "redshift", quoteOpen: `"`, quoteClose: `"`,
		placeholder: func(n int) string { return "$" + strconv.Itoa(n) },
		boolTrue:    "true", boolFalse: "false",
		concat: func(l, r string) string { return l + " || " + r },
		fuzzy:  func(col, val string) string { return fmt.Sprintf("%s ILIKE '%%' || %s || '%%'", col, val) },
		jsonAccess: func(base string, seg qail.JSONPathSegment) string {
			key := strings.Trim(seg.Key, "'\"")
			return fmt.Sprintf("JSON_EXTRACT_PATH_TEXT(%s, '%s')", base, key)
		},
		limitOffset: simpleLimitOffset,
	})

	register(configDialect{
		name: "clickhouse", quoteOpen: "`", quoteClose: "`",
		placeholder: questionPlaceholder,
		boolTrue:    "1", boolFalse: "0",
		concat: func(l, r string) string { return fmt.Sprintf("concat(%s, %s)", l, r) },
		fuzzy:  func(col, val string) string { return fmt.Sprintf("%s ILIKE concat('%%', %s, '%%')", col, val) },
		jsonAccess: func(base string, seg qail.JSONPathSegment) string {
			key := strings.Trim(seg.Key, "'\"")
			return fmt.Sprintf("JSONExtractString(%s, '%s')", base, key)
		},
		limitOffset: simpleLimitOffset,
	})

	register(configDialect{
		name: "cockroachdb", quoteOpen: `"`, quoteClose: `"`,
		placeholder: func(n int) string { return "$" + strconv.Itoa(n) },
		boolTrue:    "true", boolFalse: "false",
		concat: func(l, r string) string { return l + " || " + r },
		fuzzy:  func(col, val string) string { return fmt.Sprintf("%s ILIKE '%%' || %s || '%%'", col, val) },
		jsonAccess: func(base string, seg qail.JSONPathSegment) string {
			op := "->"
			if seg.AsText {
				op = "->>"
			}
			return base + op + seg.Key
		},
		limitOffset: simpleLimitOffset,
		returning:   true,
		onConflict:  true,
		tableSample: true,
	})

	register(configDialect{
		name: "duckdb", quoteOpen: `"`, quoteClose: `"`,
		placeholder: func(n int) string { return "$" + strconv.Itoa(n) },
		boolTrue:    "true", boolFalse: "false",
		concat: func(l, r string) string { return l + " || " + r },
		fuzzy:  func(col, val string) string { return fmt.Sprintf("%s ILIKE '%%' || %s || '%%'", col, val) },
		jsonAccess: func(base string, seg qail.JSONPathSegment) string {
			op := "->"
			if seg.AsText {
				op = "->>"
			}
			return base + op + seg.Key
		},
		limitOffset: simpleLimitOffset,
		returning:   true,
		onConflict:  true,
		tableSample: true,
		qualify:     true,
	})

	register(configDialect{
		name: "trino", quoteOpen: `"`, quoteClose: `"`,
		placeholder: questionPlaceholder,
		boolTrue:    "true", boolFalse: "false",
		concat: func(l, r string) string { return fmt.Sprintf("CONCAT(%s, %s)", l, r) },
		fuzzy: func(col, val string) string {
			return fmt.Sprintf("LOWER(%s) LIKE CONCAT('%%', LOWER(%s), '%%')", col, val)
		},
		jsonAccess: jsonPathDollar("json_extract_scalar"),
		limitOffset: simpleLimitOffset,
		tableSample: true,
	})
}
