package transpile

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/qail-lang/qail"
)

type postgresDialect struct{}

func init() { register(postgresDialect{}) }

func (postgresDialect) Name() string { return "postgres" }

func (postgresDialect) QuoteIdentifier(name string) string {
	if name == "*" {
		return name
	}
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func (postgresDialect) Placeholder(n int) string { return "$" + strconv.Itoa(n) }

func (postgresDialect) BoolLiteral(b bool) string {
	if b {
		return "true"
	}
	return "false"
}

func (postgresDialect) StringConcat(left, right string) string { return left + " || " + right }

func (postgresDialect) FuzzyExpr(col, val string) string {
	return fmt.Sprintf("%s ILIKE '%%' || %s || '%%'", col, val)
}

func (postgresDialect) JSONAccess(base string, seg qail.JSONPathSegment) string {
	op := "->"
	if seg.AsText {
		op = "->>"
	}
	return base + op + seg.Key
}

func (postgresDialect) LimitOffset(limit, offset *int64, fetch *qail.FetchClause) string {
	var parts []string
	if limit != nil {
		parts = append(parts, "LIMIT "+strconv.FormatInt(*limit, 10))
	}
	if offset != nil {
		parts = append(parts, "OFFSET "+strconv.FormatInt(*offset, 10))
	}
	return strings.Join(parts, " ")
}

func (postgresDialect) SupportsReturning() bool   { return true }
func (postgresDialect) SupportsOnConflict() bool  { return true }
func (postgresDialect) SupportsTableSample() bool { return true }
func (postgresDialect) SupportsQualify() bool     { return false }
