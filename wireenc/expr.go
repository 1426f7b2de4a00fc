package wireenc

import (
	"fmt"
	"strings"

	"github.com/qail-lang/qail"
)

func quoteIdent(name string) string {
	if name == "*" {
		return name
	}
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func quoteTableRef(table string) string {
	parts := strings.Fields(table)
	if len(parts) == 2 {
		return quoteIdent(parts[0]) + " " + quoteIdent(parts[1])
	}
	return quoteIdent(table)
}

func (e *Encoder) renderExprList(exprs []qail.Expr) ([]string, error) {
	out := make([]string, len(exprs))
	for i, ex := range exprs {
		s, err := e.renderExpr(ex)
		if err != nil {
			return nil, err
		}
		out[i] = s
	}
	return out, nil
}

// renderFilterCages AND-joins every Filter cage (spec §4.D step 5).
func (e *Encoder) renderFilterCages(cages []qail.Cage) (string, error) {
	var parts []string
	for _, cage := range cages {
		if cage.Kind != qail.CageFilter || len(cage.Conditions) == 0 {
			continue
		}
		s, err := e.renderConditionsWithOp(cage.Conditions, cage.LogicalOp)
		if err != nil {
			return "", err
		}
		parts = append(parts, s)
	}
	return strings.Join(parts, " AND "), nil
}

// renderConditionsWithOp joins conds by op; an OR group of >=2 conditions
// is parenthesized to preserve precedence against the outer AND join.
func (e *Encoder) renderConditionsWithOp(conds []qail.Condition, op qail.LogicalOp) (string, error) {
	sep := " AND "
	if op == qail.LogicalOr {
		sep = " OR "
	}
	parts := make([]string, len(conds))
	for i, c := range conds {
		s, err := e.renderCondition(c)
		if err != nil {
			return "", err
		}
		parts[i] = s
	}
	joined := strings.Join(parts, sep)
	if op == qail.LogicalOr && len(conds) >= 2 {
		return "(" + joined + ")", nil
	}
	return joined, nil
}

func (e *Encoder) renderCondition(c qail.Condition) (string, error) {
	left, err := e.renderExpr(c.Left)
	if err != nil {
		return "", err
	}
	if c.IsArrayUnnest {
		val, err := e.renderValue(c.Value)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("EXISTS (SELECT 1 FROM unnest(%s) _el WHERE _el %s %s)", left, c.Op.SQLSymbol(), val), nil
	}
	switch c.Op {
	case qail.OpIsNull:
		return left + " IS NULL", nil
	case qail.OpIsNotNull:
		return left + " IS NOT NULL", nil
	case qail.OpIn, qail.OpNotIn:
		kw := "IN"
		if c.Op == qail.OpNotIn {
			kw = "NOT IN"
		}
		vals := make([]string, len(c.Value.Array))
		for i, v := range c.Value.Array {
			s, err := e.renderValue(v)
			if err != nil {
				return "", err
			}
			vals[i] = s
		}
		return fmt.Sprintf("%s %s (%s)", left, kw, strings.Join(vals, ", ")), nil
	case qail.OpBetween, qail.OpNotBetween:
		kw := "BETWEEN"
		if c.Op == qail.OpNotBetween {
			kw = "NOT BETWEEN"
		}
		lo, err := e.renderValue(c.Value.Array[0])
		if err != nil {
			return "", err
		}
		hi, err := e.renderValue(c.Value.Array[1])
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%s %s %s AND %s", left, kw, lo, hi), nil
	case qail.OpFuzzy:
		val, err := e.renderValue(c.Value)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%s ILIKE '%%' || %s || '%%'", left, val), nil
	case qail.OpContains:
		val, err := e.renderValue(c.Value)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%s @> %s", left, val), nil
	case qail.OpKeyExists:
		val, err := e.renderValue(c.Value)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%s ? %s", left, val), nil
	case qail.OpExists:
		val, err := e.renderValue(c.Value)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("EXISTS (%s)", val), nil
	case qail.OpNotExists:
		val, err := e.renderValue(c.Value)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("NOT EXISTS (%s)", val), nil
	default:
		val, err := e.renderValue(c.Value)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%s %s %s", left, c.Op.SQLSymbol(), val), nil
	}
}

func (e *Encoder) renderExpr(ex qail.Expr) (string, error) {
	switch ex.Kind {
	case qail.ExprNamed:
		return e.renderNamed(ex.Name), nil
	case qail.ExprStar:
		return "*", nil
	case qail.ExprAliased:
		inner, err := e.renderExpr(*ex.Inner)
		if err != nil {
			return "", err
		}
		return inner + " AS " + quoteIdent(ex.Alias), nil
	case qail.ExprLiteral:
		return e.renderValue(*ex.Literal)
	case qail.ExprBinary:
		left, err := e.renderExpr(*ex.Left)
		if err != nil {
			return "", err
		}
		right, err := e.renderExpr(*ex.Right)
		if err != nil {
			return "", err
		}
		if ex.Op == "||" {
			return left + " || " + right, nil
		}
		s := fmt.Sprintf("(%s %s %s)", left, ex.Op, right)
		if ex.Alias != "" {
			s += " AS " + quoteIdent(ex.Alias)
		}
		return s, nil
	case qail.ExprFunctionCall, qail.ExprSpecialFunction:
		args, err := e.renderExprList(ex.Args)
		if err != nil {
			return "", err
		}
		s := fmt.Sprintf("%s(%s)", ex.FuncName, strings.Join(args, ", "))
		if ex.Alias != "" {
			s += " AS " + quoteIdent(ex.Alias)
		}
		return s, nil
	case qail.ExprAggregate:
		distinct := ""
		if ex.AggDistinct {
			distinct = "DISTINCT "
		}
		s := fmt.Sprintf("%s(%s%s)", ex.AggFunc.String(), distinct, e.renderNamed(ex.AggCol))
		if ex.AggFilter != nil {
			cond, err := e.renderCondition(*ex.AggFilter)
			if err != nil {
				return "", err
			}
			s += " FILTER (WHERE " + cond + ")"
		}
		if ex.Alias != "" {
			s += " AS " + quoteIdent(ex.Alias)
		}
		return s, nil
	case qail.ExprWindow:
		args, err := e.renderExprList(ex.WinArgs)
		if err != nil {
			return "", err
		}
		s := fmt.Sprintf("%s(%s) OVER (", ex.WinFunc, strings.Join(args, ", "))
		if len(ex.WinPartition) > 0 {
			parts, err := e.renderExprList(ex.WinPartition)
			if err != nil {
				return "", err
			}
			s += "PARTITION BY " + strings.Join(parts, ", ") + " "
		}
		if len(ex.WinOrder) > 0 {
			parts := make([]string, len(ex.WinOrder))
			for i, sk := range ex.WinOrder {
				dir := "ASC"
				if sk.Order == qail.SortDesc {
					dir = "DESC"
				}
				ks, err := e.renderExpr(sk.Expr)
				if err != nil {
					return "", err
				}
				parts[i] = ks + " " + dir
			}
			s += "ORDER BY " + strings.Join(parts, ", ") + " "
		}
		if ex.WinFrame != nil && ex.WinFrame.Mode != "" {
			s += fmt.Sprintf("%s BETWEEN %s AND %s ", ex.WinFrame.Mode, ex.WinFrame.StartBound, ex.WinFrame.EndBound)
		}
		s = strings.TrimRight(s, " ") + ")"
		if ex.Alias != "" {
			s += " AS " + quoteIdent(ex.Alias)
		}
		return s, nil
	case qail.ExprCase:
		var b strings.Builder
		b.WriteString("CASE")
		for _, w := range ex.Whens {
			cond, err := e.renderCondition(w.Cond)
			if err != nil {
				return "", err
			}
			res, err := e.renderExpr(w.Result)
			if err != nil {
				return "", err
			}
			fmt.Fprintf(&b, " WHEN %s THEN %s", cond, res)
		}
		if ex.Else != nil {
			els, err := e.renderExpr(*ex.Else)
			if err != nil {
				return "", err
			}
			fmt.Fprintf(&b, " ELSE %s", els)
		}
		b.WriteString(" END")
		if ex.Alias != "" {
			b.WriteString(" AS " + quoteIdent(ex.Alias))
		}
		return b.String(), nil
	case qail.ExprCast:
		inner, err := e.renderExpr(*ex.Inner)
		if err != nil {
			return "", err
		}
		s := fmt.Sprintf("CAST(%s AS %s)", inner, ex.CastType)
		if ex.Alias != "" {
			s += " AS " + quoteIdent(ex.Alias)
		}
		return s, nil
	case qail.ExprJsonAccess:
		base := e.renderNamed(ex.Column)
		for _, seg := range ex.PathSegments {
			op := "->"
			if seg.AsText {
				op = "->>"
			}
			base = base + op + seg.Key
		}
		if ex.Alias != "" {
			base += " AS " + quoteIdent(ex.Alias)
		}
		return base, nil
	case qail.ExprArrayConstructor:
		parts, err := e.renderExprList(ex.Elements)
		if err != nil {
			return "", err
		}
		return "ARRAY[" + strings.Join(parts, ", ") + "]", nil
	case qail.ExprRowConstructor:
		parts, err := e.renderExprList(ex.Elements)
		if err != nil {
			return "", err
		}
		return "ROW(" + strings.Join(parts, ", ") + ")", nil
	case qail.ExprSubscript:
		inner, err := e.renderExpr(*ex.Inner)
		if err != nil {
			return "", err
		}
		idx, err := e.renderExpr(*ex.Index)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%s[%s]", inner, idx), nil
	case qail.ExprFieldAccess:
		inner, err := e.renderExpr(*ex.Inner)
		if err != nil {
			return "", err
		}
		return inner + "." + ex.Name, nil
	case qail.ExprCollate:
		inner, err := e.renderExpr(*ex.Inner)
		if err != nil {
			return "", err
		}
		return inner + " COLLATE " + quoteIdent(ex.Collation), nil
	}
	return "", nil
}

// renderNamed applies the same raw-SQL-escape and qualified-column-vs-
// JSON-path rule as package transpile's renderNamed (spec §4.E); the two
// are independent renderers over the same AST by design (general
// multi-dialect text vs Postgres-only parameterized bytes), so this is
// kept in sync with transpile/render.go by hand.
func (e *Encoder) renderNamed(name string) string {
	if strings.HasPrefix(name, "{") && strings.HasSuffix(name, "}") {
		return name[1 : len(name)-1]
	}
	idx := strings.IndexByte(name, '.')
	if idx < 0 {
		return quoteIdent(name)
	}
	head, rest := name[:idx], name[idx+1:]
	if _, known := e.scope.known[head]; known {
		return quoteIdent(head) + "." + quoteIdent(rest)
	}
	base := quoteIdent(head)
	segs := strings.Split(rest, ".")
	for i, seg := range segs {
		op := "->"
		if i == len(segs)-1 {
			op = "->>"
		}
		base = base + op + "'" + seg + "'"
	}
	return base
}

// renderValue renders a Value as either an inline SQL fragment (NULL,
// column refs, function calls, subqueries, nested expressions) or a bind
// parameter placeholder. Every scalar literal is hoisted into its own
// parameter via hoistParam; ValParam keeps the caller's own numbering.
func (e *Encoder) renderValue(v qail.Value) (string, error) {
	switch v.Kind {
	case qail.ValNull:
		return "NULL", nil
	case qail.ValParam:
		for len(e.Params) < v.ParamIdx {
			e.Params = append(e.Params, nil)
		}
		return "$" + formatInt(int64(v.ParamIdx)), nil
	case qail.ValNamedParam:
		return "", qail.NewEncodeError(qail.EncodeErrUnknown, "wireenc: named parameters must be resolved to positional form before encoding")
	case qail.ValSubquery:
		sub, err := e.renderCommand(v.Subquery)
		if err != nil {
			return "", err
		}
		return "(" + sub + ")", nil
	case qail.ValColumn:
		return quoteIdent(v.Str), nil
	case qail.ValFunction:
		return v.Str, nil
	case qail.ValExpr:
		return e.renderExpr(v.Expr)
	default:
		return e.hoistParam(v)
	}
}

func (e *Encoder) hoistParam(v qail.Value) (string, error) {
	if v.HasNullByte() {
		return "", qail.ErrNullByte
	}
	data, err := encodeText(v)
	if err != nil {
		return "", err
	}
	idx := e.nextParam
	e.nextParam++
	e.bindParam(idx, data)
	return "$" + formatInt(int64(idx)), nil
}
