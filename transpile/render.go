package transpile

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/qail-lang/qail"
)

// scope collects the main table (alias-stripped) and every join
// alias/table, used to disambiguate a dotted Named expression as a
// qualified column reference versus a JSON path (spec §4.E, mirrored here
// since the transpiler and the wire encoder share the same rule).
type scope struct {
	main  string
	known map[string]string // alias/table -> table
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

// Render turns cmd into SQL text for dialect d (spec §4.D). Parameter
// values (qail.ValParam) render as the dialect's placeholder syntax;
// every other value kind renders as an inline literal. This is the
// general-purpose, any-dialect path; the Postgres-only performance path
// that also produces the parameter byte vector lives in package wireenc.
func Render(cmd *qail.Command, d Dialect) (string, error) {
	if err := cmd.Validate(); err != nil {
		return "", err
	}
	sc := newScope(cmd)
	switch cmd.Action {
	case qail.ActionGet, qail.ActionWith:
		return renderSelect(cmd, d, sc)
	case qail.ActionSet:
		return renderUpdate(cmd, d, sc)
	case qail.ActionDel:
		return renderDelete(cmd, d, sc)
	case qail.ActionAdd, qail.ActionPut:
		return renderInsert(cmd, d, sc)
	case qail.ActionMake:
		return renderCreateTable(cmd, d)
	case qail.ActionDrop:
		return fmt.Sprintf("DROP TABLE %s", d.QuoteIdentifier(mainTableName(cmd.Table))), nil
	case qail.ActionAlter, qail.ActionAlterDrop:
		return renderAlter(cmd, d)
	case qail.ActionIndex:
		return renderCreateIndex(cmd, d)
	case qail.ActionDropIndex:
		if cmd.IndexDef == nil {
			return "", fmt.Errorf("transpile: drop index command missing IndexDef")
		}
		return fmt.Sprintf("DROP INDEX %s", d.QuoteIdentifier(cmd.IndexDef.Name)), nil
	case qail.ActionTxnBegin:
		return "BEGIN", nil
	case qail.ActionTxnCommit:
		return "COMMIT", nil
	case qail.ActionTxnRollback:
		return "ROLLBACK", nil
	}
	return "", fmt.Errorf("transpile: unsupported action %v", cmd.Action)
}

func renderSelect(cmd *qail.Command, d Dialect, sc scope) (string, error) {
	var b strings.Builder

	if len(cmd.CTEs) > 0 {
		b.WriteString("WITH ")
		if cmd.CTEs[0].Recursive {
			b.WriteString("RECURSIVE ")
		}
		for i, cte := range cmd.CTEs {
			if i > 0 {
				b.WriteString(", ")
			}
			base, err := Render(cte.BaseQuery, d)
			if err != nil {
				return "", err
			}
			fmt.Fprintf(&b, "%s AS (%s", d.QuoteIdentifier(cte.Name), base)
			if cte.Recursive && cte.RecursiveQuery != nil {
				rec, err := Render(cte.RecursiveQuery, d)
				if err != nil {
					return "", err
				}
				fmt.Fprintf(&b, " UNION ALL %s", rec)
			}
			b.WriteString(")")
		}
		b.WriteString(" ")
	}

	b.WriteString("SELECT ")
	if cmd.Distinct {
		b.WriteString("DISTINCT ")
	} else if len(cmd.DistinctOn) > 0 {
		cols := make([]string, len(cmd.DistinctOn))
		for i, e := range cmd.DistinctOn {
			cols[i] = renderExpr(d, e, sc)
		}
		fmt.Fprintf(&b, "DISTINCT ON (%s) ", strings.Join(cols, ", "))
	}

	if len(cmd.Projections) == 0 {
		b.WriteString("*")
	} else {
		parts := make([]string, len(cmd.Projections))
		for i, p := range cmd.Projections {
			parts[i] = renderExpr(d, p, sc)
		}
		b.WriteString(strings.Join(parts, ", "))
	}

	fromTable := cmd.Table
	if fromTable == "" {
		fromTable = sc.main
	}
	b.WriteString(" FROM ")
	if cmd.Only {
		b.WriteString("ONLY ")
	}
	b.WriteString(renderTableRef(d, fromTable))
	if cmd.Sample != nil {
		if d.SupportsTableSample() {
			fmt.Fprintf(&b, " TABLESAMPLE %s(%g)", cmd.Sample.Method, cmd.Sample.Percent)
			if cmd.Sample.Seed != nil {
				fmt.Fprintf(&b, " REPEATABLE(%d)", *cmd.Sample.Seed)
			}
		}
	}

	for _, j := range cmd.Joins {
		b.WriteString(" " + joinKeyword(j.Kind) + " ")
		b.WriteString(renderTableRef(d, j.Table))
		if j.Alias != "" {
			fmt.Fprintf(&b, " %s", d.QuoteIdentifier(j.Alias))
		}
		b.WriteString(" ON ")
		switch {
		case j.OnTrue:
			b.WriteString("TRUE")
		case len(j.On) > 0:
			b.WriteString(renderConditionsAnd(d, j.On, sc))
		default:
			jt := mainTableName(j.Table)
			alias := j.Alias
			if alias == "" {
				alias = jt
			}
			singular := strings.TrimSuffix(jt, "s")
			fmt.Fprintf(&b, "%s.%s = %s.%s",
				d.QuoteIdentifier(sc.main), d.QuoteIdentifier(singular+"_id"),
				d.QuoteIdentifier(alias), d.QuoteIdentifier("id"))
		}
	}

	filterSQL := renderFilterCages(d, cmd.Cages, sc)
	if filterSQL != "" {
		b.WriteString(" WHERE " + filterSQL)
	}

	groupCols := autoGroupByColumns(cmd)
	partitionConds := partitionConditions(cmd.Cages)
	if len(groupCols) > 0 || len(partitionConds) > 0 {
		all := append(append([]string{}, groupCols...), renderExprList(d, partitionConds, sc)...)
		all = dedupe(all)
		if len(all) > 0 {
			wrapped := strings.Join(all, ", ")
			switch cmd.GroupMode {
			case qail.GroupByRollup:
				wrapped = "ROLLUP(" + wrapped + ")"
			case qail.GroupByCube:
				wrapped = "CUBE(" + wrapped + ")"
			}
			b.WriteString(" GROUP BY " + wrapped)
		}
	}

	if len(cmd.Having) > 0 {
		b.WriteString(" HAVING " + renderConditionsAnd(d, cmd.Having, sc))
	}

	var sortParts []string
	for _, cage := range cmd.Cages {
		if cage.Kind == qail.CageSort {
			dir := "ASC"
			if cage.SortOrder == qail.SortDesc {
				dir = "DESC"
			}
			sortParts = append(sortParts, renderExpr(d, cage.Conditions[0].Left, sc)+" "+dir)
		}
	}
	if len(sortParts) > 0 {
		b.WriteString(" ORDER BY " + strings.Join(sortParts, ", "))
	}

	if d.SupportsQualify() {
		for _, cage := range cmd.Cages {
			if cage.Kind == qail.CageQualify {
				b.WriteString(" QUALIFY " + renderConditionsWithOp(d, cage.Conditions, cage.LogicalOp, sc))
			}
		}
	}

	var limit, offset *int64
	for _, cage := range cmd.Cages {
		switch cage.Kind {
		case qail.CageLimit:
			l := cage.Limit
			limit = &l
		case qail.CageOffset:
			o := cage.Offset
			offset = &o
		}
	}
	if tail := d.LimitOffset(limit, offset, cmd.Fetch); tail != "" {
		b.WriteString(" " + tail)
	}

	for _, so := range cmd.SetOps {
		rhs, err := Render(so.Cmd, d)
		if err != nil {
			return "", err
		}
		b.WriteString(" " + setOpKeyword(so.Op) + " " + rhs)
	}

	if cmd.LockMode != qail.LockNone {
		b.WriteString(" " + cmd.LockMode.String())
	}

	return b.String(), nil
}

func joinKeyword(k qail.JoinKind) string {
	switch k {
	case qail.JoinLeft:
		return "LEFT JOIN"
	case qail.JoinRight:
		return "RIGHT JOIN"
	case qail.JoinLateral:
		return "LEFT JOIN LATERAL"
	}
	return "INNER JOIN"
}

func setOpKeyword(k qail.SetOpKind) string {
	switch k {
	case qail.SetUnionAll:
		return "UNION ALL"
	case qail.SetIntersect:
		return "INTERSECT"
	case qail.SetExcept:
		return "EXCEPT"
	}
	return "UNION"
}

func renderUpdate(cmd *qail.Command, d Dialect, sc scope) (string, error) {
	var payload *qail.Cage
	for i := range cmd.Cages {
		if cmd.Cages[i].Kind == qail.CagePayload {
			payload = &cmd.Cages[i]
		}
	}
	if payload == nil {
		return "", fmt.Errorf("transpile: SET command missing its Payload cage")
	}
	assigns := make([]string, len(payload.Conditions))
	for i, cond := range payload.Conditions {
		assigns[i] = fmt.Sprintf("%s = %s", d.QuoteIdentifier(cond.Left.Name), renderValue(d, cond.Value))
	}
	var b strings.Builder
	fmt.Fprintf(&b, "UPDATE %s SET %s", renderTableRef(d, cmd.Table), strings.Join(assigns, ", "))
	if filterSQL := renderFilterCages(d, cmd.Cages, sc); filterSQL != "" {
		b.WriteString(" WHERE " + filterSQL)
	}
	b.WriteString(renderReturning(d, cmd, sc))
	return b.String(), nil
}

func renderDelete(cmd *qail.Command, d Dialect, sc scope) (string, error) {
	var b strings.Builder
	b.WriteString("DELETE FROM ")
	if cmd.Only {
		b.WriteString("ONLY ")
	}
	b.WriteString(renderTableRef(d, cmd.Table))
	if filterSQL := renderFilterCages(d, cmd.Cages, sc); filterSQL != "" {
		b.WriteString(" WHERE " + filterSQL)
	}
	b.WriteString(renderReturning(d, cmd, sc))
	return b.String(), nil
}

func renderInsert(cmd *qail.Command, d Dialect, sc scope) (string, error) {
	var payload *qail.Cage
	for i := range cmd.Cages {
		if cmd.Cages[i].Kind == qail.CagePayload {
			payload = &cmd.Cages[i]
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "INSERT INTO %s", renderTableRef(d, cmd.Table))

	switch {
	case cmd.SourceQuery != nil:
		cols := make([]string, len(cmd.Projections))
		for i, p := range cmd.Projections {
			cols[i] = d.QuoteIdentifier(p.Name)
		}
		if len(cols) > 0 {
			fmt.Fprintf(&b, " (%s)", strings.Join(cols, ", "))
		}
		sub, err := Render(cmd.SourceQuery, d)
		if err != nil {
			return "", err
		}
		b.WriteString(" " + sub)
	case payload != nil && len(payload.Conditions) > 0:
		cols := make([]string, len(payload.Conditions))
		vals := make([]string, len(payload.Conditions))
		for i, cond := range payload.Conditions {
			if cond.Left.Kind == qail.ExprNamed && cond.Left.Name != "" {
				cols[i] = d.QuoteIdentifier(cond.Left.Name)
			}
			vals[i] = renderValue(d, cond.Value)
		}
		hasCols := cols[0] != ""
		if hasCols {
			fmt.Fprintf(&b, " (%s)", strings.Join(cols, ", "))
		}
		fmt.Fprintf(&b, " VALUES (%s)", strings.Join(vals, ", "))
	default:
		b.WriteString(" DEFAULT VALUES")
	}

	if cmd.OnConflict != nil && d.SupportsOnConflict() {
		oc := cmd.OnConflict
		if len(oc.Columns) > 0 {
			quoted := make([]string, len(oc.Columns))
			for i, c := range oc.Columns {
				quoted[i] = d.QuoteIdentifier(c)
			}
			fmt.Fprintf(&b, " ON CONFLICT (%s)", strings.Join(quoted, ", "))
		} else {
			b.WriteString(" ON CONFLICT")
		}
		if oc.Action == qail.ConflictDoNothing {
			b.WriteString(" DO NOTHING")
		} else {
			sets := make([]string, len(oc.Updates))
			for i, a := range oc.Updates {
				sets[i] = fmt.Sprintf("%s = %s", d.QuoteIdentifier(a.Column), renderExpr(d, a.Value, sc))
			}
			b.WriteString(" DO UPDATE SET " + strings.Join(sets, ", "))
		}
	}

	b.WriteString(renderReturning(d, cmd, sc))
	return b.String(), nil
}

func renderReturning(d Dialect, cmd *qail.Command, sc scope) string {
	if !d.SupportsReturning() {
		return ""
	}
	if cmd.Returning == nil {
		return " RETURNING *"
	}
	exprs := *cmd.Returning
	if len(exprs) == 0 {
		return ""
	}
	parts := make([]string, len(exprs))
	for i, e := range exprs {
		parts[i] = renderExpr(d, e, sc)
	}
	return " RETURNING " + strings.Join(parts, ", ")
}

func renderCreateTable(cmd *qail.Command, d Dialect) (string, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "CREATE TABLE %s (", d.QuoteIdentifier(mainTableName(cmd.Table)))
	var defs []string
	for _, col := range cmd.Columns {
		line := d.QuoteIdentifier(col.Name) + " " + col.Type
		if col.PrimaryKey {
			line += " PRIMARY KEY"
		}
		if !col.Nullable {
			line += " NOT NULL"
		}
		if col.Unique {
			line += " UNIQUE"
		}
		if col.HasDefault {
			line += " DEFAULT " + col.Default
		}
		defs = append(defs, line)
	}
	for _, c := range cmd.TableConstraints {
		defs = append(defs, renderTableConstraint(d, c))
	}
	b.WriteString(strings.Join(defs, ", "))
	b.WriteString(")")
	return b.String(), nil
}

func renderTableConstraint(d Dialect, c qail.TableConstraint) string {
	prefix := ""
	if c.Name != "" {
		prefix = "CONSTRAINT " + d.QuoteIdentifier(c.Name) + " "
	}
	quoted := func(cols []string) string {
		q := make([]string, len(cols))
		for i, col := range cols {
			q[i] = d.QuoteIdentifier(col)
		}
		return strings.Join(q, ", ")
	}
	switch c.Kind {
	case qail.ConstraintPrimaryKey:
		return prefix + "PRIMARY KEY (" + quoted(c.Columns) + ")"
	case qail.ConstraintUnique:
		return prefix + "UNIQUE (" + quoted(c.Columns) + ")"
	case qail.ConstraintForeignKey:
		return fmt.Sprintf("%sFOREIGN KEY (%s) REFERENCES %s (%s)", prefix, quoted(c.Columns), d.QuoteIdentifier(c.RefTable), quoted(c.RefColumns))
	case qail.ConstraintCheck:
		return prefix + "CHECK (" + c.CheckExpr + ")"
	}
	return ""
}

func renderAlter(cmd *qail.Command, d Dialect) (string, error) {
	table := d.QuoteIdentifier(mainTableName(cmd.Table))
	var parts []string
	for _, a := range cmd.Alters {
		switch a.Kind {
		case qail.AlterAddColumn:
			col := a.Column
			line := "ADD COLUMN " + d.QuoteIdentifier(col.Name) + " " + col.Type
			if !col.Nullable {
				line += " NOT NULL"
			}
			if col.HasDefault {
				line += " DEFAULT " + col.Default
			}
			parts = append(parts, line)
		case qail.AlterDropColumn:
			parts = append(parts, "DROP COLUMN "+d.QuoteIdentifier(a.ColumnName))
		case qail.AlterSetType:
			parts = append(parts, fmt.Sprintf("ALTER COLUMN %s SET DATA TYPE %s", d.QuoteIdentifier(a.ColumnName), a.Column.Type))
		case qail.AlterSetNotNull:
			parts = append(parts, "ALTER COLUMN "+d.QuoteIdentifier(a.ColumnName)+" SET NOT NULL")
		case qail.AlterDropNotNull:
			parts = append(parts, "ALTER COLUMN "+d.QuoteIdentifier(a.ColumnName)+" DROP NOT NULL")
		case qail.AlterSetDefault:
			parts = append(parts, fmt.Sprintf("ALTER COLUMN %s SET DEFAULT %s", d.QuoteIdentifier(a.ColumnName), a.Column.Default))
		case qail.AlterDropDefault:
			parts = append(parts, "ALTER COLUMN "+d.QuoteIdentifier(a.ColumnName)+" DROP DEFAULT")
		case qail.AlterAddConstraint:
			parts = append(parts, "ADD "+renderTableConstraint(d, a.Constraint))
		case qail.AlterDropConstraint:
			parts = append(parts, "DROP CONSTRAINT "+d.QuoteIdentifier(a.Constraint.Name))
		}
	}
	if len(parts) == 0 {
		return "", fmt.Errorf("transpile: ALTER command has no alterations")
	}
	return "ALTER TABLE " + table + " " + strings.Join(parts, ", "), nil
}

func renderCreateIndex(cmd *qail.Command, d Dialect) (string, error) {
	if cmd.IndexDef == nil {
		return "", fmt.Errorf("transpile: index command missing IndexDef")
	}
	ix := cmd.IndexDef
	cols := make([]string, len(ix.Columns))
	for i, c := range ix.Columns {
		cols[i] = d.QuoteIdentifier(c)
	}
	unique := ""
	if ix.Unique {
		unique = "UNIQUE "
	}
	using := ""
	if ix.Method != "" {
		using = " USING " + ix.Method
	}
	return fmt.Sprintf("CREATE %sINDEX %s ON %s%s (%s)", unique, d.QuoteIdentifier(ix.Name), d.QuoteIdentifier(ix.Table), using, strings.Join(cols, ", ")), nil
}

func renderTableRef(d Dialect, table string) string {
	parts := strings.Fields(table)
	if len(parts) == 2 {
		return d.QuoteIdentifier(parts[0]) + " " + d.QuoteIdentifier(parts[1])
	}
	return d.QuoteIdentifier(table)
}

func renderExprList(d Dialect, exprs []qail.Expr, sc scope) []string {
	out := make([]string, len(exprs))
	for i, e := range exprs {
		out[i] = renderExpr(d, e, sc)
	}
	return out
}

func dedupe(ss []string) []string {
	seen := map[string]bool{}
	var out []string
	for _, s := range ss {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}

// autoGroupByColumns implements spec §4.D step 6: if any projection is an
// aggregate, every non-aggregate projection must be grouped.
func autoGroupByColumns(cmd *qail.Command) []string {
	hasAgg := false
	for _, p := range cmd.Projections {
		if p.Kind == qail.ExprAggregate {
			hasAgg = true
			break
		}
	}
	if !hasAgg {
		return nil
	}
	var cols []string
	for _, p := range cmd.Projections {
		if p.Kind != qail.ExprAggregate && p.Kind != qail.ExprStar {
			cols = append(cols, p.String())
		}
	}
	return cols
}

func partitionConditions(cages []qail.Cage) []qail.Expr {
	var out []qail.Expr
	for _, cage := range cages {
		if cage.Kind == qail.CagePartition {
			for _, c := range cage.Conditions {
				out = append(out, c.Left)
			}
		}
	}
	return out
}

// renderFilterCages joins every Filter cage with AND (spec §4.D step 5).
func renderFilterCages(d Dialect, cages []qail.Cage, sc scope) string {
	var parts []string
	for _, cage := range cages {
		if cage.Kind != qail.CageFilter || len(cage.Conditions) == 0 {
			continue
		}
		parts = append(parts, renderConditionsWithOp(d, cage.Conditions, cage.LogicalOp, sc))
	}
	return strings.Join(parts, " AND ")
}

func renderConditionsAnd(d Dialect, conds []qail.Condition, sc scope) string {
	return renderConditionsWithOp(d, conds, qail.LogicalAnd, sc)
}

// renderConditionsWithOp joins conds by op; an OR group of >=2 conditions
// is parenthesized to preserve precedence against the outer AND join
// (spec §4.D step 5).
func renderConditionsWithOp(d Dialect, conds []qail.Condition, op qail.LogicalOp, sc scope) string {
	sep := " AND "
	if op == qail.LogicalOr {
		sep = " OR "
	}
	parts := make([]string, len(conds))
	for i, c := range conds {
		parts[i] = renderCondition(d, c, sc)
	}
	joined := strings.Join(parts, sep)
	if op == qail.LogicalOr && len(conds) >= 2 {
		return "(" + joined + ")"
	}
	return joined
}

func renderCondition(d Dialect, c qail.Condition, sc scope) string {
	if c.IsArrayUnnest {
		col := renderExpr(d, c.Left, sc)
		return fmt.Sprintf("EXISTS (SELECT 1 FROM unnest(%s) _el WHERE _el %s %s)", col, c.Op.SQLSymbol(), renderValue(d, c.Value))
	}
	left := renderExpr(d, c.Left, sc)
	switch c.Op {
	case qail.OpIsNull:
		return left + " IS NULL"
	case qail.OpIsNotNull:
		return left + " IS NOT NULL"
	case qail.OpIn, qail.OpNotIn:
		kw := "IN"
		if c.Op == qail.OpNotIn {
			kw = "NOT IN"
		}
		vals := make([]string, len(c.Value.Array))
		for i, v := range c.Value.Array {
			vals[i] = renderValue(d, v)
		}
		return fmt.Sprintf("%s %s (%s)", left, kw, strings.Join(vals, ", "))
	case qail.OpBetween, qail.OpNotBetween:
		kw := "BETWEEN"
		if c.Op == qail.OpNotBetween {
			kw = "NOT BETWEEN"
		}
		return fmt.Sprintf("%s %s %s AND %s", left, kw, renderValue(d, c.Value.Array[0]), renderValue(d, c.Value.Array[1]))
	case qail.OpFuzzy:
		return d.FuzzyExpr(left, renderValue(d, c.Value))
	case qail.OpContains:
		return fmt.Sprintf("%s @> %s", left, renderValue(d, c.Value))
	case qail.OpKeyExists:
		return fmt.Sprintf("%s ? %s", left, renderValue(d, c.Value))
	case qail.OpExists:
		return fmt.Sprintf("EXISTS (%s)", renderValue(d, c.Value))
	case qail.OpNotExists:
		return fmt.Sprintf("NOT EXISTS (%s)", renderValue(d, c.Value))
	default:
		return fmt.Sprintf("%s %s %s", left, c.Op.SQLSymbol(), renderValue(d, c.Value))
	}
}

// renderExpr is the shared expression renderer used by both the
// transpiler and, indirectly, by error messages elsewhere. Raw-SQL
// escape ("{...}") and qualified-vs-JSON-path disambiguation follow the
// same rule as the wire encoder (spec §4.E), kept in sync by hand since
// they are two independent renderers over the same AST by design
// (general multi-dialect text vs Postgres-only parameterized bytes).
func renderExpr(d Dialect, e qail.Expr, sc scope) string {
	switch e.Kind {
	case qail.ExprNamed:
		return renderNamed(d, e.Name, sc)
	case qail.ExprStar:
		return "*"
	case qail.ExprAliased:
		return renderExpr(d, *e.Inner, sc) + " AS " + d.QuoteIdentifier(e.Alias)
	case qail.ExprLiteral:
		return renderValue(d, *e.Literal)
	case qail.ExprBinary:
		if e.Op == "||" {
			return d.StringConcat(renderExpr(d, *e.Left, sc), renderExpr(d, *e.Right, sc))
		}
		s := fmt.Sprintf("(%s %s %s)", renderExpr(d, *e.Left, sc), e.Op, renderExpr(d, *e.Right, sc))
		if e.Alias != "" {
			s += " AS " + d.QuoteIdentifier(e.Alias)
		}
		return s
	case qail.ExprFunctionCall, qail.ExprSpecialFunction:
		args := make([]string, len(e.Args))
		for i, a := range e.Args {
			args[i] = renderExpr(d, a, sc)
		}
		s := fmt.Sprintf("%s(%s)", e.FuncName, strings.Join(args, ", "))
		if e.Alias != "" {
			s += " AS " + d.QuoteIdentifier(e.Alias)
		}
		return s
	case qail.ExprAggregate:
		distinct := ""
		if e.AggDistinct {
			distinct = "DISTINCT "
		}
		s := fmt.Sprintf("%s(%s%s)", e.AggFunc.String(), distinct, renderNamed(d, e.AggCol, sc))
		if e.AggFilter != nil {
			s += " FILTER (WHERE " + renderCondition(d, *e.AggFilter, sc) + ")"
		}
		if e.Alias != "" {
			s += " AS " + d.QuoteIdentifier(e.Alias)
		}
		return s
	case qail.ExprWindow:
		args := make([]string, len(e.WinArgs))
		for i, a := range e.WinArgs {
			args[i] = renderExpr(d, a, sc)
		}
		s := fmt.Sprintf("%s(%s) OVER (", e.WinFunc, strings.Join(args, ", "))
		if len(e.WinPartition) > 0 {
			s += "PARTITION BY " + strings.Join(renderExprList(d, e.WinPartition, sc), ", ") + " "
		}
		if len(e.WinOrder) > 0 {
			parts := make([]string, len(e.WinOrder))
			for i, sk := range e.WinOrder {
				dir := "ASC"
				if sk.Order == qail.SortDesc {
					dir = "DESC"
				}
				parts[i] = renderExpr(d, sk.Expr, sc) + " " + dir
			}
			s += "ORDER BY " + strings.Join(parts, ", ") + " "
		}
		if e.WinFrame != nil && e.WinFrame.Mode != "" {
			s += fmt.Sprintf("%s BETWEEN %s AND %s ", e.WinFrame.Mode, e.WinFrame.StartBound, e.WinFrame.EndBound)
		}
		s = strings.TrimRight(s, " ") + ")"
		if e.Alias != "" {
			s += " AS " + d.QuoteIdentifier(e.Alias)
		}
		return s
	case qail.ExprCase:
		var b strings.Builder
		b.WriteString("CASE")
		for _, w := range e.Whens {
			fmt.Fprintf(&b, " WHEN %s THEN %s", renderCondition(d, w.Cond, sc), renderExpr(d, w.Result, sc))
		}
		if e.Else != nil {
			fmt.Fprintf(&b, " ELSE %s", renderExpr(d, *e.Else, sc))
		}
		b.WriteString(" END")
		if e.Alias != "" {
			b.WriteString(" AS " + d.QuoteIdentifier(e.Alias))
		}
		return b.String()
	case qail.ExprCast:
		s := fmt.Sprintf("CAST(%s AS %s)", renderExpr(d, *e.Inner, sc), e.CastType)
		if e.Alias != "" {
			s += " AS " + d.QuoteIdentifier(e.Alias)
		}
		return s
	case qail.ExprJsonAccess:
		base := renderNamed(d, e.Column, sc)
		for _, seg := range e.PathSegments {
			base = d.JSONAccess(base, seg)
		}
		if e.Alias != "" {
			base += " AS " + d.QuoteIdentifier(e.Alias)
		}
		return base
	case qail.ExprArrayConstructor:
		return "ARRAY[" + strings.Join(renderExprList(d, e.Elements, sc), ", ") + "]"
	case qail.ExprRowConstructor:
		return "ROW(" + strings.Join(renderExprList(d, e.Elements, sc), ", ") + ")"
	case qail.ExprSubscript:
		return fmt.Sprintf("%s[%s]", renderExpr(d, *e.Inner, sc), renderExpr(d, *e.Index, sc))
	case qail.ExprFieldAccess:
		return renderExpr(d, *e.Inner, sc) + "." + e.Name
	case qail.ExprCollate:
		return renderExpr(d, *e.Inner, sc) + " COLLATE " + d.QuoteIdentifier(e.Collation)
	}
	return ""
}

// renderNamed resolves a (possibly dotted) Named expression per the
// qualified-column-vs-JSON-path rule (spec §4.E): a raw-SQL escape
// "{...}" is emitted verbatim; a dotted name whose first segment matches
// a known table/alias is a qualified column; otherwise it is a JSON path
// off the leading segment, rendered with ->/->>.
func renderNamed(d Dialect, name string, sc scope) string {
	if strings.HasPrefix(name, "{") && strings.HasSuffix(name, "}") {
		return name[1 : len(name)-1]
	}
	idx := strings.IndexByte(name, '.')
	if idx < 0 {
		return d.QuoteIdentifier(name)
	}
	head, rest := name[:idx], name[idx+1:]
	if _, known := sc.known[head]; known {
		return d.QuoteIdentifier(head) + "." + d.QuoteIdentifier(rest)
	}
	// JSON path: head is the column, remaining dotted segments are keys.
	base := d.QuoteIdentifier(head)
	segs := strings.Split(rest, ".")
	for i, seg := range segs {
		asText := i == len(segs)-1
		base = d.JSONAccess(base, qail.JSONPathSegment{Key: "'" + seg + "'", AsText: asText})
	}
	return base
}

// renderValue renders a literal or parameter value (spec §4.D/§4.E).
func renderValue(d Dialect, v qail.Value) string {
	switch v.Kind {
	case qail.ValNull:
		return "NULL"
	case qail.ValBool:
		return d.BoolLiteral(v.Bool)
	case qail.ValParam:
		return d.Placeholder(v.ParamIdx)
	case qail.ValInt:
		return strconv.FormatInt(v.Int, 10)
	case qail.ValSubquery:
		sql, err := Render(v.Subquery, d)
		if err != nil {
			return "(<invalid subquery>)"
		}
		return "(" + sql + ")"
	case qail.ValColumn:
		return d.QuoteIdentifier(v.Str)
	case qail.ValFunction:
		return v.Str
	case qail.ValExpr:
		return renderExpr(d, v.Expr, scope{})
	default:
		return v.String()
	}
}
