package wireenc

import (
	"fmt"
	"strings"

	"github.com/qail-lang/qail"
)

// renderCommand dispatches by action and installs cmd's own scope for the
// duration of the call, restoring the caller's scope on return so nested
// CTEs/subqueries/set-operands each resolve qualified names against their
// own table list (spec §4.E). Only the five parameterized DML actions are
// supported here — DDL has no bind parameters to speak of and belongs to
// package transpile, whose Render handles every Action.
func (e *Encoder) renderCommand(cmd *qail.Command) (string, error) {
	prev := e.scope
	e.scope = newScope(cmd)
	defer func() { e.scope = prev }()

	switch cmd.Action {
	case qail.ActionGet, qail.ActionWith:
		return e.renderSelect(cmd)
	case qail.ActionSet:
		return e.renderUpdate(cmd)
	case qail.ActionDel:
		return e.renderDelete(cmd)
	case qail.ActionAdd, qail.ActionPut:
		return e.renderInsert(cmd)
	default:
		return "", qail.NewEncodeError(qail.EncodeErrUnsupportedAction,
			fmt.Sprintf("wireenc: action %v is DDL/control and has no parameter vector; use package transpile", cmd.Action))
	}
}

func (e *Encoder) encodeCommand(cmd *qail.Command) error {
	e.nextParam = maxParamIdx(cmd) + 1
	sql, err := e.renderCommand(cmd)
	if err != nil {
		return err
	}
	e.SQL.WriteString(sql)
	return nil
}

// maxParamIdx finds the highest explicit $n already present in cmd, so
// parameters hoisted out of inline literals never collide with it.
func maxParamIdx(cmd *qail.Command) int {
	max := 0
	walkValues(cmd, func(v qail.Value) {
		if v.Kind == qail.ValParam && v.ParamIdx > max {
			max = v.ParamIdx
		}
	})
	return max
}

func walkValues(cmd *qail.Command, visit func(qail.Value)) {
	for _, cage := range cmd.Cages {
		for _, c := range cage.Conditions {
			visit(c.Value)
			for _, v := range c.Value.Array {
				visit(v)
			}
		}
	}
	for _, j := range cmd.Joins {
		for _, c := range j.On {
			visit(c.Value)
		}
	}
	for _, c := range cmd.Having {
		visit(c.Value)
	}
	for _, cte := range cmd.CTEs {
		walkValues(cte.BaseQuery, visit)
		if cte.RecursiveQuery != nil {
			walkValues(cte.RecursiveQuery, visit)
		}
	}
	if cmd.SourceQuery != nil {
		walkValues(cmd.SourceQuery, visit)
	}
	for _, so := range cmd.SetOps {
		walkValues(so.Cmd, visit)
	}
}

func (e *Encoder) renderSelect(cmd *qail.Command) (string, error) {
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
			base, err := e.renderCommand(cte.BaseQuery)
			if err != nil {
				return "", err
			}
			fmt.Fprintf(&b, "%s AS (%s", quoteIdent(cte.Name), base)
			if cte.Recursive && cte.RecursiveQuery != nil {
				rec, err := e.renderCommand(cte.RecursiveQuery)
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
		cols, err := e.renderExprList(cmd.DistinctOn)
		if err != nil {
			return "", err
		}
		fmt.Fprintf(&b, "DISTINCT ON (%s) ", strings.Join(cols, ", "))
	}

	if len(cmd.Projections) == 0 {
		b.WriteString("*")
	} else {
		parts := make([]string, len(cmd.Projections))
		for i, p := range cmd.Projections {
			s, err := e.renderExpr(p)
			if err != nil {
				return "", err
			}
			parts[i] = s
		}
		b.WriteString(strings.Join(parts, ", "))
	}

	fromTable := cmd.Table
	if fromTable == "" {
		fromTable = e.scope.main
	}
	b.WriteString(" FROM ")
	if cmd.Only {
		b.WriteString("ONLY ")
	}
	b.WriteString(quoteTableRef(fromTable))
	if cmd.Sample != nil {
		fmt.Fprintf(&b, " TABLESAMPLE %s(%g)", cmd.Sample.Method, cmd.Sample.Percent)
		if cmd.Sample.Seed != nil {
			fmt.Fprintf(&b, " REPEATABLE(%d)", *cmd.Sample.Seed)
		}
	}

	for _, j := range cmd.Joins {
		b.WriteString(" " + joinKeyword(j.Kind) + " ")
		b.WriteString(quoteTableRef(j.Table))
		if j.Alias != "" {
			fmt.Fprintf(&b, " %s", quoteIdent(j.Alias))
		}
		b.WriteString(" ON ")
		switch {
		case j.OnTrue:
			b.WriteString("TRUE")
		case len(j.On) > 0:
			s, err := e.renderConditionsWithOp(j.On, qail.LogicalAnd)
			if err != nil {
				return "", err
			}
			b.WriteString(s)
		default:
			jt := mainTableName(j.Table)
			alias := j.Alias
			if alias == "" {
				alias = jt
			}
			singular := strings.TrimSuffix(jt, "s")
			fmt.Fprintf(&b, "%s.%s = %s.%s",
				quoteIdent(e.scope.main), quoteIdent(singular+"_id"),
				quoteIdent(alias), quoteIdent("id"))
		}
	}

	filterSQL, err := e.renderFilterCages(cmd.Cages)
	if err != nil {
		return "", err
	}
	if filterSQL != "" {
		b.WriteString(" WHERE " + filterSQL)
	}

	groupCols := autoGroupByColumns(cmd)
	partConds := partitionConditions(cmd.Cages)
	if len(groupCols) > 0 || len(partConds) > 0 {
		partRendered, err := e.renderExprList(partConds)
		if err != nil {
			return "", err
		}
		all := dedupe(append(append([]string{}, groupCols...), partRendered...))
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
		s, err := e.renderConditionsWithOp(cmd.Having, qail.LogicalAnd)
		if err != nil {
			return "", err
		}
		b.WriteString(" HAVING " + s)
	}

	var sortParts []string
	for _, cage := range cmd.Cages {
		if cage.Kind == qail.CageSort {
			dir := "ASC"
			if cage.SortOrder == qail.SortDesc {
				dir = "DESC"
			}
			s, err := e.renderExpr(cage.Conditions[0].Left)
			if err != nil {
				return "", err
			}
			sortParts = append(sortParts, s+" "+dir)
		}
	}
	if len(sortParts) > 0 {
		b.WriteString(" ORDER BY " + strings.Join(sortParts, ", "))
	}

	// Postgres has no native QUALIFY; a Qualify cage here is a caller
	// error for this encoder's dialect, not silently dropped.
	for _, cage := range cmd.Cages {
		if cage.Kind == qail.CageQualify {
			return "", qail.NewEncodeError(qail.EncodeErrUnsupportedAction, "wireenc: QUALIFY has no Postgres equivalent")
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
	if limit != nil {
		fmt.Fprintf(&b, " LIMIT %s", formatInt(*limit))
	}
	if offset != nil {
		fmt.Fprintf(&b, " OFFSET %s", formatInt(*offset))
	}

	for _, so := range cmd.SetOps {
		rhs, err := e.renderCommand(so.Cmd)
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

func (e *Encoder) renderUpdate(cmd *qail.Command) (string, error) {
	var payload *qail.Cage
	for i := range cmd.Cages {
		if cmd.Cages[i].Kind == qail.CagePayload {
			payload = &cmd.Cages[i]
		}
	}
	if payload == nil {
		return "", qail.NewEncodeError(qail.EncodeErrEmptyColumns, "wireenc: SET command missing its Payload cage")
	}
	assigns := make([]string, len(payload.Conditions))
	for i, cond := range payload.Conditions {
		val, err := e.renderValue(cond.Value)
		if err != nil {
			return "", err
		}
		assigns[i] = fmt.Sprintf("%s = %s", quoteIdent(cond.Left.Name), val)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "UPDATE %s SET %s", quoteTableRef(cmd.Table), strings.Join(assigns, ", "))
	filterSQL, err := e.renderFilterCages(cmd.Cages)
	if err != nil {
		return "", err
	}
	if filterSQL != "" {
		b.WriteString(" WHERE " + filterSQL)
	}
	ret, err := e.renderReturning(cmd)
	if err != nil {
		return "", err
	}
	b.WriteString(ret)
	return b.String(), nil
}

func (e *Encoder) renderDelete(cmd *qail.Command) (string, error) {
	var b strings.Builder
	b.WriteString("DELETE FROM ")
	if cmd.Only {
		b.WriteString("ONLY ")
	}
	b.WriteString(quoteTableRef(cmd.Table))
	filterSQL, err := e.renderFilterCages(cmd.Cages)
	if err != nil {
		return "", err
	}
	if filterSQL != "" {
		b.WriteString(" WHERE " + filterSQL)
	}
	ret, err := e.renderReturning(cmd)
	if err != nil {
		return "", err
	}
	b.WriteString(ret)
	return b.String(), nil
}

func (e *Encoder) renderInsert(cmd *qail.Command) (string, error) {
	var payload *qail.Cage
	for i := range cmd.Cages {
		if cmd.Cages[i].Kind == qail.CagePayload {
			payload = &cmd.Cages[i]
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "INSERT INTO %s", quoteTableRef(cmd.Table))

	switch {
	case cmd.SourceQuery != nil:
		cols := make([]string, len(cmd.Projections))
		for i, p := range cmd.Projections {
			cols[i] = quoteIdent(p.Name)
		}
		if len(cols) > 0 {
			fmt.Fprintf(&b, " (%s)", strings.Join(cols, ", "))
		}
		sub, err := e.renderCommand(cmd.SourceQuery)
		if err != nil {
			return "", err
		}
		b.WriteString(" " + sub)
	case payload != nil && len(payload.Conditions) > 0:
		cols := make([]string, len(payload.Conditions))
		vals := make([]string, len(payload.Conditions))
		for i, cond := range payload.Conditions {
			if cond.Left.Kind == qail.ExprNamed && cond.Left.Name != "" {
				cols[i] = quoteIdent(cond.Left.Name)
			}
			v, err := e.renderValue(cond.Value)
			if err != nil {
				return "", err
			}
			vals[i] = v
		}
		if cols[0] != "" {
			fmt.Fprintf(&b, " (%s)", strings.Join(cols, ", "))
		}
		fmt.Fprintf(&b, " VALUES (%s)", strings.Join(vals, ", "))
	default:
		b.WriteString(" DEFAULT VALUES")
	}

	if cmd.OnConflict != nil {
		oc := cmd.OnConflict
		if len(oc.Columns) > 0 {
			quoted := make([]string, len(oc.Columns))
			for i, c := range oc.Columns {
				quoted[i] = quoteIdent(c)
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
				s, err := e.renderExpr(a.Value)
				if err != nil {
					return "", err
				}
				sets[i] = fmt.Sprintf("%s = %s", quoteIdent(a.Column), s)
			}
			b.WriteString(" DO UPDATE SET " + strings.Join(sets, ", "))
		}
	}

	ret, err := e.renderReturning(cmd)
	if err != nil {
		return "", err
	}
	b.WriteString(ret)
	return b.String(), nil
}

func (e *Encoder) renderReturning(cmd *qail.Command) (string, error) {
	if cmd.Returning == nil {
		return " RETURNING *", nil
	}
	exprs := *cmd.Returning
	if len(exprs) == 0 {
		return "", nil
	}
	parts, err := e.renderExprList(exprs)
	if err != nil {
		return "", err
	}
	return " RETURNING " + strings.Join(parts, ", "), nil
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
