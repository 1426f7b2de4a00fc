// Package qail is an AST-native PostgreSQL driver: a symbolic query
// language, a schema-aware validator, a multi-dialect transpiler, and a
// from-scratch implementation of the PostgreSQL v3 wire protocol.
//
// Example:
//
//	pool, _ := qail.Connect(ctx, qail.Config{Host: "localhost", Database: "app"})
//	defer pool.Close()
//
//	cmd := qail.Get("users").
//	    Columns("id", "name").
//	    Filter("active", qail.OpEq, qail.BoolValue(true)).
//	    Limit(10)
//
//	rows, err := pool.FetchAll(ctx, cmd)
package qail

// Action is the command's top-level verb (spec §3.1).
type Action int

const (
	ActionGet Action = iota
	ActionAdd
	ActionSet
	ActionDel
	ActionPut
	ActionMake
	ActionDrop
	ActionAlter
	ActionAlterDrop
	ActionIndex
	ActionDropIndex
	ActionExport
	ActionWith
	ActionTxnBegin
	ActionTxnCommit
	ActionTxnRollback
)

func (a Action) String() string {
	switch a {
	case ActionGet:
		return "GET"
	case ActionAdd:
		return "ADD"
	case ActionSet:
		return "SET"
	case ActionDel:
		return "DEL"
	case ActionPut:
		return "PUT"
	case ActionMake:
		return "MAKE"
	case ActionDrop:
		return "DROP"
	case ActionAlter:
		return "ALTER"
	case ActionAlterDrop:
		return "ALTER_DROP"
	case ActionIndex:
		return "INDEX"
	case ActionDropIndex:
		return "DROP_INDEX"
	case ActionExport:
		return "EXPORT"
	case ActionWith:
		return "WITH"
	case ActionTxnBegin:
		return "TXN_BEGIN"
	case ActionTxnCommit:
		return "TXN_COMMIT"
	case ActionTxnRollback:
		return "TXN_ROLLBACK"
	}
	return "GET"
}

// Command is the root AST entity: a single parsed or hand-built query or
// DDL statement (spec §3.1). It carries no SQL text — the transpiler and
// wire encoder are the only things that ever turn it into bytes.
type Command struct {
	Action Action
	Table  string // table name, or a raw SQL fragment when this is a CTE body

	Projections []Expr
	Joins       []Join
	Cages       []Cage

	CTEs     []CTEDef
	SetOps   []SetOperation
	Having   []Condition
	GroupMode   GroupByMode
	Distinct    bool
	DistinctOn  []Expr

	OnConflict  *OnConflict
	Returning   *[]Expr // nil = RETURNING * by default for mutations; &[]Expr{} = suppressed
	SourceQuery *Command

	LockMode    LockMode
	Fetch       *FetchClause
	Sample      *TableSample
	Only        bool

	IndexDef         *IndexDef
	TableConstraints []TableConstraint
	Columns          []ColumnDef // for Make
	Alters           []AlterSpec // for Alter/AlterDrop
}

// Get creates a SELECT command for the given table.
func Get(table string) *Command { return &Command{Action: ActionGet, Table: table} }

// Add creates an INSERT command for the given table.
func Add(table string) *Command { return &Command{Action: ActionAdd, Table: table} }

// Set creates an UPDATE command for the given table.
func Set(table string) *Command { return &Command{Action: ActionSet, Table: table} }

// Del creates a DELETE command for the given table.
func Del(table string) *Command { return &Command{Action: ActionDel, Table: table} }

// Put creates an upsert (INSERT ... ON CONFLICT) command for the given table.
func Put(table string) *Command { return &Command{Action: ActionPut, Table: table} }

// Make creates a CREATE TABLE command for the given table.
func Make(table string) *Command { return &Command{Action: ActionMake, Table: table} }

// Drop creates a DROP TABLE command for the given table.
func Drop(table string) *Command { return &Command{Action: ActionDrop, Table: table} }

// Alter creates an ALTER TABLE command for the given table.
func Alter(table string) *Command { return &Command{Action: ActionAlter, Table: table} }

// Export creates a COPY-based bulk export command for the given table.
func Export(table string) *Command { return &Command{Action: ActionExport, Table: table} }

// RawSQL creates a placeholder command whose Table field is a raw SQL
// fragment, used as a CTE body that isn't itself a QAIL command.
func RawSQL(sql string) *Command { return &Command{Action: ActionGet, Table: sql} }

// SelectAll appends a "*" projection.
func (c *Command) SelectAll() *Command {
	c.Projections = append(c.Projections, StarExpr())
	return c
}

// Columns appends one Named projection per column name.
func (c *Command) Columns(cols ...string) *Command {
	for _, col := range cols {
		c.Projections = append(c.Projections, NamedExpr(col))
	}
	return c
}

// Column appends a single Named projection.
func (c *Command) Column(col string) *Command {
	c.Projections = append(c.Projections, NamedExpr(col))
	return c
}

// Expr appends an arbitrary expression as a projection (aggregates, CASE,
// window functions, JSON access, ...).
func (c *Command) Expr(e Expr) *Command {
	c.Projections = append(c.Projections, e)
	return c
}

// findOrAppendCage returns the existing cage of kind, or appends a new one.
func (c *Command) findOrAppendCage(kind CageKind, logical LogicalOp) *Cage {
	for i := range c.Cages {
		if c.Cages[i].Kind == kind {
			return &c.Cages[i]
		}
	}
	c.Cages = append(c.Cages, Cage{Kind: kind, LogicalOp: logical})
	return &c.Cages[len(c.Cages)-1]
}

// Filter adds an AND-joined filter condition, reusing the first AND Filter
// cage if one exists so that repeated .Filter calls build one WHERE group.
func (c *Command) Filter(column string, op Operator, value Value) *Command {
	cond := Condition{Left: NamedExpr(column), Op: op, Value: value}
	for i := range c.Cages {
		if c.Cages[i].Kind == CageFilter && c.Cages[i].LogicalOp == LogicalAnd {
			c.Cages[i].Conditions = append(c.Cages[i].Conditions, cond)
			return c
		}
	}
	c.Cages = append(c.Cages, Cage{Kind: CageFilter, LogicalOp: LogicalAnd, Conditions: []Condition{cond}})
	return c
}

// FilterExpr is Filter but for an arbitrary expression left-hand side
// (JSON access, function results, ...).
func (c *Command) FilterExpr(left Expr, op Operator, value Value) *Command {
	cond := Condition{Left: left, Op: op, Value: value}
	for i := range c.Cages {
		if c.Cages[i].Kind == CageFilter && c.Cages[i].LogicalOp == LogicalAnd {
			c.Cages[i].Conditions = append(c.Cages[i].Conditions, cond)
			return c
		}
	}
	c.Cages = append(c.Cages, Cage{Kind: CageFilter, LogicalOp: LogicalAnd, Conditions: []Condition{cond}})
	return c
}

// OrFilter adds a new, independent OR-connective filter cage (spec §9:
// cages with OR connective and >=2 conditions are parenthesized).
func (c *Command) OrFilter(column string, op Operator, value Value) *Command {
	c.Cages = append(c.Cages, Cage{
		Kind:      CageFilter,
		LogicalOp: LogicalOr,
		Conditions: []Condition{{Left: NamedExpr(column), Op: op, Value: value}},
	})
	return c
}

// WhereEq is shorthand for Filter(column, OpEq, value).
func (c *Command) WhereEq(column string, value Value) *Command {
	return c.Filter(column, OpEq, value)
}

// ArrayUnnestFilter adds a filter on col[*] (spec §4.D "array-unnest filter").
func (c *Command) ArrayUnnestFilter(column string, op Operator, value Value) *Command {
	cond := Condition{Left: NamedExpr(column), Op: op, Value: value, IsArrayUnnest: true}
	c.Cages = append(c.Cages, Cage{Kind: CageFilter, LogicalOp: LogicalAnd, Conditions: []Condition{cond}})
	return c
}

// OrderBy appends a Sort cage.
func (c *Command) OrderBy(column string, order SortOrder) *Command {
	c.Cages = append(c.Cages, Cage{
		Kind:      CageSort,
		SortOrder: order,
		LogicalOp: LogicalAnd,
		Conditions: []Condition{{Left: NamedExpr(column)}},
	})
	return c
}

// OrderByExpr is OrderBy for an arbitrary expression (e.g. CASE WHEN).
func (c *Command) OrderByExpr(e Expr, order SortOrder) *Command {
	c.Cages = append(c.Cages, Cage{
		Kind:      CageSort,
		SortOrder: order,
		LogicalOp: LogicalAnd,
		Conditions: []Condition{{Left: e}},
	})
	return c
}

// Limit appends a Limit cage.
func (c *Command) Limit(n int64) *Command {
	c.Cages = append(c.Cages, Cage{Kind: CageLimit, Limit: n})
	return c
}

// Offset appends an Offset cage.
func (c *Command) Offset(n int64) *Command {
	c.Cages = append(c.Cages, Cage{Kind: CageOffset, Offset: n})
	return c
}

// SampleCage appends a TABLESAMPLE cage (bernoulli percent).
func (c *Command) SampleCage(percent float64) *Command {
	c.Cages = append(c.Cages, Cage{Kind: CageSample, SamplePercent: percent})
	return c
}

// GroupBy appends a Partition cage used to render GROUP BY keys explicitly,
// in addition to the auto-grouped non-aggregate projections (spec §4.D step 6).
func (c *Command) GroupBy(cols ...string) *Command {
	conds := make([]Condition, len(cols))
	for i, col := range cols {
		conds[i] = Condition{Left: NamedExpr(col)}
	}
	c.Cages = append(c.Cages, Cage{Kind: CagePartition, Conditions: conds, LogicalOp: LogicalAnd})
	return c
}

// GroupByExpr is GroupBy for arbitrary expressions.
func (c *Command) GroupByExpr(exprs ...Expr) *Command {
	conds := make([]Condition, len(exprs))
	for i, e := range exprs {
		conds[i] = Condition{Left: e}
	}
	c.Cages = append(c.Cages, Cage{Kind: CagePartition, Conditions: conds, LogicalOp: LogicalAnd})
	return c
}

// HavingCond appends a HAVING condition.
func (c *Command) HavingCond(cond Condition) *Command {
	c.Having = append(c.Having, cond)
	return c
}

// Qualify appends a QUALIFY cage (Snowflake/BigQuery window-result filter).
func (c *Command) Qualify(cond Condition) *Command {
	cage := c.findOrAppendCage(CageQualify, LogicalAnd)
	cage.Conditions = append(cage.Conditions, cond)
	return c
}

// WithDistinct sets the DISTINCT flag.
func (c *Command) WithDistinct() *Command {
	c.Distinct = true
	return c
}

// DistinctOnCols sets DISTINCT ON (Postgres-specific).
func (c *Command) DistinctOnCols(cols ...string) *Command {
	exprs := make([]Expr, len(cols))
	for i, col := range cols {
		exprs[i] = NamedExpr(col)
	}
	c.DistinctOn = exprs
	return c
}

// Join appends a join clause with an explicit ON condition.
func (c *Command) Join(kind JoinKind, table, leftCol, rightCol string) *Command {
	c.Joins = append(c.Joins, Join{
		Kind: kind, Table: table,
		On: []Condition{{Left: NamedExpr(leftCol), Op: OpEq, Value: ColumnValue(rightCol)}},
	})
	return c
}

// JoinAs is Join with an explicit alias for the joined table.
func (c *Command) JoinAs(kind JoinKind, table, alias, leftCol, rightCol string) *Command {
	c.Joins = append(c.Joins, Join{
		Kind: kind, Table: table, Alias: alias,
		On: []Condition{{Left: NamedExpr(leftCol), Op: OpEq, Value: ColumnValue(rightCol)}},
	})
	return c
}

// LeftJoin is shorthand for Join(JoinLeft, ...).
func (c *Command) LeftJoin(table, leftCol, rightCol string) *Command {
	return c.Join(JoinLeft, table, leftCol, rightCol)
}

// InnerJoin is shorthand for Join(JoinInner, ...).
func (c *Command) InnerJoin(table, leftCol, rightCol string) *Command {
	return c.Join(JoinInner, table, leftCol, rightCol)
}

// WithReturning sets an explicit RETURNING column list.
func (c *Command) WithReturning(cols ...string) *Command {
	exprs := make([]Expr, len(cols))
	for i, col := range cols {
		exprs[i] = NamedExpr(col)
	}
	c.Returning = &exprs
	return c
}

// ReturningAll sets RETURNING *.
func (c *Command) ReturningAll() *Command {
	exprs := []Expr{StarExpr()}
	c.Returning = &exprs
	return c
}

// SuppressReturning sets Some(empty) — no RETURNING clause at all, overriding
// the mutation default of RETURNING *.
func (c *Command) SuppressReturning() *Command {
	exprs := []Expr{}
	c.Returning = &exprs
	return c
}

// Values appends a Payload cage of positional values for an INSERT.
func (c *Command) Values(vals ...Value) *Command {
	conds := make([]Condition, len(vals))
	for i, v := range vals {
		conds[i] = Condition{Value: v}
	}
	c.Cages = append(c.Cages, Cage{Kind: CagePayload, Conditions: conds, LogicalOp: LogicalAnd})
	return c
}

// SetValue appends one column=value assignment to the command's single
// Payload cage (for SET/UPDATE and upsert DO UPDATE assignments), creating
// the cage on first use.
func (c *Command) SetValue(column string, value Value) *Command {
	cage := c.findOrAppendCage(CagePayload, LogicalAnd)
	cage.Conditions = append(cage.Conditions, Condition{Left: NamedExpr(column), Op: OpEq, Value: value})
	return c
}

// WithOnConflict sets the ON CONFLICT clause for an upsert.
func (c *Command) WithOnConflict(oc OnConflict) *Command {
	c.OnConflict = &oc
	return c
}

// FromSelect sets the source_query for an INSERT ... SELECT. The payload
// cage MUST be absent in this case (spec §3.1 invariant).
func (c *Command) FromSelect(sub *Command) *Command {
	c.SourceQuery = sub
	return c
}

// WithLock sets the row-locking clause.
func (c *Command) WithLock(mode LockMode) *Command {
	c.LockMode = mode
	return c
}

// AsCTE wraps the receiver as the base query of a new CTE named name,
// returning a fresh command whose only content is the CTE definition
// (mirrors the original's as_cte, which boxes the receiver as base_query).
func (c *Command) AsCTE(name string) *Command {
	cols := []string{}
	for _, p := range c.Projections {
		if a := p.ExprAlias(); a != "" {
			cols = append(cols, a)
		}
	}
	return &Command{
		Action: ActionWith,
		Table:  name,
		CTEs: []CTEDef{{
			Name:      name,
			BaseQuery: c,
			Columns:   nil, // only set when explicitly provided, per spec §9
		}},
	}
}

// Recursive marks the last-added CTE recursive and attaches its recursive
// query.
func (c *Command) Recursive(recursivePart *Command) *Command {
	if len(c.CTEs) == 0 {
		return c
	}
	last := &c.CTEs[len(c.CTEs)-1]
	last.Recursive = true
	last.RecursiveQuery = recursivePart
	return c
}

// FromCTE sets the source table for the recursive self-join.
func (c *Command) FromCTE(cteName string) *Command {
	if len(c.CTEs) == 0 {
		return c
	}
	c.CTEs[len(c.CTEs)-1].SourceTable = cteName
	return c
}

// SelectFromCTE finishes a CTE chain with a final SELECT over it.
func (c *Command) SelectFromCTE(cols ...string) *Command {
	return c.Columns(cols...)
}

// UnionWith appends a set operation.
func (c *Command) UnionWith(op SetOpKind, other *Command) *Command {
	c.SetOps = append(c.SetOps, SetOperation{Op: op, Cmd: other})
	return c
}

// TableAlias sets an alias for the main table, rendered as "table alias".
func (c *Command) TableAlias(alias string) *Command {
	c.Table = c.Table + " " + alias
	return c
}

// payloadCage returns the single Payload cage, or nil.
func (c *Command) payloadCage() *Cage {
	for i := range c.Cages {
		if c.Cages[i].Kind == CagePayload {
			return &c.Cages[i]
		}
	}
	return nil
}

// filterCages returns every Filter cage in declaration order.
func (c *Command) filterCages() []Cage {
	var out []Cage
	for _, cage := range c.Cages {
		if cage.Kind == CageFilter {
			out = append(out, cage)
		}
	}
	return out
}

// Validate checks the structural invariants from spec §3.1 that do not
// require a schema catalog (those live in package schema).
func (c *Command) Validate() error {
	payloads := 0
	for _, cage := range c.Cages {
		if cage.Kind == CagePayload {
			payloads++
		}
	}
	switch c.Action {
	case ActionAdd:
		if c.SourceQuery != nil && payloads != 0 {
			return &ConfigError{Message: "ADD with source_query must not also carry a Payload cage"}
		}
		if c.SourceQuery == nil && payloads != 1 {
			return &ConfigError{Message: "ADD without source_query must carry exactly one Payload cage"}
		}
	case ActionSet:
		if payloads != 1 {
			return &ConfigError{Message: "SET must carry exactly one Payload cage"}
		}
	}
	if c.OnConflict != nil {
		inserted := map[string]bool{}
		if cage := c.payloadCage(); cage != nil {
			for _, cond := range cage.Conditions {
				if cond.Left.Kind == ExprNamed {
					inserted[cond.Left.Name] = true
				}
			}
		}
		for _, col := range c.OnConflict.Columns {
			if !inserted[col] {
				return &ConfigError{Message: "ON CONFLICT target column " + col + " is not among inserted columns"}
			}
		}
	}
	for _, cte := range c.CTEs {
		if cte.Recursive && cte.RecursiveQuery == nil {
			return &ConfigError{Message: "recursive CTE " + cte.Name + " is missing its recursive query"}
		}
	}
	return nil
}
