package qail

// Operator is the comparison/test operator carried by a Condition. The set
// is the union of spec.md §6.4's parser-level operators and the richer set
// reachable only by building the AST directly (original_source's
// transpiler/conditions.rs), per SPEC_FULL.md §10.
type Operator int

const (
	OpEq Operator = iota
	OpNe
	OpGt
	OpGte
	OpLt
	OpLte
	OpFuzzy // case-insensitive substring match (ILIKE / LIKE)
	OpIn
	OpNotIn
	OpIsNull
	OpIsNotNull
	OpBetween
	OpNotBetween
	OpContains   // JSON @>
	OpKeyExists  // JSON ?
	OpJsonExists // SQL/JSON JSON_EXISTS
	OpJsonQuery  // SQL/JSON JSON_QUERY
	OpJsonValue  // SQL/JSON JSON_VALUE
	OpExists     // EXISTS (subquery)
	OpNotExists
)

// IsSimpleBinary reports whether the operator renders as "<col> <sym> <val>"
// with no special-cased wrapping, mirroring Operator::is_simple_binary in
// the original transpiler.
func (op Operator) IsSimpleBinary() bool {
	switch op {
	case OpEq, OpNe, OpGt, OpGte, OpLt, OpLte:
		return true
	}
	return false
}

// SQLSymbol returns the infix operator token for simple binary operators.
func (op Operator) SQLSymbol() string {
	switch op {
	case OpEq:
		return "="
	case OpNe:
		return "!="
	case OpGt:
		return ">"
	case OpGte:
		return ">="
	case OpLt:
		return "<"
	case OpLte:
		return "<="
	}
	return "="
}

// LogicalOp is the connective joining the conditions within one Cage.
type LogicalOp int

const (
	LogicalAnd LogicalOp = iota
	LogicalOr
)

// Condition is one "<left> <op> <value>" test. Left is almost always
// Expr{Kind: ExprNamed} (a column reference possibly in raw-SQL "{...}"
// form or JSON-path form) but can be any expression for aggregates,
// function results, or JSON accessors.
type Condition struct {
	Left          Expr
	Op            Operator
	Value         Value
	IsArrayUnnest bool // true when the condition targets col[*]
}

func (c Condition) String() string {
	return c.Left.String() + " " + c.Op.SQLSymbol() + " " + c.Value.String()
}

// CageKind discriminates the structural clause a Cage attaches to a
// command: Filter, Payload, Sort, Limit, Offset, Sample, Qualify, Partition.
type CageKind int

const (
	CageFilter CageKind = iota
	CagePayload
	CageSort
	CageLimit
	CageOffset
	CageSample
	CageQualify
	CagePartition
)

// SortOrder is Asc or Desc for a Sort cage.
type SortOrder int

const (
	SortAsc SortOrder = iota
	SortDesc
)

// SortKey pairs an expression with a direction, used both by Sort cages
// and by Window/OVER clauses' own ORDER BY.
type SortKey struct {
	Expr  Expr
	Order SortOrder
}

// Cage is one structural clause: a Filter, Payload, Sort(order), Limit(n),
// Offset(n), Sample(percent), Qualify, or Partition, carrying its own
// conditions and logical connective (spec §3.1).
type Cage struct {
	Kind       CageKind
	Conditions []Condition
	LogicalOp  LogicalOp

	// Populated only for the kind that needs it.
	SortOrder     SortOrder // CageSort
	Limit         int64     // CageLimit
	Offset        int64     // CageOffset
	SamplePercent float64   // CageSample
}

// JoinKind is the join type: INNER, LEFT, RIGHT, or LATERAL.
type JoinKind int

const (
	JoinInner JoinKind = iota
	JoinLeft
	JoinRight
	JoinLateral
)

func (k JoinKind) String() string {
	switch k {
	case JoinInner:
		return "INNER"
	case JoinLeft:
		return "LEFT"
	case JoinRight:
		return "RIGHT"
	case JoinLateral:
		return "LATERAL"
	}
	return "INNER"
}

// Join is one join clause. If On is non-empty it is used verbatim; else if
// OnTrue is set the join condition is "ON TRUE"; otherwise the transpiler
// falls back to the documented singular-table-name heuristic (spec §4.D
// step 4, §9 Design Notes).
type Join struct {
	Kind   JoinKind
	Table  string
	Alias  string
	On     []Condition
	OnTrue bool
}

// GroupByMode controls ROLLUP/CUBE wrapping of the auto-derived GROUP BY.
type GroupByMode int

const (
	GroupBySimple GroupByMode = iota
	GroupByRollup
	GroupByCube
)

// SetOpKind is UNION, UNION ALL, INTERSECT, or EXCEPT.
type SetOpKind int

const (
	SetUnion SetOpKind = iota
	SetUnionAll
	SetIntersect
	SetExcept
)

// SetOperation pairs a set-operator with the command it combines with.
type SetOperation struct {
	Op  SetOpKind
	Cmd *Command
}

// CTEDef is one WITH [RECURSIVE] definition.
type CTEDef struct {
	Name            string
	Recursive       bool
	Columns         []string // only emitted when explicitly provided, per spec §9
	BaseQuery       *Command
	RecursiveQuery  *Command
	SourceTable     string
}

// ConflictActionKind is DoNothing or DoUpdate for an ON CONFLICT clause.
type ConflictActionKind int

const (
	ConflictDoNothing ConflictActionKind = iota
	ConflictDoUpdate
)

// Assignment is one "<column> = <value-expr>" pair, used by ON CONFLICT DO
// UPDATE and by UPDATE's own SET list (via the Payload cage).
type Assignment struct {
	Column string
	Value  Expr
}

// OnConflict is the ON CONFLICT clause for an INSERT (spec §3.1).
type OnConflict struct {
	Columns []string
	Action  ConflictActionKind
	Updates []Assignment // only used when Action == ConflictDoUpdate
}

// LockMode is a row-locking clause: FOR UPDATE | NO KEY UPDATE | SHARE | KEY SHARE.
type LockMode int

const (
	LockNone LockMode = iota
	LockForUpdate
	LockNoKeyUpdate
	LockForShare
	LockForKeyShare
)

func (m LockMode) String() string {
	switch m {
	case LockForUpdate:
		return "FOR UPDATE"
	case LockNoKeyUpdate:
		return "FOR NO KEY UPDATE"
	case LockForShare:
		return "FOR SHARE"
	case LockForKeyShare:
		return "FOR KEY SHARE"
	}
	return ""
}

// FetchClause is a FETCH FIRST/NEXT n ROWS [ONLY|WITH TIES] clause, used by
// dialects that render LIMIT this way (spec §4.D step 10).
type FetchClause struct {
	Count    int64
	WithTies bool
}

// TableSample is a TABLESAMPLE METHOD(pct) [REPEATABLE(seed)] spec.
type TableSample struct {
	Method  string // e.g. "BERNOULLI", "SYSTEM"
	Percent float64
	Seed    *int64
}

// IndexDef describes a CREATE INDEX command (for Action == Index).
type IndexDef struct {
	Name    string
	Table   string
	Columns []string
	Unique  bool
	Method  string // e.g. "btree", "gin", "hnsw" — empty means the dialect default
}

// TableConstraint is a table-level constraint on a CREATE TABLE (Make).
type TableConstraintKind int

const (
	ConstraintPrimaryKey TableConstraintKind = iota
	ConstraintUnique
	ConstraintForeignKey
	ConstraintCheck
)

type TableConstraint struct {
	Kind       TableConstraintKind
	Name       string
	Columns    []string
	RefTable   string   // ConstraintForeignKey
	RefColumns []string // ConstraintForeignKey
	CheckExpr  string   // ConstraintCheck
}

// ColumnDef is one column definition for a Make (CREATE TABLE) command.
type ColumnDef struct {
	Name       string
	Type       string
	Nullable   bool
	PrimaryKey bool
	Unique     bool
	HasDefault bool
	Default    string
}

// AlterKind discriminates the alteration an Alter/AlterDrop command performs.
type AlterKind int

const (
	AlterAddColumn AlterKind = iota
	AlterDropColumn
	AlterSetType
	AlterSetNotNull
	AlterDropNotNull
	AlterSetDefault
	AlterDropDefault
	AlterAddConstraint
	AlterDropConstraint
)

// AlterSpec describes one ALTER TABLE action.
type AlterSpec struct {
	Kind       AlterKind
	Column     ColumnDef
	ColumnName string
	Constraint TableConstraint
}
