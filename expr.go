package qail

import (
	"fmt"
	"strings"
)

// ExprKind discriminates the Expression sum type (spec §3.2).
type ExprKind int

const (
	ExprNamed ExprKind = iota
	ExprStar
	ExprAliased
	ExprLiteral
	ExprBinary
	ExprFunctionCall
	ExprAggregate
	ExprWindow
	ExprCase
	ExprCast
	ExprJsonAccess
	ExprArrayConstructor
	ExprRowConstructor
	ExprSubscript
	ExprFieldAccess
	ExprCollate
	ExprSpecialFunction
)

// AggregateFunc is the function name used by an Aggregate expression.
type AggregateFunc int

const (
	AggCount AggregateFunc = iota
	AggSum
	AggAvg
	AggMin
	AggMax
	AggArrayAgg
	AggStringAgg
	AggJSONAgg
	AggBoolAnd
	AggBoolOr
)

func (f AggregateFunc) String() string {
	switch f {
	case AggCount:
		return "COUNT"
	case AggSum:
		return "SUM"
	case AggAvg:
		return "AVG"
	case AggMin:
		return "MIN"
	case AggMax:
		return "MAX"
	case AggArrayAgg:
		return "ARRAY_AGG"
	case AggStringAgg:
		return "STRING_AGG"
	case AggJSONAgg:
		return "JSON_AGG"
	case AggBoolAnd:
		return "BOOL_AND"
	case AggBoolOr:
		return "BOOL_OR"
	}
	return "COUNT"
}

// JSONPathSegment is one step of a JsonAccess path: a key (or, for arrays,
// an integer index rendered without quotes) and whether that step should
// use the "as text" (->>) operator rather than "as json" (->).
type JSONPathSegment struct {
	Key      string
	AsText   bool
}

// WindowFrame describes a ROWS/RANGE frame clause for a Window expression.
type WindowFrame struct {
	Mode       string // "ROWS" | "RANGE" | ""
	StartBound string
	EndBound   string
}

// CaseWhen is one WHEN <cond> THEN <result> arm of a Case expression.
type CaseWhen struct {
	Cond   Condition
	Result Expr
}

// Expr is the recursive sum type backing every projection, sort key, and
// condition left-hand side (spec §3.2). Like Value, it is a tagged struct
// rather than an interface hierarchy: the AST is meant to be built and
// walked cheaply without type assertions scattered across every consumer.
type Expr struct {
	Kind ExprKind

	Name  string // Named, FieldAccess (field name), Collate (collation name target)
	Alias string // Aliased, Binary, FunctionCall, Aggregate, Window, Case, Cast, JsonAccess, SpecialFunction

	// Aliased
	Inner *Expr

	// Literal
	Literal *Value

	// Binary
	Op    string
	Left  *Expr
	Right *Expr

	// FunctionCall / SpecialFunction
	FuncName string
	Args     []Expr

	// Aggregate
	AggCol      string
	AggFunc     AggregateFunc
	AggDistinct bool
	AggFilter   *Condition

	// Window
	WinFunc      string
	WinArgs      []Expr
	WinPartition []Expr
	WinOrder     []SortKey
	WinFrame     *WindowFrame

	// Case
	Whens []CaseWhen
	Else  *Expr

	// Cast
	CastType string

	// JsonAccess
	Column      string
	PathSegments []JSONPathSegment

	// ArrayConstructor / RowConstructor
	Elements []Expr

	// Subscript
	Index *Expr

	// Collate
	Collation string
}

func NamedExpr(name string) Expr { return Expr{Kind: ExprNamed, Name: name} }
func StarExpr() Expr             { return Expr{Kind: ExprStar} }
func AliasedExpr(inner Expr, alias string) Expr {
	return Expr{Kind: ExprAliased, Inner: &inner, Alias: alias}
}
func LiteralExpr(v Value) Expr { return Expr{Kind: ExprLiteral, Literal: &v} }
func BinaryExpr(op string, left, right Expr, alias string) Expr {
	return Expr{Kind: ExprBinary, Op: op, Left: &left, Right: &right, Alias: alias}
}
func FunctionCallExpr(name string, args []Expr, alias string) Expr {
	return Expr{Kind: ExprFunctionCall, FuncName: name, Args: args, Alias: alias}
}
func AggregateExpr(col string, fn AggregateFunc, distinct bool, filter *Condition, alias string) Expr {
	return Expr{Kind: ExprAggregate, AggCol: col, AggFunc: fn, AggDistinct: distinct, AggFilter: filter, Alias: alias}
}
func WindowExpr(name string, args []Expr, partition []Expr, order []SortKey, frame *WindowFrame, alias string) Expr {
	return Expr{Kind: ExprWindow, WinFunc: name, WinArgs: args, WinPartition: partition, WinOrder: order, WinFrame: frame, Alias: alias}
}
func CaseExpr(whens []CaseWhen, elseExpr *Expr, alias string) Expr {
	return Expr{Kind: ExprCase, Whens: whens, Else: elseExpr, Alias: alias}
}
func CastExpr(e Expr, typ string, alias string) Expr {
	return Expr{Kind: ExprCast, Inner: &e, CastType: typ, Alias: alias}
}
func JsonAccessExpr(column string, segments []JSONPathSegment, alias string) Expr {
	return Expr{Kind: ExprJsonAccess, Column: column, PathSegments: segments, Alias: alias}
}
func ArrayConstructorExpr(elements []Expr) Expr {
	return Expr{Kind: ExprArrayConstructor, Elements: elements}
}
func RowConstructorExpr(elements []Expr) Expr {
	return Expr{Kind: ExprRowConstructor, Elements: elements}
}
func SubscriptExpr(e Expr, index Expr) Expr {
	return Expr{Kind: ExprSubscript, Inner: &e, Index: &index}
}
func FieldAccessExpr(e Expr, field string) Expr {
	return Expr{Kind: ExprFieldAccess, Inner: &e, Name: field}
}
func CollateExpr(e Expr, collation string) Expr {
	return Expr{Kind: ExprCollate, Inner: &e, Collation: collation}
}
func SpecialFunctionExpr(name string, args []Expr, alias string) Expr {
	return Expr{Kind: ExprSpecialFunction, FuncName: name, Args: args, Alias: alias}
}

// ExprAlias returns the alias this expression renders as in a projection
// list, or "" when the expression is unaliased.
func (e Expr) ExprAlias() string {
	switch e.Kind {
	case ExprAliased, ExprBinary, ExprFunctionCall, ExprAggregate, ExprWindow, ExprCase, ExprCast, ExprJsonAccess, ExprSpecialFunction:
		return e.Alias
	case ExprNamed:
		return e.Name
	}
	return ""
}

// String renders a best-effort, dialect-agnostic textual form used for
// error messages and for the transpiler's own catalog of literal
// fallbacks; the transpiler package calls into the dialect generator
// for anything that needs correct quoting or placeholders.
func (e Expr) String() string {
	switch e.Kind {
	case ExprNamed:
		return e.Name
	case ExprStar:
		return "*"
	case ExprAliased:
		return fmt.Sprintf("%s AS %s", e.Inner.String(), e.Alias)
	case ExprLiteral:
		return e.Literal.String()
	case ExprBinary:
		return fmt.Sprintf("(%s %s %s)", e.Left.String(), e.Op, e.Right.String())
	case ExprFunctionCall:
		args := make([]string, len(e.Args))
		for i, a := range e.Args {
			args[i] = a.String()
		}
		s := fmt.Sprintf("%s(%s)", e.FuncName, strings.Join(args, ", "))
		if e.Alias != "" {
			s += " AS " + e.Alias
		}
		return s
	case ExprAggregate:
		distinct := ""
		if e.AggDistinct {
			distinct = "DISTINCT "
		}
		s := fmt.Sprintf("%s(%s%s)", e.AggFunc.String(), distinct, e.AggCol)
		if e.Alias != "" {
			s += " AS " + e.Alias
		}
		return s
	case ExprCase:
		var b strings.Builder
		b.WriteString("CASE")
		for _, w := range e.Whens {
			fmt.Fprintf(&b, " WHEN %s THEN %s", w.Cond.String(), w.Result.String())
		}
		if e.Else != nil {
			fmt.Fprintf(&b, " ELSE %s", e.Else.String())
		}
		b.WriteString(" END")
		if e.Alias != "" {
			b.WriteString(" AS " + e.Alias)
		}
		return b.String()
	case ExprCast:
		return fmt.Sprintf("CAST(%s AS %s)", e.Inner.String(), e.CastType)
	case ExprJsonAccess:
		s := e.Column
		for _, seg := range e.PathSegments {
			op := "->"
			if seg.AsText {
				op = "->>"
			}
			s += op + seg.Key
		}
		return s
	}
	return ""
}
