package qail

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ValueKind discriminates the closed sum of query values (spec §3.3).
type ValueKind int

const (
	ValNull ValueKind = iota
	ValBool
	ValInt
	ValFloat
	ValString
	ValUuid
	ValTimestamp
	ValInterval
	ValBytes
	ValVector
	ValArray
	ValParam
	ValNamedParam
	ValFunction
	ValColumn
	ValSubquery
	ValExpr
)

// Interval is an amount+unit pair, e.g. Interval{Amount: 3, Unit: "day"}.
type Interval struct {
	Amount float64
	Unit   string
}

// Value is a closed sum type carrying any literal, parameter, or nested
// query fragment that can appear on the right-hand side of a condition,
// an INSERT payload, or an ORDER BY/GROUP BY expression (spec §3.3).
//
// Only one of the typed fields is meaningful for a given Kind; Value is
// deliberately a plain struct rather than an interface so it can be
// copied cheaply while the AST is being built. Its slice fields make it
// not comparable with ==.
type Value struct {
	Kind ValueKind

	Bool     bool
	Int      int64
	Float    float64
	Str      string // also backs Function, Column, NamedParam
	Uuid     uuid.UUID
	Time     time.Time
	Interval Interval
	Bytes    []byte
	Vector   []float32
	Array    []Value
	ParamIdx int // 1-based, for Param
	Subquery *Command
	Expr     Expr
}

func NullValue() Value           { return Value{Kind: ValNull} }
func BoolValue(b bool) Value     { return Value{Kind: ValBool, Bool: b} }
func IntValue(i int64) Value     { return Value{Kind: ValInt, Int: i} }
func FloatValue(f float64) Value { return Value{Kind: ValFloat, Float: f} }
func StringValue(s string) Value { return Value{Kind: ValString, Str: s} }
func UuidValue(u uuid.UUID) Value { return Value{Kind: ValUuid, Uuid: u} }
func TimestampValue(t time.Time) Value { return Value{Kind: ValTimestamp, Time: t} }
func IntervalValue(amount float64, unit string) Value {
	return Value{Kind: ValInterval, Interval: Interval{Amount: amount, Unit: unit}}
}
func BytesValue(b []byte) Value    { return Value{Kind: ValBytes, Bytes: b} }
func VectorValue(v []float32) Value { return Value{Kind: ValVector, Vector: v} }
func ArrayValue(vs []Value) Value  { return Value{Kind: ValArray, Array: vs} }
func ParamValue(n int) Value       { return Value{Kind: ValParam, ParamIdx: n} }
func NamedParamValue(name string) Value { return Value{Kind: ValNamedParam, Str: name} }
func FunctionValue(raw string) Value    { return Value{Kind: ValFunction, Str: raw} }
func ColumnValue(name string) Value     { return Value{Kind: ValColumn, Str: name} }
func SubqueryValue(cmd *Command) Value  { return Value{Kind: ValSubquery, Subquery: cmd} }
func ExprValue(e Expr) Value            { return Value{Kind: ValExpr, Expr: e} }

// HasNullByte reports whether a String value contains a NUL byte, which
// the wire encoder must reject before any bytes reach the socket.
func (v Value) HasNullByte() bool {
	return v.Kind == ValString && strings.IndexByte(v.Str, 0) >= 0
}

// String renders a best-effort literal form, used by the non-parameterized
// transpiler path and in error messages. It is never used to build
// parameterized SQL sent to the server (see wireenc.Encoder).
func (v Value) String() string {
	switch v.Kind {
	case ValNull:
		return "NULL"
	case ValBool:
		if v.Bool {
			return "true"
		}
		return "false"
	case ValInt:
		return fmt.Sprintf("%d", v.Int)
	case ValFloat:
		return fmt.Sprintf("%g", v.Float)
	case ValString:
		return "'" + strings.ReplaceAll(v.Str, "'", "''") + "'"
	case ValUuid:
		return "'" + v.Uuid.String() + "'"
	case ValTimestamp:
		return "'" + v.Time.Format("2006-01-02 15:04:05.999999Z07:00") + "'"
	case ValInterval:
		return fmt.Sprintf("INTERVAL '%g %s'", v.Interval.Amount, v.Interval.Unit)
	case ValBytes:
		return fmt.Sprintf("'\\x%x'", v.Bytes)
	case ValVector:
		parts := make([]string, len(v.Vector))
		for i, f := range v.Vector {
			parts[i] = fmt.Sprintf("%g", f)
		}
		return "'[" + strings.Join(parts, ",") + "]'"
	case ValArray:
		parts := make([]string, len(v.Array))
		for i, e := range v.Array {
			parts[i] = e.String()
		}
		return "ARRAY[" + strings.Join(parts, ", ") + "]"
	case ValParam:
		return fmt.Sprintf("$%d", v.ParamIdx)
	case ValNamedParam:
		return ":" + v.Str
	case ValFunction:
		return v.Str
	case ValColumn:
		return v.Str
	case ValSubquery:
		return "(" + "<subquery>" + ")"
	case ValExpr:
		return v.Expr.String()
	}
	return ""
}
