package parser

import (
	"fmt"
	"strings"

	"github.com/qail-lang/qail"
)

var actionWords = map[qail.Action]string{
	qail.ActionGet: "get",
	qail.ActionAdd: "add",
	qail.ActionSet: "set",
	qail.ActionDel: "del",
}

// Format renders cmd back into QAIL keyword-syntax text, covering the
// subset the parser accepts: Get/Add/Set/Del with fields/where/group
// by/having/order by/limit/offset/values. Used by the property test that
// checks Parse(Format(cmd)) yields an equivalent command (spec §8
// property 1).
//
// Format deliberately does not cover Put, Make, Drop, Alter, Index, or
// With: the keyword grammar (spec §6.4) has no clause production for
// ON CONFLICT, CTE bodies, or column/alter/index definitions, so a
// *qail.Command built with those fields populated has no surface syntax
// to round-trip through in the first place — they are constructed and
// consumed directly as AST values (by the migrate package's differ and
// bootstrap) and never pass through Format/Parse. Property 1 is scoped
// to the four actions accordingly; see SPEC_FULL.md's testable
// properties section.
func Format(cmd *qail.Command) (string, error) {
	word, ok := actionWords[cmd.Action]
	if !ok {
		return "", fmt.Errorf("format: unsupported action %v for keyword syntax", cmd.Action)
	}
	var b strings.Builder
	b.WriteString(word)
	b.WriteByte(' ')
	b.WriteString(cmd.Table)

	for _, j := range cmd.Joins {
		b.WriteByte(' ')
		switch j.Kind {
		case qail.JoinLeft:
			b.WriteString("left join ")
		case qail.JoinRight:
			b.WriteString("right join ")
		case qail.JoinLateral:
			b.WriteString("lateral join ")
		default:
			b.WriteString("join ")
		}
		b.WriteString(j.Table)
		if j.OnTrue {
			b.WriteString(" on true")
		} else if len(j.On) > 0 {
			b.WriteString(" on ")
			formatConds(&b, j.On, qail.LogicalAnd)
		}
	}

	if len(cmd.Projections) > 0 {
		b.WriteString(" fields ")
		for i, p := range cmd.Projections {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(formatExpr(p))
		}
	}

	if payload := paymentCage(cmd); payload != nil && (cmd.Action == qail.ActionAdd || cmd.Action == qail.ActionSet) {
		b.WriteString(" values ")
		for i, cond := range payload.Conditions {
			if i > 0 {
				b.WriteString(", ")
			}
			fmt.Fprintf(&b, "%s = %s", cond.Left.String(), cond.Value.String())
		}
	}

	for _, cage := range cmd.Cages {
		switch cage.Kind {
		case qail.CageFilter:
			b.WriteString(" where ")
			formatConds(&b, cage.Conditions, cage.LogicalOp)
		}
	}
	for _, cage := range cmd.Cages {
		if cage.Kind == qail.CagePartition {
			b.WriteString(" group by ")
			for i, cond := range cage.Conditions {
				if i > 0 {
					b.WriteString(", ")
				}
				b.WriteString(cond.Left.String())
			}
		}
	}
	if len(cmd.Having) > 0 {
		b.WriteString(" having ")
		formatConds(&b, cmd.Having, qail.LogicalAnd)
	}
	for _, cage := range cmd.Cages {
		if cage.Kind == qail.CageSort {
			b.WriteString(" order by ")
			b.WriteString(cage.Conditions[0].Left.String())
			if cage.SortOrder == qail.SortDesc {
				b.WriteString(" desc")
			} else {
				b.WriteString(" asc")
			}
		}
	}
	for _, cage := range cmd.Cages {
		if cage.Kind == qail.CageLimit {
			fmt.Fprintf(&b, " limit %d", cage.Limit)
		}
		if cage.Kind == qail.CageOffset {
			fmt.Fprintf(&b, " offset %d", cage.Offset)
		}
	}
	return b.String(), nil
}

func paymentCage(cmd *qail.Command) *qail.Cage {
	for i := range cmd.Cages {
		if cmd.Cages[i].Kind == qail.CagePayload {
			return &cmd.Cages[i]
		}
	}
	return nil
}

func formatConds(b *strings.Builder, conds []qail.Condition, op qail.LogicalOp) {
	sep := " and "
	if op == qail.LogicalOr {
		sep = " or "
	}
	for i, c := range conds {
		if i > 0 {
			b.WriteString(sep)
		}
		switch c.Op {
		case qail.OpIsNull:
			fmt.Fprintf(b, "%s is null", c.Left.String())
		case qail.OpIsNotNull:
			fmt.Fprintf(b, "%s is not null", c.Left.String())
		default:
			fmt.Fprintf(b, "%s %s %s", c.Left.String(), c.Op.SQLSymbol(), c.Value.String())
		}
	}
}

func formatExpr(e qail.Expr) string {
	if e.Kind == qail.ExprStar {
		return "*"
	}
	return e.String()
}
