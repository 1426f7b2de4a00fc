package parser

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/qail-lang/qail"
)

// ParseError mirrors qail.ParseError; re-exported so callers that only
// import package parser still get a typed error with a byte offset.
type ParseError = qail.ParseError

type parser struct {
	toks []token
	pos  int
	src  string
}

// Parse turns QAIL v2 keyword-syntax source text into a *qail.Command
// (spec §4.B, §6.4). On success the returned command's cage order matches
// the order of clauses in the source text (spec §8 property 4).
func Parse(src string) (*qail.Command, error) {
	p := &parser{toks: lex(src), src: src}
	cmd, err := p.parseCommand()
	if err != nil {
		return nil, err
	}
	if p.cur().kind != tokEOF {
		return nil, &ParseError{Position: p.cur().pos, Message: fmt.Sprintf("unexpected trailing token %q", p.cur().text)}
	}
	return cmd, nil
}

func (p *parser) cur() token { return p.toks[p.pos] }

func (p *parser) advance() token {
	t := p.toks[p.pos]
	if p.pos < len(p.toks)-1 {
		p.pos++
	}
	return t
}

func (p *parser) errf(format string, args ...interface{}) error {
	return p.errWithSnippet(format, args...)
}

func (p *parser) isKeyword(kw string) bool {
	t := p.cur()
	return t.kind == tokIdent && strings.EqualFold(t.text, kw)
}

func (p *parser) eatKeyword(kw string) bool {
	if p.isKeyword(kw) {
		p.advance()
		return true
	}
	return false
}

func (p *parser) expectKeyword(kw string) error {
	if !p.eatKeyword(kw) {
		return p.errf("expected %q, got %q", kw, p.cur().text)
	}
	return nil
}

func (p *parser) expectPunct(s string) error {
	if p.cur().kind == tokPunct && p.cur().text == s {
		p.advance()
		return nil
	}
	return p.errf("expected %q, got %q", s, p.cur().text)
}

func (p *parser) parseCommand() (*qail.Command, error) {
	action, err := p.parseAction()
	if err != nil {
		return nil, err
	}

	switch action {
	case qail.ActionTxnBegin, qail.ActionTxnCommit, qail.ActionTxnRollback:
		return &qail.Command{Action: action}, nil
	}

	if p.cur().kind != tokIdent {
		return nil, p.errf("expected table name, got %q", p.cur().text)
	}
	table := p.advance().text

	cmd := &qail.Command{Action: action, Table: table}

	if err := p.parseJoins(cmd); err != nil {
		return nil, err
	}
	if err := p.parseClauses(cmd); err != nil {
		return nil, err
	}
	return cmd, nil
}

var actionKeywords = map[string]qail.Action{
	"get":      qail.ActionGet,
	"add":      qail.ActionAdd,
	"set":      qail.ActionSet,
	"del":      qail.ActionDel,
	"put":      qail.ActionPut,
	"make":     qail.ActionMake,
	"drop":     qail.ActionDrop,
	"alter":    qail.ActionAlter,
	"index":    qail.ActionIndex,
	"with":     qail.ActionWith,
	"begin":    qail.ActionTxnBegin,
	"commit":   qail.ActionTxnCommit,
	"rollback": qail.ActionTxnRollback,
}

func (p *parser) parseAction() (qail.Action, error) {
	if p.cur().kind != tokIdent {
		return 0, p.errf("expected an action keyword, got %q", p.cur().text)
	}
	name := strings.ToLower(p.cur().text)
	action, ok := actionKeywords[name]
	if !ok {
		return 0, p.errf("unknown action %q", p.cur().text)
	}
	p.advance()
	return action, nil
}

func (p *parser) parseJoins(cmd *qail.Command) error {
	for {
		kind := qail.JoinInner
		matched := true
		switch {
		case p.isKeyword("join"):
			p.advance()
		case p.isKeyword("inner") :
			p.advance()
			p.eatKeyword("join")
		case p.isKeyword("left"):
			p.advance()
			p.eatKeyword("join")
			kind = qail.JoinLeft
		case p.isKeyword("right"):
			p.advance()
			p.eatKeyword("join")
			kind = qail.JoinRight
		case p.isKeyword("lateral"):
			p.advance()
			p.eatKeyword("join")
			kind = qail.JoinLateral
		default:
			matched = false
		}
		if !matched {
			return nil
		}
		if p.cur().kind != tokIdent {
			return p.errf("expected joined table name, got %q", p.cur().text)
		}
		table := p.advance().text
		join := qail.Join{Kind: kind, Table: table}
		if p.eatKeyword("on") {
			if p.eatKeyword("true") {
				join.OnTrue = true
			} else {
				conds, _, err := p.parseCondList()
				if err != nil {
					return err
				}
				join.On = conds
			}
		}
		cmd.Joins = append(cmd.Joins, join)
	}
}

func (p *parser) parseClauses(cmd *qail.Command) error {
	for {
		switch {
		case p.isKeyword("fields"):
			p.advance()
			exprs, err := p.parseExprList()
			if err != nil {
				return err
			}
			cmd.Projections = append(cmd.Projections, exprs...)
		case p.isKeyword("values"):
			p.advance()
			if err := p.parseAssignList(cmd, qail.CagePayload); err != nil {
				return err
			}
		case p.isKeyword("where"):
			p.advance()
			conds, cages, err := p.parseCondList()
			if err != nil {
				return err
			}
			if len(cages) > 0 {
				cmd.Cages = append(cmd.Cages, cages...)
			} else if len(conds) > 0 {
				cmd.Cages = append(cmd.Cages, qail.Cage{Kind: qail.CageFilter, LogicalOp: qail.LogicalAnd, Conditions: conds})
			}
		case p.isKeyword("group"):
			p.advance()
			if err := p.expectKeyword("by"); err != nil {
				return err
			}
			cols, err := p.parseIdentList()
			if err != nil {
				return err
			}
			conds := make([]qail.Condition, len(cols))
			for i, c := range cols {
				conds[i] = qail.Condition{Left: qail.NamedExpr(c)}
			}
			cmd.Cages = append(cmd.Cages, qail.Cage{Kind: qail.CagePartition, LogicalOp: qail.LogicalAnd, Conditions: conds})
		case p.isKeyword("having"):
			p.advance()
			conds, _, err := p.parseCondList()
			if err != nil {
				return err
			}
			cmd.Having = append(cmd.Having, conds...)
		case p.isKeyword("order"):
			p.advance()
			if err := p.expectKeyword("by"); err != nil {
				return err
			}
			if err := p.parseSortList(cmd); err != nil {
				return err
			}
		case p.isKeyword("limit"):
			p.advance()
			n, err := p.parseIntLiteral()
			if err != nil {
				return err
			}
			cmd.Cages = append(cmd.Cages, qail.Cage{Kind: qail.CageLimit, Limit: n})
		case p.isKeyword("offset"):
			p.advance()
			n, err := p.parseIntLiteral()
			if err != nil {
				return err
			}
			cmd.Cages = append(cmd.Cages, qail.Cage{Kind: qail.CageOffset, Offset: n})
		default:
			return nil
		}
	}
}

func (p *parser) parseIdentList() ([]string, error) {
	var out []string
	for {
		if p.cur().kind != tokIdent {
			return nil, p.errf("expected identifier, got %q", p.cur().text)
		}
		out = append(out, p.advance().text)
		if p.cur().kind == tokPunct && p.cur().text == "," {
			p.advance()
			continue
		}
		return out, nil
	}
}

func (p *parser) parseSortList(cmd *qail.Command) error {
	for {
		if p.cur().kind != tokIdent {
			return p.errf("expected sort column, got %q", p.cur().text)
		}
		col := p.advance().text
		order := qail.SortAsc
		if p.eatKeyword("asc") {
			order = qail.SortAsc
		} else if p.eatKeyword("desc") {
			order = qail.SortDesc
		}
		cmd.Cages = append(cmd.Cages, qail.Cage{
			Kind: qail.CageSort, SortOrder: order, LogicalOp: qail.LogicalAnd,
			Conditions: []qail.Condition{{Left: qail.NamedExpr(col)}},
		})
		if p.cur().kind == tokPunct && p.cur().text == "," {
			p.advance()
			continue
		}
		return nil
	}
}

func (p *parser) parseIntLiteral() (int64, error) {
	if p.cur().kind != tokNumber {
		return 0, p.errf("expected integer, got %q", p.cur().text)
	}
	n, err := strconv.ParseInt(p.advance().text, 10, 64)
	if err != nil {
		return 0, p.errf("invalid integer literal: %v", err)
	}
	return n, nil
}

// parseExprList parses a comma-separated list of projection expressions:
// identifiers, "*", "name as alias", and simple func(args) calls.
func (p *parser) parseExprList() ([]qail.Expr, error) {
	var out []qail.Expr
	for {
		e, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		out = append(out, e)
		if p.cur().kind == tokPunct && p.cur().text == "," {
			p.advance()
			continue
		}
		return out, nil
	}
}

func (p *parser) parseExpr() (qail.Expr, error) {
	if p.cur().kind == tokPunct && p.cur().text == "*" {
		p.advance()
		return qail.StarExpr(), nil
	}
	if p.cur().kind != tokIdent {
		return qail.Expr{}, p.errf("expected expression, got %q", p.cur().text)
	}
	name := p.advance().text
	var e qail.Expr
	if p.cur().kind == tokPunct && p.cur().text == "(" {
		p.advance()
		var args []qail.Expr
		if !(p.cur().kind == tokPunct && p.cur().text == ")") {
			for {
				if p.cur().kind == tokPunct && p.cur().text == "*" {
					p.advance()
					args = append(args, qail.StarExpr())
				} else {
					a, err := p.parseExpr()
					if err != nil {
						return qail.Expr{}, err
					}
					args = append(args, a)
				}
				if p.cur().kind == tokPunct && p.cur().text == "," {
					p.advance()
					continue
				}
				break
			}
		}
		if err := p.expectPunct(")"); err != nil {
			return qail.Expr{}, err
		}
		e = qail.FunctionCallExpr(name, args, "")
	} else {
		e = qail.NamedExpr(name)
	}
	if p.eatKeyword("as") {
		if p.cur().kind != tokIdent {
			return qail.Expr{}, p.errf("expected alias after AS, got %q", p.cur().text)
		}
		alias := p.advance().text
		e = qail.AliasedExpr(e, alias)
	}
	return e, nil
}

var opKeywords = map[string]qail.Operator{
	"=":  qail.OpEq,
	"!=": qail.OpNe,
	"<":  qail.OpLt,
	"<=": qail.OpLte,
	">":  qail.OpGt,
	">=": qail.OpGte,
	"~":  qail.OpFuzzy,
}

// parseCondList parses one "where"/"having"/join-"on" condition list,
// grouping consecutive conditions under the connective that joins them
// into Cages. The cage model (spec §3.1) only represents a conjunction of
// uniform-connective groups, so a run of conditions joined by the same
// logical operator becomes one cage; a change of connective starts a new
// one. This mirrors the AND-by-default / OR-when-explicit construction the
// AST's builder methods already use (Filter vs OrFilter).
func (p *parser) parseCondList() ([]qail.Condition, []qail.Cage, error) {
	first, err := p.parseCondition()
	if err != nil {
		return nil, nil, err
	}
	conds := []qail.Condition{first}
	var cages []qail.Cage
	curOp := qail.LogicalAnd
	// opSet is false until a connective inside the current run has fixed
	// curOp; the first condition takes the connective that follows it.
	opSet := false
	flush := func(nextOp qail.LogicalOp) {
		cages = append(cages, qail.Cage{Kind: qail.CageFilter, LogicalOp: curOp, Conditions: conds})
		conds = nil
		curOp = nextOp
	}
	for {
		var nextOp qail.LogicalOp
		switch {
		case p.isKeyword("and"):
			p.advance()
			nextOp = qail.LogicalAnd
		case p.isKeyword("or"):
			p.advance()
			nextOp = qail.LogicalOr
		default:
			if len(conds) > 0 {
				cages = append(cages, qail.Cage{Kind: qail.CageFilter, LogicalOp: curOp, Conditions: conds})
			}
			if len(cages) == 1 {
				return cages[0].Conditions, nil, nil
			}
			return nil, cages, nil
		}
		c, err := p.parseCondition()
		if err != nil {
			return nil, nil, err
		}
		if opSet && nextOp != curOp {
			flush(nextOp)
		} else {
			curOp = nextOp
		}
		opSet = true
		conds = append(conds, c)
	}
}

func (p *parser) parseCondition() (qail.Condition, error) {
	left, err := p.parseExpr()
	if err != nil {
		return qail.Condition{}, err
	}
	if p.eatKeyword("is") {
		not := p.eatKeyword("not")
		if err := p.expectKeyword("null"); err != nil {
			return qail.Condition{}, err
		}
		op := qail.OpIsNull
		if not {
			op = qail.OpIsNotNull
		}
		return qail.Condition{Left: left, Op: op, Value: qail.NullValue()}, nil
	}
	if p.eatKeyword("between") {
		lo, err := p.parseValue()
		if err != nil {
			return qail.Condition{}, err
		}
		if err := p.expectKeyword("and"); err != nil {
			return qail.Condition{}, err
		}
		hi, err := p.parseValue()
		if err != nil {
			return qail.Condition{}, err
		}
		return qail.Condition{Left: left, Op: qail.OpBetween, Value: qail.ArrayValue([]qail.Value{lo, hi})}, nil
	}
	if p.eatKeyword("in") {
		if err := p.expectPunct("("); err != nil {
			return qail.Condition{}, err
		}
		var vals []qail.Value
		for {
			v, err := p.parseValue()
			if err != nil {
				return qail.Condition{}, err
			}
			vals = append(vals, v)
			if p.cur().kind == tokPunct && p.cur().text == "," {
				p.advance()
				continue
			}
			break
		}
		if err := p.expectPunct(")"); err != nil {
			return qail.Condition{}, err
		}
		return qail.Condition{Left: left, Op: qail.OpIn, Value: qail.ArrayValue(vals)}, nil
	}

	// symbolic operator
	tokText := p.cur().text
	op, ok := opKeywords[tokText]
	if !ok {
		return qail.Condition{}, p.errf("expected comparison operator, got %q", tokText)
	}
	p.advance()
	val, err := p.parseValue()
	if err != nil {
		return qail.Condition{}, err
	}
	return qail.Condition{Left: left, Op: op, Value: val}, nil
}

func (p *parser) parseValue() (qail.Value, error) {
	t := p.cur()
	switch t.kind {
	case tokParam:
		p.advance()
		n, _ := strconv.Atoi(t.text)
		return qail.ParamValue(n), nil
	case tokString:
		p.advance()
		return qail.StringValue(t.text), nil
	case tokNumber:
		p.advance()
		if strings.Contains(t.text, ".") {
			f, _ := strconv.ParseFloat(t.text, 64)
			return qail.FloatValue(f), nil
		}
		n, _ := strconv.ParseInt(t.text, 10, 64)
		return qail.IntValue(n), nil
	case tokIdent:
		switch strings.ToLower(t.text) {
		case "true":
			p.advance()
			return qail.BoolValue(true), nil
		case "false":
			p.advance()
			return qail.BoolValue(false), nil
		case "null":
			p.advance()
			return qail.NullValue(), nil
		default:
			// bare identifier on the RHS: a column reference (e.g. join ON)
			p.advance()
			return qail.ColumnValue(t.text), nil
		}
	}
	return qail.Value{}, p.errf("expected a value, got %q", t.text)
}

// parseAssignList parses "col = value, col2 = value2, ..." into a single
// cage of kind (Payload for SET/VALUES).
func (p *parser) parseAssignList(cmd *qail.Command, kind qail.CageKind) error {
	var conds []qail.Condition
	for {
		if p.cur().kind != tokIdent {
			return p.errf("expected column name, got %q", p.cur().text)
		}
		col := p.advance().text
		if err := p.expectPunct("="); err != nil {
			return err
		}
		val, err := p.parseValue()
		if err != nil {
			return err
		}
		conds = append(conds, qail.Condition{Left: qail.NamedExpr(col), Op: qail.OpEq, Value: val})
		if p.cur().kind == tokPunct && p.cur().text == "," {
			p.advance()
			continue
		}
		break
	}
	cmd.Cages = append(cmd.Cages, qail.Cage{Kind: kind, LogicalOp: qail.LogicalAnd, Conditions: conds})
	return nil
}
