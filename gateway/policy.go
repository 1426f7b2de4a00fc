package gateway

import (
	"fmt"
	"strings"

	"github.com/qail-lang/qail"
)

// OperationType is the CRUD shape a policy's Operations list restricts,
// independent of which qail.Action produced it.
type OperationType int

const (
	OpRead OperationType = iota
	OpCreate
	OpUpdate
	OpDelete
)

func (o OperationType) String() string {
	switch o {
	case OpRead:
		return "read"
	case OpCreate:
		return "create"
	case OpUpdate:
		return "update"
	case OpDelete:
		return "delete"
	}
	return "unknown"
}

// operationForAction maps the four DML actions onto the CRUD shape a
// policy can gate. Everything else (Make, Drop, Alter, Put, With,
// Index, Export, ...) returns ok=false and is never policy-gated.
func operationForAction(a qail.Action) (OperationType, bool) {
	switch a {
	case qail.ActionGet:
		return OpRead, true
	case qail.ActionAdd:
		return OpCreate, true
	case qail.ActionSet:
		return OpUpdate, true
	case qail.ActionDel:
		return OpDelete, true
	default:
		return 0, false
	}
}

// PolicyDef is one row of policy configuration: the table it governs
// (or "*" for every table), the role it applies to (nil matches any
// role), the operations it restricts access to (empty means any
// operation is allowed once matched), and an optional filter template
// injected into every matching command.
type PolicyDef struct {
	Name           string
	Table          string
	Role           *string
	Operations     []OperationType
	FilterTemplate *string
}

// PolicyEngine holds the configured policies and applies them to
// outgoing commands. Loading policies from a config file is out of
// scope; callers build the []PolicyDef slice however they like and
// pass it to NewPolicyEngine or AddPolicy.
type PolicyEngine struct {
	policies []PolicyDef
}

// NewPolicyEngine builds an engine from an initial policy set.
func NewPolicyEngine(policies ...PolicyDef) *PolicyEngine {
	return &PolicyEngine{policies: append([]PolicyDef(nil), policies...)}
}

// AddPolicy appends one policy to the engine.
func (e *PolicyEngine) AddPolicy(p PolicyDef) {
	e.policies = append(e.policies, p)
}

// AccessDeniedError reports why a command was rejected: either an
// explicit operation restriction or the secure-by-default fallback when
// policies are configured but none matched the command's table and role.
type AccessDeniedError struct {
	Table     string
	Operation OperationType
	Policy    string // empty for the secure-by-default fallback
}

func (e *AccessDeniedError) Error() string {
	if e.Policy != "" {
		return fmt.Sprintf("gateway: policy %q denies %s on %q", e.Policy, e.Operation, e.Table)
	}
	return fmt.Sprintf("gateway: no policy permits %s on %q", e.Operation, e.Table)
}

func tableMatches(policyTable, table string) bool {
	return policyTable == "*" || policyTable == table
}

func roleMatches(policyRole *string, role string) bool {
	return policyRole == nil || *policyRole == role
}

func operationAllowed(allowed []OperationType, op OperationType) bool {
	for _, a := range allowed {
		if a == op {
			return true
		}
	}
	return false
}

// ApplyPolicies walks the engine's policies in order against cmd:
// commands whose action carries no CRUD shape (DDL, index ops,
// exports) pass through untouched. For DML, every policy whose table
// and role match is
// checked for an operation restriction (AccessDeniedError on
// mismatch) and, if it carries a filter template, has that filter
// injected as a new Filter cage appended after the command's existing
// cages — never merged into one, never reordering what the caller
// already built. If the engine has any policies configured but none
// matched this command's table and role, the command is denied:
// secure by default.
func (e *PolicyEngine) ApplyPolicies(auth AuthContext, cmd *qail.Command) error {
	op, gated := operationForAction(cmd.Action)
	if !gated {
		return nil
	}

	matched := false
	for _, p := range e.policies {
		if !tableMatches(p.Table, cmd.Table) || !roleMatches(p.Role, auth.Role) {
			continue
		}
		matched = true

		if len(p.Operations) > 0 && !operationAllowed(p.Operations, op) {
			return &AccessDeniedError{Table: cmd.Table, Operation: op, Policy: p.Name}
		}

		if p.FilterTemplate != nil {
			cond, err := buildFilterCondition(*p.FilterTemplate, auth)
			if err != nil {
				return fmt.Errorf("gateway: policy %q: %w", p.Name, err)
			}
			cmd.Cages = append(cmd.Cages, qail.Cage{
				Kind:       qail.CageFilter,
				Conditions: []qail.Condition{cond},
				LogicalOp:  qail.LogicalAnd,
			})
		}
	}

	if !matched && len(e.policies) > 0 {
		return &AccessDeniedError{Table: cmd.Table, Operation: op}
	}
	return nil
}

// buildFilterCondition expands template's $user_id/$role/$<claim> markers
// against auth, then parses the resulting "column = value" or
// "column != value" expression into a qail.Condition. Only those two
// operators appear in filter templates.
func buildFilterCondition(template string, auth AuthContext) (qail.Condition, error) {
	expanded := expandFilterTemplate(template, auth)
	return parseFilterExpr(expanded)
}

func expandFilterTemplate(template string, auth AuthContext) string {
	result := strings.ReplaceAll(template, "$user_id", quoteLiteral(auth.UserID))
	result = strings.ReplaceAll(result, "$role", quoteLiteral(auth.Role))
	for key, value := range auth.Claims {
		result = strings.ReplaceAll(result, "$"+key, quoteLiteral(value))
	}
	return result
}

func quoteLiteral(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

func parseFilterExpr(expr string) (qail.Condition, error) {
	var op qail.Operator
	var left, right string

	switch {
	case strings.Contains(expr, "!="):
		op = qail.OpNe
		parts := strings.SplitN(expr, "!=", 2)
		left, right = parts[0], parts[1]
	case strings.Contains(expr, "="):
		op = qail.OpEq
		parts := strings.SplitN(expr, "=", 2)
		left, right = parts[0], parts[1]
	default:
		return qail.Condition{}, fmt.Errorf("filter template %q has no = or != operator", expr)
	}

	column := strings.TrimSpace(left)
	value := strings.Trim(strings.TrimSpace(right), "'")
	return qail.Condition{Left: qail.NamedExpr(column), Op: op, Value: qail.StringValue(value)}, nil
}
