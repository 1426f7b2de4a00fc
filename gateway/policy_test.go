package gateway

import (
	"testing"

	"github.com/qail-lang/qail"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func TestApplyPoliciesPassesThroughNonDMLActions(t *testing.T) {
	engine := NewPolicyEngine(PolicyDef{Name: "deny-all", Table: "*"})
	cmd := qail.Make("widgets")

	err := engine.ApplyPolicies(AuthContext{Role: "anon"}, cmd)
	require.NoError(t, err)
}

func TestApplyPoliciesDeniesOperationNotInAllowList(t *testing.T) {
	engine := NewPolicyEngine(PolicyDef{
		Name:       "read-only-orders",
		Table:      "orders",
		Operations: []OperationType{OpRead},
	})
	cmd := qail.Add("orders")

	err := engine.ApplyPolicies(AuthContext{UserID: "u1", Role: "customer"}, cmd)
	require.Error(t, err)
	var denied *AccessDeniedError
	require.ErrorAs(t, err, &denied)
	assert.Equal(t, OpCreate, denied.Operation)
}

func TestApplyPoliciesAllowsMatchingOperation(t *testing.T) {
	engine := NewPolicyEngine(PolicyDef{
		Name:       "read-only-orders",
		Table:      "orders",
		Operations: []OperationType{OpRead},
	})
	cmd := qail.Get("orders")

	err := engine.ApplyPolicies(AuthContext{Role: "customer"}, cmd)
	require.NoError(t, err)
}

func TestApplyPoliciesInjectsUserIDFilterAsNewCage(t *testing.T) {
	engine := NewPolicyEngine(PolicyDef{
		Name:           "own-rows-only",
		Table:          "orders",
		FilterTemplate: strPtr("owner_id = $user_id"),
	})
	cmd := qail.Get("orders")
	cmd.Cages = append(cmd.Cages, qail.Cage{Kind: qail.CageLimit, Limit: 10})

	err := engine.ApplyPolicies(AuthContext{UserID: "abc-123", Role: "customer"}, cmd)
	require.NoError(t, err)

	require.Len(t, cmd.Cages, 2)
	assert.Equal(t, qail.CageLimit, cmd.Cages[0].Kind, "existing cage must stay first")

	injected := cmd.Cages[1]
	assert.Equal(t, qail.CageFilter, injected.Kind)
	require.Len(t, injected.Conditions, 1)
	assert.Equal(t, "owner_id", injected.Conditions[0].Left.Name)
	assert.Equal(t, qail.OpEq, injected.Conditions[0].Op)
	assert.Equal(t, "abc-123", injected.Conditions[0].Value.Str)
}

func TestApplyPoliciesSubstitutesClaimsAndRole(t *testing.T) {
	engine := NewPolicyEngine(PolicyDef{
		Name:           "tenant-scoped",
		Table:          "invoices",
		FilterTemplate: strPtr("tenant_id != $tenant"),
	})
	cmd := qail.Get("invoices")

	auth := AuthContext{Role: "admin", Claims: map[string]string{"tenant": "acme"}}
	err := engine.ApplyPolicies(auth, cmd)
	require.NoError(t, err)

	require.Len(t, cmd.Cages, 1)
	cond := cmd.Cages[0].Conditions[0]
	assert.Equal(t, "tenant_id", cond.Left.Name)
	assert.Equal(t, qail.OpNe, cond.Op)
	assert.Equal(t, "acme", cond.Value.Str)
}

func TestApplyPoliciesRoleMismatchDoesNotMatch(t *testing.T) {
	engine := NewPolicyEngine(PolicyDef{
		Name:  "admin-only",
		Table: "orders",
		Role:  strPtr("admin"),
	})
	cmd := qail.Get("orders")

	err := engine.ApplyPolicies(AuthContext{Role: "customer"}, cmd)
	require.Error(t, err)
	var denied *AccessDeniedError
	require.ErrorAs(t, err, &denied)
	assert.Empty(t, denied.Policy, "secure-by-default denial carries no policy name")
}

func TestApplyPoliciesDeniesWhenNoPolicyMatchesAnyConfiguredTable(t *testing.T) {
	engine := NewPolicyEngine(PolicyDef{Name: "orders-policy", Table: "orders"})
	cmd := qail.Get("users")

	err := engine.ApplyPolicies(AuthContext{Role: "customer"}, cmd)
	require.Error(t, err)
}

func TestApplyPoliciesAllowsWhenNoPoliciesConfigured(t *testing.T) {
	engine := NewPolicyEngine()
	cmd := qail.Get("anything")

	err := engine.ApplyPolicies(AuthContext{Role: "customer"}, cmd)
	require.NoError(t, err)
}

func TestApplyPoliciesWildcardTableMatchesAnyTable(t *testing.T) {
	engine := NewPolicyEngine(PolicyDef{Name: "global-read", Table: "*", Operations: []OperationType{OpRead}})

	require.NoError(t, engine.ApplyPolicies(AuthContext{Role: "anyone"}, qail.Get("orders")))
	require.NoError(t, engine.ApplyPolicies(AuthContext{Role: "anyone"}, qail.Get("users")))
}
