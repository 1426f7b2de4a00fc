package parser

import (
	"testing"

	"github.com/qail-lang/qail"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSimpleSelect(t *testing.T) {
	cmd, err := Parse("get users fields id, email where active = true order by created_at desc limit 10")
	require.NoError(t, err)
	assert.Equal(t, qail.ActionGet, cmd.Action)
	assert.Equal(t, "users", cmd.Table)
	require.Len(t, cmd.Projections, 2)
	assert.Equal(t, "id", cmd.Projections[0].Name)
	assert.Equal(t, "email", cmd.Projections[1].Name)

	var filter *qail.Cage
	var sort *qail.Cage
	var limit *qail.Cage
	for i := range cmd.Cages {
		switch cmd.Cages[i].Kind {
		case qail.CageFilter:
			filter = &cmd.Cages[i]
		case qail.CageSort:
			sort = &cmd.Cages[i]
		case qail.CageLimit:
			limit = &cmd.Cages[i]
		}
	}
	require.NotNil(t, filter)
	require.Len(t, filter.Conditions, 1)
	assert.Equal(t, "active", filter.Conditions[0].Left.Name)
	assert.Equal(t, qail.OpEq, filter.Conditions[0].Op)
	assert.Equal(t, qail.ValBool, filter.Conditions[0].Value.Kind)
	assert.True(t, filter.Conditions[0].Value.Bool)

	require.NotNil(t, sort)
	assert.Equal(t, qail.SortDesc, sort.SortOrder)

	require.NotNil(t, limit)
	assert.Equal(t, int64(10), limit.Limit)
}

func TestParseUpdateWithParam(t *testing.T) {
	cmd, err := Parse("set users values verified = true where id = $1")
	require.NoError(t, err)
	assert.Equal(t, qail.ActionSet, cmd.Action)

	var payload *qail.Cage
	var filter *qail.Cage
	for i := range cmd.Cages {
		switch cmd.Cages[i].Kind {
		case qail.CagePayload:
			payload = &cmd.Cages[i]
		case qail.CageFilter:
			filter = &cmd.Cages[i]
		}
	}
	require.NotNil(t, payload)
	require.Len(t, payload.Conditions, 1)
	assert.Equal(t, "verified", payload.Conditions[0].Left.Name)
	assert.True(t, payload.Conditions[0].Value.Bool)

	require.NotNil(t, filter)
	require.Len(t, filter.Conditions, 1)
	assert.Equal(t, "id", filter.Conditions[0].Left.Name)
	assert.Equal(t, qail.ValParam, filter.Conditions[0].Value.Kind)
	assert.Equal(t, 1, filter.Conditions[0].Value.ParamIdx)
}

func TestParseOrAndGroupsIntoSeparateCages(t *testing.T) {
	cmd, err := Parse("get events where kind = 'click' or kind = 'view' and active = true")
	require.NoError(t, err)

	var filterCages []qail.Cage
	for _, cage := range cmd.Cages {
		if cage.Kind == qail.CageFilter {
			filterCages = append(filterCages, cage)
		}
	}
	require.Len(t, filterCages, 2)
	assert.Equal(t, qail.LogicalOr, filterCages[0].LogicalOp)
	assert.Equal(t, qail.LogicalAnd, filterCages[1].LogicalOp)
}

func TestParseJoinOnCondition(t *testing.T) {
	cmd, err := Parse("get orders join users on orders.user_id = users.id fields orders.id")
	require.NoError(t, err)
	require.Len(t, cmd.Joins, 1)
	assert.Equal(t, qail.JoinInner, cmd.Joins[0].Kind)
	assert.Equal(t, "users", cmd.Joins[0].Table)
	require.Len(t, cmd.Joins[0].On, 1)
}

func TestParseErrorCarriesPosition(t *testing.T) {
	_, err := Parse("get users fields id where")
	require.Error(t, err)
	var pe *qail.ParseError
	require.ErrorAs(t, err, &pe)
	assert.Greater(t, pe.Position, 0)
}

func TestFormatRoundTrip(t *testing.T) {
	cmd := qail.Get("users").
		Columns("id", "email").
		Filter("active", qail.OpEq, qail.BoolValue(true)).
		OrderBy("created_at", qail.SortDesc).
		Limit(10)

	text, err := Format(cmd)
	require.NoError(t, err)

	reparsed, err := Parse(text)
	require.NoError(t, err)
	assert.Equal(t, cmd.Action, reparsed.Action)
	assert.Equal(t, cmd.Table, reparsed.Table)
	assert.Equal(t, len(cmd.Projections), len(reparsed.Projections))
	assert.Equal(t, len(cmd.Cages), len(reparsed.Cages))
}

func TestFormatRoundTripGroupByAndHaving(t *testing.T) {
	cmd := qail.Get("orders").
		Columns("status").
		GroupBy("status").
		HavingCond(qail.Condition{Left: qail.NamedExpr("status"), Op: qail.OpEq, Value: qail.StringValue("open")})

	text, err := Format(cmd)
	require.NoError(t, err)
	assert.Contains(t, text, "group by status")
	assert.Contains(t, text, "having status = ")

	reparsed, err := Parse(text)
	require.NoError(t, err)
	assert.Equal(t, cmd.Action, reparsed.Action)
	assert.Equal(t, cmd.Table, reparsed.Table)

	var partition *qail.Cage
	for i := range reparsed.Cages {
		if reparsed.Cages[i].Kind == qail.CagePartition {
			partition = &reparsed.Cages[i]
		}
	}
	require.NotNil(t, partition)
	require.Len(t, partition.Conditions, 1)
	assert.Equal(t, "status", partition.Conditions[0].Left.Name)

	require.Len(t, reparsed.Having, 1)
	assert.Equal(t, "status", reparsed.Having[0].Left.Name)
	assert.Equal(t, qail.OpEq, reparsed.Having[0].Op)
}
