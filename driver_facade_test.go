package qail

import (
	"testing"

	"github.com/qail-lang/qail/protocol"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsDMLClassifiesActionsCorrectly(t *testing.T) {
	assert.True(t, isDML(ActionGet))
	assert.True(t, isDML(ActionWith))
	assert.True(t, isDML(ActionSet))
	assert.True(t, isDML(ActionDel))
	assert.True(t, isDML(ActionAdd))
	assert.True(t, isDML(ActionPut))
	assert.False(t, isDML(ActionMake))
	assert.False(t, isDML(ActionDrop))
	assert.False(t, isDML(ActionAlter))
	assert.False(t, isDML(ActionExport))
}

func TestRenderForWireRoutesDMLThroughWireenc(t *testing.T) {
	cmd := Get("users").SelectAll()
	sql, params, err := renderForWire(cmd)
	require.NoError(t, err)
	assert.Contains(t, sql, "SELECT")
	assert.Contains(t, sql, "users")
	assert.Empty(t, params)
}

func TestRenderForWireHoistsLiteralsIntoParams(t *testing.T) {
	cmd := Get("users").SelectAll().WhereEq("id", IntValue(7))
	sql, params, err := renderForWire(cmd)
	require.NoError(t, err)
	assert.Contains(t, sql, "$1")
	require.Len(t, params, 1)
	assert.Equal(t, "7", string(params[0]))
}

func TestRenderForWireRoutesDDLThroughTranspile(t *testing.T) {
	cmd := Drop("users")
	sql, params, err := renderForWire(cmd)
	require.NoError(t, err)
	assert.Equal(t, `DROP TABLE "users"`, sql)
	assert.Nil(t, params)
}

func TestTranslatePgErrorPassesThroughNil(t *testing.T) {
	assert.NoError(t, translatePgError(nil))
}

func TestRowAccessorsHandleNull(t *testing.T) {
	r := Row{
		fields: nil,
		cols:   [][]byte{nil, []byte("42"), []byte("-13"), []byte("3.5"), []byte("t")},
	}
	assert.True(t, r.IsNull(0))
	assert.Equal(t, "", r.GetString(0))
	assert.Equal(t, int64(0), r.GetInt(0))
	assert.Equal(t, int64(42), r.GetInt(1))
	assert.Equal(t, int64(-13), r.GetInt(2))
	assert.Equal(t, 3.5, r.GetFloat(3))
	assert.True(t, r.GetBool(4))
}

func TestRowByNameFindsColumnIndex(t *testing.T) {
	r := Row{fields: []protocol.FieldDescription{{Name: "id"}, {Name: "name"}}}
	assert.Equal(t, 0, r.ByName("id"))
	assert.Equal(t, 1, r.ByName("name"))
	assert.Equal(t, -1, r.ByName("missing"))
}
