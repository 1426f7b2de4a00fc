package wireenc

import (
	"testing"

	"github.com/qail-lang/qail"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeSimpleSelectHoistsLiteralAsParam(t *testing.T) {
	cmd := qail.Get("users").
		Columns("id", "email").
		Filter("active", qail.OpEq, qail.BoolValue(true)).
		Limit(10)

	var e Encoder
	require.NoError(t, e.Encode(cmd))
	assert.Equal(t, `SELECT "id", "email" FROM "users" WHERE "active" = $1 LIMIT 10`, e.SQL.String())
	require.Len(t, e.Params, 1)
	assert.Equal(t, []byte("t"), e.Params[0])
}

func TestEncodePreservesExplicitParamNumbering(t *testing.T) {
	cmd := qail.Set("users").
		SetValue("verified", qail.BoolValue(true)).
		Filter("id", qail.OpEq, qail.ParamValue(1))

	var e Encoder
	require.NoError(t, e.Encode(cmd))
	// SetValue's literal hoists to $2 since $1 is already claimed by the
	// explicit ParamValue in the filter.
	assert.Equal(t, `UPDATE "users" SET "verified" = $2 WHERE "id" = $1 RETURNING *`, e.SQL.String())
	require.Len(t, e.Params, 2)
	assert.Nil(t, e.Params[0]) // caller supplies $1 at Bind time
	assert.Equal(t, []byte("t"), e.Params[1])
}

func TestEncodeIntLiteralUsesPreInternedTable(t *testing.T) {
	cmd := qail.Get("events").Filter("priority", qail.OpEq, qail.IntValue(7))
	var e Encoder
	require.NoError(t, e.Encode(cmd))
	require.Len(t, e.Params, 1)
	assert.Equal(t, smallInts[7], string(e.Params[0]))
}

func TestEncodeRejectsNullByteInString(t *testing.T) {
	cmd := qail.Get("users").Filter("name", qail.OpEq, qail.StringValue("a\x00b"))
	var e Encoder
	err := e.Encode(cmd)
	require.Error(t, err)
	assert.Equal(t, qail.ErrNullByte, err)
}

func TestEncodeInsertValues(t *testing.T) {
	cmd := qail.Add("users").SetValue("email", qail.StringValue("a@b.com"))
	var e Encoder
	require.NoError(t, e.Encode(cmd))
	assert.Equal(t, `INSERT INTO "users" ("email") VALUES ($1) RETURNING *`, e.SQL.String())
	require.Len(t, e.Params, 1)
	assert.Equal(t, []byte("a@b.com"), e.Params[0])
}

func TestEncodeBytesValueUsesHexFormat(t *testing.T) {
	cmd := qail.Get("blobs").Filter("digest", qail.OpEq, qail.BytesValue([]byte{0xDE, 0xAD, 0xBE, 0xEF}))
	var e Encoder
	require.NoError(t, e.Encode(cmd))
	require.Len(t, e.Params, 1)
	assert.Equal(t, []byte(`\xdeadbeef`), e.Params[0])
}

func TestEncodeJoinExplicitOnColumnsMatchesTranspile(t *testing.T) {
	cmd := qail.Get("orders").Columns("id").Join(qail.JoinInner, "users", "user_id", "id")
	var e Encoder
	require.NoError(t, e.Encode(cmd))
	assert.Contains(t, e.SQL.String(), `INNER JOIN "users" ON "user_id" = "id"`)
}

func TestEncodeRawSQLEscapeHatch(t *testing.T) {
	cmd := qail.Get("users").Expr(qail.NamedExpr("{count(*) OVER ()}"))
	var e Encoder
	require.NoError(t, e.Encode(cmd))
	assert.Contains(t, e.SQL.String(), "count(*) OVER ()")
}

func TestEncodeJSONPathDisambiguation(t *testing.T) {
	cmd := qail.Get("events").Columns("payload.user.name")
	var e Encoder
	require.NoError(t, e.Encode(cmd))
	assert.Contains(t, e.SQL.String(), `"payload"->'user'->>'name'`)
}

func TestResetClearsBuffersForReuse(t *testing.T) {
	cmd := qail.Get("users").Filter("active", qail.OpEq, qail.BoolValue(true))
	var e Encoder
	require.NoError(t, e.Encode(cmd))
	require.NotEmpty(t, e.SQL.String())
	require.NotEmpty(t, e.Params)

	e.Reset()
	assert.Empty(t, e.SQL.String())
	assert.Empty(t, e.Params)

	require.NoError(t, e.Encode(cmd))
	assert.NotEmpty(t, e.SQL.String())
}

func TestEncodeDDLActionIsUnsupported(t *testing.T) {
	cmd := qail.Make("users")
	var e Encoder
	err := e.Encode(cmd)
	require.Error(t, err)
	var encErr *qail.EncodeError
	require.ErrorAs(t, err, &encErr)
	assert.Equal(t, qail.EncodeErrUnsupportedAction, encErr.Kind)
}
