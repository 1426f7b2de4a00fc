package schema

import (
	"testing"

	"github.com/qail-lang/qail"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testCatalog() *Catalog {
	cat := NewCatalog()
	cat.AddTable(Table{Name: "users", Columns: []Column{
		{Name: "id", Type: "uuid"},
		{Name: "email", Type: "text"},
		{Name: "active", Type: "bool"},
	}})
	cat.AddTable(Table{Name: "orders", Columns: []Column{
		{Name: "id", Type: "uuid"},
		{Name: "user_id", Type: "uuid"},
		{Name: "total", Type: "numeric"},
	}})
	return cat
}

func TestValidateTableSuggestsClosestName(t *testing.T) {
	cat := testCatalog()
	err := cat.ValidateTable("user")
	require.Error(t, err)
	var ute *qail.UnknownTableError
	require.ErrorAs(t, err, &ute)
	assert.Contains(t, ute.Suggestions, "users")
}

func TestValidateTableKnown(t *testing.T) {
	cat := testCatalog()
	assert.NoError(t, cat.ValidateTable("users"))
}

func TestValidateColumnSuggestsClosestName(t *testing.T) {
	cat := testCatalog()
	err := cat.ValidateColumn("users", "emial")
	require.Error(t, err)
	var uce *qail.UnknownColumnError
	require.ErrorAs(t, err, &uce)
	assert.Contains(t, uce.Suggestions, "email")
}

func TestValidateCommandWalksAllClauses(t *testing.T) {
	cat := testCatalog()
	cmd := qail.Get("users").
		Columns("id", "emial").
		LeftJoin("orders", "id", "user_id").
		Filter("actve", qail.OpEq, qail.BoolValue(true))

	errs := cat.ValidateCommand(cmd)
	require.Len(t, errs, 2)
	var uce1, uce2 *qail.UnknownColumnError
	require.ErrorAs(t, errs[0], &uce1)
	assert.Equal(t, "emial", uce1.Column)
	require.ErrorAs(t, errs[1], &uce2)
	assert.Equal(t, "actve", uce2.Column)
}

func TestDamerauLevenshteinTransposition(t *testing.T) {
	// a pure adjacent transposition must cost 1, not 2, which is the
	// whole reason this is Damerau- rather than plain Levenshtein.
	assert.Equal(t, 1, damerauLevenshtein("usres", "users"))
	assert.Equal(t, 1, damerauLevenshtein("user", "users"))
	assert.Equal(t, 0, damerauLevenshtein("users", "users"))
}

func TestTextFormatRoundTrip(t *testing.T) {
	src := `
table users (
    id uuid primary_key
    email text not_null unique
    active bool not_null default false
)
index users_email_idx on users (email) unique

table orders (
    id uuid primary_key
    user_id uuid not_null
)
`
	cat, err := ParseText(src)
	require.NoError(t, err)
	assert.Equal(t, []string{"users", "orders"}, cat.TableNames())

	usersTbl, ok := cat.Table("users")
	require.True(t, ok)
	assert.Len(t, usersTbl.Columns, 3)
	assert.False(t, usersTbl.Columns[1].Nullable)

	out := FormatText(cat)
	cat2, err := ParseText(out)
	require.NoError(t, err)
	assert.Equal(t, cat.TableNames(), cat2.TableNames())
}

func TestJSONFormatRoundTrip(t *testing.T) {
	cat := testCatalog()
	data, err := FormatJSON(cat)
	require.NoError(t, err)

	cat2, err := ParseJSON(data)
	require.NoError(t, err)
	tbl, ok := cat2.Table("users")
	require.True(t, ok)
	assert.Len(t, tbl.Columns, 3)
}

func TestParseJSONRejectsMalformedDocument(t *testing.T) {
	_, err := ParseJSON([]byte(`{"users": {"columns": "not-an-array"}}`))
	require.Error(t, err)
}
