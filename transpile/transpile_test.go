package transpile

import (
	"testing"

	"github.com/qail-lang/qail"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderSimpleSelectPostgres(t *testing.T) {
	cmd := qail.Get("users").
		Columns("id", "email").
		Filter("active", qail.OpEq, qail.BoolValue(true)).
		OrderBy("created_at", qail.SortDesc).
		Limit(10)

	d, ok := ByName("postgres")
	require.True(t, ok)
	sql, err := Render(cmd, d)
	require.NoError(t, err)
	assert.Equal(t, `SELECT "id", "email" FROM "users" WHERE "active" = true ORDER BY "created_at" DESC LIMIT 10`, sql)
}

func TestRenderUpdateWithParam(t *testing.T) {
	cmd := qail.Set("users").SetValue("verified", qail.BoolValue(true)).Filter("id", qail.OpEq, qail.ParamValue(1))
	d, _ := ByName("postgres")
	sql, err := Render(cmd, d)
	require.NoError(t, err)
	assert.Equal(t, `UPDATE "users" SET "verified" = true WHERE "id" = $1 RETURNING *`, sql)
}

func TestRenderOrGroupIsParenthesized(t *testing.T) {
	cmd := qail.Get("events").
		OrFilter("kind", qail.OpEq, qail.StringValue("click")).
		Filter("active", qail.OpEq, qail.BoolValue(true))
	cmd.Cages[0].Conditions = append(cmd.Cages[0].Conditions, qail.Condition{
		Left: qail.NamedExpr("kind"), Op: qail.OpEq, Value: qail.StringValue("view"),
	})

	d, _ := ByName("postgres")
	sql, err := Render(cmd, d)
	require.NoError(t, err)
	assert.Contains(t, sql, `("kind" = 'click' OR "kind" = 'view')`)
	assert.Contains(t, sql, `AND "active" = true`)
}

func TestRenderJoinExplicitOnColumns(t *testing.T) {
	cmd := qail.Get("orders").
		Columns("id").
		Join(qail.JoinInner, "users", "user_id", "id")
	d, _ := ByName("postgres")
	sql, err := Render(cmd, d)
	require.NoError(t, err)
	assert.Contains(t, sql, `INNER JOIN "users" ON "user_id" = "id"`)
}

func TestRenderArrayUnnestFilter(t *testing.T) {
	cmd := qail.Get("posts").ArrayUnnestFilter("tags", qail.OpEq, qail.StringValue("go"))
	d, _ := ByName("postgres")
	sql, err := Render(cmd, d)
	require.NoError(t, err)
	assert.Contains(t, sql, `EXISTS (SELECT 1 FROM unnest("tags") _el WHERE _el = 'go')`)
}

func TestFuzzyOperatorPerDialect(t *testing.T) {
	cmd := qail.Get("users").Filter("name", qail.OpFuzzy, qail.ParamValue(1))

	pg, _ := ByName("postgres")
	pgSQL, err := Render(cmd, pg)
	require.NoError(t, err)
	assert.Contains(t, pgSQL, `"name" ILIKE '%' || $1 || '%'`)

	mysql, _ := ByName("mysql")
	mysqlSQL, err := Render(cmd, mysql)
	require.NoError(t, err)
	assert.Contains(t, mysqlSQL, "`name` LIKE CONCAT('%', ?, '%')")
}

func TestAllTwelveDialectsRegistered(t *testing.T) {
	names := []string{
		"postgres", "mysql", "sqlite", "mssql", "oracle", "snowflake",
		"bigquery", "redshift", "clickhouse", "cockroachdb", "duckdb", "trino",
	}
	assert.Len(t, Registry, len(names))
	for _, n := range names {
		_, ok := ByName(n)
		assert.True(t, ok, "missing dialect %s", n)
	}
}

func TestMSSQLUsesFetchForLimit(t *testing.T) {
	cmd := qail.Get("users").Columns("id").Limit(5).Offset(10)
	d, _ := ByName("mssql")
	sql, err := Render(cmd, d)
	require.NoError(t, err)
	assert.Contains(t, sql, "OFFSET 10 ROWS FETCH NEXT 5 ROWS ONLY")
}

func TestRenderInsertWithOnConflict(t *testing.T) {
	cmd := qail.Add("users").
		SetValue("email", qail.StringValue("a@b.com")).
		WithOnConflict(qail.OnConflict{
			Columns: []string{"email"},
			Action:  qail.ConflictDoNothing,
		})
	d, _ := ByName("postgres")
	sql, err := Render(cmd, d)
	require.NoError(t, err)
	assert.Contains(t, sql, "ON CONFLICT (\"email\") DO NOTHING")
}

func TestJSONPathDisambiguation(t *testing.T) {
	cmd := qail.Get("events").Columns("payload.user.name")
	d, _ := ByName("postgres")
	sql, err := Render(cmd, d)
	require.NoError(t, err)
	assert.Contains(t, sql, `"payload"->'user'->>'name'`)
}

func TestRawSQLEscapeHatch(t *testing.T) {
	cmd := qail.Get("users").Expr(qail.NamedExpr("{count(*) OVER ()}"))
	d, _ := ByName("postgres")
	sql, err := Render(cmd, d)
	require.NoError(t, err)
	assert.Contains(t, sql, "count(*) OVER ()")
}
