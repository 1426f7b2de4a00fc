package migrate

import (
	"testing"

	"github.com/qail-lang/qail"
	"github.com/qail-lang/qail/transpile"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBootstrapCommandRendersExpectedDDL(t *testing.T) {
	cmd := BootstrapCommand()
	assert.Equal(t, qail.ActionMake, cmd.Action)
	assert.Equal(t, migrationsTable, cmd.Table)

	dialect, ok := transpile.ByName("postgres")
	require.True(t, ok)
	sql, err := transpile.Render(cmd, dialect)
	require.NoError(t, err)

	assert.Contains(t, sql, `CREATE TABLE "_qail_migrations"`)
	assert.Contains(t, sql, `"id" serial PRIMARY KEY NOT NULL`)
	assert.Contains(t, sql, `"version" varchar(255) NOT NULL UNIQUE`)
	assert.Contains(t, sql, `"applied_at" timestamptz DEFAULT NOW()`)
	assert.Contains(t, sql, `"sql_down" text`)
}

func TestInsertHistoryCommandOmitsSQLDownWhenEmpty(t *testing.T) {
	cmd := InsertHistoryCommand("20260731120000", "add users", "abc123", "CREATE TABLE users (...)", "")
	require.Len(t, cmd.Cages, 1)
	require.Len(t, cmd.Cages[0].Conditions, 4)
	assert.Equal(t, "sql_up", cmd.Projections[3].Name)
}

func TestInsertHistoryCommandIncludesSQLDownWhenProvided(t *testing.T) {
	cmd := InsertHistoryCommand("20260731120000", "add users", "abc123", "CREATE TABLE users (...)", "DROP TABLE users")
	require.Len(t, cmd.Cages, 1)
	require.Len(t, cmd.Cages[0].Conditions, 5)
	assert.Equal(t, "sql_down", cmd.Projections[4].Name)
}

func TestAppliedVersionsCommandSelectsVersionColumn(t *testing.T) {
	cmd := AppliedVersionsCommand()
	assert.Equal(t, qail.ActionGet, cmd.Action)
	require.Len(t, cmd.Projections, 1)
	assert.Equal(t, "version", cmd.Projections[0].Name)
}
