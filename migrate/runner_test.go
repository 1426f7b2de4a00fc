package migrate

import (
	"context"
	"testing"

	"github.com/qail-lang/qail/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGroupPreviewBucketsByTableInFirstSeenOrder(t *testing.T) {
	report := Report{Changes: []BreakingChange{
		{Kind: DroppedColumn, Table: "orders", Column: "total"},
		{Kind: DroppedTable, Table: "legacy"},
		{Kind: NarrowedType, Table: "orders", Column: "qty"},
	}}

	groups := GroupPreview(report)
	require.Len(t, groups, 2)
	assert.Equal(t, "orders", groups[0].Table)
	assert.Len(t, groups[0].Changes, 2)
	assert.Equal(t, "legacy", groups[1].Table)
	assert.Len(t, groups[1].Changes, 1)
}

func TestUnsafeMigrationErrorMessageCountsChangesAndFiles(t *testing.T) {
	err := &UnsafeMigrationError{Report: Report{
		Changes:       []BreakingChange{{Kind: DroppedTable, Table: "legacy"}},
		AffectedFiles: []string{"a.go", "b.go"},
	}}
	assert.Contains(t, err.Error(), "1 breaking change")
	assert.Contains(t, err.Error(), "2 file")
}

func TestRunSkipsWhenSchemasAreIdentical(t *testing.T) {
	cat := schema.NewCatalog()
	cat.AddTable(schema.Table{Name: "users", Columns: []schema.Column{{Name: "id", Type: "bigint"}}})

	result, err := Run(context.Background(), nil, cat, cat, RunOptions{})
	require.NoError(t, err)
	assert.True(t, result.Skipped)
}

func TestRunRejectsUnsafeMigrationWithoutForce(t *testing.T) {
	old := schema.NewCatalog()
	old.AddTable(schema.Table{Name: "legacy"})
	new := schema.NewCatalog()

	_, err := Run(context.Background(), nil, old, new, RunOptions{})
	require.Error(t, err)
	var unsafeErr *UnsafeMigrationError
	assert.ErrorAs(t, err, &unsafeErr)
}
