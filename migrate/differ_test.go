package migrate

import (
	"testing"

	"github.com/qail-lang/qail"
	"github.com/qail-lang/qail/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiffEmitsCreateForNewTable(t *testing.T) {
	old := schema.NewCatalog()
	next := schema.NewCatalog()
	next.AddTable(schema.Table{Name: "users", Columns: []schema.Column{
		{Name: "id", Type: "bigint"},
		{Name: "name", Type: "text", Nullable: true},
	}})

	cmds := Diff(old, next)
	require.Len(t, cmds, 1)
	assert.Equal(t, qail.ActionMake, cmds[0].Action)
	assert.Equal(t, "users", cmds[0].Table)
	require.Len(t, cmds[0].Columns, 2)
	assert.Equal(t, "id", cmds[0].Columns[0].Name)
}

func TestDiffEmitsDropForRemovedTable(t *testing.T) {
	old := schema.NewCatalog()
	old.AddTable(schema.Table{Name: "legacy"})
	next := schema.NewCatalog()

	cmds := Diff(old, next)
	require.Len(t, cmds, 1)
	assert.Equal(t, qail.ActionDrop, cmds[0].Action)
	assert.Equal(t, "legacy", cmds[0].Table)
}

func TestDiffOrdersCreatesBeforeAltersBeforeDrops(t *testing.T) {
	old := schema.NewCatalog()
	old.AddTable(schema.Table{Name: "keep", Columns: []schema.Column{{Name: "id", Type: "bigint"}}})
	old.AddTable(schema.Table{Name: "gone"})

	next := schema.NewCatalog()
	next.AddTable(schema.Table{Name: "keep", Columns: []schema.Column{
		{Name: "id", Type: "bigint"},
		{Name: "email", Type: "text"},
	}})
	next.AddTable(schema.Table{Name: "fresh", Columns: []schema.Column{{Name: "id", Type: "bigint"}}})

	cmds := Diff(old, next)
	require.Len(t, cmds, 3)
	assert.Equal(t, qail.ActionMake, cmds[0].Action)
	assert.Equal(t, "fresh", cmds[0].Table)
	assert.Equal(t, qail.ActionAlter, cmds[1].Action)
	assert.Equal(t, "keep", cmds[1].Table)
	assert.Equal(t, qail.ActionDrop, cmds[2].Action)
	assert.Equal(t, "gone", cmds[2].Table)
}

func TestDiffTableBundlesColumnAddDropAndTypeChange(t *testing.T) {
	old := schema.Table{Name: "widgets", Columns: []schema.Column{
		{Name: "id", Type: "bigint"},
		{Name: "qty", Type: "int"},
		{Name: "old_col", Type: "text"},
	}}
	next := schema.Table{Name: "widgets", Columns: []schema.Column{
		{Name: "id", Type: "bigint"},
		{Name: "qty", Type: "bigint"},
		{Name: "new_col", Type: "text"},
	}}

	cmd := diffTable(old, next)
	require.NotNil(t, cmd)
	assert.Equal(t, qail.ActionAlter, cmd.Action)

	var kinds []qail.AlterKind
	for _, a := range cmd.Alters {
		kinds = append(kinds, a.Kind)
	}
	assert.Contains(t, kinds, qail.AlterAddColumn)
	assert.Contains(t, kinds, qail.AlterDropColumn)
	assert.Contains(t, kinds, qail.AlterSetType)
}

func TestDiffColumnEmitsDefaultAndConstraintChanges(t *testing.T) {
	old := schema.Column{Name: "status", Type: "text"}
	next := schema.Column{Name: "status", Type: "text", HasDefault: true, Default: "'pending'"}
	specs := diffColumn("orders", old, next)
	require.Len(t, specs, 1)
	assert.Equal(t, qail.AlterSetDefault, specs[0].Kind)
	assert.Equal(t, "'pending'", specs[0].Column.Default)

	specs = diffColumn("orders", next, old)
	require.Len(t, specs, 1)
	assert.Equal(t, qail.AlterDropDefault, specs[0].Kind)

	old = schema.Column{Name: "email", Type: "text"}
	next = schema.Column{Name: "email", Type: "text", Unique: true}
	specs = diffColumn("users", old, next)
	require.Len(t, specs, 1)
	assert.Equal(t, qail.AlterAddConstraint, specs[0].Kind)
	assert.Equal(t, qail.ConstraintUnique, specs[0].Constraint.Kind)
	assert.Equal(t, "users_email_key", specs[0].Constraint.Name)

	specs = diffColumn("users", next, old)
	require.Len(t, specs, 1)
	assert.Equal(t, qail.AlterDropConstraint, specs[0].Kind)
	assert.Equal(t, "users_email_key", specs[0].Constraint.Name)

	old = schema.Column{Name: "id", Type: "uuid"}
	next = schema.Column{Name: "id", Type: "uuid", PrimaryKey: true}
	specs = diffColumn("users", old, next)
	require.Len(t, specs, 1)
	assert.Equal(t, qail.AlterAddConstraint, specs[0].Kind)
	assert.Equal(t, qail.ConstraintPrimaryKey, specs[0].Constraint.Kind)
	assert.Equal(t, "users_pkey", specs[0].Constraint.Name)
}

func TestDiffTableReturnsNilWhenUnchanged(t *testing.T) {
	tbl := schema.Table{Name: "same", Columns: []schema.Column{{Name: "id", Type: "bigint"}}}
	assert.Nil(t, diffTable(tbl, tbl))
}

func TestDiffIndexesAddsAndDrops(t *testing.T) {
	old := schema.Table{Name: "t", Indexes: []schema.Index{{Name: "idx_old", Columns: []string{"a"}}}}
	next := schema.Table{Name: "t", Indexes: []schema.Index{{Name: "idx_new", Columns: []string{"b"}}}}

	cmds := diffIndexes(old, next)
	require.Len(t, cmds, 2)
	assert.Equal(t, qail.ActionIndex, cmds[0].Action)
	assert.Equal(t, "idx_new", cmds[0].IndexDef.Name)
	assert.Equal(t, qail.ActionDropIndex, cmds[1].Action)
	assert.Equal(t, "idx_old", cmds[1].IndexDef.Name)
}
