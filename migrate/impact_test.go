package migrate

import (
	"testing"

	"github.com/qail-lang/qail/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnalyzeFlagsDroppedTableAsBreaking(t *testing.T) {
	old := schema.NewCatalog()
	old.AddTable(schema.Table{Name: "legacy"})
	new := schema.NewCatalog()

	cmds := Diff(old, new)
	refs := []Reference{{File: "app.go", Line: 10, Table: "legacy", Action: "get"}}

	report := Analyze(cmds, refs, old, new)
	require.Len(t, report.Changes, 1)
	assert.Equal(t, DroppedTable, report.Changes[0].Kind)
	assert.False(t, report.SafeToRun)
	assert.Contains(t, report.AffectedFiles, "app.go")
}

func TestAnalyzeFlagsDroppedColumnOnlyForReferencingFiles(t *testing.T) {
	old := schema.NewCatalog()
	old.AddTable(schema.Table{Name: "users", Columns: []schema.Column{
		{Name: "id", Type: "bigint"}, {Name: "nickname", Type: "text"},
	}})
	new := schema.NewCatalog()
	new.AddTable(schema.Table{Name: "users", Columns: []schema.Column{
		{Name: "id", Type: "bigint"},
	}})

	cmds := Diff(old, new)
	refs := []Reference{
		{File: "a.go", Line: 1, Table: "users", Columns: []string{"nickname"}},
		{File: "b.go", Line: 2, Table: "users", Columns: []string{"id"}},
	}

	report := Analyze(cmds, refs, old, new)
	require.Len(t, report.Changes, 1)
	assert.Equal(t, DroppedColumn, report.Changes[0].Kind)
	require.Len(t, report.Changes[0].References, 1)
	assert.Equal(t, "a.go", report.Changes[0].References[0].File)
}

func TestAnalyzeReturnsSafeWhenNoBreakingChanges(t *testing.T) {
	old := schema.NewCatalog()
	new := schema.NewCatalog()
	new.AddTable(schema.Table{Name: "fresh", Columns: []schema.Column{{Name: "id", Type: "bigint"}}})

	report := Analyze(Diff(old, new), nil, old, new)
	assert.True(t, report.SafeToRun)
	assert.Empty(t, report.Changes)
}

func TestAnalyzeFlagsNarrowedType(t *testing.T) {
	old := schema.Table{Name: "t", Columns: []schema.Column{{Name: "id", Type: "bigint"}}}
	newT := schema.Table{Name: "t", Columns: []schema.Column{{Name: "id", Type: "int"}}}
	oldCat := schema.NewCatalog()
	oldCat.AddTable(old)
	newCat := schema.NewCatalog()
	newCat.AddTable(newT)

	cmds := Diff(oldCat, newCat)
	report := Analyze(cmds, nil, oldCat, newCat)
	require.Len(t, report.Changes, 1)
	assert.Equal(t, NarrowedType, report.Changes[0].Kind)
}

func TestAnalyzeReportsRenameOnceNotAlsoAsDrop(t *testing.T) {
	old := schema.Table{Name: "users", Columns: []schema.Column{
		{Name: "id", Type: "bigint"}, {Name: "nickname", Type: "text"},
	}}
	newT := schema.Table{Name: "users", Columns: []schema.Column{
		{Name: "id", Type: "bigint"}, {Name: "username", Type: "text"},
	}}
	oldCat := schema.NewCatalog()
	oldCat.AddTable(old)
	newCat := schema.NewCatalog()
	newCat.AddTable(newT)

	cmds := Diff(oldCat, newCat)
	report := Analyze(cmds, nil, oldCat, newCat)

	require.Len(t, report.Changes, 1)
	assert.Equal(t, RenamedColumn, report.Changes[0].Kind)
	assert.Equal(t, "nickname", report.Changes[0].Column)
	assert.Equal(t, "username", report.Changes[0].NewColumn)
}

func TestIsNarrowingDoesNotMatchUnrelatedTypeSharingAPrefix(t *testing.T) {
	assert.False(t, isNarrowing("bigint", "interval"))
	assert.True(t, isNarrowing("bigint", "int"))
	assert.True(t, isNarrowing("text", "character varying(255)"))
}

func TestAnalyzeFlagsAddedUniqueConstraint(t *testing.T) {
	old := schema.Table{Name: "users", Columns: []schema.Column{
		{Name: "id", Type: "bigint"}, {Name: "email", Type: "text"},
	}}
	newT := schema.Table{Name: "users", Columns: []schema.Column{
		{Name: "id", Type: "bigint"}, {Name: "email", Type: "text", Unique: true},
	}}
	oldCat := schema.NewCatalog()
	oldCat.AddTable(old)
	newCat := schema.NewCatalog()
	newCat.AddTable(newT)

	cmds := Diff(oldCat, newCat)
	refs := []Reference{{File: "app.go", Line: 5, Table: "users"}}
	report := Analyze(cmds, refs, oldCat, newCat)

	require.Len(t, report.Changes, 1)
	assert.Equal(t, AddedConstraint, report.Changes[0].Kind)
	assert.Equal(t, "UNIQUE", report.Changes[0].Constraint)
	assert.False(t, report.SafeToRun)
}

func TestAnnotationLinesFramesWithGroupAndEndgroup(t *testing.T) {
	report := Report{Changes: []BreakingChange{
		{Kind: DroppedTable, Table: "legacy", References: []Reference{{File: "x.go", Line: 3}}},
	}}
	lines := AnnotationLines(report)
	assert.Equal(t, "::group::QAIL migration impact", lines[0])
	assert.Equal(t, "::endgroup::", lines[len(lines)-1])
	assert.Contains(t, lines[1], "::error file=x.go,line=3")
}

func TestAnnotationLinesEmitsWarningWhenNoReferences(t *testing.T) {
	report := Report{Changes: []BreakingChange{{Kind: DroppedTable, Table: "legacy"}}}
	lines := AnnotationLines(report)
	assert.Contains(t, lines[1], "::warning title=")
}
