package migrate

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScanGoFileResolvesBuilderChain(t *testing.T) {
	src := `package main

import "github.com/qail-lang/qail"

func run() {
	qail.Get("users").Columns("id", "name").WhereEq("id", qail.IntValue(1))
}
`
	refs := scanGoFile("handler.go", []byte(src))
	require.Len(t, refs, 1)
	assert.Equal(t, "users", refs[0].Table)
	assert.Equal(t, "get", refs[0].Action)
	assert.Equal(t, []string{"id", "name"}, refs[0].Columns)
}

func TestScanGoFileTracksCTEAlias(t *testing.T) {
	src := `package main

import "github.com/qail-lang/qail"

func run() {
	qail.Get("orders").FromCTE("recent_orders")
	qail.Get("recent_orders").SelectAll()
}
`
	refs := scanGoFile("handler.go", []byte(src))
	require.Len(t, refs, 2)
	assert.False(t, refs[0].IsCTERef)
	assert.True(t, refs[1].IsCTERef)
}

func TestScanGoFileIgnoresUnrelatedCalls(t *testing.T) {
	src := `package main

import "fmt"

func run() {
	fmt.Sprintf("hello %s", "world").Bytes()
}
`
	refs := scanGoFile("handler.go", []byte(src))
	assert.Empty(t, refs)
}

func TestScanRegexSweepFindsSQLAndKeywordForms(t *testing.T) {
	src := []byte("query := \"SELECT id FROM users\"\nother := get::orders\n")
	refs := scanRegexSweep("app.py", src)
	require.Len(t, refs, 2)
	assert.Equal(t, "users", refs[0].Table)
	assert.Equal(t, "orders", refs[1].Table)
}

func TestScanSkipsVendorAndNodeModulesDirectories(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "vendor"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "vendor", "skip.py"), []byte("SELECT x FROM skipped"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "keep.py"), []byte("SELECT x FROM kept"), 0o644))

	refs, err := Scan(root)
	require.NoError(t, err)
	require.Len(t, refs, 1)
	assert.Equal(t, "kept", refs[0].Table)
}
