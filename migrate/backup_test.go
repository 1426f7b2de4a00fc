package migrate

import (
	"path/filepath"
	"testing"

	"github.com/qail-lang/qail"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteAndReadSnapshotFileRoundTrips(t *testing.T) {
	snapshots := []Snapshot{
		{
			Table:   "orders",
			Columns: []string{"id", "total"},
			Rows: [][][]byte{
				{[]byte("1"), []byte("9.99")},
				{[]byte("2"), nil},
			},
		},
	}

	path := filepath.Join(t.TempDir(), "snapshot.msgpack")
	require.NoError(t, WriteSnapshotFile(path, snapshots))

	loaded, err := ReadSnapshotFile(path)
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	assert.Equal(t, "orders", loaded[0].Table)
	assert.Equal(t, []string{"id", "total"}, loaded[0].Columns)
	require.Len(t, loaded[0].Rows, 2)
	assert.Equal(t, []byte("1"), loaded[0].Rows[0][0])
	assert.Nil(t, loaded[0].Rows[1][1])
}

func TestBackupTableNameNamespacesByVersion(t *testing.T) {
	assert.Equal(t, "orders_backup_20260731120000", backupTableName("orders", "20260731120000"))
}

func TestRowsAsValuesPreservesNullsAndText(t *testing.T) {
	rows := [][][]byte{{[]byte("42"), nil}}
	vals := rowsAsValues(rows)
	require.Len(t, vals, 1)
	require.Len(t, vals[0], 2)
	assert.Equal(t, "42", vals[0][0].Str)
	assert.Equal(t, qail.ValNull, vals[0][1].Kind)
}
