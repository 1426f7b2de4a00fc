package migrate

import (
	"context"
	"fmt"
	"os"

	"github.com/qail-lang/qail"
	"github.com/vmihailenco/msgpack/v5"
)

// Snapshot is one table's captured rows, in the text-format representation
// the wire protocol already returns them in. Keeping cell bytes in their
// original text form means RestoreFileSnapshots can feed them straight
// back through CopyBulk without any type-specific parsing.
type Snapshot struct {
	Table   string
	Columns []string
	Rows    [][][]byte
}

// CaptureSnapshots runs a SELECT * against every named table and returns
// one Snapshot per table, the data `runner.go`'s backup-to-file/
// backup-to-database choice acts on — grounded in
// `original_source/cli/src/migrations.rs`'s `create_snapshots`/
// `create_db_snapshots` call sites, whose own backup module is not
// present in original_source's filtered dump.
func CaptureSnapshots(ctx context.Context, d *qail.Driver, tables []string) ([]Snapshot, error) {
	snapshots := make([]Snapshot, 0, len(tables))
	for _, table := range tables {
		rows, err := d.FetchAll(ctx, qail.Get(table).SelectAll())
		if err != nil {
			return nil, fmt.Errorf("migrate: snapshotting %q: %w", table, err)
		}

		var cols []string
		if len(rows) > 0 {
			cols = make([]string, rows[0].NumColumns())
			for i := range cols {
				cols[i] = rows[0].ColumnName(i)
			}
		}

		snapRows := make([][][]byte, len(rows))
		for i, r := range rows {
			cells := make([][]byte, len(cols))
			for j := range cols {
				cells[j] = r.Get(j)
			}
			snapRows[i] = cells
		}

		snapshots = append(snapshots, Snapshot{Table: table, Columns: cols, Rows: snapRows})
	}
	return snapshots, nil
}

// WriteSnapshotFile msgpack-encodes snapshots to path (backup-to-file).
func WriteSnapshotFile(path string, snapshots []Snapshot) error {
	data, err := msgpack.Marshal(snapshots)
	if err != nil {
		return fmt.Errorf("migrate: encoding snapshot: %w", err)
	}
	return os.WriteFile(path, data, 0o600)
}

// ReadSnapshotFile decodes a file written by WriteSnapshotFile.
func ReadSnapshotFile(path string) ([]Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var snapshots []Snapshot
	if err := msgpack.Unmarshal(data, &snapshots); err != nil {
		return nil, fmt.Errorf("migrate: decoding snapshot: %w", err)
	}
	return snapshots, nil
}

// backupTableName names the shadow table a database-side snapshot is
// copied into, namespaced by the migration version that triggered it.
func backupTableName(table, version string) string {
	return fmt.Sprintf("%s_backup_%s", table, version)
}

// RestoreFileSnapshots bulk-loads snapshots back into their origin
// tables via CopyBulk, reusing the captured text-format cells as-is.
func RestoreFileSnapshots(ctx context.Context, d *qail.Driver, snapshots []Snapshot) error {
	for _, s := range snapshots {
		if len(s.Rows) == 0 {
			continue
		}
		cmd := qail.Add(s.Table).Columns(s.Columns...)
		values := make([][]qail.Value, len(s.Rows))
		for i, row := range s.Rows {
			vals := make([]qail.Value, len(row))
			for j, cell := range row {
				if cell == nil {
					vals[j] = qail.NullValue()
				} else {
					vals[j] = qail.StringValue(string(cell))
				}
			}
			values[i] = vals
		}
		if _, err := d.CopyBulk(ctx, cmd, values); err != nil {
			return fmt.Errorf("migrate: restoring %q: %w", s.Table, err)
		}
	}
	return nil
}

// CreateDatabaseSnapshots copies every named table's current contents into
// a `<table>_backup_<version>` shadow table (backup-to-database), so a
// failed migration can be diagnosed against the pre-migration data without
// reaching for an external file.
func CreateDatabaseSnapshots(ctx context.Context, d *qail.Driver, version string, tables []string) error {
	snapshots, err := CaptureSnapshots(ctx, d, tables)
	if err != nil {
		return err
	}
	for _, s := range snapshots {
		backupName := backupTableName(s.Table, version)
		makeCmd := qail.Make(backupName)
		makeCmd.Columns = make([]qail.ColumnDef, len(s.Columns))
		for i, col := range s.Columns {
			makeCmd.Columns[i] = qail.ColumnDef{Name: col, Type: "text", Nullable: true}
		}
		if _, err := d.Execute(ctx, makeCmd); err != nil {
			return fmt.Errorf("migrate: creating backup table %q: %w", backupName, err)
		}
		if len(s.Rows) == 0 {
			continue
		}
		copyCmd := qail.Add(backupName).Columns(s.Columns...)
		if _, err := d.CopyBulk(ctx, copyCmd, rowsAsValues(s.Rows)); err != nil {
			return fmt.Errorf("migrate: copying into backup table %q: %w", backupName, err)
		}
	}
	return nil
}

func rowsAsValues(rows [][][]byte) [][]qail.Value {
	out := make([][]qail.Value, len(rows))
	for i, row := range rows {
		vals := make([]qail.Value, len(row))
		for j, cell := range row {
			if cell == nil {
				vals[j] = qail.NullValue()
			} else {
				vals[j] = qail.StringValue(string(cell))
			}
		}
		out[i] = vals
	}
	return out
}
