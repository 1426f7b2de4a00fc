package migrate

import "github.com/qail-lang/qail"

// migrationsTable is the table name the bootstrap DDL creates and the
// runner reads/writes history rows against.
const migrationsTable = "_qail_migrations"

// BootstrapCommand returns the CREATE TABLE command for _qail_migrations,
// built as a Make command AST of ColumnDefs like every other DDL command
// in this module, so the runner's own DDL is rendered by package
// transpile rather than kept as a raw SQL string. It does not pass
// through the parser: the keyword syntax has no production for column
// definitions.
func BootstrapCommand() *qail.Command {
	cmd := qail.Make(migrationsTable)
	cmd.Columns = []qail.ColumnDef{
		{Name: "id", Type: "serial", PrimaryKey: true},
		{Name: "version", Type: "varchar(255)", Unique: true},
		{Name: "name", Type: "varchar(255)", Nullable: true},
		{Name: "applied_at", Type: "timestamptz", Nullable: true, HasDefault: true, Default: "NOW()"},
		{Name: "checksum", Type: "varchar(64)"},
		{Name: "sql_up", Type: "text"},
		{Name: "sql_down", Type: "text", Nullable: true},
	}
	return cmd
}

// InsertHistoryCommand builds the Add command that records one applied
// migration.
func InsertHistoryCommand(version, name, checksum, sqlUp, sqlDown string) *qail.Command {
	cols := []string{"version", "name", "checksum", "sql_up"}
	vals := []qail.Value{
		qail.StringValue(version), qail.StringValue(name),
		qail.StringValue(checksum), qail.StringValue(sqlUp),
	}
	if sqlDown != "" {
		cols = append(cols, "sql_down")
		vals = append(vals, qail.StringValue(sqlDown))
	}
	return qail.Add(migrationsTable).Columns(cols...).Values(vals...)
}

// AppliedVersionsCommand builds the Get command the runner uses to load
// already-applied migration versions before diffing.
func AppliedVersionsCommand() *qail.Command {
	return qail.Get(migrationsTable).Columns("version")
}
