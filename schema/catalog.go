// Package schema is the table/column catalog, its two textual input
// formats, and the validator that checks a *qail.Command against it
// (spec §4.C).
package schema

// Column describes one column of a catalog table.
type Column struct {
	Name       string
	Type       string
	Nullable   bool
	PrimaryKey bool
	Unique     bool
	HasDefault bool
	Default    string
	// PrimaryKeyName and UniqueName carry the actual constraint name when
	// it is known (live introspection fills these in from
	// information_schema.table_constraints). Empty when the column came
	// from a textual or JSON schema file, which name no constraint —
	// callers synthesize a name in that case.
	PrimaryKeyName string
	UniqueName     string
}

// Index describes a catalog-level index hint, used by the migration
// differ to detect index additions/removals independently of column
// changes.
type Index struct {
	Name    string
	Columns []string
	Unique  bool
	Method  string
}

// Table is one catalog entry: its columns in declaration order plus any
// known indexes.
type Table struct {
	Name    string
	Columns []Column
	Indexes []Index
}

// ColumnNames returns the table's column names in declaration order.
func (t Table) ColumnNames() []string {
	out := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		out[i] = c.Name
	}
	return out
}

// HasColumn reports whether the table declares a column named name.
func (t Table) HasColumn(name string) bool {
	for _, c := range t.Columns {
		if c.Name == name {
			return true
		}
	}
	return false
}

// Catalog is the full set of known tables, keyed by table name. It is
// built once (from a textual schema file, a JSON schema file, or live
// introspection) and then only read from.
type Catalog struct {
	Tables map[string]Table
	// order preserves the declaration order of tables, for deterministic
	// reporting and for the migration differ's DDL emission order.
	order []string
}

// NewCatalog returns an empty catalog ready for AddTable calls.
func NewCatalog() *Catalog {
	return &Catalog{Tables: map[string]Table{}}
}

// AddTable registers (or replaces) a table definition.
func (c *Catalog) AddTable(t Table) {
	if _, exists := c.Tables[t.Name]; !exists {
		c.order = append(c.order, t.Name)
	}
	c.Tables[t.Name] = t
}

// TableNames returns every table name in declaration order.
func (c *Catalog) TableNames() []string {
	out := make([]string, len(c.order))
	copy(out, c.order)
	return out
}

// Table returns the named table and whether it was found.
func (c *Catalog) Table(name string) (Table, bool) {
	t, ok := c.Tables[name]
	return t, ok
}
