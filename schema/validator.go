package schema

import (
	"github.com/qail-lang/qail"
)

// ValidateTable returns nil if name is a known table, or an
// *qail.UnknownTableError carrying up to 3 suggestions otherwise.
func (c *Catalog) ValidateTable(name string) error {
	if _, ok := c.Tables[name]; ok {
		return nil
	}
	return &qail.UnknownTableError{Name: name, Suggestions: suggest(name, c.TableNames())}
}

// ValidateColumn returns nil if table.col is known, or an
// *qail.UnknownColumnError carrying up to 3 suggestions otherwise. If the
// table itself is unknown, ValidateColumn still reports it as an unknown
// column (with no suggestions) rather than conflating the two error kinds
// — callers that also want the table-level diagnostic call ValidateTable
// first, which is what ValidateCommand does.
func (c *Catalog) ValidateColumn(table, col string) error {
	t, ok := c.Tables[table]
	if !ok {
		return &qail.UnknownColumnError{Table: table, Column: col}
	}
	if t.HasColumn(col) {
		return nil
	}
	return &qail.UnknownColumnError{Table: table, Column: col, Suggestions: suggest(col, t.ColumnNames())}
}

// ValidateCommand walks every Named expression reachable from cmd — main
// table, joined tables, projections, joins' ON conditions, filter
// conditions, sort keys, and payload assignments — and returns every
// error found, in document order (spec §4.C).
//
// ExprJsonAccess expressions and raw-SQL "{...}" escapes (a Name starting
// with "{") are not columns and are skipped. A dotted Name is read the way
// the transpiler reads it: when its first segment is the main table or a
// join alias it is a qualified column; otherwise it is a JSON path, and
// only its first segment is checked, as a column of the main table.
func (c *Catalog) ValidateCommand(cmd *qail.Command) []error {
	var errs []error

	mainTable := mainTableName(cmd.Table)
	if err := c.ValidateTable(mainTable); err != nil {
		errs = append(errs, err)
	}

	knownTables := map[string]string{mainTable: mainTable}
	for _, j := range cmd.Joins {
		jt := mainTableName(j.Table)
		if err := c.ValidateTable(jt); err != nil {
			errs = append(errs, err)
		}
		alias := j.Alias
		if alias == "" {
			alias = jt
		}
		knownTables[alias] = jt
	}

	checkExpr := func(e qail.Expr) {
		if name, table, ok := resolveColumnRef(e, mainTable); ok {
			target := mainTable
			if t, known := knownTables[table]; known {
				target = t
			} else if table != "" && table != mainTable {
				// JSON path: the head is a column of the main table.
				name = table
			}
			if err := c.ValidateColumn(target, name); err != nil {
				errs = append(errs, err)
			}
		}
	}

	for _, p := range cmd.Projections {
		checkExpr(p)
	}
	for _, j := range cmd.Joins {
		for _, cond := range j.On {
			checkExpr(cond.Left)
		}
	}
	for _, cage := range cmd.Cages {
		for _, cond := range cage.Conditions {
			checkExpr(cond.Left)
		}
	}
	for _, cond := range cmd.Having {
		checkExpr(cond.Left)
	}
	return errs
}

// mainTableName strips a trailing " alias" set by Command.TableAlias.
func mainTableName(table string) string {
	for i := 0; i < len(table); i++ {
		if table[i] == ' ' {
			return table[:i]
		}
	}
	return table
}

// resolveColumnRef extracts (column, qualifyingTable, ok) from an
// expression if it is a plain column reference the validator should
// check. Raw-SQL escapes ("{...}") and JSON path accesses are excluded.
func resolveColumnRef(e qail.Expr, defaultTable string) (string, string, bool) {
	if e.Kind != qail.ExprNamed {
		return "", "", false
	}
	name := e.Name
	if len(name) > 0 && name[0] == '{' {
		return "", "", false
	}
	for i := 0; i < len(name); i++ {
		if name[i] == '.' {
			return name[i+1:], name[:i], true
		}
	}
	return name, defaultTable, true
}
