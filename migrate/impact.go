package migrate

import (
	"fmt"
	"strings"

	"github.com/qail-lang/qail"
	"github.com/qail-lang/qail/schema"
)

// BreakingChangeKind discriminates the five breaking-change shapes
// Analyze reports.
type BreakingChangeKind int

const (
	DroppedTable BreakingChangeKind = iota
	DroppedColumn
	RenamedColumn
	NarrowedType
	AddedConstraint
)

func (k BreakingChangeKind) String() string {
	switch k {
	case DroppedTable:
		return "dropped_table"
	case DroppedColumn:
		return "dropped_column"
	case RenamedColumn:
		return "renamed_column"
	case NarrowedType:
		return "narrowed_type"
	case AddedConstraint:
		return "added_constraint"
	default:
		return "unknown"
	}
}

// BreakingChange is one entry in an impact Report.
type BreakingChange struct {
	Kind       BreakingChangeKind
	Table      string
	Column     string // DroppedColumn, RenamedColumn (old name), NarrowedType
	NewColumn  string // RenamedColumn only
	OldType    string // NarrowedType
	NewType    string // NarrowedType
	Constraint string // AddedConstraint: "PRIMARY KEY" or "UNIQUE"
	References []Reference
}

// Report is the output of Analyze (spec §4.L).
type Report struct {
	Changes       []BreakingChange
	AffectedFiles []string
	SafeToRun     bool
}

// narrowingPairs lists PostgreSQL type pairs where old -> new shrinks the
// representable value set, the cases spec §4.L names explicitly.
var narrowingPairs = map[string][]string{
	"text":    {"varchar", "character varying"},
	"bigint":  {"int", "integer", "smallint"},
	"int":     {"smallint"},
	"integer": {"smallint"},
}

// Analyze builds an impact report from the DDL cmds produced by Diff,
// the reference list from Scan, and the catalogs the diff was computed
// from (spec §4.L).
func Analyze(cmds []*qail.Command, refs []Reference, old, new *schema.Catalog) Report {
	var changes []BreakingChange
	affectedSet := map[string]bool{}

	renames := detectRenames(cmds, old, new, refs, affectedSet)
	renamedDrop := make(map[string]bool, len(renames))
	for _, rc := range renames {
		renamedDrop[rc.Table+"\x00"+rc.Column] = true
	}

	for _, cmd := range cmds {
		switch cmd.Action {
		case qail.ActionDrop:
			refsFor := referencesToTable(refs, cmd.Table)
			changes = append(changes, BreakingChange{
				Kind: DroppedTable, Table: cmd.Table, References: refsFor,
			})
			markAffected(affectedSet, refsFor)

		case qail.ActionAlter, qail.ActionAlterDrop:
			ot, hasOld := old.Table(cmd.Table)
			for _, spec := range cmd.Alters {
				switch spec.Kind {
				case qail.AlterDropColumn:
					// A drop that detectRenames already matched to an add
					// of a compatibly-typed column is reported once, as a
					// RenamedColumn, below — not also as a drop.
					if renamedDrop[cmd.Table+"\x00"+spec.ColumnName] {
						continue
					}
					refsFor := referencesToColumn(refs, cmd.Table, spec.ColumnName)
					changes = append(changes, BreakingChange{
						Kind: DroppedColumn, Table: cmd.Table, Column: spec.ColumnName,
						References: refsFor,
					})
					markAffected(affectedSet, refsFor)
				case qail.AlterSetType:
					if !hasOld {
						continue
					}
					oldType := columnType(ot, spec.ColumnName)
					if isNarrowing(oldType, spec.Column.Type) {
						refsFor := referencesToColumn(refs, cmd.Table, spec.ColumnName)
						changes = append(changes, BreakingChange{
							Kind: NarrowedType, Table: cmd.Table, Column: spec.ColumnName,
							OldType: oldType, NewType: spec.Column.Type, References: refsFor,
						})
						markAffected(affectedSet, refsFor)
					}
				case qail.AlterAddConstraint:
					// A new PRIMARY KEY or UNIQUE constraint fails at
					// execution time against existing duplicate or null
					// rows, so it's a breaking change even though it adds
					// rather than removes anything.
					if spec.Constraint.Kind != qail.ConstraintPrimaryKey && spec.Constraint.Kind != qail.ConstraintUnique {
						continue
					}
					kindName := "UNIQUE"
					if spec.Constraint.Kind == qail.ConstraintPrimaryKey {
						kindName = "PRIMARY KEY"
					}
					refsFor := referencesToTable(refs, cmd.Table)
					changes = append(changes, BreakingChange{
						Kind: AddedConstraint, Table: cmd.Table,
						Column: strings.Join(spec.Constraint.Columns, ", "), Constraint: kindName,
						References: refsFor,
					})
					markAffected(affectedSet, refsFor)
				}
			}
		}
	}

	changes = append(changes, renames...)

	files := make([]string, 0, len(affectedSet))
	for f := range affectedSet {
		files = append(files, f)
	}

	return Report{Changes: changes, AffectedFiles: files, SafeToRun: len(changes) == 0}
}

// detectRenames applies the heuristic spec §4.L describes as advisory
// only: a column disappearing from a table while another of a
// compatible type appears, with no explicit rename hint anywhere else in
// the diff, may be a rename rather than a genuine add+drop pair.
func detectRenames(cmds []*qail.Command, old, new *schema.Catalog, refs []Reference, affectedSet map[string]bool) []BreakingChange {
	var out []BreakingChange
	for _, cmd := range cmds {
		if cmd.Action != qail.ActionAlter {
			continue
		}
		var added, dropped []qail.AlterSpec
		for _, s := range cmd.Alters {
			switch s.Kind {
			case qail.AlterAddColumn:
				added = append(added, s)
			case qail.AlterDropColumn:
				dropped = append(dropped, s)
			}
		}
		if len(added) != 1 || len(dropped) != 1 {
			continue
		}
		ot, ok := old.Table(cmd.Table)
		if !ok {
			continue
		}
		oldCol := columnType(ot, dropped[0].ColumnName)
		if oldCol == "" || oldCol != added[0].Column.Type {
			continue
		}
		refsFor := referencesToColumn(refs, cmd.Table, dropped[0].ColumnName)
		out = append(out, BreakingChange{
			Kind: RenamedColumn, Table: cmd.Table,
			Column: dropped[0].ColumnName, NewColumn: added[0].Column.Name,
			References: refsFor,
		})
		markAffected(affectedSet, refsFor)
	}
	return out
}

func columnType(t schema.Table, name string) string {
	for _, c := range t.Columns {
		if c.Name == name {
			return c.Type
		}
	}
	return ""
}

// isNarrowing reports whether newType is one of oldType's known-narrower
// types. Compares against the base type name only (the part before any
// "(precision)" suffix, e.g. "character varying(255)" -> "character
// varying"), not a string prefix, so an unrelated type that happens to
// start with the same letters (e.g. "interval" vs. the "int" target for
// "bigint") never matches.
func isNarrowing(oldType, newType string) bool {
	targets, ok := narrowingPairs[strings.ToLower(oldType)]
	if !ok {
		return false
	}
	base := strings.ToLower(newType)
	if i := strings.IndexByte(base, '('); i >= 0 {
		base = base[:i]
	}
	base = strings.TrimSpace(base)
	for _, t := range targets {
		if base == t {
			return true
		}
	}
	return false
}

func referencesToTable(refs []Reference, table string) []Reference {
	var out []Reference
	for _, r := range refs {
		if r.Table == table && !r.IsCTERef {
			out = append(out, r)
		}
	}
	return out
}

func referencesToColumn(refs []Reference, table, column string) []Reference {
	var out []Reference
	for _, r := range refs {
		if r.Table != table || r.IsCTERef {
			continue
		}
		// A SELECT * reference carries no explicit column list, and per
		// spec §4.L counts as touching every column, including any that
		// is about to be dropped.
		if len(r.Columns) == 0 {
			out = append(out, r)
			continue
		}
		for _, c := range r.Columns {
			if c == column {
				out = append(out, r)
				break
			}
		}
	}
	return out
}

func markAffected(set map[string]bool, refs []Reference) {
	for _, r := range refs {
		set[r.File] = true
	}
}

// AnnotationLines renders report as GitHub-Actions annotation lines
// (spec §6.5), framed by a ::group::/::endgroup:: pair.
func AnnotationLines(report Report) []string {
	lines := []string{"::group::QAIL migration impact"}
	for _, c := range report.Changes {
		title := annotationTitle(c.Kind)
		msg := breakingChangeMessage(c)
		if len(c.References) == 0 {
			lines = append(lines, fmt.Sprintf("::warning title=%s::%s", title, msg))
			continue
		}
		for _, ref := range c.References {
			lines = append(lines, fmt.Sprintf("::error file=%s,line=%d,title=%s::%s", ref.File, ref.Line, title, msg))
		}
	}
	lines = append(lines, "::endgroup::")
	return lines
}

func annotationTitle(k BreakingChangeKind) string {
	switch k {
	case DroppedTable:
		return "Dropped table"
	case DroppedColumn:
		return "Dropped column"
	case RenamedColumn:
		return "Renamed column"
	case NarrowedType:
		return "Narrowed type"
	case AddedConstraint:
		return "Added constraint"
	default:
		return "Breaking change"
	}
}

func breakingChangeMessage(c BreakingChange) string {
	switch c.Kind {
	case DroppedTable:
		return fmt.Sprintf("table %q is dropped by this migration", c.Table)
	case DroppedColumn:
		return fmt.Sprintf("column %q on table %q is dropped by this migration", c.Column, c.Table)
	case RenamedColumn:
		return fmt.Sprintf("column %q on table %q may have been renamed to %q", c.Column, c.Table, c.NewColumn)
	case NarrowedType:
		return fmt.Sprintf("column %q on table %q narrows from %s to %s", c.Column, c.Table, c.OldType, c.NewType)
	case AddedConstraint:
		return fmt.Sprintf("%s constraint added on %q (%s) may fail against existing rows", c.Constraint, c.Table, c.Column)
	default:
		return "unknown breaking change"
	}
}
