package schema

import (
	"fmt"
	"strings"
)

// ParseText parses the QAIL textual schema format (spec §6.2):
//
//	table users (
//	    id uuid primary_key
//	    email text not_null unique
//	    active bool not_null default false
//	    created_at timestamptz default now()
//	)
//	index users_email_idx on users (email) unique
//
// Comments start with "#" or "--"; whitespace within a line is
// insensitive. Types are PostgreSQL type names; unknown types pass
// through verbatim (spec §6.2).
func ParseText(src string) (*Catalog, error) {
	cat := NewCatalog()
	lines := stripComments(src)

	var cur *Table
	var pk []string
	for lineNo, raw := range lines {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}

		switch {
		case cur == nil && strings.HasPrefix(line, "table "):
			rest := strings.TrimSpace(strings.TrimPrefix(line, "table "))
			rest = strings.TrimSuffix(rest, "(")
			name := strings.TrimSpace(rest)
			if name == "" {
				return nil, fmt.Errorf("schema text line %d: table declaration missing a name", lineNo+1)
			}
			cur = &Table{Name: name}
			pk = nil

		case cur == nil && strings.HasPrefix(line, "index "):
			idx, err := parseIndexLine(line)
			if err != nil {
				return nil, fmt.Errorf("schema text line %d: %w", lineNo+1, err)
			}
			t, ok := cat.Table(idx.table)
			if !ok {
				return nil, fmt.Errorf("schema text line %d: index on unknown table %q", lineNo+1, idx.table)
			}
			t.Indexes = append(t.Indexes, idx.Index)
			cat.AddTable(t)

		case cur != nil && line == ")":
			if len(pk) > 0 {
				cur.Indexes = append(cur.Indexes, Index{
					Name:    cur.Name + "_pkey",
					Columns: pk,
					Unique:  true,
					Method:  "btree",
				})
			}
			cat.AddTable(*cur)
			cur = nil

		case cur != nil:
			col, isPK, err := parseColumnLine(line)
			if err != nil {
				return nil, fmt.Errorf("schema text line %d: %w", lineNo+1, err)
			}
			cur.Columns = append(cur.Columns, col)
			if isPK {
				pk = append(pk, col.Name)
			}

		default:
			return nil, fmt.Errorf("schema text line %d: unexpected line %q", lineNo+1, line)
		}
	}
	if cur != nil {
		return nil, fmt.Errorf("schema text: table %q is missing its closing \")\"", cur.Name)
	}
	return cat, nil
}

func stripComments(src string) []string {
	rawLines := strings.Split(src, "\n")
	out := make([]string, len(rawLines))
	for i, l := range rawLines {
		l = strings.TrimRight(l, "\r")
		if idx := strings.Index(l, "#"); idx >= 0 {
			l = l[:idx]
		}
		if idx := strings.Index(l, "--"); idx >= 0 {
			l = l[:idx]
		}
		out[i] = l
	}
	return out
}

// parseColumnLine parses "<col> <TYPE> [primary_key] [not_null] [unique]
// [default <literal>]". default's literal may itself contain spaces (e.g.
// a function call like "now()"), so it consumes every remaining field.
func parseColumnLine(line string) (Column, bool, error) {
	fields := strings.Fields(line)
	if len(fields) < 2 {
		return Column{}, false, fmt.Errorf("expected \"<name> <type> [flags...]\", got %q", line)
	}
	col := Column{Name: fields[0], Type: fields[1], Nullable: true}
	isPK := false
	for i := 2; i < len(fields); i++ {
		switch fields[i] {
		case "primary_key":
			isPK = true
			col.Nullable = false
			col.PrimaryKey = true
		case "not_null":
			col.Nullable = false
		case "unique":
			col.Unique = true
		case "default":
			// rest of the line is the default literal, which may itself
			// contain spaces (e.g. a function call like "now()").
			if i+1 >= len(fields) {
				return Column{}, false, fmt.Errorf("default flag missing a literal")
			}
			col.HasDefault = true
			col.Default = strings.Join(fields[i+1:], " ")
			i = len(fields)
		default:
			return Column{}, false, fmt.Errorf("unknown column flag %q", fields[i])
		}
	}
	return col, isPK, nil
}

type parsedIndex struct {
	Index
	table string
}

// parseIndexLine parses "index <name> on <table> (<col>, ...) [unique]".
func parseIndexLine(line string) (parsedIndex, error) {
	rest := strings.TrimSpace(strings.TrimPrefix(line, "index "))
	onIdx := strings.Index(rest, " on ")
	if onIdx < 0 {
		return parsedIndex{}, fmt.Errorf("expected \"index <name> on <table> (<cols>)\", got %q", line)
	}
	name := strings.TrimSpace(rest[:onIdx])
	rest = strings.TrimSpace(rest[onIdx+len(" on "):])

	open := strings.Index(rest, "(")
	close := strings.Index(rest, ")")
	if open < 0 || close < 0 || close < open {
		return parsedIndex{}, fmt.Errorf("expected column list in parens, got %q", line)
	}
	table := strings.TrimSpace(rest[:open])
	colsRaw := rest[open+1 : close]
	var cols []string
	for _, c := range strings.Split(colsRaw, ",") {
		c = strings.TrimSpace(c)
		if c != "" {
			cols = append(cols, c)
		}
	}
	unique := strings.Contains(rest[close+1:], "unique")

	return parsedIndex{table: table, Index: Index{Name: name, Columns: cols, Unique: unique, Method: "btree"}}, nil
}

// FormatText renders a Catalog back into the §6.2 textual schema format,
// preserving table and column declaration order.
func FormatText(cat *Catalog) string {
	var b strings.Builder
	for _, name := range cat.TableNames() {
		t := cat.Tables[name]
		fmt.Fprintf(&b, "table %s (\n", t.Name)
		for _, col := range t.Columns {
			b.WriteString("    " + col.Name + " " + col.Type)
			if col.PrimaryKey {
				b.WriteString(" primary_key")
			} else if !col.Nullable {
				b.WriteString(" not_null")
			}
			if col.Unique {
				b.WriteString(" unique")
			}
			if col.HasDefault {
				b.WriteString(" default " + col.Default)
			}
			b.WriteString("\n")
		}
		b.WriteString(")\n")
		for _, ix := range t.Indexes {
			if strings.HasSuffix(ix.Name, "_pkey") {
				continue
			}
			fmt.Fprintf(&b, "index %s on %s (%s)", ix.Name, t.Name, strings.Join(ix.Columns, ", "))
			if ix.Unique {
				b.WriteString(" unique")
			}
			b.WriteString("\n")
		}
	}
	return b.String()
}
