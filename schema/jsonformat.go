package schema

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// catalogMetaSchema is the JSON-Schema meta-description of the catalog's
// own JSON form (spec §4.C "two schema input formats"): an object mapping
// table name to a {columns: [{name, type, nullable, primary_key, unique,
// default}]} shape (spec §3.4's full column shape). Validating against it
// up front turns a malformed hand-written schema file into one readable
// error instead of a confusing downstream Unmarshal failure.
const catalogMetaSchema = `{
  "type": "object",
  "additionalProperties": {
    "type": "object",
    "required": ["columns"],
    "properties": {
      "columns": {
        "type": "array",
        "items": {
          "type": "object",
          "required": ["name", "type"],
          "properties": {
            "name": {"type": "string"},
            "type": {"type": "string"},
            "nullable": {"type": "boolean"},
            "primary_key": {"type": "boolean"},
            "unique": {"type": "boolean"},
            "default": {"type": "string"}
          }
        }
      },
      "indexes": {
        "type": "array",
        "items": {
          "type": "object",
          "required": ["columns"],
          "properties": {
            "name": {"type": "string"},
            "columns": {"type": "array", "items": {"type": "string"}},
            "unique": {"type": "boolean"},
            "method": {"type": "string"}
          }
        }
      }
    }
  }
}`

type jsonColumn struct {
	Name       string  `json:"name"`
	Type       string  `json:"type"`
	Nullable   bool    `json:"nullable"`
	PrimaryKey bool    `json:"primary_key,omitempty"`
	Unique     bool    `json:"unique,omitempty"`
	Default    *string `json:"default,omitempty"`
}

type jsonIndex struct {
	Name    string   `json:"name"`
	Columns []string `json:"columns"`
	Unique  bool     `json:"unique"`
	Method  string   `json:"method"`
}

type jsonTable struct {
	Columns []jsonColumn `json:"columns"`
	Indexes []jsonIndex  `json:"indexes"`
}

// ParseJSON parses the JSON schema form into a Catalog, validating the
// document against catalogMetaSchema first so that structural mistakes
// (a missing "type" field, "columns" as an object instead of an array)
// surface as one jsonschema.ValidationError rather than a generic
// encoding/json type error.
func ParseJSON(data []byte) (*Catalog, error) {
	compiler := jsonschema.NewCompiler()
	schemaDoc, err := jsonschema.UnmarshalJSON(strings.NewReader(catalogMetaSchema))
	if err != nil {
		return nil, fmt.Errorf("schema: internal meta-schema invalid: %w", err)
	}
	const metaURL = "mem://qail-catalog-meta-schema.json"
	if err := compiler.AddResource(metaURL, schemaDoc); err != nil {
		return nil, fmt.Errorf("schema: internal meta-schema invalid: %w", err)
	}
	sch, err := compiler.Compile(metaURL)
	if err != nil {
		return nil, fmt.Errorf("schema: internal meta-schema invalid: %w", err)
	}

	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("schema: invalid JSON: %w", err)
	}
	if err := sch.Validate(doc); err != nil {
		return nil, fmt.Errorf("schema: document does not match catalog schema: %w", err)
	}

	var tables map[string]jsonTable
	if err := json.Unmarshal(data, &tables); err != nil {
		return nil, fmt.Errorf("schema: %w", err)
	}

	// Unmarshal into a map loses declaration order; fall back to
	// lexicographic order for the JSON form (the textual form is the one
	// that preserves author-declared ordering, per ParseText).
	names := make([]string, 0, len(tables))
	for name := range tables {
		names = append(names, name)
	}
	sort.Strings(names)

	cat := NewCatalog()
	for _, name := range names {
		jt := tables[name]
		t := Table{Name: name}
		for _, jc := range jt.Columns {
			col := Column{Name: jc.Name, Type: jc.Type, Nullable: jc.Nullable, PrimaryKey: jc.PrimaryKey, Unique: jc.Unique}
			if jc.Default != nil {
				col.HasDefault = true
				col.Default = *jc.Default
			}
			t.Columns = append(t.Columns, col)
		}
		for _, ji := range jt.Indexes {
			t.Indexes = append(t.Indexes, Index{Name: ji.Name, Columns: ji.Columns, Unique: ji.Unique, Method: ji.Method})
		}
		cat.AddTable(t)
	}
	return cat, nil
}

// FormatJSON renders a Catalog back into the JSON schema form.
func FormatJSON(cat *Catalog) ([]byte, error) {
	out := map[string]jsonTable{}
	for _, name := range cat.TableNames() {
		t := cat.Tables[name]
		jt := jsonTable{}
		for _, c := range t.Columns {
			jc := jsonColumn{Name: c.Name, Type: c.Type, Nullable: c.Nullable, PrimaryKey: c.PrimaryKey, Unique: c.Unique}
			if c.HasDefault {
				d := c.Default
				jc.Default = &d
			}
			jt.Columns = append(jt.Columns, jc)
		}
		for _, ix := range t.Indexes {
			jt.Indexes = append(jt.Indexes, jsonIndex{Name: ix.Name, Columns: ix.Columns, Unique: ix.Unique, Method: ix.Method})
		}
		out[name] = jt
	}
	return json.MarshalIndent(out, "", "  ")
}
