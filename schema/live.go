package schema

import (
	"context"
	"database/sql"
	"fmt"

	"gorm.io/gorm"
)

// pgColumnRow mirrors one row of the information_schema introspection
// query: a column plus, via the key_column_usage/table_constraints join,
// whether it participates in a primary-key or unique constraint. This is
// the portable way to introspect a live Postgres database without
// depending on pg_catalog internals GORM's migrator doesn't expose
// directly.
type pgColumnRow struct {
	TableName      string         `gorm:"column:table_name"`
	ColumnName     string         `gorm:"column:column_name"`
	DataType       string         `gorm:"column:data_type"`
	IsNullable     string         `gorm:"column:is_nullable"`
	ColumnDefault  sql.NullString `gorm:"column:column_default"`
	IsPrimaryKey   bool           `gorm:"column:is_primary_key"`
	IsUnique       bool           `gorm:"column:is_unique"`
	PKConstraint   sql.NullString `gorm:"column:pk_constraint_name"`
	UniqConstraint sql.NullString `gorm:"column:unique_constraint_name"`
}

// FromLiveDB builds a Catalog by introspecting an already-connected
// database via GORM (spec §9 "QAIL=live" build-time mode, SPEC_FULL.md
// DOMAIN STACK). It deliberately goes through GORM's raw query support
// rather than db.Migrator().ColumnTypes() per table, since that requires
// already knowing the table list; querying information_schema directly
// gives both the table list and the columns, their defaults, and their
// primary-key/unique status in one pass (spec §3.4's full column shape:
// "name, type, nullable, primary_key, unique, default").
func FromLiveDB(ctx context.Context, db *gorm.DB) (*Catalog, error) {
	var rows []pgColumnRow
	err := db.WithContext(ctx).Raw(`
		SELECT
			c.table_name,
			c.column_name,
			c.data_type,
			c.is_nullable,
			c.column_default,
			COALESCE(bool_or(tc.constraint_type = 'PRIMARY KEY'), false) AS is_primary_key,
			COALESCE(bool_or(tc.constraint_type = 'UNIQUE'), false) AS is_unique,
			MAX(tc.constraint_name) FILTER (WHERE tc.constraint_type = 'PRIMARY KEY') AS pk_constraint_name,
			MAX(tc.constraint_name) FILTER (WHERE tc.constraint_type = 'UNIQUE') AS unique_constraint_name
		FROM information_schema.columns c
		LEFT JOIN information_schema.key_column_usage kcu
			ON kcu.table_schema = c.table_schema
			AND kcu.table_name = c.table_name
			AND kcu.column_name = c.column_name
		LEFT JOIN information_schema.table_constraints tc
			ON tc.constraint_name = kcu.constraint_name
			AND tc.table_schema = kcu.table_schema
		WHERE c.table_schema = 'public'
		GROUP BY c.table_name, c.column_name, c.data_type, c.is_nullable, c.column_default, c.ordinal_position
		ORDER BY c.table_name, c.ordinal_position
	`).Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("schema: live introspection failed: %w", err)
	}

	cat := NewCatalog()
	seen := map[string]bool{}
	for _, r := range rows {
		if !seen[r.TableName] {
			seen[r.TableName] = true
			cat.AddTable(Table{Name: r.TableName})
		}
		col := Column{
			Name:           r.ColumnName,
			Type:           r.DataType,
			Nullable:       r.IsNullable == "YES",
			PrimaryKey:     r.IsPrimaryKey,
			Unique:         r.IsUnique,
			HasDefault:     r.ColumnDefault.Valid,
			Default:        r.ColumnDefault.String,
			PrimaryKeyName: r.PKConstraint.String,
			UniqueName:     r.UniqConstraint.String,
		}
		updated := cat.Tables[r.TableName]
		updated.Columns = append(updated.Columns, col)
		cat.Tables[r.TableName] = updated
	}
	return cat, nil
}
