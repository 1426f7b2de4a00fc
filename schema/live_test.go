package schema

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// newMockGormDB wires GORM to a sqlmock-backed sql.DB, the same pairing
// syssam-velox's own schema migration tests use, so FromLiveDB's
// information_schema query can be exercised without a live Postgres.
func newMockGormDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	gdb, err := gorm.Open(postgres.New(postgres.Config{Conn: db}), &gorm.Config{})
	require.NoError(t, err)
	return gdb, mock
}

func TestFromLiveDBBuildsCatalogFromInformationSchema(t *testing.T) {
	gdb, mock := newMockGormDB(t)

	cols := []string{
		"table_name", "column_name", "data_type", "is_nullable",
		"column_default", "is_primary_key", "is_unique",
		"pk_constraint_name", "unique_constraint_name",
	}
	rows := sqlmock.NewRows(cols).
		AddRow("users", "id", "uuid", "NO", nil, true, false, "users_pkey", nil).
		AddRow("users", "email", "text", "YES", nil, false, true, nil, "users_email_key").
		AddRow("users", "created_at", "timestamptz", "NO", "now()", false, false, nil, nil).
		AddRow("orders", "id", "uuid", "NO", nil, true, false, "orders_pkey", nil)
	mock.ExpectQuery("SELECT").WillReturnRows(rows)

	cat, err := FromLiveDB(context.Background(), gdb)
	require.NoError(t, err)

	require.NoError(t, mock.ExpectationsWereMet())

	usersTable, ok := cat.Table("users")
	require.True(t, ok)
	require.Len(t, usersTable.Columns, 3)
	assert.Equal(t, Column{Name: "id", Type: "uuid", Nullable: false, PrimaryKey: true, PrimaryKeyName: "users_pkey"}, usersTable.Columns[0])
	assert.Equal(t, Column{Name: "email", Type: "text", Nullable: true, Unique: true, UniqueName: "users_email_key"}, usersTable.Columns[1])
	assert.Equal(t, Column{Name: "created_at", Type: "timestamptz", Nullable: false, HasDefault: true, Default: "now()"}, usersTable.Columns[2])

	ordersTable, ok := cat.Table("orders")
	require.True(t, ok)
	require.Len(t, ordersTable.Columns, 1)
}

func TestFromLiveDBPropagatesQueryError(t *testing.T) {
	gdb, mock := newMockGormDB(t)

	mock.ExpectQuery("SELECT").WillReturnError(assert.AnError)

	_, err := FromLiveDB(context.Background(), gdb)
	require.Error(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}
