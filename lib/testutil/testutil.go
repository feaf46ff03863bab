package testutil

import (
	"database/sql"
	"testing"

	configsqlite "screener-backend/lib/configutil/sqlite"
)

type ServiceParams struct {
	// if unspecified, it will skip setting up a schema
	DbSchema string
	// if unspecified, it will use `:memory:`
	DbPath string
}

type ServiceResult struct {
	DB *sql.DB
}

// SetupService opens a sqlite database for a test, the database is closed
// when the test ends.
func SetupService(t testing.TB, params ServiceParams) ServiceResult {
	t.Helper()

	dbpath := params.DbPath
	if dbpath == "" {
		dbpath = ":memory:"
	}
	sqlite, err := configsqlite.Struct{File: dbpath}.OpenDB(params.DbSchema)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		sqlite.Close()
	})

	return ServiceResult{
		DB: sqlite,
	}
}
