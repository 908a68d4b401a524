// Package database wires the shared test PostgreSQL into *database.Client
// instances for integration tests.
package database

import (
	"testing"

	"github.com/kotoba-lab/tessa/pkg/database"
	"github.com/kotoba-lab/tessa/test/util"
)

// NewTestClient creates a test database client over an isolated, migrated
// schema.
// In CI (when CI_DATABASE_URL is set): connects to the external PostgreSQL
// service container. In local dev: spins up a shared testcontainer.
// Cleanup (schema drop and connection close) runs when the test ends.
func NewTestClient(t *testing.T) *database.Client {
	t.Helper()
	db := util.SetupTestDatabase(t)
	return database.NewClientFromDB(db)
}
