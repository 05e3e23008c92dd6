package models_test

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/transdispo/crates_backend/config"
	"github.com/transdispo/crates_backend/models"
	"github.com/transdispo/crates_backend/utils"
)

// setupTestDB points the global DB at a fresh in-memory SQLite database
// named after the test, then migrates the schema.
func setupTestDB(t *testing.T) {
	t.Helper()
	name := strings.ReplaceAll(t.Name(), "/", "_")
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)
	if err := config.ConnectSqliteDatabase(dsn); err != nil {
		t.Fatalf("open test database: %v", err)
	}
	models.MigrateTable()
}

func testContext() context.Context {
	ctx := context.Background()
	ctx = utils.SetUserIdInContext(ctx, 1)
	ctx = utils.SetUserNameInContext(ctx, "Test Operator")
	return ctx
}
