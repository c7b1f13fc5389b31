//go:build integration

package integration

import (
	"context"
	"os"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/longregen/promptloop/internal/adapters/postgres"
)

// TestDB is a migrated PostgreSQL database with empty ledgers
type TestDB struct {
	Pool *pgxpool.Pool
	DSN  string
}

// SetupTestDB connects to PROMPTLOOP_TEST_POSTGRES_URL, applies the schema
// and truncates both ledgers. The test is skipped when the variable is unset.
func SetupTestDB(t *testing.T) *TestDB {
	t.Helper()

	dsn := os.Getenv("PROMPTLOOP_TEST_POSTGRES_URL")
	if dsn == "" {
		t.Skip("PROMPTLOOP_TEST_POSTGRES_URL not set")
	}

	ctx := context.Background()
	pool, err := postgres.Connect(ctx, dsn)
	if err != nil {
		t.Fatalf("failed to connect to test database: %v", err)
	}
	t.Cleanup(pool.Close)

	if err := postgres.Migrate(ctx, pool); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	db := &TestDB{Pool: pool, DSN: dsn}
	if err := db.Clear(ctx); err != nil {
		t.Fatalf("failed to clear test database: %v", err)
	}
	return db
}

// Clear removes all rows while preserving the schema
func (db *TestDB) Clear(ctx context.Context) error {
	_, err := db.Pool.Exec(ctx, "TRUNCATE TABLE messages, prompts RESTART IDENTITY CASCADE")
	return err
}

func (db *TestDB) Storage() storageSet {
	return storageSet{
		prompts:   postgres.NewPromptRepository(db.Pool),
		messages:  postgres.NewMessageRepository(db.Pool),
		txManager: postgres.NewTransactionManager(db.Pool),
	}
}
