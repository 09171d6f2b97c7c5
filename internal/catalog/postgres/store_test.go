package postgres_test

import (
	"context"
	"os"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/MrWong99/singalong/internal/catalog"
	"github.com/MrWong99/singalong/internal/catalog/catalogtest"
	"github.com/MrWong99/singalong/internal/catalog/postgres"
)

// testDSN returns the test database DSN, or skips the test when
// SINGALONG_TEST_POSTGRES_DSN is not set.
func testDSN(t *testing.T) string {
	t.Helper()
	dsn := os.Getenv("SINGALONG_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("SINGALONG_TEST_POSTGRES_DSN not set, skipping PostgreSQL integration tests")
	}
	return dsn
}

func newTestStore(t *testing.T) catalog.Store {
	t.Helper()
	dsn := testDSN(t)
	ctx := context.Background()

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("pool: %v", err)
	}
	t.Cleanup(pool.Close)
	for _, stmt := range []string{
		"DROP TABLE IF EXISTS leaderboard CASCADE",
		"DROP TABLE IF EXISTS songs CASCADE",
	} {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			t.Fatalf("drop schema: %v", err)
		}
	}

	store, err := postgres.NewStore(ctx, dsn)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestStore_Integration(t *testing.T) {
	catalogtest.Run(t, newTestStore)
}

func TestNewStore_InvalidDSN(t *testing.T) {
	t.Parallel()
	if _, err := postgres.NewStore(context.Background(), "::not a dsn::"); err == nil {
		t.Error("expected error for invalid DSN")
	}
}
