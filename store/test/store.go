package test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/poly000/tg-google-meet-bot/internal/profile"
	"github.com/poly000/tg-google-meet-bot/store"
	"github.com/poly000/tg-google-meet-bot/store/db"
)

// NewTestingStore returns a migrated store for the driver named by DRIVER
// (sqlite by default). PostgreSQL tests need POSTGRES_TEST_DSN and are
// skipped without it.
func NewTestingStore(ctx context.Context, t *testing.T) *store.Store {
	t.Helper()

	p := getTestingProfile(t)
	dbDriver, err := db.NewDBDriver(p)
	if err != nil {
		t.Fatalf("failed to create db driver: %v", err)
	}
	t.Cleanup(func() {
		_ = dbDriver.Close()
	})

	s := store.New(dbDriver, p)
	if err := s.Migrate(ctx); err != nil {
		t.Fatalf("failed to migrate db: %v", err)
	}
	return s
}

func getTestingProfile(t *testing.T) *profile.Profile {
	t.Helper()

	p := &profile.Profile{
		Mode:   "dev",
		Driver: getDriverFromEnv(),
		Data:   t.TempDir(),
	}
	switch p.Driver {
	case "postgres":
		dsn := os.Getenv("POSTGRES_TEST_DSN")
		if dsn == "" {
			t.Skip("POSTGRES_TEST_DSN not set")
		}
		p.DSN = dsn
	default:
		p.DSN = filepath.Join(p.Data, "meetbot_test.db")
	}
	return p
}

func getDriverFromEnv() string {
	if driver := os.Getenv("DRIVER"); driver != "" {
		return driver
	}
	return "sqlite"
}
