package db

import (
	"github.com/pkg/errors"

	"github.com/poly000/tg-google-meet-bot/internal/profile"
	"github.com/poly000/tg-google-meet-bot/store"
	"github.com/poly000/tg-google-meet-bot/store/db/postgres"
	"github.com/poly000/tg-google-meet-bot/store/db/sqlite"
)

// NewDBDriver creates new db driver based on profile.
// SQLite suits a single bot instance; use PostgreSQL when several instances share records.
func NewDBDriver(profile *profile.Profile) (store.Driver, error) {
	var driver store.Driver
	var err error

	switch profile.Driver {
	case "sqlite":
		driver, err = sqlite.NewDB(profile)
	case "postgres":
		driver, err = postgres.NewDB(profile)
	default:
		return nil, errors.Errorf("unknown db driver %q: only 'postgres' and 'sqlite' are supported", profile.Driver)
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to create db driver")
	}
	return driver, nil
}
