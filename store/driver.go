package store

import (
	"context"
	"database/sql"
)

// Driver is an interface for store driver.
// It contains all methods that store database driver should implement.
type Driver interface {
	GetDB() *sql.DB
	Close() error

	IsInitialized(ctx context.Context) (bool, error)

	// SystemSetting model related methods.
	UpsertSystemSetting(ctx context.Context, upsert *SystemSetting) (*SystemSetting, error)
	ListSystemSettings(ctx context.Context, find *FindSystemSetting) ([]*SystemSetting, error)

	// Meeting model related methods.
	CreateMeeting(ctx context.Context, create *Meeting) (*Meeting, error)
	ListMeetings(ctx context.Context, find *FindMeeting) ([]*Meeting, error)
	DeleteMeeting(ctx context.Context, delete *DeleteMeeting) error
}
