package store

import (
	"context"
)

// SchemaVersionSettingName holds the applied schema version.
const SchemaVersionSettingName = "schema_version"

// SystemSetting is a named instance-wide value.
type SystemSetting struct {
	Name        string
	Value       string
	Description string
}

// FindSystemSetting is the find condition for system settings.
type FindSystemSetting struct {
	Name string
}

// UpsertSystemSetting creates or replaces a setting.
func (s *Store) UpsertSystemSetting(ctx context.Context, upsert *SystemSetting) (*SystemSetting, error) {
	return s.driver.UpsertSystemSetting(ctx, upsert)
}

// GetSystemSetting returns the named setting, or nil if it is not set.
func (s *Store) GetSystemSetting(ctx context.Context, find *FindSystemSetting) (*SystemSetting, error) {
	list, err := s.driver.ListSystemSettings(ctx, find)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, nil
	}
	return list[0], nil
}
