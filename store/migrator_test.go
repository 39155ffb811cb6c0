package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poly000/tg-google-meet-bot/internal/profile"
)

func TestSplitStatements(t *testing.T) {
	stmts := splitStatements(`-- meeting
CREATE TABLE a (x TEXT DEFAULT 'Asia/Shanghai');

CREATE INDEX i ON a (x); -- trailing
CREATE INDEX j ON a (x)`)

	require.Len(t, stmts, 3)
	assert.Equal(t, "CREATE TABLE a (x TEXT DEFAULT 'Asia/Shanghai')", stmts[0])
	assert.Equal(t, "CREATE INDEX i ON a (x)", stmts[1])
	assert.Equal(t, "CREATE INDEX j ON a (x)", stmts[2])
	assert.Empty(t, splitStatements("-- nothing\n\n"))
}

func TestSplitStatements_LatestSchema(t *testing.T) {
	for _, driver := range []string{"sqlite", "postgres"} {
		s := &Store{profile: &profile.Profile{Driver: driver}}
		script, err := migrationFS.ReadFile(s.migrationDir() + LatestSchemaFileName)
		require.NoError(t, err, driver)

		stmts := splitStatements(string(script))
		require.Len(t, stmts, 4, driver)
		assert.Contains(t, stmts[0], "CREATE TABLE system_setting", driver)
		assert.Contains(t, stmts[1], "CREATE TABLE meeting", driver)
		assert.Contains(t, stmts[1], "request_id TEXT", driver)
		assert.Contains(t, stmts[3], "idx_meeting_event_id", driver)
	}
}

func TestMigrationVersion(t *testing.T) {
	v, err := migrationVersion("migration/sqlite/0.3/00__meeting_event_index.sql")
	require.NoError(t, err)
	assert.Equal(t, "0.3.1", v)

	v, err = migrationVersion("migration/postgres/0.4/11__x.sql")
	require.NoError(t, err)
	assert.Equal(t, "0.4.12", v)

	_, err = migrationVersion("migration/sqlite/0.3/meeting.sql")
	assert.Error(t, err)
	_, err = migrationVersion("migration/sqlite/0.3/xx__meeting.sql")
	assert.Error(t, err)
}

func TestSchemaVersions(t *testing.T) {
	for _, driver := range []string{"sqlite", "postgres"} {
		s := &Store{profile: &profile.Profile{Mode: "prod", Driver: driver}}

		current, err := s.GetCurrentSchemaVersion()
		require.NoError(t, err)
		assert.Equal(t, "0.3.1", current, driver)

		pending, err := s.pendingMigrations("", current)
		require.NoError(t, err)
		require.Len(t, pending, 1, driver)
		assert.Equal(t, "migration/"+driver+"/0.3/00__meeting_event_index.sql", pending[0].path)

		pending, err = s.pendingMigrations("0.3.0", current)
		require.NoError(t, err)
		assert.Len(t, pending, 1, driver)

		pending, err = s.pendingMigrations(current, current)
		require.NoError(t, err)
		assert.Empty(t, pending, driver)
	}
}
