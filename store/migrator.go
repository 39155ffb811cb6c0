package store

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"log/slog"
	"path"
	"sort"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/poly000/tg-google-meet-bot/internal/version"
)

// Schema files live in migration/{driver}/. LATEST.sql creates the meeting
// and system_setting tables on a fresh database. Upgrades are
// {minor}/{NN}__{description}.sql, where patch NN moves the schema to
// {minor}.{NN+1}. The applied version is kept in the schema_version setting.

//go:embed migration
var migrationFS embed.FS

const (
	// MigrateFileNameSplit separates the patch number from the description.
	MigrateFileNameSplit = "__"
	// LatestSchemaFileName is the full schema for an empty database.
	LatestSchemaFileName = "LATEST.sql"
)

// migration is one upgrade script and the schema version it produces.
type migration struct {
	path    string
	version string
}

// Migrate creates the schema on an empty database, or applies the upgrade
// scripts between the recorded schema version and the one this build expects.
func (s *Store) Migrate(ctx context.Context) error {
	target, err := s.GetCurrentSchemaVersion()
	if err != nil {
		return err
	}

	initialized, err := s.driver.IsInitialized(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to check if database is initialized")
	}
	if !initialized {
		latest := s.migrationDir() + LatestSchemaFileName
		if err := s.runScripts(ctx, latest); err != nil {
			return err
		}
		slog.Info("meeting schema created", slog.String("schemaVersion", target))
		return s.updateCurrentSchemaVersion(ctx, target)
	}

	applied, err := s.getDatabaseSchemaVersion(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to get database schema version")
	}
	if applied == target {
		return nil
	}
	if applied != "" && version.IsVersionGreaterThan(applied, target) {
		return errors.Errorf("cannot downgrade schema version from %s to %s", applied, target)
	}

	pending, err := s.pendingMigrations(applied, target)
	if err != nil {
		return err
	}
	paths := make([]string, 0, len(pending))
	for _, m := range pending {
		paths = append(paths, m.path)
	}
	if err := s.runScripts(ctx, paths...); err != nil {
		return err
	}
	slog.Info("meeting schema upgraded",
		slog.String("from", applied),
		slog.String("to", target),
		slog.Int("scripts", len(paths)))
	return s.updateCurrentSchemaVersion(ctx, target)
}

// GetCurrentSchemaVersion returns the schema version this build expects: the
// newest upgrade script of the current minor version, or {minor}.0 if none.
func (s *Store) GetCurrentSchemaVersion() (string, error) {
	minor := version.GetMinorVersion(version.GetCurrentVersion(s.profile.Mode))
	migrations, err := s.listMigrations()
	if err != nil {
		return "", err
	}
	current := minor + ".0"
	for _, m := range migrations {
		if version.GetMinorVersion(m.version) == minor {
			current = m.version
		}
	}
	return current, nil
}

func (s *Store) migrationDir() string {
	return fmt.Sprintf("migration/%s/", s.profile.Driver)
}

// listMigrations returns the driver's upgrade scripts ordered by version.
func (s *Store) listMigrations() ([]migration, error) {
	paths, err := fs.Glob(migrationFS, s.migrationDir()+"*/*.sql")
	if err != nil {
		return nil, errors.Wrap(err, "failed to list migration files")
	}
	migrations := make([]migration, 0, len(paths))
	for _, p := range paths {
		v, err := migrationVersion(p)
		if err != nil {
			return nil, err
		}
		migrations = append(migrations, migration{path: p, version: v})
	}
	sort.Slice(migrations, func(i, j int) bool {
		return version.IsVersionGreaterThan(migrations[j].version, migrations[i].version)
	})
	return migrations, nil
}

// pendingMigrations returns the scripts with a version in (applied, target].
func (s *Store) pendingMigrations(applied, target string) ([]migration, error) {
	if applied == "" {
		applied = "0.0.0"
	}
	migrations, err := s.listMigrations()
	if err != nil {
		return nil, err
	}
	var pending []migration
	for _, m := range migrations {
		if version.IsVersionGreaterThan(m.version, applied) && version.IsVersionGreaterOrEqualThan(target, m.version) {
			pending = append(pending, m)
		}
	}
	return pending, nil
}

// migrationVersion maps "migration/sqlite/0.3/00__meeting_event_index.sql" to "0.3.1".
func migrationVersion(p string) (string, error) {
	minor := path.Base(path.Dir(p))
	prefix, _, found := strings.Cut(path.Base(p), MigrateFileNameSplit)
	if !found {
		return "", errors.Errorf("migration %s is not named NN%sdescription.sql", p, MigrateFileNameSplit)
	}
	patch, err := strconv.Atoi(prefix)
	if err != nil {
		return "", errors.Wrapf(err, "migration %s has no numeric patch", p)
	}
	return fmt.Sprintf("%s.%d", minor, patch+1), nil
}

// runScripts executes the statements of every script in one transaction.
func (s *Store) runScripts(ctx context.Context, paths ...string) error {
	tx, err := s.driver.GetDB().BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "failed to start transaction")
	}
	defer tx.Rollback()

	for _, p := range paths {
		script, err := migrationFS.ReadFile(p)
		if err != nil {
			return errors.Wrapf(err, "failed to read %s", p)
		}
		if err := execStatements(ctx, tx, splitStatements(string(script))); err != nil {
			return errors.Wrapf(err, "failed to apply %s", p)
		}
	}
	return errors.Wrap(tx.Commit(), "failed to commit schema change")
}

// execStatements runs statements one at a time; lib/pq rejects several in one Exec.
func execStatements(ctx context.Context, tx *sql.Tx, statements []string) error {
	for _, stmt := range statements {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return errors.Wrapf(err, "failed to execute %q", stmt)
		}
	}
	return nil
}

// splitStatements drops "--" comments and splits a schema script on ";".
// Schema files keep ";" and "--" out of string literals.
func splitStatements(script string) []string {
	var b strings.Builder
	for _, line := range strings.Split(script, "\n") {
		if i := strings.Index(line, "--"); i >= 0 {
			line = line[:i]
		}
		b.WriteString(line)
		b.WriteByte('\n')
	}

	var statements []string
	for _, stmt := range strings.Split(b.String(), ";") {
		if stmt = strings.TrimSpace(stmt); stmt != "" {
			statements = append(statements, stmt)
		}
	}
	return statements
}

func (s *Store) getDatabaseSchemaVersion(ctx context.Context) (string, error) {
	setting, err := s.GetSystemSetting(ctx, &FindSystemSetting{Name: SchemaVersionSettingName})
	if err != nil {
		return "", err
	}
	if setting == nil {
		return "", nil
	}
	return setting.Value, nil
}

func (s *Store) updateCurrentSchemaVersion(ctx context.Context, schemaVersion string) error {
	if _, err := s.UpsertSystemSetting(ctx, &SystemSetting{
		Name:        SchemaVersionSettingName,
		Value:       schemaVersion,
		Description: "applied database schema version",
	}); err != nil {
		return errors.Wrap(err, "failed to upsert schema version")
	}
	return nil
}
