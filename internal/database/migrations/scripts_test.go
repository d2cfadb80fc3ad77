package migrations

import (
	"context"
	"testing"
	"testing/fstest"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/maberbac/gestion-condos-sub001/internal/config"
	"github.com/maberbac/gestion-condos-sub001/internal/database"
	"github.com/maberbac/gestion-condos-sub001/internal/models"
)

func setupScriptTestDB(t *testing.T) *database.Database {
	t.Helper()

	gdb, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := gdb.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	db := database.NewDatabase(config.Database{Driver: "sqlite", Path: ":memory:"})
	db.SetDB(gdb)
	return db
}

func TestFromFS(t *testing.T) {
	t.Run("Loads ordered scripts and applies them once", func(t *testing.T) {
		fsys := fstest.MapFS{
			"004_create_parking_levels.sql": &fstest.MapFile{Data: []byte(`
-- parking levels per project
CREATE TABLE parking_levels (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	project_id INTEGER NOT NULL,
	level INTEGER NOT NULL
);
CREATE INDEX idx_parking_levels_project ON parking_levels(project_id);
`)},
			"005_seed_parking_levels.sql": &fstest.MapFile{Data: []byte(`
INSERT INTO parking_levels (project_id, level) VALUES (1, -1);
INSERT INTO parking_levels (project_id, level) VALUES (1, -2);
`)},
		}

		scripts, err := FromFS(fsys)
		require.NoError(t, err)
		require.Len(t, scripts, 2)
		assert.Equal(t, "004", scripts[0].Version)
		assert.Equal(t, "create_parking_levels", scripts[0].Name)
		assert.Equal(t, "005", scripts[1].Version)

		db := setupScriptTestDB(t)
		runner := database.NewMigrationRunner(db, zerolog.New(nil).Level(zerolog.Disabled))
		runner.RegisterAll(scripts)

		ctx := context.Background()
		require.NoError(t, runner.Run(ctx))

		var rows int64
		require.NoError(t, db.DB().Table("parking_levels").Count(&rows).Error)
		assert.Equal(t, int64(2), rows)

		// Re-running must not duplicate the seeded rows
		require.NoError(t, runner.Run(ctx))
		require.NoError(t, db.DB().Table("parking_levels").Count(&rows).Error)
		assert.Equal(t, int64(2), rows)

		var ledger int64
		require.NoError(t, db.DB().Model(&models.Migration{}).Count(&ledger).Error)
		assert.Equal(t, int64(2), ledger)
	})

	t.Run("Orders prefixes numerically across widths", func(t *testing.T) {
		// Lexicographic ordering would apply the insert before its table exists
		fsys := fstest.MapFS{
			"2_create_owners.sql": &fstest.MapFile{Data: []byte(`
CREATE TABLE owners (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT NOT NULL
);
`)},
			"10_seed_owners.sql": &fstest.MapFile{Data: []byte(`
INSERT INTO owners (name) VALUES ('syndicate');
`)},
		}

		scripts, err := FromFS(fsys)
		require.NoError(t, err)
		require.Len(t, scripts, 2)
		assert.Equal(t, "2", scripts[0].Version)
		assert.Equal(t, "10", scripts[1].Version)

		db := setupScriptTestDB(t)
		runner := database.NewMigrationRunner(db, zerolog.New(nil).Level(zerolog.Disabled))
		runner.RegisterAll(scripts)
		require.NoError(t, runner.Run(context.Background()))

		var rows int64
		require.NoError(t, db.DB().Table("owners").Count(&rows).Error)
		assert.Equal(t, int64(1), rows)
	})

	t.Run("Rejects scripts without an ordering prefix", func(t *testing.T) {
		fsys := fstest.MapFS{
			"fix_things.sql": &fstest.MapFile{Data: []byte("SELECT 1;")},
		}
		_, err := FromFS(fsys)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "ordering prefix")
	})

	t.Run("Rejects empty scripts", func(t *testing.T) {
		fsys := fstest.MapFS{
			"006_noop.sql": &fstest.MapFile{Data: []byte("-- nothing here\n")},
		}
		_, err := FromFS(fsys)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "no statements")
	})
}

func TestSplitStatements(t *testing.T) {
	script := `
-- leading comment
CREATE TABLE a (id INTEGER);
-- between statements
INSERT INTO a (id) VALUES (1);

`
	statements := splitStatements(script)
	require.Len(t, statements, 2)
	assert.Equal(t, "CREATE TABLE a (id INTEGER)", statements[0])
	assert.Equal(t, "INSERT INTO a (id) VALUES (1)", statements[1])
}
