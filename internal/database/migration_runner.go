package database

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/maberbac/gestion-condos-sub001/internal/models"
	"github.com/maberbac/gestion-condos-sub001/internal/utils"
)

// MigrationFunc is a function that performs a migration. It runs inside a
// transaction; returning an error rolls back every statement of the script.
type MigrationFunc func(ctx context.Context, db *gorm.DB, logger zerolog.Logger) error

// Migration represents a migration script to be run. Version is the ordering
// key; scripts are applied in ascending numeric version order, each at most
// once, so version "2" applies before version "10" regardless of zero
// padding.
type Migration struct {
	Version string
	Name    string
	Run     MigrationFunc
}

// MigrationRunner applies pending migrations against a single store handle.
// There is exactly one logical migration authority per store: every
// repository depends on the handle the runner marks as migrated, rather than
// running its own migrations. Independent runners once re-executed seed
// scripts on every restart and overwrote live data; the ledger plus this
// single-authority policy is what prevents that.
type MigrationRunner struct {
	db         *Database
	logger     zerolog.Logger
	migrations []Migration
}

// NewMigrationRunner creates a new migration runner
func NewMigrationRunner(db *Database, logger zerolog.Logger) *MigrationRunner {
	return &MigrationRunner{
		db:         db,
		logger:     logger,
		migrations: []Migration{},
	}
}

// Register adds a migration to the runner
func (r *MigrationRunner) Register(migration Migration) {
	r.migrations = append(r.migrations, migration)
}

// RegisterAll adds a batch of migrations to the runner
func (r *MigrationRunner) RegisterAll(migrations []Migration) {
	r.migrations = append(r.migrations, migrations...)
}

// Run executes all pending migrations in version order. Any failure aborts
// the run after rolling back the failing script; the error is fatal to
// startup and is never retried automatically. On success the store handle is
// marked migrated, which unblocks repository construction.
func (r *MigrationRunner) Run(ctx context.Context) error {
	gdb := r.db.DB()
	if gdb == nil {
		return utils.WrapMigrationError("", fmt.Errorf("database not connected"))
	}

	// The ledger table must exist before it can track anything, so it is
	// created idempotently ahead of every other migration.
	if err := gdb.WithContext(ctx).AutoMigrate(&models.Migration{}); err != nil {
		return utils.WrapMigrationError("", fmt.Errorf("failed to create migrations ledger: %w", err))
	}

	sort.Slice(r.migrations, func(i, j int) bool {
		return versionLess(r.migrations[i].Version, r.migrations[j].Version)
	})

	// Colliding versions would apply in an arbitrary relative order and the
	// loser would only surface as a ledger unique-constraint failure, so the
	// collision is rejected up front with both script names.
	seen := make(map[string]string, len(r.migrations))
	for _, migration := range r.migrations {
		key := normalizeVersion(migration.Version)
		if prev, ok := seen[key]; ok {
			return utils.WrapMigrationError(migration.Version,
				fmt.Errorf("duplicate migration version: %q registered by both %q and %q", migration.Version, prev, migration.Name))
		}
		seen[key] = migration.Name
	}

	applied, err := r.appliedVersions(ctx)
	if err != nil {
		return err
	}

	for _, migration := range r.migrations {
		if applied[migration.Version] {
			r.logger.Debug().
				Str("version", migration.Version).
				Str("name", migration.Name).
				Msg("Migration already applied, skipping")
			continue
		}

		r.logger.Info().
			Str("version", migration.Version).
			Str("name", migration.Name).
			Msg("Running migration")

		tx := gdb.WithContext(ctx).Begin()
		if tx.Error != nil {
			return utils.WrapMigrationError(migration.Version, fmt.Errorf("failed to start transaction: %w", tx.Error))
		}

		if err := migration.Run(ctx, tx, r.logger); err != nil {
			tx.Rollback()
			return utils.WrapMigrationError(migration.Version, err)
		}

		// Recording the script in the ledger commits atomically with the
		// schema change itself: either both happen or neither does.
		record := &models.Migration{
			Version:   migration.Version,
			Name:      migration.Name,
			AppliedAt: time.Now().UTC(),
		}

		if err := tx.Create(record).Error; err != nil {
			tx.Rollback()
			return utils.WrapMigrationError(migration.Version, fmt.Errorf("failed to record migration: %w", err))
		}

		if err := tx.Commit().Error; err != nil {
			return utils.WrapMigrationError(migration.Version, fmt.Errorf("failed to commit migration: %w", err))
		}

		r.logger.Info().
			Str("version", migration.Version).
			Str("name", migration.Name).
			Msg("Migration completed successfully")
	}

	r.db.markMigrated()
	return nil
}

// HasApplied reports whether the ledger records the given version.
func (r *MigrationRunner) HasApplied(ctx context.Context, version string) (bool, error) {
	applied, err := r.appliedVersions(ctx)
	if err != nil {
		return false, err
	}
	return applied[version], nil
}

// GetPendingMigrations returns registered migrations not yet in the ledger,
// in version order.
func (r *MigrationRunner) GetPendingMigrations(ctx context.Context) ([]Migration, error) {
	applied, err := r.appliedVersions(ctx)
	if err != nil {
		return nil, err
	}

	var pending []Migration
	for _, migration := range r.migrations {
		if !applied[migration.Version] {
			pending = append(pending, migration)
		}
	}
	sort.Slice(pending, func(i, j int) bool {
		return versionLess(pending[i].Version, pending[j].Version)
	})

	return pending, nil
}

// versionLess orders versions numerically when both parse as integers, so
// "2" sorts before "10". Non-numeric versions fall back to lexicographic
// order.
func versionLess(a, b string) bool {
	ai, aerr := strconv.Atoi(a)
	bi, berr := strconv.Atoi(b)
	if aerr == nil && berr == nil {
		return ai < bi
	}
	return a < b
}

// normalizeVersion collapses zero padding so "003" and "3" count as the same
// version for collision detection.
func normalizeVersion(v string) string {
	if n, err := strconv.Atoi(v); err == nil {
		return strconv.Itoa(n)
	}
	return v
}

// appliedVersions reads the ledger into a version set.
func (r *MigrationRunner) appliedVersions(ctx context.Context) (map[string]bool, error) {
	var versions []string
	if err := r.db.DB().WithContext(ctx).Model(&models.Migration{}).Pluck("version", &versions).Error; err != nil {
		return nil, utils.WrapMigrationError("", fmt.Errorf("failed to read migrations ledger: %w", err))
	}

	applied := make(map[string]bool, len(versions))
	for _, v := range versions {
		applied[v] = true
	}
	return applied, nil
}
