package migrations

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/maberbac/gestion-condos-sub001/internal/database"
)

// Script files are named like 004_add_parking_levels.sql: the numeric prefix
// is the ordering key and the remainder is the human-readable name.
var scriptNamePattern = regexp.MustCompile(`^(\d+)_(.+)\.sql$`)

// FromDir loads ordered .sql migration scripts from a directory on disk.
func FromDir(dir string) ([]database.Migration, error) {
	return FromFS(os.DirFS(dir))
}

// FromFS loads ordered .sql migration scripts from a filesystem. Each file
// becomes one migration whose statements execute together in the runner's
// transaction. Files that do not match the naming pattern are rejected
// rather than silently skipped, since an unordered script cannot be tracked.
// Prefixes are ordered numerically, so 2_x.sql applies before 10_y.sql
// regardless of prefix width.
func FromFS(fsys fs.FS) ([]database.Migration, error) {
	entries, err := fs.Glob(fsys, "*.sql")
	if err != nil {
		return nil, fmt.Errorf("failed to list migration scripts: %w", err)
	}

	type parsed struct {
		file    string
		order   int
		version string
		name    string
	}

	files := make([]parsed, 0, len(entries))
	for _, entry := range entries {
		m := scriptNamePattern.FindStringSubmatch(entry)
		if m == nil {
			return nil, fmt.Errorf("migration script %q has no numeric ordering prefix", entry)
		}
		order, err := strconv.Atoi(m[1])
		if err != nil {
			return nil, fmt.Errorf("migration script %q has an unparseable ordering prefix: %w", entry, err)
		}
		files = append(files, parsed{file: entry, order: order, version: m[1], name: m[2]})
	}

	sort.Slice(files, func(i, j int) bool {
		return files[i].order < files[j].order
	})

	var scripts []database.Migration
	for _, f := range files {
		content, err := fs.ReadFile(fsys, f.file)
		if err != nil {
			return nil, fmt.Errorf("failed to read migration script %q: %w", f.file, err)
		}

		statements := splitStatements(string(content))
		if len(statements) == 0 {
			return nil, fmt.Errorf("migration script %q contains no statements", f.file)
		}

		scripts = append(scripts, database.Migration{
			Version: f.version,
			Name:    f.name,
			Run:     runStatements(f.file, statements),
		})
	}

	return scripts, nil
}

// runStatements returns a MigrationFunc executing the script's statements in
// order within the caller's transaction.
func runStatements(source string, statements []string) database.MigrationFunc {
	return func(ctx context.Context, db *gorm.DB, logger zerolog.Logger) error {
		logger.Debug().Str("script", source).Int("statements", len(statements)).Msg("Executing migration script")
		for i, stmt := range statements {
			if err := db.WithContext(ctx).Exec(stmt).Error; err != nil {
				return fmt.Errorf("statement %d of %s: %w", i+1, source, err)
			}
		}
		return nil
	}
}

// splitStatements breaks a script into individual SQL statements, dropping
// comment lines and empty fragments. Statements containing string literals
// with semicolons are not supported.
func splitStatements(script string) []string {
	var lines []string
	for _, line := range strings.Split(script, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "--") {
			continue
		}
		lines = append(lines, line)
	}

	var statements []string
	for _, chunk := range strings.Split(strings.Join(lines, "\n"), ";") {
		if stmt := strings.TrimSpace(chunk); stmt != "" {
			statements = append(statements, stmt)
		}
	}
	return statements
}
