package migrations

import (
	"github.com/maberbac/gestion-condos-sub001/internal/database"
)

// GetMigrations returns all built-in migrations in registration order. The
// runner sorts by version before applying.
func GetMigrations() []database.Migration {
	return []database.Migration{
		{
			Version: "001",
			Name:    "create_core_tables",
			Run:     CreateCoreTables,
		},
		{
			Version: "002",
			Name:    "seed_admin_user",
			Run:     SeedAdminUser,
		},
		{
			Version: "003",
			Name:    "backfill_monthly_fees",
			Run:     BackfillMonthlyFees,
		},
	}
}
