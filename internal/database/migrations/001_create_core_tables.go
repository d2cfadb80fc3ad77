package migrations

import (
	"context"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/maberbac/gestion-condos-sub001/internal/models"
)

// CreateCoreTables creates the projects, units and users tables with their
// indexes and the units→projects foreign key.
func CreateCoreTables(ctx context.Context, db *gorm.DB, logger zerolog.Logger) error {
	logger.Info().Msg("Creating core tables")

	if err := db.WithContext(ctx).AutoMigrate(
		&models.Project{},
		&models.Unit{},
		&models.User{},
	); err != nil {
		return err
	}

	return nil
}
