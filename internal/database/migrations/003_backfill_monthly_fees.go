package migrations

import (
	"context"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/maberbac/gestion-condos-sub001/internal/models"
)

// BackfillMonthlyFees recomputes the monthly fee for unit rows imported
// before fees were derived from area and type. Only rows with a zero fee and
// a positive area are touched; ids are never rewritten.
func BackfillMonthlyFees(ctx context.Context, db *gorm.DB, logger zerolog.Logger) error {
	var units []models.Unit
	if err := db.WithContext(ctx).
		Where("monthly_fee = 0 AND area > 0").
		Find(&units).Error; err != nil {
		return err
	}

	if len(units) == 0 {
		logger.Debug().Msg("No unit fees to backfill")
		return nil
	}

	for _, unit := range units {
		fee := models.CalculateMonthlyFee(unit.Area, unit.Type)
		if err := db.WithContext(ctx).Model(&models.Unit{}).
			Where("id = ?", unit.ID).
			Update("monthly_fee", fee).Error; err != nil {
			return err
		}
	}

	logger.Info().Int("units", len(units)).Msg("Backfilled unit monthly fees")
	return nil
}
