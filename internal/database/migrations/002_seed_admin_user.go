package migrations

import (
	"context"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/maberbac/gestion-condos-sub001/internal/models"
)

// DefaultAdminUsername is the username seeded for first login.
const DefaultAdminUsername = "admin"

// defaultAdminPassword is only ever written as a bcrypt hash and is expected
// to be changed on first login.
const defaultAdminPassword = "admin"

// SeedAdminUser inserts the default administrator account. The migrations
// ledger guarantees this runs at most once per store, so a restart can never
// overwrite an admin whose password or profile has since been edited.
func SeedAdminUser(ctx context.Context, db *gorm.DB, logger zerolog.Logger) error {
	var count int64
	if err := db.WithContext(ctx).Model(&models.User{}).
		Where("username = ?", DefaultAdminUsername).
		Count(&count).Error; err != nil {
		return err
	}

	if count > 0 {
		logger.Debug().Msg("Admin user already present, nothing to seed")
		return nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(defaultAdminPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	admin := &models.User{
		Username: DefaultAdminUsername,
		Password: string(hash),
		Role:     models.RoleAdmin,
		FullName: "Administrator",
	}

	if err := db.WithContext(ctx).Create(admin).Error; err != nil {
		return err
	}

	logger.Info().Msg("Seeded default admin user; change its password on first login")
	return nil
}
