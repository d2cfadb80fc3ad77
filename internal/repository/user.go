package repository

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/maberbac/gestion-condos-sub001/internal/database"
	"github.com/maberbac/gestion-condos-sub001/internal/models"
	"github.com/maberbac/gestion-condos-sub001/internal/utils"
)

const minPasswordLength = 8

// gormUserRepository implements UserRepository against the shared store
// handle.
type gormUserRepository struct {
	db     *database.Database
	logger zerolog.Logger
}

// NewUserRepository creates a UserRepository over a migrated store.
func NewUserRepository(db *database.Database, logger zerolog.Logger) (UserRepository, error) {
	if !db.Migrated() {
		return nil, fmt.Errorf("user repository requires a migrated store handle")
	}
	return &gormUserRepository{
		db:     db,
		logger: logger,
	}, nil
}

// CreateUser validates the input, hashes the password and inserts the user.
// A duplicate username is a domain conflict, not a storage fault.
func (r *gormUserRepository) CreateUser(ctx context.Context, input CreateUserInput) (*models.User, error) {
	if input.Username == "" {
		return nil, utils.RequiredFieldError("username")
	}
	if len(input.Password) < minPasswordLength {
		return nil, utils.InvalidFieldError("password", fmt.Sprintf("must be at least %d characters", minPasswordLength))
	}
	role := input.Role
	if role == "" {
		role = models.RoleGuest
	}
	if !models.ValidRole(role) {
		return nil, utils.InvalidFieldError("role", fmt.Sprintf("unknown role '%s'", input.Role))
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, utils.WrapPersistenceError("hash password", err)
	}

	user := &models.User{
		Username: input.Username,
		Password: string(hash),
		Role:     role,
		FullName: input.FullName,
		Email:    input.Email,
		Phone:    input.Phone,
	}

	if err := r.db.DB().WithContext(ctx).Create(user).Error; err != nil {
		if isUniqueViolation(err) {
			return nil, utils.WrapConflictError("user", "username", input.Username)
		}
		return nil, utils.WrapPersistenceError("create user", err)
	}

	r.logger.Info().Uint("user_id", user.ID).Str("role", user.Role).Msg("Created user")
	return user, nil
}

// GetUser returns a user by its stable id.
func (r *gormUserRepository) GetUser(ctx context.Context, userID uint) (*models.User, error) {
	var user models.User
	if err := r.db.DB().WithContext(ctx).First(&user, userID).Error; err != nil {
		return nil, translateStorageError(err, "get user", "user", formatID(userID))
	}
	return &user, nil
}

// GetUserByUsername returns a user by its unique username.
func (r *gormUserRepository) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	if username == "" {
		return nil, utils.RequiredFieldError("username")
	}

	var user models.User
	err := r.db.DB().WithContext(ctx).Where("username = ?", username).First(&user).Error
	if err != nil {
		return nil, translateStorageError(err, "get user by username", "user", username)
	}
	return &user, nil
}

// ListUsers returns all users ordered by id.
func (r *gormUserRepository) ListUsers(ctx context.Context) ([]models.User, error) {
	var users []models.User
	if err := r.db.DB().WithContext(ctx).Order("id ASC").Find(&users).Error; err != nil {
		return nil, utils.WrapPersistenceError("list users", err)
	}
	return users, nil
}

// UpdateUser applies targeted column updates to the user row.
func (r *gormUserRepository) UpdateUser(ctx context.Context, userID uint, changes UserChanges) (*models.User, error) {
	cols := map[string]interface{}{}
	if changes.Role != nil {
		if !models.ValidRole(*changes.Role) {
			return nil, utils.InvalidFieldError("role", fmt.Sprintf("unknown role '%s'", *changes.Role))
		}
		cols["role"] = *changes.Role
	}
	if changes.FullName != nil {
		cols["full_name"] = *changes.FullName
	}
	if changes.Email != nil {
		cols["email"] = *changes.Email
	}
	if changes.Phone != nil {
		cols["phone"] = *changes.Phone
	}
	if len(cols) == 0 {
		return nil, utils.WrapValidationError("", "no fields to update")
	}

	res := r.db.DB().WithContext(ctx).Model(&models.User{}).
		Where("id = ?", userID).
		Updates(cols)
	if res.Error != nil {
		return nil, utils.WrapPersistenceError("update user", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, utils.WrapNotFoundError("user", formatID(userID))
	}

	return r.GetUser(ctx, userID)
}

// ChangePassword re-hashes and stores a new password for the user.
func (r *gormUserRepository) ChangePassword(ctx context.Context, userID uint, newPassword string) error {
	if len(newPassword) < minPasswordLength {
		return utils.InvalidFieldError("password", fmt.Sprintf("must be at least %d characters", minPasswordLength))
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return utils.WrapPersistenceError("hash password", err)
	}

	res := r.db.DB().WithContext(ctx).Model(&models.User{}).
		Where("id = ?", userID).
		Update("password", string(hash))
	if res.Error != nil {
		return utils.WrapPersistenceError("change password", res.Error)
	}
	if res.RowsAffected == 0 {
		return utils.WrapNotFoundError("user", formatID(userID))
	}
	return nil
}

// Authenticate verifies a username/password pair. It is a credential check
// only; session handling lives with the caller. A wrong password and an
// unknown username both report not found, so callers cannot probe for
// usernames.
func (r *gormUserRepository) Authenticate(ctx context.Context, username, password string) (*models.User, error) {
	user, err := r.GetUserByUsername(ctx, username)
	if err != nil {
		if utils.IsNotFoundError(err) {
			return nil, utils.WrapNotFoundError("user", "")
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, utils.WrapNotFoundError("user", "")
	}

	return user, nil
}

// DeleteUser removes a user by id.
func (r *gormUserRepository) DeleteUser(ctx context.Context, userID uint) error {
	res := r.db.DB().WithContext(ctx).Delete(&models.User{}, userID)
	if res.Error != nil {
		return utils.WrapPersistenceError("delete user", res.Error)
	}
	if res.RowsAffected == 0 {
		return utils.WrapNotFoundError("user", formatID(userID))
	}
	return nil
}
