package repository

import (
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/maberbac/gestion-condos-sub001/internal/utils"
)

// isUniqueViolation detects duplicate-key failures for both supported
// drivers. SQLite reports "UNIQUE constraint failed", postgres reports
// SQLSTATE 23505.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "duplicate key value violates unique constraint") ||
		strings.Contains(msg, "SQLSTATE 23505")
}

// translateStorageError maps a low-level storage error into the domain
// taxonomy so callers can distinguish an absent row or a duplicate from a
// fault worth retrying.
func translateStorageError(err error, operation, resource, id string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return utils.WrapNotFoundError(resource, id)
	case isUniqueViolation(err):
		return utils.WrapConflictError(resource, "", "")
	default:
		return utils.WrapPersistenceError(operation, err)
	}
}
