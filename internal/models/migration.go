package models

import (
	"time"
)

// Migration is a ledger row recording a schema migration that has been
// applied. A version appears at most once; once recorded, the corresponding
// script is never re-executed against this store.
type Migration struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Version   string    `gorm:"uniqueIndex;not null" json:"version"`
	Name      string    `gorm:"not null" json:"name"`
	AppliedAt time.Time `json:"applied_at"`
}

// TableName ensures consistent table naming
func (Migration) TableName() string {
	return "schema_migrations"
}
