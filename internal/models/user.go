package models

import (
	"time"
)

// User roles
const (
	RoleAdmin    = "admin"
	RoleResident = "resident"
	RoleGuest    = "guest"
)

// User is an independent aggregate, not owned by any project.
type User struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Username  string    `gorm:"uniqueIndex;not null" json:"username"`
	Password  string    `gorm:"not null" json:"-"`
	Role      string    `gorm:"not null;default:guest" json:"role"`
	FullName  string    `json:"full_name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName ensures consistent table naming
func (User) TableName() string {
	return "users"
}

// ValidRole reports whether r is a recognized user role.
func ValidRole(r string) bool {
	switch r {
	case RoleAdmin, RoleResident, RoleGuest:
		return true
	}
	return false
}
