package models

import (
	"time"
)

// Unit types recognized by the fee schedule
const (
	UnitTypeResidential = "residential"
	UnitTypeCommercial  = "commercial"
	UnitTypeParking     = "parking"
	UnitTypeStorage     = "storage"
)

// Availability statuses for units
const (
	StatusAvailable   = "available"
	StatusOccupied    = "occupied"
	StatusReserved    = "reserved"
	StatusMaintenance = "maintenance"
)

// Monthly fee rates per square meter, by unit type
var feeRates = map[string]float64{
	UnitTypeResidential: 2.50,
	UnitTypeCommercial:  4.00,
	UnitTypeParking:     1.20,
	UnitTypeStorage:     0.80,
}

// Project represents a condominium project that owns a collection of units.
// The ID is assigned once at creation and never changes.
type Project struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Name        string    `gorm:"uniqueIndex;not null" json:"name"`
	Address     string    `json:"address"`
	Description string    `json:"description"`
	UnitCount   int       `gorm:"not null;default:0" json:"unit_count"`
	Units       []Unit    `gorm:"foreignKey:ProjectID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"units,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TableName ensures consistent table naming
func (Project) TableName() string {
	return "projects"
}

// Unit represents a single unit owned by a project. Both ID and ProjectID
// are assigned at creation and are never rewritten by updates to sibling
// units in the same project.
type Unit struct {
	ID                 uint      `gorm:"primaryKey" json:"id"`
	ProjectID          uint      `gorm:"not null;index;uniqueIndex:idx_units_project_number" json:"project_id"`
	UnitNumber         string    `gorm:"not null;uniqueIndex:idx_units_project_number" json:"unit_number"`
	Floor              int       `json:"floor"`
	Area               float64   `json:"area"`
	Type               string    `gorm:"not null;default:residential" json:"type"`
	MonthlyFee         float64   `json:"monthly_fee"`
	AvailabilityStatus string    `gorm:"not null;default:available;index" json:"availability_status"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// TableName ensures consistent table naming
func (Unit) TableName() string {
	return "units"
}

// ValidUnitType reports whether t is a recognized unit type.
func ValidUnitType(t string) bool {
	_, ok := feeRates[t]
	return ok
}

// ValidAvailabilityStatus reports whether s is a recognized availability status.
func ValidAvailabilityStatus(s string) bool {
	switch s {
	case StatusAvailable, StatusOccupied, StatusReserved, StatusMaintenance:
		return true
	}
	return false
}

// CalculateMonthlyFee derives the monthly fee from a unit's area and type.
// Unknown types fall back to the residential rate.
func CalculateMonthlyFee(area float64, unitType string) float64 {
	rate, ok := feeRates[unitType]
	if !ok {
		rate = feeRates[UnitTypeResidential]
	}
	return area * rate
}
