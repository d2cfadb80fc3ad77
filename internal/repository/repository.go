package repository

import (
	"context"

	"github.com/maberbac/gestion-condos-sub001/internal/models"
)

// UnitInput describes a unit to create. Zero-value fields fall back to
// sensible defaults (residential type, available status).
type UnitInput struct {
	UnitNumber         string
	Floor              int
	Area               float64
	Type               string
	AvailabilityStatus string
}

// CreateProjectInput describes a project to create together with its initial
// units. When Units is empty, InitialUnitCount default units are generated.
type CreateProjectInput struct {
	Name             string
	Address          string
	Description      string
	InitialUnitCount int
	Units            []UnitInput
}

// ProjectChanges carries targeted project field updates; nil fields are left
// untouched.
type ProjectChanges struct {
	Name        *string
	Address     *string
	Description *string
}

// UnitChanges carries targeted unit field updates; nil fields are left
// untouched. The unit's id and project id are never among the updatable
// columns. Changing Area or Type recomputes the derived monthly fee.
type UnitChanges struct {
	UnitNumber         *string
	Floor              *int
	Area               *float64
	Type               *string
	AvailabilityStatus *string
}

// ProjectStatistics is a pure fold over a project's current unit rows. It is
// recomputed on every call; there is no caching layer.
type ProjectStatistics struct {
	ProjectID        uint    `json:"project_id"`
	UnitCount        int     `json:"unit_count"`
	AvailableCount   int     `json:"available_count"`
	OccupiedCount    int     `json:"occupied_count"`
	ReservedCount    int     `json:"reserved_count"`
	MaintenanceCount int     `json:"maintenance_count"`
	TotalArea        float64 `json:"total_area"`
	TotalMonthlyFees float64 `json:"total_monthly_fees"`
	OccupancyRate    float64 `json:"occupancy_rate"`
}

// ProjectRepository is the sole data-access surface for the Project/Unit
// aggregate. Lookups by id are canonical; name and (project, unit number)
// lookups are compatibility shims that resolve to an id and delegate, so
// there is exactly one write path into storage.
type ProjectRepository interface {
	CreateProject(ctx context.Context, input CreateProjectInput) (*models.Project, error)
	GetProject(ctx context.Context, projectID uint) (*models.Project, error)
	GetProjectByName(ctx context.Context, name string) (*models.Project, error)
	ListProjects(ctx context.Context) ([]models.Project, error)
	GetProjectStatistics(ctx context.Context, projectID uint) (*ProjectStatistics, error)
	UpdateProject(ctx context.Context, projectID uint, changes ProjectChanges) (*models.Project, error)
	UpdateProjectUnits(ctx context.Context, projectID uint, newUnitCount int) (*models.Project, error)
	DeleteProject(ctx context.Context, projectID uint) error

	AddUnit(ctx context.Context, projectID uint, input UnitInput) (*models.Unit, error)
	GetUnit(ctx context.Context, unitID uint) (*models.Unit, error)
	GetUnitByNumber(ctx context.Context, projectID uint, unitNumber string) (*models.Unit, error)
	ListUnits(ctx context.Context, projectID uint) ([]models.Unit, error)
	UpdateUnit(ctx context.Context, unitID uint, changes UnitChanges) (*models.Unit, error)
	UpdateUnitByNumber(ctx context.Context, projectID uint, unitNumber string, changes UnitChanges) (*models.Unit, error)
	DeleteUnit(ctx context.Context, unitID uint) error
}

// CreateUserInput describes a user to create. Password is hashed before it
// reaches storage.
type CreateUserInput struct {
	Username string
	Password string
	Role     string
	FullName string
	Email    string
	Phone    string
}

// UserChanges carries targeted user field updates; nil fields are left
// untouched. Passwords change through ChangePassword only.
type UserChanges struct {
	Role     *string
	FullName *string
	Email    *string
	Phone    *string
}

// UserRepository is the data-access surface for the User aggregate.
type UserRepository interface {
	CreateUser(ctx context.Context, input CreateUserInput) (*models.User, error)
	GetUser(ctx context.Context, userID uint) (*models.User, error)
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	ListUsers(ctx context.Context) ([]models.User, error)
	UpdateUser(ctx context.Context, userID uint, changes UserChanges) (*models.User, error)
	ChangePassword(ctx context.Context, userID uint, newPassword string) error
	Authenticate(ctx context.Context, username, password string) (*models.User, error)
	DeleteUser(ctx context.Context, userID uint) error
}
