package repository

import (
	"context"
	"fmt"
	"regexp"
	"strconv"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/maberbac/gestion-condos-sub001/internal/database"
	"github.com/maberbac/gestion-condos-sub001/internal/models"
	"github.com/maberbac/gestion-condos-sub001/internal/utils"
)

const unitsPerFloor = 10

// generatedUnitNumber matches unit numbers produced by this repository, so
// that growing a project continues the sequence instead of colliding.
var generatedUnitNumber = regexp.MustCompile(`^U-(\d+)$`)

// gormProjectRepository implements ProjectRepository against the shared
// store handle.
type gormProjectRepository struct {
	db     *database.Database
	logger zerolog.Logger
}

// NewProjectRepository creates a ProjectRepository over a migrated store.
// Construction fails if the migration runner has not completed: repositories
// never run their own migrations.
func NewProjectRepository(db *database.Database, logger zerolog.Logger) (ProjectRepository, error) {
	if !db.Migrated() {
		return nil, fmt.Errorf("project repository requires a migrated store handle")
	}
	return &gormProjectRepository{
		db:     db,
		logger: logger,
	}, nil
}

// CreateProject inserts the project and its initial units in one transaction
// and returns the project with all assigned ids populated.
func (r *gormProjectRepository) CreateProject(ctx context.Context, input CreateProjectInput) (*models.Project, error) {
	if input.Name == "" {
		return nil, utils.RequiredFieldError("name")
	}
	if input.InitialUnitCount < 0 {
		return nil, utils.InvalidFieldError("initial_unit_count", "cannot be negative")
	}

	inputs := input.Units
	if len(inputs) == 0 {
		inputs = make([]UnitInput, input.InitialUnitCount)
	}

	units := make([]models.Unit, 0, len(inputs))
	for i, in := range inputs {
		unit, err := buildUnit(in, i)
		if err != nil {
			return nil, err
		}
		units = append(units, unit)
	}

	project := &models.Project{
		Name:        input.Name,
		Address:     input.Address,
		Description: input.Description,
		UnitCount:   len(units),
	}

	err := r.db.WithTransaction(func(tx *gorm.DB) error {
		if err := tx.WithContext(ctx).Create(project).Error; err != nil {
			return err
		}
		if len(units) == 0 {
			return nil
		}
		for i := range units {
			units[i].ProjectID = project.ID
		}
		return tx.WithContext(ctx).Create(&units).Error
	})
	if err != nil {
		if isUniqueViolation(err) {
			return nil, utils.WrapConflictError("project", "name", input.Name)
		}
		return nil, utils.WrapPersistenceError("create project", err)
	}

	project.Units = units
	r.logger.Info().Uint("project_id", project.ID).Int("units", len(units)).Msg("Created project")
	return project, nil
}

// GetProject returns the project and its units, ordered by unit id.
func (r *gormProjectRepository) GetProject(ctx context.Context, projectID uint) (*models.Project, error) {
	var project models.Project
	err := r.db.DB().WithContext(ctx).
		Preload("Units", func(db *gorm.DB) *gorm.DB {
			return db.Order("id ASC")
		}).
		First(&project, projectID).Error
	if err != nil {
		return nil, translateStorageError(err, "get project", "project", formatID(projectID))
	}
	return &project, nil
}

// GetProjectByName is a compatibility shim: it resolves the name to a stable
// project id and delegates to the canonical id-based path.
func (r *gormProjectRepository) GetProjectByName(ctx context.Context, name string) (*models.Project, error) {
	if name == "" {
		return nil, utils.RequiredFieldError("name")
	}

	var ids []uint
	err := r.db.DB().WithContext(ctx).Model(&models.Project{}).
		Where("name = ?", name).
		Limit(1).
		Pluck("id", &ids).Error
	if err != nil {
		return nil, utils.WrapPersistenceError("get project by name", err)
	}
	if len(ids) == 0 {
		return nil, utils.WrapNotFoundError("project", name)
	}

	return r.GetProject(ctx, ids[0])
}

// ListProjects returns all projects without their unit collections.
func (r *gormProjectRepository) ListProjects(ctx context.Context) ([]models.Project, error) {
	var projects []models.Project
	if err := r.db.DB().WithContext(ctx).Order("id ASC").Find(&projects).Error; err != nil {
		return nil, utils.WrapPersistenceError("list projects", err)
	}
	return projects, nil
}

// GetProjectStatistics folds over the project's current unit rows. Nothing
// is cached; the result always reflects the store's present state.
func (r *gormProjectRepository) GetProjectStatistics(ctx context.Context, projectID uint) (*ProjectStatistics, error) {
	if err := r.ensureProjectExists(ctx, r.db.DB(), projectID); err != nil {
		return nil, err
	}

	units, err := r.ListUnits(ctx, projectID)
	if err != nil {
		return nil, err
	}

	stats := ComputeStatistics(projectID, units)
	return &stats, nil
}

// ComputeStatistics is the pure aggregation underlying GetProjectStatistics.
func ComputeStatistics(projectID uint, units []models.Unit) ProjectStatistics {
	stats := ProjectStatistics{
		ProjectID: projectID,
		UnitCount: len(units),
	}

	for _, unit := range units {
		switch unit.AvailabilityStatus {
		case models.StatusAvailable:
			stats.AvailableCount++
		case models.StatusOccupied:
			stats.OccupiedCount++
		case models.StatusReserved:
			stats.ReservedCount++
		case models.StatusMaintenance:
			stats.MaintenanceCount++
		}
		stats.TotalArea += unit.Area
		stats.TotalMonthlyFees += unit.MonthlyFee
	}

	if stats.UnitCount > 0 {
		stats.OccupancyRate = float64(stats.OccupiedCount) / float64(stats.UnitCount)
	}
	return stats
}

// UpdateProject applies targeted column updates to the project row.
func (r *gormProjectRepository) UpdateProject(ctx context.Context, projectID uint, changes ProjectChanges) (*models.Project, error) {
	cols := map[string]interface{}{}
	if changes.Name != nil {
		if *changes.Name == "" {
			return nil, utils.RequiredFieldError("name")
		}
		cols["name"] = *changes.Name
	}
	if changes.Address != nil {
		cols["address"] = *changes.Address
	}
	if changes.Description != nil {
		cols["description"] = *changes.Description
	}
	if len(cols) == 0 {
		return nil, utils.WrapValidationError("", "no fields to update")
	}

	if err := r.ensureProjectExists(ctx, r.db.DB(), projectID); err != nil {
		return nil, err
	}

	res := r.db.DB().WithContext(ctx).Model(&models.Project{}).
		Where("id = ?", projectID).
		Updates(cols)
	if res.Error != nil {
		if isUniqueViolation(res.Error) {
			return nil, utils.WrapConflictError("project", "name", derefOr(changes.Name, ""))
		}
		return nil, utils.WrapPersistenceError("update project", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, utils.WrapNotFoundError("project", formatID(projectID))
	}

	return r.GetProject(ctx, projectID)
}

// UpdateProjectUnits grows or shrinks the unit collection by exactly the
// delta. Surviving units keep their ids and stored fields untouched; growth
// appends fresh units, shrink removes only the most recently added ones.
func (r *gormProjectRepository) UpdateProjectUnits(ctx context.Context, projectID uint, newUnitCount int) (*models.Project, error) {
	if newUnitCount < 0 {
		return nil, utils.InvalidFieldError("unit_count", "cannot be negative")
	}

	err := r.db.WithTransaction(func(tx *gorm.DB) error {
		if err := r.ensureProjectExists(ctx, tx, projectID); err != nil {
			return err
		}

		var units []models.Unit
		if err := tx.WithContext(ctx).
			Where("project_id = ?", projectID).
			Order("id ASC").
			Find(&units).Error; err != nil {
			return utils.WrapPersistenceError("load units", err)
		}

		current := len(units)
		switch {
		case newUnitCount > current:
			added, err := buildGeneratedUnits(projectID, units, newUnitCount-current)
			if err != nil {
				return err
			}
			if err := tx.WithContext(ctx).Create(&added).Error; err != nil {
				return utils.WrapPersistenceError("add units", err)
			}
			r.logger.Info().Uint("project_id", projectID).Int("added", len(added)).Msg("Grew project unit collection")
		case newUnitCount < current:
			victims := units[newUnitCount:]
			ids := make([]uint, 0, len(victims))
			for _, v := range victims {
				ids = append(ids, v.ID)
			}
			if err := tx.WithContext(ctx).
				Where("project_id = ? AND id IN ?", projectID, ids).
				Delete(&models.Unit{}).Error; err != nil {
				return utils.WrapPersistenceError("remove units", err)
			}
			r.logger.Info().Uint("project_id", projectID).Int("removed", len(ids)).Msg("Shrank project unit collection")
		}

		return tx.WithContext(ctx).Model(&models.Project{}).
			Where("id = ?", projectID).
			Update("unit_count", newUnitCount).Error
	})
	if err != nil {
		if utils.IsNotFoundError(err) || utils.IsPersistenceError(err) || utils.IsValidationError(err) {
			return nil, err
		}
		return nil, utils.WrapPersistenceError("update project units", err)
	}

	return r.GetProject(ctx, projectID)
}

// DeleteProject removes the project and cascades to its units in one
// transaction.
func (r *gormProjectRepository) DeleteProject(ctx context.Context, projectID uint) error {
	err := r.db.WithTransaction(func(tx *gorm.DB) error {
		if err := r.ensureProjectExists(ctx, tx, projectID); err != nil {
			return err
		}
		if err := tx.WithContext(ctx).Where("project_id = ?", projectID).Delete(&models.Unit{}).Error; err != nil {
			return utils.WrapPersistenceError("delete units", err)
		}
		return tx.WithContext(ctx).Delete(&models.Project{}, projectID).Error
	})
	if err != nil {
		if utils.IsNotFoundError(err) || utils.IsPersistenceError(err) {
			return err
		}
		return utils.WrapPersistenceError("delete project", err)
	}

	r.logger.Info().Uint("project_id", projectID).Msg("Deleted project")
	return nil
}

// AddUnit creates a single unit under an existing project.
func (r *gormProjectRepository) AddUnit(ctx context.Context, projectID uint, input UnitInput) (*models.Unit, error) {
	if input.UnitNumber == "" {
		return nil, utils.RequiredFieldError("unit_number")
	}
	unit, err := buildUnit(input, 0)
	if err != nil {
		return nil, err
	}
	unit.ProjectID = projectID

	err = r.db.WithTransaction(func(tx *gorm.DB) error {
		if err := r.ensureProjectExists(ctx, tx, projectID); err != nil {
			return err
		}
		if err := tx.WithContext(ctx).Create(&unit).Error; err != nil {
			return err
		}
		return tx.WithContext(ctx).Model(&models.Project{}).
			Where("id = ?", projectID).
			Update("unit_count", gorm.Expr("unit_count + 1")).Error
	})
	if err != nil {
		if utils.IsNotFoundError(err) {
			return nil, err
		}
		if isUniqueViolation(err) {
			return nil, utils.WrapConflictError("unit", "unit_number", input.UnitNumber)
		}
		return nil, utils.WrapPersistenceError("add unit", err)
	}

	return &unit, nil
}

// GetUnit returns a single unit by its stable id.
func (r *gormProjectRepository) GetUnit(ctx context.Context, unitID uint) (*models.Unit, error) {
	var unit models.Unit
	if err := r.db.DB().WithContext(ctx).First(&unit, unitID).Error; err != nil {
		return nil, translateStorageError(err, "get unit", "unit", formatID(unitID))
	}
	return &unit, nil
}

// GetUnitByNumber is a compatibility shim: the composite key resolves to a
// unit id, then delegates to the canonical id-based path.
func (r *gormProjectRepository) GetUnitByNumber(ctx context.Context, projectID uint, unitNumber string) (*models.Unit, error) {
	unitID, err := r.resolveUnitID(ctx, projectID, unitNumber)
	if err != nil {
		return nil, err
	}
	return r.GetUnit(ctx, unitID)
}

// ListUnits returns the project's units ordered by id.
func (r *gormProjectRepository) ListUnits(ctx context.Context, projectID uint) ([]models.Unit, error) {
	var units []models.Unit
	err := r.db.DB().WithContext(ctx).
		Where("project_id = ?", projectID).
		Order("id ASC").
		Find(&units).Error
	if err != nil {
		return nil, utils.WrapPersistenceError("list units", err)
	}
	return units, nil
}

// UpdateUnit applies a targeted column-level update to exactly the addressed
// row. Sibling units are never read or written: no other unit's id or fields
// can change as a side effect. The read, the derived-fee recompute and the
// UPDATE share one transaction so a concurrent update cannot slip between
// them and leave the fee inconsistent with the stored area and type.
func (r *gormProjectRepository) UpdateUnit(ctx context.Context, unitID uint, changes UnitChanges) (*models.Unit, error) {
	cols, err := unitChangeColumns(changes)
	if err != nil {
		return nil, err
	}

	var updated models.Unit
	err = r.db.WithTransaction(func(tx *gorm.DB) error {
		var current models.Unit
		if err := tx.WithContext(ctx).First(&current, unitID).Error; err != nil {
			return translateStorageError(err, "get unit", "unit", formatID(unitID))
		}

		// The monthly fee is derived from area and type; recompute it from
		// the row this transaction updates whenever either input changes.
		if changes.Area != nil || changes.Type != nil {
			area := current.Area
			unitType := current.Type
			if changes.Area != nil {
				area = *changes.Area
			}
			if changes.Type != nil {
				unitType = *changes.Type
			}
			cols["monthly_fee"] = models.CalculateMonthlyFee(area, unitType)
		}

		res := tx.WithContext(ctx).Model(&models.Unit{}).
			Where("id = ?", unitID).
			Updates(cols)
		if res.Error != nil {
			if isUniqueViolation(res.Error) {
				return utils.WrapConflictError("unit", "unit_number", derefOr(changes.UnitNumber, ""))
			}
			return utils.WrapPersistenceError("update unit", res.Error)
		}
		if res.RowsAffected == 0 {
			return utils.WrapNotFoundError("unit", formatID(unitID))
		}

		return tx.WithContext(ctx).First(&updated, unitID).Error
	})
	if err != nil {
		if utils.IsNotFoundError(err) || utils.IsConflictError(err) || utils.IsPersistenceError(err) || utils.IsValidationError(err) {
			return nil, err
		}
		return nil, utils.WrapPersistenceError("update unit", err)
	}

	return &updated, nil
}

// UpdateUnitByNumber resolves the composite key to a unit id and delegates;
// the id-based path is the single write path into storage.
func (r *gormProjectRepository) UpdateUnitByNumber(ctx context.Context, projectID uint, unitNumber string, changes UnitChanges) (*models.Unit, error) {
	unitID, err := r.resolveUnitID(ctx, projectID, unitNumber)
	if err != nil {
		return nil, err
	}
	return r.UpdateUnit(ctx, unitID, changes)
}

// DeleteUnit removes a single unit and keeps the owning project's unit count
// consistent.
func (r *gormProjectRepository) DeleteUnit(ctx context.Context, unitID uint) error {
	err := r.db.WithTransaction(func(tx *gorm.DB) error {
		var unit models.Unit
		if err := tx.WithContext(ctx).First(&unit, unitID).Error; err != nil {
			return translateStorageError(err, "get unit", "unit", formatID(unitID))
		}
		if err := tx.WithContext(ctx).Delete(&models.Unit{}, unitID).Error; err != nil {
			return utils.WrapPersistenceError("delete unit", err)
		}
		return tx.WithContext(ctx).Model(&models.Project{}).
			Where("id = ?", unit.ProjectID).
			Update("unit_count", gorm.Expr("unit_count - 1")).Error
	})
	if err != nil {
		if utils.IsNotFoundError(err) || utils.IsPersistenceError(err) {
			return err
		}
		return utils.WrapPersistenceError("delete unit", err)
	}
	return nil
}

// resolveUnitID maps (project, unit number) to the stable unit id.
func (r *gormProjectRepository) resolveUnitID(ctx context.Context, projectID uint, unitNumber string) (uint, error) {
	if unitNumber == "" {
		return 0, utils.RequiredFieldError("unit_number")
	}

	var ids []uint
	err := r.db.DB().WithContext(ctx).Model(&models.Unit{}).
		Where("project_id = ? AND unit_number = ?", projectID, unitNumber).
		Limit(1).
		Pluck("id", &ids).Error
	if err != nil {
		return 0, utils.WrapPersistenceError("resolve unit", err)
	}
	if len(ids) == 0 {
		return 0, utils.WrapNotFoundError("unit", unitNumber)
	}
	return ids[0], nil
}

// ensureProjectExists is the shared existence check behind not-found
// classification for project-scoped operations.
func (r *gormProjectRepository) ensureProjectExists(ctx context.Context, tx *gorm.DB, projectID uint) error {
	var count int64
	if err := tx.WithContext(ctx).Model(&models.Project{}).
		Where("id = ?", projectID).
		Count(&count).Error; err != nil {
		return utils.WrapPersistenceError("check project", err)
	}
	if count == 0 {
		return utils.WrapNotFoundError("project", formatID(projectID))
	}
	return nil
}

// buildUnit validates a unit input and fills defaults. seq numbers generated
// units when no explicit unit number is given.
func buildUnit(input UnitInput, seq int) (models.Unit, error) {
	unitType := input.Type
	if unitType == "" {
		unitType = models.UnitTypeResidential
	}
	if !models.ValidUnitType(unitType) {
		return models.Unit{}, utils.InvalidFieldError("type", fmt.Sprintf("unknown unit type '%s'", input.Type))
	}

	status := input.AvailabilityStatus
	if status == "" {
		status = models.StatusAvailable
	}
	if !models.ValidAvailabilityStatus(status) {
		return models.Unit{}, utils.InvalidFieldError("availability_status", fmt.Sprintf("unknown status '%s'", input.AvailabilityStatus))
	}

	if input.Area < 0 {
		return models.Unit{}, utils.InvalidFieldError("area", "cannot be negative")
	}

	unitNumber := input.UnitNumber
	if unitNumber == "" {
		unitNumber = fmt.Sprintf("U-%03d", seq+1)
	}

	floor := input.Floor
	if floor == 0 {
		floor = seq/unitsPerFloor + 1
	}

	return models.Unit{
		UnitNumber:         unitNumber,
		Floor:              floor,
		Area:               input.Area,
		Type:               unitType,
		MonthlyFee:         models.CalculateMonthlyFee(input.Area, unitType),
		AvailabilityStatus: status,
	}, nil
}

// buildGeneratedUnits creates count fresh default units, continuing the
// generated numbering sequence past the highest existing suffix.
func buildGeneratedUnits(projectID uint, existing []models.Unit, count int) ([]models.Unit, error) {
	next := 0
	for _, unit := range existing {
		if m := generatedUnitNumber.FindStringSubmatch(unit.UnitNumber); m != nil {
			if n, err := strconv.Atoi(m[1]); err == nil && n > next {
				next = n
			}
		}
	}

	units := make([]models.Unit, 0, count)
	for i := 0; i < count; i++ {
		seq := next + i
		unit, err := buildUnit(UnitInput{}, seq)
		if err != nil {
			return nil, err
		}
		unit.ProjectID = projectID
		units = append(units, unit)
	}
	return units, nil
}

func formatID(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}

func derefOr(s *string, fallback string) string {
	if s != nil {
		return *s
	}
	return fallback
}

// unitChangeColumns converts validated unit changes into a column map for a
// targeted UPDATE.
func unitChangeColumns(changes UnitChanges) (map[string]interface{}, error) {
	cols := map[string]interface{}{}

	if changes.UnitNumber != nil {
		if *changes.UnitNumber == "" {
			return nil, utils.RequiredFieldError("unit_number")
		}
		cols["unit_number"] = *changes.UnitNumber
	}
	if changes.Floor != nil {
		cols["floor"] = *changes.Floor
	}
	if changes.Area != nil {
		if *changes.Area < 0 {
			return nil, utils.InvalidFieldError("area", "cannot be negative")
		}
		cols["area"] = *changes.Area
	}
	if changes.Type != nil {
		if !models.ValidUnitType(*changes.Type) {
			return nil, utils.InvalidFieldError("type", fmt.Sprintf("unknown unit type '%s'", *changes.Type))
		}
		cols["type"] = *changes.Type
	}
	if changes.AvailabilityStatus != nil {
		if !models.ValidAvailabilityStatus(*changes.AvailabilityStatus) {
			return nil, utils.InvalidFieldError("availability_status", fmt.Sprintf("unknown status '%s'", *changes.AvailabilityStatus))
		}
		cols["availability_status"] = *changes.AvailabilityStatus
	}

	if len(cols) == 0 {
		return nil, utils.WrapValidationError("", "no fields to update")
	}
	return cols, nil
}
