package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/fixify-hostel/fixify-api/internal/models"
)

const facilityTypeSelect = `SELECT ft.id, ft.name, ft.category_id, c.name AS category_name,
	ft.default_group_id, ag.name AS default_group_name
FROM facility_type ft
JOIN category c ON c.id = ft.category_id
JOIN assignment_group ag ON ag.id = ft.default_group_id`

// ReferenceRepository reads facility types, assignment groups and staff.
type ReferenceRepository struct {
	db *sqlx.DB
}

func NewReferenceRepository(db *sqlx.DB) *ReferenceRepository {
	return &ReferenceRepository{db: db}
}

func (r *ReferenceRepository) ListFacilityTypes(ctx context.Context) ([]models.FacilityType, error) {
	query := facilityTypeSelect + ` ORDER BY ft.category_id, ft.name, ft.id`
	var items []models.FacilityType
	if err := r.db.SelectContext(ctx, &items, query); err != nil {
		return nil, fmt.Errorf("list facility types: %w", err)
	}
	return items, nil
}

// FindFacilityType returns sql.ErrNoRows for unknown ids.
func (r *ReferenceRepository) FindFacilityType(ctx context.Context, id int) (*models.FacilityType, error) {
	query := facilityTypeSelect + ` WHERE ft.id = $1`
	var item models.FacilityType
	if err := r.db.GetContext(ctx, &item, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find facility type: %w", err)
	}
	return &item, nil
}

// FindGroupByName returns sql.ErrNoRows when the name is unknown. The match
// is exact.
func (r *ReferenceRepository) FindGroupByName(ctx context.Context, name string) (*models.AssignmentGroup, error) {
	const query = `SELECT id, name FROM assignment_group WHERE name = $1`
	var g models.AssignmentGroup
	if err := r.db.GetContext(ctx, &g, query, name); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find assignment group: %w", err)
	}
	return &g, nil
}

func (r *ReferenceRepository) ListGroups(ctx context.Context) ([]models.AssignmentGroup, error) {
	var groups []models.AssignmentGroup
	if err := r.db.SelectContext(ctx, &groups, `SELECT id, name FROM assignment_group ORDER BY name`); err != nil {
		return nil, fmt.Errorf("list assignment groups: %w", err)
	}
	return groups, nil
}

// FindStaff returns sql.ErrNoRows when id is not a staff member.
func (r *ReferenceRepository) FindStaff(ctx context.Context, id string) (*models.StaffMember, error) {
	const query = `SELECT s.id, p.full_name, p.email, s.assigned_group FROM staff s JOIN profiles p ON p.id = s.id WHERE s.id = $1`
	var m models.StaffMember
	if err := r.db.GetContext(ctx, &m, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find staff: %w", err)
	}
	return &m, nil
}

// ListStaff returns every staff member ordered by name.
func (r *ReferenceRepository) ListStaff(ctx context.Context) ([]models.StaffMember, error) {
	const query = `SELECT s.id, p.full_name, p.email, s.assigned_group FROM staff s JOIN profiles p ON p.id = s.id ORDER BY p.full_name, s.id`
	var items []models.StaffMember
	if err := r.db.SelectContext(ctx, &items, query); err != nil {
		return nil, fmt.Errorf("list staff: %w", err)
	}
	return items, nil
}
