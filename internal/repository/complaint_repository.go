package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/fixify-hostel/fixify-api/internal/models"
)

const complaintViewSelect = `SELECT c.id, c.task_id, c.user_id, c.facility_type_id, c.status_id, c.assignment_group_id,
	c.assigned_to, c.description, c.feedback, c.created_at, c.updated_at, c.resolved_at,
	ft.name AS facility_name, ft.category_id AS facility_category, s.name AS status_name,
	ag.name AS group_name, ap.full_name AS assignee_name, sp.full_name AS student_name, sp.email AS student_email
FROM complaints c
JOIN facility_type ft ON ft.id = c.facility_type_id
JOIN status s ON s.id = c.status_id
JOIN profiles sp ON sp.id = c.user_id
LEFT JOIN assignment_group ag ON ag.id = c.assignment_group_id
LEFT JOIN profiles ap ON ap.id = c.assigned_to`

// ComplaintRepository persists complaints with their images and history.
type ComplaintRepository struct {
	db *sqlx.DB
}

func NewComplaintRepository(db *sqlx.DB) *ComplaintRepository {
	return &ComplaintRepository{db: db}
}

// Create inserts a Submitted complaint together with its images in one
// transaction and fills the generated task id and timestamps. Either every
// row is written or none is.
func (r *ComplaintRepository) Create(ctx context.Context, c *models.Complaint, images ...*models.ComplaintImage) (err error) {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	if c.StatusID == 0 {
		c.StatusID = models.StatusSubmitted
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create complaint: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	const query = `INSERT INTO complaints (id, user_id, facility_type_id, status_id, assignment_group_id, description, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $7)
RETURNING task_id, created_at, updated_at`
	row := tx.QueryRowxContext(ctx, query, c.ID, c.UserID, c.FacilityTypeID, c.StatusID, c.AssignmentGroupID, c.Description, c.CreatedAt)
	if err = row.Scan(&c.TaskID, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return fmt.Errorf("create complaint: %w", err)
	}

	for _, img := range images {
		img.ComplaintID = c.ID
		if err = insertImage(ctx, tx, img); err != nil {
			return err
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit complaint: %w", err)
	}
	return nil
}

// FindByTaskID returns sql.ErrNoRows when the task id is unknown.
func (r *ComplaintRepository) FindByTaskID(ctx context.Context, taskID string) (*models.ComplaintView, error) {
	query := complaintViewSelect + ` WHERE c.task_id = $1`
	var v models.ComplaintView
	if err := r.db.GetContext(ctx, &v, query, taskID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find complaint %s: %w", taskID, err)
	}
	return &v, nil
}

// ListByUser pages a student's complaints, newest first.
func (r *ComplaintRepository) ListByUser(ctx context.Context, userID string, page, pageSize int) ([]models.ComplaintView, int, error) {
	page, pageSize = models.NormalizePage(page, pageSize, 100)
	offset := (page - 1) * pageSize

	query := complaintViewSelect + fmt.Sprintf(` WHERE c.user_id = $1 ORDER BY c.created_at DESC, c.task_id DESC LIMIT %d OFFSET %d`, pageSize, offset)
	var items []models.ComplaintView
	if err := r.db.SelectContext(ctx, &items, query, userID); err != nil {
		return nil, 0, fmt.Errorf("list complaints by user: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM complaints WHERE user_id = $1`, userID); err != nil {
		return nil, 0, fmt.Errorf("count complaints by user: %w", err)
	}
	return items, total, nil
}

// ListOpenByGroup returns the group's complaints whose status name is not in
// closedNames, newest first.
func (r *ComplaintRepository) ListOpenByGroup(ctx context.Context, groupID int, closedNames []string) ([]models.ComplaintView, error) {
	query := complaintViewSelect + ` WHERE c.assignment_group_id = $1 AND NOT (s.name = ANY($2)) ORDER BY c.created_at DESC`
	var items []models.ComplaintView
	if err := r.db.SelectContext(ctx, &items, query, groupID, pq.Array(closedNames)); err != nil {
		return nil, fmt.Errorf("list open complaints by group: %w", err)
	}
	return items, nil
}

// ListByAssignee returns every complaint assigned to staffID, newest first.
func (r *ComplaintRepository) ListByAssignee(ctx context.Context, staffID string) ([]models.ComplaintView, error) {
	query := complaintViewSelect + ` WHERE c.assigned_to = $1 ORDER BY c.created_at DESC`
	var items []models.ComplaintView
	if err := r.db.SelectContext(ctx, &items, query, staffID); err != nil {
		return nil, fmt.Errorf("list complaints by assignee: %w", err)
	}
	return items, nil
}

// ListAll returns complaints in snapshot order (created_at, task_id ascending).
func (r *ComplaintRepository) ListAll(ctx context.Context, filter models.ComplaintFilter) ([]models.ComplaintView, error) {
	var conditions []string
	var args []interface{}
	if filter.From != nil {
		args = append(args, *filter.From)
		conditions = append(conditions, fmt.Sprintf("c.created_at >= $%d", len(args)))
	}
	if filter.To != nil {
		args = append(args, *filter.To)
		conditions = append(conditions, fmt.Sprintf("c.created_at < $%d", len(args)))
	}
	if filter.StatusID != nil {
		args = append(args, *filter.StatusID)
		conditions = append(conditions, fmt.Sprintf("c.status_id = $%d", len(args)))
	}
	if filter.UserID != "" {
		args = append(args, filter.UserID)
		conditions = append(conditions, fmt.Sprintf("c.user_id = $%d", len(args)))
	}
	if filter.GroupID != nil {
		args = append(args, *filter.GroupID)
		conditions = append(conditions, fmt.Sprintf("c.assignment_group_id = $%d", len(args)))
	}
	if filter.AssignedTo != "" {
		args = append(args, filter.AssignedTo)
		conditions = append(conditions, fmt.Sprintf("c.assigned_to = $%d", len(args)))
	}

	query := complaintViewSelect
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY c.created_at ASC, c.task_id ASC"

	var items []models.ComplaintView
	if err := r.db.SelectContext(ctx, &items, query, args...); err != nil {
		return nil, fmt.Errorf("list complaints: %w", err)
	}
	return items, nil
}

// UpdateStatus moves a complaint from -> to. resolvedAt is written as given,
// so callers pass nil for anything but Resolved. ErrStaleWrite means the
// status changed since it was read.
func (r *ComplaintRepository) UpdateStatus(ctx context.Context, id string, from, to models.StatusID, resolvedAt *time.Time, updatedAt time.Time) error {
	const query = `UPDATE complaints SET status_id = $3, resolved_at = $4, updated_at = $5 WHERE id = $1 AND status_id = $2`
	res, err := r.db.ExecContext(ctx, query, id, from, to, resolvedAt, updatedAt)
	if err != nil {
		return fmt.Errorf("update complaint status: %w", err)
	}
	return requireOneRow(res)
}

// UpdateAssignment sets group and assignee while the complaint is still open.
func (r *ComplaintRepository) UpdateAssignment(ctx context.Context, id string, groupID int, staffID *string, updatedAt time.Time) error {
	const query = `UPDATE complaints SET assignment_group_id = $2, assigned_to = $3, updated_at = $4 WHERE id = $1 AND status_id NOT IN (4, 6)`
	res, err := r.db.ExecContext(ctx, query, id, groupID, staffID, updatedAt)
	if err != nil {
		return fmt.Errorf("update complaint assignment: %w", err)
	}
	return requireOneRow(res)
}

func (r *ComplaintRepository) CreateImage(ctx context.Context, img *models.ComplaintImage) error {
	return insertImage(ctx, r.db, img)
}

func (r *ComplaintRepository) ListImages(ctx context.Context, complaintID string) ([]models.ComplaintImage, error) {
	const query = `SELECT id, complaint_id, kind, object_path, public_url, mime_type, size_bytes, uploaded_by, created_at
FROM complaint_images WHERE complaint_id = $1 ORDER BY created_at ASC`
	var images []models.ComplaintImage
	if err := r.db.SelectContext(ctx, &images, query, complaintID); err != nil {
		return nil, fmt.Errorf("list complaint images: %w", err)
	}
	return images, nil
}

func (r *ComplaintRepository) CountImages(ctx context.Context, complaintID string, kind models.ImageKind) (int, error) {
	const query = `SELECT COUNT(*) FROM complaint_images WHERE complaint_id = $1 AND kind = $2`
	var count int
	if err := r.db.GetContext(ctx, &count, query, complaintID, kind); err != nil {
		return 0, fmt.Errorf("count complaint images: %w", err)
	}
	return count, nil
}

func (r *ComplaintRepository) CreateActivity(ctx context.Context, a *models.ComplaintActivity) error {
	return insertActivity(ctx, r.db, a)
}

func (r *ComplaintRepository) ListActivity(ctx context.Context, complaintID string) ([]models.ComplaintActivity, error) {
	const query = `SELECT a.id, a.complaint_id, a.actor_id, p.full_name AS actor_name, a.kind, a.old_value, a.new_value, a.note, a.created_at
FROM complaint_activity a
LEFT JOIN profiles p ON p.id = a.actor_id
WHERE a.complaint_id = $1
ORDER BY a.created_at ASC`
	var items []models.ComplaintActivity
	if err := r.db.SelectContext(ctx, &items, query, complaintID); err != nil {
		return nil, fmt.Errorf("list complaint activity: %w", err)
	}
	return items, nil
}

func insertImage(ctx context.Context, exec sqlx.ExtContext, img *models.ComplaintImage) error {
	if img.ID == "" {
		img.ID = uuid.NewString()
	}
	if img.CreatedAt.IsZero() {
		img.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO complaint_images (id, complaint_id, kind, object_path, public_url, mime_type, size_bytes, uploaded_by, created_at)
VALUES (:id, :complaint_id, :kind, :object_path, :public_url, :mime_type, :size_bytes, :uploaded_by, :created_at)`
	if _, err := sqlx.NamedExecContext(ctx, exec, query, img); err != nil {
		return fmt.Errorf("create complaint image: %w", err)
	}
	return nil
}

func insertActivity(ctx context.Context, exec sqlx.ExtContext, a *models.ComplaintActivity) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO complaint_activity (id, complaint_id, actor_id, kind, old_value, new_value, note, created_at)
VALUES (:id, :complaint_id, :actor_id, :kind, :old_value, :new_value, :note, :created_at)`
	if _, err := sqlx.NamedExecContext(ctx, exec, query, a); err != nil {
		return fmt.Errorf("create complaint activity: %w", err)
	}
	return nil
}

func requireOneRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return ErrStaleWrite
	}
	return nil
}
