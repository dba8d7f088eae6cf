package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/fixify-hostel/fixify-api/internal/models"
)

// FeedbackRepository stores ratings of resolved complaints.
type FeedbackRepository struct {
	db *sqlx.DB
}

func NewFeedbackRepository(db *sqlx.DB) *FeedbackRepository {
	return &FeedbackRepository{db: db}
}

// Submit inserts fb, flags the complaint as rated and appends the activity
// entry in one transaction. It returns ErrDuplicate when the complaint was
// already rated and ErrStaleWrite when it is no longer Resolved.
func (r *FeedbackRepository) Submit(ctx context.Context, fb *models.Feedback, activity *models.ComplaintActivity) (err error) {
	if fb.ID == "" {
		fb.ID = uuid.NewString()
	}
	if fb.CreatedAt.IsZero() {
		fb.CreatedAt = time.Now().UTC()
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin submit feedback: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	const insert = `INSERT INTO feedback (id, complaint_id, rating, comments, created_at) VALUES (:id, :complaint_id, :rating, :comments, :created_at)`
	if _, err = tx.NamedExecContext(ctx, insert, fb); err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("insert feedback: %w", err)
	}

	const flag = `UPDATE complaints SET feedback = TRUE, updated_at = $2 WHERE id = $1 AND status_id = 4 AND feedback = FALSE`
	res, err := tx.ExecContext(ctx, flag, fb.ComplaintID, fb.CreatedAt)
	if err != nil {
		return fmt.Errorf("flag complaint feedback: %w", err)
	}
	if err = requireOneRow(res); err != nil {
		return err
	}

	if activity != nil {
		if err = insertActivity(ctx, tx, activity); err != nil {
			return err
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit feedback: %w", err)
	}
	return nil
}

// FindByComplaint returns nil when the complaint has no rating.
func (r *FeedbackRepository) FindByComplaint(ctx context.Context, complaintID string) (*models.Feedback, error) {
	const query = `SELECT id, complaint_id, rating, comments, created_at FROM feedback WHERE complaint_id = $1`
	var items []models.Feedback
	if err := r.db.SelectContext(ctx, &items, query, complaintID); err != nil {
		return nil, fmt.Errorf("find feedback: %w", err)
	}
	if len(items) == 0 {
		return nil, nil
	}
	return &items[0], nil
}

// ListAll returns every feedback row, oldest first.
func (r *FeedbackRepository) ListAll(ctx context.Context) ([]models.Feedback, error) {
	const query = `SELECT id, complaint_id, rating, comments, created_at FROM feedback ORDER BY created_at ASC`
	var items []models.Feedback
	if err := r.db.SelectContext(ctx, &items, query); err != nil {
		return nil, fmt.Errorf("list feedback: %w", err)
	}
	return items, nil
}
