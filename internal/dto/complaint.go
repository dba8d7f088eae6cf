package dto

import (
	"io"
	"time"

	"github.com/fixify-hostel/fixify-api/internal/models"
)

// Upload is an image received from a client.
type Upload struct {
	Filename    string
	ContentType string
	Size        int64
	Body        io.Reader
}

// CreateComplaintRequest is the student's complaint form.
type CreateComplaintRequest struct {
	FacilityTypeID int    `json:"facility_type_id" form:"facility_type_id" validate:"required,gt=0"`
	Description    string `json:"description" form:"description" validate:"required,max=2000"`
}

// TransitionStatusRequest moves a complaint to a new status. Status accepts
// an id or a name such as "In Progress".
type TransitionStatusRequest struct {
	Status            string `json:"status" validate:"required,status_name"`
	ConfirmationToken string `json:"confirmation_token"`
	Note              string `json:"note" validate:"max=1000"`
}

// AssignRequest routes a complaint to a group and optionally a staff member.
type AssignRequest struct {
	GroupName string `json:"group_name" validate:"required"`
	StaffID   string `json:"staff_id" validate:"omitempty,uuid"`
}

// WorkNoteRequest adds an internal note.
type WorkNoteRequest struct {
	Note string `json:"note" validate:"required,max=2000"`
}

// FeedbackRequest rates a resolved complaint.
type FeedbackRequest struct {
	Rating  int    `json:"rating"`
	Comment string `json:"comment" validate:"max=1000"`
}

// ComplaintSummary is a list entry.
type ComplaintSummary struct {
	TaskID       string     `json:"task_id"`
	FacilityName string     `json:"facility_name"`
	Description  string     `json:"description"`
	Status       string     `json:"status"`
	StatusID     int        `json:"status_id"`
	GroupName    *string    `json:"group_name,omitempty"`
	AssigneeName *string    `json:"assignee_name,omitempty"`
	Feedback     bool       `json:"feedback"`
	CreatedAt    time.Time  `json:"created_at"`
	ResolvedAt   *time.Time `json:"resolved_at,omitempty"`
}

// ComplaintDetail is the full view of one complaint.
type ComplaintDetail struct {
	ComplaintSummary
	StudentName string                     `json:"student_name"`
	NextStatus  []string                   `json:"next_status"`
	Images      []models.ComplaintImage    `json:"images"`
	Activity    []models.ComplaintActivity `json:"activity"`
	Rating      *models.Feedback           `json:"rating,omitempty"`
}

// NewComplaintSummary flattens a joined complaint row.
func NewComplaintSummary(v models.ComplaintView) ComplaintSummary {
	return ComplaintSummary{
		TaskID:       v.TaskID,
		FacilityName: v.FacilityName,
		Description:  v.Description,
		Status:       v.StatusID.Name(),
		StatusID:     int(v.StatusID),
		GroupName:    v.GroupName,
		AssigneeName: v.AssigneeName,
		Feedback:     v.Feedback,
		CreatedAt:    v.CreatedAt,
		ResolvedAt:   v.ResolvedAt,
	}
}

// ExportRequest filters the admin complaint export.
type ExportRequest struct {
	Format string     `form:"format"`
	From   *time.Time `form:"from" time_format:"2006-01-02"`
	To     *time.Time `form:"to" time_format:"2006-01-02"`
}
