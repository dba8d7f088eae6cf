package models

import "time"

// Facility categories.
const (
	CategoryIndividual = 1
	CategoryShared     = 2
)

// Complaint is a row of the complaints table.
type Complaint struct {
	ID                string     `db:"id" json:"id"`
	TaskID            string     `db:"task_id" json:"task_id"`
	UserID            string     `db:"user_id" json:"user_id"`
	FacilityTypeID    int        `db:"facility_type_id" json:"facility_type_id"`
	StatusID          StatusID   `db:"status_id" json:"status_id"`
	AssignmentGroupID *int       `db:"assignment_group_id" json:"assignment_group_id,omitempty"`
	AssignedTo        *string    `db:"assigned_to" json:"assigned_to,omitempty"`
	Description       string     `db:"description" json:"description"`
	Feedback          bool       `db:"feedback" json:"feedback"`
	CreatedAt         time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time  `db:"updated_at" json:"updated_at"`
	ResolvedAt        *time.Time `db:"resolved_at" json:"resolved_at,omitempty"`
}

// ComplaintView is a complaint joined with its reference names.
type ComplaintView struct {
	Complaint
	FacilityName     string  `db:"facility_name" json:"facility_name"`
	FacilityCategory int     `db:"facility_category" json:"facility_category"`
	StatusName       string  `db:"status_name" json:"status_name"`
	GroupName        *string `db:"group_name" json:"group_name,omitempty"`
	AssigneeName     *string `db:"assignee_name" json:"assignee_name,omitempty"`
	StudentName      string  `db:"student_name" json:"student_name"`
	StudentEmail     string  `db:"student_email" json:"-"`
}

// ComplaintFilter narrows complaint listings.
type ComplaintFilter struct {
	UserID     string
	GroupID    *int
	AssignedTo string
	StatusID   *StatusID
	From       *time.Time
	To         *time.Time
	Page       int
	PageSize   int
}

// ImageKind distinguishes report photos from resolution evidence.
type ImageKind string

const (
	ImageKindReport   ImageKind = "report"
	ImageKindEvidence ImageKind = "evidence"
)

// ComplaintImage is an uploaded photo attached to a complaint.
type ComplaintImage struct {
	ID          string    `db:"id" json:"id"`
	ComplaintID string    `db:"complaint_id" json:"-"`
	Kind        ImageKind `db:"kind" json:"kind"`
	ObjectPath  string    `db:"object_path" json:"-"`
	PublicURL   string    `db:"public_url" json:"url"`
	MimeType    string    `db:"mime_type" json:"mime_type"`
	SizeBytes   int64     `db:"size_bytes" json:"size_bytes"`
	UploadedBy  string    `db:"uploaded_by" json:"uploaded_by"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// ActivityKind classifies history entries.
type ActivityKind string

const (
	ActivityStatusChange     ActivityKind = "STATUS_CHANGE"
	ActivityAssignmentChange ActivityKind = "ASSIGNMENT_CHANGE"
	ActivityWorkNote         ActivityKind = "WORK_NOTE"
	ActivityEvidenceAdded    ActivityKind = "EVIDENCE_ADDED"
	ActivityFeedback         ActivityKind = "FEEDBACK"
)

// ComplaintActivity is an immutable history entry.
type ComplaintActivity struct {
	ID          string       `db:"id" json:"id"`
	ComplaintID string       `db:"complaint_id" json:"-"`
	ActorID     *string      `db:"actor_id" json:"actor_id,omitempty"`
	ActorName   *string      `db:"actor_name" json:"actor_name,omitempty"`
	Kind        ActivityKind `db:"kind" json:"kind"`
	OldValue    *string      `db:"old_value" json:"old_value,omitempty"`
	NewValue    *string      `db:"new_value" json:"new_value,omitempty"`
	Note        *string      `db:"note" json:"note,omitempty"`
	CreatedAt   time.Time    `db:"created_at" json:"created_at"`
}

// Feedback is a student's rating of a resolved complaint.
type Feedback struct {
	ID          string    `db:"id" json:"id"`
	ComplaintID string    `db:"complaint_id" json:"complaint_id"`
	Rating      int       `db:"rating" json:"rating"`
	Comments    *string   `db:"comments" json:"comments,omitempty"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// FacilityType is static reference data. New complaints are routed to the
// facility's default assignment group.
type FacilityType struct {
	ID               int    `db:"id" json:"id"`
	Name             string `db:"name" json:"name"`
	CategoryID       int    `db:"category_id" json:"category_id"`
	CategoryName     string `db:"category_name" json:"category_name"`
	DefaultGroupID   int    `db:"default_group_id" json:"default_group_id"`
	DefaultGroupName string `db:"default_group_name" json:"default_group_name"`
}

// AssignmentGroup owns a set of staff.
type AssignmentGroup struct {
	ID   int    `db:"id" json:"id"`
	Name string `db:"name" json:"name"`
}

// StaffMember is a staff profile with its group.
type StaffMember struct {
	ID            string  `db:"id" json:"id"`
	FullName      string  `db:"full_name" json:"full_name"`
	Email         string  `db:"email" json:"email"`
	AssignedGroup *string `db:"assigned_group" json:"assigned_group,omitempty"`
}
