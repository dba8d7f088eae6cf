package service

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fixify-hostel/fixify-api/internal/dto"
	"github.com/fixify-hostel/fixify-api/internal/models"
	"github.com/fixify-hostel/fixify-api/internal/repository"
	"github.com/fixify-hostel/fixify-api/pkg/config"
	appErrors "github.com/fixify-hostel/fixify-api/pkg/errors"
	"github.com/fixify-hostel/fixify-api/pkg/storage"
)

const (
	dashboardCachePattern = "dash:*"
	sniffLen              = 512
)

var imageExtensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
	"image/gif":  ".gif",
}

type complaintStore interface {
	Create(ctx context.Context, c *models.Complaint, images ...*models.ComplaintImage) error
	FindByTaskID(ctx context.Context, taskID string) (*models.ComplaintView, error)
	ListByUser(ctx context.Context, userID string, page, pageSize int) ([]models.ComplaintView, int, error)
	UpdateStatus(ctx context.Context, id string, from, to models.StatusID, resolvedAt *time.Time, updatedAt time.Time) error
	UpdateAssignment(ctx context.Context, id string, groupID int, staffID *string, updatedAt time.Time) error
	CreateImage(ctx context.Context, img *models.ComplaintImage) error
	ListImages(ctx context.Context, complaintID string) ([]models.ComplaintImage, error)
	CountImages(ctx context.Context, complaintID string, kind models.ImageKind) (int, error)
	CreateActivity(ctx context.Context, a *models.ComplaintActivity) error
	ListActivity(ctx context.Context, complaintID string) ([]models.ComplaintActivity, error)
}

type feedbackStore interface {
	Submit(ctx context.Context, fb *models.Feedback, activity *models.ComplaintActivity) error
	FindByComplaint(ctx context.Context, complaintID string) (*models.Feedback, error)
}

type referenceReader interface {
	ListFacilityTypes(ctx context.Context) ([]models.FacilityType, error)
	FindFacilityType(ctx context.Context, id int) (*models.FacilityType, error)
	FindGroupByName(ctx context.Context, name string) (*models.AssignmentGroup, error)
	FindStaff(ctx context.Context, id string) (*models.StaffMember, error)
}

type confirmationSigner interface {
	Generate(subject, payload string) (string, time.Time, error)
	Verify(token, subject, payload string) error
}

type notifier interface {
	Notify(n Notice)
}

// ComplaintServiceParams collects the collaborators of ComplaintService.
type ComplaintServiceParams struct {
	Complaints complaintStore
	Feedback   feedbackStore
	References referenceReader
	Store      storage.ObjectStore
	Confirmer  confirmationSigner
	Cache      *CacheService
	Notifier   notifier
	Metrics    *MetricsService
	Uploads    config.UploadConfig
	Validator  *validator.Validate
	Logger     *zap.Logger
	Now        func() time.Time
}

// ComplaintService drives the complaint lifecycle.
type ComplaintService struct {
	complaints complaintStore
	feedback   feedbackStore
	refs       referenceReader
	store      storage.ObjectStore
	confirmer  confirmationSigner
	cache      *CacheService
	notifier   notifier
	metrics    *MetricsService
	uploads    config.UploadConfig
	validator  *validator.Validate
	logger     *zap.Logger
	now        func() time.Time
}

// RegisterValidators installs the complaint tags on v. A shared validator
// must go through it once before it is handed to NewComplaintService.
func RegisterValidators(v *validator.Validate) error {
	if err := v.RegisterValidation("status_name", func(fl validator.FieldLevel) bool {
		_, ok := models.ParseStatus(fl.Field().String())
		return ok
	}); err != nil {
		return fmt.Errorf("register status_name validator: %w", err)
	}
	return nil
}

func NewComplaintService(p ComplaintServiceParams) *ComplaintService {
	if p.Validator == nil {
		p.Validator = validator.New()
		if err := RegisterValidators(p.Validator); err != nil {
			panic(err)
		}
	}
	if p.Logger == nil {
		p.Logger = zap.NewNop()
	}
	if p.Now == nil {
		p.Now = time.Now
	}
	return &ComplaintService{
		complaints: p.Complaints,
		feedback:   p.Feedback,
		refs:       p.References,
		store:      p.Store,
		confirmer:  p.Confirmer,
		cache:      p.Cache,
		notifier:   p.Notifier,
		metrics:    p.Metrics,
		uploads:    p.Uploads,
		validator:  p.Validator,
		logger:     p.Logger,
		now:        p.Now,
	}
}

// FacilityTypes lists the facilities a complaint can be filed against.
func (s *ComplaintService) FacilityTypes(ctx context.Context) ([]models.FacilityType, error) {
	items, err := s.refs.ListFacilityTypes(ctx)
	if err != nil {
		return nil, s.remote(err, "failed to load facility types")
	}
	return items, nil
}

// Create files a new complaint for the student viewer and routes it to the
// facility's default assignment group. The optional image is uploaded first
// and recorded in the same write as the complaint, so a failure leaves
// nothing behind.
func (s *ComplaintService) Create(ctx context.Context, viewer models.Viewer, req dto.CreateComplaintRequest, image *dto.Upload) (*dto.ComplaintDetail, error) {
	if !viewer.Authenticated() {
		return nil, appErrors.ErrUnauthorized
	}
	if !viewer.IsStudent() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only students can file complaints")
	}
	req.Description = strings.TrimSpace(req.Description)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "facility type and description are required")
	}

	facility, err := s.refs.FindFacilityType(ctx, req.FacilityTypeID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrValidation, "unknown facility type")
		}
		return nil, s.remote(err, "failed to load facility type")
	}

	var prepared *preparedUpload
	if image != nil {
		if prepared, err = s.prepareUpload(image); err != nil {
			return nil, err
		}
	}

	now := s.now().UTC()
	complaint := &models.Complaint{
		ID:             uuid.NewString(),
		UserID:         viewer.UserID,
		FacilityTypeID: facility.ID,
		StatusID:       models.StatusSubmitted,
		Description:    req.Description,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	var groupName *string
	if facility.DefaultGroupID > 0 {
		complaint.AssignmentGroupID = &facility.DefaultGroupID
		groupName = &facility.DefaultGroupName
	}

	var images []*models.ComplaintImage
	if prepared != nil {
		img, err := s.uploadImage(ctx, complaint, models.ImageKindReport, viewer.UserID, prepared)
		if err != nil {
			return nil, err
		}
		images = append(images, img)
	}

	if err := s.complaints.Create(ctx, complaint, images...); err != nil {
		for _, img := range images {
			s.discardObject(ctx, img.ObjectPath)
		}
		if len(images) > 0 {
			s.metrics.ImageUpload(models.ImageKindReport, err)
		}
		return nil, s.remote(err, "failed to create complaint")
	}
	for range images {
		s.metrics.ImageUpload(models.ImageKindReport, nil)
	}
	s.metrics.ComplaintCreated()
	s.cache.Invalidate(ctx, dashboardCachePattern)

	detail := &dto.ComplaintDetail{
		ComplaintSummary: dto.NewComplaintSummary(models.ComplaintView{
			Complaint:        *complaint,
			FacilityName:     facility.Name,
			FacilityCategory: facility.CategoryID,
			GroupName:        groupName,
		}),
		StudentName: viewer.FullName,
		NextStatus:  statusNames(complaint.StatusID.Next()),
		Images:      []models.ComplaintImage{},
		Activity:    []models.ComplaintActivity{},
	}
	for _, img := range images {
		detail.Images = append(detail.Images, *img)
	}

	s.logger.Info("complaint created",
		zap.String("task_id", complaint.TaskID),
		zap.String("user_id", viewer.UserID),
		zap.Int("facility_type_id", facility.ID),
		zap.Int("assignment_group_id", facility.DefaultGroupID),
	)
	return detail, nil
}

// TransitionStatus moves a complaint along the status graph.
func (s *ComplaintService) TransitionStatus(ctx context.Context, viewer models.Viewer, taskID string, req dto.TransitionStatusRequest) (*dto.ComplaintSummary, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid status payload")
	}
	target, ok := models.ParseStatus(req.Status)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown status %q", req.Status))
	}

	complaint, err := s.load(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if err := s.authorizeHandler(ctx, viewer, complaint); err != nil {
		return nil, err
	}

	current := complaint.StatusID
	if !models.CanTransition(current, target) {
		return nil, appErrors.Clone(appErrors.ErrInvalidState, fmt.Sprintf("cannot move complaint from %s to %s", current, target))
	}

	switch target {
	case models.StatusClosedIncomplete:
		if err := s.confirm(complaint.TaskID, target, req.ConfirmationToken); err != nil {
			return nil, err
		}
	case models.StatusResolved:
		count, err := s.complaints.CountImages(ctx, complaint.ID, models.ImageKindEvidence)
		if err != nil {
			return nil, s.remote(err, "failed to count evidence")
		}
		if count == 0 {
			return nil, appErrors.ErrMissingEvidence
		}
	}

	now := s.now().UTC()
	var resolvedAt *time.Time
	if target == models.StatusResolved {
		resolvedAt = &now
	}
	if err := s.complaints.UpdateStatus(ctx, complaint.ID, current, target, resolvedAt, now); err != nil {
		if errors.Is(err, repository.ErrStaleWrite) {
			return nil, appErrors.Clone(appErrors.ErrInvalidState, "complaint status changed concurrently")
		}
		return nil, s.remote(err, "failed to update complaint status")
	}

	s.recordActivity(ctx, &models.ComplaintActivity{
		ComplaintID: complaint.ID,
		ActorID:     &viewer.UserID,
		Kind:        models.ActivityStatusChange,
		OldValue:    strPtr(current.Name()),
		NewValue:    strPtr(target.Name()),
		Note:        optionalString(req.Note),
		CreatedAt:   now,
	})
	s.metrics.StatusTransition(current, target)
	s.cache.Invalidate(ctx, dashboardCachePattern)
	s.notifyStatus(complaint, current, target, req.Note)

	s.logger.Info("complaint status changed",
		zap.String("task_id", complaint.TaskID),
		zap.String("actor_id", viewer.UserID),
		zap.String("from", current.Name()),
		zap.String("to", target.Name()),
	)

	complaint.StatusID = target
	complaint.ResolvedAt = resolvedAt
	complaint.UpdatedAt = now
	summary := dto.NewComplaintSummary(*complaint)
	return &summary, nil
}

// AttachEvidence stores a resolution photo for a complaint still being worked.
func (s *ComplaintService) AttachEvidence(ctx context.Context, viewer models.Viewer, taskID string, upload *dto.Upload) (*models.ComplaintImage, error) {
	if upload == nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "image is required")
	}
	complaint, err := s.load(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if err := s.authorizeHandler(ctx, viewer, complaint); err != nil {
		return nil, err
	}
	if complaint.StatusID.Terminal() {
		return nil, appErrors.Clone(appErrors.ErrInvalidState, "complaint is already closed")
	}

	prepared, err := s.prepareUpload(upload)
	if err != nil {
		return nil, err
	}
	img, err := s.storeImage(ctx, &complaint.Complaint, models.ImageKindEvidence, viewer.UserID, prepared)
	if err != nil {
		return nil, err
	}

	s.recordActivity(ctx, &models.ComplaintActivity{
		ComplaintID: complaint.ID,
		ActorID:     &viewer.UserID,
		Kind:        models.ActivityEvidenceAdded,
		NewValue:    strPtr(img.ID),
		CreatedAt:   s.now().UTC(),
	})
	return img, nil
}

// Assign routes a complaint to a group and optionally to one of its members.
func (s *ComplaintService) Assign(ctx context.Context, viewer models.Viewer, taskID string, req dto.AssignRequest) (*dto.ComplaintSummary, error) {
	req.GroupName = strings.TrimSpace(req.GroupName)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "group name is required")
	}
	if !viewer.Authenticated() {
		return nil, appErrors.ErrUnauthorized
	}
	if !viewer.IsStaff() && !viewer.IsAdmin() {
		return nil, appErrors.ErrForbidden
	}

	complaint, err := s.load(ctx, taskID)
	if err != nil {
		return nil, err
	}

	if viewer.IsStaff() {
		ownGroup, err := s.staffGroup(ctx, viewer.UserID)
		if err != nil {
			return nil, err
		}
		if ownGroup == "" || ownGroup != req.GroupName {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "staff can only assign within their own group")
		}
		if complaint.GroupName != nil && *complaint.GroupName != ownGroup {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "complaint belongs to another group")
		}
	}

	if complaint.StatusID.Terminal() {
		return nil, appErrors.Clone(appErrors.ErrInvalidState, "complaint is already closed")
	}

	group, err := s.refs.FindGroupByName(ctx, req.GroupName)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrValidation, "unknown assignment group")
		}
		return nil, s.remote(err, "failed to load assignment group")
	}

	var (
		staffID  *string
		assignee *models.StaffMember
	)
	if req.StaffID != "" {
		assignee, err = s.refs.FindStaff(ctx, req.StaffID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.Clone(appErrors.ErrValidation, "unknown staff member")
			}
			return nil, s.remote(err, "failed to load staff member")
		}
		if assignee.AssignedGroup == nil || *assignee.AssignedGroup != group.Name {
			return nil, appErrors.Clone(appErrors.ErrValidation, "staff member does not belong to the group")
		}
		staffID = &assignee.ID
	}

	now := s.now().UTC()
	if err := s.complaints.UpdateAssignment(ctx, complaint.ID, group.ID, staffID, now); err != nil {
		if errors.Is(err, repository.ErrStaleWrite) {
			return nil, appErrors.Clone(appErrors.ErrInvalidState, "complaint is already closed")
		}
		return nil, s.remote(err, "failed to assign complaint")
	}

	newValue := group.Name
	if assignee != nil {
		newValue = group.Name + " / " + assignee.FullName
	}
	s.recordActivity(ctx, &models.ComplaintActivity{
		ComplaintID: complaint.ID,
		ActorID:     &viewer.UserID,
		Kind:        models.ActivityAssignmentChange,
		OldValue:    assignmentLabel(complaint),
		NewValue:    &newValue,
		CreatedAt:   now,
	})
	s.cache.Invalidate(ctx, dashboardCachePattern)
	if assignee != nil && s.notifier != nil {
		s.notifier.Notify(Notice{
			To:      assignee.Email,
			Subject: fmt.Sprintf("%s assigned to you", complaint.TaskID),
			Body:    fmt.Sprintf("Complaint %s (%s) was assigned to you.\n\n%s", complaint.TaskID, complaint.FacilityName, complaint.Description),
		})
	}

	complaint.AssignmentGroupID = &group.ID
	complaint.GroupName = &group.Name
	complaint.AssignedTo = staffID
	if assignee != nil {
		complaint.AssigneeName = &assignee.FullName
	} else {
		complaint.AssigneeName = nil
	}
	complaint.UpdatedAt = now
	summary := dto.NewComplaintSummary(*complaint)
	return &summary, nil
}

// AddWorkNote appends an internal note to an open complaint.
func (s *ComplaintService) AddWorkNote(ctx context.Context, viewer models.Viewer, taskID string, req dto.WorkNoteRequest) (*models.ComplaintActivity, error) {
	req.Note = strings.TrimSpace(req.Note)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "note is required")
	}
	complaint, err := s.load(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if err := s.authorizeHandler(ctx, viewer, complaint); err != nil {
		return nil, err
	}
	if complaint.StatusID.Terminal() {
		return nil, appErrors.Clone(appErrors.ErrInvalidState, "complaint is already closed")
	}

	activity := &models.ComplaintActivity{
		ComplaintID: complaint.ID,
		ActorID:     &viewer.UserID,
		ActorName:   optionalString(viewer.FullName),
		Kind:        models.ActivityWorkNote,
		Note:        &req.Note,
		CreatedAt:   s.now().UTC(),
	}
	if err := s.complaints.CreateActivity(ctx, activity); err != nil {
		return nil, s.remote(err, "failed to save work note")
	}
	return activity, nil
}

// SubmitFeedback records the student's rating of a resolved complaint. A
// complaint accepts feedback once.
func (s *ComplaintService) SubmitFeedback(ctx context.Context, viewer models.Viewer, taskID string, req dto.FeedbackRequest) (*models.Feedback, error) {
	if req.Rating < 1 || req.Rating > 5 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "rating must be between 1 and 5")
	}
	req.Comment = strings.TrimSpace(req.Comment)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "comment is too long")
	}
	if !viewer.Authenticated() {
		return nil, appErrors.ErrUnauthorized
	}

	complaint, err := s.load(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if complaint.UserID != viewer.UserID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only the submitting student can rate this complaint")
	}
	if complaint.StatusID != models.StatusResolved {
		return nil, appErrors.Clone(appErrors.ErrInvalidState, "feedback is accepted only for resolved complaints")
	}
	if complaint.Feedback {
		return nil, appErrors.Clone(appErrors.ErrConflict, "feedback already submitted")
	}

	now := s.now().UTC()
	fb := &models.Feedback{
		ComplaintID: complaint.ID,
		Rating:      req.Rating,
		Comments:    optionalString(req.Comment),
		CreatedAt:   now,
	}
	activity := &models.ComplaintActivity{
		ComplaintID: complaint.ID,
		ActorID:     &viewer.UserID,
		Kind:        models.ActivityFeedback,
		NewValue:    strPtr(strconv.Itoa(req.Rating)),
		Note:        fb.Comments,
		CreatedAt:   now,
	}
	if err := s.feedback.Submit(ctx, fb, activity); err != nil {
		switch {
		case errors.Is(err, repository.ErrDuplicate):
			return nil, appErrors.Clone(appErrors.ErrConflict, "feedback already submitted")
		case errors.Is(err, repository.ErrStaleWrite):
			return nil, appErrors.Clone(appErrors.ErrInvalidState, "complaint is no longer resolved")
		}
		return nil, s.remote(err, "failed to save feedback")
	}

	s.metrics.FeedbackSubmitted(req.Rating)
	s.cache.Invalidate(ctx, dashboardCachePattern)
	return fb, nil
}

// Get returns the full view of a complaint the viewer may see.
func (s *ComplaintService) Get(ctx context.Context, viewer models.Viewer, taskID string) (*dto.ComplaintDetail, error) {
	if !viewer.Authenticated() {
		return nil, appErrors.ErrUnauthorized
	}
	complaint, err := s.load(ctx, taskID)
	if err != nil {
		return nil, err
	}

	switch {
	case viewer.IsStudent():
		if complaint.UserID != viewer.UserID {
			return nil, appErrors.ErrForbidden
		}
	default:
		if err := s.authorizeHandler(ctx, viewer, complaint); err != nil {
			return nil, err
		}
	}

	images, err := s.complaints.ListImages(ctx, complaint.ID)
	if err != nil {
		return nil, s.remote(err, "failed to load complaint images")
	}
	for i := range images {
		if fresh, err := s.store.URL(ctx, images[i].ObjectPath); err == nil {
			images[i].PublicURL = fresh
		}
	}

	activity, err := s.complaints.ListActivity(ctx, complaint.ID)
	if err != nil {
		return nil, s.remote(err, "failed to load complaint history")
	}
	if viewer.IsStudent() {
		activity = withoutWorkNotes(activity)
	}

	detail := &dto.ComplaintDetail{
		ComplaintSummary: dto.NewComplaintSummary(*complaint),
		StudentName:      complaint.StudentName,
		NextStatus:       statusNames(complaint.StatusID.Next()),
		Images:           images,
		Activity:         activity,
	}
	if complaint.Feedback {
		fb, err := s.feedback.FindByComplaint(ctx, complaint.ID)
		if err != nil {
			return nil, s.remote(err, "failed to load feedback")
		}
		detail.Rating = fb
	}
	if detail.Images == nil {
		detail.Images = []models.ComplaintImage{}
	}
	if detail.Activity == nil {
		detail.Activity = []models.ComplaintActivity{}
	}
	return detail, nil
}

// ListMine pages through the student's own complaints, newest first.
func (s *ComplaintService) ListMine(ctx context.Context, viewer models.Viewer, page, pageSize int) ([]dto.ComplaintSummary, *models.Pagination, error) {
	if !viewer.Authenticated() {
		return nil, nil, appErrors.ErrUnauthorized
	}
	if !viewer.IsStudent() {
		return nil, nil, appErrors.ErrForbidden
	}
	page, pageSize = models.NormalizePage(page, pageSize, 100)

	rows, total, err := s.complaints.ListByUser(ctx, viewer.UserID, page, pageSize)
	if err != nil {
		return nil, nil, s.remote(err, "failed to list complaints")
	}
	items := make([]dto.ComplaintSummary, 0, len(rows))
	for _, row := range rows {
		items = append(items, dto.NewComplaintSummary(row))
	}
	return items, &models.Pagination{Page: page, PageSize: pageSize, TotalCount: total}, nil
}

func (s *ComplaintService) load(ctx context.Context, taskID string) (*models.ComplaintView, error) {
	taskID = strings.TrimSpace(taskID)
	if taskID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "task id is required")
	}
	complaint, err := s.complaints.FindByTaskID(ctx, taskID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "complaint not found")
		}
		return nil, s.remote(err, "failed to load complaint")
	}
	return complaint, nil
}

// authorizeHandler admits admins and staff of the complaint's group.
func (s *ComplaintService) authorizeHandler(ctx context.Context, viewer models.Viewer, complaint *models.ComplaintView) error {
	if !viewer.Authenticated() {
		return appErrors.ErrUnauthorized
	}
	if viewer.IsAdmin() {
		return nil
	}
	if !viewer.IsStaff() {
		return appErrors.ErrForbidden
	}
	group, err := s.staffGroup(ctx, viewer.UserID)
	if err != nil {
		return err
	}
	if group == "" || complaint.GroupName == nil || *complaint.GroupName != group {
		return appErrors.Clone(appErrors.ErrForbidden, "complaint is not in your assignment group")
	}
	return nil
}

// staffGroup returns the viewer's group name, empty when unassigned.
func (s *ComplaintService) staffGroup(ctx context.Context, staffID string) (string, error) {
	member, err := s.refs.FindStaff(ctx, staffID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", nil
		}
		return "", s.remote(err, "failed to load staff assignment")
	}
	if member.AssignedGroup == nil {
		return "", nil
	}
	return *member.AssignedGroup, nil
}

// confirm checks the token for a destructive transition, returning a fresh
// token in the error details when it is missing or stale.
func (s *ComplaintService) confirm(taskID string, target models.StatusID, token string) error {
	payload := strconv.Itoa(int(target))
	if token != "" {
		if err := s.confirmer.Verify(token, taskID, payload); err == nil {
			return nil
		}
	}
	fresh, expires, err := s.confirmer.Generate(taskID, payload)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to issue confirmation token")
	}
	return appErrors.WithDetails(
		appErrors.Clone(appErrors.ErrConfirmationRequired, fmt.Sprintf("confirm closing %s as %s", taskID, target)),
		map[string]interface{}{
			"task_id":            taskID,
			"target_status":      target.Name(),
			"confirmation_token": fresh,
			"expires_at":         expires,
		},
	)
}

type preparedUpload struct {
	contentType string
	size        int64
	body        io.Reader
}

// prepareUpload sniffs the content type and enforces the size cap before any
// write happens.
func (s *ComplaintService) prepareUpload(upload *dto.Upload) (*preparedUpload, error) {
	if upload.Body == nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "image is empty")
	}
	limit := s.uploads.MaxFileSizeBytes
	if limit > 0 && upload.Size > limit {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("image exceeds %d bytes", limit))
	}

	head := make([]byte, sniffLen)
	n, err := io.ReadFull(upload.Body, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "image could not be read")
	}
	if n == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "image is empty")
	}
	head = head[:n]

	contentType := http.DetectContentType(head)
	if !s.allowedMIME(contentType) {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported image type %s", contentType))
	}

	body := io.MultiReader(bytes.NewReader(head), upload.Body)
	if limit > 0 {
		body = io.LimitReader(body, limit+1)
	}
	return &preparedUpload{contentType: contentType, size: upload.Size, body: body}, nil
}

func (s *ComplaintService) allowedMIME(contentType string) bool {
	for _, allowed := range s.uploads.AllowedMIMEs {
		if strings.EqualFold(allowed, contentType) {
			return true
		}
	}
	return false
}

// uploadImage puts the object and returns the row describing it without
// writing that row.
func (s *ComplaintService) uploadImage(ctx context.Context, complaint *models.Complaint, kind models.ImageKind, uploader string, upload *preparedUpload) (*models.ComplaintImage, error) {
	key := fmt.Sprintf("complaints/%s/%s/%s%s", complaint.ID, kind, uuid.NewString(), imageExtensions[upload.contentType])

	obj, err := s.store.Put(ctx, key, upload.body, upload.size, upload.contentType)
	if err != nil {
		s.metrics.ImageUpload(kind, err)
		return nil, s.remote(err, "failed to store image")
	}
	if limit := s.uploads.MaxFileSizeBytes; limit > 0 && obj.Size > limit {
		s.discardObject(ctx, obj.Key)
		s.metrics.ImageUpload(kind, appErrors.ErrValidation)
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("image exceeds %d bytes", limit))
	}

	return &models.ComplaintImage{
		ID:          uuid.NewString(),
		ComplaintID: complaint.ID,
		Kind:        kind,
		ObjectPath:  obj.Key,
		PublicURL:   obj.URL,
		MimeType:    obj.ContentType,
		SizeBytes:   obj.Size,
		UploadedBy:  uploader,
		CreatedAt:   s.now().UTC(),
	}, nil
}

// storeImage uploads and records an image for an existing complaint.
func (s *ComplaintService) storeImage(ctx context.Context, complaint *models.Complaint, kind models.ImageKind, uploader string, upload *preparedUpload) (*models.ComplaintImage, error) {
	img, err := s.uploadImage(ctx, complaint, kind, uploader, upload)
	if err != nil {
		return nil, err
	}
	if err := s.complaints.CreateImage(ctx, img); err != nil {
		s.metrics.ImageUpload(kind, err)
		s.discardObject(ctx, img.ObjectPath)
		return nil, s.remote(err, "failed to record image")
	}
	s.metrics.ImageUpload(kind, nil)
	return img, nil
}

func (s *ComplaintService) discardObject(ctx context.Context, key string) {
	if err := s.store.Delete(ctx, key); err != nil {
		s.logger.Warn("failed to remove orphaned image", zap.String("key", key), zap.Error(err))
	}
}

// recordActivity writes history without failing the action that produced it.
func (s *ComplaintService) recordActivity(ctx context.Context, a *models.ComplaintActivity) {
	if err := s.complaints.CreateActivity(ctx, a); err != nil {
		s.logger.Error("failed to record complaint activity",
			zap.String("complaint_id", a.ComplaintID),
			zap.String("kind", string(a.Kind)),
			zap.Error(err),
		)
	}
}

func (s *ComplaintService) notifyStatus(complaint *models.ComplaintView, from, to models.StatusID, note string) {
	if s.notifier == nil || complaint.StudentEmail == "" {
		return
	}
	body := fmt.Sprintf("Hi %s,\n\nYour complaint %s (%s) moved from %s to %s.",
		complaint.StudentName, complaint.TaskID, complaint.FacilityName, from, to)
	if note = strings.TrimSpace(note); note != "" {
		body += "\n\nNote: " + note
	}
	if to == models.StatusResolved {
		body += "\n\nYou can now rate how it was handled."
	}
	s.notifier.Notify(Notice{
		To:      complaint.StudentEmail,
		Subject: fmt.Sprintf("[Fixify] %s is now %s", complaint.TaskID, to),
		Body:    body,
	})
}

func (s *ComplaintService) remote(err error, msg string) error {
	s.logger.Error(msg, zap.Error(err))
	return appErrors.Remote(err, msg)
}

func assignmentLabel(c *models.ComplaintView) *string {
	if c.GroupName == nil {
		return nil
	}
	label := *c.GroupName
	if c.AssigneeName != nil {
		label += " / " + *c.AssigneeName
	}
	return &label
}

func withoutWorkNotes(items []models.ComplaintActivity) []models.ComplaintActivity {
	out := make([]models.ComplaintActivity, 0, len(items))
	for _, item := range items {
		if item.Kind != models.ActivityWorkNote {
			out = append(out, item)
		}
	}
	return out
}

func statusNames(ids []models.StatusID) []string {
	names := make([]string, 0, len(ids))
	for _, id := range ids {
		names = append(names, id.Name())
	}
	return names
}

func strPtr(s string) *string { return &s }

func optionalString(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
