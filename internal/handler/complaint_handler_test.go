package handler

import (
	"context"
	"io"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fixify-hostel/fixify-api/internal/dto"
	"github.com/fixify-hostel/fixify-api/internal/models"
	appErrors "github.com/fixify-hostel/fixify-api/pkg/errors"
)

type fakeComplaintSrv struct {
	viewer     models.Viewer
	taskID     string
	createReq  dto.CreateComplaintRequest
	upload     []byte
	hadUpload  bool
	transition dto.TransitionStatusRequest
	page, size int
	err        error
}

func (f *fakeComplaintSrv) FacilityTypes(context.Context) ([]models.FacilityType, error) {
	return []models.FacilityType{{ID: 1, Name: "Room"}}, f.err
}

func (f *fakeComplaintSrv) Create(_ context.Context, viewer models.Viewer, req dto.CreateComplaintRequest, image *dto.Upload) (*dto.ComplaintDetail, error) {
	f.viewer, f.createReq = viewer, req
	if image != nil {
		f.hadUpload = true
		f.upload, _ = io.ReadAll(image.Body)
	}
	if f.err != nil {
		return nil, f.err
	}
	return &dto.ComplaintDetail{ComplaintSummary: dto.ComplaintSummary{TaskID: "TASK10001", Status: "Submitted"}}, nil
}

func (f *fakeComplaintSrv) ListMine(_ context.Context, viewer models.Viewer, page, size int) ([]dto.ComplaintSummary, *models.Pagination, error) {
	f.viewer, f.page, f.size = viewer, page, size
	return []dto.ComplaintSummary{{TaskID: "TASK10001"}}, &models.Pagination{Page: page, PageSize: size, TotalCount: 1}, f.err
}

func (f *fakeComplaintSrv) Get(_ context.Context, viewer models.Viewer, taskID string) (*dto.ComplaintDetail, error) {
	f.viewer, f.taskID = viewer, taskID
	if f.err != nil {
		return nil, f.err
	}
	return &dto.ComplaintDetail{ComplaintSummary: dto.ComplaintSummary{TaskID: taskID}}, nil
}

func (f *fakeComplaintSrv) TransitionStatus(_ context.Context, viewer models.Viewer, taskID string, req dto.TransitionStatusRequest) (*dto.ComplaintSummary, error) {
	f.viewer, f.taskID, f.transition = viewer, taskID, req
	if f.err != nil {
		return nil, f.err
	}
	return &dto.ComplaintSummary{TaskID: taskID, Status: req.Status}, nil
}

func (f *fakeComplaintSrv) AttachEvidence(_ context.Context, _ models.Viewer, taskID string, upload *dto.Upload) (*models.ComplaintImage, error) {
	f.taskID = taskID
	f.upload, _ = io.ReadAll(upload.Body)
	return &models.ComplaintImage{ID: "img-1", Kind: models.ImageKindEvidence}, f.err
}

func (f *fakeComplaintSrv) Assign(_ context.Context, _ models.Viewer, taskID string, req dto.AssignRequest) (*dto.ComplaintSummary, error) {
	f.taskID = taskID
	group := req.GroupName
	return &dto.ComplaintSummary{TaskID: taskID, GroupName: &group}, f.err
}

func (f *fakeComplaintSrv) AddWorkNote(_ context.Context, _ models.Viewer, taskID string, req dto.WorkNoteRequest) (*models.ComplaintActivity, error) {
	f.taskID = taskID
	return &models.ComplaintActivity{ID: "act-1", Note: &req.Note}, f.err
}

func (f *fakeComplaintSrv) SubmitFeedback(_ context.Context, _ models.Viewer, taskID string, req dto.FeedbackRequest) (*models.Feedback, error) {
	f.taskID = taskID
	if f.err != nil {
		return nil, f.err
	}
	return &models.Feedback{ComplaintID: "c-1", Rating: req.Rating}, nil
}

func TestComplaintHandlerCreateJSON(t *testing.T) {
	srv := &fakeComplaintSrv{}
	h := NewComplaintHandler(srv)
	c, rec := newTestContext(jsonRequest(http.MethodPost, "/complaints", map[string]interface{}{
		"facility_type_id": 3, "description": "tap leaking",
	}), studentClaims)

	h.Create(c)

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, 3, srv.createReq.FacilityTypeID)
	assert.Equal(t, "tap leaking", srv.createReq.Description)
	assert.Equal(t, "stu-1", srv.viewer.UserID)
	assert.False(t, srv.hadUpload)
	assert.Equal(t, "TASK10001", decodeEnvelope(t, rec).Data["task_id"])
}

func TestComplaintHandlerCreateMultipart(t *testing.T) {
	srv := &fakeComplaintSrv{}
	h := NewComplaintHandler(srv)
	req := multipartRequest(t, "/complaints", map[string]string{
		"facility_type_id": "3", "description": "tap leaking",
	}, []byte("\x89PNG\r\n\x1a\nbody"))
	c, rec := newTestContext(req, studentClaims)

	h.Create(c)

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, 3, srv.createReq.FacilityTypeID)
	assert.True(t, srv.hadUpload)
	assert.Equal(t, []byte("\x89PNG\r\n\x1a\nbody"), srv.upload)
}

func TestComplaintHandlerCreateMultipartWithoutImage(t *testing.T) {
	srv := &fakeComplaintSrv{}
	h := NewComplaintHandler(srv)
	req := multipartRequest(t, "/complaints", map[string]string{
		"facility_type_id": "3", "description": "fan broken",
	}, nil)
	c, rec := newTestContext(req, studentClaims)

	h.Create(c)

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.False(t, srv.hadUpload)
}

func TestComplaintHandlerRejectsAnonymous(t *testing.T) {
	h := NewComplaintHandler(&fakeComplaintSrv{})
	c, rec := newTestContext(jsonRequest(http.MethodGet, "/complaints", nil), nil)

	h.ListMine(c)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestComplaintHandlerBadJSON(t *testing.T) {
	h := NewComplaintHandler(&fakeComplaintSrv{})
	req := jsonRequest(http.MethodPost, "/complaints", nil)
	c, rec := newTestContext(req, studentClaims)

	h.Create(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, appErrors.ErrValidation.Code, decodeEnvelope(t, rec).Error.Code)
}

func TestComplaintHandlerListMinePagination(t *testing.T) {
	srv := &fakeComplaintSrv{}
	h := NewComplaintHandler(srv)
	c, rec := newTestContext(jsonRequest(http.MethodGet, "/complaints?page=2&limit=5", nil), studentClaims)

	h.ListMine(c)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 2, srv.page)
	assert.Equal(t, 5, srv.size)
	assert.EqualValues(t, 1, decodeEnvelope(t, rec).Pagination["total_count"])
}

func TestComplaintHandlerGetNormalisesTaskID(t *testing.T) {
	srv := &fakeComplaintSrv{}
	h := NewComplaintHandler(srv)
	c, rec := newTestContext(jsonRequest(http.MethodGet, "/complaints/task10001", nil), studentClaims,
		gin.Param{Key: "taskId", Value: " task10001 "})

	h.Get(c)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "TASK10001", srv.taskID)
}

func TestComplaintHandlerTransitionNeedsConfirmation(t *testing.T) {
	srv := &fakeComplaintSrv{err: appErrors.WithDetails(appErrors.ErrConfirmationRequired, map[string]interface{}{
		"confirmation_token": "tok",
	})}
	h := NewComplaintHandler(srv)
	c, rec := newTestContext(jsonRequest(http.MethodPatch, "/complaints/TASK10001/status", map[string]string{
		"status": "Closed Incomplete",
	}), staffClaims, gin.Param{Key: "taskId", Value: "TASK10001"})

	h.TransitionStatus(c)

	require.Equal(t, http.StatusPreconditionRequired, rec.Code)
	env := decodeEnvelope(t, rec)
	assert.Equal(t, "CONFIRMATION_REQUIRED", env.Error.Code)
	assert.Equal(t, "tok", env.Error.Details["confirmation_token"])
	assert.Equal(t, "Closed Incomplete", srv.transition.Status)
}

func TestComplaintHandlerTransitionSuccess(t *testing.T) {
	srv := &fakeComplaintSrv{}
	h := NewComplaintHandler(srv)
	c, rec := newTestContext(jsonRequest(http.MethodPatch, "/complaints/TASK10001/status", map[string]string{
		"status": "In Progress",
	}), staffClaims, gin.Param{Key: "taskId", Value: "TASK10001"})

	h.TransitionStatus(c)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "In Progress", decodeEnvelope(t, rec).Data["status"])
}

func TestComplaintHandlerAttachEvidenceRequiresImage(t *testing.T) {
	h := NewComplaintHandler(&fakeComplaintSrv{})
	req := multipartRequest(t, "/complaints/TASK10001/evidence", map[string]string{"note": "x"}, nil)
	c, rec := newTestContext(req, staffClaims, gin.Param{Key: "taskId", Value: "TASK10001"})

	h.AttachEvidence(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestComplaintHandlerAttachEvidence(t *testing.T) {
	srv := &fakeComplaintSrv{}
	h := NewComplaintHandler(srv)
	req := multipartRequest(t, "/complaints/TASK10001/evidence", nil, []byte("img"))
	c, rec := newTestContext(req, staffClaims, gin.Param{Key: "taskId", Value: "TASK10001"})

	h.AttachEvidence(c)

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, []byte("img"), srv.upload)
	assert.Equal(t, "img-1", decodeEnvelope(t, rec).Data["id"])
}

func TestComplaintHandlerAssignAndNote(t *testing.T) {
	srv := &fakeComplaintSrv{}
	h := NewComplaintHandler(srv)

	c, rec := newTestContext(jsonRequest(http.MethodPut, "/complaints/TASK10001/assignment", map[string]string{
		"group_name": "Plumbing",
	}), staffClaims, gin.Param{Key: "taskId", Value: "TASK10001"})
	h.Assign(c)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Plumbing", decodeEnvelope(t, rec).Data["group_name"])

	c, rec = newTestContext(jsonRequest(http.MethodPost, "/complaints/TASK10001/notes", map[string]string{
		"note": "ordered washer",
	}), staffClaims, gin.Param{Key: "taskId", Value: "TASK10001"})
	h.AddWorkNote(c)
	require.Equal(t, http.StatusCreated, rec.Code)
}

func TestComplaintHandlerFeedbackConflict(t *testing.T) {
	srv := &fakeComplaintSrv{err: appErrors.Clone(appErrors.ErrConflict, "feedback already submitted")}
	h := NewComplaintHandler(srv)
	c, rec := newTestContext(jsonRequest(http.MethodPost, "/complaints/TASK10001/feedback", map[string]int{
		"rating": 5,
	}), studentClaims, gin.Param{Key: "taskId", Value: "TASK10001"})

	h.SubmitFeedback(c)

	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestComplaintHandlerFacilityTypes(t *testing.T) {
	h := NewComplaintHandler(&fakeComplaintSrv{})
	c, rec := newTestContext(jsonRequest(http.MethodGet, "/facility-types", nil), studentClaims)

	h.FacilityTypes(c)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"Room"`)
}
