package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/fixify-hostel/fixify-api/internal/dto"
	"github.com/fixify-hostel/fixify-api/internal/models"
	appErrors "github.com/fixify-hostel/fixify-api/pkg/errors"
	"github.com/fixify-hostel/fixify-api/pkg/response"
)

type complaintService interface {
	FacilityTypes(ctx context.Context) ([]models.FacilityType, error)
	Create(ctx context.Context, viewer models.Viewer, req dto.CreateComplaintRequest, image *dto.Upload) (*dto.ComplaintDetail, error)
	ListMine(ctx context.Context, viewer models.Viewer, page, pageSize int) ([]dto.ComplaintSummary, *models.Pagination, error)
	Get(ctx context.Context, viewer models.Viewer, taskID string) (*dto.ComplaintDetail, error)
	TransitionStatus(ctx context.Context, viewer models.Viewer, taskID string, req dto.TransitionStatusRequest) (*dto.ComplaintSummary, error)
	AttachEvidence(ctx context.Context, viewer models.Viewer, taskID string, upload *dto.Upload) (*models.ComplaintImage, error)
	Assign(ctx context.Context, viewer models.Viewer, taskID string, req dto.AssignRequest) (*dto.ComplaintSummary, error)
	AddWorkNote(ctx context.Context, viewer models.Viewer, taskID string, req dto.WorkNoteRequest) (*models.ComplaintActivity, error)
	SubmitFeedback(ctx context.Context, viewer models.Viewer, taskID string, req dto.FeedbackRequest) (*models.Feedback, error)
}

// ComplaintHandler exposes the complaint lifecycle endpoints.
type ComplaintHandler struct {
	service complaintService
}

// NewComplaintHandler constructs the handler.
func NewComplaintHandler(service complaintService) *ComplaintHandler {
	return &ComplaintHandler{service: service}
}

// FacilityTypes godoc
// @Summary List facility types
// @Tags Complaints
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /facility-types [get]
func (h *ComplaintHandler) FacilityTypes(c *gin.Context) {
	items, err := h.service.FacilityTypes(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, nil)
}

// Create godoc
// @Summary Raise a complaint
// @Description Accepts JSON or multipart/form-data with an optional image part
// @Tags Complaints
// @Accept json
// @Accept mpfd
// @Produce json
// @Param payload body dto.CreateComplaintRequest true "Complaint"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /complaints [post]
func (h *ComplaintHandler) Create(c *gin.Context) {
	viewer, ok := requireViewer(c)
	if !ok {
		return
	}

	var req dto.CreateComplaintRequest
	var upload *dto.Upload
	if isMultipart(c) {
		if err := c.ShouldBind(&req); err != nil {
			response.Error(c, bindError(err, "invalid complaint payload"))
			return
		}
		file, closeFile, err := formUpload(c)
		if err != nil {
			response.Error(c, err)
			return
		}
		defer closeFile()
		upload = file
	} else if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid complaint payload"))
		return
	}

	detail, err := h.service.Create(c.Request.Context(), viewer, req, upload)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, detail)
}

// ListMine godoc
// @Summary List my complaints
// @Tags Complaints
// @Produce json
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /complaints/mine [get]
func (h *ComplaintHandler) ListMine(c *gin.Context) {
	viewer, ok := requireViewer(c)
	if !ok {
		return
	}
	page, size := pageParams(c)
	items, pagination, err := h.service.ListMine(c.Request.Context(), viewer, page, size)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, pagination)
}

// Get godoc
// @Summary Complaint detail
// @Tags Complaints
// @Produce json
// @Param taskId path string true "Task ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /complaints/{taskId} [get]
func (h *ComplaintHandler) Get(c *gin.Context) {
	viewer, ok := requireViewer(c)
	if !ok {
		return
	}
	detail, err := h.service.Get(c.Request.Context(), viewer, taskIDParam(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, detail, nil)
}

// TransitionStatus godoc
// @Summary Change complaint status
// @Description Closing as incomplete answers 428 with a confirmation token until it is echoed back
// @Tags Complaints
// @Accept json
// @Produce json
// @Param taskId path string true "Task ID"
// @Param payload body dto.TransitionStatusRequest true "Target status"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Failure 428 {object} response.Envelope
// @Router /complaints/{taskId}/status [post]
func (h *ComplaintHandler) TransitionStatus(c *gin.Context) {
	viewer, ok := requireViewer(c)
	if !ok {
		return
	}
	var req dto.TransitionStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid status payload"))
		return
	}
	summary, err := h.service.TransitionStatus(c.Request.Context(), viewer, taskIDParam(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, summary, nil)
}

// AttachEvidence godoc
// @Summary Upload resolution evidence
// @Tags Complaints
// @Accept mpfd
// @Produce json
// @Param taskId path string true "Task ID"
// @Param image formData file true "Evidence image"
// @Success 201 {object} response.Envelope
// @Router /complaints/{taskId}/evidence [post]
func (h *ComplaintHandler) AttachEvidence(c *gin.Context) {
	viewer, ok := requireViewer(c)
	if !ok {
		return
	}
	upload, closeFile, err := formUpload(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	defer closeFile()
	if upload == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "image is required"))
		return
	}
	image, err := h.service.AttachEvidence(c.Request.Context(), viewer, taskIDParam(c), upload)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, image)
}

// Assign godoc
// @Summary Assign a complaint
// @Tags Complaints
// @Accept json
// @Produce json
// @Param taskId path string true "Task ID"
// @Param payload body dto.AssignRequest true "Assignment"
// @Success 200 {object} response.Envelope
// @Router /complaints/{taskId}/assign [post]
func (h *ComplaintHandler) Assign(c *gin.Context) {
	viewer, ok := requireViewer(c)
	if !ok {
		return
	}
	var req dto.AssignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid assignment payload"))
		return
	}
	summary, err := h.service.Assign(c.Request.Context(), viewer, taskIDParam(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, summary, nil)
}

// AddWorkNote godoc
// @Summary Add a work note
// @Tags Complaints
// @Accept json
// @Produce json
// @Param taskId path string true "Task ID"
// @Param payload body dto.WorkNoteRequest true "Note"
// @Success 201 {object} response.Envelope
// @Router /complaints/{taskId}/notes [post]
func (h *ComplaintHandler) AddWorkNote(c *gin.Context) {
	viewer, ok := requireViewer(c)
	if !ok {
		return
	}
	var req dto.WorkNoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid note payload"))
		return
	}
	note, err := h.service.AddWorkNote(c.Request.Context(), viewer, taskIDParam(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, note)
}

// SubmitFeedback godoc
// @Summary Rate a resolved complaint
// @Tags Complaints
// @Accept json
// @Produce json
// @Param taskId path string true "Task ID"
// @Param payload body dto.FeedbackRequest true "Rating 1-5"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /complaints/{taskId}/feedback [post]
func (h *ComplaintHandler) SubmitFeedback(c *gin.Context) {
	viewer, ok := requireViewer(c)
	if !ok {
		return
	}
	var req dto.FeedbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid feedback payload"))
		return
	}
	fb, err := h.service.SubmitFeedback(c.Request.Context(), viewer, taskIDParam(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, fb)
}

func taskIDParam(c *gin.Context) string {
	return strings.ToUpper(strings.TrimSpace(c.Param("taskId")))
}
