package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/fixify-hostel/fixify-api/internal/dto"
	"github.com/fixify-hostel/fixify-api/internal/models"
	"github.com/fixify-hostel/fixify-api/pkg/response"
)

type queueService interface {
	GroupedOpen(ctx context.Context, viewer models.Viewer) (*dto.GroupedQueueResponse, error)
	Workload(ctx context.Context, viewer models.Viewer, page, pageSize int) (*dto.WorkloadResponse, error)
}

// QueueHandler serves the staff work queues.
type QueueHandler struct {
	service queueService
}

func NewQueueHandler(service queueService) *QueueHandler {
	return &QueueHandler{service: service}
}

// GroupedOpen godoc
// @Summary Open complaints of my group
// @Description Open complaints grouped by facility, split into individual and shared facilities
// @Tags Queue
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /queue [get]
func (h *QueueHandler) GroupedOpen(c *gin.Context) {
	viewer, ok := requireViewer(c)
	if !ok {
		return
	}
	resp, err := h.service.GroupedOpen(c.Request.Context(), viewer)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, resp, nil)
}

// Workload godoc
// @Summary Complaints assigned to me
// @Tags Queue
// @Produce json
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /queue/workload [get]
func (h *QueueHandler) Workload(c *gin.Context) {
	viewer, ok := requireViewer(c)
	if !ok {
		return
	}
	page, size := pageParams(c)
	resp, err := h.service.Workload(c.Request.Context(), viewer, page, size)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, resp, nil)
}
