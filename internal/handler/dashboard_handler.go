package handler

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/fixify-hostel/fixify-api/internal/dto"
	"github.com/fixify-hostel/fixify-api/internal/middleware"
	"github.com/fixify-hostel/fixify-api/internal/service"
	appErrors "github.com/fixify-hostel/fixify-api/pkg/errors"
	"github.com/fixify-hostel/fixify-api/pkg/response"
)

type dashboardService interface {
	Admin(ctx context.Context) (*dto.AdminDashboardResponse, bool, error)
	StaffAnalytics(ctx context.Context, staffID string) (*dto.StaffAnalyticsResponse, bool, error)
}

type exportService interface {
	Complaints(ctx context.Context, req dto.ExportRequest) (*service.ExportFile, error)
}

// DashboardHandler wires reporting services to HTTP endpoints.
type DashboardHandler struct {
	service dashboardService
	export  exportService
}

// NewDashboardHandler constructs the handler.
func NewDashboardHandler(service dashboardService, export exportService) *DashboardHandler {
	return &DashboardHandler{service: service, export: export}
}

// Admin godoc
// @Summary Admin dashboard summary
// @Tags Dashboard
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /dashboard [get]
func (h *DashboardHandler) Admin(c *gin.Context) {
	if h.service == nil {
		response.Error(c, appErrors.ErrInternal)
		return
	}
	start := time.Now()
	summary, cacheHit, err := h.service.Admin(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	h.respondWithMeta(c, start, cacheHit, summary)
}

// StaffAnalytics godoc
// @Summary Staff performance and open load
// @Tags Dashboard
// @Produce json
// @Param staffId path string true "Staff ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /dashboard/staff/{staffId} [get]
func (h *DashboardHandler) StaffAnalytics(c *gin.Context) {
	if h.service == nil {
		response.Error(c, appErrors.ErrInternal)
		return
	}
	staffID := strings.TrimSpace(c.Param("staffId"))
	if staffID == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "staffId is required"))
		return
	}
	start := time.Now()
	resp, cacheHit, err := h.service.StaffAnalytics(c.Request.Context(), staffID)
	if err != nil {
		response.Error(c, err)
		return
	}
	h.respondWithMeta(c, start, cacheHit, resp)
}

// Export godoc
// @Summary Export complaints
// @Description Downloads complaints created in [from, to] as csv or pdf
// @Tags Dashboard
// @Produce text/csv
// @Produce application/pdf
// @Param format query string false "csv or pdf"
// @Param from query string false "Start date (YYYY-MM-DD)"
// @Param to query string false "End date (YYYY-MM-DD), inclusive"
// @Success 200 {file} file
// @Failure 400 {object} response.Envelope
// @Router /dashboard/export [get]
func (h *DashboardHandler) Export(c *gin.Context) {
	if h.export == nil {
		response.Error(c, appErrors.ErrInternal)
		return
	}
	var req dto.ExportRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid date format, expected YYYY-MM-DD"))
		return
	}
	file, err := h.export.Complaints(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	if response.ClientGone(c) {
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", file.Filename))
	c.Header("X-Export-Rows", strconv.Itoa(file.Rows))
	c.Data(http.StatusOK, file.ContentType, file.Data)
}

func (h *DashboardHandler) respondWithMeta(c *gin.Context, start time.Time, cacheHit bool, data interface{}) {
	middleware.SetCacheHit(c, cacheHit)
	meta := middleware.ExtractMeta(c)
	if meta == nil {
		meta = map[string]interface{}{}
	}
	meta["processing_time_ms"] = time.Since(start).Milliseconds()
	response.JSON(c, http.StatusOK, data, nil, meta)
}
