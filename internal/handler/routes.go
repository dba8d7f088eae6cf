package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/fixify-hostel/fixify-api/internal/middleware"
	"github.com/fixify-hostel/fixify-api/internal/models"
)

// Audit actions written by the API.
const (
	AuditComplaintCreate = "COMPLAINT_CREATE"
	AuditComplaintStatus = "COMPLAINT_STATUS"
	AuditComplaintAssign = "COMPLAINT_ASSIGN"
	AuditComplaintExport = "COMPLAINT_EXPORT"
)

// Routes bundles the handlers and guards mounted under the API prefix.
type Routes struct {
	Auth       *AuthHandler
	Complaints *ComplaintHandler
	Queue      *QueueHandler
	Dashboard  *DashboardHandler

	// Authenticate verifies the bearer token; tests may swap in a stub.
	Authenticate gin.HandlerFunc
	Audit        middleware.AuditWriter
}

// Register mounts every API route on group.
func (r Routes) Register(group gin.IRouter) {
	student := middleware.RequireRoles(models.RoleStudent)
	staff := middleware.RequireRoles(models.RoleStaff)
	handlers := middleware.RequireRoles(models.RoleStaff, models.RoleAdmin)
	admin := middleware.RequireRoles(models.RoleAdmin)
	audit := func(action, param string) gin.HandlerFunc {
		if r.Audit == nil {
			return func(c *gin.Context) { c.Next() }
		}
		return middleware.Audit(r.Audit, action, "complaint", param)
	}

	auth := group.Group("/auth")
	auth.POST("/login", r.Auth.Login)
	auth.POST("/refresh", r.Auth.Refresh)

	secured := group.Group("")
	secured.Use(r.Authenticate)
	secured.POST("/auth/logout", r.Auth.Logout)
	secured.GET("/auth/me", r.Auth.Me)
	secured.GET("/facility-types", r.Complaints.FacilityTypes)

	complaints := secured.Group("/complaints")
	complaints.POST("", student, audit(AuditComplaintCreate, ""), r.Complaints.Create)
	complaints.GET("/mine", student, r.Complaints.ListMine)
	complaints.GET("/:taskId", r.Complaints.Get)
	complaints.POST("/:taskId/status", handlers, audit(AuditComplaintStatus, "taskId"), r.Complaints.TransitionStatus)
	complaints.POST("/:taskId/evidence", handlers, r.Complaints.AttachEvidence)
	complaints.POST("/:taskId/assign", handlers, audit(AuditComplaintAssign, "taskId"), r.Complaints.Assign)
	complaints.POST("/:taskId/notes", handlers, r.Complaints.AddWorkNote)
	complaints.POST("/:taskId/feedback", student, r.Complaints.SubmitFeedback)

	queue := secured.Group("/queue", staff)
	queue.GET("", r.Queue.GroupedOpen)
	queue.GET("/workload", r.Queue.Workload)

	dashboard := secured.Group("/dashboard", admin)
	dashboard.GET("", r.Dashboard.Admin)
	dashboard.GET("/staff/:staffId", r.Dashboard.StaffAnalytics)
	dashboard.GET("/export", audit(AuditComplaintExport, ""), r.Dashboard.Export)
}

// RegisterOps mounts the unauthenticated operational endpoints.
func RegisterOps(router gin.IRouter, metrics *MetricsHandler, media *MediaHandler) {
	router.GET("/health", metrics.Health)
	router.GET("/ready", metrics.Ready)
	router.GET("/metrics", metrics.Prometheus)
	if media != nil {
		router.GET("/media/:token", media.Serve)
	}
}
