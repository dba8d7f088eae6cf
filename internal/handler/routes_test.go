package handler

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fixify-hostel/fixify-api/internal/middleware"
	"github.com/fixify-hostel/fixify-api/internal/models"
	appErrors "github.com/fixify-hostel/fixify-api/pkg/errors"
)

type auditRecorder struct {
	mu      sync.Mutex
	entries []models.AuditLog
}

func (a *auditRecorder) CreateAuditLog(_ context.Context, log *models.AuditLog) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.entries = append(a.entries, *log)
	return nil
}

func buildTestRouter(audit *auditRecorder) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	routes := Routes{
		Auth:       NewAuthHandler(&fakeAuthSrv{}),
		Complaints: NewComplaintHandler(&fakeComplaintSrv{}),
		Queue:      NewQueueHandler(&fakeQueueSrv{}),
		Dashboard:  NewDashboardHandler(&fakeDashboardSrv{}, &fakeExportSrv{}),
		Authenticate: func(c *gin.Context) {
			role := c.GetHeader("X-Test-Role")
			if role == "" {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": appErrors.ErrUnauthorized})
				return
			}
			c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "user-1", Role: models.UserRole(role)})
			c.Next()
		},
		Audit: audit,
	}
	routes.Register(router.Group("/api/v1"))
	return router
}

func perform(router *gin.Engine, method, path, role string, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	if role != "" {
		req.Header.Set("X-Test-Role", role)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestRoutesRoleGating(t *testing.T) {
	router := buildTestRouter(&auditRecorder{})

	cases := []struct {
		name   string
		method string
		path   string
		role   models.UserRole
		body   string
		want   int
	}{
		{"login is public", http.MethodPost, "/api/v1/auth/login", "", `{"email":"a@b.c","password":"x"}`, http.StatusOK},
		{"me needs a token", http.MethodGet, "/api/v1/auth/me", "", "", http.StatusUnauthorized},
		{"student creates", http.MethodPost, "/api/v1/complaints", models.RoleStudent, `{"facility_type_id":1,"description":"x"}`, http.StatusCreated},
		{"staff cannot create", http.MethodPost, "/api/v1/complaints", models.RoleStaff, `{}`, http.StatusForbidden},
		{"student lists own", http.MethodGet, "/api/v1/complaints/mine", models.RoleStudent, "", http.StatusOK},
		{"student cannot transition", http.MethodPost, "/api/v1/complaints/TASK1/status", models.RoleStudent, `{"status":"Pending"}`, http.StatusForbidden},
		{"admin transitions", http.MethodPost, "/api/v1/complaints/TASK1/status", models.RoleAdmin, `{"status":"Pending"}`, http.StatusOK},
		{"staff reads queue", http.MethodGet, "/api/v1/queue", models.RoleStaff, "", http.StatusOK},
		{"admin has no queue", http.MethodGet, "/api/v1/queue/workload", models.RoleAdmin, "", http.StatusForbidden},
		{"staff cannot read dashboard", http.MethodGet, "/api/v1/dashboard", models.RoleStaff, "", http.StatusForbidden},
		{"staff cannot rate", http.MethodPost, "/api/v1/complaints/TASK1/feedback", models.RoleStaff, `{"rating":5}`, http.StatusForbidden},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := perform(router, tc.method, tc.path, string(tc.role), tc.body)
			assert.Equal(t, tc.want, rec.Code, rec.Body.String())
		})
	}
}

func TestRoutesAuditSuccessfulWrites(t *testing.T) {
	audit := &auditRecorder{}
	router := buildTestRouter(audit)

	rec := perform(router, http.MethodPost, "/api/v1/complaints/TASK7/assign", string(models.RoleStaff), `{"group_name":"Plumbing"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = perform(router, http.MethodPost, "/api/v1/complaints/TASK7/status", string(models.RoleStudent), `{"status":"Pending"}`)
	require.Equal(t, http.StatusForbidden, rec.Code)

	require.Len(t, audit.entries, 1)
	assert.Equal(t, AuditComplaintAssign, audit.entries[0].Action)
	require.NotNil(t, audit.entries[0].ResourceID)
	assert.Equal(t, "TASK7", *audit.entries[0].ResourceID)
}
