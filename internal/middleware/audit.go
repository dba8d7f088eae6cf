package middleware

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/fixify-hostel/fixify-api/internal/models"
	"github.com/fixify-hostel/fixify-api/pkg/logger"
)

// AuditWriter persists audit events.
type AuditWriter interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

// Audit records an audit log after each successful request. The resource id
// is read from the paramKey route parameter when set.
func Audit(repo AuditWriter, action, resource, paramKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now().UTC()
		c.Next()

		if c.Writer.Status() >= 400 {
			return
		}

		var userID *string
		if claims, ok := Claims(c); ok {
			userID = &claims.UserID
		}
		var resourceID *string
		if paramKey != "" {
			if v := c.Param(paramKey); v != "" {
				resourceID = &v
			}
		}

		body, _ := json.Marshal(map[string]interface{}{
			"path":    c.FullPath(),
			"method":  c.Request.Method,
			"status":  c.Writer.Status(),
			"latency": time.Since(start).Milliseconds(),
		})

		// the request may already be cancelled; the audit row should still land
		ctx := context.WithoutCancel(c.Request.Context())
		if err := repo.CreateAuditLog(ctx, &models.AuditLog{
			UserID:     userID,
			Action:     action,
			Resource:   resource,
			ResourceID: resourceID,
			NewValues:  body,
			IPAddress:  c.ClientIP(),
			UserAgent:  c.GetHeader("User-Agent"),
		}); err != nil {
			logger.FromGin(c, nil).Warn("failed to write audit log", zap.String("action", action), zap.Error(err))
		}
	}
}
