package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"agent-relay-gateway/internal/memory"
	"agent-relay-gateway/internal/models"
	"agent-relay-gateway/internal/registry"
	"agent-relay-gateway/internal/repository"
	"agent-relay-gateway/internal/services"
	"agent-relay-gateway/pkg/sse"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

const (
	codeNotFound    = "NOT_FOUND"
	codeInternal    = "INTERNAL_ERROR"
	codeUnavailable = "SERVICE_UNAVAILABLE"
)

// Handlers serves the gateway API. Temporal, Archive and Qdrant are nil when
// the corresponding backend is not configured.
type Handlers struct {
	Registry      *registry.Registry
	Memory        *memory.Memory
	Repository    repository.Repository
	Temporal      services.TemporalClientInterface
	Archive       services.S3ClientInterface
	Qdrant        services.QdrantClientInterface
	Sessions      *sse.Hub
	ArchiveExpiry time.Duration
	Logger        zerolog.Logger
}

func (h *Handlers) Health(c *gin.Context) {
	c.JSON(http.StatusOK, models.HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().Format(time.RFC3339),
	})
}

func (h *Handlers) Ready(c *gin.Context) {
	checks := map[string]func(context.Context) error{
		"database": h.Repository.Ping,
	}
	if h.Temporal != nil {
		checks["temporal"] = h.Temporal.HealthCheck
	}
	if h.Qdrant != nil {
		checks["qdrant"] = h.Qdrant.HealthCheck
	}
	if h.Archive != nil {
		checks["s3"] = h.Archive.HealthCheck
	}

	ready := true
	deps := make(map[string]string, len(checks))
	for name, check := range checks {
		if err := check(c.Request.Context()); err != nil {
			h.Logger.Warn().Err(err).Str("dependency", name).Msg("Readiness check failed")
			deps[name] = err.Error()
			ready = false
			continue
		}
		deps[name] = "ok"
	}

	resp := models.ReadinessResponse{
		Status:       "ready",
		Dependencies: deps,
	}
	if h.Sessions != nil {
		resp.ActiveSessions = h.Sessions.Active()
	}

	if !ready {
		resp.Status = "not_ready"
		c.JSON(http.StatusServiceUnavailable, resp)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func respondError(c *gin.Context, status int, code, message string) {
	c.JSON(status, models.ErrorResponse{Error: message, Code: code})
}

// pagination reads limit (1..100, default 50) and offset (>= 0, default 0).
func pagination(c *gin.Context) (limit, offset int) {
	limit = 50
	if l, err := strconv.Atoi(c.Query("limit")); err == nil && l > 0 && l <= 100 {
		limit = l
	}
	if o, err := strconv.Atoi(c.Query("offset")); err == nil && o >= 0 {
		offset = o
	}
	return limit, offset
}
