package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Health is the body of both health probes.
type Health struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// Health status values.
const (
	HealthStatusOk       = "ok"
	HealthStatusDegraded = "degraded"
)

// GetLiveness handles GET /health/live.
func (s *Server) GetLiveness(c *gin.Context) {
	c.JSON(http.StatusOK, Health{Status: HealthStatusOk})
}

// GetReadiness handles GET /health/ready. The service is ready once a
// non-empty registry is in service and the database, if any, answers.
func (s *Server) GetReadiness(c *gin.Context) {
	checks := make(map[string]string)
	allHealthy := true

	if s.registry.Registry().Empty() {
		checks["registry"] = "empty"
		allHealthy = false
	} else {
		checks["registry"] = "ok"
	}

	if s.database != nil {
		if err := s.database.Ping(c.Request.Context()); err != nil {
			checks["database"] = "error"
			allHealthy = false
		} else {
			checks["database"] = "ok"
		}
	}

	status := HealthStatusOk
	httpStatus := http.StatusOK
	if !allHealthy {
		status = HealthStatusDegraded
		httpStatus = http.StatusServiceUnavailable
	}

	c.JSON(httpStatus, Health{
		Status: status,
		Checks: checks,
	})
}
