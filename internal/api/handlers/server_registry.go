package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"clustermap.io/clustermap/internal/api/middleware"
	apperrors "clustermap.io/clustermap/internal/pkg/errors"
	"clustermap.io/clustermap/internal/pkg/logger"
	"clustermap.io/clustermap/internal/service"
)

// RegistryInfo summarizes the registry in service.
type RegistryInfo struct {
	HomeEnvironment string                    `json:"home_environment"`
	Source          string                    `json:"source"`
	Environments    []string                  `json:"environments"`
	Rows            int                       `json:"rows"`
	Dropped         int                       `json:"dropped"`
	Aliases         int                       `json:"aliases"`
	Status          service.Status            `json:"status"`
	Pools           map[string]map[string]int `json:"pools,omitempty"`
	Events          map[string]int64          `json:"events,omitempty"`
}

// ResolveCluster handles GET /clusters/:name.
func (s *Server) ResolveCluster(c *gin.Context) {
	name, ok := pathName(c)
	if !ok {
		return
	}
	m, found := s.registry.ResolveCluster(name)
	if !found {
		_ = c.Error(apperrors.ErrClusterNotMappedf(name))
		return
	}
	c.JSON(http.StatusOK, m)
}

// ResolveDatabase handles GET /databases/:name.
func (s *Server) ResolveDatabase(c *gin.Context) {
	name, ok := pathName(c)
	if !ok {
		return
	}
	m, found := s.registry.ResolveDatabase(name)
	if !found {
		_ = c.Error(apperrors.ErrDatabaseNotMappedf(name))
		return
	}
	c.JSON(http.StatusOK, m)
}

// GetRegistry handles GET /registry.
func (s *Server) GetRegistry(c *gin.Context) {
	reg := s.registry.Registry()
	envs := reg.Environments()
	names := make([]string, len(envs))
	for i, e := range envs {
		names[i] = string(e)
	}

	info := RegistryInfo{
		HomeEnvironment: string(s.registry.Home()),
		Source:          s.registry.SourceName(),
		Environments:    names,
		Rows:            reg.Rows(),
		Dropped:         reg.Dropped(),
		Aliases:         reg.Len(),
		Status:          s.registry.Status(),
	}
	if s.pools != nil {
		info.Pools = s.pools.Metrics()
	}
	if s.events != nil {
		info.Events = s.events.Snapshot()
	}
	c.JSON(http.StatusOK, info)
}

// ReloadRegistry handles POST /registry/reload.
func (s *Server) ReloadRegistry(c *gin.Context) {
	if !s.reloadEnabled {
		_ = c.Error(apperrors.Forbidden(apperrors.CodeReloadDisabled, "registry reload endpoint is disabled"))
		return
	}

	result, err := s.registry.Reload(c.Request.Context())
	if err != nil {
		_ = c.Error(apperrors.ErrReloadFailedf(err))
		return
	}
	logger.Info("Registry reload requested",
		zap.String("request_id", middleware.GetRequestID(c.Request.Context())),
		zap.String("subject", middleware.GetSubject(c.Request.Context())),
		zap.String("reload_id", result.ID),
	)
	c.JSON(http.StatusOK, result)
}

// pathName returns the trimmed :name parameter, or records NAME_INVALID.
func pathName(c *gin.Context) (string, bool) {
	name := strings.TrimSpace(c.Param("name"))
	if name == "" {
		_ = c.Error(apperrors.BadRequest(apperrors.CodeNameInvalid, "name must not be empty"))
		return "", false
	}
	return name, true
}
