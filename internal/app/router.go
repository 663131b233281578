package app

import (
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"clustermap.io/clustermap/internal/api/handlers"
	"clustermap.io/clustermap/internal/api/middleware"
	"clustermap.io/clustermap/internal/config"
	"clustermap.io/clustermap/internal/pkg/logger"
)

// BasePath prefixes every contract route.
const BasePath = "/api/v1"

func newRouter(cfg *config.Config, server *handlers.Server, jwtCfg middleware.JWTConfig) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), middleware.RequestID())
	router.Use(cors.New(buildCORSConfig(cfg)))

	// Runtime log level: GET reads it, PUT {"level":"debug"} changes it.
	router.Any("/log/level", gin.WrapH(logger.LevelHandler()))

	api := router.Group(BasePath)
	// ErrorHandler runs inside the validator so error bodies are checked too.
	api.Use(middleware.MustOpenAPIValidator(BasePath), middleware.ErrorHandler())
	api.GET("/health/live", server.GetLiveness)
	api.GET("/health/ready", server.GetReadiness)
	api.GET("/clusters/:name", server.ResolveCluster)
	api.GET("/databases/:name", server.ResolveDatabase)
	api.GET("/registry", server.GetRegistry)

	if cfg.Security.ReloadEnabled() {
		api.POST("/registry/reload",
			middleware.JWTAuth(jwtCfg),
			middleware.RequirePermission(middleware.PermissionReload),
			server.ReloadRegistry,
		)
	} else {
		// Handler answers RELOAD_DISABLED.
		api.POST("/registry/reload", server.ReloadRegistry)
	}
	return router
}

// buildCORSConfig allows the configured origins. A "*" entry allows every
// origin; the API carries no cookies so credentials are never allowed.
func buildCORSConfig(cfg *config.Config) cors.Config {
	corsCfg := cors.Config{
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", middleware.RequestIDHeader},
		ExposeHeaders:    []string{middleware.RequestIDHeader},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}

	origins := make([]string, 0, len(cfg.Server.AllowedOrigins))
	for _, o := range cfg.Server.AllowedOrigins {
		o = strings.TrimSpace(o)
		if o != "" {
			origins = append(origins, o)
		}
	}
	if len(origins) == 0 || slices.Contains(origins, "*") {
		corsCfg.AllowAllOrigins = true
		return corsCfg
	}
	corsCfg.AllowOrigins = origins
	return corsCfg
}
