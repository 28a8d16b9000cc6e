package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/Kassie406/familyvault-app-sub005/internal/shared/config"
	"github.com/Kassie406/familyvault-app-sub005/internal/shared/metrics"
	"github.com/Kassie406/familyvault-app-sub005/internal/shared/server/middleware"
	"github.com/Kassie406/familyvault-app-sub005/internal/shared/server/respond"
)

// RouteRegistrar attaches feature routes to a router group.
type RouteRegistrar interface {
	RegisterRoutes(rg *gin.RouterGroup)
}

// RouterDeps carries the handlers the router mounts.
type RouterDeps struct {
	Config           config.Config
	DocumentsHandler RouteRegistrar
	AnalysesHandler  RouteRegistrar
	InboxHandler     RouteRegistrar
	MembersHandler   RouteRegistrar
}

// NewRouter constructs the Gin engine with middleware and routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	r.Use(
		middleware.RequestID(),
		middleware.Logging(),
		middleware.Recovery(),
		middleware.CORS(deps.Config.CORSAllowOrigin),
		middleware.Identity(),
		middleware.RateLimit(middleware.RateLimitConfig{
			Rules: map[string]middleware.RateLimitRule{
				"UPLOAD":  {Rate: 1, Burst: 5},
				"ANALYZE": {Rate: 2, Burst: 10},
			},
			GroupFor: rateLimitGroup,
		}),
	)

	r.GET("/metrics", metrics.Handler())

	api := r.Group("/api/v1")
	api.GET("/health", func(c *gin.Context) {
		respond.JSON(c, http.StatusOK, gin.H{"ok": true})
	})
	registerMeRoutes(api)
	for _, h := range []RouteRegistrar{
		deps.DocumentsHandler,
		deps.AnalysesHandler,
		deps.InboxHandler,
		deps.MembersHandler,
	} {
		if h != nil {
			h.RegisterRoutes(api)
		}
	}

	return r
}

func rateLimitGroup(c *gin.Context) string {
	path := c.Request.URL.Path
	switch {
	case c.Request.Method == http.MethodPost && path == "/api/v1/documents":
		return "UPLOAD"
	case c.Request.Method == http.MethodPost && strings.HasSuffix(path, "/analyze"),
		c.Request.Method == http.MethodPost && strings.HasSuffix(path, "/analyze/retry"):
		return "ANALYZE"
	default:
		return ""
	}
}

// Addr normalizes the listen address.
func Addr(port string) string {
	if port == "" {
		return ":8080"
	}
	if port[0] == ':' {
		return port
	}
	return ":" + port
}
