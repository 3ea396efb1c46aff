package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"s3drive-backend/internal/files"
	"s3drive-backend/internal/services/health"
	"s3drive-backend/internal/shared/config"
	"s3drive-backend/internal/shared/metrics"
	"s3drive-backend/internal/shared/server/middleware"
	"s3drive-backend/internal/shared/server/respond"
	"s3drive-backend/internal/ui"
)

// RouteRegistrar is implemented by components that serve their own routes,
// such as the local object store's signed blob links.
type RouteRegistrar interface {
	RegisterRoutes(r gin.IRoutes)
}

// RouterDeps holds the handlers mounted by NewRouter.
type RouterDeps struct {
	Config        config.Config
	FileHandler   *files.Handler
	Health        *health.Service
	Blobs         RouteRegistrar
	UploadLimiter *middleware.RateLimiter
}

// NewRouter constructs the Gin engine with middleware and routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	if gin.Mode() != gin.TestMode {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()

	r.Use(
		middleware.RequestID(),
		middleware.Logging(),
		middleware.Recovery(),
		middleware.CORS(deps.Config.CORSAllowOrigin),
	)

	r.GET("/metrics", metrics.Handler())
	ui.RegisterRoutes(r)
	if deps.Blobs != nil {
		deps.Blobs.RegisterRoutes(r)
	}

	api := r.Group("/api")
	healthSvc := deps.Health
	if healthSvc == nil {
		healthSvc = health.NewService(nil)
	}
	api.GET("/health", healthSvc.Handle)

	uploadLimit := middleware.RateLimit(middleware.RateLimitRule{
		Rate:  deps.Config.UploadRateLimit,
		Burst: deps.Config.UploadBurst,
	}, deps.UploadLimiter)
	deps.FileHandler.RegisterRoutes(api, uploadLimit)

	r.NoRoute(func(c *gin.Context) {
		respond.Error(c, http.StatusNotFound, "not_found", "route not found", nil)
	})

	return r
}

// Addr normalizes the listen address.
func Addr(port string) string {
	if port == "" {
		return ":5000"
	}
	if port[0] == ':' {
		return port
	}
	return ":" + port
}
