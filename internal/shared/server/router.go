package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"resume-review/internal/analyses"
	googleauth "resume-review/internal/auth"
	"resume-review/internal/services/health"
	"resume-review/internal/shared/auth"
	"resume-review/internal/shared/config"
	"resume-review/internal/shared/metrics"
	"resume-review/internal/shared/server/middleware"
	"resume-review/internal/shared/server/respond"
)

// RouterDeps are the handlers mounted under /api/v1.
type RouterDeps struct {
	Config          config.Config
	AnalysisHandler *analyses.Handler
	GoogleAuth      *googleauth.GoogleService
	Health          *health.Service
	Limiter         *middleware.RateLimiter
}

const analyzeGroup = "ANALYZE"

// NewRouter constructs the Gin engine with middleware and routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	cfg := deps.Config
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.MaxMultipartMemory = cfg.MaxUploadBytes

	r.Use(
		middleware.RequestID(),
		middleware.Logging(),
		middleware.Recovery(),
		middleware.CORS(cfg.CORSAllowOrigin),
		middleware.Auth(cfg.Env),
		middleware.RateLimit(middleware.RateLimitConfig{
			GroupFor: func(c *gin.Context) string {
				if c.Request.Method == http.MethodPost && c.FullPath() == "/api/v1/resumes" {
					return analyzeGroup
				}
				return ""
			},
			Limiter: deps.Limiter,
			Rules: map[string]middleware.RateLimitRule{
				analyzeGroup: {Rate: cfg.AnalyzeRatePerMin / 60, Burst: cfg.AnalyzeBurst},
			},
		}),
	)

	api := r.Group("/api/v1")
	api.GET("/health", func(c *gin.Context) {
		if deps.Health == nil {
			respond.OK(c, gin.H{"ok": true})
			return
		}
		st := deps.Health.Status(c.Request.Context())
		code := http.StatusOK
		if !st.OK {
			code = http.StatusServiceUnavailable
		}
		respond.JSON(c, code, st)
	})
	api.GET("/metrics", metrics.Handler())
	registerMeRoutes(api, auth.Gate{AllowGuests: cfg.IsDevLike()})
	if deps.GoogleAuth != nil {
		deps.GoogleAuth.RegisterRoutes(api)
	}
	if deps.AnalysisHandler != nil {
		deps.AnalysisHandler.RegisterRoutes(api)
	}

	return r
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
