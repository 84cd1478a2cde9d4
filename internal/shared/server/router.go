package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	googleauth "cv-review-backend/internal/auth"
	"cv-review-backend/internal/profiles"
	"cv-review-backend/internal/rating"
	"cv-review-backend/internal/shared/config"
	"cv-review-backend/internal/shared/metrics"
	"cv-review-backend/internal/shared/server/middleware"
	"cv-review-backend/internal/shared/server/respond"
	"cv-review-backend/internal/uploads"
)

// RouterDeps carries the handlers the router wires up. Construction happens
// in bootstrap so tests can assemble a router from fakes.
type RouterDeps struct {
	Config          config.Config
	UploadsHandler  *uploads.Handler
	RatingHandler   *rating.Handler
	ProfilesHandler *profiles.Handler
	GoogleAuth      *googleauth.GoogleService
	RateLimiter     *middleware.RateLimiter
}

// anonymousReviewRule throttles the unauthenticated review endpoint per
// client IP. One review every 20 seconds with a small burst.
var anonymousReviewRule = middleware.RateLimitRule{Rate: 0.05, Burst: 3}

// NewRouter constructs the Gin engine with middleware and routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	r.Use(
		middleware.RequestID(),
		middleware.Logging(),
		middleware.Recovery(),
		middleware.CORS(deps.Config.CORSAllowOrigin),
	)

	r.GET("/metrics", metrics.Handler())

	api := r.Group("/api/v1")
	api.GET("/health", func(c *gin.Context) {
		respond.JSON(c, http.StatusOK, gin.H{"ok": true})
	})

	if deps.GoogleAuth != nil {
		deps.GoogleAuth.RegisterRoutes(api)
	}
	if deps.RatingHandler != nil {
		deps.RatingHandler.RegisterRoutes(api)
	}
	if deps.UploadsHandler != nil {
		public := api.Group("")
		if deps.RateLimiter != nil {
			public.Use(middleware.RateLimit(deps.RateLimiter, anonymousReviewRule))
		}
		deps.UploadsHandler.RegisterPublicRoutes(public)
	}

	authed := api.Group("")
	authed.Use(middleware.Auth())
	if deps.ProfilesHandler != nil {
		deps.ProfilesHandler.RegisterRoutes(authed)
	}
	if deps.UploadsHandler != nil {
		deps.UploadsHandler.RegisterRoutes(authed)
		deps.UploadsHandler.RegisterAdminRoutes(authed)
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
