package bootstrap

import (
	"log"
	"net/http"

	"github.com/markgate/markgate/internal/config"
	"github.com/markgate/markgate/internal/handlers"
	"github.com/markgate/markgate/internal/metrics"
	"github.com/markgate/markgate/internal/middleware"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// setupRouter configures the Gin router with all routes and middleware
func setupRouter(app *Application) *gin.Engine {
	cfg := app.Config
	setupGinMode(cfg)

	r := gin.New()
	r.Use(metrics.HTTPMetricsMiddleware(app.Metrics))
	r.Use(gin.Logger(), gin.Recovery())
	setupSessionMiddleware(r, cfg)

	register := handlers.NewRegisterHandler(app.ClientService)
	authorize := handlers.NewAuthorizeHandler(app.AuthorizationService, app.Bridge, app.Store)
	tokenEndpoint := handlers.NewTokenHandler(app.ClientService, app.AuthorizationService, app.TokenService)
	metadata := handlers.NewMetadataHandler(cfg)
	upstreamLogin := handlers.NewUpstreamHandler(app.Bridge)
	userinfo := handlers.NewUserInfoHandler(app.Resolver)

	r.GET("/", func(c *gin.Context) {
		c.Redirect(http.StatusFound, "/.well-known/oauth-authorization-server")
	})

	// Downstream-facing OAuth surface. The consent form is the one
	// browser-submitted POST, so it carries a session-bound CSRF token.
	r.POST("/register", register.Register)
	r.GET("/authorize", middleware.CSRFMiddleware(), authorize.Authorize)
	r.POST("/authorize", middleware.CSRFMiddleware(), authorize.Decide)
	r.POST("/token", tokenEndpoint.Token)
	r.GET("/userinfo", userinfo.UserInfo)

	// Discovery documents
	r.GET("/.well-known/oauth-authorization-server", metadata.AuthorizationServer)
	r.GET("/.well-known/oauth-protected-resource", metadata.ProtectedResource)

	// Upstream login leg (browser)
	r.GET("/upstream/login", upstreamLogin.Login)
	r.GET("/upstream/callback", upstreamLogin.Callback)
	r.GET("/logout", upstreamLogin.Logout)

	r.GET("/health", createHealthCheckHandler(app))
	setupMetricsEndpoint(r, cfg)

	return r
}

// setupSessionMiddleware configures cookie session handling
func setupSessionMiddleware(r *gin.Engine, cfg *config.Config) {
	sessionStore := cookie.NewStore([]byte(cfg.SessionSecret))
	sessionStore.Options(sessions.Options{
		Path:     "/",
		MaxAge:   cfg.SessionMaxAge,
		HttpOnly: true,
		Secure:   cfg.IsProduction,
		SameSite: http.SameSiteLaxMode,
	})
	r.Use(sessions.Sessions("markgate_session", sessionStore))
}

// setupMetricsEndpoint configures the Prometheus metrics endpoint
func setupMetricsEndpoint(r *gin.Engine, cfg *config.Config) {
	switch {
	case !cfg.MetricsEnabled:
		log.Printf("Prometheus metrics disabled")
	case cfg.MetricsToken != "":
		log.Printf("Prometheus metrics enabled at /metrics with Bearer token authentication")
		r.GET(
			"/metrics",
			middleware.MetricsAuthMiddleware(cfg.MetricsToken),
			gin.WrapH(promhttp.Handler()),
		)
	default:
		log.Printf("Prometheus metrics enabled at /metrics (no authentication)")
		r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}
}

// createHealthCheckHandler reports store and cache health
func createHealthCheckHandler(app *Application) gin.HandlerFunc {
	return func(c *gin.Context) {
		status := gin.H{
			"status":   "healthy",
			"database": "connected",
			"cache":    "connected",
		}
		healthy := true

		if err := app.Store.Health(); err != nil {
			status["database"] = "disconnected"
			healthy = false
		}
		if err := app.FlowStates.Health(c.Request.Context()); err != nil {
			status["cache"] = "disconnected"
			healthy = false
		}

		if !healthy {
			status["status"] = "unhealthy"
			c.JSON(http.StatusServiceUnavailable, status)
			return
		}
		c.JSON(http.StatusOK, status)
	}
}

// setupGinMode sets Gin mode based on environment configuration
func setupGinMode(cfg *config.Config) {
	if cfg.IsProduction {
		gin.SetMode(gin.ReleaseMode)
		return
	}
	gin.SetMode(gin.DebugMode)
}
