package api

import (
	"cloudpix/internal/server/config"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// SetupRouter creates and configures the echo router with all routes and middleware.
func SetupRouter(handler *Handler, cfg *config.Config) *echo.Echo {
	e := echo.New()
	e.HideBanner = true

	// Global middleware
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders: []string{"Content-Type", "Authorization"},
	}))
	e.Use(RequestLogger())
	e.Use(Metrics())

	authRequired := JWTAuth(cfg.JWTSecret)

	// Rate limiter on upload endpoint only
	uploadLimiter := NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)

	// Health, stats & metrics
	e.GET("/health", handler.HandleHealth)
	e.GET("/api/stats", handler.HandleStats)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	// Auth
	e.POST("/api/auth/register", handler.HandleRegister)
	e.POST("/api/auth/login", handler.HandleLogin)
	e.GET("/api/auth/profile", handler.HandleProfile, authRequired)

	// Files (owner only)
	e.POST("/api/files", handler.HandleUpload, authRequired, uploadLimiter.Middleware())
	e.GET("/api/files", handler.HandleListFiles, authRequired)
	e.GET("/api/files/:id", handler.HandleGetFile, authRequired)
	e.GET("/api/files/:id/download", handler.HandleDownloadFile, authRequired)
	e.DELETE("/api/files/:id", handler.HandleDeleteFile, authRequired)

	// Share links: creation and revocation are owner operations,
	// dereference is anonymous.
	e.POST("/api/files/:id/share", handler.HandleCreateShareLink, authRequired)
	e.GET("/api/share/:linkId", handler.HandleResolveShareLink)
	e.GET("/api/share/:linkId/download", handler.HandleShareDownload)
	e.DELETE("/api/share/:linkId", handler.HandleRevokeShareLink, authRequired)

	return e
}
