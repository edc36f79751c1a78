package server

import (
	"os"

	"github.com/fulmenhq/gofulmen/signals"
	"go.uber.org/zap"

	"github.com/foliolens/foliolens/internal/observability"
	"github.com/foliolens/foliolens/internal/server/handlers"
)

// registerRoutes registers all HTTP routes
func (s *Server) registerRoutes() {
	if s.opts.Health != nil {
		s.router.Get("/health", s.opts.Health.HealthHandler)
		s.router.Get("/health/live", s.opts.Health.LivenessHandler)
		s.router.Get("/health/ready", s.opts.Health.ReadinessHandler)
	}

	s.router.Get("/version", handlers.VersionHandler)

	if s.opts.Reports != nil {
		s.router.Get("/api/v1/reports", s.opts.Reports.ListReports)
		s.router.Get("/api/v1/preferences/latest", s.opts.Reports.LatestPreferences)
	}

	if s.opts.Metrics {
		s.router.Get("/metrics", MetricsHandler)
	}

	s.registerAdminEndpoint()
}

// registerAdminEndpoint optionally registers the admin signal endpoint
func (s *Server) registerAdminEndpoint() {
	adminToken := os.Getenv("FOLIOLENS_ADMIN_TOKEN")
	logger := observability.ServerLogger

	if adminToken == "" {
		if logger != nil {
			logger.Debug("Admin signal endpoint disabled (no FOLIOLENS_ADMIN_TOKEN set)")
		}
		return
	}

	handler := signals.NewHTTPHandler(signals.HTTPConfig{
		TokenAuth: adminToken,
		RateLimit: 10,
		RateBurst: 5,
		Manager:   nil, // use default global manager
	})

	s.router.Post("/admin/signal", handler.ServeHTTP)

	if logger != nil {
		logger.Info("Admin signal endpoint enabled",
			zap.String("path", "/admin/signal"),
			zap.String("auth", "bearer token"))
		logger.Warn("Admin endpoint enabled - ensure this server is not exposed to public internet")
	}
}
