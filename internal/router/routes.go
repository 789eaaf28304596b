package router

import (
	"github.com/labstack/echo/v4"

	"github.com/octobees/lead-campaign/internal/auth"
	"github.com/octobees/lead-campaign/internal/config"
	"github.com/octobees/lead-campaign/internal/handler"
	middlewarepkg "github.com/octobees/lead-campaign/internal/middleware"
)

// Handlers aggregates HTTP handlers used by the router.
type Handlers struct {
	Auth  *handler.AuthHandler
	Leads *handler.LeadsHandler
}

// Register wires all HTTP routes for the dashboard API. Reads stay public
// for the local dashboard; mutations require a token and the export is
// restricted to admins.
func Register(e *echo.Echo, cfg *config.Config, tokens *auth.TokenManager, handlers Handlers) {
	e.GET("/health", handlers.Leads.Health)

	e.POST("/auth/login", handlers.Auth.Login)

	api := e.Group("/api")
	api.GET("/stats", handlers.Leads.Stats)
	api.GET("/timeline", handlers.Leads.Timeline)
	api.GET("/leads", handlers.Leads.List)
	api.GET("/leads/top", handlers.Leads.TopPerformers)
	api.GET("/leads/search", handlers.Leads.Search, middlewarepkg.PathRateLimiter("/api/leads/search", cfg.RateLimitSearch))
	api.GET("/leads/:id", handlers.Leads.Get)

	secured := api.Group("", middlewarepkg.JWT(tokens))
	secured.POST("/leads/:id/response", handlers.Leads.MarkResponse)
	secured.PATCH("/leads/:id/notes", handlers.Leads.UpdateNotes)

	admin := e.Group("/admin", middlewarepkg.JWT(tokens), middlewarepkg.RequireRole("admin"))
	admin.GET("/export", handlers.Leads.ExportCSV)
}
