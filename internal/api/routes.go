package api

import (
	"github.com/bilgisen/draftdesk/internal/config"
	"github.com/bilgisen/draftdesk/internal/middleware"
	"github.com/gofiber/fiber/v2"
)

const idRule = "required,max=256"

// SetupRoutes configures all the routes for the application
func SetupRoutes(app *fiber.App, h *Handlers, cfg *config.Config) {
	dashAuth := middleware.DashboardAuth(cfg.DashboardUser, cfg.DashboardPassword)
	readers := middleware.ReadAccess(cfg.AdminAPIKey, cfg.DashboardUser, cfg.DashboardPassword)
	admin := middleware.AdminOnly(cfg.AdminAPIKey)
	csrf := middleware.CSRF(cfg.Env == "production")

	// Draft ids may contain "/" (feed guids), so the dashboard posts them
	// as a form field and the JSON API expects them path-escaped.
	validParam := middleware.ValidateParam("id", idRule)
	validField := middleware.ValidateFormValue("id", idRule)

	// HTML dashboard
	app.Get("/", dashAuth, csrf, h.Dashboard)

	actions := app.Group("/actions", dashAuth, middleware.SameOrigin(), csrf)
	{
		actions.Post("/reload", h.ReloadAction)
		actions.Post("/generate", h.GenerateAction)
		actions.Post("/approve", validField, h.ApproveAction)
		actions.Post("/select", validField, h.SelectAction)
		actions.Post("/deselect", h.DeselectAction)
		actions.Post("/dismiss", h.DismissAction)
	}

	// API group with versioning
	api := app.Group("/api/v1")

	api.Get("/health", h.HealthCheck)
	api.Get("/connection", readers, h.Connection)
	api.Get("/connection/endpoints", readers, h.ConnectionEndpoints)

	drafts := api.Group("/drafts")
	{
		drafts.Get("", readers, h.ListDrafts)
		drafts.Get("/:id", readers, validParam, h.GetDraft)
		drafts.Post("/reload", admin, h.ReloadDrafts)
		drafts.Post("/:id/approve", admin, validParam, h.ApproveDraft)
	}

	api.Post("/generate", admin, middleware.ValidateBody[GenerateRequest](), h.Generate)
	api.Get("/archive", readers, h.ListArchive)
	api.Delete("/approvals", admin, h.ClearApprovals)

	// 404 Handler
	app.Use(func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Endpoint not found",
		})
	})
}
