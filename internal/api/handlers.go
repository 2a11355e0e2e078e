package api

import (
	"context"
	"strconv"
	"time"

	"github.com/bilgisen/draftdesk/internal/cache"
	"github.com/bilgisen/draftdesk/internal/dashboard"
	"github.com/bilgisen/draftdesk/internal/logger"
	"github.com/bilgisen/draftdesk/internal/middleware"
	"github.com/bilgisen/draftdesk/internal/models"
	"github.com/bilgisen/draftdesk/internal/storage"
	"github.com/gofiber/fiber/v2"
)

// Pipeline is the part of the upstream client the handlers call
// directly. *upstream.Client implements it.
type Pipeline interface {
	GenerateTopic(ctx context.Context, topic string) models.ActionResult
	ProbeEndpoints(ctx context.Context) []models.EndpointCheck
}

// GenerateRequest is the optional body of POST /api/v1/generate
type GenerateRequest struct {
	Topic string `json:"topic" form:"topic" validate:"omitempty,max=200"`
}

type Handlers struct {
	controller *dashboard.Controller
	pipeline   Pipeline
	journal    cache.Journal
	archive    storage.Lister
}

// NewHandlers wires the handlers. journal and archive may be nil, which
// disables the endpoints that need them.
func NewHandlers(controller *dashboard.Controller, pipeline Pipeline, journal cache.Journal, archive storage.Lister) *Handlers {
	return &Handlers{
		controller: controller,
		pipeline:   pipeline,
		journal:    journal,
		archive:    archive,
	}
}

// HealthCheck handles GET /api/v1/health
func (h *Handlers) HealthCheck(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status": "ok",
		"time":   time.Now().Format(time.RFC3339),
	})
}

// Connection handles GET /api/v1/connection
func (h *Handlers) Connection(c *fiber.Ctx) error {
	status := h.controller.CheckConnection(c.UserContext())
	return c.JSON(fiber.Map{
		"status": status,
	})
}

// ConnectionEndpoints handles GET /api/v1/connection/endpoints
func (h *Handlers) ConnectionEndpoints(c *fiber.Ctx) error {
	checks := h.pipeline.ProbeEndpoints(c.UserContext())
	return c.JSON(fiber.Map{
		"endpoints": checks,
	})
}

// ListDrafts handles GET /api/v1/drafts
func (h *Handlers) ListDrafts(c *fiber.Ctx) error {
	state := h.controller.Snapshot()

	list := state.Drafts
	if q := c.Query("status"); q != "" {
		list = dashboard.FilterByStatus(list, models.ParseStatus(q))
	}

	return c.JSON(fiber.Map{
		"drafts":          list,
		"stats":           state.Stats(),
		"advisory":        state.Advisory,
		"error":           state.Error,
		"connection":      state.Connection,
		"awaitingPublish": state.AwaitingPublish,
		"loadedAt":        state.LoadedAt,
	})
}

// GetDraft handles GET /api/v1/drafts/:id
func (h *Handlers) GetDraft(c *fiber.Ctx) error {
	d, ok := h.controller.Draft(middleware.PathParam(c, "id"))
	if !ok {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Draft not found",
		})
	}

	return c.JSON(d)
}

// ReloadDrafts handles POST /api/v1/drafts/reload
func (h *Handlers) ReloadDrafts(c *fiber.Ctx) error {
	h.controller.Load(c.UserContext())
	return h.ListDrafts(c)
}

// ApproveDraft handles POST /api/v1/drafts/:id/approve
func (h *Handlers) ApproveDraft(c *fiber.Ctx) error {
	res := h.controller.Approve(c.UserContext(), middleware.PathParam(c, "id"))
	if !res.Success {
		return c.Status(fiber.StatusBadGateway).JSON(res)
	}
	return c.JSON(res)
}

// Generate handles POST /api/v1/generate
func (h *Handlers) Generate(c *fiber.Ctx) error {
	req := middleware.Validated[GenerateRequest](c)

	res := h.generate(c.UserContext(), req.Topic)
	if !res.Success {
		return c.Status(fiber.StatusBadGateway).JSON(res)
	}
	return c.JSON(res)
}

func (h *Handlers) generate(ctx context.Context, topic string) models.ActionResult {
	if topic == "" {
		return h.controller.GenerateSample(ctx)
	}
	return h.controller.GenerateWith(ctx, func(ctx context.Context) models.ActionResult {
		return h.pipeline.GenerateTopic(ctx, topic)
	})
}

// ListArchive handles GET /api/v1/archive
func (h *Handlers) ListArchive(c *fiber.Ctx) error {
	if h.archive == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Archive listing unavailable",
		})
	}

	// Parse pagination parameters
	page, _ := strconv.Atoi(c.Query("page", "1"))
	if page < 1 {
		page = 1
	}

	pageSize, _ := strconv.Atoi(c.Query("page_size", "20"))
	switch {
	case pageSize > 100:
		pageSize = 100
	case pageSize <= 0:
		pageSize = 20
	}

	items, err := h.archive.List(c.UserContext(), page, pageSize)
	if err != nil {
		logger.Get().Error().Err(err).Msg("Error listing archive")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to list archive",
		})
	}

	return c.JSON(fiber.Map{
		"page":      page,
		"page_size": pageSize,
		"count":     len(items),
		"items":     items,
	})
}

// ClearApprovals handles DELETE /api/v1/approvals
func (h *Handlers) ClearApprovals(c *fiber.Ctx) error {
	if h.journal == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Approval journal unavailable",
		})
	}

	if err := h.journal.ClearApproved(c.UserContext()); err != nil {
		logger.Get().Error().Err(err).Msg("Error clearing approval journal")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to clear approvals",
		})
	}

	return c.JSON(fiber.Map{
		"status":  "cleared",
		"message": "Approval journal cleared",
	})
}
