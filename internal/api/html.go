package api

import (
	"bytes"
	"embed"
	"html/template"

	"github.com/bilgisen/draftdesk/internal/dashboard"
	"github.com/bilgisen/draftdesk/internal/logger"
	"github.com/bilgisen/draftdesk/internal/middleware"
	"github.com/bilgisen/draftdesk/internal/models"
	"github.com/gofiber/fiber/v2"
)

//go:embed templates/dashboard.html
var templateFS embed.FS

var dashboardTemplate = template.Must(template.ParseFS(templateFS, "templates/dashboard.html"))

type draftRow struct {
	Draft      models.Draft
	Excerpt    string
	Date       string
	Tone       string
	CanApprove bool
	Awaiting   bool
	Selected   bool
}

type previewPane struct {
	Draft      models.Draft
	Body       template.HTML
	Date       string
	Tone       string
	CanApprove bool
}

type pageData struct {
	State     dashboard.State
	Stats     dashboard.Stats
	Rows      []draftRow
	Preview   *previewPane
	CSRFField string
	CSRFToken string
}

func newPageData(state dashboard.State, csrfToken string) pageData {
	data := pageData{
		CSRFField: middleware.CSRFField,
		CSRFToken: csrfToken,
		State:     state,
		Stats:     state.Stats(),
		Rows:      make([]draftRow, 0, len(state.Drafts)),
	}

	for _, d := range state.Drafts {
		data.Rows = append(data.Rows, draftRow{
			Draft:      d,
			Excerpt:    dashboard.Excerpt(d.Content),
			Date:       dashboard.FormatDate(d.CreatedDate),
			Tone:       dashboard.StatusTone(d.Status),
			CanApprove: dashboard.CanApprove(d),
			Awaiting:   state.AwaitingPublish[d.ID],
			Selected:   state.Selected != nil && state.Selected.ID == d.ID,
		})
	}

	if s := state.Selected; s != nil {
		data.Preview = &previewPane{
			Draft: *s,
			// Markup is stripped of active content before it is trusted
			Body:       template.HTML(dashboard.SanitizeHTML(s.Content)),
			Date:       dashboard.FormatDate(s.CreatedDate),
			Tone:       dashboard.StatusTone(s.Status),
			CanApprove: dashboard.CanApprove(*s),
		}
	}

	return data
}

// Dashboard handles GET /
func (h *Handlers) Dashboard(c *fiber.Ctx) error {
	var buf bytes.Buffer
	if err := dashboardTemplate.Execute(&buf, newPageData(h.controller.Snapshot(), middleware.CSRFToken(c))); err != nil {
		logger.Get().Error().Err(err).Msg("Error rendering dashboard")
		return fiber.NewError(fiber.StatusInternalServerError, "failed to render dashboard")
	}

	c.Type("html", "utf-8")
	return c.Send(buf.Bytes())
}

func backToDashboard(c *fiber.Ctx) error {
	return c.Redirect("/", fiber.StatusSeeOther)
}

// ReloadAction handles POST /actions/reload
func (h *Handlers) ReloadAction(c *fiber.Ctx) error {
	h.controller.Load(c.UserContext())
	return backToDashboard(c)
}

// GenerateAction handles POST /actions/generate. An optional topic form
// field overrides the configured topic.
func (h *Handlers) GenerateAction(c *fiber.Ctx) error {
	h.generate(c.UserContext(), c.FormValue("topic"))
	return backToDashboard(c)
}

// ApproveAction handles POST /actions/approve
func (h *Handlers) ApproveAction(c *fiber.Ctx) error {
	h.controller.Approve(c.UserContext(), c.FormValue("id"))
	return backToDashboard(c)
}

// SelectAction handles POST /actions/select
func (h *Handlers) SelectAction(c *fiber.Ctx) error {
	id := c.FormValue("id")
	if !h.controller.Select(id) {
		logger.Get().Debug().Str("id", id).Msg("Selected draft not in list")
	}
	return backToDashboard(c)
}

// DeselectAction handles POST /actions/deselect
func (h *Handlers) DeselectAction(c *fiber.Ctx) error {
	h.controller.Deselect()
	return backToDashboard(c)
}

// DismissAction handles POST /actions/dismiss
func (h *Handlers) DismissAction(c *fiber.Ctx) error {
	h.controller.DismissError()
	return backToDashboard(c)
}
