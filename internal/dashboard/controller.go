package dashboard

import (
	"context"
	"sync"
	"time"

	"github.com/bilgisen/draftdesk/internal/cache"
	"github.com/bilgisen/draftdesk/internal/logger"
	"github.com/bilgisen/draftdesk/internal/models"
	"github.com/bilgisen/draftdesk/internal/storage"
	"github.com/bilgisen/draftdesk/internal/upstream"
)

// Source is the pipeline as seen by the controller. *upstream.Client
// implements it.
type Source interface {
	FetchDrafts(ctx context.Context) upstream.FetchResult
	Approve(ctx context.Context, id string) models.ActionResult
	GenerateSample(ctx context.Context) models.ActionResult
	CheckHealth(ctx context.Context) models.HealthStatus
}

// State is the dashboard's in-memory UI state
type State struct {
	Drafts     []models.Draft      `json:"drafts"`
	Loading    bool                `json:"loading"`
	Generating bool                `json:"generating"`
	Approving  bool                `json:"approving"`
	Error      string              `json:"error,omitempty"`
	Advisory   string              `json:"advisory,omitempty"`
	Notice     string              `json:"notice,omitempty"`
	Selected   *models.Draft       `json:"selected,omitempty"`
	Connection models.HealthStatus `json:"connection"`

	// AwaitingPublish holds ids approved from this dashboard that the
	// pipeline still lists as drafts.
	AwaitingPublish map[string]bool `json:"awaitingPublish,omitempty"`
	LoadedAt        time.Time       `json:"loadedAt,omitempty"`
}

// Options configures a Controller. Journal and Archive are optional.
type Options struct {
	Journal     cache.Journal
	JournalTTL  time.Duration
	Archive     storage.Archiver
	ReloadDelay time.Duration
}

// Controller owns the dashboard state and drives the pipeline calls.
// The mutex guards state only and is never held across a call; the
// busy flags are advisory and do not serialize operations.
type Controller struct {
	source Source
	opts   Options

	mu    sync.Mutex
	state State
}

func NewController(source Source, opts Options) *Controller {
	return &Controller{
		source: source,
		opts:   opts,
		state: State{
			Drafts:     []models.Draft{},
			Connection: models.HealthChecking,
		},
	}
}

// Load replaces the draft list with a fresh fetch
func (c *Controller) Load(ctx context.Context) {
	c.mu.Lock()
	c.state.Loading = true
	c.state.Error = ""
	c.mu.Unlock()

	res := c.source.FetchDrafts(ctx)
	awaiting := c.awaitingPublish(ctx, res.Drafts)

	c.mu.Lock()
	defer c.mu.Unlock()

	c.state.Drafts = res.Drafts
	if c.state.Drafts == nil {
		c.state.Drafts = []models.Draft{}
	}
	c.state.Advisory = res.Advisory
	c.state.AwaitingPublish = awaiting
	c.state.LoadedAt = time.Now()
	c.state.Loading = false

	if c.state.Selected != nil {
		c.state.Selected = c.findLocked(c.state.Selected.ID)
	}

	logger.Get().Info().
		Int("drafts", len(res.Drafts)).
		Bool("fallback", res.Fallback).
		Msg("Loaded drafts")
}

// Approve approves one draft. The local status changes only after the
// pipeline confirmed the approval.
func (c *Controller) Approve(ctx context.Context, id string) models.ActionResult {
	log := logger.Get()

	c.mu.Lock()
	c.state.Approving = true
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.state.Approving = false
		c.mu.Unlock()
	}()

	res := c.source.Approve(ctx, id)
	if !res.Success {
		msg := res.Error
		if msg == "" {
			msg = "approval failed"
		}
		log.Warn().Str("id", id).Str("error", msg).Msg("Draft approval failed")

		c.mu.Lock()
		c.state.Error = msg
		c.mu.Unlock()
		return models.Failed(msg)
	}

	c.mu.Lock()
	var approved *models.Draft
	for i := range c.state.Drafts {
		if c.state.Drafts[i].ID == id {
			c.state.Drafts[i].Status = models.StatusPublished
			d := c.state.Drafts[i].Clone()
			approved = &d
		}
	}
	if c.state.Selected != nil && c.state.Selected.ID == id {
		c.state.Selected = nil
	}
	c.state.Notice = "Draft approved successfully"
	c.mu.Unlock()

	log.Info().Str("id", id).Bool("in_list", approved != nil).Msg("Draft approved")

	if c.opts.Journal != nil {
		if err := c.opts.Journal.MarkApproved(ctx, id, c.opts.JournalTTL); err != nil {
			log.Error().Err(err).Str("id", id).Msg("Error recording approval")
		}
	}
	if c.opts.Archive != nil && approved != nil {
		location, err := c.opts.Archive.Archive(ctx, *approved)
		if err != nil {
			log.Error().Err(err).Str("id", id).Msg("Error archiving approved draft")
		} else {
			log.Debug().Str("id", id).Str("location", location).Msg("Archived approved draft")
		}
	}

	return res
}

// GenerateSample asks the pipeline for a new draft and reloads the
// list once it reports success.
func (c *Controller) GenerateSample(ctx context.Context) models.ActionResult {
	return c.generate(ctx, c.source.GenerateSample)
}

// GenerateWith is GenerateSample with a caller supplied trigger, used
// when the request names its own topic.
func (c *Controller) GenerateWith(ctx context.Context, trigger func(context.Context) models.ActionResult) models.ActionResult {
	return c.generate(ctx, trigger)
}

func (c *Controller) generate(ctx context.Context, trigger func(context.Context) models.ActionResult) models.ActionResult {
	c.mu.Lock()
	c.state.Generating = true
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.state.Generating = false
		c.mu.Unlock()
	}()

	res := trigger(ctx)
	if !res.Success {
		msg := res.Error
		if msg == "" {
			msg = "generation failed"
		}
		logger.Get().Warn().Str("error", msg).Msg("Sample generation failed")

		c.mu.Lock()
		c.state.Error = msg
		c.mu.Unlock()
		return models.Failed(msg)
	}

	c.mu.Lock()
	c.state.Notice = "Sample draft generated"
	c.mu.Unlock()

	// Give the pipeline time to store the new draft
	if c.opts.ReloadDelay > 0 {
		timer := time.NewTimer(c.opts.ReloadDelay)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
		}
	}

	c.Load(ctx)
	return res
}

// CheckConnection refreshes the connectivity indicator
func (c *Controller) CheckConnection(ctx context.Context) models.HealthStatus {
	c.mu.Lock()
	c.state.Connection = models.HealthChecking
	c.mu.Unlock()

	status := c.source.CheckHealth(ctx)

	c.mu.Lock()
	c.state.Connection = status
	c.mu.Unlock()
	return status
}

// Select opens the preview for the draft with the given id
func (c *Controller) Select(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	d := c.findLocked(id)
	if d == nil {
		return false
	}
	c.state.Selected = d
	return true
}

// Deselect closes the preview
func (c *Controller) Deselect() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.Selected = nil
}

// DismissError clears the error and notice banners
func (c *Controller) DismissError() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.Error = ""
	c.state.Notice = ""
}

// Draft returns a copy of the draft with the given id
func (c *Controller) Draft(id string) (models.Draft, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	d := c.findLocked(id)
	if d == nil {
		return models.Draft{}, false
	}
	return *d, true
}

// Snapshot returns a deep copy of the current state
func (c *Controller) Snapshot() State {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := c.state
	s.Drafts = make([]models.Draft, len(c.state.Drafts))
	for i, d := range c.state.Drafts {
		s.Drafts[i] = d.Clone()
	}
	if c.state.Selected != nil {
		d := c.state.Selected.Clone()
		s.Selected = &d
	}
	if c.state.AwaitingPublish != nil {
		s.AwaitingPublish = make(map[string]bool, len(c.state.AwaitingPublish))
		for k, v := range c.state.AwaitingPublish {
			s.AwaitingPublish[k] = v
		}
	}
	return s
}

// findLocked returns a copy of the matching draft. Callers hold c.mu.
func (c *Controller) findLocked(id string) *models.Draft {
	for _, d := range c.state.Drafts {
		if d.ID == id {
			cp := d.Clone()
			return &cp
		}
	}
	return nil
}

func (c *Controller) awaitingPublish(ctx context.Context, list []models.Draft) map[string]bool {
	if c.opts.Journal == nil {
		return nil
	}

	awaiting := make(map[string]bool)
	for _, d := range list {
		if d.Status != models.StatusDraft {
			continue
		}
		ok, err := c.opts.Journal.IsApproved(ctx, d.ID)
		if err != nil {
			logger.Get().Warn().Err(err).Str("id", d.ID).Msg("Error reading approval journal")
			return awaiting
		}
		if ok {
			awaiting[d.ID] = true
		}
	}
	return awaiting
}
