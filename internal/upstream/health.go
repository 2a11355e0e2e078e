package upstream

import (
	"context"

	"github.com/bilgisen/draftdesk/internal/logger"
	"github.com/bilgisen/draftdesk/internal/models"
)

// CheckHealth classifies connectivity with one lightweight read. The
// result is advisory and never gates the other calls.
func (c *Client) CheckHealth(ctx context.Context) models.HealthStatus {
	resp, err := c.request(ctx, c.cfg.DraftsKey).
		SetQueryParam("healthCheck", "true").
		Get(c.cfg.HealthPath)
	if err != nil {
		logger.Get().Warn().Err(err).Str("endpoint", c.cfg.HealthPath).Msg("Health check failed")
		return models.HealthError
	}
	if !resp.IsSuccess() {
		logger.Get().Warn().Int("status", resp.StatusCode()).Str("endpoint", c.cfg.HealthPath).Msg("Health check returned non-success status")
		return models.HealthError
	}
	return models.HealthConnected
}

// ProbeEndpoints checks every configured endpoint in turn
func (c *Client) ProbeEndpoints(ctx context.Context) []models.EndpointCheck {
	targets := []struct {
		service, path, key string
	}{
		{"drafts", c.cfg.DraftsPath, c.cfg.DraftsKey},
		{"approve", c.cfg.ApprovePath, c.cfg.ApproveKey},
		{"generate", c.cfg.GeneratePath, c.cfg.GenerateKey},
		{"scheduler", c.cfg.SchedulerPath, ""},
	}

	checks := make([]models.EndpointCheck, 0, len(targets))
	for _, t := range targets {
		if t.path == "" {
			continue
		}

		resp, err := c.request(ctx, t.key).
			SetQueryParam("healthCheck", "true").
			Get(t.path)
		if err != nil {
			checks = append(checks, models.EndpointCheck{
				Service: t.service,
				Status:  "error",
				Error:   err.Error(),
			})
			continue
		}

		status := "healthy"
		if !resp.IsSuccess() {
			status = "unhealthy"
		}
		checks = append(checks, models.EndpointCheck{
			Service:    t.service,
			Status:     status,
			StatusCode: resp.StatusCode(),
		})
	}

	return checks
}
