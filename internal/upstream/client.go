package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/bilgisen/draftdesk/internal/drafts"
	"github.com/bilgisen/draftdesk/internal/logger"
	"github.com/bilgisen/draftdesk/internal/models"
	"github.com/go-resty/resty/v2"
)

const (
	DefaultTimeout   = 30 * time.Second
	DefaultKeyHeader = "x-functions-key"
)

// Config describes how to reach the pipeline endpoints. Paths may be
// relative to BaseURL or absolute URLs.
type Config struct {
	BaseURL string
	Timeout time.Duration

	DraftsPath    string
	ApprovePath   string
	GeneratePath  string
	HealthPath    string // defaults to DraftsPath
	SchedulerPath string // probed only

	// DraftsAction is sent as the action query parameter on list calls
	DraftsAction string

	// KeyHeader carries the API key. Requests omit it when no key is set.
	KeyHeader   string
	APIKey      string
	DraftsKey   string
	ApproveKey  string
	GenerateKey string

	ApproveIDInQuery bool
	GenerateTopic    string
}

// FetchResult is the outcome of a drafts read. Fallback is set when
// the drafts are the built-in samples; Advisory then says why.
type FetchResult struct {
	Drafts   []models.Draft `json:"drafts"`
	Fallback bool           `json:"fallback"`
	Advisory string         `json:"advisory,omitempty"`
}

// Client talks to the draft pipeline. Its methods never return errors;
// failures are reported through their result values.
type Client struct {
	client     *resty.Client
	cfg        Config
	normalizer *drafts.Normalizer
}

func NewClient(cfg Config, normalizer *drafts.Normalizer) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.KeyHeader == "" {
		cfg.KeyHeader = DefaultKeyHeader
	}
	if cfg.HealthPath == "" {
		cfg.HealthPath = cfg.DraftsPath
	}
	if normalizer == nil {
		normalizer = drafts.NewNormalizer()
	}

	client := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetTimeout(cfg.Timeout).
		SetRetryCount(0).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json").
		SetLogger(restyLogger{})

	return &Client{
		client:     client,
		cfg:        cfg,
		normalizer: normalizer,
	}
}

// FetchDrafts lists the drafts waiting for review. Any failure yields
// the sample drafts.
func (c *Client) FetchDrafts(ctx context.Context) FetchResult {
	log := logger.Get()

	items, err := c.fetchItems(ctx)
	if err != nil {
		log.Warn().
			Err(err).
			Str("endpoint", c.cfg.DraftsPath).
			Msg("Error fetching drafts, using sample data")
		return FetchResult{
			Drafts:   drafts.SampleDrafts(),
			Fallback: true,
			Advisory: "Showing sample drafts: " + err.Error(),
		}
	}

	list := c.normalizer.NormalizeBatch(items)
	log.Debug().
		Int("received", len(items)).
		Int("normalized", len(list)).
		Msg("Fetched drafts")

	return FetchResult{Drafts: list}
}

func (c *Client) fetchItems(ctx context.Context) ([]any, error) {
	req := c.request(ctx, c.cfg.DraftsKey)
	if c.cfg.DraftsAction != "" {
		req.SetQueryParam("action", c.cfg.DraftsAction)
	}

	resp, err := req.Get(c.cfg.DraftsPath)
	if err != nil {
		return nil, &Failure{Kind: KindTransport, Endpoint: c.cfg.DraftsPath, Err: err}
	}
	if !resp.IsSuccess() {
		return nil, &Failure{
			Kind:       KindUpstream,
			Endpoint:   c.cfg.DraftsPath,
			StatusCode: resp.StatusCode(),
		}
	}

	items, err := drafts.DecodeBatch(resp.Body())
	if err != nil {
		return nil, &Failure{Kind: KindShape, Endpoint: c.cfg.DraftsPath, Err: err}
	}
	return items, nil
}

// Approve asks the pipeline to publish the draft with the given id
func (c *Client) Approve(ctx context.Context, id string) models.ActionResult {
	if strings.TrimSpace(id) == "" {
		return models.Failed("draft id is required")
	}

	req := c.request(ctx, c.cfg.ApproveKey).
		SetBody(map[string]any{
			"blogId": id,
			"id":     id,
			"action": "approve",
		})
	if c.cfg.ApproveIDInQuery {
		req.SetQueryParam("id", id)
	}

	return c.write(req, c.cfg.ApprovePath, "approve")
}

// GenerateSample triggers the pipeline's generator for one new draft
func (c *Client) GenerateSample(ctx context.Context) models.ActionResult {
	return c.GenerateTopic(ctx, c.cfg.GenerateTopic)
}

// GenerateTopic is GenerateSample with an explicit topic
func (c *Client) GenerateTopic(ctx context.Context, topic string) models.ActionResult {
	if topic == "" {
		topic = c.cfg.GenerateTopic
	}

	req := c.request(ctx, c.cfg.GenerateKey).
		SetBody(map[string]any{
			"topic":           topic,
			"generateContent": true,
			"trigger":         "manual",
			"source":          "dashboard",
		})

	return c.write(req, c.cfg.GeneratePath, "generate")
}

func (c *Client) write(req *resty.Request, path, action string) models.ActionResult {
	log := logger.Get()
	start := time.Now()

	resp, err := req.Post(path)
	if err != nil {
		f := &Failure{Kind: KindTransport, Endpoint: path, Err: err}
		log.Error().
			Err(err).
			Str("action", action).
			Str("endpoint", path).
			Dur("duration", time.Since(start)).
			Msg("Pipeline request failed")
		return models.Failed(f.Error())
	}

	if f := checkWriteResponse(resp, path); f != nil {
		log.Error().
			Str("action", action).
			Str("endpoint", path).
			Int("status", resp.StatusCode()).
			Str("error", f.Error()).
			Msg("Pipeline rejected request")
		return models.Failed(f.Error())
	}

	log.Info().
		Str("action", action).
		Int("status", resp.StatusCode()).
		Dur("duration", time.Since(start)).
		Msg("Pipeline request succeeded")
	return models.Succeeded()
}

// checkWriteResponse treats any 2xx as success unless the body
// explicitly reports "success": false.
func checkWriteResponse(resp *resty.Response, path string) *Failure {
	body := decodeObject(resp.Body())

	if !resp.IsSuccess() {
		return &Failure{
			Kind:       KindUpstream,
			Endpoint:   path,
			StatusCode: resp.StatusCode(),
			Message:    errorMessage(body),
		}
	}

	if ok, present := body["success"].(bool); present && !ok {
		msg := errorMessage(body)
		if msg == "" {
			msg = "upstream rejected the request"
		}
		return &Failure{
			Kind:       KindUpstream,
			Endpoint:   path,
			StatusCode: resp.StatusCode(),
			Message:    msg,
		}
	}

	return nil
}

func (c *Client) request(ctx context.Context, key string) *resty.Request {
	req := c.client.R().SetContext(ctx)
	if key == "" {
		key = c.cfg.APIKey
	}
	if key != "" {
		req.SetHeader(c.cfg.KeyHeader, key)
	}
	return req
}

func decodeObject(body []byte) map[string]any {
	var obj map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(body), &obj); err != nil {
		return nil
	}
	return obj
}

// errorMessage pulls a human readable message out of an error body
func errorMessage(body map[string]any) string {
	for _, key := range []string{"error", "message", "detail"} {
		switch v := body[key].(type) {
		case string:
			if s := strings.TrimSpace(v); s != "" {
				return s
			}
		case map[string]any:
			if s, ok := v["message"].(string); ok && strings.TrimSpace(s) != "" {
				return strings.TrimSpace(s)
			}
		}
	}
	return ""
}

// restyLogger routes resty's internal messages to zerolog
type restyLogger struct{}

func (restyLogger) Errorf(format string, v ...interface{}) {
	log := logger.With("resty")
	log.Error().Msgf(format, v...)
}

func (restyLogger) Warnf(format string, v ...interface{}) {
	log := logger.With("resty")
	log.Warn().Msgf(format, v...)
}

func (restyLogger) Debugf(format string, v ...interface{}) {
	log := logger.With("resty")
	log.Debug().Msgf(format, v...)
}
