package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"

	"github.com/bilgisen/draftdesk/internal/cache"
	"github.com/bilgisen/draftdesk/internal/config"
	"github.com/bilgisen/draftdesk/internal/dashboard"
	"github.com/bilgisen/draftdesk/internal/drafts"
	"github.com/bilgisen/draftdesk/internal/middleware"
	"github.com/bilgisen/draftdesk/internal/models"
	"github.com/bilgisen/draftdesk/internal/storage"
	"github.com/bilgisen/draftdesk/internal/upstream"
	"github.com/gofiber/fiber/v2"
)

type fakeSource struct {
	mu        sync.Mutex
	list      []models.Draft
	approve   models.ActionResult
	generate  models.ActionResult
	approvals []string
}

func (f *fakeSource) FetchDrafts(ctx context.Context) upstream.FetchResult {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]models.Draft, len(f.list))
	for i, d := range f.list {
		out[i] = d.Clone()
	}
	return upstream.FetchResult{Drafts: out}
}

func (f *fakeSource) Approve(ctx context.Context, id string) models.ActionResult {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.approvals = append(f.approvals, id)
	return f.approve
}

func (f *fakeSource) GenerateSample(ctx context.Context) models.ActionResult {
	return f.generate
}

func (f *fakeSource) CheckHealth(ctx context.Context) models.HealthStatus {
	return models.HealthConnected
}

type fakePipeline struct {
	mu     sync.Mutex
	topics []string
	result models.ActionResult
}

func (f *fakePipeline) GenerateTopic(ctx context.Context, topic string) models.ActionResult {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.topics = append(f.topics, topic)
	return f.result
}

func (f *fakePipeline) ProbeEndpoints(ctx context.Context) []models.EndpointCheck {
	return []models.EndpointCheck{
		{Service: "drafts", Status: "healthy", StatusCode: 200},
		{Service: "approve", Status: "unhealthy", StatusCode: 405},
	}
}

type testEnv struct {
	app        *fiber.App
	controller *dashboard.Controller
	source     *fakeSource
	pipeline   *fakePipeline
}

type envOption func(*config.Config, *dashboard.Options, *Handlers)

func newTestEnv(t *testing.T, opts ...envOption) *testEnv {
	t.Helper()

	src := &fakeSource{
		list:     drafts.SampleDrafts(),
		approve:  models.Succeeded(),
		generate: models.Succeeded(),
	}
	pipe := &fakePipeline{result: models.Succeeded()}
	cfg := &config.Config{DashboardUser: "admin"}

	var ctrlOpts dashboard.Options
	h := &Handlers{pipeline: pipe}
	for _, opt := range opts {
		opt(cfg, &ctrlOpts, h)
	}

	controller := dashboard.NewController(src, ctrlOpts)
	controller.Load(context.Background())
	h.controller = controller

	app := fiber.New(fiber.Config{ErrorHandler: middleware.ErrorHandler})
	SetupRoutes(app, h, cfg)

	return &testEnv{app: app, controller: controller, source: src, pipeline: pipe}
}

func (e *testEnv) do(t *testing.T, req *http.Request) (*http.Response, string) {
	t.Helper()

	resp, err := e.app.Test(req, -1)
	if err != nil {
		t.Fatalf("app.Test(%s %s) error: %v", req.Method, req.URL, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("reading body: %v", err)
	}
	return resp, string(body)
}

// csrfToken loads the dashboard and returns the token it issued
func (e *testEnv) csrfToken(t *testing.T) string {
	t.Helper()

	resp, body := e.do(t, httptest.NewRequest(http.MethodGet, "/", nil))
	for _, ck := range resp.Cookies() {
		if ck.Name == middleware.CSRFCookie {
			if !strings.Contains(body, `value="`+ck.Value+`"`) {
				t.Fatal("dashboard forms do not carry the CSRF token")
			}
			return ck.Value
		}
	}
	t.Fatal("dashboard did not set a CSRF cookie")
	return ""
}

func formRequest(path, token string, values url.Values) *http.Request {
	if values == nil {
		values = url.Values{}
	}
	if token != "" {
		values.Set(middleware.CSRFField, token)
	}

	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if token != "" {
		req.AddCookie(&http.Cookie{Name: middleware.CSRFCookie, Value: token})
	}
	return req
}

// submit posts a dashboard form the way a browser holding the page would
func (e *testEnv) submit(t *testing.T, path string, values url.Values) *http.Response {
	t.Helper()

	resp, _ := e.do(t, formRequest(path, e.csrfToken(t), values))
	return resp
}

func TestDashboardRendersDrafts(t *testing.T) {
	env := newTestEnv(t)

	resp, body := env.do(t, httptest.NewRequest(http.MethodGet, "/", nil))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("Content-Type = %q, want text/html", ct)
	}
	for _, d := range drafts.SampleDrafts() {
		if !strings.Contains(body, d.Title) {
			t.Errorf("dashboard is missing %q", d.Title)
		}
	}
	// mock-3 is published so only two approve forms are rendered
	if n := strings.Count(body, `action="/actions/approve"`); n != 2 {
		t.Errorf("approve forms = %d, want 2", n)
	}
}

func TestDashboardPreviewSanitizesContent(t *testing.T) {
	env := newTestEnv(t)
	env.source.list = []models.Draft{{
		ID:          "x1",
		Title:       "Risky",
		Content:     `<p onclick="steal()">hello</p><script>alert(1)</script>`,
		Status:      models.StatusDraft,
		CreatedDate: "2025-01-15T10:00:00Z",
		Tags:        []string{},
	}}
	env.controller.Load(context.Background())

	resp := env.submit(t, "/actions/select", url.Values{"id": {"x1"}})
	if resp.StatusCode != http.StatusSeeOther || resp.Header.Get("Location") != "/" {
		t.Fatalf("select: status %d location %q, want 303 to /", resp.StatusCode, resp.Header.Get("Location"))
	}

	_, body := env.do(t, httptest.NewRequest(http.MethodGet, "/", nil))
	if !strings.Contains(body, "<p>hello</p>") {
		t.Errorf("preview is missing sanitized markup")
	}
	if strings.Contains(body, "alert(1)") || strings.Contains(body, "steal()") {
		t.Errorf("preview kept active content")
	}
	if !strings.Contains(body, "Jan 15, 2025") {
		t.Errorf("preview date not formatted")
	}
}

func TestApproveActionRedirects(t *testing.T) {
	env := newTestEnv(t)

	resp := env.submit(t, "/actions/approve", url.Values{"id": {"mock-1"}})
	if resp.StatusCode != http.StatusSeeOther {
		t.Fatalf("status = %d, want 303", resp.StatusCode)
	}

	d, ok := env.controller.Draft("mock-1")
	if !ok || d.Status != models.StatusPublished {
		t.Errorf("mock-1 = %+v, want published", d)
	}
	if got := env.controller.Snapshot().Notice; got == "" {
		t.Error("expected a success notice")
	}
}

func TestActionsAcceptURLShapedIDs(t *testing.T) {
	const id = "https://example.com/posts/42"

	env := newTestEnv(t)
	env.source.list = []models.Draft{{
		ID:     id,
		Title:  "Feed item",
		Status: models.StatusDraft,
		Tags:   []string{},
	}}
	env.controller.Load(context.Background())

	_, body := env.do(t, httptest.NewRequest(http.MethodGet, "/", nil))
	if !strings.Contains(body, `name="id" value="https://example.com/posts/42"`) {
		t.Error("dashboard does not carry the id as a form field")
	}

	resp := env.submit(t, "/actions/select", url.Values{"id": {id}})
	if resp.StatusCode != http.StatusSeeOther {
		t.Fatalf("select: status %d, want 303", resp.StatusCode)
	}
	if s := env.controller.Snapshot().Selected; s == nil || s.ID != id {
		t.Errorf("Selected = %+v, want %s", s, id)
	}

	resp = env.submit(t, "/actions/approve", url.Values{"id": {id}})
	if resp.StatusCode != http.StatusSeeOther {
		t.Fatalf("approve: status %d, want 303", resp.StatusCode)
	}
	if len(env.source.approvals) != 1 || env.source.approvals[0] != id {
		t.Errorf("approvals = %v, want [%s]", env.source.approvals, id)
	}
	if d, ok := env.controller.Draft(id); !ok || d.Status != models.StatusPublished {
		t.Errorf("draft = %+v, want published", d)
	}

	resp, body = env.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/drafts/"+url.PathEscape(id), nil))
	if resp.StatusCode != http.StatusOK || !strings.Contains(body, `"title":"Feed item"`) {
		t.Errorf("GET escaped id: %d %s", resp.StatusCode, body)
	}

	env.source.approve = models.Failed("already published")
	resp, _ = env.do(t, httptest.NewRequest(http.MethodPost, "/api/v1/drafts/"+url.PathEscape(id)+"/approve", nil))
	if resp.StatusCode != http.StatusBadGateway {
		t.Errorf("approve escaped id: status %d, want 502", resp.StatusCode)
	}
	if len(env.source.approvals) != 2 || env.source.approvals[1] != id {
		t.Errorf("approvals = %v", env.source.approvals)
	}
}

func TestActionsRejectForgedSubmissions(t *testing.T) {
	env := newTestEnv(t)
	token := env.csrfToken(t)
	approve := url.Values{"id": {"mock-1"}}

	tests := []struct {
		name    string
		token   string
		headers map[string]string
	}{
		{"cross site", token, map[string]string{"Origin": "https://evil.example", "Sec-Fetch-Site": "cross-site"}},
		{"foreign origin", token, map[string]string{"Origin": "https://evil.example"}},
		{"fetch metadata only", token, map[string]string{"Sec-Fetch-Site": "cross-site"}},
		{"missing token", "", nil},
		{"unknown token", "forged-token", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := formRequest("/actions/approve", tt.token, approve)
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}

			resp, _ := env.do(t, req)
			if resp.StatusCode != http.StatusForbidden {
				t.Errorf("status = %d, want 403", resp.StatusCode)
			}
		})
	}

	if len(env.source.approvals) != 0 {
		t.Fatalf("forged submissions reached the source: %v", env.source.approvals)
	}
	if d, _ := env.controller.Draft("mock-1"); d.Status != models.StatusDraft {
		t.Errorf("mock-1 status = %s, want draft", d.Status)
	}

	req := formRequest("/actions/approve", token, approve)
	req.Header.Set("Origin", "http://example.com")
	req.Header.Set("Sec-Fetch-Site", "same-origin")
	resp, _ := env.do(t, req)
	if resp.StatusCode != http.StatusSeeOther {
		t.Errorf("same origin: status %d, want 303", resp.StatusCode)
	}
	if len(env.source.approvals) != 1 {
		t.Errorf("approvals = %v, want one", env.source.approvals)
	}
}

func TestActionsValidateFormID(t *testing.T) {
	env := newTestEnv(t)

	for _, values := range []url.Values{
		{},
		{"id": {strings.Repeat("a", 300)}},
	} {
		resp := env.submit(t, "/actions/approve", values)
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("approve %v: status %d, want 400", values, resp.StatusCode)
		}
	}
	if len(env.source.approvals) != 0 {
		t.Errorf("approvals = %v", env.source.approvals)
	}
}

func TestDismissAction(t *testing.T) {
	env := newTestEnv(t)
	env.source.approve = models.Failed("storage offline")
	env.submit(t, "/actions/approve", url.Values{"id": {"mock-1"}})

	_, body := env.do(t, httptest.NewRequest(http.MethodGet, "/", nil))
	if !strings.Contains(body, "storage offline") {
		t.Fatal("error banner not rendered")
	}

	env.submit(t, "/actions/dismiss", nil)
	if got := env.controller.Snapshot().Error; got != "" {
		t.Errorf("Error = %q after dismiss", got)
	}
}

func TestListDrafts(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		query string
		want  int
	}{
		{"", 3},
		{"?status=draft", 2},
		{"?status=PUBLISHED", 1},
		{"?status=rejected", 0},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			resp, body := env.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/drafts"+tt.query, nil))
			if resp.StatusCode != http.StatusOK {
				t.Fatalf("status = %d", resp.StatusCode)
			}

			var out struct {
				Drafts []models.Draft  `json:"drafts"`
				Stats  dashboard.Stats `json:"stats"`
			}
			if err := json.Unmarshal([]byte(body), &out); err != nil {
				t.Fatalf("decoding body: %v", err)
			}
			if len(out.Drafts) != tt.want {
				t.Errorf("got %d drafts, want %d", len(out.Drafts), tt.want)
			}
			if out.Stats.Total != 3 || out.Stats.Drafts != 2 || out.Stats.Published != 1 {
				t.Errorf("stats = %+v", out.Stats)
			}
		})
	}
}

func TestGetDraft(t *testing.T) {
	env := newTestEnv(t)

	resp, body := env.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/drafts/mock-2", nil))
	if resp.StatusCode != http.StatusOK || !strings.Contains(body, `"id":"mock-2"`) {
		t.Errorf("GET mock-2: %d %s", resp.StatusCode, body)
	}

	resp, _ = env.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/drafts/missing", nil))
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("GET missing: status %d, want 404", resp.StatusCode)
	}

	long := strings.Repeat("a", 300)
	resp, _ = env.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/drafts/"+long, nil))
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("GET long id: status %d, want 400", resp.StatusCode)
	}
}

func TestApproveDraftAPI(t *testing.T) {
	env := newTestEnv(t)

	resp, body := env.do(t, httptest.NewRequest(http.MethodPost, "/api/v1/drafts/mock-2/approve", nil))
	if resp.StatusCode != http.StatusOK || !strings.Contains(body, `"success":true`) {
		t.Errorf("approve: %d %s", resp.StatusCode, body)
	}

	env.source.approve = models.Failed("already published")
	resp, body = env.do(t, httptest.NewRequest(http.MethodPost, "/api/v1/drafts/mock-1/approve", nil))
	if resp.StatusCode != http.StatusBadGateway {
		t.Errorf("failed approve: status %d, want 502", resp.StatusCode)
	}
	if !strings.Contains(body, "already published") {
		t.Errorf("failed approve body = %s", body)
	}

	d, _ := env.controller.Draft("mock-1")
	if d.Status != models.StatusDraft {
		t.Errorf("mock-1 status = %s after failed approve", d.Status)
	}
}

func TestAdminKeyGuardsWrites(t *testing.T) {
	env := newTestEnv(t, func(cfg *config.Config, _ *dashboard.Options, _ *Handlers) {
		cfg.AdminAPIKey = "letmein"
	})

	resp, _ := env.do(t, httptest.NewRequest(http.MethodPost, "/api/v1/drafts/reload", nil))
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("without key: status %d, want 401", resp.StatusCode)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/drafts/reload", nil)
	req.Header.Set("X-API-Key", "wrong")
	resp, _ = env.do(t, req)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("wrong key: status %d, want 401", resp.StatusCode)
	}

	req = httptest.NewRequest(http.MethodPost, "/api/v1/drafts/reload", nil)
	req.Header.Set("X-API-Key", "letmein")
	resp, _ = env.do(t, req)
	if resp.StatusCode != http.StatusOK {
		t.Errorf("valid key: status %d, want 200", resp.StatusCode)
	}

	// reads stay open
	resp, _ = env.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/drafts", nil))
	if resp.StatusCode != http.StatusOK {
		t.Errorf("read: status %d, want 200", resp.StatusCode)
	}
}

func TestDashboardBasicAuth(t *testing.T) {
	env := newTestEnv(t, func(cfg *config.Config, _ *dashboard.Options, _ *Handlers) {
		cfg.DashboardPassword = "hunter2"
	})

	resp, _ := env.do(t, httptest.NewRequest(http.MethodGet, "/", nil))
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("without credentials: status %d, want 401", resp.StatusCode)
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.SetBasicAuth("admin", "hunter2")
	resp, _ = env.do(t, req)
	if resp.StatusCode != http.StatusOK {
		t.Errorf("with credentials: status %d, want 200", resp.StatusCode)
	}

	resp, _ = env.do(t, httptest.NewRequest(http.MethodPost, "/actions/reload", nil))
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("action without credentials: status %d, want 401", resp.StatusCode)
	}
}

func TestDashboardPasswordGuardsReads(t *testing.T) {
	env := newTestEnv(t, func(cfg *config.Config, _ *dashboard.Options, _ *Handlers) {
		cfg.DashboardPassword = "hunter2"
		cfg.AdminAPIKey = "letmein"
	})

	paths := []string{
		"/api/v1/drafts",
		"/api/v1/drafts/mock-1",
		"/api/v1/connection",
		"/api/v1/connection/endpoints",
	}

	for _, path := range paths {
		t.Run(path, func(t *testing.T) {
			resp, _ := env.do(t, httptest.NewRequest(http.MethodGet, path, nil))
			if resp.StatusCode != http.StatusUnauthorized {
				t.Errorf("anonymous: status %d, want 401", resp.StatusCode)
			}

			req := httptest.NewRequest(http.MethodGet, path, nil)
			req.SetBasicAuth("admin", "hunter2")
			if resp, _ = env.do(t, req); resp.StatusCode != http.StatusOK {
				t.Errorf("basic auth: status %d, want 200", resp.StatusCode)
			}

			req = httptest.NewRequest(http.MethodGet, path, nil)
			req.Header.Set("X-API-Key", "letmein")
			if resp, _ = env.do(t, req); resp.StatusCode != http.StatusOK {
				t.Errorf("admin key: status %d, want 200", resp.StatusCode)
			}

			req = httptest.NewRequest(http.MethodGet, path, nil)
			req.Header.Set("X-API-Key", "wrong")
			if resp, _ = env.do(t, req); resp.StatusCode != http.StatusUnauthorized {
				t.Errorf("wrong key: status %d, want 401", resp.StatusCode)
			}
		})
	}

	// the archive route is guarded before the missing backend answers
	resp, _ := env.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/archive", nil))
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("archive anonymous: status %d, want 401", resp.StatusCode)
	}

	resp, _ = env.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))
	if resp.StatusCode != http.StatusOK {
		t.Errorf("health: status %d, want 200", resp.StatusCode)
	}
}

func TestGenerate(t *testing.T) {
	env := newTestEnv(t)

	resp, _ := env.do(t, httptest.NewRequest(http.MethodPost, "/api/v1/generate", nil))
	if resp.StatusCode != http.StatusOK {
		t.Errorf("default topic: status %d, want 200", resp.StatusCode)
	}
	if len(env.pipeline.topics) != 0 {
		t.Errorf("default topic went through GenerateTopic: %v", env.pipeline.topics)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/generate", strings.NewReader(`{"topic":"Edge computing"}`))
	req.Header.Set("Content-Type", "application/json")
	resp, _ = env.do(t, req)
	if resp.StatusCode != http.StatusOK {
		t.Errorf("explicit topic: status %d, want 200", resp.StatusCode)
	}
	if len(env.pipeline.topics) != 1 || env.pipeline.topics[0] != "Edge computing" {
		t.Errorf("topics = %v", env.pipeline.topics)
	}

	req = httptest.NewRequest(http.MethodPost, "/api/v1/generate", strings.NewReader(`{"topic":"`+strings.Repeat("x", 201)+`"}`))
	req.Header.Set("Content-Type", "application/json")
	resp, _ = env.do(t, req)
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Errorf("long topic: status %d, want 422", resp.StatusCode)
	}

	env.source.generate = models.Failed("generator busy")
	resp, body := env.do(t, httptest.NewRequest(http.MethodPost, "/api/v1/generate", nil))
	if resp.StatusCode != http.StatusBadGateway || !strings.Contains(body, "generator busy") {
		t.Errorf("failed generate: %d %s", resp.StatusCode, body)
	}
}

func TestConnectionEndpoints(t *testing.T) {
	env := newTestEnv(t)

	_, body := env.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/connection", nil))
	if !strings.Contains(body, `"status":"connected"`) {
		t.Errorf("connection body = %s", body)
	}

	_, body = env.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/connection/endpoints", nil))
	var out struct {
		Endpoints []models.EndpointCheck `json:"endpoints"`
	}
	if err := json.Unmarshal([]byte(body), &out); err != nil {
		t.Fatalf("decoding body: %v", err)
	}
	if len(out.Endpoints) != 2 || out.Endpoints[1].Status != "unhealthy" {
		t.Errorf("endpoints = %+v", out.Endpoints)
	}
}

func TestArchiveAndJournal(t *testing.T) {
	archive, err := storage.NewFileArchive(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileArchive: %v", err)
	}
	journal := cache.NewMemoryJournal()

	env := newTestEnv(t, func(_ *config.Config, opts *dashboard.Options, h *Handlers) {
		opts.Archive = archive
		opts.Journal = journal
		h.archive = archive
		h.journal = journal
	})

	env.do(t, httptest.NewRequest(http.MethodPost, "/api/v1/drafts/mock-1/approve", nil))

	_, body := env.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/archive", nil))
	if !strings.Contains(body, `"count":1`) || !strings.Contains(body, `"id":"mock-1"`) {
		t.Errorf("archive body = %s", body)
	}

	if ok, _ := journal.IsApproved(context.Background(), "mock-1"); !ok {
		t.Fatal("approval not journaled")
	}

	resp, _ := env.do(t, httptest.NewRequest(http.MethodDelete, "/api/v1/approvals", nil))
	if resp.StatusCode != http.StatusOK {
		t.Errorf("clear approvals: status %d", resp.StatusCode)
	}
	if ok, _ := journal.IsApproved(context.Background(), "mock-1"); ok {
		t.Error("journal not cleared")
	}
}

func TestOptionalBackendsUnavailable(t *testing.T) {
	env := newTestEnv(t)

	for _, req := range []*http.Request{
		httptest.NewRequest(http.MethodGet, "/api/v1/archive", nil),
		httptest.NewRequest(http.MethodDelete, "/api/v1/approvals", nil),
		httptest.NewRequest(http.MethodGet, "/api/v1/nope", nil),
	} {
		resp, _ := env.do(t, req)
		if resp.StatusCode != http.StatusNotFound {
			t.Errorf("%s %s: status %d, want 404", req.Method, req.URL.Path, resp.StatusCode)
		}
	}
}
