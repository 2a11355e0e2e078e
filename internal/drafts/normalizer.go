package drafts

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/bilgisen/draftdesk/internal/logger"
	"github.com/bilgisen/draftdesk/internal/models"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// ErrNotObject is returned for raw items that are not JSON objects
var ErrNotObject = errors.New("draft item is not an object")

// Accepted source fields for each canonical field, in priority order
var (
	idKeys       = []string{"id", "guid"}
	titleKeys    = []string{"title", "name"}
	contentKeys  = []string{"content", "description", "summary"}
	statusKeys   = []string{"status"}
	createdKeys  = []string{"createdDate", "publishDate", "date"}
	authorKeys   = []string{"author"}
	categoryKeys = []string{"category"}
	readTimeKeys = []string{"readTime"}
	linkKeys     = []string{"link", "url"}
	imageKeys    = []string{"image", "thumbnail"}
	sourceKeys   = []string{"source"}
)

const (
	DefaultTitle   = "Untitled Blog Post"
	DefaultContent = "No content available"
)

// Defaults are the display values used when upstream omits a field
type Defaults struct {
	Author   string
	Category string
	ReadTime string
}

// DefaultValues returns the stock display defaults
func DefaultValues() Defaults {
	return Defaults{
		Author:   "Staff Writer",
		Category: "Technology",
		ReadTime: "5 min read",
	}
}

// Normalizer maps raw upstream items onto models.Draft
type Normalizer struct {
	defaults Defaults
	now      func() time.Time
	newID    func() string
	validate *validator.Validate
}

// Option configures a Normalizer
type Option func(*Normalizer)

// WithDefaults overrides the display defaults. Empty fields keep the stock value.
func WithDefaults(d Defaults) Option {
	return func(n *Normalizer) {
		if d.Author != "" {
			n.defaults.Author = d.Author
		}
		if d.Category != "" {
			n.defaults.Category = d.Category
		}
		if d.ReadTime != "" {
			n.defaults.ReadTime = d.ReadTime
		}
	}
}

// WithClock sets the clock used for missing creation dates
func WithClock(now func() time.Time) Option {
	return func(n *Normalizer) { n.now = now }
}

// WithIDGenerator sets the generator used for missing ids
func WithIDGenerator(gen func() string) Option {
	return func(n *Normalizer) { n.newID = gen }
}

func NewNormalizer(opts ...Option) *Normalizer {
	n := &Normalizer{
		defaults: DefaultValues(),
		now:      time.Now,
		newID:    uuid.NewString,
		validate: validator.New(),
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Normalize converts one raw item into a Draft. Every field of the
// result is populated.
func (n *Normalizer) Normalize(raw any) (draft models.Draft, err error) {
	item, ok := raw.(map[string]any)
	if !ok || item == nil {
		return models.Draft{}, fmt.Errorf("%w: got %T", ErrNotObject, raw)
	}

	defer func() {
		if r := recover(); r != nil {
			draft, err = models.Draft{}, fmt.Errorf("normalizing draft: %v", r)
		}
	}()

	tags := coerceTags(item["tags"])

	draft = models.Draft{
		ID:          firstString(item, idKeys),
		Title:       firstString(item, titleKeys),
		Content:     firstString(item, contentKeys),
		Status:      models.ParseStatus(firstString(item, statusKeys)),
		CreatedDate: firstString(item, createdKeys),
		Author:      firstString(item, authorKeys),
		Category:    firstString(item, categoryKeys),
		ReadTime:    firstString(item, readTimeKeys),
		Tags:        tags,
		Link:        firstString(item, linkKeys),
		Image:       firstString(item, imageKeys),
		Source:      firstString(item, sourceKeys),
	}

	if draft.ID == "" {
		draft.ID = n.newID()
	}
	if draft.Title == "" {
		draft.Title = DefaultTitle
	}
	if draft.Content == "" {
		draft.Content = DefaultContent
	}
	if draft.CreatedDate == "" {
		draft.CreatedDate = n.now().UTC().Format(time.RFC3339)
	}
	if draft.Author == "" {
		draft.Author = n.defaults.Author
	}
	if draft.Category == "" && len(tags) > 0 {
		draft.Category = tags[0]
	}
	if draft.Category == "" {
		draft.Category = n.defaults.Category
	}
	if draft.ReadTime == "" {
		draft.ReadTime = n.defaults.ReadTime
	}

	if err := n.validate.Struct(draft); err != nil {
		return models.Draft{}, fmt.Errorf("normalized draft %s is invalid: %w", draft.ID, err)
	}

	return draft, nil
}

// NormalizeBatch normalizes every item, dropping the ones that fail.
// Ids are made unique within the batch.
func (n *Normalizer) NormalizeBatch(items []any) []models.Draft {
	log := logger.Get()
	out := make([]models.Draft, 0, len(items))
	seen := make(map[string]bool, len(items))

	for i, raw := range items {
		draft, err := n.Normalize(raw)
		if err != nil {
			log.Warn().
				Err(err).
				Int("item_index", i).
				Msg("Dropping invalid draft item")
			continue
		}

		if seen[draft.ID] {
			original := draft.ID
			for suffix := 2; seen[draft.ID]; suffix++ {
				draft.ID = fmt.Sprintf("%s-%d", original, suffix)
			}
			log.Warn().
				Str("id", original).
				Str("assigned_id", draft.ID).
				Msg("Duplicate draft id in batch")
		}
		seen[draft.ID] = true
		out = append(out, draft)
	}

	return out
}

// firstString returns the first non-empty scalar among keys
func firstString(item map[string]any, keys []string) string {
	for _, key := range keys {
		if s, ok := scalarString(item[key]); ok && s != "" {
			return s
		}
	}
	return ""
}

func scalarString(v any) (string, bool) {
	switch x := v.(type) {
	case string:
		return strings.TrimSpace(x), true
	case json.Number:
		return x.String(), true
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64), true
	case int:
		return strconv.Itoa(x), true
	case int64:
		return strconv.FormatInt(x, 10), true
	default:
		return "", false
	}
}

// coerceTags always yields a non-nil slice
func coerceTags(v any) []string {
	switch x := v.(type) {
	case []any:
		tags := make([]string, 0, len(x))
		for _, el := range x {
			if s, ok := scalarString(el); ok && s != "" {
				tags = append(tags, s)
			}
		}
		return tags
	case []string:
		tags := make([]string, 0, len(x))
		for _, s := range x {
			if s = strings.TrimSpace(s); s != "" {
				tags = append(tags, s)
			}
		}
		return tags
	default:
		if s, ok := scalarString(v); ok && s != "" {
			return []string{s}
		}
		return []string{}
	}
}
