package dashboard

import (
	"html"
	"strings"
	"time"

	"github.com/bilgisen/draftdesk/internal/models"
	"github.com/mattn/go-runewidth"
	"github.com/microcosm-cc/bluemonday"
)

// ExcerptWidth is the display width of list excerpts
const ExcerptWidth = 200

// Stats are the counters shown above the draft list
type Stats struct {
	Total     int `json:"total"`
	Drafts    int `json:"drafts"`
	Published int `json:"published"`
	Rejected  int `json:"rejected"`
}

// Stats derives the counters from the current list
func (s State) Stats() Stats {
	st := Stats{Total: len(s.Drafts)}
	for _, d := range s.Drafts {
		switch d.Status {
		case models.StatusDraft:
			st.Drafts++
		case models.StatusPublished:
			st.Published++
		case models.StatusRejected:
			st.Rejected++
		}
	}
	return st
}

// FilterByStatus returns the drafts in the given state. An empty
// status returns every draft.
func FilterByStatus(list []models.Draft, status models.Status) []models.Draft {
	out := make([]models.Draft, 0, len(list))
	for _, d := range list {
		if status == "" || d.Status == status {
			out = append(out, d)
		}
	}
	return out
}

var (
	// previewPolicy keeps formatting markup and drops everything active
	previewPolicy = bluemonday.UGCPolicy()
	// textPolicy strips every tag, leaving a space where a tag was
	textPolicy = bluemonday.StrictPolicy().AddSpaceWhenStrippingTag(true)
)

// CleanHTML removes HTML tags, script and style blocks, and
// normalizes whitespace
func CleanHTML(input string) string {
	cleaned := html.UnescapeString(textPolicy.Sanitize(input))
	return strings.Join(strings.Fields(cleaned), " ")
}

// Excerpt is the plain-text preview used in the draft list
func Excerpt(content string) string {
	return runewidth.Truncate(CleanHTML(content), ExcerptWidth, "...")
}

// SanitizeHTML strips active content from draft markup before it is
// rendered in the preview.
func SanitizeHTML(content string) string {
	return previewPolicy.Sanitize(strings.ReplaceAll(content, "\r\n", "\n"))
}

var dateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
	time.RFC1123Z,
	time.RFC1123,
}

// FormatDate renders a draft date as "Jan 2, 2006"
func FormatDate(value string) string {
	value = strings.TrimSpace(value)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t.Format("Jan 2, 2006")
		}
	}
	return "Unknown date"
}

// StatusTone maps a status onto the badge tone used by the templates
func StatusTone(status models.Status) string {
	switch status {
	case models.StatusPublished:
		return "success"
	case models.StatusDraft:
		return "warning"
	case models.StatusRejected:
		return "danger"
	default:
		return "neutral"
	}
}

// CanApprove reports whether the approve action applies to d
func CanApprove(d models.Draft) bool {
	return d.Status == models.StatusDraft
}
