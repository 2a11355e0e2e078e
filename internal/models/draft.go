package models

import "strings"

// Status is the review state of a draft
type Status string

const (
	StatusDraft     Status = "draft"
	StatusPublished Status = "published"
	StatusRejected  Status = "rejected"
	StatusUnknown   Status = "unknown"
)

// ParseStatus maps an upstream status value onto the known states.
// An empty value is a draft; anything unrecognized is unknown.
func ParseStatus(s string) Status {
	switch v := Status(strings.ToLower(strings.TrimSpace(s))); v {
	case "":
		return StatusDraft
	case StatusDraft, StatusPublished, StatusRejected, StatusUnknown:
		return v
	default:
		return StatusUnknown
	}
}

// Draft is the canonical blog draft record shown by the dashboard
type Draft struct {
	ID          string   `json:"id" validate:"required"`
	Title       string   `json:"title" validate:"required"`
	Content     string   `json:"content" validate:"required"`
	Status      Status   `json:"status" validate:"oneof=draft published rejected unknown"`
	CreatedDate string   `json:"createdDate" validate:"required"`
	Author      string   `json:"author" validate:"required"`
	Category    string   `json:"category" validate:"required"`
	ReadTime    string   `json:"readTime" validate:"required"`
	Tags        []string `json:"tags" validate:"required"`
	Link        string   `json:"link"`
	Image       string   `json:"image"`
	Source      string   `json:"source"`
}

// Clone returns a copy that shares no memory with d
func (d Draft) Clone() Draft {
	c := d
	c.Tags = append(make([]string, 0, len(d.Tags)), d.Tags...)
	return c
}

// ActionResult is the outcome of a write call against the pipeline
type ActionResult struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// Succeeded is the successful ActionResult
func Succeeded() ActionResult {
	return ActionResult{Success: true}
}

// Failed builds a failed ActionResult carrying msg
func Failed(msg string) ActionResult {
	return ActionResult{Error: msg}
}
