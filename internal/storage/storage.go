package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/bilgisen/draftdesk/internal/models"
)

// Archiver keeps a copy of every draft approved from the dashboard
type Archiver interface {
	Archive(ctx context.Context, draft models.Draft) (string, error)
}

// Lister is implemented by archives that can be browsed
type Lister interface {
	List(ctx context.Context, page, pageSize int) ([]ArchivedDraft, error)
}

// ArchivedDraft is a draft as written to the archive
type ArchivedDraft struct {
	Draft      models.Draft `json:"draft"`
	ApprovedAt time.Time    `json:"approved_at"`
	Location   string       `json:"location,omitempty"`
}

var unsafeName = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// objectName turns a draft id into a file or object name
func objectName(id string, at time.Time) string {
	safe := strings.Trim(unsafeName.ReplaceAllString(id, "_"), "._")
	if safe == "" {
		safe = "draft"
	}
	return fmt.Sprintf("%d_%s.json", at.Unix(), safe)
}

// FileArchive stores approved drafts as JSON files under dated directories
type FileArchive struct {
	basePath string
	mu       sync.RWMutex
	now      func() time.Time
}

func NewFileArchive(basePath string) (*FileArchive, error) {
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create archive directory: %w", err)
	}

	return &FileArchive{
		basePath: basePath,
		now:      time.Now,
	}, nil
}

// Archive writes the draft to disk and returns the file path
func (s *FileArchive) Archive(ctx context.Context, draft models.Draft) (string, error) {
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	default:
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now().UTC()
	datePath := filepath.Join(s.basePath, now.Format("2006/01/02"))
	if err := os.MkdirAll(datePath, 0755); err != nil {
		return "", fmt.Errorf("failed to create date directory: %w", err)
	}

	data, err := json.MarshalIndent(ArchivedDraft{Draft: draft, ApprovedAt: now}, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal draft: %w", err)
	}

	filePath := filepath.Join(datePath, objectName(draft.ID, now))
	if err := os.WriteFile(filePath, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write archive file: %w", err)
	}

	return filePath, nil
}

// List returns a page of archived drafts, newest first
func (s *FileArchive) List(ctx context.Context, page, pageSize int) ([]ArchivedDraft, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var files []string
	err := filepath.WalkDir(s.basePath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.HasSuffix(d.Name(), ".json") {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("error walking the archive: %w", err)
	}

	// Dated directories plus the unix prefix sort lexically by time
	sort.Sort(sort.Reverse(sort.StringSlice(files)))

	start := (page - 1) * pageSize
	if start >= len(files) {
		return []ArchivedDraft{}, nil
	}
	end := start + pageSize
	if end > len(files) {
		end = len(files)
	}

	out := make([]ArchivedDraft, 0, end-start)
	for _, file := range files[start:end] {
		data, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("error reading file %s: %w", file, err)
		}

		var item ArchivedDraft
		if err := json.Unmarshal(data, &item); err != nil {
			return nil, fmt.Errorf("error unmarshaling archived draft %s: %w", file, err)
		}
		item.Location = file
		out = append(out, item)
	}

	return out, nil
}
