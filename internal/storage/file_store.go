package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"sidehug/internal/model"
)

// DefaultCategoryDirs maps category names to directory names where they
// differ, matching the layout the dashboard reads.
var DefaultCategoryDirs = map[string]string{
	"stock_updates": "stocks",
	"crypto_news":   "crypto",
}

// FileStore writes the latest documents as indented JSON files:
// <root>/<category dir>/latest.json and <root>/trends/<topic>_trends.json.
type FileStore struct {
	root string
	dirs map[string]string
}

// NewFileStore creates a store rooted at dir. dirs overrides category
// directory names; nil uses DefaultCategoryDirs.
func NewFileStore(dir string, dirs map[string]string) *FileStore {
	if dirs == nil {
		dirs = DefaultCategoryDirs
	}
	return &FileStore{root: dir, dirs: dirs}
}

// CategoryPath returns the file a category bucket is written to.
func (s *FileStore) CategoryPath(category string) string {
	dir := category
	if d, ok := s.dirs[category]; ok && strings.TrimSpace(d) != "" {
		dir = d
	}
	return filepath.Join(s.root, safeName(dir), "latest.json")
}

// TrendPath returns the file a topic report is written to.
func (s *FileStore) TrendPath(topic string) string {
	return filepath.Join(s.root, "trends", safeName(topic)+"_trends.json")
}

// SaveCategoryPosts writes the bucket as a JSON array.
func (s *FileStore) SaveCategoryPosts(_ context.Context, category string, posts []model.PostRecord) error {
	if posts == nil {
		posts = []model.PostRecord{}
	}
	return writeJSON(s.CategoryPath(category), posts)
}

// SaveTrendReport writes the report.
func (s *FileStore) SaveTrendReport(_ context.Context, report model.TrendReport) error {
	return writeJSON(s.TrendPath(report.Topic), report)
}

// TrendReport reads a previously written report.
func (s *FileStore) TrendReport(_ context.Context, topic string) (*model.TrendReport, error) {
	b, err := os.ReadFile(s.TrendPath(topic))
	if os.IsNotExist(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	var r model.TrendReport
	if err := json.Unmarshal(b, &r); err != nil {
		return nil, fmt.Errorf("decode %s: %w", s.TrendPath(topic), err)
	}
	return &r, nil
}

// writeJSON replaces path atomically so readers never observe a partial file.
func writeJSON(path string, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create dir: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*.json")
	if err != nil {
		return fmt.Errorf("create temp: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(append(b, '\n')); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

func safeName(s string) string {
	s = strings.TrimSpace(s)
	s = strings.NewReplacer("/", "_", "\\", "_", "..", "_").Replace(s)
	if s == "" {
		return "_"
	}
	return s
}
