package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"feedarchiver/pkg/feed"
)

// Item list files saved in the archive root.
const (
	ArticleListFile = "_article_list.json"
	QAListFile      = "_qa_list.json"
)

// maxTitleRunes caps sanitized titles so directory names stay inside
// filesystem limits even for CJK titles.
const maxTitleRunes = 80

var illegalFilenameChars = regexp.MustCompile(`[\\/:*?"<>|\x00-\x1f]`)

// Manager lays out archived items on disk. Each item gets its own
// numbered directory under the base directory, alongside the item list
// and the progress ledger.
type Manager struct {
	baseDir string
}

// NewManager creates a storage manager rooted at baseDir, creating the
// directory if it does not exist.
func NewManager(baseDir string) (*Manager, error) {
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	return &Manager{baseDir: baseDir}, nil
}

// BaseDir returns the archive root directory.
func (m *Manager) BaseDir() string {
	return m.baseDir
}

// SanitizeTitle makes a title safe for use as a directory name:
// filesystem-reserved characters become underscores, runs of
// whitespace collapse to single underscores, and the result is capped
// at maxTitleRunes runes.
func SanitizeTitle(title string) string {
	s := illegalFilenameChars.ReplaceAllString(title, "_")
	s = strings.Join(strings.Fields(s), "_")
	if runes := []rune(s); len(runes) > maxTitleRunes {
		s = string(runes[:maxTitleRunes])
	}
	if s == "" {
		s = "untitled"
	}
	return s
}

// ItemDir creates and returns the directory for one item, named by its
// 1-based position in the item list so directories sort in feed order.
func (m *Manager) ItemDir(index int, title string) (string, error) {
	dir := filepath.Join(m.baseDir, fmt.Sprintf("%03d_%s", index, SanitizeTitle(title)))
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create item directory: %w", err)
	}
	return dir, nil
}

// SaveItemList writes the fetched item list next to the archived items
// so later runs and the unlock pass can reuse it without re-paginating.
func (m *Manager) SaveItemList(filename string, items []feed.FeedItem) error {
	data, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode item list: %w", err)
	}

	path := filepath.Join(m.baseDir, filename)
	tempPath := path + ".tmp"
	if err := os.WriteFile(tempPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write item list: %w", err)
	}
	if err := os.Rename(tempPath, path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to replace item list: %w", err)
	}
	return nil
}

// LoadItemList reads a previously saved item list. A missing file
// returns nil items and no error so callers can fall back to fetching.
func (m *Manager) LoadItemList(filename string) ([]feed.FeedItem, error) {
	data, err := os.ReadFile(filepath.Join(m.baseDir, filename))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read item list: %w", err)
	}

	var items []feed.FeedItem
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("failed to decode item list: %w", err)
	}
	return items, nil
}
