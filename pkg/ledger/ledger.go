// Package ledger tracks which items have already been archived so
// interrupted runs resume where they stopped. The ledger is a small
// JSON file kept alongside the archive output and flushed after every
// completed item, so a crash loses at most the item in flight.
package ledger

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"feedarchiver/pkg/logger"
)

// ProgressFileName is the ledger file written into the archive
// directory.
const ProgressFileName = "_progress.json"

// progressFile is the on-disk shape. Only completed item IDs are
// recorded; order is append order.
type progressFile struct {
	Downloaded []string `json:"downloaded"`
}

// Ledger records completed item IDs for one archive directory.
type Ledger struct {
	path   string
	ids    []string
	seen   map[string]bool
	logger logger.Logger
}

// Open loads the ledger for dir, creating the directory if needed. A
// missing ledger file means a fresh run and yields an empty ledger; a
// corrupt one is an error so a resume never silently re-downloads
// everything.
func Open(dir string) (*Ledger, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create archive directory: %w", err)
	}

	l := &Ledger{
		path:   filepath.Join(dir, ProgressFileName),
		seen:   make(map[string]bool),
		logger: logger.GetLogger(),
	}

	data, err := os.ReadFile(l.path)
	if err != nil {
		if os.IsNotExist(err) {
			return l, nil
		}
		return nil, fmt.Errorf("failed to read progress file: %w", err)
	}

	var pf progressFile
	if err := json.Unmarshal(data, &pf); err != nil {
		return nil, fmt.Errorf("failed to decode progress file: %w", err)
	}
	for _, id := range pf.Downloaded {
		if id == "" || l.seen[id] {
			continue
		}
		l.ids = append(l.ids, id)
		l.seen[id] = true
	}

	l.logger.DebugWithFields("Progress ledger loaded", map[string]interface{}{
		"path":      l.path,
		"completed": len(l.ids),
	})

	return l, nil
}

// Contains reports whether an item has already been archived.
func (l *Ledger) Contains(id string) bool {
	return l.seen[id]
}

// Count returns the number of completed items.
func (l *Ledger) Count() int {
	return len(l.ids)
}

// Record marks an item completed and flushes the ledger to disk. An
// already-recorded ID is a no-op.
func (l *Ledger) Record(id string) error {
	if id == "" || l.seen[id] {
		return nil
	}
	l.ids = append(l.ids, id)
	l.seen[id] = true
	return l.save()
}

// save writes the ledger atomically: encode to a temp file, sync, then
// rename over the previous version.
func (l *Ledger) save() error {
	tempPath := l.path + ".tmp"
	file, err := os.Create(tempPath)
	if err != nil {
		return fmt.Errorf("failed to create temporary progress file: %w", err)
	}

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(progressFile{Downloaded: l.ids}); err != nil {
		file.Close()
		os.Remove(tempPath)
		return fmt.Errorf("failed to encode progress file: %w", err)
	}

	if err := file.Sync(); err != nil {
		file.Close()
		os.Remove(tempPath)
		return fmt.Errorf("failed to sync progress file: %w", err)
	}

	if err := file.Close(); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to close progress file: %w", err)
	}

	if err := os.Rename(tempPath, l.path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to replace progress file: %w", err)
	}

	return nil
}
