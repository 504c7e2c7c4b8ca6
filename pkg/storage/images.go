package storage

import (
	"fmt"
	"io"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// Image artifacts inside an item directory.
const (
	ImagesSubdir  = "images"
	CoverFileName = "cover.jpg"
)

// imageExtension picks a file extension from the image URL's path,
// defaulting to .jpg when the URL gives no usable hint.
func imageExtension(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ".jpg"
	}
	ext := strings.ToLower(path.Ext(u.Path))
	switch ext {
	case ".jpg", ".jpeg", ".png", ".gif", ".webp":
		return ext
	default:
		return ".jpg"
	}
}

// ImagePath returns the destination path for the nth image of an item,
// creating the images subdirectory on first use.
func (m *Manager) ImagePath(itemDir string, index int, rawURL string) (string, error) {
	imagesDir := filepath.Join(itemDir, ImagesSubdir)
	if err := os.MkdirAll(imagesDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create images directory: %w", err)
	}
	name := fmt.Sprintf("img_%03d%s", index, imageExtension(rawURL))
	return filepath.Join(imagesDir, name), nil
}

// SaveFile streams r into path using a temp file and rename.
func (m *Manager) SaveFile(path string, r io.Reader) error {
	tempPath := path + ".tmp"
	out, err := os.Create(tempPath)
	if err != nil {
		return fmt.Errorf("failed to create temporary file: %w", err)
	}

	if _, err := io.Copy(out, r); err != nil {
		out.Close()
		os.Remove(tempPath)
		return fmt.Errorf("failed to write file: %w", err)
	}
	if err := out.Close(); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to close file: %w", err)
	}
	if err := os.Rename(tempPath, path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to finalize file: %w", err)
	}
	return nil
}

// CoverPath returns the cover image destination for an item directory.
func (m *Manager) CoverPath(itemDir string) string {
	return filepath.Join(itemDir, CoverFileName)
}
