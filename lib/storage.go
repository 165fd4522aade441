package lib

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// Store persists fetched images and reports where each object landed.
type Store interface {
	// Put writes the object under key and returns its public location.
	Put(ctx context.Context, key string, body io.Reader, contentType string) (string, error)
	// Destination describes the storage target for summaries.
	Destination() string
}

// LocalStore writes images into a directory tree on disk.
type LocalStore struct {
	baseDir string
}

// NewLocalStore creates a LocalStore rooted at baseDir.
func NewLocalStore(baseDir string) *LocalStore {
	return &LocalStore{baseDir: baseDir}
}

// Put writes the object under key relative to the base directory. An
// existing file with the same name gets a numeric suffix instead of
// being overwritten.
func (s *LocalStore) Put(ctx context.Context, key string, body io.Reader, contentType string) (string, error) {
	localPath := filepath.Join(s.baseDir, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(localPath), 0755); err != nil {
		return "", fmt.Errorf("failed to create image directory: %w", err)
	}
	localPath = uniquePath(localPath)

	file, err := os.Create(localPath)
	if err != nil {
		return "", fmt.Errorf("failed to create image file: %w", err)
	}
	defer file.Close()

	if _, err := io.Copy(file, body); err != nil {
		// Remove partially written file
		os.Remove(localPath)
		return "", fmt.Errorf("failed to write image file: %w", err)
	}

	return localPath, nil
}

// Destination describes the storage target for summaries.
func (s *LocalStore) Destination() string {
	return s.baseDir
}

// uniquePath returns path unchanged when it is free, otherwise the first
// "name_1.ext", "name_2.ext", ... variant that does not exist yet. Only a
// successful stat counts as taken; paths that cannot be checked are
// treated as free.
func uniquePath(path string) string {
	if _, err := os.Stat(path); err != nil {
		return path
	}

	ext := filepath.Ext(path)
	base := strings.TrimSuffix(path, ext)
	for counter := 1; ; counter++ {
		candidate := fmt.Sprintf("%s_%d%s", base, counter, ext)
		if _, err := os.Stat(candidate); err != nil {
			return candidate
		}
	}
}

var unsafeFilenameChars = regexp.MustCompile(`[<>:"/\\|?*]`)

// sanitizeFilename removes or replaces characters that are unsafe in file
// and object names. It returns an empty string when nothing usable is left.
func sanitizeFilename(filename string) string {
	safe := unsafeFilenameChars.ReplaceAllString(filename, "_")
	safe = strings.Trim(safe, " .")

	if len(safe) > 200 {
		safe = safe[:200]
	}

	return safe
}
