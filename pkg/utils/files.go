package utils

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pixelift/pixelift/internal/models"
)

var videoExtensions = map[string]struct{}{
	".mp4": {}, ".mov": {}, ".mkv": {}, ".avi": {}, ".webm": {}, ".m4v": {},
}

// MediaKind classifies a file by extension. Anything that is not a known
// video container is treated as an image.
func MediaKind(path string) models.MediaKind {
	ext := strings.ToLower(filepath.Ext(path))
	if _, ok := videoExtensions[ext]; ok {
		return models.MediaKindVideo
	}
	return models.MediaKindImage
}

// BaseName returns the file name without directory or extension.
func BaseName(path string) string {
	name := filepath.Base(path)
	return strings.TrimSuffix(name, filepath.Ext(name))
}

// OutputFileName derives the deterministic output name for a processed file,
// e.g. ("photo.jpg", "_2x", "jpg") -> "photo_2x.jpg".
func OutputFileName(originalName, suffix, ext string) string {
	return fmt.Sprintf("%s%s.%s", BaseName(originalName), suffix, strings.TrimPrefix(ext, "."))
}

// DefaultOutputDir resolves the directory processed files are written to,
// falling back to the user's Downloads folder.
func DefaultOutputDir(configured string) (string, error) {
	if configured != "" {
		return configured, EnsureDir(configured)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	dir := filepath.Join(home, "Downloads")
	return dir, EnsureDir(dir)
}

func EnsureDir(dir string) error {
	return os.MkdirAll(dir, 0o755)
}
