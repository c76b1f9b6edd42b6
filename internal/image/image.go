package image

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ruizrica/spriteforge/internal/security"
	"github.com/ruizrica/spriteforge/pkg/models"
)

var ErrNoImageData = errors.New("no image data available")

// Saver writes generated artifacts under one output directory.
type Saver struct {
	dir string
}

func NewSaver(dir string) *Saver {
	if dir == "" {
		dir = "."
	}
	return &Saver{dir: dir}
}

func (s *Saver) Dir() string {
	return s.dir
}

// Save writes img as <name>.<ext> and returns the path written.
func (s *Saver) Save(img *models.Image, name string) (string, error) {
	if img.IsEmpty() {
		return "", ErrNoImageData
	}

	filename := security.SanitizeFilename(name) + "." + Extension(img.MIMEType)
	path, err := security.SafeJoin(s.dir, filename)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create directory: %w", err)
	}

	if err := os.WriteFile(path, img.Data, 0644); err != nil {
		return "", fmt.Errorf("failed to write file: %w", err)
	}

	return path, nil
}

// SaveStyles writes every successful variant as <style>.png. Failed or
// pending variants are skipped.
func (s *Saver) SaveStyles(variants []models.StyleVariant) ([]string, error) {
	var paths []string
	for _, v := range variants {
		if !v.Result.HasImage() {
			continue
		}
		path, err := s.Save(v.Result.Image(), string(v.ID))
		if err != nil {
			return paths, fmt.Errorf("failed to save style %s: %w", v.ID, err)
		}
		paths = append(paths, path)
	}
	return paths, nil
}

// SaveFrames writes every successful frame as <style>_<action>_frame_NN.png.
func (s *Saver) SaveFrames(frames []models.ActionFrame) ([]string, error) {
	var paths []string
	for _, f := range frames {
		if !f.Result.HasImage() {
			continue
		}
		path, err := s.Save(f.Result.Image(), f.Name())
		if err != nil {
			return paths, fmt.Errorf("failed to save frame %s: %w", f.Key(), err)
		}
		paths = append(paths, path)
	}
	return paths, nil
}

func Extension(mime string) string {
	switch mime {
	case "image/jpeg":
		return "jpg"
	case "image/webp":
		return "webp"
	case "image/gif":
		return "gif"
	default:
		return "png"
	}
}

// OutputDir returns a timestamped run directory under base.
func OutputDir(base string, t time.Time) string {
	return filepath.Join(base, "sprites-"+t.Format("20060102-150405"))
}
