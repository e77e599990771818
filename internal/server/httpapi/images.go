package httpapi

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gofrs/uuid/v5"
)

// ImageStore persists uploaded product images on local disk and serves them
// back under /static.
type ImageStore struct {
	dir string
}

// NewImageStore ensures the image directory exists.
func NewImageStore(dir string) (*ImageStore, error) {
	if err := os.MkdirAll(filepath.Join(dir, "images"), 0o755); err != nil {
		return nil, fmt.Errorf("image store: %w", err)
	}
	return &ImageStore{dir: dir}, nil
}

// Save writes the image bytes under a random name, keeping the original
// extension, and returns the public URL path.
func (s *ImageStore) Save(name string, data []byte) (string, error) {
	id, err := uuid.NewV4()
	if err != nil {
		return "", err
	}
	ext := strings.ToLower(filepath.Ext(name))
	switch ext {
	case ".jpg", ".jpeg", ".png", ".webp":
	default:
		ext = ".jpg"
	}
	fname := id.String() + ext
	if err := os.WriteFile(filepath.Join(s.dir, "images", fname), data, 0o644); err != nil {
		return "", fmt.Errorf("image store: %w", err)
	}
	return "/static/images/" + fname, nil
}

// FileServer serves the stored images.
func (s *ImageStore) FileServer() http.Handler {
	return http.FileServer(http.Dir(s.dir))
}
