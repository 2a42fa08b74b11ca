package content

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"regexp"
)

// Placeholder is served when a story's text cannot be read.
const Placeholder = "Ez a történet hamarosan olvasható lesz. Nézz vissza később!"

var (
	ErrTextNotFound = errors.New("content: story text not found")
	ErrInvalidSlug  = errors.New("content: invalid slug")
)

var slugPattern = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)

func ValidateSlug(slug string) error {
	if !slugPattern.MatchString(slug) {
		return fmt.Errorf("%w: %q", ErrInvalidSlug, slug)
	}
	return nil
}

// TextStore reads <slug>.txt files from a directory.
type TextStore struct {
	fsys fs.FS
}

func NewTextStore(dir string) *TextStore {
	return &TextStore{fsys: os.DirFS(dir)}
}

func NewTextStoreFS(fsys fs.FS) *TextStore {
	return &TextStore{fsys: fsys}
}

func (s *TextStore) Load(slug string) (string, error) {
	if err := ValidateSlug(slug); err != nil {
		return "", err
	}
	b, err := fs.ReadFile(s.fsys, slug+".txt")
	if errors.Is(err, fs.ErrNotExist) {
		return "", fmt.Errorf("%w: %s", ErrTextNotFound, slug)
	}
	if err != nil {
		return "", fmt.Errorf("content: read %s: %w", slug, err)
	}
	return string(b), nil
}

// TextOrPlaceholder is the boundary fallback for Load: any failure yields
// Placeholder.
func (s *TextStore) TextOrPlaceholder(slug string) string {
	text, err := s.Load(slug)
	if err != nil {
		slog.Warn("story text unavailable, serving placeholder", "slug", slug, "error", err)
		return Placeholder
	}
	return text
}
