// Package reports materializes generated documents and hands back a URL the
// bot can drop into a chat reply.
package reports

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// Sink stores a rendered report and returns a retrievable URL.
type Sink interface {
	Store(ctx context.Context, name string, data []byte) (string, error)
}

// FileSink writes reports under a directory served by the webhook's
// /exports/ route. Filenames carry a random suffix so URLs are not
// guessable from customer names.
type FileSink struct {
	dir           string
	publicBaseURL string
}

func NewFileSink(dir, publicBaseURL string) (*FileSink, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create export directory: %w", err)
	}
	return &FileSink{
		dir:           dir,
		publicBaseURL: strings.TrimRight(publicBaseURL, "/"),
	}, nil
}

func (s *FileSink) Store(ctx context.Context, name string, data []byte) (string, error) {
	ext := filepath.Ext(name)
	base := strings.TrimSuffix(filepath.Base(name), ext)
	filename := fmt.Sprintf("%s-%s%s", sanitize(base), uuid.NewString()[:8], ext)

	path := filepath.Join(s.dir, filename)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("write report: %w", err)
	}

	return s.publicBaseURL + "/exports/" + filename, nil
}

// Dir returns the directory the webhook serves.
func (s *FileSink) Dir() string {
	return s.dir
}

func sanitize(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		case r == ' ':
			b.WriteRune('-')
		}
	}
	if b.Len() == 0 {
		return "export"
	}
	return b.String()
}
