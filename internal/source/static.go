package source

import (
	"context"

	"meme-radar/internal/domain"
)

// Static is a fixed-content source for dry runs and tests.
type Static struct {
	name  string
	texts []string
}

// NewStatic creates a source that always returns the given texts.
func NewStatic(name string, texts []string) *Static {
	return &Static{name: name, texts: texts}
}

var _ Source = (*Static)(nil)

// Name returns the configured platform tag.
func (s *Static) Name() string { return s.name }

// Fetch returns the fixed posts.
func (s *Static) Fetch(_ context.Context) ([]domain.Post, error) {
	posts := make([]domain.Post, 0, len(s.texts))
	for _, text := range s.texts {
		posts = append(posts, domain.Post{Source: s.name, Text: text})
	}
	return posts, nil
}
