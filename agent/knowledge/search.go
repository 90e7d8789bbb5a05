package knowledge

import (
	"context"
	"fmt"
	"strings"

	contractx "github.com/tanpawarit/chative-commerce-agent/agent/contract"
)

type vectorSearcher interface {
	Search(ctx context.Context, vector []float32, limit int, threshold float64, audience string) ([]Document, error)
}

// Searcher answers free-text knowledge-base questions.
type Searcher struct {
	embedder  Embedder
	index     vectorSearcher
	limit     int
	threshold float64
}

func NewSearcher(embedder Embedder, index vectorSearcher, limit int, threshold float64) *Searcher {
	if limit <= 0 {
		limit = 5
	}
	return &Searcher{embedder: embedder, index: index, limit: limit, threshold: threshold}
}

func (s *Searcher) Search(ctx context.Context, query string) ([]Document, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("%w: query is required", contractx.ErrValidation)
	}
	vector, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, err
	}
	return s.index.Search(ctx, vector, s.limit, s.threshold, "")
}
