// Package search answers catalogue searches, optionally through a Redis cache.
package search

import (
	"context"

	"marketplace/internal/model"
	"marketplace/internal/repository"

	"github.com/rs/zerolog"
)

// ResultLimit caps the number of products a search returns.
const ResultLimit = 100

// Searcher finds active products matching a query.
type Searcher interface {
	Search(ctx context.Context, params model.SearchParams) ([]model.SearchResult, error)
}

type repositorySearcher struct {
	products repository.ProductRepository
	logger   zerolog.Logger
}

// NewSearcher creates a Searcher reading straight from the product repository.
func NewSearcher(products repository.ProductRepository, logger zerolog.Logger) Searcher {
	return &repositorySearcher{
		products: products,
		logger:   logger.With().Str("component", "search").Logger(),
	}
}

func (s *repositorySearcher) Search(ctx context.Context, params model.SearchParams) ([]model.SearchResult, error) {
	results, err := s.products.Search(ctx, params, ResultLimit)
	if err != nil {
		return nil, err
	}

	s.logger.Debug().
		Str("query", params.Query).
		Str("category", params.Category).
		Int("results", len(results)).
		Msg("catalogue searched")

	return results, nil
}
