package service

import (
	"context"
	"fmt"

	"marketplace/internal/model"
	"marketplace/internal/repository"
	"marketplace/internal/search"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// productService implements ProductService.
type productService struct {
	productRepo repository.ProductRepository
	searcher    search.Searcher
	logger      zerolog.Logger
}

// NewProductService creates a new product service. Searches go through searcher.
func NewProductService(productRepo repository.ProductRepository, searcher search.Searcher, logger zerolog.Logger) ProductService {
	return &productService{
		productRepo: productRepo,
		searcher:    searcher,
		logger:      logger.With().Str("service", "product").Logger(),
	}
}

// GetAll retrieves all products with pagination.
func (s *productService) GetAll(ctx context.Context, limit, offset int) ([]model.Product, error) {
	if limit <= 0 {
		limit = 10
	}
	if limit > 100 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}

	products, err := s.productRepo.GetAll(ctx, limit, offset)
	if err != nil {
		s.logger.Error().Err(err).
			Int("limit", limit).
			Int("offset", offset).
			Msg("failed to get all products")
		return nil, fmt.Errorf("failed to get products: %w", err)
	}

	s.logger.Debug().
		Int("count", len(products)).
		Int("limit", limit).
		Int("offset", offset).
		Msg("retrieved products")

	return products, nil
}

// GetByID retrieves a single product by ID.
func (s *productService) GetByID(ctx context.Context, id uuid.UUID) (*model.Product, error) {
	product, err := s.productRepo.GetByID(ctx, id)
	if err != nil {
		s.logger.Error().Err(err).Str("product_id", id.String()).Msg("failed to get product by ID")
		return nil, fmt.Errorf("failed to get product: %w", err)
	}

	if product == nil {
		s.logger.Debug().Str("product_id", id.String()).Msg("product not found")
		return nil, model.ErrProductNotFound
	}

	return product, nil
}

// Search rejects inverted price bounds and otherwise delegates to the searcher.
func (s *productService) Search(ctx context.Context, params model.SearchParams) ([]model.SearchResult, error) {
	if params.MinPrice != nil && params.MaxPrice != nil && params.MinPrice.GreaterThan(*params.MaxPrice) {
		return []model.SearchResult{}, nil
	}

	results, err := s.searcher.Search(ctx, params)
	if err != nil {
		s.logger.Error().Err(err).Str("query", params.Query).Msg("failed to search products")
		return nil, fmt.Errorf("failed to search products: %w", err)
	}

	if results == nil {
		results = []model.SearchResult{}
	}
	return results, nil
}
