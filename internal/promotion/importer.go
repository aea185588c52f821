package promotion

import (
	"context"
	"fmt"
	"sync"

	"marketplace/internal/model"
	"marketplace/internal/repository"

	"github.com/rs/zerolog"
)

// Importer loads catalogue files and upserts their promotions by code.
type Importer struct {
	loader     Loader
	promotions repository.PromotionRepository
	logger     zerolog.Logger
}

// NewImporter creates an Importer.
func NewImporter(loader Loader, promotions repository.PromotionRepository, logger zerolog.Logger) *Importer {
	return &Importer{
		loader:     loader,
		promotions: promotions,
		logger:     logger.With().Str("component", "promotion-importer").Logger(),
	}
}

// Import loads every path concurrently and writes the merged catalogue.
// When a code appears more than once the entry from the later path wins.
// Nothing is written if any file fails to load.
func (i *Importer) Import(ctx context.Context, paths ...string) (int, error) {
	type loadResult struct {
		promotions []model.Promotion
		err        error
	}

	results := make([]loadResult, len(paths))
	var wg sync.WaitGroup

	for idx, path := range paths {
		wg.Add(1)
		go func(idx int, path string) {
			defer wg.Done()
			promotions, err := i.loader.Load(ctx, path)
			results[idx] = loadResult{promotions: promotions, err: err}
		}(idx, path)
	}
	wg.Wait()

	merged := make([]model.Promotion, 0)
	position := make(map[string]int)
	for idx, result := range results {
		if result.err != nil {
			i.logger.Error().Err(result.err).Str("file", paths[idx]).Msg("failed to load promotion file")
			return 0, fmt.Errorf("failed to load promotion file %s: %w", paths[idx], result.err)
		}
		for _, p := range result.promotions {
			if at, ok := position[p.Code]; ok {
				merged[at] = p
				continue
			}
			position[p.Code] = len(merged)
			merged = append(merged, p)
		}
	}

	if len(merged) == 0 {
		i.logger.Info().Int("files", len(paths)).Msg("no promotions to import")
		return 0, nil
	}

	n, err := i.promotions.Upsert(ctx, merged)
	if err != nil {
		return 0, err
	}

	i.logger.Info().
		Int("files", len(paths)).
		Int("promotions", n).
		Msg("promotion catalogue imported")

	return n, nil
}
