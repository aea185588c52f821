package promotion

import (
	"context"
	"fmt"
	"os"

	"marketplace/internal/model"

	"github.com/rs/zerolog"
)

type fileLoader struct {
	logger zerolog.Logger
}

// NewFileLoader creates a Loader reading from the local file system.
func NewFileLoader(logger zerolog.Logger) Loader {
	return &fileLoader{
		logger: logger.With().Str("component", "promotion-loader").Logger(),
	}
}

func (l *fileLoader) Load(ctx context.Context, path string) ([]model.Promotion, error) {
	l.logger.Info().Str("file", path).Msg("loading promotion file")

	file, err := os.Open(path)
	if err != nil {
		l.logger.Error().Err(err).Str("file", path).Msg("failed to open promotion file")
		return nil, fmt.Errorf("failed to open promotion file %s: %w", path, err)
	}
	defer file.Close()

	promotions, err := decode(ctx, file, path)
	if err != nil {
		l.logger.Error().Err(err).Str("file", path).Msg("failed to read promotion file")
		return nil, err
	}

	l.logger.Info().
		Str("file", path).
		Int("promotions_loaded", len(promotions)).
		Msg("promotion file loaded")

	return promotions, nil
}
