// Command promoimport loads gzipped promotion catalogues and upserts them by code.
//
//	promoimport [-timeout 2m] promotions1.gz promotions2.gz
//
// With S3_ENABLED=true each path is read from S3_BUCKET under S3_PREFIX first,
// then from the local file system.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"marketplace/internal/config"
	"marketplace/internal/database"
	"marketplace/internal/promotion"
	"marketplace/internal/repository"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	timeout := flag.Duration("timeout", 2*time.Minute, "overall import deadline")
	flag.Parse()

	paths := flag.Args()
	if len(paths) == 0 {
		return errors.New("usage: promoimport [-timeout d] <file.gz>...")
	}

	cfg, err := config.LoadTool()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	logger := config.NewLogger(cfg.Logger)

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	pool, err := database.NewPool(ctx, cfg.Database, false, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer pool.Close()

	fileLoader := promotion.NewFileLoader(logger)
	var s3Loader promotion.Loader
	if cfg.S3.Enabled {
		s3Loader, err = promotion.NewS3Loader(ctx, cfg.S3.Bucket, cfg.S3.Region, logger)
		if err != nil {
			logger.Warn().
				Err(err).
				Msg("failed to initialise S3 loader, falling back to local file system only")
			s3Loader = nil
		}
	}
	loader := promotion.NewFallbackLoader(s3Loader, fileLoader, cfg.S3.Prefix, cfg.S3.Enabled, logger)

	importer := promotion.NewImporter(loader, repository.NewPromotionRepository(pool, logger), logger)
	count, err := importer.Import(ctx, paths...)
	if err != nil {
		return err
	}

	logger.Info().Int("promotions", count).Strs("files", paths).Msg("promotion import finished")
	return nil
}
