//go:build ignore

package main

import (
	"compress/gzip"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"marketplace/internal/model"
	"marketplace/internal/promotion"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Writes two catalogue files for local runs of cmd/promoimport.
// SPRING10 appears in both; the copy in promotions2.gz wins on import.
func main() {
	dataDir := "data/promotions"

	// Create directory if it doesn't exist
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		log.Fatalf("Failed to create directory: %v", err)
	}

	seller := uuid.MustParse("5e11e400-0000-4000-8000-000000000001")
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(1, 0, 0)

	catalogues := map[string][]promotion.Entry{
		"promotions1.gz": {
			{Code: "SPRING10", SellerID: seller, DiscountType: model.DiscountPercentage, DiscountValue: decimal.NewFromInt(10), UsageLimit: 100, StartDate: start, EndDate: end},
			{Code: "FLAT20", SellerID: seller, DiscountType: model.DiscountFixed, DiscountValue: decimal.NewFromInt(20), StartDate: start, EndDate: end},
		},
		"promotions2.gz": {
			{Code: "SPRING10", SellerID: seller, DiscountType: model.DiscountPercentage, DiscountValue: decimal.NewFromInt(15), UsageLimit: 50, StartDate: start, EndDate: end},
			{Code: "WELCOME5", SellerID: seller, DiscountType: model.DiscountPercentage, DiscountValue: decimal.NewFromInt(5), StartDate: start, EndDate: end},
		},
	}

	for filename, entries := range catalogues {
		filePath := filepath.Join(dataDir, filename)

		if err := writeCatalogue(filePath, entries); err != nil {
			log.Fatalf("Failed to create %s: %v", filename, err)
		}

		fmt.Printf("Created %s with %d promotions\n", filePath, len(entries))
	}
}

func writeCatalogue(filePath string, entries []promotion.Entry) error {
	file, err := os.Create(filePath)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()

	gz := gzip.NewWriter(file)
	enc := json.NewEncoder(gz)
	for _, e := range entries {
		if err := enc.Encode(e); err != nil {
			return fmt.Errorf("failed to write entry %s: %w", e.Code, err)
		}
	}

	if err := gz.Close(); err != nil {
		return fmt.Errorf("failed to close gzip writer: %w", err)
	}
	return nil
}
