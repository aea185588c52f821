// Package promotion imports seller promotion catalogues into the database.
//
// A catalogue file is gzipped JSON lines, one promotion per line:
//
//	{"code":"SPRING10","seller_id":"...","discount_type":"percentage","discount_value":"10",
//	 "start_date":"2025-03-01T00:00:00Z","end_date":"2025-03-31T23:59:59Z","usage_limit":500}
//
// Files are read from S3 when enabled, falling back to the local file system.
package promotion

import (
	"bufio"
	"compress/gzip"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"marketplace/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Loader reads a promotion catalogue file.
type Loader interface {
	// Load reads the gzipped catalogue at path.
	Load(ctx context.Context, path string) ([]model.Promotion, error)
}

// Entry is one line of a catalogue file.
type Entry struct {
	Code              string              `json:"code"`
	SellerID          uuid.UUID           `json:"seller_id"`
	DiscountType      model.DiscountType  `json:"discount_type"`
	DiscountValue     decimal.Decimal     `json:"discount_value"`
	MinPurchaseAmount decimal.NullDecimal `json:"min_purchase_amount"`
	UsageLimit        int                 `json:"usage_limit"`
	StartDate         time.Time           `json:"start_date"`
	EndDate           time.Time           `json:"end_date"`
	IsActive          *bool               `json:"is_active"`
}

var hundred = decimal.NewFromInt(100)

// Promotion validates the entry and converts it. Missing optional fields
// take their defaults: active, no minimum purchase, the default usage limit.
func (e Entry) Promotion() (model.Promotion, error) {
	code := strings.TrimSpace(e.Code)
	if code == "" {
		return model.Promotion{}, errors.New("code is required")
	}
	if e.SellerID == uuid.Nil {
		return model.Promotion{}, fmt.Errorf("promotion %s: seller_id is required", code)
	}

	switch e.DiscountType {
	case model.DiscountPercentage:
		if e.DiscountValue.GreaterThan(hundred) {
			return model.Promotion{}, fmt.Errorf("promotion %s: percentage above 100", code)
		}
	case model.DiscountFixed:
	default:
		return model.Promotion{}, fmt.Errorf("promotion %s: unknown discount type %q", code, e.DiscountType)
	}

	if e.DiscountValue.IsNegative() {
		return model.Promotion{}, fmt.Errorf("promotion %s: negative discount value", code)
	}
	if e.StartDate.IsZero() || e.EndDate.IsZero() || e.EndDate.Before(e.StartDate) {
		return model.Promotion{}, fmt.Errorf("promotion %s: invalid validity window", code)
	}
	if e.UsageLimit < 0 {
		return model.Promotion{}, fmt.Errorf("promotion %s: negative usage limit", code)
	}

	p := model.Promotion{
		Code:          code,
		SellerID:      e.SellerID,
		DiscountType:  e.DiscountType,
		DiscountValue: e.DiscountValue,
		UsageLimit:    e.UsageLimit,
		StartDate:     e.StartDate,
		EndDate:       e.EndDate,
		IsActive:      true,
	}
	if e.MinPurchaseAmount.Valid {
		p.MinPurchaseAmount = e.MinPurchaseAmount.Decimal
	}
	if p.UsageLimit == 0 {
		p.UsageLimit = model.DefaultUsageLimit
	}
	if e.IsActive != nil {
		p.IsActive = *e.IsActive
	}
	return p, nil
}

// decode reads a gzipped JSON-lines catalogue from r. Blank lines are skipped;
// any malformed line fails the whole file.
func decode(ctx context.Context, r io.Reader, source string) ([]model.Promotion, error) {
	gzipReader, err := gzip.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to create gzip reader for %s: %w", source, err)
	}
	defer gzipReader.Close()

	scanner := bufio.NewScanner(gzipReader)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	var promotions []model.Promotion
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		if lineNo%10_000 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var entry Entry
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			return nil, fmt.Errorf("%s line %d: %w", source, lineNo, err)
		}
		p, err := entry.Promotion()
		if err != nil {
			return nil, fmt.Errorf("%s line %d: %w", source, lineNo, err)
		}
		promotions = append(promotions, p)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading promotion file %s: %w", source, err)
	}

	return promotions, nil
}
