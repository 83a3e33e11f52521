// Package receipt extracts structured data from receipt images and serves
// the analysis over gRPC.
package receipt

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"conti/internal/core"
)

var ErrInvalidImage = errors.New("invalid receipt image")

// Analyzer turns a base64 encoded receipt image into receipt data.
type Analyzer interface {
	Analyze(ctx context.Context, imageBase64 string) (core.ReceiptData, error)
}

// Image is a decoded receipt upload.
type Image struct {
	Data        []byte
	Format      string // png or jpeg
	ContentType string
}

// DecodeImage accepts raw base64 or a data URL and checks the payload is a
// PNG or JPEG image.
func DecodeImage(encoded string) (Image, error) {
	encoded = strings.TrimSpace(encoded)
	if i := strings.Index(encoded, ";base64,"); i >= 0 && strings.HasPrefix(encoded, "data:") {
		encoded = encoded[i+len(";base64,"):]
	}
	if encoded == "" {
		return Image{}, fmt.Errorf("%w: empty payload", ErrInvalidImage)
	}

	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return Image{}, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}
	_, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return Image{}, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}
	return Image{Data: data, Format: format, ContentType: "image/" + format}, nil
}

// MockAnalyzer validates the image and answers with a fixed sample receipt.
type MockAnalyzer struct {
	sem chan struct{}
	now func() time.Time
}

func NewMockAnalyzer(maxConcurrent int) *MockAnalyzer {
	if maxConcurrent <= 0 {
		maxConcurrent = 1
	}
	return &MockAnalyzer{
		sem: make(chan struct{}, maxConcurrent),
		now: time.Now,
	}
}

func (m *MockAnalyzer) Analyze(ctx context.Context, imageBase64 string) (core.ReceiptData, error) {
	select {
	case m.sem <- struct{}{}:
		defer func() { <-m.sem }()
	case <-ctx.Done():
		return core.ReceiptData{}, ctx.Err()
	}

	if _, err := DecodeImage(imageBase64); err != nil {
		return core.ReceiptData{}, err
	}
	return sampleReceipt(m.now()), nil
}

func sampleReceipt(now time.Time) core.ReceiptData {
	return core.ReceiptData{
		Merchant: "Sample Store",
		Amount:   decimal.RequireFromString("1250.75"),
		Date:     now.Format("2006-01-02"),
		Category: "Groceries",
		Items: []core.LineItem{
			{Name: "Fresh Vegetables", Price: decimal.RequireFromString("350.50"), Quantity: 1},
			{Name: "Bread", Price: decimal.RequireFromString("120.25"), Quantity: 2},
			{Name: "Milk", Price: decimal.RequireFromString("85.00"), Quantity: 1},
			{Name: "Rice", Price: decimal.RequireFromString("495.00"), Quantity: 1},
			{Name: "Eggs", Price: decimal.RequireFromString("200.00"), Quantity: 1},
		},
	}
}

var categoryKeywords = []struct {
	category string
	keywords []string
}{
	{"Groceries", []string{"grocery", "market", "store"}},
	{"Dining Out", []string{"restaurant", "cafe", "food"}},
	{"Healthcare", []string{"pharmacy", "medical", "doctor"}},
	{"Transportation", []string{"transport", "travel", "uber"}},
	{"Shopping", []string{"amazon", "shop", "mart"}},
}

// SuggestCategory guesses a category name from the merchant. The first
// matching keyword group wins; unknown merchants map to Other.
func SuggestCategory(merchant string) string {
	m := strings.ToLower(merchant)
	for _, group := range categoryKeywords {
		for _, kw := range group.keywords {
			if strings.Contains(m, kw) {
				return group.category
			}
		}
	}
	return "Other"
}
