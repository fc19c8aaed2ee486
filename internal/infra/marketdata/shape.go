// Package marketdata fetches market listings from public providers and
// normalizes them into domain.AssetRecord values.
//
// Each provider returns a different body layout. The layout is chosen by
// configuration (Shape); it is never guessed from the response.
package marketdata

import (
	"fmt"
	"strings"

	"crypto_search/internal/domain"
)

// Shape identifies an upstream response layout.
type Shape string

const (
	// ShapeCoinGecko is a flat array of market items.
	ShapeCoinGecko Shape = "coingecko"
	// ShapeCoinCap is {"data": [...]} with USD-suffixed numeric strings.
	ShapeCoinCap Shape = "coincap"
	// ShapeCryptoCompare is {"Data": [{"CoinInfo": {...}, "RAW": {"USD": {...}}}]}.
	ShapeCryptoCompare Shape = "cryptocompare"
)

// Image hosts used when the provider does not ship a full logo URL.
const (
	coinCapIconURL       = "https://assets.coincap.io/assets/icons/%s@2x.png"
	cryptoCompareBaseURL = "https://www.cryptocompare.com"
)

// ParseShape validates a configured shape name.
func ParseShape(s string) (Shape, error) {
	switch shape := Shape(strings.ToLower(strings.TrimSpace(s))); shape {
	case ShapeCoinGecko, ShapeCoinCap, ShapeCryptoCompare:
		return shape, nil
	default:
		return "", fmt.Errorf("unknown source shape %q", s)
	}
}

// Normalizer converts a raw response body into unranked records.
type Normalizer interface {
	Normalize(body []byte) ([]domain.AssetRecord, error)
}

// NormalizerFunc adapts a function to Normalizer.
type NormalizerFunc func(body []byte) ([]domain.AssetRecord, error)

func (f NormalizerFunc) Normalize(body []byte) ([]domain.AssetRecord, error) {
	return f(body)
}

// NewNormalizer returns the normalizer for shape.
func NewNormalizer(shape Shape) (Normalizer, error) {
	switch shape {
	case ShapeCoinGecko:
		return NormalizerFunc(normalizeCoinGecko), nil
	case ShapeCoinCap:
		return NormalizerFunc(normalizeCoinCap), nil
	case ShapeCryptoCompare:
		return NormalizerFunc(normalizeCryptoCompare), nil
	default:
		return nil, fmt.Errorf("no normalizer for shape %q", shape)
	}
}

// finish drops unusable items and reports an empty result.
func finish(shape Shape, records []domain.AssetRecord) ([]domain.AssetRecord, error) {
	usable := records[:0]
	for _, r := range records {
		if r.ID == "" {
			continue
		}
		usable = append(usable, r)
	}
	if len(usable) == 0 {
		return nil, &domain.EmptyResultError{Shape: string(shape)}
	}
	return usable, nil
}

func parseError(shape Shape, err error) error {
	return &domain.ParseError{Shape: string(shape), Err: err}
}
