package domain

import "github.com/shopspring/decimal"

// AssetRecord is one normalized row of market data.
// Optional fields use nil for "not available".
type AssetRecord struct {
	ID           string           `json:"id"`
	Name         string           `json:"name"`
	Symbol       string           `json:"symbol"`     // Upper-cased ticker
	ImageURL     string           `json:"image"`      // May be empty
	MarketCap    decimal.Decimal  `json:"market_cap"` // USD, drives ranking
	CurrentPrice decimal.Decimal  `json:"current_price"`
	TotalSupply  *decimal.Decimal `json:"total_supply,omitempty"`
	TotalVolume  *decimal.Decimal `json:"total_volume,omitempty"`
	Rank         int              `json:"rank"` // 1-based, assigned by Rank
}

// Equal reports whether two records match on every field.
// Decimals compare by value, so "1.0" equals "1".
func (a AssetRecord) Equal(b AssetRecord) bool {
	return a.ID == b.ID &&
		a.Name == b.Name &&
		a.Symbol == b.Symbol &&
		a.ImageURL == b.ImageURL &&
		a.MarketCap.Equal(b.MarketCap) &&
		a.CurrentPrice.Equal(b.CurrentPrice) &&
		equalOptional(a.TotalSupply, b.TotalSupply) &&
		equalOptional(a.TotalVolume, b.TotalVolume) &&
		a.Rank == b.Rank
}

// EqualRecords compares two sequences element by element, order included.
func EqualRecords(a, b []AssetRecord) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !a[i].Equal(b[i]) {
			return false
		}
	}
	return true
}

func equalOptional(a, b *decimal.Decimal) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equal(*b)
}
