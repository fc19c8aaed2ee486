package marketdata

import (
	"encoding/json"
	"strings"

	"crypto_search/internal/domain"
)

// coinGeckoItem is one entry of /coins/markets.
type coinGeckoItem struct {
	ID            text   `json:"id"`
	Name          text   `json:"name"`
	Symbol        text   `json:"symbol"`
	Image         text   `json:"image"`
	MarketCap     number `json:"market_cap"`
	CurrentPrice  number `json:"current_price"`
	TotalSupply   number `json:"total_supply"`
	TotalVolume   number `json:"total_volume"`
	MarketCapRank number `json:"market_cap_rank"` // Ignored; rank is recomputed
}

func normalizeCoinGecko(body []byte) ([]domain.AssetRecord, error) {
	var items []coinGeckoItem
	if err := json.Unmarshal(body, &items); err != nil {
		return nil, parseError(ShapeCoinGecko, err)
	}

	records := make([]domain.AssetRecord, 0, len(items))
	for _, it := range items {
		records = append(records, domain.AssetRecord{
			ID:           string(it.ID),
			Name:         string(it.Name),
			Symbol:       strings.ToUpper(string(it.Symbol)),
			ImageURL:     string(it.Image),
			MarketCap:    it.MarketCap.OrZero(),
			CurrentPrice: it.CurrentPrice.OrZero(),
			TotalSupply:  it.TotalSupply.Ptr(),
			TotalVolume:  it.TotalVolume.Ptr(),
		})
	}
	return finish(ShapeCoinGecko, records)
}
