package marketdata

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"crypto_search/internal/domain"
)

// coinCapResponse is the /v2/assets envelope.
type coinCapResponse struct {
	Data *[]coinCapItem `json:"data"`
}

type coinCapItem struct {
	ID           text   `json:"id"`
	Rank         text   `json:"rank"` // Ignored
	Symbol       text   `json:"symbol"`
	Name         text   `json:"name"`
	Supply       number `json:"supply"`
	MarketCapUSD number `json:"marketCapUsd"`
	VolumeUSD24h number `json:"volumeUsd24Hr"`
	PriceUSD     number `json:"priceUsd"`
}

func normalizeCoinCap(body []byte) ([]domain.AssetRecord, error) {
	var resp coinCapResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, parseError(ShapeCoinCap, err)
	}
	if resp.Data == nil {
		return nil, parseError(ShapeCoinCap, errors.New(`missing "data" array`))
	}

	records := make([]domain.AssetRecord, 0, len(*resp.Data))
	for _, it := range *resp.Data {
		symbol := strings.ToUpper(string(it.Symbol))
		image := ""
		if symbol != "" {
			image = fmt.Sprintf(coinCapIconURL, strings.ToLower(symbol))
		}

		records = append(records, domain.AssetRecord{
			ID:           string(it.ID),
			Name:         string(it.Name),
			Symbol:       symbol,
			ImageURL:     image,
			MarketCap:    it.MarketCapUSD.OrZero(),
			CurrentPrice: it.PriceUSD.OrZero(),
			TotalSupply:  it.Supply.Ptr(),
			TotalVolume:  it.VolumeUSD24h.Ptr(),
		})
	}
	return finish(ShapeCoinCap, records)
}
