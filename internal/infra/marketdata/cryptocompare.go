package marketdata

import (
	"encoding/json"
	"errors"
	"strings"

	"crypto_search/internal/domain"
)

// cryptoCompareResponse is the /data/top/mktcapfull envelope.
type cryptoCompareResponse struct {
	Data *[]cryptoCompareItem `json:"Data"`
}

type cryptoCompareItem struct {
	CoinInfo struct {
		ID       text `json:"Id"`
		FullName text `json:"FullName"`
		Name     text `json:"Name"` // Ticker, despite the field name
		ImageURL text `json:"ImageUrl"`
	} `json:"CoinInfo"`
	RAW struct {
		USD struct {
			MarketCap    number `json:"MKTCAP"`
			Price        number `json:"PRICE"`
			Supply       number `json:"SUPPLY"`
			Volume24Hour number `json:"VOLUME24HOUR"`
		} `json:"USD"`
	} `json:"RAW"`
}

func normalizeCryptoCompare(body []byte) ([]domain.AssetRecord, error) {
	var resp cryptoCompareResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, parseError(ShapeCryptoCompare, err)
	}
	if resp.Data == nil {
		return nil, parseError(ShapeCryptoCompare, errors.New(`missing "Data" array`))
	}

	records := make([]domain.AssetRecord, 0, len(*resp.Data))
	for _, it := range *resp.Data {
		info, usd := it.CoinInfo, it.RAW.USD

		image := ""
		if info.ImageURL != "" {
			image = cryptoCompareBaseURL + string(info.ImageURL)
		}

		records = append(records, domain.AssetRecord{
			ID:           string(info.ID),
			Name:         string(info.FullName),
			Symbol:       strings.ToUpper(string(info.Name)),
			ImageURL:     image,
			MarketCap:    usd.MarketCap.OrZero(),
			CurrentPrice: usd.Price.OrZero(),
			TotalSupply:  usd.Supply.Ptr(),
			TotalVolume:  usd.Volume24Hour.Ptr(),
		})
	}
	return finish(ShapeCryptoCompare, records)
}
