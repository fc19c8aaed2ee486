package marketdata

import (
	"errors"
	"testing"
	"time"

	"crypto_search/internal/domain"

	"github.com/shopspring/decimal"
)

func mustNormalize(t *testing.T, shape Shape, body string) []domain.AssetRecord {
	t.Helper()
	n, err := NewNormalizer(shape)
	if err != nil {
		t.Fatalf("NewNormalizer(%s): %v", shape, err)
	}
	records, err := n.Normalize([]byte(body))
	if err != nil {
		t.Fatalf("Normalize(%s): %v", shape, err)
	}
	return records
}

func TestNormalizeCoinGecko(t *testing.T) {
	body := `[
		{"id":"bitcoin","name":"Bitcoin","symbol":"btc","image":"https://img/btc.png",
		 "market_cap":1300000000000,"current_price":65000.5,"total_supply":21000000,
		 "total_volume":"35000000000","market_cap_rank":7},
		{"id":"tether","name":"Tether","symbol":"usdt","image":null,
		 "market_cap":"110000000000","current_price":1},
		{"id":"newcoin","name":"New Coin","symbol":"new"}
	]`

	records := mustNormalize(t, ShapeCoinGecko, body)
	if len(records) != 3 {
		t.Fatalf("Expected 3 records, got %d", len(records))
	}

	btc := records[0]
	if btc.Symbol != "BTC" {
		t.Errorf("Symbol = %q, want BTC", btc.Symbol)
	}
	if btc.Rank != 0 {
		t.Errorf("Upstream rank must be ignored, got %d", btc.Rank)
	}
	if !btc.CurrentPrice.Equal(decimal.RequireFromString("65000.5")) {
		t.Errorf("CurrentPrice = %s", btc.CurrentPrice)
	}
	if btc.TotalVolume == nil || !btc.TotalVolume.Equal(decimal.NewFromInt(35000000000)) {
		t.Errorf("Stringified volume should be coerced, got %v", btc.TotalVolume)
	}

	t.Run("partial fields", func(t *testing.T) {
		usdt := records[1]
		if usdt.TotalSupply != nil || usdt.TotalVolume != nil {
			t.Error("Missing supply and volume should be unavailable")
		}
		if usdt.ImageURL != "" {
			t.Errorf("null image should be empty, got %q", usdt.ImageURL)
		}
		if !usdt.MarketCap.Equal(decimal.NewFromInt(110000000000)) {
			t.Errorf("MarketCap = %s", usdt.MarketCap)
		}

		bare := records[2]
		if !bare.MarketCap.IsZero() || !bare.CurrentPrice.IsZero() {
			t.Errorf("Missing market cap and price should be zero, got %s / %s", bare.MarketCap, bare.CurrentPrice)
		}

		// Records with missing fields still take part in ranking.
		snap := domain.NewSnapshot(records, time.Now())
		for id, want := range map[string]int{"bitcoin": 1, "tether": 2, "newcoin": 3} {
			got, ok := snap.Get(id)
			if !ok {
				t.Errorf("%s missing from snapshot", id)
				continue
			}
			if got.Rank != want {
				t.Errorf("%s rank = %d, want %d", id, got.Rank, want)
			}
		}
	})
}

func TestNormalizeCoinCap(t *testing.T) {
	body := `{"data":[
		{"id":"bitcoin","rank":"1","symbol":"BTC","name":"Bitcoin","supply":"19700000.0",
		 "marketCapUsd":"1300000000000.123","volumeUsd24Hr":"not-a-number","priceUsd":"65000.5"}
	],"timestamp":1700000000000}`

	records := mustNormalize(t, ShapeCoinCap, body)
	if len(records) != 1 {
		t.Fatalf("Expected 1 record, got %d", len(records))
	}

	btc := records[0]
	if btc.ImageURL != "https://assets.coincap.io/assets/icons/btc@2x.png" {
		t.Errorf("ImageURL = %q", btc.ImageURL)
	}
	if btc.TotalVolume != nil {
		t.Error("Uncoercible volume should be unavailable")
	}
	if btc.TotalSupply == nil || !btc.TotalSupply.Equal(decimal.NewFromInt(19700000)) {
		t.Errorf("TotalSupply = %v", btc.TotalSupply)
	}
}

func TestNormalizeCryptoCompare(t *testing.T) {
	body := `{"Message":"Success","Data":[
		{"CoinInfo":{"Id":"1182","Name":"btc","FullName":"Bitcoin","ImageUrl":"/media/37746251/btc.png"},
		 "RAW":{"USD":{"MKTCAP":1.3e12,"PRICE":65000.5,"SUPPLY":19700000,"VOLUME24HOUR":15000.25}}},
		{"CoinInfo":{"Id":"7605","Name":"ETH","FullName":"Ethereum","ImageUrl":""}}
	]}`

	records := mustNormalize(t, ShapeCryptoCompare, body)
	if len(records) != 2 {
		t.Fatalf("Expected 2 records, got %d", len(records))
	}

	btc := records[0]
	if btc.ID != "1182" || btc.Name != "Bitcoin" || btc.Symbol != "BTC" {
		t.Errorf("Unexpected identity fields: %+v", btc)
	}
	if btc.ImageURL != "https://www.cryptocompare.com/media/37746251/btc.png" {
		t.Errorf("ImageURL = %q", btc.ImageURL)
	}
	if !btc.MarketCap.Equal(decimal.NewFromInt(1300000000000)) {
		t.Errorf("MarketCap = %s", btc.MarketCap)
	}

	eth := records[1]
	if !eth.MarketCap.IsZero() || eth.TotalSupply != nil {
		t.Error("Item without RAW data should have unavailable numbers")
	}
	if eth.ImageURL != "" {
		t.Errorf("Empty ImageUrl should not be prefixed, got %q", eth.ImageURL)
	}
}

func TestNormalize_ShapeEquivalence(t *testing.T) {
	gecko := mustNormalize(t, ShapeCoinGecko, `[{"id":"ethereum","name":"Ethereum","symbol":"eth",
		"market_cap":420000000000,"current_price":3500.25,"total_supply":120000000,"total_volume":18000000000}]`)
	coincap := mustNormalize(t, ShapeCoinCap, `{"data":[{"id":"ethereum","symbol":"ETH","name":"Ethereum",
		"marketCapUsd":"420000000000.00","priceUsd":"3500.2500","supply":"120000000","volumeUsd24Hr":"18000000000"}]}`)

	a, b := gecko[0], coincap[0]
	// ImageURL is provider-specific and excluded from the comparison.
	a.ImageURL, b.ImageURL = "", ""
	if !a.Equal(b) {
		t.Errorf("Shapes should normalize to the same record:\n%+v\n%+v", a, b)
	}
}

func TestNormalize_Errors(t *testing.T) {
	tests := []struct {
		name  string
		shape Shape
		body  string
		want  error
	}{
		{"malformed json", ShapeCoinGecko, `[{"id":`, domain.ErrParseFailure},
		{"gecko object instead of array", ShapeCoinGecko, `{"error":"rate limited"}`, domain.ErrParseFailure},
		{"quoted string body", ShapeCoinCap, `"{\"data\":[]}"`, domain.ErrParseFailure},
		{"coincap missing data", ShapeCoinCap, `{"error":"nope"}`, domain.ErrParseFailure},
		{"cryptocompare missing Data", ShapeCryptoCompare, `{"Response":"Error"}`, domain.ErrParseFailure},
		{"empty array", ShapeCoinGecko, `[]`, domain.ErrEmptyResult},
		{"no usable ids", ShapeCoinCap, `{"data":[{"name":"Ghost"}]}`, domain.ErrEmptyResult},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n, _ := NewNormalizer(tt.shape)
			_, err := n.Normalize([]byte(tt.body))
			if !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestParseShape(t *testing.T) {
	for _, in := range []string{"coingecko", " CoinCap ", "CRYPTOCOMPARE"} {
		if _, err := ParseShape(in); err != nil {
			t.Errorf("ParseShape(%q) failed: %v", in, err)
		}
	}
	if _, err := ParseShape("binance"); err == nil {
		t.Error("unknown shape should fail")
	}
}
