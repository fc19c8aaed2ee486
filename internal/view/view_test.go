package view

import (
	"errors"
	"testing"
	"time"

	"crypto_search/internal/domain"
	"crypto_search/internal/service"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func ptr(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

func testSnapshot() *domain.Snapshot {
	return domain.NewSnapshot([]domain.AssetRecord{
		{ID: "litecoin", Name: "Litecoin", Symbol: "LTC", MarketCap: dec("500"), CurrentPrice: dec("70.5")},
		{ID: "bitcoin", Name: "Bitcoin", Symbol: "BTC", MarketCap: dec("1500"), CurrentPrice: dec("65000"),
			TotalSupply: ptr("21000000"), TotalVolume: ptr("31234567.8912")},
		{ID: "ethereum", Name: "Ethereum", Symbol: "ETH", MarketCap: dec("1000"), CurrentPrice: dec("3000")},
	}, time.Unix(1700000000, 0))
}

func TestFormatAmount(t *testing.T) {
	tests := map[string]string{
		"0":             "0",
		"12":            "12",
		"1234":          "1,234",
		"1234567.891":   "1,234,567.891",
		"1234567.8916":  "1,234,567.892",
		"0.5":           "0.5",
		"0.0004":        "0",
		"1000000000000": "1,000,000,000,000",
		"999.9999":      "1,000",
	}
	for in, want := range tests {
		assert.Equal(t, want, FormatAmount(dec(in)), "input %s", in)
	}
}

func TestNewRow(t *testing.T) {
	row := NewRow(domain.AssetRecord{
		ID: "x", Name: "X", Symbol: "X", Rank: 4,
		MarketCap: dec("1234"), CurrentPrice: dec("0.25"),
		TotalSupply: nil, TotalVolume: ptr("0"),
	})

	assert.Equal(t, 4, row.Rank)
	assert.Equal(t, "$1,234", row.MarketCap)
	assert.Equal(t, "$0.25", row.Price)
	assert.Equal(t, NotAvail, row.Supply)
	assert.Equal(t, NotAvail, row.Volume)
}

func TestVisible_FilterKeepsRank(t *testing.T) {
	rows := Visible(testSnapshot(), "COIN")

	require.Len(t, rows, 2)
	assert.Equal(t, "Bitcoin", rows[0].Name)
	assert.Equal(t, 1, rows[0].Rank)
	assert.Equal(t, "Litecoin", rows[1].Name)
	assert.Equal(t, 3, rows[1].Rank)
	assert.Equal(t, "21,000,000", rows[0].Supply)
	assert.Equal(t, "31,234,567.891", rows[0].Volume)
}

func TestBuild(t *testing.T) {
	snap := testSnapshot()
	empty := domain.NewSnapshot(nil, time.Now())
	fetchErr := domain.NewNetworkError("fetch", errors.New("refused"))

	tests := []struct {
		name    string
		state   service.State
		query   string
		status  Status
		rows    int
		message string
	}{
		{"loading", service.State{Loading: true, Snapshot: snap}, "", StatusLoading, 0, MsgLoading},
		{"error without data", service.State{Err: fetchErr}, "", StatusError, 0, ""},
		{"error keeps stale rows", service.State{Err: fetchErr, Snapshot: snap}, "", StatusError, 3, ""},
		{"no snapshot", service.State{}, "", StatusEmpty, 0, MsgEmpty},
		{"empty snapshot", service.State{Snapshot: empty}, "", StatusEmpty, 0, MsgEmpty},
		{"ready", service.State{Snapshot: snap, Version: 2}, "", StatusReady, 3, ""},
		{"filter without matches is still ready", service.State{Snapshot: snap}, "doge", StatusReady, 0, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page := Build(tt.state, tt.query)

			assert.Equal(t, tt.status, page.Status)
			assert.Len(t, page.Rows, tt.rows)
			assert.Equal(t, tt.message, page.Message)
			assert.NotNil(t, page.Rows)
			if tt.status == StatusError {
				assert.Equal(t, MsgError, page.Error)
			}
		})
	}
}

func TestBuild_Metadata(t *testing.T) {
	snap := testSnapshot()
	page := Build(service.State{Snapshot: snap, Version: 7}, "eth")

	assert.EqualValues(t, 7, page.Version)
	assert.Equal(t, 3, page.Total)
	assert.True(t, page.FetchedAt.Equal(time.Unix(1700000000, 0)))
	require.Len(t, page.Rows, 1)
	assert.Equal(t, "ETH", page.Rows[0].Symbol)
	assert.Equal(t, 2, page.Rows[0].Rank)
}
