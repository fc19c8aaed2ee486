// Package view turns refresh state into display-ready rows. It filters but
// never re-sorts or re-ranks.
package view

import (
	"time"

	"crypto_search/internal/domain"
	"crypto_search/internal/service"

	"github.com/dustin/go-humanize"
	"github.com/shopspring/decimal"
)

// Status of a rendered page.
type Status string

const (
	StatusLoading Status = "loading"
	StatusError   Status = "error"
	StatusEmpty   Status = "empty"
	StatusReady   Status = "ready"
)

// User-facing messages.
const (
	MsgLoading = "Loading..."
	MsgError   = "Failed to fetch data"
	MsgEmpty   = "No cryptocurrencies found."
	NotAvail   = "N/A"
)

// Row is one formatted table line.
type Row struct {
	Rank      int    `json:"rank"`
	ID        string `json:"id"`
	Name      string `json:"name"`
	Symbol    string `json:"symbol"`
	ImageURL  string `json:"image"`
	MarketCap string `json:"market_cap"`
	Price     string `json:"current_price"`
	Supply    string `json:"total_supply"`
	Volume    string `json:"total_volume"`
}

// Page is everything a client needs to draw the screen.
type Page struct {
	Status    Status    `json:"status"`
	Message   string    `json:"message,omitempty"`
	Error     string    `json:"error,omitempty"`
	Version   uint64    `json:"version"`
	FetchedAt time.Time `json:"fetched_at,omitzero"`
	Total     int       `json:"total"`
	Rows      []Row     `json:"rows"`
}

// Visible returns the formatted rows of s whose name matches query, in
// snapshot order.
func Visible(s *domain.Snapshot, query string) []Row {
	matches := domain.Filter(s, query)
	rows := make([]Row, 0, len(matches))
	for _, r := range matches {
		rows = append(rows, NewRow(r))
	}
	return rows
}

// NewRow formats a single record.
func NewRow(r domain.AssetRecord) Row {
	return Row{
		Rank:      r.Rank,
		ID:        r.ID,
		Name:      r.Name,
		Symbol:    r.Symbol,
		ImageURL:  r.ImageURL,
		MarketCap: "$" + FormatAmount(r.MarketCap),
		Price:     "$" + FormatAmount(r.CurrentPrice),
		Supply:    formatOptional(r.TotalSupply),
		Volume:    formatOptional(r.TotalVolume),
	}
}

// Build renders the loop state for query.
//
// Loading wins over everything else. A failed cycle reports an error but
// still carries the rows of the last snapshot, if any.
func Build(state service.State, query string) Page {
	page := Page{
		Version: state.Version,
		Total:   state.Snapshot.Len(),
		Rows:    []Row{},
	}
	if state.Snapshot != nil {
		page.FetchedAt = state.Snapshot.FetchedAt()
	}

	switch {
	case state.Loading:
		page.Status = StatusLoading
		page.Message = MsgLoading
		return page
	case state.Err != nil:
		page.Status = StatusError
		page.Error = MsgError
	case state.Snapshot.Len() == 0:
		page.Status = StatusEmpty
		page.Message = MsgEmpty
		return page
	default:
		page.Status = StatusReady
	}

	page.Rows = Visible(state.Snapshot, query)
	return page
}

// FormatAmount renders d with thousands separators and at most three
// fractional digits, e.g. 1234567.891 -> "1,234,567.891".
func FormatAmount(d decimal.Decimal) string {
	r := d.Round(3)
	whole := r.Truncate(0)
	out := humanize.BigComma(whole.BigInt())
	if r.Sign() < 0 && whole.IsZero() {
		out = "-" + out
	}

	if frac := r.Sub(whole).Abs(); !frac.IsZero() {
		// "0.123" -> ".123"
		out += frac.String()[1:]
	}
	return out
}

// formatOptional renders nil and zero as N/A.
func formatOptional(d *decimal.Decimal) string {
	if d == nil || d.IsZero() {
		return NotAvail
	}
	return FormatAmount(*d)
}
