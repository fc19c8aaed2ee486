package domain

import "context"

// Fetcher retrieves one batch of normalized, unranked records from a data source.
type Fetcher interface {
	Fetch(ctx context.Context) ([]AssetRecord, error)
}
