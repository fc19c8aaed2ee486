package domain

import (
	"sort"
	"time"
)

// Snapshot is the ranked, immutable result of one successful fetch cycle.
// It is never modified after NewSnapshot returns; replace it wholesale.
type Snapshot struct {
	records   []AssetRecord
	index     map[string]int
	fetchedAt time.Time
}

// NewSnapshot ranks records and builds the identifier index.
// The input slice is copied, not retained.
func NewSnapshot(records []AssetRecord, fetchedAt time.Time) *Snapshot {
	ranked := Rank(records)

	index := make(map[string]int, len(ranked))
	for i, r := range ranked {
		// First occurrence wins when upstream repeats an id.
		if _, dup := index[r.ID]; !dup {
			index[r.ID] = i
		}
	}

	return &Snapshot{
		records:   ranked,
		index:     index,
		fetchedAt: fetchedAt,
	}
}

// Rank returns a copy of records sorted by MarketCap descending with Rank
// set to the 1-based position. Equal market caps keep their input order.
func Rank(records []AssetRecord) []AssetRecord {
	ranked := make([]AssetRecord, len(records))
	copy(ranked, records)

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].MarketCap.GreaterThan(ranked[j].MarketCap)
	})

	for i := range ranked {
		ranked[i].Rank = i + 1
	}
	return ranked
}

// Len returns the number of records.
func (s *Snapshot) Len() int {
	if s == nil {
		return 0
	}
	return len(s.records)
}

// Records returns the ranked records. The slice is a copy.
func (s *Snapshot) Records() []AssetRecord {
	if s == nil {
		return nil
	}
	out := make([]AssetRecord, len(s.records))
	copy(out, s.records)
	return out
}

// Get looks up a record by identifier.
func (s *Snapshot) Get(id string) (AssetRecord, bool) {
	if s == nil {
		return AssetRecord{}, false
	}
	i, ok := s.index[id]
	if !ok {
		return AssetRecord{}, false
	}
	return s.records[i], true
}

// FetchedAt returns when the cycle that produced this snapshot completed.
func (s *Snapshot) FetchedAt() time.Time {
	if s == nil {
		return time.Time{}
	}
	return s.fetchedAt
}

// each iterates the ranked records without copying.
func (s *Snapshot) each(fn func(AssetRecord)) {
	if s == nil {
		return
	}
	for _, r := range s.records {
		fn(r)
	}
}
