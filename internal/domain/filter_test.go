package domain

import (
	"testing"
	"time"
)

func TestFilter(t *testing.T) {
	snap := NewSnapshot([]AssetRecord{
		record("bitcoin", "Bitcoin", 300),
		record("ethereum", "Ethereum", 200),
		record("litecoin", "Litecoin", 100),
	}, time.Now())

	t.Run("case-insensitive substring keeps rank order", func(t *testing.T) {
		got := Filter(snap, "COIN")
		if len(got) != 2 {
			t.Fatalf("Expected 2 matches, got %d", len(got))
		}
		if got[0].Name != "Bitcoin" || got[1].Name != "Litecoin" {
			t.Errorf("Got %s, %s", got[0].Name, got[1].Name)
		}
		if got[0].Rank != 1 || got[1].Rank != 3 {
			t.Errorf("Filtering must not re-rank: got ranks %d, %d", got[0].Rank, got[1].Rank)
		}
	})

	t.Run("empty query returns everything", func(t *testing.T) {
		if got := Filter(snap, ""); len(got) != 3 {
			t.Errorf("Expected 3, got %d", len(got))
		}
	})

	t.Run("no matches", func(t *testing.T) {
		if got := Filter(snap, "doge"); len(got) != 0 {
			t.Errorf("Expected no matches, got %d", len(got))
		}
	})

	t.Run("nameless records never match", func(t *testing.T) {
		s := NewSnapshot([]AssetRecord{record("x", "", 1)}, time.Now())
		if got := Filter(s, "x"); len(got) != 0 {
			t.Error("record without a name should not match")
		}
	})

	t.Run("nil snapshot", func(t *testing.T) {
		if got := Filter(nil, "coin"); len(got) != 0 {
			t.Error("nil snapshot should yield nothing")
		}
	})
}
