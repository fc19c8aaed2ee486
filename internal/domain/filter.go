package domain

import "strings"

// Filter returns the snapshot records whose Name contains query,
// case-insensitively, in snapshot order. Ranks are kept as stored.
func Filter(s *Snapshot, query string) []AssetRecord {
	needle := strings.ToLower(query)

	out := make([]AssetRecord, 0, s.Len())
	s.each(func(r AssetRecord) {
		if needle == "" {
			out = append(out, r)
			return
		}
		if r.Name != "" && strings.Contains(strings.ToLower(r.Name), needle) {
			out = append(out, r)
		}
	})
	return out
}
