package merging

import (
	"sort"

	"github.com/Ramsey-B/fern/pkg/identity"
	"github.com/Ramsey-B/fern/pkg/models"
)

// DefaultPrimaryType anchors a dataset whose records resolve to no type at all.
const DefaultPrimaryType = "default"

type typeStats struct {
	ids   map[string]struct{}
	count int
}

// ResolvePrimaryType picks the record type unified rows are anchored on:
//  1. the configured type
//  2. the relationship endpoint type with the most distinct ids, then the most occurrences
//  3. the most frequent type among indexed records, else among raw payloads
//  4. DefaultPrimaryType
//
// Remaining ties go to the alphabetically first type.
func ResolvePrimaryType(configured string, relationships []models.Relationship, idx *identity.Index, records []models.RawRecord) string {
	if t := identity.NormalizeType(configured); t != "" {
		return t
	}

	if t := primaryByRelationships(relationships); t != "" {
		return t
	}

	counts := make(map[string]int)
	if idx != nil {
		for _, ctx := range idx.Contexts() {
			if ctx.RecordType != "" {
				counts[ctx.RecordType]++
			}
		}
	}
	if len(counts) == 0 {
		for i := range records {
			if t := identity.NormalizeType(identity.ResolveType(records[i].Payload.GetValue())); t != "" {
				counts[t]++
			}
		}
	}
	if t := mostFrequent(counts); t != "" {
		return t
	}

	return DefaultPrimaryType
}

func primaryByRelationships(relationships []models.Relationship) string {
	stats := make(map[string]*typeStats)
	accumulate := func(rawType, rawID string) {
		t := identity.NormalizeType(rawType)
		id := identity.NormalizeID(rawID)
		if t == "" || id == "" {
			return
		}
		s, ok := stats[t]
		if !ok {
			s = &typeStats{ids: make(map[string]struct{})}
			stats[t] = s
		}
		s.ids[id] = struct{}{}
		s.count++
	}
	for _, r := range relationships {
		accumulate(r.FromType, r.FromID)
		accumulate(r.ToType, r.ToID)
	}

	types := make([]string, 0, len(stats))
	for t := range stats {
		types = append(types, t)
	}
	sort.Slice(types, func(i, j int) bool {
		a, b := stats[types[i]], stats[types[j]]
		if len(a.ids) != len(b.ids) {
			return len(a.ids) > len(b.ids)
		}
		if a.count != b.count {
			return a.count > b.count
		}
		return types[i] < types[j]
	})
	if len(types) == 0 {
		return ""
	}
	return types[0]
}

func mostFrequent(counts map[string]int) string {
	best := ""
	for t, n := range counts {
		if best == "" || n > counts[best] || (n == counts[best] && t < best) {
			best = t
		}
	}
	return best
}
