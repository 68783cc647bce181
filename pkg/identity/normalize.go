// Package identity resolves record types and identifiers from raw payloads and
// indexes records under every identifier variant they can be looked up by.
package identity

import (
	"regexp"
	"strings"
)

var nonIDChars = regexp.MustCompile(`[^A-Za-z0-9_-]`)

var quoteStripper = strings.NewReplacer(`"`, "", "`", "")

// NormalizeID trims an identifier and strips quotes and backticks. Some
// relationship rows carry a whole serialized record as their id, such as
// "{customer_id:CUST-100,first_name:Olivia}"; for those the first non-blank
// value under a key containing "id" is returned. Blank input yields "".
func NormalizeID(raw string) string {
	trimmed := strings.TrimSpace(quoteStripper.Replace(strings.TrimSpace(raw)))
	if trimmed == "" {
		return ""
	}

	if strings.HasPrefix(trimmed, "{") && strings.HasSuffix(trimmed, "}") && len(trimmed) >= 2 {
		inner := trimmed[1 : len(trimmed)-1]
		for _, part := range strings.Split(inner, ",") {
			kv := strings.SplitN(part, ":", 2)
			if len(kv) != 2 {
				continue
			}
			key := strings.ToLower(strings.TrimSpace(kv[0]))
			val := strings.TrimSpace(kv[1])
			if val == "" || !strings.Contains(key, "id") {
				continue
			}
			return NormalizeID(val)
		}
	}

	return trimmed
}

// NormalizeType lowercases a type name and keeps only the segment after the
// last dot, so "public.Customer" and "customer" compare equal.
func NormalizeType(raw string) string {
	normalized := strings.ToLower(strings.TrimSpace(raw))
	if i := strings.LastIndex(normalized, "."); i >= 0 {
		normalized = normalized[i+1:]
	}
	return strings.TrimSpace(quoteStripper.Replace(normalized))
}

// CanonicalIDs returns the lookup variants of an identifier in order:
// normalized, lowercased, punctuation-collapsed, collapsed and lowercased.
// Duplicates are dropped. Blank input yields nil.
func CanonicalIDs(raw string) []string {
	normalized := NormalizeID(raw)
	if normalized == "" {
		return nil
	}

	variants := newOrderedSet()
	variants.add(normalized)
	variants.add(strings.ToLower(normalized))
	if collapsed := nonIDChars.ReplaceAllString(normalized, ""); collapsed != "" {
		variants.add(collapsed)
		variants.add(strings.ToLower(collapsed))
	}
	return variants.values()
}

type orderedSet struct {
	seen  map[string]struct{}
	items []string
}

func newOrderedSet() *orderedSet {
	return &orderedSet{seen: make(map[string]struct{})}
}

func (s *orderedSet) add(v string) {
	if v == "" {
		return
	}
	if _, ok := s.seen[v]; ok {
		return
	}
	s.seen[v] = struct{}{}
	s.items = append(s.items, v)
}

func (s *orderedSet) values() []string {
	return s.items
}
