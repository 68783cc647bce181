// Package extractor provides tools for reading values out of nested payloads
package extractor

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/Ramsey-B/fern/pkg/normalizers"
)

var nonKeyChars = regexp.MustCompile(`[^a-z0-9]`)

// Extract reads a value from data using a dot-notation path.
// Supported syntax:
// - Simple path: "name", "address.city"
// - Array access: "items[0]", "data.results[2].value"
// A missing key, an out-of-range index or a non-object mid-path yields nil.
// The result is timestamp-normalized.
func Extract(data any, path string) any {
	if data == nil || strings.TrimSpace(path) == "" {
		return nil
	}

	current := data
	for _, part := range parsePath(path) {
		if current == nil {
			return nil
		}
		current = extractPart(current, part)
	}

	return normalizers.NormalizeValue(current)
}

// Flatten collapses a nested payload into a single-level map keyed by
// NormalizeKey of each leaf's own key. The first leaf seen for a key wins;
// keys are visited in sorted order so the result is stable.
func Flatten(payload any) map[string]any {
	flat := make(map[string]any)
	flattenInto(payload, flat)
	return flat
}

// FuzzyLookup searches the payload depth-first for a key whose NormalizeKey
// form equals that of target and returns its normalized value.
func FuzzyLookup(payload any, target string) any {
	if payload == nil || strings.TrimSpace(target) == "" {
		return nil
	}
	return fuzzyLookup(payload, NormalizeKey(target))
}

// FindKeyFold returns the payload key equal to name ignoring case and
// surrounding whitespace.
func FindKeyFold(payload map[string]any, name string) (string, bool) {
	target := strings.ToLower(strings.TrimSpace(name))
	if payload == nil || target == "" {
		return "", false
	}
	for _, key := range sortedKeys(payload) {
		if strings.ToLower(strings.TrimSpace(key)) == target {
			return key, true
		}
	}
	return "", false
}

// NormalizeKey trims, lowercases and strips everything but [a-z0-9].
func NormalizeKey(key string) string {
	if strings.TrimSpace(key) == "" {
		return ""
	}
	return nonKeyChars.ReplaceAllString(strings.ToLower(strings.TrimSpace(key)), "")
}

// pathPart represents a parsed path segment
type pathPart struct {
	key        string
	isArray    bool
	arrayIndex int
}

// parsePath parses a dot-notation expression into parts
func parsePath(path string) []pathPart {
	var parts []pathPart

	for _, seg := range splitPath(path) {
		part := pathPart{key: seg}

		if start := strings.Index(seg, "["); start != -1 {
			if end := strings.Index(seg[start:], "]"); end > 0 {
				part.key = seg[:start]
				if i, err := strconv.Atoi(seg[start+1 : start+end]); err == nil {
					part.isArray = true
					part.arrayIndex = i
				}
			}
		}

		parts = append(parts, part)
	}

	return parts
}

// splitPath splits a dot-notation path, respecting array brackets
func splitPath(path string) []string {
	var parts []string
	var current strings.Builder

	inBracket := false
	for _, c := range path {
		switch c {
		case '[':
			inBracket = true
			current.WriteRune(c)
		case ']':
			inBracket = false
			current.WriteRune(c)
		case '.':
			if inBracket {
				current.WriteRune(c)
				continue
			}
			parts = append(parts, current.String())
			current.Reset()
		default:
			current.WriteRune(c)
		}
	}
	parts = append(parts, current.String())

	return parts
}

func extractPart(data any, part pathPart) any {
	m, ok := data.(map[string]any)
	if !ok {
		return nil
	}
	value := m[part.key]

	if part.isArray {
		if arr, ok := value.([]any); ok {
			if part.arrayIndex < 0 || part.arrayIndex >= len(arr) {
				return nil
			}
			return arr[part.arrayIndex]
		}
	}

	return value
}

func flattenInto(current any, flat map[string]any) {
	switch v := current.(type) {
	case map[string]any:
		for _, key := range sortedKeys(v) {
			value := normalizers.NormalizeValue(v[key])
			switch value.(type) {
			case map[string]any, []any:
				flattenInto(value, flat)
				continue
			}
			normalized := NormalizeKey(key)
			if _, seen := flat[normalized]; !seen {
				flat[normalized] = value
			}
		}
	case []any:
		for _, item := range v {
			flattenInto(normalizers.NormalizeValue(item), flat)
		}
	}
}

func fuzzyLookup(payload any, target string) any {
	switch v := payload.(type) {
	case map[string]any:
		for _, key := range sortedKeys(v) {
			value := normalizers.NormalizeValue(v[key])
			if NormalizeKey(key) == target {
				return value
			}
			switch value.(type) {
			case map[string]any, []any:
				if nested := fuzzyLookup(value, target); nested != nil {
					return nested
				}
			}
		}
	case []any:
		for _, item := range v {
			if nested := fuzzyLookup(item, target); nested != nil {
				return nested
			}
		}
	}
	return nil
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
