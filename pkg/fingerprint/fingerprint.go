// Package fingerprint produces canonical JSON renderings and content hashes
// for raw payloads.
package fingerprint

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"
	"strings"
)

// Canonical renders a value as JSON with map keys sorted at every level.
// HTML characters are not escaped, so the output matches what was ingested.
func Canonical(data any) string {
	return canonicalizeWithExclusions(data, nil, "")
}

// Hash creates a deterministic SHA-256 fingerprint of the canonical payload.
func Hash(data map[string]any) string {
	return HashWithExclusions(data, nil)
}

// HashWithExclusions fingerprints a payload while ignoring the given dot-notation
// paths (e.g. "synced_at", "__meta__.ingested_at"). Excluding a parent excludes
// everything below it.
func HashWithExclusions(data map[string]any, excludeFields map[string]bool) string {
	canonical := canonicalizeWithExclusions(data, excludeFields, "")
	hash := sha256.Sum256([]byte(canonical))
	return hex.EncodeToString(hash[:])
}

func canonicalizeWithExclusions(data any, excludeFields map[string]bool, currentPath string) string {
	switch v := data.(type) {
	case map[string]any:
		return canonicalizeMap(v, excludeFields, currentPath)
	case []any:
		return canonicalizeArray(v, excludeFields, currentPath)
	default:
		return encode(v)
	}
}

func canonicalizeMap(m map[string]any, excludeFields map[string]bool, currentPath string) string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteByte('{')
	first := true
	for _, k := range keys {
		fieldPath := k
		if currentPath != "" {
			fieldPath = currentPath + "." + k
		}
		if shouldExcludeField(fieldPath, excludeFields) {
			continue
		}
		if !first {
			b.WriteByte(',')
		}
		first = false
		b.WriteString(encode(k))
		b.WriteByte(':')
		b.WriteString(canonicalizeWithExclusions(m[k], excludeFields, fieldPath))
	}
	b.WriteByte('}')
	return b.String()
}

func canonicalizeArray(arr []any, excludeFields map[string]bool, currentPath string) string {
	var b strings.Builder
	b.WriteByte('[')
	for i, v := range arr {
		if i > 0 {
			b.WriteByte(',')
		}
		// indices can't be excluded individually
		b.WriteString(canonicalizeWithExclusions(v, excludeFields, currentPath))
	}
	b.WriteByte(']')
	return b.String()
}

func encode(v any) string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return "null"
	}
	return strings.TrimSuffix(buf.String(), "\n")
}

func shouldExcludeField(fieldPath string, excludeFields map[string]bool) bool {
	if excludeFields == nil {
		return false
	}
	if excludeFields[fieldPath] {
		return true
	}
	for excluded := range excludeFields {
		if strings.HasPrefix(fieldPath, excluded+".") {
			return true
		}
	}
	return false
}
