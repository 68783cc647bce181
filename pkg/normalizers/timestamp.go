// Package normalizers provides value normalization for raw payloads and
// the scalar transforms applied by field mappings.
package normalizers

import (
	"encoding/json"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// EpochMillisThreshold is the smallest magnitude treated as epoch milliseconds.
// Anything smaller is left alone so ordinary counts and ids survive untouched.
const EpochMillisThreshold int64 = 100_000_000_000

var epochDigits = regexp.MustCompile(`^-?\d{10,}$`)

// NormalizeValue converts epoch-millisecond numbers (and all-digit strings of
// at least ten digits) into ISO-8601 UTC strings. Maps and lists are walked
// recursively. Every other value is returned as is.
func NormalizeValue(value any) any {
	switch v := value.(type) {
	case nil:
		return nil
	case map[string]any:
		return NormalizePayload(v)
	case []any:
		return NormalizeList(v)
	case string:
		return normalizeString(v)
	case json.Number:
		if n, err := v.Int64(); err == nil {
			return normalizeMillis(n, value)
		}
		if f, err := v.Float64(); err == nil {
			return normalizeFloat(f, value)
		}
		return value
	case float64:
		return normalizeFloat(v, value)
	case float32:
		return normalizeFloat(float64(v), value)
	case int:
		return normalizeMillis(int64(v), value)
	case int32:
		return normalizeMillis(int64(v), value)
	case int64:
		return normalizeMillis(v, value)
	case uint32:
		return normalizeMillis(int64(v), value)
	case uint64:
		if v > math.MaxInt64 {
			return value
		}
		return normalizeMillis(int64(v), value)
	default:
		return value
	}
}

// NormalizePayload returns a copy of the payload with every value normalized.
// A nil payload yields an empty map.
func NormalizePayload(payload map[string]any) map[string]any {
	out := make(map[string]any, len(payload))
	for k, v := range payload {
		out[k] = NormalizeValue(v)
	}
	return out
}

// NormalizeList returns a copy of the list with every element normalized.
func NormalizeList(list []any) []any {
	out := make([]any, len(list))
	for i, v := range list {
		out[i] = NormalizeValue(v)
	}
	return out
}

// FormatMillis renders epoch milliseconds as an ISO-8601 UTC instant.
// Whole seconds omit the fractional part; otherwise millis are always three digits.
func FormatMillis(ms int64) string {
	t := time.UnixMilli(ms).UTC()
	if ms%1000 == 0 {
		return t.Format("2006-01-02T15:04:05Z07:00")
	}
	return t.Format("2006-01-02T15:04:05.000Z07:00")
}

func normalizeString(s string) any {
	trimmed := strings.TrimSpace(s)
	if !epochDigits.MatchString(trimmed) {
		return s
	}
	n, err := strconv.ParseInt(trimmed, 10, 64)
	if err != nil {
		return s
	}
	return normalizeMillis(n, s)
}

func normalizeFloat(f float64, original any) any {
	if math.IsNaN(f) || math.IsInf(f, 0) || math.Abs(f) >= math.MaxInt64 {
		return original
	}
	return normalizeMillis(int64(f), original)
}

func normalizeMillis(n int64, original any) any {
	if n >= EpochMillisThreshold || n <= -EpochMillisThreshold {
		return FormatMillis(n)
	}
	return original
}
