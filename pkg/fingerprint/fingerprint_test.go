package fingerprint

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanonical(t *testing.T) {
	t.Run("should sort keys at every level", func(t *testing.T) {
		value := map[string]any{
			"b": 1,
			"a": map[string]any{"z": true, "y": nil},
		}
		assert.Equal(t, `{"a":{"y":null,"z":true},"b":1}`, Canonical(value))
	})

	t.Run("should keep list order", func(t *testing.T) {
		assert.Equal(t, `["b","a"]`, Canonical([]any{"b", "a"}))
	})

	t.Run("should not escape html characters", func(t *testing.T) {
		assert.Equal(t, `"a&b<c>"`, Canonical("a&b<c>"))
	})

	t.Run("should render scalars as json", func(t *testing.T) {
		assert.Equal(t, `"CUST-100"`, Canonical("CUST-100"))
		assert.Equal(t, `5`, Canonical(float64(5)))
	})
}

func TestHash(t *testing.T) {
	t.Run("should ignore key order", func(t *testing.T) {
		a := map[string]any{"id": "1", "name": "x"}
		b := map[string]any{"name": "x", "id": "1"}
		assert.Equal(t, Hash(a), Hash(b))
	})

	t.Run("should change when a value changes", func(t *testing.T) {
		a := map[string]any{"id": "1"}
		b := map[string]any{"id": "2"}
		assert.NotEqual(t, Hash(a), Hash(b))
	})

	t.Run("should ignore excluded paths", func(t *testing.T) {
		a := map[string]any{"id": "1", "__meta__": map[string]any{"ingested_at": "t1"}}
		b := map[string]any{"id": "1", "__meta__": map[string]any{"ingested_at": "t2"}}
		excluded := map[string]bool{"__meta__.ingested_at": true}
		assert.Equal(t, HashWithExclusions(a, excluded), HashWithExclusions(b, excluded))
		assert.NotEqual(t, Hash(a), Hash(b))
	})
}
