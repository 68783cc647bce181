package normalizers

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeValue(t *testing.T) {
	tests := []struct {
		name  string
		input any
		want  any
	}{
		{"epoch millis float", float64(1700000000000), "2023-11-14T22:13:20Z"},
		{"epoch millis int64", int64(1700000000123), "2023-11-14T22:13:20.123Z"},
		{"epoch millis digit string", "1700000000000", "2023-11-14T22:13:20Z"},
		{"small number untouched", float64(42), float64(42)},
		{"ten digit string below threshold untouched", "1234567890", "1234567890"},
		{"short digit string untouched", "12345", "12345"},
		{"iso string untouched", "2023-11-14T22:13:20Z", "2023-11-14T22:13:20Z"},
		{"plain string untouched", "CUST-100", "CUST-100"},
		{"bool untouched", true, true},
		{"nil", nil, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeValue(tt.input))
		})
	}
}

func TestNormalizePayload(t *testing.T) {
	t.Run("should normalize nested maps and lists", func(t *testing.T) {
		payload := map[string]any{
			"created": float64(1700000000000),
			"meta": map[string]any{
				"updated": "1700000000000",
			},
			"history": []any{float64(1700000000000), "x"},
		}

		got := NormalizePayload(payload)
		assert.Equal(t, "2023-11-14T22:13:20Z", got["created"])
		assert.Equal(t, "2023-11-14T22:13:20Z", got["meta"].(map[string]any)["updated"])
		assert.Equal(t, []any{"2023-11-14T22:13:20Z", "x"}, got["history"])
	})

	t.Run("should not mutate the input", func(t *testing.T) {
		payload := map[string]any{"created": float64(1700000000000)}
		_ = NormalizePayload(payload)
		assert.Equal(t, float64(1700000000000), payload["created"])
	})

	t.Run("should be idempotent", func(t *testing.T) {
		payload := map[string]any{"created": float64(1700000000000), "n": float64(3)}
		once := NormalizePayload(payload)
		assert.Equal(t, once, NormalizePayload(once))
	})

	t.Run("should return an empty map for nil", func(t *testing.T) {
		assert.Empty(t, NormalizePayload(nil))
	})
}
