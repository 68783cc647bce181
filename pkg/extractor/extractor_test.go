package extractor

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtract(t *testing.T) {
	payload := map[string]any{
		"name": "Olivia",
		"address": map[string]any{
			"city": "Austin",
		},
		"orders": []any{
			map[string]any{"id": "ORD-1", "placed": float64(1700000000000)},
			map[string]any{"id": "ORD-2"},
		},
	}

	tests := []struct {
		name string
		path string
		want any
	}{
		{"top-level key", "name", "Olivia"},
		{"nested key", "address.city", "Austin"},
		{"array index", "orders[1].id", "ORD-2"},
		{"timestamp normalized", "orders[0].placed", "2023-11-14T22:13:20Z"},
		{"index out of range", "orders[5].id", nil},
		{"non-object mid-path", "name.first", nil},
		{"missing key", "phone", nil},
		{"empty path", "", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Extract(payload, tt.path))
		})
	}
}

func TestFlatten(t *testing.T) {
	t.Run("should key leaves by normalized key and keep the first value", func(t *testing.T) {
		payload := map[string]any{
			"Email": "a@example.com",
			"contact": map[string]any{
				"e-mail": "b@example.com",
				"Phone":  "555-1234",
			},
			"tags": []any{map[string]any{"label": "vip"}},
		}

		flat := Flatten(payload)
		assert.Equal(t, "a@example.com", flat["email"])
		assert.Equal(t, "555-1234", flat["phone"])
		assert.Equal(t, "vip", flat["label"])
		assert.NotContains(t, flat, "contact")
	})

	t.Run("should return an empty map for nil", func(t *testing.T) {
		assert.Empty(t, Flatten(nil))
	})
}

func TestFuzzyLookup(t *testing.T) {
	payload := map[string]any{
		"profile": map[string]any{
			"First_Name": "Olivia",
		},
		"created_at": float64(1700000000000),
	}

	assert.Equal(t, "Olivia", FuzzyLookup(payload, "first name"))
	assert.Equal(t, "2023-11-14T22:13:20Z", FuzzyLookup(payload, "CreatedAt"))
	assert.Nil(t, FuzzyLookup(payload, "missing"))
	assert.Nil(t, FuzzyLookup(payload, " "))
}

func TestFindKeyFold(t *testing.T) {
	key, ok := FindKeyFold(map[string]any{"Email": "x"}, "email")
	assert.True(t, ok)
	assert.Equal(t, "Email", key)

	_, ok = FindKeyFold(map[string]any{"Email": "x"}, "phone")
	assert.False(t, ok)
}

func TestNormalizeKey(t *testing.T) {
	assert.Equal(t, "firstname", NormalizeKey(" First_Name "))
	assert.Equal(t, "", NormalizeKey("   "))
	assert.Equal(t, "email2", NormalizeKey("E-mail 2"))
}
