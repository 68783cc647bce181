package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSONB_Scan(t *testing.T) {
	tests := []struct {
		name    string
		src     any
		want    map[string]any
		wantErr bool
	}{
		{name: "should scan bytes", src: []byte(`{"id":"c1","n":2}`), want: map[string]any{"id": "c1", "n": float64(2)}},
		{name: "should scan a string", src: `{"id":"c1"}`, want: map[string]any{"id": "c1"}},
		{name: "should scan null as the zero value", src: nil, want: nil},
		{name: "should reject other types", src: 42, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var j JSONB[map[string]any]
			err := j.Scan(tt.src)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, j.GetValue())
		})
	}
}

func TestJSONB_Value(t *testing.T) {
	value, err := NewJSONB(map[string]any{"email": "a@x.io"}).Value()
	require.NoError(t, err)
	assert.Equal(t, `{"email":"a@x.io"}`, value)
}

func TestInsertBuilder_OnConflictDoNothing(t *testing.T) {
	t.Run("should name the conflict columns", func(t *testing.T) {
		ib := NewInsertBuilder("integration.relationship", "relationship_id", "dataset_id")
		ib.Values("r1", "d1")
		ib.OnConflictDoNothing("dataset_id", "relation_type", "from_id", "to_id")

		query, args := ib.Build()
		assert.Equal(t, "INSERT INTO integration.relationship (relationship_id, dataset_id) VALUES ($1, $2) ON CONFLICT (dataset_id, relation_type, from_id, to_id) DO NOTHING", query)
		assert.Equal(t, []any{"r1", "d1"}, args)
	})

	t.Run("should skip any conflict without columns", func(t *testing.T) {
		ib := NewInsertBuilder("integration.raw_record", "raw_record_id")
		ib.Values("x")
		ib.OnConflictDoNothing()

		query, _ := ib.Build()
		assert.Contains(t, query, "ON CONFLICT DO NOTHING")
	})
}
