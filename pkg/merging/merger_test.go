package merging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/fern/pkg/identity"
)

func TestMerge(t *testing.T) {
	t.Run("should keep the first non-nil value for a key", func(t *testing.T) {
		primary := &identity.RecordContext{SourceID: "crm", Payload: map[string]any{"email": "a@x.com", "phone": nil}}
		related := &identity.RecordContext{SourceID: "billing", Payload: map[string]any{"email": "b@x.com", "phone": "555-1"}}

		merged := Merge([]*identity.RecordContext{primary}, nil, []*identity.RecordContext{related})
		assert.Equal(t, "a@x.com", merged.Global["email"])
		assert.Equal(t, "555-1", merged.Global["phone"])
	})

	t.Run("should apply primary contexts before relation payloads before related contexts", func(t *testing.T) {
		primary := &identity.RecordContext{SourceID: "crm", Payload: map[string]any{"a": "primary"}}
		related := &identity.RecordContext{SourceID: "crm", Payload: map[string]any{"a": "related", "b": "related", "c": "related"}}
		relation := map[string]any{"b": "relation"}

		merged := Merge([]*identity.RecordContext{primary}, []map[string]any{relation}, []*identity.RecordContext{related})
		assert.Equal(t, map[string]any{"a": "primary", "b": "relation", "c": "related"}, merged.Global)
	})

	t.Run("should keep relation payloads out of per-source views", func(t *testing.T) {
		primary := &identity.RecordContext{SourceID: "crm", Payload: map[string]any{"a": 1}}

		merged := Merge([]*identity.RecordContext{primary}, []map[string]any{{"field": "customer_id"}}, nil)
		assert.Equal(t, map[string]any{"a": 1}, merged.Source("crm"))
		assert.Equal(t, "customer_id", merged.Global["field"])
	})

	t.Run("should list per-source views in contribution order", func(t *testing.T) {
		merged := Merge(
			[]*identity.RecordContext{{SourceID: "billing", Payload: map[string]any{"x": 1}}},
			nil,
			[]*identity.RecordContext{{SourceID: "crm", Payload: map[string]any{"x": 2}}, {SourceID: "billing", Payload: map[string]any{"y": 3}}},
		)

		views := merged.BySource()
		require.Len(t, views, 2)
		assert.Equal(t, "billing", views[0].SourceID)
		assert.Equal(t, map[string]any{"x": 1, "y": 3}, views[0].Payload)
		assert.Equal(t, "crm", views[1].SourceID)
	})

	t.Run("should skip the per-source view for contexts without a source", func(t *testing.T) {
		merged := Merge([]*identity.RecordContext{{Payload: map[string]any{"x": 1}}}, nil, nil)
		assert.Empty(t, merged.BySource())
		assert.Equal(t, 1, merged.Global["x"])
	})

	t.Run("should normalize epoch timestamps while merging", func(t *testing.T) {
		merged := Merge([]*identity.RecordContext{{Payload: map[string]any{"created": float64(1700000000000)}}}, nil, nil)
		assert.Equal(t, "2023-11-14T22:13:20Z", merged.Global["created"])
	})
}

func TestMergeFirstWriteWinsForAnyOrder(t *testing.T) {
	contexts := []*identity.RecordContext{
		{SourceID: "a", Payload: map[string]any{"k": "1"}},
		{SourceID: "b", Payload: map[string]any{"k": "2"}},
		{SourceID: "c", Payload: map[string]any{"k": "3"}},
	}

	orders := [][]int{{0, 1, 2}, {1, 2, 0}, {2, 0, 1}, {2, 1, 0}}
	for _, order := range orders {
		ordered := make([]*identity.RecordContext, 0, len(order))
		for _, i := range order {
			ordered = append(ordered, contexts[i])
		}
		merged := Merge(ordered, nil, nil)
		assert.Equal(t, ordered[0].Payload["k"], merged.Global["k"])
	}
}
