package identity

import (
	"testing"
	"time"

	"github.com/Ramsey-B/fern/pkg/database"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rawRecord(id, sourceID string, payload models.Payload) models.RawRecord {
	return models.RawRecord{
		ID:        id,
		DatasetID: "ds-1",
		SourceID:  sourceID,
		Payload:   database.NewJSONB(payload),
		CreatedAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func TestBuildIndex(t *testing.T) {
	records := []models.RawRecord{
		rawRecord("r1", "crm", models.Payload{"__table__": "customer", "customer_id": "CUST-100", "email": "olivia@example.com"}),
		rawRecord("r2", "billing", models.Payload{"__table__": "Customer", "customer_id": "cust-100", "phone": "555-1234"}),
		rawRecord("r3", "crm", models.Payload{"customer_id": "CUST-200"}),
		rawRecord("r4", "crm", models.Payload{"__table__": "order", "order_id": "ORD-1", "placed": float64(1700000000000)}),
	}

	idx := BuildIndex(records)

	t.Run("should skip records without a type", func(t *testing.T) {
		assert.Equal(t, 3, idx.Len())
	})

	t.Run("should resolve type, id and key", func(t *testing.T) {
		ctx := idx.Contexts()[0]
		assert.Equal(t, "customer", ctx.RecordType)
		assert.Equal(t, "CUST-100", ctx.RecordID)
		assert.Equal(t, "r1", ctx.RecordKey)
		assert.Equal(t, "crm", ctx.SourceID)
	})

	t.Run("should normalize payload timestamps", func(t *testing.T) {
		assert.Equal(t, "2023-11-14T22:13:20Z", idx.Contexts()[2].Payload["placed"])
	})

	t.Run("should find both customers under the lowercase variant", func(t *testing.T) {
		found := idx.Find("CUST-100", "customer")
		require.Len(t, found, 2)
		assert.Equal(t, "r1", found[0].RecordKey)
		assert.Equal(t, "r2", found[1].RecordKey)
	})

	t.Run("should fall back to all matches when the type does not match", func(t *testing.T) {
		assert.Len(t, idx.Find("ORD-1", "invoice"), 1)
	})

	t.Run("should find by payload value", func(t *testing.T) {
		found := idx.FindByPayloadValue("olivia@example.com")
		require.Len(t, found, 1)
		assert.Equal(t, "r1", found[0].RecordKey)
	})

	t.Run("should find by type", func(t *testing.T) {
		assert.Len(t, idx.FindByType("CUSTOMER"), 2)
		assert.Empty(t, idx.FindByType(""))
	})

	t.Run("should return nothing for unknown ids", func(t *testing.T) {
		assert.Empty(t, idx.Find("missing", ""))
		assert.Empty(t, idx.FindByPayloadValue(""))
	})
}

func TestIndexAdd(t *testing.T) {
	t.Run("should not duplicate a context added twice", func(t *testing.T) {
		idx := NewIndex()
		ctx := &RecordContext{RecordType: "customer", RecordID: "C1"}
		idx.Add(ctx, "C1")
		idx.Add(ctx, "C1", "c1")

		assert.Equal(t, 1, idx.Len())
		assert.Len(t, idx.Find("C1", ""), 1)
	})
}
