package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/fern/pkg/models"
)

func TestNodeBatches(t *testing.T) {
	g := Build([]models.Relationship{
		rel("customer", "C1", "order", "O1"),
		rel("customer", "C1", "order", "O2"),
	})

	batches := nodeBatches("ds-1", g)
	require.Len(t, batches, 2)
	assert.Equal(t, "customer", batches[0].label)
	assert.Len(t, batches[0].rows, 1)
	assert.Equal(t, "order", batches[1].label)
	assert.Len(t, batches[1].rows, 2)
	assert.Equal(t, "ds-1", batches[1].rows[0]["dataset_id"])
}

func TestLinkBatches(t *testing.T) {
	relation := rel("customer", "C1", "order", "O1")
	relation.ID = "rel-1"
	g := Build([]models.Relationship{relation, rel("customer", "C1", "order", "O2")})

	batches := linkBatches("ds-1", g)
	require.Len(t, batches, 1)
	assert.Equal(t, "customer", batches[0].fromLabel)
	assert.Equal(t, "shared_customer_id", batches[0].relType)
	assert.Equal(t, "order", batches[0].toLabel)
	require.Len(t, batches[0].rows, 2)
	assert.Equal(t, "rel-1", batches[0].rows[0]["id"])
	assert.Equal(t, "shared_customer_id|customer:C1|order:O2", batches[0].rows[1]["id"])
}

func TestSanitizeLabel(t *testing.T) {
	assert.Equal(t, "customerv2", sanitizeLabel("customer-v2"))
	assert.Equal(t, "Record", sanitizeLabel("!!"))
	assert.Equal(t, "_2024", sanitizeLabel("2024"))
}
