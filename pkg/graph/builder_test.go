package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/fern/pkg/models"
)

func rel(fromType, fromID, toType, toID string) models.Relationship {
	return models.Relationship{
		FromType:     fromType,
		FromID:       fromID,
		ToType:       toType,
		ToID:         toID,
		RelationType: "shared_customer_id",
	}
}

func TestBuild(t *testing.T) {
	t.Run("should insert both directions", func(t *testing.T) {
		g := Build([]models.Relationship{rel("Customer", "CUST-100", "order", "ORD-1")})

		customer := NodeRef{Type: "customer", ID: "CUST-100"}
		order := NodeRef{Type: "order", ID: "ORD-1"}

		require.Len(t, g.Neighbors(customer), 1)
		require.Len(t, g.Neighbors(order), 1)
		assert.Equal(t, order, g.Neighbors(customer)[0].Target)
		assert.Equal(t, customer, g.Neighbors(order)[0].Target)
		assert.Equal(t, []NodeRef{customer, order}, g.Nodes())
		assert.Equal(t, 1, g.EdgeCount())
	})

	t.Run("should normalize serialized endpoint ids", func(t *testing.T) {
		g := Build([]models.Relationship{rel("public.customer", "{customer_id:CUST-100,first_name:Olivia}", "order", "ORD-1")})

		assert.Len(t, g.Neighbors(NodeRef{Type: "customer", ID: "CUST-100"}), 1)
	})

	t.Run("should skip blank endpoints and self-loops", func(t *testing.T) {
		g := Build([]models.Relationship{
			rel("customer", " ", "order", "ORD-1"),
			rel("", "CUST-1", "order", "ORD-1"),
			rel("customer", "CUST-1", "Customer", "\"CUST-1\""),
		})

		assert.True(t, g.IsEmpty())
		assert.Empty(t, g.Nodes())
	})

	t.Run("should keep neighbor order equal to relationship order", func(t *testing.T) {
		g := Build([]models.Relationship{
			rel("customer", "C1", "order", "O2"),
			rel("customer", "C1", "order", "O1"),
		})

		neighbors := g.Neighbors(NodeRef{Type: "customer", ID: "C1"})
		require.Len(t, neighbors, 2)
		assert.Equal(t, "O2", neighbors[0].Target.ID)
		assert.Equal(t, "O1", neighbors[1].Target.ID)
	})

	t.Run("should return nil neighbors for an unknown node", func(t *testing.T) {
		assert.Nil(t, Build(nil).Neighbors(NodeRef{Type: "x", ID: "y"}))
	})
}

func TestNewNodeRef(t *testing.T) {
	ref, ok := NewNodeRef(" Sales.Order ", "`ORD-1`")
	assert.True(t, ok)
	assert.Equal(t, NodeRef{Type: "order", ID: "ORD-1"}, ref)
	assert.Equal(t, "order:ORD-1", ref.String())

	_, ok = NewNodeRef("order", "")
	assert.False(t, ok)
}
