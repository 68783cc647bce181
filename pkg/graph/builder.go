// Package graph builds the undirected record graph a transform traverses and
// projects it to a Memgraph/Neo4j database over Bolt.
package graph

import (
	"github.com/Ramsey-B/fern/pkg/identity"
	"github.com/Ramsey-B/fern/pkg/models"
)

// NodeRef identifies a graph node by normalized record type and id.
type NodeRef struct {
	Type string
	ID   string
}

// NewNodeRef normalizes both parts. ok is false when either is blank.
func NewNodeRef(recordType, id string) (NodeRef, bool) {
	ref := NodeRef{
		Type: identity.NormalizeType(recordType),
		ID:   identity.NormalizeID(id),
	}
	if ref.Type == "" || ref.ID == "" {
		return NodeRef{}, false
	}
	return ref, true
}

func (n NodeRef) String() string {
	return n.Type + ":" + n.ID
}

// Edge is one direction of a relationship as seen from a node.
type Edge struct {
	Target   NodeRef
	Relation *models.Relationship
}

// Graph is a read-only adjacency list. Every relationship appears once in
// each direction so traversal ignores which side was recorded as "from".
type Graph struct {
	adjacency map[NodeRef][]Edge
	nodes     []NodeRef
	links     []Link
}

// Link is a relationship kept by Build together with its normalized endpoints.
type Link struct {
	From     NodeRef
	To       NodeRef
	Relation *models.Relationship
}

// Build creates the graph from a snapshot of relationships. Relationships
// with a blank endpoint, or whose endpoints normalize to the same node, are
// skipped. Neighbor order follows relationship order.
func Build(relationships []models.Relationship) *Graph {
	g := &Graph{adjacency: make(map[NodeRef][]Edge)}

	for i := range relationships {
		relation := &relationships[i]
		from, ok := NewNodeRef(relation.FromType, relation.FromID)
		if !ok {
			continue
		}
		to, ok := NewNodeRef(relation.ToType, relation.ToID)
		if !ok || from == to {
			continue
		}

		g.add(from, Edge{Target: to, Relation: relation})
		g.add(to, Edge{Target: from, Relation: relation})
		g.links = append(g.links, Link{From: from, To: to, Relation: relation})
	}

	return g
}

func (g *Graph) add(node NodeRef, edge Edge) {
	if _, ok := g.adjacency[node]; !ok {
		g.nodes = append(g.nodes, node)
	}
	g.adjacency[node] = append(g.adjacency[node], edge)
}

// Neighbors returns the edges leaving node, or nil for an unknown node.
func (g *Graph) Neighbors(node NodeRef) []Edge {
	return g.adjacency[node]
}

// Nodes returns every node in first-seen order.
func (g *Graph) Nodes() []NodeRef {
	return g.nodes
}

// Links returns the kept relationships in input order.
func (g *Graph) Links() []Link {
	return g.links
}

// EdgeCount is the number of relationships that made it into the graph.
func (g *Graph) EdgeCount() int {
	return len(g.links)
}

func (g *Graph) IsEmpty() bool {
	return len(g.links) == 0
}
