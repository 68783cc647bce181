package merging

import (
	"context"
	"sort"
	"time"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/fern/pkg/graph"
	"github.com/Ramsey-B/fern/pkg/identity"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

// Cluster is one unit of output: an anchor's own contexts, the contexts
// reached from it, and the payloads of the relationships traversed.
type Cluster struct {
	Anchor           graph.NodeRef
	Primary          []*identity.RecordContext
	Related          []*identity.RecordContext
	RelationPayloads []map[string]any
}

// Size is the number of record contexts feeding the cluster.
func (c Cluster) Size() int {
	return len(c.Primary) + len(c.Related)
}

// Merge merges the cluster's payloads.
func (c Cluster) Merge() *Merged {
	return Merge(c.Primary, c.RelationPayloads, c.Related)
}

func (c Cluster) primaryContext() *identity.RecordContext {
	if len(c.Primary) > 0 {
		return c.Primary[0]
	}
	return nil
}

func (c Cluster) relatedContext() *identity.RecordContext {
	if len(c.Related) > 0 {
		return c.Related[0]
	}
	return nil
}

// SourceID is the anchor's source, else the first related record's source.
func (c Cluster) SourceID() *string {
	for _, ctx := range []*identity.RecordContext{c.primaryContext(), c.relatedContext()} {
		if ctx != nil && ctx.SourceID != "" {
			id := ctx.SourceID
			return &id
		}
	}
	return nil
}

// ObservedAt is the anchor's observation time, else the first related record's.
func (c Cluster) ObservedAt() *time.Time {
	if p := c.primaryContext(); p != nil && p.CreatedAt != nil {
		return p.CreatedAt
	}
	if r := c.relatedContext(); r != nil {
		return r.CreatedAt
	}
	return nil
}

// RecordKey joins the anchor's and the first related record's keys, falling
// back to their ids and then to the anchor alone.
func (c Cluster) RecordKey() string {
	var primaryKey, relatedKey, relatedID string
	primaryID := c.Anchor.ID
	if p := c.primaryContext(); p != nil {
		primaryKey = p.RecordKey
		primaryID = p.RecordID
	}
	if r := c.relatedContext(); r != nil {
		relatedKey = r.RecordKey
		relatedID = r.RecordID
	}

	switch {
	case primaryKey != "" && relatedKey != "":
		return primaryKey + ":" + relatedKey
	case primaryID != "" && relatedID != "":
		return primaryID + ":" + relatedID
	case primaryKey != "":
		return primaryKey
	default:
		return primaryID
	}
}

// Engine builds clusters by breadth-first traversal from each primary node.
type Engine struct {
	logger ectologger.Logger
}

func NewEngine(logger ectologger.Logger) *Engine {
	return &Engine{logger: logger}
}

type nodeContexts struct {
	order []graph.NodeRef
	byRef map[graph.NodeRef][]*identity.RecordContext
}

func groupByNode(idx *identity.Index) *nodeContexts {
	nc := &nodeContexts{byRef: make(map[graph.NodeRef][]*identity.RecordContext)}
	for _, ctx := range idx.Contexts() {
		ref, ok := graph.NewNodeRef(ctx.RecordType, ctx.RecordID)
		if !ok {
			continue
		}
		if _, seen := nc.byRef[ref]; !seen {
			nc.order = append(nc.order, ref)
		}
		nc.byRef[ref] = append(nc.byRef[ref], ctx)
	}
	return nc
}

// Cluster groups the indexed records into clusters anchored on primaryType.
// Without any relationships every indexed record is its own cluster. The
// relationships slice is not modified.
func (e *Engine) Cluster(ctx context.Context, primaryType string, idx *identity.Index, relationships []models.Relationship) []Cluster {
	ctx, span := tracing.StartSpan(ctx, "merging.Engine.Cluster")
	defer span.End()

	log := e.logger.WithContext(ctx).WithFields(map[string]any{
		"primary_type":  primaryType,
		"records":       idx.Len(),
		"relationships": len(relationships),
	})

	if len(relationships) == 0 {
		log.Warn("No relationships found, producing one row per record")
		clusters := make([]Cluster, 0, idx.Len())
		for _, rc := range idx.Contexts() {
			anchor, _ := graph.NewNodeRef(rc.RecordType, rc.RecordID)
			clusters = append(clusters, Cluster{
				Anchor:  anchor,
				Primary: []*identity.RecordContext{rc},
			})
		}
		return clusters
	}

	primary := identity.NormalizeType(primaryType)
	g := graph.Build(OrderRelationships(relationships, primary))
	contexts := groupByNode(idx)
	lookup := NewLookupChain(idx).Excluding(primary)

	processed := make(map[string]struct{})
	var clusters []Cluster
	for _, anchor := range contexts.order {
		if anchor.Type != primary {
			continue
		}
		if _, done := processed[anchor.ID]; done {
			continue
		}
		processed[anchor.ID] = struct{}{}

		cluster := e.traverse(anchor, primary, g, contexts, lookup)
		if cluster.Size() == 0 {
			continue
		}
		clusters = append(clusters, cluster)
	}

	log.WithFields(map[string]any{
		"graph_nodes": len(g.Nodes()),
		"graph_edges": g.EdgeCount(),
		"clusters":    len(clusters),
	}).Info("Built clusters")

	return clusters
}

func (e *Engine) traverse(anchor graph.NodeRef, primary string, g *graph.Graph, contexts *nodeContexts, lookup *LookupChain) Cluster {
	cluster := Cluster{
		Anchor:  anchor,
		Primary: append([]*identity.RecordContext(nil), contexts.byRef[anchor]...),
	}

	// a record feeds a cluster once; primary records only through their own anchor
	members := make(map[*identity.RecordContext]struct{}, len(cluster.Primary))
	for _, rc := range cluster.Primary {
		members[rc] = struct{}{}
	}

	visited := map[graph.NodeRef]struct{}{anchor: {}}
	queue := []graph.NodeRef{anchor}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		for _, edge := range g.Neighbors(current) {
			target := edge.Target

			// another anchor's entity stays in its own cluster
			if target.Type == primary && target.ID != anchor.ID {
				continue
			}

			if edge.Relation.Payload.Data != nil {
				cluster.RelationPayloads = append(cluster.RelationPayloads, edge.Relation.Payload.Data)
			}

			if _, seen := visited[target]; seen {
				continue
			}
			visited[target] = struct{}{}
			queue = append(queue, target)

			found, ok := contexts.byRef[target]
			if !ok || len(found) == 0 {
				found = lookup.Resolve(target, edge.Relation)
				contexts.byRef[target] = found
			}
			for _, rc := range found {
				if rc.RecordType == primary {
					continue
				}
				if _, member := members[rc]; member {
					continue
				}
				members[rc] = struct{}{}
				cluster.Related = append(cluster.Related, rc)
			}
		}
	}

	return cluster
}

// OrderRelationships returns a copy sorted by the id on the primary side
// (relationships touching no primary-type endpoint last), then by ingest
// time with unknown times last.
func OrderRelationships(relationships []models.Relationship, primaryType string) []models.Relationship {
	primary := identity.NormalizeType(primaryType)
	sorted := append([]models.Relationship(nil), relationships...)

	primaryID := func(r models.Relationship) string {
		if identity.NormalizeType(r.FromType) == primary {
			return r.FromID
		}
		if identity.NormalizeType(r.ToType) == primary {
			return r.ToID
		}
		return ""
	}

	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := primaryID(sorted[i]), primaryID(sorted[j])
		if (a == "") != (b == "") {
			return a != ""
		}
		if a != b {
			return a < b
		}
		ta, tb := sorted[i].IngestedAt, sorted[j].IngestedAt
		if (ta == nil) != (tb == nil) {
			return ta != nil
		}
		if ta != nil && !ta.Equal(*tb) {
			return ta.Before(*tb)
		}
		return false
	})
	return sorted
}
