package merging

import (
	"github.com/Ramsey-B/fern/pkg/graph"
	"github.com/Ramsey-B/fern/pkg/identity"
	"github.com/Ramsey-B/fern/pkg/models"
)

// LookupChain finds the record contexts behind a graph node reached over a
// relationship. Steps run in order and the first non-empty result wins:
//  1. ByIdentifier: contexts indexed under any canonical variant of the id, preferring the node's type
//  2. ByPayloadValue: contexts with the id anywhere in their flattened payload
//  3. ByType: every context of the node's type
//  4. Placeholder: a synthetic context built from the relationship payload
//
// The placeholder is indexed so later lookups of the same node reuse it.
// Contexts of an excluded type are dropped from every step, so a step left
// empty by the exclusion falls through to the next.
type LookupChain struct {
	index    *identity.Index
	excluded string
}

func NewLookupChain(index *identity.Index) *LookupChain {
	return &LookupChain{index: index}
}

// Excluding returns a chain that never resolves to contexts of recordType.
func (c *LookupChain) Excluding(recordType string) *LookupChain {
	return &LookupChain{index: c.index, excluded: identity.NormalizeType(recordType)}
}

// Resolve never returns an empty slice.
func (c *LookupChain) Resolve(node graph.NodeRef, relation *models.Relationship) []*identity.RecordContext {
	if found := c.allowed(c.ByIdentifier(node)); len(found) > 0 {
		return found
	}
	if found := c.allowed(c.ByPayloadValue(node)); len(found) > 0 {
		return found
	}
	if found := c.allowed(c.ByType(node)); len(found) > 0 {
		return found
	}
	placeholder := Placeholder(node, relation)
	c.index.Add(placeholder, placeholder.RecordID)
	return []*identity.RecordContext{placeholder}
}

func (c *LookupChain) allowed(found []*identity.RecordContext) []*identity.RecordContext {
	if c.excluded == "" {
		return found
	}
	kept := make([]*identity.RecordContext, 0, len(found))
	for _, ctx := range found {
		if ctx.RecordType != c.excluded {
			kept = append(kept, ctx)
		}
	}
	return kept
}

func (c *LookupChain) ByIdentifier(node graph.NodeRef) []*identity.RecordContext {
	return c.index.Find(node.ID, node.Type)
}

func (c *LookupChain) ByPayloadValue(node graph.NodeRef) []*identity.RecordContext {
	return c.index.FindByPayloadValue(node.ID)
}

func (c *LookupChain) ByType(node graph.NodeRef) []*identity.RecordContext {
	return c.index.FindByType(node.Type)
}

// Placeholder synthesizes a context for a node no record backs, carrying the
// relationship's own payload plus __meta__ and __table__ markers.
func Placeholder(node graph.NodeRef, relation *models.Relationship) *identity.RecordContext {
	id := identity.NormalizeID(node.ID)
	recordType := identity.NormalizeType(node.Type)

	payload := make(map[string]any)
	var (
		sourceID  string
		recordKey string
	)
	if relation != nil {
		if id == "" {
			id = identity.NormalizeID(relation.ToID)
		}
		if id == "" {
			id = "relation-" + relation.ID
		}
		if recordType == "" {
			recordType = identity.NormalizeType(relation.ToType)
		}
		for k, v := range relation.Payload.Data {
			payload[k] = v
		}
		sourceID = relation.SourceID
		recordKey = relation.ID
	}

	meta := map[string]any{"record_uid": id}
	if recordType != "" {
		meta["type"] = recordType
		payload[identity.TableKey] = recordType
	}
	payload[identity.MetaKey] = meta

	ctx := &identity.RecordContext{
		SourceID:   sourceID,
		Payload:    payload,
		RecordType: recordType,
		RecordID:   id,
		RecordKey:  recordKey,
	}
	if relation != nil && relation.IngestedAt != nil {
		at := *relation.IngestedAt
		ctx.CreatedAt = &at
	}
	return ctx
}
