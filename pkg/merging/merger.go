// Package merging clusters indexed records around primary-type anchors and
// merges each cluster's payloads first-write-wins.
package merging

import (
	"github.com/Ramsey-B/fern/pkg/identity"
	"github.com/Ramsey-B/fern/pkg/normalizers"
)

// Merged holds one cluster's merged payloads: a global view and one view per
// contributing source. A key, once set to a non-nil value, is never replaced.
type Merged struct {
	Global   map[string]any
	bySource map[string]map[string]any
	sources  []string
}

func NewMerged() *Merged {
	return &Merged{
		Global:   make(map[string]any),
		bySource: make(map[string]map[string]any),
	}
}

// SourcePayload is one source's merged view.
type SourcePayload struct {
	SourceID string
	Payload  map[string]any
}

// BySource returns the per-source views in the order sources first contributed.
func (m *Merged) BySource() []SourcePayload {
	out := make([]SourcePayload, 0, len(m.sources))
	for _, id := range m.sources {
		out = append(out, SourcePayload{SourceID: id, Payload: m.bySource[id]})
	}
	return out
}

// Source returns the merged view of one source, or nil.
func (m *Merged) Source(sourceID string) map[string]any {
	return m.bySource[sourceID]
}

// AddContext merges a record into its source's view (when it has a source)
// and into the global view.
func (m *Merged) AddContext(ctx *identity.RecordContext) {
	if ctx == nil {
		return
	}
	payload := normalizers.NormalizePayload(ctx.Payload)
	if ctx.SourceID != "" {
		target, ok := m.bySource[ctx.SourceID]
		if !ok {
			target = make(map[string]any)
			m.bySource[ctx.SourceID] = target
			m.sources = append(m.sources, ctx.SourceID)
		}
		putAll(target, payload)
	}
	putAll(m.Global, payload)
}

// AddPayload merges a payload into the global view only.
func (m *Merged) AddPayload(payload map[string]any) {
	if payload == nil {
		return
	}
	putAll(m.Global, normalizers.NormalizePayload(payload))
}

// Merge applies primary contexts, then relationship payloads, then related
// contexts, so the anchor's own values win every conflict.
func Merge(primary []*identity.RecordContext, relationPayloads []map[string]any, related []*identity.RecordContext) *Merged {
	merged := NewMerged()
	for _, ctx := range primary {
		merged.AddContext(ctx)
	}
	for _, payload := range relationPayloads {
		merged.AddPayload(payload)
	}
	for _, ctx := range related {
		merged.AddContext(ctx)
	}
	return merged
}

func putAll(target, source map[string]any) {
	for key, value := range source {
		safePut(target, key, value)
	}
}

func safePut(target map[string]any, key string, value any) {
	normalized := normalizers.NormalizeValue(value)
	if normalized == nil {
		return
	}
	if existing, ok := target[key]; ok && existing != nil {
		return
	}
	target[key] = normalized
}
