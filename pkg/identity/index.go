package identity

import (
	"time"

	"github.com/Ramsey-B/fern/pkg/extractor"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/normalizers"
)

// RecordContext is one raw record prepared for merging: its normalized
// payload plus the type and id it resolved to.
type RecordContext struct {
	SourceID   string
	Payload    map[string]any
	CreatedAt  *time.Time
	RecordType string
	RecordID   string
	RecordKey  string
}

// Index maps every canonical identifier variant to the contexts carrying it.
// Contexts keep their insertion order.
type Index struct {
	byID      map[string][]*RecordContext
	contexts  []*RecordContext
	members   map[*RecordContext]struct{}
	flattened map[*RecordContext]map[string]any
}

func NewIndex() *Index {
	return &Index{
		byID:      make(map[string][]*RecordContext),
		members:   make(map[*RecordContext]struct{}),
		flattened: make(map[*RecordContext]map[string]any),
	}
}

// BuildIndex normalizes each record's payload, resolves its type and
// candidate ids, and indexes it. Records without a type or any id are skipped.
func BuildIndex(records []models.RawRecord) *Index {
	idx := NewIndex()
	for i := range records {
		record := &records[i]
		payload := normalizers.NormalizePayload(record.Payload.GetValue())

		recordType := NormalizeType(ResolveType(payload))
		candidates := CollectCandidateIDs(payload, record.ID)
		if recordType == "" || len(candidates) == 0 {
			continue
		}

		createdAt := record.CreatedAt
		idx.Add(&RecordContext{
			SourceID:   record.SourceID,
			Payload:    payload,
			CreatedAt:  &createdAt,
			RecordType: recordType,
			RecordID:   candidates[0],
			RecordKey:  record.ID,
		}, candidates...)
	}
	return idx
}

// Add indexes ctx under every canonical variant of every id.
func (i *Index) Add(ctx *RecordContext, ids ...string) {
	if _, ok := i.members[ctx]; !ok {
		i.members[ctx] = struct{}{}
		i.contexts = append(i.contexts, ctx)
	}
	for _, id := range ids {
		for _, variant := range CanonicalIDs(id) {
			if !containsContext(i.byID[variant], ctx) {
				i.byID[variant] = append(i.byID[variant], ctx)
			}
		}
	}
}

// Contexts returns every indexed context in insertion order.
func (i *Index) Contexts() []*RecordContext {
	return i.contexts
}

func (i *Index) Len() int {
	return len(i.contexts)
}

// Find returns the contexts indexed under any variant of id. When some of
// them match recordType only those are returned.
func (i *Index) Find(id, recordType string) []*RecordContext {
	var aggregate []*RecordContext
	for _, variant := range CanonicalIDs(id) {
		for _, ctx := range i.byID[variant] {
			if !containsContext(aggregate, ctx) {
				aggregate = append(aggregate, ctx)
			}
		}
	}
	if len(aggregate) == 0 {
		return nil
	}

	normalizedType := NormalizeType(recordType)
	if normalizedType == "" {
		return aggregate
	}
	var matched []*RecordContext
	for _, ctx := range aggregate {
		if ctx.RecordType == normalizedType {
			matched = append(matched, ctx)
		}
	}
	if len(matched) == 0 {
		return aggregate
	}
	return matched
}

// FindByPayloadValue returns contexts with any flattened payload value whose
// normalized form equals the normalized id.
func (i *Index) FindByPayloadValue(id string) []*RecordContext {
	normalized := NormalizeID(id)
	if normalized == "" {
		return nil
	}

	var matches []*RecordContext
	for _, ctx := range i.contexts {
		for _, value := range i.flatten(ctx) {
			if NormalizeID(normalizers.Stringify(value)) == normalized {
				matches = append(matches, ctx)
				break
			}
		}
	}
	return matches
}

// FindByType returns every context of the given type.
func (i *Index) FindByType(recordType string) []*RecordContext {
	normalized := NormalizeType(recordType)
	if normalized == "" {
		return nil
	}

	var matches []*RecordContext
	for _, ctx := range i.contexts {
		if ctx.RecordType == normalized {
			matches = append(matches, ctx)
		}
	}
	return matches
}

func (i *Index) flatten(ctx *RecordContext) map[string]any {
	if flat, ok := i.flattened[ctx]; ok {
		return flat
	}
	flat := extractor.Flatten(ctx.Payload)
	i.flattened[ctx] = flat
	return flat
}

func containsContext(list []*RecordContext, ctx *RecordContext) bool {
	for _, c := range list {
		if c == ctx {
			return true
		}
	}
	return false
}
