// Package relationships derives shared-identifier edges between raw records.
package relationships

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/fern/pkg/database"
	"github.com/Ramsey-B/fern/pkg/fingerprint"
	"github.com/Ramsey-B/fern/pkg/graph"
	"github.com/Ramsey-B/fern/pkg/identity"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/normalizers"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

// RelationPrefix prefixes the relation type of every derived edge.
const RelationPrefix = "shared_"

// DefaultRecordType is the descriptor type of a record that names none.
const DefaultRecordType = "record"

var (
	candidateNames    = []string{"id", "uid", "name", "code", "number"}
	candidateSuffixes = []string{"_id", "_uid", "_name", "_code", "_number"}
	identityKeys      = []string{"id", "uid", "uuid", "guid", "identifier", "record_id", "global_id"}
	metaIdentityKeys  = []string{"record_uid", "uid", "id"}
	metaTypeKeys      = []string{"destination_table", "wrapper_name", "record_type"}
)

// SourceRecords is one source's slice of raw payloads.
type SourceRecords struct {
	SourceID string
	Records  []models.Payload
}

// Deriver finds records that share a value under a candidate identifier
// field and links them with `shared_<field>` edges.
type Deriver struct {
	logger ectologger.Logger
	now    func() time.Time
}

func NewDeriver(logger ectologger.Logger) *Deriver {
	return &Deriver{
		logger: logger,
		now:    time.Now,
	}
}

type descriptor struct {
	identity   string
	recordType string
	index      int
	sourceID   string
}

type bucket struct {
	field       string
	descriptors []descriptor
}

// Derive links the records of a single source.
func (d *Deriver) Derive(ctx context.Context, sourceID string, records []models.Payload) []models.Relationship {
	return d.DeriveAcrossSources(ctx, []SourceRecords{{SourceID: sourceID, Records: records}})
}

// DeriveAcrossSources links records across every given source in one pass so
// identifiers shared between separately ingested sources produce edges.
// Each unordered pair is emitted at most once per relation type, oriented by
// (identity, type, ordinal), so the result does not depend on batch order.
func (d *Deriver) DeriveAcrossSources(ctx context.Context, batches []SourceRecords) []models.Relationship {
	ctx, span := tracing.StartSpan(ctx, "relationships.Deriver.DeriveAcrossSources")
	defer span.End()

	buckets := make(map[string]*bucket)
	ordinal := 0
	recordCount := 0
	for _, batch := range batches {
		for _, record := range batch.Records {
			desc := descriptor{
				identity:   resolveIdentity(record),
				recordType: resolveRecordType(record),
				index:      ordinal,
				sourceID:   batch.SourceID,
			}
			ordinal++
			recordCount++

			for field, value := range record {
				if !isCandidate(field, value) {
					continue
				}
				lowered := strings.ToLower(field)
				key := lowered + "::" + fingerprint.Canonical(value)
				b, ok := buckets[key]
				if !ok {
					b = &bucket{field: lowered}
					buckets[key] = b
				}
				b.descriptors = append(b.descriptors, desc)
			}
		}
	}

	keys := make([]string, 0, len(buckets))
	for k := range buckets {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	ingestedAt := d.now().UTC()
	seen := make(map[string]struct{})
	var relationships []models.Relationship
	for _, key := range keys {
		b := buckets[key]
		if len(b.descriptors) < 2 {
			continue
		}
		relationType := RelationPrefix + b.field
		payload := buildPayload(b.field, b.descriptors)

		for i := 0; i < len(b.descriptors); i++ {
			for j := i + 1; j < len(b.descriptors); j++ {
				from, to := order(b.descriptors[i], b.descriptors[j])
				// records that resolve to the same node would only loop back on it
				fromRef, _ := graph.NewNodeRef(from.recordType, from.identity)
				toRef, _ := graph.NewNodeRef(to.recordType, to.identity)
				if fromRef == toRef {
					continue
				}

				dedupe := relationType + "|" + from.identity + "|" + to.identity
				if _, ok := seen[dedupe]; ok {
					continue
				}
				seen[dedupe] = struct{}{}

				at := ingestedAt
				relationships = append(relationships, models.Relationship{
					SourceID:     from.sourceID,
					FromType:     from.recordType,
					FromID:       from.identity,
					ToType:       to.recordType,
					ToID:         to.identity,
					RelationType: relationType,
					Payload:      newPayload(payload),
					IngestedAt:   &at,
				})
			}
		}
	}

	d.logger.WithContext(ctx).WithFields(map[string]any{
		"sources":       len(batches),
		"records":       recordCount,
		"buckets":       len(buckets),
		"relationships": len(relationships),
	}).Debug("Derived relationships")

	return relationships
}

func order(a, b descriptor) (descriptor, descriptor) {
	if less(b, a) {
		return b, a
	}
	return a, b
}

func less(a, b descriptor) bool {
	if a.identity != b.identity {
		return a.identity < b.identity
	}
	if a.recordType != b.recordType {
		return a.recordType < b.recordType
	}
	return a.index < b.index
}

func buildPayload(field string, descriptors []descriptor) models.Payload {
	records := make([]any, 0, len(descriptors))
	seen := make(map[string]struct{})
	for _, desc := range descriptors {
		if _, ok := seen[desc.identity]; ok {
			continue
		}
		seen[desc.identity] = struct{}{}
		records = append(records, desc.identity)
	}
	return models.Payload{
		"field":   field,
		"records": records,
	}
}

func newPayload(p models.Payload) database.JSONB[models.Payload] {
	copied := make(models.Payload, len(p))
	for k, v := range p {
		copied[k] = v
	}
	return database.NewJSONB(copied)
}

func isCandidate(field string, value any) bool {
	if value == nil {
		return false
	}
	if s, ok := value.(string); ok && strings.TrimSpace(s) == "" {
		return false
	}
	lowered := strings.ToLower(field)
	for _, name := range candidateNames {
		if lowered == name {
			return true
		}
	}
	for _, suffix := range candidateSuffixes {
		if strings.HasSuffix(lowered, suffix) {
			return true
		}
	}
	return false
}

func resolveIdentity(record models.Payload) string {
	if v := firstText(record, identityKeys); v != "" {
		return v
	}
	if meta, ok := record[identity.MetaKey].(map[string]any); ok {
		if v := firstText(meta, metaIdentityKeys); v != "" {
			return v
		}
	}
	return fingerprint.Canonical(record)
}

func resolveRecordType(record models.Payload) string {
	if meta, ok := record[identity.MetaKey].(map[string]any); ok {
		for _, key := range metaTypeKeys {
			if v, ok := meta[key]; ok && v != nil {
				return normalizers.Stringify(v)
			}
		}
	}
	if v, ok := record["__theme__"]; ok && v != nil {
		return normalizers.Stringify(v)
	}
	if v, ok := record[identity.TableKey]; ok && v != nil {
		return normalizers.Stringify(v)
	}
	return DefaultRecordType
}

func firstText(m map[string]any, keys []string) string {
	for _, key := range keys {
		v, ok := m[key]
		if !ok || v == nil {
			continue
		}
		if s := normalizers.Stringify(v); strings.TrimSpace(s) != "" {
			return s
		}
	}
	return ""
}
