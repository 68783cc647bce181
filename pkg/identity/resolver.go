package identity

import (
	"sort"
	"strings"

	"github.com/Ramsey-B/fern/pkg/normalizers"
)

const (
	// TableKey names the record type when the record was read from a table.
	TableKey = "__table__"
	// MetaKey holds ingestion metadata such as record_uid and record_type.
	MetaKey = "__meta__"
)

var (
	metaTypeKeys      = []string{"destination_table", "record_type", "type"}
	metaCandidateKeys = []string{"record_uid", "recordUid", "id", "uid"}
	metaRecordIDKeys  = []string{"record_uid", "recordUid", "id"}
	recordIDKeys      = []string{"id", "uid", "record_id", "recordId"}
)

// ResolveType reads the raw (un-normalized) record type from a payload:
// "__table__", then the __meta__ type keys, then a top-level "type".
func ResolveType(payload map[string]any) string {
	if payload == nil {
		return ""
	}
	if table, ok := payload[TableKey]; ok && table != nil {
		return normalizers.Stringify(table)
	}
	if meta, ok := payload[MetaKey].(map[string]any); ok {
		if v := firstText(meta, metaTypeKeys); v != "" {
			return v
		}
	}
	if t, ok := payload["type"]; ok && t != nil {
		return normalizers.Stringify(t)
	}
	return ""
}

// ResolveRecordID reads the record's own id: __meta__ record_uid/recordUid/id,
// then top-level id/uid/record_id/recordId.
func ResolveRecordID(payload map[string]any) string {
	if payload == nil {
		return ""
	}
	if meta, ok := payload[MetaKey].(map[string]any); ok {
		if v := firstText(meta, metaRecordIDKeys); v != "" {
			return v
		}
	}
	return firstText(payload, recordIDKeys)
}

// CollectCandidateIDs lists every identifier a record may be referenced by,
// normalized and de-duplicated, in priority order:
//  1. __meta__ record_uid, recordUid, id, uid
//  2. top-level keys named "id" or ending in "id"
//  3. the resolved record id
//  4. fallbackID
//
// Top-level keys are visited in jsonb key order (shorter keys first, then
// bytewise) so the first candidate is stable across runs.
func CollectCandidateIDs(payload map[string]any, fallbackID string) []string {
	candidates := newOrderedSet()

	if payload != nil {
		if meta, ok := payload[MetaKey].(map[string]any); ok {
			for _, key := range metaCandidateKeys {
				if v, ok := meta[key]; ok && v != nil {
					candidates.add(NormalizeID(normalizers.Stringify(v)))
				}
			}
		}

		for _, key := range jsonbKeyOrder(payload) {
			v := payload[key]
			if v == nil {
				continue
			}
			if strings.HasSuffix(strings.ToLower(key), "id") {
				candidates.add(NormalizeID(normalizers.Stringify(v)))
			}
		}

		if direct := ResolveRecordID(payload); direct != "" {
			candidates.add(NormalizeID(direct))
		}
	}

	candidates.add(NormalizeID(fallbackID))

	return candidates.values()
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

func jsonbKeyOrder(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if len(keys[i]) != len(keys[j]) {
			return len(keys[i]) < len(keys[j])
		}
		return keys[i] < keys[j]
	})
	return keys
}
