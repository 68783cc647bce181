// Package mapping projects a cluster's merged payloads onto a dataset's
// target fields.
//
// Each field is resolved through a fixed chain, stopping at the first
// non-nil value:
//
//  1. source-scoped mappings, per contributing source, by ascending priority
//  2. every mapping of the field, scoped or not, against the global payload,
//     by ascending priority
//  3. the field name as a key (or path) of the global payload
//  4. the field name as a case-insensitive key
//  5. the field name and every mapping path as keys of the flattened payload
//  6. a fuzzy key search of the global payload
//  7. a fuzzy key search of each source payload
//
// A required mapping ends the chain even when it yields nil. When every field
// comes out nil, a final case-insensitive pass over the global payload runs.
package mapping

import (
	"sort"

	"github.com/Gobusters/ectolinq"

	"github.com/Ramsey-B/fern/pkg/models"
)

// Mappings indexes a dataset's field mappings by source and by field.
type Mappings struct {
	scoped  map[string]map[string][]models.FieldMapping
	byField map[string][]models.FieldMapping
}

func NewMappings(list []models.FieldMapping) *Mappings {
	m := &Mappings{
		scoped:  make(map[string]map[string][]models.FieldMapping),
		byField: make(map[string][]models.FieldMapping),
	}

	for _, mapping := range sortByPriority(list) {
		m.byField[mapping.FieldID] = append(m.byField[mapping.FieldID], mapping)
		if mapping.SourceID == nil || *mapping.SourceID == "" {
			continue
		}
		bySource, ok := m.scoped[*mapping.SourceID]
		if !ok {
			bySource = make(map[string][]models.FieldMapping)
			m.scoped[*mapping.SourceID] = bySource
		}
		bySource[mapping.FieldID] = append(bySource[mapping.FieldID], mapping)
	}

	return m
}

// Scoped returns the field's mappings for one source by ascending priority.
func (m *Mappings) Scoped(sourceID, fieldID string) []models.FieldMapping {
	return m.scoped[sourceID][fieldID]
}

// ForField returns all of the field's mappings, scoped or not, by ascending priority.
func (m *Mappings) ForField(fieldID string) []models.FieldMapping {
	return m.byField[fieldID]
}

// Paths returns every non-blank path declared for the field.
func (m *Mappings) Paths(fieldID string) []string {
	var paths []string
	for _, mapping := range m.byField[fieldID] {
		if mapping.SrcPath != "" {
			paths = append(paths, mapping.SrcPath)
		}
		if mapping.SrcJSONPath != "" {
			paths = append(paths, mapping.SrcJSONPath)
		}
	}
	return paths
}

// SortFields orders fields by position, fields without one last.
func SortFields(fields []models.DatasetField) []models.DatasetField {
	sorted := append([]models.DatasetField(nil), fields...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return lessNullsLast(sorted[i].Position, sorted[j].Position)
	})
	return sorted
}

func sortByPriority(list []models.FieldMapping) []models.FieldMapping {
	sorted := ectolinq.Filter(list, func(m models.FieldMapping) bool {
		return m.FieldID != ""
	})
	sort.SliceStable(sorted, func(i, j int) bool {
		return lessNullsLast(sorted[i].Priority, sorted[j].Priority)
	})
	return sorted
}

func lessNullsLast(a, b *int) bool {
	if a == nil || b == nil {
		return a != nil && b == nil
	}
	return *a < *b
}
