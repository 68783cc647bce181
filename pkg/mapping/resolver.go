package mapping

import (
	"context"

	"github.com/Gobusters/ectolinq"
	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/fern/pkg/extractor"
	"github.com/Ramsey-B/fern/pkg/merging"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/normalizers"
)

// Resolver resolves target field values from a merged cluster.
type Resolver struct {
	logger ectologger.Logger
}

func NewResolver(logger ectologger.Logger) *Resolver {
	return &Resolver{logger: logger}
}

type resolution struct {
	ctx      context.Context
	merged   *merging.Merged
	mappings *Mappings
	flat     map[string]any
}

func (r *resolution) flattened() map[string]any {
	if r.flat == nil {
		r.flat = extractor.Flatten(r.merged.Global)
	}
	return r.flat
}

// Resolve returns one value per field keyed by field id. Fields that resolve
// to nothing are present with a nil value.
func (r *Resolver) Resolve(ctx context.Context, fields []models.DatasetField, mappings *Mappings, merged *merging.Merged) map[string]any {
	if mappings == nil {
		mappings = NewMappings(nil)
	}
	res := &resolution{ctx: ctx, merged: merged, mappings: mappings}

	result := make(map[string]any, len(fields))
	for _, field := range fields {
		result[field.ID] = r.resolveField(res, field)
	}

	allNil := len(ectolinq.Filter(fields, func(f models.DatasetField) bool {
		return result[f.ID] != nil
	})) == 0
	if allNil {
		for _, field := range fields {
			if key, ok := extractor.FindKeyFold(merged.Global, field.Name); ok {
				result[field.ID] = merged.Global[key]
			}
		}
	}

	return result
}

func (r *Resolver) resolveField(res *resolution, field models.DatasetField) any {
	for _, source := range res.merged.BySource() {
		if value, settled := r.applyMappings(res.ctx, field, res.mappings.Scoped(source.SourceID, field.ID), source.Payload); settled {
			return value
		}
	}

	if value, settled := r.applyMappings(res.ctx, field, res.mappings.ForField(field.ID), res.merged.Global); settled {
		return value
	}

	global := res.merged.Global
	if value, ok := global[field.Name]; ok && value != nil {
		return value
	}
	if value := extractor.Extract(global, field.Name); value != nil {
		return value
	}

	if key, ok := extractor.FindKeyFold(global, field.Name); ok && global[key] != nil {
		return global[key]
	}

	targets := append([]string{field.Name}, res.mappings.Paths(field.ID)...)
	for _, target := range targets {
		if value, ok := res.flattened()[extractor.NormalizeKey(target)]; ok && value != nil {
			return value
		}
	}

	if value := extractor.FuzzyLookup(global, field.Name); value != nil {
		return value
	}

	for _, source := range res.merged.BySource() {
		if value := extractor.FuzzyLookup(source.Payload, field.Name); value != nil {
			return value
		}
	}

	return nil
}

// applyMappings evaluates mappings in order. settled is true once a mapping
// yields a value or a required mapping is reached.
func (r *Resolver) applyMappings(ctx context.Context, field models.DatasetField, mappings []models.FieldMapping, payload map[string]any) (any, bool) {
	for _, mapping := range mappings {
		value := r.transform(ctx, field, mapping, extractor.Extract(payload, mapping.Path()))
		if value != nil || mapping.Required {
			return value, true
		}
	}
	return nil, false
}

func (r *Resolver) transform(ctx context.Context, field models.DatasetField, mapping models.FieldMapping, value any) any {
	out, err := normalizers.Apply(value, mapping.TransformType)
	if err != nil {
		r.logger.WithContext(ctx).WithFields(map[string]any{
			"field":          field.Name,
			"mapping_id":     mapping.ID,
			"transform_type": mapping.TransformType,
		}).WithError(err).Warn("Failed to apply transform, keeping original value")
	}
	return out
}
