package models

import (
	"time"

	"github.com/Ramsey-B/fern/pkg/database"
)

// UnifiedRow is one resolved entity cluster projected onto a dataset's target schema.
// Data is keyed by dataset field id.
type UnifiedRow struct {
	ID         string                  `json:"id" db:"unified_row_id"`
	DatasetID  string                  `json:"dataset_id" db:"dataset_id"`
	SourceID   *string                 `json:"source_id,omitempty" db:"source_id"`
	RecordKey  string                  `json:"record_key" db:"record_key"`
	Data       database.JSONB[Payload] `json:"data" db:"data"`
	IsExcluded bool                    `json:"is_excluded" db:"is_excluded"`
	ObservedAt *time.Time              `json:"observed_at,omitempty" db:"observed_at"`
	IngestedAt time.Time               `json:"ingested_at" db:"ingested_at"`
}
