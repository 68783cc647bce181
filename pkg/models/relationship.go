package models

import (
	"time"

	"github.com/Ramsey-B/fern/pkg/database"
)

// Relationship is a directed edge between two records that likely describe connected or
// identical entities. Traversal treats it as undirected.
type Relationship struct {
	ID           string                  `json:"id" db:"relationship_id"`
	DatasetID    string                  `json:"dataset_id" db:"dataset_id"`
	SourceID     string                  `json:"source_id" db:"source_id"`
	FromType     string                  `json:"from_type" db:"from_type"`
	FromID       string                  `json:"from_id" db:"from_id"`
	ToType       string                  `json:"to_type" db:"to_type"`
	ToID         string                  `json:"to_id" db:"to_id"`
	RelationType string                  `json:"relation_type" db:"relation_type"`
	Payload      database.JSONB[Payload] `json:"payload,omitempty" db:"payload"`
	IngestedAt   *time.Time              `json:"ingested_at,omitempty" db:"ingested_at"`
}
