package models

import (
	"time"

	"github.com/lib/pq"

	"github.com/Ramsey-B/fern/pkg/database"
)

// Payload is an arbitrary nested record body: maps, lists and scalars as decoded from JSON.
type Payload = map[string]any

// RawRecord is an immutable snapshot of one ingested entity observation.
type RawRecord struct {
	ID           string                  `json:"id" db:"raw_record_id"`
	DatasetID    string                  `json:"dataset_id" db:"dataset_id"`
	SourceID     string                  `json:"source_id" db:"source_id"`
	Payload      database.JSONB[Payload] `json:"payload" db:"payload"`
	PayloadHash  string                  `json:"payload_hash" db:"payload_hash"`
	RecordType   *string                 `json:"record_type,omitempty" db:"record_type"`
	CandidateIDs pq.StringArray          `json:"candidate_ids" db:"candidate_ids"`
	CreatedAt    time.Time               `json:"created_at" db:"created_at"`
}

// IngestResult summarizes one stored batch.
type IngestResult struct {
	DatasetID     string `json:"dataset_id"`
	SourceID      string `json:"source_id"`
	RowsRead      int    `json:"rows_read"`
	RowsStored    int    `json:"rows_stored"`
	Relationships int    `json:"relationships"`
}

// RecordBatch is a batch of raw payloads submitted for one source of a dataset. RecordType,
// when set, is stamped onto payloads that carry no table name of their own.
type RecordBatch struct {
	DatasetID  string    `json:"dataset_id" validate:"required,uuid"`
	SourceID   string    `json:"source_id" validate:"required,uuid"`
	RecordType *string   `json:"record_type,omitempty" validate:"omitempty,min=1"`
	Records    []Payload `json:"records" validate:"required,min=1,dive,required"`
}
