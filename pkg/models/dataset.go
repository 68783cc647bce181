package models

import "time"

// DatasetStatus tracks where a dataset is in the ingest/transform lifecycle.
type DatasetStatus string

const (
	DatasetStatusActive       DatasetStatus = "ACTIVE"
	DatasetStatusIngested     DatasetStatus = "INGESTED"
	DatasetStatusTransforming DatasetStatus = "TRANSFORMING"
	DatasetStatusFinished     DatasetStatus = "FINISHED"
	DatasetStatusFailed       DatasetStatus = "FAILED"
)

// Dataset is a target schema plus the sources that feed it.
type Dataset struct {
	ID                string        `json:"id" db:"dataset_id"`
	Name              string        `json:"name" db:"name"`
	PrimaryRecordType *string       `json:"primary_record_type,omitempty" db:"primary_record_type"`
	Status            DatasetStatus `json:"status" db:"status"`
	CreatedAt         time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time     `json:"updated_at" db:"updated_at"`
}

// Source is one origin of raw records for a dataset.
type Source struct {
	ID        string    `json:"id" db:"source_id"`
	DatasetID string    `json:"dataset_id" db:"dataset_id"`
	Name      string    `json:"name" db:"name"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
