package models

import "time"

// RunStatus is the state of a transform run.
type RunStatus string

const (
	RunStatusRunning RunStatus = "RUNNING"
	RunStatusSuccess RunStatus = "SUCCESS"
	RunStatusFailed  RunStatus = "FAILED"
)

// TransformRun records one full-replace transform of a dataset.
type TransformRun struct {
	ID           string     `json:"id" db:"transform_run_id"`
	DatasetID    string     `json:"dataset_id" db:"dataset_id"`
	Status       RunStatus  `json:"run_status" db:"run_status"`
	StartedAt    time.Time  `json:"started_at" db:"started_at"`
	EndedAt      *time.Time `json:"ended_at,omitempty" db:"ended_at"`
	RowsIn       int        `json:"rows_in" db:"rows_in"`
	RowsOut      int        `json:"rows_out" db:"rows_out"`
	ErrorMessage *string    `json:"error_message,omitempty" db:"error_message"`
}
