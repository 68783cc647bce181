package kafka

import (
	"encoding/json"
	"time"

	"github.com/Ramsey-B/fern/pkg/models"
)

// IncomingMessage wraps a raw Kafka message with parsed headers
type IncomingMessage struct {
	Key       string
	Value     []byte
	Headers   map[string]string
	Partition int
	Offset    int64
	Timestamp time.Time
	Topic     string

	Batch *models.RecordBatch
}

// ParseRecordBatch parses the message value as a raw record batch. Dataset and
// source ids missing from the body are taken from the headers.
func (m *IncomingMessage) ParseRecordBatch() error {
	var batch models.RecordBatch
	if err := json.Unmarshal(m.Value, &batch); err != nil {
		return err
	}
	if batch.DatasetID == "" {
		batch.DatasetID = m.Headers[HeaderDatasetID]
	}
	if batch.SourceID == "" {
		batch.SourceID = m.Headers[HeaderSourceID]
	}
	m.Batch = &batch
	return nil
}

// GetDatasetID returns the dataset id of the parsed batch, else the header.
func (m *IncomingMessage) GetDatasetID() string {
	if m.Batch != nil && m.Batch.DatasetID != "" {
		return m.Batch.DatasetID
	}
	return m.Headers[HeaderDatasetID]
}
