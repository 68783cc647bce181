package kafka

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIncomingMessage_ParseRecordBatch(t *testing.T) {
	t.Run("should parse the batch body", func(t *testing.T) {
		msg := &IncomingMessage{
			Value: []byte(`{"dataset_id":"ds-1","source_id":"src-1","record_type":"order","records":[{"order_id":"O-1"}]}`),
		}

		require.NoError(t, msg.ParseRecordBatch())

		assert.Equal(t, "ds-1", msg.Batch.DatasetID)
		assert.Equal(t, "src-1", msg.Batch.SourceID)
		require.NotNil(t, msg.Batch.RecordType)
		assert.Equal(t, "order", *msg.Batch.RecordType)
		assert.Equal(t, "O-1", msg.Batch.Records[0]["order_id"])
	})

	t.Run("should fall back to headers for ids", func(t *testing.T) {
		msg := &IncomingMessage{
			Value:   []byte(`{"records":[{"id":1}]}`),
			Headers: map[string]string{HeaderDatasetID: "ds-h", HeaderSourceID: "src-h"},
		}

		require.NoError(t, msg.ParseRecordBatch())

		assert.Equal(t, "ds-h", msg.Batch.DatasetID)
		assert.Equal(t, "src-h", msg.Batch.SourceID)
		assert.Equal(t, "ds-h", msg.GetDatasetID())
	})

	t.Run("should fail on malformed json", func(t *testing.T) {
		msg := &IncomingMessage{Value: []byte(`{not json`)}

		assert.Error(t, msg.ParseRecordBatch())
		assert.Nil(t, msg.Batch)
	})
}
