package ingestion

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/Gobusters/ectoinject"
	"github.com/Gobusters/ectoinject/ectocontainer"
	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/fern/pkg/middleware"
	"github.com/Ramsey-B/fern/pkg/models"
)

const (
	datasetID = "5b0c7a52-54b4-4b3c-9a43-0a4a5f2b8b11"
	sourceID  = "0f5a8e7e-2c1d-4d59-8f0e-3c0a1c7e2d22"
)

type fakeIngester struct {
	batch *models.RecordBatch
}

func (f *fakeIngester) Ingest(_ context.Context, batch models.RecordBatch) (*models.IngestResult, error) {
	f.batch = &batch
	return &models.IngestResult{
		DatasetID:  batch.DatasetID,
		SourceID:   batch.SourceID,
		RowsRead:   len(batch.Records),
		RowsStored: len(batch.Records),
	}, nil
}

func TestIngestRecords(t *testing.T) {
	tests := []struct {
		name     string
		source   string
		body     string
		wantCode int
	}{
		{
			name:     "should ingest a batch",
			source:   sourceID,
			body:     `{"record_type":"customer","records":[{"id":"c1","email":"a@x.io"},{"id":"c2"}]}`,
			wantCode: http.StatusCreated,
		},
		{
			name:     "should reject an empty batch",
			source:   sourceID,
			body:     `{"records":[]}`,
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "should reject a source that is not a uuid",
			source:   "not-a-uuid",
			body:     `{"records":[{"id":"c1"}]}`,
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "should reject malformed json",
			source:   sourceID,
			body:     `{"records":`,
			wantCode: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ingester := &fakeIngester{}
			container, err := ectoinject.NewDIContainer(ectocontainer.DIContainerConfig{
				ID:           uuid.NewString(),
				LoggerConfig: &ectocontainer.DIContainerLoggerConfig{Enabled: false},
			})
			require.NoError(t, err)
			require.NoError(t, ectoinject.RegisterInstance[Ingester](container, ingester))

			e := echo.New()
			e.HTTPErrorHandler = middleware.Error(ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {}))
			e.Use(middleware.Container(container.GetContainerID()))
			Register(e.Group("/api/v1/datasets"))

			req := httptest.NewRequest(http.MethodPost, "/api/v1/datasets/"+datasetID+"/sources/"+tt.source+"/records", strings.NewReader(tt.body))
			req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, req)

			require.Equal(t, tt.wantCode, rec.Code)
			if tt.wantCode != http.StatusCreated {
				assert.Nil(t, ingester.batch)
				return
			}

			require.NotNil(t, ingester.batch)
			assert.Equal(t, datasetID, ingester.batch.DatasetID)
			assert.Equal(t, sourceID, ingester.batch.SourceID)
			require.NotNil(t, ingester.batch.RecordType)
			assert.Equal(t, "customer", *ingester.batch.RecordType)
			assert.Len(t, ingester.batch.Records, 2)

			var result models.IngestResult
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
			assert.Equal(t, 2, result.RowsStored)
		})
	}
}
