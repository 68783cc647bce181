package ingestion

import (
	"context"
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectoinject"
	"github.com/labstack/echo/v4"

	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/utils"
)

type Ingester interface {
	Ingest(ctx context.Context, batch models.RecordBatch) (*models.IngestResult, error)
}

// RecordsRequest is a batch of raw payloads for one source. The dataset and
// source come from the path.
type RecordsRequest struct {
	DatasetID  string           `param:"datasetId" json:"-" validate:"required,uuid"`
	SourceID   string           `param:"sourceId" json:"-" validate:"required,uuid"`
	RecordType *string          `json:"record_type,omitempty" validate:"omitempty,min=1"`
	Records    []models.Payload `json:"records" validate:"required,min=1,dive,required"`
}

// Register registers ingestion routes under a datasets group
func Register(g *echo.Group) {
	g.POST("/:datasetId/sources/:sourceId/records", IngestRecords)
}

// IngestRecords stores a batch of raw payloads and derives relationships
func IngestRecords(c echo.Context) error {
	ctx := c.Request().Context()

	req, err := utils.BindRequest[RecordsRequest](c)
	if err != nil {
		return err
	}

	ctx, ingester, err := ectoinject.GetContext[Ingester](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	result, err := ingester.Ingest(ctx, models.RecordBatch{
		DatasetID:  req.DatasetID,
		SourceID:   req.SourceID,
		RecordType: req.RecordType,
		Records:    req.Records,
	})
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, result)
}
