package unifiedrow

import (
	"context"
	"net/http"
	"strconv"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectoinject"
	"github.com/labstack/echo/v4"

	"github.com/Ramsey-B/fern/pkg/middleware"
	"github.com/Ramsey-B/fern/pkg/models"
)

type RowReader interface {
	ListByDataset(ctx context.Context, datasetID string, limit, offset int) ([]models.UnifiedRow, error)
}

// Page is a page of unified rows
type Page struct {
	Rows   []models.UnifiedRow `json:"rows"`
	Limit  int                 `json:"limit"`
	Offset int                 `json:"offset"`
}

// Register registers unified row routes under a datasets group
func Register(g *echo.Group) {
	g.GET("/:datasetId/unified-rows", List)
}

// List pages through the dataset's unified rows
func List(c echo.Context) error {
	ctx := c.Request().Context()

	limit, err := intQuery(c, "limit", 100)
	if err != nil {
		return err
	}
	offset, err := intQuery(c, "offset", 0)
	if err != nil {
		return err
	}

	ctx, reader, err := ectoinject.GetContext[RowReader](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	rows, err := reader.ListByDataset(ctx, c.Param(middleware.DatasetParam), limit, offset)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, Page{Rows: rows, Limit: limit, Offset: offset})
}

func intQuery(c echo.Context, name string, fallback int) (int, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return fallback, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value < 0 {
		return 0, httperror.NewHTTPErrorf(http.StatusBadRequest, "%s must be a non-negative integer", name)
	}
	return value, nil
}
