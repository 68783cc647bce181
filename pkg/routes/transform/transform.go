package transform

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

type Runner interface {
	Run(ctx context.Context, datasetID string) (*models.TransformRun, error)
}

type RunReader interface {
	Get(ctx context.Context, datasetID, runID string) (*models.TransformRun, error)
	ListByDataset(ctx context.Context, datasetID string, limit int) ([]models.TransformRun, error)
}

// Register registers transform routes under a datasets group
func Register(g *echo.Group) {
	g.POST("/:datasetId/transform", RunTransform)
	g.GET("/:datasetId/transform-runs", ListRuns)
	g.GET("/:datasetId/transform-runs/:runId", GetRun)
}

// RunTransform runs a transform synchronously and returns the finished run
func RunTransform(c echo.Context) error {
	ctx := c.Request().Context()

	ctx, runner, err := ectoinject.GetContext[Runner](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	run, err := runner.Run(ctx, c.Param(middleware.DatasetParam))
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, run)
}

// GetRun gets a single run of the dataset
func GetRun(c echo.Context) error {
	ctx := c.Request().Context()

	ctx, runs, err := ectoinject.GetContext[RunReader](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	run, err := runs.Get(ctx, c.Param(middleware.DatasetParam), c.Param("runId"))
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, run)
}

// ListRuns lists the dataset's most recent runs
func ListRuns(c echo.Context) error {
	ctx := c.Request().Context()

	limit := 0
	if raw := c.QueryParam("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			return httperror.NewHTTPError(http.StatusBadRequest, "limit must be a positive integer")
		}
		limit = parsed
	}

	ctx, runs, err := ectoinject.GetContext[RunReader](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	list, err := runs.ListByDataset(ctx, c.Param(middleware.DatasetParam), limit)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, list)
}
