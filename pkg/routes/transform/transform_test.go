package transform

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
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

const datasetID = "5b0c7a52-54b4-4b3c-9a43-0a4a5f2b8b11"

type fakeRunner struct {
	run *models.TransformRun
	err error
	got string
}

func (f *fakeRunner) Run(_ context.Context, id string) (*models.TransformRun, error) {
	f.got = id
	return f.run, f.err
}

type fakeRuns struct {
	runs      map[string]*models.TransformRun
	lastLimit int
}

func (f *fakeRuns) Get(_ context.Context, _, runID string) (*models.TransformRun, error) {
	run, ok := f.runs[runID]
	if !ok {
		return nil, httperror.NewHTTPErrorf(http.StatusNotFound, "transform run %s not found", runID)
	}
	return run, nil
}

func (f *fakeRuns) ListByDataset(_ context.Context, _ string, limit int) ([]models.TransformRun, error) {
	f.lastLimit = limit
	out := []models.TransformRun{}
	for _, run := range f.runs {
		out = append(out, *run)
	}
	return out, nil
}

func newServer(t *testing.T, runner Runner, runs RunReader) *echo.Echo {
	container, err := ectoinject.NewDIContainer(ectocontainer.DIContainerConfig{
		ID:           uuid.NewString(),
		LoggerConfig: &ectocontainer.DIContainerLoggerConfig{Enabled: false},
	})
	require.NoError(t, err)
	if runner != nil {
		require.NoError(t, ectoinject.RegisterInstance[Runner](container, runner))
	}
	if runs != nil {
		require.NoError(t, ectoinject.RegisterInstance[RunReader](container, runs))
	}

	e := echo.New()
	e.HTTPErrorHandler = middleware.Error(ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {}))
	e.Use(middleware.Container(container.GetContainerID()))
	Register(e.Group("/api/v1/datasets"))
	return e
}

func TestRunTransform(t *testing.T) {
	t.Run("should return the finished run", func(t *testing.T) {
		runner := &fakeRunner{run: &models.TransformRun{ID: "run-1", DatasetID: datasetID, Status: models.RunStatusSuccess, RowsIn: 4, RowsOut: 2}}
		e := newServer(t, runner, &fakeRuns{})

		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/datasets/"+datasetID+"/transform", nil))

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, datasetID, runner.got)

		var body models.TransformRun
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, models.RunStatusSuccess, body.Status)
		assert.Equal(t, 2, body.RowsOut)
	})

	t.Run("should surface a lock conflict as 409", func(t *testing.T) {
		runner := &fakeRunner{err: httperror.NewHTTPError(http.StatusConflict, "a transform is already running")}
		e := newServer(t, runner, &fakeRuns{})

		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/datasets/"+datasetID+"/transform", nil))

		assert.Equal(t, http.StatusConflict, rec.Code)
	})

	t.Run("should return 500 for a failed run", func(t *testing.T) {
		runner := &fakeRunner{err: errors.New("failed to replace unified rows: boom")}
		e := newServer(t, runner, &fakeRuns{})

		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/datasets/"+datasetID+"/transform", nil))

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	})

	t.Run("should return 500 when no runner is registered", func(t *testing.T) {
		e := newServer(t, nil, &fakeRuns{})

		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/datasets/"+datasetID+"/transform", nil))

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	})
}

func TestRuns(t *testing.T) {
	runs := &fakeRuns{runs: map[string]*models.TransformRun{
		"run-1": {ID: "run-1", DatasetID: datasetID, Status: models.RunStatusFailed, StartedAt: time.Now()},
	}}
	e := newServer(t, &fakeRunner{}, runs)

	tests := []struct {
		name      string
		path      string
		wantCode  int
		wantLimit int
	}{
		{name: "should get a run", path: "/transform-runs/run-1", wantCode: http.StatusOK},
		{name: "should return 404 for an unknown run", path: "/transform-runs/missing", wantCode: http.StatusNotFound},
		{name: "should list runs", path: "/transform-runs", wantCode: http.StatusOK},
		{name: "should pass the limit through", path: "/transform-runs?limit=5", wantCode: http.StatusOK, wantLimit: 5},
		{name: "should reject a bad limit", path: "/transform-runs?limit=abc", wantCode: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runs.lastLimit = 0
			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/datasets/"+datasetID+tt.path, nil))

			assert.Equal(t, tt.wantCode, rec.Code)
			assert.Equal(t, tt.wantLimit, runs.lastLimit)
		})
	}
}
