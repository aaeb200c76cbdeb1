// handlers_import_test.go - Tests for import job handlers
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vbc-logbook/backend/internal/importer"
	"github.com/vbc-logbook/backend/internal/jobs"
	"github.com/vbc-logbook/backend/internal/models"
)

// fakeImporter reports two statuses and optionally blocks until released
type fakeImporter struct {
	release chan struct{}
}

func (f *fakeImporter) RunFrom(ctx context.Context, _ importer.RootProvider, progress chan<- models.ImportStatus) (*models.ImportSummary, error) {
	progress <- models.ImportStatus{Status: importer.StatusReadingDirs, Percent: 0}
	if f.release != nil {
		select {
		case <-f.release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	progress <- models.ImportStatus{Status: importer.StatusImporting, Percent: 75}
	return &models.ImportSummary{Records: 1, Imported: 1}, nil
}

func newTestJobs(imp jobs.Importer) *jobs.Manager {
	return jobs.NewManager(imp, importer.StaticRoot("/controller"), nil)
}

func newImportServer(t *testing.T, mgr JobManager) *echo.Echo {
	t.Helper()
	e := echo.New()
	SetupMiddleware(e, MiddlewareOptions{})
	handlers := NewHandlers(&Dependencies{Jobs: mgr, Logbook: NewMockLogbook(), PollInterval: 5 * time.Millisecond})
	RegisterRoutes(e, handlers)
	RegisterWebSocketRoutes(e, handlers)
	return e
}

func decodeJob(t *testing.T, rec *httptest.ResponseRecorder) jobs.Job {
	t.Helper()
	var job jobs.Job
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &job))
	return job
}

func waitJobDone(t *testing.T, mgr *jobs.Manager, id string) jobs.Job {
	t.Helper()
	var job jobs.Job
	require.Eventually(t, func() bool {
		var err error
		job, err = mgr.Get(id)
		return err == nil && job.Done()
	}, 2*time.Second, 5*time.Millisecond)
	return job
}

func TestImportHandler_StartAndStatus(t *testing.T) {
	imp := &fakeImporter{release: make(chan struct{})}
	mgr := newTestJobs(imp)
	e := newImportServer(t, mgr)

	rec := serve(e, http.MethodPost, "/api/import", nil, nil)
	require.Equal(t, http.StatusAccepted, rec.Code)
	job := decodeJob(t, rec)
	require.NotEmpty(t, job.ID)

	// A second start while the first is blocked returns the running job.
	rec = serve(e, http.MethodPost, "/api/import", nil, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), job.ID)

	rec = serve(e, http.MethodGet, "/health", nil, nil)
	assert.Contains(t, rec.Body.String(), `"importerRunning":true`)

	close(imp.release)
	waitJobDone(t, mgr, job.ID)

	rec = serve(e, http.MethodGet, "/api/import/"+job.ID, nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	status := decodeJob(t, rec)
	assert.Equal(t, models.ImportComplete, status.State)
	assert.Equal(t, importer.StatusDone, status.Status.Status)
	assert.Equal(t, 100.0, status.Status.Percent)
	require.NotNil(t, status.Summary)
	assert.Equal(t, 1, status.Summary.Imported)

	rec = serve(e, http.MethodGet, "/api/import/latest", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, job.ID, decodeJob(t, rec).ID)
}

func TestImportHandler_NotFound(t *testing.T) {
	e := newImportServer(t, newTestJobs(&fakeImporter{}))

	tests := []struct {
		name   string
		method string
		target string
	}{
		{"latest without jobs", http.MethodGet, "/api/import/latest"},
		{"unknown status", http.MethodGet, "/api/import/nope"},
		{"unknown cancel", http.MethodDelete, "/api/import/nope"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(e, tt.method, tt.target, nil, nil)
			assert.Equal(t, http.StatusNotFound, rec.Code)
			assert.Equal(t, "NOT_FOUND", decodeAPIError(t, rec).Code)
		})
	}
}

func TestImportHandler_Cancel(t *testing.T) {
	mgr := newTestJobs(&fakeImporter{release: make(chan struct{})})
	e := newImportServer(t, mgr)

	rec := serve(e, http.MethodPost, "/api/import", nil, nil)
	require.Equal(t, http.StatusAccepted, rec.Code)
	job := decodeJob(t, rec)

	rec = serve(e, http.MethodDelete, "/api/import/"+job.ID, nil, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	done := waitJobDone(t, mgr, job.ID)
	assert.Equal(t, models.ImportAborted, done.State)
	assert.Equal(t, importer.StatusAborted, done.Status.Status)
	assert.Contains(t, done.Error, context.Canceled.Error())
}

func TestImportHandler_ProgressStream(t *testing.T) {
	imp := &fakeImporter{release: make(chan struct{})}
	mgr := newTestJobs(imp)
	e := newImportServer(t, mgr)

	job, err := mgr.Start(context.Background())
	require.NoError(t, err)
	go func() {
		time.Sleep(20 * time.Millisecond)
		close(imp.release)
	}()

	rec := serve(e, http.MethodGet, "/api/import/"+job.ID+"/progress", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))

	var statuses []models.ImportStatus
	for _, line := range strings.Split(rec.Body.String(), "\n") {
		data, ok := strings.CutPrefix(line, "data: ")
		if !ok {
			continue
		}
		var st models.ImportStatus
		require.NoError(t, json.Unmarshal([]byte(data), &st))
		statuses = append(statuses, st)
	}
	require.NotEmpty(t, statuses)
	last := statuses[len(statuses)-1]
	assert.True(t, last.Completed)
	assert.Equal(t, importer.StatusDone, last.Status)

	for i := 1; i < len(statuses); i++ {
		assert.NotEqual(t, statuses[i-1], statuses[i], "stream repeats unchanged status")
		assert.GreaterOrEqual(t, statuses[i].Percent, statuses[i-1].Percent)
	}
}

func TestImportHandler_ProgressStreamUnknownJob(t *testing.T) {
	e := newImportServer(t, newTestJobs(&fakeImporter{}))

	rec := serve(e, http.MethodGet, "/api/import/nope/progress", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"error":"import job not found"`)
}
