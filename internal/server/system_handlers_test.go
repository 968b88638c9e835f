package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/folio/internal/database"
	"github.com/aristath/folio/internal/scheduler"
)

type stubStats struct {
	name  string
	stats *database.Stats
	err   error
}

func (s *stubStats) Name() string {
	return s.name
}

func (s *stubStats) GetStats() (*database.Stats, error) {
	return s.stats, s.err
}

type stubRunner struct {
	jobs    []scheduler.JobInfo
	runErr  error
	ranName string
}

func (s *stubRunner) Jobs() []scheduler.JobInfo {
	return s.jobs
}

func (s *stubRunner) RunNow(name string) error {
	s.ranName = name
	return s.runErr
}

type envelope struct {
	Data     json.RawMessage        `json:"data"`
	Metadata map[string]interface{} `json:"metadata"`
	Error    string                 `json:"error"`
}

func systemRouter(t *testing.T, databases []StatsSource, runner JobRunner) *chi.Mux {
	t.Helper()
	h := NewSystemHandlers(t.TempDir(), databases, runner, zerolog.Nop())
	router := chi.NewRouter()
	h.RegisterRoutes(router)
	return router
}

func doRequest(t *testing.T, router http.Handler, method, path string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()

	req := httptest.NewRequest(method, path, nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return rec, env
}

func TestHandleSystemStatus(t *testing.T) {
	router := systemRouter(t, nil, &stubRunner{})

	rec, env := doRequest(t, router, "GET", "/system/status")
	require.Equal(t, http.StatusOK, rec.Code)

	var status SystemStatusResponse
	require.NoError(t, json.Unmarshal(env.Data, &status))
	assert.Equal(t, "healthy", status.Status)
	assert.Greater(t, status.Goroutines, 0)
	assert.NotEmpty(t, status.GoVersion)
	assert.GreaterOrEqual(t, status.NumCPU, 1)
	assert.GreaterOrEqual(t, status.UptimeSeconds, 0.0)
}

func TestHandleDatabaseStats(t *testing.T) {
	databases := []StatsSource{
		&stubStats{name: "portfolio", stats: &database.Stats{
			SizeBytes:     2 * 1024 * 1024,
			WALSizeBytes:  1024 * 1024,
			PageCount:     512,
			PageSize:      4096,
			FreelistCount: 3,
		}},
		&stubStats{name: "cache", err: errors.New("database is locked")},
	}
	router := systemRouter(t, databases, &stubRunner{})

	rec, env := doRequest(t, router, "GET", "/system/database/stats")
	require.Equal(t, http.StatusOK, rec.Code)

	var stats DatabaseStatsResponse
	require.NoError(t, json.Unmarshal(env.Data, &stats))
	require.Len(t, stats.Databases, 1)
	assert.Equal(t, "portfolio", stats.Databases[0].Name)
	assert.InDelta(t, 2.0, stats.Databases[0].SizeMB, 1e-9)
	assert.InDelta(t, 1.0, stats.Databases[0].WALSizeMB, 1e-9)
	assert.Equal(t, int64(512), stats.Databases[0].PageCount)
	assert.InDelta(t, 2.0, stats.TotalSizeMB, 1e-9)
	assert.NotEmpty(t, stats.LastChecked)
}

func TestHandleListJobs(t *testing.T) {
	now := time.Now().UTC()
	runner := &stubRunner{jobs: []scheduler.JobInfo{
		{Name: "history_sync", Schedule: "0 30 18 * * 1-5"},
		{Name: "quote_refresh", Schedule: "0 */15 9-17 * * 1-5", LastRun: &now, LastStatus: "ok"},
	}}
	router := systemRouter(t, nil, runner)

	rec, env := doRequest(t, router, "GET", "/system/jobs")
	require.Equal(t, http.StatusOK, rec.Code)

	var jobs []scheduler.JobInfo
	require.NoError(t, json.Unmarshal(env.Data, &jobs))
	require.Len(t, jobs, 2)
	assert.Equal(t, "history_sync", jobs[0].Name)
	assert.Equal(t, "ok", jobs[1].LastStatus)
}

func TestHandleTriggerJob(t *testing.T) {
	runner := &stubRunner{}
	router := systemRouter(t, nil, runner)

	rec, env := doRequest(t, router, "POST", "/system/jobs/quote_refresh")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "quote_refresh", runner.ranName)

	var result map[string]string
	require.NoError(t, json.Unmarshal(env.Data, &result))
	assert.Equal(t, "completed", result["status"])
}

func TestHandleTriggerJobUnknown(t *testing.T) {
	runner := &stubRunner{runErr: scheduler.ErrUnknownJob}
	router := systemRouter(t, nil, runner)

	rec, env := doRequest(t, router, "POST", "/system/jobs/nope")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, env.Error, "unknown job")
}

func TestHandleTriggerJobFailure(t *testing.T) {
	runner := &stubRunner{runErr: errors.New("provider down")}
	router := systemRouter(t, nil, runner)

	rec, env := doRequest(t, router, "POST", "/system/jobs/quote_refresh")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, env.Error, "provider down")
}
