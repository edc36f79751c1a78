package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/foliolens/foliolens/internal/config"
	"github.com/foliolens/foliolens/internal/core"
	apperrors "github.com/foliolens/foliolens/internal/errors"
	"github.com/foliolens/foliolens/internal/server/handlers"
)

type fakeReportStore struct {
	reports []core.ReportRecord
	prefs   *core.PreferenceRecord
	err     error
}

func (f *fakeReportStore) ListReports(ctx context.Context, limit int) ([]core.ReportRecord, error) {
	if f.err != nil {
		return nil, f.err
	}
	if limit < len(f.reports) {
		return f.reports[:limit], nil
	}
	return f.reports, nil
}

func (f *fakeReportStore) LatestPreferences(ctx context.Context) (*core.PreferenceRecord, error) {
	return f.prefs, f.err
}

type healthyChecker struct{}

func (healthyChecker) CheckHealth(ctx context.Context) error { return nil }

type failingChecker struct{}

func (failingChecker) CheckHealth(ctx context.Context) error { return errors.New("db gone") }

func newTestServer(store *fakeReportStore, checker handlers.HealthChecker) *Server {
	health := handlers.NewHealthManager("test")
	if checker != nil {
		health.RegisterChecker("store", checker)
	}

	return New(Options{
		Config: config.ServerConfig{Host: "127.0.0.1", Port: 0},
		Health: health,
		Reports: &handlers.ReportsHandler{
			Reports:     store,
			Preferences: store,
		},
	})
}

func TestServerUsesStandardErrorHandlers(t *testing.T) {
	srv := newTestServer(&fakeReportStore{}, healthyChecker{})

	req := httptest.NewRequest(http.MethodGet, "/does-not-exist", nil)
	rec := httptest.NewRecorder()

	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)

	var body apperrors.HTTPErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	require.Equal(t, "NOT_FOUND", body.Error.Code)
	require.NotEmpty(t, body.Error.RequestID)
}

func TestHealthEndpointReportsCheckers(t *testing.T) {
	srv := newTestServer(&fakeReportStore{}, healthyChecker{})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()

	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var body handlers.HealthResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	require.Equal(t, "healthy", body.Status)
	require.Equal(t, "healthy", body.Checks["store"])
}

func TestHealthEndpointFailsWhenCheckerFails(t *testing.T) {
	srv := newTestServer(&fakeReportStore{}, failingChecker{})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()

	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestReportsEndpointListsReports(t *testing.T) {
	store := &fakeReportStore{
		reports: []core.ReportRecord{
			{ID: "r1", Filename: "portfolio_analysis_20250601_093000.md", Format: "markdown", CreatedAt: time.Now().UTC()},
			{ID: "r2", Filename: "portfolio_analysis_20250602_093000.md", Format: "json", CreatedAt: time.Now().UTC()},
		},
	}
	srv := newTestServer(store, healthyChecker{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/reports", nil)
	rec := httptest.NewRecorder()

	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var body handlers.ReportListResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	require.Equal(t, 2, body.Count)
	require.Equal(t, "r1", body.Reports[0].ID)
}

func TestReportsEndpointRejectsBadLimit(t *testing.T) {
	srv := newTestServer(&fakeReportStore{}, healthyChecker{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/reports?limit=zero", nil)
	rec := httptest.NewRecorder()

	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)

	var body apperrors.HTTPErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	require.Equal(t, "INVALID_INPUT", body.Error.Code)
}

func TestLatestPreferencesNotFound(t *testing.T) {
	srv := newTestServer(&fakeReportStore{}, healthyChecker{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/preferences/latest", nil)
	rec := httptest.NewRecorder()

	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestVersionEndpoint(t *testing.T) {
	srv := newTestServer(&fakeReportStore{}, healthyChecker{})

	req := httptest.NewRequest(http.MethodGet, "/version", nil)
	rec := httptest.NewRecorder()

	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var body handlers.VersionResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	require.Equal(t, "foliolens", body.App.Name)
}
