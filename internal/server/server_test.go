package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stockpulse/stockpulse/internal/database"
)

func newTestDB(t *testing.T, name string) *database.DB {
	t.Helper()

	db, err := database.New(database.Config{
		Path:    fmt.Sprintf("file:%s_%s?mode=memory&cache=shared", t.Name(), name),
		Profile: database.ProfileStandard,
		Name:    name,
	})
	require.NoError(t, err)
	require.NoError(t, db.Migrate())
	t.Cleanup(func() { _ = db.Close() })

	return db
}

func newTestServer(t *testing.T) *Server {
	return New(Config{
		Log:        zerolog.Nop(),
		Port:       0,
		DataDir:    t.TempDir(),
		MarketDB:   newTestDB(t, "market"),
		AnalysisDB: newTestDB(t, "analysis"),
		CacheDB:    newTestDB(t, "cache"),
	})
}

func TestHealthEndpoint(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Status    string            `json:"status"`
		Service   string            `json:"service"`
		Databases map[string]string `json:"databases"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body.Status)
	assert.Equal(t, "stockpulse", body.Service)
	assert.Equal(t, "ok", body.Databases["market"])
	assert.Len(t, body.Databases, 3)
}

func TestHealthEndpointDegraded(t *testing.T) {
	s := newTestServer(t)
	require.NoError(t, s.databases["cache"].Close())

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "degraded")
}

func TestSystemStatusEndpoint(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/system/status", nil)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var status SystemStatusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.Equal(t, "running", status.Status)
	assert.NotEmpty(t, status.LastChecked)
}

func TestDatabaseStatsEndpoint(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/system/database/stats", nil)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var stats DatabaseStatsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	assert.Len(t, stats.Databases, 3)
}
