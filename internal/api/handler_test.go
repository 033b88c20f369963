// internal/api/handler_test.go
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"repometer/internal/model"
)

type stubQuerier struct {
	rows map[string][]model.TrafficRow
	err  error
}

func (q *stubQuerier) ObservationsFor(ctx context.Context, key model.RepoKey) ([]model.TrafficRow, error) {
	if q.err != nil {
		return nil, q.err
	}
	return q.rows[key.String()], nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestHealthCheck(t *testing.T) {
	router := NewRouter(&stubQuerier{}, testLogger())

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestGetObservations(t *testing.T) {
	q := &stubQuerier{rows: map[string][]model.TrafficRow{
		"github.com/acme/widget": {
			{
				URL: "github.com", Username: "alice", Owner: "acme", Repository: "widget",
				Date: time.Date(2026, 8, 29, 0, 0, 0, 0, time.UTC), Tag: "views_total", Value: "7",
			},
		},
	}}
	router := NewRouter(q, testLogger())

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet,
		"/v1/repos/acme/widget/observations?url=github.com", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var got []observationResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got, 1)
	assert.Equal(t, "2026-08-29", got[0].Date)
	assert.Equal(t, "views_total", got[0].Tag)
	assert.Equal(t, "7", got[0].Value)
}

func TestGetObservationsRequiresURL(t *testing.T) {
	router := NewRouter(&stubQuerier{}, testLogger())

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/repos/acme/widget/observations", nil))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetObservationsNotFound(t *testing.T) {
	router := NewRouter(&stubQuerier{}, testLogger())

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet,
		"/v1/repos/acme/unknown/observations?url=github.com", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetObservationsStoreError(t *testing.T) {
	router := NewRouter(&stubQuerier{err: fmt.Errorf("connection refused")}, testLogger())

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet,
		"/v1/repos/acme/widget/observations?url=github.com", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
