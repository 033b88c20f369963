// internal/vcs/gitlab_test.go
package vcs

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"repometer/internal/errs"
	"repometer/internal/model"
)

func newGitLabAdapter(t *testing.T, handler http.Handler) *GitLabAdapter {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	a := NewGitLabAdapter(NewRateTracker(0), slog.New(slog.NewTextHandler(io.Discard, nil)), 3)
	a.backoff = time.Millisecond
	a.apiBase = srv.URL
	a.now = func() time.Time { return time.Date(2026, 8, 30, 15, 4, 5, 0, time.UTC) }
	return a
}

func gitlabFixtureHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasSuffix(r.URL.Path, "/forks"):
			w.Header().Set("Content-Type", "application/json")
			if r.URL.Query().Get("page") == "2" {
				writeJSON(w, `[{"id":4}]`)
				return
			}
			w.Header().Set("X-Next-Page", "2")
			writeJSON(w, `[{"id":2},{"id":3}]`)
		case strings.HasSuffix(r.URL.Path, "/statistics"):
			writeJSON(w, `{"fetches":{"total":50,"days":[
				{"count":10,"date":"2026-08-28"},
				{"count":40,"date":"2026-08-29"}]}}`)
		case strings.Contains(r.URL.Path, "/projects/"):
			writeJSON(w, `{"id":1,"path_with_namespace":"acme/widget","star_count":5}`)
		default:
			http.NotFound(w, r)
		}
	}
}

func TestGitLabFetchNormalizesObservations(t *testing.T) {
	a := newGitLabAdapter(t, gitlabFixtureHandler())

	obs, err := a.Fetch(context.Background(), "gitlab.com", "acme", "widget", "tok")
	require.NoError(t, err)

	byKey := map[string]string{}
	for _, o := range obs {
		byKey[o.Date.Format(model.DateLayout)+"/"+o.Tag] = o.Value
	}
	assert.Equal(t, "5", byKey["2026-08-30/"+TagStargazers])
	assert.Equal(t, "3", byKey["2026-08-30/"+TagForks], "forks count drains all pages")
	assert.Equal(t, "10", byKey["2026-08-28/"+TagFetchCount])
	assert.Equal(t, "40", byKey["2026-08-29/"+TagFetchCount])
	assert.Len(t, obs, 4)
}

func TestGitLabFetchNotFound(t *testing.T) {
	a := newGitLabAdapter(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		writeJSON(w, `{"message":"404 Project Not Found"}`)
	}))

	_, err := a.Fetch(context.Background(), "gitlab.com", "acme", "gone", "tok")
	require.Error(t, err)
	assert.Equal(t, errs.KindPlatformNotFound, errs.KindOf(err))
}

func TestGitLabFetchAuthFailure(t *testing.T) {
	a := newGitLabAdapter(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		writeJSON(w, `{"message":"401 Unauthorized"}`)
	}))

	_, err := a.Fetch(context.Background(), "gitlab.com", "acme", "widget", "bad-tok")
	require.Error(t, err)
	assert.Equal(t, errs.KindPlatformAuth, errs.KindOf(err))
}

func TestGitLabFetchRetriesRateLimit(t *testing.T) {
	var calls atomic.Int32
	fixture := gitlabFixtureHandler()
	a := newGitLabAdapter(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.Header().Set("Retry-After", "0")
			w.WriteHeader(http.StatusTooManyRequests)
			writeJSON(w, `{"message":"429 Too Many Requests"}`)
			return
		}
		fixture.ServeHTTP(w, r)
	}))

	obs, err := a.Fetch(context.Background(), "gitlab.com", "acme", "widget", "tok")
	require.NoError(t, err)
	assert.NotEmpty(t, obs)
}

func TestGitLabFetchExhaustsRetriesOnServerErrors(t *testing.T) {
	var calls atomic.Int32
	a := newGitLabAdapter(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
		writeJSON(w, `{"message":"503 Service Unavailable"}`)
	}))

	_, err := a.Fetch(context.Background(), "gitlab.com", "acme", "widget", "tok")
	require.Error(t, err)
	assert.Equal(t, errs.KindTransient, errs.KindOf(err))
	assert.Equal(t, int32(3), calls.Load())
}
