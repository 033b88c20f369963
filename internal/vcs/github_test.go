// internal/vcs/github_test.go
package vcs

import (
	"context"
	"fmt"
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

func newGitHubAdapter(t *testing.T, handler http.Handler) *GitHubAdapter {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	a := NewGitHubAdapter(NewRateTracker(0), slog.New(slog.NewTextHandler(io.Discard, nil)), 3)
	a.backoff = time.Millisecond
	a.apiBase = srv.URL
	a.now = func() time.Time { return time.Date(2026, 8, 30, 15, 4, 5, 0, time.UTC) }
	return a
}

func writeJSON(w http.ResponseWriter, body string) {
	w.Header().Set("Content-Type", "application/json")
	fmt.Fprint(w, body)
}

func githubFixtureMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v3/repos/acme/widget", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, `{"id":1,"name":"widget","stargazers_count":42,"forks_count":7}`)
	})
	mux.HandleFunc("/api/v3/repos/acme/widget/traffic/views", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, `{"count":19,"uniques":9,"views":[
			{"timestamp":"2026-08-28T00:00:00Z","count":12,"uniques":5},
			{"timestamp":"2026-08-29T00:00:00Z","count":7,"uniques":4}]}`)
	})
	mux.HandleFunc("/api/v3/repos/acme/widget/traffic/clones", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, `{"count":3,"uniques":2,"clones":[
			{"timestamp":"2026-08-29T00:00:00Z","count":3,"uniques":2}]}`)
	})
	return mux
}

func TestGitHubFetchNormalizesObservations(t *testing.T) {
	a := newGitHubAdapter(t, githubFixtureMux())

	obs, err := a.Fetch(context.Background(), "github.com", "acme", "widget", "tok")
	require.NoError(t, err)

	byKey := map[string]string{}
	for _, o := range obs {
		byKey[o.Date.Format(model.DateLayout)+"/"+o.Tag] = o.Value
	}
	assert.Equal(t, "42", byKey["2026-08-30/"+TagStargazers])
	assert.Equal(t, "7", byKey["2026-08-30/"+TagForks])
	assert.Equal(t, "12", byKey["2026-08-28/"+TagViewsTotal])
	assert.Equal(t, "5", byKey["2026-08-28/"+TagViewsUnique])
	assert.Equal(t, "7", byKey["2026-08-29/"+TagViewsTotal])
	assert.Equal(t, "3", byKey["2026-08-29/"+TagClonesTotal])
	assert.Equal(t, "2", byKey["2026-08-29/"+TagClonesUnique])
	assert.Len(t, obs, 8)
}

func TestGitHubFetchSendsToken(t *testing.T) {
	var auth atomic.Value
	mux := githubFixtureMux()
	a := newGitHubAdapter(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth.Store(r.Header.Get("Authorization"))
		mux.ServeHTTP(w, r)
	}))

	_, err := a.Fetch(context.Background(), "github.com", "acme", "widget", "secret-token")
	require.NoError(t, err)
	assert.Equal(t, "Bearer secret-token", auth.Load())
}

func TestGitHubFetchRetriesRateLimit(t *testing.T) {
	var repoCalls atomic.Int32
	mux := githubFixtureMux()
	a := newGitHubAdapter(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/repos/acme/widget") && repoCalls.Add(1) <= 2 {
			w.Header().Set("X-RateLimit-Limit", "5000")
			w.Header().Set("X-RateLimit-Remaining", "0")
			w.Header().Set("X-RateLimit-Reset", fmt.Sprint(time.Now().Unix()))
			w.WriteHeader(http.StatusForbidden)
			writeJSON(w, `{"message":"API rate limit exceeded"}`)
			return
		}
		mux.ServeHTTP(w, r)
	}))

	obs, err := a.Fetch(context.Background(), "github.com", "acme", "widget", "tok")
	require.NoError(t, err)
	assert.Equal(t, int32(3), repoCalls.Load(), "two rate-limited attempts then success")
	assert.NotEmpty(t, obs)
}

func TestGitHubFetchNotFound(t *testing.T) {
	a := newGitHubAdapter(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		writeJSON(w, `{"message":"Not Found"}`)
	}))

	_, err := a.Fetch(context.Background(), "github.com", "acme", "gone", "tok")
	require.Error(t, err)
	assert.Equal(t, errs.KindPlatformNotFound, errs.KindOf(err))
}

func TestGitHubFetchAuthFailure(t *testing.T) {
	a := newGitHubAdapter(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		writeJSON(w, `{"message":"Bad credentials"}`)
	}))

	_, err := a.Fetch(context.Background(), "github.com", "acme", "widget", "bad-tok")
	require.Error(t, err)
	assert.Equal(t, errs.KindPlatformAuth, errs.KindOf(err))
}

func TestGitHubFetchExhaustsRetriesOnServerErrors(t *testing.T) {
	var calls atomic.Int32
	a := newGitHubAdapter(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
		writeJSON(w, `{"message":"upstream error"}`)
	}))

	_, err := a.Fetch(context.Background(), "github.com", "acme", "widget", "tok")
	require.Error(t, err)
	assert.Equal(t, errs.KindTransient, errs.KindOf(err))
	assert.Equal(t, int32(3), calls.Load())
}
