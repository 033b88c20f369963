// internal/api/handler.go
package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"repometer/internal/model"
)

// Querier is the read-only slice of the store the API serves from.
type Querier interface {
	ObservationsFor(ctx context.Context, key model.RepoKey) ([]model.TrafficRow, error)
}

// Handler is the container for API dependencies.
type Handler struct {
	db     Querier
	logger *slog.Logger
}

// NewRouter creates and configures a new chi router with all API routes.
func NewRouter(db Querier, logger *slog.Logger) http.Handler {
	h := &Handler{
		db:     db,
		logger: logger,
	}

	r := chi.NewRouter()

	// Middleware stack
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Get("/health", h.healthCheck)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())
	r.Route("/v1", func(r chi.Router) {
		r.Get("/repos/{owner}/{name}/observations", h.getObservations)
	})

	return r
}

// healthCheck is a simple health endpoint.
func (h *Handler) healthCheck(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// observationResponse is the wire shape of one stored traffic reading.
type observationResponse struct {
	URL        string `json:"url"`
	Username   string `json:"username"`
	Owner      string `json:"owner"`
	Repository string `json:"repository"`
	Date       string `json:"date"`
	Tag        string `json:"tag"`
	Value      string `json:"value"`
}

// getObservations returns the stored observations for one repository.
// GET /v1/repos/{owner}/{name}/observations?url=github.com
func (h *Handler) getObservations(w http.ResponseWriter, r *http.Request) {
	owner := chi.URLParam(r, "owner")
	name := chi.URLParam(r, "name")

	platformURL := r.URL.Query().Get("url")
	if platformURL == "" {
		respondWithError(w, http.StatusBadRequest, "Missing 'url' parameter identifying the hosting platform.")
		return
	}

	key := model.RepoKey{URL: platformURL, Owner: owner, Repository: name}
	rows, err := h.db.ObservationsFor(r.Context(), key)
	if err != nil {
		h.logger.Error("Failed to get observations", "repo", key.String(), "error", err)
		respondWithError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	if len(rows) == 0 {
		respondWithError(w, http.StatusNotFound, "No observations stored for this repository")
		return
	}

	out := make([]observationResponse, 0, len(rows))
	for _, row := range rows {
		out = append(out, observationResponse{
			URL:        row.URL,
			Username:   row.Username,
			Owner:      row.Owner,
			Repository: row.Repository,
			Date:       row.Date.Format(model.DateLayout),
			Tag:        row.Tag,
			Value:      row.Value,
		})
	}
	respondWithJSON(w, http.StatusOK, out)
}

func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, map[string]string{"error": message})
}

func respondWithJSON(w http.ResponseWriter, code int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(payload)
}
