// internal/api/handler.go
package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"project-tracker/internal/apperrors"
	"project-tracker/internal/health"
	"project-tracker/internal/model"
	"project-tracker/internal/store"
	"project-tracker/internal/syncer"
)

// Handler is the container for API dependencies.
type Handler struct {
	store      store.Store
	fetcher    syncer.RepoFetcher
	reconciler *syncer.Reconciler
	logger     *slog.Logger
}

// NewRouter creates and configures a new chi router with all API routes.
func NewRouter(st store.Store, fetcher syncer.RepoFetcher, reconciler *syncer.Reconciler, logger *slog.Logger) http.Handler {
	h := &Handler{
		store:      st,
		fetcher:    fetcher,
		reconciler: reconciler,
		logger:     logger,
	}

	r := chi.NewRouter()

	// Middleware stack
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger) // Chi's default logger
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	// API Routes
	r.Get("/health", h.healthCheck)
	r.Route("/v1", func(r chi.Router) {
		r.Use(requireUser)

		// Fetch live from GitHub; nothing is persisted.
		r.Get("/github/{username}/repos", h.fetchLiveRepos)

		// Tracked projects.
		r.Post("/projects/sync", h.syncProjects)
		r.Get("/projects", h.listProjects)
		r.Get("/projects/{projectID}", h.getProject)
		r.Patch("/projects/{projectID}", h.updateProject)
		r.Delete("/projects/{projectID}", h.deleteProject)
	})

	return r
}

// healthCheck is a simple health endpoint.
func (h *Handler) healthCheck(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// projectWithHealth pairs a tracked project with its freshness metrics,
// which are recomputed on every read.
type projectWithHealth struct {
	model.TrackedProject
	Health model.HealthMetrics `json:"health"`
}

func withHealth(p model.TrackedProject, now time.Time) projectWithHealth {
	return projectWithHealth{
		TrackedProject: p,
		Health:         health.Compute(p, now),
	}
}

// fetchLiveRepos handles the fetch-only operation.
// GET /v1/github/{username}/repos?language=&min_stars=&exclude_forks=&only_public=&exclude_archived=
func (h *Handler) fetchLiveRepos(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")

	filters, err := parseRepoFilters(r)
	if err != nil {
		respondWithAppError(w, h.logger, err)
		return
	}

	repos, err := h.fetcher.ListUserRepositories(r.Context(), username)
	if err != nil {
		respondWithAppError(w, h.logger, err)
		return
	}
	repos = filters.Apply(repos)

	respondWithJSON(w, http.StatusOK, map[string]any{
		"repos": repos,
		"count": len(repos),
	})
}

// syncRequest is the body of POST /v1/projects/sync.
type syncRequest struct {
	Username string            `json:"username"`
	Filters  model.RepoFilters `json:"filters"`
}

// syncProjects handles the fetch-and-reconcile operation.
// POST /v1/projects/sync
func (h *Handler) syncProjects(w http.ResponseWriter, r *http.Request) {
	userID := userIDFrom(r.Context())

	var req syncRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	if req.Username == "" {
		respondWithError(w, http.StatusBadRequest, "'username' is required")
		return
	}

	report, err := h.reconciler.SyncUser(r.Context(), userID, req.Username, req.Filters)
	if err != nil {
		respondWithAppError(w, h.logger, err)
		return
	}

	respondWithJSON(w, http.StatusOK, report)
}

// listProjects returns the user's tracked projects with health metrics.
// GET /v1/projects?include_inactive=
func (h *Handler) listProjects(w http.ResponseWriter, r *http.Request) {
	userID := userIDFrom(r.Context())
	includeInactive, _ := strconv.ParseBool(r.URL.Query().Get("include_inactive"))

	projects, err := h.store.ListProjects(r.Context(), userID, !includeInactive)
	if err != nil {
		respondWithAppError(w, h.logger, err)
		return
	}

	now := time.Now()
	out := make([]projectWithHealth, 0, len(projects))
	for _, p := range projects {
		out = append(out, withHealth(p, now))
	}

	respondWithJSON(w, http.StatusOK, map[string]any{
		"projects": out,
		"count":    len(out),
	})
}

// getProject returns one tracked project with health metrics.
// GET /v1/projects/{projectID}
func (h *Handler) getProject(w http.ResponseWriter, r *http.Request) {
	userID := userIDFrom(r.Context())

	projectID, err := parseProjectID(r)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid project id")
		return
	}

	project, err := h.store.GetProjectByID(r.Context(), userID, projectID)
	if err != nil {
		respondWithAppError(w, h.logger, err)
		return
	}

	respondWithJSON(w, http.StatusOK, withHealth(project, time.Now()))
}

// updateProject applies a partial update of the user-owned fields.
// PATCH /v1/projects/{projectID}
func (h *Handler) updateProject(w http.ResponseWriter, r *http.Request) {
	userID := userIDFrom(r.Context())

	projectID, err := parseProjectID(r)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid project id")
		return
	}

	var patch model.ProjectPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	if err := validatePatch(patch); err != nil {
		respondWithAppError(w, h.logger, err)
		return
	}

	project, err := h.store.UpdateProjectUserFields(r.Context(), userID, projectID, patch)
	if err != nil {
		respondWithAppError(w, h.logger, err)
		return
	}

	respondWithJSON(w, http.StatusOK, withHealth(project, time.Now()))
}

// deleteProject soft-deletes a tracked project.
// DELETE /v1/projects/{projectID}
func (h *Handler) deleteProject(w http.ResponseWriter, r *http.Request) {
	userID := userIDFrom(r.Context())

	projectID, err := parseProjectID(r)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid project id")
		return
	}

	if err := h.store.SoftDeleteProject(r.Context(), userID, projectID); err != nil {
		respondWithAppError(w, h.logger, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func validatePatch(patch model.ProjectPatch) error {
	if patch.Status != nil && !patch.Status.Valid() {
		return apperrors.Validation("status must be one of: planning, in-progress, completed, archived")
	}
	if patch.Progress != nil && (*patch.Progress < 0 || *patch.Progress > 100) {
		return apperrors.Validation("progress must be between 0 and 100")
	}
	return nil
}

func parseProjectID(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "projectID"), 10, 64)
}

// parseRepoFilters reads the recognized filter set from query parameters.
// Unknown parameters are ignored, not errors.
func parseRepoFilters(r *http.Request) (model.RepoFilters, error) {
	q := r.URL.Query()
	filters := model.RepoFilters{
		Language: q.Get("language"),
	}

	if raw := q.Get("min_stars"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return model.RepoFilters{}, apperrors.Validation("'min_stars' must be a non-negative integer")
		}
		filters.MinStars = n
	}

	for _, f := range []struct {
		name string
		dst  *bool
	}{
		{"exclude_forks", &filters.ExcludeForks},
		{"only_public", &filters.OnlyPublic},
		{"exclude_archived", &filters.ExcludeArchived},
	} {
		if raw := q.Get(f.name); raw != "" {
			v, err := strconv.ParseBool(raw)
			if err != nil {
				return model.RepoFilters{}, apperrors.Validation("'" + f.name + "' must be a boolean")
			}
			*f.dst = v
		}
	}

	return filters, nil
}
