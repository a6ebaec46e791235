// internal/api/handler_test.go
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"project-tracker/internal/apperrors"
	"project-tracker/internal/model"
	"project-tracker/internal/syncer"
)

// stubFetcher returns a canned repository list or error.
type stubFetcher struct {
	repos []model.RepositorySummary
	err   error
}

func (s *stubFetcher) ListUserRepositories(_ context.Context, _ string) ([]model.RepositorySummary, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.repos, nil
}

// stubStore is a minimal in-memory store for handler tests. The mutex
// matters: batch reconciliation upserts concurrently.
type stubStore struct {
	mu       sync.Mutex
	projects map[int64]model.TrackedProject // by project id
	users    map[int64]model.User
	nextID   int64
}

func newStubStore() *stubStore {
	return &stubStore{
		projects: make(map[int64]model.TrackedProject),
		users:    make(map[int64]model.User),
	}
}

func (s *stubStore) GetProject(_ context.Context, userID, githubRepoID int64) (model.TrackedProject, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.projects {
		if p.UserID == userID && p.GithubRepoID == githubRepoID {
			return p, nil
		}
	}
	return model.TrackedProject{}, apperrors.NotFound("no matching record")
}

func (s *stubStore) GetProjectByID(_ context.Context, userID, projectID int64) (model.TrackedProject, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.projects[projectID]
	if !ok || p.UserID != userID {
		return model.TrackedProject{}, apperrors.NotFound("no matching record")
	}
	return p, nil
}

func (s *stubStore) UpsertProjectFromSummary(_ context.Context, userID int64, sum model.RepositorySummary) (model.TrackedProject, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, p := range s.projects {
		if p.UserID == userID && p.GithubRepoID == sum.GithubRepoID {
			p.Name = sum.Name
			p.StarsCount = sum.StarsCount
			p.LastPushedAt = sum.LastPushedAt
			s.projects[id] = p
			return p, nil
		}
	}
	s.nextID++
	now := time.Now()
	p := model.TrackedProject{
		ID:           s.nextID,
		UserID:       userID,
		GithubRepoID: sum.GithubRepoID,
		Name:         sum.Name,
		FullName:     sum.FullName,
		StarsCount:   sum.StarsCount,
		LastPushedAt: sum.LastPushedAt,
		Status:       model.StatusInProgress,
		TechStack:    []string{},
		Active:       true,
		LastSyncedAt: &now,
	}
	s.projects[p.ID] = p
	return p, nil
}

func (s *stubStore) ListProjects(_ context.Context, userID int64, onlyActive bool) ([]model.TrackedProject, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.TrackedProject
	for _, p := range s.projects {
		if p.UserID != userID || (onlyActive && !p.Active) {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

func (s *stubStore) UpdateProjectUserFields(_ context.Context, userID, projectID int64, patch model.ProjectPatch) (model.TrackedProject, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.projects[projectID]
	if !ok || p.UserID != userID {
		return model.TrackedProject{}, apperrors.NotFound("no matching record")
	}
	if patch.Status != nil {
		p.Status = *patch.Status
	}
	if patch.Progress != nil {
		p.Progress = *patch.Progress
	}
	if patch.Notes != nil {
		p.Notes = *patch.Notes
	}
	if patch.TechStack != nil {
		p.TechStack = *patch.TechStack
	}
	if patch.Starred != nil {
		p.Starred = *patch.Starred
	}
	s.projects[projectID] = p
	return p, nil
}

func (s *stubStore) SoftDeleteProject(_ context.Context, userID, projectID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.projects[projectID]
	if !ok || p.UserID != userID {
		return apperrors.NotFound("no matching record")
	}
	p.Active = false
	s.projects[projectID] = p
	return nil
}

func (s *stubStore) GetUser(_ context.Context, userID int64) (model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return model.User{}, apperrors.NotFound("no matching record")
	}
	return u, nil
}

func (s *stubStore) SetUserGitHubUsername(_ context.Context, userID int64, username string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[userID] = model.User{ID: userID, GithubUsername: username}
	return nil
}

func (s *stubStore) ListUsersWithGitHubUsername(_ context.Context) ([]model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.User
	for _, u := range s.users {
		if u.GithubUsername != "" {
			out = append(out, u)
		}
	}
	return out, nil
}

func setupRouter(st *stubStore, fetcher *stubFetcher) http.Handler {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	reconciler := syncer.NewReconciler(st, fetcher, logger)
	return NewRouter(st, fetcher, reconciler, logger)
}

func doRequest(t *testing.T, router http.Handler, method, path string, body any, asUser string) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if asUser != "" {
		req.Header.Set("X-User-ID", asUser)
	}

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func errorKind(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Error struct {
			Kind    string `json:"kind"`
			Message string `json:"message"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	return body.Error.Kind
}

func sampleRepos() []model.RepositorySummary {
	pushed := time.Now().Add(-5 * 24 * time.Hour)
	return []model.RepositorySummary{
		{GithubRepoID: 101, Name: "small", FullName: "tester/small", Language: "Go", StarsCount: 2, LastPushedAt: &pushed},
		{GithubRepoID: 102, Name: "webapp", FullName: "tester/webapp", Language: "JS", StarsCount: 10, LastPushedAt: &pushed},
		{GithubRepoID: 103, Name: "big", FullName: "tester/big", Language: "Go", StarsCount: 50, LastPushedAt: &pushed},
	}
}

func TestRouter_RequiresUserIdentity(t *testing.T) {
	router := setupRouter(newStubStore(), &stubFetcher{})

	rr := doRequest(t, router, http.MethodGet, "/v1/projects", nil, "")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	rr = doRequest(t, router, http.MethodGet, "/v1/projects", nil, "not-a-number")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestHealthCheck_NoAuthNeeded(t *testing.T) {
	router := setupRouter(newStubStore(), &stubFetcher{})

	rr := doRequest(t, router, http.MethodGet, "/health", nil, "")
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestFetchLiveRepos(t *testing.T) {
	t.Run("applies query filters without persisting", func(t *testing.T) {
		st := newStubStore()
		router := setupRouter(st, &stubFetcher{repos: sampleRepos()})

		rr := doRequest(t, router, http.MethodGet, "/v1/github/tester/repos?language=Go&min_stars=5", nil, "7")

		require.Equal(t, http.StatusOK, rr.Code)
		var body struct {
			Repos []model.RepositorySummary `json:"repos"`
			Count int                       `json:"count"`
		}
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
		assert.Equal(t, 1, body.Count)
		require.Len(t, body.Repos, 1)
		assert.Equal(t, "big", body.Repos[0].Name)
		assert.Empty(t, st.projects, "fetch-only must not persist anything")
	})

	t.Run("rate limit surfaces as 429", func(t *testing.T) {
		router := setupRouter(newStubStore(), &stubFetcher{
			err: apperrors.RateLimited("GitHub API rate limit exceeded; configure GITHUB_TOKEN to raise the quota"),
		})

		rr := doRequest(t, router, http.MethodGet, "/v1/github/tester/repos", nil, "7")

		assert.Equal(t, http.StatusTooManyRequests, rr.Code)
		assert.Equal(t, "rate_limited", errorKind(t, rr))
	})

	t.Run("invalid min_stars is 400", func(t *testing.T) {
		router := setupRouter(newStubStore(), &stubFetcher{repos: sampleRepos()})

		rr := doRequest(t, router, http.MethodGet, "/v1/github/tester/repos?min_stars=lots", nil, "7")

		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Equal(t, "validation_error", errorKind(t, rr))
	})
}

func TestSyncProjects(t *testing.T) {
	t.Run("persists fetched repositories and reports counts", func(t *testing.T) {
		st := newStubStore()
		router := setupRouter(st, &stubFetcher{repos: sampleRepos()})

		rr := doRequest(t, router, http.MethodPost, "/v1/projects/sync", map[string]any{"username": "tester"}, "7")

		require.Equal(t, http.StatusOK, rr.Code)
		var report model.SyncReport
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &report))
		assert.Equal(t, 3, report.SyncedCount)
		assert.Equal(t, 0, report.FailedCount)
		assert.Len(t, st.projects, 3)
		assert.Equal(t, "tester", st.users[7].GithubUsername)
	})

	t.Run("missing username is 400", func(t *testing.T) {
		router := setupRouter(newStubStore(), &stubFetcher{})

		rr := doRequest(t, router, http.MethodPost, "/v1/projects/sync", map[string]any{}, "7")
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("unknown GitHub user is 404 and persists nothing", func(t *testing.T) {
		st := newStubStore()
		router := setupRouter(st, &stubFetcher{err: apperrors.NotFound("GitHub user ghost not found")})

		rr := doRequest(t, router, http.MethodPost, "/v1/projects/sync", map[string]any{"username": "ghost"}, "7")

		assert.Equal(t, http.StatusNotFound, rr.Code)
		assert.Equal(t, "not_found", errorKind(t, rr))
		assert.Empty(t, st.projects)
	})
}

func TestListProjects_IncludesHealth(t *testing.T) {
	st := newStubStore()
	router := setupRouter(st, &stubFetcher{repos: sampleRepos()})

	rr := doRequest(t, router, http.MethodPost, "/v1/projects/sync", map[string]any{"username": "tester"}, "7")
	require.Equal(t, http.StatusOK, rr.Code)

	rr = doRequest(t, router, http.MethodGet, "/v1/projects", nil, "7")
	require.Equal(t, http.StatusOK, rr.Code)

	var body struct {
		Projects []struct {
			Name   string              `json:"name"`
			Health model.HealthMetrics `json:"health"`
		} `json:"projects"`
		Count int `json:"count"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, 3, body.Count)
	for _, p := range body.Projects {
		// Sample repos were pushed 5 days ago.
		assert.Equal(t, 100, p.Health.HealthScore)
		assert.Equal(t, "on-track", p.Health.HealthStatus)
	}
}

func TestUpdateProject(t *testing.T) {
	seed := func(t *testing.T) (*stubStore, http.Handler, int64) {
		st := newStubStore()
		router := setupRouter(st, &stubFetcher{repos: sampleRepos()})
		rr := doRequest(t, router, http.MethodPost, "/v1/projects/sync", map[string]any{"username": "tester"}, "7")
		require.Equal(t, http.StatusOK, rr.Code)
		return st, router, 1
	}

	t.Run("updates user-owned fields", func(t *testing.T) {
		st, router, id := seed(t)

		rr := doRequest(t, router, http.MethodPatch, "/v1/projects/1", map[string]any{
			"status":   "completed",
			"progress": 80,
			"starred":  true,
		}, "7")

		require.Equal(t, http.StatusOK, rr.Code)
		p := st.projects[id]
		assert.Equal(t, model.StatusCompleted, p.Status)
		assert.Equal(t, 80, p.Progress)
		assert.True(t, p.Starred)
	})

	t.Run("rejects unknown status", func(t *testing.T) {
		_, router, _ := seed(t)

		rr := doRequest(t, router, http.MethodPatch, "/v1/projects/1", map[string]any{"status": "paused"}, "7")
		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Equal(t, "validation_error", errorKind(t, rr))
	})

	t.Run("rejects progress out of range", func(t *testing.T) {
		_, router, _ := seed(t)

		rr := doRequest(t, router, http.MethodPatch, "/v1/projects/1", map[string]any{"progress": 101}, "7")
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("other users cannot touch the project", func(t *testing.T) {
		_, router, _ := seed(t)

		rr := doRequest(t, router, http.MethodPatch, "/v1/projects/1", map[string]any{"starred": true}, "8")
		assert.Equal(t, http.StatusNotFound, rr.Code)
	})
}

func TestDeleteProject_SoftDeletes(t *testing.T) {
	st := newStubStore()
	router := setupRouter(st, &stubFetcher{repos: sampleRepos()})
	rr := doRequest(t, router, http.MethodPost, "/v1/projects/sync", map[string]any{"username": "tester"}, "7")
	require.Equal(t, http.StatusOK, rr.Code)

	rr = doRequest(t, router, http.MethodDelete, "/v1/projects/1", nil, "7")
	assert.Equal(t, http.StatusNoContent, rr.Code)

	p := st.projects[1]
	assert.False(t, p.Active, "delete must flip the active flag, not remove the row")

	rr = doRequest(t, router, http.MethodGet, "/v1/projects", nil, "7")
	require.Equal(t, http.StatusOK, rr.Code)
	var body struct {
		Count int `json:"count"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, 2, body.Count, "soft-deleted projects drop out of the default list")

	rr = doRequest(t, router, http.MethodDelete, "/v1/projects/999", nil, "7")
	assert.Equal(t, http.StatusNotFound, rr.Code)
}
