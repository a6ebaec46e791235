// internal/store/store.go
package store

import (
	"context"

	"project-tracker/internal/model"
)

// Store is the persistence boundary for tracked projects and the user
// username denormalization. It is an interface so the reconciler and the
// API handlers can be unit-tested against mocks.
type Store interface {
	// GetProject looks up a tracked project by its unique
	// (userID, githubRepoID) pair. Returns a NotFound error when absent.
	GetProject(ctx context.Context, userID, githubRepoID int64) (model.TrackedProject, error)

	// GetProjectByID looks up a tracked project by its synthetic primary
	// key, scoped to the owning user.
	GetProjectByID(ctx context.Context, userID, projectID int64) (model.TrackedProject, error)

	// UpsertProjectFromSummary atomically inserts or updates the row for
	// (userID, summary.GithubRepoID). On insert the user-owned fields get
	// their defaults; on conflict only the GitHub-derived fields and
	// last_synced_at are overwritten. The atomic upsert closes the race
	// between concurrent first-time reconciliations of the same pair.
	UpsertProjectFromSummary(ctx context.Context, userID int64, summary model.RepositorySummary) (model.TrackedProject, error)

	// ListProjects returns the user's projects, most recently pushed
	// first. When onlyActive is true, soft-deleted rows are excluded.
	ListProjects(ctx context.Context, userID int64, onlyActive bool) ([]model.TrackedProject, error)

	// UpdateProjectUserFields applies a partial update of the user-owned
	// fields. GitHub-derived fields are never touched here.
	UpdateProjectUserFields(ctx context.Context, userID, projectID int64, patch model.ProjectPatch) (model.TrackedProject, error)

	// SoftDeleteProject flips the active flag to false. There is no hard
	// delete path.
	SoftDeleteProject(ctx context.Context, userID, projectID int64) error

	// GetUser returns the user record, NotFound when absent.
	GetUser(ctx context.Context, userID int64) (model.User, error)

	// SetUserGitHubUsername records the user's GitHub username, creating
	// the row if needed. Idempotent.
	SetUserGitHubUsername(ctx context.Context, userID int64, username string) error

	// ListUsersWithGitHubUsername returns every user eligible for a
	// background re-sync.
	ListUsersWithGitHubUsername(ctx context.Context) ([]model.User, error)
}
