// internal/model/models.go
package model

import (
	"time"
)

// ProjectStatus is the user-controlled lifecycle state of a tracked project.
type ProjectStatus string

const (
	StatusPlanning   ProjectStatus = "planning"
	StatusInProgress ProjectStatus = "in-progress"
	StatusCompleted  ProjectStatus = "completed"
	StatusArchived   ProjectStatus = "archived"
)

// Valid reports whether s is one of the recognized statuses.
func (s ProjectStatus) Valid() bool {
	switch s {
	case StatusPlanning, StatusInProgress, StatusCompleted, StatusArchived:
		return true
	}
	return false
}

// RepositorySummary is the normalized, ephemeral shape of one GitHub
// repository as returned by a fetch. It carries no ownership information;
// ownership is assigned only when it is reconciled into a TrackedProject.
type RepositorySummary struct {
	GithubRepoID  int64      `json:"github_repo_id"`
	Name          string     `json:"name"`
	FullName      string     `json:"full_name"`
	Description   *string    `json:"description"`
	URL           string     `json:"url"`
	Homepage      *string    `json:"homepage"`
	Language      string     `json:"language"`
	StarsCount    int        `json:"stars_count"`
	ForksCount    int        `json:"forks_count"`
	IsPrivate     bool       `json:"is_private"`
	IsFork        bool       `json:"is_fork"`
	IsArchived    bool       `json:"is_archived"`
	Topics        []string   `json:"topics"`
	RepoCreatedAt time.Time  `json:"repo_created_at"`
	RepoUpdatedAt time.Time  `json:"repo_updated_at"`
	LastPushedAt  *time.Time `json:"last_pushed_at"`
}

// TrackedProject is the persisted record combining GitHub-derived data
// with user-owned tracking fields. One row exists per
// (user_id, github_repo_id) pair, enforced by a unique index.
type TrackedProject struct {
	ID           int64 `json:"id"`
	UserID       int64 `json:"user_id"`
	GithubRepoID int64 `json:"github_repo_id"`

	// GitHub-derived fields, overwritten wholesale on every reconciliation.
	Name          string     `json:"name"`
	FullName      string     `json:"full_name"`
	Description   *string    `json:"description"`
	URL           string     `json:"url"`
	Homepage      *string    `json:"homepage"`
	Language      string     `json:"language"`
	StarsCount    int        `json:"stars_count"`
	ForksCount    int        `json:"forks_count"`
	IsPrivate     bool       `json:"is_private"`
	Topics        []string   `json:"topics"`
	RepoCreatedAt time.Time  `json:"repo_created_at"`
	LastPushedAt  *time.Time `json:"last_pushed_at"`

	// User-owned fields, never touched by reconciliation.
	Status    ProjectStatus `json:"status"`
	Progress  int           `json:"progress"`
	Notes     string        `json:"notes"`
	TechStack []string      `json:"tech_stack"`
	Starred   bool          `json:"starred"`
	Active    bool          `json:"active"`

	LastSyncedAt *time.Time `json:"last_synced_at"`
	DBCreatedAt  time.Time  `json:"db_created_at"`
	DBUpdatedAt  time.Time  `json:"db_updated_at"`
}

// ProjectPatch is a partial update of the user-owned fields of a
// TrackedProject. Nil fields are left unchanged.
type ProjectPatch struct {
	Status    *ProjectStatus `json:"status"`
	Progress  *int           `json:"progress"`
	Notes     *string        `json:"notes"`
	TechStack *[]string      `json:"tech_stack"`
	Starred   *bool          `json:"starred"`
}

// HealthMetrics are derived freshness metrics computed from a tracked
// project's last push timestamp at read time. They are never persisted.
type HealthMetrics struct {
	DaysSinceLastPush *int   `json:"days_since_last_push,omitempty"`
	HealthScore       int    `json:"health_score"`
	HealthStatus      string `json:"health_status"`
}

// SyncError describes one repository that failed to reconcile during a
// batch sync.
type SyncError struct {
	RepoName string `json:"repo_name"`
	Message  string `json:"message"`
}

// SyncReport is the result of a batch reconciliation. A failure on one
// repository never aborts the others; failed items are reported here
// individually.
type SyncReport struct {
	Synced      []TrackedProject `json:"synced"`
	Errors      []SyncError      `json:"errors"`
	SyncedCount int              `json:"synced_count"`
	FailedCount int              `json:"failed_count"`
}

// User is the minimal slice of the account record this service touches:
// the denormalized GitHub username used for background re-syncs.
type User struct {
	ID             int64  `json:"id"`
	GithubUsername string `json:"github_username"`
}
