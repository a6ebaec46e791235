// internal/syncer/syncer.go
package syncer

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"project-tracker/internal/apperrors"
	"project-tracker/internal/model"
	"project-tracker/internal/store"
)

const (
	// Number of repositories to reconcile in parallel within a batch.
	// Each (user, repo id) pair is independent, so this is safe.
	reconcileConcurrency = 5
	// Number of users to sync in parallel during a background cycle.
	userConcurrency = 3
)

// RepoFetcher lists a user's repositories from GitHub. Satisfied by
// *github.Client; an interface so the reconciler is testable without a
// live GitHub stack.
type RepoFetcher interface {
	ListUserRepositories(ctx context.Context, username string) ([]model.RepositorySummary, error)
}

// Reconciler merges fetched repository summaries into persisted tracked
// projects without clobbering user annotations.
type Reconciler struct {
	store   store.Store
	fetcher RepoFetcher
	logger  *slog.Logger
}

// NewReconciler creates a new Reconciler instance.
func NewReconciler(st store.Store, fetcher RepoFetcher, logger *slog.Logger) *Reconciler {
	return &Reconciler{
		store:   st,
		fetcher: fetcher,
		logger:  logger,
	}
}

// ReconcileOne upserts a single repository summary for the user. On first
// sight a new tracked project is created with defaulted user-owned fields;
// afterwards only the GitHub-derived fields are overwritten. Replaying the
// same summary converges to the same record, modulo last_synced_at.
func (r *Reconciler) ReconcileOne(ctx context.Context, userID int64, summary model.RepositorySummary) (model.TrackedProject, error) {
	if summary.GithubRepoID == 0 {
		return model.TrackedProject{}, apperrors.Validation("repository summary has no id")
	}
	return r.store.UpsertProjectFromSummary(ctx, userID, summary)
}

// ReconcileBatch applies ReconcileOne to each summary independently with
// bounded parallelism. A failure on one summary never aborts its siblings:
// per-item errors are collected into the report alongside the records that
// did reconcile.
func (r *Reconciler) ReconcileBatch(ctx context.Context, userID int64, summaries []model.RepositorySummary) *model.SyncReport {
	report := &model.SyncReport{
		Synced: make([]model.TrackedProject, 0, len(summaries)),
		Errors: []model.SyncError{},
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(reconcileConcurrency)

	// Indexed result slots keep the output in input order and need no lock.
	results := make([]*model.TrackedProject, len(summaries))
	failures := make([]*model.SyncError, len(summaries))

	for i, summary := range summaries {
		i, summary := i, summary
		g.Go(func() error {
			project, err := r.ReconcileOne(gctx, userID, summary)
			if err != nil {
				r.logger.Error("Failed to reconcile repository",
					"user_id", userID, "repo", summary.FullName, "error", err)
				failures[i] = &model.SyncError{
					RepoName: summary.FullName,
					Message:  err.Error(),
				}
				return nil
			}
			results[i] = &project
			return nil
		})
	}

	// Goroutines only return nil; Wait is for completion.
	_ = g.Wait()

	for i := range summaries {
		if results[i] != nil {
			report.Synced = append(report.Synced, *results[i])
		}
		if failures[i] != nil {
			report.Errors = append(report.Errors, *failures[i])
		}
	}
	report.SyncedCount = len(report.Synced)
	report.FailedCount = len(report.Errors)
	return report
}

// SyncUser runs a full fetch-and-reconcile pass for one user. A fetch
// failure (unknown username, rate limit, upstream outage) aborts the sync
// before anything is reconciled. Filters are applied client-side to the
// fetched list before reconciliation.
//
// As a side effect the user's GitHub username is stored for future
// background syncs. The sync is always initiated by the user for their own
// username, so overwriting a previously stored value is acceptable; a
// differing overwrite is logged rather than silent.
func (r *Reconciler) SyncUser(ctx context.Context, userID int64, username string, filters model.RepoFilters) (*model.SyncReport, error) {
	logger := r.logger.With("user_id", userID, "username", username)

	summaries, err := r.fetcher.ListUserRepositories(ctx, username)
	if err != nil {
		return nil, err
	}
	summaries = filters.Apply(summaries)
	logger.Info("Fetched repositories from GitHub", "count", len(summaries))

	if err := r.rememberUsername(ctx, userID, username, logger); err != nil {
		return nil, err
	}

	report := r.ReconcileBatch(ctx, userID, summaries)
	logger.Info("Sync finished", "synced", report.SyncedCount, "failed", report.FailedCount)
	return report, nil
}

// rememberUsername denormalizes the GitHub username onto the user record.
// The user row must exist before the first project row is written, so this
// runs before the batch.
func (r *Reconciler) rememberUsername(ctx context.Context, userID int64, username string, logger *slog.Logger) error {
	user, err := r.store.GetUser(ctx, userID)
	switch {
	case err == nil:
		if user.GithubUsername != "" && user.GithubUsername != username {
			logger.Warn("Replacing stored GitHub username",
				"previous", user.GithubUsername, "new", username)
		}
	case apperrors.IsKind(err, apperrors.KindNotFound):
		// First sync for this user; the row is created below.
	default:
		return err
	}

	return r.store.SetUserGitHubUsername(ctx, userID, username)
}

// Syncer periodically re-syncs every user that has a stored GitHub
// username. It owns no state beyond its dependencies and its interval.
type Syncer struct {
	reconciler *Reconciler
	store      store.Store
	logger     *slog.Logger
	interval   time.Duration
}

// NewSyncer creates a new background Syncer instance.
func NewSyncer(reconciler *Reconciler, st store.Store, logger *slog.Logger, interval time.Duration) *Syncer {
	return &Syncer{
		reconciler: reconciler,
		store:      st,
		logger:     logger,
		interval:   interval,
	}
}

// Start begins the continuous synchronization process. It blocks until the
// context is cancelled.
func (s *Syncer) Start(ctx context.Context) {
	s.logger.Info("Starting background syncer", "interval", s.interval.String(), "concurrency", userConcurrency)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.runSyncCycle(ctx) // Initial sync

	for {
		select {
		case <-ticker.C:
			s.runSyncCycle(ctx)
		case <-ctx.Done():
			s.logger.Info("Background syncer shutting down", "reason", ctx.Err())
			return
		}
	}
}

// runSyncCycle performs a synchronization pass for all eligible users
// concurrently. Per-user failures are logged, never fatal to the cycle.
func (s *Syncer) runSyncCycle(ctx context.Context) {
	s.logger.Info("Starting new sync cycle")

	users, err := s.store.ListUsersWithGitHubUsername(ctx)
	if err != nil {
		s.logger.Error("Failed to list users for sync cycle", "error", err)
		return
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(userConcurrency)

	for _, user := range users {
		user := user
		g.Go(func() error {
			if gctx.Err() != nil {
				return nil
			}
			_, err := s.reconciler.SyncUser(gctx, user.ID, user.GithubUsername, model.RepoFilters{})
			if err != nil && !errors.Is(err, context.Canceled) {
				s.logger.Error("Failed to sync user",
					"user_id", user.ID, "username", user.GithubUsername, "error", err)
			}
			return nil
		})
	}

	_ = g.Wait()
	s.logger.Info("Sync cycle finished", "users", len(users))
}
