// internal/store/pg.go
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"project-tracker/internal/apperrors"
	"project-tracker/internal/model"
)

// uniqueViolation is the Postgres error code for a unique-index conflict.
const uniqueViolation = "23505"

// PG implements Store on a pgx connection pool.
type PG struct {
	pool *pgxpool.Pool
}

var _ Store = (*PG)(nil)

// NewPG creates a Postgres-backed store.
func NewPG(pool *pgxpool.Pool) *PG {
	return &PG{pool: pool}
}

// projectColumns is the canonical column list scanned by scanProject.
const projectColumns = `
	id, user_id, github_repo_id,
	name, full_name, description, url, homepage, language,
	stars_count, forks_count, is_private, topics,
	repo_created_at, last_pushed_at,
	status, progress, notes, tech_stack, starred, active,
	last_synced_at, created_at, updated_at`

func scanProject(row pgx.Row) (model.TrackedProject, error) {
	var p model.TrackedProject
	var status string
	err := row.Scan(
		&p.ID, &p.UserID, &p.GithubRepoID,
		&p.Name, &p.FullName, &p.Description, &p.URL, &p.Homepage, &p.Language,
		&p.StarsCount, &p.ForksCount, &p.IsPrivate, &p.Topics,
		&p.RepoCreatedAt, &p.LastPushedAt,
		&status, &p.Progress, &p.Notes, &p.TechStack, &p.Starred, &p.Active,
		&p.LastSyncedAt, &p.DBCreatedAt, &p.DBUpdatedAt,
	)
	if err != nil {
		return model.TrackedProject{}, err
	}
	p.Status = model.ProjectStatus(status)
	return p, nil
}

// wrapError maps pgx errors to the apperrors taxonomy.
func wrapError(op string, err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return apperrors.NotFound(op + ": no matching record")
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return apperrors.DuplicateKey(op+": unique constraint violated", err)
	}
	return apperrors.Persistence(op+" failed", err)
}

func (s *PG) GetProject(ctx context.Context, userID, githubRepoID int64) (model.TrackedProject, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT`+projectColumns+`
		FROM tracked_projects
		WHERE user_id = $1 AND github_repo_id = $2`,
		userID, githubRepoID)

	p, err := scanProject(row)
	if err != nil {
		return model.TrackedProject{}, wrapError("get project", err)
	}
	return p, nil
}

func (s *PG) GetProjectByID(ctx context.Context, userID, projectID int64) (model.TrackedProject, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT`+projectColumns+`
		FROM tracked_projects
		WHERE user_id = $1 AND id = $2`,
		userID, projectID)

	p, err := scanProject(row)
	if err != nil {
		return model.TrackedProject{}, wrapError("get project by id", err)
	}
	return p, nil
}

func (s *PG) UpsertProjectFromSummary(ctx context.Context, userID int64, summary model.RepositorySummary) (model.TrackedProject, error) {
	topics := summary.Topics
	if topics == nil {
		topics = []string{}
	}

	row := s.pool.QueryRow(ctx, `
		INSERT INTO tracked_projects (
			user_id, github_repo_id,
			name, full_name, description, url, homepage, language,
			stars_count, forks_count, is_private, topics,
			repo_created_at, last_pushed_at,
			status, progress, notes, tech_stack, starred, active,
			last_synced_at
		) VALUES (
			$1, $2,
			$3, $4, $5, $6, $7, $8,
			$9, $10, $11, $12,
			$13, $14,
			$15, 0, '', '{}', FALSE, TRUE,
			now()
		)
		ON CONFLICT (user_id, github_repo_id) DO UPDATE SET
			name            = EXCLUDED.name,
			full_name       = EXCLUDED.full_name,
			description     = EXCLUDED.description,
			url             = EXCLUDED.url,
			homepage        = EXCLUDED.homepage,
			language        = EXCLUDED.language,
			stars_count     = EXCLUDED.stars_count,
			forks_count     = EXCLUDED.forks_count,
			is_private      = EXCLUDED.is_private,
			topics          = EXCLUDED.topics,
			repo_created_at = EXCLUDED.repo_created_at,
			last_pushed_at  = EXCLUDED.last_pushed_at,
			last_synced_at  = now(),
			updated_at      = now()
		RETURNING`+projectColumns,
		userID, summary.GithubRepoID,
		summary.Name, summary.FullName, summary.Description, summary.URL, summary.Homepage, summary.Language,
		summary.StarsCount, summary.ForksCount, summary.IsPrivate, topics,
		summary.RepoCreatedAt, summary.LastPushedAt,
		string(model.StatusInProgress))

	p, err := scanProject(row)
	if err != nil {
		return model.TrackedProject{}, wrapError("upsert project", err)
	}
	return p, nil
}

func (s *PG) ListProjects(ctx context.Context, userID int64, onlyActive bool) ([]model.TrackedProject, error) {
	query := `
		SELECT` + projectColumns + `
		FROM tracked_projects
		WHERE user_id = $1`
	if onlyActive {
		query += ` AND active`
	}
	query += ` ORDER BY last_pushed_at DESC NULLS LAST, id`

	rows, err := s.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, wrapError("list projects", err)
	}
	defer rows.Close()

	var projects []model.TrackedProject
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, wrapError("list projects", err)
		}
		projects = append(projects, p)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapError("list projects", err)
	}
	return projects, nil
}

func (s *PG) UpdateProjectUserFields(ctx context.Context, userID, projectID int64, patch model.ProjectPatch) (model.TrackedProject, error) {
	sets := []string{"updated_at = now()"}
	args := []any{userID, projectID}
	next := 3

	add := func(column string, value any) {
		sets = append(sets, fmt.Sprintf("%s = $%d", column, next))
		args = append(args, value)
		next++
	}

	if patch.Status != nil {
		add("status", string(*patch.Status))
	}
	if patch.Progress != nil {
		add("progress", *patch.Progress)
	}
	if patch.Notes != nil {
		add("notes", *patch.Notes)
	}
	if patch.TechStack != nil {
		add("tech_stack", *patch.TechStack)
	}
	if patch.Starred != nil {
		add("starred", *patch.Starred)
	}

	row := s.pool.QueryRow(ctx, `
		UPDATE tracked_projects
		SET `+strings.Join(sets, ", ")+`
		WHERE user_id = $1 AND id = $2
		RETURNING`+projectColumns,
		args...)

	p, err := scanProject(row)
	if err != nil {
		return model.TrackedProject{}, wrapError("update project", err)
	}
	return p, nil
}

func (s *PG) SoftDeleteProject(ctx context.Context, userID, projectID int64) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE tracked_projects
		SET active = FALSE, updated_at = now()
		WHERE user_id = $1 AND id = $2`,
		userID, projectID)
	if err != nil {
		return wrapError("soft delete project", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NotFound("soft delete project: no matching record")
	}
	return nil
}

func (s *PG) GetUser(ctx context.Context, userID int64) (model.User, error) {
	var u model.User
	var username *string
	err := s.pool.QueryRow(ctx, `
		SELECT id, github_username FROM users WHERE id = $1`,
		userID).Scan(&u.ID, &username)
	if err != nil {
		return model.User{}, wrapError("get user", err)
	}
	if username != nil {
		u.GithubUsername = *username
	}
	return u, nil
}

func (s *PG) SetUserGitHubUsername(ctx context.Context, userID int64, username string) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO users (id, github_username)
		VALUES ($1, $2)
		ON CONFLICT (id) DO UPDATE SET
			github_username = EXCLUDED.github_username,
			updated_at      = now()`,
		userID, username)
	if err != nil {
		return wrapError("set user github username", err)
	}
	return nil
}

func (s *PG) ListUsersWithGitHubUsername(ctx context.Context) ([]model.User, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, github_username
		FROM users
		WHERE github_username IS NOT NULL AND github_username <> ''
		ORDER BY id`)
	if err != nil {
		return nil, wrapError("list users", err)
	}
	defer rows.Close()

	var users []model.User
	for rows.Next() {
		var u model.User
		if err := rows.Scan(&u.ID, &u.GithubUsername); err != nil {
			return nil, wrapError("list users", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapError("list users", err)
	}
	return users, nil
}
