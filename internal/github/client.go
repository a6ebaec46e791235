// internal/github/client.go
package github

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/go-github/v62/github"
	"golang.org/x/oauth2"

	"project-tracker/internal/apperrors"
	"project-tracker/internal/model"
)

const perPage = 100 // Max page size the GitHub API allows

// Client is a wrapper around the go-github client. It lists a user's
// repositories and normalizes them into model.RepositorySummary values,
// translating upstream failures into the apperrors taxonomy.
type Client struct {
	gh      *github.Client
	timeout time.Duration
	logger  *slog.Logger
}

// NewClient creates and configures a new Client instance. An empty token
// yields an unauthenticated client, which works at a lower rate limit.
func NewClient(token string, timeout time.Duration, logger *slog.Logger) *Client {
	var hc *http.Client
	if token != "" {
		ts := oauth2.StaticTokenSource(
			&oauth2.Token{AccessToken: token},
		)
		hc = oauth2.NewClient(context.Background(), ts)
	}

	return &Client{
		gh:      github.NewClient(hc),
		timeout: timeout,
		logger:  logger,
	}
}

// SetBaseURL points the client at a different API endpoint, e.g. a GitHub
// Enterprise instance or a test server.
func (c *Client) SetBaseURL(rawURL string) error {
	if !strings.HasSuffix(rawURL, "/") {
		rawURL += "/"
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return err
	}
	c.gh.BaseURL = u
	return nil
}

// ListUserRepositories fetches every repository GitHub exposes for the
// given username, most recently updated first. It handles API pagination
// transparently and bounds the whole fetch by the configured timeout.
//
// Failures are classified: an unknown username is a NotFound error, an
// exhausted request quota is RateLimited, and anything else from the
// transport is Upstream. None of them are retried here; the caller
// decides whether to retry.
func (c *Client) ListUserRepositories(ctx context.Context, username string) ([]model.RepositorySummary, error) {
	if username == "" {
		return nil, apperrors.Validation("username must not be empty")
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var summaries []model.RepositorySummary

	opts := &github.RepositoryListByUserOptions{
		Sort:      "updated",
		Direction: "desc",
		ListOptions: github.ListOptions{
			PerPage: perPage,
		},
	}

	for {
		c.logger.Debug("Fetching repositories page", "username", username, "page", opts.Page)

		repos, resp, err := c.gh.Repositories.ListByUser(ctx, username, opts)
		if err != nil {
			return nil, classifyError(username, err)
		}

		for _, repo := range repos {
			summaries = append(summaries, toSummary(repo))
		}

		if resp.NextPage == 0 {
			c.logger.Debug("Fetched repositories",
				"username", username,
				"count", len(summaries),
				"rate_remaining", resp.Rate.Remaining)
			break
		}
		opts.Page = resp.NextPage
	}

	return summaries, nil
}

// classifyError maps a go-github error to the apperrors taxonomy.
func classifyError(username string, err error) error {
	var rateErr *github.RateLimitError
	if errors.As(err, &rateErr) {
		return apperrors.RateLimited("GitHub API rate limit exceeded; configure GITHUB_TOKEN to raise the quota")
	}

	var abuseErr *github.AbuseRateLimitError
	if errors.As(err, &abuseErr) {
		return apperrors.RateLimited("GitHub API secondary rate limit hit; configure GITHUB_TOKEN and retry later")
	}

	var ghErr *github.ErrorResponse
	if errors.As(err, &ghErr) && ghErr.Response != nil && ghErr.Response.StatusCode == http.StatusNotFound {
		return apperrors.NotFound("GitHub user " + username + " not found")
	}

	return apperrors.Upstream("GitHub API request failed", err)
}

// toSummary translates a github.Repository object to our internal
// model.RepositorySummary. The pushed_at timestamp is the authoritative
// "last real activity" signal; updated_at can change without any code
// change (a star is enough), so both are kept.
func toSummary(r *github.Repository) model.RepositorySummary {
	language := r.GetLanguage()
	if language == "" {
		language = "Unknown"
	}

	s := model.RepositorySummary{
		GithubRepoID:  r.GetID(),
		Name:          r.GetName(),
		FullName:      r.GetFullName(),
		Description:   r.Description,
		URL:           r.GetHTMLURL(),
		Homepage:      r.Homepage,
		Language:      language,
		StarsCount:    r.GetStargazersCount(),
		ForksCount:    r.GetForksCount(),
		IsPrivate:     r.GetPrivate(),
		IsFork:        r.GetFork(),
		IsArchived:    r.GetArchived(),
		Topics:        r.Topics,
		RepoCreatedAt: r.GetCreatedAt().Time,
		RepoUpdatedAt: r.GetUpdatedAt().Time,
	}

	if pushed := r.PushedAt; pushed != nil {
		t := pushed.Time
		s.LastPushedAt = &t
	}

	return s
}
