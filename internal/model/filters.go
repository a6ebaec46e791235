// internal/model/filters.go
package model

import "strings"

// RepoFilters is the recognized filter set for repository fetches.
// Filters are applied client-side after the full list is fetched; an
// unmatched filter yields an empty result, never an error.
type RepoFilters struct {
	Language        string `json:"language"`
	MinStars        int    `json:"min_stars"`
	ExcludeForks    bool   `json:"exclude_forks"`
	OnlyPublic      bool   `json:"only_public"`
	ExcludeArchived bool   `json:"exclude_archived"`
}

// Zero reports whether no filter is set.
func (f RepoFilters) Zero() bool {
	return f == RepoFilters{}
}

// Apply returns the summaries matching every set filter, preserving the
// input order. Language matching is exact but case-insensitive.
func (f RepoFilters) Apply(repos []RepositorySummary) []RepositorySummary {
	if f.Zero() {
		return repos
	}

	matched := make([]RepositorySummary, 0, len(repos))
	for _, r := range repos {
		if f.Language != "" && !strings.EqualFold(r.Language, f.Language) {
			continue
		}
		if r.StarsCount < f.MinStars {
			continue
		}
		if f.ExcludeForks && r.IsFork {
			continue
		}
		if f.OnlyPublic && r.IsPrivate {
			continue
		}
		if f.ExcludeArchived && r.IsArchived {
			continue
		}
		matched = append(matched, r)
	}
	return matched
}
