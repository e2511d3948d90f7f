package ghprofile

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"
)

// Repository sort orders.
const (
	SortRecent = "recent" // most recent push first (default)
	SortStars  = "stars"  // highest star count first
)

const (
	defaultRepoLimit = 6
	maxRepoLimit     = 50
	maxPerPage       = 100
)

// RepoOptions tunes a repository or language query. Zero values fall back to
// the client defaults: limit 6, sort by recency, the client's cache TTL and
// retry budget.
type RepoOptions struct {
	Limit    int
	Sort     string
	CacheTTL time.Duration
	Retries  int
}

// Repository is the public projection of a GitHub repository.
type Repository struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	FullName    string    `json:"full_name"`
	Description string    `json:"description"`
	HTMLURL     string    `json:"html_url"`
	Homepage    string    `json:"homepage"`
	Language    string    `json:"language"`
	Topics      []string  `json:"topics"`
	Stars       int       `json:"stargazers_count"`
	Watchers    int       `json:"watchers_count"`
	Forks       int       `json:"forks_count"`
	OpenIssues  int       `json:"open_issues_count"`
	License     *License  `json:"license,omitempty"`
	Visibility  string    `json:"visibility"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	PushedAt    time.Time `json:"pushed_at"`
	Archived    bool      `json:"archived"`
	Disabled    bool      `json:"disabled"`
	Size        int       `json:"size"`
}

// License describes a repository license, when GitHub reports one.
type License struct {
	Key    string `json:"key"`
	Name   string `json:"name"`
	SPDXID string `json:"spdx_id"`
}

// githubRepo is the upstream shape; only the fields we project are decoded.
type githubRepo struct {
	ID          int64      `json:"id"`
	Name        string     `json:"name"`
	FullName    string     `json:"full_name"`
	Description string     `json:"description"`
	HTMLURL     string     `json:"html_url"`
	Homepage    string     `json:"homepage"`
	Language    string     `json:"language"`
	Topics      []string   `json:"topics"`
	Stars       int        `json:"stargazers_count"`
	Watchers    int        `json:"watchers_count"`
	Forks       int        `json:"forks_count"`
	OpenIssues  int        `json:"open_issues_count"`
	License     *License   `json:"license"`
	Fork        bool       `json:"fork"`
	Private     bool       `json:"private"`
	Visibility  string     `json:"visibility"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	PushedAt    *time.Time `json:"pushed_at"`
	Archived    bool       `json:"archived"`
	Disabled    bool       `json:"disabled"`
	Size        int        `json:"size"`
}

// FetchRepositories lists an account's public repositories, forks excluded,
// sorted and truncated per opts. Results are cached; a hit never touches
// GitHub.
func (c *Client) FetchRepositories(ctx context.Context, account string, opts RepoOptions) ([]Repository, error) {
	account = strings.TrimSpace(account)
	if account == "" {
		return nil, &APIError{Status: http.StatusBadRequest, Msg: "account is required"}
	}

	limit := clampLimit(opts.Limit)
	sortBy := normalizeSort(opts.Sort)
	ttl := opts.CacheTTL
	if ttl <= 0 {
		ttl = c.repoTTL
	}

	key := fmt.Sprintf("repos:%s:%d:%s", strings.ToLower(account), limit, sortBy)
	return c.repos.Remember(ctx, key, ttl, func(ctx context.Context) ([]Repository, error) {
		// Over-fetch so fork filtering still leaves enough entries.
		perPage := limit * 2
		if perPage < limit {
			perPage = limit
		}
		if perPage > maxPerPage {
			perPage = maxPerPage
		}

		listURL := fmt.Sprintf("%s/users/%s/repos?sort=updated&direction=desc&per_page=%d",
			c.apiBase, url.PathEscape(account), perPage)

		var raw []githubRepo
		if err := c.getJSON(ctx, listURL, "", retriesOrDefault(opts.Retries), &raw); err != nil {
			return nil, err
		}

		repos := make([]Repository, 0, len(raw))
		for _, r := range raw {
			if r.Fork {
				continue
			}
			repos = append(repos, normalizeRepository(r))
		}
		sortRepositories(repos, sortBy)
		if len(repos) > limit {
			repos = repos[:limit]
		}
		return repos, nil
	})
}

func normalizeRepository(r githubRepo) Repository {
	visibility := r.Visibility
	if visibility == "" {
		if r.Private {
			visibility = "private"
		} else {
			visibility = "public"
		}
	}
	topics := r.Topics
	if topics == nil {
		topics = []string{}
	}
	var pushedAt time.Time
	if r.PushedAt != nil {
		pushedAt = *r.PushedAt
	}
	return Repository{
		ID:          r.ID,
		Name:        r.Name,
		FullName:    r.FullName,
		Description: r.Description,
		HTMLURL:     r.HTMLURL,
		Homepage:    r.Homepage,
		Language:    r.Language,
		Topics:      topics,
		Stars:       r.Stars,
		Watchers:    r.Watchers,
		Forks:       r.Forks,
		OpenIssues:  r.OpenIssues,
		License:     r.License,
		Visibility:  visibility,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
		PushedAt:    pushedAt,
		Archived:    r.Archived,
		Disabled:    r.Disabled,
		Size:        r.Size,
	}
}

func sortRepositories(repos []Repository, sortBy string) {
	switch sortBy {
	case SortStars:
		sort.SliceStable(repos, func(i, j int) bool {
			return repos[i].Stars > repos[j].Stars
		})
	default:
		sort.SliceStable(repos, func(i, j int) bool {
			return repos[i].PushedAt.After(repos[j].PushedAt)
		})
	}
}

func clampLimit(n int) int {
	if n <= 0 {
		return defaultRepoLimit
	}
	if n > maxRepoLimit {
		return maxRepoLimit
	}
	return n
}

func normalizeSort(s string) string {
	if s == SortStars {
		return SortStars
	}
	return SortRecent
}

func retriesOrDefault(n int) int {
	if n <= 0 {
		return -1
	}
	return n
}
