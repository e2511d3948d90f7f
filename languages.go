package ghprofile

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"
)

// LanguageBreakdown aggregates language byte counts across a repository set.
// It is always recomputed from the repositories passed in, never persisted.
type LanguageBreakdown struct {
	TotalBytes int64           `json:"totalBytes"`
	Languages  []LanguageUsage `json:"breakdown"`
}

// LanguageUsage is one language's share of a breakdown. Percentage is the
// fraction bytes/totalBytes.
type LanguageUsage struct {
	Language   string  `json:"language"`
	Bytes      int64   `json:"bytes"`
	Percentage float64 `json:"percentage"`
}

// FetchRepositoryLanguages fetches a repository's language-to-byte-count
// mapping. An empty owner or repo degrades softly to an empty mapping
// without an upstream call. Results cache under the language TTL, which is
// longer than the repository TTL.
func (c *Client) FetchRepositoryLanguages(ctx context.Context, owner, repo string, opts RepoOptions) (map[string]int64, error) {
	owner = strings.TrimSpace(owner)
	repo = strings.TrimSpace(repo)
	if owner == "" || repo == "" {
		return map[string]int64{}, nil
	}

	ttl := opts.CacheTTL
	if ttl <= 0 {
		ttl = c.languageTTL
	}

	key := fmt.Sprintf("languages:%s/%s", strings.ToLower(owner), strings.ToLower(repo))
	return c.languages.Remember(ctx, key, ttl, func(ctx context.Context) (map[string]int64, error) {
		langURL := fmt.Sprintf("%s/repos/%s/%s/languages",
			c.apiBase, url.PathEscape(owner), url.PathEscape(repo))

		var langs map[string]int64
		if err := c.getJSON(ctx, langURL, "", retriesOrDefault(opts.Retries), &langs); err != nil {
			return nil, err
		}
		if langs == nil {
			langs = map[string]int64{}
		}
		return langs, nil
	})
}

// LanguageSummary accumulates byte totals per language across the given
// repositories, bounded by the same limit logic as repository listings, and
// returns the breakdown sorted by descending byte count.
func (c *Client) LanguageSummary(ctx context.Context, owner string, repos []Repository, opts RepoOptions) (*LanguageBreakdown, error) {
	owner = strings.TrimSpace(owner)
	if owner == "" {
		return nil, &APIError{Status: http.StatusBadRequest, Msg: "owner is required"}
	}

	limit := clampLimit(opts.Limit)
	if len(repos) > limit {
		repos = repos[:limit]
	}

	totals := make(map[string]int64)
	var totalBytes int64
	for _, repo := range repos {
		langs, err := c.FetchRepositoryLanguages(ctx, owner, repo.Name, opts)
		if err != nil {
			return nil, err
		}
		for language, bytes := range langs {
			totals[language] += bytes
			totalBytes += bytes
		}
	}

	summary := &LanguageBreakdown{
		TotalBytes: totalBytes,
		Languages:  []LanguageUsage{},
	}
	if totalBytes == 0 {
		return summary, nil
	}

	for language, bytes := range totals {
		summary.Languages = append(summary.Languages, LanguageUsage{
			Language:   language,
			Bytes:      bytes,
			Percentage: float64(bytes) / float64(totalBytes),
		})
	}
	sort.Slice(summary.Languages, func(i, j int) bool {
		if summary.Languages[i].Bytes != summary.Languages[j].Bytes {
			return summary.Languages[i].Bytes > summary.Languages[j].Bytes
		}
		return summary.Languages[i].Language < summary.Languages[j].Language
	})
	return summary, nil
}
