package ghprofile

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetchRepositoryLanguages(t *testing.T) {
	handler := &countingHandler{handler: func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/repos/octocat/alpha/languages", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"Go":1500,"Makefile":500}`))
	}}
	client, _ := newTestClient(t, handler)

	langs, err := client.FetchRepositoryLanguages(context.Background(), "octocat", "alpha", RepoOptions{})
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{"Go": 1500, "Makefile": 500}, langs)

	// Cached on repeat, case-insensitively.
	_, err = client.FetchRepositoryLanguages(context.Background(), "Octocat", "Alpha", RepoOptions{})
	require.NoError(t, err)
	assert.Equal(t, int32(1), handler.calls.Load())
}

func TestFetchRepositoryLanguagesSoftFailure(t *testing.T) {
	handler := &countingHandler{handler: func(w http.ResponseWriter, r *http.Request) {}}
	client, _ := newTestClient(t, handler)

	tests := []struct {
		name  string
		owner string
		repo  string
	}{
		{name: "empty owner", owner: "", repo: "alpha"},
		{name: "empty repo", owner: "octocat", repo: ""},
		{name: "both empty", owner: "", repo: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			langs, err := client.FetchRepositoryLanguages(context.Background(), tt.owner, tt.repo, RepoOptions{})
			require.NoError(t, err, "missing owner or repo degrades softly")
			assert.Empty(t, langs)
		})
	}
	assert.Equal(t, int32(0), handler.calls.Load())
}

func TestLanguageSummary(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/repos/octocat/alpha/languages":
			w.Write([]byte(`{"JavaScript":1500,"HTML":500}`))
		case "/repos/octocat/beta/languages":
			w.Write([]byte(`{"TypeScript":2000,"Shell":200}`))
		default:
			http.NotFound(w, r)
		}
	}))

	repos := []Repository{{Name: "alpha"}, {Name: "beta"}}
	summary, err := client.LanguageSummary(context.Background(), "octocat", repos, RepoOptions{Limit: 6})
	require.NoError(t, err)

	assert.Equal(t, int64(4200), summary.TotalBytes)
	require.Len(t, summary.Languages, 4)

	assert.Equal(t, "TypeScript", summary.Languages[0].Language)
	assert.Equal(t, int64(2000), summary.Languages[0].Bytes)
	assert.InDelta(t, 0.476, summary.Languages[0].Percentage, 0.001)

	assert.Equal(t, "JavaScript", summary.Languages[1].Language)
	assert.InDelta(t, 0.357, summary.Languages[1].Percentage, 0.001)

	assert.Equal(t, "HTML", summary.Languages[2].Language)
	assert.InDelta(t, 0.119, summary.Languages[2].Percentage, 0.001)

	assert.Equal(t, "Shell", summary.Languages[3].Language)
	assert.InDelta(t, 0.0476, summary.Languages[3].Percentage, 0.001)
}

func TestLanguageSummaryEmptyOwner(t *testing.T) {
	handler := &countingHandler{handler: func(w http.ResponseWriter, r *http.Request) {}}
	client, _ := newTestClient(t, handler)

	_, err := client.LanguageSummary(context.Background(), "", []Repository{{Name: "alpha"}}, RepoOptions{})

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.Status)
	assert.Equal(t, int32(0), handler.calls.Load())
}

func TestLanguageSummaryBoundedByLimit(t *testing.T) {
	handler := &countingHandler{handler: func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"Go":100}`))
	}}
	client, _ := newTestClient(t, handler)

	repos := []Repository{{Name: "a"}, {Name: "b"}, {Name: "c"}}
	summary, err := client.LanguageSummary(context.Background(), "octocat", repos, RepoOptions{Limit: 2})
	require.NoError(t, err)

	assert.Equal(t, int64(200), summary.TotalBytes)
	assert.Equal(t, int32(2), handler.calls.Load(), "repository list is truncated to the limit")
}

func TestLanguageSummaryNoBytes(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{}`))
	}))

	summary, err := client.LanguageSummary(context.Background(), "octocat", []Repository{{Name: "empty"}}, RepoOptions{})
	require.NoError(t, err)

	assert.Equal(t, int64(0), summary.TotalBytes)
	assert.Empty(t, summary.Languages, "zero total bytes yields an empty breakdown")
}
