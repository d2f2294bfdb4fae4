package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"nichecast/internal/lifecycle"
	"nichecast/internal/model"
	"nichecast/internal/search"

	"github.com/stretchr/testify/require"
)

type stubSearcher struct {
	results map[string][]search.Result // query -> results
	err     error
	queries []string
}

func (s *stubSearcher) Search(ctx context.Context, query string) ([]search.Result, error) {
	s.queries = append(s.queries, query)
	if s.err != nil {
		return nil, s.err
	}
	return s.results[query], nil
}

func TestCuratorRunTenant(t *testing.T) {
	store := newWorkerStore()
	store.niches["tenant-1"] = []model.Niche{
		{ID: "niche-1", TenantID: "tenant-1", Name: "Tecnologia", Language: "pt-BR", Active: true},
		{ID: "niche-2", TenantID: "tenant-1", Name: "Off", Active: false},
	}
	searcher := &stubSearcher{results: map[string][]search.Result{
		"últimas notícias Tecnologia Brasil hoje": {
			{Title: "AI chegou", URL: "https://www.site.com/a", Content: "corpo", Source: "site.com"},
			{Title: "Chips novos", URL: "https://b.org/x", Content: "corpo 2", Source: "b.org"},
		},
	}}
	rw := &stubRewriter{authority: "texto com autoridade"}
	c := &Curator{Store: store, Search: searcher, Rewriter: rw}

	n, err := c.RunTenant(context.Background(), "tenant-1")
	require.NoError(t, err)
	require.Equal(t, 2, n)
	require.Len(t, store.news, 2)

	item := store.news[0]
	require.Equal(t, "tenant-1", item.TenantID)
	require.Equal(t, "niche-1", item.NicheID)
	require.Equal(t, lifecycle.StatusPending, item.Status)
	require.Equal(t, "texto com autoridade", item.AuthorityText)
	require.Equal(t, "site.com", item.Source)
	require.False(t, item.Sent)

	// Only the active niche was searched and touched.
	require.Equal(t, []string{"últimas notícias Tecnologia Brasil hoje"}, searcher.queries)
	require.Contains(t, store.lastSearch, "niche-1")
	require.NotContains(t, store.lastSearch, "niche-2")
}

func TestCuratorNoActiveNiches(t *testing.T) {
	store := newWorkerStore()
	c := &Curator{Store: store, Search: &stubSearcher{}, Rewriter: &stubRewriter{}}

	n, err := c.RunTenant(context.Background(), "tenant-1")
	require.NoError(t, err)
	require.Equal(t, -1, n)
}

func TestCuratorSearchFailureTouchesLastSearch(t *testing.T) {
	store := newWorkerStore()
	store.niches["tenant-1"] = []model.Niche{
		{ID: "niche-1", TenantID: "tenant-1", Name: "Tech", Active: true},
	}
	searcher := &stubSearcher{err: errors.New("provider down")}
	c := &Curator{Store: store, Search: searcher, Rewriter: &stubRewriter{}}

	before := time.Now().UTC()
	n, err := c.RunTenant(context.Background(), "tenant-1")
	require.NoError(t, err)
	require.Equal(t, 0, n)
	require.Empty(t, store.news)
	require.True(t, !store.lastSearch["niche-1"].Before(before), "last search must advance even on provider failure")
}

func TestCuratorRunOnceIsolatesTenantFailures(t *testing.T) {
	store := newWorkerStore()
	store.tenants = []string{"tenant-bad", "tenant-good"}
	store.nichesErr["tenant-bad"] = errors.New("boom")
	store.niches["tenant-good"] = []model.Niche{
		{ID: "niche-1", TenantID: "tenant-good", Name: "Tech", Active: true},
	}
	searcher := &stubSearcher{results: map[string][]search.Result{
		"latest news Tech today": {{Title: "T", URL: "https://x.com/a", Content: "c", Source: "x.com"}},
	}}
	c := &Curator{Store: store, Search: searcher, Rewriter: &stubRewriter{authority: "a"}}

	c.RunOnce(context.Background())
	require.Len(t, store.news, 1)
	require.Equal(t, "tenant-good", store.news[0].TenantID)
}
