package worker

import (
	"context"
	"log/slog"
	"time"

	"nichecast/internal/ai"
	"nichecast/internal/lifecycle"
	"nichecast/internal/model"
	"nichecast/internal/search"
)

// Searcher is the discovery provider contract.
type Searcher interface {
	Search(ctx context.Context, query string) ([]search.Result, error)
}

// Curator discovers raw news candidates for every active niche and
// inserts them as pending news items. Batch mode iterates all tenants;
// RunTenant filters to one.
type Curator struct {
	Store    Store
	Search   Searcher
	Rewriter ai.Rewriter
	Interval time.Duration
}

func (w *Curator) Start(ctx context.Context) error {
	if w.Interval <= 0 {
		w.Interval = 6 * time.Hour
	}
	t := time.NewTicker(w.Interval)
	defer t.Stop()

	// initial run
	w.RunOnce(ctx)

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
			w.RunOnce(ctx)
		}
	}
}

// RunOnce processes all tenants with at least one active niche,
// sequentially per tenant. A failing tenant never aborts its siblings.
func (w *Curator) RunOnce(ctx context.Context) {
	tenants, err := w.Store.ListTenantIDs(ctx)
	if err != nil {
		slog.Error("curator: list tenants failed", "err", err)
		return
	}
	var processed, curated int
	for _, tid := range tenants {
		n, err := w.RunTenant(ctx, tid)
		if err != nil {
			slog.Error("curator: tenant run failed", "tenant", tid, "err", err)
			continue
		}
		if n >= 0 {
			processed++
			curated += n
		}
	}
	slog.Info("curator: batch completed", "tenants", processed, "news_curated", curated)
}

// RunTenant curates every active niche for one tenant and returns how
// many news items were inserted, or -1 when the tenant has no active
// niches. A provider error for one niche yields an empty result set
// for that niche only; it never aborts the sibling niches. The niche's
// last-search timestamp advances regardless of whether results were
// found.
func (w *Curator) RunTenant(ctx context.Context, tenantID string) (int, error) {
	niches, err := w.Store.ListActiveNiches(ctx, tenantID)
	if err != nil {
		return 0, err
	}
	if len(niches) == 0 {
		return -1, nil
	}
	curated := 0
	for _, niche := range niches {
		curated += w.runNiche(ctx, niche)
		if err := w.Store.TouchNicheLastSearch(ctx, niche.ID, time.Now().UTC()); err != nil {
			slog.Error("curator: touch last-search failed", "niche", niche.ID, "err", err)
		}
	}
	return curated, nil
}

func (w *Curator) runNiche(ctx context.Context, niche model.Niche) int {
	query := search.BuildQuery(niche)
	slog.Info("curator: searching", "niche", niche.Name, "query", query)

	results, err := w.Search.Search(ctx, query)
	if err != nil {
		slog.Error("curator: search failed", "niche", niche.Name, "err", err)
		return 0
	}
	inserted := 0
	for _, r := range results {
		authority, err := w.Rewriter.RewriteWithAuthority(ctx, r.Title, r.Content, niche)
		if err != nil {
			// Rewriter masks provider failures; an error here means
			// the candidate itself is unusable.
			slog.Error("curator: rewrite failed", "niche", niche.Name, "err", err)
			continue
		}
		item := model.NewsItem{
			TenantID:      niche.TenantID,
			NicheID:       niche.ID,
			Title:         r.Title,
			URL:           r.URL,
			Source:        r.Source,
			Summary:       r.Content,
			AuthorityText: authority,
			Status:        lifecycle.StatusPending,
		}
		if err := w.Store.InsertNews(ctx, &item); err != nil {
			slog.Error("curator: insert failed", "niche", niche.Name, "err", err)
			continue
		}
		inserted++
	}
	slog.Info("curator: completed for niche", "niche", niche.Name, "stored", inserted)
	return inserted
}
