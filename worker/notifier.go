package worker

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"nichecast/internal/model"
	"nichecast/internal/whatsapp"
)

// Notifier delivers the grouped daily summary of unsent pending news
// to each tenant's connected messaging instance, and sends per-post
// approval requests with quick-reply buttons.
type Notifier struct {
	Store     Store
	Messenger Messenger
	Interval  time.Duration
}

func (w *Notifier) Start(ctx context.Context) error {
	if w.Interval <= 0 {
		w.Interval = 30 * time.Minute
	}
	t := time.NewTicker(w.Interval)
	defer t.Stop()

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

// RunOnce iterates tenants sequentially; a failing tenant never aborts
// its siblings.
func (w *Notifier) RunOnce(ctx context.Context) {
	tenants, err := w.Store.ListTenantIDs(ctx)
	if err != nil {
		slog.Error("notifier: list tenants failed", "err", err)
		return
	}
	notified := 0
	for _, tid := range tenants {
		sent, err := w.RunTenant(ctx, tid)
		if err != nil {
			slog.Error("notifier: tenant run failed", "tenant", tid, "err", err)
			continue
		}
		if sent {
			notified++
		}
	}
	slog.Info("notifier: batch completed", "users_notified", notified)
}

// RunTenant sends one summary covering the tenant's unsent pending
// items. The sent flag flips only after the provider accepted the
// message, so a failed delivery is retried on the next run.
func (w *Notifier) RunTenant(ctx context.Context, tenantID string) (bool, error) {
	items, err := w.Store.ListUnsentPendingNews(ctx, tenantID)
	if err != nil {
		return false, err
	}
	if len(items) == 0 {
		return false, nil
	}
	inst, err := w.Store.TenantInstance(ctx, tenantID)
	if err != nil || inst.Status != model.InstanceConnected || inst.Phone == "" {
		slog.Info("notifier: no connected instance", "tenant", tenantID)
		return false, nil
	}

	msg := w.buildSummary(ctx, items)
	if err := w.Messenger.SendText(ctx, inst, inst.Phone, msg); err != nil {
		return false, fmt.Errorf("send summary: %w", err)
	}
	ids := make([]string, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.ID)
	}
	if err := w.Store.MarkNewsSent(ctx, ids); err != nil {
		return true, fmt.Errorf("mark sent: %w", err)
	}
	return true, nil
}

// buildSummary groups items by niche into the numbered daily digest.
func (w *Notifier) buildSummary(ctx context.Context, items []model.NewsItem) string {
	groups := map[string][]model.NewsItem{}
	order := []string{}
	for _, item := range items {
		name := "Geral"
		if niche, err := w.Store.GetNiche(ctx, item.NicheID); err == nil {
			name = niche.Name
		}
		if _, ok := groups[name]; !ok {
			order = append(order, name)
		}
		groups[name] = append(groups[name], item)
	}

	b := &strings.Builder{}
	b.WriteString("🤖 *Resumo do Dia*\n\n")
	fmt.Fprintf(b, "Encontrei oportunidades em %d nicho(s):\n\n", len(order))
	for i, name := range order {
		fmt.Fprintf(b, "*%d️⃣ %s*\n", i+1, name)
		for j, item := range groups[name] {
			if j >= 2 {
				break
			}
			fmt.Fprintf(b, "   • %s\n", truncate(item.Title, 50))
		}
		b.WriteString("\n")
	}
	b.WriteString("────────────────\n")
	b.WriteString("Qual nicho revisar? Responda *1*, *2*, etc.\n")
	b.WriteString("Ou *todos* para ver tudo.")
	return b.String()
}

// SendApprovalRequest pushes one post's preview with approve and
// regenerate buttons to the tenant's connected instance.
func (w *Notifier) SendApprovalRequest(ctx context.Context, post model.Post) error {
	inst, err := w.Store.TenantInstance(ctx, post.TenantID)
	if err != nil {
		return err
	}
	if inst.Status != model.InstanceConnected || inst.Phone == "" {
		return fmt.Errorf("tenant %s has no connected instance", post.TenantID)
	}
	msg := fmt.Sprintf("📰 *NOVA PUBLICAÇÃO*\n\n*Título:* %s\n\n*Preview Instagram:*\n%s\n\nEscolha uma opção:",
		post.SourceTitle, truncate(post.CaptionInstagram, 300))
	return w.Messenger.SendButtons(ctx, inst, inst.Phone, msg, post.ImageURL, []whatsapp.Button{
		{ID: "approve_" + post.ID, Text: "✅ Aprovar"},
		{ID: "regenerate_" + post.ID, Text: "🔄 Regerar"},
	})
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "..."
}
