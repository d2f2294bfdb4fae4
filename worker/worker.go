package worker

import (
	"context"
	"time"

	"nichecast/internal/lifecycle"
	"nichecast/internal/model"
	"nichecast/internal/whatsapp"
)

// Worker is a long-running loop supervised by the Manager.
type Worker interface {
	Start(ctx context.Context) error
}

// Store is the entity access the workers depend on. Workers hold no
// state across invocations: each run reads current entity state,
// performs the external work, and writes back a delta.
type Store interface {
	ListTenantIDs(ctx context.Context) ([]string, error)
	ListActiveNiches(ctx context.Context, tenantID string) ([]model.Niche, error)
	TouchNicheLastSearch(ctx context.Context, nicheID string, at time.Time) error
	InsertNews(ctx context.Context, item *model.NewsItem) error
	GetNiche(ctx context.Context, id string) (model.Niche, error)
	ListUnsentPendingNews(ctx context.Context, tenantID string) ([]model.NewsItem, error)
	MarkNewsSent(ctx context.Context, ids []string) error
	TenantInstance(ctx context.Context, tenantID string) (model.Instance, error)
	GetPost(ctx context.Context, id string) (model.Post, error)
	TransitionPost(ctx context.Context, id string, to lifecycle.Status, mutate func(*model.Post)) (model.Post, error)
}

// Messenger delivers outbound chat messages for the notifier.
type Messenger interface {
	SendText(ctx context.Context, inst model.Instance, number, text string) error
	SendButtons(ctx context.Context, inst model.Instance, number, text, imageURL string, buttons []whatsapp.Button) error
}
