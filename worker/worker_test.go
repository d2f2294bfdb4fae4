package worker

import (
	"context"
	"fmt"
	"time"

	"nichecast/internal/ai"
	"nichecast/internal/lifecycle"
	"nichecast/internal/model"
	"nichecast/internal/storage"
	"nichecast/internal/whatsapp"
)

// memStore is an in-memory Store for worker tests.
type memStore struct {
	tenants    []string
	tenantsErr error

	niches     map[string][]model.Niche // tenant id -> niches
	nichesErr  map[string]error         // per-tenant failure injection
	lastSearch map[string]time.Time     // niche id -> touched at

	news    []model.NewsItem
	newsErr error

	instances map[string]model.Instance // tenant id -> instance

	posts        map[string]model.Post
	transitions  []string // "id:to"
	sentMessages [][]string
}

func newWorkerStore() *memStore {
	return &memStore{
		niches:     map[string][]model.Niche{},
		nichesErr:  map[string]error{},
		lastSearch: map[string]time.Time{},
		instances:  map[string]model.Instance{},
		posts:      map[string]model.Post{},
	}
}

func (m *memStore) ListTenantIDs(ctx context.Context) ([]string, error) {
	return m.tenants, m.tenantsErr
}

func (m *memStore) ListActiveNiches(ctx context.Context, tenantID string) ([]model.Niche, error) {
	if err := m.nichesErr[tenantID]; err != nil {
		return nil, err
	}
	var out []model.Niche
	for _, n := range m.niches[tenantID] {
		if n.Active {
			out = append(out, n)
		}
	}
	return out, nil
}

func (m *memStore) TouchNicheLastSearch(ctx context.Context, nicheID string, at time.Time) error {
	m.lastSearch[nicheID] = at
	return nil
}

func (m *memStore) InsertNews(ctx context.Context, item *model.NewsItem) error {
	if m.newsErr != nil {
		return m.newsErr
	}
	if item.ID == "" {
		item.ID = fmt.Sprintf("news-%d", len(m.news)+1)
	}
	if item.Status == "" {
		item.Status = lifecycle.StatusPending
	}
	m.news = append(m.news, *item)
	return nil
}

func (m *memStore) GetNiche(ctx context.Context, id string) (model.Niche, error) {
	for _, niches := range m.niches {
		for _, n := range niches {
			if n.ID == id {
				return n, nil
			}
		}
	}
	return model.Niche{}, storage.ErrNotFound
}

func (m *memStore) ListUnsentPendingNews(ctx context.Context, tenantID string) ([]model.NewsItem, error) {
	if m.newsErr != nil {
		return nil, m.newsErr
	}
	var out []model.NewsItem
	for _, item := range m.news {
		if item.TenantID == tenantID && item.Status == lifecycle.StatusPending && !item.Sent {
			out = append(out, item)
		}
	}
	return out, nil
}

func (m *memStore) MarkNewsSent(ctx context.Context, ids []string) error {
	m.sentMessages = append(m.sentMessages, ids)
	for _, id := range ids {
		for i := range m.news {
			if m.news[i].ID == id {
				m.news[i].Sent = true
			}
		}
	}
	return nil
}

func (m *memStore) TenantInstance(ctx context.Context, tenantID string) (model.Instance, error) {
	inst, ok := m.instances[tenantID]
	if !ok {
		return model.Instance{}, storage.ErrNotFound
	}
	return inst, nil
}

func (m *memStore) GetPost(ctx context.Context, id string) (model.Post, error) {
	p, ok := m.posts[id]
	if !ok {
		return model.Post{}, storage.ErrNotFound
	}
	return p, nil
}

func (m *memStore) TransitionPost(ctx context.Context, id string, to lifecycle.Status, mutate func(*model.Post)) (model.Post, error) {
	p, ok := m.posts[id]
	if !ok {
		return model.Post{}, storage.ErrNotFound
	}
	if err := lifecycle.Validate(p.Status, to); err != nil {
		return model.Post{}, err
	}
	p.Status = to
	if mutate != nil {
		mutate(&p)
	}
	m.posts[id] = p
	m.transitions = append(m.transitions, id+":"+string(to))
	return p, nil
}

// stubRewriter satisfies ai.Rewriter with canned outputs.
type stubRewriter struct {
	authority    string
	authorityErr error
	captions     ai.Captions
	captionsErr  error
	calls        int
}

func (s *stubRewriter) RewriteWithAuthority(ctx context.Context, title, content string, niche model.Niche) (string, error) {
	s.calls++
	return s.authority, s.authorityErr
}

func (s *stubRewriter) GenerateCaptions(ctx context.Context, title, contentRaw string) (ai.Captions, error) {
	s.calls++
	return s.captions, s.captionsErr
}

// stubMessenger records outbound messages.
type stubMessenger struct {
	texts   []string
	buttons []whatsapp.Button
	textErr error
}

func (s *stubMessenger) SendText(ctx context.Context, inst model.Instance, number, text string) error {
	if s.textErr != nil {
		return s.textErr
	}
	s.texts = append(s.texts, text)
	return nil
}

func (s *stubMessenger) SendButtons(ctx context.Context, inst model.Instance, number, text, imageURL string, buttons []whatsapp.Button) error {
	s.buttons = append(s.buttons, buttons...)
	s.texts = append(s.texts, text)
	return nil
}
