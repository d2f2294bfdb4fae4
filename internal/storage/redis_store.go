package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"nichecast/internal/lifecycle"
	"nichecast/internal/model"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var (
	// ErrNotFound is returned when a referenced entity id is absent.
	ErrNotFound = errors.New("entity not found")
	// ErrConflict is returned when a conditional status transition
	// loses to a concurrent write on the same entity.
	ErrConflict = errors.New("concurrent status change")
)

type RedisStore struct {
	rdb *redis.Client
}

func NewRedisStore(rdb *redis.Client) *RedisStore {
	return &RedisStore{rdb: rdb}
}

func tenantKey(id string) string        { return "nc:tenant:" + id }
func tenantsKey() string                { return "nc:tenants" }
func nicheKey(id string) string         { return "nc:niche:" + id }
func tenantNichesKey(tid string) string { return fmt.Sprintf("nc:tenant:%s:niches", tid) }
func newsKey(id string) string          { return "nc:news:" + id }
func tenantNewsKey(tid string) string   { return fmt.Sprintf("nc:tenant:%s:news", tid) }
func postKey(id string) string          { return "nc:post:" + id }
func tenantPostsKey(tid string) string  { return fmt.Sprintf("nc:tenant:%s:posts", tid) }
func instanceKey(id string) string      { return "nc:instance:" + id }
func instancesKey() string              { return "nc:instances" }
func tenantInstanceKey(tid string) string {
	return fmt.Sprintf("nc:tenant:%s:instance", tid)
}

func (s *RedisStore) setJSON(ctx context.Context, key string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return s.rdb.Set(ctx, key, b, 0).Err()
}

func (s *RedisStore) getJSON(ctx context.Context, key string, v any) error {
	b, err := s.rdb.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	return json.Unmarshal(b, v)
}

// --- tenants ---

func (s *RedisStore) SaveTenant(ctx context.Context, t *model.Tenant) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}
	if err := s.setJSON(ctx, tenantKey(t.ID), t); err != nil {
		return err
	}
	return s.rdb.SAdd(ctx, tenantsKey(), t.ID).Err()
}

func (s *RedisStore) GetTenant(ctx context.Context, id string) (model.Tenant, error) {
	var t model.Tenant
	err := s.getJSON(ctx, tenantKey(id), &t)
	return t, err
}

func (s *RedisStore) ListTenantIDs(ctx context.Context) ([]string, error) {
	return s.rdb.SMembers(ctx, tenantsKey()).Result()
}

// --- niches ---

func (s *RedisStore) SaveNiche(ctx context.Context, n *model.Niche) error {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}
	if err := s.setJSON(ctx, nicheKey(n.ID), n); err != nil {
		return err
	}
	z := redis.Z{Score: float64(n.CreatedAt.UnixNano()), Member: n.ID}
	return s.rdb.ZAdd(ctx, tenantNichesKey(n.TenantID), z).Err()
}

func (s *RedisStore) GetNiche(ctx context.Context, id string) (model.Niche, error) {
	var n model.Niche
	err := s.getJSON(ctx, nicheKey(id), &n)
	return n, err
}

// ListNiches returns all niches for a tenant in creation order.
func (s *RedisStore) ListNiches(ctx context.Context, tenantID string) ([]model.Niche, error) {
	ids, err := s.rdb.ZRange(ctx, tenantNichesKey(tenantID), 0, -1).Result()
	if err != nil {
		return nil, err
	}
	out := make([]model.Niche, 0, len(ids))
	for _, id := range ids {
		var n model.Niche
		if err := s.getJSON(ctx, nicheKey(id), &n); err != nil {
			if errors.Is(err, ErrNotFound) {
				continue
			}
			return nil, err
		}
		out = append(out, n)
	}
	return out, nil
}

// ListActiveNiches filters ListNiches down to active ones.
func (s *RedisStore) ListActiveNiches(ctx context.Context, tenantID string) ([]model.Niche, error) {
	niches, err := s.ListNiches(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	out := niches[:0]
	for _, n := range niches {
		if n.Active {
			out = append(out, n)
		}
	}
	return out, nil
}

// TouchNicheLastSearch advances the niche's last-search timestamp.
func (s *RedisStore) TouchNicheLastSearch(ctx context.Context, id string, at time.Time) error {
	n, err := s.GetNiche(ctx, id)
	if err != nil {
		return err
	}
	n.LastSearch = at.UTC()
	return s.setJSON(ctx, nicheKey(id), &n)
}

// --- news items ---

func (s *RedisStore) InsertNews(ctx context.Context, item *model.NewsItem) error {
	if item.ID == "" {
		item.ID = uuid.NewString()
	}
	if item.CreatedAt.IsZero() {
		item.CreatedAt = time.Now().UTC()
	}
	if item.Status == "" {
		item.Status = lifecycle.StatusPending
	}
	if err := s.setJSON(ctx, newsKey(item.ID), item); err != nil {
		return err
	}
	z := redis.Z{Score: float64(item.CreatedAt.UnixNano()), Member: item.ID}
	return s.rdb.ZAdd(ctx, tenantNewsKey(item.TenantID), z).Err()
}

func (s *RedisStore) GetNews(ctx context.Context, id string) (model.NewsItem, error) {
	var item model.NewsItem
	err := s.getJSON(ctx, newsKey(id), &item)
	return item, err
}

// ListNews returns a tenant's news items newest first. Ties on the
// creation timestamp break by creation order (zset member order).
func (s *RedisStore) ListNews(ctx context.Context, tenantID string, limit int) ([]model.NewsItem, error) {
	stop := int64(-1)
	if limit > 0 {
		stop = int64(limit - 1)
	}
	ids, err := s.rdb.ZRevRange(ctx, tenantNewsKey(tenantID), 0, stop).Result()
	if err != nil {
		return nil, err
	}
	out := make([]model.NewsItem, 0, len(ids))
	for _, id := range ids {
		var item model.NewsItem
		if err := s.getJSON(ctx, newsKey(id), &item); err != nil {
			if errors.Is(err, ErrNotFound) {
				continue
			}
			return nil, err
		}
		out = append(out, item)
	}
	return out, nil
}

// LatestPendingNews returns the most recently created pending item for
// a tenant, or ErrNotFound when nothing is pending.
func (s *RedisStore) LatestPendingNews(ctx context.Context, tenantID string) (model.NewsItem, error) {
	items, err := s.ListNews(ctx, tenantID, 0)
	if err != nil {
		return model.NewsItem{}, err
	}
	for _, item := range items {
		if item.Status == lifecycle.StatusPending {
			return item, nil
		}
	}
	return model.NewsItem{}, ErrNotFound
}

// ListUnsentPendingNews returns pending items not yet delivered over
// the messaging channel, newest first.
func (s *RedisStore) ListUnsentPendingNews(ctx context.Context, tenantID string) ([]model.NewsItem, error) {
	items, err := s.ListNews(ctx, tenantID, 0)
	if err != nil {
		return nil, err
	}
	out := items[:0]
	for _, item := range items {
		if item.Status == lifecycle.StatusPending && !item.Sent {
			out = append(out, item)
		}
	}
	return out, nil
}

// TransitionNews applies from -> to on a news item under an optimistic
// watch. A concurrent writer makes this return ErrConflict; an item
// whose current status is not `from` returns ErrIllegalTransition.
func (s *RedisStore) TransitionNews(ctx context.Context, id string, from, to lifecycle.Status) (model.NewsItem, error) {
	var updated model.NewsItem
	err := s.rdb.Watch(ctx, func(tx *redis.Tx) error {
		b, err := tx.Get(ctx, newsKey(id)).Bytes()
		if err == redis.Nil {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		var item model.NewsItem
		if err := json.Unmarshal(b, &item); err != nil {
			return err
		}
		if item.Status != from {
			return fmt.Errorf("%w: %s -> %s (now %s)", lifecycle.ErrIllegalTransition, from, to, item.Status)
		}
		if err := lifecycle.Validate(from, to); err != nil {
			return err
		}
		item.Status = to
		nb, err := json.Marshal(&item)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, newsKey(id), nb, 0)
			return nil
		})
		if err == nil {
			updated = item
		}
		return err
	}, newsKey(id))
	if errors.Is(err, redis.TxFailedErr) {
		return model.NewsItem{}, ErrConflict
	}
	return updated, err
}

// MarkNewsSent flips the sent flag on the given items.
func (s *RedisStore) MarkNewsSent(ctx context.Context, ids []string) error {
	for _, id := range ids {
		item, err := s.GetNews(ctx, id)
		if err != nil {
			return err
		}
		item.Sent = true
		if err := s.setJSON(ctx, newsKey(id), &item); err != nil {
			return err
		}
	}
	return nil
}

// --- posts ---

func (s *RedisStore) InsertPost(ctx context.Context, p *model.Post) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	if p.Status == "" {
		p.Status = lifecycle.StatusScraping
	}
	if err := s.setJSON(ctx, postKey(p.ID), p); err != nil {
		return err
	}
	z := redis.Z{Score: float64(p.CreatedAt.UnixNano()), Member: p.ID}
	return s.rdb.ZAdd(ctx, tenantPostsKey(p.TenantID), z).Err()
}

func (s *RedisStore) GetPost(ctx context.Context, id string) (model.Post, error) {
	var p model.Post
	err := s.getJSON(ctx, postKey(id), &p)
	return p, err
}

// ListPosts returns a tenant's posts newest first.
func (s *RedisStore) ListPosts(ctx context.Context, tenantID string, limit int) ([]model.Post, error) {
	stop := int64(-1)
	if limit > 0 {
		stop = int64(limit - 1)
	}
	ids, err := s.rdb.ZRevRange(ctx, tenantPostsKey(tenantID), 0, stop).Result()
	if err != nil {
		return nil, err
	}
	out := make([]model.Post, 0, len(ids))
	for _, id := range ids {
		var p model.Post
		if err := s.getJSON(ctx, postKey(id), &p); err != nil {
			if errors.Is(err, ErrNotFound) {
				continue
			}
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

// TransitionPost advances a post to the given status under an
// optimistic watch on the post key. mutate (optional) edits the rest
// of the record inside the same conditional write, so a worker's field
// updates land only together with its stage advancement. The current
// status is re-read inside the watch; an illegal advancement returns
// lifecycle.ErrIllegalTransition and a lost race returns ErrConflict.
func (s *RedisStore) TransitionPost(ctx context.Context, id string, to lifecycle.Status, mutate func(*model.Post)) (model.Post, error) {
	var updated model.Post
	err := s.rdb.Watch(ctx, func(tx *redis.Tx) error {
		b, err := tx.Get(ctx, postKey(id)).Bytes()
		if err == redis.Nil {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		var p model.Post
		if err := json.Unmarshal(b, &p); err != nil {
			return err
		}
		if err := lifecycle.Validate(p.Status, to); err != nil {
			return err
		}
		p.Status = to
		if mutate != nil {
			mutate(&p)
		}
		nb, err := json.Marshal(&p)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, postKey(id), nb, 0)
			return nil
		})
		if err == nil {
			updated = p
		}
		return err
	}, postKey(id))
	if errors.Is(err, redis.TxFailedErr) {
		return model.Post{}, ErrConflict
	}
	return updated, err
}

// --- messaging instances ---

func (s *RedisStore) SaveInstance(ctx context.Context, inst *model.Instance) error {
	if inst.ID == "" {
		inst.ID = uuid.NewString()
	}
	if inst.CreatedAt.IsZero() {
		inst.CreatedAt = time.Now().UTC()
	}
	if err := s.setJSON(ctx, instanceKey(inst.ID), inst); err != nil {
		return err
	}
	if err := s.rdb.SAdd(ctx, instancesKey(), inst.ID).Err(); err != nil {
		return err
	}
	return s.rdb.Set(ctx, tenantInstanceKey(inst.TenantID), inst.ID, 0).Err()
}

func (s *RedisStore) GetInstance(ctx context.Context, id string) (model.Instance, error) {
	var inst model.Instance
	err := s.getJSON(ctx, instanceKey(id), &inst)
	return inst, err
}

// TenantInstance returns the tenant's current instance, if any.
func (s *RedisStore) TenantInstance(ctx context.Context, tenantID string) (model.Instance, error) {
	id, err := s.rdb.Get(ctx, tenantInstanceKey(tenantID)).Result()
	if err == redis.Nil {
		return model.Instance{}, ErrNotFound
	}
	if err != nil {
		return model.Instance{}, err
	}
	return s.GetInstance(ctx, id)
}

func (s *RedisStore) DeleteInstance(ctx context.Context, id string) error {
	inst, err := s.GetInstance(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil
		}
		return err
	}
	if err := s.rdb.Del(ctx, instanceKey(id)).Err(); err != nil {
		return err
	}
	if err := s.rdb.SRem(ctx, instancesKey(), id).Err(); err != nil {
		return err
	}
	cur, err := s.rdb.Get(ctx, tenantInstanceKey(inst.TenantID)).Result()
	if err == nil && cur == id {
		return s.rdb.Del(ctx, tenantInstanceKey(inst.TenantID)).Err()
	}
	if err == redis.Nil {
		return nil
	}
	return err
}

// FindConnectedInstanceByPhone resolves the connected instance whose
// phone matches the given owner phone (exact or substring either way).
func (s *RedisStore) FindConnectedInstanceByPhone(ctx context.Context, phone string) (model.Instance, error) {
	phone = strings.TrimSpace(phone)
	if phone == "" {
		return model.Instance{}, ErrNotFound
	}
	ids, err := s.rdb.SMembers(ctx, instancesKey()).Result()
	if err != nil {
		return model.Instance{}, err
	}
	for _, id := range ids {
		inst, err := s.GetInstance(ctx, id)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				continue
			}
			return model.Instance{}, err
		}
		if inst.Status != model.InstanceConnected || inst.Phone == "" {
			continue
		}
		if strings.Contains(inst.Phone, phone) || strings.Contains(phone, inst.Phone) {
			return inst, nil
		}
	}
	return model.Instance{}, ErrNotFound
}
