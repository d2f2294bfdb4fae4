package whatsapp

import (
	"context"
	"errors"
	"testing"

	"nichecast/internal/model"
	"nichecast/internal/storage"

	"github.com/stretchr/testify/require"
)

type memStore struct {
	instances map[string]model.Instance
	byTenant  map[string]string
	saves     int
}

func newMemStore() *memStore {
	return &memStore{instances: map[string]model.Instance{}, byTenant: map[string]string{}}
}

func (m *memStore) TenantInstance(ctx context.Context, tenantID string) (model.Instance, error) {
	id, ok := m.byTenant[tenantID]
	if !ok {
		return model.Instance{}, storage.ErrNotFound
	}
	return m.instances[id], nil
}

func (m *memStore) GetInstance(ctx context.Context, id string) (model.Instance, error) {
	inst, ok := m.instances[id]
	if !ok {
		return model.Instance{}, storage.ErrNotFound
	}
	return inst, nil
}

func (m *memStore) SaveInstance(ctx context.Context, inst *model.Instance) error {
	if inst.ID == "" {
		inst.ID = "inst-" + inst.Name
	}
	m.instances[inst.ID] = *inst
	m.byTenant[inst.TenantID] = inst.ID
	m.saves++
	return nil
}

func (m *memStore) DeleteInstance(ctx context.Context, id string) error {
	inst, ok := m.instances[id]
	if !ok {
		return nil
	}
	delete(m.instances, id)
	if m.byTenant[inst.TenantID] == id {
		delete(m.byTenant, inst.TenantID)
	}
	return nil
}

type fakeProvider struct {
	token      string
	qr         string
	qrErr      error
	status     StatusInfo
	statusErr  error
	created    int
	deleted    int
	webhookURL string
}

func (f *fakeProvider) CreateInstance(ctx context.Context, name string) (string, error) {
	f.created++
	return f.token, nil
}

func (f *fakeProvider) SetWebhook(ctx context.Context, token, url string) error {
	f.webhookURL = url
	return nil
}

func (f *fakeProvider) Status(ctx context.Context, inst model.Instance) (StatusInfo, error) {
	return f.status, f.statusErr
}

func (f *fakeProvider) QRCode(ctx context.Context, inst model.Instance) (string, error) {
	return f.qr, f.qrErr
}

func (f *fakeProvider) DeleteInstance(ctx context.Context, inst model.Instance) error {
	f.deleted++
	return nil
}

func (f *fakeProvider) SendText(ctx context.Context, inst model.Instance, number, text string) error {
	return nil
}

func (f *fakeProvider) SendButtons(ctx context.Context, inst model.Instance, number, text, imageURL string, buttons []Button) error {
	return nil
}

func TestConnectProvisionsInstance(t *testing.T) {
	store := newMemStore()
	provider := &fakeProvider{token: "tok-1", qr: "base64-qr"}
	mgr := NewManager(store, provider, "https://wa.example.com", "https://api.example.com/webhooks/messages")

	res, err := mgr.Connect(context.Background(), "tenant-1")
	require.NoError(t, err)
	require.False(t, res.AlreadyConnected)
	require.NotEmpty(t, res.InstanceID)
	require.Equal(t, "base64-qr", res.QRCode)
	require.Equal(t, 1, provider.created)
	require.Equal(t, "https://api.example.com/webhooks/messages", provider.webhookURL)

	inst, err := store.TenantInstance(context.Background(), "tenant-1")
	require.NoError(t, err)
	require.Equal(t, model.InstanceQRReady, inst.Status)
	require.Equal(t, "tok-1", inst.Token)
	require.Equal(t, "https://wa.example.com", inst.ServerURL)
}

func TestConnectIdempotentWhenConnected(t *testing.T) {
	store := newMemStore()
	provider := &fakeProvider{token: "tok-1", status: StatusInfo{Connected: true, Phone: "5511999999999"}}
	mgr := NewManager(store, provider, "https://wa.example.com", "https://api.example.com/hook")

	first, err := mgr.Connect(context.Background(), "tenant-1")
	require.NoError(t, err)

	_, err = mgr.PollStatus(context.Background(), first.InstanceID)
	require.NoError(t, err)

	second, err := mgr.Connect(context.Background(), "tenant-1")
	require.NoError(t, err)
	require.True(t, second.AlreadyConnected)
	require.Equal(t, first.InstanceID, second.InstanceID)
	require.Equal(t, "5511999999999", second.Phone)
	require.Equal(t, 1, provider.created)
	require.Len(t, store.instances, 1)
}

func TestConnectQRUnavailableLeavesConnecting(t *testing.T) {
	store := newMemStore()
	provider := &fakeProvider{token: "tok-1", qrErr: errors.New("not ready")}
	mgr := NewManager(store, provider, "https://wa", "https://hook")

	res, err := mgr.Connect(context.Background(), "tenant-1")
	require.NoError(t, err)
	require.Empty(t, res.QRCode)

	inst, err := store.GetInstance(context.Background(), res.InstanceID)
	require.NoError(t, err)
	require.Equal(t, model.InstanceConnecting, inst.Status)
}

func TestPollStatusPersistsConnection(t *testing.T) {
	store := newMemStore()
	provider := &fakeProvider{token: "tok-1", qr: "qr"}
	mgr := NewManager(store, provider, "https://wa", "https://hook")

	res, err := mgr.Connect(context.Background(), "tenant-1")
	require.NoError(t, err)

	provider.status = StatusInfo{Connected: true, Phone: "5511888888888"}
	inst, err := mgr.PollStatus(context.Background(), res.InstanceID)
	require.NoError(t, err)
	require.Equal(t, model.InstanceConnected, inst.Status)
	require.Equal(t, "5511888888888", inst.Phone)
	require.Empty(t, inst.QRCode)

	stored, err := store.GetInstance(context.Background(), res.InstanceID)
	require.NoError(t, err)
	require.Equal(t, model.InstanceConnected, stored.Status)
}

func TestPollQRPromotesConnecting(t *testing.T) {
	store := newMemStore()
	provider := &fakeProvider{token: "tok-1", qrErr: errors.New("not ready")}
	mgr := NewManager(store, provider, "https://wa", "https://hook")

	res, err := mgr.Connect(context.Background(), "tenant-1")
	require.NoError(t, err)

	provider.qrErr = nil
	provider.qr = "fresh-qr"
	qr, err := mgr.PollQR(context.Background(), res.InstanceID)
	require.NoError(t, err)
	require.Equal(t, "fresh-qr", qr)

	inst, err := store.GetInstance(context.Background(), res.InstanceID)
	require.NoError(t, err)
	require.Equal(t, model.InstanceQRReady, inst.Status)
}

func TestCancelRemovesInstance(t *testing.T) {
	store := newMemStore()
	provider := &fakeProvider{token: "tok-1", qr: "qr"}
	mgr := NewManager(store, provider, "https://wa", "https://hook")

	res, err := mgr.Connect(context.Background(), "tenant-1")
	require.NoError(t, err)

	require.NoError(t, mgr.Cancel(context.Background(), res.InstanceID))
	require.Equal(t, 1, provider.deleted)
	_, err = store.GetInstance(context.Background(), res.InstanceID)
	require.ErrorIs(t, err, storage.ErrNotFound)

	// Unknown id is a no-op.
	require.NoError(t, mgr.Cancel(context.Background(), "missing"))
	require.Equal(t, 1, provider.deleted)
}
