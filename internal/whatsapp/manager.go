package whatsapp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"nichecast/internal/model"
	"nichecast/internal/storage"
)

// Store is the instance persistence the manager depends on.
type Store interface {
	TenantInstance(ctx context.Context, tenantID string) (model.Instance, error)
	GetInstance(ctx context.Context, id string) (model.Instance, error)
	SaveInstance(ctx context.Context, inst *model.Instance) error
	DeleteInstance(ctx context.Context, id string) error
}

// ConnectResult is the outcome of a Connect call.
type ConnectResult struct {
	InstanceID       string `json:"instance_id"`
	Phone            string `json:"phone,omitempty"`
	QRCode           string `json:"qr_code,omitempty"`
	AlreadyConnected bool   `json:"already_connected"`
}

// Manager drives the instance lifecycle:
// pending -> connecting -> qr_ready -> connected, or disconnected on
// cancel/expiry. There is no automatic reconnection.
type Manager struct {
	store      Store
	provider   Provider
	serverURL  string
	webhookURL string
}

func NewManager(store Store, provider Provider, serverURL, webhookURL string) *Manager {
	return &Manager{store: store, provider: provider, serverURL: serverURL, webhookURL: webhookURL}
}

// Connect provisions a messaging instance for the tenant. When the
// tenant already has a connected instance this is an idempotent
// short-circuit returning the existing identity; no second record is
// created.
func (m *Manager) Connect(ctx context.Context, tenantID string) (ConnectResult, error) {
	existing, err := m.store.TenantInstance(ctx, tenantID)
	if err == nil && existing.Status == model.InstanceConnected {
		return ConnectResult{
			InstanceID:       existing.ID,
			Phone:            existing.Phone,
			AlreadyConnected: true,
		}, nil
	}
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return ConnectResult{}, err
	}

	name := instanceName(tenantID)
	token, err := m.provider.CreateInstance(ctx, name)
	if err != nil {
		return ConnectResult{}, fmt.Errorf("create instance: %w", err)
	}
	if err := m.provider.SetWebhook(ctx, token, m.webhookURL); err != nil {
		slog.Error("whatsapp: webhook registration failed", "instance", name, "err", err)
	}

	inst := model.Instance{
		TenantID:  tenantID,
		Name:      name,
		ServerURL: m.serverURL,
		Token:     token,
		Status:    model.InstanceConnecting,
	}
	if err := m.store.SaveInstance(ctx, &inst); err != nil {
		return ConnectResult{}, err
	}

	// Initial QR challenge; best effort, the caller polls anyway.
	qr, err := m.provider.QRCode(ctx, inst)
	if err != nil {
		slog.Warn("whatsapp: initial qr fetch failed", "instance_id", inst.ID, "err", err)
	} else if qr != "" {
		inst.Status = model.InstanceQRReady
		inst.QRCode = qr
		if err := m.store.SaveInstance(ctx, &inst); err != nil {
			return ConnectResult{}, err
		}
	}

	return ConnectResult{InstanceID: inst.ID, QRCode: qr}, nil
}

// PollStatus queries the provider. On seeing a connected state it
// persists the connected status plus discovered identity. Callers poll
// this at a bounded interval while the instance is in qr_ready.
func (m *Manager) PollStatus(ctx context.Context, instanceID string) (model.Instance, error) {
	inst, err := m.store.GetInstance(ctx, instanceID)
	if err != nil {
		return model.Instance{}, err
	}
	info, err := m.provider.Status(ctx, inst)
	if err != nil {
		return model.Instance{}, err
	}
	if info.Connected && inst.Status != model.InstanceConnected {
		inst.Status = model.InstanceConnected
		inst.Phone = info.Phone
		inst.QRCode = ""
		if err := m.store.SaveInstance(ctx, &inst); err != nil {
			return model.Instance{}, err
		}
		slog.Info("whatsapp: instance connected", "instance_id", inst.ID, "phone", inst.Phone)
	}
	return inst, nil
}

// PollQR re-fetches the current QR challenge; it can rotate before
// scanning completes.
func (m *Manager) PollQR(ctx context.Context, instanceID string) (string, error) {
	inst, err := m.store.GetInstance(ctx, instanceID)
	if err != nil {
		return "", err
	}
	qr, err := m.provider.QRCode(ctx, inst)
	if err != nil {
		return "", err
	}
	if qr != "" && inst.Status == model.InstanceConnecting {
		inst.Status = model.InstanceQRReady
		inst.QRCode = qr
		if err := m.store.SaveInstance(ctx, &inst); err != nil {
			return "", err
		}
	}
	return qr, nil
}

// Cancel deletes the instance externally and from the store. Calling
// it on a connected instance is not rejected.
func (m *Manager) Cancel(ctx context.Context, instanceID string) error {
	inst, err := m.store.GetInstance(ctx, instanceID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil
		}
		return err
	}
	if err := m.provider.DeleteInstance(ctx, inst); err != nil {
		slog.Error("whatsapp: provider delete failed", "instance_id", inst.ID, "err", err)
	}
	return m.store.DeleteInstance(ctx, instanceID)
}

func instanceName(tenantID string) string {
	short := tenantID
	if len(short) > 8 {
		short = short[:8]
	}
	return fmt.Sprintf("nc_%s_%d", short, time.Now().UnixMilli())
}
