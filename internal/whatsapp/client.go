package whatsapp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"nichecast/internal/config"
	"nichecast/internal/model"
)

// Button is one quick-reply option attached to an outbound message.
type Button struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// StatusInfo is the provider's view of an instance connection.
type StatusInfo struct {
	Connected bool
	Phone     string
}

// Provider is the messaging-provider surface the instance manager and
// the workers depend on.
type Provider interface {
	CreateInstance(ctx context.Context, name string) (token string, err error)
	SetWebhook(ctx context.Context, token, url string) error
	Status(ctx context.Context, inst model.Instance) (StatusInfo, error)
	QRCode(ctx context.Context, inst model.Instance) (string, error)
	DeleteInstance(ctx context.Context, inst model.Instance) error
	SendText(ctx context.Context, inst model.Instance, number, text string) error
	SendButtons(ctx context.Context, inst model.Instance, number, text, imageURL string, buttons []Button) error
}

// Client talks to a uazapi-style WhatsApp gateway. Instance-scoped
// calls use the server URL recorded on the instance, so instances
// provisioned against an older server keep working.
type Client struct {
	serverURL  string
	adminToken string
	http       *http.Client
}

func NewClient(cfg config.WhatsAppConfig) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Client{
		serverURL:  strings.TrimRight(cfg.ServerURL, "/"),
		adminToken: cfg.AdminToken,
		http:       &http.Client{Timeout: 30 * time.Second},
	}, nil
}

// ServerURL exposes the provisioning server for new instance records.
func (c *Client) ServerURL() string { return c.serverURL }

func (c *Client) CreateInstance(ctx context.Context, name string) (string, error) {
	raw, err := c.do(ctx, http.MethodPost, c.serverURL+"/instance/create",
		map[string]string{"admintoken": c.adminToken},
		map[string]any{"instanceName": name})
	if err != nil {
		return "", err
	}
	var parsed struct {
		Token    string `json:"token"`
		Instance struct {
			Token string `json:"token"`
		} `json:"instance"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", err
	}
	token := parsed.Instance.Token
	if token == "" {
		token = parsed.Token
	}
	if token == "" {
		return "", fmt.Errorf("whatsapp: create returned no instance token")
	}
	return token, nil
}

func (c *Client) SetWebhook(ctx context.Context, token, url string) error {
	_, err := c.do(ctx, http.MethodPost, c.serverURL+"/instance/setWebhook",
		map[string]string{"token": token},
		map[string]any{
			"url":           url,
			"enabled":       true,
			"events":        []string{"messages"},
			"excludeEvents": []string{"wasSentByApi"},
		})
	return err
}

func (c *Client) Status(ctx context.Context, inst model.Instance) (StatusInfo, error) {
	raw, err := c.do(ctx, http.MethodGet, inst.ServerURL+"/instance/status",
		map[string]string{"token": inst.Token}, nil)
	if err != nil {
		return StatusInfo{}, err
	}
	var parsed struct {
		Status         string `json:"status"`
		InstanceStatus string `json:"instanceStatus"`
		Number         string `json:"number"`
		Phone          string `json:"phone"`
		ConnectedPhone string `json:"connectedPhone"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return StatusInfo{}, err
	}
	connected := parsed.Status == "connected" || parsed.InstanceStatus == "connected"
	phone := parsed.Number
	if phone == "" {
		phone = parsed.Phone
	}
	if phone == "" {
		phone = parsed.ConnectedPhone
	}
	return StatusInfo{Connected: connected, Phone: phone}, nil
}

func (c *Client) QRCode(ctx context.Context, inst model.Instance) (string, error) {
	raw, err := c.do(ctx, http.MethodGet, inst.ServerURL+"/instance/qrCode",
		map[string]string{"token": inst.Token}, nil)
	if err != nil {
		return "", err
	}
	var parsed struct {
		Base64 string `json:"base64"`
		QRCode string `json:"qrcode"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", err
	}
	if parsed.Base64 != "" {
		return parsed.Base64, nil
	}
	return parsed.QRCode, nil
}

func (c *Client) DeleteInstance(ctx context.Context, inst model.Instance) error {
	_, err := c.do(ctx, http.MethodDelete, inst.ServerURL+"/instance/delete",
		map[string]string{"admintoken": c.adminToken, "token": inst.Token}, nil)
	return err
}

func (c *Client) SendText(ctx context.Context, inst model.Instance, number, text string) error {
	_, err := c.do(ctx, http.MethodPost, inst.ServerURL+"/send/text",
		map[string]string{"token": inst.Token},
		map[string]any{"number": digitsOnly(number), "text": text})
	return err
}

func (c *Client) SendButtons(ctx context.Context, inst model.Instance, number, text, imageURL string, buttons []Button) error {
	body := map[string]any{
		"number":  digitsOnly(number),
		"type":    "button",
		"text":    text,
		"buttons": buttons,
	}
	if imageURL != "" {
		body["mediaUrl"] = imageURL
	}
	_, err := c.do(ctx, http.MethodPost, inst.ServerURL+"/send/buttons",
		map[string]string{"token": inst.Token}, body)
	return err
}

func (c *Client) do(ctx context.Context, method, url string, headers map[string]string, body any) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		reader = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	raw, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("whatsapp: status=%d body=%s", resp.StatusCode, string(raw))
	}
	return raw, nil
}

func digitsOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
