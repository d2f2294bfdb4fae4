package model

import (
	"time"

	"nichecast/internal/lifecycle"
)

// Tenant is an account owning niches, posts and (at most) one
// connected messaging instance.
type Tenant struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Phone      string    `json:"phone"`
	NicheLimit int       `json:"niche_limit"` // plan limit, enforced by the UI layer
	CreatedAt  time.Time `json:"created_at"`
}

// Niche is a tenant-configured topic driving discovery and rewriting.
type Niche struct {
	ID         string    `json:"id"`
	TenantID   string    `json:"tenant_id"`
	Name       string    `json:"name"`
	Keywords   []string  `json:"keywords"`
	Tone       string    `json:"tone"` // profissional | autoridade | informal | tecnico
	Language   string    `json:"language"`
	Active     bool      `json:"active"`
	LastSearch time.Time `json:"last_search"`
	CreatedAt  time.Time `json:"created_at"`
}

// NewsItem is a raw discovery artifact produced by the curator for one
// niche. It only ever holds status pending or approved.
type NewsItem struct {
	ID            string           `json:"id"`
	TenantID      string           `json:"tenant_id"`
	NicheID       string           `json:"niche_id"`
	Title         string           `json:"title"`
	URL           string           `json:"url"`
	Source        string           `json:"source"` // hostname, www. stripped
	Summary       string           `json:"summary"`
	AuthorityText string           `json:"authority_text"`
	Status        lifecycle.Status `json:"status"`
	Sent          bool             `json:"sent"` // outbound notification already delivered
	CreatedAt     time.Time        `json:"created_at"`
}

// Post is the externally visible unit moving through the publish
// pipeline.
type Post struct {
	ID               string           `json:"id"`
	TenantID         string           `json:"tenant_id"`
	SourceTitle      string           `json:"source_title"`
	SourceURL        string           `json:"source_url"`
	ContentRaw       string           `json:"content_raw"`
	CaptionInstagram string           `json:"caption_instagram"`
	CopyLinkedIn     string           `json:"copy_linkedin"`
	ImageURL         string           `json:"image_url"`
	ImagePrompt      string           `json:"image_prompt"`
	Status           lifecycle.Status `json:"status"`
	CreatedAt        time.Time        `json:"created_at"`
	PublishedAt      *time.Time       `json:"published_at,omitempty"`
}

// InstanceStatus is the lifecycle of a messaging instance.
type InstanceStatus string

const (
	InstancePending      InstanceStatus = "pending"
	InstanceConnecting   InstanceStatus = "connecting"
	InstanceQRReady      InstanceStatus = "qr_ready"
	InstanceConnected    InstanceStatus = "connected"
	InstanceDisconnected InstanceStatus = "disconnected"
)

// Instance binds an external chat account to a tenant.
type Instance struct {
	ID        string         `json:"id"`
	TenantID  string         `json:"tenant_id"`
	Name      string         `json:"name"`
	ServerURL string         `json:"server_url"`
	Token     string         `json:"token"`
	Status    InstanceStatus `json:"status"`
	Phone     string         `json:"phone"` // connected external identity
	QRCode    string         `json:"qr_code,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}
