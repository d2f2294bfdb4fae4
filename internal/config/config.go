package config

import (
	"errors"
	"fmt"
)

// ErrMissingCredential is returned by the Validate methods when a
// required provider credential is absent from configuration.
var ErrMissingCredential = errors.New("missing credential")

// AppConfig holds application-level settings.
type AppConfig struct {
	LogLevel string `mapstructure:"log_level"`
}

// RedisConfig holds redis connection settings.
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// SearchConfig controls the news search provider.
type SearchConfig struct {
	APIKey     string `mapstructure:"api_key"`
	BaseURL    string `mapstructure:"base_url"`
	Depth      string `mapstructure:"depth"`
	MaxResults int    `mapstructure:"max_results"`
}

func (c SearchConfig) Validate() error {
	if c.APIKey == "" {
		return fmt.Errorf("%w: search.api_key", ErrMissingCredential)
	}
	return nil
}

// OpenAIConfig controls the text-generation provider.
type OpenAIConfig struct {
	APIKey  string `mapstructure:"api_key"`
	Model   string `mapstructure:"model"`
	BaseURL string `mapstructure:"base_url"` // optional
}

func (c OpenAIConfig) Validate() error {
	if c.APIKey == "" {
		return fmt.Errorf("%w: openai.api_key", ErrMissingCredential)
	}
	return nil
}

// ImageGenConfig controls the image-generation provider.
type ImageGenConfig struct {
	BaseURL     string `mapstructure:"base_url"`
	APIKey      string `mapstructure:"api_key"`
	CacheDir    string `mapstructure:"cache_dir"` // optional local webp copies
	WebPQuality int    `mapstructure:"webp_quality"`
}

func (c ImageGenConfig) Validate() error {
	if c.APIKey == "" {
		return fmt.Errorf("%w: imagegen.api_key", ErrMissingCredential)
	}
	return nil
}

// InstagramConfig holds Meta Graph publish credentials.
type InstagramConfig struct {
	AccessToken string `mapstructure:"access_token"`
	AccountID   string `mapstructure:"account_id"`
	BaseURL     string `mapstructure:"base_url"`
}

func (c InstagramConfig) Validate() error {
	if c.AccessToken == "" {
		return fmt.Errorf("%w: instagram.access_token", ErrMissingCredential)
	}
	if c.AccountID == "" {
		return fmt.Errorf("%w: instagram.account_id", ErrMissingCredential)
	}
	return nil
}

// LinkedInConfig holds LinkedIn publish credentials.
type LinkedInConfig struct {
	AccessToken    string `mapstructure:"access_token"`
	OrganizationID string `mapstructure:"organization_id"`
	BaseURL        string `mapstructure:"base_url"`
}

func (c LinkedInConfig) Validate() error {
	if c.AccessToken == "" {
		return fmt.Errorf("%w: linkedin.access_token", ErrMissingCredential)
	}
	if c.OrganizationID == "" {
		return fmt.Errorf("%w: linkedin.organization_id", ErrMissingCredential)
	}
	return nil
}

// WhatsAppConfig controls the messaging provider.
type WhatsAppConfig struct {
	ServerURL  string `mapstructure:"server_url"`
	AdminToken string `mapstructure:"admin_token"`
	WebhookURL string `mapstructure:"webhook_url"` // public URL for inbound messages
}

func (c WhatsAppConfig) Validate() error {
	if c.AdminToken == "" {
		return fmt.Errorf("%w: whatsapp.admin_token", ErrMissingCredential)
	}
	return nil
}

// WorkersConfig controls the batch loops.
type WorkersConfig struct {
	CurateInterval string `mapstructure:"curate_interval"` // duration string, e.g., "6h"
	NotifyInterval string `mapstructure:"notify_interval"`
}

// HTTPConfig controls the webhook/task HTTP surface.
type HTTPConfig struct {
	Addr string `mapstructure:"addr"`
}

// Config is the top-level configuration structure.
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Search    SearchConfig    `mapstructure:"search"`
	OpenAI    OpenAIConfig    `mapstructure:"openai"`
	ImageGen  ImageGenConfig  `mapstructure:"imagegen"`
	Instagram InstagramConfig `mapstructure:"instagram"`
	LinkedIn  LinkedInConfig  `mapstructure:"linkedin"`
	WhatsApp  WhatsAppConfig  `mapstructure:"whatsapp"`
	Workers   WorkersConfig   `mapstructure:"workers"`
	HTTP      HTTPConfig      `mapstructure:"http"`
}

// FillDefaults applies default values if not provided.
func (c *Config) FillDefaults() {
	if c.App.LogLevel == "" {
		c.App.LogLevel = "info"
	}
	if c.Redis.Addr == "" {
		c.Redis.Addr = "127.0.0.1:6379"
	}
	if c.Search.BaseURL == "" {
		c.Search.BaseURL = "https://api.tavily.com"
	}
	if c.Search.Depth == "" {
		c.Search.Depth = "advanced"
	}
	if c.Search.MaxResults == 0 {
		c.Search.MaxResults = 3
	}
	if c.OpenAI.Model == "" {
		c.OpenAI.Model = "gpt-4o-mini"
	}
	if c.ImageGen.BaseURL == "" {
		c.ImageGen.BaseURL = "https://api.nanobanana.com/v1"
	}
	if c.ImageGen.WebPQuality <= 0 || c.ImageGen.WebPQuality > 100 {
		c.ImageGen.WebPQuality = 85
	}
	if c.Instagram.BaseURL == "" {
		c.Instagram.BaseURL = "https://graph.facebook.com/v18.0"
	}
	if c.LinkedIn.BaseURL == "" {
		c.LinkedIn.BaseURL = "https://api.linkedin.com/v2"
	}
	if c.Workers.CurateInterval == "" {
		c.Workers.CurateInterval = "6h"
	}
	if c.Workers.NotifyInterval == "" {
		c.Workers.NotifyInterval = "30m"
	}
	if c.HTTP.Addr == "" {
		c.HTTP.Addr = ":8080"
	}
}
