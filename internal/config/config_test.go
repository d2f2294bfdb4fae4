package config

import (
	"errors"
	"strings"
	"testing"
)

func TestFillDefaults(t *testing.T) {
	var c Config
	c.FillDefaults()

	if c.Redis.Addr != "127.0.0.1:6379" {
		t.Errorf("redis addr default: %q", c.Redis.Addr)
	}
	if c.Search.Depth != "advanced" || c.Search.MaxResults != 3 {
		t.Errorf("search defaults: %+v", c.Search)
	}
	if c.OpenAI.Model != "gpt-4o-mini" {
		t.Errorf("openai model default: %q", c.OpenAI.Model)
	}
	if c.ImageGen.WebPQuality != 85 {
		t.Errorf("webp quality default: %d", c.ImageGen.WebPQuality)
	}
	if c.Workers.CurateInterval != "6h" || c.Workers.NotifyInterval != "30m" {
		t.Errorf("worker interval defaults: %+v", c.Workers)
	}
	if c.HTTP.Addr != ":8080" {
		t.Errorf("http addr default: %q", c.HTTP.Addr)
	}
}

func TestFillDefaultsKeepsExplicitValues(t *testing.T) {
	c := Config{}
	c.OpenAI.Model = "gpt-4o"
	c.ImageGen.WebPQuality = 70
	c.FillDefaults()

	if c.OpenAI.Model != "gpt-4o" {
		t.Errorf("explicit model overwritten: %q", c.OpenAI.Model)
	}
	if c.ImageGen.WebPQuality != 70 {
		t.Errorf("explicit quality overwritten: %d", c.ImageGen.WebPQuality)
	}
}

func TestValidateMissingCredentials(t *testing.T) {
	cases := []struct {
		name  string
		err   error
		field string
	}{
		{"search", SearchConfig{}.Validate(), "search.api_key"},
		{"openai", OpenAIConfig{}.Validate(), "openai.api_key"},
		{"imagegen", ImageGenConfig{}.Validate(), "imagegen.api_key"},
		{"instagram token", InstagramConfig{AccountID: "a"}.Validate(), "instagram.access_token"},
		{"instagram account", InstagramConfig{AccessToken: "t"}.Validate(), "instagram.account_id"},
		{"linkedin org", LinkedInConfig{AccessToken: "t"}.Validate(), "linkedin.organization_id"},
		{"whatsapp", WhatsAppConfig{}.Validate(), "whatsapp.admin_token"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if !errors.Is(tc.err, ErrMissingCredential) {
				t.Fatalf("got %v, want ErrMissingCredential", tc.err)
			}
			if !strings.Contains(tc.err.Error(), tc.field) {
				t.Errorf("error %q does not name field %q", tc.err, tc.field)
			}
		})
	}
}

func TestValidateComplete(t *testing.T) {
	if err := (InstagramConfig{AccessToken: "t", AccountID: "a"}).Validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if err := (LinkedInConfig{AccessToken: "t", OrganizationID: "o"}).Validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}
