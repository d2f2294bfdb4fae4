package search

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"nichecast/internal/config"
	"nichecast/internal/model"
)

func TestBuildQuery(t *testing.T) {
	cases := []struct {
		name  string
		niche model.Niche
		want  string
	}{
		{
			name:  "portuguese with keywords",
			niche: model.Niche{Name: "Tecnologia", Keywords: []string{"IA", "chips"}, Language: "pt-BR"},
			want:  "últimas notícias IA OR chips Brasil hoje",
		},
		{
			name:  "english with keywords",
			niche: model.Niche{Name: "Tech", Keywords: []string{"AI"}, Language: "en"},
			want:  "latest news AI today",
		},
		{
			name:  "falls back to niche name",
			niche: model.Niche{Name: "Saúde", Language: "pt-BR"},
			want:  "últimas notícias Saúde Brasil hoje",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := BuildQuery(tc.niche); got != tc.want {
				t.Errorf("got %q, want %q", got, tc.want)
			}
		})
	}
}

func TestSearch(t *testing.T) {
	var gotReq searchRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/search" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Errorf("decode request: %v", err)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"results": []map[string]string{
				{"title": "A", "url": "https://www.example.com/a", "content": "full content"},
				{"title": "B", "url": "https://news.site.org/b", "snippet": "only snippet"},
			},
		})
	}))
	defer srv.Close()

	c, err := NewClient(config.SearchConfig{APIKey: "key", BaseURL: srv.URL, Depth: "advanced", MaxResults: 3})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	results, err := c.Search(context.Background(), "latest news AI today")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}

	if gotReq.APIKey != "key" || gotReq.Query != "latest news AI today" || gotReq.SearchDepth != "advanced" || gotReq.MaxResults != 3 {
		t.Errorf("unexpected request body: %+v", gotReq)
	}
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}
	if results[0].Source != "example.com" {
		t.Errorf("got source %q, want www. stripped", results[0].Source)
	}
	if results[0].Content != "full content" {
		t.Errorf("got content %q", results[0].Content)
	}
	if results[1].Content != "only snippet" {
		t.Errorf("expected snippet fallback, got %q", results[1].Content)
	}
	if results[1].Source != "news.site.org" {
		t.Errorf("got source %q", results[1].Source)
	}
}

func TestSearchErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c, err := NewClient(config.SearchConfig{APIKey: "key", BaseURL: srv.URL})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	if _, err := c.Search(context.Background(), "q"); err == nil {
		t.Errorf("expected error on non-2xx status")
	}
}

func TestNewClientRequiresAPIKey(t *testing.T) {
	if _, err := NewClient(config.SearchConfig{}); err == nil {
		t.Errorf("expected missing credential error")
	}
}
