package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"nichecast/internal/config"
	"nichecast/internal/model"
)

// Result is one raw news candidate from the search provider.
type Result struct {
	Title   string
	URL     string
	Content string
	Source  string // hostname, www. stripped
}

// Client talks to a Tavily-style search API.
type Client struct {
	baseURL    string
	apiKey     string
	depth      string
	maxResults int
	http       *http.Client
}

func NewClient(cfg config.SearchConfig) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		depth:      cfg.Depth,
		maxResults: cfg.MaxResults,
		http:       &http.Client{Timeout: 30 * time.Second},
	}, nil
}

// BuildQuery constructs the localized search query for a niche:
// keywords OR'd together, or the niche name when no keywords exist.
func BuildQuery(n model.Niche) string {
	keywords := n.Name
	if len(n.Keywords) > 0 {
		keywords = strings.Join(n.Keywords, " OR ")
	}
	if n.Language == "pt-BR" {
		return fmt.Sprintf("últimas notícias %s Brasil hoje", keywords)
	}
	return fmt.Sprintf("latest news %s today", keywords)
}

type searchRequest struct {
	APIKey        string `json:"api_key"`
	Query         string `json:"query"`
	SearchDepth   string `json:"search_depth"`
	MaxResults    int    `json:"max_results"`
	IncludeAnswer bool   `json:"include_answer"`
	IncludeImages bool   `json:"include_images"`
}

type searchResponse struct {
	Results []struct {
		Title   string `json:"title"`
		URL     string `json:"url"`
		Content string `json:"content"`
		Snippet string `json:"snippet"`
	} `json:"results"`
}

// Search queries the provider and maps results into candidates.
func (c *Client) Search(ctx context.Context, query string) ([]Result, error) {
	body, err := json.Marshal(searchRequest{
		APIKey:        c.apiKey,
		Query:         query,
		SearchDepth:   c.depth,
		MaxResults:    c.maxResults,
		IncludeImages: true,
	})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/search", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("search: status %d", resp.StatusCode)
	}
	var parsed searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, err
	}
	out := make([]Result, 0, len(parsed.Results))
	for _, r := range parsed.Results {
		content := r.Content
		if content == "" {
			content = r.Snippet
		}
		out = append(out, Result{
			Title:   r.Title,
			URL:     r.URL,
			Content: content,
			Source:  sourceDomain(r.URL),
		})
	}
	return out, nil
}

func sourceDomain(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return ""
	}
	return strings.TrimPrefix(u.Host, "www.")
}
