package social

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
)

// Instagram publishes through the Graph API two-step container flow:
// create a media container, then publish it.
type Instagram struct {
	baseURL   string
	token     string
	accountID string
	http      *http.Client
}

func NewInstagram(cfg config.InstagramConfig) (*Instagram, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Instagram{
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		token:     cfg.AccessToken,
		accountID: cfg.AccountID,
		http:      &http.Client{Timeout: 30 * time.Second},
	}, nil
}

// Publish creates and publishes a media container, returning the
// published media id. Failure at either step aborts only this
// platform's branch.
func (ig *Instagram) Publish(ctx context.Context, imageURL, caption string) (string, error) {
	containerID, err := ig.createContainer(ctx, imageURL, caption)
	if err != nil {
		return "", err
	}
	return ig.publishContainer(ctx, containerID)
}

func (ig *Instagram) createContainer(ctx context.Context, imageURL, caption string) (string, error) {
	out, err := ig.post(ctx, fmt.Sprintf("%s/%s/media", ig.baseURL, ig.accountID), map[string]any{
		"image_url":    imageURL,
		"caption":      caption,
		"access_token": ig.token,
	})
	if err != nil {
		return "", fmt.Errorf("container: %w", err)
	}
	if out.ID == "" {
		return "", fmt.Errorf("container: missing id in response")
	}
	return out.ID, nil
}

func (ig *Instagram) publishContainer(ctx context.Context, containerID string) (string, error) {
	out, err := ig.post(ctx, fmt.Sprintf("%s/%s/media_publish", ig.baseURL, ig.accountID), map[string]any{
		"creation_id":  containerID,
		"access_token": ig.token,
	})
	if err != nil {
		return "", fmt.Errorf("publish: %w", err)
	}
	if out.ID == "" {
		return "", fmt.Errorf("publish: missing id in response")
	}
	return out.ID, nil
}

type graphResponse struct {
	ID string `json:"id"`
}

func (ig *Instagram) post(ctx context.Context, url string, params map[string]any) (graphResponse, error) {
	body, err := json.Marshal(params)
	if err != nil {
		return graphResponse{}, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return graphResponse{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := ig.http.Do(req)
	if err != nil {
		return graphResponse{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return graphResponse{}, fmt.Errorf("status=%d body=%s", resp.StatusCode, string(b))
	}
	var out graphResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return graphResponse{}, err
	}
	return out, nil
}
