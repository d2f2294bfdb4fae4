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

// LinkedIn publishes through the three-step UGC flow: register an
// upload asset, upload the image binary, then create a post
// referencing the asset.
type LinkedIn struct {
	baseURL string
	token   string
	orgURN  string
	http    *http.Client
}

func NewLinkedIn(cfg config.LinkedInConfig) (*LinkedIn, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &LinkedIn{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		token:   cfg.AccessToken,
		orgURN:  "urn:li:organization:" + cfg.OrganizationID,
		http:    &http.Client{Timeout: 60 * time.Second},
	}, nil
}

// Publish uploads the image and creates the post, returning the UGC
// post id. Each step's failure aborts only this platform's branch.
func (li *LinkedIn) Publish(ctx context.Context, imageURL, text string) (string, error) {
	uploadURL, asset, err := li.registerUpload(ctx)
	if err != nil {
		return "", fmt.Errorf("register: %w", err)
	}
	if err := li.uploadImage(ctx, uploadURL, imageURL); err != nil {
		return "", fmt.Errorf("upload: %w", err)
	}
	id, err := li.createPost(ctx, asset, text)
	if err != nil {
		return "", fmt.Errorf("post: %w", err)
	}
	return id, nil
}

type registerUploadResponse struct {
	Value struct {
		Asset           string `json:"asset"`
		UploadMechanism struct {
			Request struct {
				UploadURL string `json:"uploadUrl"`
			} `json:"com.linkedin.digitalmedia.uploading.MediaUploadHttpRequest"`
		} `json:"uploadMechanism"`
	} `json:"value"`
}

func (li *LinkedIn) registerUpload(ctx context.Context) (uploadURL, asset string, err error) {
	body := map[string]any{
		"registerUploadRequest": map[string]any{
			"recipes": []string{"urn:li:digitalmediaRecipe:feedshare-image"},
			"owner":   li.orgURN,
			"serviceRelationships": []map[string]any{{
				"relationshipType": "OWNER",
				"identifier":       "urn:li:userGeneratedContent",
			}},
		},
	}
	raw, err := li.do(ctx, http.MethodPost, li.baseURL+"/assets?action=registerUpload", body)
	if err != nil {
		return "", "", err
	}
	var parsed registerUploadResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", "", err
	}
	uploadURL = parsed.Value.UploadMechanism.Request.UploadURL
	asset = parsed.Value.Asset
	if uploadURL == "" || asset == "" {
		return "", "", fmt.Errorf("incomplete register response")
	}
	return uploadURL, asset, nil
}

func (li *LinkedIn) uploadImage(ctx context.Context, uploadURL, imageURL string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return err
	}
	resp, err := li.http.Do(req)
	if err != nil {
		return fmt.Errorf("fetch image: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("fetch image: status %d", resp.StatusCode)
	}
	blob, err := io.ReadAll(io.LimitReader(resp.Body, 32<<20))
	if err != nil {
		return err
	}

	put, err := http.NewRequestWithContext(ctx, http.MethodPut, uploadURL, bytes.NewReader(blob))
	if err != nil {
		return err
	}
	put.Header.Set("Authorization", "Bearer "+li.token)
	putResp, err := li.http.Do(put)
	if err != nil {
		return err
	}
	defer putResp.Body.Close()
	if putResp.StatusCode < 200 || putResp.StatusCode >= 300 {
		return fmt.Errorf("status %d", putResp.StatusCode)
	}
	return nil
}

func (li *LinkedIn) createPost(ctx context.Context, asset, text string) (string, error) {
	body := map[string]any{
		"author":         li.orgURN,
		"lifecycleState": "PUBLISHED",
		"specificContent": map[string]any{
			"com.linkedin.ugc.ShareContent": map[string]any{
				"shareCommentary":    map[string]any{"text": text},
				"shareMediaCategory": "IMAGE",
				"media": []map[string]any{{
					"status": "READY",
					"media":  asset,
				}},
			},
		},
		"visibility": map[string]any{
			"com.linkedin.ugc.MemberNetworkVisibility": "PUBLIC",
		},
	}
	raw, err := li.do(ctx, http.MethodPost, li.baseURL+"/ugcPosts", body)
	if err != nil {
		return "", err
	}
	var out struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", err
	}
	if out.ID == "" {
		return "", fmt.Errorf("missing id in response")
	}
	return out.ID, nil
}

func (li *LinkedIn) do(ctx context.Context, method, url string, body any) ([]byte, error) {
	b, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+li.token)
	req.Header.Set("Content-Type", "application/json")
	resp, err := li.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("status=%d body=%s", resp.StatusCode, string(raw))
	}
	return io.ReadAll(resp.Body)
}
