package imagegen

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"nichecast/internal/config"
)

// Fixed visual identity prepended to every generation request.
const designStylePrompt = `Minimalist editorial tech photography, soft diffused lighting,
white and light gray color palette, clean composition, 8k ultra high definition,
professional product photography style, subtle shadows, negative space,
Swiss design aesthetics, quiet tech mood`

// Square resolution for both target platforms.
const (
	imageWidth  = 1080
	imageHeight = 1080
)

// Generated is the provider output for one image.
type Generated struct {
	ImageURL string
	Prompt   string
}

// Generator defines the image-generation interface used by the
// designer worker.
type Generator interface {
	Generate(ctx context.Context, subject string) (Generated, error)
}

// Client implements Generator against a hosted diffusion API.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

func NewClient(cfg config.ImageGenConfig) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		http:    &http.Client{Timeout: 60 * time.Second},
	}, nil
}

type generateRequest struct {
	Prompt            string `json:"prompt"`
	Width             int    `json:"width"`
	Height            int    `json:"height"`
	NumInferenceSteps int    `json:"num_inference_steps"`
}

type generateResponse struct {
	ImageURL  string `json:"image_url"`
	OutputURL string `json:"output_url"`
}

// Generate requests one square image for the given subject. Provider
// failure is returned, never masked with a placeholder.
func (c *Client) Generate(ctx context.Context, subject string) (Generated, error) {
	if strings.TrimSpace(subject) == "" {
		return Generated{}, errors.New("imagegen: empty context")
	}
	prompt := fmt.Sprintf("%s. Context: %s", designStylePrompt, subject)

	body, err := json.Marshal(generateRequest{
		Prompt:            prompt,
		Width:             imageWidth,
		Height:            imageHeight,
		NumInferenceSteps: 30,
	})
	if err != nil {
		return Generated{}, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/generate", bytes.NewReader(body))
	if err != nil {
		return Generated{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return Generated{}, fmt.Errorf("imagegen request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return Generated{}, fmt.Errorf("imagegen: status=%d body=%s", resp.StatusCode, string(b))
	}
	var parsed generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return Generated{}, fmt.Errorf("imagegen decode: %w", err)
	}
	url := parsed.ImageURL
	if url == "" {
		url = parsed.OutputURL
	}
	if url == "" {
		return Generated{}, errors.New("imagegen: empty image url in response")
	}
	slog.Info("imagegen: image generated", "duration", time.Since(start))
	return Generated{ImageURL: url, Prompt: prompt}, nil
}
