package imagegen

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"nichecast/internal/config"
)

func TestGenerate(t *testing.T) {
	var gotReq generateRequest
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/generate" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		gotAuth = r.Header.Get("Authorization")
		json.NewDecoder(r.Body).Decode(&gotReq)
		json.NewEncoder(w).Encode(map[string]string{"image_url": "https://cdn/img.png"})
	}))
	defer srv.Close()

	c, err := NewClient(config.ImageGenConfig{APIKey: "key", BaseURL: srv.URL})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	out, err := c.Generate(context.Background(), "AI chips breakthrough")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if out.ImageURL != "https://cdn/img.png" {
		t.Errorf("got url %q", out.ImageURL)
	}
	if gotAuth != "Bearer key" {
		t.Errorf("got auth %q", gotAuth)
	}
	if gotReq.Width != 1080 || gotReq.Height != 1080 || gotReq.NumInferenceSteps != 30 {
		t.Errorf("unexpected request: %+v", gotReq)
	}
	if !strings.Contains(gotReq.Prompt, "AI chips breakthrough") {
		t.Errorf("prompt missing subject: %q", gotReq.Prompt)
	}
	if !strings.HasPrefix(gotReq.Prompt, "Minimalist editorial tech photography") {
		t.Errorf("prompt missing fixed style prefix: %q", gotReq.Prompt)
	}
	if out.Prompt != gotReq.Prompt {
		t.Errorf("returned prompt should match requested prompt")
	}
}

func TestGenerateOutputURLFallback(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"output_url": "https://cdn/out.png"})
	}))
	defer srv.Close()

	c, _ := NewClient(config.ImageGenConfig{APIKey: "key", BaseURL: srv.URL})
	out, err := c.Generate(context.Background(), "subject")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if out.ImageURL != "https://cdn/out.png" {
		t.Errorf("got url %q", out.ImageURL)
	}
}

func TestGenerateFailures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c, _ := NewClient(config.ImageGenConfig{APIKey: "key", BaseURL: srv.URL})
	if _, err := c.Generate(context.Background(), "subject"); err == nil {
		t.Errorf("expected error on non-2xx status")
	}
	if _, err := c.Generate(context.Background(), "   "); err == nil {
		t.Errorf("expected error on empty subject")
	}
}

func TestGenerateEmptyURLInResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{})
	}))
	defer srv.Close()

	c, _ := NewClient(config.ImageGenConfig{APIKey: "key", BaseURL: srv.URL})
	if _, err := c.Generate(context.Background(), "subject"); err == nil {
		t.Errorf("expected error on empty url")
	}
}
