package imagegen

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/chai2010/webp"
)

// Cache keeps local webp copies of generated images so a post's visual
// survives provider-side URL expiry.
type Cache struct {
	dir     string
	quality int
	http    *http.Client
}

// NewCache returns nil when no cache directory is configured; callers
// treat a nil cache as disabled.
func NewCache(dir string, quality int) *Cache {
	if dir == "" {
		return nil
	}
	if quality <= 0 || quality > 100 {
		quality = 85
	}
	return &Cache{
		dir:     dir,
		quality: quality,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

// Store downloads the image at url and writes a webp copy named after
// the post id. Returns the local path.
func (c *Cache) Store(ctx context.Context, url, postID string) (string, error) {
	if c == nil {
		return "", nil
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch image: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetch image: status %d", resp.StatusCode)
	}
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 32<<20))
	if err != nil {
		return "", err
	}
	img, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return "", fmt.Errorf("decode image: %w", err)
	}
	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(c.dir, postID+".webp")
	f, err := os.Create(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	if err := webp.Encode(f, img, &webp.Options{Quality: float32(c.quality)}); err != nil {
		return "", fmt.Errorf("encode webp: %w", err)
	}
	return path, nil
}
