package resolver

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/vk/grainstore/internal/ctxlog"
)

// DefaultTimeout bounds a single resource download.
const DefaultTimeout = 30 * time.Second

// newHTTPClient returns the client shared by every download of a Resolver so
// connections to the same asset host are reused.
func newHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			Proxy:               http.ProxyFromEnvironment,
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
		},
	}
}

// fetch downloads rawURL into target. The body is written to a temporary file
// in the same directory and renamed into place, so readers never observe a
// partial file and concurrent writers converge on one copy.
func (r *Resolver) fetch(ctx context.Context, rawURL, target string) error {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Downloading resource.", "url", rawURL, "target", target)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected response status: %s", resp.Status)
	}

	tmp, err := os.CreateTemp(filepath.Dir(target), filepath.Base(target)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temporary file: %w", err)
	}
	defer os.Remove(tmp.Name())

	n, err := io.Copy(tmp, resp.Body)
	if err != nil {
		tmp.Close()
		return fmt.Errorf("failed to read response body: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write %s: %w", tmp.Name(), err)
	}
	if err := os.Rename(tmp.Name(), target); err != nil {
		return fmt.Errorf("failed to move resource into cache: %w", err)
	}

	logger.Debug("Resource downloaded.", "url", rawURL, "bytes", n)
	return nil
}
