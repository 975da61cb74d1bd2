// Package httpds provides the HTTP(S) datasource: bounded sample prefixes
// for sniffing and full-body streams for loading.
package httpds

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Config controls HTTP client behavior.
type Config struct {
	// InsecureSkipVerify skips TLS certificate verification. Useful for
	// self-signed / internal endpoints; prefer false in production.
	InsecureSkipVerify bool
	// Timeout bounds a whole fetch. Defaults to 30s when zero.
	Timeout time.Duration
}

// Client fetches byte prefixes and full bodies over HTTP(S).
type Client struct {
	hc *http.Client
}

// NewClient builds a Client from cfg.
func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	transport := http.DefaultTransport
	if cfg.InsecureSkipVerify {
		t := http.DefaultTransport.(*http.Transport).Clone()
		t.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
		transport = t
	}

	return &Client{
		hc: &http.Client{
			Timeout:   timeout,
			Transport: transport,
		},
	}
}

// FetchFirstBytes downloads at most n bytes from the start of url.
//
// A Range header is sent as a hint; servers that ignore it are handled by
// reading only n bytes from the body before closing. Reading a prefix and
// closing early is intentional: sniffing never needs the full dataset.
func (c *Client) FetchFirstBytes(ctx context.Context, url string, n int) ([]byte, error) {
	if n <= 0 {
		return nil, fmt.Errorf("fetch first bytes: n must be > 0")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Range", fmt.Sprintf("bytes=0-%d", n-1))

	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusPartialContent {
		return nil, fmt.Errorf("fetch %s: unexpected status %s", url, resp.Status)
	}

	lr := &io.LimitedReader{R: resp.Body, N: int64(n)}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, lr); err != nil && err != io.EOF {
		return nil, fmt.Errorf("read %s: %w", url, err)
	}
	return buf.Bytes(), nil
}

// Open streams the full body of url. The caller owns the returned
// ReadCloser.
//
// Unlike FetchFirstBytes, the client Timeout bounds the whole download, so
// configure a generous Timeout (or zero it out via Config) for large files.
func (c *Client) Open(ctx context.Context, url string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", url, err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("fetch %s: unexpected status %s", url, resp.Status)
	}
	return resp.Body, nil
}
