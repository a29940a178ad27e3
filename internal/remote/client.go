// Package remote talks to the optional backend server. The backend is
// strictly additive: client-side transforms never depend on it being
// reachable, and every call here carries its own timeout.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// ErrUnavailable marks the backend as unreachable or unhealthy. Callers
// surface it as an availability flag, never as a batch failure.
var ErrUnavailable = errors.New("backend unavailable")

// Client is a thin HTTP client for the backend endpoints.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient builds a client for the backend at baseURL. A nil transport
// falls back to http.DefaultTransport.
func NewClient(baseURL string, timeout time.Duration, transport http.RoundTripper) *Client {
	if transport == nil {
		transport = http.DefaultTransport
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http: &http.Client{
			Timeout:   timeout,
			Transport: transport,
		},
	}
}

// HealthReport mirrors the backend's /health response.
type HealthReport struct {
	Status   string          `json:"status"`
	Message  string          `json:"message"`
	Version  string          `json:"version"`
	Features map[string]bool `json:"features"`
}

// Health checks backend availability and reports its capabilities.
func (c *Client) Health(ctx context.Context) (*HealthReport, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: health returned status %d", ErrUnavailable, resp.StatusCode)
	}
	var report HealthReport
	if err := json.NewDecoder(resp.Body).Decode(&report); err != nil {
		return nil, fmt.Errorf("%w: bad health payload: %v", ErrUnavailable, err)
	}
	return &report, nil
}

// Ping performs the cheapest possible availability probe.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/ping", nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: ping returned status %d", ErrUnavailable, resp.StatusCode)
	}
	return nil
}

// CompressStats carries the size accounting the backend reports in headers.
type CompressStats struct {
	OriginalSize   int64
	CompressedSize int64
}

// CompressImage posts one image for server-side compression and returns the
// compressed bytes. Used as a fallback for inputs the client-side pipeline
// cannot handle itself.
func (c *Client) CompressImage(ctx context.Context, filename string, data []byte, quality int, format string) ([]byte, *CompressStats, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	fw, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return nil, nil, err
	}
	if _, err := fw.Write(data); err != nil {
		return nil, nil, err
	}
	if err := mw.WriteField("quality", strconv.Itoa(quality)); err != nil {
		return nil, nil, err
	}
	if format != "" {
		if err := mw.WriteField("format", format); err != nil {
			return nil, nil, err
		}
	}
	if err := mw.Close(); err != nil {
		return nil, nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/compress-image", &body)
	if err != nil {
		return nil, nil, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, nil, fmt.Errorf("compress-image returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(payload)))
	}

	out, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, fmt.Errorf("reading compressed payload: %w", err)
	}

	stats := &CompressStats{}
	stats.OriginalSize, _ = strconv.ParseInt(resp.Header.Get("X-Original-Size"), 10, 64)
	stats.CompressedSize, _ = strconv.ParseInt(resp.Header.Get("X-Compressed-Size"), 10, 64)
	return out, stats, nil
}
