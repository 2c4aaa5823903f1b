// Package federation implements peer-to-peer interactions over the control
// surface: registering with friends, fetching remote file lists and the
// fan-out search.
package federation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"peermesh/internal/state"
	"peermesh/pkg/logging"
)

// FilesResponse is the payload served by a peer's /files endpoint.
type FilesResponse struct {
	Peer  string            `json:"peer"`
	Base  string            `json:"base"`
	Files []state.FileEntry `json:"files"`
}

// ClientConfig configures a federation Client.
type ClientConfig struct {
	Logger logging.Logger

	// HTTPClient overrides the transport, used by tests.
	HTTPClient *http.Client
}

// Client speaks to other peers' control surfaces. Callers bound each call
// with a context deadline.
type Client struct {
	httpClient *http.Client
	logger     logging.Logger
}

// NewClient builds a federation Client.
func NewClient(cfg ClientConfig) *Client {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &Client{httpClient: httpClient, logger: cfg.Logger}
}

// Register announces selfURL to the peer at peerURL.
func (c *Client) Register(ctx context.Context, peerURL, selfURL string) error {
	body, err := json.Marshal(map[string]string{"url": selfURL})
	if err != nil {
		return fmt.Errorf("encode register payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, fmt.Sprintf("%s/register", peerURL), bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build register request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("register with %s: %w", peerURL, err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("register with %s: status %d", peerURL, resp.StatusCode)
	}
	return nil
}

// FetchFiles retrieves the file list of the peer at peerURL. A positive ttl
// is forwarded as a query parameter for peers that relay it.
func (c *Client) FetchFiles(ctx context.Context, peerURL string, ttl int) (*FilesResponse, error) {
	url := fmt.Sprintf("%s/files", peerURL)
	if ttl > 0 {
		url = fmt.Sprintf("%s?ttl=%d", url, ttl)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build files request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch files from %s: %w", peerURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("fetch files from %s: status %d", peerURL, resp.StatusCode)
	}

	var out FilesResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode files from %s: %w", peerURL, err)
	}
	return &out, nil
}
