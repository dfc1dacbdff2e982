// Package metadata fetches fresh metadata documents from an external
// catalog provider.
package metadata

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// maxDocumentSize caps how much of a provider response is read.
const maxDocumentSize = 1 << 20

// Client handles communication with the metadata provider
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a new metadata provider client
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Fetch retrieves the provider's current metadata document for one record.
// The document is returned as raw JSON; the caller stores it verbatim.
func (c *Client) Fetch(ctx context.Context, contentType string, id int64) ([]byte, error) {
	url := fmt.Sprintf("%s/%s/%d", c.baseURL, contentType, id)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build metadata request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to reach metadata provider: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("metadata provider has no entry for %s/%d", contentType, id)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("metadata provider returned status %d (expected 200)", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxDocumentSize))
	if err != nil {
		return nil, fmt.Errorf("failed to read metadata response: %w", err)
	}
	return body, nil
}
