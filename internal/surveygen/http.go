package surveygen

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/HeikoBre/screening-dashboard-sandbox/internal/domain/types"
)

// HTTPClient talks to the review service API.
type HTTPClient struct {
	client  *http.Client
	baseURL string
}

// NewHTTPClient creates a client with the given request timeout.
func NewHTTPClient(baseURL string, timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		client:  &http.Client{Timeout: timeout},
		baseURL: baseURL,
	}
}

// do sends a request and decodes a JSON response into out when non-nil.
func (c *HTTPClient) do(ctx context.Context, method, path, contentType string, body io.Reader, want int, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}
	if resp.StatusCode != want {
		return fmt.Errorf("%w: %s %s returned %d: %s", ErrUnexpectedStatus, method, path, resp.StatusCode, bytes.TrimSpace(data))
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", path, err)
	}
	return nil
}

// Health checks the liveness endpoint.
func (c *HTTPClient) Health(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/healthz", "", http.NoBody, http.StatusOK, nil)
}

// Upload posts a survey file as the current dataset.
func (c *HTTPClient) Upload(ctx context.Context, name string, data []byte) (types.Dataset, error) {
	var ds types.Dataset
	path := "/datasets?name=" + url.QueryEscape(name)
	err := c.do(ctx, http.MethodPost, path, "text/csv", bytes.NewReader(data), http.StatusCreated, &ds)
	return ds, err
}

// Genes lists the gene previews of the current dataset.
func (c *HTTPClient) Genes(ctx context.Context) ([]types.GenePreview, error) {
	var genes []types.GenePreview
	err := c.do(ctx, http.MethodGet, "/genes", "", http.NoBody, http.StatusOK, &genes)
	return genes, err
}

// Gene fetches the detail view of one gene.
func (c *HTTPClient) Gene(ctx context.Context, symbol string) (types.GeneDetail, error) {
	var detail types.GeneDetail
	err := c.do(ctx, http.MethodGet, "/genes/"+url.PathEscape(symbol), "", http.NoBody, http.StatusOK, &detail)
	return detail, err
}
