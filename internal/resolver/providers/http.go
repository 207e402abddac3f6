package providers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"
)

const maxBodyBytes = 1 << 20

// NewHTTPClient returns the client providers share when none is injected.
func NewHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &http.Client{Timeout: timeout}
}

// GetJSON performs a GET and decodes a 2xx JSON body into out. Failures come
// back as *ProviderError tagged with providerID.
func GetJSON(ctx context.Context, client *http.Client, providerID, url string, headers map[string]string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return NewProviderError(ErrorInternal, providerID, "build request", err)
	}
	req.Header.Set("Accept", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return TransportError(ctx, providerID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))
		return statusError(providerID, resp.StatusCode)
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes)).Decode(out); err != nil {
		return NewProviderError(ErrorBadData, providerID, "decode response", err)
	}
	return nil
}
