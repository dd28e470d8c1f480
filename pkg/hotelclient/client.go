package hotelclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// searchReferenceTTL is how long a staged offer stays bookable. Provider
// rates move fast; after this window the caller must search again.
const searchReferenceTTL = 15 * time.Minute

// postJSON posts a JSON body and decodes a JSON response. Non-2xx statuses
// are errors; provider-level error envelopes are the caller's concern.
func postJSON(ctx context.Context, httpClient *http.Client, url string, headers map[string]string, reqBody any, out any) error {
	body, err := json.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	r, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(body))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	r.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		r.Header.Set(k, v)
	}

	resp, err := httpClient.Do(r)
	if err != nil {
		return fmt.Errorf("external api call failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("external api returned status %d", resp.StatusCode)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode json response: %w", err)
	}
	return nil
}

// getJSON issues a GET and decodes a JSON response.
func getJSON(ctx context.Context, httpClient *http.Client, url string, headers map[string]string, out any) error {
	r, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	for k, v := range headers {
		r.Header.Set(k, v)
	}

	resp, err := httpClient.Do(r)
	if err != nil {
		return fmt.Errorf("external api call failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("external api returned status %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode json response: %w", err)
	}
	return nil
}
