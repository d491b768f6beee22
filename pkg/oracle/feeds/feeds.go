// Package feeds contains the upstream HTTP clients behind the oracle: a
// Pyth-style price feed and funding-rate feeds for the major perp venues.
// Each client is a thin wrapper: one GET per call with a bounded timeout;
// retry policy lives in the oracle, not here.
package feeds

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const defaultHTTPTimeout = 8 * time.Second

func doGet(ctx context.Context, client *http.Client, url string, result interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("feeds: build request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("feeds: get %s: %w", url, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("feeds: read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("feeds: get %s: status %d", url, resp.StatusCode)
	}
	if err := json.Unmarshal(data, result); err != nil {
		return fmt.Errorf("feeds: decode response: %w", err)
	}
	return nil
}
