package listing_client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"marketplace/pkg/contextkeys"
	"marketplace/services/messaging-service/internal/core/domain"
	"marketplace/services/messaging-service/internal/core/port"

	"github.com/google/uuid"
)

// Client - клиент внутреннего API listing-service.
type Client struct {
	baseURL    string // например, "http://listing-service:8081"
	httpClient *http.Client
}

var _ port.ListingCatalogPort = (*Client)(nil)

func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (c *Client) doRequest(ctx context.Context, method, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if traceID := contextkeys.TraceIDFromContext(ctx); traceID != "" {
		req.Header.Set("X-Trace-ID", traceID)
	}
	req.Header.Set("Accept", "application/json")
	return c.httpClient.Do(req)
}

// GetListingSummary реализует ListingCatalogPort.
func (c *Client) GetListingSummary(ctx context.Context, id uuid.UUID) (*domain.ListingSummary, error) {
	clientLogger := contextkeys.LoggerFromContext(ctx).WithFields(port.Fields{
		"component":  "ListingServiceClient",
		"method":     "GetListingSummary",
		"listing_id": id,
	})

	resp, err := c.doRequest(ctx, http.MethodGet, c.baseURL+"/api/v1/internal/listings/"+id.String())
	if err != nil {
		clientLogger.Error("Failed to perform request to listing-service", err, nil)
		return nil, fmt.Errorf("listing-service request failed: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, domain.ErrListingNotFound
	case resp.StatusCode != http.StatusOK:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		err := fmt.Errorf("listing-service returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
		clientLogger.Error("Unexpected response from listing-service", err, nil)
		return nil, err
	}

	var summary domain.ListingSummary
	if err := json.NewDecoder(resp.Body).Decode(&summary); err != nil {
		clientLogger.Error("Failed to decode listing summary", err, nil)
		return nil, fmt.Errorf("failed to decode listing summary: %w", err)
	}
	clientLogger.Debug("Listing summary received", port.Fields{"status": summary.Status})
	return &summary, nil
}
