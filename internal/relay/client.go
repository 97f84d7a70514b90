// internal/relay/client.go
package relay

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	commonhttp "menuapp-notifier/internal/common/http"
	"menuapp-notifier/internal/common/logger"
	"menuapp-notifier/internal/common/metrics"
)

// Dispatcher is the outbound mail delivery port. Implementations translate a
// typed payload into one delivery attempt and normalize the outcome into a
// DispatchResult. No retry, no backoff, no idempotency key; a caller that
// wants retries must wrap the call.
type Dispatcher interface {
	SendOrderNotification(ctx context.Context, payload *OrderNotification) *DispatchResult
	SendReport(ctx context.Context, payload *SalesReport) *DispatchResult
}

// DefaultTimeout bounds a single relay call. The relay function attaches its
// own credentials server-side; the caller sends none.
const DefaultTimeout = 10 * time.Second

// Client posts JSON payloads to the relay endpoint. The endpoint is fixed at
// construction and never mutated at runtime.
type Client struct {
	endpoint string
	http     *commonhttp.Client
	logger   logger.Logger
}

func NewClient(endpoint string, timeout time.Duration, log logger.Logger) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		endpoint: endpoint,
		http:     commonhttp.NewClient(timeout),
		logger:   log.WithFields(map[string]interface{}{"component": "relay"}),
	}
}

// SendOrderNotification delivers a new-order email payload.
func (c *Client) SendOrderNotification(ctx context.Context, payload *OrderNotification) *DispatchResult {
	payload.Type = PayloadTypeOrder
	return c.post(ctx, PayloadTypeOrder, payload)
}

// SendReport delivers a sales report payload.
func (c *Client) SendReport(ctx context.Context, payload *SalesReport) *DispatchResult {
	payload.Type = PayloadTypeReport
	return c.post(ctx, PayloadTypeReport, payload)
}

func (c *Client) post(ctx context.Context, kind string, payload interface{}) *DispatchResult {
	if err := validatePayload(kind, payload); err != nil {
		c.logger.Warn("payload failed validation", map[string]interface{}{
			"kind":  kind,
			"error": err.Error(),
		})
		return &DispatchResult{Success: false, Error: err.Error()}
	}

	start := time.Now()
	resp, err := c.http.PostJSON(ctx, c.endpoint, payload)
	metrics.DispatchDuration.WithLabelValues(kind).Observe(time.Since(start).Seconds())

	if err != nil {
		// Unreachable endpoint and timeout land here; same result shape.
		c.logger.Warn("relay unreachable", map[string]interface{}{
			"kind":  kind,
			"error": err.Error(),
		})
		return &DispatchResult{Success: false, Error: fmt.Sprintf("relay request failed: %v", err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &DispatchResult{
			Success: false,
			Error:   fmt.Sprintf("relay returned %d: %s", resp.StatusCode, string(body)),
		}
	}

	var relayResp relayResponse
	if err := json.NewDecoder(resp.Body).Decode(&relayResp); err != nil {
		return &DispatchResult{Success: false, Error: fmt.Sprintf("malformed relay response: %v", err)}
	}

	if !relayResp.Success {
		reason := relayResp.Error
		if reason == "" {
			reason = "relay reported failure without a reason"
		}
		return &DispatchResult{Success: false, Error: reason}
	}

	return &DispatchResult{Success: true}
}
