/**
 * @description
 * This package provides a client for the bank service's transaction relay.
 * It encapsulates the logic for posting settlement requests, reading relay
 * replies, and fetching transaction receipts. Relay rejections travel in the
 * reply body, so non-2xx responses with a well-formed payload are returned
 * as replies rather than errors; only transport and decoding failures
 * surface as errors.
 *
 * @dependencies
 * - bytes, context, encoding/json, fmt, net/http, time: Standard Go libraries.
 * - internal/domain: Relay request and response payloads.
 */
package bankclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/nexapay/upi-gateway/internal/domain"
)

// Client is a client for the bank service's relay API.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
}

// NewClient creates a new relay client.
func NewClient(baseURL string) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// RelayPayment posts a settlement request to the bank service and returns
// the relay reply.
func (c *Client) RelayPayment(ctx context.Context, reqPayload domain.PaymentRequest) (*domain.PaymentResponse, error) {
	body, err := json.Marshal(reqPayload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal relay request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.BaseURL+"/payments/relay", bytes.NewBuffer(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create relay request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute relay request: %w", err)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read relay response: %w", err)
	}

	var relayResp domain.PaymentResponse
	if err := json.Unmarshal(bodyBytes, &relayResp); err != nil || relayResp.Status == "" {
		log.Printf("level=warn component=bank_client op=relay status=%d msg=\"unparsable relay response\"", resp.StatusCode)
		return nil, fmt.Errorf("failed to decode relay response (status %d)", resp.StatusCode)
	}

	if relayResp.Status != domain.RelayStatusSuccess {
		log.Printf("level=warn component=bank_client op=relay status=%d relay_status=%s message=%q", resp.StatusCode, relayResp.Status, relayResp.Message)
	}
	return &relayResp, nil
}

// GetTransaction fetches the receipt for a settlement attempt.
func (c *Client) GetTransaction(ctx context.Context, transactionID string) (*domain.TransactionReceipt, error) {
	url := c.BaseURL + "/transactions/" + transactionID

	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create receipt request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute receipt request: %w", err)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read receipt response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		log.Printf("level=warn component=bank_client op=get_transaction transaction_id=%s status=%d", transactionID, resp.StatusCode)
		return nil, fmt.Errorf("receipt lookup failed (status %d)", resp.StatusCode)
	}

	var receipt domain.TransactionReceipt
	if err := json.Unmarshal(bodyBytes, &receipt); err != nil {
		return nil, fmt.Errorf("failed to decode receipt response: %w", err)
	}
	return &receipt, nil
}
