// Package orderapi is the HTTP client for the order service, used by the
// matching daemon to pull open orders at startup and to record executed
// trades.
package orderapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	match "github.com/ordinex/venue"
	"github.com/ordinex/venue/protocol"
)

// ErrDeliveryFailure reports that the order service did not acknowledge a
// trade recording. The match itself remains authoritative; callers log the
// failure for out-of-band reconciliation and move on.
var ErrDeliveryFailure = errors.New("trade recording was not acknowledged")

const defaultTimeout = 10 * time.Second

// Client talks to one order service instance.
type Client struct {
	baseURL string
	httpc   *http.Client
}

// NewClient creates a client for the order service at baseURL.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpc:   &http.Client{Timeout: timeout},
	}
}

// OpenOrders fetches all orders that still have unfilled quantity, in the
// order the service returns them.
func (c *Client) OpenOrders(ctx context.Context) ([]*protocol.OrderPayload, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/open-orders", nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch open orders: %w", err)
	}
	defer drain(resp.Body)

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch open orders: unexpected status %d", resp.StatusCode)
	}

	var payloads []*protocol.OrderPayload
	if err := json.NewDecoder(resp.Body).Decode(&payloads); err != nil {
		return nil, fmt.Errorf("decode open orders: %w", err)
	}
	return payloads, nil
}

// RecordTrade posts one executed trade and returns the persisted record.
// Any response other than 201 Created is a delivery failure.
func (c *Client) RecordTrade(ctx context.Context, trade *match.Trade) (*protocol.TradeRecord, error) {
	body, err := json.Marshal(protocol.TradeRequest{
		Price:         trade.Price,
		Quantity:      trade.Quantity,
		BuyerOrderID:  trade.BuyerOrderID,
		SellerOrderID: trade.SellerOrderID,
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/trades", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDeliveryFailure, err)
	}
	defer drain(resp.Body)

	if resp.StatusCode != http.StatusCreated {
		return nil, fmt.Errorf("%w: unexpected status %d", ErrDeliveryFailure, resp.StatusCode)
	}

	var record protocol.TradeRecord
	if err := json.NewDecoder(resp.Body).Decode(&record); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", ErrDeliveryFailure, err)
	}
	return &record, nil
}

func drain(body io.ReadCloser) {
	_, _ = io.Copy(io.Discard, body)
	_ = body.Close()
}
