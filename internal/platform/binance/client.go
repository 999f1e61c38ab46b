// Package binance is the REST client for the Binance-style P2P (C2C)
// marketplace search endpoint. It fetches one side of the listings for a
// pair and classifies failures so the fetch layer can decide what to
// retry.
package binance

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"sort"
	"time"

	"github.com/YoelDevSoft1/ProyectoP2P-sub002/internal/domain"
)

// searchPath is the adv search endpoint, relative to the base URL.
const searchPath = "/bapi/c2c/v2/friendly/c2c/adv/search"

// Client is the HTTP client for the P2P marketplace.
type Client struct {
	baseURL    string
	userAgent  string
	rows       int
	httpClient *http.Client
}

// NewClient creates a marketplace client.
//
// baseURL is the marketplace root, e.g. "https://p2p.binance.com".
// rows is the page size requested per side.
func NewClient(baseURL, userAgent string, rows int, timeout time.Duration) *Client {
	return &Client{
		baseURL:   baseURL,
		userAgent: userAgent,
		rows:      rows,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// FetchSide returns the listings for one side of a pair, sorted
// best-first: price-descending for BUY, price-ascending for SELL.
//
// Failures are classified against the domain taxonomy: ErrRateLimited
// for throttling, ErrUnavailable for network errors and upstream 5xx,
// ErrMalformed for anything the response parser rejects.
func (c *Client) FetchSide(ctx context.Context, pair domain.Pair, side domain.Side) ([]domain.RawOrder, error) {
	reqBody := searchRequest{
		Asset:     pair.Asset,
		Fiat:      pair.Fiat,
		TradeType: string(side),
		Page:      1,
		Rows:      c.rows,
		PayTypes:  []string{},
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("binance: encode search request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+searchPath, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("binance: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("binance: search %s %s: %w", pair, side, err)
		}
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			return nil, fmt.Errorf("binance: search %s %s timed out: %w", pair, side, domain.ErrUnavailable)
		}
		return nil, fmt.Errorf("binance: search %s %s: %v: %w", pair, side, err, domain.ErrUnavailable)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("binance: read response: %v: %w", err, domain.ErrUnavailable)
	}

	if err := checkHTTPStatus(resp.StatusCode, body); err != nil {
		return nil, fmt.Errorf("binance: search %s %s: %w", pair, side, err)
	}

	return decodeListings(body, side)
}

// decodeListings parses the search envelope into validated orders.
func decodeListings(body []byte, side domain.Side) ([]domain.RawOrder, error) {
	var sr searchResponse
	if err := json.Unmarshal(body, &sr); err != nil {
		return nil, fmt.Errorf("%w: decode search response: %v", domain.ErrMalformed, err)
	}
	if !sr.Success {
		return nil, fmt.Errorf("%w: upstream code %s: %s", domain.ErrMalformed, sr.Code, sr.Message)
	}

	orders := make([]domain.RawOrder, 0, len(sr.Data))
	for i := range sr.Data {
		order, err := sr.Data[i].Adv.toRawOrder(side)
		if err != nil {
			return nil, err
		}
		orders = append(orders, order)
	}

	// Bids best-first means highest price first; asks lowest first.
	if side == domain.SideBuy {
		sort.Slice(orders, func(i, j int) bool { return orders[i].Price > orders[j].Price })
	} else {
		sort.Slice(orders, func(i, j int) bool { return orders[i].Price < orders[j].Price })
	}

	return orders, nil
}

// checkHTTPStatus maps HTTP status codes onto the domain error taxonomy.
// Throttling must stay distinguishable from other upstream failures so
// the fetcher backs off instead of hammering.
func checkHTTPStatus(statusCode int, body []byte) error {
	if statusCode >= 200 && statusCode < 300 {
		return nil
	}

	bodyStr := string(body)
	switch {
	case statusCode == http.StatusTooManyRequests:
		return fmt.Errorf("%w: %s", domain.ErrRateLimited, bodyStr)
	case statusCode == http.StatusNotFound:
		return fmt.Errorf("%w: %s", domain.ErrNotFound, bodyStr)
	case statusCode >= 500:
		return fmt.Errorf("%w: HTTP %d: %s", domain.ErrUnavailable, statusCode, bodyStr)
	default:
		return fmt.Errorf("%w: HTTP %d: %s", domain.ErrMalformed, statusCode, bodyStr)
	}
}
