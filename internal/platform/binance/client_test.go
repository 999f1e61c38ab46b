package binance

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/YoelDevSoft1/ProyectoP2P-sub002/internal/domain"
)

func advJSON(price, amount string) string {
	return `{"adv":{"advNo":"a1","tradeType":"BUY","price":"` + price + `","surplusAmount":"` + amount + `","minSingleTransAmount":"1","maxSingleTransAmount":"100"}}`
}

func successBody(rows ...string) string {
	body := `{"code":"000000","message":"","success":true,"total":` + strconv.Itoa(len(rows)) + `,"data":[`
	for i, r := range rows {
		if i > 0 {
			body += ","
		}
		body += r
	}
	return body + `]}`
}

func TestFetchSideRequestShape(t *testing.T) {
	var got searchRequest

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		if r.URL.Path != searchPath {
			t.Errorf("path = %s, want %s", r.URL.Path, searchPath)
		}
		if ua := r.Header.Get("User-Agent"); ua != "p2pbot-test" {
			t.Errorf("user agent = %q, want p2pbot-test", ua)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Write([]byte(successBody()))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "p2pbot-test", 20, 5*time.Second)
	_, err := c.FetchSide(t.Context(), domain.NewPair("USDT", "VES"), domain.SideSell)
	if err != nil {
		t.Fatalf("FetchSide() error = %v", err)
	}

	if got.Asset != "USDT" || got.Fiat != "VES" {
		t.Errorf("request pair = %s/%s, want USDT/VES", got.Asset, got.Fiat)
	}
	if got.TradeType != "SELL" {
		t.Errorf("trade type = %s, want SELL", got.TradeType)
	}
	if got.Page != 1 || got.Rows != 20 {
		t.Errorf("paging = page %d rows %d, want page 1 rows 20", got.Page, got.Rows)
	}
}

func TestFetchSideSortsListings(t *testing.T) {
	body := successBody(
		advJSON("3990.00", "10"),
		advJSON("4000.00", "5"),
		advJSON("3995.00", "7"),
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(body))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "", 20, 5*time.Second)

	bids, err := c.FetchSide(t.Context(), domain.NewPair("USDT", "VES"), domain.SideBuy)
	if err != nil {
		t.Fatalf("FetchSide(BUY) error = %v", err)
	}
	for i := 1; i < len(bids); i++ {
		if bids[i].Price > bids[i-1].Price {
			t.Errorf("bids not price-descending: %v", bids)
		}
	}
	if bids[0].Price != 4000 || bids[0].Side != domain.SideBuy {
		t.Errorf("best bid = %+v, want price 4000 side BUY", bids[0])
	}

	asks, err := c.FetchSide(t.Context(), domain.NewPair("USDT", "VES"), domain.SideSell)
	if err != nil {
		t.Fatalf("FetchSide(SELL) error = %v", err)
	}
	for i := 1; i < len(asks); i++ {
		if asks[i].Price < asks[i-1].Price {
			t.Errorf("asks not price-ascending: %v", asks)
		}
	}
	if asks[0].Price != 3990 {
		t.Errorf("best ask = %+v, want price 3990", asks[0])
	}
}

func TestFetchSideClassifiesHTTPStatus(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		wantErr error
	}{
		{"throttled", http.StatusTooManyRequests, domain.ErrRateLimited},
		{"not found", http.StatusNotFound, domain.ErrNotFound},
		{"upstream down", http.StatusInternalServerError, domain.ErrUnavailable},
		{"bad gateway", http.StatusBadGateway, domain.ErrUnavailable},
		{"rejected", http.StatusBadRequest, domain.ErrMalformed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
			}))
			defer srv.Close()

			c := NewClient(srv.URL, "", 20, 5*time.Second)
			_, err := c.FetchSide(t.Context(), domain.NewPair("USDT", "VES"), domain.SideBuy)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("FetchSide() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestFetchSideConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	srv.Close()

	c := NewClient(srv.URL, "", 20, 5*time.Second)
	_, err := c.FetchSide(t.Context(), domain.NewPair("USDT", "VES"), domain.SideBuy)
	if !errors.Is(err, domain.ErrUnavailable) {
		t.Fatalf("FetchSide() error = %v, want ErrUnavailable", err)
	}
}

func TestDecodeListingsRejectsBadPayloads(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"not json", `<html>maintenance</html>`},
		{"success false", `{"code":"000002","message":"param error","success":false,"data":[]}`},
		{"garbled price", successBody(advJSON("not-a-number", "10"))},
		{"non-positive price", successBody(advJSON("0", "10"))},
		{"negative amount", successBody(advJSON("4000", "-3"))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := decodeListings([]byte(tt.body), domain.SideBuy)
			if !errors.Is(err, domain.ErrMalformed) {
				t.Fatalf("decodeListings() error = %v, want ErrMalformed", err)
			}
		})
	}
}

func TestDecodeListingsEmptyPage(t *testing.T) {
	orders, err := decodeListings([]byte(successBody()), domain.SideBuy)
	if err != nil {
		t.Fatalf("decodeListings() error = %v", err)
	}
	if len(orders) != 0 {
		t.Errorf("orders = %v, want empty", orders)
	}
}
