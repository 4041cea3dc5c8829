package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/uhyunpark/matchcore/pkg/app/exchange"
)

func newTestServer(t *testing.T) (*Server, *exchange.App) {
	t.Helper()
	app := exchange.NewApp(exchange.Options{})
	t.Cleanup(func() { app.Close() })
	return NewServer(app, Config{}, nil), app
}

func do(t *testing.T, s *Server, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.NewDecoder(rec.Body).Decode(v); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
}

func submit(t *testing.T, s *Server, typ, side string, price, qty int64) SubmitOrderResponse {
	t.Helper()
	rec := do(t, s, http.MethodPost, "/api/v1/orders", SubmitOrderRequest{Type: typ, Side: side, Price: price, Quantity: qty})
	if rec.Code != http.StatusOK {
		t.Fatalf("POST /orders = %d: %s", rec.Code, rec.Body.String())
	}
	var resp SubmitOrderResponse
	decode(t, rec, &resp)
	return resp
}

func TestSubmitOrder(t *testing.T) {
	s, _ := newTestServer(t)

	sell := submit(t, s, "LIMIT", "SELL", 10100, 10)
	if sell.Status != "open" || !sell.Rested || sell.OrderID != 1 {
		t.Fatalf("resting sell = %+v", sell)
	}

	buy := submit(t, s, "limit", "buy", 10100, 4)
	if buy.Status != "filled" || buy.Filled != 4 || buy.Remaining != 0 {
		t.Errorf("crossing buy = %+v", buy)
	}
	if len(buy.Trades) != 1 || buy.Trades[0].MakerID != sell.OrderID || buy.Trades[0].Price != 10100 || buy.Trades[0].Side != "BUY" {
		t.Errorf("trades = %+v", buy.Trades)
	}

	mkt := submit(t, s, "MARKET", "BUY", 0, 10)
	if mkt.Status != "partially_filled" || mkt.Filled != 6 || mkt.Remaining != 4 || mkt.Rested {
		t.Errorf("market buy = %+v", mkt)
	}

	empty := submit(t, s, "MARKET", "SELL", 0, 1)
	if empty.Status != "unfilled" || empty.Rested {
		t.Errorf("market on empty book = %+v", empty)
	}
}

func TestSubmitOrder_Rejections(t *testing.T) {
	s, _ := newTestServer(t)

	tests := []struct {
		name string
		body interface{}
	}{
		{"unknown type", SubmitOrderRequest{Type: "STOP", Side: "BUY", Price: 1, Quantity: 1}},
		{"unknown side", SubmitOrderRequest{Type: "LIMIT", Side: "HOLD", Price: 1, Quantity: 1}},
		{"zero quantity", SubmitOrderRequest{Type: "LIMIT", Side: "BUY", Price: 1, Quantity: 0}},
		{"negative price", SubmitOrderRequest{Type: "LIMIT", Side: "SELL", Price: -5, Quantity: 1}},
		{"malformed body", "not an object"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, s, http.MethodPost, "/api/v1/orders", tt.body)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400 (%s)", rec.Code, rec.Body.String())
			}
			var resp ErrorResponse
			decode(t, rec, &resp)
			if resp.Error == "" {
				t.Error("error response without error field")
			}
		})
	}
}

func TestCancelOrder(t *testing.T) {
	s, _ := newTestServer(t)
	first := submit(t, s, "LIMIT", "BUY", 100, 5)
	second := submit(t, s, "LIMIT", "BUY", 99, 5)

	var resp CancelOrderResponse
	rec := do(t, s, http.MethodDelete, "/api/v1/orders/1", nil)
	decode(t, rec, &resp)
	if rec.Code != http.StatusOK || !resp.Cancelled || resp.OrderID != first.OrderID {
		t.Errorf("DELETE /orders/1 = %d %+v", rec.Code, resp)
	}

	rec = do(t, s, http.MethodPost, "/api/v1/orders/cancel", CancelOrderRequest{OrderID: second.OrderID})
	decode(t, rec, &resp)
	if !resp.Cancelled {
		t.Errorf("POST /orders/cancel = %+v", resp)
	}

	// already gone
	rec = do(t, s, http.MethodDelete, "/api/v1/orders/1", nil)
	decode(t, rec, &resp)
	if rec.Code != http.StatusOK || resp.Cancelled {
		t.Errorf("repeat cancel = %d %+v", rec.Code, resp)
	}

	if rec := do(t, s, http.MethodDelete, "/api/v1/orders/abc", nil); rec.Code != http.StatusBadRequest {
		t.Errorf("DELETE /orders/abc = %d, want 400", rec.Code)
	}
	if rec := do(t, s, http.MethodPost, "/api/v1/orders/cancel", map[string]int{}); rec.Code != http.StatusBadRequest {
		t.Errorf("cancel without id = %d, want 400", rec.Code)
	}
}

func TestGetOrder(t *testing.T) {
	s, _ := newTestServer(t)
	submit(t, s, "LIMIT", "SELL", 200, 8)
	submit(t, s, "LIMIT", "BUY", 200, 3)

	rec := do(t, s, http.MethodGet, "/api/v1/orders/1", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /orders/1 = %d", rec.Code)
	}
	var o OrderInfo
	decode(t, rec, &o)
	if o.Remaining != 5 || o.Side != "SELL" || o.Type != "LIMIT" || o.Price != 200 {
		t.Errorf("order = %+v", o)
	}

	if rec := do(t, s, http.MethodGet, "/api/v1/orders/2", nil); rec.Code != http.StatusNotFound {
		t.Errorf("filled taker lookup = %d, want 404", rec.Code)
	}
}

func TestGetOrderbook(t *testing.T) {
	s, _ := newTestServer(t)
	submit(t, s, "LIMIT", "BUY", 100, 1)
	submit(t, s, "LIMIT", "BUY", 100, 2)
	submit(t, s, "LIMIT", "BUY", 99, 1)
	submit(t, s, "LIMIT", "SELL", 105, 4)

	rec := do(t, s, http.MethodGet, "/api/v1/orderbook?depth=1", nil)
	var snap OrderbookSnapshot
	decode(t, rec, &snap)
	if len(snap.Bids) != 1 || snap.Bids[0] != (PriceLevel{Price: 100, Size: 3, Orders: 2}) {
		t.Errorf("bids = %+v", snap.Bids)
	}
	if len(snap.Asks) != 1 || snap.Asks[0].Price != 105 {
		t.Errorf("asks = %+v", snap.Asks)
	}
	if snap.Seq != 4 {
		t.Errorf("seq = %d, want 4", snap.Seq)
	}

	if rec := do(t, s, http.MethodGet, "/api/v1/orderbook?depth=x", nil); rec.Code != http.StatusBadRequest {
		t.Errorf("bad depth = %d, want 400", rec.Code)
	}
}

func TestGetTradesAndStatus(t *testing.T) {
	s, _ := newTestServer(t)
	submit(t, s, "LIMIT", "SELL", 50, 1)
	submit(t, s, "LIMIT", "SELL", 51, 1)
	submit(t, s, "MARKET", "BUY", 0, 2)

	rec := do(t, s, http.MethodGet, "/api/v1/trades?limit=1", nil)
	var trades []TradeInfo
	decode(t, rec, &trades)
	if len(trades) != 1 || trades[0].ID != 2 || trades[0].Price != 51 {
		t.Errorf("trades = %+v", trades)
	}
	if rec := do(t, s, http.MethodGet, "/api/v1/trades?limit=0", nil); rec.Code != http.StatusBadRequest {
		t.Errorf("limit=0 = %d, want 400", rec.Code)
	}

	rec = do(t, s, http.MethodGet, "/api/v1/status", nil)
	var st StatusResponse
	decode(t, rec, &st)
	if st.LastPrice != 51 || st.RestingOrders != 0 || st.Submitted != 3 || st.LastSeq != 3 {
		t.Errorf("status = %+v", st)
	}
	if st.BestBid != nil || st.BestAsk != nil {
		t.Errorf("empty book reported best %v/%v", st.BestBid, st.BestAsk)
	}
	if len(st.StateHash) != 66 {
		t.Errorf("stateHash = %q", st.StateHash)
	}
}

func TestHealth(t *testing.T) {
	s, _ := newTestServer(t)
	rec := do(t, s, http.MethodGet, "/health", nil)
	if rec.Code != http.StatusOK {
		t.Errorf("GET /health = %d", rec.Code)
	}
}

func TestCORSPreflight(t *testing.T) {
	app := exchange.NewApp(exchange.Options{})
	s := NewServer(app, Config{CORSOrigins: []string{"http://localhost:3000"}}, nil)

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/orders", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", "DELETE")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:3000" {
		t.Errorf("Allow-Origin = %q", got)
	}
}
