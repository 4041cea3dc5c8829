package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/uhyunpark/matchcore/pkg/app/core/orderbook"
	"github.com/uhyunpark/matchcore/pkg/app/exchange"
)

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met before deadline")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestWebSocketStreamsTradesAndBook(t *testing.T) {
	app := exchange.NewApp(exchange.Options{})
	s := NewServer(app, Config{}, nil)
	app.OnTrade = s.BroadcastTrades
	app.OnBookChange = s.BroadcastOrderbook

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.Hub().Run(ctx)

	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http")+"/ws", nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	sub := WSSubscribeRequest{Op: "subscribe", Channels: []string{ChannelTrades, ChannelOrderbook, "bogus"}}
	if err := conn.WriteJSON(sub); err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	waitFor(t, func() bool {
		return s.Hub().Subscribers(ChannelTrades) == 1 && s.Hub().Subscribers(ChannelOrderbook) == 1
	})
	if s.Hub().Subscribers("bogus") != 0 {
		t.Error("unknown channel accepted")
	}

	if _, err := app.Submit(ctx, orderbook.Limit, orderbook.Sell, 100, 2); err != nil {
		t.Fatal(err)
	}
	if _, err := app.Submit(ctx, orderbook.Market, orderbook.Buy, 0, 1); err != nil {
		t.Fatal(err)
	}

	// book(seq 1), trade, book(seq 2)
	var sawTrade bool
	var lastBook OrderbookUpdate
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	for i := 0; i < 3; i++ {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("read #%d: %v", i, err)
		}
		var head struct {
			Type string `json:"type"`
		}
		json.Unmarshal(msg, &head)
		switch head.Type {
		case "trade":
			var tu TradeUpdate
			json.Unmarshal(msg, &tu)
			if tu.Price != 100 || tu.Size != 1 || tu.MakerID != 1 || tu.TakerID != 2 {
				t.Errorf("trade update = %+v", tu)
			}
			sawTrade = true
		case "orderbook":
			json.Unmarshal(msg, &lastBook)
		default:
			t.Fatalf("unexpected message %s", msg)
		}
	}
	if !sawTrade {
		t.Error("no trade update received")
	}
	if lastBook.Seq != 2 || len(lastBook.Asks) != 1 || lastBook.Asks[0].Size != 1 {
		t.Errorf("last book update = %+v", lastBook)
	}
}

func TestHubDisconnectsOnShutdown(t *testing.T) {
	app := exchange.NewApp(exchange.Options{})
	s := NewServer(app, Config{}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	go s.Hub().Run(ctx)

	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	conn, resp, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http")+"/ws", nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	if resp.StatusCode != http.StatusSwitchingProtocols {
		t.Fatalf("handshake status = %d", resp.StatusCode)
	}
	waitFor(t, func() bool { return s.Hub().ClientCount() == 1 })

	cancel()
	waitFor(t, func() bool { return s.Hub().ClientCount() == 0 })

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, _, err := conn.ReadMessage(); err == nil {
		t.Error("expected connection to close after hub shutdown")
	}
}
