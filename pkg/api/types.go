package api

// API request/response types for REST endpoints and WebSocket messages

// ==============================
// REST
// ==============================

type SubmitOrderRequest struct {
	Type     string `json:"type"` // "LIMIT" or "MARKET"
	Side     string `json:"side"` // "BUY" or "SELL"
	Price    int64  `json:"price"`
	Quantity int64  `json:"quantity"`
}

type SubmitOrderResponse struct {
	OrderID   uint64      `json:"orderId"`
	Seq       uint64      `json:"seq"`
	Status    string      `json:"status"` // "open", "partially_filled", "filled", "unfilled"
	Filled    int64       `json:"filled"`
	Remaining int64       `json:"remaining"`
	Rested    bool        `json:"rested"`
	Trades    []TradeInfo `json:"trades"`
}

type CancelOrderRequest struct {
	OrderID uint64 `json:"orderId"`
}

type CancelOrderResponse struct {
	OrderID   uint64 `json:"orderId"`
	Cancelled bool   `json:"cancelled"`
}

type OrderInfo struct {
	ID        uint64 `json:"id"`
	Side      string `json:"side"`
	Type      string `json:"type"`
	Price     int64  `json:"price"`
	Remaining int64  `json:"remaining"`
	Timestamp int64  `json:"timestamp"` // priority timestamp, not wall clock
}

type PriceLevel struct {
	Price  int64 `json:"price"`
	Size   int64 `json:"size"`
	Orders int   `json:"orders"`
}

type OrderbookSnapshot struct {
	Bids      []PriceLevel `json:"bids"` // Sorted high to low
	Asks      []PriceLevel `json:"asks"` // Sorted low to high
	Seq       uint64       `json:"seq"`
	Timestamp int64        `json:"timestamp"` // Unix milliseconds
}

type TradeInfo struct {
	ID        uint64 `json:"id"`
	MakerID   uint64 `json:"makerId"`
	TakerID   uint64 `json:"takerId"`
	Price     int64  `json:"price"`
	Size      int64  `json:"size"`
	Side      string `json:"side"`                // taker side
	Timestamp int64  `json:"timestamp,omitempty"` // Unix milliseconds
}

type StatusResponse struct {
	RestingOrders int     `json:"restingOrders"`
	BidEntries    int     `json:"bidEntries"`
	AskEntries    int     `json:"askEntries"`
	StaleEntries  int     `json:"staleEntries"`
	BestBid       *int64  `json:"bestBid"`
	BestAsk       *int64  `json:"bestAsk"`
	LastPrice     int64   `json:"lastPrice"`
	LastSeq       uint64  `json:"lastSeq"`
	StateHash     string  `json:"stateHash"` // 0x-prefixed Keccak-256
	Submitted     uint64  `json:"submitted"`
	Cancelled     uint64  `json:"cancelled"`
	Rejected      uint64  `json:"rejected"`
	UptimeSeconds float64 `json:"uptimeSeconds"`
	WSClients     int     `json:"wsClients"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// ==============================
// WebSocket
// ==============================

const (
	ChannelTrades    = "trades"
	ChannelOrderbook = "orderbook"
)

type WSSubscribeRequest struct {
	Op       string   `json:"op"`       // "subscribe" or "unsubscribe"
	Channels []string `json:"channels"` // "trades", "orderbook"
}

type OrderbookUpdate struct {
	Type      string       `json:"type"` // "orderbook"
	Bids      []PriceLevel `json:"bids"`
	Asks      []PriceLevel `json:"asks"`
	Seq       uint64       `json:"seq"`
	Timestamp int64        `json:"timestamp"`
}

type TradeUpdate struct {
	Type string `json:"type"` // "trade"
	TradeInfo
}
