package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"github.com/uhyunpark/matchcore/pkg/app/core/orderbook"
	"github.com/uhyunpark/matchcore/pkg/app/exchange"
	"github.com/uhyunpark/matchcore/pkg/storage"
)

const maxBodyBytes = 1 << 16

type Config struct {
	Addr        string
	CORSOrigins []string
	MaxTrades   int // cap on /trades?limit
	DepthLevels int // default and broadcast depth for the orderbook
}

func DefaultConfig() Config {
	return Config{
		Addr:        ":8080",
		CORSOrigins: []string{"*"},
		MaxTrades:   1000,
		DepthLevels: 50,
	}
}

// Server handles REST API and WebSocket connections
type Server struct {
	app    *exchange.App
	cfg    Config
	router *mux.Router
	hub    *Hub
	logger *zap.SugaredLogger
	http   *http.Server
}

func NewServer(app *exchange.App, cfg Config, logger *zap.SugaredLogger) *Server {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	def := DefaultConfig()
	if cfg.MaxTrades <= 0 {
		cfg.MaxTrades = def.MaxTrades
	}
	if cfg.DepthLevels <= 0 {
		cfg.DepthLevels = def.DepthLevels
	}
	if len(cfg.CORSOrigins) == 0 {
		cfg.CORSOrigins = def.CORSOrigins
	}
	if cfg.Addr == "" {
		cfg.Addr = def.Addr
	}

	s := &Server{
		app:    app,
		cfg:    cfg,
		router: mux.NewRouter(),
		hub:    NewHub(logger),
		logger: logger,
	}
	s.setupRoutes()
	s.http = &http.Server{
		Addr:              cfg.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

func (s *Server) setupRoutes() {
	api := s.router.PathPrefix("/api/v1").Subrouter()

	api.HandleFunc("/orders", s.handleSubmitOrder).Methods("POST")
	api.HandleFunc("/orders/cancel", s.handleCancelOrder).Methods("POST")
	api.HandleFunc("/orders/{id}", s.handleGetOrder).Methods("GET")
	api.HandleFunc("/orders/{id}", s.handleDeleteOrder).Methods("DELETE")

	api.HandleFunc("/orderbook", s.handleGetOrderbook).Methods("GET")
	api.HandleFunc("/trades", s.handleGetTrades).Methods("GET")
	api.HandleFunc("/status", s.handleGetStatus).Methods("GET")

	s.router.HandleFunc("/ws", s.handleWebSocket)
	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")
}

// Handler returns the router wrapped with CORS.
func (s *Server) Handler() http.Handler {
	c := cors.New(cors.Options{
		AllowedOrigins: s.cfg.CORSOrigins,
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type", "Authorization"},
	})
	return c.Handler(s.router)
}

func (s *Server) Hub() *Hub { return s.hub }

// Start runs the hub and serves until Shutdown. It returns nil after a
// clean shutdown.
func (s *Server) Start(ctx context.Context) error {
	go s.hub.Run(ctx)

	s.logger.Infow("api_server_starting", "addr", s.cfg.Addr)
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

// ==============================
// REST Handlers
// ==============================

func (s *Server) handleSubmitOrder(w http.ResponseWriter, r *http.Request) {
	var req SubmitOrderRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	kind, ok := orderbook.ParseKind(req.Type)
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid order type", "expected LIMIT or MARKET")
		return
	}
	side, ok := orderbook.ParseSide(req.Side)
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid side", "expected BUY or SELL")
		return
	}

	res, err := s.app.Submit(r.Context(), kind, side, req.Price, req.Quantity)
	if err != nil {
		if errors.Is(err, orderbook.ErrInvalidOrder) {
			respondError(w, http.StatusBadRequest, "invalid order", err.Error())
			return
		}
		respondError(w, http.StatusInternalServerError, "submit failed", err.Error())
		return
	}

	trades := make([]TradeInfo, len(res.Trades))
	for i, tr := range res.Trades {
		trades[i] = tradeInfo(tr, 0)
	}
	respondJSON(w, http.StatusOK, SubmitOrderResponse{
		OrderID:   uint64(res.OrderID),
		Seq:       res.Seq,
		Status:    orderStatus(res),
		Filled:    res.Filled(),
		Remaining: res.Remaining,
		Rested:    res.Rested,
		Trades:    trades,
	})
}

func orderStatus(res orderbook.SubmitResult) string {
	switch {
	case res.Rested && len(res.Trades) == 0:
		return "open"
	case res.Rested:
		return "partially_filled"
	case res.Remaining == 0:
		return "filled"
	case len(res.Trades) > 0:
		// market remainder discarded
		return "partially_filled"
	default:
		return "unfilled"
	}
}

func (s *Server) handleCancelOrder(w http.ResponseWriter, r *http.Request) {
	var req CancelOrderRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	if req.OrderID == 0 {
		respondError(w, http.StatusBadRequest, "missing orderId", "")
		return
	}
	s.cancel(w, r, orderbook.OrderID(req.OrderID))
}

func (s *Server) handleDeleteOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := orderIDVar(w, r)
	if !ok {
		return
	}
	s.cancel(w, r, id)
}

// cancel of an unknown or inactive id is not an error: the response
// reports cancelled=false.
func (s *Server) cancel(w http.ResponseWriter, r *http.Request, id orderbook.OrderID) {
	ok := s.app.Cancel(r.Context(), id)
	respondJSON(w, http.StatusOK, CancelOrderResponse{OrderID: uint64(id), Cancelled: ok})
}

func (s *Server) handleGetOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := orderIDVar(w, r)
	if !ok {
		return
	}
	o, found := s.app.Order(id)
	if !found {
		respondError(w, http.StatusNotFound, "order not found", "order is filled, cancelled or unknown")
		return
	}
	respondJSON(w, http.StatusOK, OrderInfo{
		ID:        uint64(o.ID),
		Side:      o.Side.String(),
		Type:      o.Kind.String(),
		Price:     o.Price,
		Remaining: o.Qty,
		Timestamp: o.Timestamp,
	})
}

func (s *Server) handleGetOrderbook(w http.ResponseWriter, r *http.Request) {
	depth, err := intQuery(r, "depth", s.cfg.DepthLevels)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid depth", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, s.snapshot(depth))
}

func (s *Server) snapshot(depth int) OrderbookSnapshot {
	bids, asks := s.app.Depth(depth)
	return OrderbookSnapshot{
		Bids:      priceLevels(bids),
		Asks:      priceLevels(asks),
		Seq:       s.app.Book().Stats().LastSeq,
		Timestamp: time.Now().UnixMilli(),
	}
}

func (s *Server) handleGetTrades(w http.ResponseWriter, r *http.Request) {
	limit, err := intQuery(r, "limit", 100)
	if err != nil || limit <= 0 {
		respondError(w, http.StatusBadRequest, "invalid limit", "limit must be a positive integer")
		return
	}
	if limit > s.cfg.MaxTrades {
		limit = s.cfg.MaxTrades
	}

	records, err := s.app.RecentTrades(limit)
	if err != nil {
		s.logger.Errorw("recent_trades_failed", "err", err)
		respondError(w, http.StatusInternalServerError, "failed to load trades", "")
		return
	}
	out := make([]TradeInfo, len(records))
	for i, rec := range records {
		out[i] = tradeInfo(rec.Trade, rec.ExecutedAt)
	}
	respondJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetStatus(w http.ResponseWriter, r *http.Request) {
	st := s.app.Status()
	resp := StatusResponse{
		RestingOrders: st.RestingOrders,
		BidEntries:    st.BidEntries,
		AskEntries:    st.AskEntries,
		StaleEntries:  st.StaleEntries,
		LastPrice:     st.LastPrice,
		LastSeq:       st.LastSeq,
		StateHash:     st.StateHash.Hex(),
		Submitted:     st.Submitted,
		Cancelled:     st.Cancelled,
		Rejected:      st.Rejected,
		UptimeSeconds: st.Uptime.Seconds(),
		WSClients:     s.hub.ClientCount(),
	}
	if st.HasBid {
		resp.BestBid = &st.BestBid
	}
	if st.HasAsk {
		resp.BestAsk = &st.BestAsk
	}
	respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// ==============================
// Broadcast Methods (wired to exchange.App hooks)
// ==============================

func (s *Server) BroadcastTrades(records []storage.TradeRecord) {
	for _, rec := range records {
		s.hub.BroadcastToChannel(ChannelTrades, TradeUpdate{
			Type:      "trade",
			TradeInfo: tradeInfo(rec.Trade, rec.ExecutedAt),
		})
	}
}

func (s *Server) BroadcastOrderbook(seq uint64) {
	if s.hub.Subscribers(ChannelOrderbook) == 0 {
		return
	}
	snap := s.snapshot(s.cfg.DepthLevels)
	s.hub.BroadcastToChannel(ChannelOrderbook, OrderbookUpdate{
		Type:      "orderbook",
		Bids:      snap.Bids,
		Asks:      snap.Asks,
		Seq:       seq,
		Timestamp: snap.Timestamp,
	})
}

// ==============================
// Helper Functions
// ==============================

func tradeInfo(tr orderbook.Trade, executedAt int64) TradeInfo {
	return TradeInfo{
		ID:        uint64(tr.ID),
		MakerID:   uint64(tr.MakerID),
		TakerID:   uint64(tr.TakerID),
		Price:     tr.Price,
		Size:      tr.Qty,
		Side:      tr.TakerSide.String(),
		Timestamp: executedAt,
	}
}

func priceLevels(levels []orderbook.PriceLevel) []PriceLevel {
	out := make([]PriceLevel, len(levels))
	for i, l := range levels {
		out[i] = PriceLevel{Price: l.Price, Size: l.Qty, Orders: l.Orders}
	}
	return out
}

func orderIDVar(w http.ResponseWriter, r *http.Request) (orderbook.OrderID, bool) {
	raw := mux.Vars(r)["id"]
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		respondError(w, http.StatusBadRequest, "invalid order id", raw)
		return 0, false
	}
	return orderbook.OrderID(id), true
}

func intQuery(r *http.Request, key string, def int) (int, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def, nil
	}
	return strconv.Atoi(raw)
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, error string, message string) {
	respondJSON(w, status, ErrorResponse{
		Error:   error,
		Message: message,
	})
}
