package orderbook

import (
	"errors"
	"strconv"
	"strings"
)

// ErrInvalidOrder is returned by Submit for structurally malformed input.
// Nothing in the book is touched when it is returned.
var ErrInvalidOrder = errors.New("invalid order")

type Side int8

const (
	Buy  Side = 1
	Sell Side = -1
)

func (s Side) String() string {
	switch s {
	case Buy:
		return "BUY"
	case Sell:
		return "SELL"
	default:
		return "UNKNOWN"
	}
}

// Opposite returns the side a taker on s matches against.
func (s Side) Opposite() Side {
	if s == Buy {
		return Sell
	}
	return Buy
}

func (s Side) valid() bool { return s == Buy || s == Sell }

// ParseSide accepts "buy"/"sell" in any case.
func ParseSide(s string) (Side, bool) {
	switch {
	case strings.EqualFold(s, "BUY"):
		return Buy, true
	case strings.EqualFold(s, "SELL"):
		return Sell, true
	}
	return 0, false
}

type Kind uint8

const (
	Limit Kind = iota + 1
	Market
)

func (k Kind) String() string {
	switch k {
	case Limit:
		return "LIMIT"
	case Market:
		return "MARKET"
	default:
		return "UNKNOWN"
	}
}

func (k Kind) valid() bool { return k == Limit || k == Market }

// ParseKind accepts "limit"/"market" in any case.
func ParseKind(s string) (Kind, bool) {
	switch {
	case strings.EqualFold(s, "LIMIT"):
		return Limit, true
	case strings.EqualFold(s, "MARKET"):
		return Market, true
	}
	return 0, false
}

type OrderID uint64

func (id OrderID) String() string { return strconv.FormatUint(uint64(id), 10) }

type TradeID uint64

func (id TradeID) String() string { return strconv.FormatUint(uint64(id), 10) }

// Order is a value; the Registry replaces it on every quantity change.
type Order struct {
	ID        OrderID
	Side      Side
	Kind      Kind
	Price     int64 // integer ticks, LIMIT only
	Qty       int64 // remaining unfilled quantity
	Timestamp int64 // priority tie-break, strictly increasing per book
}

// Trade is one execution between a resting maker and an incoming taker.
type Trade struct {
	ID        TradeID
	MakerID   OrderID
	TakerID   OrderID
	Qty       int64
	Price     int64 // always the maker's price
	TakerSide Side
}

// SubmitResult is what Submit hands back to the caller.
// Trades are in chronological match order.
type SubmitResult struct {
	OrderID   OrderID
	Trades    []Trade
	Remaining int64 // unfilled quantity after matching
	Rested    bool  // true if the remainder now rests on the book
	Seq       uint64
}

// Filled returns the total quantity executed by the taker.
func (r SubmitResult) Filled() int64 {
	var n int64
	for _, t := range r.Trades {
		n += t.Qty
	}
	return n
}

// CancelResult is the detailed outcome of CancelOrder.
type CancelResult struct {
	OrderID   OrderID
	Cancelled bool
	Remaining int64 // quantity removed from the book
	Side      Side
	Price     int64
	Seq       uint64 // zero when nothing was cancelled
}

// PriceLevel aggregates live quantity at one price.
type PriceLevel struct {
	Price  int64
	Qty    int64
	Orders int
}

// Stats is a point-in-time summary of book internals.
type Stats struct {
	RestingOrders int // live orders in the Registry
	BidEntries    int // heap entries, stale ones included
	AskEntries    int
	StaleEntries  int // heap entries whose order is no longer live
	LastPrice     int64
	LastSeq       uint64
}
