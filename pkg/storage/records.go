package storage

import "github.com/uhyunpark/matchcore/pkg/app/core/orderbook"

type Op uint8

const (
	OpSubmit Op = iota + 1
	OpCancel
)

func (op Op) String() string {
	switch op {
	case OpSubmit:
		return "SUBMIT"
	case OpCancel:
		return "CANCEL"
	default:
		return "UNKNOWN"
	}
}

// Command is an accepted book mutation, keyed by the sequence the book
// stamped on it. Replaying commands in Seq order rebuilds the book.
type Command struct {
	Seq     uint64
	Op      Op
	Kind    orderbook.Kind
	Side    orderbook.Side
	Price   int64
	Qty     int64
	OrderID orderbook.OrderID // assigned id for submits, target for cancels
}

// TradeRecord is an executed trade plus the wall-clock time it was journaled.
type TradeRecord struct {
	orderbook.Trade
	ExecutedAt int64 // Unix milliseconds
}
