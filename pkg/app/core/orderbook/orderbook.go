package orderbook

import (
	"fmt"
	"sync"

	"github.com/uhyunpark/matchcore/pkg/app/core/sequence"
)

// Config wires the id and timestamp collaborators. Nil fields get a
// fresh sequence.Sequencer starting at zero.
type Config struct {
	OrderIDs sequence.Source
	TradeIDs sequence.Source
	Clock    sequence.Source // priority timestamps
	Commands sequence.Source // command sequence for accepted submits/cancels
}

// OrderBook is a single-instrument matching core.
//
// Both priority books and the registry form one mutation unit guarded by
// mu. Exported methods take the lock; unexported helpers assume it is
// held and never take it again.
type OrderBook struct {
	mu sync.RWMutex

	bids     *PriorityBook
	asks     *PriorityBook
	registry *Registry

	orderIDs sequence.Source
	tradeIDs sequence.Source
	clock    sequence.Source
	commands sequence.Source

	lastPrice int64  // most recent fill price
	lastSeq   uint64 // most recent accepted command
}

func NewOrderBook() *OrderBook {
	return New(Config{})
}

func New(cfg Config) *OrderBook {
	if cfg.OrderIDs == nil {
		cfg.OrderIDs = sequence.New(0)
	}
	if cfg.TradeIDs == nil {
		cfg.TradeIDs = sequence.New(0)
	}
	if cfg.Clock == nil {
		cfg.Clock = sequence.New(0)
	}
	if cfg.Commands == nil {
		cfg.Commands = sequence.New(0)
	}
	return &OrderBook{
		bids:     NewPriorityBook(Buy),
		asks:     NewPriorityBook(Sell),
		registry: NewRegistry(),
		orderIDs: cfg.OrderIDs,
		tradeIDs: cfg.TradeIDs,
		clock:    cfg.Clock,
		commands: cfg.Commands,
	}
}

func validate(kind Kind, side Side, price, qty int64) error {
	if !kind.valid() {
		return fmt.Errorf("%w: unknown kind %d", ErrInvalidOrder, kind)
	}
	if !side.valid() {
		return fmt.Errorf("%w: unknown side %d", ErrInvalidOrder, side)
	}
	if qty <= 0 {
		return fmt.Errorf("%w: quantity must be positive, got %d", ErrInvalidOrder, qty)
	}
	if kind == Limit && price < 0 {
		return fmt.Errorf("%w: limit price must not be negative, got %d", ErrInvalidOrder, price)
	}
	return nil
}

// Submit matches a new order against the opposite side and rests any
// LIMIT remainder. MARKET orders ignore price and never rest.
func (ob *OrderBook) Submit(kind Kind, side Side, price, qty int64) (SubmitResult, error) {
	if err := validate(kind, side, price, qty); err != nil {
		return SubmitResult{}, err
	}
	if kind == Market {
		price = 0
	}

	ob.mu.Lock()
	defer ob.mu.Unlock()

	o := Order{
		ID:        OrderID(ob.orderIDs.Next()),
		Side:      side,
		Kind:      kind,
		Price:     price,
		Qty:       qty,
		Timestamp: int64(ob.clock.Next()),
	}

	trades := ob.match(&o)

	res := SubmitResult{
		OrderID:   o.ID,
		Trades:    trades,
		Remaining: o.Qty,
	}
	if o.Qty > 0 && o.Kind == Limit {
		ob.rest(o)
		res.Rested = true
	}
	res.Seq = ob.commands.Next()
	ob.lastSeq = res.Seq
	return res, nil
}

// Cancel removes a live order and reports whether it was live.
func (ob *OrderBook) Cancel(id OrderID) bool {
	return ob.CancelOrder(id).Cancelled
}

// CancelOrder is Cancel with the removed quantity and command sequence.
// Only the Registry is touched; the heap entry is discarded lazily.
func (ob *OrderBook) CancelOrder(id OrderID) CancelResult {
	ob.mu.Lock()
	defer ob.mu.Unlock()

	o, ok := ob.registry.Get(id)
	if !ok {
		return CancelResult{OrderID: id}
	}
	ob.registry.Remove(id)

	seq := ob.commands.Next()
	ob.lastSeq = seq
	return CancelResult{
		OrderID:   id,
		Cancelled: true,
		Remaining: o.Qty,
		Side:      o.Side,
		Price:     o.Price,
		Seq:       seq,
	}
}

func (ob *OrderBook) bookFor(s Side) *PriorityBook {
	if s == Buy {
		return ob.bids
	}
	return ob.asks
}

// match consumes taker.Qty against the opposite book.
func (ob *OrderBook) match(taker *Order) []Trade {
	opp := ob.bookFor(taker.Side.Opposite())

	var trades []Trade
	for taker.Qty > 0 {
		id, ok := opp.PeekBest()
		if !ok {
			break
		}
		maker, live := ob.registry.Get(id)
		if !live {
			// stale: cancelled or filled earlier
			opp.PopBest()
			continue
		}
		if maker.Side != opp.Side() {
			panic(fmt.Sprintf("orderbook: order %d (%s) found in %s book", maker.ID, maker.Side, opp.Side()))
		}
		if !crosses(*taker, maker.Price) {
			break
		}

		fill := min(taker.Qty, maker.Qty)
		trades = append(trades, Trade{
			ID:        TradeID(ob.tradeIDs.Next()),
			MakerID:   maker.ID,
			TakerID:   taker.ID,
			Qty:       fill,
			Price:     maker.Price,
			TakerSide: taker.Side,
		})
		ob.lastPrice = maker.Price

		taker.Qty -= fill
		maker.Qty -= fill
		if maker.Qty > 0 {
			// same entry, same priority
			ob.registry.InsertOrReplace(maker)
		} else {
			opp.PopBest()
			ob.registry.Remove(maker.ID)
		}
	}
	return trades
}

// crosses reports whether a taker may trade at makerPrice.
func crosses(taker Order, makerPrice int64) bool {
	if taker.Kind == Market {
		return true
	}
	if taker.Side == Buy {
		return makerPrice <= taker.Price
	}
	return makerPrice >= taker.Price
}

func (ob *OrderBook) rest(o Order) {
	ob.registry.InsertOrReplace(o)
	ob.bookFor(o.Side).Push(o)
}

// BestBid returns the highest live bid price.
// It takes the write lock because stale heads are pruned on the way.
func (ob *OrderBook) BestBid() (int64, bool) {
	ob.mu.Lock()
	defer ob.mu.Unlock()
	return ob.best(ob.bids)
}

// BestAsk returns the lowest live ask price.
func (ob *OrderBook) BestAsk() (int64, bool) {
	ob.mu.Lock()
	defer ob.mu.Unlock()
	return ob.best(ob.asks)
}

func (ob *OrderBook) best(b *PriorityBook) (int64, bool) {
	for {
		id, ok := b.PeekBest()
		if !ok {
			return 0, false
		}
		if o, live := ob.registry.Get(id); live {
			return o.Price, true
		}
		b.PopBest()
	}
}

// Order returns the live order with the given id.
func (ob *OrderBook) Order(id OrderID) (Order, bool) {
	ob.mu.RLock()
	defer ob.mu.RUnlock()
	return ob.registry.Get(id)
}

// Orders returns the live resting orders of one side in priority order.
func (ob *OrderBook) Orders(side Side) []Order {
	ob.mu.RLock()
	defer ob.mu.RUnlock()
	return ob.live(ob.bookFor(side))
}

func (ob *OrderBook) live(b *PriorityBook) []Order {
	ids := b.IDs()
	out := make([]Order, 0, len(ids))
	for _, id := range ids {
		if o, ok := ob.registry.Get(id); ok {
			out = append(out, o)
		}
	}
	return out
}

// GetBidLevels returns bid levels sorted high to low (best bid first).
func (ob *OrderBook) GetBidLevels() []PriceLevel {
	ob.mu.RLock()
	defer ob.mu.RUnlock()
	return aggregate(ob.live(ob.bids))
}

// GetAskLevels returns ask levels sorted low to high (best ask first).
func (ob *OrderBook) GetAskLevels() []PriceLevel {
	ob.mu.RLock()
	defer ob.mu.RUnlock()
	return aggregate(ob.live(ob.asks))
}

// aggregate folds priority-ordered orders into price levels. Orders at one
// price are contiguous in priority order, so a single pass suffices.
func aggregate(orders []Order) []PriceLevel {
	var levels []PriceLevel
	for _, o := range orders {
		if n := len(levels); n > 0 && levels[n-1].Price == o.Price {
			levels[n-1].Qty += o.Qty
			levels[n-1].Orders++
			continue
		}
		levels = append(levels, PriceLevel{Price: o.Price, Qty: o.Qty, Orders: 1})
	}
	return levels
}

// GetLastPrice returns the price of the most recent fill, 0 if none.
func (ob *OrderBook) GetLastPrice() int64 {
	ob.mu.RLock()
	defer ob.mu.RUnlock()
	return ob.lastPrice
}

func (ob *OrderBook) Stats() Stats {
	ob.mu.RLock()
	defer ob.mu.RUnlock()

	// every live order owns exactly one entry; everything else is stale
	entries := ob.bids.Len() + ob.asks.Len()
	return Stats{
		RestingOrders: ob.registry.Len(),
		BidEntries:    ob.bids.Len(),
		AskEntries:    ob.asks.Len(),
		StaleEntries:  entries - ob.registry.Len(),
		LastPrice:     ob.lastPrice,
		LastSeq:       ob.lastSeq,
	}
}
