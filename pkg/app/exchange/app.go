package exchange

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/uhyunpark/matchcore/pkg/app/core/orderbook"
	"github.com/uhyunpark/matchcore/pkg/storage"
	"github.com/uhyunpark/matchcore/pkg/util"
)

// ErrReplayDiverged means the journal no longer reproduces the book it
// was written from (a command is missing or out of place).
var ErrReplayDiverged = errors.New("replay diverged from journal")

// TradePublisher fans executed trades out to an external feed.
type TradePublisher interface {
	PublishTrades(ctx context.Context, trades []storage.TradeRecord) error
	Close() error
}

type Options struct {
	Journal    storage.Journal
	WAL        storage.WAL
	Publishers []TradePublisher
	Clock      util.Clock
	Logger     *zap.SugaredLogger
}

// App is the service layer around a single OrderBook. The book decides
// everything; App records and distributes what it decided.
type App struct {
	book       *orderbook.OrderBook
	journal    storage.Journal
	wal        storage.WAL
	publishers []TradePublisher
	clock      util.Clock
	logger     *zap.SugaredLogger
	startedAt  time.Time

	submitted atomic.Uint64
	cancelled atomic.Uint64
	rejected  atomic.Uint64

	// Hooks run on the caller's goroutine after journaling. Concurrent
	// submissions may invoke them out of Seq order.
	OnTrade      func(trades []storage.TradeRecord)
	OnBookChange func(seq uint64)
}

func NewApp(opts Options) *App {
	if opts.Journal == nil {
		opts.Journal = storage.NewMemoryJournal()
	}
	if opts.WAL == nil {
		opts.WAL = storage.NewNopWAL()
	}
	if opts.Clock == nil {
		opts.Clock = util.RealClock{}
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop().Sugar()
	}
	return &App{
		book:       orderbook.NewOrderBook(),
		journal:    opts.Journal,
		wal:        opts.WAL,
		publishers: opts.Publishers,
		clock:      opts.Clock,
		logger:     opts.Logger,
		startedAt:  opts.Clock.Now(),
	}
}

func (a *App) Book() *orderbook.OrderBook { return a.book }

func (a *App) Submit(ctx context.Context, kind orderbook.Kind, side orderbook.Side, price, qty int64) (orderbook.SubmitResult, error) {
	res, err := a.book.Submit(kind, side, price, qty)
	if err != nil {
		a.rejected.Add(1)
		a.logger.Debugw("order_rejected", "kind", kind, "side", side, "price", price, "qty", qty, "err", err)
		return res, err
	}
	a.submitted.Add(1)

	cmd := storage.Command{
		Seq:     res.Seq,
		Op:      storage.OpSubmit,
		Kind:    kind,
		Side:    side,
		Price:   price,
		Qty:     qty,
		OrderID: res.OrderID,
	}
	if err := a.journal.AppendCommand(cmd); err != nil {
		a.logger.Errorw("journal_append_failed", "seq", res.Seq, "err", err)
	}

	records := a.tradeRecords(res.Trades)
	if len(records) > 0 {
		if err := a.journal.SaveTrades(records); err != nil {
			a.logger.Errorw("journal_trades_failed", "seq", res.Seq, "trades", len(records), "err", err)
		}
	}

	a.wal.Append(fmt.Sprintf("SUBMIT seq=%d id=%d kind=%s side=%s px=%d qty=%d fills=%d rem=%d rested=%t",
		res.Seq, res.OrderID, kind, side, price, qty, len(res.Trades), res.Remaining, res.Rested))

	if len(records) > 0 {
		a.publish(ctx, records)
		if a.OnTrade != nil {
			a.OnTrade(records)
		}
	}
	if a.OnBookChange != nil {
		a.OnBookChange(res.Seq)
	}

	a.logger.Debugw("order_submitted",
		"seq", res.Seq,
		"id", res.OrderID,
		"kind", kind,
		"side", side,
		"fills", len(res.Trades),
		"remaining", res.Remaining,
		"rested", res.Rested)
	return res, nil
}

// Cancel removes a resting order. Only successful cancels are journaled.
func (a *App) Cancel(_ context.Context, id orderbook.OrderID) bool {
	res := a.book.CancelOrder(id)
	if !res.Cancelled {
		a.logger.Debugw("cancel_miss", "id", id)
		return false
	}
	a.cancelled.Add(1)

	if err := a.journal.AppendCommand(storage.Command{Seq: res.Seq, Op: storage.OpCancel, OrderID: id}); err != nil {
		a.logger.Errorw("journal_append_failed", "seq", res.Seq, "err", err)
	}
	a.wal.Append(fmt.Sprintf("CANCEL seq=%d id=%d side=%s px=%d rem=%d", res.Seq, id, res.Side, res.Price, res.Remaining))

	if a.OnBookChange != nil {
		a.OnBookChange(res.Seq)
	}
	a.logger.Debugw("order_cancelled", "seq", res.Seq, "id", id, "remaining", res.Remaining)
	return true
}

func (a *App) tradeRecords(trades []orderbook.Trade) []storage.TradeRecord {
	if len(trades) == 0 {
		return nil
	}
	now := a.clock.Now().UnixMilli()
	out := make([]storage.TradeRecord, len(trades))
	for i, tr := range trades {
		out[i] = storage.TradeRecord{Trade: tr, ExecutedAt: now}
	}
	return out
}

func (a *App) publish(ctx context.Context, records []storage.TradeRecord) {
	for _, p := range a.publishers {
		if err := p.PublishTrades(ctx, records); err != nil {
			a.logger.Warnw("trade_publish_failed", "trades", len(records), "err", err)
		}
	}
}

// Replay rebuilds the book from the journal. It must run before the app
// takes traffic; replayed commands are not journaled or published again.
func (a *App) Replay() (int, error) {
	n := 0
	err := a.journal.Replay(func(cmd storage.Command) error {
		switch cmd.Op {
		case storage.OpSubmit:
			res, err := a.book.Submit(cmd.Kind, cmd.Side, cmd.Price, cmd.Qty)
			if err != nil {
				return fmt.Errorf("replay seq %d: %w", cmd.Seq, err)
			}
			if res.Seq != cmd.Seq || res.OrderID != cmd.OrderID {
				return fmt.Errorf("%w: seq %d produced seq %d order %d, journal has order %d",
					ErrReplayDiverged, cmd.Seq, res.Seq, res.OrderID, cmd.OrderID)
			}
		case storage.OpCancel:
			res := a.book.CancelOrder(cmd.OrderID)
			if !res.Cancelled || res.Seq != cmd.Seq {
				return fmt.Errorf("%w: cancel of order %d at seq %d", ErrReplayDiverged, cmd.OrderID, cmd.Seq)
			}
		default:
			return fmt.Errorf("%w: unknown op %d at seq %d", ErrReplayDiverged, cmd.Op, cmd.Seq)
		}
		n++
		return nil
	})
	if err != nil {
		return n, err
	}
	a.logger.Infow("journal_replayed", "commands", n, "resting_orders", a.book.Stats().RestingOrders)
	return n, nil
}

// Depth returns up to limit aggregated levels per side; limit <= 0 means all.
func (a *App) Depth(limit int) (bids, asks []orderbook.PriceLevel) {
	bids, asks = a.book.GetBidLevels(), a.book.GetAskLevels()
	if limit > 0 {
		if len(bids) > limit {
			bids = bids[:limit]
		}
		if len(asks) > limit {
			asks = asks[:limit]
		}
	}
	return bids, asks
}

func (a *App) Order(id orderbook.OrderID) (orderbook.Order, bool) { return a.book.Order(id) }

func (a *App) RecentTrades(n int) ([]storage.TradeRecord, error) { return a.journal.RecentTrades(n) }

type Status struct {
	orderbook.Stats
	BestBid   int64
	HasBid    bool
	BestAsk   int64
	HasAsk    bool
	StateHash common.Hash
	Submitted uint64
	Cancelled uint64
	Rejected  uint64
	Uptime    time.Duration
}

func (a *App) Status() Status {
	st := Status{
		Stats:     a.book.Stats(),
		StateHash: a.book.StateHash(),
		Submitted: a.submitted.Load(),
		Cancelled: a.cancelled.Load(),
		Rejected:  a.rejected.Load(),
		Uptime:    a.clock.Now().Sub(a.startedAt),
	}
	st.BestBid, st.HasBid = a.book.BestBid()
	st.BestAsk, st.HasAsk = a.book.BestAsk()
	return st
}

// Close releases publishers, the audit log and the journal, in that order.
func (a *App) Close() error {
	var errs []error
	for _, p := range a.publishers {
		errs = append(errs, p.Close())
	}
	errs = append(errs, a.wal.Close(), a.journal.Close())
	return errors.Join(errs...)
}
