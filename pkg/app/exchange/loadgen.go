package exchange

import (
	"context"
	"math/rand"
	"time"

	"github.com/uhyunpark/matchcore/pkg/app/core/orderbook"
)

// LoadGenConfig controls synthetic order flow.
type LoadGenConfig struct {
	BatchSize   int           // orders per tick
	Interval    time.Duration // tick period
	MidPrice    int64
	Spread      int64   // prices drawn from MidPrice±Spread
	Qty         int64   // fixed order quantity
	MarketRatio float64 // share of MARKET orders
	CancelRatio float64 // share of ticks' slots spent cancelling an own resting order
	Seed        int64   // 0 seeds from the clock
}

// DefaultLoadGenConfig returns ~1000 orders/sec of the classic benchmark mix:
// random side, half market, prices 9900..10100, qty 10.
func DefaultLoadGenConfig() LoadGenConfig {
	return LoadGenConfig{
		BatchSize:   100,
		Interval:    100 * time.Millisecond,
		MidPrice:    10000,
		Spread:      100,
		Qty:         10,
		MarketRatio: 0.5,
	}
}

// HighLoadConfig returns config for stress testing
func HighLoadConfig() LoadGenConfig {
	cfg := DefaultLoadGenConfig()
	cfg.BatchSize = 500
	cfg.Interval = 10 * time.Millisecond
	cfg.CancelRatio = 0.1
	return cfg
}

// LoadGenerator draws random orders. Not safe for concurrent use.
type LoadGenerator struct {
	cfg  LoadGenConfig
	rng  *rand.Rand
	mine []orderbook.OrderID
}

func NewLoadGenerator(cfg LoadGenConfig) *LoadGenerator {
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	if cfg.Spread < 0 {
		cfg.Spread = 0
	}
	if cfg.Qty <= 0 {
		cfg.Qty = 1
	}
	return &LoadGenerator{cfg: cfg, rng: rand.New(rand.NewSource(seed))}
}

type GeneratedOrder struct {
	Kind  orderbook.Kind
	Side  orderbook.Side
	Price int64
	Qty   int64
}

func (g *LoadGenerator) NextOrder() GeneratedOrder {
	o := GeneratedOrder{
		Kind:  orderbook.Limit,
		Side:  orderbook.Buy,
		Price: g.cfg.MidPrice - g.cfg.Spread + g.rng.Int63n(2*g.cfg.Spread+1),
		Qty:   g.cfg.Qty,
	}
	if g.rng.Intn(2) == 1 {
		o.Side = orderbook.Sell
	}
	if g.rng.Float64() < g.cfg.MarketRatio {
		o.Kind = orderbook.Market
	}
	return o
}

// Step issues one batch against app and returns how many orders were
// submitted and how many cancels succeeded.
func (g *LoadGenerator) Step(ctx context.Context, app *App) (submitted, cancelled int) {
	for i := 0; i < g.cfg.BatchSize; i++ {
		if len(g.mine) > 0 && g.rng.Float64() < g.cfg.CancelRatio {
			j := g.rng.Intn(len(g.mine))
			id := g.mine[j]
			g.mine[j] = g.mine[len(g.mine)-1]
			g.mine = g.mine[:len(g.mine)-1]
			if app.Cancel(ctx, id) {
				cancelled++
			}
			continue
		}
		o := g.NextOrder()
		res, err := app.Submit(ctx, o.Kind, o.Side, o.Price, o.Qty)
		if err != nil {
			continue
		}
		submitted++
		if res.Rested {
			g.mine = append(g.mine, res.OrderID)
		}
	}
	return submitted, cancelled
}

// StartLoadGen starts a background goroutine that continuously feeds orders to the app.
// The returned function stops the generator and waits for its last batch.
func StartLoadGen(ctx context.Context, app *App, cfg LoadGenConfig) context.CancelFunc {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultLoadGenConfig().Interval
	}
	gen := NewLoadGenerator(cfg)
	genCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	go func() {
		defer close(done)
		ticker := time.NewTicker(cfg.Interval)
		defer ticker.Stop()

		start := time.Now()
		lastLog := start
		total, cancels := 0, 0

		app.logger.Infow("loadgen_started", "batch", cfg.BatchSize, "interval", cfg.Interval)

		for {
			select {
			case <-genCtx.Done():
				elapsed := time.Since(start)
				app.logger.Infow("loadgen_stopped",
					"orders", total,
					"cancels", cancels,
					"elapsed", elapsed.Round(time.Second),
					"orders_per_sec", float64(total)/elapsed.Seconds())
				return
			case <-ticker.C:
				s, c := gen.Step(genCtx, app)
				total += s
				cancels += c

				if time.Since(lastLog) >= 10*time.Second {
					lastLog = time.Now()
					st := app.book.Stats()
					app.logger.Infow("loadgen_stats",
						"orders", total,
						"orders_per_sec", float64(total)/time.Since(start).Seconds(),
						"resting", st.RestingOrders,
						"stale_entries", st.StaleEntries)
				}
			}
		}
	}()

	return func() {
		cancel()
		<-done
	}
}
