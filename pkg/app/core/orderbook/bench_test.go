package orderbook

import (
	"math/rand"
	"testing"
)

// BenchmarkSubmitRandom mirrors the throughput driver: random side and kind,
// prices 9900..10100, fixed quantity 10.
func BenchmarkSubmitRandom(b *testing.B) {
	ob := NewOrderBook()
	rng := rand.New(rand.NewSource(1))

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		side := Buy
		if rng.Intn(2) == 0 {
			side = Sell
		}
		kind := Limit
		if rng.Intn(2) == 0 {
			kind = Market
		}
		if _, err := ob.Submit(kind, side, 9900+rng.Int63n(201), 10); err != nil {
			b.Fatal(err)
		}
	}
}

// BenchmarkSubmitCrossing measures a taker that always fills against depth.
func BenchmarkSubmitCrossing(b *testing.B) {
	ob := NewOrderBook()

	// Pre-fill 100 price levels per side (realistic depth)
	for i := 0; i < 100; i++ {
		ob.Submit(Limit, Buy, int64(1000-i), 1_000_000)
		ob.Submit(Limit, Sell, int64(1100+i), 1_000_000)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		side := Buy
		if i%2 == 0 {
			side = Sell
		}
		ob.Submit(Market, side, 0, 10)
	}
}

// BenchmarkCancel measures O(1) registry removal; heap cleanup is deferred.
func BenchmarkCancel(b *testing.B) {
	ob := NewOrderBook()
	ids := make([]OrderID, b.N)
	for i := 0; i < b.N; i++ {
		res, _ := ob.Submit(Limit, Buy, int64(1000+i%1000), 100)
		ids[i] = res.OrderID
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		ob.Cancel(ids[i])
	}
}
