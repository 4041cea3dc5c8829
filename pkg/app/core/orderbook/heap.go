package orderbook

import (
	"container/heap"
	"sort"
)

// entry is a ranking key only. Quantity is never stored here because
// entries go stale on partial fill or cancel; the Registry is authoritative.
type entry struct {
	price int64
	ts    int64
	id    OrderID
}

// entryHeap implements heap.Interface for one side of the book.
// Use container/heap package to manipulate this heap (Init, Push, Pop)
type entryHeap struct {
	data []entry
	bid  bool
}

func (h *entryHeap) Len() int { return len(h.data) }

func (h *entryHeap) Less(i, j int) bool { return h.before(h.data[i], h.data[j]) }

func (h *entryHeap) Swap(i, j int) { h.data[i], h.data[j] = h.data[j], h.data[i] }

func (h *entryHeap) Push(x interface{}) {
	h.data = append(h.data, x.(entry))
}

func (h *entryHeap) Pop() interface{} {
	old := h.data
	n := len(old)
	x := old[n-1]
	h.data = old[0 : n-1]
	return x
}

// before reports whether a has priority over b: better price, then
// earlier timestamp, then lower id.
func (h *entryHeap) before(a, b entry) bool {
	if a.price != b.price {
		if h.bid {
			return a.price > b.price // bids: highest first
		}
		return a.price < b.price // asks: lowest first
	}
	if a.ts != b.ts {
		return a.ts < b.ts
	}
	return a.id < b.id
}

// PriorityBook holds candidate entries for one side, ranked by
// price-time priority. It may contain stale entries; callers re-check
// the Registry before trusting what it returns.
type PriorityBook struct {
	side Side
	h    *entryHeap
}

func NewPriorityBook(side Side) *PriorityBook {
	h := &entryHeap{bid: side == Buy}
	heap.Init(h)
	return &PriorityBook{side: side, h: h}
}

func (b *PriorityBook) Side() Side { return b.side }

func (b *PriorityBook) Len() int { return b.h.Len() }

// Push inserts a ranking entry for o. O(log n).
func (b *PriorityBook) Push(o Order) {
	heap.Push(b.h, entry{price: o.Price, ts: o.Timestamp, id: o.ID})
}

// PeekBest returns the top-priority id without removing it.
func (b *PriorityBook) PeekBest() (OrderID, bool) {
	if b.h.Len() == 0 {
		return 0, false
	}
	return b.h.data[0].id, true
}

// PopBest removes and returns the top-priority id. O(log n).
func (b *PriorityBook) PopBest() (OrderID, bool) {
	if b.h.Len() == 0 {
		return 0, false
	}
	e := heap.Pop(b.h).(entry)
	return e.id, true
}

// IDs returns every entry id in priority order, stale ones included.
// The heap itself is left untouched.
func (b *PriorityBook) IDs() []OrderID {
	sorted := make([]entry, len(b.h.data))
	copy(sorted, b.h.data)
	sort.Slice(sorted, func(i, j int) bool { return b.h.before(sorted[i], sorted[j]) })

	ids := make([]OrderID, len(sorted))
	for i, e := range sorted {
		ids[i] = e.id
	}
	return ids
}
