package orderbook

import "fmt"

// Registry is the single source of truth for which orders are live and
// with what remaining quantity.
type Registry struct {
	orders map[OrderID]Order
}

func NewRegistry() *Registry {
	return &Registry{orders: make(map[OrderID]Order)}
}

// InsertOrReplace upserts o. A zero or negative quantity must never be
// reachable from the Registry, so storing one is a bug in the caller.
func (r *Registry) InsertOrReplace(o Order) {
	if o.Qty <= 0 {
		panic(fmt.Sprintf("orderbook: registry insert of order %d with qty %d", o.ID, o.Qty))
	}
	r.orders[o.ID] = o
}

func (r *Registry) Get(id OrderID) (Order, bool) {
	o, ok := r.orders[id]
	return o, ok
}

// Remove deletes id and reports whether it was present.
func (r *Registry) Remove(id OrderID) bool {
	if _, ok := r.orders[id]; !ok {
		return false
	}
	delete(r.orders, id)
	return true
}

func (r *Registry) Len() int { return len(r.orders) }
