package sequence

import "sync/atomic"

// Source hands out strictly increasing values. Order ids, trade ids,
// priority timestamps and command sequence numbers all come from a Source.
type Source interface {
	Next() uint64
}

// Sequencer is an atomic monotonic counter.
// Values are never reused for the lifetime of the Sequencer.
type Sequencer struct {
	next atomic.Uint64
}

// New creates a sequencer whose first Next() returns start+1.
// On fresh start → start = 0
func New(start uint64) *Sequencer {
	s := &Sequencer{}
	s.next.Store(start)
	return s
}

// Next returns the next value.
func (s *Sequencer) Next() uint64 {
	return s.next.Add(1)
}

// Current returns the last issued value (0 if none).
func (s *Sequencer) Current() uint64 {
	return s.next.Load()
}

var _ Source = (*Sequencer)(nil)
