package storage

import (
	"sort"
	"sync"
)

// MemoryJournal keeps everything in process memory. Used when no data
// directory is configured, and in tests.
type MemoryJournal struct {
	mu       sync.RWMutex
	commands map[uint64]Command
	trades   []TradeRecord
}

func NewMemoryJournal() *MemoryJournal {
	return &MemoryJournal{commands: make(map[uint64]Command)}
}

func (m *MemoryJournal) AppendCommand(cmd Command) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.commands[cmd.Seq] = cmd
	return nil
}

func (m *MemoryJournal) SaveTrades(trades []TradeRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.trades = append(m.trades, trades...)
	return nil
}

func (m *MemoryJournal) RecentTrades(n int) ([]TradeRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if n <= 0 {
		return nil, nil
	}
	sorted := make([]TradeRecord, len(m.trades))
	copy(sorted, m.trades)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID > sorted[j].ID })
	if len(sorted) > n {
		sorted = sorted[:n]
	}
	return sorted, nil
}

func (m *MemoryJournal) Replay(fn func(Command) error) error {
	m.mu.RLock()
	cmds := make([]Command, 0, len(m.commands))
	for _, c := range m.commands {
		cmds = append(cmds, c)
	}
	m.mu.RUnlock()

	sort.Slice(cmds, func(i, j int) bool { return cmds[i].Seq < cmds[j].Seq })
	for _, c := range cmds {
		if err := fn(c); err != nil {
			return err
		}
	}
	return nil
}

func (m *MemoryJournal) Close() error { return nil }

var _ Journal = (*MemoryJournal)(nil)
