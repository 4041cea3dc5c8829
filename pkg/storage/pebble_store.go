package storage

import (
	"errors"
	"fmt"

	"github.com/cockroachdb/pebble"
)

type PebbleJournal struct {
	db *pebble.DB
}

func NewPebbleJournal(path string) (*PebbleJournal, error) {
	db, err := pebble.Open(path, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("failed to open journal at %s: %w", path, err)
	}
	return &PebbleJournal{db: db}, nil
}

func (s *PebbleJournal) Close() error { return s.db.Close() }

func (s *PebbleJournal) AppendCommand(cmd Command) error {
	val, err := encodeGob(cmd)
	if err != nil {
		return fmt.Errorf("failed to encode command %d: %w", cmd.Seq, err)
	}
	if err := s.db.Set(commandKey(cmd.Seq), val, pebble.Sync); err != nil {
		return fmt.Errorf("failed to save command %d: %w", cmd.Seq, err)
	}
	return nil
}

// SaveTrades writes all trades of one submission in a single batch
func (s *PebbleJournal) SaveTrades(trades []TradeRecord) error {
	if len(trades) == 0 {
		return nil
	}
	batch := s.db.NewBatch()
	defer batch.Close()

	for _, tr := range trades {
		val, err := encodeGob(tr)
		if err != nil {
			return fmt.Errorf("failed to encode trade %d: %w", tr.ID, err)
		}
		if err := batch.Set(tradeKey(uint64(tr.ID)), val, nil); err != nil {
			return fmt.Errorf("failed to stage trade %d: %w", tr.ID, err)
		}
	}
	if err := batch.Commit(pebble.Sync); err != nil {
		return fmt.Errorf("failed to commit trades: %w", err)
	}
	return nil
}

// RecentTrades returns up to n trades, newest first
func (s *PebbleJournal) RecentTrades(n int) ([]TradeRecord, error) {
	if n <= 0 {
		return nil, nil
	}
	prefix := []byte(prefixTrade)
	iter, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: prefix,
		UpperBound: keyUpperBound(prefix),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create iterator: %w", err)
	}
	defer iter.Close()

	out := make([]TradeRecord, 0, n)
	for iter.Last(); iter.Valid() && len(out) < n; iter.Prev() {
		var tr TradeRecord
		if err := decodeGob(iter.Value(), &tr); err != nil {
			return nil, fmt.Errorf("failed to decode trade: %w", err)
		}
		out = append(out, tr)
	}
	if err := iter.Error(); err != nil {
		return nil, fmt.Errorf("iterator error: %w", err)
	}
	return out, nil
}

// Replay visits every journaled command in ascending Seq. It stops at the
// first error returned by fn.
func (s *PebbleJournal) Replay(fn func(Command) error) error {
	prefix := []byte(prefixCommand)
	iter, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: prefix,
		UpperBound: keyUpperBound(prefix),
	})
	if err != nil {
		return fmt.Errorf("failed to create iterator: %w", err)
	}
	defer iter.Close()

	for iter.First(); iter.Valid(); iter.Next() {
		var cmd Command
		if err := decodeGob(iter.Value(), &cmd); err != nil {
			return fmt.Errorf("failed to decode command: %w", err)
		}
		if err := fn(cmd); err != nil {
			return err
		}
	}
	return iter.Error()
}

// LastSeq returns the highest journaled command sequence, or false when the
// journal holds no commands.
func (s *PebbleJournal) LastSeq() (uint64, bool, error) {
	prefix := []byte(prefixCommand)
	iter, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: prefix,
		UpperBound: keyUpperBound(prefix),
	})
	if err != nil {
		return 0, false, fmt.Errorf("failed to create iterator: %w", err)
	}
	defer iter.Close()

	if !iter.Last() {
		return 0, false, iter.Error()
	}
	var cmd Command
	if err := decodeGob(iter.Value(), &cmd); err != nil {
		return 0, false, fmt.Errorf("failed to decode command: %w", err)
	}
	return cmd.Seq, true, nil
}

// GetCommand looks up a single command by sequence.
func (s *PebbleJournal) GetCommand(seq uint64) (Command, bool, error) {
	val, closer, err := s.db.Get(commandKey(seq))
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return Command{}, false, nil
		}
		return Command{}, false, fmt.Errorf("failed to load command %d: %w", seq, err)
	}
	defer closer.Close()

	var cmd Command
	if err := decodeGob(val, &cmd); err != nil {
		return Command{}, false, fmt.Errorf("failed to decode command %d: %w", seq, err)
	}
	return cmd, true, nil
}

var _ Journal = (*PebbleJournal)(nil)
