package storage

// Journal persists accepted commands and executed trades.
//
// AppendCommand may be called out of Seq order by concurrent callers;
// Replay always visits commands in ascending Seq.
type Journal interface {
	AppendCommand(cmd Command) error
	SaveTrades(trades []TradeRecord) error
	RecentTrades(n int) ([]TradeRecord, error)
	Replay(fn func(Command) error) error
	Close() error
}

// WAL is a human-readable audit trail. Append never fails the caller.
type WAL interface {
	Append(line string)
	Close() error
}
