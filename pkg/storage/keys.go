package storage

import "encoding/binary"

// Key schema:
//
//	cmd:<8-byte seq>        → Command
//	trade:<8-byte tradeID>  → TradeRecord
//
// Big-endian ids keep lexicographic order equal to numeric order, so a
// forward scan over cmd: is a replay in lock-acquisition order.
const (
	prefixCommand = "cmd:"
	prefixTrade   = "trade:"
)

func uint64Key(prefix string, v uint64) []byte {
	k := make([]byte, 0, len(prefix)+8)
	k = append(k, prefix...)
	return binary.BigEndian.AppendUint64(k, v)
}

func commandKey(seq uint64) []byte { return uint64Key(prefixCommand, seq) }

func tradeKey(id uint64) []byte { return uint64Key(prefixTrade, id) }

// keyUpperBound returns the exclusive upper bound for a prefix scan
func keyUpperBound(prefix []byte) []byte {
	bound := make([]byte, len(prefix))
	copy(bound, prefix)
	bound[len(bound)-1]++
	return bound
}
