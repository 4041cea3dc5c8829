package orderbook

import (
	"encoding/binary"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// StateHash computes a deterministic Keccak-256 digest of the live book.
//
// Components hashed (in order):
//  1. Bids in priority order: id, price, qty, timestamp (8 bytes each, big-endian)
//  2. A side separator
//  3. Asks in priority order, same layout
//
// Stale heap entries do not contribute, so two books with the same live
// orders hash the same regardless of how much lazy garbage they carry.
func (ob *OrderBook) StateHash() common.Hash {
	ob.mu.RLock()
	defer ob.mu.RUnlock()

	bids := ob.live(ob.bids)
	asks := ob.live(ob.asks)

	buf := make([]byte, 0, (len(bids)+len(asks))*32+1)
	buf = appendOrders(buf, bids)
	buf = append(buf, '|')
	buf = appendOrders(buf, asks)

	return crypto.Keccak256Hash(buf)
}

func appendOrders(buf []byte, orders []Order) []byte {
	for _, o := range orders {
		buf = binary.BigEndian.AppendUint64(buf, uint64(o.ID))
		buf = binary.BigEndian.AppendUint64(buf, uint64(o.Price))
		buf = binary.BigEndian.AppendUint64(buf, uint64(o.Qty))
		buf = binary.BigEndian.AppendUint64(buf, uint64(o.Timestamp))
	}
	return buf
}
