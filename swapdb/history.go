package swapdb

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"time"

	"github.com/comit-network/swapd/swap"
	"go.etcd.io/bbolt"
)

// HistoryRecord is the append-only row written once a swap finalizes,
// grounded on nectar's swap history log (original_source, nectar/src/swap.rs):
// enough to reconstruct what happened without keeping the full event set
// around indefinitely.
type HistoryRecord struct {
	SwapId   swap.Id     `json:"swap_id"`
	Role     swap.Role   `json:"role"`
	Ordering swap.Ordering `json:"ordering"`
	Outcome  swap.Outcome  `json:"outcome"`
	ClosedAt time.Time   `json:"closed_at"`
}

// RecordHistory appends rec to the history bucket and, within the same
// transaction, deletes the swap's working record and peer pin so a
// finalized swap leaves exactly one artifact behind.
func (d *DB) RecordHistory(rec HistoryRecord, peer swap.PeerId) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.bolt.Update(func(tx *bbolt.Tx) error {
		raw, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("encode history record: %w", err)
		}
		if err := tx.Bucket(historyBucket).Put(rec.SwapId[:], raw); err != nil {
			return err
		}
		if err := tx.Bucket(swapsBucket).Delete(rec.SwapId[:]); err != nil {
			return err
		}
		return tx.Bucket(peersBucket).Delete([]byte(peer))
	})
}

// History returns every finalized swap's record, most recently written
// first is not guaranteed; callers sort by ClosedAt if ordering matters.
func (d *DB) History() ([]HistoryRecord, error) {
	var records []HistoryRecord
	err := d.bolt.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(historyBucket).ForEach(func(_, v []byte) error {
			var rec HistoryRecord
			if err := json.Unmarshal(v, &rec); err != nil {
				return fmt.Errorf("decode history record: %w", err)
			}
			records = append(records, rec)
			return nil
		})
	})
	return records, err
}

// NextTransientKeyIndex returns a fresh, monotonically increasing index
// for deriving a per-swap transient keypair from the wallet's extended
// key, grounded on nectar's Database "swap seed index" (original_source,
// nectar/src/swap.rs): a counter that only ever moves forward so a
// derivation index is never reused even if the daemon crashes mid-swap.
func (d *DB) NextTransientKeyIndex() (uint32, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	var next uint32
	err := d.bolt.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(metaBucket)
		raw := bucket.Get(keyIndexKey)

		var current uint32
		if raw != nil {
			current = binary.BigEndian.Uint32(raw)
		}
		next = current + 1

		buf := make([]byte, 4)
		binary.BigEndian.PutUint32(buf, next)
		return bucket.Put(keyIndexKey, buf)
	})
	return next, err
}
