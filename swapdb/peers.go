package swapdb

import (
	"github.com/comit-network/swapd/swap"
	"go.etcd.io/bbolt"
)

// PinPeer records that peer is now the counterparty of id, failing with
// ErrPeerAlreadyActive if the peer is already pinned to a different
// swap: at most one active swap per counterparty, surfaced to the
// setup protocol as AlreadyHaveRoleParams/DuplicateSwapForPeer.
func (d *DB) PinPeer(peer swap.PeerId, id swap.Id) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.bolt.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(peersBucket)
		existing := bucket.Get([]byte(peer))
		if existing != nil {
			var existingId swap.Id
			copy(existingId[:], existing)
			if existingId != id {
				return ErrPeerAlreadyActive
			}
			return nil
		}
		return bucket.Put([]byte(peer), id[:])
	})
}

// UnpinPeer releases the pin once the swap finalizes, allowing the peer
// to start a new swap.
func (d *DB) UnpinPeer(peer swap.PeerId) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.bolt.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(peersBucket).Delete([]byte(peer))
	})
}

// ActiveSwapFor returns the swap id currently pinned to peer, if any.
func (d *DB) ActiveSwapFor(peer swap.PeerId) (swap.Id, bool, error) {
	var id swap.Id
	var found bool
	err := d.bolt.View(func(tx *bbolt.Tx) error {
		raw := tx.Bucket(peersBucket).Get([]byte(peer))
		if raw == nil {
			return nil
		}
		copy(id[:], raw)
		found = true
		return nil
	})
	return id, found, err
}
