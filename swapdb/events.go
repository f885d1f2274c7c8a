package swapdb

import (
	"github.com/comit-network/swapd/swap"
	"go.etcd.io/bbolt"
)

// SaveHbitFunded persists the first-observed funding event for the
// Bitcoin leg. It is a compare-and-swap: a second call for the same swap
// returns ErrEventAlreadyRecorded without overwriting the stored event,
// giving the idempotent action layer a durable "already done" signal
// across restarts, grounded on htlcswitch/switch_control.go's
// updateHtlcKey CAS writes.
func (d *DB) SaveHbitFunded(id swap.Id, event swap.HbitFunded) error {
	return d.saveOnce(id, func(rec *record) error {
		if rec.HbitFunded != nil {
			return ErrEventAlreadyRecorded
		}
		rec.HbitFunded = &event
		return nil
	})
}

func (d *DB) SaveHbitRedeemed(id swap.Id, event swap.HbitRedeemed) error {
	return d.saveOnce(id, func(rec *record) error {
		if rec.HbitRedeemed != nil {
			return ErrEventAlreadyRecorded
		}
		rec.HbitRedeemed = &event
		return nil
	})
}

func (d *DB) SaveHbitRefunded(id swap.Id, event swap.HbitRefunded) error {
	return d.saveOnce(id, func(rec *record) error {
		if rec.HbitRefunded != nil {
			return ErrEventAlreadyRecorded
		}
		rec.HbitRefunded = &event
		return nil
	})
}

func (d *DB) SaveHerc20Deployed(id swap.Id, event swap.Herc20Deployed) error {
	return d.saveOnce(id, func(rec *record) error {
		if rec.Herc20Deployed != nil {
			return ErrEventAlreadyRecorded
		}
		rec.Herc20Deployed = &event
		return nil
	})
}

func (d *DB) SaveHerc20Funded(id swap.Id, event swap.Herc20Funded) error {
	return d.saveOnce(id, func(rec *record) error {
		if rec.Herc20Funded != nil {
			return ErrEventAlreadyRecorded
		}
		rec.Herc20Funded = &event
		return nil
	})
}

func (d *DB) SaveHerc20Redeemed(id swap.Id, event swap.Herc20Redeemed) error {
	return d.saveOnce(id, func(rec *record) error {
		if rec.Herc20Redeemed != nil {
			return ErrEventAlreadyRecorded
		}
		rec.Herc20Redeemed = &event
		return nil
	})
}

func (d *DB) SaveHerc20Refunded(id swap.Id, event swap.Herc20Refunded) error {
	return d.saveOnce(id, func(rec *record) error {
		if rec.Herc20Refunded != nil {
			return ErrEventAlreadyRecorded
		}
		rec.Herc20Refunded = &event
		return nil
	})
}

// saveOnce reads the swap's record, applies mutate (which fails with
// ErrEventAlreadyRecorded if the slot is already filled), and writes the
// result back in the same bbolt transaction, so the check and the write
// are atomic with respect to concurrent callers.
func (d *DB) saveOnce(id swap.Id, mutate func(*record) error) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.bolt.Update(func(tx *bbolt.Tx) error {
		rec, err := d.readRecord(tx, id)
		if err != nil {
			return err
		}
		if err := mutate(rec); err != nil {
			return err
		}
		return d.writeRecord(tx, id, rec)
	})
}

// Events is a snapshot of every event recorded for a swap so far, used by
// the state machine to resume after a restart without replaying each
// Save call individually.
type Events struct {
	HbitFunded   *swap.HbitFunded
	HbitRedeemed *swap.HbitRedeemed
	HbitRefunded *swap.HbitRefunded

	Herc20Deployed *swap.Herc20Deployed
	Herc20Funded   *swap.Herc20Funded
	Herc20Redeemed *swap.Herc20Redeemed
	Herc20Refunded *swap.Herc20Refunded
}

// LoadEvents returns every event recorded so far for id.
func (d *DB) LoadEvents(id swap.Id) (Events, error) {
	var events Events
	err := d.bolt.View(func(tx *bbolt.Tx) error {
		rec, err := d.readRecord(tx, id)
		if err != nil {
			return err
		}
		events = Events{
			HbitFunded:     rec.HbitFunded,
			HbitRedeemed:   rec.HbitRedeemed,
			HbitRefunded:   rec.HbitRefunded,
			Herc20Deployed: rec.Herc20Deployed,
			Herc20Funded:   rec.Herc20Funded,
			Herc20Redeemed: rec.Herc20Redeemed,
			Herc20Refunded: rec.Herc20Refunded,
		}
		return nil
	})
	return events, err
}
