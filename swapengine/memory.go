// Package swapengine drives a single swap from setup to a terminal
// Outcome, wiring swap/hbit and swap/herc20's concrete ledger actions
// through htlcswitch's idempotent action layer under the schedule
// expiry.Advisor recommends. It is the Go analogue of nectar's
// swap::comit state machine (original_source, src/swap/comit.rs),
// rebuilt as two small, restart-safe closures-over-a-driver types
// instead of an async state enum.
package swapengine

import (
	"github.com/comit-network/swapd/htlcswitch"
	"github.com/comit-network/swapd/swap"
	"github.com/comit-network/swapd/swapdb"
)

// hbitFundedMemory adapts swapdb's per-event Save/Load pair for the
// Bitcoin leg's funding event into htlcswitch.Memory.
func hbitFundedMemory(db *swapdb.DB, id swap.Id) htlcswitch.Memory[swap.HbitFunded] {
	return htlcswitch.NewMemory(
		func() (swap.HbitFunded, bool, error) {
			events, err := db.LoadEvents(id)
			if err != nil || events.HbitFunded == nil {
				return swap.HbitFunded{}, false, err
			}
			return *events.HbitFunded, true, nil
		},
		func(event swap.HbitFunded) error { return db.SaveHbitFunded(id, event) },
	)
}

func hbitRedeemedMemory(db *swapdb.DB, id swap.Id) htlcswitch.Memory[swap.HbitRedeemed] {
	return htlcswitch.NewMemory(
		func() (swap.HbitRedeemed, bool, error) {
			events, err := db.LoadEvents(id)
			if err != nil || events.HbitRedeemed == nil {
				return swap.HbitRedeemed{}, false, err
			}
			return *events.HbitRedeemed, true, nil
		},
		func(event swap.HbitRedeemed) error { return db.SaveHbitRedeemed(id, event) },
	)
}

func hbitRefundedMemory(db *swapdb.DB, id swap.Id) htlcswitch.Memory[swap.HbitRefunded] {
	return htlcswitch.NewMemory(
		func() (swap.HbitRefunded, bool, error) {
			events, err := db.LoadEvents(id)
			if err != nil || events.HbitRefunded == nil {
				return swap.HbitRefunded{}, false, err
			}
			return *events.HbitRefunded, true, nil
		},
		func(event swap.HbitRefunded) error { return db.SaveHbitRefunded(id, event) },
	)
}

func herc20DeployedMemory(db *swapdb.DB, id swap.Id) htlcswitch.Memory[swap.Herc20Deployed] {
	return htlcswitch.NewMemory(
		func() (swap.Herc20Deployed, bool, error) {
			events, err := db.LoadEvents(id)
			if err != nil || events.Herc20Deployed == nil {
				return swap.Herc20Deployed{}, false, err
			}
			return *events.Herc20Deployed, true, nil
		},
		func(event swap.Herc20Deployed) error { return db.SaveHerc20Deployed(id, event) },
	)
}

func herc20FundedMemory(db *swapdb.DB, id swap.Id) htlcswitch.Memory[swap.Herc20Funded] {
	return htlcswitch.NewMemory(
		func() (swap.Herc20Funded, bool, error) {
			events, err := db.LoadEvents(id)
			if err != nil || events.Herc20Funded == nil {
				return swap.Herc20Funded{}, false, err
			}
			return *events.Herc20Funded, true, nil
		},
		func(event swap.Herc20Funded) error { return db.SaveHerc20Funded(id, event) },
	)
}

func herc20RedeemedMemory(db *swapdb.DB, id swap.Id) htlcswitch.Memory[swap.Herc20Redeemed] {
	return htlcswitch.NewMemory(
		func() (swap.Herc20Redeemed, bool, error) {
			events, err := db.LoadEvents(id)
			if err != nil || events.Herc20Redeemed == nil {
				return swap.Herc20Redeemed{}, false, err
			}
			return *events.Herc20Redeemed, true, nil
		},
		func(event swap.Herc20Redeemed) error { return db.SaveHerc20Redeemed(id, event) },
	)
}

func herc20RefundedMemory(db *swapdb.DB, id swap.Id) htlcswitch.Memory[swap.Herc20Refunded] {
	return htlcswitch.NewMemory(
		func() (swap.Herc20Refunded, bool, error) {
			events, err := db.LoadEvents(id)
			if err != nil || events.Herc20Refunded == nil {
				return swap.Herc20Refunded{}, false, err
			}
			return *events.Herc20Refunded, true, nil
		},
		func(event swap.Herc20Refunded) error { return db.SaveHerc20Refunded(id, event) },
	)
}
