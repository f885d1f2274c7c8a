package swapdb

import "errors"

var (
	// ErrSwapNotFound is returned when a swap id has no record, either
	// because it was never created or because it was already deleted
	// after finalization.
	ErrSwapNotFound = errors.New("swapdb: swap not found")

	// ErrSwapAlreadyExists is returned by CreateSwap for a duplicate id.
	ErrSwapAlreadyExists = errors.New("swapdb: swap already exists")

	// ErrEventAlreadyRecorded is returned by the CAS-guarded Save* calls
	// when the event has already been persisted for this swap, mirroring
	// htlcswitch/switch_control.go's ErrAlreadyPaid: the caller's
	// try_do_once/do_once wrapper treats this as "nothing to do",  not a
	// failure.
	ErrEventAlreadyRecorded = errors.New("swapdb: event already recorded for this swap")

	// ErrPeerAlreadyActive is returned by PinPeer when the counterparty
	// already has a different active swap (surfaced to the setup protocol
	// as AlreadyHaveRoleParams/DuplicateSwapForPeer).
	ErrPeerAlreadyActive = errors.New("swapdb: peer already has an active swap")
)
