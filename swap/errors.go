package swap

import (
	"errors"
	"fmt"
)

// Protocol-fatal errors: abort this swap, refund the funded side if any.
var (
	ErrIncorrectlyFunded    = errors.New("swap: htlc incorrectly funded")
	ErrSecretHashMismatch   = errors.New("swap: redeemed secret does not hash to params.secret_hash")
	ErrPeerIdMismatch       = errors.New("swap: counterparty peer id does not match pinned peer")
	ErrExpiryAlreadyElapsed = errors.New("swap: requested expiry has already elapsed")
)

// DuplicateSwapForPeer is returned when a peer that already has an
// active swap is matched again before the first one finalizes,
// following cnd's swaps::Error::DuplicateSwapForPeer: at most one
// active swap per counterparty. The rejected match must not consume a
// transient key index.
type DuplicateSwapForPeer struct {
	Peer PeerId
}

func (e *DuplicateSwapForPeer) Error() string {
	return fmt.Sprintf("swap: peer %s already has an active swap", e.Peer)
}

// Resource-fatal errors: abort, surface to the operator.
var (
	ErrInsufficientFunds = errors.New("swap: wallet balance insufficient for action plus fee cap")
	ErrWalletUnavailable = errors.New("swap: wallet backend unavailable")
)

// Idempotent-action-layer errors.
var (
	ErrBetaHasExpired = errors.New("swap: beta ledger time has reached beta expiry")
)

// FundedEvent is the common shape of the two "funded" events so the
// refund-dispatch wrapper (swap.RefundIfNecessary) can inspect whichever
// side was funded without caring which protocol produced it.
type FundedEvent interface {
	isFundedEvent()
}

func (HbitFunded) isFundedEvent()   {}
func (Herc20Funded) isFundedEvent() {}

// FundedError wraps a protocol-fatal or transient error encountered while
// a position was already funded on one ledger, so a surrounding handler
// can match on it and trigger the matching refund once that ledger's
// expiry is reached: each step returns a result, and the surrounding
// run returns an error typed with a payload identifying the funded
// position.
type FundedError struct {
	Funded FundedEvent
	Err    error
}

func (e *FundedError) Error() string {
	return e.Err.Error()
}

func (e *FundedError) Unwrap() error {
	return e.Err
}

// NewFundedError attaches a funded position to an error so it survives
// the return path out of a state-machine step.
func NewFundedError(funded FundedEvent, err error) error {
	if err == nil {
		return nil
	}
	return &FundedError{Funded: funded, Err: err}
}
