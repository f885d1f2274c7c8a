// Package htlcswitch implements the idempotent action layer: the
// guarantee that a wallet action (fund, redeem, deploy,
// refund) is submitted to a ledger at most once per swap, even across
// daemon restarts, and that an action gated on the beta ledger's expiry
// never executes once that expiry has passed.
//
// The design is grounded on two sources: the CAS-style status
// transitions of htlcswitch/switch_control.go's ControlTower (now
// superseded by swapdb's per-event compare-and-swap, see DESIGN.md), and
// comit's TryDoItOnce/DoItOnce traits (original_source,
// src/swap/do_action.rs), translated from Rust's async-trait race into
// Go's select over two goroutines.
package htlcswitch

import (
	"context"
	"time"

	"github.com/comit-network/swapd/swap"
	"golang.org/x/sync/singleflight"
)

// inflight dedupes concurrent TryDoOnce/DoOnce calls for the same swap
// and action: the advisor and a manual retry path can both decide to
// act at once, and only one of them should actually touch the wallet.
var inflight singleflight.Group

// Memory is the minimal persistence surface TryDoOnce/DoOnce need for a
// single event type E: has it already happened, and recording that it
// has. Callers adapt a swapdb.DB's typed Save*/Load* methods into this
// shape with NewMemory.
type Memory[E any] interface {
	// Check returns the previously stored event, if any.
	Check() (E, bool, error)
	// Remember durably records event as having happened.
	Remember(event E) error
}

// memoryFuncs adapts two plain functions into a Memory[E], so call sites
// can wire swapdb's generated-per-event Save/Load pairs without a
// dedicated type per event.
type memoryFuncs[E any] struct {
	check    func() (E, bool, error)
	remember func(E) error
}

func (m memoryFuncs[E]) Check() (E, bool, error) { return m.check() }
func (m memoryFuncs[E]) Remember(event E) error  { return m.remember(event) }

// NewMemory builds a Memory[E] from a load and a save function, typically
// thin wrappers around a swapdb.DB method pair for one event kind.
func NewMemory[E any](check func() (E, bool, error), remember func(E) error) Memory[E] {
	return memoryFuncs[E]{check: check, remember: remember}
}

// ExpiryPredicate reports whether the beta ledger has reached its swap
// expiry. It is polled, not read once, because the race in TryDoOnce
// must keep checking while execute runs.
type ExpiryPredicate func(ctx context.Context) (bool, error)

// expiryPollInterval bounds how often TryDoOnce re-checks the expiry
// predicate while racing it against execution.
const expiryPollInterval = 5 * time.Second

// TryDoOnce checks store for a previously recorded E; if none exists, it
// races execute against expired and, if execute wins, persists and
// returns its event. If expired wins first, it returns
// swap.ErrBetaHasExpired without persisting anything, so the caller
// retries via the refund path instead. key dedupes concurrent callers
// for the same swap and action (e.g. the advisor loop and a manual
// retry racing in) onto a single execute.
func TryDoOnce[E any](
	ctx context.Context,
	key string,
	mem Memory[E],
	expired ExpiryPredicate,
	execute func(ctx context.Context) (E, error),
) (E, error) {
	var zero E

	if event, ok, err := mem.Check(); err != nil {
		return zero, err
	} else if ok {
		return event, nil
	}

	result, err, _ := inflight.Do(key, func() (interface{}, error) {
		return tryDoOnceOnce(ctx, mem, expired, execute)
	})
	if err != nil {
		return zero, err
	}
	return result.(E), nil
}

func tryDoOnceOnce[E any](
	ctx context.Context,
	mem Memory[E],
	expired ExpiryPredicate,
	execute func(ctx context.Context) (E, error),
) (E, error) {
	var zero E

	if event, ok, err := mem.Check(); err != nil {
		return zero, err
	} else if ok {
		return event, nil
	}

	execCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	type outcome struct {
		event E
		err   error
	}

	executed := make(chan outcome, 1)
	go func() {
		event, err := execute(execCtx)
		executed <- outcome{event: event, err: err}
	}()

	expiredCh := make(chan error, 1)
	go func() {
		expiredCh <- pollUntilExpired(execCtx, expired)
	}()

	select {
	case res := <-executed:
		if res.err != nil {
			return zero, res.err
		}
		if err := mem.Remember(res.event); err != nil {
			return zero, err
		}
		return res.event, nil

	case err := <-expiredCh:
		if err != nil {
			return zero, err
		}
		return zero, swap.ErrBetaHasExpired
	}
}

// DoOnce checks store for a previously recorded E; if none exists, it
// executes unconditionally and persists the result. Used for actions
// that are already safe after expiry, such as Bob's refund. key dedupes
// concurrent callers the same way TryDoOnce's does.
func DoOnce[E any](
	ctx context.Context,
	key string,
	mem Memory[E],
	execute func(ctx context.Context) (E, error),
) (E, error) {
	var zero E

	if event, ok, err := mem.Check(); err != nil {
		return zero, err
	} else if ok {
		return event, nil
	}

	result, err, _ := inflight.Do(key, func() (interface{}, error) {
		return doOnceOnce(ctx, mem, execute)
	})
	if err != nil {
		return zero, err
	}
	return result.(E), nil
}

func doOnceOnce[E any](
	ctx context.Context,
	mem Memory[E],
	execute func(ctx context.Context) (E, error),
) (E, error) {
	var zero E

	if event, ok, err := mem.Check(); err != nil {
		return zero, err
	} else if ok {
		return event, nil
	}

	event, err := execute(ctx)
	if err != nil {
		return zero, err
	}
	if err := mem.Remember(event); err != nil {
		return zero, err
	}
	return event, nil
}

// pollUntilExpired blocks until expired reports true, returns a non-nil
// error, or ctx is cancelled because the execute arm already won the
// race; in the latter case it returns ctx.Err(), which TryDoOnce never
// observes since its select has already taken the other branch, but
// returning lets this goroutine exit instead of leaking.
func pollUntilExpired(ctx context.Context, expired ExpiryPredicate) error {
	ticker := time.NewTicker(expiryPollInterval)
	defer ticker.Stop()

	for {
		yes, err := expired(ctx)
		if err != nil {
			return err
		}
		if yes {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
