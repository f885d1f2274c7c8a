package expiry

import (
	"context"
	"time"
)

// LedgerClock reports the current time as observed by a ledger, e.g. a
// Bitcoin median-time-past or an Ethereum block.timestamp. The advisor
// never reads the wall clock directly; every comparison goes through
// this interface, taking a context.Context the way the rest of this
// module's blocking calls do.
type LedgerClock interface {
	CurrentTime(ctx context.Context) (time.Time, error)
}

// Advisor answers "what should I do next" for a single swap, given both
// ledgers' current time and the swap's fixed offsets. It is a direct
// port of comit's Expiries<A, B> (original_source,
// comit/src/expiries.rs) onto Go's error-returning idiom in place of
// panicking on a clock read failure.
type Advisor struct {
	config  Config
	alpha   LedgerClock
	beta    LedgerClock
	offsets Offsets
	expiry  Expiries
}

// NewAdvisor builds an Advisor for a swap that started at startAt, using
// config's happy-path budgets and the two ledgers' clocks.
func NewAdvisor(config Config, startAt time.Time, alpha, beta LedgerClock) *Advisor {
	offsets := ComputeOffsets(config)
	return &Advisor{
		config:  config,
		alpha:   alpha,
		beta:    beta,
		offsets: offsets,
		expiry:  ToTimestamps(startAt, offsets),
	}
}

// Offsets returns the offsets derived for this swap.
func (a *Advisor) Offsets() Offsets {
	return a.offsets
}

// Expiries returns the absolute expiry timestamps derived for this swap.
func (a *Advisor) Expiries() Expiries {
	return a.expiry
}

// NextActionForAlice returns the action the advisor recommends Alice
// take from current.
func (a *Advisor) NextActionForAlice(ctx context.Context, current AliceState) (AliceAction, error) {
	if current == AliceDone || current == AliceRedeemBetaBroadcast {
		return AliceActionNoFurtherAction, nil
	}

	funded := current.hasBroadcastFundTransaction()

	expired, err := a.alphaExpiryHasElapsed(ctx)
	if err != nil {
		return 0, err
	}
	if expired {
		if funded {
			return AliceActionRefund, nil
		}
		return AliceActionAbort, nil
	}

	bothCanComplete, err := a.bothCanComplete(ctx, current, alicesGuessAtBobState(current))
	if err != nil {
		return 0, err
	}
	if !bothCanComplete {
		if funded {
			return AliceActionWaitToRefund, nil
		}
		return AliceActionAbort, nil
	}

	action, _ := current.next()
	return action, nil
}

// NextActionForBob returns the action the advisor recommends Bob take
// from current.
func (a *Advisor) NextActionForBob(ctx context.Context, current BobState) (BobAction, error) {
	if current == BobDone {
		return BobActionNoFurtherAction, nil
	}

	// If Alice has redeemed, Bob's only action is to redeem irrespective
	// of expiry.
	if current == BobRedeemBetaSeen {
		return BobActionRedeemAlpha, nil
	}

	funded := current.hasBroadcastFundTransaction()

	expired, err := a.betaExpiryHasElapsed(ctx)
	if err != nil {
		return 0, err
	}
	if expired {
		if funded {
			return BobActionRefund, nil
		}
		return BobActionAbort, nil
	}

	bothCanComplete, err := a.bothCanComplete(ctx, bobsGuessAtAliceState(current), current)
	if err != nil {
		return 0, err
	}
	if !bothCanComplete {
		if funded {
			return BobActionWaitToRefund, nil
		}
		return BobActionAbort, nil
	}

	action, _ := current.next()
	return action, nil
}

func (a *Advisor) bothCanComplete(ctx context.Context, aliceState AliceState, bobState BobState) (bool, error) {
	aliceCan, err := a.aliceCanComplete(ctx, aliceState)
	if err != nil {
		return false, err
	}
	bobCan, err := a.bobCanComplete(ctx, bobState)
	if err != nil {
		return false, err
	}
	return aliceCan && bobCan, nil
}

// aliceCanComplete reports whether Alice has time to reach Done before
// the beta expiry elapses, starting from current.
func (a *Advisor) aliceCanComplete(ctx context.Context, current AliceState) (bool, error) {
	period := periodForAliceToComplete(a.config, current)
	now, err := a.beta.CurrentTime(ctx)
	if err != nil {
		return false, err
	}
	return !now.Add(period).After(a.expiry.Beta), nil
}

// bobCanComplete reports whether Bob has time to reach Done before the
// alpha expiry elapses, starting from current.
func (a *Advisor) bobCanComplete(ctx context.Context, current BobState) (bool, error) {
	period := periodForBobToComplete(a.config, current)
	now, err := a.alpha.CurrentTime(ctx)
	if err != nil {
		return false, err
	}
	return !now.Add(period).After(a.expiry.Alpha), nil
}

// AliceShouldActWithin returns how long Alice has before her next action
// becomes too late to meet the beta expiry.
func (a *Advisor) AliceShouldActWithin(ctx context.Context, current AliceState) (time.Duration, error) {
	period := periodForAliceToComplete(a.config, current)
	deadline := a.expiry.Beta.Add(-period)
	now, err := a.beta.CurrentTime(ctx)
	if err != nil {
		return 0, err
	}
	return deadline.Sub(now), nil
}

// BobShouldActWithin returns how long Bob has before his next action
// becomes too late to meet the alpha expiry.
func (a *Advisor) BobShouldActWithin(ctx context.Context, current BobState) (time.Duration, error) {
	period := periodForBobToComplete(a.config, current)
	deadline := a.expiry.Alpha.Add(-period)
	now, err := a.alpha.CurrentTime(ctx)
	if err != nil {
		return 0, err
	}
	return deadline.Sub(now), nil
}

func (a *Advisor) alphaExpiryHasElapsed(ctx context.Context) (bool, error) {
	now, err := a.alpha.CurrentTime(ctx)
	if err != nil {
		return false, err
	}
	return now.After(a.expiry.Alpha), nil
}

func (a *Advisor) betaExpiryHasElapsed(ctx context.Context) (bool, error) {
	now, err := a.beta.CurrentTime(ctx)
	if err != nil {
		return false, err
	}
	return now.After(a.expiry.Beta), nil
}
