package expiry

import "time"

// AliceState is Alice's position along her happy path, used only to
// compute the next recommended action and a soft deadline; it is not the
// authoritative swap state (that lives in the swap package's state
// machine) but a coarse projection of it, grounded on comit's
// AliceState (original_source, comit/src/expiries.rs).
type AliceState int

const (
	AliceNone AliceState = iota
	AliceStarted
	AliceFundAlphaBroadcast
	AliceAlphaFunded
	AliceBetaFunded
	AliceRedeemBetaBroadcast
	AliceDone
)

// AliceAction is the action the advisor recommends Alice take next.
type AliceAction int

const (
	AliceActionStart AliceAction = iota
	AliceActionFundAlpha
	AliceActionWaitForAlphaFundFinality
	AliceActionWaitForBetaFundFinality
	AliceActionRedeemBeta
	AliceActionWaitForBetaRedeemFinality
	AliceActionNoFurtherAction
	AliceActionAbort
	AliceActionWaitToRefund
	AliceActionRefund
)

func (s AliceState) next() (AliceAction, AliceState) {
	switch s {
	case AliceNone:
		return AliceActionStart, AliceStarted
	case AliceStarted:
		return AliceActionFundAlpha, AliceFundAlphaBroadcast
	case AliceFundAlphaBroadcast:
		return AliceActionWaitForAlphaFundFinality, AliceAlphaFunded
	case AliceAlphaFunded:
		return AliceActionWaitForBetaFundFinality, AliceBetaFunded
	case AliceBetaFunded:
		return AliceActionRedeemBeta, AliceRedeemBetaBroadcast
	case AliceRedeemBetaBroadcast:
		return AliceActionWaitForBetaRedeemFinality, AliceDone
	default: // AliceDone
		return AliceActionNoFurtherAction, AliceDone
	}
}

// transitionPeriod is the minimum time needed to transition from s to
// its next state.
func (s AliceState) transitionPeriod(c Config) time.Duration {
	action, _ := s.next()
	switch action {
	case AliceActionStart:
		return c.Start
	case AliceActionFundAlpha:
		return c.BroadcastAlphaFund
	case AliceActionWaitForAlphaFundFinality:
		return c.MineAlphaFund + c.FinalityAlpha
	case AliceActionWaitForBetaFundFinality:
		return c.BroadcastBetaFund + c.MineBetaFund + c.FinalityBeta
	case AliceActionRedeemBeta:
		return c.BroadcastBetaRedeem
	case AliceActionWaitForBetaRedeemFinality:
		return c.MineBetaRedeem + c.FinalityBeta
	default:
		return 0
	}
}

func (s AliceState) hasBroadcastFundTransaction() bool {
	switch s {
	case AliceNone, AliceStarted:
		return false
	default:
		return true
	}
}

// periodForAliceToComplete sums the remaining transition periods from s
// to AliceDone.
func periodForAliceToComplete(c Config, s AliceState) time.Duration {
	var total time.Duration
	for s != AliceDone {
		total += s.transitionPeriod(c)
		_, s = s.next()
	}
	return total
}

// BobState is Bob's position along his happy path.
type BobState int

const (
	BobStarted BobState = iota
	BobAlphaFunded
	BobFundBetaBroadcast
	BobBetaFunded
	BobRedeemBetaSeen
	BobRedeemAlphaBroadcast
	BobDone
)

// BobAction is the action the advisor recommends Bob take next.
type BobAction int

const (
	BobActionWaitForAlphaFundFinality BobAction = iota
	BobActionFundBeta
	BobActionWaitForBetaFundFinality
	BobActionWaitForBetaRedeemBroadcast
	BobActionRedeemAlpha
	BobActionWaitForAlphaRedeemFinality
	BobActionNoFurtherAction
	BobActionAbort
	BobActionWaitToRefund
	BobActionRefund
)

func (s BobState) next() (BobAction, BobState) {
	switch s {
	case BobStarted:
		return BobActionWaitForAlphaFundFinality, BobAlphaFunded
	case BobAlphaFunded:
		return BobActionFundBeta, BobFundBetaBroadcast
	case BobFundBetaBroadcast:
		return BobActionWaitForBetaFundFinality, BobBetaFunded
	case BobBetaFunded:
		return BobActionWaitForBetaRedeemBroadcast, BobRedeemBetaSeen
	case BobRedeemBetaSeen:
		return BobActionRedeemAlpha, BobRedeemAlphaBroadcast
	case BobRedeemAlphaBroadcast:
		return BobActionWaitForAlphaRedeemFinality, BobDone
	default: // BobDone
		return BobActionNoFurtherAction, BobDone
	}
}

func (s BobState) transitionPeriod(c Config) time.Duration {
	action, _ := s.next()
	switch action {
	case BobActionWaitForAlphaFundFinality:
		return c.Start + c.BroadcastAlphaFund + c.MineAlphaFund + c.FinalityAlpha
	case BobActionFundBeta:
		return c.BroadcastBetaFund
	case BobActionWaitForBetaFundFinality:
		return c.MineBetaFund + c.FinalityBeta
	case BobActionWaitForBetaRedeemBroadcast:
		return c.BroadcastBetaRedeem + c.MineBetaRedeem
	case BobActionRedeemAlpha:
		return c.BroadcastAlphaRedeem
	case BobActionWaitForAlphaRedeemFinality:
		return c.MineAlphaRedeem + c.FinalityAlpha
	default:
		return 0
	}
}

func (s BobState) hasBroadcastFundTransaction() bool {
	switch s {
	case BobStarted, BobAlphaFunded:
		return false
	default:
		return true
	}
}

func periodForBobToComplete(c Config, s BobState) time.Duration {
	var total time.Duration
	for s != BobDone {
		total += s.transitionPeriod(c)
		_, s = s.next()
	}
	return total
}

// bobsGuessAtAliceState is Bob's conservative, public-knowledge-only
// guess at Alice's state, used to decide whether both parties still have
// time to finish on the happy path. We never observe Alice's beta redeem
// reach finality, so AliceRedeemBetaBroadcast is the most advanced
// state we can infer from Bob's own observations.
func bobsGuessAtAliceState(s BobState) AliceState {
	switch s {
	case BobStarted:
		return AliceNone
	case BobAlphaFunded, BobFundBetaBroadcast:
		return AliceAlphaFunded
	case BobBetaFunded:
		return AliceBetaFunded
	default: // BobRedeemBetaSeen, BobRedeemAlphaBroadcast, BobDone
		return AliceRedeemBetaBroadcast
	}
}

// alicesGuessAtBobState is Alice's conservative, public-knowledge-only
// guess at Bob's state. We don't watch for Bob's alpha redeem, so
// BetaFunded is the most advanced state we can infer from Alice's own
// observations.
func alicesGuessAtBobState(s AliceState) BobState {
	switch s {
	case AliceNone, AliceStarted, AliceFundAlphaBroadcast:
		return BobStarted
	case AliceAlphaFunded:
		return BobAlphaFunded
	default: // AliceBetaFunded, AliceRedeemBetaBroadcast, AliceDone
		return BobBetaFunded
	}
}
