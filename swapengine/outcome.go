package swapengine

import "github.com/comit-network/swapd/swap"

// legResult describes which path a completed run actually took, per
// leg, independent of which ledger played alpha or beta.
type legResult struct {
	AlphaRedeemed, AlphaRefunded bool
	BetaRedeemed, BetaRefunded   bool
}

// classifyOutcome maps the events recorded for a finished swap onto the
// single categorical swap.Outcome callers, logs, and swapdb's history
// table use to summarize it.
func classifyOutcome(r legResult) swap.Outcome {
	switch {
	case r.AlphaRedeemed && r.BetaRedeemed:
		return swap.OutcomeBothRedeemed
	case r.AlphaRefunded && r.BetaRefunded:
		return swap.OutcomeBothRefunded
	case r.AlphaRedeemed && r.BetaRefunded:
		return swap.OutcomeAlphaRedeemedBetaRefunded
	case r.AlphaRefunded && r.BetaRedeemed:
		return swap.OutcomeAlphaRefundedBetaRedeemed
	case r.AlphaRefunded:
		return swap.OutcomeAlphaRefunded
	case r.AlphaRedeemed:
		return swap.OutcomeAlphaRedeemed
	default:
		return swap.OutcomeUnknown
	}
}
