package swapengine

import (
	"context"
	"fmt"

	"github.com/comit-network/swapd/expiry"
	"github.com/comit-network/swapd/swap"
)

// aliceProgram drives Alice's happy path: fund alpha, wait for Bob's
// beta fund, redeem beta with her secret, or refund alpha if the
// advisor decides the swap can no longer complete.
type aliceProgram struct {
	advisor *expiry.Advisor
	alpha   alphaFunderLeg
	beta    betaRedeemerLeg
	secret  swap.Secret
}

// run drives the program to a terminal legResult, polling the advisor
// before every transition the way nectar's comit::Swap::execute loop
// polls Futures::expiries (original_source, src/swap/comit.rs).
func (p *aliceProgram) run(ctx context.Context) (legResult, error) {
	state := expiry.AliceStarted

	for {
		action, err := p.advisor.NextActionForAlice(ctx, state)
		if err != nil {
			return legResult{}, fmt.Errorf("advise alice: %w", err)
		}

		switch action {
		case expiry.AliceActionFundAlpha:
			if err := p.alpha.fund(ctx); err != nil {
				return legResult{}, fmt.Errorf("fund alpha: %w", err)
			}
			state = expiry.AliceFundAlphaBroadcast

		case expiry.AliceActionWaitForAlphaFundFinality:
			state = expiry.AliceAlphaFunded

		case expiry.AliceActionWaitForBetaFundFinality:
			if err := p.beta.awaitFunded(ctx); err != nil {
				return legResult{}, fmt.Errorf("await beta fund: %w", err)
			}
			state = expiry.AliceBetaFunded

		case expiry.AliceActionRedeemBeta:
			if err := p.beta.redeem(ctx, p.secret); err != nil {
				return legResult{}, fmt.Errorf("redeem beta: %w", err)
			}
			state = expiry.AliceRedeemBetaBroadcast

		case expiry.AliceActionWaitForBetaRedeemFinality:
			return legResult{BetaRedeemed: true}, nil

		case expiry.AliceActionNoFurtherAction:
			return legResult{BetaRedeemed: true}, nil

		case expiry.AliceActionAbort:
			return legResult{}, nil

		case expiry.AliceActionWaitToRefund, expiry.AliceActionRefund:
			if err := p.alpha.refund(ctx); err != nil {
				return legResult{}, fmt.Errorf("refund alpha: %w", err)
			}
			return legResult{AlphaRefunded: true}, nil

		default:
			return legResult{}, fmt.Errorf("unhandled alice action %v", action)
		}
	}
}
