package swapengine

import (
	"context"
	"fmt"

	"github.com/comit-network/swapd/expiry"
)

// bobProgram drives Bob's happy path: wait for Alice's alpha fund,
// fund beta, wait for Alice to redeem beta (which reveals the
// secret), then redeem alpha with it, or refund beta if the advisor
// decides the swap can no longer complete.
type bobProgram struct {
	advisor *expiry.Advisor
	alpha   alphaRedeemerLeg
	beta    betaFunderLeg
}

func (p *bobProgram) run(ctx context.Context) (legResult, error) {
	state := expiry.BobStarted

	for {
		action, err := p.advisor.NextActionForBob(ctx, state)
		if err != nil {
			return legResult{}, fmt.Errorf("advise bob: %w", err)
		}

		switch action {
		case expiry.BobActionWaitForAlphaFundFinality:
			if err := p.alpha.awaitFunded(ctx); err != nil {
				return legResult{}, fmt.Errorf("await alpha fund: %w", err)
			}
			state = expiry.BobAlphaFunded

		case expiry.BobActionFundBeta:
			if err := p.beta.fund(ctx); err != nil {
				return legResult{}, fmt.Errorf("fund beta: %w", err)
			}
			state = expiry.BobFundBetaBroadcast

		case expiry.BobActionWaitForBetaFundFinality:
			state = expiry.BobBetaFunded

		case expiry.BobActionWaitForBetaRedeemBroadcast:
			secret, err := p.beta.awaitRedeemed(ctx)
			if err != nil {
				return legResult{}, fmt.Errorf("await beta redeem: %w", err)
			}
			state = expiry.BobRedeemBetaSeen
			// BobRedeemBetaSeen always recommends RedeemAlpha
			// irrespective of expiry, so move straight there instead
			// of looping back through the advisor.
			if err := p.alpha.redeem(ctx, secret); err != nil {
				return legResult{}, fmt.Errorf("redeem alpha: %w", err)
			}
			state = expiry.BobRedeemAlphaBroadcast

		case expiry.BobActionWaitForAlphaRedeemFinality:
			return legResult{AlphaRedeemed: true, BetaRedeemed: true}, nil

		case expiry.BobActionNoFurtherAction:
			return legResult{AlphaRedeemed: true, BetaRedeemed: true}, nil

		case expiry.BobActionAbort:
			return legResult{}, nil

		case expiry.BobActionWaitToRefund, expiry.BobActionRefund:
			if err := p.beta.refund(ctx); err != nil {
				return legResult{}, fmt.Errorf("refund beta: %w", err)
			}
			return legResult{BetaRefunded: true}, nil

		default:
			return legResult{}, fmt.Errorf("unhandled bob action %v", action)
		}
	}
}
