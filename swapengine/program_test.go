package swapengine

import (
	"context"
	"testing"
	"time"

	"github.com/comit-network/swapd/expiry"
	"github.com/comit-network/swapd/swap"
	"github.com/stretchr/testify/require"
)

// constantClock always reports the same instant, for exercising a
// program's happy path without any real waiting.
type constantClock struct {
	t time.Time
}

func (c constantClock) CurrentTime(ctx context.Context) (time.Time, error) {
	return c.t, nil
}

// steppedClock reports early for its first flipAfter calls, then late
// forever after, letting a test move a ledger's clock past an expiry
// partway through a program run.
type steppedClock struct {
	calls     int
	flipAfter int
	early     time.Time
	late      time.Time
}

func (c *steppedClock) CurrentTime(ctx context.Context) (time.Time, error) {
	c.calls++
	if c.calls > c.flipAfter {
		return c.late, nil
	}
	return c.early, nil
}

type fakeAlphaFunderLeg struct {
	fundCalls, refundCalls int
	fundErr, refundErr     error
}

func (f *fakeAlphaFunderLeg) fund(ctx context.Context) error {
	f.fundCalls++
	return f.fundErr
}

func (f *fakeAlphaFunderLeg) refund(ctx context.Context) error {
	f.refundCalls++
	return f.refundErr
}

type fakeBetaRedeemerLeg struct {
	awaitFundedCalls, redeemCalls int
	awaitFundedErr, redeemErr     error
	redeemedWith                  swap.Secret
}

func (f *fakeBetaRedeemerLeg) awaitFunded(ctx context.Context) error {
	f.awaitFundedCalls++
	return f.awaitFundedErr
}

func (f *fakeBetaRedeemerLeg) redeem(ctx context.Context, secret swap.Secret) error {
	f.redeemCalls++
	f.redeemedWith = secret
	return f.redeemErr
}

type fakeAlphaRedeemerLeg struct {
	awaitFundedCalls, redeemCalls int
	awaitFundedErr, redeemErr     error
	redeemedWith                  swap.Secret
}

func (f *fakeAlphaRedeemerLeg) awaitFunded(ctx context.Context) error {
	f.awaitFundedCalls++
	return f.awaitFundedErr
}

func (f *fakeAlphaRedeemerLeg) redeem(ctx context.Context, secret swap.Secret) error {
	f.redeemCalls++
	f.redeemedWith = secret
	return f.redeemErr
}

type fakeBetaFunderLeg struct {
	fundCalls, awaitRedeemedCalls, refundCalls int
	fundErr, awaitRedeemedErr, refundErr       error
	secretToReveal                             swap.Secret
}

func (f *fakeBetaFunderLeg) fund(ctx context.Context) error {
	f.fundCalls++
	return f.fundErr
}

func (f *fakeBetaFunderLeg) awaitRedeemed(ctx context.Context) (swap.Secret, error) {
	f.awaitRedeemedCalls++
	return f.secretToReveal, f.awaitRedeemedErr
}

func (f *fakeBetaFunderLeg) refund(ctx context.Context) error {
	f.refundCalls++
	return f.refundErr
}

var (
	programTestStartAt    = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	programTestFarFuture  = time.Date(2100, 1, 1, 0, 0, 0, 0, time.UTC)
)

func TestAliceProgramHappyPath(t *testing.T) {
	cfg := expiry.HbitHerc20Config()
	clock := constantClock{t: programTestStartAt}
	advisor := expiry.NewAdvisor(cfg, programTestStartAt, clock, clock)

	secret, err := swap.NewSecret()
	require.NoError(t, err)

	alpha := &fakeAlphaFunderLeg{}
	beta := &fakeBetaRedeemerLeg{}
	p := &aliceProgram{advisor: advisor, alpha: alpha, beta: beta, secret: secret}

	result, err := p.run(context.Background())
	require.NoError(t, err)
	require.Equal(t, legResult{BetaRedeemed: true}, result)
	require.Equal(t, 1, alpha.fundCalls)
	require.Equal(t, 0, alpha.refundCalls)
	require.Equal(t, 1, beta.awaitFundedCalls)
	require.Equal(t, 1, beta.redeemCalls)
	require.Equal(t, secret, beta.redeemedWith)
}

func TestAliceProgramAbortsBeforeFundingWhenAlphaAlreadyExpired(t *testing.T) {
	cfg := expiry.HbitHerc20Config()
	alphaClock := constantClock{t: programTestFarFuture}
	betaClock := constantClock{t: programTestStartAt}
	advisor := expiry.NewAdvisor(cfg, programTestStartAt, alphaClock, betaClock)

	secret, err := swap.NewSecret()
	require.NoError(t, err)

	alpha := &fakeAlphaFunderLeg{}
	beta := &fakeBetaRedeemerLeg{}
	p := &aliceProgram{advisor: advisor, alpha: alpha, beta: beta, secret: secret}

	result, err := p.run(context.Background())
	require.NoError(t, err)
	require.Equal(t, legResult{}, result)
	require.Equal(t, 0, alpha.fundCalls)
	require.Equal(t, 0, alpha.refundCalls)
	require.Equal(t, 0, beta.awaitFundedCalls)
}

func TestAliceProgramRefundsAfterFundingThenAlphaExpires(t *testing.T) {
	cfg := expiry.HbitHerc20Config()
	alphaClock := &steppedClock{early: programTestStartAt, late: programTestFarFuture, flipAfter: 2}
	betaClock := constantClock{t: programTestStartAt}
	advisor := expiry.NewAdvisor(cfg, programTestStartAt, alphaClock, betaClock)

	secret, err := swap.NewSecret()
	require.NoError(t, err)

	alpha := &fakeAlphaFunderLeg{}
	beta := &fakeBetaRedeemerLeg{}
	p := &aliceProgram{advisor: advisor, alpha: alpha, beta: beta, secret: secret}

	result, err := p.run(context.Background())
	require.NoError(t, err)
	require.Equal(t, legResult{AlphaRefunded: true}, result)
	require.Equal(t, 1, alpha.fundCalls)
	require.Equal(t, 1, alpha.refundCalls)
	require.Equal(t, 0, beta.awaitFundedCalls)
	require.Equal(t, 0, beta.redeemCalls)
}

func TestBobProgramHappyPath(t *testing.T) {
	cfg := expiry.HbitHerc20Config()
	clock := constantClock{t: programTestStartAt}
	advisor := expiry.NewAdvisor(cfg, programTestStartAt, clock, clock)

	secret, err := swap.NewSecret()
	require.NoError(t, err)

	alpha := &fakeAlphaRedeemerLeg{}
	beta := &fakeBetaFunderLeg{secretToReveal: secret}
	p := &bobProgram{advisor: advisor, alpha: alpha, beta: beta}

	result, err := p.run(context.Background())
	require.NoError(t, err)
	require.Equal(t, legResult{AlphaRedeemed: true, BetaRedeemed: true}, result)
	require.Equal(t, 1, alpha.awaitFundedCalls)
	require.Equal(t, 1, alpha.redeemCalls)
	require.Equal(t, secret, alpha.redeemedWith)
	require.Equal(t, 1, beta.fundCalls)
	require.Equal(t, 1, beta.awaitRedeemedCalls)
	require.Equal(t, 0, beta.refundCalls)
}

func TestBobProgramAbortsBeforeFundingWhenBetaAlreadyExpired(t *testing.T) {
	cfg := expiry.HbitHerc20Config()
	alphaClock := constantClock{t: programTestStartAt}
	betaClock := constantClock{t: programTestFarFuture}
	advisor := expiry.NewAdvisor(cfg, programTestStartAt, alphaClock, betaClock)

	alpha := &fakeAlphaRedeemerLeg{}
	beta := &fakeBetaFunderLeg{}
	p := &bobProgram{advisor: advisor, alpha: alpha, beta: beta}

	result, err := p.run(context.Background())
	require.NoError(t, err)
	require.Equal(t, legResult{}, result)
	require.Equal(t, 0, alpha.awaitFundedCalls)
	require.Equal(t, 0, beta.fundCalls)
}

func TestBobProgramRefundsAfterFundingThenBetaExpires(t *testing.T) {
	cfg := expiry.HbitHerc20Config()
	alphaClock := constantClock{t: programTestStartAt}
	betaClock := &steppedClock{early: programTestStartAt, late: programTestFarFuture, flipAfter: 4}
	advisor := expiry.NewAdvisor(cfg, programTestStartAt, alphaClock, betaClock)

	alpha := &fakeAlphaRedeemerLeg{}
	beta := &fakeBetaFunderLeg{}
	p := &bobProgram{advisor: advisor, alpha: alpha, beta: beta}

	result, err := p.run(context.Background())
	require.NoError(t, err)
	require.Equal(t, legResult{BetaRefunded: true}, result)
	require.Equal(t, 1, alpha.awaitFundedCalls)
	require.Equal(t, 0, alpha.redeemCalls)
	require.Equal(t, 1, beta.fundCalls)
	require.Equal(t, 0, beta.awaitRedeemedCalls)
	require.Equal(t, 1, beta.refundCalls)
}
