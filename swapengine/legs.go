package swapengine

import (
	"context"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/comit-network/swapd/expiry"
	"github.com/comit-network/swapd/htlcswitch"
	"github.com/comit-network/swapd/swap"
	"github.com/comit-network/swapd/swap/hbit"
	"github.com/comit-network/swapd/swap/herc20"
	"github.com/comit-network/swapd/swapdb"
	"github.com/ethereum/go-ethereum/common"
)

// alphaFunderLeg is the surface Alice's alpha leg needs: she broadcasts
// the fund and, on timeout, the refund.
type alphaFunderLeg interface {
	fund(ctx context.Context) error
	refund(ctx context.Context) error
}

// betaRedeemerLeg is the surface Alice's beta leg needs: wait for Bob's
// fund, then redeem with the secret only she knows.
type betaRedeemerLeg interface {
	awaitFunded(ctx context.Context) error
	redeem(ctx context.Context, secret swap.Secret) error
}

// alphaRedeemerLeg is the surface Bob's alpha leg needs: wait for
// Alice's fund, then redeem once he has learned the secret.
type alphaRedeemerLeg interface {
	awaitFunded(ctx context.Context) error
	redeem(ctx context.Context, secret swap.Secret) error
}

// betaFunderLeg is the surface Bob's beta leg needs: he funds, waits
// for Alice's redeem (which reveals the secret), and refunds on
// timeout.
type betaFunderLeg interface {
	fund(ctx context.Context) error
	awaitRedeemed(ctx context.Context) (swap.Secret, error)
	refund(ctx context.Context) error
}

// expiryCheck reports whether the ledger an action is gated on has
// reached its swap expiry; legs hold one bound to the side of the swap
// they live on (alpha or beta).
type expiryCheck func(ctx context.Context) (bool, error)

// hbitLeg adapts a swap/hbit.Actor into every operation a leg
// interface above might need, with TryDoOnce/DoOnce idempotency and
// expiry-racing wired in so the program drivers never touch htlcswitch
// directly.
type hbitLeg struct {
	actor   *hbit.Actor
	db      *swapdb.DB
	id      swap.Id
	params  swap.HbitParams
	expired expiryCheck

	// key is this role's transient keypair for this leg: the redeem
	// key if the leg is owed a redeem, the refund key if it is owed a
	// refund. Since a role only ever calls redeem() or refund() on a
	// given leg, never both, one field covers both paths.
	key      *btcec.PrivateKey
	destAddr btcutil.Address

	funded *swap.HbitFunded
}

func (l *hbitLeg) fund(ctx context.Context) error {
	key := fmt.Sprintf("%s:hbit:fund", l.id)
	event, err := htlcswitch.TryDoOnce(ctx, key, hbitFundedMemory(l.db, l.id), l.expired,
		func(ctx context.Context) (swap.HbitFunded, error) { return l.actor.Fund(ctx, l.params) })
	if err != nil {
		return err
	}
	l.funded = &event
	return nil
}

func (l *hbitLeg) awaitFunded(ctx context.Context) error {
	key := fmt.Sprintf("%s:hbit:await-fund", l.id)
	event, err := htlcswitch.DoOnce(ctx, key, hbitFundedMemory(l.db, l.id),
		func(ctx context.Context) (swap.HbitFunded, error) { return l.actor.AwaitFunded(ctx, l.params) })
	if err != nil {
		return err
	}
	l.funded = &event
	return nil
}

// redeem claims the leg's funded output. When l.expired is set (Alice's
// beta leg), the claim races the expiry like any other gated action.
// When it is nil (Bob's alpha leg), the claim is unconditional: Bob
// must redeem whenever he holds the secret, even past alpha's own
// expiry, since the secret is the only way he ever recovers the asset
// he is owed.
func (l *hbitLeg) redeem(ctx context.Context, secret swap.Secret) error {
	key := fmt.Sprintf("%s:hbit:redeem", l.id)
	mem := hbitRedeemedMemory(l.db, l.id)
	do := func(ctx context.Context) (swap.HbitRedeemed, error) {
		return l.actor.Redeem(ctx, l.params, *l.funded, secret, l.key, l.destAddr)
	}

	var err error
	if l.expired == nil {
		_, err = htlcswitch.DoOnce(ctx, key, mem, do)
	} else {
		_, err = htlcswitch.TryDoOnce(ctx, key, mem, l.expired, do)
	}
	return err
}

func (l *hbitLeg) awaitRedeemed(ctx context.Context) (swap.Secret, error) {
	key := fmt.Sprintf("%s:hbit:await-redeem", l.id)
	event, err := htlcswitch.DoOnce(ctx, key, hbitRedeemedMemory(l.db, l.id),
		func(ctx context.Context) (swap.HbitRedeemed, error) { return l.actor.AwaitRedeemed(ctx, l.params, *l.funded) })
	if err != nil {
		return swap.Secret{}, err
	}
	return event.Secret, nil
}

func (l *hbitLeg) refund(ctx context.Context) error {
	key := fmt.Sprintf("%s:hbit:refund", l.id)
	_, err := htlcswitch.DoOnce(ctx, key, hbitRefundedMemory(l.db, l.id),
		func(ctx context.Context) (swap.HbitRefunded, error) {
			return l.actor.Refund(ctx, l.params, *l.funded, l.key, l.destAddr)
		})
	return err
}

// herc20Leg adapts a swap/herc20.Actor the same way hbitLeg adapts
// swap/hbit.Actor.
type herc20Leg struct {
	actor     *herc20.Actor
	db        *swapdb.DB
	id        swap.Id
	params    swap.Herc20Params
	expired   expiryCheck
	deployer  common.Address
	fromBlock uint64

	deployed *swap.Herc20Deployed
}

func (l *herc20Leg) fund(ctx context.Context) error {
	deployKey := fmt.Sprintf("%s:herc20:deploy", l.id)
	deployed, err := htlcswitch.TryDoOnce(ctx, deployKey, herc20DeployedMemory(l.db, l.id), l.expired,
		func(ctx context.Context) (swap.Herc20Deployed, error) { return l.actor.Deploy(ctx, l.params) })
	if err != nil {
		return err
	}
	l.deployed = &deployed

	fundKey := fmt.Sprintf("%s:herc20:fund", l.id)
	_, err = htlcswitch.TryDoOnce(ctx, fundKey, herc20FundedMemory(l.db, l.id), l.expired,
		func(ctx context.Context) (swap.Herc20Funded, error) { return l.actor.Fund(ctx, l.params, *l.deployed) })
	return err
}

func (l *herc20Leg) awaitFunded(ctx context.Context) error {
	deployKey := fmt.Sprintf("%s:herc20:await-deploy", l.id)
	deployed, err := htlcswitch.DoOnce(ctx, deployKey, herc20DeployedMemory(l.db, l.id),
		func(ctx context.Context) (swap.Herc20Deployed, error) {
			return l.actor.AwaitDeployed(ctx, l.params, l.deployer, l.fromBlock)
		})
	if err != nil {
		return err
	}
	l.deployed = &deployed

	fundKey := fmt.Sprintf("%s:herc20:await-fund", l.id)
	_, err = htlcswitch.DoOnce(ctx, fundKey, herc20FundedMemory(l.db, l.id),
		func(ctx context.Context) (swap.Herc20Funded, error) { return l.actor.AwaitFunded(ctx, l.params, *l.deployed) })
	return err
}

// redeem mirrors hbitLeg.redeem's gated/ungated split; see its
// doc-comment.
func (l *herc20Leg) redeem(ctx context.Context, secret swap.Secret) error {
	key := fmt.Sprintf("%s:herc20:redeem", l.id)
	mem := herc20RedeemedMemory(l.db, l.id)
	do := func(ctx context.Context) (swap.Herc20Redeemed, error) {
		return l.actor.Redeem(ctx, l.params, *l.deployed, secret)
	}

	var err error
	if l.expired == nil {
		_, err = htlcswitch.DoOnce(ctx, key, mem, do)
	} else {
		_, err = htlcswitch.TryDoOnce(ctx, key, mem, l.expired, do)
	}
	return err
}

func (l *herc20Leg) awaitRedeemed(ctx context.Context) (swap.Secret, error) {
	key := fmt.Sprintf("%s:herc20:await-redeem", l.id)
	event, err := htlcswitch.DoOnce(ctx, key, herc20RedeemedMemory(l.db, l.id),
		func(ctx context.Context) (swap.Herc20Redeemed, error) { return l.actor.AwaitRedeemed(ctx, l.params, *l.deployed) })
	if err != nil {
		return swap.Secret{}, err
	}
	return event.Secret, nil
}

func (l *herc20Leg) refund(ctx context.Context) error {
	key := fmt.Sprintf("%s:herc20:refund", l.id)
	_, err := htlcswitch.DoOnce(ctx, key, herc20RefundedMemory(l.db, l.id),
		func(ctx context.Context) (swap.Herc20Refunded, error) { return l.actor.Refund(ctx, *l.deployed) })
	return err
}

// betaExpiry builds the expiryCheck predicate every gated TryDoOnce
// race uses, bound to a single Advisor's fixed Expiries for the
// lifetime of a swap run. Every gated action races beta's expiry
// specifically, never alpha's, regardless of which ledger the action
// itself operates on: beta_has_expired is the one clock try_do_once
// ever reads.
func betaExpiry(clock expiry.LedgerClock, expiries expiry.Expiries) expiryCheck {
	return func(ctx context.Context) (bool, error) {
		now, err := clock.CurrentTime(ctx)
		if err != nil {
			return false, err
		}
		return !now.Before(expiries.Beta), nil
	}
}
