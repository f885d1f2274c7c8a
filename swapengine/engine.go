package swapengine

import (
	"context"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/comit-network/swapd/expiry"
	"github.com/comit-network/swapd/swap"
	"github.com/comit-network/swapd/swap/hbit"
	"github.com/comit-network/swapd/swap/herc20"
	"github.com/comit-network/swapd/swapdb"
)

// BitcoinKeys is the transient keypair and payout address a role needs
// for whichever hbit action (redeem or refund) belongs to it; the
// engine only reads the field its wiring actually calls.
type BitcoinKeys struct {
	Key      *btcec.PrivateKey
	DestAddr btcutil.Address
}

// Engine drives individual swaps to completion, reusing one pair of
// ledger actors and one database across every swap the daemon
// currently holds open.
type Engine struct {
	DB           *swapdb.DB
	BitcoinClock expiry.LedgerClock
	EtherClock   expiry.LedgerClock
	Hbit         *hbit.Actor
	Herc20       *herc20.Actor
}

// New builds an Engine over the given actors, clocks, and database.
func New(db *swapdb.DB, bitcoinClock, etherClock expiry.LedgerClock, hbitActor *hbit.Actor, herc20Actor *herc20.Actor) *Engine {
	return &Engine{
		DB:           db,
		BitcoinClock: bitcoinClock,
		EtherClock:   etherClock,
		Hbit:         hbitActor,
		Herc20:       herc20Actor,
	}
}

// Run drives params's swap from whatever events are already recorded
// (zero after CreateSwap, partial after a restart) to a terminal
// swap.Outcome. secret is Alice's pre-committed secret; Bob's call
// passes the zero value and never reads it until beta.awaitRedeemed
// supplies the real one. keys carries whichever hbit redeem/refund
// identity this role/ordering combination needs; it is ignored by
// wiring that never touches the Bitcoin leg for that purpose.
func (e *Engine) Run(ctx context.Context, params swap.SwapParams, role swap.Role, ordering swap.Ordering, secret swap.Secret, keys BitcoinKeys) (swap.Outcome, error) {
	config := expiry.ConfigFor(ordering)
	advisor := expiry.NewAdvisor(config, params.StartOfSwap, e.alphaClock(ordering), e.betaClock(ordering))

	var result legResult
	var err error

	switch role {
	case swap.RoleAlice:
		result, err = e.runAlice(ctx, params, ordering, advisor, secret, keys)
	case swap.RoleBob:
		result, err = e.runBob(ctx, params, ordering, advisor, keys)
	default:
		return swap.OutcomeUnknown, fmt.Errorf("unknown role %v", role)
	}
	if err != nil {
		return swap.OutcomeUnknown, err
	}

	return classifyOutcome(result), nil
}

func (e *Engine) alphaClock(ordering swap.Ordering) expiry.LedgerClock {
	if ordering == swap.HbitHerc20 {
		return e.BitcoinClock
	}
	return e.EtherClock
}

func (e *Engine) betaClock(ordering swap.Ordering) expiry.LedgerClock {
	if ordering == swap.HbitHerc20 {
		return e.EtherClock
	}
	return e.BitcoinClock
}

func (e *Engine) runAlice(ctx context.Context, params swap.SwapParams, ordering swap.Ordering, advisor *expiry.Advisor, secret swap.Secret, keys BitcoinKeys) (legResult, error) {
	expiries := advisor.Expiries()

	switch ordering {
	case swap.HbitHerc20:
		alpha := &hbitLeg{
			actor: e.Hbit, db: e.DB, id: params.SwapId, params: params.Hbit,
			expired: betaExpiry(e.EtherClock, expiries),
			key:     keys.Key, destAddr: keys.DestAddr,
		}
		beta := &herc20Leg{
			actor: e.Herc20, db: e.DB, id: params.SwapId, params: params.Herc20,
			expired:   betaExpiry(e.EtherClock, expiries),
			deployer:  params.Herc20.RefundIdentity,
			fromBlock: params.Herc20.FromBlock,
		}
		p := &aliceProgram{advisor: advisor, alpha: alpha, beta: beta, secret: secret}
		return p.run(ctx)

	case swap.Herc20Hbit:
		alpha := &herc20Leg{
			actor: e.Herc20, db: e.DB, id: params.SwapId, params: params.Herc20,
			expired: betaExpiry(e.BitcoinClock, expiries),
		}
		beta := &hbitLeg{
			actor: e.Hbit, db: e.DB, id: params.SwapId, params: params.Hbit,
			expired: betaExpiry(e.BitcoinClock, expiries),
			key:     keys.Key, destAddr: keys.DestAddr,
		}
		p := &aliceProgram{advisor: advisor, alpha: alpha, beta: beta, secret: secret}
		return p.run(ctx)

	default:
		return legResult{}, fmt.Errorf("unknown ordering %v", ordering)
	}
}

func (e *Engine) runBob(ctx context.Context, params swap.SwapParams, ordering swap.Ordering, advisor *expiry.Advisor, keys BitcoinKeys) (legResult, error) {
	expiries := advisor.Expiries()

	switch ordering {
	case swap.HbitHerc20:
		alpha := &hbitLeg{
			actor: e.Hbit, db: e.DB, id: params.SwapId, params: params.Hbit,
			// Bob's alpha-leg redeem is never gated: he must claim it
			// whenever he holds the secret, even past alpha's own expiry.
			expired: nil,
			key:     keys.Key, destAddr: keys.DestAddr,
		}
		beta := &herc20Leg{
			actor: e.Herc20, db: e.DB, id: params.SwapId, params: params.Herc20,
			expired:   betaExpiry(e.EtherClock, expiries),
			deployer:  params.Herc20.RefundIdentity,
			fromBlock: params.Herc20.FromBlock,
		}
		p := &bobProgram{advisor: advisor, alpha: alpha, beta: beta}
		return p.run(ctx)

	case swap.Herc20Hbit:
		alpha := &herc20Leg{
			actor: e.Herc20, db: e.DB, id: params.SwapId, params: params.Herc20,
			// Same reasoning as the HbitHerc20 case above: Bob's alpha
			// redeem is unconditional.
			expired:   nil,
			deployer:  params.Herc20.RefundIdentity,
			fromBlock: params.Herc20.FromBlock,
		}
		beta := &hbitLeg{
			actor: e.Hbit, db: e.DB, id: params.SwapId, params: params.Hbit,
			expired: betaExpiry(e.BitcoinClock, expiries),
			key:     keys.Key, destAddr: keys.DestAddr,
		}
		p := &bobProgram{advisor: advisor, alpha: alpha, beta: beta}
		return p.run(ctx)

	default:
		return legResult{}, fmt.Errorf("unknown ordering %v", ordering)
	}
}
