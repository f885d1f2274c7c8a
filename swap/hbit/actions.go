// Package hbit composes lnwallet's Bitcoin primitives and
// contractcourt's HbitWatcher into the concrete fund/redeem/refund
// actions the swap engine drives through htlcswitch's idempotent
// action layer, mirroring nectar's hbit.rs module (original_source,
// src/swap/comit/hbit.rs) at the boundary between "what to do" and
// "how to ask the ledger about it".
package hbit

import (
	"context"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/txscript"
	"github.com/comit-network/swapd/contractcourt"
	"github.com/comit-network/swapd/lnwallet"
	"github.com/comit-network/swapd/sweep"
	"github.com/comit-network/swapd/swap"
)

// Actor bundles the wallet and watcher a role needs to drive the
// Bitcoin leg of a swap, plus the fee policy applied to every
// transaction it builds.
type Actor struct {
	Wallet   lnwallet.BitcoinWallet
	Watcher  *contractcourt.HbitWatcher
	FeeRate  lnwallet.SatPerKWeight
	FeeCap   btcutil.Amount
	NumConfs uint32
}

// NewActor builds an Actor over the given wallet and watcher.
func NewActor(wallet lnwallet.BitcoinWallet, watcher *contractcourt.HbitWatcher, feeRate lnwallet.SatPerKWeight, feeCap btcutil.Amount, numConfs uint32) *Actor {
	return &Actor{Wallet: wallet, Watcher: watcher, FeeRate: feeRate, FeeCap: feeCap, NumConfs: numConfs}
}

// Fund broadcasts a new output of params.AssetSats to the HTLC address,
// waits for it to reach NumConfs, and returns once the watcher
// recognizes it. This is the funding role's half; the counterparty
// observes the same event through AwaitFunded.
func (a *Actor) Fund(ctx context.Context, params swap.HbitParams) (swap.HbitFunded, error) {
	addr, _, err := lnwallet.HbitAddress(params)
	if err != nil {
		return swap.HbitFunded{}, fmt.Errorf("derive hbit address: %w", err)
	}

	outpoint, err := a.Wallet.SendToAddress(ctx, addr, params.AssetSats, params.Network)
	if err != nil {
		return swap.HbitFunded{}, fmt.Errorf("broadcast hbit fund: %w", err)
	}
	if err := a.Wallet.WaitUntilConfirmed(ctx, *outpoint, a.NumConfs); err != nil {
		return swap.HbitFunded{}, fmt.Errorf("wait for hbit fund confirmation: %w", err)
	}

	return a.Watcher.WatchFunded(ctx, params)
}

// AwaitFunded is the non-funding counterparty's half: it never
// broadcasts, it only waits for the watcher to recognize the other
// side's funding output.
func (a *Actor) AwaitFunded(ctx context.Context, params swap.HbitParams) (swap.HbitFunded, error) {
	return a.Watcher.WatchFunded(ctx, params)
}

// Redeem builds and broadcasts the redeem-path spend of funded,
// revealing secret, paying the proceeds to destAddr.
func (a *Actor) Redeem(ctx context.Context, params swap.HbitParams, funded swap.HbitFunded, secret swap.Secret, redeemKey *btcec.PrivateKey, destAddr btcutil.Address) (swap.HbitRedeemed, error) {
	destScript, err := txscript.PayToAddrScript(destAddr)
	if err != nil {
		return swap.HbitRedeemed{}, fmt.Errorf("build destination script: %w", err)
	}

	tx, err := sweep.BuildRedeemTx(params, funded, secret, redeemKey, destScript, a.FeeRate, a.FeeCap)
	if err != nil {
		return swap.HbitRedeemed{}, fmt.Errorf("build hbit redeem tx: %w", err)
	}
	if _, err := a.Wallet.SendRawTransaction(ctx, tx); err != nil {
		return swap.HbitRedeemed{}, fmt.Errorf("broadcast hbit redeem tx: %w", err)
	}

	return a.Watcher.WatchRedeemed(ctx, params, funded)
}

// AwaitRedeemed waits for the counterparty's redeem, which reveals the
// secret the other leg's redeem needs.
func (a *Actor) AwaitRedeemed(ctx context.Context, params swap.HbitParams, funded swap.HbitFunded) (swap.HbitRedeemed, error) {
	return a.Watcher.WatchRedeemed(ctx, params, funded)
}

// Refund builds and broadcasts the timeout-path spend of funded.
func (a *Actor) Refund(ctx context.Context, params swap.HbitParams, funded swap.HbitFunded, refundKey *btcec.PrivateKey, destAddr btcutil.Address) (swap.HbitRefunded, error) {
	destScript, err := txscript.PayToAddrScript(destAddr)
	if err != nil {
		return swap.HbitRefunded{}, fmt.Errorf("build destination script: %w", err)
	}

	tx, err := sweep.BuildRefundTx(params, funded, refundKey, destScript, a.FeeRate, a.FeeCap)
	if err != nil {
		return swap.HbitRefunded{}, fmt.Errorf("build hbit refund tx: %w", err)
	}
	if _, err := a.Wallet.SendRawTransaction(ctx, tx); err != nil {
		return swap.HbitRefunded{}, fmt.Errorf("broadcast hbit refund tx: %w", err)
	}

	return a.Watcher.WatchRefunded(ctx, params, funded)
}
