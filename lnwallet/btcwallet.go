package lnwallet

import (
	"context"
	"fmt"
	"time"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/btcutil/hdkeychain"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/rpcclient"
	"github.com/btcsuite/btcd/wire"
	"github.com/comit-network/swapd/swap"
)

// FeeRateEstimator returns the fee, in satoshis per kilo-weight-unit, a
// Bitcoin spend should pay. The daemon's only implementation,
// staticFeeRateEstimator in main.go, returns a fixed configured rate.
type FeeRateEstimator interface {
	EstimateFeeRate(ctx context.Context, confTarget int32) (btcutil.Amount, error)
}

// BtcdWallet implements BitcoinWallet against a btcd full node via
// rpcclient, deriving transient keys from an extended private key root
// via hdkeychain, reusing the same btcsuite-based Bitcoin stack as the
// rest of this module even though its original wallet package
// (lnwallet/wallet.go, channel-funding focused) targeted payment
// channels rather than one-shot HTLC spends.
type BtcdWallet struct {
	client    *rpcclient.Client
	feeRate   FeeRateEstimator
	feeCapSat btcutil.Amount
	rootKey   *hdkeychain.ExtendedKey
}

// NewBtcdWallet wraps an already-connected rpcclient, a fee estimator,
// a fee cap, and the wallet's root extended private key used to derive
// per-swap transient keys.
func NewBtcdWallet(client *rpcclient.Client, feeRate FeeRateEstimator, feeCapSat btcutil.Amount, rootKey *hdkeychain.ExtendedKey) *BtcdWallet {
	return &BtcdWallet{client: client, feeRate: feeRate, feeCapSat: feeCapSat, rootKey: rootKey}
}

// SendToAddress funds amount to addr, failing with
// swap.ErrInsufficientFunds if the wallet's spendable balance cannot
// cover amount plus the fee cap.
func (w *BtcdWallet) SendToAddress(ctx context.Context, addr btcutil.Address, amount btcutil.Amount, network *chaincfg.Params) (*wire.OutPoint, error) {
	unspent, err := w.client.ListUnspentMin(1)
	if err != nil {
		return nil, fmt.Errorf("list unspent: %w", err)
	}

	var balance btcutil.Amount
	for _, u := range unspent {
		amt, err := btcutil.NewAmount(u.Amount)
		if err != nil {
			return nil, fmt.Errorf("parse utxo amount: %w", err)
		}
		balance += amt
	}
	if balance < amount+w.feeCapSat {
		return nil, swap.ErrInsufficientFunds
	}

	txid, err := w.client.SendToAddress(addr, amount)
	if err != nil {
		return nil, fmt.Errorf("send to address: %w", err)
	}

	tx, err := w.client.GetRawTransaction(txid)
	if err != nil {
		return nil, fmt.Errorf("fetch broadcast transaction: %w", err)
	}

	for i, out := range tx.MsgTx().TxOut {
		if out.Value == int64(amount) {
			return &wire.OutPoint{Hash: *txid, Index: uint32(i)}, nil
		}
	}
	return nil, fmt.Errorf("broadcast transaction %s has no output of %s", txid, amount)
}

func (w *BtcdWallet) SendRawTransaction(ctx context.Context, tx *wire.MsgTx) (*wire.MsgTx, error) {
	_, err := w.client.SendRawTransaction(tx, false)
	if err != nil {
		return nil, fmt.Errorf("send raw transaction: %w", err)
	}
	return tx, nil
}

// WaitUntilConfirmed is a side-effect-free retry loop.
func (w *BtcdWallet) WaitUntilConfirmed(ctx context.Context, outpoint wire.OutPoint, numConfs uint32) error {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		tx, err := w.client.GetTransaction(&outpoint.Hash)
		if err == nil && tx.Confirmations >= int64(numConfs) {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// DeriveTransientKey derives the hardened child key at index from the
// wallet's root extended key.
func (w *BtcdWallet) DeriveTransientKey(index uint32) (*btcec.PrivateKey, error) {
	child, err := w.rootKey.Derive(hdkeychain.HardenedKeyStart + index)
	if err != nil {
		return nil, fmt.Errorf("derive transient key at index %d: %w", index, err)
	}
	return child.ECPrivKey()
}
