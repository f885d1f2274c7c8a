// Package sweep builds the single-input transactions that spend a
// funded hbit HTLC output along its redeem or refund path: a
// weight-estimate-then-fee shape, a dust-limit floor via btcwallet's
// txrules, and a sanity check via btcd's blockchain package before
// broadcast, following txgenerator.go's original conventions. That
// file batches an unbounded set of channel-sweep inputs with CSV/CLTV
// witness-type dispatch; a swap only ever sweeps the one HTLC output it
// funded, so this is the single-input specialization of the same
// shape.
package sweep

import (
	"fmt"

	"github.com/btcsuite/btcd/blockchain"
	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/wire"
	"github.com/btcsuite/btcwallet/wallet/txrules"
	"github.com/comit-network/swapd/lnwallet"
	"github.com/comit-network/swapd/swap"
)

// BuildRedeemTx spends funded's output to destScript along the redeem
// path, revealing secret in the witness. The fee is computed from
// feeRate and capped at feeCap; exceeding the cap or leaving dust
// behind fails the build rather than broadcasting.
func BuildRedeemTx(
	params swap.HbitParams,
	funded swap.HbitFunded,
	secret swap.Secret,
	redeemKey *btcec.PrivateKey,
	destScript []byte,
	feeRate lnwallet.SatPerKWeight,
	feeCap btcutil.Amount,
) (*wire.MsgTx, error) {
	return buildHtlcSpend(params, funded, destScript, feeRate, feeCap, lnwallet.EstimateRedeemWeight(),
		func(tx *wire.MsgTx, outputValue int64, witnessScript []byte) (wire.TxWitness, error) {
			sig, err := lnwallet.SignRedeem(tx, outputValue, witnessScript, redeemKey)
			if err != nil {
				return nil, err
			}
			return lnwallet.RedeemWitness(sig, secret, witnessScript), nil
		})
}

// BuildRefundTx spends funded's output to destScript along the timeout
// path. tx.LockTime is set to params.ExpiryUnix so the HTLC's
// OP_CHECKLOCKTIMEVERIFY branch validates.
func BuildRefundTx(
	params swap.HbitParams,
	funded swap.HbitFunded,
	refundKey *btcec.PrivateKey,
	destScript []byte,
	feeRate lnwallet.SatPerKWeight,
	feeCap btcutil.Amount,
) (*wire.MsgTx, error) {
	return buildHtlcSpend(params, funded, destScript, feeRate, feeCap, lnwallet.EstimateRefundWeight(),
		func(tx *wire.MsgTx, outputValue int64, witnessScript []byte) (wire.TxWitness, error) {
			tx.LockTime = params.ExpiryUnix
			sig, err := lnwallet.SignRefund(tx, outputValue, witnessScript, refundKey)
			if err != nil {
				return nil, err
			}
			return lnwallet.RefundWitness(sig, witnessScript), nil
		})
}

func buildHtlcSpend(
	params swap.HbitParams,
	funded swap.HbitFunded,
	destScript []byte,
	feeRate lnwallet.SatPerKWeight,
	feeCap btcutil.Amount,
	weight int64,
	sign func(tx *wire.MsgTx, outputValue int64, witnessScript []byte) (wire.TxWitness, error),
) (*wire.MsgTx, error) {
	witnessScript, err := lnwallet.HbitWitnessScript(params)
	if err != nil {
		return nil, fmt.Errorf("build witness script: %w", err)
	}

	fee := feeRate.FeeForWeight(weight)
	if fee > feeCap {
		return nil, swap.ErrInsufficientFunds
	}

	outputValue := funded.AssetSat
	sweepAmt := outputValue - int64(fee)

	dustLimit := txrules.GetDustThreshold(int64(len(destScript))+8+1, btcutil.Amount(feeRate.FeeForWeight(1000)))
	if btcutil.Amount(sweepAmt) < dustLimit {
		return nil, fmt.Errorf("htlc sweep output %d below dust limit %d", sweepAmt, dustLimit)
	}

	tx := wire.NewMsgTx(2)
	tx.AddTxIn(&wire.TxIn{PreviousOutPoint: funded.Location.Txid})
	tx.AddTxOut(&wire.TxOut{PkScript: destScript, Value: sweepAmt})

	witness, err := sign(tx, outputValue, witnessScript)
	if err != nil {
		return nil, fmt.Errorf("sign htlc spend: %w", err)
	}
	tx.TxIn[0].Witness = witness

	btx := btcutil.NewTx(tx)
	if err := blockchain.CheckTransactionSanity(btx); err != nil {
		return nil, fmt.Errorf("htlc spend failed sanity check: %w", err)
	}

	return tx, nil
}
