// Package lnwallet builds and signs the on-chain transactions the hbit
// and herc20 legs need: the Bitcoin P2WSH HTLC script and its two
// spending witnesses, and the wallet action executor both legs submit
// through. Bitcoin script construction is grounded on
// script_utils.go's senderHTLCScript/receiverHTLCScript (builder style,
// witness-stack assembly), generalized from Lightning's revocable HTLC
// down to the COMIT hbit HTLC's simpler two-branch shape.
package lnwallet

import (
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
	"github.com/comit-network/swapd/swap"
)

// HtlcScript builds the witness script for a Bitcoin hbit HTLC:
//
//	OP_IF
//	    OP_SHA256 <secret_hash> OP_EQUALVERIFY
//	    <redeem_pk> OP_CHECKSIG
//	OP_ELSE
//	    <expiry> OP_CHECKLOCKTIMEVERIFY OP_DROP
//	    <refund_pk> OP_CHECKSIG
//	OP_ENDIF
//
// The redeem branch hashes the witness-revealed secret with OP_SHA256
// before comparing it against the embedded secret_hash; without this
// step OP_EQUALVERIFY would have nothing to hash against and the script
// would not be a hashlock at all.
func HtlcScript(secretHash swap.SecretHash, redeemPK, refundPK *btcec.PublicKey, expiry uint32) ([]byte, error) {
	builder := txscript.NewScriptBuilder()

	builder.AddOp(txscript.OP_IF)
	builder.AddOp(txscript.OP_SHA256)
	builder.AddData(secretHash[:])
	builder.AddOp(txscript.OP_EQUALVERIFY)
	builder.AddData(redeemPK.SerializeCompressed())
	builder.AddOp(txscript.OP_CHECKSIG)
	builder.AddOp(txscript.OP_ELSE)
	builder.AddInt64(int64(expiry))
	builder.AddOp(txscript.OP_CHECKLOCKTIMEVERIFY)
	builder.AddOp(txscript.OP_DROP)
	builder.AddData(refundPK.SerializeCompressed())
	builder.AddOp(txscript.OP_CHECKSIG)
	builder.AddOp(txscript.OP_ENDIF)

	return builder.Script()
}

// HbitWitnessScript builds the witness script for an hbit HTLC directly
// from its swap parameters.
func HbitWitnessScript(params swap.HbitParams) ([]byte, error) {
	return HtlcScript(params.SecretHash, params.RedeemIdentity, params.RefundIdentity, params.ExpiryUnix)
}

// HbitAddress derives the P2WSH address a counterparty's watcher watches
// for the funding output of, and the underlying witness script the
// redeem/refund spend needs to satisfy.
func HbitAddress(params swap.HbitParams) (btcutil.Address, []byte, error) {
	witnessScript, err := HbitWitnessScript(params)
	if err != nil {
		return nil, nil, fmt.Errorf("build hbit witness script: %w", err)
	}

	scriptHash := chainhash.HashB(witnessScript)
	addr, err := btcutil.NewAddressWitnessScriptHash(scriptHash, params.Network)
	if err != nil {
		return nil, nil, fmt.Errorf("derive hbit p2wsh address: %w", err)
	}
	return addr, witnessScript, nil
}

// WitnessScriptHash wraps a witness script into the P2WSH output script
// the HTLC funding transaction pays to, mirroring
// script_utils.go's witnessScriptHash.
func WitnessScriptHash(witnessScript []byte) ([]byte, error) {
	scriptHash := chainhash.HashB(witnessScript)

	builder := txscript.NewScriptBuilder()
	builder.AddOp(txscript.OP_0)
	builder.AddData(scriptHash)
	return builder.Script()
}

// RedeemWitness builds the witness stack spending the HTLC along the
// redeem path: <sig> <secret> OP_TRUE, plus the witness script itself as
// required for P2WSH spends.
func RedeemWitness(sig []byte, secret swap.Secret, witnessScript []byte) wire.TxWitness {
	return wire.TxWitness{
		sig,
		secret[:],
		{1}, // OP_TRUE
		witnessScript,
	}
}

// RefundWitness builds the witness stack spending the HTLC along the
// timeout path: <sig> OP_FALSE, plus the witness script.
func RefundWitness(sig []byte, witnessScript []byte) wire.TxWitness {
	return wire.TxWitness{
		sig,
		{}, // OP_FALSE
		witnessScript,
	}
}

// SignRedeem produces the signature half of RedeemWitness's stack for
// spending an HTLC output with value outputValue, witness script
// witnessScript, from sweepTx's first input, using redeemKey.
func SignRedeem(sweepTx *wire.MsgTx, outputValue int64, witnessScript []byte, redeemKey *btcec.PrivateKey) ([]byte, error) {
	return signHtlcInput(sweepTx, outputValue, witnessScript, redeemKey)
}

// SignRefund produces the signature half of RefundWitness's stack.
// sweepTx.LockTime must already be set to the HTLC's expiry so the
// OP_CHECKLOCKTIMEVERIFY branch validates.
func SignRefund(sweepTx *wire.MsgTx, outputValue int64, witnessScript []byte, refundKey *btcec.PrivateKey) ([]byte, error) {
	return signHtlcInput(sweepTx, outputValue, witnessScript, refundKey)
}

func signHtlcInput(sweepTx *wire.MsgTx, outputValue int64, witnessScript []byte, key *btcec.PrivateKey) ([]byte, error) {
	hashCache := txscript.NewTxSigHashes(sweepTx, txscript.NewCannedPrevOutputFetcher(nil, outputValue))
	sig, err := txscript.RawTxInWitnessSignature(
		sweepTx, hashCache, 0, outputValue, witnessScript,
		txscript.SigHashAll, key,
	)
	if err != nil {
		return nil, fmt.Errorf("sign htlc input: %w", err)
	}
	return sig, nil
}
