package lnwallet

import "github.com/btcsuite/btcd/btcutil"

// SatPerKWeight is a fee rate expressed in satoshis per kilo-weight-unit,
// the same convention lnwallet.SatPerKWeight elsewhere in this module
// uses.
type SatPerKWeight int64

// FeeForWeight returns the fee, in satoshis, for a transaction of the
// given weight at this rate.
func (rate SatPerKWeight) FeeForWeight(weight int64) btcutil.Amount {
	return btcutil.Amount(int64(rate) * weight / 1000)
}

// Weight estimates for the hbit HTLC's P2WSH output and its two spending
// paths, following size.go's BIP-141 weight accounting convention
// (Weight = 4*BaseSize + WitnessSize). Used to size the fee the wallet
// attaches to a fund/redeem/refund transaction without overshooting the
// configured fee cap.
const (
	// P2WSHOutputSize is a P2WSH output's serialized size: value (8) +
	// script length varint (1) + OP_0 PUSH32 <hash> (34).
	P2WSHOutputSize = 8 + 1 + 1 + 1 + 32

	// htlcWitnessScriptSize is the serialized size of the hbit witness
	// script built by HtlcScript: OP_IF OP_SHA256 PUSH32 <hash>
	// OP_EQUALVERIFY PUSH33 <pk> OP_CHECKSIG OP_ELSE PUSHn <expiry>
	// OP_CHECKLOCKTIMEVERIFY OP_DROP PUSH33 <pk> OP_CHECKSIG OP_ENDIF.
	htlcWitnessScriptSize = 1 + 1 + 1 + 32 + 1 + 1 + 33 + 1 + 1 + 1 + 5 + 1 + 1 + 1 + 33 + 1 + 1

	// RedeemWitnessWeight is the witness weight of spending an hbit HTLC
	// along the redeem path: <sig 73> <secret 32> <OP_TRUE 1> plus the
	// witness script, all counted at 1 weight unit per byte (segwit
	// discount already implied since this is purely witness data).
	RedeemWitnessWeight = 1 + 73 + 1 + 32 + 1 + 1 + 1 + htlcWitnessScriptSize

	// RefundWitnessWeight is the witness weight of spending an hbit HTLC
	// along the timeout path: <sig 73> <OP_FALSE 0> plus the witness
	// script.
	RefundWitnessWeight = 1 + 73 + 1 + 0 + 1 + htlcWitnessScriptSize

	// nonWitnessSpendBaseSize is an HTLC-spending transaction's
	// non-witness weight: one input (outpoint 36 + empty sigScript 1 +
	// sequence 4, all *4) plus one P2WPKH change output (31, *4) plus
	// version/locktime/counts overhead.
	nonWitnessSpendBaseSize = (36 + 1 + 4 + 31 + 4 + 4 + 2) * 4
)

// EstimateRedeemWeight returns the total transaction weight of a
// single-input hbit HTLC redeem transaction.
func EstimateRedeemWeight() int64 {
	return nonWitnessSpendBaseSize + RedeemWitnessWeight
}

// EstimateRefundWeight returns the total transaction weight of a
// single-input hbit HTLC refund transaction.
func EstimateRefundWeight() int64 {
	return nonWitnessSpendBaseSize + RefundWitnessWeight
}
