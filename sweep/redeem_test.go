package sweep_test

import (
	"testing"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
	"github.com/comit-network/swapd/lnwallet"
	"github.com/comit-network/swapd/sweep"
	"github.com/comit-network/swapd/swap"
	"github.com/stretchr/testify/require"
)

func mustKey(t *testing.T) *btcec.PrivateKey {
	t.Helper()
	key, err := btcec.NewPrivateKey()
	require.NoError(t, err)
	return key
}

func testHtlcSetup(t *testing.T) (swap.HbitParams, swap.HbitFunded, swap.Secret, *btcec.PrivateKey, *btcec.PrivateKey, []byte) {
	t.Helper()
	secret, err := swap.NewSecret()
	require.NoError(t, err)

	redeemKey := mustKey(t)
	refundKey := mustKey(t)

	params := swap.HbitParams{
		Network:        &chaincfg.RegressionNetParams,
		AssetSats:      500_000,
		RedeemIdentity: redeemKey.PubKey(),
		RefundIdentity: refundKey.PubKey(),
		ExpiryUnix:     500_000_000,
		SecretHash:     secret.Hash(),
	}

	funded := swap.HbitFunded{
		Status:   swap.FundedCorrectly,
		AssetSat: int64(params.AssetSats),
		Location: swap.HbitLocation{Txid: wire.OutPoint{Index: 0}},
	}

	destHash := btcutil.Hash160(redeemKey.PubKey().SerializeCompressed())
	destAddr, err := btcutil.NewAddressWitnessPubKeyHash(destHash, params.Network)
	require.NoError(t, err)
	destScript, err := txscript.PayToAddrScript(destAddr)
	require.NoError(t, err)

	return params, funded, secret, redeemKey, refundKey, destScript
}

func TestBuildRedeemTxDeductsFeeFromOutput(t *testing.T) {
	params, funded, secret, redeemKey, _, destScript := testHtlcSetup(t)

	feeRate := lnwallet.SatPerKWeight(2000)
	feeCap := btcutil.Amount(50_000)

	tx, err := sweep.BuildRedeemTx(params, funded, secret, redeemKey, destScript, feeRate, feeCap)
	require.NoError(t, err)

	expectedFee := feeRate.FeeForWeight(lnwallet.EstimateRedeemWeight())
	require.Equal(t, funded.AssetSat-int64(expectedFee), tx.TxOut[0].Value)
	require.Len(t, tx.TxIn[0].Witness, 4)
}

func TestBuildRefundTxSetsLockTimeToExpiry(t *testing.T) {
	params, funded, _, _, refundKey, destScript := testHtlcSetup(t)

	feeRate := lnwallet.SatPerKWeight(2000)
	feeCap := btcutil.Amount(50_000)

	tx, err := sweep.BuildRefundTx(params, funded, refundKey, destScript, feeRate, feeCap)
	require.NoError(t, err)

	require.Equal(t, params.ExpiryUnix, tx.LockTime)
	require.Len(t, tx.TxIn[0].Witness, 3)
}

func TestBuildRedeemTxFailsWhenFeeExceedsCap(t *testing.T) {
	params, funded, secret, redeemKey, _, destScript := testHtlcSetup(t)

	feeRate := lnwallet.SatPerKWeight(1_000_000)
	feeCap := btcutil.Amount(1)

	_, err := sweep.BuildRedeemTx(params, funded, secret, redeemKey, destScript, feeRate, feeCap)
	require.ErrorIs(t, err, swap.ErrInsufficientFunds)
}

func TestBuildRedeemTxFailsWhenSweepWouldBeDust(t *testing.T) {
	params, funded, secret, redeemKey, _, destScript := testHtlcSetup(t)
	funded.AssetSat = 1000 // below any reasonable dust threshold once fees apply

	feeRate := lnwallet.SatPerKWeight(2000)
	feeCap := btcutil.Amount(50_000)

	_, err := sweep.BuildRedeemTx(params, funded, secret, redeemKey, destScript, feeRate, feeCap)
	require.Error(t, err)
}
