package contractcourt

import (
	"testing"

	"github.com/btcsuite/btcd/wire"
	"github.com/comit-network/swapd/chainntfs"
	"github.com/comit-network/swapd/lnwallet"
	"github.com/comit-network/swapd/swap"
	"github.com/stretchr/testify/require"
)

func spendDetailWithWitness(witness wire.TxWitness) *chainntfs.SpendDetail {
	tx := wire.NewMsgTx(wire.TxVersion)
	in := wire.NewTxIn(&wire.OutPoint{}, nil, nil)
	in.Witness = witness
	tx.AddTxIn(in)
	return &chainntfs.SpendDetail{SpendingTx: tx, SpenderInputIndex: 0}
}

func TestRedeemSecretFromWitnessExtractsRedeemSecret(t *testing.T) {
	secret, err := swap.NewSecret()
	require.NoError(t, err)

	witness := lnwallet.RedeemWitness([]byte("sig"), secret, []byte("witness-script"))
	spend := spendDetailWithWitness(witness)

	got, ok := redeemSecretFromWitness(spend)
	require.True(t, ok)
	require.Equal(t, secret, got)
}

func TestRedeemSecretFromWitnessRejectsRefundShape(t *testing.T) {
	witness := lnwallet.RefundWitness([]byte("sig"), []byte("witness-script"))
	spend := spendDetailWithWitness(witness)

	_, ok := redeemSecretFromWitness(spend)
	require.False(t, ok)
}

func TestRedeemSecretFromWitnessRejectsMissingSpendingTx(t *testing.T) {
	spend := &chainntfs.SpendDetail{SpendingTx: nil}

	_, ok := redeemSecretFromWitness(spend)
	require.False(t, ok)
}

func TestRedeemSecretFromWitnessRejectsWrongSecretLength(t *testing.T) {
	witness := wire.TxWitness{
		[]byte("sig"),
		[]byte("too-short"),
		{1},
		[]byte("witness-script"),
	}
	spend := spendDetailWithWitness(witness)

	_, ok := redeemSecretFromWitness(spend)
	require.False(t, ok)
}
