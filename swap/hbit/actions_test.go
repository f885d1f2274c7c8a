package hbit_test

import (
	"context"
	"testing"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	"github.com/btcsuite/btclog"
	"github.com/comit-network/swapd/chainntfs"
	"github.com/comit-network/swapd/contractcourt"
	"github.com/comit-network/swapd/lnwallet"
	"github.com/comit-network/swapd/swap"
	"github.com/comit-network/swapd/swap/hbit"
	"github.com/stretchr/testify/require"
)

func mustKey(t *testing.T) *btcec.PrivateKey {
	t.Helper()
	key, err := btcec.NewPrivateKey()
	require.NoError(t, err)
	return key
}

func testParams(t *testing.T) (swap.HbitParams, swap.Secret, *btcec.PrivateKey, *btcec.PrivateKey) {
	t.Helper()
	secret, err := swap.NewSecret()
	require.NoError(t, err)

	redeemKey := mustKey(t)
	refundKey := mustKey(t)

	return swap.HbitParams{
		Network:        &chaincfg.RegressionNetParams,
		AssetSats:      250_000,
		RedeemIdentity: redeemKey.PubKey(),
		RefundIdentity: refundKey.PubKey(),
		ExpiryUnix:     500_000_000,
		SecretHash:     secret.Hash(),
	}, secret, redeemKey, refundKey
}

func destAddr(t *testing.T, network *chaincfg.Params) btcutil.Address {
	t.Helper()
	key := mustKey(t)
	hash := btcutil.Hash160(key.PubKey().SerializeCompressed())
	addr, err := btcutil.NewAddressWitnessPubKeyHash(hash, network)
	require.NoError(t, err)
	return addr
}

// fakeWallet implements lnwallet.BitcoinWallet, recording the most
// recently broadcast transaction so a test can feed it back into the
// fake connector's spend notification.
type fakeWallet struct {
	sendOutpoint    *wire.OutPoint
	sendErr         error
	confirmErr      error
	sentTx          *wire.MsgTx
	sendRawErr      error
	derivedKey      *btcec.PrivateKey
	derivedKeyErr   error
}

func (w *fakeWallet) SendToAddress(ctx context.Context, addr btcutil.Address, amount btcutil.Amount, network *chaincfg.Params) (*wire.OutPoint, error) {
	return w.sendOutpoint, w.sendErr
}

func (w *fakeWallet) SendRawTransaction(ctx context.Context, tx *wire.MsgTx) (*wire.MsgTx, error) {
	w.sentTx = tx
	return tx, w.sendRawErr
}

func (w *fakeWallet) WaitUntilConfirmed(ctx context.Context, outpoint wire.OutPoint, numConfs uint32) error {
	return w.confirmErr
}

func (w *fakeWallet) DeriveTransientKey(index uint32) (*btcec.PrivateKey, error) {
	return w.derivedKey, w.derivedKeyErr
}

// fakeConnector implements chainntfs.BitcoinConnector, serving
// pre-seeded funding outputs and lazily-constructed spend events built
// from whatever the test's fake wallet has broadcast by the time
// RegisterSpendNtfn is called.
type fakeConnector struct {
	fundingOutputs []chainntfs.FundingOutput
	spendFromTx    func() *wire.MsgTx
}

func (c *fakeConnector) MedianTimePast(ctx context.Context) (int64, error) {
	panic("not used by this test")
}

// BlockHashByHeight returns the zero hash, matching the zero-value
// BlockHash every fundingOutputs literal in this file leaves unset, so
// WatchFunded's best-chain re-verification passes without every test
// needing to wire up a realistic block hash.
func (c *fakeConnector) BlockHashByHeight(ctx context.Context, height int32) (*chainhash.Hash, error) {
	return &chainhash.Hash{}, nil
}

func (c *fakeConnector) RegisterConfirmationsNtfn(ctx context.Context, txid *chainhash.Hash, pkScript []byte, numConfs uint32) (*chainntfs.ConfirmationEvent, error) {
	panic("not used by this test")
}

func (c *fakeConnector) RegisterSpendNtfn(ctx context.Context, outpoint *wire.OutPoint, pkScript []byte) (*chainntfs.SpendEvent, error) {
	tx := c.spendFromTx()
	hash := tx.TxHash()
	ch := make(chan *chainntfs.SpendDetail, 1)
	ch <- &chainntfs.SpendDetail{
		SpentOutPoint:     outpoint,
		SpenderTxHash:     &hash,
		SpendingTx:        tx,
		SpenderInputIndex: 0,
	}
	return &chainntfs.SpendEvent{Spend: ch}, nil
}

func (c *fakeConnector) WatchAddress(ctx context.Context, address btcutil.Address) error {
	return nil
}

func (c *fakeConnector) FindFundingOutputs(ctx context.Context, address btcutil.Address) ([]chainntfs.FundingOutput, error) {
	return c.fundingOutputs, nil
}

func (c *fakeConnector) Start() error { panic("not used by this test") }
func (c *fakeConnector) Stop() error  { panic("not used by this test") }

func TestActorFundBroadcastsAndWaitsForWatcherConfirmation(t *testing.T) {
	params, _, _, _ := testParams(t)
	outpoint := wire.OutPoint{Hash: chainhash.Hash{1}, Index: 0}

	wallet := &fakeWallet{sendOutpoint: &outpoint}
	conn := &fakeConnector{
		fundingOutputs: []chainntfs.FundingOutput{{Outpoint: outpoint, Value: params.AssetSats}},
	}
	watcher := contractcourt.NewHbitWatcher(conn, btclog.Disabled)
	actor := hbit.NewActor(wallet, watcher, 2000, 50_000, 1)

	funded, err := actor.Fund(context.Background(), params)
	require.NoError(t, err)
	require.Equal(t, swap.FundedCorrectly, funded.Status)
	require.Equal(t, outpoint, funded.Location.Txid)
}

func TestActorAwaitFundedNeverBroadcasts(t *testing.T) {
	params, _, _, _ := testParams(t)
	outpoint := wire.OutPoint{Hash: chainhash.Hash{2}, Index: 0}

	wallet := &fakeWallet{}
	conn := &fakeConnector{
		fundingOutputs: []chainntfs.FundingOutput{{Outpoint: outpoint, Value: params.AssetSats}},
	}
	watcher := contractcourt.NewHbitWatcher(conn, btclog.Disabled)
	actor := hbit.NewActor(wallet, watcher, 2000, 50_000, 1)

	funded, err := actor.AwaitFunded(context.Background(), params)
	require.NoError(t, err)
	require.Equal(t, swap.FundedCorrectly, funded.Status)
	require.Nil(t, wallet.sentTx)
}

func TestActorRedeemBroadcastsRedeemWitnessAndReportsSecret(t *testing.T) {
	params, secret, redeemKey, _ := testParams(t)
	outpoint := wire.OutPoint{Hash: chainhash.Hash{3}, Index: 0}
	funded := swap.HbitFunded{Status: swap.FundedCorrectly, AssetSat: int64(params.AssetSats), Location: swap.HbitLocation{Txid: outpoint}}

	wallet := &fakeWallet{}
	conn := &fakeConnector{spendFromTx: func() *wire.MsgTx { return wallet.sentTx }}
	watcher := contractcourt.NewHbitWatcher(conn, btclog.Disabled)
	actor := hbit.NewActor(wallet, watcher, 2000, 50_000, 1)

	redeemed, err := actor.Redeem(context.Background(), params, funded, secret, redeemKey, destAddr(t, params.Network))
	require.NoError(t, err)
	require.Equal(t, secret, redeemed.Secret)
	require.NotNil(t, wallet.sentTx)
}

func TestActorRefundBroadcastsRefundWitness(t *testing.T) {
	params, _, _, refundKey := testParams(t)
	outpoint := wire.OutPoint{Hash: chainhash.Hash{4}, Index: 0}
	funded := swap.HbitFunded{Status: swap.FundedCorrectly, AssetSat: int64(params.AssetSats), Location: swap.HbitLocation{Txid: outpoint}}

	wallet := &fakeWallet{}
	conn := &fakeConnector{spendFromTx: func() *wire.MsgTx { return wallet.sentTx }}
	watcher := contractcourt.NewHbitWatcher(conn, btclog.Disabled)
	actor := hbit.NewActor(wallet, watcher, 2000, 50_000, 1)

	refunded, err := actor.Refund(context.Background(), params, funded, refundKey, destAddr(t, params.Network))
	require.NoError(t, err)
	require.NotNil(t, wallet.sentTx)
	require.Equal(t, wallet.sentTx.TxHash(), refunded.Transaction)
}
