package herc20_test

import (
	"context"
	"math/big"
	"testing"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btclog"
	"github.com/comit-network/swapd/contractcourt"
	"github.com/comit-network/swapd/lnwallet"
	"github.com/comit-network/swapd/swap"
	"github.com/comit-network/swapd/swap/herc20"
	"github.com/ethereum/go-ethereum/common"
	gethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/require"
)

func testHerc20Params(t *testing.T) (swap.Herc20Params, swap.Secret) {
	t.Helper()
	secret, err := swap.NewSecret()
	require.NoError(t, err)
	return swap.Herc20Params{
		Asset:          swap.Asset{Token: common.HexToAddress("0xA"), Quantity: big.NewInt(5000)},
		RedeemIdentity: common.HexToAddress("0xB"),
		RefundIdentity: common.HexToAddress("0xC"),
		ExpiryUnix:     1_700_000_000,
		SecretHash:     secret.Hash(),
		ChainID:        1,
	}, secret
}

// fakeWallet implements lnwallet.EthereumWallet, recording every call
// made against it.
type fakeWallet struct {
	deployed   *lnwallet.DeployedContract
	deployErr  error
	calls      []lnwallet.ContractCall
	callErr    error
	confirmErr error
	ownAddr    common.Address
}

func (w *fakeWallet) DeployContract(ctx context.Context, bytecode []byte) (*lnwallet.DeployedContract, error) {
	return w.deployed, w.deployErr
}

func (w *fakeWallet) CallContract(ctx context.Context, call lnwallet.ContractCall) (*gethtypes.Receipt, error) {
	w.calls = append(w.calls, call)
	return &gethtypes.Receipt{}, w.callErr
}

func (w *fakeWallet) WaitUntilConfirmed(ctx context.Context, txHash common.Hash, numConfs uint64) error {
	return w.confirmErr
}

func (w *fakeWallet) DeriveTransientKey(index uint32) (*btcec.PrivateKey, error) {
	return nil, nil
}

func (w *fakeWallet) OwnAddress() common.Address {
	return w.ownAddr
}

// fakeConnector implements chainntfs.EthereumConnector against
// pre-seeded responses.
type fakeConnector struct {
	receipts          map[common.Hash]*gethtypes.Receipt
	code              map[common.Address][]byte
	balances          map[common.Address]*big.Int
	transactionsTo    []*gethtypes.Transaction
	contractCreations []*gethtypes.Transaction
}

func newFakeConnector() *fakeConnector {
	return &fakeConnector{
		receipts: make(map[common.Hash]*gethtypes.Receipt),
		code:     make(map[common.Address][]byte),
		balances: make(map[common.Address]*big.Int),
	}
}

func (c *fakeConnector) LatestBlockTimestamp(ctx context.Context) (uint64, error) { return 0, nil }

// BlockHashByNumber returns the zero hash, matching the zero-value
// BlockHash every receipt literal in this file leaves unset, so the
// watchers' best-chain re-verification passes without every test
// needing to wire up a realistic block hash.
func (c *fakeConnector) BlockHashByNumber(ctx context.Context, number uint64) (common.Hash, error) {
	return common.Hash{}, nil
}

func (c *fakeConnector) ReceiptByHash(ctx context.Context, txHash common.Hash) (*gethtypes.Receipt, error) {
	return c.receipts[txHash], nil
}

func (c *fakeConnector) WaitMined(ctx context.Context, txHash common.Hash, receiptConfs uint64) (*gethtypes.Receipt, error) {
	return c.receipts[txHash], nil
}

func (c *fakeConnector) CodeAt(ctx context.Context, addr common.Address) ([]byte, error) {
	return c.code[addr], nil
}

func (c *fakeConnector) BalanceAt(ctx context.Context, token, holder common.Address) (*big.Int, error) {
	if b, ok := c.balances[holder]; ok {
		return b, nil
	}
	return big.NewInt(0), nil
}

func (c *fakeConnector) TransactionsTo(ctx context.Context, addr common.Address, fromBlock uint64) ([]*gethtypes.Transaction, error) {
	return c.transactionsTo, nil
}

func (c *fakeConnector) ContractCreationsBy(ctx context.Context, from common.Address, fromBlock, chainID uint64) ([]*gethtypes.Transaction, error) {
	return c.contractCreations, nil
}

func TestActorDeployWaitsForConfirmationAndReportsLocation(t *testing.T) {
	params, _ := testHerc20Params(t)
	deployTx := gethtypes.NewTransaction(0, common.Address{}, big.NewInt(0), 21000, big.NewInt(1), nil)
	htlcAddr := common.HexToAddress("0xE")

	wallet := &fakeWallet{deployed: &lnwallet.DeployedContract{Transaction: deployTx.Hash(), Address: htlcAddr}}
	watcher := contractcourt.NewHerc20Watcher(newFakeConnector(), btclog.Disabled)
	actor := herc20.NewActor(wallet, watcher, 1)

	deployed, err := actor.Deploy(context.Background(), params)
	require.NoError(t, err)
	require.Equal(t, htlcAddr, deployed.Location)
	require.Equal(t, deployTx.Hash(), deployed.Transaction)
}

func TestActorFundCallsDepositAndReportsFundedStatus(t *testing.T) {
	params, _ := testHerc20Params(t)
	deployed := swap.Herc20Deployed{Location: common.HexToAddress("0xE")}

	conn := newFakeConnector()
	conn.balances[deployed.Location] = params.Asset.Quantity
	wallet := &fakeWallet{}
	watcher := contractcourt.NewHerc20Watcher(conn, btclog.Disabled)
	actor := herc20.NewActor(wallet, watcher, 1)

	funded, err := actor.Fund(context.Background(), params, deployed)
	require.NoError(t, err)
	require.Equal(t, swap.FundedCorrectly, funded.Status)
	require.Len(t, wallet.calls, 1)
	require.Equal(t, deployed.Location, wallet.calls[0].Contract)
}

func TestActorRedeemCallsWithSecretAndReportsRedeemed(t *testing.T) {
	params, secret := testHerc20Params(t)
	deployTx := gethtypes.NewTransaction(0, common.Address{}, big.NewInt(0), 21000, big.NewInt(1), nil)
	deployed := swap.Herc20Deployed{Transaction: deployTx.Hash(), Location: common.HexToAddress("0xE")}

	conn := newFakeConnector()
	conn.receipts[deployTx.Hash()] = &gethtypes.Receipt{BlockNumber: big.NewInt(10)}
	redeemCall := gethtypes.NewTransaction(1, deployed.Location, big.NewInt(0), 21000, big.NewInt(1), secret[:])
	conn.transactionsTo = []*gethtypes.Transaction{redeemCall}
	conn.receipts[redeemCall.Hash()] = &gethtypes.Receipt{BlockNumber: big.NewInt(11)}

	wallet := &fakeWallet{}
	watcher := contractcourt.NewHerc20Watcher(conn, btclog.Disabled)
	actor := herc20.NewActor(wallet, watcher, 1)

	redeemed, err := actor.Redeem(context.Background(), params, deployed, secret)
	require.NoError(t, err)
	require.Equal(t, secret, redeemed.Secret)
	require.Len(t, wallet.calls, 1)
	require.Equal(t, secret[:], wallet.calls[0].Data)
}

func TestActorRefundCallsWithEmptyDataAndReportsRefunded(t *testing.T) {
	deployTx := gethtypes.NewTransaction(0, common.Address{}, big.NewInt(0), 21000, big.NewInt(1), nil)
	deployed := swap.Herc20Deployed{Transaction: deployTx.Hash(), Location: common.HexToAddress("0xE")}

	conn := newFakeConnector()
	conn.receipts[deployTx.Hash()] = &gethtypes.Receipt{BlockNumber: big.NewInt(10)}
	refundCall := gethtypes.NewTransaction(1, deployed.Location, big.NewInt(0), 21000, big.NewInt(1), nil)
	conn.transactionsTo = []*gethtypes.Transaction{refundCall}
	conn.receipts[refundCall.Hash()] = &gethtypes.Receipt{BlockNumber: big.NewInt(11)}

	wallet := &fakeWallet{}
	watcher := contractcourt.NewHerc20Watcher(conn, btclog.Disabled)
	actor := herc20.NewActor(wallet, watcher, 1)

	refunded, err := actor.Refund(context.Background(), deployed)
	require.NoError(t, err)
	require.Equal(t, refundCall.Hash(), refunded.Transaction)
	require.Len(t, wallet.calls, 1)
	require.Empty(t, wallet.calls[0].Data)
}
