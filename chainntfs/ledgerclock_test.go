package chainntfs_test

import (
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	"github.com/comit-network/swapd/chainntfs"
	"github.com/ethereum/go-ethereum/common"
	gethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/require"
)

// stubBitcoinConnector implements chainntfs.BitcoinConnector with only
// MedianTimePast wired; the other methods are unreachable from
// BitcoinClock.CurrentTime and panic if ever called.
type stubBitcoinConnector struct {
	mtp    int64
	mtpErr error
}

func (s stubBitcoinConnector) MedianTimePast(ctx context.Context) (int64, error) {
	return s.mtp, s.mtpErr
}
func (s stubBitcoinConnector) BlockHashByHeight(ctx context.Context, height int32) (*chainhash.Hash, error) {
	panic("not used by this test")
}
func (s stubBitcoinConnector) RegisterConfirmationsNtfn(ctx context.Context, txid *chainhash.Hash, pkScript []byte, numConfs uint32) (*chainntfs.ConfirmationEvent, error) {
	panic("not used by this test")
}
func (s stubBitcoinConnector) RegisterSpendNtfn(ctx context.Context, outpoint *wire.OutPoint, pkScript []byte) (*chainntfs.SpendEvent, error) {
	panic("not used by this test")
}
func (s stubBitcoinConnector) WatchAddress(ctx context.Context, address btcutil.Address) error {
	panic("not used by this test")
}
func (s stubBitcoinConnector) FindFundingOutputs(ctx context.Context, address btcutil.Address) ([]chainntfs.FundingOutput, error) {
	panic("not used by this test")
}
func (s stubBitcoinConnector) Start() error { panic("not used by this test") }
func (s stubBitcoinConnector) Stop() error  { panic("not used by this test") }

// stubEthereumConnector implements chainntfs.EthereumConnector with only
// LatestBlockTimestamp wired.
type stubEthereumConnector struct {
	ts    uint64
	tsErr error
}

func (s stubEthereumConnector) LatestBlockTimestamp(ctx context.Context) (uint64, error) {
	return s.ts, s.tsErr
}
func (s stubEthereumConnector) BlockHashByNumber(ctx context.Context, number uint64) (common.Hash, error) {
	panic("not used by this test")
}
func (s stubEthereumConnector) ReceiptByHash(ctx context.Context, txHash common.Hash) (*gethtypes.Receipt, error) {
	panic("not used by this test")
}
func (s stubEthereumConnector) WaitMined(ctx context.Context, txHash common.Hash, receiptConfs uint64) (*gethtypes.Receipt, error) {
	panic("not used by this test")
}
func (s stubEthereumConnector) CodeAt(ctx context.Context, addr common.Address) ([]byte, error) {
	panic("not used by this test")
}
func (s stubEthereumConnector) BalanceAt(ctx context.Context, token, holder common.Address) (*big.Int, error) {
	panic("not used by this test")
}
func (s stubEthereumConnector) TransactionsTo(ctx context.Context, addr common.Address, fromBlock uint64) ([]*gethtypes.Transaction, error) {
	panic("not used by this test")
}
func (s stubEthereumConnector) ContractCreationsBy(ctx context.Context, from common.Address, fromBlock, chainID uint64) ([]*gethtypes.Transaction, error) {
	panic("not used by this test")
}

func TestBitcoinClockCurrentTime(t *testing.T) {
	conn := stubBitcoinConnector{mtp: 1_700_000_000}
	clock := chainntfs.BitcoinClock{Connector: conn}

	got, err := clock.CurrentTime(context.Background())
	require.NoError(t, err)
	require.Equal(t, time.Unix(1_700_000_000, 0), got)
}

func TestBitcoinClockPropagatesConnectorError(t *testing.T) {
	wantErr := errors.New("rpc unavailable")
	conn := stubBitcoinConnector{mtpErr: wantErr}
	clock := chainntfs.BitcoinClock{Connector: conn}

	_, err := clock.CurrentTime(context.Background())
	require.ErrorIs(t, err, wantErr)
}

func TestEthereumClockCurrentTime(t *testing.T) {
	conn := stubEthereumConnector{ts: 1_700_000_123}
	clock := chainntfs.EthereumClock{Connector: conn}

	got, err := clock.CurrentTime(context.Background())
	require.NoError(t, err)
	require.Equal(t, time.Unix(1_700_000_123, 0), got)
}

func TestEthereumClockPropagatesConnectorError(t *testing.T) {
	wantErr := errors.New("rpc unavailable")
	conn := stubEthereumConnector{tsErr: wantErr}
	clock := chainntfs.EthereumClock{Connector: conn}

	_, err := clock.CurrentTime(context.Background())
	require.ErrorIs(t, err, wantErr)
}
