// Package chainntfs defines the two ledger-time/event connectors the
// rest of the engine watches through: BitcoinConnector and
// EthereumConnector. Shape and lifecycle follow the original
// ChainNotifier's conventions: Start/Stop lifecycle, confirmation and
// spend registration returning a buffered-channel event struct the
// caller selects on.
package chainntfs

import (
	"context"
	"math/big"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	"github.com/ethereum/go-ethereum/common"
	gethtypes "github.com/ethereum/go-ethereum/core/types"
)

// FundingOutput reports a confirmed output found paying a watched
// address, consumed by the hbit watcher's watch_for_funded step.
// BlockHash/BlockHeight pin the block the output was confirmed in, so
// the watcher can re-verify that block is still on the best chain
// before treating the output as final.
type FundingOutput struct {
	Outpoint    wire.OutPoint
	Value       btcutil.Amount
	BlockHash   chainhash.Hash
	BlockHeight int32
}

// ConfirmationEvent is sent upon once the registered transaction reaches
// the requested depth, or receives a negative confirmation if the chain
// reorganizes it out (grounded on chainntfs.go's ConfirmationEvent).
type ConfirmationEvent struct {
	Confirmed    chan int32 // MUST be buffered.
	NegativeConf chan int32 // MUST be buffered.
}

// SpendDetail reports how a watched outpoint was spent.
// SpendingBlockHash pins the block the spend was found in; it is the
// zero hash when the connector cannot determine it (BtcdConnector never
// sets it), in which case no reorg re-verification of the
// spend is possible and it is trusted as reported.
type SpendDetail struct {
	SpentOutPoint     *wire.OutPoint
	SpenderTxHash     *chainhash.Hash
	SpendingTx        *wire.MsgTx
	SpenderInputIndex uint32
	SpendingHeight    int32
	SpendingBlockHash chainhash.Hash
}

// SpendEvent is sent upon once the target outpoint is spent in a
// confirmed transaction.
type SpendEvent struct {
	Spend chan *SpendDetail // MUST be buffered.
}

// BitcoinConnector is the Bitcoin-side time and event source the hbit
// watchers and the idempotent action layer depend on.
type BitcoinConnector interface {
	// MedianTimePast returns the current median-time-past, the clock the
	// hbit HTLC script's OP_CHECKLOCKTIMEVERIFY branch is compared
	// against.
	MedianTimePast(ctx context.Context) (int64, error)

	// BlockHashByHeight returns the hash of the best chain's block at
	// height, used to re-verify a previously observed match (a funding
	// output, a spend) still sits on the best chain before a watcher
	// treats it as final.
	BlockHashByHeight(ctx context.Context, height int32) (*chainhash.Hash, error)

	// RegisterConfirmationsNtfn requests a notification once txid
	// reaches numConfs confirmations.
	RegisterConfirmationsNtfn(ctx context.Context, txid *chainhash.Hash, pkScript []byte, numConfs uint32) (*ConfirmationEvent, error)

	// RegisterSpendNtfn requests a notification once outpoint is spent
	// by a confirmed transaction.
	RegisterSpendNtfn(ctx context.Context, outpoint *wire.OutPoint, pkScript []byte) (*SpendEvent, error)

	// WatchAddress marks address as watch-only so outputs paying it
	// become visible to FindFundingOutputs, the way the hbit watcher
	// discovers a counterparty's funding transaction without already
	// knowing its outpoint.
	WatchAddress(ctx context.Context, address btcutil.Address) error

	// FindFundingOutputs returns every confirmed, unspent output paying
	// address. Called repeatedly by the hbit watcher's funded-polling
	// loop; an empty result is not an error.
	FindFundingOutputs(ctx context.Context, address btcutil.Address) ([]FundingOutput, error)

	Start() error
	Stop() error
}

// EthereumConnector is the Ethereum-side time and event source the
// herc20 watchers depend on.
type EthereumConnector interface {
	// LatestBlockTimestamp returns block.timestamp for the chain tip,
	// the clock the herc20 HTLC contract's expiry check is compared
	// against.
	LatestBlockTimestamp(ctx context.Context) (uint64, error)

	// BlockHashByNumber returns the hash of the best chain's block at
	// number, used to re-verify a previously observed match (a
	// deployment, a redeem/refund call) still sits on the best chain
	// before a watcher treats it as final.
	BlockHashByNumber(ctx context.Context, number uint64) (common.Hash, error)

	// ReceiptByHash returns the transaction receipt for txHash once
	// mined, used to confirm a deploy/fund/redeem/refund call landed and
	// to read back the contract address a deploy created.
	ReceiptByHash(ctx context.Context, txHash common.Hash) (*gethtypes.Receipt, error)

	// WaitMined returns txHash's receipt once it has receiptConfs
	// confirmations, counting the block it was mined in. EthClientConnector
	// checks once and does not wait: it returns an error when the
	// transaction is not yet mined or has fewer confirmations.
	WaitMined(ctx context.Context, txHash common.Hash, receiptConfs uint64) (*gethtypes.Receipt, error)

	// CodeAt returns the deployed bytecode at addr, used by the funded
	// watcher to tell "contract not yet deployed" apart from "contract
	// deployed but not yet funded".
	CodeAt(ctx context.Context, addr common.Address) ([]byte, error)

	// BalanceAt returns the ETH or ERC-20 token balance backing the
	// herc20 HTLC, used by the funded watcher's FundedCorrectly/
	// FundedIncorrectly classification. token is the zero address for
	// native ether.
	BalanceAt(ctx context.Context, token, holder common.Address) (*big.Int, error)

	// TransactionsTo scans blocks from fromBlock through the chain tip
	// for transactions addressed to addr, used by the herc20 watcher to
	// find the redeem/refund call and read its call data.
	TransactionsTo(ctx context.Context, addr common.Address, fromBlock uint64) ([]*gethtypes.Transaction, error)

	// ContractCreationsBy scans blocks from fromBlock through the chain
	// tip for contract-creation transactions sent by from, used by the
	// herc20 watcher to find the counterparty's deploy transaction.
	ContractCreationsBy(ctx context.Context, from common.Address, fromBlock, chainID uint64) ([]*gethtypes.Transaction, error)
}
