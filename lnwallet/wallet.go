package lnwallet

import (
	"context"
	"math/big"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/wire"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// BitcoinWallet is the narrow surface the hbit leg's actions are built
// on. Kept deliberately small: everything beyond send/sign/wait lives
// in the watcher and the state machine, not here.
type BitcoinWallet interface {
	// SendToAddress funds a new output of amount at addr on network,
	// choosing inputs and change itself, and returns the broadcast
	// transaction's txid.
	SendToAddress(ctx context.Context, addr btcutil.Address, amount btcutil.Amount, network *chaincfg.Params) (*wire.OutPoint, error)

	// SendRawTransaction broadcasts a fully-signed transaction.
	SendRawTransaction(ctx context.Context, tx *wire.MsgTx) (*wire.MsgTx, error)

	// WaitUntilConfirmed blocks, retrying with backoff, until outpoint's
	// funding transaction has the configured number of confirmations.
	WaitUntilConfirmed(ctx context.Context, outpoint wire.OutPoint, numConfs uint32) error

	// DeriveTransientKey derives the per-swap keypair at index from the
	// wallet's root seed, deterministically so a crashed daemon can
	// re-derive the same key after restart.
	DeriveTransientKey(index uint32) (*btcec.PrivateKey, error)
}

// DeployedContract is the result of deploying the herc20 HTLC: the
// transaction that created it and the address it was assigned.
type DeployedContract struct {
	Transaction common.Hash
	Address     common.Address
}

// ContractCall is a signed call to an already-deployed herc20 HTLC:
// empty Data for refund, the 32-byte secret for redeem, a deposit
// selector plus Value for fund. Value is nil for calls that carry no
// ether.
type ContractCall struct {
	Contract common.Address
	Data     []byte
	Value    *big.Int
}

// EthereumWallet is the narrow surface the herc20 leg's actions are
// built on.
type EthereumWallet interface {
	// DeployContract deploys the herc20 HTLC bytecode built from params
	// and returns once it is mined.
	DeployContract(ctx context.Context, bytecode []byte) (*DeployedContract, error)

	// CallContract signs, sends, and waits for call to be mined, serialized
	// against every other pending call from this account so only one
	// nonce is ever in flight at a time.
	CallContract(ctx context.Context, call ContractCall) (*types.Receipt, error)

	// WaitUntilConfirmed blocks until txHash has the configured number
	// of block confirmations past the block it was mined in.
	WaitUntilConfirmed(ctx context.Context, txHash common.Hash, numConfs uint64) error

	// DeriveTransientKey derives the per-swap keypair at index from the
	// wallet's root seed.
	DeriveTransientKey(index uint32) (*btcec.PrivateKey, error)

	// OwnAddress returns the address this wallet signs transactions
	// from, used as the herc20 redeem/refund identity for whichever
	// role this daemon is playing.
	OwnAddress() common.Address
}
