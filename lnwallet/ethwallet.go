package lnwallet

import (
	"context"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil/hdkeychain"
	"github.com/comit-network/swapd/swap"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
)

// EthWallet implements EthereumWallet against an Ethereum JSON-RPC node
// via go-ethereum's ethclient and accounts/abi/bind, the Ethereum
// counterpart to lnwallet.WalletController's role for the Bitcoin leg.
type EthWallet struct {
	client *ethclient.Client
	auth   *bind.TransactOpts

	// nonceMu serializes CallContract/DeployContract so only one pending
	// nonce is ever outstanding per account.
	nonceMu sync.Mutex

	rootKey *hdkeychain.ExtendedKey
}

// NewEthWallet wraps an ethclient and a signing identity with the given
// key-derivation root.
func NewEthWallet(client *ethclient.Client, auth *bind.TransactOpts, rootKey *hdkeychain.ExtendedKey) *EthWallet {
	return &EthWallet{client: client, auth: auth, rootKey: rootKey}
}

// OwnAddress returns the address this wallet signs transactions from.
func (w *EthWallet) OwnAddress() common.Address {
	return w.auth.From
}

// DeployContract deploys bytecode with no constructor arguments (the
// herc20 HTLC template embeds its parameters as immutables baked into
// the bytecode itself) and waits for it to be mined.
func (w *EthWallet) DeployContract(ctx context.Context, bytecode []byte) (*DeployedContract, error) {
	w.nonceMu.Lock()
	defer w.nonceMu.Unlock()

	balance, err := w.client.BalanceAt(ctx, w.auth.From, nil)
	if err != nil {
		return nil, fmt.Errorf("get balance: %w", err)
	}

	gasPrice, err := w.client.SuggestGasPrice(ctx)
	if err != nil {
		return nil, fmt.Errorf("suggest gas price: %w", err)
	}
	if balance.Cmp(new(big.Int).Mul(gasPrice, big.NewInt(3_000_000))) < 0 {
		return nil, swap.ErrInsufficientFunds
	}

	txOpts := *w.auth
	txOpts.Context = ctx

	tx, err := bind.NewBoundContract(common.Address{}, nil, w.client, w.client, w.client).
		DeployContract(&txOpts, bytecode)
	if err != nil {
		return nil, fmt.Errorf("deploy herc20 htlc: %w", err)
	}

	receipt, err := bind.WaitMined(ctx, w.client, tx)
	if err != nil {
		return nil, fmt.Errorf("wait for deploy to mine: %w", err)
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return nil, fmt.Errorf("deploy transaction %s reverted", tx.Hash())
	}

	return &DeployedContract{Transaction: tx.Hash(), Address: receipt.ContractAddress}, nil
}

// CallContract signs and sends a call to an already-deployed HTLC, one
// at a time per account.
func (w *EthWallet) CallContract(ctx context.Context, call ContractCall) (*types.Receipt, error) {
	w.nonceMu.Lock()
	defer w.nonceMu.Unlock()

	txOpts := *w.auth
	txOpts.Context = ctx
	if call.Value != nil {
		txOpts.Value = call.Value
	}

	boundContract := bind.NewBoundContract(call.Contract, nil, w.client, w.client, w.client)
	tx, err := boundContract.RawTransact(&txOpts, call.Data)
	if err != nil {
		return nil, fmt.Errorf("call contract %s: %w", call.Contract, err)
	}

	receipt, err := bind.WaitMined(ctx, w.client, tx)
	if err != nil {
		return nil, fmt.Errorf("wait for call to mine: %w", err)
	}
	return receipt, nil
}

// WaitUntilConfirmed is a side-effect-free retry loop.
func (w *EthWallet) WaitUntilConfirmed(ctx context.Context, txHash common.Hash, numConfs uint64) error {
	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()

	for {
		receipt, err := w.client.TransactionReceipt(ctx, txHash)
		if err == nil {
			tip, tipErr := w.client.BlockNumber(ctx)
			if tipErr == nil && tip >= receipt.BlockNumber.Uint64()+numConfs-1 {
				return nil
			}
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// DeriveTransientKey derives the hardened child key at index from the
// wallet's root extended key, shared with the Bitcoin side's key
// hierarchy so a single seed backs both legs.
func (w *EthWallet) DeriveTransientKey(index uint32) (*btcec.PrivateKey, error) {
	child, err := w.rootKey.Derive(hdkeychain.HardenedKeyStart + index)
	if err != nil {
		return nil, fmt.Errorf("derive transient key at index %d: %w", index, err)
	}
	return child.ECPrivKey()
}
