// Package herc20 composes lnwallet's Ethereum primitives and
// contractcourt's Herc20Watcher into the concrete deploy/fund/redeem/
// refund actions the swap engine drives through htlcswitch's
// idempotent action layer, mirroring nectar's herc20.rs module
// (original_source, src/swap/comit/herc20.rs).
package herc20

import (
	"context"
	"fmt"

	"github.com/comit-network/swapd/contractcourt"
	"github.com/comit-network/swapd/lnwallet"
	"github.com/comit-network/swapd/swap"
	"github.com/ethereum/go-ethereum/common"
)

// fundSelector stands in for the deployed HTLC template's deposit()
// entry point, distinguishing a fund call's call data from a redeem
// call's 32-byte secret or a refund call's empty data.
var fundSelector = []byte{0xd0, 0xe3, 0x0d, 0xb0}

// Actor bundles the wallet and watcher a role needs to drive the
// Ethereum leg of a swap.
type Actor struct {
	Wallet   lnwallet.EthereumWallet
	Watcher  *contractcourt.Herc20Watcher
	NumConfs uint64
}

// NewActor builds an Actor over the given wallet and watcher.
func NewActor(wallet lnwallet.EthereumWallet, watcher *contractcourt.Herc20Watcher, numConfs uint64) *Actor {
	return &Actor{Wallet: wallet, Watcher: watcher, NumConfs: numConfs}
}

// Deploy deploys the HTLC contract encoding params' immutable
// constants and waits for it to reach NumConfs.
func (a *Actor) Deploy(ctx context.Context, params swap.Herc20Params) (swap.Herc20Deployed, error) {
	bytecode := contractcourt.BuildHtlcBytecode(params)

	deployed, err := a.Wallet.DeployContract(ctx, bytecode)
	if err != nil {
		return swap.Herc20Deployed{}, fmt.Errorf("deploy herc20 htlc: %w", err)
	}
	if err := a.Wallet.WaitUntilConfirmed(ctx, deployed.Transaction, a.NumConfs); err != nil {
		return swap.Herc20Deployed{}, fmt.Errorf("wait for herc20 deploy confirmation: %w", err)
	}

	return swap.Herc20Deployed{Transaction: deployed.Transaction, Location: deployed.Address}, nil
}

// AwaitDeployed waits for the counterparty's deploy, starting the scan
// at fromBlock (the block the setup-swap handshake completed in).
func (a *Actor) AwaitDeployed(ctx context.Context, params swap.Herc20Params, deployer common.Address, fromBlock uint64) (swap.Herc20Deployed, error) {
	return a.Watcher.WatchDeployed(ctx, params, deployer, fromBlock)
}

// Fund sends params.Asset.Quantity to the deployed HTLC. The daemon's
// narrow Ethereum wallet surface models a value transfer uniformly: the
// quantity is sent as the call's value, with no ERC-20
// approve/transferFrom step.
func (a *Actor) Fund(ctx context.Context, params swap.Herc20Params, deployed swap.Herc20Deployed) (swap.Herc20Funded, error) {
	call := lnwallet.ContractCall{Contract: deployed.Location, Data: fundSelector, Value: params.Asset.Quantity}
	if _, err := a.Wallet.CallContract(ctx, call); err != nil {
		return swap.Herc20Funded{}, fmt.Errorf("fund herc20 htlc: %w", err)
	}

	return a.Watcher.WatchFunded(ctx, params, deployed)
}

// AwaitFunded waits for the counterparty's funding call.
func (a *Actor) AwaitFunded(ctx context.Context, params swap.Herc20Params, deployed swap.Herc20Deployed) (swap.Herc20Funded, error) {
	return a.Watcher.WatchFunded(ctx, params, deployed)
}

// Redeem calls the deployed HTLC's redeem entry point with secret.
func (a *Actor) Redeem(ctx context.Context, params swap.Herc20Params, deployed swap.Herc20Deployed, secret swap.Secret) (swap.Herc20Redeemed, error) {
	call := lnwallet.ContractCall{Contract: deployed.Location, Data: secret[:]}
	if _, err := a.Wallet.CallContract(ctx, call); err != nil {
		return swap.Herc20Redeemed{}, fmt.Errorf("call herc20 redeem: %w", err)
	}

	return a.Watcher.WatchRedeemed(ctx, params, deployed)
}

// AwaitRedeemed waits for the counterparty's redeem, which reveals the
// secret the other leg's redeem needs.
func (a *Actor) AwaitRedeemed(ctx context.Context, params swap.Herc20Params, deployed swap.Herc20Deployed) (swap.Herc20Redeemed, error) {
	return a.Watcher.WatchRedeemed(ctx, params, deployed)
}

// Refund calls the deployed HTLC's refund entry point.
func (a *Actor) Refund(ctx context.Context, deployed swap.Herc20Deployed) (swap.Herc20Refunded, error) {
	call := lnwallet.ContractCall{Contract: deployed.Location}
	if _, err := a.Wallet.CallContract(ctx, call); err != nil {
		return swap.Herc20Refunded{}, fmt.Errorf("call herc20 refund: %w", err)
	}

	return a.Watcher.WatchRefunded(ctx, deployed)
}
