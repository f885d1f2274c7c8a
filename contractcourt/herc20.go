package contractcourt

import (
	"context"
	"fmt"

	"github.com/btcsuite/btclog"
	"github.com/comit-network/swapd/chainntfs"
	"github.com/comit-network/swapd/swap"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// Herc20Watcher turns EthereumConnector feeds into the typed events the
// herc20 leg of a swap state machine waits on.
type Herc20Watcher struct {
	connector chainntfs.EthereumConnector
	log       btclog.Logger
}

// NewHerc20Watcher builds a Herc20Watcher over the given connector.
func NewHerc20Watcher(connector chainntfs.EthereumConnector, log btclog.Logger) *Herc20Watcher {
	return &Herc20Watcher{connector: connector, log: log}
}

// WatchDeployed watches for a contract-creation transaction sent by
// deployer, starting at fromBlock, whose deployed code hash matches the
// bytecode params derives.
func (w *Herc20Watcher) WatchDeployed(ctx context.Context, params swap.Herc20Params, deployer common.Address, fromBlock uint64) (swap.Herc20Deployed, error) {
	expectedHash := ExpectedHtlcCodeHash(params)

	return pollUntilStable(ctx, w.log, pollInterval, func() (swap.Herc20Deployed, func(context.Context) (bool, error), bool, error) {
		candidates, err := w.connector.ContractCreationsBy(ctx, deployer, fromBlock, params.ChainID)
		if err != nil {
			return swap.Herc20Deployed{}, nil, false, err
		}

		for _, tx := range candidates {
			receipt, err := w.connector.ReceiptByHash(ctx, tx.Hash())
			if err != nil {
				continue
			}
			if receipt.ContractAddress == (common.Address{}) {
				continue
			}

			code, err := w.connector.CodeAt(ctx, receipt.ContractAddress)
			if err != nil {
				continue
			}
			if crypto.Keccak256Hash(code) != expectedHash {
				continue
			}

			result := swap.Herc20Deployed{
				Transaction: tx.Hash(),
				Location:    receipt.ContractAddress,
			}
			verify := w.verifyStillBestChain(receipt.BlockNumber.Uint64(), receipt.BlockHash)
			return result, verify, true, nil
		}

		return swap.Herc20Deployed{}, nil, false, nil
	})
}

// WatchFunded polls the deployed HTLC's balance until it is nonzero,
// then classifies it Correctly if it holds at least the declared
// quantity and Incorrectly otherwise, on that first nonzero poll. Unlike
// WatchDeployed/WatchRedeemed/WatchRefunded it never pins a historical
// block: every poll reads the HTLC's live balance off the current best
// chain, so a reorg that changes the balance is simply reflected on the
// next poll rather than requiring a separate re-verification step.
func (w *Herc20Watcher) WatchFunded(ctx context.Context, params swap.Herc20Params, deployed swap.Herc20Deployed) (swap.Herc20Funded, error) {
	return pollUntil(ctx, w.log, pollInterval, func() (swap.Herc20Funded, bool, error) {
		balance, err := w.connector.BalanceAt(ctx, params.Asset.Token, deployed.Location)
		if err != nil {
			return swap.Herc20Funded{}, false, err
		}
		if balance.Sign() == 0 {
			return swap.Herc20Funded{}, false, nil
		}

		status := swap.FundedIncorrectly
		if balance.Cmp(params.Asset.Quantity) >= 0 {
			status = swap.FundedCorrectly
		}

		return swap.Herc20Funded{
			Status:      status,
			Transaction: deployed.Transaction,
			Asset:       swap.Asset{Token: params.Asset.Token, Quantity: balance},
		}, true, nil
	})
}

// WatchRedeemed watches the deployed HTLC for a redeem call (32-byte
// call data carrying the secret), rejecting calls whose secret does not
// hash to params.SecretHash and continuing to watch.
func (w *Herc20Watcher) WatchRedeemed(ctx context.Context, params swap.Herc20Params, deployed swap.Herc20Deployed) (swap.Herc20Redeemed, error) {
	fromBlock, err := w.deployBlock(ctx, deployed)
	if err != nil {
		return swap.Herc20Redeemed{}, err
	}

	return pollUntilStable(ctx, w.log, pollInterval, func() (swap.Herc20Redeemed, func(context.Context) (bool, error), bool, error) {
		calls, err := w.connector.TransactionsTo(ctx, deployed.Location, fromBlock)
		if err != nil {
			return swap.Herc20Redeemed{}, nil, false, err
		}

		for _, tx := range calls {
			data := tx.Data()
			if len(data) != 32 {
				continue
			}

			var secret swap.Secret
			copy(secret[:], data)
			if !params.SecretHash.Matches(secret) {
				w.log.Warnf("herc20 redeem call %s carries a secret that does not "+
					"hash to the swap's secret hash; ignoring and continuing to watch",
					tx.Hash())
				continue
			}

			receipt, err := w.connector.ReceiptByHash(ctx, tx.Hash())
			if err != nil {
				continue
			}

			result := swap.Herc20Redeemed{Transaction: tx.Hash(), Secret: secret}
			verify := w.verifyStillBestChain(receipt.BlockNumber.Uint64(), receipt.BlockHash)
			return result, verify, true, nil
		}

		return swap.Herc20Redeemed{}, nil, false, nil
	})
}

// WatchRefunded watches the deployed HTLC for a refund call (empty call
// data).
func (w *Herc20Watcher) WatchRefunded(ctx context.Context, deployed swap.Herc20Deployed) (swap.Herc20Refunded, error) {
	fromBlock, err := w.deployBlock(ctx, deployed)
	if err != nil {
		return swap.Herc20Refunded{}, err
	}

	return pollUntilStable(ctx, w.log, pollInterval, func() (swap.Herc20Refunded, func(context.Context) (bool, error), bool, error) {
		calls, err := w.connector.TransactionsTo(ctx, deployed.Location, fromBlock)
		if err != nil {
			return swap.Herc20Refunded{}, nil, false, err
		}

		for _, tx := range calls {
			if len(tx.Data()) != 0 {
				continue
			}

			receipt, err := w.connector.ReceiptByHash(ctx, tx.Hash())
			if err != nil {
				continue
			}

			result := swap.Herc20Refunded{Transaction: tx.Hash()}
			verify := w.verifyStillBestChain(receipt.BlockNumber.Uint64(), receipt.BlockHash)
			return result, verify, true, nil
		}

		return swap.Herc20Refunded{}, nil, false, nil
	})
}

// verifyStillBestChain builds a pollUntilStable verify closure
// confirming that blockHash is still the connector's best-chain block
// at blockNumber, used to detect a reorg evicting a previously matched
// deploy/redeem/refund transaction before the watcher returns it.
func (w *Herc20Watcher) verifyStillBestChain(blockNumber uint64, blockHash common.Hash) func(context.Context) (bool, error) {
	return func(ctx context.Context) (bool, error) {
		current, err := w.connector.BlockHashByNumber(ctx, blockNumber)
		if err != nil {
			return false, err
		}
		return current == blockHash, nil
	}
}

func (w *Herc20Watcher) deployBlock(ctx context.Context, deployed swap.Herc20Deployed) (uint64, error) {
	receipt, err := w.connector.ReceiptByHash(ctx, deployed.Transaction)
	if err != nil {
		return 0, fmt.Errorf("fetch deploy receipt: %w", err)
	}
	return receipt.BlockNumber.Uint64(), nil
}
