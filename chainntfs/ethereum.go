package chainntfs

import (
	"context"
	"fmt"
	"math/big"

	"github.com/btcsuite/btclog"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	gethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"golang.org/x/time/rate"
)

// ethRPCRateLimit caps how many requests TransactionsTo and
// ContractCreationsBy issue per second while walking a block range,
// since a daemon resuming after downtime can otherwise try to replay
// thousands of GetBlockByNumber calls against the node in one burst.
const ethRPCRateLimit = 20

// erc20BalanceOfSelector is the first four bytes of
// keccak256("balanceOf(address)"), used to read an ERC-20 balance
// without pulling in a generated contract binding for a single call.
var erc20BalanceOfSelector = [4]byte{0x70, 0xa0, 0x82, 0x31}

// EthClientConnector implements EthereumConnector against an Ethereum
// JSON-RPC endpoint via go-ethereum's ethclient, the same client library
// used throughout this module's wallet and watcher code for the
// Ethereum leg.
type EthClientConnector struct {
	client  *ethclient.Client
	log     btclog.Logger
	limiter *rate.Limiter
}

// DialEthClient connects to rawURL (an HTTP or websocket JSON-RPC
// endpoint).
func DialEthClient(ctx context.Context, rawURL string, log btclog.Logger) (*EthClientConnector, error) {
	client, err := ethclient.DialContext(ctx, rawURL)
	if err != nil {
		return nil, fmt.Errorf("dial ethereum node: %w", err)
	}
	return &EthClientConnector{
		client:  client,
		log:     log,
		limiter: rate.NewLimiter(ethRPCRateLimit, ethRPCRateLimit),
	}, nil
}

func (c *EthClientConnector) LatestBlockTimestamp(ctx context.Context) (uint64, error) {
	header, err := c.client.HeaderByNumber(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("get latest header: %w", err)
	}
	return header.Time, nil
}

// BlockHashByNumber returns the best chain's block hash at number.
func (c *EthClientConnector) BlockHashByNumber(ctx context.Context, number uint64) (common.Hash, error) {
	header, err := c.client.HeaderByNumber(ctx, new(big.Int).SetUint64(number))
	if err != nil {
		return common.Hash{}, fmt.Errorf("get header at height %d: %w", number, err)
	}
	return header.Hash(), nil
}

func (c *EthClientConnector) ReceiptByHash(ctx context.Context, txHash common.Hash) (*gethtypes.Receipt, error) {
	receipt, err := c.client.TransactionReceipt(ctx, txHash)
	if err != nil {
		return nil, fmt.Errorf("get transaction receipt %s: %w", txHash, err)
	}
	return receipt, nil
}

func (c *EthClientConnector) WaitMined(ctx context.Context, txHash common.Hash, receiptConfs uint64) (*gethtypes.Receipt, error) {
	receipt, err := c.ReceiptByHash(ctx, txHash)
	if err != nil {
		return nil, err
	}

	tip, err := c.client.BlockNumber(ctx)
	if err != nil {
		return nil, fmt.Errorf("get chain tip: %w", err)
	}

	if tip < receipt.BlockNumber.Uint64()+receiptConfs-1 {
		return nil, fmt.Errorf("transaction %s has %d confirmations, need %d",
			txHash, tip-receipt.BlockNumber.Uint64()+1, receiptConfs)
	}

	return receipt, nil
}

func (c *EthClientConnector) CodeAt(ctx context.Context, addr common.Address) ([]byte, error) {
	code, err := c.client.CodeAt(ctx, addr, nil)
	if err != nil {
		return nil, fmt.Errorf("get code at %s: %w", addr, err)
	}
	return code, nil
}

// BalanceAt reads the native ether balance of holder when token is the
// zero address, otherwise the ERC-20 balanceOf(holder) on token.
func (c *EthClientConnector) BalanceAt(ctx context.Context, token, holder common.Address) (*big.Int, error) {
	if token == (common.Address{}) {
		balance, err := c.client.BalanceAt(ctx, holder, nil)
		if err != nil {
			return nil, fmt.Errorf("get ether balance of %s: %w", holder, err)
		}
		return balance, nil
	}

	calldata := make([]byte, 0, 36)
	calldata = append(calldata, erc20BalanceOfSelector[:]...)
	calldata = append(calldata, common.LeftPadBytes(holder.Bytes(), 32)...)

	result, err := c.client.CallContract(ctx, ethereum.CallMsg{
		To:   &token,
		Data: calldata,
	}, nil)
	if err != nil {
		return nil, fmt.Errorf("call balanceOf on %s: %w", token, err)
	}

	return new(big.Int).SetBytes(result), nil
}

// TransactionsTo walks blocks from fromBlock to the chain tip looking for
// transactions addressed to addr, the polling primitive the herc20
// watcher uses to discover a deploy, redeem, or refund call it did not
// itself submit.
func (c *EthClientConnector) TransactionsTo(ctx context.Context, addr common.Address, fromBlock uint64) ([]*gethtypes.Transaction, error) {
	tip, err := c.client.BlockNumber(ctx)
	if err != nil {
		return nil, fmt.Errorf("get chain tip: %w", err)
	}

	var found []*gethtypes.Transaction
	for height := fromBlock; height <= tip; height++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		block, err := c.client.BlockByNumber(ctx, new(big.Int).SetUint64(height))
		if err != nil {
			return nil, fmt.Errorf("get block %d: %w", height, err)
		}

		for _, tx := range block.Transactions() {
			if tx.To() != nil && *tx.To() == addr {
				found = append(found, tx)
			}
		}
	}
	return found, nil
}

// ContractCreationsBy walks blocks from fromBlock to the chain tip
// looking for contract-creation transactions (To == nil) sent by from,
// recovering the sender via the signer for chainID since go-ethereum's
// decoded transactions do not carry their sender directly.
func (c *EthClientConnector) ContractCreationsBy(ctx context.Context, from common.Address, fromBlock, chainID uint64) ([]*gethtypes.Transaction, error) {
	tip, err := c.client.BlockNumber(ctx)
	if err != nil {
		return nil, fmt.Errorf("get chain tip: %w", err)
	}

	signer := gethtypes.LatestSignerForChainID(new(big.Int).SetUint64(chainID))

	var found []*gethtypes.Transaction
	for height := fromBlock; height <= tip; height++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		block, err := c.client.BlockByNumber(ctx, new(big.Int).SetUint64(height))
		if err != nil {
			return nil, fmt.Errorf("get block %d: %w", height, err)
		}

		for _, tx := range block.Transactions() {
			if tx.To() != nil {
				continue
			}
			sender, err := gethtypes.Sender(signer, tx)
			if err != nil || sender != from {
				continue
			}
			found = append(found, tx)
		}
	}
	return found, nil
}
