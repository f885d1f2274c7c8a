package chainntfs

import (
	"context"
	"fmt"
	"time"

	"github.com/btcsuite/btclog"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/rpcclient"
	"github.com/btcsuite/btcd/wire"
	"golang.org/x/time/rate"
)

// pollInterval bounds how often BtcdConnector re-checks a registered
// confirmation or spend against btcd, since the underlying RPC client
// does not itself push spend notifications over this interface.
const pollInterval = 10 * time.Second

// btcdRPCRateLimit caps how many RPC calls this connector issues against
// btcd per second, so a pile-up of RegisterConfirmationsNtfn/
// RegisterSpendNtfn calls for the same busy daemon can't flood the node
// all firing on the same tick.
const btcdRPCRateLimit = 20

// BtcdConnector implements BitcoinConnector against a btcd full node's
// JSON-RPC interface via rpcclient, using synchronous polling in place
// of websocket notifications since rpcclient's notification callbacks
// require a persistent
// websocket connection this daemon treats as an optional optimization,
// not a correctness requirement.
type BtcdConnector struct {
	client  *rpcclient.Client
	log     btclog.Logger
	limiter *rate.Limiter

	quit chan struct{}
}

// NewBtcdConnector dials a btcd RPC endpoint with the given connection
// config.
func NewBtcdConnector(cfg *rpcclient.ConnConfig, log btclog.Logger) (*BtcdConnector, error) {
	cfg.HTTPPostMode = true

	client, err := rpcclient.New(cfg, nil)
	if err != nil {
		return nil, fmt.Errorf("dial btcd: %w", err)
	}

	return &BtcdConnector{
		client:  client,
		log:     log,
		limiter: rate.NewLimiter(btcdRPCRateLimit, btcdRPCRateLimit),
		quit:    make(chan struct{}),
	}, nil
}

func (c *BtcdConnector) Start() error {
	return nil
}

func (c *BtcdConnector) Stop() error {
	close(c.quit)
	c.client.Shutdown()
	return nil
}

// MedianTimePast returns the best block's median-time-past.
func (c *BtcdConnector) MedianTimePast(ctx context.Context) (int64, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return 0, err
	}

	info, err := c.client.GetBlockChainInfo()
	if err != nil {
		return 0, fmt.Errorf("get blockchain info: %w", err)
	}

	return info.MedianTime, nil
}

// BlockHashByHeight returns the best chain's block hash at height.
func (c *BtcdConnector) BlockHashByHeight(ctx context.Context, height int32) (*chainhash.Hash, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	hash, err := c.client.GetBlockHash(int64(height))
	if err != nil {
		return nil, fmt.Errorf("get block hash at height %d: %w", height, err)
	}
	return hash, nil
}

// RegisterConfirmationsNtfn polls for txid reaching numConfs
// confirmations, sending on Confirmed once it does.
func (c *BtcdConnector) RegisterConfirmationsNtfn(ctx context.Context, txid *chainhash.Hash, pkScript []byte, numConfs uint32) (*ConfirmationEvent, error) {
	event := &ConfirmationEvent{
		Confirmed:    make(chan int32, 1),
		NegativeConf: make(chan int32, 1),
	}

	go c.pollConfirmations(ctx, txid, numConfs, event)

	return event, nil
}

func (c *BtcdConnector) pollConfirmations(ctx context.Context, txid *chainhash.Hash, numConfs uint32, event *ConfirmationEvent) {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-c.quit:
			return
		case <-ticker.C:
		}

		if err := c.limiter.Wait(ctx); err != nil {
			return
		}

		tx, err := c.client.GetTransaction(txid)
		if err != nil {
			c.log.Debugf("poll confirmations for %v: %v", txid, err)
			continue
		}

		if tx.Confirmations < 0 {
			event.NegativeConf <- int32(tx.Confirmations)
			return
		}

		if uint32(tx.Confirmations) >= numConfs {
			event.Confirmed <- int32(tx.Confirmations)
			return
		}
	}
}

// WatchAddress imports address into btcd as watch-only, the standard
// btcd idiom (importaddress + listunspent) for observing a counterparty's
// funding output without already knowing its outpoint.
func (c *BtcdConnector) WatchAddress(ctx context.Context, address btcutil.Address) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}
	if err := c.client.ImportAddressRescan(address.EncodeAddress(), "", false); err != nil {
		return fmt.Errorf("import address %s: %w", address.EncodeAddress(), err)
	}
	return nil
}

// FindFundingOutputs lists every confirmed, unspent output paying a
// previously-watched address, with each output's confirming block
// hash/height so the caller can re-verify it against the best chain
// later.
func (c *BtcdConnector) FindFundingOutputs(ctx context.Context, address btcutil.Address) ([]FundingOutput, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	unspent, err := c.client.ListUnspentMinMaxAddresses(1, 9999999, []btcutil.Address{address})
	if err != nil {
		return nil, fmt.Errorf("list unspent for %s: %w", address.EncodeAddress(), err)
	}

	outputs := make([]FundingOutput, 0, len(unspent))
	for _, u := range unspent {
		txHash, err := chainhash.NewHashFromStr(u.TxID)
		if err != nil {
			return nil, fmt.Errorf("parse txid %s: %w", u.TxID, err)
		}
		value, err := btcutil.NewAmount(u.Amount)
		if err != nil {
			return nil, fmt.Errorf("parse amount for %s: %w", u.TxID, err)
		}

		blockHash, blockHeight, err := c.confirmingBlock(ctx, txHash)
		if err != nil {
			return nil, err
		}

		outputs = append(outputs, FundingOutput{
			Outpoint:    wire.OutPoint{Hash: *txHash, Index: u.Vout},
			Value:       value,
			BlockHash:   blockHash,
			BlockHeight: blockHeight,
		})
	}
	return outputs, nil
}

// confirmingBlock looks up the block hash and height txid was
// confirmed in.
func (c *BtcdConnector) confirmingBlock(ctx context.Context, txid *chainhash.Hash) (chainhash.Hash, int32, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return chainhash.Hash{}, 0, err
	}

	tx, err := c.client.GetTransaction(txid)
	if err != nil {
		return chainhash.Hash{}, 0, fmt.Errorf("get transaction %s: %w", txid, err)
	}

	blockHash, err := chainhash.NewHashFromStr(tx.BlockHash)
	if err != nil {
		return chainhash.Hash{}, 0, fmt.Errorf("parse block hash %s: %w", tx.BlockHash, err)
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return chainhash.Hash{}, 0, err
	}
	header, err := c.client.GetBlockHeaderVerbose(blockHash)
	if err != nil {
		return chainhash.Hash{}, 0, fmt.Errorf("get block header %s: %w", blockHash, err)
	}

	return *blockHash, header.Height, nil
}

// RegisterSpendNtfn polls for outpoint being spent by a confirmed
// transaction.
func (c *BtcdConnector) RegisterSpendNtfn(ctx context.Context, outpoint *wire.OutPoint, pkScript []byte) (*SpendEvent, error) {
	event := &SpendEvent{Spend: make(chan *SpendDetail, 1)}

	go c.pollSpend(ctx, outpoint, event)

	return event, nil
}

func (c *BtcdConnector) pollSpend(ctx context.Context, outpoint *wire.OutPoint, event *SpendEvent) {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-c.quit:
			return
		case <-ticker.C:
		}

		if err := c.limiter.Wait(ctx); err != nil {
			return
		}

		txOut, err := c.client.GetTxOut(&outpoint.Hash, outpoint.Index, false)
		if err != nil {
			c.log.Debugf("poll spend for %v: %v", outpoint, err)
			continue
		}
		if txOut != nil {
			// Still unspent.
			continue
		}

		// The output is gone from the UTXO set. Only the outpoint is
		// reported: SpenderTxHash, SpendingTx and the spending block are
		// left unset, so a watcher cannot read a secret or a spending
		// transaction hash from this report.
		event.Spend <- &SpendDetail{SpentOutPoint: outpoint}
		return
	}
}
