package contractcourt

import (
	"context"
	"fmt"
	"time"

	"github.com/btcsuite/btclog"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/comit-network/swapd/chainntfs"
	"github.com/comit-network/swapd/lnwallet"
	"github.com/comit-network/swapd/swap"
)

// pollInterval bounds how often the hbit watcher re-checks the Bitcoin
// connector for a funding output or a spend of one.
const pollInterval = 10 * time.Second

// HbitWatcher turns BitcoinConnector feeds into the typed events the
// hbit leg of a swap state machine waits on.
type HbitWatcher struct {
	connector chainntfs.BitcoinConnector
	log       btclog.Logger
}

// NewHbitWatcher builds an HbitWatcher over the given connector.
func NewHbitWatcher(connector chainntfs.BitcoinConnector, log btclog.Logger) *HbitWatcher {
	return &HbitWatcher{connector: connector, log: log}
}

// WatchFunded derives the HTLC's P2WSH address from params, watches it,
// and polls for its first confirmed output, classifying it Correctly iff
// the amount matches params.AssetSats exactly (Bitcoin funding requires
// strict equality, unlike herc20's threshold check).
func (w *HbitWatcher) WatchFunded(ctx context.Context, params swap.HbitParams) (swap.HbitFunded, error) {
	addr, _, err := lnwallet.HbitAddress(params)
	if err != nil {
		return swap.HbitFunded{}, fmt.Errorf("derive hbit address: %w", err)
	}

	if err := w.connector.WatchAddress(ctx, addr); err != nil {
		return swap.HbitFunded{}, fmt.Errorf("watch hbit address: %w", err)
	}

	return pollUntilStable(ctx, w.log, pollInterval, func() (swap.HbitFunded, func(context.Context) (bool, error), bool, error) {
		outputs, err := w.connector.FindFundingOutputs(ctx, addr)
		if err != nil {
			return swap.HbitFunded{}, nil, false, err
		}
		if len(outputs) == 0 {
			return swap.HbitFunded{}, nil, false, nil
		}

		// The first confirmed output is the funding event; later ones
		// (a second broadcast to the same address) are ignored.
		out := outputs[0]
		status := swap.FundedCorrectly
		if out.Value != params.AssetSats {
			status = swap.FundedIncorrectly
		}

		result := swap.HbitFunded{
			Status:   status,
			AssetSat: int64(out.Value),
			Location: swap.HbitLocation{Txid: out.Outpoint},
		}

		verify := func(ctx context.Context) (bool, error) {
			current, err := w.connector.BlockHashByHeight(ctx, out.BlockHeight)
			if err != nil {
				return false, err
			}
			return *current == out.BlockHash, nil
		}

		return result, verify, true, nil
	})
}

// WatchRedeemed watches funded's outpoint for a spend and extracts the
// secret from the redeem witness, rejecting spends whose secret does not
// hash to params.SecretHash and continuing to watch instead of
// returning: a spend with the wrong secret doesn't end the swap, it
// just isn't the redeem being waited for.
func (w *HbitWatcher) WatchRedeemed(ctx context.Context, params swap.HbitParams, funded swap.HbitFunded) (swap.HbitRedeemed, error) {
	_, witnessScript, err := lnwallet.HbitAddress(params)
	if err != nil {
		return swap.HbitRedeemed{}, fmt.Errorf("derive hbit witness script: %w", err)
	}

	pkScript, err := lnwallet.WitnessScriptHash(witnessScript)
	if err != nil {
		return swap.HbitRedeemed{}, fmt.Errorf("derive hbit p2wsh script: %w", err)
	}

	spendEvent, err := w.connector.RegisterSpendNtfn(ctx, &funded.Location.Txid, pkScript)
	if err != nil {
		return swap.HbitRedeemed{}, fmt.Errorf("register spend notification: %w", err)
	}

	for {
		var spend *chainntfs.SpendDetail
		select {
		case <-ctx.Done():
			return swap.HbitRedeemed{}, ctx.Err()
		case spend = <-spendEvent.Spend:
		}

		secret, ok := redeemSecretFromWitness(spend)
		if !ok {
			// A refund spend (or a spend this watcher can't parse); let
			// WatchRefunded classify it instead.
			return swap.HbitRedeemed{}, fmt.Errorf("spend of %v is not a redeem", spend.SpentOutPoint)
		}

		if !params.SecretHash.Matches(secret) {
			w.log.Warnf("hbit redeem witness at %v carries a secret that does not "+
				"hash to the swap's secret hash; ignoring and continuing to watch",
				spend.SpenderTxHash)

			spendEvent, err = w.connector.RegisterSpendNtfn(ctx, &funded.Location.Txid, pkScript)
			if err != nil {
				return swap.HbitRedeemed{}, fmt.Errorf("re-register spend notification: %w", err)
			}
			continue
		}

		stillBest, err := w.spendStillOnBestChain(ctx, spend)
		if err != nil {
			return swap.HbitRedeemed{}, fmt.Errorf("verify redeem best chain: %w", err)
		}
		if !stillBest {
			w.log.Warnf("hbit redeem spend at %v was reorged out of the best chain; "+
				"resuming watch for the outpoint's spend", spend.SpenderTxHash)

			spendEvent, err = w.connector.RegisterSpendNtfn(ctx, &funded.Location.Txid, pkScript)
			if err != nil {
				return swap.HbitRedeemed{}, fmt.Errorf("re-register spend notification: %w", err)
			}
			continue
		}

		return swap.HbitRedeemed{Transaction: *spend.SpenderTxHash, Secret: secret}, nil
	}
}

// WatchRefunded watches funded's outpoint for a spend along the timeout
// path.
func (w *HbitWatcher) WatchRefunded(ctx context.Context, params swap.HbitParams, funded swap.HbitFunded) (swap.HbitRefunded, error) {
	_, witnessScript, err := lnwallet.HbitAddress(params)
	if err != nil {
		return swap.HbitRefunded{}, fmt.Errorf("derive hbit witness script: %w", err)
	}

	pkScript, err := lnwallet.WitnessScriptHash(witnessScript)
	if err != nil {
		return swap.HbitRefunded{}, fmt.Errorf("derive hbit p2wsh script: %w", err)
	}

	spendEvent, err := w.connector.RegisterSpendNtfn(ctx, &funded.Location.Txid, pkScript)
	if err != nil {
		return swap.HbitRefunded{}, fmt.Errorf("register spend notification: %w", err)
	}

	for {
		var spend *chainntfs.SpendDetail
		select {
		case <-ctx.Done():
			return swap.HbitRefunded{}, ctx.Err()
		case spend = <-spendEvent.Spend:
		}

		if _, isRedeem := redeemSecretFromWitness(spend); isRedeem {
			return swap.HbitRefunded{}, fmt.Errorf("spend of %v is a redeem, not a refund", spend.SpentOutPoint)
		}

		stillBest, err := w.spendStillOnBestChain(ctx, spend)
		if err != nil {
			return swap.HbitRefunded{}, fmt.Errorf("verify refund best chain: %w", err)
		}
		if !stillBest {
			w.log.Warnf("hbit refund spend at %v was reorged out of the best chain; "+
				"resuming watch for the outpoint's spend", spend.SpenderTxHash)

			spendEvent, err = w.connector.RegisterSpendNtfn(ctx, &funded.Location.Txid, pkScript)
			if err != nil {
				return swap.HbitRefunded{}, fmt.Errorf("re-register spend notification: %w", err)
			}
			continue
		}

		return swap.HbitRefunded{Transaction: *spend.SpenderTxHash}, nil
	}
}

// spendStillOnBestChain re-verifies that the block a spend was reported
// in is still the block at that height on the connector's best chain.
// A zero SpendingBlockHash means the connector could not determine the
// confirming block (BtcdConnector never sets it); such a spend
// is trusted as reported since no reorg re-verification is possible.
func (w *HbitWatcher) spendStillOnBestChain(ctx context.Context, spend *chainntfs.SpendDetail) (bool, error) {
	if spend.SpendingBlockHash == (chainhash.Hash{}) {
		return true, nil
	}

	current, err := w.connector.BlockHashByHeight(ctx, spend.SpendingHeight)
	if err != nil {
		return false, err
	}
	return *current == spend.SpendingBlockHash, nil
}

// redeemSecretFromWitness extracts the secret from a redeem-path spend's
// witness stack (<sig> <secret> OP_TRUE <witness_script>, per
// lnwallet.RedeemWitness), reporting ok=false for a refund-shaped witness
// (<sig> OP_FALSE <witness_script>) or one this connector could not
// reconstruct (SpendingTx is nil, as in every BtcdConnector report).
func redeemSecretFromWitness(spend *chainntfs.SpendDetail) (swap.Secret, bool) {
	if spend.SpendingTx == nil {
		return swap.Secret{}, false
	}

	witness := spend.SpendingTx.TxIn[spend.SpenderInputIndex].Witness
	if len(witness) != 4 {
		return swap.Secret{}, false
	}

	secretBytes := witness[1]
	if len(secretBytes) != 32 {
		return swap.Secret{}, false
	}

	var secret swap.Secret
	copy(secret[:], secretBytes)
	return secret, true
}
