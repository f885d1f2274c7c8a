// Package expiry derives the pair of absolute HTLC expiries for a swap
// and reports the next recommended action for either role, grounded on
// comit's expiries.rs (original_source).
package expiry

import (
	"time"

	"github.com/comit-network/swapd/swap"
)

// Config bundles the transition-time budgets used to size the happy
// path for a given protocol ordering. Every field is a
// minimum duration the corresponding step is expected to take; the
// calculator sums them rather than measuring them, since expiries must
// be fixed before either ledger is touched.
type Config struct {
	// Start is the time needed for the setup-swap handshake itself.
	Start time.Duration

	BroadcastAlphaFund time.Duration
	MineAlphaFund      time.Duration
	FinalityAlpha      time.Duration

	BroadcastBetaFund time.Duration
	MineBetaFund      time.Duration
	FinalityBeta      time.Duration

	BroadcastAlphaRedeem time.Duration
	MineAlphaRedeem      time.Duration

	BroadcastBetaRedeem time.Duration
	MineBetaRedeem      time.Duration

	// SafetyWindow is the slack Bob needs to refund alpha after Alice can
	// no longer redeem beta; it must strictly exceed realistic reorg
	// depth, propagation, and mining variance on the alpha chain.
	SafetyWindow time.Duration
}

// Bitcoin and Ethereum confirmation/finality assumptions. This engine
// leaves the exact confirmation depth and finality period configurable but does
// not fix a default; these mirror the defaults comit-rs shipped with
// (6 Bitcoin confirmations, ~3 Ethereum blocks).
const (
	bitcoinBlockInterval   = 10 * time.Minute
	bitcoinConfirmations   = 6
	ethereumBlockInterval  = 15 * time.Second
	ethereumConfirmations  = 3
	networkPropagationSlack = 30 * time.Second
)

func bitcoinFinality() time.Duration {
	return bitcoinConfirmations * bitcoinBlockInterval
}

func ethereumFinality() time.Duration {
	return ethereumConfirmations * ethereumBlockInterval
}

// HbitHerc20Config returns the transition budgets for the hbit-herc20
// ordering: Bitcoin is alpha, the ERC-20 HTLC is beta.
func HbitHerc20Config() Config {
	return Config{
		Start:                networkPropagationSlack,
		BroadcastAlphaFund:   networkPropagationSlack,
		MineAlphaFund:        bitcoinBlockInterval,
		FinalityAlpha:        bitcoinFinality(),
		BroadcastBetaFund:    networkPropagationSlack,
		MineBetaFund:         ethereumBlockInterval,
		FinalityBeta:         ethereumFinality(),
		BroadcastAlphaRedeem: networkPropagationSlack,
		MineAlphaRedeem:      bitcoinBlockInterval,
		BroadcastBetaRedeem:  networkPropagationSlack,
		MineBetaRedeem:       ethereumBlockInterval,
		SafetyWindow:         2 * bitcoinFinality(),
	}
}

// Herc20HbitConfig returns the transition budgets for the herc20-hbit
// ordering: the ERC-20 HTLC is alpha, Bitcoin is beta.
func Herc20HbitConfig() Config {
	return Config{
		Start:                networkPropagationSlack,
		BroadcastAlphaFund:   networkPropagationSlack,
		MineAlphaFund:        ethereumBlockInterval,
		FinalityAlpha:        ethereumFinality(),
		BroadcastBetaFund:    networkPropagationSlack,
		MineBetaFund:         bitcoinBlockInterval,
		FinalityBeta:         bitcoinFinality(),
		BroadcastAlphaRedeem: networkPropagationSlack,
		MineAlphaRedeem:      ethereumBlockInterval,
		BroadcastBetaRedeem:  networkPropagationSlack,
		MineBetaRedeem:       bitcoinBlockInterval,
		SafetyWindow:         2 * ethereumFinality(),
	}
}

// ConfigFor returns the budgets for the given protocol ordering.
func ConfigFor(ordering swap.Ordering) Config {
	switch ordering {
	case swap.HbitHerc20:
		return HbitHerc20Config()
	case swap.Herc20Hbit:
		return Herc20HbitConfig()
	default:
		panic("expiry: unknown ordering")
	}
}
