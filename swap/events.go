package swap

import (
	"math/big"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	"github.com/ethereum/go-ethereum/common"
)

// FundStatus classifies an observed on-chain funding output against the
// declared params.
type FundStatus int

const (
	FundedCorrectly FundStatus = iota
	FundedIncorrectly
)

// HbitLocation pins the HTLC output the watcher found.
type HbitLocation struct {
	Txid wire.OutPoint
}

// HbitFunded is recorded once the watcher finds a confirmed output
// funding the Bitcoin HTLC, classified Correctly (exact amount match)
// or Incorrectly.
type HbitFunded struct {
	Status   FundStatus
	AssetSat int64
	Location HbitLocation
}

// HbitRedeemed is recorded once the watcher observes a spend of the HTLC
// output along the redeem path, with the secret extracted from the
// witness.
type HbitRedeemed struct {
	Transaction chainhash.Hash
	Secret      Secret
}

// HbitRefunded is recorded once the watcher observes a spend of the HTLC
// output along the timeout path.
type HbitRefunded struct {
	Transaction chainhash.Hash
}

// Herc20Deployed is recorded once the watcher observes the contract
// creation transaction for the herc20 HTLC.
type Herc20Deployed struct {
	Transaction common.Hash
	Location    common.Address
}

// Herc20Funded is recorded once the watcher observes the HTLC contract
// holding at least the declared asset amount (a threshold check, unlike
// hbit's strict equality).
type Herc20Funded struct {
	Status      FundStatus
	Transaction common.Hash
	Asset       Asset
}

// Herc20Redeemed is recorded once the watcher observes a redeem call to
// the HTLC contract, with the secret parsed from call data.
type Herc20Redeemed struct {
	Transaction common.Hash
	Secret      Secret
}

// Herc20Refunded is recorded once the watcher observes a refund call to
// the HTLC contract.
type Herc20Refunded struct {
	Transaction common.Hash
}

// BigIntAmount is a convenience constructor mirroring the asset.Erc20
// helpers in the original comit-rs source (comit/src/asset), kept small
// because the engine only ever compares and stores these, never does
// arithmetic on them beyond equality/inequality.
func BigIntAmount(v int64) *big.Int {
	return big.NewInt(v)
}
