package swap

import (
	"math/big"
	"time"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/ethereum/go-ethereum/common"
)

// HbitParams are the immutable parameters of the Bitcoin leg of a swap,
// fixed once at setup and never mutated afterwards.
type HbitParams struct {
	Network *chaincfg.Params

	// AssetSats is the exact amount, in satoshis, the HTLC output must
	// carry.
	AssetSats btcutil.Amount

	// RedeemIdentity is the public key that may claim the output along
	// the redeem (secret-reveal) path.
	RedeemIdentity *btcec.PublicKey

	// RefundIdentity is the public key that may claim the output along
	// the timeout path, once ExpiryUnix has passed median-time-past.
	RefundIdentity *btcec.PublicKey

	// ExpiryUnix is compared against Bitcoin median-time-past by the
	// OP_CHECKLOCKTIMEVERIFY branch of the script.
	ExpiryUnix uint32

	SecretHash SecretHash
}

// Expiry returns the absolute expiry as a time.Time for logging and
// comparisons against wall-clock diagnostics. The state machine itself
// never compares against wall-clock time directly; see doc-comment on
// htlcswitch.ExpiryPredicate.
func (p HbitParams) Expiry() time.Time {
	return time.Unix(int64(p.ExpiryUnix), 0)
}

// Asset describes the ERC-20 (or native) amount locked by a herc20 HTLC.
type Asset struct {
	// Token is the ERC-20 contract address. The zero address denotes
	// native ether.
	Token    common.Address
	Quantity *big.Int
}

// Herc20Params are the immutable parameters of the Ethereum leg of a
// swap.
type Herc20Params struct {
	Asset Asset

	RedeemIdentity common.Address
	RefundIdentity common.Address

	// ExpiryUnix is compared against Ethereum block.timestamp by the
	// deployed HTLC contract.
	ExpiryUnix uint64

	SecretHash SecretHash
	ChainID    uint64

	// FromBlock is the block height at which the engine starts
	// scanning for the HTLC's deployment transaction. It is fixed at
	// setup time to the chain tip observed then, so a restart never
	// re-scans from genesis.
	FromBlock uint64
}

func (p Herc20Params) Expiry() time.Time {
	return time.Unix(int64(p.ExpiryUnix), 0)
}

// SwapParams bundles both ledgers' parameters plus the bookkeeping
// fields the state machine needs: who the counterparty is, when the
// clock for the happy path started, and the swap's local identity.
type SwapParams struct {
	Hbit         HbitParams
	Herc20       Herc20Params
	SecretHash   SecretHash
	StartOfSwap  time.Time
	SwapId       Id
	Counterparty PeerId

	// Role and Ordering are fixed at setup time and re-read on restart
	// so the engine never has to be told a second time which program
	// to resume and which leg is alpha.
	Role     Role
	Ordering Ordering

	// TransientKeyIndex is this swap's index into the wallet's
	// transient-key derivation path (swapdb.NextTransientKeyIndex),
	// fixed once at setup so the same keypair is re-derived after a
	// restart instead of being stored in plaintext.
	TransientKeyIndex uint32

	// Secret is Alice's pre-committed secret, set only in the copy of
	// SwapParams her own daemon persists; Bob's copy always leaves it
	// at the zero value; he never has it until he observes her beta
	// redeem on-chain.
	Secret Secret
}

// PeerId identifies the counterparty of a swap on the setup-swap
// transport. It is opaque to the engine beyond equality comparison and
// is pinned for the swap's lifetime.
type PeerId string
