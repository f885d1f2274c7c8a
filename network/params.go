// Package network implements the setup-swap peer-to-peer protocol: a
// request-response exchange of the parameters each matched role
// contributes, producing an ExecutableSwap once both halves agree.
// Connection lifecycle follows peer.go's original conventions,
// generalized from lnwire's binary messages to length-prefixed JSON
// frames. Each frame is written directly to its connection; there is
// no outgoing queue.
package network

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/comit-network/swapd/swap"
	"github.com/ethereum/go-ethereum/common"
)

// Protocol names the wire contract for a given asset ordering. Changing
// either string breaks interoperability with any peer still running the
// prior version.
type Protocol string

const (
	ProtocolHbitHerc20 Protocol = "/setup-swap/hbit-herc20/1.0.0"
	ProtocolHerc20Hbit Protocol = "/setup-swap/herc20-hbit/1.0.0"
)

func ProtocolFor(ordering swap.Ordering) Protocol {
	if ordering == swap.Herc20Hbit {
		return ProtocolHerc20Hbit
	}
	return ProtocolHbitHerc20
}

// CommonParams are the parameters both matched peers already agree on
// from the order match itself, before setup-swap begins. Field order is
// part of the frozen wire format Hash canonicalizes over; it must stay
// stable across releases so two peers on different versions still agree.
type CommonParams struct {
	Erc20Quantity           string `json:"erc20_quantity"`
	BitcoinSats             int64  `json:"bitcoin_sats"`
	EthereumAbsoluteExpiry  uint64 `json:"ethereum_absolute_expiry"`
	BitcoinAbsoluteExpiry   uint32 `json:"bitcoin_absolute_expiry"`
	EthereumChainId         uint64 `json:"ethereum_chain_id"`
	BitcoinNetwork          string `json:"bitcoin_network"`
}

// Hash is the canonical identity of a swap for setup purposes. Two
// peers that matched the same order must compute the same hash; a
// mismatch indicates the match inputs diverged and the exchange is
// aborted.
func (c CommonParams) Hash() ([32]byte, error) {
	encoded, err := json.Marshal(c)
	if err != nil {
		return [32]byte{}, fmt.Errorf("encode common params: %w", err)
	}
	return sha256.Sum256(encoded), nil
}

// AliceParams are the role-dependent parameters Alice contributes: her
// identities on both ledgers and the secret hash she generated.
type AliceParams struct {
	EthereumIdentity common.Address `json:"ethereum_identity"`
	BitcoinIdentity  []byte         `json:"bitcoin_identity"` // compressed pubkey
	SecretHash       swap.SecretHash `json:"secret_hash"`
}

// BitcoinPublicKey parses BitcoinIdentity as a compressed secp256k1
// public key.
func (p AliceParams) BitcoinPublicKey() (*btcec.PublicKey, error) {
	return btcec.ParsePubKey(p.BitcoinIdentity)
}

// BobParams are the role-dependent parameters Bob contributes: his
// identities on both ledgers.
type BobParams struct {
	EthereumIdentity common.Address `json:"ethereum_identity"`
	BitcoinIdentity  []byte         `json:"bitcoin_identity"`
}

func (p BobParams) BitcoinPublicKey() (*btcec.PublicKey, error) {
	return btcec.ParsePubKey(p.BitcoinIdentity)
}

// ExecutableSwap is emitted once both AliceParams and BobParams have
// arrived for a peer and their CommonParams hashes agree, ready for the
// state-machine spawner.
type ExecutableSwap struct {
	Role     swap.Role
	Peer     swap.PeerId
	Protocol Protocol
	Common   CommonParams
	Alice    AliceParams
	Bob      BobParams
}
