package contractcourt

import (
	"encoding/binary"
	"math/big"

	"github.com/comit-network/swapd/swap"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// herc20RuntimePrefix is a fixed marker prepended to every herc20 HTLC's
// immutable-constant blob, standing in for the actual compiled EVM
// runtime code of the COMIT Herc20 HTLC template. The template itself is
// an external collaborator's build artifact, out of scope for this
// engine's narrow wallet-primitive surface; what this component owns is
// deriving the bytecode's expected hash from a swap's parameters so the
// watcher can recognize a counterparty's deploy without trusting the
// contract address it claims.
var herc20RuntimePrefix = []byte("comit/herc20-htlc/v1")

// BuildHtlcBytecode deterministically encodes params' immutable
// constants (secret_hash, redeem_addr, refund_addr, expiry, token,
// amount) into the byte blob this daemon deploys as the herc20 HTLC,
// mirroring the Solidity contract's immutable constructor arguments.
func BuildHtlcBytecode(params swap.Herc20Params) []byte {
	blob := make([]byte, 0, len(herc20RuntimePrefix)+32+20+20+8+20+32)
	blob = append(blob, herc20RuntimePrefix...)
	blob = append(blob, params.SecretHash[:]...)
	blob = append(blob, params.RedeemIdentity.Bytes()...)
	blob = append(blob, params.RefundIdentity.Bytes()...)

	var expiryBytes [8]byte
	binary.BigEndian.PutUint64(expiryBytes[:], params.ExpiryUnix)
	blob = append(blob, expiryBytes[:]...)

	blob = append(blob, params.Asset.Token.Bytes()...)
	blob = append(blob, leftPad32(params.Asset.Quantity)...)

	return blob
}

// ExpectedHtlcCodeHash returns the keccak256 hash the deployed contract's
// on-chain code must match for the deploy watcher to accept it as this
// swap's HTLC.
func ExpectedHtlcCodeHash(params swap.Herc20Params) common.Hash {
	return crypto.Keccak256Hash(BuildHtlcBytecode(params))
}

func leftPad32(v *big.Int) []byte {
	b := v.Bytes()
	if len(b) >= 32 {
		return b[len(b)-32:]
	}
	padded := make([]byte, 32)
	copy(padded[32-len(b):], b)
	return padded
}
