// Package swap defines the data model shared by every component of the
// swap engine: swap identities, secrets, the immutable parameters derived
// during setup, and the on-chain events the watchers observe.
package swap

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"

	"github.com/google/uuid"
)

// Id is an opaque, globally-unique (per local daemon) identifier for a
// swap. It has no on-chain meaning; it only keys local storage and
// correlates log lines across the two ledgers.
type Id [16]byte

// NewId generates a fresh swap identifier, UUID-shaped so ids are safe
// to log and compare across daemons without ever colliding in practice.
func NewId() (Id, error) {
	raw, err := uuid.NewRandom()
	if err != nil {
		return Id{}, err
	}
	return Id(raw), nil
}

func (i Id) String() string {
	return hex.EncodeToString(i[:])
}

// Secret is known only to Alice until she reveals it by redeeming on the
// beta ledger.
type Secret [32]byte

// NewSecret generates a fresh, cryptographically random secret for
// Alice to commit to at swap setup.
func NewSecret() (Secret, error) {
	var s Secret
	if _, err := rand.Read(s[:]); err != nil {
		return Secret{}, err
	}
	return s, nil
}

// Hash returns the SecretHash this Secret should be checked against.
// The contracts on both ledgers are fixed to sha256; there is no
// support for non-sha256 hash functions.
func (s Secret) Hash() SecretHash {
	return SecretHash(sha256.Sum256(s[:]))
}

func (s Secret) String() string {
	return hex.EncodeToString(s[:])
}

// SecretHash is the sha256 digest of a Secret, fixed in the HTLC scripts
// on both ledgers at setup time.
type SecretHash [32]byte

func (h SecretHash) String() string {
	return hex.EncodeToString(h[:])
}

// Matches reports whether secret hashes to h. Every accepted Redeemed
// event must satisfy this before being stored.
func (h SecretHash) Matches(secret Secret) bool {
	return secret.Hash() == h
}

// Role distinguishes the two well-known swap participants: Alice
// initiates and knows the secret up front; Bob responds and only learns
// the secret once Alice redeems on-chain.
type Role int

const (
	RoleAlice Role = iota
	RoleBob
)

func (r Role) String() string {
	switch r {
	case RoleAlice:
		return "alice"
	case RoleBob:
		return "bob"
	default:
		return "unknown"
	}
}

// Ordering names which ledger is alpha (funds first) and which is beta
// (funds second). Alice always funds alpha; Bob always funds beta.
type Ordering int

const (
	// HbitHerc20 funds Bitcoin first (alpha), then the ERC-20 HTLC
	// (beta).
	HbitHerc20 Ordering = iota
	// Herc20Hbit funds the ERC-20 HTLC first (alpha), then Bitcoin
	// (beta).
	Herc20Hbit
)

func (o Ordering) String() string {
	switch o {
	case HbitHerc20:
		return "hbit-herc20"
	case Herc20Hbit:
		return "herc20-hbit"
	default:
		return "unknown"
	}
}

// Outcome is the categorical, terminal result of a finalized swap. Every
// finalized swap emits exactly one of these.
type Outcome int

const (
	OutcomeUnknown Outcome = iota
	OutcomeBothRedeemed
	OutcomeBothRefunded
	OutcomeAlphaRedeemedBetaRefunded
	OutcomeAlphaRefundedBetaRedeemed
	OutcomeAlphaRefunded
	OutcomeAlphaRedeemed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeBothRedeemed:
		return "both_redeemed"
	case OutcomeBothRefunded:
		return "both_refunded"
	case OutcomeAlphaRedeemedBetaRefunded:
		return "alpha_redeemed_beta_refunded"
	case OutcomeAlphaRefundedBetaRedeemed:
		return "alpha_refunded_beta_redeemed"
	case OutcomeAlphaRefunded:
		return "alpha_refunded"
	case OutcomeAlphaRedeemed:
		return "alpha_redeemed"
	default:
		return "unknown"
	}
}
