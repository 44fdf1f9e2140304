// Package names defines the data model shared by the name registration rules:
// names, values, commitments, name records and the lifecycle of a record as
// the chain grows.
package names

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"
)

// Set of byte limits enforced on every operation before any state is read.
const (
	MaxNameLength  = 255
	MaxValueLength = 520
	MaxSaltLength  = 20
)

// =============================================================================

// Params represents the network parameters the registration rules are
// evaluated against. These come from the genesis file.
type Params struct {
	CommitMaturity uint64 `json:"commit_maturity"` // Blocks a commitment must age before it can be revealed.
	ExpiryPeriod   uint64 `json:"expiry_period"`   // Blocks after the last update a record stays active.
}

// =============================================================================

// Outpoint identifies a single output created by a ledger transaction.
type Outpoint struct {
	TxID  string `json:"txid"`
	Index uint16 `json:"vout"`
}

// IsZero reports whether the outpoint references nothing.
func (op Outpoint) IsZero() bool {
	return op.TxID == "" && op.Index == 0
}

// String implements the fmt.Stringer interface.
func (op Outpoint) String() string {
	return fmt.Sprintf("%s:%d", op.TxID, op.Index)
}

// =============================================================================

// Commitment is an opaque claim on a name. Only the hash is known to the
// ledger until the claimant reveals the name and salt.
type Commitment struct {
	Hash   Hash     `json:"hash"`
	Output Outpoint `json:"output"`
	Height uint64   `json:"height"`
}

// MaturesAt returns the first height a reveal of this commitment is valid.
func (c Commitment) MaturesAt(params Params) uint64 {
	return c.Height + params.CommitMaturity
}

// Record is the current binding of a name to a value and an owning output.
type Record struct {
	Name               string   `json:"name"`
	Value              string   `json:"value"`
	Owner              Outpoint `json:"owner"`
	Address            Address  `json:"address"`
	RegistrationHeight uint64   `json:"registration_height"`
	LastUpdateHeight   uint64   `json:"last_update_height"`
}

// =============================================================================

// Kind identifies which of the three name operations is being performed.
type Kind string

// Set of operation kinds.
const (
	KindCommit Kind = "commit"
	KindReveal Kind = "reveal"
	KindMutate Kind = "mutate"
)

// ParseKind converts a string into a known operation kind.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(strings.ToLower(s)); k {
	case KindCommit, KindReveal, KindMutate:
		return k, nil
	}

	return "", fmt.Errorf("unknown operation kind %q", s)
}

// Operation is a candidate state transition for the name registry. Which
// fields are relevant depends on the kind.
//
//	Commit: Hash, Creates. Name, Salt and Claimant are only set when the
//	        operation is built locally and never travel on the ledger.
//	Reveal: Name, Salt, Value, Target, Spends (the commitment output), Creates.
//	Mutate: Name, Value, Target, Spends (the current owner output), Creates.
type Operation struct {
	Kind     Kind          `json:"kind"`
	Hash     Hash          `json:"hash,omitempty"`
	Name     string        `json:"name,omitempty"`
	Salt     hexutil.Bytes `json:"salt,omitempty"`
	Value    string        `json:"value,omitempty"`
	Claimant Address       `json:"claimant,omitempty"`
	Target   Address       `json:"target,omitempty"`
	Spends   Outpoint      `json:"spends"`
	Creates  Outpoint      `json:"creates"`
}

// ConflictKey returns the key two pending operations collide on. Commits
// collide on their hash, reveals and mutations on the name they touch.
func (op Operation) ConflictKey() string {
	if op.Kind == KindCommit {
		return "commit:" + op.Hash.String()
	}

	return "name:" + op.Name
}

// String implements the fmt.Stringer interface for logging.
func (op Operation) String() string {
	if op.Kind == KindCommit {
		return fmt.Sprintf("%s[%s]", op.Kind, op.Hash)
	}

	return fmt.Sprintf("%s[%s]", op.Kind, op.Name)
}

// CheckName validates the name length limits.
func CheckName(name string) error {
	switch {
	case len(name) == 0:
		return Errorf(KindLength, "name is empty")
	case len(name) > MaxNameLength:
		return Errorf(KindLength, "name is %d bytes, max %d", len(name), MaxNameLength)
	}

	return nil
}

// CheckValue validates the value length limits.
func CheckValue(value string) error {
	if len(value) > MaxValueLength {
		return Errorf(KindLength, "value is %d bytes, max %d", len(value), MaxValueLength)
	}

	return nil
}

// CheckSalt validates the salt length limits.
func CheckSalt(salt []byte) error {
	if len(salt) > MaxSaltLength {
		return Errorf(KindLength, "salt is %d bytes, max %d", len(salt), MaxSaltLength)
	}

	return nil
}
