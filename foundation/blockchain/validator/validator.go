// Package validator implements the consensus rules for name operations. The
// validation is a pure function of the operation, the height and a read only
// view of the registry and the unspent outputs.
package validator

import (
	"fmt"

	"github.com/hlandauf/namecore/foundation/blockchain/names"
)

// Commitments represents the read behavior required from the commitment index.
type Commitments interface {
	IsPending(hash names.Hash) bool
	Check(hash names.Hash, atHeight uint64) (names.Commitment, error)
}

// Records represents the read behavior required from the name state store.
type Records interface {
	Lookup(name string, height uint64) (names.Record, names.Phase)
}

// UTXOView represents the unspent outputs supplied by the ledger. Lookup
// returns the address controlling the output.
type UTXOView interface {
	Lookup(op names.Outpoint) (names.Address, bool)
}

// View is the state an operation is validated against.
type View struct {
	Commitments Commitments
	Records     Records
	UTXO        UTXOView
}

// =============================================================================

// Validate decides whether the operation is valid at the specified height. On
// success the returned delta describes the state transition. Nothing is
// modified by this call.
func Validate(op names.Operation, height uint64, view View) (Delta, error) {
	switch op.Kind {
	case names.KindCommit:
		return validateCommit(op, height, view)
	case names.KindReveal:
		return validateReveal(op, height, view)
	case names.KindMutate:
		return validateMutate(op, height, view)
	}

	return Delta{}, fmt.Errorf("unknown operation kind %q", op.Kind)
}

// validateCommit admits a new commitment. The name is unknown on the ledger
// so there is no name level check here.
func validateCommit(op names.Operation, height uint64, view View) (Delta, error) {
	hash := op.Hash

	// Locally built commits still carry the name, so the hash can be derived
	// and the limits checked before anything leaves the node.
	if op.Name != "" {
		if err := names.CheckName(op.Name); err != nil {
			return Delta{}, err
		}
		if err := names.CheckSalt(op.Salt); err != nil {
			return Delta{}, err
		}

		derived := names.CommitHash(op.Salt, op.Name, op.Claimant)
		if !hash.IsZero() && hash != derived {
			return Delta{}, names.Errorf(names.KindNotFound, "hash %s does not match the committed name", hash)
		}
		hash = derived
	}

	if hash.IsZero() {
		return Delta{}, names.Errorf(names.KindLength, "commitment hash must be %d bytes", names.HashLength)
	}

	if view.Commitments.IsPending(hash) {
		return Delta{}, names.Errorf(names.KindCollision, "commitment %s already pending", hash)
	}

	c := names.Commitment{
		Hash:   hash,
		Output: op.Creates,
		Height: height,
	}

	return Delta{Kind: names.KindCommit, Insert: &c}, nil
}

// validateReveal consumes a matured commitment and binds the name to a new
// output.
func validateReveal(op names.Operation, height uint64, view View) (Delta, error) {
	if err := names.CheckName(op.Name); err != nil {
		return Delta{}, err
	}
	if err := names.CheckValue(op.Value); err != nil {
		return Delta{}, err
	}
	if err := names.CheckSalt(op.Salt); err != nil {
		return Delta{}, err
	}

	// The claimant is whoever controls the commitment output being spent.
	claimant, exists := view.UTXO.Lookup(op.Spends)
	if !exists {
		return Delta{}, names.Errorf(names.KindWrongOwner, "output %s is not spendable", op.Spends)
	}

	hash := names.CommitHash(op.Salt, op.Name, claimant)
	c, err := view.Commitments.Check(hash, height)
	if err != nil {
		return Delta{}, err
	}

	if c.Output != op.Spends {
		return Delta{}, names.Errorf(names.KindWrongOwner, "reveal spends %s, commitment output is %s", op.Spends, c.Output)
	}

	if _, phase := view.Records.Lookup(op.Name, height); phase == names.Active {
		return Delta{}, names.Errorf(names.KindNameActive, "name %q is active", op.Name)
	}

	target := op.Target
	if target == "" {
		target = claimant
	}

	rec := names.Record{
		Name:               op.Name,
		Value:              op.Value,
		Owner:              op.Creates,
		Address:            target,
		RegistrationHeight: height,
		LastUpdateHeight:   height,
	}

	return Delta{Kind: names.KindReveal, Consume: &hash, Put: &rec}, nil
}

// validateMutate updates an active record that the operation proves it owns.
func validateMutate(op names.Operation, height uint64, view View) (Delta, error) {
	if err := names.CheckName(op.Name); err != nil {
		return Delta{}, err
	}
	if err := names.CheckValue(op.Value); err != nil {
		return Delta{}, err
	}

	cur, phase := view.Records.Lookup(op.Name, height)
	switch phase {
	case names.Absent:
		return Delta{}, names.Errorf(names.KindNotFound, "name %q does not exist", op.Name)
	case names.Expired:
		return Delta{}, names.Errorf(names.KindExpired, "name %q last updated at %d has expired", op.Name, cur.LastUpdateHeight)
	}

	if op.Spends != cur.Owner {
		return Delta{}, names.Errorf(names.KindWrongOwner, "mutate spends %s, owner output is %s", op.Spends, cur.Owner)
	}

	if _, exists := view.UTXO.Lookup(cur.Owner); !exists {
		return Delta{}, names.Errorf(names.KindWrongOwner, "owner output %s is not spendable", cur.Owner)
	}

	target := op.Target
	if target == "" {
		target = cur.Address
	}

	rec := names.Record{
		Name:               cur.Name,
		Value:              op.Value,
		Owner:              op.Creates,
		Address:            target,
		RegistrationHeight: cur.RegistrationHeight,
		LastUpdateHeight:   height,
	}

	return Delta{Kind: names.KindMutate, Put: &rec}, nil
}
