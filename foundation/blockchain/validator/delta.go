package validator

import (
	"github.com/hlandauf/namecore/foundation/blockchain/commitment"
	"github.com/hlandauf/namecore/foundation/blockchain/names"
	"github.com/hlandauf/namecore/foundation/blockchain/namestore"
)

// Delta is the state transition produced by an accepted operation.
type Delta struct {
	Kind    names.Kind        `json:"kind"`
	Insert  *names.Commitment `json:"insert,omitempty"`
	Consume *names.Hash       `json:"consume,omitempty"`
	Put     *names.Record     `json:"put,omitempty"`
}

// Apply performs the transition against the index and the store. The delta
// must come from Validate against the same state and height.
func (d Delta) Apply(idx *commitment.Index, store *namestore.Store, height uint64) error {
	if d.Insert != nil {
		if err := idx.Insert(d.Insert.Hash, d.Insert.Output, d.Insert.Height); err != nil {
			return err
		}
	}

	if d.Consume != nil {
		if _, err := idx.Consume(*d.Consume, height); err != nil {
			return err
		}
	}

	if d.Put != nil {
		store.Put(*d.Put)
	}

	return nil
}

// ValidateApply validates the operation and applies the resulting delta in
// one step.
func ValidateApply(op names.Operation, height uint64, idx *commitment.Index, store *namestore.Store, utxo UTXOView) (Delta, error) {
	view := View{
		Commitments: idx,
		Records:     store,
		UTXO:        utxo,
	}

	d, err := Validate(op, height, view)
	if err != nil {
		return Delta{}, err
	}

	if err := d.Apply(idx, store, height); err != nil {
		return Delta{}, err
	}

	return d, nil
}
