package state

import (
	"fmt"

	"github.com/hlandauf/namecore/foundation/blockchain/commitment"
	"github.com/hlandauf/namecore/foundation/blockchain/database"
	"github.com/hlandauf/namecore/foundation/blockchain/genesis"
	"github.com/hlandauf/namecore/foundation/blockchain/namestore"
	"github.com/hlandauf/namecore/foundation/blockchain/validator"
)

// chainState is everything derived from replaying blocks: the outputs, the
// commitment index and the name store.
type chainState struct {
	ledger *database.Ledger
	index  *commitment.Index
	store  *namestore.Store
}

func newChainState(g genesis.Genesis) chainState {
	params := g.Params()

	return chainState{
		ledger: database.NewLedger(g.ChainID),
		index:  commitment.New(params.CommitMaturity),
		store:  namestore.New(params),
	}
}

func (cs chainState) clone() chainState {
	return chainState{
		ledger: cs.ledger.Clone(),
		index:  cs.index.Clone(),
		store:  cs.store.Clone(),
	}
}

func (cs chainState) view() validator.View {
	return validator.View{
		Commitments: cs.index,
		Records:     cs.store,
		UTXO:        cs.ledger,
	}
}

// check validates the transaction at the height without changing anything.
func (cs chainState) check(tx database.SignedTx, height uint64) (validator.Delta, error) {
	if _, err := cs.ledger.Check(tx); err != nil {
		return validator.Delta{}, err
	}

	op, err := tx.Operation()
	if err != nil {
		return validator.Delta{}, err
	}

	return validator.Validate(op, height, cs.view())
}

// applyTx validates the transaction at the height and applies it to the
// ledger, the index and the store.
func (cs chainState) applyTx(tx database.SignedTx, height uint64) (validator.Delta, error) {
	from, err := cs.ledger.Check(tx)
	if err != nil {
		return validator.Delta{}, err
	}

	op, err := tx.Operation()
	if err != nil {
		return validator.Delta{}, err
	}

	d, err := validator.ValidateApply(op, height, cs.index, cs.store, cs.ledger)
	if err != nil {
		return validator.Delta{}, err
	}

	cs.ledger.Apply(tx, from, height)

	return d, nil
}

// applyBlock applies every transaction in the block in order. The first
// rejected transaction stops the block and leaves the state partially
// applied, so callers apply blocks to a clone.
func (cs chainState) applyBlock(block database.Block) error {
	for _, tx := range block.Values() {
		if _, err := cs.applyTx(tx.SignedTx, block.Header.Number); err != nil {
			return fmt.Errorf("tx[%s]: %w", tx, err)
		}
	}

	return nil
}
