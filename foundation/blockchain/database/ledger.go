package database

import (
	"fmt"
	"sort"

	"github.com/hlandauf/namecore/foundation/blockchain/names"
)

// Output is an unspent output recorded by the ledger.
type Output struct {
	Outpoint names.Outpoint `json:"outpoint"`
	Address  names.Address  `json:"address"`
	Height   uint64         `json:"height"`
}

// Ledger maintains the unspent outputs and the last nonce used by every
// address that has transacted on the chain. It is not safe for concurrent
// use, the owner provides the locking.
type Ledger struct {
	chainID uint16
	outputs map[names.Outpoint]Output
	nonces  map[names.Address]uint64
}

// NewLedger constructs an empty ledger for the specified chain.
func NewLedger(chainID uint16) *Ledger {
	return &Ledger{
		chainID: chainID,
		outputs: make(map[names.Outpoint]Output),
		nonces:  make(map[names.Address]uint64),
	}
}

// Lookup returns the address controlling the unspent output.
func (l *Ledger) Lookup(op names.Outpoint) (names.Address, bool) {
	out, exists := l.outputs[op]
	return out.Address, exists
}

// Nonce returns the last nonce used by the address.
func (l *Ledger) Nonce(address names.Address) uint64 {
	return l.nonces[address]
}

// Outputs returns the unspent outputs controlled by the address ordered by
// height.
func (l *Ledger) Outputs(address names.Address) []Output {
	var outs []Output
	for _, out := range l.outputs {
		if out.Address.Equal(address) {
			outs = append(outs, out)
		}
	}

	sort.Slice(outs, func(i, j int) bool {
		if outs[i].Height != outs[j].Height {
			return outs[i].Height < outs[j].Height
		}
		return outs[i].Outpoint.TxID < outs[j].Outpoint.TxID
	})

	return outs
}

// Check performs the accounting checks for the transaction and returns the
// address that signed it.
func (l *Ledger) Check(tx SignedTx) (names.Address, error) {
	if err := tx.Validate(l.chainID); err != nil {
		return "", err
	}

	from, err := tx.FromAddress()
	if err != nil {
		return "", fmt.Errorf("invalid signature, %w", err)
	}

	if last := l.nonces[from]; tx.Nonce <= last {
		return "", fmt.Errorf("transaction invalid, nonce too small, current %d, provided %d", last, tx.Nonce)
	}

	if !tx.Spends.IsZero() {
		owner, exists := l.Lookup(tx.Spends)
		switch {
		case !exists:
			return "", names.Errorf(names.KindWrongOwner, "output %s is not spendable", tx.Spends)
		case !owner.Equal(from):
			return "", names.Errorf(names.KindWrongOwner, "output %s is controlled by %s, not %s", tx.Spends, owner, from)
		}
	}

	return from, nil
}

// Apply spends the input of the transaction and creates its output. The
// transaction must have passed Check against this ledger.
func (l *Ledger) Apply(tx SignedTx, from names.Address, height uint64) names.Outpoint {
	if !tx.Spends.IsZero() {
		delete(l.outputs, tx.Spends)
	}

	owner := from
	if target, err := names.ToAddress(string(tx.Target)); err == nil {
		owner = target
	}

	created := names.Outpoint{TxID: tx.TxID()}
	l.outputs[created] = Output{
		Outpoint: created,
		Address:  owner,
		Height:   height,
	}

	l.nonces[from] = tx.Nonce

	return created
}

// Clone returns an independent copy of the ledger.
func (l *Ledger) Clone() *Ledger {
	nl := Ledger{
		chainID: l.chainID,
		outputs: make(map[names.Outpoint]Output, len(l.outputs)),
		nonces:  make(map[names.Address]uint64, len(l.nonces)),
	}

	for k, v := range l.outputs {
		nl.outputs[k] = v
	}
	for k, v := range l.nonces {
		nl.nonces[k] = v
	}

	return &nl
}
