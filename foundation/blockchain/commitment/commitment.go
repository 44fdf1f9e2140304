// Package commitment maintains the index of outstanding name commitments and
// the maturity rules that decide when a commitment can be revealed.
package commitment

import (
	"bytes"
	"sort"

	"github.com/hlandauf/namecore/foundation/blockchain/names"
)

// State represents where a commitment is in its lifecycle.
type State int

// Set of commitment states.
const (
	StateAbsent State = iota
	StatePending
	StateMatured
	StateConsumed
)

// String implements the fmt.Stringer interface.
func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateMatured:
		return "matured"
	case StateConsumed:
		return "consumed"
	}

	return "absent"
}

// MarshalText implements the encoding.TextMarshaler interface.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Status is the answer to a commitment status query.
type Status struct {
	State      State            `json:"state"`
	MaturesAt  uint64           `json:"matures_at,omitempty"`
	Commitment names.Commitment `json:"commitment"`
	ConsumedAt uint64           `json:"consumed_at,omitempty"`
}

// Consumed records a commitment that was used by a reveal.
type Consumed struct {
	Commitment names.Commitment `json:"commitment"`
	Height     uint64           `json:"height"`
}

// =============================================================================

// Index tracks pending commitments by hash. The index is not safe for
// concurrent use; the owner serializes access.
type Index struct {
	maturity uint64
	pending  map[names.Hash]names.Commitment
	consumed map[names.Hash][]Consumed // Oldest first.
}

// New constructs an empty index using the specified maturity depth.
func New(maturity uint64) *Index {
	return &Index{
		maturity: maturity,
		pending:  make(map[names.Hash]names.Commitment),
		consumed: make(map[names.Hash][]Consumed),
	}
}

// Insert adds a new pending commitment. A hash can only be pending once.
func (idx *Index) Insert(hash names.Hash, output names.Outpoint, height uint64) error {
	if _, exists := idx.pending[hash]; exists {
		return names.Errorf(names.KindCollision, "commitment %s already pending", hash)
	}

	idx.pending[hash] = names.Commitment{
		Hash:   hash,
		Output: output,
		Height: height,
	}

	return nil
}

// IsPending reports whether the hash is waiting to be revealed.
func (idx *Index) IsPending(hash names.Hash) bool {
	_, exists := idx.pending[hash]
	return exists
}

// Check resolves a commitment that is ready to be consumed at the specified
// height without changing the index.
func (idx *Index) Check(hash names.Hash, atHeight uint64) (names.Commitment, error) {
	c, exists := idx.pending[hash]
	if !exists {
		return names.Commitment{}, names.Errorf(names.KindNotFound, "no pending commitment matches %s", hash)
	}

	if atHeight < c.Height || atHeight-c.Height < idx.maturity {
		return names.Commitment{}, names.Errorf(names.KindImmature, "commitment %s created at %d matures at %d, height %d", hash, c.Height, c.Height+idx.maturity, atHeight)
	}

	return c, nil
}

// Consume removes a matured commitment from the index and returns it.
func (idx *Index) Consume(hash names.Hash, atHeight uint64) (names.Commitment, error) {
	c, err := idx.Check(hash, atHeight)
	if err != nil {
		return names.Commitment{}, err
	}

	delete(idx.pending, hash)
	idx.consumed[hash] = append(idx.consumed[hash], Consumed{
		Commitment: c,
		Height:     atHeight,
	})

	return c, nil
}

// MarkConsumed records a commitment as consumed without a maturity check.
// It is used when loading a saved index, in consumption order.
func (idx *Index) MarkConsumed(cs Consumed) {
	hash := cs.Commitment.Hash
	if c, exists := idx.pending[hash]; exists && c.Height <= cs.Commitment.Height {
		delete(idx.pending, hash)
	}

	idx.consumed[hash] = append(idx.consumed[hash], cs)
}

// Prune undoes everything that happened above the specified height. Pending
// commitments created above the height are dropped and commitments consumed
// above the height become pending again. The node rewinds by replaying from
// snapshots instead; Prune serves callers holding a single index.
func (idx *Index) Prune(height uint64) {
	for hash, c := range idx.pending {
		if c.Height > height {
			delete(idx.pending, hash)
		}
	}

	for hash, list := range idx.consumed {
		keep := len(list)
		for keep > 0 && list[keep-1].Height > height {
			keep--
		}
		if keep == len(list) {
			continue
		}

		// Only the oldest undone consumption can have been created at or
		// below the height, later ones were committed after it.
		if c := list[keep].Commitment; c.Height <= height {
			idx.pending[hash] = c
		}

		if keep == 0 {
			delete(idx.consumed, hash)
			continue
		}
		idx.consumed[hash] = list[:keep:keep]
	}
}

// Status reports the lifecycle state of a commitment at the specified height.
func (idx *Index) Status(hash names.Hash, height uint64) Status {
	if c, exists := idx.pending[hash]; exists {
		maturesAt := c.Height + idx.maturity

		state := StatePending
		if height >= maturesAt {
			state = StateMatured
		}

		return Status{
			State:      state,
			MaturesAt:  maturesAt,
			Commitment: c,
		}
	}

	if list := idx.consumed[hash]; len(list) > 0 {
		cs := list[len(list)-1]
		return Status{
			State:      StateConsumed,
			Commitment: cs.Commitment,
			ConsumedAt: cs.Height,
		}
	}

	return Status{State: StateAbsent}
}

// Len returns the number of pending commitments.
func (idx *Index) Len() int {
	return len(idx.pending)
}

// Pending returns the pending commitments ordered by hash.
func (idx *Index) Pending() []names.Commitment {
	out := make([]names.Commitment, 0, len(idx.pending))
	for _, c := range idx.pending {
		out = append(out, c)
	}

	sort.Slice(out, func(i, j int) bool {
		return bytes.Compare(out[i].Hash[:], out[j].Hash[:]) < 0
	})

	return out
}

// Consumed returns every consumption ordered by hash and then by the height
// it happened at.
func (idx *Index) Consumed() []Consumed {
	var out []Consumed
	for _, list := range idx.consumed {
		out = append(out, list...)
	}

	sort.Slice(out, func(i, j int) bool {
		if c := bytes.Compare(out[i].Commitment.Hash[:], out[j].Commitment.Hash[:]); c != 0 {
			return c < 0
		}
		return out[i].Height < out[j].Height
	})

	return out
}

// Clone makes a deep copy of the index.
func (idx *Index) Clone() *Index {
	cpy := Index{
		maturity: idx.maturity,
		pending:  make(map[names.Hash]names.Commitment, len(idx.pending)),
		consumed: make(map[names.Hash][]Consumed, len(idx.consumed)),
	}

	for hash, c := range idx.pending {
		cpy.pending[hash] = c
	}
	for hash, list := range idx.consumed {
		cpy.consumed[hash] = append([]Consumed(nil), list...)
	}

	return &cpy
}
