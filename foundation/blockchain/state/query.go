package state

import (
	"fmt"

	"github.com/hlandauf/namecore/foundation/blockchain/commitment"
	"github.com/hlandauf/namecore/foundation/blockchain/database"
	"github.com/hlandauf/namecore/foundation/blockchain/namedb"
	"github.com/hlandauf/namecore/foundation/blockchain/names"
	"github.com/hlandauf/namecore/foundation/blockchain/namestore"
	"github.com/hlandauf/namecore/foundation/blockchain/validator"
)

// QueryLastest represents to query the latest block in the chain.
const QueryLastest = ^uint64(0) >> 1

// =============================================================================

// NameInfo is a record together with its lifecycle phase at the height it
// was evaluated at.
type NameInfo struct {
	names.Record
	Phase      names.Phase `json:"phase"`
	Height     uint64      `json:"height"`
	ExpiresIn  int64       `json:"expires_in"`
	Expired    bool        `json:"expired"`
	Superseded bool        `json:"superseded,omitempty"`
}

// PendingOp describes a transaction waiting in the mempool.
type PendingOp struct {
	TxID   string         `json:"txid"`
	From   names.Address  `json:"from"`
	Nonce  uint64         `json:"nonce"`
	Kind   names.Kind     `json:"kind"`
	Hash   string         `json:"hash,omitempty"`
	Name   string         `json:"name,omitempty"`
	Value  string         `json:"value,omitempty"`
	Spends names.Outpoint `json:"spends"`
}

// Account is the ledger view of an address.
type Account struct {
	Address names.Address     `json:"address"`
	Nonce   uint64            `json:"nonce"`
	Outputs []database.Output `json:"outputs"`
}

// =============================================================================

// QueryName returns the record for the name as seen at the specified height.
// An absent name returns a NotFoundError.
func (s *State) QueryName(name string, height uint64) (NameInfo, error) {
	if err := names.CheckName(name); err != nil {
		return NameInfo{}, err
	}

	chain, height, err := s.chainAt(height)
	if err != nil {
		return NameInfo{}, err
	}

	rec, phase := chain.store.Lookup(name, height)
	if phase == names.Absent {
		return NameInfo{}, names.Errorf(names.KindNotFound, "name %q not found", name)
	}

	return toNameInfo(rec, phase, height, chain.store.Params()), nil
}

// QueryCommitment returns the status of the commitment at the specified
// height.
func (s *State) QueryCommitment(hash names.Hash, height uint64) (commitment.Status, error) {
	chain, height, err := s.chainAt(height)
	if err != nil {
		return commitment.Status{}, err
	}

	return chain.index.Status(hash, height), nil
}

// QueryHistory returns every record the name has had, oldest first. The last
// entry is evaluated at the tip. Earlier entries are marked superseded and
// evaluated at the height the next record replaced them, so a record only
// reports expired if it had lapsed before being replaced.
func (s *State) QueryHistory(name string) ([]NameInfo, error) {
	chain, height := s.tip()
	params := chain.store.Params()

	history := chain.store.History(name)
	if len(history) == 0 {
		return nil, names.Errorf(names.KindNotFound, "name %q not found", name)
	}

	out := make([]NameInfo, len(history))
	for i, rec := range history {
		at := height
		if i < len(history)-1 {
			at = history[i+1].LastUpdateHeight
		}

		out[i] = toNameInfo(rec, names.Classify(rec, at, params), at, params)
		out[i].Superseded = i < len(history)-1
	}

	return out, nil
}

// QueryNamesByAddress returns the names currently owned by the address in
// name order, including names that have expired but were not re-registered.
func (s *State) QueryNamesByAddress(address names.Address) []NameInfo {
	chain, height := s.tip()
	params := chain.store.Params()

	recs := chain.store.Owned(address)
	out := make([]NameInfo, len(recs))
	for i, rec := range recs {
		out[i] = toNameInfo(rec, names.Classify(rec, height, params), height, params)
	}

	return out
}

// QueryScan walks the names in order starting at start.
func (s *State) QueryScan(start string, count int) []NameInfo {
	chain, height := s.tip()

	recs := chain.store.Scan(start, count)
	out := make([]NameInfo, len(recs))
	for i, rec := range recs {
		out[i] = toNameInfo(rec, names.Classify(rec, height, chain.store.Params()), height, chain.store.Params())
	}

	return out
}

// QueryFilter returns the active names matching the filter.
func (s *State) QueryFilter(f namestore.Filter) ([]NameInfo, error) {
	chain, height := s.tip()

	recs, err := chain.store.Filter(f, height)
	if err != nil {
		return nil, err
	}

	out := make([]NameInfo, len(recs))
	for i, rec := range recs {
		out[i] = toNameInfo(rec, names.Active, height, chain.store.Params())
	}

	return out, nil
}

// QueryPending returns the name operations waiting in the mempool. Commits
// only disclose their hash.
func (s *State) QueryPending() []PendingOp {
	txs := s.mempool.Pending()

	out := make([]PendingOp, 0, len(txs))
	for _, tx := range txs {
		from, err := tx.FromAddress()
		if err != nil {
			continue
		}

		op := PendingOp{
			TxID:   tx.TxID(),
			From:   from,
			Nonce:  tx.Nonce,
			Kind:   tx.Kind,
			Name:   tx.Name,
			Value:  tx.Value,
			Spends: tx.Spends,
		}
		if tx.Kind == names.KindCommit {
			op.Hash = tx.CommitHash.String()
		}

		out = append(out, op)
	}

	return out
}

// QueryAccount returns the nonce and unspent outputs of the address.
func (s *State) QueryAccount(address names.Address) Account {
	chain, _ := s.tip()

	return Account{
		Address: address,
		Nonce:   chain.ledger.Nonce(address),
		Outputs: chain.ledger.Outputs(address),
	}
}

// QueryMempoolLength returns the current length of the mempool.
func (s *State) QueryMempoolLength() int {
	return s.mempool.Count()
}

// QueryBlocksByNumber returns the set of blocks based on block numbers. This
// function reads the blockchain from storage.
func (s *State) QueryBlocksByNumber(from uint64, to uint64) []database.Block {
	latest := s.db.LatestBlock().Header.Number

	if from == QueryLastest {
		from = latest
		to = from
	}
	if to == QueryLastest || to > latest {
		to = latest
	}
	if from == 0 {
		from = 1
	}

	var out []database.Block
	for i := from; i <= to; i++ {
		block, err := s.db.GetBlock(i)
		if err != nil {
			s.evHandler("state: getblock: ERROR: %s", err)
			return nil
		}
		out = append(out, block)
	}

	return out
}

// QueryRegistry returns a copy of the commitment index and name store at the
// latest block.
func (s *State) QueryRegistry() (namedb.Tip, *commitment.Index, *namestore.Store) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	latest := s.db.LatestBlock()
	tip := namedb.Tip{
		Height: latest.Header.Number,
		Hash:   latest.Hash(),
	}

	return tip, s.chain.index.Clone(), s.chain.store.Clone()
}

// Validate checks the operation against the registry at the specified height
// using the node's ledger as the UTXO view. Nothing is changed.
func (s *State) Validate(op names.Operation, height uint64) (validator.Delta, error) {
	chain, height, err := s.chainAt(height)
	if err != nil {
		return validator.Delta{}, err
	}

	return validator.Validate(op, height, chain.view())
}

// =============================================================================

// tip returns the chain state at the latest block. Published chain states
// are never modified, so the value can be read without holding the lock.
func (s *State) tip() (chainState, uint64) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.chain, s.db.LatestBlock().Header.Number
}

// chainAt returns the chain state as of the specified height. Heights at or
// above the tip use the current state, lower heights are rebuilt by replay
// from the nearest snapshot.
func (s *State) chainAt(height uint64) (chainState, uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	latest := s.db.LatestBlock().Header.Number
	if height == QueryLastest {
		height = latest
	}

	if height >= latest {
		return s.chain, height, nil
	}

	from, snapshot := s.nearestSnapshot(height)
	chain := snapshot.clone()
	for n := from + 1; n <= height; n++ {
		block, err := s.db.GetBlock(n)
		if err != nil {
			return chainState{}, 0, err
		}

		if err := chain.applyBlock(block); err != nil {
			return chainState{}, 0, fmt.Errorf("replay block %d: %w", n, err)
		}
	}

	return chain, height, nil
}

func toNameInfo(rec names.Record, phase names.Phase, height uint64, params names.Params) NameInfo {
	return NameInfo{
		Record:    rec,
		Phase:     phase,
		Height:    height,
		ExpiresIn: names.ExpiresIn(rec, height, params),
		Expired:   phase == names.Expired,
	}
}
