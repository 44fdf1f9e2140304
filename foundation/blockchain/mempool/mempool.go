// Package mempool maintains the pending name operations waiting to be mined.
// At most one pending operation may touch a name and at most one pending
// commit may carry a hash. A second operation on either is rejected when it
// arrives.
package mempool

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/hlandauf/namecore/foundation/blockchain/database"
	"github.com/hlandauf/namecore/foundation/blockchain/mempool/selector"
	"github.com/hlandauf/namecore/foundation/blockchain/names"
)

// Mempool represents a cache of transactions organized by address:nonce
// with a second index on the name or hash each transaction claims.
type Mempool struct {
	mu       sync.RWMutex
	pool     map[string]database.BlockTx
	claims   map[string]string // conflict key -> pool key
	selectFn selector.Func
}

// New constructs a new mempool using the default select strategy.
func New() (*Mempool, error) {
	return NewWithStrategy(selector.StrategyRound)
}

// NewWithStrategy constructs a new mempool with specified select strategy.
func NewWithStrategy(strategy string) (*Mempool, error) {
	selectFn, err := selector.Retrieve(strategy)
	if err != nil {
		return nil, err
	}

	mp := Mempool{
		pool:     make(map[string]database.BlockTx),
		claims:   make(map[string]string),
		selectFn: selectFn,
	}

	return &mp, nil
}

// Count returns the current number of transactions in the pool.
func (mp *Mempool) Count() int {
	mp.mu.RLock()
	defer mp.mu.RUnlock()

	return len(mp.pool)
}

// Upsert adds or replaces a transaction in the mempool. A transaction that
// claims a name or hash already claimed by a different pending transaction
// is rejected with a PendingConflictError.
func (mp *Mempool) Upsert(tx database.BlockTx) (int, error) {
	key, err := mapKey(tx)
	if err != nil {
		return 0, err
	}

	claim := conflictKey(tx)

	mp.mu.Lock()
	defer mp.mu.Unlock()

	if owner, exists := mp.claims[claim]; exists && owner != key {
		return 0, names.Errorf(names.KindPendingConflict, "%s already claimed by pending transaction %s", claim, owner)
	}

	// A replacement for the same address and nonce gives up what the
	// previous version claimed.
	if prev, exists := mp.pool[key]; exists {
		delete(mp.claims, conflictKey(prev))
	}

	mp.pool[key] = tx
	mp.claims[claim] = key

	return len(mp.pool), nil
}

// Delete removes a transaction from the mempool.
func (mp *Mempool) Delete(tx database.BlockTx) error {
	key, err := mapKey(tx)
	if err != nil {
		return err
	}

	mp.mu.Lock()
	defer mp.mu.Unlock()

	if prev, exists := mp.pool[key]; exists {
		delete(mp.claims, conflictKey(prev))
		delete(mp.pool, key)
	}

	return nil
}

// Truncate clears all the transactions from the pool.
func (mp *Mempool) Truncate() {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	mp.pool = make(map[string]database.BlockTx)
	mp.claims = make(map[string]string)
}

// Claimed reports whether a pending transaction already claims the key
// produced by names.Operation.ConflictKey.
func (mp *Mempool) Claimed(key string) bool {
	mp.mu.RLock()
	defer mp.mu.RUnlock()

	_, exists := mp.claims[key]
	return exists
}

// Pending returns a copy of every transaction in the pool in arrival order.
func (mp *Mempool) Pending() []database.BlockTx {
	mp.mu.RLock()
	txs := make([]database.BlockTx, 0, len(mp.pool))
	for _, tx := range mp.pool {
		txs = append(txs, tx)
	}
	mp.mu.RUnlock()

	sort.Slice(txs, func(i, j int) bool {
		if txs[i].TimeStamp != txs[j].TimeStamp {
			return txs[i].TimeStamp < txs[j].TimeStamp
		}
		return txs[i].TxID() < txs[j].TxID()
	})

	return txs
}

// PickBest uses the configured select strategy to return the next set
// of transactions for the next block.
func (mp *Mempool) PickBest(howMany int) []database.BlockTx {

	// Group the transactions by address.
	m := make(map[names.Address][]database.BlockTx)
	mp.mu.RLock()
	{
		for key, tx := range mp.pool {
			addr := names.Address(strings.Split(key, ":")[0])
			m[addr] = append(m[addr], tx)
		}
	}
	mp.mu.RUnlock()

	return mp.selectFn(m, howMany)
}

// =============================================================================

// mapKey is used to generate the map key.
func mapKey(tx database.BlockTx) (string, error) {
	from, err := tx.FromAddress()
	if err != nil {
		return "", err
	}

	return fmt.Sprintf("%s:%d", from, tx.Nonce), nil
}

// conflictKey returns the name or hash the transaction claims.
func conflictKey(tx database.BlockTx) string {
	op := names.Operation{
		Kind: tx.Kind,
		Hash: tx.CommitHash,
		Name: tx.Name,
	}

	return op.ConflictKey()
}
