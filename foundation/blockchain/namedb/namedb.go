// Package namedb persists the registry state at a block height in a leveldb
// database so a node can restart without replaying the whole chain.
package namedb

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/hlandauf/namecore/foundation/blockchain/commitment"
	"github.com/hlandauf/namecore/foundation/blockchain/names"
	"github.com/hlandauf/namecore/foundation/blockchain/namestore"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/storage"
	"github.com/syndtr/goleveldb/leveldb/util"
)

// ErrEmpty is returned by Load when nothing has been saved yet.
var ErrEmpty = errors.New("name database is empty")

// Set of key prefixes used in the database.
var (
	prefixPending  = []byte("c/")
	prefixConsumed = []byte("x/")
	prefixName     = []byte("n/")
	keyTip         = []byte("m/tip")
)

// Tip identifies the block the saved state corresponds to.
type Tip struct {
	Height uint64 `json:"height"`
	Hash   string `json:"hash"`
}

// DB is the leveldb backed registry cache.
type DB struct {
	ldb *leveldb.DB
}

// Open creates or opens the database at the specified path.
func Open(path string) (*DB, error) {
	ldb, err := leveldb.OpenFile(path, nil)
	if err != nil {
		return nil, fmt.Errorf("open leveldb: %w", err)
	}

	return &DB{ldb: ldb}, nil
}

// OpenMemory creates a database that lives only in memory.
func OpenMemory() (*DB, error) {
	ldb, err := leveldb.Open(storage.NewMemStorage(), nil)
	if err != nil {
		return nil, fmt.Errorf("open leveldb: %w", err)
	}

	return &DB{ldb: ldb}, nil
}

// Close closes the database.
func (d *DB) Close() error {
	return d.ldb.Close()
}

// Save replaces the stored state with the index and store at the tip. The
// write is a single batch so a crash leaves either the old or the new state.
func (d *DB) Save(tip Tip, idx *commitment.Index, store *namestore.Store) error {
	batch := new(leveldb.Batch)

	iter := d.ldb.NewIterator(nil, nil)
	for iter.Next() {
		batch.Delete(append([]byte(nil), iter.Key()...))
	}
	iter.Release()
	if err := iter.Error(); err != nil {
		return err
	}

	for _, c := range idx.Pending() {
		if err := put(batch, key(prefixPending, c.Hash.String()), c); err != nil {
			return err
		}
	}

	for _, cs := range idx.Consumed() {
		// A hash can be consumed more than once. The padded height keeps
		// its entries in consumption order.
		k := fmt.Sprintf("%s/%020d", cs.Commitment.Hash, cs.Height)
		if err := put(batch, key(prefixConsumed, k), cs); err != nil {
			return err
		}
	}

	for _, rec := range store.Records() {
		if err := put(batch, key(prefixName, rec.Name), store.History(rec.Name)); err != nil {
			return err
		}
	}

	if err := put(batch, keyTip, tip); err != nil {
		return err
	}

	return d.ldb.Write(batch, nil)
}

// Load rebuilds the index and the store from the saved state.
func (d *DB) Load(params names.Params) (Tip, *commitment.Index, *namestore.Store, error) {
	data, err := d.ldb.Get(keyTip, nil)
	if err != nil {
		if errors.Is(err, leveldb.ErrNotFound) {
			return Tip{}, nil, nil, ErrEmpty
		}
		return Tip{}, nil, nil, err
	}

	var tip Tip
	if err := json.Unmarshal(data, &tip); err != nil {
		return Tip{}, nil, nil, fmt.Errorf("decode tip: %w", err)
	}

	idx := commitment.New(params.CommitMaturity)
	store := namestore.New(params)

	iter := d.ldb.NewIterator(util.BytesPrefix(prefixPending), nil)
	for iter.Next() {
		var c names.Commitment
		if err := json.Unmarshal(iter.Value(), &c); err != nil {
			iter.Release()
			return Tip{}, nil, nil, fmt.Errorf("decode commitment %q: %w", iter.Key(), err)
		}
		if err := idx.Insert(c.Hash, c.Output, c.Height); err != nil {
			iter.Release()
			return Tip{}, nil, nil, err
		}
	}
	iter.Release()

	iter = d.ldb.NewIterator(util.BytesPrefix(prefixConsumed), nil)
	for iter.Next() {
		var cs commitment.Consumed
		if err := json.Unmarshal(iter.Value(), &cs); err != nil {
			iter.Release()
			return Tip{}, nil, nil, fmt.Errorf("decode consumed %q: %w", iter.Key(), err)
		}
		idx.MarkConsumed(cs)
	}
	iter.Release()

	iter = d.ldb.NewIterator(util.BytesPrefix(prefixName), nil)
	for iter.Next() {
		var history []names.Record
		if err := json.Unmarshal(iter.Value(), &history); err != nil {
			iter.Release()
			return Tip{}, nil, nil, fmt.Errorf("decode name %q: %w", iter.Key(), err)
		}
		for _, rec := range history {
			store.Put(rec)
		}
	}
	iter.Release()

	if err := iter.Error(); err != nil {
		return Tip{}, nil, nil, err
	}

	return tip, idx, store, nil
}

// =============================================================================

func key(prefix []byte, id string) []byte {
	return append(append([]byte(nil), prefix...), id...)
}

func put(batch *leveldb.Batch, key []byte, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}

	batch.Put(key, data)
	return nil
}
