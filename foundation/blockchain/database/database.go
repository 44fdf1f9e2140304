// Package database handles the lower level support for storing the blockchain
// and the ledger of unspent outputs that name operations spend and create.
package database

import (
	"errors"
	"sync"

	"github.com/hlandauf/namecore/foundation/blockchain/genesis"
)

// ErrNotFound is returned by a serializer when a block does not exist.
var ErrNotFound = errors.New("block not found")

// Serializer interface represents the behavior required to be implemented by any
// package providing support for storing and reading the blockchain.
type Serializer interface {
	Write(blockData BlockData) error
	GetBlock(num uint64) (BlockData, error)
	ForEach() Iterator
	Truncate(height uint64) error
	Close() error
	Reset() error
}

// Iterator interface represents the behavior required to be implemented by any
// package providing support to iterate over the blocks.
type Iterator interface {
	Next() (BlockData, error)
	Done() bool
}

// =============================================================================

// DatabaseIterator walks the stored blocks converting them to blocks.
type DatabaseIterator struct {
	iterator Iterator
}

// Next retrieves the next block from storage.
func (di *DatabaseIterator) Next() (Block, error) {
	blockData, err := di.iterator.Next()
	if err != nil {
		return Block{}, err
	}

	return ToBlock(blockData)
}

// Done returns the end of chain value.
func (di *DatabaseIterator) Done() bool {
	return di.iterator.Done()
}

// =============================================================================

// Database manages the stored blocks and tracks the latest one. Replaying the
// blocks into chain state is the responsibility of the caller.
type Database struct {
	mu sync.RWMutex

	genesis     genesis.Genesis
	latestBlock Block

	serializer Serializer
}

// New constructs a new database over the specified serializer.
func New(genesis genesis.Genesis, serializer Serializer) *Database {
	return &Database{
		genesis:    genesis,
		serializer: serializer,
	}
}

// Genesis returns the genesis information the database was opened with.
func (db *Database) Genesis() genesis.Genesis {
	return db.genesis
}

// Close closes the open blocks database.
func (db *Database) Close() error {
	return db.serializer.Close()
}

// Reset re-initializes the database back to the genesis state.
func (db *Database) Reset() error {
	if err := db.serializer.Reset(); err != nil {
		return err
	}

	db.mu.Lock()
	defer db.mu.Unlock()

	db.latestBlock = Block{}

	return nil
}

// Truncate removes every block above the specified height.
func (db *Database) Truncate(height uint64) error {
	return db.serializer.Truncate(height)
}

// UpdateLatestBlock provides safe access to update the latest block.
func (db *Database) UpdateLatestBlock(block Block) {
	db.mu.Lock()
	defer db.mu.Unlock()

	db.latestBlock = block
}

// LatestBlock returns the latest block.
func (db *Database) LatestBlock() Block {
	db.mu.RLock()
	defer db.mu.RUnlock()

	return db.latestBlock
}

// Write adds a new block to the chain.
func (db *Database) Write(block Block) error {
	return db.serializer.Write(NewBlockData(block))
}

// ForEach returns an iterator to walk through all the blocks
// starting with block number 1.
func (db *Database) ForEach() DatabaseIterator {
	return DatabaseIterator{iterator: db.serializer.ForEach()}
}

// GetBlock searches the blockchain in storage to locate and return the
// contents of the specified block by number.
func (db *Database) GetBlock(num uint64) (Block, error) {
	blockData, err := db.serializer.GetBlock(num)
	if err != nil {
		return Block{}, err
	}

	return ToBlock(blockData)
}
