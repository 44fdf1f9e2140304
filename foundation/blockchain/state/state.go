// Package state is the core API for the name registry chain. It owns the
// blocks, the ledger of outputs, the commitment index and the name store and
// serializes every change to them.
package state

import (
	"fmt"
	"sync"

	"github.com/hlandauf/namecore/foundation/blockchain/database"
	"github.com/hlandauf/namecore/foundation/blockchain/genesis"
	"github.com/hlandauf/namecore/foundation/blockchain/mempool"
	"github.com/hlandauf/namecore/foundation/blockchain/namedb"
	"github.com/hlandauf/namecore/foundation/blockchain/names"
	"github.com/hlandauf/namecore/foundation/blockchain/peer"
)

// maxSnapshots is the number of in memory snapshots kept for rewinds in
// addition to the genesis state.
const maxSnapshots = 32

// =============================================================================

// EventHandler defines a function that is called when events
// occur in the processing of persisting blocks.
type EventHandler func(v string, args ...any)

// Worker interface represents the behavior required to be implemented by any
// package providing support for mining, peer updates, and transaction sharing.
type Worker interface {
	Shutdown()
	Sync()
	SignalStartMining()
	SignalCancelMining() (done func())
	SignalShareTx(blockTx database.BlockTx)
}

// =============================================================================

// Config represents the configuration required to start
// the blockchain node.
type Config struct {
	MinerAddress   names.Address
	Host           string
	Storage        database.Serializer
	Genesis        genesis.Genesis
	SelectStrategy string
	KnownPeers     *peer.PeerSet
	NameDB         *namedb.DB
	EvHandler      EventHandler
}

// State manages the blockchain database.
type State struct {
	mu          sync.RWMutex
	resyncWG    sync.WaitGroup
	allowMining bool

	minerAddress names.Address
	host         string
	evHandler    EventHandler

	knownPeers *peer.PeerSet
	genesis    genesis.Genesis
	mempool    *mempool.Mempool
	db         *database.Database
	nameDB     *namedb.DB

	chain     chainState
	snapshots map[uint64]chainState

	Worker Worker
}

// New constructs a new blockchain for data management. The stored blocks
// are replayed to rebuild the registry.
func New(cfg Config) (*State, error) {

	// Build a safe event handler function for use.
	ev := func(v string, args ...any) {
		if cfg.EvHandler != nil {
			cfg.EvHandler(v, args...)
		}
	}

	if err := cfg.Genesis.Validate(); err != nil {
		return nil, fmt.Errorf("genesis: %w", err)
	}

	knownPeers := cfg.KnownPeers
	if knownPeers == nil {
		knownPeers = peer.NewPeerSet()
	}

	selectStrategy := cfg.SelectStrategy
	if selectStrategy == "" {
		selectStrategy = "round"
	}

	mempool, err := mempool.NewWithStrategy(selectStrategy)
	if err != nil {
		return nil, err
	}

	state := State{
		allowMining:  true,
		minerAddress: cfg.MinerAddress,
		host:         cfg.Host,
		evHandler:    ev,
		knownPeers:   knownPeers,
		genesis:      cfg.Genesis,
		mempool:      mempool,
		db:           database.New(cfg.Genesis, cfg.Storage),
		nameDB:       cfg.NameDB,
		chain:        newChainState(cfg.Genesis),
	}
	state.snapshots = map[uint64]chainState{0: state.chain.clone()}

	if err := state.replay(); err != nil {
		return nil, err
	}

	// The Worker is not set here. The call to worker.Run will assign itself
	// and start everything up and running for the node.

	return &state, nil
}

// Shutdown cleanly brings the node down.
func (s *State) Shutdown() error {
	s.evHandler("state: shutdown: started")
	defer s.evHandler("state: shutdown: completed")

	// Make sure the database file is properly closed.
	defer func() {
		s.db.Close()
	}()

	// Stop all blockchain writing activity.
	if s.Worker != nil {
		s.Worker.Shutdown()
	}

	// Wait for any resync to finish.
	s.resyncWG.Wait()

	return nil
}

// IsMiningAllowed identifies if we are allowed to mine blocks. This
// might be turned off if the blockchain needs to be re-synced.
func (s *State) IsMiningAllowed() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.allowMining
}

// =============================================================================

// replay reads every stored block, validates it and applies it to the
// registry. This runs once during construction.
func (s *State) replay() error {
	s.evHandler("state: replay: started")
	defer s.evHandler("state: replay: completed")

	var latest database.Block

	iter := s.db.ForEach()
	for block, err := iter.Next(); !iter.Done(); block, err = iter.Next() {
		if err != nil {
			return err
		}

		if err := block.ValidateBlock(latest, s.evHandler); err != nil {
			return fmt.Errorf("block %d: %w", block.Header.Number, err)
		}

		if err := s.chain.applyBlock(block); err != nil {
			return fmt.Errorf("block %d: %w", block.Header.Number, err)
		}

		s.takeSnapshot(block.Header.Number)
		latest = block
	}

	s.db.UpdateLatestBlock(latest)
	s.evHandler("state: replay: latest block[%d]: names[%d]: pending commitments[%d]", latest.Header.Number, s.chain.store.Len(), s.chain.index.Len())

	if err := s.saveNameDB(latest); err != nil {
		s.evHandler("state: replay: namedb: WARNING: %s", err)
	}

	return nil
}

// takeSnapshot records a copy of the chain state if the height lands on the
// snapshot interval. The caller must hold the lock or be in construction.
func (s *State) takeSnapshot(height uint64) {
	interval := s.genesis.SnapshotInterval
	if interval == 0 || height%interval != 0 {
		return
	}

	s.snapshots[height] = s.chain.clone()

	// Drop the oldest snapshot once over the limit. Genesis is never dropped.
	if len(s.snapshots) > maxSnapshots+1 {
		oldest := height
		for h := range s.snapshots {
			if h != 0 && h < oldest {
				oldest = h
			}
		}
		delete(s.snapshots, oldest)
	}
}

// nearestSnapshot returns the snapshot with the highest height at or below
// the specified height.
func (s *State) nearestSnapshot(height uint64) (uint64, chainState) {
	var best uint64
	for h := range s.snapshots {
		if h <= height && h > best {
			best = h
		}
	}

	return best, s.snapshots[best]
}

// saveNameDB writes the registry at the specified block to the name
// database if one is configured.
func (s *State) saveNameDB(block database.Block) error {
	if s.nameDB == nil {
		return nil
	}

	tip := namedb.Tip{
		Height: block.Header.Number,
		Hash:   block.Hash(),
	}

	return s.nameDB.Save(tip, s.chain.index, s.chain.store)
}
