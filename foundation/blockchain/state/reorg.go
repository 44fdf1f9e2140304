package state

import (
	"errors"
	"fmt"

	"github.com/hlandauf/namecore/foundation/blockchain/database"
)

// ErrHeightTooHigh is returned when a rewind target is above the tip.
var ErrHeightTooHigh = errors.New("height is above the latest block")

// Rewind removes every block above the specified height and rebuilds the
// registry by replaying the remaining blocks from the nearest snapshot.
// Transactions from the removed blocks that are still valid go back into
// the mempool.
func (s *State) Rewind(height uint64) error {
	s.evHandler("state: Rewind: started: height[%d]", height)
	defer s.evHandler("state: Rewind: completed: height[%d]", height)

	// Hold any background mining operation until we are done.
	if s.Worker != nil {
		done := s.Worker.SignalCancelMining()
		defer done()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	latest := s.db.LatestBlock()
	switch {
	case height > latest.Header.Number:
		return fmt.Errorf("%w: height %d, latest %d", ErrHeightTooHigh, height, latest.Header.Number)
	case height == latest.Header.Number:
		return nil
	}

	// Capture the transactions of the blocks being removed.
	var removed []database.BlockTx
	for n := height + 1; n <= latest.Header.Number; n++ {
		block, err := s.db.GetBlock(n)
		if err != nil {
			return err
		}
		removed = append(removed, block.Values()...)
	}

	from, snapshot := s.nearestSnapshot(height)
	s.evHandler("state: Rewind: replay from snapshot[%d]", from)

	chain := snapshot.clone()
	var tip database.Block
	for n := from + 1; n <= height; n++ {
		block, err := s.db.GetBlock(n)
		if err != nil {
			return err
		}

		if err := chain.applyBlock(block); err != nil {
			return fmt.Errorf("replay block %d: %w", n, err)
		}
		tip = block
	}

	// When the target is the snapshot height itself, no block was replayed.
	if height > 0 && tip.Header.Number != height {
		block, err := s.db.GetBlock(height)
		if err != nil {
			return err
		}
		tip = block
	}

	if err := s.db.Truncate(height); err != nil {
		return err
	}
	s.db.UpdateLatestBlock(tip)

	for h := range s.snapshots {
		if h > height {
			delete(s.snapshots, h)
		}
	}
	s.chain = chain

	s.revalidateMempool(height + 1)

	for _, tx := range removed {
		if _, err := s.chain.check(tx.SignedTx, height+1); err != nil {
			s.evHandler("state: Rewind: tx[%s]: dropped: %s", tx, err)
			continue
		}
		if _, err := s.mempool.Upsert(tx); err != nil {
			s.evHandler("state: Rewind: tx[%s]: dropped: %s", tx, err)
		}
	}

	if err := s.saveNameDB(tip); err != nil {
		s.evHandler("state: Rewind: namedb: WARNING: %s", err)
	}

	return nil
}

// Reorganize corrects an identified fork. The chain is rewound to genesis
// and rebuilt from the peers. No mining is allowed to take place while this
// process is running. New transactions can be placed into the mempool.
func (s *State) Reorganize() error {
	if err := s.Rewind(0); err != nil {
		return err
	}

	s.mu.Lock()
	s.allowMining = false
	s.mu.Unlock()

	s.resyncWG.Add(1)
	go func() {
		s.evHandler("state: Resync: started: *****************************")
		defer func() {
			s.turnMiningOn()
			s.evHandler("state: Resync: completed: *****************************")
			s.resyncWG.Done()
		}()

		if s.Worker != nil {
			s.Worker.Sync()
		}
	}()

	return nil
}

// turnMiningOn sets the allowMining flag back to true.
func (s *State) turnMiningOn() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.allowMining = true
}
