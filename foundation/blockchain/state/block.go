package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/hlandauf/namecore/foundation/blockchain/database"
)

// ErrNoTransactions is returned when a block is requested to be created
// and there are not enough transactions.
var ErrNoTransactions = errors.New("no transactions in mempool")

// =============================================================================

// MineNewBlock attempts to create a new block with a proper hash that can become
// the next block in the chain.
func (s *State) MineNewBlock(ctx context.Context) (database.Block, error) {
	s.evHandler("state: MineNewBlock: MINING: check mempool count")

	if s.mempool.Count() == 0 {
		return database.Block{}, ErrNoTransactions
	}

	return s.mineBlock(ctx)
}

// Generate mines the specified number of blocks immediately, including
// blocks with no transactions. This lets a development network move the
// height forward so commitments can mature and names can expire.
func (s *State) Generate(ctx context.Context, count int) ([]database.Block, error) {
	s.evHandler("state: Generate: started: count[%d]", count)
	defer s.evHandler("state: Generate: completed")

	// Hold any background mining operation until we are done.
	if s.Worker != nil {
		done := s.Worker.SignalCancelMining()
		defer done()
	}

	blocks := make([]database.Block, 0, count)
	for i := 0; i < count; i++ {
		block, err := s.mineBlock(ctx)
		if err != nil {
			return blocks, err
		}
		blocks = append(blocks, block)

		if err := s.NetSendBlockToPeers(block); err != nil {
			s.evHandler("state: Generate: NetSendBlockToPeers: WARNING: %s", err)
		}
	}

	return blocks, nil
}

// ProcessProposedBlock takes a block received from a peer, validates it and
// if that passes, adds the block to the local blockchain.
func (s *State) ProcessProposedBlock(block database.Block) error {
	s.evHandler("state: ProcessProposedBlock: started: prevBlk[%s]: newBlk[%s]: numTrans[%d]", block.Header.PrevBlockHash, block.Hash(), len(block.Values()))
	defer s.evHandler("state: ProcessProposedBlock: completed: newBlk[%s]", block.Hash())

	if err := s.validateUpdateDatabase(block); err != nil {
		return err
	}

	// If the runMiningOperation function is being executed it needs to stop
	// immediately. The G executing runMiningOperation will not return from the
	// function until done is called. That allows this function to complete
	// its state changes before a new mining operation takes place.
	if s.Worker != nil {
		done := s.Worker.SignalCancelMining()
		defer func() {
			s.evHandler("state: ProcessProposedBlock: signal runMiningOperation to terminate")
			done()
		}()
	}

	return nil
}

// =============================================================================

// mineBlock picks transactions from the mempool, performs the POW and adds
// the block to the chain.
func (s *State) mineBlock(ctx context.Context) (database.Block, error) {
	s.evHandler("state: mineBlock: MINING: select transactions")

	prevBlock := s.db.LatestBlock()
	trans := s.selectTransactions(prevBlock.Header.Number + 1)

	s.evHandler("state: mineBlock: MINING: perform POW: txs[%d]", len(trans))

	block, err := database.POW(ctx, database.POWArgs{
		MinerAddress: s.minerAddress,
		Difficulty:   s.genesis.Difficulty,
		PrevBlock:    prevBlock,
		Tx:           trans,
		EvHandler:    s.evHandler,
	})
	if err != nil {
		return database.Block{}, err
	}

	// Just check one more time we were not cancelled.
	if ctx.Err() != nil {
		return database.Block{}, ctx.Err()
	}

	s.evHandler("state: mineBlock: MINING: validate and update database")

	if err := s.validateUpdateDatabase(block); err != nil {
		return database.Block{}, err
	}

	return block, nil
}

// selectTransactions picks the best transactions from the mempool that can
// all be applied together at the specified height. Transactions that no
// longer validate are evicted.
func (s *State) selectTransactions(height uint64) []database.BlockTx {
	candidates := s.mempool.PickBest(int(s.genesis.TransPerBlock))

	s.mu.RLock()
	cs := s.chain.clone()
	s.mu.RUnlock()

	trans := make([]database.BlockTx, 0, len(candidates))
	for _, tx := range candidates {
		if _, err := cs.applyTx(tx.SignedTx, height); err != nil {
			s.evHandler("state: selectTransactions: tx[%s]: evicted: %s", tx, err)
			s.mempool.Delete(tx)
			continue
		}
		trans = append(trans, tx)
	}

	return trans
}

// validateUpdateDatabase takes the block and validates the block against the
// consensus rules. If the block passes, then the state of the node is updated
// including adding the block to disk. A block carrying any rejected
// operation is rejected as a whole.
func (s *State) validateUpdateDatabase(block database.Block) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.evHandler("state: validateUpdateDatabase: validate block")

	if err := block.ValidateBlock(s.db.LatestBlock(), s.evHandler); err != nil {
		return err
	}

	s.evHandler("state: validateUpdateDatabase: validate name operations")

	next := s.chain.clone()
	if err := next.applyBlock(block); err != nil {
		return fmt.Errorf("block %d rejected: %w", block.Header.Number, err)
	}

	s.evHandler("state: validateUpdateDatabase: write to disk")

	if err := s.db.Write(block); err != nil {
		return err
	}
	s.db.UpdateLatestBlock(block)

	s.chain = next
	s.takeSnapshot(block.Header.Number)

	s.evHandler("state: validateUpdateDatabase: update mempool")

	for _, tx := range block.Values() {
		s.evHandler("state: validateUpdateDatabase: tx[%s] remove", tx)
		s.mempool.Delete(tx)
	}
	s.revalidateMempool(block.Header.Number + 1)

	if err := s.saveNameDB(block); err != nil {
		s.evHandler("state: validateUpdateDatabase: namedb: WARNING: %s", err)
	}

	s.blockEvent(block)

	return nil
}

// revalidateMempool evicts every pending transaction that is no longer valid
// at the specified height. The caller must hold the lock.
func (s *State) revalidateMempool(height uint64) {
	for _, tx := range s.mempool.Pending() {
		if _, err := s.chain.check(tx.SignedTx, height); err != nil {
			s.evHandler("state: revalidateMempool: tx[%s]: evicted: %s", tx, err)
			s.mempool.Delete(tx)
		}
	}
}

// blockEvent provides a specific event about a new block in the chain for
// application specific support.
func (s *State) blockEvent(block database.Block) {
	blockHeaderJSON, err := json.Marshal(block.Header)
	if err != nil {
		blockHeaderJSON = []byte(fmt.Sprintf("%q", err.Error()))
	}

	blockTransJSON, err := json.Marshal(block.Values())
	if err != nil {
		blockTransJSON = []byte(fmt.Sprintf("%q", err.Error()))
	}

	s.evHandler(`viewer: block: {"hash":%q,"header":%s,"trans":%s}`, block.Hash(), string(blockHeaderJSON), string(blockTransJSON))
}
