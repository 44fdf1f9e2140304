package state

import (
	"github.com/hlandauf/namecore/foundation/blockchain/database"
)

// SubmitWalletTransaction accepts a transaction from a wallet for inclusion.
func (s *State) SubmitWalletTransaction(signedTx database.SignedTx) error {
	tx := database.NewBlockTx(signedTx)

	if err := s.admit(tx); err != nil {
		return err
	}

	if s.Worker != nil {
		s.Worker.SignalShareTx(tx)
		s.Worker.SignalStartMining()
	}

	return nil
}

// UpsertNodeTransaction accepts a transaction from a node for inclusion.
func (s *State) UpsertNodeTransaction(tx database.BlockTx) error {
	if err := s.admit(tx); err != nil {
		return err
	}

	if s.Worker != nil {
		s.Worker.SignalStartMining()
	}

	return nil
}

// =============================================================================

// admit validates the transaction as if it was mined in the next block and
// then places it in the mempool, where it is rejected if another pending
// transaction already claims the same name or hash.
func (s *State) admit(tx database.BlockTx) error {
	s.mu.RLock()
	{
		height := s.db.LatestBlock().Header.Number + 1
		if _, err := s.chain.check(tx.SignedTx, height); err != nil {
			s.mu.RUnlock()
			return err
		}
	}
	s.mu.RUnlock()

	n, err := s.mempool.Upsert(tx)
	if err != nil {
		return err
	}

	s.evHandler("state: admit: tx[%s]: kind[%s]: mempool[%d]", tx, tx.Kind, n)

	return nil
}
