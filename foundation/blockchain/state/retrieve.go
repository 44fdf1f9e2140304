package state

import (
	"github.com/hlandauf/namecore/foundation/blockchain/database"
	"github.com/hlandauf/namecore/foundation/blockchain/genesis"
	"github.com/hlandauf/namecore/foundation/blockchain/names"
	"github.com/hlandauf/namecore/foundation/blockchain/peer"
)

// RetrieveHost returns a copy of host information.
func (s *State) RetrieveHost() string {
	return s.host
}

// RetrieveMinerAddress returns the address receiving mined blocks.
func (s *State) RetrieveMinerAddress() names.Address {
	return s.minerAddress
}

// RetrieveGenesis returns a copy of the genesis information.
func (s *State) RetrieveGenesis() genesis.Genesis {
	return s.genesis
}

// RetrieveLatestBlock returns a copy the current latest block.
func (s *State) RetrieveLatestBlock() database.Block {
	return s.db.LatestBlock()
}

// RetrieveMempool returns a copy of the mempool in arrival order.
func (s *State) RetrieveMempool() []database.BlockTx {
	return s.mempool.Pending()
}

// RetrieveStatus returns the status of this node as shared with peers.
func (s *State) RetrieveStatus() peer.PeerStatus {
	chain, _ := s.tip()
	latest := s.db.LatestBlock()

	return peer.PeerStatus{
		LatestBlockHash:    latest.Hash(),
		LatestBlockNumber:  latest.Header.Number,
		Names:              chain.store.Len(),
		PendingCommitments: chain.index.Len(),
		MempoolLength:      s.mempool.Count(),
		KnownPeers:         s.RetrieveKnownPeers(),
	}
}

// RetrieveKnownPeers retrieves a copy of the known peer list.
func (s *State) RetrieveKnownPeers() []peer.Peer {
	return s.knownPeers.Copy(s.host)
}

// AddKnownPeer provides the ability to add a new peer to
// the known peer list.
func (s *State) AddKnownPeer(peer peer.Peer) bool {
	return s.knownPeers.Add(peer)
}

// RemoveKnownPeer provides the ability to remove a peer from
// the known peer list.
func (s *State) RemoveKnownPeer(peer peer.Peer) {
	s.knownPeers.Remove(peer)
}
