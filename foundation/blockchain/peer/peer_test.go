package peer_test

import (
	"testing"

	"github.com/hlandauf/namecore/foundation/blockchain/peer"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

func TestPeerSet(t *testing.T) {
	t.Log("Given the need to track the known peers of a node.")
	{
		testID := 0
		t.Logf("\tTest %d:\tWhen adding and removing peers.", testID)
		{
			ps := peer.NewPeerSet()

			for _, host := range []string{"host3", "host1", "host2"} {
				if !ps.Add(peer.New(host)) {
					t.Fatalf("\t%s\tTest %d:\tShould add %s as a new peer.", failed, testID, host)
				}
			}
			if ps.Add(peer.New("host1")) {
				t.Fatalf("\t%s\tTest %d:\tShould report a known peer as not new.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould only add unknown peers.", success, testID)

			peers := ps.Copy("")
			if len(peers) != 3 || peers[0].Host != "host1" || peers[2].Host != "host3" {
				t.Fatalf("\t%s\tTest %d:\tShould get back all peers ordered by host: %v", failed, testID, peers)
			}
			t.Logf("\t%s\tTest %d:\tShould get back all peers ordered by host.", success, testID)

			peers = ps.Copy("host2")
			if len(peers) != 2 {
				t.Fatalf("\t%s\tTest %d:\tShould exclude the requesting host, got %d.", failed, testID, len(peers))
			}
			t.Logf("\t%s\tTest %d:\tShould exclude the requesting host.", success, testID)

			ps.Remove(peer.New("host3"))
			if peers := ps.Copy(""); len(peers) != 2 {
				t.Fatalf("\t%s\tTest %d:\tShould remove the peer, got %d.", failed, testID, len(peers))
			}
			t.Logf("\t%s\tTest %d:\tShould remove the peer.", success, testID)
		}

		testID++
		t.Logf("\tTest %d:\tWhen comparing a peer status with the local chain.", testID)
		{
			ps := peer.PeerStatus{LatestBlockNumber: 10}

			if !ps.Behind(9) || ps.Behind(10) {
				t.Fatalf("\t%s\tTest %d:\tShould only report missing blocks when the peer is ahead.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould only report missing blocks when the peer is ahead.", success, testID)
		}
	}
}
