package commitment_test

import (
	"errors"
	"testing"

	"github.com/hlandauf/namecore/foundation/blockchain/commitment"
	"github.com/hlandauf/namecore/foundation/blockchain/names"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

const maturity = 12

func hashOf(name string) names.Hash {
	return names.CommitHash([]byte("salt"), name, "0xF01813E4B85e178A83e29B8E7bF26BD830a25f32")
}

func TestInsertConsume(t *testing.T) {
	t.Log("Given the need to track commitments until they are revealed.")
	{
		testID := 0
		t.Logf("\tTest %d:\tWhen inserting the same hash twice.", testID)
		{
			idx := commitment.New(maturity)
			hash := hashOf("d/one")

			if err := idx.Insert(hash, names.Outpoint{TxID: "0x01"}, 10); err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to insert a commitment: %s", failed, testID, err)
			}
			t.Logf("\t%s\tTest %d:\tShould be able to insert a commitment.", success, testID)

			err := idx.Insert(hash, names.Outpoint{TxID: "0x02"}, 11)
			if !errors.Is(err, names.ErrCollision) {
				t.Fatalf("\t%s\tTest %d:\tShould get a collision error: %v", failed, testID, err)
			}
			t.Logf("\t%s\tTest %d:\tShould get a collision error.", success, testID)
		}

		testID++
		t.Logf("\tTest %d:\tWhen consuming around the maturity depth.", testID)
		{
			idx := commitment.New(maturity)
			hash := hashOf("d/two")
			idx.Insert(hash, names.Outpoint{TxID: "0x01"}, 10)

			if _, err := idx.Consume(hash, 21); !errors.Is(err, names.ErrImmature) {
				t.Fatalf("\t%s\tTest %d:\tShould get an immature error one block early: %v", failed, testID, err)
			}
			t.Logf("\t%s\tTest %d:\tShould get an immature error one block early.", success, testID)

			if !idx.IsPending(hash) {
				t.Fatalf("\t%s\tTest %d:\tShould leave the commitment pending after a failure.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould leave the commitment pending after a failure.", success, testID)

			c, err := idx.Consume(hash, 22)
			if err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould consume at the maturity depth: %s", failed, testID, err)
			}
			t.Logf("\t%s\tTest %d:\tShould consume at the maturity depth.", success, testID)

			if c.Height != 10 || c.Output.TxID != "0x01" {
				t.Fatalf("\t%s\tTest %d:\tShould get back the commitment: %+v", failed, testID, c)
			}
			t.Logf("\t%s\tTest %d:\tShould get back the commitment.", success, testID)

			if _, err := idx.Consume(hash, 30); !errors.Is(err, names.ErrNotFound) {
				t.Fatalf("\t%s\tTest %d:\tShould not consume twice: %v", failed, testID, err)
			}
			t.Logf("\t%s\tTest %d:\tShould not consume twice.", success, testID)
		}
	}
}

func TestStatus(t *testing.T) {
	idx := commitment.New(maturity)
	pending := hashOf("d/pending")
	consumed := hashOf("d/consumed")

	idx.Insert(pending, names.Outpoint{TxID: "0x01"}, 100)
	idx.Insert(consumed, names.Outpoint{TxID: "0x02"}, 50)
	idx.Consume(consumed, 70)

	type table struct {
		name      string
		hash      names.Hash
		height    uint64
		state     commitment.State
		maturesAt uint64
	}

	tt := []table{
		{name: "pending", hash: pending, height: 105, state: commitment.StatePending, maturesAt: 112},
		{name: "matured", hash: pending, height: 112, state: commitment.StateMatured, maturesAt: 112},
		{name: "consumed", hash: consumed, height: 112, state: commitment.StateConsumed},
		{name: "absent", hash: hashOf("d/nothing"), height: 112, state: commitment.StateAbsent},
	}

	t.Log("Given the need to report commitment status.")
	{
		for testID, tst := range tt {
			f := func(t *testing.T) {
				t.Logf("\tTest %d:\tWhen asking for a %s commitment.", testID, tst.name)
				{
					status := idx.Status(tst.hash, tst.height)
					if status.State != tst.state {
						t.Logf("\t%s\tTest %d:\tgot: %s", failed, testID, status.State)
						t.Logf("\t%s\tTest %d:\texp: %s", failed, testID, tst.state)
						t.Fatalf("\t%s\tTest %d:\tShould get back the right state.", failed, testID)
					}
					t.Logf("\t%s\tTest %d:\tShould get back the right state.", success, testID)

					if status.MaturesAt != tst.maturesAt {
						t.Fatalf("\t%s\tTest %d:\tShould get back matures at %d, got %d.", failed, testID, tst.maturesAt, status.MaturesAt)
					}
					t.Logf("\t%s\tTest %d:\tShould get back the right maturity height.", success, testID)
				}
			}

			t.Run(tst.name, f)
		}
	}
}

func TestPrune(t *testing.T) {
	t.Log("Given the need to undo commitments above a height.")
	{
		testID := 0
		t.Logf("\tTest %d:\tWhen pruning after inserts and consumes.", testID)
		{
			idx := commitment.New(maturity)
			early := hashOf("d/early")
			late := hashOf("d/late")
			used := hashOf("d/used")

			idx.Insert(early, names.Outpoint{TxID: "0x01"}, 10)
			idx.Insert(used, names.Outpoint{TxID: "0x02"}, 11)
			idx.Insert(late, names.Outpoint{TxID: "0x03"}, 30)
			if _, err := idx.Consume(used, 25); err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould consume the commitment: %s", failed, testID, err)
			}

			before := idx.Clone()
			idx.Prune(20)

			if idx.IsPending(late) {
				t.Fatalf("\t%s\tTest %d:\tShould drop commitments created above the height.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould drop commitments created above the height.", success, testID)

			if !idx.IsPending(early) {
				t.Fatalf("\t%s\tTest %d:\tShould keep commitments created below the height.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould keep commitments created below the height.", success, testID)

			if !idx.IsPending(used) {
				t.Fatalf("\t%s\tTest %d:\tShould restore commitments consumed above the height.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould restore commitments consumed above the height.", success, testID)

			if before.IsPending(used) || before.Len() != 2 {
				t.Fatalf("\t%s\tTest %d:\tShould not change the clone.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould not change the clone.", success, testID)

			if got := len(idx.Consumed()); got != 0 {
				t.Fatalf("\t%s\tTest %d:\tShould have no consumed commitments, got %d.", failed, testID, got)
			}
			t.Logf("\t%s\tTest %d:\tShould have no consumed commitments.", success, testID)
		}

		testID++
		t.Logf("\tTest %d:\tWhen a hash is consumed, committed again and consumed again.", testID)
		{
			idx := commitment.New(maturity)
			hash := hashOf("d/again")

			idx.Insert(hash, names.Outpoint{TxID: "0x01"}, 10)
			if _, err := idx.Consume(hash, 25); err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould consume the first commitment: %s", failed, testID, err)
			}
			idx.Insert(hash, names.Outpoint{TxID: "0x02"}, 30)
			if _, err := idx.Consume(hash, 45); err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould consume the second commitment: %s", failed, testID, err)
			}

			if got := len(idx.Consumed()); got != 2 {
				t.Fatalf("\t%s\tTest %d:\tShould keep both consumptions, got %d.", failed, testID, got)
			}
			t.Logf("\t%s\tTest %d:\tShould keep both consumptions.", success, testID)

			idx.Prune(35)

			status := idx.Status(hash, 35)
			if status.State != commitment.StateConsumed || status.ConsumedAt != 25 || status.Commitment.Output.TxID != "0x01" {
				t.Fatalf("\t%s\tTest %d:\tShould fall back to the earlier consumption: %+v", failed, testID, status)
			}
			t.Logf("\t%s\tTest %d:\tShould fall back to the earlier consumption.", success, testID)

			if idx.IsPending(hash) {
				t.Fatalf("\t%s\tTest %d:\tShould drop the commitment made above the height.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould drop the commitment made above the height.", success, testID)
		}
	}
}
