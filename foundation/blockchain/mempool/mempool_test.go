package mempool_test

import (
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/hlandauf/namecore/foundation/blockchain/database"
	"github.com/hlandauf/namecore/foundation/blockchain/mempool"
	"github.com/hlandauf/namecore/foundation/blockchain/mempool/selector"
	"github.com/hlandauf/namecore/foundation/blockchain/names"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

const (
	alicePK = "fae85851bdf5c9f49923722ce38f3c1defcfd3619ef5453230a58ad805499959"
	bobPK   = "aed31b6b5a21a4ba4d4b1e9d6dfb5e1e4b3e6b1c6a3e0d0b0e6d7c3a1f2e4b5c"
)

func sign(t *testing.T, hexKey string, tx database.Tx, ts uint64) database.BlockTx {
	t.Helper()

	pk, err := crypto.HexToECDSA(hexKey)
	if err != nil {
		t.Fatalf("unable to load key: %v", err)
	}

	tx.ChainID = 1
	signedTx, err := tx.Sign(pk)
	if err != nil {
		t.Fatalf("unable to sign: %v", err)
	}

	return database.BlockTx{SignedTx: signedTx, TimeStamp: ts}
}

func commit(nonce uint64, b byte) database.Tx {
	return database.Tx{Nonce: nonce, Kind: names.KindCommit, CommitHash: names.Hash{b}}
}

func mutate(nonce uint64, name string) database.Tx {
	return database.Tx{Nonce: nonce, Kind: names.KindMutate, Name: name, Value: "v", Spends: names.Outpoint{TxID: "0x01"}}
}

// =============================================================================

func TestConflicts(t *testing.T) {
	t.Log("Given the need to reject conflicting pending operations.")
	{
		testID := 0
		t.Logf("\tTest %d:\tWhen two operations touch the same name.", testID)
		{
			mp, err := mempool.New()
			if err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to construct the mempool: %v", failed, testID, err)
			}

			if _, err := mp.Upsert(sign(t, alicePK, mutate(1, "d/a"), 1)); err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould accept the first mutate: %v", failed, testID, err)
			}
			t.Logf("\t%s\tTest %d:\tShould accept the first mutate.", success, testID)

			_, err = mp.Upsert(sign(t, bobPK, mutate(1, "d/a"), 2))
			if !errors.Is(err, names.ErrPendingConflict) {
				t.Fatalf("\t%s\tTest %d:\tShould reject the second mutate with a pending conflict: %v", failed, testID, err)
			}
			t.Logf("\t%s\tTest %d:\tShould reject the second mutate with a pending conflict.", success, testID)

			if _, err := mp.Upsert(sign(t, bobPK, mutate(1, "d/b"), 3)); err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould accept a mutate of another name: %v", failed, testID, err)
			}
			t.Logf("\t%s\tTest %d:\tShould accept a mutate of another name.", success, testID)

			if err := mp.Delete(sign(t, alicePK, mutate(1, "d/a"), 1)); err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould delete: %v", failed, testID, err)
			}
			if mp.Claimed("name:d/a") {
				t.Fatalf("\t%s\tTest %d:\tShould release the claim on delete.", failed, testID)
			}
			if _, err := mp.Upsert(sign(t, bobPK, mutate(2, "d/a"), 4)); err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould accept the name once released: %v", failed, testID, err)
			}
			t.Logf("\t%s\tTest %d:\tShould accept the name once released.", success, testID)
		}

		testID++
		t.Logf("\tTest %d:\tWhen two commits carry the same hash.", testID)
		{
			mp, _ := mempool.New()

			if _, err := mp.Upsert(sign(t, alicePK, commit(1, 7), 1)); err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould accept the first commit: %v", failed, testID, err)
			}

			_, err := mp.Upsert(sign(t, bobPK, commit(1, 7), 2))
			if !errors.Is(err, names.ErrPendingConflict) {
				t.Fatalf("\t%s\tTest %d:\tShould reject the second commit: %v", failed, testID, err)
			}
			t.Logf("\t%s\tTest %d:\tShould reject the second commit.", success, testID)

			// The same signer replacing its own nonce swaps the claim.
			if _, err := mp.Upsert(sign(t, alicePK, commit(1, 8), 3)); err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould accept a replacement: %v", failed, testID, err)
			}
			if mp.Claimed("commit:"+names.Hash{7}.String()) || !mp.Claimed("commit:"+names.Hash{8}.String()) {
				t.Fatalf("\t%s\tTest %d:\tShould move the claim to the replacement.", failed, testID)
			}
			if mp.Count() != 1 {
				t.Fatalf("\t%s\tTest %d:\tShould hold one transaction, got %d.", failed, testID, mp.Count())
			}
			t.Logf("\t%s\tTest %d:\tShould move the claim to the replacement.", success, testID)

			mp.Truncate()
			if mp.Count() != 0 || mp.Claimed("commit:"+names.Hash{8}.String()) {
				t.Fatalf("\t%s\tTest %d:\tShould clear everything on truncate.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould clear everything on truncate.", success, testID)
		}
	}
}

func TestPickBest(t *testing.T) {
	for _, strategy := range []string{selector.StrategyRound, selector.StrategyFIFO} {
		t.Logf("Given the need to select transactions with the %s strategy.", strategy)
		{
			testID := 0
			t.Logf("\tTest %d:\tWhen two signers have pending operations.", testID)
			{
				mp, err := mempool.NewWithStrategy(strategy)
				if err != nil {
					t.Fatalf("\t%s\tTest %d:\tShould be able to construct the mempool: %v", failed, testID, err)
				}

				// Alice's nonce 2 arrives before her nonce 1.
				mp.Upsert(sign(t, alicePK, commit(2, 2), 1))
				mp.Upsert(sign(t, alicePK, commit(1, 1), 5))
				mp.Upsert(sign(t, bobPK, commit(1, 3), 2))
				mp.Upsert(sign(t, bobPK, commit(2, 4), 3))

				all := mp.PickBest(-1)
				if len(all) != 4 {
					t.Fatalf("\t%s\tTest %d:\tShould return all four, got %d.", failed, testID, len(all))
				}
				t.Logf("\t%s\tTest %d:\tShould return all four.", success, testID)

				seen := make(map[names.Address]uint64)
				for _, tx := range all {
					from, _ := tx.FromAddress()
					if tx.Nonce <= seen[from] {
						t.Fatalf("\t%s\tTest %d:\tShould respect nonce order for %s.", failed, testID, from)
					}
					seen[from] = tx.Nonce
				}
				t.Logf("\t%s\tTest %d:\tShould respect nonce order per signer.", success, testID)

				if got := mp.PickBest(3); len(got) != 3 {
					t.Fatalf("\t%s\tTest %d:\tShould limit the selection, got %d.", failed, testID, len(got))
				}
				t.Logf("\t%s\tTest %d:\tShould limit the selection.", success, testID)

				pending := mp.Pending()
				if pending[0].TimeStamp != 1 || pending[3].TimeStamp != 5 {
					t.Fatalf("\t%s\tTest %d:\tShould list pending in arrival order.", failed, testID)
				}
				t.Logf("\t%s\tTest %d:\tShould list pending in arrival order.", success, testID)
			}
		}
	}

	if _, err := mempool.NewWithStrategy("tip"); err == nil {
		t.Fatalf("\t%s\tShould reject an unknown strategy.", failed)
	}
}
