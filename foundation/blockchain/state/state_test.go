package state_test

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/hlandauf/namecore/foundation/blockchain/commitment"
	"github.com/hlandauf/namecore/foundation/blockchain/database"
	"github.com/hlandauf/namecore/foundation/blockchain/genesis"
	"github.com/hlandauf/namecore/foundation/blockchain/names"
	"github.com/hlandauf/namecore/foundation/blockchain/state"
	"github.com/hlandauf/namecore/foundation/blockchain/storage/memory"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

const (
	alicePK = "fae85851bdf5c9f49923722ce38f3c1defcfd3619ef5453230a58ad805499959"
	bobPK   = "aed31b6b5a21a4ba4d4b1e9d6dfb5e1e4b3e6b1c6a3e0d0b0e6d7c3a1f2e4b5c"
	minerPK = "8dc79feefd3b86e2f9991def0e5ccd9a5128e104682407b308594bc1032ac7f0"
)

// testGenesis keeps the windows short so the lifecycle fits in a few blocks.
func testGenesis() genesis.Genesis {
	g := genesis.Default()
	g.Difficulty = 1
	g.CommitMaturity = 2
	g.ExpiryPeriod = 5
	g.SnapshotInterval = 2

	return g
}

func newState(t *testing.T) *state.State {
	t.Helper()

	storage, err := memory.New()
	if err != nil {
		t.Fatalf("unable to create storage: %v", err)
	}

	st, err := state.New(state.Config{
		MinerAddress: address(t, minerPK),
		Host:         "localhost:9080",
		Storage:      storage,
		Genesis:      testGenesis(),
	})
	if err != nil {
		t.Fatalf("unable to create state: %v", err)
	}

	return st
}

func address(t *testing.T, hexKey string) names.Address {
	t.Helper()

	pk, err := crypto.HexToECDSA(hexKey)
	if err != nil {
		t.Fatalf("unable to load key: %v", err)
	}

	return names.PublicKeyToAddress(pk.PublicKey)
}

// signer returns a function that signs with the key. It takes the result of
// the database.NewXTx constructors directly.
func signer(t *testing.T, hexKey string) func(database.Tx, error) database.SignedTx {
	t.Helper()

	pk, err := crypto.HexToECDSA(hexKey)
	if err != nil {
		t.Fatalf("unable to load key: %v", err)
	}

	return func(tx database.Tx, err error) database.SignedTx {
		t.Helper()

		if err != nil {
			t.Fatalf("unable to build tx: %v", err)
		}

		signedTx, err := tx.Sign(pk)
		if err != nil {
			t.Fatalf("unable to sign: %v", err)
		}

		return signedTx
	}
}

func generate(t *testing.T, st *state.State, count int) {
	t.Helper()

	if _, err := st.Generate(context.Background(), count); err != nil {
		t.Fatalf("unable to generate %d blocks: %v", count, err)
	}
}

func output(tx database.SignedTx) names.Outpoint {
	return names.Outpoint{TxID: tx.TxID()}
}

// =============================================================================

func TestLifecycle(t *testing.T) {
	const name = "d/example"
	salt := []byte("0123456789abcdefghij")

	t.Log("Given the need to register and update a name through the chain.")
	{
		st := newState(t)
		alice := address(t, alicePK)
		hash := names.CommitHash(salt, name, alice)

		testID := 0
		t.Logf("\tTest %d:\tWhen committing to a name.", testID)
		var commitTx database.SignedTx
		{
			commitTx = signer(t, alicePK)(database.NewCommitTx(1, 1, hash, ""))
			if err := st.SubmitWalletTransaction(commitTx); err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould accept the commit: %v", failed, testID, err)
			}
			t.Logf("\t%s\tTest %d:\tShould accept the commit.", success, testID)

			pending := st.QueryPending()
			if len(pending) != 1 || pending[0].Name != "" || pending[0].Hash != hash.String() {
				t.Fatalf("\t%s\tTest %d:\tShould list the commit by hash only: %+v", failed, testID, pending)
			}
			t.Logf("\t%s\tTest %d:\tShould list the commit by hash only.", success, testID)

			generate(t, st, 1)

			status, err := st.QueryCommitment(hash, state.QueryLastest)
			if err != nil || status.State != commitment.StatePending || status.MaturesAt != 3 {
				t.Fatalf("\t%s\tTest %d:\tShould report the commitment pending until 3: %+v: %v", failed, testID, status, err)
			}
			t.Logf("\t%s\tTest %d:\tShould report the commitment pending until 3.", success, testID)
		}

		testID++
		t.Logf("\tTest %d:\tWhen revealing the name.", testID)
		var revealTx database.SignedTx
		{
			revealTx = signer(t, alicePK)(database.NewRevealTx(1, 2, name, salt, "v1", output(commitTx), ""))

			err := st.SubmitWalletTransaction(revealTx)
			if !errors.Is(err, names.ErrImmature) {
				t.Fatalf("\t%s\tTest %d:\tShould reject an early reveal as immature: %v", failed, testID, err)
			}
			t.Logf("\t%s\tTest %d:\tShould reject an early reveal as immature.", success, testID)

			generate(t, st, 1)

			if err := st.SubmitWalletTransaction(revealTx); err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould accept the reveal once mature: %v", failed, testID, err)
			}
			generate(t, st, 1)
			t.Logf("\t%s\tTest %d:\tShould accept the reveal once mature.", success, testID)

			info, err := st.QueryName(name, state.QueryLastest)
			if err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould find the name: %v", failed, testID, err)
			}
			if info.Value != "v1" || info.RegistrationHeight != 3 || info.Phase != names.Active || info.ExpiresIn != 5 {
				t.Fatalf("\t%s\tTest %d:\tShould hold the revealed record: %+v", failed, testID, info)
			}
			t.Logf("\t%s\tTest %d:\tShould hold the revealed record.", success, testID)

			status, _ := st.QueryCommitment(hash, state.QueryLastest)
			if status.State != commitment.StateConsumed || status.ConsumedAt != 3 {
				t.Fatalf("\t%s\tTest %d:\tShould mark the commitment consumed: %+v", failed, testID, status)
			}
			t.Logf("\t%s\tTest %d:\tShould mark the commitment consumed.", success, testID)
		}

		testID++
		t.Logf("\tTest %d:\tWhen updating the name.", testID)
		{
			stolen := signer(t, bobPK)(database.NewMutateTx(1, 1, name, "mine", output(revealTx), ""))
			if err := st.SubmitWalletTransaction(stolen); !errors.Is(err, names.ErrWrongOwner) {
				t.Fatalf("\t%s\tTest %d:\tShould reject an update from another owner: %v", failed, testID, err)
			}
			t.Logf("\t%s\tTest %d:\tShould reject an update from another owner.", success, testID)

			update := signer(t, alicePK)(database.NewMutateTx(1, 3, name, "v2", output(revealTx), ""))
			if err := st.SubmitWalletTransaction(update); err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould accept the update: %v", failed, testID, err)
			}
			t.Logf("\t%s\tTest %d:\tShould accept the update.", success, testID)

			second := signer(t, alicePK)(database.NewMutateTx(1, 4, name, "v3", output(revealTx), ""))
			if err := st.SubmitWalletTransaction(second); !errors.Is(err, names.ErrPendingConflict) {
				t.Fatalf("\t%s\tTest %d:\tShould reject a second pending update: %v", failed, testID, err)
			}
			t.Logf("\t%s\tTest %d:\tShould reject a second pending update.", success, testID)

			generate(t, st, 1)

			info, err := st.QueryName(name, state.QueryLastest)
			if err != nil || info.Value != "v2" || info.LastUpdateHeight != 4 || info.RegistrationHeight != 3 {
				t.Fatalf("\t%s\tTest %d:\tShould hold the updated record: %+v: %v", failed, testID, info, err)
			}
			t.Logf("\t%s\tTest %d:\tShould hold the updated record.", success, testID)

			past, err := st.QueryName(name, 3)
			if err != nil || past.Value != "v1" {
				t.Fatalf("\t%s\tTest %d:\tShould answer for a past height: %+v: %v", failed, testID, past, err)
			}
			t.Logf("\t%s\tTest %d:\tShould answer for a past height.", success, testID)

			if _, err := st.QueryName(name, 2); !errors.Is(err, names.ErrNotFound) {
				t.Fatalf("\t%s\tTest %d:\tShould not find the name before the reveal: %v", failed, testID, err)
			}
			t.Logf("\t%s\tTest %d:\tShould not find the name before the reveal.", success, testID)

			history, err := st.QueryHistory(name)
			if err != nil || len(history) != 2 || history[0].Value != "v1" || history[1].Value != "v2" {
				t.Fatalf("\t%s\tTest %d:\tShould keep the history of the name: %+v: %v", failed, testID, history, err)
			}
			t.Logf("\t%s\tTest %d:\tShould keep the history of the name.", success, testID)

			if !history[0].Superseded || history[0].Expired || history[0].Phase != names.Active || history[0].Height != 4 {
				t.Fatalf("\t%s\tTest %d:\tShould mark the replaced record superseded and not expired: %+v", failed, testID, history[0])
			}
			if history[1].Superseded || history[1].Expired {
				t.Fatalf("\t%s\tTest %d:\tShould report the current record as current: %+v", failed, testID, history[1])
			}
			t.Logf("\t%s\tTest %d:\tShould mark the replaced record superseded and not expired.", success, testID)
		}

		testID++
		t.Logf("\tTest %d:\tWhen the name is not updated for the expiry period.", testID)
		{
			generate(t, st, 5)

			info, err := st.QueryName(name, state.QueryLastest)
			if err != nil || info.Phase != names.Active || info.ExpiresIn != 0 {
				t.Fatalf("\t%s\tTest %d:\tShould still be active on the last block: %+v: %v", failed, testID, info, err)
			}
			t.Logf("\t%s\tTest %d:\tShould still be active on the last block.", success, testID)

			generate(t, st, 1)

			info, err = st.QueryName(name, state.QueryLastest)
			if err != nil || !info.Expired || info.Phase != names.Expired {
				t.Fatalf("\t%s\tTest %d:\tShould report the name expired: %+v: %v", failed, testID, info, err)
			}
			t.Logf("\t%s\tTest %d:\tShould report the name expired.", success, testID)

			account := st.QueryAccount(alice)
			if account.Nonce != 3 || len(account.Outputs) != 1 {
				t.Fatalf("\t%s\tTest %d:\tShould track the owner output: %+v", failed, testID, account)
			}

			late := signer(t, alicePK)(database.NewMutateTx(1, 4, name, "late", account.Outputs[0].Outpoint, ""))
			if err := st.SubmitWalletTransaction(late); !errors.Is(err, names.ErrExpired) {
				t.Fatalf("\t%s\tTest %d:\tShould reject an update of an expired name: %v", failed, testID, err)
			}
			t.Logf("\t%s\tTest %d:\tShould reject an update of an expired name.", success, testID)
		}
	}
}

func TestNamesByAddress(t *testing.T) {
	const name = "d/list"
	salt := []byte("list-salt")

	t.Log("Given the need to list the names an address owns.")
	{
		st := newState(t)
		alice := address(t, alicePK)
		bob := address(t, bobPK)

		commitTx := signer(t, alicePK)(database.NewCommitTx(1, 1, names.CommitHash(salt, name, alice), ""))
		if err := st.SubmitWalletTransaction(commitTx); err != nil {
			t.Fatalf("unable to commit: %v", err)
		}
		generate(t, st, 2)

		revealTx := signer(t, alicePK)(database.NewRevealTx(1, 2, name, salt, "v1", output(commitTx), ""))
		if err := st.SubmitWalletTransaction(revealTx); err != nil {
			t.Fatalf("unable to reveal: %v", err)
		}
		generate(t, st, 1)

		testID := 0
		t.Logf("\tTest %d:\tWhen the name has just been registered.", testID)
		{
			list := st.QueryNamesByAddress(alice)
			if len(list) != 1 || list[0].Name != name || list[0].Value != "v1" || list[0].Expired {
				t.Fatalf("\t%s\tTest %d:\tShould list the name for the registrant: %+v", failed, testID, list)
			}
			t.Logf("\t%s\tTest %d:\tShould list the name for the registrant.", success, testID)

			if list := st.QueryNamesByAddress(bob); len(list) != 0 {
				t.Fatalf("\t%s\tTest %d:\tShould list nothing for another address: %+v", failed, testID, list)
			}
			t.Logf("\t%s\tTest %d:\tShould list nothing for another address.", success, testID)
		}

		testID++
		t.Logf("\tTest %d:\tWhen the name is transferred to another address.", testID)
		var transferTx database.SignedTx
		{
			transferTx = signer(t, alicePK)(database.NewMutateTx(1, 3, name, "v2", output(revealTx), bob))
			if err := st.SubmitWalletTransaction(transferTx); err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould accept the transfer: %v", failed, testID, err)
			}
			generate(t, st, 1)

			if list := st.QueryNamesByAddress(alice); len(list) != 0 {
				t.Fatalf("\t%s\tTest %d:\tShould drop the name from the previous owner: %+v", failed, testID, list)
			}
			t.Logf("\t%s\tTest %d:\tShould drop the name from the previous owner.", success, testID)

			list := st.QueryNamesByAddress(bob)
			if len(list) != 1 || list[0].Name != name || list[0].Value != "v2" {
				t.Fatalf("\t%s\tTest %d:\tShould list the name for the new owner: %+v", failed, testID, list)
			}
			t.Logf("\t%s\tTest %d:\tShould list the name for the new owner.", success, testID)
		}

		testID++
		t.Logf("\tTest %d:\tWhen the new owner updates the name.", testID)
		{
			update := signer(t, bobPK)(database.NewMutateTx(1, 1, name, "v3", output(transferTx), ""))
			if err := st.SubmitWalletTransaction(update); err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould accept the update from the new owner: %v", failed, testID, err)
			}
			generate(t, st, 1)

			list := st.QueryNamesByAddress(bob)
			if len(list) != 1 || list[0].Value != "v3" {
				t.Fatalf("\t%s\tTest %d:\tShould keep the name with the new owner: %+v", failed, testID, list)
			}
			t.Logf("\t%s\tTest %d:\tShould keep the name with the new owner.", success, testID)
		}

		testID++
		t.Logf("\tTest %d:\tWhen the name expires.", testID)
		{
			generate(t, st, 6)

			list := st.QueryNamesByAddress(bob)
			if len(list) != 1 || !list[0].Expired {
				t.Fatalf("\t%s\tTest %d:\tShould still list the name marked expired: %+v", failed, testID, list)
			}
			t.Logf("\t%s\tTest %d:\tShould still list the name marked expired.", success, testID)
		}
	}
}

func TestBlockRejected(t *testing.T) {
	t.Log("Given the need to reject blocks carrying invalid operations.")
	{
		testID := 0
		t.Logf("\tTest %d:\tWhen a proposed block reveals an immature commitment.", testID)
		{
			st := newState(t)
			alice := address(t, alicePK)
			salt := []byte("salt")

			commitTx := signer(t, alicePK)(database.NewCommitTx(1, 1, names.CommitHash(salt, "d/early", alice), ""))
			if err := st.SubmitWalletTransaction(commitTx); err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould accept the commit: %v", failed, testID, err)
			}
			generate(t, st, 1)

			revealTx := signer(t, alicePK)(database.NewRevealTx(1, 2, "d/early", salt, "v", output(commitTx), ""))

			latest := st.RetrieveLatestBlock()
			block, err := database.POW(context.Background(), database.POWArgs{
				MinerAddress: address(t, minerPK),
				Difficulty:   testGenesis().Difficulty,
				PrevBlock:    latest,
				Tx:           []database.BlockTx{database.NewBlockTx(revealTx)},
			})
			if err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to mine the block: %v", failed, testID, err)
			}

			if err := st.ProcessProposedBlock(block); !errors.Is(err, names.ErrImmature) {
				t.Fatalf("\t%s\tTest %d:\tShould reject the block as immature: %v", failed, testID, err)
			}
			t.Logf("\t%s\tTest %d:\tShould reject the block as immature.", success, testID)

			if st.RetrieveLatestBlock().Hash() != latest.Hash() {
				t.Fatalf("\t%s\tTest %d:\tShould leave the tip unchanged.", failed, testID)
			}
			if _, err := st.QueryName("d/early", state.QueryLastest); !errors.Is(err, names.ErrNotFound) {
				t.Fatalf("\t%s\tTest %d:\tShould leave the registry unchanged: %v", failed, testID, err)
			}
			t.Logf("\t%s\tTest %d:\tShould leave the tip and registry unchanged.", success, testID)
		}
	}
}

func TestRewind(t *testing.T) {
	const name = "d/rewind"
	salt := []byte("rewind-salt")

	t.Log("Given the need to rewind and replay the chain deterministically.")
	{
		testID := 0
		t.Logf("\tTest %d:\tWhen rewinding below a registration and replaying the same blocks.", testID)
		{
			st := newState(t)
			alice := address(t, alicePK)

			commitTx := signer(t, alicePK)(database.NewCommitTx(1, 1, names.CommitHash(salt, name, alice), ""))
			if err := st.SubmitWalletTransaction(commitTx); err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould accept the commit: %v", failed, testID, err)
			}
			generate(t, st, 2)

			revealTx := signer(t, alicePK)(database.NewRevealTx(1, 2, name, salt, "v1", output(commitTx), ""))
			if err := st.SubmitWalletTransaction(revealTx); err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould accept the reveal: %v", failed, testID, err)
			}
			generate(t, st, 1)

			update := signer(t, alicePK)(database.NewMutateTx(1, 3, name, "v2", output(revealTx), ""))
			if err := st.SubmitWalletTransaction(update); err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould accept the update: %v", failed, testID, err)
			}
			generate(t, st, 3)

			tip, idx, store := st.QueryRegistry()
			blocks := st.QueryBlocksByNumber(3, state.QueryLastest)
			if tip.Height != 6 || len(blocks) != 4 {
				t.Fatalf("\t%s\tTest %d:\tShould be at height 6 with 4 blocks above 2: %d %d", failed, testID, tip.Height, len(blocks))
			}

			if err := st.Rewind(2); err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould rewind to height 2: %v", failed, testID, err)
			}
			t.Logf("\t%s\tTest %d:\tShould rewind to height 2.", success, testID)

			if _, err := st.QueryName(name, state.QueryLastest); !errors.Is(err, names.ErrNotFound) {
				t.Fatalf("\t%s\tTest %d:\tShould undo the registration: %v", failed, testID, err)
			}
			t.Logf("\t%s\tTest %d:\tShould undo the registration.", success, testID)

			pending := st.QueryPending()
			if len(pending) != 1 || pending[0].Kind != names.KindReveal {
				t.Fatalf("\t%s\tTest %d:\tShould return the still valid reveal to the mempool: %+v", failed, testID, pending)
			}
			t.Logf("\t%s\tTest %d:\tShould return the still valid reveal to the mempool.", success, testID)

			if err := st.Rewind(10); !errors.Is(err, state.ErrHeightTooHigh) {
				t.Fatalf("\t%s\tTest %d:\tShould refuse to rewind above the tip: %v", failed, testID, err)
			}
			t.Logf("\t%s\tTest %d:\tShould refuse to rewind above the tip.", success, testID)

			for _, block := range blocks {
				if err := st.ProcessProposedBlock(block); err != nil {
					t.Fatalf("\t%s\tTest %d:\tShould replay block %d: %v", failed, testID, block.Header.Number, err)
				}
			}

			tip2, idx2, store2 := st.QueryRegistry()
			if tip != tip2 {
				t.Fatalf("\t%s\tTest %d:\tShould reach the same tip: %+v %+v", failed, testID, tip, tip2)
			}
			if !reflect.DeepEqual(idx, idx2) || !reflect.DeepEqual(store, store2) {
				t.Fatalf("\t%s\tTest %d:\tShould rebuild an identical registry.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould rebuild an identical registry.", success, testID)

			if st.QueryMempoolLength() != 0 {
				t.Fatalf("\t%s\tTest %d:\tShould clear the replayed reveal from the mempool.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould clear the replayed reveal from the mempool.", success, testID)
		}
	}
}

func TestValidate(t *testing.T) {
	t.Log("Given the need to dry run name operations against the registry.")
	{
		testID := 0
		t.Logf("\tTest %d:\tWhen checking operations that never reach the chain.", testID)
		{
			st := newState(t)

			op := names.Operation{Kind: names.KindMutate, Name: "d/none", Value: "v", Spends: names.Outpoint{TxID: "0x01"}}
			if _, err := st.Validate(op, state.QueryLastest); !errors.Is(err, names.ErrNotFound) {
				t.Fatalf("\t%s\tTest %d:\tShould reject a mutate of an unknown name: %v", failed, testID, err)
			}
			t.Logf("\t%s\tTest %d:\tShould reject a mutate of an unknown name.", success, testID)

			op = names.Operation{Kind: names.KindCommit, Hash: names.Hash{1}, Creates: names.Outpoint{TxID: "0x02"}}
			d, err := st.Validate(op, state.QueryLastest)
			if err != nil || d.Kind != names.KindCommit {
				t.Fatalf("\t%s\tTest %d:\tShould accept a fresh commit: %v", failed, testID, err)
			}
			if st.QueryMempoolLength() != 0 {
				t.Fatalf("\t%s\tTest %d:\tShould not change any state.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould accept a fresh commit without changing state.", success, testID)
		}
	}
}
