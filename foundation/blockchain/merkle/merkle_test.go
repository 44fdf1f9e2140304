package merkle_test

import (
	"bytes"
	"crypto/sha256"
	"testing"

	"github.com/hlandauf/namecore/foundation/blockchain/merkle"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

type op string

func (o op) Hash() ([]byte, error) {
	h := sha256.Sum256([]byte(o))
	return h[:], nil
}

func (o op) Equals(other op) bool {
	return o == other
}

// =============================================================================

func TestTree(t *testing.T) {
	t.Log("Given the need to commit a block to its operations.")
	{
		testID := 0
		t.Logf("\tTest %d:\tWhen handling three operations.", testID)
		{
			values := []op{"commit:a", "reveal:d/a", "mutate:d/a"}

			tree, err := merkle.NewTree(values)
			if err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to build the tree: %v", failed, testID, err)
			}
			t.Logf("\t%s\tTest %d:\tShould be able to build the tree.", success, testID)

			if err := tree.Verify(); err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould verify the tree: %v", failed, testID, err)
			}
			t.Logf("\t%s\tTest %d:\tShould verify the tree.", success, testID)

			if got := tree.Values(); len(got) != len(values) {
				t.Fatalf("\t%s\tTest %d:\tShould return the values without padding: got %d", failed, testID, len(got))
			}
			t.Logf("\t%s\tTest %d:\tShould return the values without padding.", success, testID)

			proof, order, err := tree.Proof(values[1])
			if err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould produce a proof: %v", failed, testID, err)
			}

			hash, _ := values[1].Hash()
			for i := range proof {
				var joined []byte
				if order[i] == 0 {
					joined = append(append(joined, proof[i]...), hash...)
				} else {
					joined = append(append(joined, hash...), proof[i]...)
				}
				sum := sha256.Sum256(joined)
				hash = sum[:]
			}

			if !bytes.Equal(hash, tree.MerkleRoot) {
				t.Fatalf("\t%s\tTest %d:\tShould rebuild the root from the proof.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould rebuild the root from the proof.", success, testID)

			if err := tree.VerifyData(values[2]); err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould verify a value: %v", failed, testID, err)
			}
			t.Logf("\t%s\tTest %d:\tShould verify a value.", success, testID)

			if err := tree.VerifyData("commit:b"); err == nil {
				t.Fatalf("\t%s\tTest %d:\tShould not verify an unknown value.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould not verify an unknown value.", success, testID)
		}

		testID++
		t.Logf("\tTest %d:\tWhen handling a block with no operations.", testID)
		{
			tree, err := merkle.NewTree[op](nil)
			if err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to build an empty tree: %v", failed, testID, err)
			}
			t.Logf("\t%s\tTest %d:\tShould be able to build an empty tree.", success, testID)

			if !bytes.Equal(tree.MerkleRoot, make([]byte, sha256.Size)) {
				t.Fatalf("\t%s\tTest %d:\tShould have a zero root.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould have a zero root.", success, testID)

			if err := tree.Verify(); err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould verify the empty tree: %v", failed, testID, err)
			}
			t.Logf("\t%s\tTest %d:\tShould verify the empty tree.", success, testID)
		}
	}
}
