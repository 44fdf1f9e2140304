package namestore_test

import (
	"testing"

	"github.com/hlandauf/namecore/foundation/blockchain/names"
	"github.com/hlandauf/namecore/foundation/blockchain/namestore"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

var params = names.Params{CommitMaturity: 12, ExpiryPeriod: 30}

func record(name string, value string, height uint64) names.Record {
	return names.Record{
		Name:               name,
		Value:              value,
		Owner:              names.Outpoint{TxID: "0x" + value},
		Address:            "0xF01813E4B85e178A83e29B8E7bF26BD830a25f32",
		RegistrationHeight: height,
		LastUpdateHeight:   height,
	}
}

func TestLookupPut(t *testing.T) {
	t.Log("Given the need to store and classify name records.")
	{
		testID := 0
		t.Logf("\tTest %d:\tWhen looking up an unknown name.", testID)
		{
			s := namestore.New(params)

			if _, phase := s.Lookup("d/none", 10); phase != names.Absent {
				t.Fatalf("\t%s\tTest %d:\tShould get back absent, got %s.", failed, testID, phase)
			}
			t.Logf("\t%s\tTest %d:\tShould get back absent.", success, testID)
		}

		testID++
		t.Logf("\tTest %d:\tWhen a record ages past the expiry period.", testID)
		{
			s := namestore.New(params)
			s.Put(record("d/name", "one", 100))

			rec, phase := s.Lookup("d/name", 130)
			if phase != names.Active || rec.Value != "one" {
				t.Fatalf("\t%s\tTest %d:\tShould be active at the expiry boundary, got %s.", failed, testID, phase)
			}
			t.Logf("\t%s\tTest %d:\tShould be active at the expiry boundary.", success, testID)

			rec, phase = s.Lookup("d/name", 131)
			if phase != names.Expired || rec.Value != "one" {
				t.Fatalf("\t%s\tTest %d:\tShould be expired past the boundary, got %s.", failed, testID, phase)
			}
			t.Logf("\t%s\tTest %d:\tShould be expired past the boundary and keep the record.", success, testID)
		}

		testID++
		t.Logf("\tTest %d:\tWhen a record is replaced.", testID)
		{
			s := namestore.New(params)
			s.Put(record("d/name", "one", 100))
			s.Put(record("d/name", "two", 140))

			rec, phase := s.Lookup("d/name", 140)
			if phase != names.Active || rec.Value != "two" {
				t.Fatalf("\t%s\tTest %d:\tShould see only the new value, got %q.", failed, testID, rec.Value)
			}
			t.Logf("\t%s\tTest %d:\tShould see only the new value.", success, testID)

			hist := s.History("d/name")
			if len(hist) != 2 || hist[0].Value != "one" || hist[1].Value != "two" {
				t.Fatalf("\t%s\tTest %d:\tShould keep the history in order: %+v", failed, testID, hist)
			}
			t.Logf("\t%s\tTest %d:\tShould keep the history in order.", success, testID)
		}
	}
}

func TestScanFilter(t *testing.T) {
	s := namestore.New(params)
	s.Put(record("d/alpha", "a", 100))
	s.Put(record("d/bravo", "b", 95))
	s.Put(record("d/charlie", "c", 60))
	s.Put(record("id/delta", "d", 99))

	t.Log("Given the need to walk the name table.")
	{
		testID := 0
		t.Logf("\tTest %d:\tWhen scanning from a start name.", testID)
		{
			recs := s.Scan("d/b", 2)
			if len(recs) != 2 || recs[0].Name != "d/bravo" || recs[1].Name != "d/charlie" {
				t.Fatalf("\t%s\tTest %d:\tShould get back two sorted names: %+v", failed, testID, recs)
			}
			t.Logf("\t%s\tTest %d:\tShould get back two sorted names.", success, testID)

			if got := len(s.Scan("", -1)); got != 4 {
				t.Fatalf("\t%s\tTest %d:\tShould get back every name, got %d.", failed, testID, got)
			}
			t.Logf("\t%s\tTest %d:\tShould get back every name.", success, testID)
		}

		testID++
		t.Logf("\tTest %d:\tWhen filtering active names.", testID)
		{
			recs, err := s.Filter(namestore.Filter{Pattern: "^d/"}, 100)
			if err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to filter: %s", failed, testID, err)
			}

			if len(recs) != 2 || recs[0].Name != "d/alpha" || recs[1].Name != "d/bravo" {
				t.Fatalf("\t%s\tTest %d:\tShould skip expired and unmatched names: %+v", failed, testID, recs)
			}
			t.Logf("\t%s\tTest %d:\tShould skip expired and unmatched names.", success, testID)

			recs, _ = s.Filter(namestore.Filter{MaxAge: 3}, 100)
			if len(recs) != 2 || recs[0].Name != "d/alpha" || recs[1].Name != "id/delta" {
				t.Fatalf("\t%s\tTest %d:\tShould honor the max age: %+v", failed, testID, recs)
			}
			t.Logf("\t%s\tTest %d:\tShould honor the max age.", success, testID)

			recs, _ = s.Filter(namestore.Filter{From: 1, Count: 1}, 100)
			if len(recs) != 1 || recs[0].Name != "d/bravo" {
				t.Fatalf("\t%s\tTest %d:\tShould honor from and count: %+v", failed, testID, recs)
			}
			t.Logf("\t%s\tTest %d:\tShould honor from and count.", success, testID)

			if _, err := s.Filter(namestore.Filter{Pattern: "("}, 100); err == nil {
				t.Fatalf("\t%s\tTest %d:\tShould reject a bad pattern.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould reject a bad pattern.", success, testID)
		}

		testID++
		t.Logf("\tTest %d:\tWhen cloning the store.", testID)
		{
			cpy := s.Clone()
			cpy.Put(record("d/alpha", "z", 101))

			if rec, _ := s.Lookup("d/alpha", 101); rec.Value != "a" {
				t.Fatalf("\t%s\tTest %d:\tShould not change the original.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould not change the original.", success, testID)

			if len(s.History("d/alpha")) != 1 || len(cpy.History("d/alpha")) != 2 {
				t.Fatalf("\t%s\tTest %d:\tShould keep separate histories.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould keep separate histories.", success, testID)
		}
	}
}
