package commands

import (
	"fmt"

	"github.com/hlandauf/namecore/foundation/blockchain/namedb"
	"github.com/hlandauf/namecore/foundation/blockchain/names"
)

// Names prints the names held in the name database starting at start.
func Names(paths Paths, start string) error {
	gen, err := loadGenesis(paths.Genesis)
	if err != nil {
		return err
	}

	db, err := namedb.Open(paths.NameDB)
	if err != nil {
		return err
	}
	defer db.Close()

	tip, _, store, err := db.Load(gen.Params())
	if err != nil {
		return err
	}

	fmt.Printf("Tip: %d %s\n\n", tip.Height, tip.Hash)

	for _, rec := range store.Scan(start, -1) {
		phase := names.Classify(rec, tip.Height, store.Params())
		fmt.Printf("Name: %s  Phase: %s  Owner: %s  Updated: %d  Value: %s\n",
			rec.Name, phase, rec.Address, rec.LastUpdateHeight, rec.Value)
	}

	return nil
}
