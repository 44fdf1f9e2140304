package selector

import (
	"sort"

	"github.com/hlandauf/namecore/foundation/blockchain/database"
	"github.com/hlandauf/namecore/foundation/blockchain/names"
)

// roundSelect takes one transaction per address per round so a single busy
// signer can't fill a block, while respecting the nonce for each address.
var roundSelect = func(m map[names.Address][]database.BlockTx, howMany int) []database.BlockTx {
	howMany = limit(m, howMany)
	sortByNonce(m)

	/*
		Bill: {Nonce: 1, Kind: commit}, {Nonce: 2, Kind: reveal}
		Pavl: {Nonce: 1, Kind: mutate}, {Nonce: 2, Kind: mutate}
		Edua: {Nonce: 1, Kind: commit}

		0: Bill:1 Pavl:1 Edua:1
		1: Bill:2 Pavl:2
	*/

	var rows [][]database.BlockTx
	for {
		var row []database.BlockTx
		for key := range m {
			if len(m[key]) > 0 {
				row = append(row, m[key][0])
				m[key] = m[key][1:]
			}
		}
		if row == nil {
			break
		}
		rows = append(rows, row)
	}

	// Each row is ordered by arrival so the result does not depend on map
	// iteration order. When a row can't be taken whole, the earliest arrivals
	// win.
	final := make([]database.BlockTx, 0, howMany)
	for _, row := range rows {
		sort.Sort(byArrival(row))

		need := howMany - len(final)
		if len(row) >= need {
			final = append(final, row[:need]...)
			break
		}
		final = append(final, row...)
	}

	return final
}
