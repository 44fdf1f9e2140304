package selector

import (
	"github.com/hlandauf/namecore/foundation/blockchain/database"
	"github.com/hlandauf/namecore/foundation/blockchain/names"
)

// fifoSelect returns transactions in the order they arrived. A transaction
// is only taken once every lower nonce from the same address was taken.
var fifoSelect = func(m map[names.Address][]database.BlockTx, howMany int) []database.BlockTx {
	howMany = limit(m, howMany)
	sortByNonce(m)

	final := make([]database.BlockTx, 0, howMany)
	for len(final) < howMany {
		var (
			pick  names.Address
			found bool
		)

		// Of the transactions at the head of each address, take the one
		// that arrived first.
		for addr, txs := range m {
			if len(txs) == 0 {
				continue
			}
			if !found || byArrival([]database.BlockTx{txs[0], m[pick][0]}).Less(0, 1) {
				pick, found = addr, true
			}
		}

		if !found {
			break
		}

		final = append(final, m[pick][0])
		m[pick] = m[pick][1:]
	}

	return final
}
