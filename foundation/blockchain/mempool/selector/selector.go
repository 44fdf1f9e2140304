// Package selector provides different transaction selecting algorithms.
package selector

import (
	"fmt"
	"sort"

	"github.com/hlandauf/namecore/foundation/blockchain/database"
	"github.com/hlandauf/namecore/foundation/blockchain/names"
)

// List of different select strategies.
const (
	StrategyRound = "round"
	StrategyFIFO  = "fifo"
)

// Map of different select strategies with functions.
var strategies = map[string]Func{
	StrategyRound: roundSelect,
	StrategyFIFO:  fifoSelect,
}

// Func defines a function that takes a mempool of transactions grouped by
// address and selects howMany of them in an order based on the functions
// strategy. All selector functions MUST respect nonce ordering. Receiving -1
// for howMany must return all the transactions in the strategies ordering.
type Func func(transactions map[names.Address][]database.BlockTx, howMany int) []database.BlockTx

// Retrieve returns the specified select strategy function.
func Retrieve(strategy string) (Func, error) {
	fn, exists := strategies[strategy]
	if !exists {
		return nil, fmt.Errorf("strategy %q does not exist", strategy)
	}
	return fn, nil
}

// =============================================================================

// byNonce provides sorting support by the transaction nonce value.
type byNonce []database.BlockTx

// Len returns the number of transactions in the list.
func (bn byNonce) Len() int {
	return len(bn)
}

// Less helps to sort the list by nonce in ascending order to keep the
// transactions in the right order of processing.
func (bn byNonce) Less(i, j int) bool {
	return bn[i].Nonce < bn[j].Nonce
}

// Swap moves transactions in the order of the nonce value.
func (bn byNonce) Swap(i, j int) {
	bn[i], bn[j] = bn[j], bn[i]
}

// =============================================================================

// byArrival provides sorting support by the time the node received the
// transaction. Ties are broken by transaction id so the order is stable
// across nodes.
type byArrival []database.BlockTx

// Len returns the number of transactions in the list.
func (ba byArrival) Len() int {
	return len(ba)
}

// Less orders the list by arrival time.
func (ba byArrival) Less(i, j int) bool {
	if ba[i].TimeStamp != ba[j].TimeStamp {
		return ba[i].TimeStamp < ba[j].TimeStamp
	}
	return ba[i].TxID() < ba[j].TxID()
}

// Swap moves transactions in the order of arrival.
func (ba byArrival) Swap(i, j int) {
	ba[i], ba[j] = ba[j], ba[i]
}

// sortByNonce sorts the transactions of every address by nonce.
func sortByNonce(m map[names.Address][]database.BlockTx) {
	for key := range m {
		if len(m[key]) > 1 {
			sort.Sort(byNonce(m[key]))
		}
	}
}

// limit returns the number of transactions to select.
func limit(m map[names.Address][]database.BlockTx, howMany int) int {
	var total int
	for _, txs := range m {
		total += len(txs)
	}

	if howMany < 0 || howMany > total {
		return total
	}
	return howMany
}
