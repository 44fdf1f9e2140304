// Package commands contains the functionality for the set of commands
// currently supported by the admin CLI tooling.
package commands

import (
	"errors"
	"os"

	"github.com/hlandauf/namecore/foundation/blockchain/genesis"
)

// ErrHelp provides context that help was given.
var ErrHelp = errors.New("provided help")

// Paths locates the data of a node.
type Paths struct {
	Genesis string
	Blocks  string
	NameDB  string
}

// loadGenesis reads the genesis file or falls back to the development
// network parameters when there is none.
func loadGenesis(path string) (genesis.Genesis, error) {
	if _, err := os.Stat(path); err != nil {
		return genesis.Default(), nil
	}

	return genesis.Load(path)
}
