// Package genesis maintains access to the genesis file.
package genesis

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/hlandauf/namecore/foundation/blockchain/names"
)

// Genesis represents the genesis file.
type Genesis struct {
	Date             time.Time `json:"date" toml:"date"`
	ChainID          uint16    `json:"chain_id" toml:"chain_id"`                   // The chain id represents an unique id for this running instance.
	TransPerBlock    uint16    `json:"trans_per_block" toml:"trans_per_block"`     // The maximum number of transactions that can be in a block.
	Difficulty       uint16    `json:"difficulty" toml:"difficulty"`               // How difficult it needs to be to solve the work problem.
	CommitMaturity   uint64    `json:"commit_maturity" toml:"commit_maturity"`     // Blocks a commitment must age before it can be revealed.
	ExpiryPeriod     uint64    `json:"expiry_period" toml:"expiry_period"`         // Blocks a record stays active after its last update.
	SnapshotInterval uint64    `json:"snapshot_interval" toml:"snapshot_interval"` // Blocks between in memory state snapshots used for rewinds.
}

// Default returns the parameters of a local development network.
func Default() Genesis {
	return Genesis{
		Date:             time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC),
		ChainID:          1,
		TransPerBlock:    50,
		Difficulty:       2,
		CommitMaturity:   12,
		ExpiryPeriod:     30,
		SnapshotInterval: 10,
	}
}

// =============================================================================

// Load opens and consumes the genesis file. Files ending in .toml are
// decoded as TOML, everything else as JSON.
func Load(path string) (Genesis, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return Genesis{}, err
	}

	var genesis Genesis
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		if _, err := toml.Decode(string(content), &genesis); err != nil {
			return Genesis{}, fmt.Errorf("decode toml: %w", err)
		}

	default:
		if err := json.Unmarshal(content, &genesis); err != nil {
			return Genesis{}, fmt.Errorf("decode json: %w", err)
		}
	}

	if err := genesis.Validate(); err != nil {
		return Genesis{}, err
	}

	return genesis, nil
}

// Validate checks the parameters are usable.
func (g Genesis) Validate() error {
	switch {
	case g.ChainID == 0:
		return fmt.Errorf("chain_id must be set")
	case g.TransPerBlock == 0:
		return fmt.Errorf("trans_per_block must be greater than zero")
	case g.Difficulty > 16:
		return fmt.Errorf("difficulty %d is too large", g.Difficulty)
	case g.ExpiryPeriod == 0:
		return fmt.Errorf("expiry_period must be greater than zero")
	}

	return nil
}

// Params returns the name registration parameters for this network.
func (g Genesis) Params() names.Params {
	return names.Params{
		CommitMaturity: g.CommitMaturity,
		ExpiryPeriod:   g.ExpiryPeriod,
	}
}
