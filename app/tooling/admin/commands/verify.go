package commands

import (
	"errors"
	"fmt"
	"reflect"

	"github.com/hlandauf/namecore/foundation/blockchain/commitment"
	"github.com/hlandauf/namecore/foundation/blockchain/namedb"
	"github.com/hlandauf/namecore/foundation/blockchain/namestore"
	"github.com/hlandauf/namecore/foundation/blockchain/state"
	"github.com/hlandauf/namecore/foundation/blockchain/storage/disk"
	"go.uber.org/zap"
)

// ErrMismatch is returned when the name database does not match the chain.
var ErrMismatch = errors.New("name database does not match the chain")

// Registry is the registry state at a block.
type Registry struct {
	Tip   namedb.Tip
	Index *commitment.Index
	Store *namestore.Store
}

// Verify replays the stored blocks and compares the resulting registry with
// the one held in the name database.
func Verify(log *zap.SugaredLogger, paths Paths) error {
	gen, err := loadGenesis(paths.Genesis)
	if err != nil {
		return err
	}

	storage, err := disk.New(paths.Blocks)
	if err != nil {
		return err
	}

	ev := func(v string, args ...any) {
		log.Debugf(v, args...)
	}

	st, err := state.New(state.Config{
		Storage:   storage,
		Genesis:   gen,
		EvHandler: ev,
	})
	if err != nil {
		return fmt.Errorf("replay: %w", err)
	}
	defer st.Shutdown()

	db, err := namedb.Open(paths.NameDB)
	if err != nil {
		return err
	}
	defer db.Close()

	var chain Registry
	chain.Tip, chain.Index, chain.Store = st.QueryRegistry()

	var saved Registry
	saved.Tip, saved.Index, saved.Store, err = db.Load(gen.Params())
	if err != nil {
		return err
	}

	diffs := Compare(chain, saved)
	for _, diff := range diffs {
		log.Infow("verify", "status", "mismatch", "detail", diff)
	}

	if len(diffs) > 0 {
		return fmt.Errorf("%w: %d differences", ErrMismatch, len(diffs))
	}

	log.Infow("verify", "status", "ok", "height", chain.Tip.Height, "hash", chain.Tip.Hash, "names", chain.Store.Len(), "pending", chain.Index.Len())

	return nil
}

// Compare returns a description of every difference between the two
// registries. An empty result means they match.
func Compare(want Registry, got Registry) []string {
	var diffs []string

	if want.Tip != got.Tip {
		diffs = append(diffs, fmt.Sprintf("tip: chain %d:%s, namedb %d:%s", want.Tip.Height, want.Tip.Hash, got.Tip.Height, got.Tip.Hash))
	}

	if !reflect.DeepEqual(want.Index.Pending(), got.Index.Pending()) {
		diffs = append(diffs, fmt.Sprintf("pending commitments: chain %d, namedb %d", want.Index.Len(), got.Index.Len()))
	}

	if !reflect.DeepEqual(want.Index.Consumed(), got.Index.Consumed()) {
		diffs = append(diffs, fmt.Sprintf("consumed commitments: chain %d, namedb %d", len(want.Index.Consumed()), len(got.Index.Consumed())))
	}

	seen := make(map[string]bool)
	for _, rec := range want.Store.Records() {
		seen[rec.Name] = true
		if !reflect.DeepEqual(want.Store.History(rec.Name), got.Store.History(rec.Name)) {
			diffs = append(diffs, fmt.Sprintf("name %q: history differs", rec.Name))
		}
	}

	for _, rec := range got.Store.Records() {
		if !seen[rec.Name] {
			diffs = append(diffs, fmt.Sprintf("name %q: only in namedb", rec.Name))
		}
	}

	return diffs
}
