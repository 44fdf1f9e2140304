// Package namestore maintains the authoritative mapping of names to their
// current records. Records are never removed; expiry is derived from the
// height a record is read at.
package namestore

import (
	"fmt"
	"regexp"
	"sort"

	"github.com/hlandauf/namecore/foundation/blockchain/names"
)

// Store holds the current record and the superseded history for each name.
// The store is not safe for concurrent use; the owner serializes access.
type Store struct {
	params  names.Params
	records map[string]names.Record
	history map[string][]names.Record
}

// New constructs an empty store that classifies records with the
// specified parameters.
func New(params names.Params) *Store {
	return &Store{
		params:  params,
		records: make(map[string]names.Record),
		history: make(map[string][]names.Record),
	}
}

// Params returns the parameters used to classify records.
func (s *Store) Params() names.Params {
	return s.params
}

// Lookup returns the record for the name and its phase at the height.
func (s *Store) Lookup(name string, height uint64) (names.Record, names.Phase) {
	rec, exists := s.records[name]
	if !exists {
		return names.Record{}, names.Absent
	}

	return rec, names.Classify(rec, height, s.params)
}

// Put replaces the record for the name unconditionally. The previous record
// is kept in the history of the name.
func (s *Store) Put(rec names.Record) {
	if prev, exists := s.records[rec.Name]; exists {
		s.history[rec.Name] = append(s.history[rec.Name], prev)
	}

	s.records[rec.Name] = rec
}

// History returns every record the name has had, oldest first and ending
// with the current record.
func (s *Store) History(name string) []names.Record {
	rec, exists := s.records[name]
	if !exists {
		return nil
	}

	prev := s.history[name]
	out := make([]names.Record, 0, len(prev)+1)
	out = append(out, prev...)

	return append(out, rec)
}

// Len returns the number of names in the store.
func (s *Store) Len() int {
	return len(s.records)
}

// Records returns every current record ordered by name.
func (s *Store) Records() []names.Record {
	return s.Scan("", -1)
}

// Scan walks the records in name order starting at the first name greater
// than or equal to start. A count of -1 returns everything.
func (s *Store) Scan(start string, count int) []names.Record {
	keys := make([]string, 0, len(s.records))
	for name := range s.records {
		if name >= start {
			keys = append(keys, name)
		}
	}
	sort.Strings(keys)

	if count >= 0 && len(keys) > count {
		keys = keys[:count]
	}

	out := make([]names.Record, len(keys))
	for i, name := range keys {
		out[i] = s.records[name]
	}

	return out
}

// Owned returns the current records held by the address, in name order.
func (s *Store) Owned(address names.Address) []names.Record {
	var out []names.Record
	for _, rec := range s.Records() {
		if rec.Address.Equal(address) {
			out = append(out, rec)
		}
	}

	return out
}

// Filter describes a search over the active records.
type Filter struct {
	Pattern string // Regular expression the name must match. Empty matches all.
	MaxAge  uint64 // Only records updated within this many blocks. Zero disables.
	From    int    // Number of matches to skip.
	Count   int    // Maximum number of matches. Zero returns all.
}

// Filter returns the active records at the height that match the filter, in
// name order.
func (s *Store) Filter(f Filter, height uint64) ([]names.Record, error) {
	var re *regexp.Regexp
	if f.Pattern != "" {
		var err error
		if re, err = regexp.Compile(f.Pattern); err != nil {
			return nil, fmt.Errorf("compile pattern: %w", err)
		}
	}

	var out []names.Record
	skipped := 0
	for _, rec := range s.Records() {
		if names.Classify(rec, height, s.params) != names.Active {
			continue
		}

		if f.MaxAge > 0 && height > rec.LastUpdateHeight && height-rec.LastUpdateHeight > f.MaxAge {
			continue
		}

		if re != nil && !re.MatchString(rec.Name) {
			continue
		}

		if skipped < f.From {
			skipped++
			continue
		}

		out = append(out, rec)
		if f.Count > 0 && len(out) == f.Count {
			break
		}
	}

	return out, nil
}

// Clone makes a deep copy of the store.
func (s *Store) Clone() *Store {
	cpy := Store{
		params:  s.params,
		records: make(map[string]names.Record, len(s.records)),
		history: make(map[string][]names.Record, len(s.history)),
	}

	for name, rec := range s.records {
		cpy.records[name] = rec
	}
	for name, hist := range s.history {
		cpy.history[name] = append([]names.Record(nil), hist...)
	}

	return &cpy
}
