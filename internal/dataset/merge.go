// Package dataset holds the in-memory state of a load cycle: raw worksheets,
// normalized tables, and the merge rules that keep previous data alive across
// partially failed refreshes.
package dataset

import (
	"sort"
	"sync"

	"quasarcli/pkg/contracts/domain"
)

// Merge combines the tables of a fresh load cycle with the previous cycle's
// tables. A previous table survives only when its worksheet was not reloaded
// this cycle and its spreadsheet is still among the enumerated sources, so a
// transient read failure never shrinks the dataset but a deleted file does.
func Merge(previous, fresh map[string]domain.Table, enumerated map[string]bool) map[string]domain.Table {
	merged := make(map[string]domain.Table, len(fresh)+len(previous))
	for k, t := range fresh {
		merged[k] = t
	}
	for k, t := range previous {
		if _, ok := merged[k]; ok {
			continue
		}
		id, _ := domain.SplitKey(k)
		if enumerated[id] {
			merged[k] = t
		}
	}
	return merged
}

// MergeRaw applies the same survival rule to raw worksheets.
func MergeRaw(previous, fresh map[string]domain.RawSheet, enumerated map[string]bool) map[string]domain.RawSheet {
	merged := make(map[string]domain.RawSheet, len(fresh)+len(previous))
	for k, s := range fresh {
		merged[k] = s
	}
	for k, s := range previous {
		if _, ok := merged[k]; ok {
			continue
		}
		id, _ := domain.SplitKey(k)
		if enumerated[id] {
			merged[k] = s
		}
	}
	return merged
}

// Dataset is the shared state between refresh cycles and readers.
// All accessors return snapshots; writers swap whole maps.
type Dataset struct {
	mu   sync.RWMutex
	raw  map[string]domain.RawSheet
	norm map[string]domain.Table
}

func New() *Dataset {
	return &Dataset{
		raw:  map[string]domain.RawSheet{},
		norm: map[string]domain.Table{},
	}
}

// Replace swaps in the result of a completed load cycle.
func (d *Dataset) Replace(raw map[string]domain.RawSheet, norm map[string]domain.Table) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if raw == nil {
		raw = map[string]domain.RawSheet{}
	}
	if norm == nil {
		norm = map[string]domain.Table{}
	}
	d.raw = raw
	d.norm = norm
}

// Hydrate installs tables restored from the durable store. Raw worksheets are
// not recoverable from the store, so the raw map stays empty.
func (d *Dataset) Hydrate(norm map[string]domain.Table) {
	d.Replace(nil, norm)
}

// Tables returns a copy of the normalized table map.
func (d *Dataset) Tables() map[string]domain.Table {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make(map[string]domain.Table, len(d.norm))
	for k, t := range d.norm {
		out[k] = t
	}
	return out
}

// Raw returns a copy of the raw worksheet map.
func (d *Dataset) Raw() map[string]domain.RawSheet {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make(map[string]domain.RawSheet, len(d.raw))
	for k, s := range d.raw {
		out[k] = s
	}
	return out
}

// Transactions concatenates every normalized table into a single slice,
// ordered by table key for stable output.
func (d *Dataset) Transactions() []domain.Transaction {
	d.mu.RLock()
	defer d.mu.RUnlock()

	keys := make([]string, 0, len(d.norm))
	for k := range d.norm {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var all []domain.Transaction
	for _, k := range keys {
		all = append(all, d.norm[k].Rows...)
	}
	return all
}

// Counts reports the number of loaded worksheets and the total raw row count.
func (d *Dataset) Counts() (sheets, rows int) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	for _, s := range d.raw {
		rows += len(s.Rows)
	}
	sheets = len(d.raw)
	if sheets == 0 {
		// Hydrated from the store: report normalized shapes instead.
		sheets = len(d.norm)
		for _, t := range d.norm {
			rows += len(t.Rows)
		}
	}
	return sheets, rows
}

// Empty reports whether no tables are loaded at all.
func (d *Dataset) Empty() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.norm) == 0
}
