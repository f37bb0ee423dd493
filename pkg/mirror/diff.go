package mirror

import (
	"maps"
	"slices"

	"github.com/michael-lorenzo/pypi-dependency-graph/pkg/store"
)

// Plan is the outcome of comparing a registry snapshot with the store.
//
// ToCreate, ToUpdate and ToDelete are pairwise disjoint and sorted. Together
// with the Unchanged names they cover every key of Snapshot and Index.
//
// Stubs are in ToUpdate on every pass, even when their serial has not moved,
// so each stub costs one metadata fetch per pass until a fetch succeeds.
type Plan struct {
	ToCreate  []string
	ToUpdate  []string
	ToDelete  []string
	Unchanged int

	// Snapshot and Index are the inputs, kept so Apply can look up serials.
	Snapshot map[string]int64
	Index    store.Index
}

// Diff computes which records must be created, refreshed or removed.
//
// A name in both inputs is refreshed when the snapshot serial is newer, or
// when the stored record is a stub whose earlier fetch failed.
func Diff(snapshot map[string]int64, index store.Index) *Plan {
	p := &Plan{Snapshot: snapshot, Index: index}
	for name, serial := range snapshot {
		entry, ok := index[name]
		switch {
		case !ok:
			p.ToCreate = append(p.ToCreate, name)
		case serial > entry.Serial || entry.Stub:
			p.ToUpdate = append(p.ToUpdate, name)
		default:
			p.Unchanged++
		}
	}
	for name := range index {
		if _, ok := snapshot[name]; !ok {
			p.ToDelete = append(p.ToDelete, name)
		}
	}
	slices.Sort(p.ToCreate)
	slices.Sort(p.ToUpdate)
	slices.Sort(p.ToDelete)
	return p
}

// Empty reports whether applying p would change nothing.
func (p *Plan) Empty() bool {
	return len(p.ToCreate) == 0 && len(p.ToUpdate) == 0 && len(p.ToDelete) == 0
}

// UnchangedNames lists the names present on both sides that need no work.
func (p *Plan) UnchangedNames() []string {
	skip := make(map[string]struct{}, len(p.ToUpdate))
	for _, n := range p.ToUpdate {
		skip[n] = struct{}{}
	}
	var names []string
	for _, n := range slices.Sorted(maps.Keys(p.Snapshot)) {
		if _, stored := p.Index[n]; !stored {
			continue
		}
		if _, ok := skip[n]; !ok {
			names = append(names, n)
		}
	}
	return names
}
