package facts

import "strconv"

// Delta captures added and removed fact rows between two snapshots.
type Delta struct {
	Added   Tables `json:"added"`
	Removed Tables `json:"removed"`
}

// ComputeDelta computes row-level additions and removals between two snapshots.
func ComputeDelta(prev, next Tables) Delta {
	return Delta{
		Added:   diffTables(prev, next),
		Removed: diffTables(next, prev),
	}
}

// Empty reports whether the two snapshots were identical.
func (d Delta) Empty() bool {
	return d.Added.rows() == 0 && d.Removed.rows() == 0
}

func (t Tables) rows() int {
	return len(t.Scopes) + len(t.Signals) + len(t.Aliases)
}

func diffTables(from, to Tables) Tables {
	out := emptyTables()

	out.Scopes = diffRows(from.Scopes, to.Scopes, func(r ScopeRow) string {
		return r.Path + "|" + r.Kind
	})
	out.Signals = diffRows(from.Signals, to.Signals, func(r SignalRow) string {
		return r.Path + "|" + r.ID + "|" + r.Type + "|" + strconv.Itoa(r.Width) + "|" + r.Index
	})
	out.Aliases = diffRows(from.Aliases, to.Aliases, func(r AliasRow) string {
		return r.ID + "|" + r.Path + "|" + r.Primary
	})

	return out
}

func diffRows[T any](from, to []T, key func(T) string) []T {
	fromSet := make(map[string]T, len(from))
	for _, row := range from {
		fromSet[key(row)] = row
	}
	var diff []T
	for _, row := range to {
		rowKey := key(row)
		if _, ok := fromSet[rowKey]; !ok {
			diff = append(diff, row)
		}
	}
	if diff == nil {
		diff = []T{}
	}
	return diff
}
