// Package signal tracks the value history of every declared signal while a
// dump is replayed.
//
// The Table is keyed two ways: by id code for O(1) event application, and by
// hierarchical path for the final re-indexing into the output tree. Every
// history advances in lockstep with global time, so after N AdvanceTime calls
// each signal holds exactly N values.
package signal

import (
	"errors"
	"fmt"
	"sort"

	"github.com/robert-at-pretension-io/vcd2json/internal/path"
	"github.com/robert-at-pretension-io/vcd2json/internal/value"
	"github.com/robert-at-pretension-io/vcd2json/internal/vcd"
)

var (
	// ErrDuplicatePath is returned when two declarations resolve to the same path.
	ErrDuplicatePath = errors.New("duplicate signal path")
	// ErrUnknownID is returned for a change to an undeclared id code.
	ErrUnknownID = errors.New("unknown signal id")
	// ErrNoTimestep is returned for a change before time has advanced.
	ErrNoTimestep = errors.New("value changed before the first timestep")
)

// Declaration is a registered signal: where it lives and what was declared.
type Declaration struct {
	Path *path.Path
	Var  *vcd.Var
	// Scope is the kind of the enclosing $scope ("module", "task", ...), empty
	// for top-level vars.
	Scope string
}

type history[V any] struct {
	decl   *vcd.Var
	values []V
}

// Table owns the in-progress histories.
type Table[V any] struct {
	repr  value.Representation[V]
	decls []Declaration
	paths map[string]int
	items map[vcd.IDCode]*history[V]
	// order lists id codes in declaration order so AdvanceTime is deterministic.
	order     []vcd.IDCode
	timesteps int
}

// NewTable builds a Table from a parsed header. It fails if two declarations
// share a full path.
func NewTable[V any](h *vcd.Header, repr value.Representation[V]) (*Table[V], error) {
	t := &Table[V]{
		repr:  repr,
		paths: make(map[string]int),
		items: make(map[vcd.IDCode]*history[V]),
	}
	if h == nil {
		return t, nil
	}
	for _, item := range h.Items {
		if err := t.walk(path.Empty(), "", item); err != nil {
			return nil, err
		}
	}
	return t, nil
}

func (t *Table[V]) walk(prefix *path.Path, scopeKind string, item vcd.ScopeItem) error {
	switch it := item.(type) {
	case *vcd.Scope:
		child := prefix.Extend(it.Identifier)
		for _, c := range it.Children {
			if err := t.walk(child, it.Kind, c); err != nil {
				return err
			}
		}
	case *vcd.Var:
		return t.register(Declaration{Path: prefix.Extend(it.Reference), Var: it, Scope: scopeKind})
	}
	return nil
}

func (t *Table[V]) register(d Declaration) error {
	key := d.Path.Key()
	if _, exists := t.paths[key]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicatePath, d.Path)
	}
	t.paths[key] = len(t.decls)
	t.decls = append(t.decls, d)

	// A second var with the same id code is an alias and shares the history.
	if _, ok := t.items[d.Var.ID]; !ok {
		t.items[d.Var.ID] = &history[V]{decl: d.Var}
		t.order = append(t.order, d.Var.ID)
	}
	return nil
}

// AdvanceTime opens a new timestep. Each history repeats its last value, or
// starts with the representation's empty value.
func (t *Table[V]) AdvanceTime() {
	for _, id := range t.order {
		h := t.items[id]
		if n := len(h.values); n > 0 {
			h.values = append(h.values, h.values[n-1])
		} else {
			h.values = append(h.values, t.repr.Empty(h.decl))
		}
	}
	t.timesteps++
}

// ChangeValue overwrites the value of id in the current timestep.
func (t *Table[V]) ChangeValue(id vcd.IDCode, v V) error {
	h, ok := t.items[id]
	if !ok {
		return fmt.Errorf("%w %q", ErrUnknownID, id)
	}
	if len(h.values) == 0 {
		return fmt.Errorf("%w: id %q", ErrNoTimestep, id)
	}
	h.values[len(h.values)-1] = v
	return nil
}

// Apply routes a dump command to AdvanceTime or ChangeValue. It reports
// whether a change was applied; changes the representation cannot hold and
// commands that carry no value are skipped.
func (t *Table[V]) Apply(cmd vcd.Command) (applied bool, err error) {
	if cmd.Kind == vcd.Timestamp {
		t.AdvanceTime()
		return false, nil
	}
	v, ok, err := value.Decode(t.repr, cmd)
	if err != nil {
		return false, fmt.Errorf("decoding %s change for id %q: %w", cmd.Kind, cmd.ID, err)
	}
	if !ok {
		return false, nil
	}
	if err := t.ChangeValue(cmd.ID, v); err != nil {
		return false, err
	}
	return true, nil
}

// Timesteps returns the number of AdvanceTime calls so far.
func (t *Table[V]) Timesteps() int {
	return t.timesteps
}

// Len returns the number of registered paths.
func (t *Table[V]) Len() int {
	return len(t.decls)
}

// IDs returns the number of distinct id codes.
func (t *Table[V]) IDs() int {
	return len(t.order)
}

// Declarations returns every registered declaration in declaration order.
func (t *Table[V]) Declarations() []Declaration {
	return append([]Declaration(nil), t.decls...)
}

// Lookup returns the declaration registered at p.
func (t *Table[V]) Lookup(p *path.Path) (Declaration, bool) {
	i, ok := t.paths[p.Key()]
	if !ok {
		return Declaration{}, false
	}
	return t.decls[i], true
}

// Values returns the current history for id.
func (t *Table[V]) Values(id vcd.IDCode) ([]V, bool) {
	h, ok := t.items[id]
	if !ok {
		return nil, false
	}
	return h.values, true
}

// Entry is a finished signal: its declaration and complete history.
type Entry[V any] struct {
	Declaration
	Values []V
}

// Drain returns one entry per registered path, sorted by path. Aliased paths
// share the same backing history. The table must not be used afterwards.
func (t *Table[V]) Drain() []Entry[V] {
	entries := make([]Entry[V], 0, len(t.decls))
	for _, d := range t.decls {
		entries = append(entries, Entry[V]{Declaration: d, Values: t.items[d.Var.ID].values})
	}
	sort.Slice(entries, func(i, j int) bool {
		return path.Compare(entries[i].Path, entries[j].Path) < 0
	})
	t.items = nil
	t.order = nil
	return entries
}
