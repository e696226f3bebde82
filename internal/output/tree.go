// Package output builds the nested document written by the converter: scopes
// become objects keyed by name, signals become arrays with one element per
// timestep.
package output

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/robert-at-pretension-io/vcd2json/internal/path"
	"github.com/robert-at-pretension-io/vcd2json/internal/signal"
)

var (
	// ErrPrefixCollision is returned when a path runs through an existing leaf.
	ErrPrefixCollision = errors.New("signal path collides with another signal")
	// ErrEmptyPath is returned when inserting at the root.
	ErrEmptyPath = errors.New("cannot insert a signal at the root")
)

// Node is either a scope (Children set) or a leaf (Values set).
type Node[V any] struct {
	children map[string]*Node[V]
	values   []V
	leaf     bool
}

// New returns an empty scope to use as the document root.
func New[V any]() *Node[V] {
	return &Node[V]{children: make(map[string]*Node[V])}
}

// Build inserts every drained entry into a fresh tree.
func Build[V any](entries []signal.Entry[V]) (*Node[V], error) {
	root := New[V]()
	for _, e := range entries {
		if err := root.Insert(e.Path, e.Values); err != nil {
			return nil, err
		}
	}
	return root, nil
}

// IsLeaf reports whether n holds a value history.
func (n *Node[V]) IsLeaf() bool {
	return n.leaf
}

// Values returns the history of a leaf.
func (n *Node[V]) Values() []V {
	return n.values
}

// Names returns the child names of a scope in sorted order.
func (n *Node[V]) Names() []string {
	names := make([]string, 0, len(n.children))
	for name := range n.children {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Child returns the named child of a scope.
func (n *Node[V]) Child(name string) (*Node[V], bool) {
	c, ok := n.children[name]
	return c, ok
}

// Insert places values at p, creating intermediate scopes. The node named by
// the last segment is replaced by the leaf.
func (n *Node[V]) Insert(p *path.Path, values []V) error {
	segs := p.Segments()
	if len(segs) == 0 {
		return ErrEmptyPath
	}
	cur := n
	for i, name := range segs[:len(segs)-1] {
		if cur.leaf {
			return fmt.Errorf("%w: %s is a signal, cannot hold %s", ErrPrefixCollision, path.Of(segs[:i]...), p)
		}
		next, ok := cur.children[name]
		if !ok {
			next = New[V]()
			cur.children[name] = next
		}
		cur = next
	}
	if cur.leaf {
		return fmt.Errorf("%w: %s is a signal, cannot hold %s", ErrPrefixCollision, p.Parent(), p)
	}
	last := segs[len(segs)-1]
	if existing, ok := cur.children[last]; ok && !existing.leaf && len(existing.children) > 0 {
		return fmt.Errorf("%w: %s is a scope with signals below it", ErrPrefixCollision, p)
	}
	cur.children[last] = &Node[V]{values: values, leaf: true}
	return nil
}

// Lookup walks segments from n.
func (n *Node[V]) Lookup(segments ...string) (*Node[V], bool) {
	cur := n
	for _, s := range segments {
		if cur.leaf {
			return nil, false
		}
		next, ok := cur.children[s]
		if !ok {
			return nil, false
		}
		cur = next
	}
	return cur, true
}

// Leaves calls fn for every leaf in path order.
func (n *Node[V]) Leaves(fn func(p *path.Path, values []V)) {
	n.leaves(path.Empty(), fn)
}

func (n *Node[V]) leaves(prefix *path.Path, fn func(*path.Path, []V)) {
	if n.leaf {
		fn(prefix, n.values)
		return
	}
	for _, name := range n.Names() {
		n.children[name].leaves(prefix.Extend(name), fn)
	}
}

// CountLeaves returns the number of signals in the tree.
func (n *Node[V]) CountLeaves() int {
	count := 0
	n.Leaves(func(*path.Path, []V) { count++ })
	return count
}

// MarshalJSON encodes scopes as objects and leaves as arrays. encoding/json
// sorts map keys, which gives the lexicographic child order.
func (n *Node[V]) MarshalJSON() ([]byte, error) {
	if n.leaf {
		if n.values == nil {
			return []byte("[]"), nil
		}
		return json.Marshal(n.values)
	}
	return json.Marshal(n.children)
}

// MarshalYAML mirrors MarshalJSON. yaml.v3 also sorts map keys.
func (n *Node[V]) MarshalYAML() (any, error) {
	if n.leaf {
		if n.values == nil {
			return []V{}, nil
		}
		return n.values, nil
	}
	return n.children, nil
}

var (
	_ json.Marshaler = (*Node[int])(nil)
	_ yaml.Marshaler = (*Node[int])(nil)
)
