// Package path models a signal's location in the scope hierarchy.
//
// A Path is an immutable chain of segments. Extending a path allocates one
// node that points at its parent, so every signal declared inside a scope
// shares the scope's prefix instead of copying it.
package path

import (
	"strconv"
	"strings"
)

// Path is one segment plus a reference to its parent. The nil *Path is the
// root and has no segments.
type Path struct {
	parent  *Path
	segment string
	depth   int
}

// Empty returns the root path.
func Empty() *Path {
	return nil
}

// Extend returns a child of p named segment. p is not modified.
func (p *Path) Extend(segment string) *Path {
	return &Path{parent: p, segment: segment, depth: p.Len() + 1}
}

// Of builds a path from root-to-leaf segments.
func Of(segments ...string) *Path {
	var p *Path
	for _, s := range segments {
		p = p.Extend(s)
	}
	return p
}

// Len returns the number of segments.
func (p *Path) Len() int {
	if p == nil {
		return 0
	}
	return p.depth
}

// Parent returns the path without its last segment.
func (p *Path) Parent() *Path {
	if p == nil {
		return nil
	}
	return p.parent
}

// Last returns the final segment, or "" for the root.
func (p *Path) Last() string {
	if p == nil {
		return ""
	}
	return p.segment
}

// Segments walks the parent chain and returns the segments from root to leaf.
func (p *Path) Segments() []string {
	out := make([]string, p.Len())
	for n := p; n != nil; n = n.parent {
		out[n.depth-1] = n.segment
	}
	return out
}

// Equal reports whether p and q hold the same segment sequence.
func (p *Path) Equal(q *Path) bool {
	if p.Len() != q.Len() {
		return false
	}
	for a, b := p, q; a != nil; a, b = a.parent, b.parent {
		if a == b {
			return true
		}
		if a.segment != b.segment {
			return false
		}
	}
	return true
}

// Key returns a string that is equal for two paths iff the paths are Equal.
// It is used wherever a path has to be a map key. Each segment is length
// prefixed, so no byte inside a segment can fake a boundary.
func (p *Path) Key() string {
	var b strings.Builder
	for _, s := range p.Segments() {
		b.WriteString(strconv.Itoa(len(s)))
		b.WriteByte(':')
		b.WriteString(s)
	}
	return b.String()
}

// Compare orders paths segment by segment; a prefix sorts before its
// extensions. It returns -1, 0 or +1.
func Compare(a, b *Path) int {
	as, bs := a.Segments(), b.Segments()
	for i := 0; i < len(as) && i < len(bs); i++ {
		if c := strings.Compare(as[i], bs[i]); c != 0 {
			return c
		}
	}
	switch {
	case len(as) < len(bs):
		return -1
	case len(as) > len(bs):
		return 1
	}
	return 0
}

// String renders the path in dotted form.
func (p *Path) String() string {
	return strings.Join(p.Segments(), ".")
}
