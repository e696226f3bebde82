package facts

import (
	"sort"

	"github.com/robert-at-pretension-io/vcd2json/internal/path"
	"github.com/robert-at-pretension-io/vcd2json/internal/signal"
	"github.com/robert-at-pretension-io/vcd2json/internal/vcd"
)

// Tables is the relational view of a dump's declarations.
// Each slice is a relation (table) with flat rows.
type Tables struct {
	Scopes  []ScopeRow  `json:"scopes"`
	Signals []SignalRow `json:"signals"`
	Aliases []AliasRow  `json:"aliases"`
}

type ScopeRow struct {
	Path  string `json:"path"`
	Kind  string `json:"kind"`
	Depth int    `json:"depth"`
}

type SignalRow struct {
	Path  string `json:"path"`
	ID    string `json:"id"`
	Type  string `json:"type"`
	Width int    `json:"width"`
	Index string `json:"index,omitempty"`
	Scope string `json:"scope"`
}

// AliasRow links a path to the first path declared with the same id code.
type AliasRow struct {
	ID      string `json:"id"`
	Path    string `json:"path"`
	Primary string `json:"primary"`
}

// BuildTables flattens the header's scope tree and the table's registered
// declarations into rows sorted by path.
func BuildTables(header *vcd.Header, decls []signal.Declaration) Tables {
	tables := emptyTables()

	if header != nil {
		for _, item := range header.Items {
			collectScopes(path.Empty(), item, &tables.Scopes)
		}
	}

	primary := make(map[vcd.IDCode]string)
	for _, d := range decls {
		p := d.Path.String()
		tables.Signals = append(tables.Signals, SignalRow{
			Path:  p,
			ID:    string(d.Var.ID),
			Type:  d.Var.Type,
			Width: d.Var.Width,
			Index: d.Var.Index,
			Scope: d.Path.Parent().String(),
		})
		if first, ok := primary[d.Var.ID]; ok {
			tables.Aliases = append(tables.Aliases, AliasRow{ID: string(d.Var.ID), Path: p, Primary: first})
		} else {
			primary[d.Var.ID] = p
		}
	}

	sort.Slice(tables.Scopes, func(i, j int) bool { return tables.Scopes[i].Path < tables.Scopes[j].Path })
	sort.Slice(tables.Signals, func(i, j int) bool { return tables.Signals[i].Path < tables.Signals[j].Path })
	sort.Slice(tables.Aliases, func(i, j int) bool { return tables.Aliases[i].Path < tables.Aliases[j].Path })
	return tables
}

func collectScopes(prefix *path.Path, item vcd.ScopeItem, out *[]ScopeRow) {
	s, ok := item.(*vcd.Scope)
	if !ok {
		return
	}
	p := prefix.Extend(s.Identifier)
	*out = append(*out, ScopeRow{Path: p.String(), Kind: s.Kind, Depth: p.Len()})
	for _, c := range s.Children {
		collectScopes(p, c, out)
	}
}

func emptyTables() Tables {
	return Tables{
		Scopes:  []ScopeRow{},
		Signals: []SignalRow{},
		Aliases: []AliasRow{},
	}
}
