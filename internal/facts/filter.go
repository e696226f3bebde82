package facts

import "strings"

// FilterTablesByScope returns the rows at or below the dotted scope path.
// An empty scope keeps everything.
func FilterTablesByScope(tables Tables, scope string) Tables {
	if scope == "" {
		return tables
	}
	out := emptyTables()

	for _, row := range tables.Scopes {
		if under(row.Path, scope) {
			out.Scopes = append(out.Scopes, row)
		}
	}
	for _, row := range tables.Signals {
		if under(row.Path, scope) {
			out.Signals = append(out.Signals, row)
		}
	}
	for _, row := range tables.Aliases {
		if under(row.Path, scope) {
			out.Aliases = append(out.Aliases, row)
		}
	}

	return out
}

func under(p, scope string) bool {
	return p == scope || strings.HasPrefix(p, scope+".")
}
