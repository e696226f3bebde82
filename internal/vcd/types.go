package vcd

import "fmt"

// Value is one four-state logic bit.
type Value byte

const (
	V0 Value = '0'
	V1 Value = '1'
	X  Value = 'X'
	Z  Value = 'Z'
)

func parseValue(c byte) (Value, bool) {
	switch c {
	case '0':
		return V0, true
	case '1':
		return V1, true
	case 'x', 'X':
		return X, true
	case 'z', 'Z':
		return Z, true
	}
	return 0, false
}

func (v Value) String() string {
	return string(rune(v))
}

// IDCode is the compact identifier a dump uses to refer to a variable.
type IDCode string

// Var is a $var declaration.
type Var struct {
	Type      string `json:"type"`
	Width     int    `json:"width"`
	ID        IDCode `json:"id"`
	Reference string `json:"reference"`
	// Index is the optional bit-select that follows the reference, e.g. "[7:0]".
	Index string `json:"index,omitempty"`
}

// Scope is a $scope block and everything declared inside it.
type Scope struct {
	Kind       string
	Identifier string
	Children   []ScopeItem
}

// ScopeItem is either a *Scope or a *Var.
type ScopeItem interface {
	scopeItem()
}

func (*Scope) scopeItem() {}
func (*Var) scopeItem()   {}

// Header holds everything before $enddefinitions.
type Header struct {
	Date      string
	Version   string
	Timescale string
	Comments  []string
	Items     []ScopeItem
}

// CommandKind tags a Command.
type CommandKind int

const (
	Timestamp CommandKind = iota
	ChangeScalar
	ChangeVector
	ChangeReal
	ChangeString
	Begin
	End
	Comment
)

var commandNames = map[CommandKind]string{
	Timestamp:    "timestamp",
	ChangeScalar: "scalar",
	ChangeVector: "vector",
	ChangeReal:   "real",
	ChangeString: "string",
	Begin:        "begin",
	End:          "end",
	Comment:      "comment",
}

func (k CommandKind) String() string {
	if s, ok := commandNames[k]; ok {
		return s
	}
	return fmt.Sprintf("CommandKind(%d)", int(k))
}

// Command is one item from the simulation section of a dump. Only the fields
// relevant to Kind are set.
type Command struct {
	Kind   CommandKind
	Time   uint64
	ID     IDCode
	Scalar Value
	Vector []Value
	Real   float64
	// Text is the string value for ChangeString, the keyword for Begin
	// ("dumpvars", "dumpall", "dumpon", "dumpoff") and the body of a Comment.
	Text string
}

// SyntaxError reports malformed dump input.
type SyntaxError struct {
	Line int
	Msg  string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("vcd: line %d: %s", e.Line, e.Msg)
}
