// Package value defines how raw dump values are stored in a signal history.
//
// A Representation is chosen once per conversion and decides how each kind of
// change (scalar bit, bit vector, real, string) decodes into the history's
// element type. Decoding may legitimately produce nothing: the numeric
// representation has no opinion on real or string changes.
package value

import (
	"errors"
	"fmt"

	"github.com/robert-at-pretension-io/vcd2json/internal/vcd"
)

var (
	// ErrOverflow is returned when a bit vector does not fit a Number.
	ErrOverflow = errors.New("value does not fit in 128 bits")
	// ErrEmptyVector is returned when a vector change carries no bits.
	ErrEmptyVector = errors.New("vector change has no bits")
)

// Representation decodes raw change values into V. ok=false means the change
// is not representable and must be dropped.
type Representation[V any] interface {
	Name() string
	Empty(decl *vcd.Var) V
	FromScalar(bit vcd.Value) (v V, ok bool, err error)
	FromVector(bits []vcd.Value) (v V, ok bool, err error)
	FromReal(f float64) (v V, ok bool, err error)
	FromString(s string) (v V, ok bool, err error)
}

// Decode dispatches a change command to the matching Representation method.
// Commands that carry no value report ok=false.
func Decode[V any](r Representation[V], cmd vcd.Command) (V, bool, error) {
	switch cmd.Kind {
	case vcd.ChangeScalar:
		return r.FromScalar(cmd.Scalar)
	case vcd.ChangeVector:
		return r.FromVector(cmd.Vector)
	case vcd.ChangeReal:
		return r.FromReal(cmd.Real)
	case vcd.ChangeString:
		return r.FromString(cmd.Text)
	}
	var zero V
	return zero, false, nil
}

// Names of the built-in representations as used in configuration.
const (
	NumericName = "numeric"
	StringName  = "string"
)

// Known reports whether name is a built-in representation.
func Known(name string) bool {
	return name == NumericName || name == StringName
}

// CheckName returns an error for unknown representation names.
func CheckName(name string) error {
	if !Known(name) {
		return fmt.Errorf("unknown value representation %q (want %q or %q)", name, NumericName, StringName)
	}
	return nil
}

// bitString renders bits with the given substitutes for X and Z.
func bitString(bits []vcd.Value, x, z byte) string {
	buf := make([]byte, len(bits))
	for i, b := range bits {
		switch b {
		case vcd.V0:
			buf[i] = '0'
		case vcd.V1:
			buf[i] = '1'
		case vcd.X:
			buf[i] = x
		case vcd.Z:
			buf[i] = z
		}
	}
	return string(buf)
}
