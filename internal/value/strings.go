package value

import (
	"strconv"

	"github.com/robert-at-pretension-io/vcd2json/internal/vcd"
)

// Bits is the literal string form of a value: a bit string with X and Z
// preserved, a formatted real, or a dumped string.
type Bits string

// Strings keeps values as text. Every change kind is representable.
type Strings struct{}

func (Strings) Name() string { return StringName }

func (Strings) Empty(*vcd.Var) Bits { return "" }

func (Strings) FromScalar(bit vcd.Value) (Bits, bool, error) {
	return Bits(bitString([]vcd.Value{bit}, 'X', 'Z')), true, nil
}

func (Strings) FromVector(bits []vcd.Value) (Bits, bool, error) {
	return Bits(bitString(bits, 'X', 'Z')), true, nil
}

func (Strings) FromReal(f float64) (Bits, bool, error) {
	return Bits(strconv.FormatFloat(f, 'f', -1, 64)), true, nil
}

func (Strings) FromString(s string) (Bits, bool, error) {
	return Bits(s), true, nil
}
