package value

import (
	"math/big"

	"gopkg.in/yaml.v3"

	"github.com/robert-at-pretension-io/vcd2json/internal/vcd"
)

const maxNumberBits = 128

// Number is an unsigned integer decoded from a bit vector. The zero value is 0.
// Numbers are never mutated after decoding, so histories share them freely.
type Number struct {
	n *big.Int
}

// NewNumber returns the Number for u.
func NewNumber(u uint64) Number {
	return Number{n: new(big.Int).SetUint64(u)}
}

func (n Number) int() *big.Int {
	if n.n == nil {
		return new(big.Int)
	}
	return n.n
}

// String returns the decimal form.
func (n Number) String() string {
	return n.int().String()
}

// Uint64 returns the low 64 bits.
func (n Number) Uint64() uint64 {
	return n.int().Uint64()
}

// Equal compares numerically.
func (n Number) Equal(o Number) bool {
	return n.int().Cmp(o.int()) == 0
}

// MarshalJSON encodes the number as a bare JSON integer, including values
// above 2^64.
func (n Number) MarshalJSON() ([]byte, error) {
	return []byte(n.String()), nil
}

// MarshalYAML encodes the number as an !!int scalar.
func (n Number) MarshalYAML() (any, error) {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!int", Value: n.String()}, nil
}

// Numeric decodes bit vectors into Numbers. X and Z bits decode as 1, so the
// numeric form of "x0" is 2. Real and string changes are dropped.
type Numeric struct{}

func (Numeric) Name() string { return NumericName }

func (Numeric) Empty(*vcd.Var) Number { return Number{} }

func (r Numeric) FromScalar(bit vcd.Value) (Number, bool, error) {
	return r.FromVector([]vcd.Value{bit})
}

func (Numeric) FromVector(bits []vcd.Value) (Number, bool, error) {
	if len(bits) == 0 {
		return Number{}, false, ErrEmptyVector
	}
	n := new(big.Int)
	for _, b := range bits {
		n.Lsh(n, 1)
		if b != vcd.V0 {
			n.SetBit(n, 0, 1)
		}
	}
	if n.BitLen() > maxNumberBits {
		return Number{}, false, ErrOverflow
	}
	return Number{n: n}, true, nil
}

func (Numeric) FromReal(float64) (Number, bool, error) { return Number{}, false, nil }

func (Numeric) FromString(string) (Number, bool, error) { return Number{}, false, nil }
