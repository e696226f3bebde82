package value

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"

	"github.com/robert-at-pretension-io/vcd2json/internal/vcd"
)

func bits(s string) []vcd.Value {
	out := make([]vcd.Value, len(s))
	for i := range s {
		out[i] = vcd.Value(s[i])
	}
	return out
}

func TestNumericFromVector(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"0", "0"},
		{"1", "1"},
		{"1010", "10"},
		{"0000", "0"},
		// Unknown and high-impedance bits decode as logic 1.
		{"X", "1"},
		{"Z0", "2"},
		{"XXXX0000", "240"},
		{strings.Repeat("1", 64), "18446744073709551615"},
		{"1" + strings.Repeat("0", 127), "170141183460469231731687303715884105728"},
		// Leading zeros beyond 128 bits do not count.
		{strings.Repeat("0", 10) + strings.Repeat("1", 128), "340282366920938463463374607431768211455"},
	}
	var r Numeric
	for _, tt := range tests {
		got, ok, err := r.FromVector(bits(tt.in))
		if err != nil || !ok {
			t.Fatalf("FromVector(%q) = %v, %v, %v", tt.in, got, ok, err)
		}
		if got.String() != tt.want {
			t.Fatalf("FromVector(%q) = %s, want %s", tt.in, got, tt.want)
		}
	}
}

func TestNumericOverflow(t *testing.T) {
	var r Numeric
	_, _, err := r.FromVector(bits("1" + strings.Repeat("0", 128)))
	if !errors.Is(err, ErrOverflow) {
		t.Fatalf("expected ErrOverflow, got %v", err)
	}
}

func TestNumericEmptyVector(t *testing.T) {
	var r Numeric
	if _, _, err := r.FromVector(nil); !errors.Is(err, ErrEmptyVector) {
		t.Fatalf("expected ErrEmptyVector, got %v", err)
	}
	// The string form of an empty vector is the empty string.
	got, ok, err := Strings{}.FromVector(nil)
	if err != nil || !ok || got != "" {
		t.Fatalf("Strings.FromVector(nil) = %q, %v, %v", got, ok, err)
	}
}

func TestNumericDropsRealAndString(t *testing.T) {
	var r Numeric
	if _, ok, err := r.FromReal(3.25); ok || err != nil {
		t.Fatalf("FromReal should be dropped, got ok=%v err=%v", ok, err)
	}
	if _, ok, err := r.FromString("IDLE"); ok || err != nil {
		t.Fatalf("FromString should be dropped, got ok=%v err=%v", ok, err)
	}
	if got := r.Empty(nil); got.String() != "0" {
		t.Fatalf("Empty() = %s, want 0", got)
	}
}

func TestStrings(t *testing.T) {
	var r Strings
	tests := []struct {
		name string
		cmd  vcd.Command
		want Bits
	}{
		{"scalar z", vcd.Command{Kind: vcd.ChangeScalar, Scalar: vcd.Z}, "Z"},
		{"vector", vcd.Command{Kind: vcd.ChangeVector, Vector: bits("10XZ")}, "10XZ"},
		{"real", vcd.Command{Kind: vcd.ChangeReal, Real: 1.5}, "1.5"},
		{"whole real", vcd.Command{Kind: vcd.ChangeReal, Real: 2}, "2"},
		{"string", vcd.Command{Kind: vcd.ChangeString, Text: "IDLE"}, "IDLE"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok, err := Decode[Bits](r, tt.cmd)
			if err != nil || !ok {
				t.Fatalf("Decode = %q, %v, %v", got, ok, err)
			}
			if got != tt.want {
				t.Fatalf("Decode = %q, want %q", got, tt.want)
			}
		})
	}
	if r.Empty(nil) != "" {
		t.Fatalf("Empty() should be the empty string")
	}
}

func TestDecodeIgnoresNonChanges(t *testing.T) {
	for _, kind := range []vcd.CommandKind{vcd.Timestamp, vcd.Begin, vcd.End, vcd.Comment} {
		if _, ok, err := Decode[Number](Numeric{}, vcd.Command{Kind: kind}); ok || err != nil {
			t.Fatalf("Decode(%s) = ok %v, err %v", kind, ok, err)
		}
	}
}

func TestNumberSerialization(t *testing.T) {
	big, _, _ := Numeric{}.FromVector(bits(strings.Repeat("1", 70)))
	data, err := json.Marshal([]Number{{}, NewNumber(5), big})
	if err != nil {
		t.Fatalf("json.Marshal: %v", err)
	}
	if got, want := string(data), "[0,5,1180591620717411303423]"; got != want {
		t.Fatalf("json = %s, want %s", got, want)
	}

	out, err := yaml.Marshal(map[string][]Number{"sig": {NewNumber(7)}})
	if err != nil {
		t.Fatalf("yaml.Marshal: %v", err)
	}
	if got, want := string(out), "sig:\n    - 7\n"; got != want {
		t.Fatalf("yaml = %q, want %q", got, want)
	}
}

func TestCheckName(t *testing.T) {
	if err := CheckName("numeric"); err != nil {
		t.Fatalf("numeric: %v", err)
	}
	if err := CheckName("string"); err != nil {
		t.Fatalf("string: %v", err)
	}
	if err := CheckName("float"); err == nil {
		t.Fatalf("expected error for unknown name")
	}
}
