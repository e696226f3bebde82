package path

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestExtendSharesPrefix(t *testing.T) {
	top := Empty().Extend("top")
	a := top.Extend("a")
	b := top.Extend("b")

	if a.Parent() != top || b.Parent() != top {
		t.Fatalf("expected children to reference the shared parent")
	}
	if diff := cmp.Diff([]string{"top"}, top.Segments()); diff != "" {
		t.Fatalf("parent mutated by Extend (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"top", "b"}, b.Segments()); diff != "" {
		t.Fatalf("Segments() mismatch (-want +got):\n%s", diff)
	}
}

func TestEmpty(t *testing.T) {
	p := Empty()
	if p.Len() != 0 {
		t.Fatalf("Len() = %d, want 0", p.Len())
	}
	if got := p.Segments(); len(got) != 0 {
		t.Fatalf("Segments() = %v, want empty", got)
	}
	if p.Last() != "" || p.String() != "" {
		t.Fatalf("root should render empty, got Last=%q String=%q", p.Last(), p.String())
	}
	if !p.Equal(Of()) {
		t.Fatalf("Empty() != Of()")
	}
}

func TestEqualAndKey(t *testing.T) {
	tests := []struct {
		name string
		a, b *Path
		want bool
	}{
		{"same segments", Of("a", "b", "c"), Empty().Extend("a").Extend("b").Extend("c"), true},
		{"different leaf", Of("a", "b"), Of("a", "c"), false},
		{"prefix", Of("a"), Of("a", "b"), false},
		{"different root", Of("x", "b"), Of("y", "b"), false},
		{"dots are not separators", Of("a.b"), Of("a", "b"), false},
		{"NUL is not a separator", Of("a\x00b"), Of("a", "b"), false},
		{"digits and colons in segments", Of("1:a"), Of("a"), false},
		{"empty segment", Of(""), Empty(), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.a.Equal(tt.b); got != tt.want {
				t.Fatalf("Equal() = %v, want %v", got, tt.want)
			}
			if got := tt.a.Key() == tt.b.Key(); got != tt.want {
				t.Fatalf("Key() equality = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestString(t *testing.T) {
	if got := Of("tb", "dut", "clk").String(); got != "tb.dut.clk" {
		t.Fatalf("String() = %q", got)
	}
	if got := Of("tb", "dut", "clk").Last(); got != "clk" {
		t.Fatalf("Last() = %q", got)
	}
}

func TestCompare(t *testing.T) {
	tests := []struct {
		a, b *Path
		want int
	}{
		{Of("a", "b"), Of("a", "b"), 0},
		{Of("a"), Of("a", "b"), -1},
		{Of("a", "c"), Of("a", "b"), 1},
		{Of("a", "z"), Of("ab"), -1},
		{Empty(), Of("a"), -1},
	}
	for _, tt := range tests {
		if got := Compare(tt.a, tt.b); got != tt.want {
			t.Fatalf("Compare(%v, %v) = %d, want %d", tt.a.Segments(), tt.b.Segments(), got, tt.want)
		}
	}
}
