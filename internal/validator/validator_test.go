package validator

import (
	"strings"
	"testing"

	"github.com/robert-at-pretension-io/vcd2json/internal/convert"
	"github.com/robert-at-pretension-io/vcd2json/internal/value"
)

// TestOutputContract checks the document shapes the converter may emit.
func TestOutputContract(t *testing.T) {
	v, err := New()
	if err != nil {
		t.Fatalf("Failed to create validator: %v", err)
	}

	tests := []struct {
		name    string
		json    string
		wantErr bool
	}{
		{"empty_document", `{}`, false},
		{"numeric_leaves", `{"tb":{"clk":[0,1,0],"dut":{"count":[0,340282366920938463463374607431768211455]}}}`, false},
		{"string_leaves", `{"tb":{"state":["IDLE","RUN"],"bus":["X01Z"]}}`, false},
		{"empty_leaf", `{"tb":{"never":[]}}`, false},
		{"top_level_leaf", `{"clk":[0,1]}`, false},
		{"scalar_instead_of_array", `{"tb":{"clk":1}}`, true},
		{"mixed_array", `{"tb":{"clk":[0,"1"]}}`, true},
		{"negative_number", `{"tb":{"clk":[-1]}}`, true},
		{"float_number", `{"tb":{"temp":[1.5]}}`, true},
		{"null_leaf", `{"tb":{"clk":null}}`, true},
		{"nested_array", `{"tb":{"clk":[[0]]}}`, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.ValidateJSON([]byte(tt.json))
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateJSON() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateConvertedDocument(t *testing.T) {
	v, err := New()
	if err != nil {
		t.Fatalf("Failed to create validator: %v", err)
	}

	dump := "$scope module tb $end $var wire 2 ! bus $end $var real 64 # t $end $upscope $end $enddefinitions $end #0 bx1 ! r0.5 # #1 b10 !"

	num, err := convert.Run[value.Number](strings.NewReader(dump), value.Numeric{}, convert.Options{})
	if err != nil {
		t.Fatalf("Run numeric: %v", err)
	}
	if err := v.Validate(num.Tree); err != nil {
		t.Fatalf("numeric document rejected: %v", err)
	}

	str, err := convert.Run[value.Bits](strings.NewReader(dump), value.Strings{}, convert.Options{})
	if err != nil {
		t.Fatalf("Run strings: %v", err)
	}
	if err := v.Validate(str.Tree); err != nil {
		t.Fatalf("string document rejected: %v", err)
	}
}

func TestValidationErrorsLists(t *testing.T) {
	v, err := New()
	if err != nil {
		t.Fatalf("Failed to create validator: %v", err)
	}
	doc := map[string]any{"tb": map[string]any{"clk": 1}}
	if errs := v.ValidationErrors(doc); len(errs) == 0 {
		t.Fatalf("expected validation errors for scalar leaf")
	}
	ok := map[string]any{"tb": map[string]any{"clk": []int{1}}}
	if errs := v.ValidationErrors(ok); errs != nil {
		t.Fatalf("unexpected errors: %v", errs)
	}
}
