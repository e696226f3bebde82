package validator

// =============================================================================
// VALIDATOR: THE OUTPUT CONTRACT
// =============================================================================
//
// Downstream tools read vcd2json documents as "object of objects terminating
// in arrays". The CUE schema pins that shape down: if the builder ever emits
// a scalar where an array belongs, or an array that mixes numbers and bit
// strings, the run fails here instead of producing a document that parses
// but means something else.
//
// WHEN VALIDATION FAILS:
// 1. DON'T relax output_schema.cue to make the error go away
// 2. DO trace back: parser (internal/vcd)? table (internal/signal)? tree
//    (internal/output)?
// =============================================================================

import (
	"embed"
	"encoding/json"
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
)

//go:embed output_schema.cue
var outputSchemaFS embed.FS

//go:embed facts_schema.cue
var factsSchemaFS embed.FS

// Validator validates converted documents against the embedded output schema.
type Validator struct {
	ctx    *cue.Context
	schema cue.Value
}

// New creates a new Validator with the embedded CUE schema
func New() (*Validator, error) {
	ctx, schema, err := compileSchema(outputSchemaFS, "output_schema.cue")
	if err != nil {
		return nil, err
	}
	return &Validator{
		ctx:    ctx,
		schema: schema,
	}, nil
}

func compileSchema(fs embed.FS, name string) (*cue.Context, cue.Value, error) {
	ctx := cuecontext.New()

	schemaBytes, err := fs.ReadFile(name)
	if err != nil {
		return nil, cue.Value{}, fmt.Errorf("loading embedded schema %s: %w", name, err)
	}

	schema := ctx.CompileBytes(schemaBytes, cue.Filename(name))
	if schema.Err() != nil {
		return nil, cue.Value{}, fmt.Errorf("compiling schema %s: %w", name, schema.Err())
	}
	return ctx, schema, nil
}

// Validate checks that a document conforms to #Document.
// Returns nil if valid, or a detailed error explaining what failed.
func (v *Validator) Validate(data interface{}) error {
	jsonBytes, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshaling document to JSON: %w", err)
	}
	return v.ValidateJSON(jsonBytes)
}

// ValidateJSON validates JSON bytes directly against the schema
func (v *Validator) ValidateJSON(jsonBytes []byte) error {
	unified, err := unify(v.ctx, v.schema, "#Document", jsonBytes)
	if err != nil {
		return err
	}
	if err := unified.Validate(); err != nil {
		return fmt.Errorf("output schema validation failed: %w", err)
	}
	return nil
}

// ValidationErrors returns detailed information about all validation errors
func (v *Validator) ValidationErrors(data interface{}) []string {
	jsonBytes, err := json.Marshal(data)
	if err != nil {
		return []string{fmt.Sprintf("marshal error: %v", err)}
	}

	unified, err := unify(v.ctx, v.schema, "#Document", jsonBytes)
	if err != nil {
		return []string{err.Error()}
	}

	err = unified.Validate()
	if err == nil {
		return nil
	}

	var errs []string
	for _, e := range errors.Errors(err) {
		errs = append(errs, e.Error())
	}
	return errs
}

func unify(ctx *cue.Context, schema cue.Value, def string, jsonBytes []byte) (cue.Value, error) {
	dataValue := ctx.CompileBytes(jsonBytes)
	if dataValue.Err() != nil {
		return cue.Value{}, fmt.Errorf("compiling data as CUE: %w", dataValue.Err())
	}

	defValue := schema.LookupPath(cue.ParsePath(def))
	if defValue.Err() != nil {
		return cue.Value{}, fmt.Errorf("looking up %s definition: %w", def, defValue.Err())
	}

	return defValue.Unify(dataValue), nil
}

// FactsValidator validates relational fact tables against the facts schema.
type FactsValidator struct {
	ctx    *cue.Context
	schema cue.Value
}

// NewFactsValidator creates a validator for relational fact tables.
func NewFactsValidator() (*FactsValidator, error) {
	ctx, schema, err := compileSchema(factsSchemaFS, "facts_schema.cue")
	if err != nil {
		return nil, err
	}
	return &FactsValidator{
		ctx:    ctx,
		schema: schema,
	}, nil
}

// Validate checks that the fact tables conform to the facts schema.
func (v *FactsValidator) Validate(data interface{}) error {
	jsonBytes, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshaling facts to JSON: %w", err)
	}

	unified, err := unify(v.ctx, v.schema, "#FactTables", jsonBytes)
	if err != nil {
		return err
	}
	if err := unified.Validate(); err != nil {
		return fmt.Errorf("facts schema validation failed: %w", err)
	}

	return nil
}
