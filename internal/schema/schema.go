package schema

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// Validator checks structured responses against an optional JSON Schema.
type Validator struct {
	compiled *jsonschema.Schema
}

// New compiles the schema document. A nil document yields a validator that
// accepts everything.
func New(doc map[string]any) (*Validator, error) {
	if doc == nil {
		return &Validator{}, nil
	}

	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("encoding output_schema: %w", err)
	}

	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("output_schema.json", strings.NewReader(string(raw))); err != nil {
		return nil, fmt.Errorf("loading output_schema: %w", err)
	}
	compiled, err := compiler.Compile("output_schema.json")
	if err != nil {
		return nil, fmt.Errorf("compiling output_schema: %w", err)
	}
	return &Validator{compiled: compiled}, nil
}

// Validate reports whether the response conforms to the schema, plus a
// diagnostic when it does not. Schema mismatch never surfaces as an error
// past this boundary.
func (v *Validator) Validate(response any) (bool, string) {
	if v.compiled == nil {
		return true, ""
	}
	if err := v.compiled.Validate(response); err != nil {
		return false, err.Error()
	}
	return true, ""
}
