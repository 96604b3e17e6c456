package value

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// ValidateToolSpec validates a ToolSpec's parameter Schema as a JSON
// Schema document (SPEC_FULL §4.8). A malformed schema is rejected at
// /var evaluation time rather than surfacing confusingly at call time.
func ValidateToolSpec(spec ToolSpec) error {
	if spec.Name == "" {
		return fmt.Errorf("tool spec missing name")
	}
	if spec.Schema == nil {
		return nil
	}
	raw, err := json.Marshal(spec.Schema)
	if err != nil {
		return fmt.Errorf("tool %q: schema is not serializable: %w", spec.Name, err)
	}

	compiler := jsonschema.NewCompiler()
	const resourceURL = "mlld://tool-spec"
	if err := compiler.AddResource(resourceURL, bytes.NewReader(raw)); err != nil {
		return fmt.Errorf("tool %q: invalid schema: %w", spec.Name, err)
	}
	if _, err := compiler.Compile(resourceURL); err != nil {
		return fmt.Errorf("tool %q: invalid schema: %w", spec.Name, err)
	}
	return nil
}

// ValidateToolsCollection validates every spec in a with-clause
// `tools:` array, returning the first failure.
func ValidateToolsCollection(specs []ToolSpec) error {
	seen := map[string]struct{}{}
	for _, spec := range specs {
		if _, dup := seen[spec.Name]; dup {
			return fmt.Errorf("duplicate tool name %q", spec.Name)
		}
		seen[spec.Name] = struct{}{}
		if err := ValidateToolSpec(spec); err != nil {
			return err
		}
	}
	return nil
}
