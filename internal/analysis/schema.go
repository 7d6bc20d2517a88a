package analysis

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// buildAnalysisJSONSchema describes the stored analysis payload. Used
// locally to validate what gets persisted on the bill.
func buildAnalysisJSONSchema() map[string]any {
	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties": map[string]any{
			"changes":      map[string]any{"type": "string"},
			"benefits":     map[string]any{"type": "string"},
			"risks":        map[string]any{"type": "string"},
			"model":        map[string]any{"type": "string"},
			"generated_at": map[string]any{"type": "string"},
		},
		"required": []string{"changes", "model", "generated_at"},
	}
}

// validateJSONAgainstSchema validates data against schemaMap.
func validateJSONAgainstSchema(schemaMap map[string]any, data []byte) error {
	b, err := json.Marshal(schemaMap)
	if err != nil {
		return fmt.Errorf("marshal schema: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("schema.json", bytes.NewReader(b)); err != nil {
		return fmt.Errorf("add schema: %w", err)
	}
	schema, err := compiler.Compile("schema.json")
	if err != nil {
		return fmt.Errorf("compile schema: %w", err)
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("unmarshal data: %w", err)
	}
	if err := schema.Validate(v); err != nil {
		return fmt.Errorf("validate: %w", err)
	}
	return nil
}
