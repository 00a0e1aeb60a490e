package llm

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/invopop/jsonschema"
)

// SchemaFor reflects a JSON schema from a struct type. Schemas are
// inlined (no $ref) and forbid additional properties so they are valid
// for strict structured output.
func SchemaFor[T any]() *jsonschema.Schema {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	var v T
	return reflector.Reflect(v)
}

// promptWithSchema appends the schema to the prompt for backends without
// native structured output support.
func promptWithSchema(prompt string, schema *jsonschema.Schema) (string, error) {
	schemaJSON, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return "", err
	}
	return fmt.Sprintf(
		"%s\n\nRespond with a single JSON object conforming to this JSON schema. Output only the JSON, no prose.\n\n%s",
		prompt, schemaJSON,
	), nil
}

// cleanJSON strips markdown code fences and leading/trailing prose so
// the remaining object parses.
func cleanJSON(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")

	if start := strings.Index(s, "{"); start >= 0 {
		if end := strings.LastIndex(s, "}"); end > start {
			return s[start : end+1]
		}
	}
	return strings.TrimSpace(s)
}
