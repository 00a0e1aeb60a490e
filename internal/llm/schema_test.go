package llm

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sampleObject struct {
	Name  string `json:"name"`
	Score int    `json:"score"`
}

func TestSchemaFor_InlinedStrictSchema(t *testing.T) {
	schema := SchemaFor[sampleObject]()
	require.NotNil(t, schema)

	raw, err := json.Marshal(schema)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, "object", decoded["type"])
	assert.NotContains(t, string(raw), "$ref")
	assert.Contains(t, string(raw), `"name"`)
	assert.Contains(t, string(raw), `"score"`)
}

func TestCleanJSON(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"plain", `{"a":1}`, `{"a":1}`},
		{"fenced", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"bare fence", "```\n{\"a\":1}\n```", `{"a":1}`},
		{"leading prose", "Here is the result:\n{\"a\":1}", `{"a":1}`},
		{"trailing prose", "{\"a\":1}\nLet me know if you need more.", `{"a":1}`},
		{"nested braces", `{"a":{"b":2}}`, `{"a":{"b":2}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, cleanJSON(tt.input))
		})
	}
}

func TestPromptWithSchema(t *testing.T) {
	schema := SchemaFor[sampleObject]()
	prompt, err := promptWithSchema("Rate the company.", schema)
	require.NoError(t, err)

	assert.Contains(t, prompt, "Rate the company.")
	assert.Contains(t, prompt, "JSON schema")
	assert.Contains(t, prompt, `"name"`)
}
