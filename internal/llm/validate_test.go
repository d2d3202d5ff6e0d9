package llm

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func verdictSchema() *Schema {
	return &Schema{
		Name:        "test-verdicts",
		Description: "Answer verdicts",
		Definition: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"verdicts": map[string]any{
					"type": "array",
					"items": map[string]any{
						"type": "object",
						"properties": map[string]any{
							"id":       map[string]any{"type": "string"},
							"correct":  map[string]any{"type": "boolean"},
							"score":    map[string]any{"type": "number", "minimum": 0, "maximum": 1},
							"category": map[string]any{"type": "string", "enum": []any{"spelling", "case", "gender"}},
						},
						"required": []any{"id", "correct"},
					},
				},
			},
			"required": []any{"verdicts"},
		},
	}
}

func TestDecodeResponse(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		wantErr string
	}{
		{name: "valid", raw: `{"verdicts":[{"id":"a","correct":true,"score":1}]}`},
		{name: "optional fields omitted", raw: `{"verdicts":[{"id":"a","correct":false}]}`},
		{name: "missing required", raw: `{"verdicts":[{"id":"a"}]}`, wantErr: "/verdicts/0"},
		{name: "wrong type", raw: `{"verdicts":[{"id":"a","correct":"yes"}]}`, wantErr: "/verdicts/0/correct"},
		{name: "enum", raw: `{"verdicts":[{"id":"a","correct":false,"category":"tense"}]}`, wantErr: "/verdicts/0/category"},
		{name: "out of range", raw: `{"verdicts":[{"id":"a","correct":true,"score":1.5}]}`, wantErr: "/verdicts/0/score"},
		{name: "malformed", raw: `{not json}`, wantErr: "invalid JSON"},
		{name: "empty", raw: ``, wantErr: "invalid JSON"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			content, err := decodeResponse(verdictSchema(), json.RawMessage(tt.raw))
			if tt.wantErr == "" {
				require.NoError(t, err)
				assert.JSONEq(t, tt.raw, string(content))
				return
			}
			require.Error(t, err)
			var invErr *ErrInvalidResponse
			require.ErrorAs(t, err, &invErr)
			assert.Contains(t, invErr.Error(), tt.wantErr)
			assert.Equal(t, tt.raw, string(invErr.Content))
		})
	}
}

func TestDecodeResponse_StripsFence(t *testing.T) {
	raw := "```json\n{\"verdicts\":[{\"id\":\"a\",\"correct\":true}]}\n```\n"
	content, err := decodeResponse(verdictSchema(), json.RawMessage(raw))
	require.NoError(t, err)
	assert.Equal(t, `{"verdicts":[{"id":"a","correct":true}]}`, string(content))

	content, err = decodeResponse(nil, json.RawMessage("```\n{\"x\":1}\n```"))
	require.NoError(t, err)
	assert.Equal(t, `{"x":1}`, string(content))
}

func TestDecodeResponse_NilSchemaPassesThrough(t *testing.T) {
	content, err := decodeResponse(nil, json.RawMessage(`  {"anything":"goes"} `))
	require.NoError(t, err)
	assert.Equal(t, `{"anything":"goes"}`, string(content))
}

func TestDecodeResponse_SameNameDifferentDefinition(t *testing.T) {
	loose := &Schema{Name: "test-shared", Definition: map[string]any{"type": "object"}}
	strict := &Schema{Name: "test-shared", Definition: map[string]any{
		"type":     "object",
		"required": []any{"id"},
	}}

	_, err := decodeResponse(loose, json.RawMessage(`{}`))
	require.NoError(t, err)
	_, err = decodeResponse(strict, json.RawMessage(`{}`))
	require.Error(t, err)
}
