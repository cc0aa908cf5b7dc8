package llm

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai/jsonschema"
)

// ErrMalformedOutput is returned when a completion does not match its schema
var ErrMalformedOutput = errors.New("malformed model output")

// SchemaFor derives a JSON schema from a Go type's json tags
func SchemaFor(v any) (*jsonschema.Definition, error) {
	def, err := jsonschema.GenerateSchemaForType(v)
	if err != nil {
		return nil, fmt.Errorf("generate schema: %w", err)
	}
	return def, nil
}

// MustSchemaFor is SchemaFor for package-level schema variables
func MustSchemaFor(v any) *jsonschema.Definition {
	def, err := SchemaFor(v)
	if err != nil {
		panic(err)
	}
	return def
}

// DecodeStrict validates text against def and decodes it into v. A single
// surrounding markdown code fence is tolerated; anything else that does not
// match the schema fails.
func DecodeStrict(def *jsonschema.Definition, text string, v any) error {
	body := StripCodeFence(text)
	if body == "" {
		return fmt.Errorf("%w: empty completion", ErrMalformedOutput)
	}
	if def == nil {
		if err := json.Unmarshal([]byte(body), v); err != nil {
			return fmt.Errorf("%w: %v", ErrMalformedOutput, err)
		}
		return nil
	}
	if err := def.Unmarshal(body, v); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedOutput, err)
	}
	return nil
}

// StripCodeFence removes one ```json ... ``` wrapper if present
func StripCodeFence(text string) string {
	s := strings.TrimSpace(text)
	if !strings.HasPrefix(s, "```") || !strings.HasSuffix(s, "```") || len(s) < 6 {
		return s
	}
	s = strings.TrimSuffix(strings.TrimPrefix(s, "```"), "```")
	// Drop the language tag on the opening line
	if nl := strings.IndexByte(s, '\n'); nl >= 0 && !strings.ContainsAny(s[:nl], "{[") {
		s = s[nl+1:]
	}
	return strings.TrimSpace(s)
}

// schemaInstruction renders a schema as a prompt suffix for providers
// without a native structured-output mode
func schemaInstruction(def *jsonschema.Definition) string {
	raw, err := json.Marshal(def)
	if err != nil {
		return "Respond with a single JSON object only."
	}
	return "Respond with a single JSON object only, no prose, matching this JSON schema:\n" + string(raw)
}
