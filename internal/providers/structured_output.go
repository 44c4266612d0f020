package providers

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// maxStructuredRepairAttempts bounds the follow-up turns that ask a model to
// fix output that failed to parse or validate.
const maxStructuredRepairAttempts = 2

// repairOutputLimit truncates the echoed bad output in a repair prompt.
const repairOutputLimit = 12000

var errNoJSON = errors.New("failed to parse structured JSON")

// adaptedResponseFormat maps a ResponseFormat onto the OpenRouter wire form.
// Models that cannot take a native schema get nil and rely on the prompt
// plus local validation.
func adaptedResponseFormat(model string, rf *ResponseFormat) (*openRouterResponseFormat, error) {
	if rf == nil || isAnthropicModel(model) {
		return nil, nil
	}
	schema, err := sanitizeStructuredSchemaForModel(model, rf.JSONSchema)
	if err != nil {
		return nil, err
	}
	return &openRouterResponseFormat{Type: rf.Type, JSONSchema: schema}, nil
}

// sanitizeStructuredSchemaForModel drops integer minimum/maximum bounds for
// anthropic/* models, which reject them. Other schemas are returned as is.
func sanitizeStructuredSchemaForModel(model string, schemaRaw json.RawMessage) (json.RawMessage, error) {
	if len(schemaRaw) == 0 || !isAnthropicModel(model) {
		return schemaRaw, nil
	}

	var root any
	if err := json.Unmarshal(schemaRaw, &root); err != nil {
		return nil, fmt.Errorf("failed to parse structured schema: %w", err)
	}
	walkSchema(root, func(node map[string]any) {
		if hasType(node["type"], "integer") {
			for _, k := range []string{"minimum", "maximum", "exclusiveMinimum", "exclusiveMaximum"} {
				delete(node, k)
			}
		}
	})

	out, err := json.Marshal(root)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize sanitized structured schema: %w", err)
	}
	return out, nil
}

func isAnthropicModel(model string) bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(model)), "anthropic/")
}

// walkSchema calls fn for every object node of a decoded schema.
func walkSchema(node any, fn func(map[string]any)) {
	switch n := node.(type) {
	case map[string]any:
		fn(n)
		for _, v := range n {
			walkSchema(v, fn)
		}
	case []any:
		for _, v := range n {
			walkSchema(v, fn)
		}
	}
}

// hasType reports whether a schema "type" value (a string or a list)
// includes want.
func hasType(typeVal any, want string) bool {
	switch t := typeVal.(type) {
	case string:
		return t == want
	case []any:
		for _, item := range t {
			if s, _ := item.(string); s == want {
				return true
			}
		}
	}
	return false
}

// ParseStructuredJSON returns the first well-formed JSON document found in
// model output. It tries the raw text, the body of a wrapping code fence and
// the outermost object or array span, and returns it compacted.
func ParseStructuredJSON(content string) (json.RawMessage, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, errors.New("empty structured output")
	}

	for _, candidate := range []string{content, StripCodeFences(content), jsonSpan(content)} {
		if candidate == "" || !json.Valid([]byte(candidate)) {
			continue
		}
		var buf bytes.Buffer
		if err := json.Compact(&buf, []byte(candidate)); err != nil {
			return nil, fmt.Errorf("failed to normalize structured output: %w", err)
		}
		return buf.Bytes(), nil
	}
	return nil, errNoJSON
}

// StripCodeFences returns the body of a markdown fenced block that wraps the
// whole content, or "" when content is not fenced.
func StripCodeFences(content string) string {
	body, ok := strings.CutPrefix(strings.TrimSpace(content), "```")
	if !ok {
		return ""
	}
	// The opening fence line may carry a language tag.
	_, body, ok = strings.Cut(body, "\n")
	if !ok {
		return ""
	}
	body = strings.TrimSpace(body)
	body = strings.TrimSuffix(body, "```")
	return strings.TrimSpace(body)
}

// jsonSpan returns the text from the first '{' or '[' to the last matching
// closer.
func jsonSpan(content string) string {
	start := strings.IndexAny(content, "{[")
	if start < 0 {
		return ""
	}
	closer := "}"
	if content[start] == '[' {
		closer = "]"
	}
	end := strings.LastIndex(content, closer)
	if end < start {
		return ""
	}
	return strings.TrimSpace(content[start : end+1])
}

// ValidateStructuredJSON validates parsed JSON against the canonical schema.
// An empty schema or document is accepted.
func ValidateStructuredJSON(schemaRaw, parsed json.RawMessage) error {
	if len(schemaRaw) == 0 || len(parsed) == 0 {
		return nil
	}
	schema, err := cachedSchema(schemaRaw)
	if err != nil {
		return err
	}

	var doc any
	if err := json.Unmarshal(parsed, &doc); err != nil {
		return fmt.Errorf("failed to decode structured JSON for validation: %w", err)
	}
	if err := schema.Validate(doc); err != nil {
		return fmt.Errorf("structured output does not match schema: %w", err)
	}
	return nil
}

// schemaCache holds compiled schemas keyed by their raw text. Request
// schemas are a handful of constants, so it is never evicted.
var schemaCache sync.Map

func cachedSchema(schemaRaw json.RawMessage) (*jsonschema.Schema, error) {
	key := string(schemaRaw)
	if s, ok := schemaCache.Load(key); ok {
		return s.(*jsonschema.Schema), nil
	}
	s, err := CompileSchema(schemaRaw)
	if err != nil {
		return nil, err
	}
	schemaCache.Store(key, s)
	return s, nil
}

// CompileSchema compiles a JSON schema, unwrapping the response_format
// wrappers providers use.
func CompileSchema(schemaRaw json.RawMessage) (*jsonschema.Schema, error) {
	core, err := unwrapSchema(schemaRaw)
	if err != nil {
		return nil, err
	}

	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("schema.json", bytes.NewReader(core)); err != nil {
		return nil, fmt.Errorf("failed to load structured schema: %w", err)
	}
	schema, err := compiler.Compile("schema.json")
	if err != nil {
		return nil, fmt.Errorf("failed to compile structured schema: %w", err)
	}
	return schema, nil
}

// unwrapSchema accepts a bare schema, {"name","strict","schema":{...}} or
// {"type":"json_schema","json_schema":{"schema":{...}}}.
func unwrapSchema(schemaRaw json.RawMessage) (json.RawMessage, error) {
	var wrapper struct {
		Schema     json.RawMessage `json:"schema"`
		JSONSchema *struct {
			Schema json.RawMessage `json:"schema"`
		} `json:"json_schema"`
	}
	if err := json.Unmarshal(schemaRaw, &wrapper); err != nil {
		// Arrays and scalars are not wrappers; let the compiler judge them.
		var probe any
		if jerr := json.Unmarshal(schemaRaw, &probe); jerr != nil {
			return nil, fmt.Errorf("invalid structured schema JSON: %w", jerr)
		}
		return schemaRaw, nil
	}
	switch {
	case len(wrapper.Schema) > 0:
		return wrapper.Schema, nil
	case wrapper.JSONSchema != nil && len(wrapper.JSONSchema.Schema) > 0:
		return wrapper.JSONSchema.Schema, nil
	default:
		return schemaRaw, nil
	}
}

func structuredRepairPrompt(schemaRaw json.RawMessage, lastOutput string, issue error) string {
	lastOutput = strings.TrimSpace(lastOutput)
	if len(lastOutput) > repairOutputLimit {
		lastOutput = lastOutput[:repairOutputLimit] + "\n...[truncated]"
	}

	var b strings.Builder
	b.WriteString("Return ONLY valid JSON (no markdown, no commentary) that strictly conforms to this schema.\n\n")
	fmt.Fprintf(&b, "Schema:\n%s\n\n", schemaRaw)
	fmt.Fprintf(&b, "Your previous output:\n%s\n\n", lastOutput)
	fmt.Fprintf(&b, "Validation issue:\n%v", issue)
	return b.String()
}
