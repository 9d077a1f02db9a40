package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/anatolykoptev/go-kit/llm"
)

// Schema is a vendor-neutral subset of JSON Schema used to declare the shape of a
// structured completion.
type Schema struct {
	Type        string             `json:"type"`
	Description string             `json:"description,omitempty"`
	Properties  map[string]*Schema `json:"properties,omitempty"`
	Items       *Schema            `json:"items,omitempty"`
	Required    []string           `json:"required,omitempty"`
}

// Schema type names.
const (
	TypeObject  = "object"
	TypeArray   = "array"
	TypeString  = "string"
	TypeInteger = "integer"
	TypeNumber  = "number"
	TypeBoolean = "boolean"
)

// Prompt is one request to the text-understanding/generation capability.
type Prompt struct {
	Task        string // short label for logs, metrics and test fakes
	System      string
	User        string
	Schema      *Schema // optional declared output schema
	Temperature *float64
	MaxTokens   int
}

// Completion is the capability's reply.
// Structured is true when the backend enforced Prompt.Schema.
type Completion struct {
	Text       string
	Structured bool
}

// Capability is the external text-understanding/generation service.
type Capability interface {
	Complete(ctx context.Context, p Prompt) (Completion, error)
}

// CapabilityFunc adapts a function to Capability.
type CapabilityFunc func(ctx context.Context, p Prompt) (Completion, error)

// Complete calls f.
func (f CapabilityFunc) Complete(ctx context.Context, p Prompt) (Completion, error) {
	return f(ctx, p)
}

// KitCapability talks to any OpenAI-compatible endpoint through go-kit/llm.
// The backend does not enforce schemas, so the schema is spelled out in the system prompt.
type KitCapability struct {
	client      *llm.Client
	temperature float64
	maxTokens   int
}

// NewKitCapability builds the OpenAI-compatible backend from engine config.
func NewKitCapability(c Config) *KitCapability {
	client := llm.NewClient(c.LLMAPIBase, c.LLMAPIKey, c.LLMModel,
		llm.WithFallbackKeys(c.LLMAPIKeyFallbacks),
		llm.WithMaxTokens(c.LLMMaxTokens),
		llm.WithTemperature(c.LLMTemperature),
		llm.WithHTTPClient(c.HTTPClient),
	)
	return &KitCapability{client: client, temperature: c.LLMTemperature, maxTokens: c.LLMMaxTokens}
}

// Complete sends the prompt and returns the fence-stripped reply.
func (k *KitCapability) Complete(ctx context.Context, p Prompt) (Completion, error) {
	metrics.LLMCalls.Add(1)

	system := p.System
	if p.Schema != nil {
		schema, err := json.MarshalIndent(p.Schema, "", "  ")
		if err != nil {
			return Completion{}, fmt.Errorf("marshal schema: %w", err)
		}
		system = strings.TrimSpace(system + "\n\nReturn ONLY a JSON object matching this JSON Schema, no markdown, no explanation:\n" + string(schema))
	}

	temperature, maxTokens := k.temperature, k.maxTokens
	if p.Temperature != nil {
		temperature = *p.Temperature
	}
	if p.MaxTokens > 0 {
		maxTokens = p.MaxTokens
	}

	raw, err := k.client.Complete(ctx, system, p.User,
		llm.WithChatTemperature(temperature),
		llm.WithChatMaxTokens(maxTokens),
	)
	if err != nil {
		return Completion{}, recordFailure(err)
	}
	return Completion{Text: stripFences(raw)}, nil
}

// recordFailure classifies a backend error, bumps counters and wraps it.
func recordFailure(err error) error {
	metrics.LLMErrors.Add(1)
	cause := Classify(err)
	switch cause {
	case CauseRateLimited:
		metrics.RateLimited.Add(1)
	case CauseQuotaExhausted:
		metrics.QuotaExhausted.Add(1)
	}
	return &CapabilityError{Cause: cause, Err: err}
}

// stripFences removes markdown code fences from LLM output.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

// ExtractJSONObject returns the first balanced {...} object in raw, honouring string
// literals and escapes. Returns "" when none is found.
func ExtractJSONObject(raw string) string {
	start := strings.IndexByte(raw, '{')
	for start >= 0 {
		depth := 0
		inStr := false
		esc := false
		for i := start; i < len(raw); i++ {
			c := raw[i]
			if inStr {
				switch {
				case esc:
					esc = false
				case c == '\\':
					esc = true
				case c == '"':
					inStr = false
				}
				continue
			}
			switch c {
			case '"':
				inStr = true
			case '{':
				depth++
			case '}':
				depth--
				if depth == 0 {
					return raw[start : i+1]
				}
			}
		}
		next := strings.IndexByte(raw[start+1:], '{')
		if next < 0 {
			break
		}
		start += next + 1
	}
	return ""
}

// DecodeJSON decodes a completion into T and checks it against schema's required
// keys. Structured completions are decoded strictly; free text gets fence stripping
// and then best-effort object extraction. Every failure, including a well-formed
// object that misses a required key, is reported as ErrMalformedResponse.
func DecodeJSON[T any](c Completion, schema *Schema) (T, error) {
	var out T
	text := strings.TrimSpace(c.Text)
	if text == "" {
		return out, Malformed(errors.New("empty completion"))
	}
	obj := text
	if err := json.Unmarshal([]byte(obj), &out); err != nil {
		if c.Structured {
			return out, Malformed(fmt.Errorf("decode structured reply: %w", err))
		}
		obj = ExtractJSONObject(stripFences(text))
		if obj == "" {
			return out, Malformed(fmt.Errorf("no JSON object in reply %q", TruncateRunes(text, 120, "...")))
		}
		out = *new(T)
		if err := json.Unmarshal([]byte(obj), &out); err != nil {
			return out, Malformed(fmt.Errorf("decode extracted object: %w", err))
		}
	}
	if err := checkRequired(json.RawMessage(obj), schema, "reply"); err != nil {
		var zero T
		return zero, Malformed(err)
	}
	return out, nil
}

// checkRequired walks objects and arrays of objects and reports the first required
// key that is absent. A present null counts as given.
func checkRequired(raw json.RawMessage, s *Schema, path string) error {
	if s == nil || len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	switch s.Type {
	case TypeObject:
		var fields map[string]json.RawMessage
		if err := json.Unmarshal(raw, &fields); err != nil {
			return fmt.Errorf("%s: expected an object: %w", path, err)
		}
		for _, k := range s.Required {
			if _, ok := fields[k]; !ok {
				return fmt.Errorf("%s: missing required key %q", path, k)
			}
		}
		for k, sub := range s.Properties {
			if v, ok := fields[k]; ok {
				if err := checkRequired(v, sub, path+"."+k); err != nil {
					return err
				}
			}
		}
	case TypeArray:
		if s.Items == nil || s.Items.Type != TypeObject {
			return nil
		}
		var items []json.RawMessage
		if err := json.Unmarshal(raw, &items); err != nil {
			return fmt.Errorf("%s: expected an array: %w", path, err)
		}
		for i, it := range items {
			if err := checkRequired(it, s.Items, fmt.Sprintf("%s[%d]", path, i)); err != nil {
				return err
			}
		}
	}
	return nil
}

// Float64 returns a pointer to v, for Prompt.Temperature.
func Float64(v float64) *float64 { return &v }
