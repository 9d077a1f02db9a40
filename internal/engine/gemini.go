package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

// GeminiCapability calls Gemini through the genai SDK. When a Prompt declares a Schema the
// request sets ResponseSchema, so replies are schema-conforming JSON.
type GeminiCapability struct {
	client      *genai.Client
	model       string
	temperature float64
	maxTokens   int
}

// NewGeminiCapability creates a genai client for the Gemini API backend.
func NewGeminiCapability(ctx context.Context, c Config) (*GeminiCapability, error) {
	key := c.GeminiAPIKey
	if key == "" {
		key = c.LLMAPIKey
	}
	if key == "" {
		return nil, errors.New("gemini: api key is empty")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:     key,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: c.HTTPClient,
	})
	if err != nil {
		return nil, fmt.Errorf("gemini: create client: %w", err)
	}
	model := c.LLMModel
	if model == "" {
		model = "gemini-2.5-flash"
	}
	return &GeminiCapability{client: client, model: model, temperature: c.LLMTemperature, maxTokens: c.LLMMaxTokens}, nil
}

// Complete implements Capability.
func (g *GeminiCapability) Complete(ctx context.Context, p Prompt) (Completion, error) {
	metrics.LLMCalls.Add(1)

	temperature := g.temperature
	if p.Temperature != nil {
		temperature = *p.Temperature
	}
	maxTokens := g.maxTokens
	if p.MaxTokens > 0 {
		maxTokens = p.MaxTokens
	}

	conf := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(float32(temperature)),
		MaxOutputTokens: int32(maxTokens),
	}
	if p.System != "" {
		conf.SystemInstruction = genai.NewContentFromText(p.System, genai.RoleUser)
	}
	if p.Schema != nil {
		conf.ResponseMIMEType = "application/json"
		conf.ResponseSchema = toGenaiSchema(p.Schema)
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(p.User), conf)
	if err != nil {
		return Completion{}, recordFailure(err)
	}
	text := strings.TrimSpace(resp.Text())
	if text == "" {
		metrics.LLMErrors.Add(1)
		return Completion{}, Malformed(errors.New("gemini: empty candidate"))
	}
	return Completion{Text: text, Structured: p.Schema != nil}, nil
}

func toGenaiSchema(s *Schema) *genai.Schema {
	if s == nil {
		return nil
	}
	out := &genai.Schema{
		Type:        genaiType(s.Type),
		Description: s.Description,
		Required:    s.Required,
		Items:       toGenaiSchema(s.Items),
	}
	if len(s.Properties) > 0 {
		out.Properties = make(map[string]*genai.Schema, len(s.Properties))
		for name, prop := range s.Properties {
			out.Properties[name] = toGenaiSchema(prop)
		}
	}
	return out
}

func genaiType(t string) genai.Type {
	switch t {
	case TypeObject:
		return genai.TypeObject
	case TypeArray:
		return genai.TypeArray
	case TypeInteger:
		return genai.TypeInteger
	case TypeNumber:
		return genai.TypeNumber
	case TypeBoolean:
		return genai.TypeBoolean
	default:
		return genai.TypeString
	}
}
