package generator

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/genai"
)

const defaultGeminiModel = "gemini-2.0-flash"

// GeminiLLM implements LLMClient with the Google GenAI SDK.
type GeminiLLM struct {
	Model  string
	APIKey string
}

func NewGeminiLLMFromConfig(cfg *LLMSettings) (*GeminiLLM, error) {
	if cfg == nil {
		return nil, errors.New("llm config is nil")
	}
	if cfg.APIKey == "" {
		return nil, errors.New("gemini api key missing; provide llm.api_key or GEMINI_API_KEY")
	}
	model := cfg.Model
	if model == "" {
		model = defaultGeminiModel
	}
	return &GeminiLLM{Model: model, APIKey: cfg.APIKey}, nil
}

func (g *GeminiLLM) Complete(ctx context.Context, prompt Prompt) (string, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  g.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return "", fmt.Errorf("%w: gemini client: %v", ErrProviderUnavailable, err)
	}

	config := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(float32(temperature)),
	}
	if prompt.JSON {
		config.ResponseMIMEType = "application/json"
	}
	if prompt.System != "" {
		config.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{{Text: prompt.System}},
		}
	}

	result, err := client.Models.GenerateContent(ctx, g.Model, genai.Text(prompt.User), config)
	if err != nil {
		return "", fmt.Errorf("%w: gemini: %v", ErrProviderUnavailable, err)
	}
	text := result.Text()
	if text == "" {
		return "", fmt.Errorf("%w: gemini: empty response", ErrProviderUnavailable)
	}
	return text, nil
}
