package translator

import (
	"context"
	"fmt"
	"strings"

	"github.com/ManuelReschke/LingoFox/internal/pkg/env"
)

// Options describes one text to translate.
type Options struct {
	SourceLanguage string `json:"sourceLanguage"`
	TargetLanguage string `json:"targetLanguage"`
	Text           string `json:"text"`
	Context        string `json:"context,omitempty"`
}

type Result struct {
	TranslatedText string  `json:"translatedText"`
	Confidence     float64 `json:"confidence,omitempty"`
	Provider       string  `json:"provider,omitempty"`
}

// Provider translates a single text.
type Provider interface {
	Translate(ctx context.Context, opts Options) (Result, error)
}

// TranslateBulk translates texts in order and stops at the first failure.
func TranslateBulk(ctx context.Context, p Provider, texts []string, source, target, hint string) ([]Result, error) {
	out := make([]Result, 0, len(texts))
	for i, text := range texts {
		res, err := p.Translate(ctx, Options{SourceLanguage: source, TargetLanguage: target, Text: text, Context: hint})
		if err != nil {
			return out, fmt.Errorf("translate item %d: %w", i, err)
		}
		out = append(out, res)
	}
	return out, nil
}

// Placeholder marks the text instead of translating it.
type Placeholder struct{}

func (Placeholder) Translate(ctx context.Context, opts Options) (Result, error) {
	return Result{
		TranslatedText: fmt.Sprintf("[Translated from %s to %s]: %s", opts.SourceLanguage, opts.TargetLanguage, opts.Text),
		Confidence:     0.8,
		Provider:       "placeholder",
	}, nil
}

// NewFromEnv returns the provider selected by TRANSLATOR_PROVIDER.
func NewFromEnv() Provider {
	switch strings.ToLower(env.GetEnv("TRANSLATOR_PROVIDER", "placeholder")) {
	case "openai":
		return NewOpenAI(env.GetEnv("OPENAI_API_KEY", ""), env.GetEnv("OPENAI_MODEL", defaultOpenAIModel))
	default:
		return Placeholder{}
	}
}
