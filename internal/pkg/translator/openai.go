package translator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	defaultOpenAIModel    = "gpt-4.1-mini"
	defaultOpenAIEndpoint = "https://api.openai.com/v1/responses"
)

// OpenAI translates through the OpenAI Responses API.
type OpenAI struct {
	APIKey     string
	Model      string
	Endpoint   string
	HTTPClient *http.Client
}

func NewOpenAI(apiKey, model string) *OpenAI {
	if model == "" {
		model = defaultOpenAIModel
	}
	return &OpenAI{
		APIKey:     strings.TrimSpace(apiKey),
		Model:      model,
		Endpoint:   defaultOpenAIEndpoint,
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
	}
}

func instructions(opts Options) string {
	s := fmt.Sprintf("You are a professional translator. Translate the following text from %s to %s. Reply with the translation only.",
		opts.SourceLanguage, opts.TargetLanguage)
	if opts.Context != "" {
		s += " Context: " + opts.Context
	}
	return s
}

func (o *OpenAI) Translate(ctx context.Context, opts Options) (Result, error) {
	if o.APIKey == "" {
		return Result{}, fmt.Errorf("OPENAI_API_KEY not set")
	}

	b, _ := json.Marshal(map[string]any{
		"model":        o.Model,
		"instructions": instructions(opts),
		"input":        opts.Text,
		"temperature":  0.3,
	})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.Endpoint, bytes.NewReader(b))
	if err != nil {
		return Result{}, err
	}
	req.Header.Set("Authorization", "Bearer "+o.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := o.HTTPClient.Do(req)
	if err != nil {
		return Result{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return Result{}, fmt.Errorf("openai error %d: %s", resp.StatusCode, string(body))
	}

	var parsed struct {
		Output []struct {
			Type    string `json:"type"`
			Role    string `json:"role"`
			Content []struct {
				Type string `json:"type"`
				Text string `json:"text"`
			} `json:"content"`
		} `json:"output"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return Result{}, err
	}

	var sb strings.Builder
	for _, item := range parsed.Output {
		if item.Type != "message" || item.Role != "assistant" {
			continue
		}
		for _, c := range item.Content {
			if c.Type == "output_text" && strings.TrimSpace(c.Text) != "" {
				if sb.Len() > 0 {
					sb.WriteString("\n")
				}
				sb.WriteString(c.Text)
			}
		}
	}

	out := strings.TrimSpace(sb.String())
	if out == "" {
		return Result{}, fmt.Errorf("empty response from model")
	}
	return Result{TranslatedText: out, Confidence: 0.95, Provider: "openai"}, nil
}
