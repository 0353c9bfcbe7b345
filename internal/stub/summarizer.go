package stub

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/ppiankov/newsguard/internal/model"
	"github.com/sashabaranov/go-openai"
)

const (
	// minSummaryTextLen is the shortest text worth explaining
	minSummaryTextLen = 50   // characters
	maxPromptTextLen  = 1000 // characters

	shortTextSummary   = "Text too short for detailed analysis."
	unavailableSummary = "Analysis unavailable at the moment."

	groqBaseURL = "https://api.groq.com/openai/v1"
)

// Summarizer explains a prediction in a couple of sentences
type Summarizer interface {
	Summarize(ctx context.Context, text string, result model.PredictionResult) (string, error)
}

// OpenAISummarizer talks to any OpenAI-compatible chat completions endpoint
type OpenAISummarizer struct {
	client  *openai.Client
	model   string
	timeout time.Duration
}

// NewSummarizer builds a summarizer from configuration.
// It returns nil, nil when summaries are disabled.
func NewSummarizer(cfg model.StubLLMConfig) (Summarizer, error) {
	provider := strings.ToLower(cfg.Provider)

	switch provider {
	case "":
		return nil, nil
	case "openai", "groq":
	default:
		return nil, fmt.Errorf("unknown LLM provider: %s (supported: openai, groq)", cfg.Provider)
	}

	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%s API key is required", provider)
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	switch {
	case cfg.BaseURL != "":
		clientConfig.BaseURL = cfg.BaseURL
	case provider == "groq":
		clientConfig.BaseURL = groqBaseURL
	}

	modelName := cfg.Model
	if modelName == "" {
		modelName = openai.GPT4oMini
	}

	return &OpenAISummarizer{
		client:  openai.NewClientWithConfig(clientConfig),
		model:   modelName,
		timeout: 30 * time.Second,
	}, nil
}

// Summarize asks the model why the content might carry the predicted label
func (s *OpenAISummarizer) Summarize(ctx context.Context, text string, result model.PredictionResult) (string, error) {
	if utf8.RuneCountInString(text) < minSummaryTextLen {
		return shortTextSummary, nil
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: s.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: "You are a helpful and concise fact-checking assistant.",
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: BuildPrompt(text, result),
			},
		},
		MaxTokens:   100,
		Temperature: 0.5,
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no choices in response")
	}

	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// BuildPrompt constructs the explanation prompt for one prediction
func BuildPrompt(text string, result model.PredictionResult) string {
	if runes := []rune(text); len(runes) > maxPromptTextLen {
		text = string(runes[:maxPromptTextLen])
	}

	return fmt.Sprintf(`You are a fact checker.
Analyze this news snippet: %q

Our automated system flagged this as %s with %.2f%% confidence.

Provide a 2-sentence explanation of why this might be %s.
- If Real: mention why it sounds credible (neutral tone, specific details).
- If Fake: point out sensationalism, lack of sources, or logical errors.
- Give only the analysis.`, text, result.Label, result.Confidence, result.Label)
}
