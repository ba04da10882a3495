package generation

import (
	"context"
	"strings"
	"unicode"

	"study-assistant-be/internal/pkg/apperror"
	"study-assistant-be/internal/pkg/logger"
	"study-assistant-be/pkg/chat/prompt"
	"study-assistant-be/pkg/llm"
)

const (
	module        = "generation"
	maxTitleWords = 10
)

type Config struct {
	MaxTokens      int
	Temperature    float64
	TitleMaxTokens int
}

// Client is the single boundary to the generative model. Each call is one
// attempt bounded by the provider's own timeout.
type Client struct {
	provider llm.LLMProvider
	cfg      Config
	log      logger.ILogger
}

func NewClient(provider llm.LLMProvider, cfg Config, log logger.ILogger) *Client {
	if cfg.TitleMaxTokens <= 0 {
		cfg.TitleMaxTokens = 32
	}
	return &Client{provider: provider, cfg: cfg, log: log}
}

// GenerateTitle synthesizes a conversation title from the first question.
// Callers are expected to fall back to a default title on error.
func (c *Client) GenerateTitle(ctx context.Context, question string) (string, error) {
	raw, err := c.provider.Generate(ctx, prompt.BuildTitlePrompt(question),
		llm.WithMaxTokens(c.cfg.TitleMaxTokens),
		llm.WithTemperature(0.3),
	)
	if err != nil {
		c.log.Warn(module, "Title generation failed", map[string]interface{}{"error": err.Error()})
		return "", apperror.Generation("failed to generate title", err)
	}

	title := CleanTitle(raw)
	if title == "" {
		return "", apperror.Generation("model returned an empty title", nil)
	}

	c.log.Debug(module, "Title generated", map[string]interface{}{"question": question, "title": title})
	return title, nil
}

// GenerateAnswer returns the model's answer for an assembled prompt. A failed
// call or blank output is a generation error.
func (c *Client) GenerateAnswer(ctx context.Context, promptText string) (string, error) {
	raw, err := c.provider.Generate(ctx, promptText,
		llm.WithMaxTokens(c.cfg.MaxTokens),
		llm.WithTemperature(c.cfg.Temperature),
	)
	if err != nil {
		c.log.Error(module, "Answer generation failed", map[string]interface{}{"error": err.Error()})
		return "", apperror.Generation("failed to generate answer", err)
	}

	answer := strings.TrimSpace(raw)
	if answer == "" {
		return "", apperror.Generation("model returned an empty answer", nil)
	}

	c.log.Debug(module, "Answer generated", map[string]interface{}{
		"prompt": promptText,
		"answer": answer,
	})
	return answer, nil
}

// CleanTitle keeps the first non-empty line, strips markdown, quotes and a
// leading "Title:" label, and caps the result at ten words.
func CleanTitle(raw string) string {
	line := ""
	for _, l := range strings.Split(raw, "\n") {
		if l = strings.TrimSpace(l); l != "" {
			line = l
			break
		}
	}

	line = strings.NewReplacer("**", "", "__", "", "`", "", "#", "").Replace(line)
	if idx := strings.Index(line, ":"); idx >= 0 && strings.EqualFold(strings.TrimSpace(line[:idx]), "title") {
		line = line[idx+1:]
	}
	line = strings.TrimFunc(line, func(r rune) bool {
		return unicode.IsSpace(r) || strings.ContainsRune("\"'“”‘’*_", r)
	})

	words := strings.Fields(line)
	if len(words) > maxTitleWords {
		words = words[:maxTitleWords]
	}
	title := strings.Join(words, " ")
	return strings.TrimRightFunc(title, func(r rune) bool {
		return strings.ContainsRune(".!?,;:", r)
	})
}
