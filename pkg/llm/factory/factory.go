package factory

import (
	"fmt"
	"time"

	"study-assistant-be/pkg/llm"
	"study-assistant-be/pkg/llm/gemini"
	"study-assistant-be/pkg/llm/huggingface"
	"study-assistant-be/pkg/llm/ollama"
)

type ProviderConfig struct {
	Provider      string
	Model         string
	OllamaBaseURL string
	GeminiAPIKey  string
	HFAPIKey      string
	Timeout       time.Duration
}

func NewLLMProvider(cfg ProviderConfig) (llm.LLMProvider, error) {
	switch cfg.Provider {
	case "gemini", "":
		if cfg.GeminiAPIKey == "" {
			return nil, fmt.Errorf("gemini provider requires GOOGLE_GEMINI_API_KEY")
		}
		return gemini.NewGeminiProvider(cfg.GeminiAPIKey, "", cfg.Model, cfg.Timeout), nil
	case "ollama":
		baseURL := cfg.OllamaBaseURL
		if baseURL == "" {
			baseURL = "http://localhost:11434" // Default
		}
		return ollama.NewOllamaProvider(baseURL, cfg.Model, cfg.Timeout), nil
	case "huggingface":
		return huggingface.NewHuggingFaceProvider(cfg.HFAPIKey, "", cfg.Model, cfg.Timeout), nil
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", cfg.Provider)
	}
}
