package ai

import (
	"fmt"

	"jobhunt-backend/pkg/gemini"

	"go.uber.org/zap"
)

// Config holds AI provider configuration
type Config struct {
	Provider ProviderType

	GeminiAPIKey string

	OllamaBaseURL string // e.g., "http://localhost:11434"
	OllamaModel   string // e.g., "llama3", "mistral"
}

// NewClassifier builds the classifier selected by cfg.Provider.
// ProviderAuto uses Gemini with Ollama as fallback when a key is present.
func NewClassifier(cfg Config, logger *zap.Logger) (Classifier, error) {
	ollama := NewPromptClassifier(NewOllamaService(cfg.OllamaBaseURL, cfg.OllamaModel))

	switch cfg.Provider {
	case ProviderGemini:
		if cfg.GeminiAPIKey == "" {
			return nil, fmt.Errorf("GEMINI_API_KEY is required for Gemini provider")
		}
		return NewPromptClassifier(gemini.NewGeminiService(cfg.GeminiAPIKey)), nil

	case ProviderOllama:
		return ollama, nil

	default:
		if cfg.GeminiAPIKey != "" {
			return NewFallbackClassifier(NewPromptClassifier(gemini.NewGeminiService(cfg.GeminiAPIKey)), ollama, logger), nil
		}
		return ollama, nil
	}
}
