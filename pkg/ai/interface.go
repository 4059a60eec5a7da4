package ai

import "context"

// Job-mail categories returned by classifiers.
const (
	CategoryApplication = "application"
	CategoryInterview   = "interview"
	CategoryOffer       = "offer"
	CategoryRejection   = "rejection"
	CategoryOther       = "other"
)

// Classification is what a classifier extracts from one email.
type Classification struct {
	Category   string  `json:"category"`
	Company    string  `json:"company"`
	Position   string  `json:"position"`
	Confidence float64 `json:"confidence"`
}

// Classifier labels job-search mail.
// Implement this interface to add new AI providers.
type Classifier interface {
	Classify(ctx context.Context, emailText string) (*Classification, error)
}

// Generator turns a prompt into raw model text.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// ProviderType represents the AI provider type
type ProviderType string

const (
	ProviderGemini ProviderType = "gemini"
	ProviderOllama ProviderType = "ollama"
	ProviderAuto   ProviderType = "auto"
)
