package ai

import "context"

// DraftRequest is the input for drafting a response to a submission
type DraftRequest struct {
	Subject       string
	RequestText   string
	RecipientName string
	Severity      string
}

// DraftGenerator is the interface for AI response drafting
// Implement this interface to add new AI providers (Gemini, Ollama, OpenAI, etc.)
type DraftGenerator interface {
	GenerateDraft(ctx context.Context, req DraftRequest) (string, error)
}

// ProviderType represents the AI provider type
type ProviderType string

const (
	ProviderGemini ProviderType = "gemini"
	ProviderOllama ProviderType = "ollama"
	ProviderAuto   ProviderType = "auto"
)
