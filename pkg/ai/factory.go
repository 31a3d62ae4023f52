package ai

import (
	"context"
	"fmt"

	"autosend-backend/pkg/gemini"

	"go.uber.org/zap"
)

// Config holds AI provider configuration
type Config struct {
	Provider ProviderType // "gemini", "ollama" or "auto"

	// Gemini config
	GeminiAPIKey string

	// Ollama config
	OllamaBaseURL string // e.g., "http://localhost:11434"
	OllamaModel   string // e.g., "llama3", "mistral"

	// Optional getters for runtime updates; they override the static Ollama fields
	GetOllamaBaseURL func() string
	GetOllamaModel   func() string
}

func (cfg Config) ollama() *OllamaService {
	if cfg.GetOllamaBaseURL != nil && cfg.GetOllamaModel != nil {
		return NewOllamaServiceWithGetters(cfg.GetOllamaBaseURL, cfg.GetOllamaModel)
	}
	return NewOllamaService(cfg.OllamaBaseURL, cfg.OllamaModel)
}

// geminiDrafter adapts the Gemini text API to DraftGenerator
type geminiDrafter struct {
	svc *gemini.GeminiService
}

// NewGeminiDrafter wraps a Gemini service as a DraftGenerator
func NewGeminiDrafter(svc *gemini.GeminiService) DraftGenerator {
	return &geminiDrafter{svc: svc}
}

func (g *geminiDrafter) GenerateDraft(ctx context.Context, req DraftRequest) (string, error) {
	text, err := g.svc.GenerateText(ctx, BuildDraftPrompt(req))
	if err != nil {
		return "", err
	}
	draft := cleanDraft(text)
	if draft == "" {
		return "", fmt.Errorf("gemini returned an empty draft")
	}
	return draft, nil
}

// NewDraftGenerator creates a DraftGenerator based on the config
// This is the factory function - switch AI provider by changing cfg.Provider
func NewDraftGenerator(cfg Config, log *zap.SugaredLogger) (DraftGenerator, error) {
	switch cfg.Provider {
	case ProviderGemini:
		if cfg.GeminiAPIKey == "" {
			return nil, fmt.Errorf("GEMINI_API_KEY is required for Gemini provider")
		}
		return NewGeminiDrafter(gemini.NewGeminiService(cfg.GeminiAPIKey)), nil

	case ProviderOllama:
		return cfg.ollama(), nil

	default:
		// Auto: Gemini first when a key is available, Ollama as fallback
		var primary DraftGenerator
		if cfg.GeminiAPIKey != "" {
			primary = NewGeminiDrafter(gemini.NewGeminiService(cfg.GeminiAPIKey))
		}
		return NewFallbackService(primary, cfg.ollama(), log), nil
	}
}
