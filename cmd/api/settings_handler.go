package api

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// RuntimeSettings holds the Ollama settings that admins can change without a restart
type RuntimeSettings struct {
	mu            sync.RWMutex
	ollamaBaseURL string
	ollamaModel   string
}

// NewRuntimeSettings initializes runtime settings from static config
func NewRuntimeSettings(ollamaBaseURL, ollamaModel string) *RuntimeSettings {
	return &RuntimeSettings{ollamaBaseURL: ollamaBaseURL, ollamaModel: ollamaModel}
}

// OllamaBaseURL returns the current runtime Ollama base URL
func (s *RuntimeSettings) OllamaBaseURL() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ollamaBaseURL
}

// OllamaModel returns the current runtime Ollama model
func (s *RuntimeSettings) OllamaModel() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ollamaModel
}

func (s *RuntimeSettings) update(baseURL, model string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ollamaBaseURL = baseURL
	if model != "" {
		s.ollamaModel = model
	}
}

// UpdateOllamaSettingsRequest represents the request body for updating Ollama settings
type UpdateOllamaSettingsRequest struct {
	OllamaBaseURL string `json:"ollama_base_url" binding:"required"`
	OllamaModel   string `json:"ollama_model,omitempty"`
}

// SettingsHandler exposes the runtime drafting settings
type SettingsHandler struct {
	settings *RuntimeSettings
	client   *http.Client
}

// NewSettingsHandler creates a new SettingsHandler
func NewSettingsHandler(settings *RuntimeSettings) *SettingsHandler {
	return &SettingsHandler{settings: settings, client: &http.Client{Timeout: 5 * time.Second}}
}

// GetOllamaSettings returns current Ollama configuration
// GET /api/settings/ollama
func (h *SettingsHandler) GetOllamaSettings(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"ollama_base_url": h.settings.OllamaBaseURL(),
		"ollama_model":    h.settings.OllamaModel(),
	})
}

// UpdateOllamaSettings changes the Ollama server used for new drafts
// PUT /api/settings/ollama
func (h *SettingsHandler) UpdateOllamaSettings(c *gin.Context) {
	var req UpdateOllamaSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	h.settings.update(req.OllamaBaseURL, req.OllamaModel)

	c.JSON(http.StatusOK, gin.H{
		"message":         "Ollama settings updated successfully",
		"ollama_base_url": h.settings.OllamaBaseURL(),
		"ollama_model":    h.settings.OllamaModel(),
	})
}

// TestOllamaConnection checks that the Ollama server answers its tags endpoint
// POST /api/settings/ollama/test
func (h *SettingsHandler) TestOllamaConnection(c *gin.Context) {
	var req struct {
		OllamaBaseURL string `json:"ollama_base_url"`
	}
	_ = c.ShouldBindJSON(&req)
	if req.OllamaBaseURL == "" {
		req.OllamaBaseURL = h.settings.OllamaBaseURL()
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, req.OllamaBaseURL+"/api/tags", nil)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"connected": false, "error": err.Error()})
		return
	}

	resp, err := h.client.Do(httpReq)
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"connected": false,
			"error":     err.Error(),
		})
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"connected":   false,
			"status_code": resp.StatusCode,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"connected":       true,
		"ollama_base_url": req.OllamaBaseURL,
	})
}
