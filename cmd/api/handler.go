package api

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	authUsecase "autosend-backend/internal/auth/usecase"
	submissionDelivery "autosend-backend/internal/submission/delivery"
	submissionUsecase "autosend-backend/internal/submission/usecase"
	"autosend-backend/pkg/config"

	"github.com/gin-contrib/cors"
	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type Handler struct {
	tokenUsecase      authUsecase.TokenUsecase
	submissionHandler *submissionDelivery.SubmissionHandler
	settingsHandler   *SettingsHandler
	config            *config.Config
	log               *zap.SugaredLogger

	mu     sync.Mutex
	server *http.Server
}

func NewHandler(tokenUc authUsecase.TokenUsecase, submissionUc submissionUsecase.SubmissionUsecase, trigger submissionDelivery.Trigger, settings *RuntimeSettings, cfg *config.Config, log *zap.SugaredLogger) *Handler {
	return &Handler{
		tokenUsecase:      tokenUc,
		submissionHandler: submissionDelivery.NewSubmissionHandler(submissionUc, trigger),
		settingsHandler:   NewSettingsHandler(settings),
		config:            cfg,
		log:               log,
	}
}

// Engine builds the gin engine with middleware and routes
func (h *Handler) Engine() *gin.Engine {
	if !h.config.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(
		ginzap.Ginzap(h.log.Desugar(), time.RFC3339, true),
		ginzap.RecoveryWithZap(h.log.Desugar(), true),
		cors.New(cors.Config{
			AllowAllOrigins:  true,
			AllowMethods:     []string{"GET", "POST", "PUT", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Authorization", "Content-Type", "Accept"},
			AllowCredentials: false,
			MaxAge:           12 * time.Hour,
		}),
	)

	SetupRoutes(r, h.tokenUsecase, h.submissionHandler, h.settingsHandler)
	return r
}

// Start serves HTTP until Shutdown is called
func (h *Handler) Start(addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           h.Engine(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	h.mu.Lock()
	h.server = srv
	h.mu.Unlock()

	h.log.Infow("Server starting", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting requests and waits for active ones until ctx ends
func (h *Handler) Shutdown(ctx context.Context) error {
	h.mu.Lock()
	srv := h.server
	h.mu.Unlock()

	if srv == nil {
		return nil
	}
	return srv.Shutdown(ctx)
}
