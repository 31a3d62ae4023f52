package main

import (
	"context"
	"encoding/json"
	"fmt"
	stdlog "log"
	"os"
	"os/signal"
	"syscall"
	"time"

	api "autosend-backend/cmd/api"
	authdomain "autosend-backend/internal/auth/domain"
	authUsecase "autosend-backend/internal/auth/usecase"
	"autosend-backend/internal/submission/dispatch"
	"autosend-backend/internal/submission/repository"
	"autosend-backend/internal/submission/scheduler"
	submissionUsecase "autosend-backend/internal/submission/usecase"
	"autosend-backend/pkg/ai"
	"autosend-backend/pkg/config"
	"autosend-backend/pkg/database"
	"autosend-backend/pkg/disclaimer"
	"autosend-backend/pkg/gmail"
	"autosend-backend/pkg/mail"
	"autosend-backend/pkg/safeguard"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// app holds the services built by the composition root
type app struct {
	cfg        *config.Config
	log        *zap.SugaredLogger
	repo       repository.SubmissionRepository
	scheduler  *scheduler.AutoSendScheduler
	submission submissionUsecase.SubmissionUsecase
	settings   *api.RuntimeSettings
	tokens     authUsecase.TokenUsecase
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "autosend",
		Short:         "AI-drafted response review and auto-send service",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.AddCommand(newServeCommand(), newProcessNowCommand(), newIssueTokenCommand())
	return root
}

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the auto-send scheduler",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := config.Load()
			log := setupLogger(cfg.Debug)
			defer func() { _ = log.Sync() }()

			a, err := buildApp(cfg, log)
			if err != nil {
				return err
			}

			if cfg.AutoSendEnabled {
				a.scheduler.Start()
			} else {
				log.Warn("AUTO_SEND_ENABLED is false, scheduler timer not started")
			}

			handler := api.NewHandler(a.tokens, a.submission, a.scheduler, a.settings, cfg, log)

			errCh := make(chan error, 1)
			go func() { errCh <- handler.Start(":" + cfg.Port) }()

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

			select {
			case err := <-errCh:
				a.scheduler.Stop()
				return err
			case sig := <-sigCh:
				log.Infow("Shutting down", "signal", sig.String())
			}

			// An in-flight cycle is not awaited; its claims are reconciled by the worker
			a.scheduler.Stop()

			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return handler.Shutdown(ctx)
		},
	}
}

func newProcessNowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "process-now",
		Short: "Run one auto-send cycle and print the result",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := config.Load()
			log := setupLogger(cfg.Debug)
			defer func() { _ = log.Sync() }()

			a, err := buildApp(cfg, log)
			if err != nil {
				return err
			}

			res := a.scheduler.TriggerImmediate(cmd.Context())
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(res)
		},
	}
}

func newIssueTokenCommand() *cobra.Command {
	var (
		email string
		role  string
		ttl   time.Duration
	)
	cmd := &cobra.Command{
		Use:   "issue-token <user-id>",
		Short: "Print a signed bearer token for the admin API",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			token, err := authUsecase.NewTokenUsecase(cfg.JWTSecret).IssueToken(authdomain.Principal{
				UserID: args[0],
				Email:  email,
				Role:   role,
			}, ttl)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), token)
			return err
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "email claim")
	cmd.Flags().StringVar(&role, "role", authdomain.RoleAdmin, "role claim")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime")
	return cmd
}

// buildApp wires the store, mail gateway, disclaimer composer, worker and scheduler
func buildApp(cfg *config.Config, log *zap.SugaredLogger) (*app, error) {
	db, err := database.NewPostgresConnection(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := repository.AutoMigrate(db); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	repo := repository.NewGormSubmissionRepository(db)

	providers, err := mail.LoadProviders(cfg.MailProvidersFile, mail.ProviderConfig{
		Transport:          mail.TransportSMTP,
		Host:               cfg.SMTPHost,
		Port:               cfg.SMTPPort,
		Username:           cfg.SMTPUser,
		Password:           cfg.SMTPPassword,
		InsecureSkipVerify: cfg.SMTPInsecure,
		SenderAddress:      cfg.MailSenderAddress,
		SenderName:         cfg.MailSenderName,
	})
	if err != nil {
		return nil, err
	}
	mailLog := log.Named("mail")
	gmailService := gmail.NewService(cfg.GoogleClientID, cfg.GoogleClientSecret)
	gateway := mail.NewGateway(providers, mail.DefaultTransportFactory(gmailService, mailLog), mailLog)

	settings := api.NewRuntimeSettings(cfg.OllamaBaseURL, cfg.OllamaModel)
	drafter, err := ai.NewDraftGenerator(ai.Config{
		Provider:         ai.ProviderType(cfg.AIProvider),
		GeminiAPIKey:     cfg.GeminiApiKey,
		GetOllamaBaseURL: settings.OllamaBaseURL,
		GetOllamaModel:   settings.OllamaModel,
	}, log.Named("ai"))
	if err != nil {
		log.Warnw("AI drafting disabled", "error", err)
		drafter = nil
	} else {
		log.Infow("AI drafting initialized", "provider", cfg.AIProvider)
	}

	worker := dispatch.NewWorker(repo, gateway, disclaimer.NewComposer(), log.Named("dispatch"), time.Now, cfg.AutoSendRetryDelay)
	sched := scheduler.NewAutoSendScheduler(repo, worker, log.Named("autosend"), time.Now, cfg.AutoSendInterval)

	return &app{
		cfg:        cfg,
		log:        log,
		repo:       repo,
		scheduler:  sched,
		submission: submissionUsecase.NewSubmissionUsecase(repo, safeguard.NewChecker(cfg.UrgentKeywords), drafter, log, time.Now, cfg.ReviewWindow),
		settings:   settings,
		tokens:     authUsecase.NewTokenUsecase(cfg.JWTSecret),
	}, nil
}

func setupLogger(debug bool) *zap.SugaredLogger {
	var zlog *zap.Logger
	var err error
	if debug {
		zlog, err = zap.NewDevelopment()
	} else {
		zlog, err = zap.NewProduction()
	}
	if err != nil {
		stdlog.Fatalf("failed to set up logger: %v", err)
	}
	return zlog.Sugar()
}
