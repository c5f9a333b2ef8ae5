package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"

	"github.com/ecologiciel/gemini-rag-master/internal/accounts"
	"github.com/ecologiciel/gemini-rag-master/internal/auth"
	"github.com/ecologiciel/gemini-rag-master/internal/cache"
	"github.com/ecologiciel/gemini-rag-master/internal/config"
	"github.com/ecologiciel/gemini-rag-master/internal/db"
	"github.com/ecologiciel/gemini-rag-master/internal/documents"
	"github.com/ecologiciel/gemini-rag-master/internal/genai"
	"github.com/ecologiciel/gemini-rag-master/internal/handlers"
	"github.com/ecologiciel/gemini-rag-master/internal/logger"
	"github.com/ecologiciel/gemini-rag-master/internal/relay"
	"github.com/ecologiciel/gemini-rag-master/internal/requestlog"
	"github.com/ecologiciel/gemini-rag-master/internal/retry"
	"github.com/ecologiciel/gemini-rag-master/internal/server"
	"github.com/ecologiciel/gemini-rag-master/internal/settings"
	"github.com/ecologiciel/gemini-rag-master/internal/webhook"
	"github.com/ecologiciel/gemini-rag-master/internal/whatsapp"
)

func runServe() {
	fx.New(
		fx.Provide(
			provideConfig,
			provideLogger,
			provideDBConn,
			provideCache,
			provideGenAIHandle,
			provideWhatsAppClient,
			settings.NewRepository,
			provideSettingsService,
			documents.NewRepository,
			provideDocumentsService,
			provideSweeper,
			accounts.NewRepository,
			accounts.NewService,
			requestlog.NewRepository,
			requestlog.NewService,
			provideRelayService,
			provideBroadcaster,
			provideGate,
			provideWebhookHandler,
			handlers.NewPingHandler,
			provideDocumentsHandler,
			handlers.NewSettingsHandler,
			handlers.NewUsersHandler,
			handlers.NewChatHandler,
			handlers.NewBroadcastHandler,
			handlers.NewStatsHandler,
			handlers.NewStrategyHandler,
			provideServer,
		),
		fx.Invoke(
			applyStoredKey,
			startSweeper,
			startServer,
		),
		fx.WithLogger(func(logger *slog.Logger) fxevent.Logger {
			return &fxevent.SlogLogger{Logger: logger.With(slog.String("component", "fx"))}
		}),
	).Run()
}

func provideConfig() (config.Config, error) {
	cfgPath := os.Getenv("CONFIG_PATH")
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return config.Config{}, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

func provideLogger(cfg config.Config) *slog.Logger {
	logger.Init(cfg.Log.Level, cfg.Log.Format)
	return logger.L
}

func provideDBConn(lc fx.Lifecycle, cfg config.Config) (*pgxpool.Pool, error) {
	pool, err := db.Connect(context.Background(), cfg.Database.URL)
	if err != nil {
		return nil, fmt.Errorf("db connect: %w", err)
	}
	lc.Append(fx.Hook{OnStop: func(ctx context.Context) error { pool.Close(); return nil }})
	return pool, nil
}

func provideCache(lc fx.Lifecycle, log *slog.Logger, cfg config.Config) (*cache.Cache, error) {
	seen, err := cache.New(context.Background(), log, cfg.Cache.URL)
	if err != nil {
		return nil, fmt.Errorf("cache connect: %w", err)
	}
	lc.Append(fx.Hook{OnStop: func(ctx context.Context) error { return seen.Close() }})
	return seen, nil
}

func provideGenAIHandle(log *slog.Logger, cfg config.Config) *genai.Handle {
	return genai.NewHandle(log, genai.Options{
		APIKey:        cfg.Gemini.APIKey,
		BaseURL:       cfg.Gemini.BaseURL,
		UploadBaseURL: cfg.Gemini.UploadBaseURL,
		Timeout:       time.Duration(cfg.Gemini.TimeoutSeconds) * time.Second,
	})
}

func provideSettingsService(log *slog.Logger, repo settings.Repository, handle *genai.Handle, cfg config.Config) *settings.Service {
	return settings.NewService(log, repo, handle, settings.Fallbacks{
		GeminiAPIKey:          cfg.Gemini.APIKey,
		WhatsAppAccessToken:   cfg.WhatsApp.AccessToken,
		WhatsAppPhoneNumberID: cfg.WhatsApp.PhoneNumberID,
		WebhookVerifyToken:    cfg.WhatsApp.VerifyToken,
		AppSecret:             cfg.WhatsApp.AppSecret,
	})
}

// provideWhatsAppClient resolves credentials through the settings row so a
// token saved from the console survives restarts without touching the config
// file.
func provideWhatsAppClient(log *slog.Logger, cfg config.Config, svc *settings.Service) *whatsapp.Client {
	creds := svc.Credentials(context.Background())
	return whatsapp.NewClient(log, whatsapp.Options{
		AccessToken:   creds.WhatsAppAccessToken,
		PhoneNumberID: creds.WhatsAppPhoneNumberID,
		BaseURL:       cfg.WhatsApp.BaseURL,
		MediaMaxBytes: cfg.WhatsApp.MediaMaxBytes,
	})
}

func provideDocumentsService(log *slog.Logger, repo documents.Repository, handle *genai.Handle, cfg config.Config) *documents.Service {
	return documents.NewService(log, repo, handle, documents.PollConfig{
		Attempts: cfg.Relay.FilePollAttempts,
		Interval: time.Duration(cfg.Relay.FilePollIntervalMs) * time.Millisecond,
	})
}

func provideSweeper(log *slog.Logger, svc *documents.Service) *documents.Sweeper {
	return documents.NewSweeper(log, svc, documents.DefaultSweepSchedule)
}

func provideRelayService(
	log *slog.Logger,
	handle *genai.Handle,
	docs *documents.Service,
	prompts *settings.Service,
	logs *requestlog.Service,
	cfg config.Config,
) *relay.Service {
	return relay.NewService(log, handle, docs, prompts, logs, cfg.Gemini.Model, retry.Policy{
		MaxAttempts:  cfg.Relay.MaxAttempts,
		InitialDelay: time.Duration(cfg.Relay.InitialBackoffMs) * time.Millisecond,
	})
}

func provideBroadcaster(log *slog.Logger, client *whatsapp.Client, logs *requestlog.Service, cfg config.Config) *relay.Broadcaster {
	return relay.NewBroadcaster(log, client, logs, time.Duration(cfg.Relay.BroadcastDelayMs)*time.Millisecond)
}

func provideGate(log *slog.Logger, cfg config.Config, accountsSvc *accounts.Service) *auth.Gate {
	return auth.NewGate(log, cfg.Auth.BaseURL, cfg.Auth.ServiceKey, accountsSvc)
}

func provideWebhookHandler(
	log *slog.Logger,
	relaySvc *relay.Service,
	client *whatsapp.Client,
	secrets *settings.Service,
	seen *cache.Cache,
) *webhook.Handler {
	return webhook.NewHandler(log, relaySvc, client, secrets, seen)
}

func provideDocumentsHandler(log *slog.Logger, svc *documents.Service) *handlers.DocumentsHandler {
	return handlers.NewDocumentsHandler(log, svc, documents.MaxDocumentBytes)
}

func provideServer(
	cfg config.Config,
	log *slog.Logger,
	gate *auth.Gate,
	pingHandler *handlers.PingHandler,
	documentsHandler *handlers.DocumentsHandler,
	settingsHandler *handlers.SettingsHandler,
	usersHandler *handlers.UsersHandler,
	chatHandler *handlers.ChatHandler,
	broadcastHandler *handlers.BroadcastHandler,
	statsHandler *handlers.StatsHandler,
	strategyHandler *handlers.StrategyHandler,
	webhookHandler *webhook.Handler,
) *server.Server {
	return server.NewServer(
		cfg.Server.Addr,
		log,
		gate,
		pingHandler,
		documentsHandler,
		settingsHandler,
		usersHandler,
		chatHandler,
		broadcastHandler,
		statsHandler,
		strategyHandler,
		webhookHandler,
	)
}

// applyStoredKey swaps the Gemini client onto the key saved in the settings
// row, when one exists. The handle starts on the config fallback.
func applyStoredKey(lc fx.Lifecycle, svc *settings.Service, handle *genai.Handle) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if key := svc.Credentials(ctx).GeminiAPIKey; key != "" {
				handle.Reload(key)
			}
			return nil
		},
	})
}

func startSweeper(lc fx.Lifecycle, sweeper *documents.Sweeper) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return sweeper.Start()
		},
		OnStop: func(ctx context.Context) error {
			sweeper.Stop()
			return nil
		},
	})
}

func startServer(lc fx.Lifecycle, log *slog.Logger, srv *server.Server, shutdowner fx.Shutdowner) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Error("server failed", slog.Any("error", err))
					_ = shutdowner.Shutdown()
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			if err := srv.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("server stop: %w", err)
			}
			return nil
		},
	})
}
