package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/capitalize-ai/covid-dashboard/internal/handler"
	"github.com/capitalize-ai/covid-dashboard/internal/llm"
	"github.com/capitalize-ai/covid-dashboard/internal/middleware"
	natsclient "github.com/capitalize-ai/covid-dashboard/internal/nats"
	"github.com/capitalize-ai/covid-dashboard/internal/render"
	"github.com/capitalize-ai/covid-dashboard/internal/service"
	"github.com/capitalize-ai/covid-dashboard/internal/session"
	"github.com/capitalize-ai/covid-dashboard/internal/warehouse"
	"github.com/capitalize-ai/covid-dashboard/pkg/tracing"
)

const sweepInterval = 10 * time.Minute

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the dashboard HTTP server",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		return serve(ctx)
	},
}

func serve(ctx context.Context) error {
	log.Info("starting dashboard server")

	if cfg.TracingEnabled {
		tp, err := tracing.InitTracer(ctx, "covid-dashboard", cfg.TracingEndpoint)
		if err != nil {
			log.Warn("failed to initialize tracing", zap.Error(err))
		} else {
			defer tracing.Shutdown(context.Background(), tp)
		}
	}

	gateway, err := warehouse.Open(warehouseConfig(cfg))
	if err != nil {
		return err
	}
	defer gateway.Close()

	store, locker, closeStore, err := openSessionStore(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	checks := map[string]handler.Pinger{
		"warehouse":     gateway,
		"session_store": store,
	}
	conns := map[string]handler.Connection{}

	var recorder service.TurnRecorder = service.NopRecorder{}
	if cfg.NATSURL != "" {
		natsClient, err := natsclient.Connect(ctx, natsConfig(), log)
		if err != nil {
			return err
		}
		defer natsClient.Close()

		streamManager := natsclient.NewStreamManager(natsClient)
		if err := streamManager.EnsureStream(ctx); err != nil {
			return fmt.Errorf("failed to ensure stream: %w", err)
		}
		recorder = streamManager
		conns["nats"] = natsClient
	}

	provider := llm.Provider(cfg.LLMProvider)
	apiKey := cfg.OpenAIAPIKey
	if provider == llm.ProviderAnthropic {
		apiKey = cfg.AnthropicAPIKey
	}
	var llmClient llm.Client
	if apiKey == "" {
		log.Warn("no API key configured for LLM provider, chat turns will fail", zap.String("provider", cfg.LLMProvider))
		llmClient = llm.NewUnconfiguredClient(provider)
	} else {
		llmClient, err = llm.NewClient(provider, llm.Options{
			APIKey:    apiKey,
			BaseURL:   cfg.OpenAIBaseURL,
			MaxTokens: cfg.LLMMaxTokens,
		})
		if err != nil {
			return err
		}
	}
	selector := llm.NewSelector(provider)

	chatSvc := service.NewChatService(store, locker, llmClient, recorder, log, service.ChatOptions{
		SystemPrompt: cfg.SystemPrompt,
		MaxTokens:    cfg.LLMMaxTokens,
	})
	caseSvc := service.NewCaseService(gateway, cfg.DefaultCountries, log)

	router := handler.NewRouter(
		handler.RouterConfig{
			Logger: log,
			Session: middleware.SessionOptions{
				Secret: cfg.SessionSecret,
				TTL:    cfg.SessionTTL,
				Secure: cfg.SessionCookieSecure,
			},
			RateLimitRequests: cfg.RateLimitRequests,
			RateLimitWindow:   cfg.RateLimitWindow,
		},
		handler.NewPageHandler(chatSvc, caseSvc, selector, render.New(), log),
		handler.NewAPIHandler(chatSvc, caseSvc, selector, log),
		handler.NewHealthHandler(checks, conns),
	)

	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  cfg.ServerReadTimeout,
		WriteTimeout: cfg.ServerWriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server listening",
			zap.String("port", cfg.ServerPort),
			zap.String("llm_provider", llmClient.Name()),
			zap.String("session_store", cfg.SessionStore),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	case <-ctx.Done():
	}

	log.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", zap.Error(err))
	}

	log.Info("server stopped")
	return nil
}

// openSessionStore builds the configured store and the turn locker that
// matches it. The returned func releases their resources.
func openSessionStore(ctx context.Context) (session.Store, session.TurnLocker, func(), error) {
	switch cfg.SessionStore {
	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			return nil, nil, nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		return session.NewRedisStore(client, cfg.SessionTTL),
			session.NewRedisLocker(client, cfg.SessionLockTTL),
			func() { client.Close() }, nil
	default:
		store := session.NewMemoryStore(cfg.SessionTTL)
		sweepCtx, cancel := context.WithCancel(ctx)
		go sweepSessions(sweepCtx, store)
		return store, session.NewLocker(), cancel, nil
	}
}

func sweepSessions(ctx context.Context, store *session.MemoryStore) {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := store.Sweep(); n > 0 {
				log.Debug("expired sessions removed", zap.Int("count", n))
			}
		}
	}
}

func natsConfig() natsclient.Config {
	return natsclient.Config{
		URL:      cfg.NATSURL,
		CAFile:   cfg.NATSCAFile,
		CertFile: cfg.NATSCertFile,
		KeyFile:  cfg.NATSKeyFile,
		Token:    cfg.NATSToken,
	}
}
