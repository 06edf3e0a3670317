package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/skinmatch/chatbot/backend/internal/config"
	"github.com/skinmatch/chatbot/backend/internal/handler"
	"github.com/skinmatch/chatbot/backend/internal/logger"
	"github.com/skinmatch/chatbot/backend/internal/metrics"
	"github.com/skinmatch/chatbot/backend/internal/service/ai"
	"github.com/skinmatch/chatbot/backend/internal/service/chat"
	"github.com/skinmatch/chatbot/backend/internal/service/consult"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	envErr := godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	logger.Setup(logger.Config{Level: cfg.Log.Level, Pretty: cfg.Log.Pretty})
	if envErr != nil {
		log.Debug().Err(envErr).Msg("no .env file loaded, using process environment only")
	}

	var m *metrics.Metrics
	store := chat.NewMemoryStore(
		chat.WithTTL(cfg.Session.TTL),
		chat.WithEvictHook(func(id string) {
			if m != nil {
				m.SessionsEvictedTotal.Inc()
			}
		}),
	)
	m = metrics.New(store.Len)

	janitor := chat.NewJanitor(store, cfg.Session.SweepInterval)
	janitor.Start()
	defer janitor.Stop()

	var replier consult.Replier
	if cfg.AI.Enabled() {
		chatModel, err := cfg.AI.NewChatModel(ctx)
		if err != nil {
			log.Warn().Err(err).Str("provider", cfg.AI.Provider).Msg("failed to initialize chat model, chat turns disabled")
		} else if aiService, err := ai.NewService(ctx, chatModel, cfg.AI.Timeout); err != nil {
			log.Warn().Err(err).Msg("failed to initialize AI service, chat turns disabled")
		} else {
			replier = aiService
			log.Info().Str("provider", cfg.AI.Provider).Str("model", cfg.AI.Model).Msg("AI service initialized")
		}
	} else {
		log.Warn().Msg("model credentials not configured, chat turns disabled")
	}

	consultSvc := consult.NewService(store, replier, m)
	router := handler.NewRouter(consultSvc, m, cfg.Server.AllowedOrigins)

	startServer(ctx, cfg.Server, router)
}

func startServer(ctx context.Context, serverCfg config.ServerConfig, router http.Handler) {
	addr := serverCfg.Addr
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	log.Info().Str("addr", addr).Msg("consult chatbot listening")
	if err := runServer(ctx, srv); err != nil {
		log.Fatal().Err(err).Msg("server error")
	}
}

func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
