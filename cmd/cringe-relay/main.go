package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/manenim/cringe-relay/internal/config"
	"github.com/manenim/cringe-relay/internal/metrics"
	"github.com/manenim/cringe-relay/internal/scorer"
	"github.com/manenim/cringe-relay/internal/server"
	"github.com/manenim/cringe-relay/pkg/limiter"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		boot := zerolog.New(os.Stderr).With().Timestamp().Logger()
		boot.Fatal().Err(err).Msg("failed to load configuration")
	}
	logger := newLogger(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal().Err(err).Msg("relay stopped with error")
	}
	logger.Info().Msg("server stopped gracefully")
}

func newLogger(cfg *config.Config) zerolog.Logger {
	var logger zerolog.Logger
	if cfg.LogFormat == "console" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339})
	} else {
		logger = zerolog.New(os.Stdout)
	}
	return logger.Level(cfg.LogLevel).With().Timestamp().Str("service", "cringe-relay").Logger()
}

// run serves until ctx is cancelled or the listener fails.
func run(ctx context.Context, cfg *config.Config, logger zerolog.Logger) error {
	if cfg.OpenAIKey == "" {
		logger.Warn().Msg("OPENAI_API_KEY is not set; /score will fail until you set it")
	}

	rec := metrics.NewRecorder()
	g, ctx := errgroup.WithContext(ctx)

	var store limiter.WindowStore
	if cfg.UsesRedis() {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return err
		}
		client := redis.NewClient(opts)
		defer client.Close()

		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		if err := client.Ping(pingCtx).Err(); err != nil {
			// Requests fail open until Redis comes back.
			logger.Warn().Err(err).Str("addr", opts.Addr).Msg("redis not reachable at startup")
		}
		cancel()

		store = limiter.NewRedisStore(client,
			limiter.WithPrefix(cfg.KeyPrefix),
			limiter.WithTimeout(cfg.RedisTimeout),
			limiter.WithStoreRecorder(rec),
		)
		logger.Info().Str("addr", opts.Addr).Str("prefix", cfg.KeyPrefix).Msg("rate limiting with redis")
	} else {
		mem := limiter.NewMemoryStore()
		store = mem
		janitor := limiter.NewJanitor(mem, cfg.JanitorInterval, logger, rec)
		g.Go(func() error { return janitor.Run(ctx) })
		logger.Info().Msg("rate limiting in memory; quotas are per process")
	}

	l, err := limiter.New(store, limiter.Limits{Minute: cfg.MinuteLimit, Daily: cfg.DailyLimit},
		limiter.WithLogger(logger.With().Str("component", "limiter").Logger()),
		limiter.WithRecorder(rec),
	)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr: ":" + strconv.Itoa(cfg.Port),
		Handler: server.New(server.Options{
			Limiter:      l,
			ClientHeader: cfg.ClientHeader,
			Scorer:       scorer.NewOpenAI(cfg.OpenAIKey, cfg.OpenAIModel, logger),
			Logger:       logger,
			Metrics:      rec.Handler(),
		}),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	g.Go(func() error {
		logger.Info().
			Int("port", cfg.Port).
			Int64("minute_limit", cfg.MinuteLimit).
			Int64("daily_limit", cfg.DailyLimit).
			Msg("cringe relay listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		logger.Info().Msg("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
