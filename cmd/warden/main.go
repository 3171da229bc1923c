package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-redisstream/pkg/redisstream"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/redis/go-redis/v9"

	"github.com/layer-3/warden/adapters/codec"
	"github.com/layer-3/warden/adapters/events"
	"github.com/layer-3/warden/adapters/lock"
	"github.com/layer-3/warden/adapters/provider"
	"github.com/layer-3/warden/core"
	"github.com/layer-3/warden/internal/config"
	"github.com/layer-3/warden/internal/logger"
	"github.com/layer-3/warden/ports"
	"github.com/layer-3/warden/service"
	transport "github.com/layer-3/warden/transport/http"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "warden: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg := config.NewConfig()
	if err := cfg.LoadDotEnv(os.Getwd); err != nil {
		return fmt.Errorf("failed to load .env: %w", err)
	}
	cfg.LoadEnv(os.Getenv)
	if err := cfg.ParseFlags(os.Args[1:]); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	l := logger.New(cfg.LogLevel)

	locker, publisher, err := buildInfra(cfg, l)
	if err != nil {
		return err
	}

	sessionCodec, err := codec.NewJWTCodec(cfg.AuthSecret, codec.DefaultArtifactMaxAge)
	if err != nil {
		return err
	}

	credentialClient := provider.NewClient(provider.Config{
		BaseURL:      cfg.APIURL,
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
	}, l)

	policy := core.ExpiryPolicy{TTL: cfg.TokenTTL}
	authService := service.NewAuthService(credentialClient, policy, publisher, l)
	refreshService := service.NewRefreshService(credentialClient, policy, locker, publisher, l)

	cookie := transport.CookieOptions{Secure: cfg.CookieSecure}
	router := transport.SetupRouter(authService, refreshService, sessionCodec, cookie, l)

	server := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: router,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			l.Error("server shutdown failed", "error", err)
		}
	}()

	l.Info("starting warden", "addr", cfg.ListenAddr)
	if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return nil
}

// buildInfra wires the refresh locker and event publisher. With Redis both
// work across instances; without it they degrade to process-local.
func buildInfra(cfg *config.Config, l logger.Logger) (ports.RefreshLocker, ports.EventPublisher, error) {
	wmLogger := watermill.NewStdLogger(false, false)

	if cfg.RedisURL == "" {
		l.Warn("no redis configured, refresh locking and events are process-local")

		pubsub := gochannel.NewGoChannel(gochannel.Config{}, wmLogger)
		return lock.NewMemoryLocker(), events.NewWatermillPublisher(pubsub), nil
	}

	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}
	redisClient := redis.NewClient(opts)

	var publisher message.Publisher
	publisher, err = redisstream.NewPublisher(redisstream.PublisherConfig{
		Client: redisClient,
	}, wmLogger)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create redis publisher: %w", err)
	}

	return lock.NewRedisLocker(redisClient), events.NewWatermillPublisher(publisher), nil
}
