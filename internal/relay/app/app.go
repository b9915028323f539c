package app

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/streamhive/watchparty/internal/relay/controller"
	"github.com/streamhive/watchparty/internal/relay/repository/connection/inmemory"
	snapshotRedis "github.com/streamhive/watchparty/internal/relay/repository/snapshot/redis"
	"github.com/streamhive/watchparty/internal/relay/service"
	"github.com/streamhive/watchparty/pkg/ctxlogger"
	"github.com/streamhive/watchparty/pkg/redisclient"
	"github.com/streamhive/watchparty/pkg/validator"
)

type AppConfig struct {
	Host          string        `json:"host" mapstructure:"host" validate:"required"`
	Port          int           `json:"port" mapstructure:"port" validate:"gt=0,lte=65535"`
	LogLevel      string        `json:"log_level" mapstructure:"log-level" validate:"required,oneof=debug info warn error DEBUG INFO WARN ERROR"`
	SnapshotTTL   time.Duration `json:"snapshot_ttl" mapstructure:"snapshot-ttl" validate:"gt=0"`
	RedisPort     int           `json:"redis_port" mapstructure:"redis-port" validate:"gt=0,lte=65535"`
	RedisHost     string        `json:"redis_host" mapstructure:"redis-host" validate:"required"`
	RedisPassword string        `json:"-" mapstructure:"redis-password"`
}

func (cfg *AppConfig) Validate() error {
	return validator.NewValidator().Struct(cfg)
}

// NewLogger builds the JSON logger carrying context attributes.
func NewLogger(level string) (*slog.Logger, error) {
	logLevel := slog.LevelInfo
	if err := logLevel.UnmarshalText([]byte(strings.ToUpper(level))); err != nil {
		return nil, fmt.Errorf("failed to parse log level: %w", err)
	}

	h := ctxlogger.ContextHandler{
		Handler: slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level:     logLevel,
			AddSource: true,
		}),
	}

	return slog.New(&h), nil
}

// NewHandler wires repositories, service and controller on top of rc.
func NewHandler(rc *redis.Client, snapshotTTL time.Duration, clk clock.Clock, logger *slog.Logger) http.Handler {
	snapshotRepo := snapshotRedis.NewRepo(rc, snapshotTTL, logger)
	connectionRepo := inmemory.NewRepo(logger)
	relayService := service.NewService(snapshotRepo, connectionRepo, clk, logger)

	return controller.NewController(relayService, prometheus.NewRegistry(), logger).GetMux()
}

func Run(ctx context.Context, cfg *AppConfig) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	logger, err := NewLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	slog.SetDefault(logger)

	rc, err := redisclient.NewRedisClient(ctx, &redisclient.Config{
		Port:     cfg.RedisPort,
		Host:     cfg.RedisHost,
		Password: cfg.RedisPassword,
	})
	if err != nil {
		return fmt.Errorf("failed to create redis client: %w", err)
	}
	defer rc.Close()

	server := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:           NewHandler(rc, cfg.SnapshotTTL, clock.New(), logger),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// graceful shutdown
	serverCtx, serverStopCtx := context.WithCancel(ctx)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	go func() {
		<-sig

		shutdownCtx, c := context.WithTimeout(serverCtx, 30*time.Second)
		defer c()

		go func() {
			<-shutdownCtx.Done()
			if shutdownCtx.Err() == context.DeadlineExceeded {
				log.Fatal("graceful shutdown timed out.. forcing exit.")
			}
		}()

		err := server.Shutdown(shutdownCtx)
		if err != nil {
			log.Fatal(err)
		}
		serverStopCtx()
	}()

	logger.InfoContext(serverCtx, "starting relay", "address", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}

	<-serverCtx.Done()

	return nil
}
