package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/streamhive/watchparty/internal/relay/app"
)

type configVar[T any] struct {
	envKey       string
	flagKey      string
	defaultValue T
	usage        string
}

var (
	port = configVar[int]{
		envKey:       "RELAY_PORT",
		flagKey:      "port",
		defaultValue: 8080,
		usage:        "Relay port",
	}
	host = configVar[string]{
		envKey:       "RELAY_HOST",
		flagKey:      "host",
		defaultValue: "0.0.0.0",
		usage:        "Relay host",
	}
	logLevel = configVar[string]{
		envKey:       "RELAY_LOG_LEVEL",
		flagKey:      "log-level",
		defaultValue: "INFO",
		usage:        "Logging level",
	}
	snapshotTTL = configVar[time.Duration]{
		envKey:       "RELAY_SNAPSHOT_TTL",
		flagKey:      "snapshot-ttl",
		defaultValue: 24 * time.Hour,
		usage:        "How long an idle room keeps its playback snapshot",
	}
	redisPort = configVar[int]{
		envKey:       "REDIS_PORT",
		flagKey:      "redis-port",
		defaultValue: 6379,
		usage:        "Redis port",
	}
	redisHost = configVar[string]{
		envKey:       "REDIS_HOST",
		flagKey:      "redis-host",
		defaultValue: "localhost",
		usage:        "Redis host",
	}
	redisPassword = configVar[string]{
		envKey:       "REDIS_PASSWORD",
		flagKey:      "redis-password",
		defaultValue: "",
		usage:        "Redis password",
	}
)

func bind[T any](v configVar[T]) {
	viper.BindEnv(v.flagKey, v.envKey)
	viper.SetDefault(v.flagKey, v.defaultValue)
}

func loadAppConfig() (*app.AppConfig, error) {
	pflag.Int(port.flagKey, port.defaultValue, port.usage)
	pflag.String(host.flagKey, host.defaultValue, host.usage)
	pflag.String(logLevel.flagKey, logLevel.defaultValue, logLevel.usage)
	pflag.Duration(snapshotTTL.flagKey, snapshotTTL.defaultValue, snapshotTTL.usage)
	pflag.Int(redisPort.flagKey, redisPort.defaultValue, redisPort.usage)
	pflag.String(redisHost.flagKey, redisHost.defaultValue, redisHost.usage)
	pflag.String(redisPassword.flagKey, redisPassword.defaultValue, redisPassword.usage)
	pflag.Parse()

	viper.BindPFlags(pflag.CommandLine)

	bind(port)
	bind(host)
	bind(logLevel)
	bind(snapshotTTL)
	bind(redisPort)
	bind(redisHost)
	bind(redisPassword)

	var config app.AppConfig
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	return &config, nil
}

func main() {
	ctx := context.Background()

	appConfig, err := loadAppConfig()
	if err != nil {
		log.Fatal(err)
	}

	jsonConfig, _ := json.MarshalIndent(appConfig, "", "  ")
	fmt.Printf("starting relay with config: %s\n", jsonConfig)

	log.Fatal(app.Run(ctx, appConfig))
}
