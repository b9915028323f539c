package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/streamhive/watchparty/internal/api"
	"github.com/streamhive/watchparty/internal/app"
)

type configVar[T any] struct {
	envKey       string
	flagKey      string
	defaultValue T
	usage        string
}

var (
	backendURL = configVar[string]{
		envKey:       "STREAMHIVE_BACKEND_URL",
		flagKey:      "backend-url",
		defaultValue: api.DefaultBaseURL,
		usage:        "StreamHive backend url",
	}
	socketURL = configVar[string]{
		envKey:       "STREAMHIVE_SOCKET_URL",
		flagKey:      "socket-url",
		defaultValue: "",
		usage:        "Realtime socket url, derived from the backend url when empty",
	}
	shareBase = configVar[string]{
		envKey:       "STREAMHIVE_SHARE_BASE",
		flagKey:      "share-base",
		defaultValue: app.DefaultShareBase,
		usage:        "Base of shared stream links",
	}
	dataDir = configVar[string]{
		envKey:       "STREAMHIVE_DATA_DIR",
		flagKey:      "data-dir",
		defaultValue: defaultDataDir(),
		usage:        "Directory of the local session store",
	}
	logLevel = configVar[string]{
		envKey:       "STREAMHIVE_LOG_LEVEL",
		flagKey:      "log-level",
		defaultValue: "WARN",
		usage:        "Logging level",
	}
)

func defaultDataDir() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ".streamhive"
	}
	return filepath.Join(dir, "streamhive")
}

func bind[T any](v configVar[T]) {
	viper.BindEnv(v.flagKey, v.envKey)
	viper.SetDefault(v.flagKey, v.defaultValue)
}

func registerFlags(flags *pflag.FlagSet) {
	flags.String(backendURL.flagKey, backendURL.defaultValue, backendURL.usage)
	flags.String(socketURL.flagKey, socketURL.defaultValue, socketURL.usage)
	flags.String(shareBase.flagKey, shareBase.defaultValue, shareBase.usage)
	flags.String(dataDir.flagKey, dataDir.defaultValue, dataDir.usage)
	flags.String(logLevel.flagKey, logLevel.defaultValue, logLevel.usage)

	viper.BindPFlags(flags)

	bind(backendURL)
	bind(socketURL)
	bind(shareBase)
	bind(dataDir)
	bind(logLevel)
}

func loadConfig() (*app.Config, error) {
	var config app.Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	return &config, nil
}

// openApp builds the client from the resolved config. Logs go to stderr so
// stdout only carries what the user asked for.
func openApp() (*app.App, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	logger, err := app.NewLogger(os.Stderr, cfg.LogLevel)
	if err != nil {
		return nil, err
	}

	return app.New(cfg, logger, nil)
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "streamhive",
		Short:         "Watch StreamHive streams together from the terminal",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	registerFlags(root.PersistentFlags())

	root.AddCommand(
		newLoginCmd(),
		newRegisterCmd(),
		newLogoutCmd(),
		newCreateCmd(),
		newWatchCmd(),
		newStreamCmd(),
		newCatalogueCmd(),
	)

	return root
}

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Printf("failed to load .env: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		stop()
		os.Exit(1)
	}
}
