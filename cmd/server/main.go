/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the stock engine server, and seeds the article
  catalog. Handles configuration, dependency injection, and graceful shutdown.

COMMANDS:
  stock-engine [serve]   Run the HTTP API (default)
  stock-engine seed      Replace the catalog with the default or a JSON file

STARTUP SEQUENCE (serve):
  1. Read config (flags > env STOCK_* > config file > defaults)
  2. Build the zap logger
  3. Initialize SQLite store
  4. Create API handler and router
  5. Start the backup scheduler when enabled
  6. Start server with graceful shutdown

FLAGS:
  --config           Optional config file (yaml, json, toml)
  --http-address     HTTP listen address (default: :8080)
  --database-path    SQLite database path (default: stock.db)
                     Use ":memory:" for an in-memory database
  --log-level        debug, info, warn, error (default: info)
  --backup-enabled   Export the stock report periodically
  --backup-dir       Backup directory (default: backups)
  --backup-interval  Backup interval (default: 24h)

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Stop the backup scheduler
  4. Close database connection

EXAMPLES:
  # Seed the default bar catalog, then serve
  ./stock-engine seed --database-path=./data/stock.db
  ./stock-engine serve --database-path=./data/stock.db

  # Seed from a file, replacing an existing catalog
  ./stock-engine seed --catalog=artikli.json --force

SEE ALSO:
  - api/server.go: Router configuration
  - config/config.go: Configuration keys and defaults
  - factory/catalog.go: Catalog seed format
*/
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

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/warp/stock-engine/api"
	"github.com/warp/stock-engine/config"
	"github.com/warp/stock-engine/factory"
	"github.com/warp/stock-engine/logging"
	"github.com/warp/stock-engine/stock"
	"github.com/warp/stock-engine/store/sqlite"
)

var (
	cfgFile     string
	catalogFile string
	forceSeed   bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "stock-engine",
		Short: "Daily stock reconciliation and reporting service",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initConfig()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context())
		},
		SilenceUsage: true,
	}

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context())
		},
	}

	seedCmd := &cobra.Command{
		Use:   "seed",
		Short: "Replace the article catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSeed(cmd.Context())
		},
	}
	seedCmd.Flags().StringVar(&catalogFile, "catalog", "", "Catalog JSON file (default: built-in bar catalog)")
	seedCmd.Flags().BoolVar(&forceSeed, "force", false, "Replace a non-empty catalog")

	setupFlags(rootCmd)
	rootCmd.AddCommand(serveCmd, seedCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func setupFlags(cmd *cobra.Command) {
	config.ApplyDefaults(viper.GetViper())
	defaults := config.NewViper()
	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Path to configuration file")
	cmd.PersistentFlags().String("http-address", defaults.GetString("http.address"), "HTTP listen address")
	cmd.PersistentFlags().String("database-path", defaults.GetString("database.path"), "SQLite database path")
	cmd.PersistentFlags().String("log-level", defaults.GetString("log.level"), "Log level (debug, info, warn, error)")
	cmd.PersistentFlags().StringSlice("cors-allowed-origins", defaults.GetStringSlice("cors.allowed_origins"), "Allowed CORS origins")
	cmd.PersistentFlags().Bool("backup-enabled", defaults.GetBool("backup.enabled"), "Export the stock report periodically")
	cmd.PersistentFlags().String("backup-dir", defaults.GetString("backup.dir"), "Backup directory")
	cmd.PersistentFlags().Duration("backup-interval", defaults.GetDuration("backup.interval"), "Backup interval")

	bindFlag(cmd, "http.address", "http-address")
	bindFlag(cmd, "database.path", "database-path")
	bindFlag(cmd, "log.level", "log-level")
	bindFlag(cmd, "cors.allowed_origins", "cors-allowed-origins")
	bindFlag(cmd, "backup.enabled", "backup-enabled")
	bindFlag(cmd, "backup.dir", "backup-dir")
	bindFlag(cmd, "backup.interval", "backup-interval")
}

func bindFlag(cmd *cobra.Command, key, flag string) {
	if err := viper.BindPFlag(key, cmd.PersistentFlags().Lookup(flag)); err != nil {
		panic(err)
	}
}

func initConfig() error {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	}

	if err := viper.ReadInConfig(); err != nil {
		var configNotFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &configNotFound) {
			return fmt.Errorf("read config: %w", err)
		}
	}

	return nil
}

// openStore loads config, builds the logger and opens the database.
func openStore() (config.AppConfig, *zap.Logger, *sqlite.Store, error) {
	appConfig, err := config.Load(viper.GetViper())
	if err != nil {
		return config.AppConfig{}, nil, nil, err
	}

	logger, err := logging.NewLogger(appConfig.LogLevel)
	if err != nil {
		return config.AppConfig{}, nil, nil, err
	}

	store, err := sqlite.New(appConfig.DatabasePath)
	if err != nil {
		logger.Sync() //nolint:errcheck
		return config.AppConfig{}, nil, nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	return appConfig, logger, store, nil
}

func runServer(ctx context.Context) error {
	appConfig, logger, store, err := openStore()
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck
	defer store.Close()

	handler := api.NewHandler(store, logger)

	if appConfig.Backup.Enabled {
		scheduler := api.NewBackupScheduler(handler.Ledger, appConfig.Backup.Dir, logger.Named("backup"))
		scheduler.Interval = appConfig.Backup.Interval
		handler.Backups = scheduler
		scheduler.Start()
		defer scheduler.Stop()
	}

	httpServer := &http.Server{
		Addr:         appConfig.HTTPAddress,
		Handler:      api.NewRouter(handler, logger.Named("http"), appConfig.CORSAllowedOrigins),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	signalCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting",
			zap.String("address", appConfig.HTTPAddress),
			zap.String("database", appConfig.DatabasePath),
		)
		err := httpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-signalCtx.Done():
		logger.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

func runSeed(ctx context.Context) error {
	_, logger, store, err := openStore()
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck
	defer store.Close()

	f := factory.NewCatalogFactory()
	defs := f.DefaultCatalog()
	if catalogFile != "" {
		data, err := os.ReadFile(catalogFile)
		if err != nil {
			return fmt.Errorf("read catalog: %w", err)
		}
		if defs, err = f.ParseCatalog(data); err != nil {
			return err
		}
	}

	catalog := stock.NewCatalog(store, logger.Named("catalog"))
	existing, err := catalog.List(ctx)
	if err != nil {
		return err
	}
	if len(existing) > 0 && !forceSeed {
		return fmt.Errorf("catalog already has %d articles; use --force to replace it", len(existing))
	}

	articles, err := catalog.Seed(ctx, defs)
	if err != nil {
		return err
	}
	logger.Info("catalog seeded", zap.Int("articles", len(articles)), zap.String("source", sourceName()))
	return nil
}

func sourceName() string {
	if catalogFile == "" {
		return "default"
	}
	return catalogFile
}
