package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/tfprivate/tfregistry/internal/api"
	"github.com/tfprivate/tfregistry/internal/auth"
	"github.com/tfprivate/tfregistry/internal/config"
	"github.com/tfprivate/tfregistry/internal/service"
	"github.com/tfprivate/tfregistry/internal/storage"
	"github.com/tfprivate/tfregistry/internal/telemetry"
	"github.com/tfprivate/tfregistry/pkg/logger"
	"github.com/tfprivate/tfregistry/pkg/versions"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the module registry API server",
	Long: `Start the module registry API server.

The server requires a configuration file (--config) that specifies:
- The backing object store (bucket, region, optional endpoint, credentials)
- The API key protecting write operations
- Listener address and telemetry settings

See examples/ directory for sample configurations.`,
	RunE: runServe,
}

const (
	defaultGracefulTimeout = 30 * time.Second
	// Uploads can be tens of megabytes, so request and read timeouts are
	// sized for archive transfers rather than quick metadata reads.
	serverRequestTimeout = 60 * time.Second
	serverReadTimeout    = 60 * time.Second
	serverWriteTimeout   = 75 * time.Second // must exceed serverRequestTimeout so the middleware answers first
	serverIdleTimeout    = 60 * time.Second

	connectivityProbeTimeout = 10 * time.Second
)

func init() {
	serveCmd.Flags().String("address", "", "Address to listen on (overrides the config file)")
	serveCmd.Flags().String("config", "", "Path to configuration file (YAML format, required)")

	if err := viper.BindPFlag("address", serveCmd.Flags().Lookup("address")); err != nil {
		logger.Fatalf("Failed to bind address flag: %v", err)
	}
	if err := viper.BindPFlag("config", serveCmd.Flags().Lookup("config")); err != nil {
		logger.Fatalf("Failed to bind config flag: %v", err)
	}

	if err := serveCmd.MarkFlagRequired("config"); err != nil {
		logger.Fatalf("Failed to mark config flag as required: %v", err)
	}
}

func runServe(_ *cobra.Command, _ []string) error {
	ctx := context.Background()

	configPath := viper.GetString("config")
	cfg, err := config.LoadConfig(config.WithConfigPath(configPath))
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logger.Initialize(cfg.Server.Debug || viper.GetBool("debug"))

	address := viper.GetString("address")
	if address == "" {
		address = cfg.GetAddress()
	}

	logger.Infof("Starting registry API server on %s (bucket: %s)", address, cfg.Storage.Bucket)

	apiKey, err := cfg.GetAPIKey()
	if err != nil {
		return err
	}
	secretKey, err := cfg.GetSecretKey()
	if err != nil {
		return err
	}

	store, err := storage.NewS3Store(ctx, storage.S3Config{
		Bucket:    cfg.Storage.Bucket,
		Region:    cfg.Storage.Region,
		Endpoint:  cfg.Storage.Endpoint,
		AccessKey: cfg.Storage.AccessKey,
		SecretKey: secretKey,
	})
	if err != nil {
		return fmt.Errorf("failed to create object store client: %w", err)
	}

	// Fail fast before accepting traffic if the store is unreachable.
	probeCtx, probeCancel := context.WithTimeout(ctx, connectivityProbeTimeout)
	defer probeCancel()
	if err := store.CheckConnectivity(probeCtx); err != nil {
		return fmt.Errorf("object store connectivity check failed: %w", err)
	}
	logger.Infof("Object store connectivity verified (bucket: %s)", cfg.Storage.Bucket)

	svc := service.New(store, nil)

	meterProvider, metricsHandler, err := telemetry.NewMeterProvider(ctx,
		telemetry.WithEnabled(cfg.Telemetry.MetricsEnabled),
		telemetry.WithServiceName(telemetry.DefaultServiceName),
		telemetry.WithServiceVersion(versions.GetVersionInfo().Version),
	)
	if err != nil {
		return fmt.Errorf("failed to set up telemetry: %w", err)
	}
	metricsMW, err := telemetry.MetricsMiddleware(meterProvider)
	if err != nil {
		return fmt.Errorf("failed to create metrics middleware: %w", err)
	}

	router := api.NewServer(svc,
		api.WithMiddlewares(
			middleware.RequestID,
			middleware.RealIP,
			middleware.Recoverer,
			middleware.Timeout(serverRequestTimeout),
			metricsMW,
			api.LoggingMiddleware,
		),
		api.WithAuthMiddleware(auth.RequireAPIKey(apiKey)),
	)
	if metricsHandler != nil {
		router.Handle("/metrics", metricsHandler)
	}

	server := &http.Server{
		Addr:         address,
		Handler:      router,
		ReadTimeout:  serverReadTimeout,
		WriteTimeout: serverWriteTimeout,
		IdleTimeout:  serverIdleTimeout,
	}

	go func() {
		logger.Infof("Server listening on %s", address)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), defaultGracefulTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("Server forced to shutdown: %v", err)
		return err
	}

	logger.Info("Server shutdown complete")
	return nil
}
