package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/gin-gonic/gin"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/streamrelay/streamrelay/internal/api"
	"github.com/streamrelay/streamrelay/internal/cache"
	"github.com/streamrelay/streamrelay/internal/client"
	"github.com/streamrelay/streamrelay/internal/config"
	grpcserver "github.com/streamrelay/streamrelay/internal/grpc"
	"github.com/streamrelay/streamrelay/internal/metrics"
	"github.com/streamrelay/streamrelay/internal/models"
	"github.com/streamrelay/streamrelay/internal/proxy"
	"github.com/streamrelay/streamrelay/internal/services"
	"github.com/streamrelay/streamrelay/internal/telemetry"
	"github.com/streamrelay/streamrelay/internal/transport"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const serviceName = "streamrelay"

func main() {
	var configPath string

	rootCmd := &cobra.Command{
		Use:          serviceName,
		Short:        "Resolve titles to stream URLs and relay media with range support",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), configPath)
		},
	}
	rootCmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to a config file (default: ./config.yaml or ./config/config.yaml)")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(ctx context.Context, configPath string) error {
	if configPath != "" {
		if _, err := config.Reload(configPath); err != nil {
			return err
		}
	}

	cfg := config.GetConfig()
	logger := config.GetLogger()

	logger.Info().
		Str("proxy_connection_string", models.ProxyConfig{URL: cfg.ProxyConnectionString}.Redacted()).
		Strs("mirrors", cfg.Mirrors).
		Int("server_port", cfg.Server.Port).
		Str("server_address", cfg.Server.Address).
		Str("cache_provider", cfg.Cache.Provider).
		Msg("Application started with configuration")

	if cfg.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:              cfg.SentryDSN,
			AttachStacktrace: true,
		}); err != nil {
			logger.Error().Err(err).Msg("Failed to initialize Sentry")
		} else {
			defer sentry.Flush(2 * time.Second)
		}
	}

	shutdownTracing, err := telemetry.Init(ctx, serviceName)
	if err != nil {
		logger.Warn().Err(err).Msg("Failed to initialize tracing")
	} else {
		defer func() {
			if err := shutdownTracing(context.Background()); err != nil {
				logger.Error().Err(err).Msg("Failed to shutdown tracing")
			}
		}()
	}

	transports := transport.NewFactory(transport.OptionsFromConfig(cfg))
	defer transports.CloseIdleConnections()
	proxies := transport.NewProxyProvider(models.ProxyConfig{})
	rotateProxy(ctx, cfg, transports, proxies)

	upstream := client.NewClient(transports, client.OptionsFromConfig(cfg))

	var bodies cache.Cache
	if c, err := cache.FromConfig(cfg, "subtitles"); err != nil {
		logger.Warn().Err(err).Msg("Subtitle cache disabled")
	} else {
		bodies = c
		defer bodies.Close()
	}

	subtitles := services.NewSubtitleFetcher(upstream, afero.NewOsFs(), cfg.Subtitles.Dir, bodies)
	media := services.NewMediaService(
		services.NewMirrorResolver(upstream, cfg.Mirrors, config.Duration(cfg.MirrorTimeout, 10*time.Second)),
		upstream,
		services.NewStreamResolver(subtitles, cfg.SubtitleLanguage),
		services.MediaOptionsFromConfig(cfg),
	)

	if !strings.EqualFold(cfg.LogLevel, "debug") {
		gin.SetMode(gin.ReleaseMode)
	}
	router := api.NewRouter(api.Dependencies{
		Media:     media,
		Proxy:     proxy.NewRangeProxy(transports, proxy.OptionsFromConfig(cfg)),
		Subtitles: subtitles,
		Proxies:   proxies,
	})

	address := fmt.Sprintf("%s:%d", cfg.Server.Address, cfg.Server.Port)
	httpServer := &http.Server{
		Addr: address,
		Handler: otelhttp.NewHandler(router, serviceName, otelhttp.WithFilter(func(r *http.Request) bool {
			return r.URL.Path != "/healthz"
		})),
		// No write timeout: proxied streams may legitimately run for hours
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	// Start Prometheus metrics HTTP server
	if cfg.Metrics.Enabled {
		metricsServer := metrics.NewHTTPServer(cfg.Server.Address, cfg.Metrics.Port)
		go func() {
			logger.Info().Str("address", metricsServer.Addr).Msg("Starting Prometheus metrics HTTP server")
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Fatal().Err(err).Msg("Failed to serve metrics")
			}
		}()
		defer func() {
			if err := metricsServer.Shutdown(context.Background()); err != nil {
				logger.Error().Err(err).Msg("Failed to shutdown metrics server")
			}
		}()
	}

	var healthServer *grpcserver.Server
	if cfg.GRPC.Port != 0 {
		grpcAddress := fmt.Sprintf("%s:%d", cfg.Server.Address, cfg.GRPC.Port)
		listener, err := net.Listen("tcp", grpcAddress)
		if err != nil {
			return fmt.Errorf("failed to create gRPC listener on %s: %w", grpcAddress, err)
		}
		healthServer = grpcserver.NewGRPCServer()
		go func() {
			logger.Info().Str("address", grpcAddress).Msg("Starting gRPC health server")
			if err := healthServer.Serve(listener); err != nil {
				logger.Error().Err(err).Msg("gRPC health server stopped")
			}
		}()
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info().Str("address", address).Msg("Starting HTTP server")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM, syscall.SIGHUP)
	defer signal.Stop(sigChan)

	for {
		select {
		case err, ok := <-serveErr:
			if ok && err != nil {
				return fmt.Errorf("failed to serve HTTP: %w", err)
			}
			return nil
		case sig := <-sigChan:
			if sig == syscall.SIGHUP {
				reload(ctx, configPath, transports, proxies)
				continue
			}
			logger.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
			return shutdown(httpServer, healthServer)
		}
	}
}

// rotateProxy applies the configured proxy, or one discovered from the proxy
// list when none is configured.
func rotateProxy(ctx context.Context, cfg *config.Config, transports *transport.Factory, proxies *transport.ProxyProvider) {
	logger := config.GetLogger()
	static := models.ProxyConfig{URL: cfg.ProxyConnectionString}

	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	current, err := proxies.Rotate(ctx, transports.Client(models.ProxyConfig{}), static, cfg.ProxyListURL)
	if err != nil {
		logger.Warn().Err(err).Str("list", cfg.ProxyListURL).Str("proxy", current.Redacted()).Msg("Proxy discovery failed, keeping the current proxy")
		return
	}
	logger.Info().Str("proxy", current.Redacted()).Msg("Outbound proxy updated")
}

// reload re-reads the config file and swaps the outbound proxy, discovering a
// new one when only a proxy list is configured. Other settings take effect on
// restart.
func reload(ctx context.Context, configPath string, transports *transport.Factory, proxies *transport.ProxyProvider) {
	logger := config.GetLogger()

	var (
		cfg *config.Config
		err error
	)
	if configPath != "" {
		cfg, err = config.Reload(configPath)
	} else {
		cfg, err = config.LoadConfig()
	}
	if err != nil {
		logger.Error().Err(err).Msg("Failed to reload configuration, keeping the current one")
		return
	}

	rotateProxy(ctx, cfg, transports, proxies)
}

func shutdown(httpServer *http.Server, healthServer *grpcserver.Server) error {
	logger := config.GetLogger()

	if healthServer != nil {
		healthServer.GracefulStop()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Warn().Err(err).Msg("Forcing HTTP server close")
		return httpServer.Close()
	}

	logger.Info().Msg("Server stopped gracefully")
	return nil
}
