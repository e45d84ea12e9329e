// Package main provides the linkbridge CLI application entry point.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/subosito/gotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"

	"linkbridge/internal/core"
	httpserver "linkbridge/internal/http"
	"linkbridge/internal/store"
	"linkbridge/pkg/fuzzy"
	"linkbridge/pkg/musiclink"
)

const envPrefix = "LINKBRIDGE"

var (
	cfgFile string
	config  *core.Config
	logger  *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "linkbridge",
	Short: "linkbridge - translate track links between streaming platforms",
	Long: `linkbridge takes a track link from one music platform (Spotify, Apple Music,
YouTube, Yandex Music, VK) and returns the link to the same track on another one.`,
	RunE: runLinkbridge,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default is .env)")
	flags.String("log-level", core.DefaultLogLevel, "log level (debug, info, warn, error)")
	flags.String("server-host", core.DefaultServerHost, "HTTP server host")
	flags.Int("server-port", core.DefaultServerPort, "HTTP server port")
	flags.Duration("server-read-timeout", core.DefaultServerTimeout, "HTTP server read timeout")
	flags.Duration("server-write-timeout", core.DefaultServerTimeout, "HTTP server write timeout")
	flags.Duration("provider-timeout", core.DefaultProviderTimeout, "Deadline for every upstream provider call")
	flags.Float64("match-threshold", fuzzy.DefaultThreshold, "Similarity a search hit must exceed (0-1); 0 rejects only candidates with no artist similarity")
	flags.Int("metadata-cache-size", core.DefaultMetadataCacheSize, "Source metadata cache entries (0 disables)")
	flags.Duration("metadata-cache-ttl", core.DefaultMetadataCacheTTL, "Source metadata cache entry lifetime")
	flags.String("spotify-client-id", "", "Spotify client ID")
	flags.String("spotify-client-secret", "", "Spotify client secret")
	flags.String("apple-team-id", "", "Apple developer team ID")
	flags.String("apple-key-id", "", "Apple MusicKit key ID")
	flags.String("apple-private-key", "", "Apple MusicKit private key (PEM text)")
	flags.String("apple-private-key-path", "", "Path to the Apple MusicKit .p8 key")
	flags.String("apple-storefront", musiclink.DefaultAppleStorefront, "Apple Music storefront used for searches")
	flags.String("youtube-api-key", "", "YouTube Data API key")
	flags.String("yandex-proxy-url", "", "Base URL of the Yandex Music proxy")
	flags.String("vk-access-token", "", "VK API access token")
	flags.String("vk-api-version", musiclink.DefaultVKAPIVersion, "VK API version")
	flags.Bool("generate-env-example", false, "Generate .env.example file from current configuration and exit")

	if err := viper.BindPFlags(flags); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to bind flags: %v\n", err)
		os.Exit(1)
	}
}

func initConfig() {
	envFile := ".env"
	if cfgFile != "" {
		envFile = cfgFile
	}

	if err := gotenv.Load(envFile); err != nil {
		if !os.IsNotExist(err) {
			fmt.Fprintf(os.Stderr, "Error loading .env file: %v\n", err)
		}
	}

	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	config = buildConfig()
	logger = buildLogger(config.Log.Level)
}

func buildConfig() *core.Config {
	cfg := core.DefaultConfig()

	configureServer(cfg)
	configureResolver(cfg)
	configureProviders(cfg)

	return cfg
}

func configureServer(cfg *core.Config) {
	cfg.Server.Host = viper.GetString("server-host")
	if cfg.Server.Host == "" {
		cfg.Server.Host = core.DefaultServerHost
	}
	cfg.Server.Port = viper.GetInt("server-port")
	cfg.Server.ReadTimeout = viper.GetDuration("server-read-timeout")
	cfg.Server.WriteTimeout = viper.GetDuration("server-write-timeout")
	cfg.Log.Level = strings.ToLower(viper.GetString("log-level"))
}

func configureResolver(cfg *core.Config) {
	cfg.Resolver.ProviderTimeout = viper.GetDuration("provider-timeout")
	cfg.Resolver.MatchThreshold = viper.GetFloat64("match-threshold")
	cfg.Resolver.MetadataCacheSize = viper.GetInt("metadata-cache-size")
	cfg.Resolver.MetadataCacheTTL = viper.GetDuration("metadata-cache-ttl")
}

func configureProviders(cfg *core.Config) {
	cfg.Spotify.ClientID = viper.GetString("spotify-client-id")
	cfg.Spotify.ClientSecret = viper.GetString("spotify-client-secret")

	cfg.Apple.TeamID = viper.GetString("apple-team-id")
	cfg.Apple.KeyID = viper.GetString("apple-key-id")
	cfg.Apple.PrivateKey = viper.GetString("apple-private-key")
	cfg.Apple.PrivateKeyPath = viper.GetString("apple-private-key-path")
	if storefront := viper.GetString("apple-storefront"); storefront != "" {
		cfg.Apple.Storefront = strings.ToLower(storefront)
	}

	cfg.YouTube.APIKey = viper.GetString("youtube-api-key")
	cfg.Yandex.ProxyURL = strings.TrimRight(viper.GetString("yandex-proxy-url"), "/")

	cfg.VK.AccessToken = viper.GetString("vk-access-token")
	if version := viper.GetString("vk-api-version"); version != "" {
		cfg.VK.APIVersion = version
	}
}

func buildLogger(level string) *zap.Logger {
	var zapLevel zapcore.Level
	switch strings.ToLower(level) {
	case "debug":
		zapLevel = zapcore.DebugLevel
	case "info":
		zapLevel = zapcore.InfoLevel
	case "warn":
		zapLevel = zapcore.WarnLevel
	case "error":
		zapLevel = zapcore.ErrorLevel
	default:
		zapLevel = zapcore.InfoLevel
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(zapLevel)

	builtLogger, err := cfg.Build()
	if err != nil {
		panic(fmt.Sprintf("Failed to build logger: %v", err))
	}

	return builtLogger
}

func runLinkbridge(cmd *cobra.Command, _ []string) error {
	if viper.GetBool("generate-env-example") {
		return generateEnvExample(cmd)
	}
	defer func() { _ = logger.Sync() }()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := config.Validate(); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}

	logger.Info("Starting linkbridge",
		zap.Bool("spotify_enabled", config.Spotify.Enabled()),
		zap.Bool("apple_enabled", config.Apple.Enabled()),
		zap.Bool("youtube_enabled", config.YouTube.APIKey != ""),
		zap.Bool("yandex_enabled", config.Yandex.ProxyURL != ""),
		zap.Bool("vk_enabled", config.VK.AccessToken != ""),
		zap.Float64("match_threshold", config.Resolver.MatchThreshold))

	httpServer, cache, err := initializeServices()
	if err != nil {
		return err
	}

	return runServices(ctx, httpServer, cache)
}

func initializeServices() (*httpserver.Server, *store.MetadataCache, error) {
	metrics := httpserver.NewMetrics()

	registry, err := core.BuildRegistry(config, logger.Named("providers"), metrics.ObserveTokenRefresh)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to build providers: %w", err)
	}

	cache := store.NewMetadataCache(config.Resolver.MetadataCacheSize, config.Resolver.MetadataCacheTTL)
	metrics.RegisterMetadataCache(cache)

	resolver := core.NewResolver(registry, cache, config.Resolver.ProviderTimeout, logger.Named("resolver"))
	return httpserver.NewServer(&config.Server, resolver, metrics, logger.Named("http")), cache, nil
}

func runServices(ctx context.Context, httpServer *httpserver.Server, cache *store.MetadataCache) error {
	g, gCtx := errgroup.WithContext(ctx)

	hangup := make(chan os.Signal, 1)
	signal.Notify(hangup, syscall.SIGHUP)
	defer signal.Stop(hangup)

	g.Go(func() error {
		return httpServer.Start(gCtx)
	})

	g.Go(func() error {
		purgeOnSignal(gCtx, cache, hangup, logger.Named("cache"))
		return nil
	})

	logger.Info("linkbridge started successfully",
		zap.String("http_addr", fmt.Sprintf("%s:%d", config.Server.Host, config.Server.Port)))

	if err := g.Wait(); err != nil {
		logger.Error("linkbridge stopped with error", zap.Error(err))
		return err
	}

	logger.Info("linkbridge stopped gracefully")
	return nil
}

type purger interface {
	Purge()
}

// purgeOnSignal drops every cached source lookup each time a signal arrives,
// until ctx is done. SIGHUP is wired to it so operators can flush stale metadata
// without a restart.
func purgeOnSignal(ctx context.Context, cache purger, signals <-chan os.Signal, log *zap.Logger) {
	for {
		select {
		case <-ctx.Done():
			return
		case sig := <-signals:
			cache.Purge()
			log.Info("Metadata cache purged", zap.Stringer("signal", sig))
		}
	}
}
