package main

import (
	"context"
	"os"
	"strings"
	"syscall"
	"testing"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/zap"

	"linkbridge/internal/store"
	"linkbridge/pkg/musiclink"
)

func TestFlagToEnvVar(t *testing.T) {
	tests := []struct {
		flag string
		want string
	}{
		{"log-level", "LINKBRIDGE_LOG_LEVEL"},
		{"apple-private-key-path", "LINKBRIDGE_APPLE_PRIVATE_KEY_PATH"},
		{"vk-access-token", "LINKBRIDGE_VK_ACCESS_TOKEN"},
	}

	for _, tt := range tests {
		if got := flagToEnvVar(tt.flag); got != tt.want {
			t.Errorf("flagToEnvVar(%q) = %q, want %q", tt.flag, got, tt.want)
		}
	}
}

func TestGenerateEnvExampleContent(t *testing.T) {
	content := generateEnvExampleContent(rootCmd)

	for _, section := range envSections {
		for _, entry := range section.entries {
			if rootCmd.PersistentFlags().Lookup(entry.flag) == nil {
				t.Errorf("env example documents unknown flag %q", entry.flag)
			}
			if !strings.Contains(content, flagToEnvVar(entry.flag)+"=") {
				t.Errorf("env example is missing %s", flagToEnvVar(entry.flag))
			}
		}
	}

	if !strings.Contains(content, "LINKBRIDGE_SERVER_PORT=8080") {
		t.Error("env example should carry the server port default")
	}
	if !strings.Contains(content, "0 rejects only candidates with no artist similarity") {
		t.Error("env example should describe the zero match threshold")
	}
}

func TestBuildConfig(t *testing.T) {
	t.Cleanup(viper.Reset)

	viper.Set("server-host", "")
	viper.Set("server-port", 9000)
	viper.Set("server-read-timeout", 3*time.Second)
	viper.Set("server-write-timeout", 4*time.Second)
	viper.Set("log-level", "DEBUG")
	viper.Set("provider-timeout", 2*time.Second)
	viper.Set("match-threshold", 0.8)
	viper.Set("metadata-cache-size", 0)
	viper.Set("apple-storefront", "GB")
	viper.Set("yandex-proxy-url", "http://yandex-proxy:3000/")
	viper.Set("vk-api-version", "")

	cfg := buildConfig()

	if cfg.Server.Host != "0.0.0.0" {
		t.Errorf("Server.Host = %q, want the default bind address", cfg.Server.Host)
	}
	if cfg.Server.Port != 9000 || cfg.Server.ReadTimeout != 3*time.Second || cfg.Server.WriteTimeout != 4*time.Second {
		t.Errorf("Server = %+v", cfg.Server)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("Log.Level = %q, want debug", cfg.Log.Level)
	}
	if cfg.Resolver.ProviderTimeout != 2*time.Second || cfg.Resolver.MatchThreshold != 0.8 || cfg.Resolver.MetadataCacheSize != 0 {
		t.Errorf("Resolver = %+v", cfg.Resolver)
	}
	if cfg.Apple.Storefront != "gb" {
		t.Errorf("Apple.Storefront = %q, want gb", cfg.Apple.Storefront)
	}
	if cfg.Yandex.ProxyURL != "http://yandex-proxy:3000" {
		t.Errorf("Yandex.ProxyURL = %q", cfg.Yandex.ProxyURL)
	}
	if cfg.VK.APIVersion == "" {
		t.Error("VK.APIVersion should keep its default when unset")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() unexpected error: %v", err)
	}
}

func TestBuildLogger(t *testing.T) {
	for _, level := range []string{"debug", "info", "warn", "error", "bogus"} {
		if logger := buildLogger(level); logger == nil {
			t.Errorf("buildLogger(%q) returned nil", level)
		}
	}
}

type signalledCache struct {
	*store.MetadataCache
	purged chan struct{}
}

func (c signalledCache) Purge() {
	c.MetadataCache.Purge()
	c.purged <- struct{}{}
}

func TestPurgeOnSignal(t *testing.T) {
	cache := signalledCache{
		MetadataCache: store.NewMetadataCache(10, time.Hour),
		purged:        make(chan struct{}),
	}
	cache.Add(musiclink.PlatformSpotify, "https://open.spotify.com/track/1",
		&musiclink.TrackReference{Artist: "Daft Punk", Title: "One More Time"})

	ctx, cancel := context.WithCancel(context.Background())
	signals := make(chan os.Signal)
	done := make(chan struct{})
	go func() {
		purgeOnSignal(ctx, cache, signals, zap.NewNop())
		close(done)
	}()

	for range 2 {
		signals <- syscall.SIGHUP
		select {
		case <-cache.purged:
		case <-time.After(time.Second):
			t.Fatal("cache was not purged after SIGHUP")
		}
		if cache.Len() != 0 {
			t.Errorf("Len() after purge = %d, want 0", cache.Len())
		}
		cache.Add(musiclink.PlatformSpotify, "https://open.spotify.com/track/2",
			&musiclink.TrackReference{Artist: "Daft Punk", Title: "Aerodynamic"})
	}

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("purgeOnSignal did not return after cancel")
	}
}
