package core

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"linkbridge/pkg/fuzzy"
	"linkbridge/pkg/musiclink"
)

// Default configuration values.
const (
	DefaultServerHost        = "0.0.0.0"
	DefaultServerPort        = 8080
	DefaultServerTimeout     = 15 * time.Second
	DefaultProviderTimeout   = musiclink.DefaultHTTPTimeout
	DefaultMetadataCacheSize = 1024
	DefaultMetadataCacheTTL  = time.Hour
	DefaultLogLevel          = "info"
)

type Config struct {
	Server   ServerConfig
	Log      LogConfig
	Resolver ResolverConfig
	Spotify  SpotifyConfig
	Apple    AppleMusicConfig
	YouTube  YouTubeConfig
	Yandex   YandexConfig
	VK       VKConfig
}

type ServerConfig struct {
	Host         string        `validate:"required"`
	Port         int           `validate:"min=1,max=65535"`
	ReadTimeout  time.Duration `validate:"gt=0"`
	WriteTimeout time.Duration `validate:"gt=0"`
}

type LogConfig struct {
	Level string `validate:"oneof=debug info warn error"`
}

type ResolverConfig struct {
	ProviderTimeout   time.Duration `validate:"gt=0"`
	MatchThreshold    float64       `validate:"gte=0,lt=1"`
	MetadataCacheSize int           `validate:"gte=0"`
	MetadataCacheTTL  time.Duration `validate:"gte=0"`
}

type SpotifyConfig struct {
	ClientID     string `validate:"required_with=ClientSecret"`
	ClientSecret string `validate:"required_with=ClientID"`
}

type AppleMusicConfig struct {
	TeamID         string `validate:"required_with=KeyID"`
	KeyID          string `validate:"required_with=TeamID"`
	PrivateKey     string // PEM text; literal "\n" sequences are accepted.
	PrivateKeyPath string `validate:"omitempty,file"`
	Storefront     string `validate:"omitempty,len=2,lowercase"`
}

type YouTubeConfig struct {
	APIKey string
}

type YandexConfig struct {
	ProxyURL string `validate:"omitempty,url"`
}

type VKConfig struct {
	AccessToken string
	APIVersion  string
}

func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:         DefaultServerHost,
			Port:         DefaultServerPort,
			ReadTimeout:  DefaultServerTimeout,
			WriteTimeout: DefaultServerTimeout,
		},
		Log: LogConfig{
			Level: DefaultLogLevel,
		},
		Resolver: ResolverConfig{
			ProviderTimeout:   DefaultProviderTimeout,
			MatchThreshold:    fuzzy.DefaultThreshold,
			MetadataCacheSize: DefaultMetadataCacheSize,
			MetadataCacheTTL:  DefaultMetadataCacheTTL,
		},
		Apple: AppleMusicConfig{
			Storefront: musiclink.DefaultAppleStorefront,
		},
		VK: VKConfig{
			APIVersion: musiclink.DefaultVKAPIVersion,
		},
	}
}

// Validate checks field constraints and cross-field requirements.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}
	if c.Apple.Enabled() && c.Apple.PrivateKey == "" && c.Apple.PrivateKeyPath == "" {
		return fmt.Errorf("config validation failed: apple music needs a private key or a private key path")
	}
	return nil
}

// Enabled reports whether client credentials are configured.
func (c *SpotifyConfig) Enabled() bool {
	return c.ClientID != "" && c.ClientSecret != ""
}

// Enabled reports whether a signing identity is configured.
func (c *AppleMusicConfig) Enabled() bool {
	return c.TeamID != "" && c.KeyID != ""
}

// LoadPrivateKey returns the PEM signing key, reading PrivateKeyPath when set.
func (c *AppleMusicConfig) LoadPrivateKey() ([]byte, error) {
	if c.PrivateKeyPath != "" {
		key, err := os.ReadFile(c.PrivateKeyPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read apple private key: %w", err)
		}
		return key, nil
	}
	// Env files commonly carry the PEM on one line with escaped newlines.
	return []byte(strings.ReplaceAll(c.PrivateKey, `\n`, "\n")), nil
}
