package core

import (
	"fmt"

	"go.uber.org/zap"

	"linkbridge/pkg/fuzzy"
	"linkbridge/pkg/musiclink"
)

// BuildRegistry creates a provider for every platform whose credentials are
// configured. The title-scrape provider for plain YouTube videos needs none
// and is always present. observer, if set, sees every token refresh.
func BuildRegistry(cfg *Config, logger *zap.Logger, observer musiclink.RefreshObserver) (*musiclink.Registry, error) {
	verifier := fuzzy.NewVerifier(cfg.Resolver.MatchThreshold)
	timeout := cfg.Resolver.ProviderTimeout

	var providers []musiclink.Provider

	if cfg.Spotify.Enabled() {
		providers = append(providers, musiclink.NewSpotifyProvider(musiclink.SpotifyOptions{
			ClientID:     cfg.Spotify.ClientID,
			ClientSecret: cfg.Spotify.ClientSecret,
			Timeout:      timeout,
			Observer:     observer,
		}, verifier, logger.Named("spotify")))
	}

	if cfg.Apple.Enabled() {
		key, err := cfg.Apple.LoadPrivateKey()
		if err != nil {
			return nil, err
		}
		apple, err := musiclink.NewAppleMusicProvider(musiclink.AppleMusicOptions{
			TeamID:     cfg.Apple.TeamID,
			KeyID:      cfg.Apple.KeyID,
			PrivateKey: key,
			Storefront: cfg.Apple.Storefront,
			Timeout:    timeout,
			Observer:   observer,
		}, verifier, logger.Named("apple-music"))
		if err != nil {
			return nil, fmt.Errorf("failed to create Apple Music provider: %w", err)
		}
		providers = append(providers, apple)
	}

	var youtube *musiclink.YouTubeMusicProvider
	if cfg.YouTube.APIKey != "" {
		youtube = musiclink.NewYouTubeMusicProvider(musiclink.YouTubeOptions{
			APIKey:  cfg.YouTube.APIKey,
			Timeout: timeout,
		}, verifier, logger.Named("youtube-music"))
		providers = append(providers, youtube)
	}
	providers = append(providers, musiclink.NewVideoTitleProvider(musiclink.VideoTitleOptions{
		Timeout: timeout,
	}, youtube, logger.Named("youtube-video")))

	if cfg.Yandex.ProxyURL != "" {
		yandex, err := musiclink.NewYandexMusicProvider(musiclink.YandexMusicOptions{
			ProxyURL: cfg.Yandex.ProxyURL,
			Timeout:  timeout,
		}, logger.Named("yandex-music"))
		if err != nil {
			return nil, fmt.Errorf("failed to create Yandex Music provider: %w", err)
		}
		providers = append(providers, yandex)
	}

	if cfg.VK.AccessToken != "" {
		vk, err := musiclink.NewVKMusicProvider(musiclink.VKOptions{
			AccessToken: cfg.VK.AccessToken,
			APIVersion:  cfg.VK.APIVersion,
			Timeout:     timeout,
		}, verifier, logger.Named("vk-music"))
		if err != nil {
			return nil, fmt.Errorf("failed to create VK provider: %w", err)
		}
		providers = append(providers, vk)
	}

	registry := musiclink.NewRegistry(providers...)
	logger.Info("Registered providers", zap.Any("platforms", registry.Platforms()))
	return registry, nil
}
