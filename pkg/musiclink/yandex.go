package musiclink

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
)

// yandexLinkResponse represents the proxy's get_track_link response.
type yandexLinkResponse struct {
	TrackURL string `json:"track_url"`
}

// yandexInfoResponse represents the proxy's get_track_info response.
type yandexInfoResponse struct {
	Artist string `json:"artist"`
	Title  string `json:"title"`
}

// YandexMusicOptions configures a YandexMusicProvider.
type YandexMusicOptions struct {
	ProxyURL string // Base URL of the internal Yandex Music service.
	Timeout  time.Duration
}

// YandexMusicProvider talks to Yandex Music through an internal proxy service.
type YandexMusicProvider struct {
	client   *http.Client
	proxyURL string
	logger   *zap.Logger
}

var _ Provider = (*YandexMusicProvider)(nil)

// NewYandexMusicProvider creates a Yandex Music provider.
func NewYandexMusicProvider(opts YandexMusicOptions, logger *zap.Logger) (*YandexMusicProvider, error) {
	if opts.ProxyURL == "" {
		return nil, errors.New("yandex music: proxy URL is required")
	}
	return &YandexMusicProvider{
		client:   newHTTPClient(opts.Timeout),
		proxyURL: strings.TrimSuffix(opts.ProxyURL, "/"),
		logger:   logger,
	}, nil
}

// Platform returns PlatformYandexMusic.
func (p *YandexMusicProvider) Platform() Platform {
	return PlatformYandexMusic
}

// SearchTrack asks the proxy for the best matching track link.
func (p *YandexMusicProvider) SearchTrack(ctx context.Context, artist, title string) (string, error) {
	params := url.Values{}
	params.Set("artist", artist)
	params.Set("title", title)
	p.logger.Debug("Searching Yandex Music", zap.String("artist", artist), zap.String("title", title))

	var resp yandexLinkResponse
	if err := getJSON(ctx, p.client, p.proxyURL+"/get_track_link?"+params.Encode(), nil, "Yandex Music proxy", &resp); err != nil {
		return "", err
	}
	if resp.TrackURL == "" {
		return "", fmt.Errorf("%w: no Yandex Music results for %q - %q", ErrNotFound, artist, title)
	}
	return resp.TrackURL, nil
}

// GetTrackInfo resolves the track in the /track/<id> segment through the proxy.
func (p *YandexMusicProvider) GetTrackInfo(ctx context.Context, rawURL string) (*TrackReference, error) {
	trackID, err := extractTrackPathID(rawURL, "Yandex Music")
	if err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Set("trackId", trackID)

	var resp yandexInfoResponse
	if err := getJSON(ctx, p.client, p.proxyURL+"/get_track_info?"+params.Encode(), nil, "Yandex Music proxy", &resp); err != nil {
		return nil, err
	}

	ref := &TrackReference{Artist: cleanText(resp.Artist), Title: cleanText(resp.Title)}
	if !ref.Valid() {
		return nil, fmt.Errorf("%w: Yandex Music track %s", ErrMetadataNotFound, trackID)
	}
	return ref, nil
}
