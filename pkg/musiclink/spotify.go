package musiclink

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/zmb3/spotify/v2"
	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"linkbridge/pkg/fuzzy"
)

const (
	// SpotifyTokenURL is the Spotify accounts service token endpoint.
	SpotifyTokenURL = "https://accounts.spotify.com/api/token"
	// SpotifyAPIURL is the Spotify Web API base URL.
	SpotifyAPIURL = "https://api.spotify.com/v1/"
)

// SpotifyOptions configures a SpotifyProvider.
type SpotifyOptions struct {
	ClientID     string
	ClientSecret string
	TokenURL     string // Defaults to SpotifyTokenURL.
	APIURL       string // Defaults to SpotifyAPIURL; must end with a slash.
	Timeout      time.Duration
	Observer     RefreshObserver
}

// SpotifyProvider searches and resolves Spotify tracks through the Web API.
type SpotifyProvider struct {
	client   *spotify.Client
	tokens   *TokenCache
	verifier *fuzzy.Verifier
	logger   *zap.Logger
}

var _ Provider = (*SpotifyProvider)(nil)

// NewSpotifyProvider creates a Spotify provider authenticated with the client-credentials flow.
func NewSpotifyProvider(opts SpotifyOptions, verifier *fuzzy.Verifier, logger *zap.Logger) *SpotifyProvider {
	if opts.TokenURL == "" {
		opts.TokenURL = SpotifyTokenURL
	}
	if opts.APIURL == "" {
		opts.APIURL = SpotifyAPIURL
	}
	if verifier == nil {
		verifier = fuzzy.NewVerifier(fuzzy.DefaultThreshold)
	}

	tokens := NewTokenCache(PlatformSpotify,
		NewClientCredentialsSource(opts.ClientID, opts.ClientSecret, opts.TokenURL, newHTTPClient(opts.Timeout)),
		WithTokenLogger(logger),
		WithRefreshObserver(opts.Observer),
	)

	httpClient := newHTTPClient(opts.Timeout)
	httpClient.Transport = &oauth2.Transport{
		Source: tokens.OAuth2(),
		Base:   http.DefaultTransport,
	}

	return &SpotifyProvider{
		client:   spotify.New(httpClient, spotify.WithBaseURL(opts.APIURL)),
		tokens:   tokens,
		verifier: verifier,
		logger:   logger,
	}
}

// Platform returns PlatformSpotify.
func (p *SpotifyProvider) Platform() Platform {
	return PlatformSpotify
}

// SearchTrack searches Spotify for "artist - title" and verifies the top hit.
func (p *SpotifyProvider) SearchTrack(ctx context.Context, artist, title string) (string, error) {
	query := fmt.Sprintf("%s - %s", artist, title)
	p.logger.Debug("Searching Spotify", zap.String("query", query))

	results, err := p.client.Search(ctx, query, spotify.SearchTypeTrack, spotify.Limit(1))
	if err != nil {
		return "", p.classify(err)
	}

	if results.Tracks == nil || len(results.Tracks.Tracks) == 0 {
		return "", fmt.Errorf("%w: no Spotify results for %q", ErrNotFound, query)
	}

	top := results.Tracks.Tracks[0]
	candidate := MatchCandidate{
		Title: top.Name,
		URL:   top.ExternalURLs["spotify"],
	}
	if len(top.Artists) > 0 {
		candidate.Artist = top.Artists[0].Name
	}
	if candidate.URL == "" && top.ID != "" {
		candidate.URL = "https://open.spotify.com/track/" + string(top.ID)
	}

	return acceptCandidate(p.verifier, p.logger, PlatformSpotify, candidate, artist, title)
}

// GetTrackInfo fetches the artist and title of a Spotify track URL.
func (p *SpotifyProvider) GetTrackInfo(ctx context.Context, rawURL string) (*TrackReference, error) {
	trackID, err := extractTrackPathID(rawURL, "Spotify")
	if err != nil {
		return nil, err
	}

	track, err := p.client.GetTrack(ctx, spotify.ID(trackID))
	if err != nil {
		return nil, p.classify(err)
	}

	ref := &TrackReference{Title: track.Name}
	if len(track.Artists) > 0 {
		ref.Artist = track.Artists[0].Name
	}
	if !ref.Valid() {
		return nil, fmt.Errorf("%w: Spotify track %s", ErrMetadataNotFound, trackID)
	}
	return ref, nil
}

// classify maps Web API errors onto the error taxonomy. A rejected token is
// dropped so that the next call refreshes it.
func (p *SpotifyProvider) classify(err error) error {
	var apiErr spotify.Error
	if errors.As(err, &apiErr) {
		if apiErr.Status == http.StatusUnauthorized {
			p.tokens.Invalidate()
		}
		return statusError("Spotify", apiErr.Status)
	}
	return classifyTransportError(err)
}
