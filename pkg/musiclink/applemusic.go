package musiclink

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"

	"linkbridge/pkg/fuzzy"
)

const (
	// AppleMusicAPIURL is the Apple Music catalog API base URL.
	AppleMusicAPIURL = "https://api.music.apple.com/v1"
	// DefaultAppleStorefront is used when neither the URL nor the config names one.
	DefaultAppleStorefront = "us"
)

var storefrontRegex = regexp.MustCompile(`^[a-z]{2}$`)

// appleSong is one song resource from the catalog API.
type appleSong struct {
	ID         string `json:"id"`
	Attributes struct {
		Name       string `json:"name"`
		ArtistName string `json:"artistName"`
		URL        string `json:"url"`
	} `json:"attributes"`
}

// appleSearchResponse represents the response from the catalog search endpoint.
type appleSearchResponse struct {
	Results struct {
		Songs struct {
			Data []appleSong `json:"data"`
		} `json:"songs"`
	} `json:"results"`
}

// appleSongsResponse represents the response from the catalog songs endpoint.
type appleSongsResponse struct {
	Data []appleSong `json:"data"`
}

// AppleMusicOptions configures an AppleMusicProvider.
type AppleMusicOptions struct {
	TeamID        string
	KeyID         string
	PrivateKey    []byte // PEM encoded EC private key (.p8).
	Storefront    string
	APIURL        string
	TokenLifetime time.Duration
	Timeout       time.Duration
	Observer      RefreshObserver
}

// AppleMusicProvider searches and resolves Apple Music songs with a locally signed developer token.
type AppleMusicProvider struct {
	client     *http.Client
	tokens     *TokenCache
	apiURL     string
	storefront string
	verifier   *fuzzy.Verifier
	logger     *zap.Logger
}

var _ Provider = (*AppleMusicProvider)(nil)

// NewAppleMusicProvider creates an Apple Music provider. It fails when the signing key cannot be parsed.
func NewAppleMusicProvider(opts AppleMusicOptions, verifier *fuzzy.Verifier, logger *zap.Logger) (*AppleMusicProvider, error) {
	source, err := NewSignedAssertionSource(opts.TeamID, opts.KeyID, opts.PrivateKey, opts.TokenLifetime)
	if err != nil {
		return nil, fmt.Errorf("apple music: %w", err)
	}
	if opts.APIURL == "" {
		opts.APIURL = AppleMusicAPIURL
	}
	if opts.Storefront == "" {
		opts.Storefront = DefaultAppleStorefront
	}
	if verifier == nil {
		verifier = fuzzy.NewVerifier(fuzzy.DefaultThreshold)
	}

	return &AppleMusicProvider{
		client: newHTTPClient(opts.Timeout),
		tokens: NewTokenCache(PlatformAppleMusic, source,
			WithTokenLogger(logger),
			WithRefreshObserver(opts.Observer)),
		apiURL:     strings.TrimSuffix(opts.APIURL, "/"),
		storefront: opts.Storefront,
		verifier:   verifier,
		logger:     logger,
	}, nil
}

// Platform returns PlatformAppleMusic.
func (p *AppleMusicProvider) Platform() Platform {
	return PlatformAppleMusic
}

// SearchTrack searches the catalog for artist and title and verifies the top song.
func (p *AppleMusicProvider) SearchTrack(ctx context.Context, artist, title string) (string, error) {
	params := url.Values{}
	params.Set("term", artist+" "+title)
	params.Set("types", "songs")
	params.Set("limit", "1")
	reqURL := fmt.Sprintf("%s/catalog/%s/search?%s", p.apiURL, p.storefront, params.Encode())

	var resp appleSearchResponse
	if err := p.get(ctx, reqURL, &resp); err != nil {
		return "", err
	}

	songs := resp.Results.Songs.Data
	if len(songs) == 0 {
		return "", fmt.Errorf("%w: no Apple Music results for %q - %q", ErrNotFound, artist, title)
	}

	top := songs[0].Attributes
	return acceptCandidate(p.verifier, p.logger, PlatformAppleMusic, MatchCandidate{
		Artist: top.ArtistName,
		Title:  top.Name,
		URL:    top.URL,
	}, artist, title)
}

// GetTrackInfo fetches the artist and title of the song referenced by rawURL.
func (p *AppleMusicProvider) GetTrackInfo(ctx context.Context, rawURL string) (*TrackReference, error) {
	songID, storefront, err := p.extractSongID(rawURL)
	if err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Set("ids", songID)
	reqURL := fmt.Sprintf("%s/catalog/%s/songs?%s", p.apiURL, storefront, params.Encode())

	var resp appleSongsResponse
	if err := p.get(ctx, reqURL, &resp); err != nil {
		return nil, err
	}
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("%w: Apple Music song %s", ErrMetadataNotFound, songID)
	}

	ref := &TrackReference{
		Artist: resp.Data[0].Attributes.ArtistName,
		Title:  resp.Data[0].Attributes.Name,
	}
	if !ref.Valid() {
		return nil, fmt.Errorf("%w: Apple Music song %s", ErrMetadataNotFound, songID)
	}
	return ref, nil
}

// extractSongID returns the song ID and storefront from an Apple Music URL.
// Album links carry the song in ?i=; direct song links end with the ID.
func (p *AppleMusicProvider) extractSongID(rawURL string) (songID, storefront string, err error) {
	u, err := parseLink(rawURL)
	if err != nil {
		return "", "", err
	}

	storefront = p.storefront
	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(parts) > 0 && storefrontRegex.MatchString(parts[0]) {
		storefront = parts[0]
	}

	if songID = u.Query().Get("i"); songID != "" {
		return songID, storefront, nil
	}

	if strings.Contains(u.Path, "/song/") {
		if last := parts[len(parts)-1]; last != "" && last != "song" {
			return last, storefront, nil
		}
	}

	return "", "", fmt.Errorf("%w: no song ID in Apple Music URL", ErrInvalidURL)
}

// get performs an authenticated catalog request.
func (p *AppleMusicProvider) get(ctx context.Context, reqURL string, dest interface{}) error {
	token, err := p.tokens.Token(ctx)
	if err != nil {
		return err
	}

	header := http.Header{}
	header.Set("Authorization", "Bearer "+token)

	err = getJSON(ctx, p.client, reqURL, header, "Apple Music", dest)
	if errors.Is(err, ErrCredential) {
		p.tokens.Invalidate()
	}
	return err
}
