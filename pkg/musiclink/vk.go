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
	// VKAPIURL is the VK API method base URL.
	VKAPIURL = "https://api.vk.com/method"
	// DefaultVKAPIVersion is sent when no version is configured.
	DefaultVKAPIVersion = "5.199"
	// vkAudioURL is the canonical audio page prefix.
	vkAudioURL = "https://vk.com/audio"
	// vkAuthFailedCode is the API error code for an invalid access token.
	vkAuthFailedCode = 5
)

var vkAudioRegex = regexp.MustCompile(`audio(-?\d+)_(\d+)`)

// vkAudio is one audio record.
type vkAudio struct {
	ID      int64  `json:"id"`
	OwnerID int64  `json:"owner_id"`
	Artist  string `json:"artist"`
	Title   string `json:"title"`
}

// vkError is the error object VK returns with HTTP 200.
type vkError struct {
	Code    int    `json:"error_code"`
	Message string `json:"error_msg"`
}

// vkSearchResponse represents the response from audio.search.
type vkSearchResponse struct {
	Response *struct {
		Count int       `json:"count"`
		Items []vkAudio `json:"items"`
	} `json:"response"`
	Error *vkError `json:"error"`
}

// vkGetByIDResponse represents the response from audio.getById.
type vkGetByIDResponse struct {
	Response []vkAudio `json:"response"`
	Error    *vkError  `json:"error"`
}

// VKOptions configures a VKMusicProvider.
type VKOptions struct {
	AccessToken string
	APIVersion  string
	APIURL      string
	Timeout     time.Duration
}

// VKMusicProvider searches and resolves VK audio records.
type VKMusicProvider struct {
	client      *http.Client
	accessToken string
	apiVersion  string
	apiURL      string
	verifier    *fuzzy.Verifier
	logger      *zap.Logger
}

var _ Provider = (*VKMusicProvider)(nil)

// NewVKMusicProvider creates a VK provider authenticated with a static access token.
func NewVKMusicProvider(opts VKOptions, verifier *fuzzy.Verifier, logger *zap.Logger) (*VKMusicProvider, error) {
	if opts.AccessToken == "" {
		return nil, errors.New("vk: access token is required")
	}
	if opts.APIVersion == "" {
		opts.APIVersion = DefaultVKAPIVersion
	}
	if opts.APIURL == "" {
		opts.APIURL = VKAPIURL
	}
	if verifier == nil {
		verifier = fuzzy.NewVerifier(fuzzy.DefaultThreshold)
	}
	return &VKMusicProvider{
		client:      newHTTPClient(opts.Timeout),
		accessToken: opts.AccessToken,
		apiVersion:  opts.APIVersion,
		apiURL:      strings.TrimSuffix(opts.APIURL, "/"),
		verifier:    verifier,
		logger:      logger,
	}, nil
}

// Platform returns PlatformVKMusic.
func (p *VKMusicProvider) Platform() Platform {
	return PlatformVKMusic
}

// SearchTrack searches VK audio and returns the page URL of the verified top hit.
func (p *VKMusicProvider) SearchTrack(ctx context.Context, artist, title string) (string, error) {
	params := p.params()
	params.Set("q", artist+" "+title)
	params.Set("count", "1")

	var resp vkSearchResponse
	if err := getJSON(ctx, p.client, p.apiURL+"/audio.search?"+params.Encode(), nil, "VK", &resp); err != nil {
		return "", err
	}
	if err := resp.Error.err(); err != nil {
		return "", err
	}
	if resp.Response == nil || resp.Response.Count == 0 || len(resp.Response.Items) == 0 {
		return "", fmt.Errorf("%w: no VK results for %q - %q", ErrNotFound, artist, title)
	}

	top := resp.Response.Items[0]
	return acceptCandidate(p.verifier, p.logger, PlatformVKMusic, MatchCandidate{
		Artist: cleanText(top.Artist),
		Title:  cleanText(top.Title),
		URL:    fmt.Sprintf("%s%d_%d", vkAudioURL, top.OwnerID, top.ID),
	}, artist, title)
}

// GetTrackInfo resolves the audio<owner>_<id> record referenced by rawURL.
func (p *VKMusicProvider) GetTrackInfo(ctx context.Context, rawURL string) (*TrackReference, error) {
	audioID, err := extractVKAudioID(rawURL)
	if err != nil {
		return nil, err
	}

	params := p.params()
	params.Set("audios", audioID)

	var resp vkGetByIDResponse
	if err := getJSON(ctx, p.client, p.apiURL+"/audio.getById?"+params.Encode(), nil, "VK", &resp); err != nil {
		return nil, err
	}
	if err := resp.Error.err(); err != nil {
		return nil, err
	}
	if len(resp.Response) == 0 {
		return nil, fmt.Errorf("%w: VK audio %s", ErrMetadataNotFound, audioID)
	}

	ref := &TrackReference{
		Artist: cleanText(resp.Response[0].Artist),
		Title:  cleanText(resp.Response[0].Title),
	}
	if !ref.Valid() {
		return nil, fmt.Errorf("%w: VK audio %s", ErrMetadataNotFound, audioID)
	}
	return ref, nil
}

func (p *VKMusicProvider) params() url.Values {
	params := url.Values{}
	params.Set("access_token", p.accessToken)
	params.Set("v", p.apiVersion)
	return params
}

// extractVKAudioID returns "<owner>_<id>" from a VK audio URL.
func extractVKAudioID(rawURL string) (string, error) {
	matches := vkAudioRegex.FindStringSubmatch(rawURL)
	if len(matches) < 3 {
		return "", fmt.Errorf("%w: no audio ID in VK URL", ErrInvalidURL)
	}
	return matches[1] + "_" + matches[2], nil
}

func (e *vkError) err() error {
	if e == nil {
		return nil
	}
	if e.Code == vkAuthFailedCode {
		return fmt.Errorf("%w: VK error %d", ErrCredential, e.Code)
	}
	return fmt.Errorf("%w: VK error %d", ErrUpstreamUnavailable, e.Code)
}
