package musiclink

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/net/html"
)

const (
	// youtubePageTitleSuffix is appended by YouTube to every page title.
	youtubePageTitleSuffix = " - YouTube"
	// youtubeWatchURL is the canonical watch URL prefix.
	youtubeWatchURL = "https://www.youtube.com/watch?v="
	// maxTitleScanBytes caps how much of a page is read while looking for <title>.
	maxTitleScanBytes = 512 * 1024
)

// videoSearcher finds a YouTube video ID for a track.
type videoSearcher interface {
	searchVideo(ctx context.Context, artist, title string) (string, error)
}

// VideoTitleOptions configures a VideoTitleProvider.
type VideoTitleOptions struct {
	Timeout time.Duration
}

// VideoTitleProvider resolves plain YouTube videos by reading the page <title>.
// Searching is delegated to the YouTube Data API when a searcher is configured.
type VideoTitleProvider struct {
	client   *http.Client
	searcher videoSearcher
	logger   *zap.Logger
}

var _ Provider = (*VideoTitleProvider)(nil)

// NewVideoTitleProvider creates a title-scraping provider. search may be nil, in
// which case SearchTrack is unavailable.
func NewVideoTitleProvider(opts VideoTitleOptions, search *YouTubeMusicProvider, logger *zap.Logger) *VideoTitleProvider {
	p := &VideoTitleProvider{
		client: newHTTPClient(opts.Timeout),
		logger: logger,
	}
	if search != nil {
		p.searcher = search
	}
	return p
}

// Platform returns PlatformYouTubeVideo.
func (p *VideoTitleProvider) Platform() Platform {
	return PlatformYouTubeVideo
}

// SearchTrack returns the www.youtube.com watch URL of the best matching video.
func (p *VideoTitleProvider) SearchTrack(ctx context.Context, artist, title string) (string, error) {
	if p.searcher == nil {
		return "", fmt.Errorf("%w: youtube-video search needs a YouTube API key", ErrUnsupportedPlatform)
	}
	videoID, err := p.searcher.searchVideo(ctx, artist, title)
	if err != nil {
		return "", err
	}
	return youtubeWatchURL + videoID, nil
}

// GetTrackInfo fetches the video page, reads its title and splits it into artist and title.
func (p *VideoTitleProvider) GetTrackInfo(ctx context.Context, rawURL string) (*TrackReference, error) {
	u, err := parseLink(rawURL)
	if err != nil {
		return nil, err
	}
	if strings.ToLower(u.Hostname()) == "youtu.be" {
		if strings.Trim(u.Path, "/") == "" {
			return nil, fmt.Errorf("%w: no video ID in youtu.be URL", ErrInvalidURL)
		}
	} else if u.Query().Get("v") == "" {
		return nil, fmt.Errorf("%w: no video ID in YouTube URL", ErrInvalidURL)
	}

	pageTitle, err := p.fetchTitle(ctx, u.String())
	if err != nil {
		return nil, err
	}
	p.logger.Debug("Read page title", zap.String("title", pageTitle))

	return splitArtistTitle(pageTitle, youtubePageTitleSuffix)
}

// fetchTitle streams pageURL and stops the transfer as soon as </title> is seen.
func (p *VideoTitleProvider) fetchTitle(ctx context.Context, pageURL string) (string, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, http.NoBody)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidURL, err)
	}
	req.Header.Set("User-Agent", commonUserAgent)
	req.Header.Set("Accept", commonAcceptHeader)

	resp, err := p.client.Do(req)
	if err != nil {
		return "", classifyTransportError(err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return "", statusError("YouTube", resp.StatusCode)
	}

	title, err := readTitle(io.LimitReader(resp.Body, maxTitleScanBytes))
	if err != nil {
		if errors.Is(err, ErrMetadataNotFound) {
			return "", err
		}
		return "", classifyTransportError(err)
	}
	return title, nil
}

// readTitle tokenizes r incrementally and returns the text of the first
// <title> element without consuming the rest of the stream. End of input
// before a complete title resolves to ErrMetadataNotFound.
func readTitle(r io.Reader) (string, error) {
	z := html.NewTokenizer(r)
	inTitle := false
	var text strings.Builder

	for {
		switch z.Next() {
		case html.ErrorToken:
			if errors.Is(z.Err(), io.EOF) {
				return "", fmt.Errorf("%w: no <title> in page", ErrMetadataNotFound)
			}
			return "", z.Err()
		case html.StartTagToken:
			if name, _ := z.TagName(); string(name) == "title" {
				inTitle = true
			}
		case html.TextToken:
			if inTitle {
				text.Write(z.Text())
			}
		case html.EndTagToken:
			if name, _ := z.TagName(); inTitle && string(name) == "title" {
				return strings.TrimSpace(text.String()), nil
			}
		}
	}
}
