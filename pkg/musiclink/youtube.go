package musiclink

import (
	"context"
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
	// YouTubeAPIURL is the YouTube Data API v3 base URL.
	YouTubeAPIURL = "https://www.googleapis.com/youtube/v3"
	// youtubeMusicCategoryID is the video category for music.
	youtubeMusicCategoryID = "10"
	// youtubeMusicWatchURL is the watch URL prefix on music.youtube.com.
	youtubeMusicWatchURL = "https://music.youtube.com/watch?v="
	// youtubeTopicSuffix marks auto-generated artist channels.
	youtubeTopicSuffix = " - Topic"
)

// youtubeDecorations are stripped from video titles before splitting.
var youtubeDecorations = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\s*[\(\[]\s*official\s+(?:music\s+|lyric\s+)?(?:video|audio|visualizer)\s*[\)\]]`),
	regexp.MustCompile(`(?i)\s*[\(\[]\s*(?:lyrics?|lyric\s+video|audio|visualizer|hd|hq|4k)\s*[\)\]]`),
}

var vevoSuffixRegex = regexp.MustCompile(`(?i)\s*vevo$`)

// youtubeSnippet is the snippet part of a search or video resource.
type youtubeSnippet struct {
	Title        string `json:"title"`
	ChannelTitle string `json:"channelTitle"`
}

// youtubeSearchResponse represents the response from the search endpoint.
type youtubeSearchResponse struct {
	Items []struct {
		ID struct {
			VideoID string `json:"videoId"`
		} `json:"id"`
		Snippet youtubeSnippet `json:"snippet"`
	} `json:"items"`
}

// youtubeVideosResponse represents the response from the videos endpoint.
type youtubeVideosResponse struct {
	Items []struct {
		ID      string         `json:"id"`
		Snippet youtubeSnippet `json:"snippet"`
	} `json:"items"`
}

// YouTubeOptions configures a YouTubeMusicProvider.
type YouTubeOptions struct {
	APIKey  string
	APIURL  string
	Timeout time.Duration
}

// YouTubeMusicProvider searches and resolves YouTube Music tracks via the YouTube Data API.
type YouTubeMusicProvider struct {
	client   *http.Client
	apiKey   string
	apiURL   string
	verifier *fuzzy.Verifier
	logger   *zap.Logger
}

var _ Provider = (*YouTubeMusicProvider)(nil)

// NewYouTubeMusicProvider creates a YouTube Music provider.
func NewYouTubeMusicProvider(opts YouTubeOptions, verifier *fuzzy.Verifier, logger *zap.Logger) *YouTubeMusicProvider {
	if opts.APIURL == "" {
		opts.APIURL = YouTubeAPIURL
	}
	if verifier == nil {
		verifier = fuzzy.NewVerifier(fuzzy.DefaultThreshold)
	}
	return &YouTubeMusicProvider{
		client:   newHTTPClient(opts.Timeout),
		apiKey:   opts.APIKey,
		apiURL:   strings.TrimSuffix(opts.APIURL, "/"),
		verifier: verifier,
		logger:   logger,
	}
}

// Platform returns PlatformYouTubeMusic.
func (p *YouTubeMusicProvider) Platform() Platform {
	return PlatformYouTubeMusic
}

// SearchTrack returns the music.youtube.com URL of the best matching video.
func (p *YouTubeMusicProvider) SearchTrack(ctx context.Context, artist, title string) (string, error) {
	videoID, err := p.searchVideo(ctx, artist, title)
	if err != nil {
		return "", err
	}
	return youtubeMusicWatchURL + videoID, nil
}

// GetTrackInfo resolves the video in ?v= and splits its title into artist and title.
func (p *YouTubeMusicProvider) GetTrackInfo(ctx context.Context, rawURL string) (*TrackReference, error) {
	u, err := parseLink(rawURL)
	if err != nil {
		return nil, err
	}
	videoID := u.Query().Get("v")
	if videoID == "" {
		return nil, fmt.Errorf("%w: no video ID in YouTube Music URL", ErrInvalidURL)
	}

	params := url.Values{}
	params.Set("part", "snippet")
	params.Set("id", videoID)
	params.Set("key", p.apiKey)

	var resp youtubeVideosResponse
	if err := getJSON(ctx, p.client, p.apiURL+"/videos?"+params.Encode(), nil, "YouTube", &resp); err != nil {
		return nil, err
	}
	if len(resp.Items) == 0 {
		return nil, fmt.Errorf("%w: YouTube video %s", ErrMetadataNotFound, videoID)
	}

	return parseVideoSnippet(resp.Items[0].Snippet)
}

// searchVideo runs a music-category video search and returns the top video ID.
func (p *YouTubeMusicProvider) searchVideo(ctx context.Context, artist, title string) (string, error) {
	query := fmt.Sprintf("%s - %s", artist, title)

	params := url.Values{}
	params.Set("q", query)
	params.Set("part", "snippet")
	params.Set("type", "video")
	params.Set("videoCategoryId", youtubeMusicCategoryID)
	params.Set("maxResults", "1")
	params.Set("key", p.apiKey)

	var resp youtubeSearchResponse
	if err := getJSON(ctx, p.client, p.apiURL+"/search?"+params.Encode(), nil, "YouTube", &resp); err != nil {
		return "", err
	}
	if len(resp.Items) == 0 || resp.Items[0].ID.VideoID == "" {
		return "", fmt.Errorf("%w: no YouTube results for %q", ErrNotFound, query)
	}

	top := resp.Items[0]
	// Titles that do not follow "Artist - Title" carry no artist to verify.
	ref, err := parseVideoSnippet(top.Snippet)
	if err != nil {
		return top.ID.VideoID, nil
	}

	if _, err := acceptCandidate(p.verifier, p.logger, PlatformYouTubeMusic, MatchCandidate{
		Artist: ref.Artist,
		Title:  ref.Title,
		URL:    top.ID.VideoID,
	}, artist, title); err != nil {
		return "", err
	}
	return top.ID.VideoID, nil
}

// parseVideoSnippet extracts artist and title from a video snippet. The title
// is expected as "Artist - Title"; when it has no separator the channel name of
// an artist channel stands in for the artist.
func parseVideoSnippet(snippet youtubeSnippet) (*TrackReference, error) {
	title := cleanVideoTitle(snippet.Title)

	ref, err := splitArtistTitle(title, "")
	if err == nil {
		return ref, nil
	}

	channel := cleanChannelTitle(snippet.ChannelTitle)
	if channel != "" && title != "" && !strings.Contains(title, artistTitleSeparator) {
		return &TrackReference{Artist: channel, Title: title}, nil
	}
	return nil, err
}

// cleanVideoTitle decodes entities and removes video decorations such as "(Official Video)".
func cleanVideoTitle(title string) string {
	cleaned := cleanText(title)
	for _, re := range youtubeDecorations {
		cleaned = re.ReplaceAllString(cleaned, "")
	}
	return strings.TrimSpace(cleaned)
}

// cleanChannelTitle strips the " - Topic" and "VEVO" channel-type suffixes.
func cleanChannelTitle(channel string) string {
	channel = cleanText(channel)
	if !strings.HasSuffix(channel, youtubeTopicSuffix) && !vevoSuffixRegex.MatchString(channel) {
		return ""
	}
	channel = strings.TrimSuffix(channel, youtubeTopicSuffix)
	channel = vevoSuffixRegex.ReplaceAllString(channel, "")
	return strings.TrimSpace(channel)
}
