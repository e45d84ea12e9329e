package musiclink

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"

	"linkbridge/pkg/fuzzy"
)

const (
	// commonUserAgent is the user agent string used for page fetches.
	commonUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 " +
		"(KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	// commonAcceptHeader is the accept header used for page fetches.
	commonAcceptHeader = "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8"
	// expectedSplitParts is the expected number of parts when splitting "Artist - Title".
	expectedSplitParts = 2
	// artistTitleSeparator separates artist from title in page and video titles.
	artistTitleSeparator = " - "
	// DefaultHTTPTimeout bounds every outbound call.
	DefaultHTTPTimeout = 10 * time.Second
	// maxHTTPRedirects is the maximum number of HTTP redirects to follow.
	maxHTTPRedirects = 3
	// maxErrorBodySize caps how much of an error response is read for logging.
	maxErrorBodySize = 512
)

var (
	// ErrTooManyRedirects is returned when too many redirects are encountered.
	ErrTooManyRedirects = errors.New("too many redirects")

	// trackPathRegex extracts the segment following "track/".
	trackPathRegex = regexp.MustCompile(`track/([^/?#&]+)`)
)

// newHTTPClient creates an HTTP client with a timeout and redirect validation.
func newHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = DefaultHTTPTimeout
	}
	return &http.Client{
		Timeout: timeout,
		CheckRedirect: func(_ *http.Request, via []*http.Request) error {
			if len(via) >= maxHTTPRedirects {
				return ErrTooManyRedirects
			}
			return nil
		},
	}
}

// getJSON performs a GET and decodes a JSON response into dest.
func getJSON(
	ctx context.Context,
	client *http.Client,
	reqURL string,
	header http.Header,
	serviceName string,
	dest interface{},
) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, http.NoBody)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUpstreamUnavailable, err)
	}
	for key, values := range header {
		for _, v := range values {
			req.Header.Add(key, v)
		}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return classifyTransportError(err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxErrorBodySize))
		return statusError(serviceName, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return fmt.Errorf("%w: failed to decode %s response: %w", ErrUpstreamUnavailable, serviceName, err)
	}
	return nil
}

// extractTrackPathID returns the identifier after "track/" in rawURL.
func extractTrackPathID(rawURL, serviceName string) (string, error) {
	matches := trackPathRegex.FindStringSubmatch(rawURL)
	if len(matches) < expectedSplitParts || matches[1] == "" {
		return "", fmt.Errorf("%w: no track ID in %s URL", ErrInvalidURL, serviceName)
	}
	return matches[1], nil
}

// cleanText decodes HTML entities and collapses surrounding whitespace.
func cleanText(s string) string {
	return strings.TrimSpace(html.UnescapeString(s))
}

// splitArtistTitle removes suffix from text and splits the rest on " - " into
// exactly two non-empty parts.
func splitArtistTitle(text, suffix string) (*TrackReference, error) {
	text = strings.TrimSpace(text)
	if suffix != "" {
		text = strings.TrimSpace(strings.TrimSuffix(text, suffix))
	}

	parts := strings.Split(text, artistTitleSeparator)
	if len(parts) != expectedSplitParts {
		return nil, fmt.Errorf("%w: %q", ErrUnexpectedFormat, text)
	}

	ref := &TrackReference{
		Artist: strings.TrimSpace(parts[0]),
		Title:  strings.TrimSpace(parts[1]),
	}
	if !ref.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnexpectedFormat, text)
	}
	return ref, nil
}

// acceptCandidate runs the match verifier over a provider's top hit and returns its URL.
func acceptCandidate(
	verifier *fuzzy.Verifier,
	logger *zap.Logger,
	platform Platform,
	candidate MatchCandidate,
	artist, title string,
) (string, error) {
	if candidate.URL == "" {
		return "", fmt.Errorf("%w: %s returned no URL", ErrNotFound, platform)
	}

	verdict := verifier.Verify(candidate.Artist, candidate.Title, artist, title)
	logger.Debug("Verified top search result",
		zap.String("platform", platform.String()),
		zap.String("candidateArtist", candidate.Artist),
		zap.String("candidateTitle", candidate.Title),
		zap.String("verdict", verdict.String()))

	if !verdict.Matched() {
		return "", fmt.Errorf("%w: top %s result %q by %q does not match", ErrNotFound, platform,
			candidate.Title, candidate.Artist)
	}
	return candidate.URL, nil
}
