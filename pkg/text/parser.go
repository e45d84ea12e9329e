// Package text extracts track links from pasted share text.
package text

import (
	"net/url"
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"

	"linkbridge/pkg/musiclink"
)

const (
	// minPartsForSpotifyURI is the number of parts in "spotify:track:<id>".
	minPartsForSpotifyURI = 3
	// spotifyTrackURL is the web URL prefix a Spotify track URI is rewritten to.
	spotifyTrackURL = "https://open.spotify.com/track/"
)

var (
	urlRegex        = regexp.MustCompile(`https?://\S+`)
	spotifyURIRegex = regexp.MustCompile(`spotify:track:\w+`)
	whitespaceRegex = regexp.MustCompile(`\s+`)

	// trackingParams are dropped from extracted URLs.
	trackingParams = []string{
		"utm_source", "utm_medium", "utm_campaign", "utm_term", "utm_content",
		"si", "feature", "ref",
	}
)

// Message is pasted share text broken into its links.
type Message struct {
	Text     string             // Normalized text.
	URLs     []string           // Every URL found, cleaned, in order.
	Link     string             // First URL on a known platform, if any.
	Platform musiclink.Platform // Platform of Link.
}

// HasLink reports whether the message carries a link on a known platform.
func (m Message) HasLink() bool {
	return m.Link != ""
}

type Parser struct{}

func NewParser() *Parser {
	return &Parser{}
}

// ParseMessage normalizes text and classifies the URLs it contains.
func (p *Parser) ParseMessage(text string) Message {
	text = p.normalizeText(text)
	msg := Message{
		Text: text,
		URLs: p.extractURLs(text),
	}

	for _, u := range msg.URLs {
		if platform, err := musiclink.Detect(u); err == nil {
			msg.Link = u
			msg.Platform = platform
			break
		}
	}
	return msg
}

// ExtractLink returns the link to resolve from share text such as
// "Listen to Song by Artist https://open.spotify.com/track/x?si=y". When the
// text carries no recognizable URL the trimmed input is returned with ok=false,
// so a bare scheme-less link still reaches the platform detector.
func (p *Parser) ExtractLink(text string) (link string, ok bool) {
	msg := p.ParseMessage(text)
	if msg.HasLink() {
		return msg.Link, true
	}
	return strings.TrimSpace(text), false
}

func (p *Parser) normalizeText(text string) string {
	text = norm.NFKC.String(text)
	return strings.TrimSpace(whitespaceRegex.ReplaceAllString(text, " "))
}

func (p *Parser) extractURLs(text string) []string {
	var cleanURLs []string

	for _, match := range urlRegex.FindAllString(text, -1) {
		if cleanURL := p.cleanURL(match); cleanURL != "" {
			cleanURLs = append(cleanURLs, cleanURL)
		}
	}

	for _, uri := range spotifyURIRegex.FindAllString(text, -1) {
		if trackID := spotifyURITrackID(uri); trackID != "" {
			cleanURLs = append(cleanURLs, spotifyTrackURL+trackID)
		}
	}

	return cleanURLs
}

func (p *Parser) cleanURL(rawURL string) string {
	rawURL = strings.TrimRight(rawURL, ".,!?;:)]}\"'»")

	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return ""
	}

	q := u.Query()
	for _, param := range trackingParams {
		q.Del(param)
	}
	u.RawQuery = q.Encode()
	u.Fragment = ""

	return u.String()
}

// spotifyURITrackID returns the ID of a "spotify:track:<id>" URI.
func spotifyURITrackID(uri string) string {
	parts := strings.Split(uri, ":")
	if len(parts) < minPartsForSpotifyURI {
		return ""
	}
	return parts[2]
}
