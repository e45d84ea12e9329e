package musiclink

import (
	"fmt"
	"net/url"
	"strings"
)

// hostRule maps a hostname predicate to a platform. Rules compare whole
// hostnames or anchored prefixes so that no two rules can accept the same host.
type hostRule struct {
	platform Platform
	match    func(host string) bool
}

var detectRules = []hostRule{
	{PlatformSpotify, func(host string) bool {
		return host == "spotify.com" || strings.HasSuffix(host, ".spotify.com")
	}},
	{PlatformYandexMusic, func(host string) bool {
		return strings.HasPrefix(host, "music.yandex.")
	}},
	{PlatformYouTubeMusic, func(host string) bool {
		return host == "music.youtube.com"
	}},
	{PlatformAppleMusic, func(host string) bool {
		return host == "music.apple.com" || host == "itunes.apple.com"
	}},
	{PlatformYouTubeVideo, func(host string) bool {
		switch host {
		case "youtu.be", "youtube.com", "www.youtube.com", "m.youtube.com":
			return true
		}
		return false
	}},
	{PlatformVKMusic, func(host string) bool {
		switch host {
		case "vk.com", "www.vk.com", "m.vk.com", "vk.ru":
			return true
		}
		return false
	}},
}

// Detect classifies rawURL into a platform tag. Scheme-less input such as
// "open.spotify.com/track/x" is accepted.
func Detect(rawURL string) (Platform, error) {
	host := hostname(rawURL)
	if host == "" {
		return "", fmt.Errorf("%w: %q", ErrUnrecognizedPlatform, rawURL)
	}

	for _, rule := range detectRules {
		if rule.match(host) {
			return rule.platform, nil
		}
	}

	return "", fmt.Errorf("%w: %s", ErrUnrecognizedPlatform, host)
}

// parseLink parses rawURL, assuming https when no scheme is given.
func parseLink(rawURL string) (*url.URL, error) {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return nil, fmt.Errorf("%w: empty URL", ErrInvalidURL)
	}
	if !strings.Contains(rawURL, "://") {
		rawURL = "https://" + rawURL
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidURL, err)
	}
	return u, nil
}

func hostname(rawURL string) string {
	u, err := parseLink(rawURL)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Hostname())
}
