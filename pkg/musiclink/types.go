// Package musiclink translates track links between streaming platforms.
//
// Each supported platform is adapted to the Provider interface. A Registry maps
// platform tags to providers, and Detect classifies an arbitrary URL into a tag.
package musiclink

import (
	"context"
	"strings"
)

// Platform identifies one streaming platform.
type Platform string

const (
	// PlatformSpotify is open.spotify.com.
	PlatformSpotify Platform = "spotify"
	// PlatformAppleMusic is music.apple.com.
	PlatformAppleMusic Platform = "apple-music"
	// PlatformYouTubeMusic is music.youtube.com.
	PlatformYouTubeMusic Platform = "youtube-music"
	// PlatformYouTubeVideo is a plain YouTube video (youtu.be, youtube.com).
	PlatformYouTubeVideo Platform = "youtube-video"
	// PlatformYandexMusic is music.yandex.*.
	PlatformYandexMusic Platform = "yandex-music"
	// PlatformVKMusic is audio on vk.com.
	PlatformVKMusic Platform = "vk-music"
)

// AllPlatforms lists every platform tag known to the detector.
var AllPlatforms = []Platform{
	PlatformSpotify,
	PlatformAppleMusic,
	PlatformYouTubeMusic,
	PlatformYouTubeVideo,
	PlatformYandexMusic,
	PlatformVKMusic,
}

func (p Platform) String() string {
	return string(p)
}

// ParsePlatform returns the platform tag for s, ignoring case and surrounding space.
func ParsePlatform(s string) (Platform, bool) {
	candidate := Platform(strings.ToLower(strings.TrimSpace(s)))
	for _, p := range AllPlatforms {
		if p == candidate {
			return p, true
		}
	}
	return "", false
}

// TrackReference identifies a song independently of any platform.
type TrackReference struct {
	Artist string // Primary artist name.
	Title  string // Track title.
}

// Valid reports whether both artist and title are present.
func (t *TrackReference) Valid() bool {
	return t != nil && strings.TrimSpace(t.Artist) != "" && strings.TrimSpace(t.Title) != ""
}

// MatchCandidate is the top search hit returned by a platform before verification.
type MatchCandidate struct {
	Artist string
	Title  string
	URL    string
}

// Provider adapts one platform's API to the search/metadata contract.
type Provider interface {
	// Platform returns the tag this provider serves.
	Platform() Platform

	// SearchTrack returns the URL of the best match for artist and title.
	SearchTrack(ctx context.Context, artist, title string) (string, error)

	// GetTrackInfo extracts the platform identifier from rawURL and fetches its metadata.
	GetTrackInfo(ctx context.Context, rawURL string) (*TrackReference, error)
}
