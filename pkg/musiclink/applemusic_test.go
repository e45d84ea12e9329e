package musiclink

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"go.uber.org/zap"
)

func newTestAppleMusicProvider(t *testing.T, handler http.HandlerFunc) *AppleMusicProvider {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	_, pemKey := generateECKeyPEM(t)
	provider, err := NewAppleMusicProvider(AppleMusicOptions{
		TeamID:     "TEAM",
		KeyID:      "KEY",
		PrivateKey: pemKey,
		APIURL:     server.URL + "/v1",
	}, nil, zap.NewNop())
	if err != nil {
		t.Fatalf("NewAppleMusicProvider() unexpected error: %v", err)
	}
	return provider
}

func TestAppleMusicProvider_SearchTrack(t *testing.T) {
	var tokens atomic.Value
	provider := newTestAppleMusicProvider(t, func(w http.ResponseWriter, r *http.Request) {
		auth := r.Header.Get("Authorization")
		if !strings.HasPrefix(auth, "Bearer ") {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		if prev := tokens.Swap(auth); prev != nil && prev != auth {
			t.Errorf("developer token changed between requests")
		}
		if r.URL.Path != "/v1/catalog/us/search" || r.URL.Query().Get("types") != "songs" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(`{"results":{"songs":{"data":[{"id":"456","attributes":{` +
			`"name":"One More Time","artistName":"Daft Punk",` +
			`"url":"https://music.apple.com/us/album/discovery/123?i=456"}}]}}}`))
	})

	for range 2 {
		url, err := provider.SearchTrack(context.Background(), "Daft Punk", "One More Time")
		if err != nil {
			t.Fatalf("SearchTrack() unexpected error: %v", err)
		}
		if url != "https://music.apple.com/us/album/discovery/123?i=456" {
			t.Errorf("SearchTrack() = %q", url)
		}
	}
}

func TestAppleMusicProvider_SearchTrackNoResults(t *testing.T) {
	provider := newTestAppleMusicProvider(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"results":{}}`))
	})

	_, err := provider.SearchTrack(context.Background(), "Daft Punk", "One More Time")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("SearchTrack() error = %v, want ErrNotFound", err)
	}
}

func TestAppleMusicProvider_GetTrackInfo(t *testing.T) {
	provider := newTestAppleMusicProvider(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/catalog/gb/songs" || r.URL.Query().Get("ids") != "456" {
			_, _ = w.Write([]byte(`{"data":[]}`))
			return
		}
		_, _ = w.Write([]byte(`{"data":[{"id":"456","attributes":{"name":"One More Time","artistName":"Daft Punk"}}]}`))
	})

	ref, err := provider.GetTrackInfo(context.Background(), "https://music.apple.com/gb/album/discovery/123?i=456")
	if err != nil {
		t.Fatalf("GetTrackInfo() unexpected error: %v", err)
	}
	if ref.Artist != "Daft Punk" || ref.Title != "One More Time" {
		t.Errorf("GetTrackInfo() = %+v", ref)
	}

	_, err = provider.GetTrackInfo(context.Background(), "https://music.apple.com/us/song/one-more-time/999")
	if !errors.Is(err, ErrMetadataNotFound) {
		t.Errorf("GetTrackInfo(unknown) error = %v, want ErrMetadataNotFound", err)
	}
}

func TestAppleMusicProvider_RejectedTokenIsDropped(t *testing.T) {
	var calls atomic.Int32
	provider := newTestAppleMusicProvider(t, func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	})

	_, err := provider.SearchTrack(context.Background(), "Daft Punk", "One More Time")
	if !errors.Is(err, ErrCredential) {
		t.Errorf("SearchTrack() error = %v, want ErrCredential", err)
	}
	if cred := provider.tokens.current(); cred != nil {
		t.Error("rejected token should have been invalidated")
	}
}

func TestAppleMusicProvider_extractSongID(t *testing.T) {
	t.Helper()

	provider := &AppleMusicProvider{storefront: DefaultAppleStorefront}

	tests := []struct {
		name               string
		url                string
		expectedID         string
		expectedStorefront string
		wantErr            bool
	}{
		{
			name:               "Album link with song parameter",
			url:                "https://music.apple.com/us/album/never-gonna-give-you-up/123456?i=789",
			expectedID:         "789",
			expectedStorefront: "us",
		},
		{
			name:               "Direct song link",
			url:                "https://music.apple.com/gb/song/track-name/123456789",
			expectedID:         "123456789",
			expectedStorefront: "gb",
		},
		{
			name:               "No storefront segment",
			url:                "https://music.apple.com/song/track-name/42",
			expectedID:         "42",
			expectedStorefront: "us",
		},
		{
			name:    "Album without song",
			url:     "https://music.apple.com/us/album/some-album/123",
			wantErr: true,
		},
		{
			name:    "Artist page",
			url:     "https://music.apple.com/us/artist/rick-astley/123",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, storefront, err := provider.extractSongID(tt.url)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidURL) {
					t.Errorf("extractSongID() error = %v, want ErrInvalidURL", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("extractSongID() unexpected error: %v", err)
			}
			if id != tt.expectedID {
				t.Errorf("extractSongID() id = %q, want %q", id, tt.expectedID)
			}
			if storefront != tt.expectedStorefront {
				t.Errorf("extractSongID() storefront = %q, want %q", storefront, tt.expectedStorefront)
			}
		})
	}
}
