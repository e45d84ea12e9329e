package musiclink

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"go.uber.org/zap"
)

const spotifySearchBody = `{"tracks":{"items":[{"id":"1","name":"One More Time",` +
	`"artists":[{"name":"Daft Punk"}],"external_urls":{"spotify":"https://open.spotify.com/track/1"}}],"total":1}}`

type spotifyTestServer struct {
	*httptest.Server
	tokenCalls atomic.Int32
}

func newSpotifyTestServer(t *testing.T, api http.HandlerFunc) *spotifyTestServer {
	t.Helper()

	s := &spotifyTestServer{}
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, _ *http.Request) {
		s.tokenCalls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"spotify-token","token_type":"Bearer","expires_in":3600}`))
	})
	mux.HandleFunc("/v1/", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer spotify-token" {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":{"status":401,"message":"No token provided"}}`))
			return
		}
		api(w, r)
	})
	s.Server = httptest.NewServer(mux)
	t.Cleanup(s.Close)
	return s
}

func newTestSpotifyProvider(s *spotifyTestServer) *SpotifyProvider {
	return NewSpotifyProvider(SpotifyOptions{
		ClientID:     "id",
		ClientSecret: "secret",
		TokenURL:     s.URL + "/token",
		APIURL:       s.URL + "/v1/",
	}, nil, zap.NewNop())
}

func TestSpotifyProvider_SearchTrack(t *testing.T) {
	server := newSpotifyTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/search" {
			http.NotFound(w, r)
			return
		}
		if r.URL.Query().Get("type") != "track" || r.URL.Query().Get("limit") != "1" {
			t.Errorf("unexpected search query %q", r.URL.RawQuery)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(spotifySearchBody))
	})
	provider := newTestSpotifyProvider(server)

	for range 3 {
		url, err := provider.SearchTrack(context.Background(), "Daft Punk", "One More Time")
		if err != nil {
			t.Fatalf("SearchTrack() unexpected error: %v", err)
		}
		if url != "https://open.spotify.com/track/1" {
			t.Errorf("SearchTrack() = %q, want https://open.spotify.com/track/1", url)
		}
	}
	if got := server.tokenCalls.Load(); got != 1 {
		t.Errorf("token endpoint called %d times, want 1", got)
	}
}

func TestSpotifyProvider_SearchTrackRejectsMismatch(t *testing.T) {
	server := newSpotifyTestServer(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(spotifySearchBody))
	})
	provider := newTestSpotifyProvider(server)

	_, err := provider.SearchTrack(context.Background(), "Qqq", "Zzz")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("SearchTrack() error = %v, want ErrNotFound", err)
	}
}

func TestSpotifyProvider_SearchTrackNoResults(t *testing.T) {
	server := newSpotifyTestServer(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"tracks":{"items":[],"total":0}}`))
	})
	provider := newTestSpotifyProvider(server)

	_, err := provider.SearchTrack(context.Background(), "Daft Punk", "One More Time")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("SearchTrack() error = %v, want ErrNotFound", err)
	}
}

func TestSpotifyProvider_GetTrackInfo(t *testing.T) {
	server := newSpotifyTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/tracks/abc123" {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"error":{"status":404,"message":"Not found"}}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"abc123","name":"One More Time","artists":[{"name":"Daft Punk"},{"name":"Romanthony"}]}`))
	})
	provider := newTestSpotifyProvider(server)

	ref, err := provider.GetTrackInfo(context.Background(), "https://open.spotify.com/track/abc123?si=x")
	if err != nil {
		t.Fatalf("GetTrackInfo() unexpected error: %v", err)
	}
	if ref.Artist != "Daft Punk" || ref.Title != "One More Time" {
		t.Errorf("GetTrackInfo() = %+v, want Daft Punk / One More Time", ref)
	}

	_, err = provider.GetTrackInfo(context.Background(), "https://open.spotify.com/track/missing")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("GetTrackInfo(missing) error = %v, want ErrNotFound", err)
	}
}

func TestSpotifyProvider_GetTrackInfoInvalidURL(t *testing.T) {
	server := newSpotifyTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("unexpected API call to %s", r.URL.Path)
	})
	provider := newTestSpotifyProvider(server)

	_, err := provider.GetTrackInfo(context.Background(), "https://open.spotify.com/album/abc123")
	if !errors.Is(err, ErrInvalidURL) {
		t.Errorf("GetTrackInfo() error = %v, want ErrInvalidURL", err)
	}
}

func TestSpotifyProvider_CredentialFailure(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":"invalid_client"}`))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	var observed atomic.Int32
	provider := NewSpotifyProvider(SpotifyOptions{
		ClientID:     "id",
		ClientSecret: "bad",
		TokenURL:     server.URL + "/token",
		APIURL:       server.URL + "/v1/",
		Observer: func(_ Platform, err error) {
			if err != nil {
				observed.Add(1)
			}
		},
	}, nil, zap.NewNop())

	_, err := provider.SearchTrack(context.Background(), "Daft Punk", "One More Time")
	if !errors.Is(err, ErrCredential) {
		t.Errorf("SearchTrack() error = %v, want ErrCredential", err)
	}
	if observed.Load() != 1 {
		t.Errorf("observer saw %d failures, want 1", observed.Load())
	}
}
