package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"linkbridge/internal/core"
	"linkbridge/pkg/musiclink"
)

const (
	opSearchTrack     = "search_track"
	opGetLink         = "get_link"
	opGetRedirectLink = "get_redirect_link"

	notFoundText  = "Not found"
	retryText     = "Search error, repeat again please"
	fallbackTitle = "linkbridge"
)

// searchFailure is the body of a failed /search_track.
type searchFailure struct {
	Platform string `json:"platform"`
	Artist   string `json:"artist"`
	Title    string `json:"title"`
	Error    string `json:"error"`
}

// linkFailure is the body of a failed /get_link.
type linkFailure struct {
	Link       string `json:"link"`
	ToPlatform string `json:"to_platform"`
	Error      string `json:"error"`
}

type badRequest struct {
	Error string `json:"error"`
}

func (s *Server) handleSearchTrack(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	rawPlatform := q.Get("platform")
	artist, title := q.Get("artist"), q.Get("title")

	if strings.TrimSpace(rawPlatform) == "" {
		writeJSON(w, http.StatusBadRequest, badRequest{Error: "parameter platform must be defined"})
		return
	}

	started := time.Now()
	url, err := s.searchTrack(r, rawPlatform, artist, title)
	s.record(opSearchTrack, err, started)

	if err != nil {
		s.logFailure(r, opSearchTrack, err)
		writeJSON(w, http.StatusNotFound, searchFailure{
			Platform: rawPlatform,
			Artist:   artist,
			Title:    title,
			Error:    core.ErrorKind(err),
		})
		return
	}
	writeText(w, url)
}

func (s *Server) searchTrack(r *http.Request, rawPlatform, artist, title string) (string, error) {
	target, ok := musiclink.ParsePlatform(rawPlatform)
	if !ok {
		return "", fmt.Errorf("%w: %s", musiclink.ErrUnsupportedPlatform, rawPlatform)
	}
	return s.resolver.SearchTrack(r.Context(), target, artist, title)
}

func (s *Server) handleGetLink(w http.ResponseWriter, r *http.Request) {
	link, rawTarget, ok := linkParams(w, r)
	if !ok {
		return
	}

	started := time.Now()
	url, err := s.getLink(r, link, rawTarget)
	s.record(opGetLink, err, started)

	if err != nil {
		s.logFailure(r, opGetLink, err)
		writeJSON(w, http.StatusNotFound, linkFailure{
			Link:       link,
			ToPlatform: rawTarget,
			Error:      core.ErrorKind(err),
		})
		return
	}
	writeText(w, url)
}

// handleGetRedirectLink redirects to the translated link. Failures never
// propagate a status code; a small page says whether retrying may help.
func (s *Server) handleGetRedirectLink(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	link, rawTarget := q.Get("link"), q.Get("to_platform")

	started := time.Now()
	var (
		url string
		err error
	)
	if strings.TrimSpace(link) == "" || strings.TrimSpace(rawTarget) == "" {
		err = fmt.Errorf("%w: link and to_platform are required", musiclink.ErrInvalidURL)
	} else {
		url, err = s.getLink(r, link, rawTarget)
	}
	s.record(opGetRedirectLink, err, started)

	if err == nil {
		http.Redirect(w, r, url, http.StatusFound)
		return
	}

	s.logFailure(r, opGetRedirectLink, err)
	message := notFoundText
	if core.Classify(err) == core.OutcomeTransient {
		message = retryText
	}
	writeFallbackPage(w, message)
}

func (s *Server) getLink(r *http.Request, link, rawTarget string) (string, error) {
	target, ok := musiclink.ParsePlatform(rawTarget)
	if !ok {
		return "", fmt.Errorf("%w: %s", musiclink.ErrUnsupportedPlatform, rawTarget)
	}
	return s.resolver.GetLink(r.Context(), link, target)
}

func linkParams(w http.ResponseWriter, r *http.Request) (link, target string, ok bool) {
	q := r.URL.Query()
	link, target = q.Get("link"), q.Get("to_platform")

	if strings.TrimSpace(target) == "" {
		writeJSON(w, http.StatusBadRequest, badRequest{Error: "parameter to_platform must be defined"})
		return "", "", false
	}
	if strings.TrimSpace(link) == "" {
		writeJSON(w, http.StatusBadRequest, badRequest{Error: "parameter link must be defined"})
		return "", "", false
	}
	return link, target, true
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "service": "linkbridge"})
}

func (s *Server) handleReady(w http.ResponseWriter, _ *http.Request) {
	platforms := s.resolver.Platforms()
	if len(platforms) == 0 {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{"status": "no providers"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ready", "platforms": platforms})
}

func (s *Server) handleIndex(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`<!DOCTYPE html>
<html>
<head>
    <title>linkbridge</title>
    <style>
        body { font-family: Arial, sans-serif; margin: 40px; }
        .endpoint { margin: 10px 0; font-family: monospace; }
    </style>
</head>
<body>
    <h1>linkbridge</h1>
    <p>Translate a track link from one streaming platform to another.</p>

    <h2>Endpoints</h2>
    <div class="endpoint">/search_track?platform=&amp;artist=&amp;title=</div>
    <div class="endpoint">/get_link?link=&amp;to_platform=</div>
    <div class="endpoint">/get_redirect_link?link=&amp;to_platform=</div>
    <div class="endpoint"><a href="/metrics">/metrics</a> <a href="/healthz">/healthz</a> <a href="/readyz">/readyz</a></div>
</body>
</html>`))
}

func (s *Server) record(operation string, err error, started time.Time) {
	s.metrics.RecordRequest(operation, string(core.Classify(err)), time.Since(started))
}

func (s *Server) logFailure(r *http.Request, operation string, err error) {
	s.logger.Info("Resolution failed",
		zap.String("requestID", middleware.GetReqID(r.Context())),
		zap.String("operation", operation),
		zap.String("kind", core.ErrorKind(err)),
		zap.String("outcome", string(core.Classify(err))),
		zap.Error(err))
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeText(w http.ResponseWriter, body string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(body))
}

// writeFallbackPage renders one of the fixed failure messages; message is never user input.
func writeFallbackPage(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = fmt.Fprintf(w, `<!DOCTYPE html>
<html>
<head><title>%s</title></head>
<body>
    <h1>%s</h1>
</body>
</html>`, fallbackTitle, message)
}
