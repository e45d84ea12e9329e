// Package core wires configuration, providers and the resolution flow together.
package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"linkbridge/internal/store"
	"linkbridge/pkg/musiclink"
	"linkbridge/pkg/text"
)

// Outcome is the coarse result class of a resolution, used by callers to pick
// between a "not found" and a "try again" response.
type Outcome string

const (
	OutcomeResolved  Outcome = "resolved"
	OutcomeNotFound  Outcome = "not_found"
	OutcomeInvalid   Outcome = "invalid"
	OutcomeTransient Outcome = "transient"
)

// Resolver runs the detect, fetch metadata, search target flow.
type Resolver struct {
	registry *musiclink.Registry
	cache    *store.MetadataCache
	parser   *text.Parser
	timeout  time.Duration
	logger   *zap.Logger
}

// NewResolver creates a resolver. cache may be nil to disable memoization.
func NewResolver(
	registry *musiclink.Registry,
	cache *store.MetadataCache,
	timeout time.Duration,
	logger *zap.Logger,
) *Resolver {
	if timeout <= 0 {
		timeout = DefaultProviderTimeout
	}
	return &Resolver{
		registry: registry,
		cache:    cache,
		parser:   text.NewParser(),
		timeout:  timeout,
		logger:   logger,
	}
}

// Platforms returns the platforms that have a registered provider.
func (r *Resolver) Platforms() []musiclink.Platform {
	return r.registry.Platforms()
}

// SearchTrack finds artist and title on target.
func (r *Resolver) SearchTrack(ctx context.Context, target musiclink.Platform, artist, title string) (string, error) {
	logger := r.logger.With(
		zap.String("resolutionID", uuid.NewString()),
		zap.String("target", target.String()))

	provider, err := r.registry.Provider(target)
	if err != nil {
		return "", err
	}

	ref := &musiclink.TrackReference{Artist: strings.TrimSpace(artist), Title: strings.TrimSpace(title)}
	if !ref.Valid() {
		return "", fmt.Errorf("%w: artist and title are required", musiclink.ErrMetadataNotFound)
	}

	return r.search(ctx, logger, provider, ref)
}

// GetLink translates link, which may be surrounded by share text, into the
// matching track URL on target.
func (r *Resolver) GetLink(ctx context.Context, link string, target musiclink.Platform) (string, error) {
	link = r.sourceLink(link)
	logger := r.logger.With(
		zap.String("resolutionID", uuid.NewString()),
		zap.String("target", target.String()),
		zap.String("link", link))

	source, err := musiclink.Detect(link)
	if err != nil {
		logger.Debug("Source platform not detected", zap.Error(err))
		return "", err
	}
	logger = logger.With(zap.String("source", source.String()))

	targetProvider, err := r.registry.Provider(target)
	if err != nil {
		return "", err
	}
	sourceProvider, err := r.registry.Provider(source)
	if err != nil {
		return "", err
	}

	ref, err := r.trackInfo(ctx, logger, sourceProvider, link)
	if err != nil {
		return "", err
	}

	return r.search(ctx, logger, targetProvider, ref)
}

// sourceLink picks the link to translate out of share text: the first URL whose
// platform has a provider, else the first URL on any known platform, else the
// trimmed text itself.
func (r *Resolver) sourceLink(text string) string {
	msg := r.parser.ParseMessage(text)
	for _, u := range msg.URLs {
		if r.registry.CanResolve(u) {
			return u
		}
	}
	link, _ := r.parser.ExtractLink(text)
	return link
}

// trackInfo fetches the source metadata, consulting the memo first.
func (r *Resolver) trackInfo(
	ctx context.Context,
	logger *zap.Logger,
	provider musiclink.Provider,
	link string,
) (*musiclink.TrackReference, error) {
	source := provider.Platform()
	if cached, ok := r.cache.Get(source, link); ok {
		logger.Debug("Metadata cache hit")
		return &cached, nil
	}

	callCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	started := time.Now()
	ref, err := provider.GetTrackInfo(callCtx, link)
	if err != nil {
		logger.Info("Failed to fetch source metadata",
			zap.Duration("elapsed", time.Since(started)),
			zap.Error(err))
		if !errors.Is(err, musiclink.ErrInvalidURL) && !errors.Is(err, musiclink.ErrMetadataNotFound) {
			err = fmt.Errorf("%w: %w", musiclink.ErrMetadataNotFound, err)
		}
		return nil, &musiclink.TrackNotFoundError{Platform: source, Err: err}
	}
	if !ref.Valid() {
		logger.Info("Source metadata is incomplete")
		return nil, fmt.Errorf("%w: %s returned an empty artist or title", musiclink.ErrMetadataNotFound, source)
	}

	logger.Debug("Fetched source metadata",
		zap.String("artist", ref.Artist),
		zap.String("title", ref.Title),
		zap.Duration("elapsed", time.Since(started)))
	r.cache.Add(source, link, ref)
	return ref, nil
}

func (r *Resolver) search(
	ctx context.Context,
	logger *zap.Logger,
	provider musiclink.Provider,
	ref *musiclink.TrackReference,
) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	started := time.Now()
	url, err := provider.SearchTrack(callCtx, ref.Artist, ref.Title)
	if err == nil && url == "" {
		err = musiclink.ErrNotFound
	}
	if err != nil {
		logger.Info("Target search failed",
			zap.String("artist", ref.Artist),
			zap.String("title", ref.Title),
			zap.Duration("elapsed", time.Since(started)),
			zap.Error(err))
		return "", &musiclink.TrackNotFoundError{
			Platform: provider.Platform(),
			Artist:   ref.Artist,
			Title:    ref.Title,
			Err:      err,
		}
	}

	logger.Info("Resolved track",
		zap.String("url", url),
		zap.Duration("elapsed", time.Since(started)))
	return url, nil
}

// Classify maps a resolution error onto an Outcome. Credential and transport
// failures are transient; everything the caller can fix or that simply does
// not exist is final.
func Classify(err error) Outcome {
	switch {
	case err == nil:
		return OutcomeResolved
	case errors.Is(err, musiclink.ErrCredential),
		errors.Is(err, musiclink.ErrUpstreamUnavailable),
		errors.Is(err, context.DeadlineExceeded):
		return OutcomeTransient
	case errors.Is(err, musiclink.ErrUnrecognizedPlatform),
		errors.Is(err, musiclink.ErrInvalidURL),
		errors.Is(err, musiclink.ErrUnsupportedPlatform):
		return OutcomeInvalid
	case errors.Is(err, musiclink.ErrMetadataNotFound),
		errors.Is(err, musiclink.ErrNotFound):
		return OutcomeNotFound
	}

	var notFound *musiclink.TrackNotFoundError
	if errors.As(err, &notFound) && notFound.Err == nil {
		return OutcomeNotFound
	}
	return OutcomeTransient
}

// ErrorKind names the failure kind of err without exposing upstream detail.
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, musiclink.ErrCredential):
		return "credential_error"
	case errors.Is(err, musiclink.ErrUpstreamTimeout), errors.Is(err, context.DeadlineExceeded):
		return "upstream_timeout"
	case errors.Is(err, musiclink.ErrUpstreamUnavailable):
		return "upstream_unavailable"
	case errors.Is(err, musiclink.ErrUnrecognizedPlatform):
		return "unrecognized_platform"
	case errors.Is(err, musiclink.ErrInvalidURL):
		return "invalid_url"
	case errors.Is(err, musiclink.ErrUnsupportedPlatform):
		return "unsupported_platform"
	case errors.Is(err, musiclink.ErrMetadataNotFound):
		return "metadata_not_found"
	}

	var notFound *musiclink.TrackNotFoundError
	if errors.As(err, &notFound) || errors.Is(err, musiclink.ErrNotFound) {
		return "track_not_found"
	}
	return "internal"
}
