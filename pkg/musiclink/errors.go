package musiclink

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
)

var (
	// ErrUnrecognizedPlatform is returned when a URL matches no known platform.
	ErrUnrecognizedPlatform = errors.New("unrecognized platform")
	// ErrInvalidURL is returned when a URL belongs to a platform but lacks the expected identifier.
	ErrInvalidURL = errors.New("invalid track URL")
	// ErrMetadataNotFound is returned when a platform yields no usable artist/title.
	ErrMetadataNotFound = errors.New("track metadata not found")
	// ErrUnsupportedPlatform is returned when no provider is registered for a platform.
	ErrUnsupportedPlatform = errors.New("unsupported platform")
	// ErrCredential is returned when a token cannot be acquired or is rejected.
	ErrCredential = errors.New("credential error")
	// ErrUpstreamUnavailable is returned on transport failures talking to a platform.
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
	// ErrUpstreamTimeout is an ErrUpstreamUnavailable caused by a deadline.
	ErrUpstreamTimeout = fmt.Errorf("%w: timeout", ErrUpstreamUnavailable)
	// ErrNotFound is returned when a search ran but nothing acceptable came back.
	ErrNotFound = errors.New("track not found")
	// ErrUnexpectedFormat is returned when a page title cannot be split into artist and title.
	ErrUnexpectedFormat = fmt.Errorf("%w: unexpected title format", ErrMetadataNotFound)
)

// TrackNotFoundError reports that a track could not be resolved on a platform.
type TrackNotFoundError struct {
	Platform Platform
	Artist   string
	Title    string
	Err      error
}

func (e *TrackNotFoundError) Error() string {
	msg := fmt.Sprintf("track %q by %q not found on %s", e.Title, e.Artist, e.Platform)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *TrackNotFoundError) Unwrap() error {
	return e.Err
}

// classifyTransportError maps a client.Do failure onto the error taxonomy.
func classifyTransportError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrCredential) || errors.Is(err, ErrUpstreamUnavailable) {
		return err
	}

	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return fmt.Errorf("%w: %w", ErrUpstreamTimeout, err)
	}
	return fmt.Errorf("%w: %w", ErrUpstreamUnavailable, err)
}

// statusError maps a non-2xx response status onto the error taxonomy.
func statusError(service string, status int) error {
	switch {
	case status == http.StatusNotFound:
		return fmt.Errorf("%w: %s returned status %d", ErrNotFound, service, status)
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return fmt.Errorf("%w: %s returned status %d", ErrCredential, service, status)
	default:
		return fmt.Errorf("%w: %s returned status %d", ErrUpstreamUnavailable, service, status)
	}
}
