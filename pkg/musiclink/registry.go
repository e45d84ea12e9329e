package musiclink

import (
	"fmt"
	"sort"
)

// Registry maps platform tags to providers. It is populated once at startup and
// read-only afterwards, so it is safe for concurrent use.
type Registry struct {
	providers map[Platform]Provider
}

// NewRegistry creates a registry from the given providers. A later provider for
// the same platform replaces an earlier one.
func NewRegistry(providers ...Provider) *Registry {
	r := &Registry{
		providers: make(map[Platform]Provider, len(providers)),
	}
	for _, p := range providers {
		if p == nil {
			continue
		}
		r.providers[p.Platform()] = p
	}
	return r
}

// Provider returns the provider registered for platform.
func (r *Registry) Provider(platform Platform) (Provider, error) {
	p, ok := r.providers[platform]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedPlatform, platform)
	}
	return p, nil
}

// Platforms returns the registered platform tags in sorted order.
func (r *Registry) Platforms() []Platform {
	platforms := make([]Platform, 0, len(r.providers))
	for p := range r.providers {
		platforms = append(platforms, p)
	}
	sort.Slice(platforms, func(i, j int) bool { return platforms[i] < platforms[j] })
	return platforms
}

// CanResolve checks if rawURL belongs to a platform with a registered provider.
func (r *Registry) CanResolve(rawURL string) bool {
	platform, err := Detect(rawURL)
	if err != nil {
		return false
	}
	_, ok := r.providers[platform]
	return ok
}
