package musiclink

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
	"golang.org/x/sync/singleflight"
)

const (
	// DefaultExpirySkew is subtracted from a credential's expiry before it is trusted.
	DefaultExpirySkew = 10 * time.Second
	// DefaultSignedTokenLifetime is the validity of a locally minted signed assertion.
	DefaultSignedTokenLifetime = 24 * time.Hour
	// defaultOpaqueTokenLifetime applies when an auth server omits expires_in.
	defaultOpaqueTokenLifetime = time.Hour
	// refreshKey is the single-flight key; one cache guards one credential.
	refreshKey = "refresh"
)

// Credential is one issued bearer token.
type Credential struct {
	AccessToken string
	ExpiresAt   time.Time
}

func (c *Credential) usable(now time.Time, skew time.Duration) bool {
	return c != nil && c.AccessToken != "" && now.Before(c.ExpiresAt.Add(-skew))
}

// CredentialSource issues fresh credentials.
type CredentialSource interface {
	Fetch(ctx context.Context) (*Credential, error)
}

// RefreshObserver is notified after every refresh attempt.
type RefreshObserver func(platform Platform, err error)

// TokenCache lazily refreshes a provider's bearer token. Concurrent callers that
// observe an expired credential share a single in-flight refresh.
type TokenCache struct {
	platform Platform
	source   CredentialSource
	skew     time.Duration
	now      func() time.Time
	logger   *zap.Logger
	observer RefreshObserver

	mu    sync.RWMutex
	cred  *Credential
	group singleflight.Group
}

// TokenCacheOption configures a TokenCache.
type TokenCacheOption func(*TokenCache)

// WithExpirySkew overrides DefaultExpirySkew.
func WithExpirySkew(skew time.Duration) TokenCacheOption {
	return func(c *TokenCache) { c.skew = skew }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) TokenCacheOption {
	return func(c *TokenCache) { c.now = now }
}

// WithTokenLogger sets the logger used for refresh events.
func WithTokenLogger(logger *zap.Logger) TokenCacheOption {
	return func(c *TokenCache) { c.logger = logger }
}

// WithRefreshObserver registers a callback invoked after each refresh attempt.
func WithRefreshObserver(observer RefreshObserver) TokenCacheOption {
	return func(c *TokenCache) { c.observer = observer }
}

// NewTokenCache creates a cache for platform backed by source.
func NewTokenCache(platform Platform, source CredentialSource, opts ...TokenCacheOption) *TokenCache {
	c := &TokenCache{
		platform: platform,
		source:   source,
		skew:     DefaultExpirySkew,
		now:      time.Now,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Token returns a usable access token, refreshing it first when the cached one
// is missing or within the skew of its expiry.
func (c *TokenCache) Token(ctx context.Context) (string, error) {
	if cred := c.current(); cred.usable(c.now(), c.skew) {
		return cred.AccessToken, nil
	}

	v, err, _ := c.group.Do(refreshKey, func() (interface{}, error) {
		// A flight that finished just before this one may already have refreshed.
		if cred := c.current(); cred.usable(c.now(), c.skew) {
			return cred, nil
		}
		return c.refresh(context.WithoutCancel(ctx))
	})
	if err != nil {
		return "", err
	}
	return v.(*Credential).AccessToken, nil
}

// Invalidate drops the cached credential so that the next Token call refreshes.
func (c *TokenCache) Invalidate() {
	c.mu.Lock()
	c.cred = nil
	c.mu.Unlock()
}

func (c *TokenCache) current() *Credential {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.cred
}

func (c *TokenCache) refresh(ctx context.Context) (*Credential, error) {
	cred, err := c.source.Fetch(ctx)
	if err == nil && (cred == nil || cred.AccessToken == "") {
		err = errors.New("empty access token")
	}
	if c.observer != nil {
		c.observer(c.platform, err)
	}
	if err != nil {
		c.logger.Warn("Token refresh failed",
			zap.String("platform", c.platform.String()),
			zap.Error(err))
		return nil, fmt.Errorf("%w: %s: %w", ErrCredential, c.platform, err)
	}

	c.mu.Lock()
	c.cred = cred
	c.mu.Unlock()

	c.logger.Debug("Token refreshed",
		zap.String("platform", c.platform.String()),
		zap.Time("expiresAt", cred.ExpiresAt))
	return cred, nil
}

// OAuth2 exposes the cache as an oauth2.TokenSource. Every call goes through
// Token, so an oauth2.Transport built on it consults the cache before each request.
func (c *TokenCache) OAuth2() oauth2.TokenSource {
	return cacheTokenSource{cache: c}
}

type cacheTokenSource struct {
	cache *TokenCache
}

func (s cacheTokenSource) Token() (*oauth2.Token, error) {
	token, err := s.cache.Token(context.Background())
	if err != nil {
		return nil, err
	}
	return &oauth2.Token{AccessToken: token, TokenType: "Bearer"}, nil
}

// ClientCredentialsSource exchanges a client id and secret for an opaque bearer token.
type ClientCredentialsSource struct {
	config *clientcredentials.Config
	client *http.Client
	now    func() time.Time
}

// NewClientCredentialsSource creates a source that posts to tokenURL using client.
func NewClientCredentialsSource(clientID, clientSecret, tokenURL string, client *http.Client) *ClientCredentialsSource {
	return &ClientCredentialsSource{
		config: &clientcredentials.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			TokenURL:     tokenURL,
			AuthStyle:    oauth2.AuthStyleInHeader,
		},
		client: client,
		now:    time.Now,
	}
}

// Fetch performs one client-credentials exchange.
func (s *ClientCredentialsSource) Fetch(ctx context.Context) (*Credential, error) {
	if s.client != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, s.client)
	}

	token, err := s.config.Token(ctx)
	if err != nil {
		return nil, err
	}

	expiresAt := token.Expiry
	if expiresAt.IsZero() {
		expiresAt = s.now().Add(defaultOpaqueTokenLifetime)
	}
	return &Credential{AccessToken: token.AccessToken, ExpiresAt: expiresAt}, nil
}

// SignedAssertionSource mints ES256 developer tokens locally from a private key.
type SignedAssertionSource struct {
	teamID   string
	keyID    string
	key      *ecdsa.PrivateKey
	lifetime time.Duration
	now      func() time.Time
}

// NewSignedAssertionSource parses a PEM encoded EC private key. A lifetime of
// zero selects DefaultSignedTokenLifetime.
func NewSignedAssertionSource(teamID, keyID string, pemKey []byte, lifetime time.Duration) (*SignedAssertionSource, error) {
	if teamID == "" || keyID == "" {
		return nil, errors.New("team id and key id are required")
	}
	key, err := jwt.ParseECPrivateKeyFromPEM(pemKey)
	if err != nil {
		return nil, fmt.Errorf("failed to parse signing key: %w", err)
	}
	if lifetime <= 0 {
		lifetime = DefaultSignedTokenLifetime
	}

	return &SignedAssertionSource{
		teamID:   teamID,
		keyID:    keyID,
		key:      key,
		lifetime: lifetime,
		now:      time.Now,
	}, nil
}

// Fetch signs a new token valid for the configured lifetime.
func (s *SignedAssertionSource) Fetch(_ context.Context) (*Credential, error) {
	issuedAt := s.now()
	expiresAt := issuedAt.Add(s.lifetime)

	token := jwt.NewWithClaims(jwt.SigningMethodES256, jwt.RegisteredClaims{
		Issuer:    s.teamID,
		IssuedAt:  jwt.NewNumericDate(issuedAt),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	})
	token.Header["kid"] = s.keyID

	signed, err := token.SignedString(s.key)
	if err != nil {
		return nil, fmt.Errorf("failed to sign token: %w", err)
	}
	return &Credential{AccessToken: signed, ExpiresAt: expiresAt}, nil
}
