package auth

import (
	"context"
	"errors"
	"net"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/sync/singleflight"

	apperrors "kindred/backend/pkg/errors"
)

// Identity is the verified identity behind a bearer token. It is produced per
// request and never stored as is.
type Identity struct {
	Subject           string `json:"sub"`
	Email             string `json:"email,omitempty"`
	EmailVerified     bool   `json:"email_verified"`
	PreferredUsername string `json:"preferred_username,omitempty"`
	Name              string `json:"name,omitempty"`
}

// DisplayName is the name claim, or the preferred username when the provider
// sends no name
func (i Identity) DisplayName() string {
	if strings.TrimSpace(i.Name) != "" {
		return i.Name
	}
	return i.PreferredUsername
}

// Resolver turns a bearer token into a verified Identity
type Resolver interface {
	Verify(ctx context.Context, token string) (*Identity, error)
}

// OIDCResolver resolves tokens against an OpenID Connect provider's userinfo
// endpoint. Provider discovery happens on first use and is retried until it
// succeeds.
type OIDCResolver struct {
	issuer   string
	clientID string
	timeout  time.Duration
	logger   *zap.Logger

	mu        sync.Mutex
	provider  *oidc.Provider
	discovery singleflight.Group
}

// NewOIDCResolver creates a resolver for issuer. It does not contact the
// provider.
func NewOIDCResolver(issuer, clientID string, timeout time.Duration, log *zap.Logger) *OIDCResolver {
	return &OIDCResolver{
		issuer:   issuer,
		clientID: clientID,
		timeout:  timeout,
		logger:   log,
	}
}

func (r *OIDCResolver) cached() *oidc.Provider {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.provider
}

// discover returns the cached provider or joins the one discovery in flight.
// The shared attempt is not tied to any single caller's cancellation; each
// caller stops waiting when its own ctx is done.
func (r *OIDCResolver) discover(ctx context.Context) (*oidc.Provider, error) {
	if provider := r.cached(); provider != nil {
		return provider, nil
	}

	ch := r.discovery.DoChan(r.issuer, func() (any, error) {
		if provider := r.cached(); provider != nil {
			return provider, nil
		}
		dctx, cancel := r.withTimeout(context.WithoutCancel(ctx))
		defer cancel()

		provider, err := oidc.NewProvider(dctx, r.issuer)
		if err != nil {
			r.logger.Warn("OIDC discovery failed", zap.String("issuer", r.issuer), zap.Error(err))
			return nil, err
		}
		r.mu.Lock()
		r.provider = provider
		r.mu.Unlock()
		r.logger.Info("OIDC provider discovered", zap.String("issuer", r.issuer))
		return provider, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, apperrors.NewAuthUnreachable(res.Err)
		}
		return res.Val.(*oidc.Provider), nil
	case <-ctx.Done():
		return nil, apperrors.NewAuthUnreachable(ctx.Err())
	}
}

func (r *OIDCResolver) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if r.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, r.timeout)
}

// Verify fetches the userinfo for token. A rejected token is an invalid
// credential; a provider that cannot be reached is reported as unreachable.
func (r *OIDCResolver) Verify(ctx context.Context, token string) (*Identity, error) {
	if strings.TrimSpace(token) == "" {
		return nil, apperrors.NewAuthInvalid("missing bearer token", nil)
	}

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	provider, err := r.discover(ctx)
	if err != nil {
		return nil, err
	}

	info, err := provider.UserInfo(ctx, oauth2.StaticTokenSource(&oauth2.Token{
		AccessToken: token,
		TokenType:   "Bearer",
	}))
	if err != nil {
		if isUnreachable(err) {
			r.logger.Warn("Userinfo endpoint unreachable", zap.Error(err))
			return nil, apperrors.NewAuthUnreachable(err)
		}
		r.logger.Warn("Token rejected", zap.Error(err))
		return nil, apperrors.NewAuthInvalid("invalid authentication credentials", err)
	}

	var claims struct {
		PreferredUsername string `json:"preferred_username"`
		Name              string `json:"name"`
	}
	if err := info.Claims(&claims); err != nil {
		return nil, apperrors.NewAuthInvalid("cannot parse userinfo claims", err)
	}

	return &Identity{
		Subject:           info.Subject,
		Email:             info.Email,
		EmailVerified:     info.EmailVerified,
		PreferredUsername: claims.PreferredUsername,
		Name:              claims.Name,
	}, nil
}

// AuthorizationURL returns the provider's login URL for this client
func (r *OIDCResolver) AuthorizationURL(ctx context.Context, redirectURL, state string) (string, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	provider, err := r.discover(ctx)
	if err != nil {
		return "", err
	}

	cfg := oauth2.Config{
		ClientID:    r.clientID,
		Endpoint:    provider.Endpoint(),
		RedirectURL: redirectURL,
		Scopes:      []string{oidc.ScopeOpenID, "profile", "email"},
	}
	return cfg.AuthCodeURL(state), nil
}

// isUnreachable reports transport failures and provider-side 5xx responses
func isUnreachable(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return true
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	// go-oidc reports non-200 userinfo responses as "<status>: <body>"
	return strings.HasPrefix(err.Error(), "5")
}
