// Package identity implements the identity capability: guests exchange a
// configured identity name for a short-lived access token via OAuth2
// client-credentials, the standard flow for service-to-service auth this
// runtime's deployment environment expects. The reference host's
// wasi-identity crate binds this to a specific cloud identity provider;
// here it is generalised to any OAuth2 token endpoint via AZURE_IDENTITY /
// OAUTH2_* configuration, since no cloud-SDK equivalent exists in this
// repository's dependency pool.
package identity

import (
	"context"
	"sync"
	"time"

	"golang.org/x/oauth2/clientcredentials"

	"github.com/sandhost/capahost/internal/capability"
	"github.com/sandhost/capahost/internal/config"
	"github.com/sandhost/capahost/internal/logger"
)

// AccessToken is the guest-facing token shape.
type AccessToken struct {
	Value     string
	ExpiresAt time.Time
}

// Provider issues access tokens for the configured identity.
type Provider struct {
	identityID string
	conf       *clientcredentials.Config

	mu     sync.Mutex
	cached AccessToken
}

// New creates a Provider for the identity named by cfg.AzureIdentity,
// configured against the OAuth2 client-credentials endpoint in cfg.OAuth2.
func New(cfg config.Config) (*Provider, error) {
	if cfg.AzureIdentity == "" {
		return nil, capability.MissingConfig("AZURE_IDENTITY")
	}
	if cfg.OAuth2.TokenURL == "" {
		return nil, capability.MissingConfig("OAUTH2_TOKEN_URL")
	}

	return &Provider{
		identityID: cfg.AzureIdentity,
		conf: &clientcredentials.Config{
			ClientID:     cfg.OAuth2.ClientID,
			ClientSecret: cfg.OAuth2.ClientSecret,
			TokenURL:     cfg.OAuth2.TokenURL,
		},
	}, nil
}

// AccessToken returns a valid access token for identityID, reusing the
// cached token until it is within 30 seconds of expiry.
func (p *Provider) AccessToken(ctx context.Context, identityID string) (AccessToken, error) {
	if identityID != p.identityID {
		return AccessToken{}, capability.New(capability.KindMissingConfig, "unknown identity: "+identityID)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cached.Value != "" && time.Until(p.cached.ExpiresAt) > 30*time.Second {
		return p.cached, nil
	}

	token, err := p.conf.Token(ctx)
	if err != nil {
		return AccessToken{}, capability.Wrap(capability.KindInternalError, "fetch access token", err)
	}

	p.cached = AccessToken{Value: token.AccessToken, ExpiresAt: token.Expiry}
	logger.Identity().Debug().Str("identity", identityID).Time("expires_at", token.Expiry).Msg("refreshed access token")
	return p.cached, nil
}
