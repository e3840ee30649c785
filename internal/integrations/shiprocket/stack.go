package shiprocket

import (
	"time"

	"github.com/BearBump/ShipBridge/internal/cache"
)

// NewStack wires the authenticator, the per-merchant token cache and the
// client that share one Config. A ttl <= 0 keeps DefaultTokenTTL.
func NewStack(cfg Config, creds CredentialStore, c cache.BytesCache, ttl time.Duration) (*Client, *TokenCache) {
	tokens := NewTokenCache(creds, c, NewAuthenticator(cfg)).
		WithLogger(cfg.Logger).
		WithMetrics(cfg.Metrics).
		WithTTL(ttl)
	return New(cfg, tokens), tokens
}
