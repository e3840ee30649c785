package shiprocket

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/BearBump/ShipBridge/internal/cache"
	"github.com/BearBump/ShipBridge/internal/models"
	"github.com/BearBump/ShipBridge/internal/telemetry"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

const DefaultTokenTTL = time.Hour

type CredentialStore interface {
	GetCredential(ctx context.Context, merchantID int64) (*models.Credential, error)
}

type Loginer interface {
	Login(ctx context.Context, email, password string) (string, error)
}

// TokenCache keeps one bearer token per merchant in a BytesCache.
// Concurrent refreshes for the same merchant are not coordinated; the last
// writer wins and every written token is valid.
type TokenCache struct {
	creds   CredentialStore
	cache   cache.BytesCache
	login   Loginer
	ttl     time.Duration
	now     func() time.Time
	logger  *zap.Logger
	metrics *telemetry.Metrics
}

func NewTokenCache(creds CredentialStore, c cache.BytesCache, login Loginer) *TokenCache {
	return &TokenCache{
		creds:  creds,
		cache:  c,
		login:  login,
		ttl:    DefaultTokenTTL,
		now:    time.Now,
		logger: zap.NewNop(),
	}
}

func (tc *TokenCache) WithTTL(ttl time.Duration) *TokenCache {
	if ttl > 0 {
		tc.ttl = ttl
	}
	return tc
}

func (tc *TokenCache) WithClock(now func() time.Time) *TokenCache {
	if now != nil {
		tc.now = now
	}
	return tc
}

func (tc *TokenCache) WithLogger(l *zap.Logger) *TokenCache {
	if l != nil {
		tc.logger = l
	}
	return tc
}

func (tc *TokenCache) WithMetrics(m *telemetry.Metrics) *TokenCache {
	tc.metrics = m
	return tc
}

func tokenKey(merchantID int64) string {
	return fmt.Sprintf("shiprocket:token:%d", merchantID)
}

// Token returns a bearer token for the merchant, logging in on a miss, on
// expiry or when forceRefresh is set.
func (tc *TokenCache) Token(ctx context.Context, merchantID int64, forceRefresh bool) (string, error) {
	if !forceRefresh {
		if tok, ok := tc.cached(ctx, merchantID); ok {
			return tok, nil
		}
	}

	cred, err := tc.creds.GetCredential(ctx, merchantID)
	if errors.Is(err, models.ErrNotFound) || (err == nil && cred == nil) {
		return "", &Error{Kind: KindCredentialsMissing, Body: fmt.Sprintf("no shiprocket credentials for merchant %d", merchantID)}
	}
	if err != nil {
		return "", errors.Wrap(err, "load credential")
	}

	token, err := tc.login.Login(ctx, cred.Email, cred.Secret)
	if err != nil {
		tc.metrics.RecordTokenRefresh("failed")
		return "", err
	}
	tc.metrics.RecordTokenRefresh("ok")

	b, err := json.Marshal(models.CachedToken{
		MerchantID: merchantID,
		Token:      token,
		ExpiresAt:  tc.now().Add(tc.ttl).UTC(),
	})
	if err != nil {
		return "", errors.Wrap(err, "marshal token")
	}
	if err := tc.cache.Set(ctx, tokenKey(merchantID), b, tc.ttl); err != nil {
		tc.logger.Warn("token cache write failed", zap.Int64("merchant_id", merchantID), zap.Error(err))
	}
	return token, nil
}

func (tc *TokenCache) cached(ctx context.Context, merchantID int64) (string, bool) {
	b, ok, err := tc.cache.Get(ctx, tokenKey(merchantID))
	if err != nil {
		tc.logger.Warn("token cache read failed", zap.Int64("merchant_id", merchantID), zap.Error(err))
		return "", false
	}
	if !ok {
		return "", false
	}
	var ct models.CachedToken
	if json.Unmarshal(b, &ct) != nil || ct.Token == "" {
		return "", false
	}
	if !tc.now().Before(ct.ExpiresAt) {
		return "", false
	}
	return ct.Token, true
}

// Invalidate drops the cached token, e.g. after the credentials change.
func (tc *TokenCache) Invalidate(ctx context.Context, merchantID int64) error {
	return errors.Wrap(tc.cache.Del(ctx, tokenKey(merchantID)), "invalidate token")
}
