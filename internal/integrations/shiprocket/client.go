package shiprocket

import (
	"context"
	"net/http"
	"net/url"

	"go.uber.org/zap"
)

// TokenSource hands out bearer tokens per merchant. TokenCache implements it.
type TokenSource interface {
	Token(ctx context.Context, merchantID int64, forceRefresh bool) (string, error)
}

// Client is the authenticated Shiprocket API consumer. Every call runs on
// behalf of one merchant, whose token is attached as a bearer token.
type Client struct {
	t      *transport
	tokens TokenSource
}

func New(cfg Config, tokens TokenSource) *Client {
	return &Client{t: newTransport(cfg), tokens: tokens}
}

// do issues one request. On HTTP 401 the token is force-refreshed and the
// request is retried exactly once; a second 401 is AuthenticationFailed.
func (c *Client) do(ctx context.Context, merchantID int64, endpoint, method, path string, query url.Values, body, out any) error {
	token, err := c.tokens.Token(ctx, merchantID, false)
	if err != nil {
		return err
	}

	status, raw, err := c.t.send(ctx, endpoint, method, path, token, query, body)
	if err != nil {
		return err
	}

	if status == http.StatusUnauthorized {
		c.t.logger.Info("shiprocket token rejected, refreshing", zap.Int64("merchant_id", merchantID), zap.String("endpoint", endpoint))
		token, err = c.tokens.Token(ctx, merchantID, true)
		if err != nil {
			return err
		}
		status, raw, err = c.t.send(ctx, endpoint, method, path, token, query, body)
		if err != nil {
			return err
		}
		if status == http.StatusUnauthorized {
			return &Error{Kind: KindAuthenticationFailed, Endpoint: endpoint, Status: status, Body: string(raw)}
		}
	}

	if status/100 != 2 {
		return &Error{Kind: KindUpstreamRequestFailed, Endpoint: endpoint, Status: status, Body: string(raw)}
	}
	return decodeInto(endpoint, status, raw, out)
}
