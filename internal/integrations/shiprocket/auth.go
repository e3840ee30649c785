package shiprocket

import (
	"context"
	"net/http"
	"strings"
)

const endpointLogin = "auth/login"

// Authenticator exchanges merchant credentials for a bearer token.
type Authenticator struct {
	t *transport
}

func NewAuthenticator(cfg Config) *Authenticator {
	return &Authenticator{t: newTransport(cfg)}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string `json:"token"`
}

// Login returns AuthenticationFailed with the provider body on any non-2xx
// answer or when the answer carries no token.
func (a *Authenticator) Login(ctx context.Context, email, password string) (string, error) {
	status, raw, err := a.t.send(ctx, endpointLogin, http.MethodPost, endpointLogin, "", nil, loginRequest{
		Email:    email,
		Password: password,
	})
	if err != nil {
		return "", err
	}
	if status/100 != 2 {
		return "", &Error{Kind: KindAuthenticationFailed, Endpoint: endpointLogin, Status: status, Body: string(raw)}
	}

	var resp loginResponse
	if err := decodeInto(endpointLogin, status, raw, &resp); err != nil {
		return "", err
	}
	if strings.TrimSpace(resp.Token) == "" {
		return "", &Error{Kind: KindAuthenticationFailed, Endpoint: endpointLogin, Status: status, Body: string(raw)}
	}
	return resp.Token, nil
}
