package shiprocket

import (
	"encoding/json"
	"fmt"

	"github.com/pkg/errors"
)

type Kind string

const (
	KindCredentialsMissing    Kind = "credentials_missing"
	KindAuthenticationFailed  Kind = "authentication_failed"
	KindUpstreamRequestFailed Kind = "upstream_request_failed"
	KindTransport             Kind = "transport_error"
)

// Error is returned by every call that reaches (or tries to reach) Shiprocket.
type Error struct {
	Kind     Kind
	Endpoint string
	Status   int
	Body     string
	Cause    error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("shiprocket %s", e.Kind)
	if e.Endpoint != "" {
		msg += " (" + e.Endpoint + ")"
	}
	if e.Status != 0 {
		msg += fmt.Sprintf(": http %d", e.Status)
	}
	if e.Body != "" {
		msg += ": " + truncate(e.Body, 512)
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Cause }

// Is matches on Kind, so errors.Is(err, ErrAuthenticationFailed) works for
// any authentication failure.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

var (
	ErrCredentialsMissing    = &Error{Kind: KindCredentialsMissing}
	ErrAuthenticationFailed  = &Error{Kind: KindAuthenticationFailed}
	ErrUpstreamRequestFailed = &Error{Kind: KindUpstreamRequestFailed}
	ErrTransport             = &Error{Kind: KindTransport}
)

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// ProviderMessage extracts the "message" field Shiprocket puts in most
// error bodies. It returns "" when there is none.
func ProviderMessage(err error) string {
	var se *Error
	if !errors.As(err, &se) || se.Body == "" {
		return ""
	}
	var body struct {
		Message string `json:"message"`
	}
	if json.Unmarshal([]byte(se.Body), &body) != nil {
		return ""
	}
	return body.Message
}

// IsClientRejection reports a non-401 4xx answer from Shiprocket.
func IsClientRejection(err error) bool {
	var se *Error
	if !errors.As(err, &se) {
		return false
	}
	return se.Kind == KindUpstreamRequestFailed && se.Status >= 400 && se.Status < 500
}
