package bsky

import (
	"errors"
	"fmt"

	"github.com/bluesky-social/indigo/xrpc"

	"sidehug/internal/model"
)

// ErrAuth is matched by every authentication failure returned by the client.
var ErrAuth = model.ErrAuth

// AuthError reports a rejected or expired session. It unwraps to ErrAuth.
type AuthError struct {
	Status  int
	Code    string
	Message string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("bsky: auth error status=%d code=%s message=%s", e.Status, e.Code, e.Message)
}

func (e *AuthError) Unwrap() error { return ErrAuth }

// APIError is any other non-2xx XRPC response.
type APIError struct {
	NSID    string
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("bsky: %s failed: status=%d code=%s message=%s", e.NSID, e.Status, e.Code, e.Message)
}

// IsNotFound reports whether err is an XRPC NotFound response.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && (apiErr.Code == "NotFound" || apiErr.Status == 404)
}

var authCodes = map[string]bool{
	"ExpiredToken":           true,
	"InvalidToken":           true,
	"AuthenticationRequired": true,
	"AuthMissing":            true,
	"AccountTakedown":        true,
}

func classifyError(nsid string, status int, code, message string) error {
	if status == 401 || authCodes[code] {
		return &AuthError{Status: status, Code: code, Message: message}
	}
	return &APIError{NSID: nsid, Status: status, Code: code, Message: message}
}

// wrapError turns an indigo status error into AuthError or APIError. Transport
// and decode failures keep their cause.
func wrapError(nsid string, err error) error {
	var xe *xrpc.Error
	if !errors.As(err, &xe) {
		return fmt.Errorf("bsky: %s: %w", nsid, err)
	}
	code, msg := "", ""
	var body *xrpc.XRPCError
	if errors.As(xe.Wrapped, &body) {
		code, msg = body.ErrStr, body.Message
	} else if xe.Wrapped != nil {
		msg = xe.Wrapped.Error()
	}
	return classifyError(nsid, xe.StatusCode, code, msg)
}
