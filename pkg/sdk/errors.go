package sdk

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors returned by the SDK. Callers should test for them with
// errors.Is, since most are wrapped with additional context.
var (
	// ErrNetwork indicates the request never produced a response (dial failure,
	// reset connection, context deadline).
	ErrNetwork = errors.New("network error")

	// ErrInvalidCredentials indicates the backend rejected an email/password login.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrUnauthenticated indicates an authenticated call was rejected because the
	// stored credential is invalid, expired or revoked. The credential has
	// already been cleared when this error is returned.
	ErrUnauthenticated = errors.New("unauthenticated")

	// ErrProfileResolutionFailed indicates login succeeded but the follow-up
	// "who am I" call did not.
	ErrProfileResolutionFailed = errors.New("profile resolution failed")

	// ErrInvalidCredential indicates an attempt to store an incomplete credential.
	ErrInvalidCredential = errors.New("credential requires access token, session id and expiry")

	// ErrNotLoggedIn is returned by operations that need a resolved user.
	ErrNotLoggedIn = errors.New("not logged in")

	// ErrResponseTooLarge indicates a response body exceeded the client's
	// size limit. The body is discarded rather than returned truncated.
	ErrResponseTooLarge = errors.New("response body too large")
)

// RequestError describes a non-2xx response from the backend.
type RequestError struct {
	Method     string
	Path       string
	StatusCode int
	// Message is the backend's "detail" field when present, otherwise a generic
	// description of the status code.
	Message   string
	ErrorCode string
	RequestID string
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("%s %s: %d %s", e.Method, e.Path, e.StatusCode, e.Message)
}

// Unwrap maps 401 responses onto ErrUnauthenticated.
func (e *RequestError) Unwrap() error {
	if e.StatusCode == http.StatusUnauthorized {
		return ErrUnauthenticated
	}
	return nil
}

// ServerMessage returns the backend supplied message for err, or err.Error()
// when err is not a RequestError.
func ServerMessage(err error) string {
	var reqErr *RequestError
	if errors.As(err, &reqErr) {
		return reqErr.Message
	}
	if err == nil {
		return ""
	}
	return err.Error()
}

// StatusCode returns the HTTP status carried by err, or 0.
func StatusCode(err error) int {
	var reqErr *RequestError
	if errors.As(err, &reqErr) {
		return reqErr.StatusCode
	}
	return 0
}
