package llm

import (
	"errors"
	"strconv"
)

// Sentinel error kinds an adapter's ChatCompletion can fail with, per
// spec.md §4.3 / §7. The optimizer distinguishes these: AuthError and
// UnsupportedModel are fatal at startup or mid-run; TransportError is
// surfaced to the caller, which decides whether to abort the current
// operation (the adapter itself never retries across a chat_completion
// call boundary, only within the underlying HTTP round-trip).
var (
	ErrTransport        = errors.New("llm: transport error")
	ErrAuth             = errors.New("llm: authentication rejected")
	ErrUnsupportedModel = errors.New("llm: unsupported model")
)

// TransportError wraps a network/IO failure from the adapter.
type TransportError struct {
	Cause error
}

func (e *TransportError) Error() string { return "llm: transport error: " + e.Cause.Error() }
func (e *TransportError) Unwrap() error { return e.Cause }
func (e *TransportError) Is(target error) bool { return target == ErrTransport }

// AuthError wraps a credential rejection (401/403) from the endpoint.
type AuthError struct {
	StatusCode int
	Body       string
}

func (e *AuthError) Error() string {
	return "llm: auth error (status " + strconv.Itoa(e.StatusCode) + "): " + e.Body
}
func (e *AuthError) Is(target error) bool { return target == ErrAuth }

// UnsupportedModelError reports that the configured model name is not in
// the adapter's recognized set.
type UnsupportedModelError struct {
	Model string
}

func (e *UnsupportedModelError) Error() string        { return "llm: unsupported model: " + e.Model }
func (e *UnsupportedModelError) Is(target error) bool { return target == ErrUnsupportedModel }
