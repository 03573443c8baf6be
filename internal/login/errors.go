package login

import "fmt"

// Stable flow error codes. They are safe to expose to clients; details
// stay in the logs.
const (
	CodeRequestMissing     = "authorization_request_missing"
	CodeProviderMismatch   = "provider_mismatch"
	CodeStateMismatch      = "state_mismatch"
	CodeRedirectRejected   = "redirect_uri_rejected"
	CodeRedirectUndecided  = "redirect_uri_undetermined"
	CodeInvalidCallback    = "invalid_callback"
	CodeAuthenticationFail = "authentication_failed"
)

// FlowError is a described failure of a login attempt, carrying a stable
// code for the client and the underlying cause for the logs.
type FlowError struct {
	Code  string
	cause error
}

// NewFlowError wraps a cause with a stable code.
func NewFlowError(code string, cause error) *FlowError {
	return &FlowError{Code: code, cause: cause}
}

func (e *FlowError) Error() string {
	if e.cause == nil {
		return e.Code
	}
	return fmt.Sprintf("%s: %v", e.Code, e.cause)
}

func (e *FlowError) Unwrap() error {
	return e.cause
}
