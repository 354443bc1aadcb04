package model

import (
	"errors"
	"fmt"
)

var (
	// ErrAuthentication means the portal rejected the credentials: the
	// post-login anti-forgery token matched the pre-login one, so the
	// portal bounced us straight back to the login form.
	ErrAuthentication = errors.New("portal rejected credentials")

	// ErrUnexpectedResponse means the decoder could not find a required
	// marker in the page. Treated as session loss.
	ErrUnexpectedResponse = errors.New("unexpected portal response")

	// ErrNotReady means arming was requested while open sensors exist
	// that are not on the bypass allow-list.
	ErrNotReady = errors.New("system not ready and sensors cannot be bypassed")

	// ErrUnsupportedMode means SetState was called with a mode the
	// portal has no action for.
	ErrUnsupportedMode = errors.New("unsupported arming mode")
)

// NetworkError wraps a transport failure so callers can distinguish
// "portal unreachable" from "portal answered something we reject".
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network: %s: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

func NewNetworkError(op string, err error) *NetworkError {
	return &NetworkError{Op: op, Err: err}
}

// Recoverable reports whether an error should trigger the recovery
// loop. Caller input errors are excluded: they never invalidate the
// session.
func Recoverable(err error) bool {
	var netErr *NetworkError
	if errors.As(err, &netErr) {
		return true
	}
	return errors.Is(err, ErrUnexpectedResponse) || errors.Is(err, ErrAuthentication)
}
