package panel

import (
	"fmt"

	"github.com/rl1809/storefront-bot/internal/core/domain"
)

// APIError wraps any failure talking to the panel. errors.Is(err,
// domain.ErrAPI) holds, and the original cause stays reachable.
type APIError struct {
	Method     string
	Endpoint   string
	StatusCode int
	Err        error
}

func (e *APIError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("panel: %s %s: status %d: %v", e.Method, e.Endpoint, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("panel: %s %s: %v", e.Method, e.Endpoint, e.Err)
}

func (e *APIError) Unwrap() []error {
	return []error{domain.ErrAPI, e.Err}
}

// ProvisioningError carries the panel's message when it refuses to create
// a user.
type ProvisioningError struct {
	Message string
}

func (e *ProvisioningError) Error() string {
	return "panel: user creation rejected: " + e.Message
}

func (e *ProvisioningError) Unwrap() error {
	return domain.ErrProvisioning
}
