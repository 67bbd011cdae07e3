package sandbox

import (
	"errors"
	"fmt"
)

var (
	ErrUnknownProvider       = errors.New("unknown sandbox provider")
	ErrProviderNotConfigured = errors.New("sandbox provider is not configured")
	ErrInvalidTransition     = errors.New("invalid sandbox state transition")
	ErrCreateFailed          = errors.New("failed to create sandbox")
	ErrSetupFailed           = errors.New("failed to set up app in sandbox")
	ErrTerminateFailed       = errors.New("failed to terminate sandbox")
	ErrCommandFailed         = errors.New("sandbox command failed")
	ErrInvalidOIDCToken      = errors.New("invalid vercel oidc token")
)

// ConfigError reports the credential a provider is missing.
type ConfigError struct {
	Provider Kind
	Variable string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("%s provider is not available: set %s", e.Provider, e.Variable)
}

func (e *ConfigError) Unwrap() error {
	return ErrProviderNotConfigured
}

// APIError is a non-2xx response from a vendor API.
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("sandbox api: status %d", e.Status)
	}
	return fmt.Sprintf("sandbox api: status %d: %s", e.Status, e.Body)
}
