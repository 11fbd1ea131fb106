// Package bvbrc is a small client for the BV-BRC JSON-RPC services used to
// run pipeline stages remotely: the App Service (job submission and
// monitoring) and the Workspace (remote file listing and lookup).
package bvbrc

import "time"

// Production service endpoints.
const (
	DefaultAppServiceURL = "https://p3.theseed.org/services/app_service"
	DefaultWorkspaceURL  = "https://p3.theseed.org/services/Workspace"
)

// Default client settings.
const (
	DefaultTimeout    = 30 * time.Second
	DefaultMaxRetries = 3
	DefaultRetryDelay = 1 * time.Second
)

// Config holds the client endpoints, credentials and retry policy.
type Config struct {
	AppServiceURL string
	WorkspaceURL  string

	// Token is sent verbatim in the Authorization header.
	Token string

	// Timeout bounds a single HTTP round trip.
	Timeout time.Duration

	// MaxRetries is the number of additional attempts for retryable failures.
	// The delay before attempt n is RetryDelay * 2^(n-1).
	MaxRetries int
	RetryDelay time.Duration
}

// DefaultConfig returns a Config pointing at production.
func DefaultConfig() Config {
	return Config{
		AppServiceURL: DefaultAppServiceURL,
		WorkspaceURL:  DefaultWorkspaceURL,
		Timeout:       DefaultTimeout,
		MaxRetries:    DefaultMaxRetries,
		RetryDelay:    DefaultRetryDelay,
	}
}

// WithToken returns a copy of the config with the specified token.
func (c Config) WithToken(token string) Config {
	c.Token = token
	return c
}

// WithRetries returns a copy of the config with the specified retry settings.
func (c Config) WithRetries(maxRetries int, retryDelay time.Duration) Config {
	c.MaxRetries = maxRetries
	c.RetryDelay = retryDelay
	return c
}
