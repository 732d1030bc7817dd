// Package config - defaults.go centralizes magic numbers and default values.
//
// DESIGN: All default values that appear in multiple places should be defined here.
// This makes configuration more maintainable and auditable.
package config

import "time"

// =============================================================================
// REFRESH DEFAULTS
// =============================================================================

// DefaultRefreshSec is the time between quota refreshes.
const DefaultRefreshSec = 300

// DefaultHTTPTimeoutSec bounds a single fetch against the monitor API.
const DefaultHTTPTimeoutSec = 20

// MinRefreshSec is the smallest accepted refresh interval.
const MinRefreshSec = 1

// MinHTTPTimeoutSec is the smallest accepted HTTP timeout.
const MinHTTPTimeoutSec = 1

// =============================================================================
// UI DEFAULTS
// =============================================================================

// DefaultTickRate is the cadence of the render/input loop.
// Independent of the refresh interval.
const DefaultTickRate = 250 * time.Millisecond

// DefaultShutdownGrace is how long quitting waits for an outstanding fetch
// before abandoning it.
const DefaultShutdownGrace = 200 * time.Millisecond

// =============================================================================
// AUTH
// =============================================================================

// AuthSchemeRaw sends the token as the bare Authorization header value,
// which is what the monitor endpoints expect.
const AuthSchemeRaw = "raw"

// AuthSchemeBearer sends "Authorization: Bearer <token>".
const AuthSchemeBearer = "bearer"

// DefaultAuthScheme is used when no scheme is configured.
const DefaultAuthScheme = AuthSchemeRaw

// =============================================================================
// PATHS AND ENVIRONMENT
// =============================================================================

// AppName names the config directory under the user's config dir.
const AppName = "glm-usage-monitor"

// ConfigFileName is the config file name inside the config directory.
const ConfigFileName = "config.yaml"

// Environment variables read by Load.
const (
	EnvBaseURL        = "ANTHROPIC_BASE_URL"
	EnvAuthToken      = "ANTHROPIC_AUTH_TOKEN"
	EnvRefreshSec     = "GLM_USAGE_REFRESH_SEC"
	EnvHTTPTimeoutSec = "GLM_USAGE_HTTP_TIMEOUT_SEC"
	EnvAuthScheme     = "GLM_USAGE_AUTH_SCHEME"
)
