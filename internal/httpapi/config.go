package httpapi

import "time"

// maxBodyBytes controls the maximum allowed request body size for JSON endpoints.
var maxBodyBytes int64 = 1 << 20

// SetMaxBodyBytes allows configuring the maximum request body size.
func SetMaxBodyBytes(n int64) {
	if n <= 0 {
		maxBodyBytes = 1 << 20
		return
	}
	maxBodyBytes = n
}

// generationTimeout bounds a completion request end to end.
// Zero means no additional timeout beyond server/connection timeouts.
var generationTimeout time.Duration

// SetGenerationTimeoutSeconds sets the completion timeout in seconds (0 disables).
func SetGenerationTimeoutSeconds(sec int64) {
	if sec < 0 {
		sec = 0
	}
	generationTimeout = time.Duration(sec) * time.Second
}

// CORS configuration (opt-in). If disabled, no CORS middleware is added.
var (
	corsEnabled        bool
	corsAllowedOrigins []string
	corsAllowedMethods []string
	corsAllowedHeaders []string
)

// SetCORSOptions configures CORS behavior for the HTTP server.
func SetCORSOptions(enabled bool, origins, methods, headers []string) {
	corsEnabled = enabled
	corsAllowedOrigins = append([]string(nil), origins...)
	corsAllowedMethods = append([]string(nil), methods...)
	corsAllowedHeaders = append([]string(nil), headers...)
}

// Per-client rate limiting (opt-in). rps <= 0 disables it.
var (
	rateLimitRPS   float64
	rateLimitBurst int
)

// SetRateLimit configures per-client request rate limiting for the /v1 routes.
func SetRateLimit(rps float64, burst int) {
	if burst <= 0 {
		burst = 1
	}
	rateLimitRPS = rps
	rateLimitBurst = burst
}
