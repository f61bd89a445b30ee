// Package config provides environment-backed configuration for the
// collector. API credentials are always optional: absence degrades the
// affected adapter (warning plus reduced functionality or a skipped fetch),
// never the run.
package config

import "os"

// Environment variable names for per-source credentials.
const (
	EnvDAPAPIKey        = "DAP_API_KEY"
	EnvCloudflareAPIKey = "CLOUDFLARE_RADAR_API_KEY"
)

// DAPDemoKey is api.data.gov's public key, usable without registration but
// with strict rate limits.
const DAPDemoKey = "DEMO_KEY"

// DefaultDataDir is the default storage root for partition files.
const DefaultDataDir = "data"

// DAPAPIKey returns the GSA Analytics API key and whether a real key (not
// the public demo fallback) is configured.
func DAPAPIKey() (string, bool) {
	if key := os.Getenv(EnvDAPAPIKey); key != "" {
		return key, true
	}
	return DAPDemoKey, false
}

// CloudflareAPIKey returns the Cloudflare Radar API token, empty when not
// configured. There is no public fallback; the adapter warns and yields no
// data without it.
func CloudflareAPIKey() string {
	return os.Getenv(EnvCloudflareAPIKey)
}
