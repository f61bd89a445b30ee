package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDAPAPIKey_FallsBackToDemoKey(t *testing.T) {
	t.Setenv(EnvDAPAPIKey, "")
	key, configured := DAPAPIKey()
	assert.Equal(t, DAPDemoKey, key)
	assert.False(t, configured)
}

func TestDAPAPIKey_UsesEnv(t *testing.T) {
	t.Setenv(EnvDAPAPIKey, "real-key")
	key, configured := DAPAPIKey()
	assert.Equal(t, "real-key", key)
	assert.True(t, configured)
}

func TestCloudflareAPIKey(t *testing.T) {
	t.Setenv(EnvCloudflareAPIKey, "")
	assert.Empty(t, CloudflareAPIKey())

	t.Setenv(EnvCloudflareAPIKey, "token123")
	assert.Equal(t, "token123", CloudflareAPIKey())
}
