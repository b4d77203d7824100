package channelconfig

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const defaultsYAML = `
channels:
  BookingCom:
    base_url: https://supply.example.test/api
    credentials:
      username: integrator
      password: s3cret
    sync:
      batch_size: 100
      timeout: 15s
  hotelbeds:
    credentials:
      api_key: hb-key
`

func TestParseDefaults(t *testing.T) {
	p, err := ParseDefaults([]byte(defaultsYAML))
	require.NoError(t, err)

	d, ok := p.Defaults("bookingcom")
	require.True(t, ok)
	assert.Equal(t, "https://supply.example.test/api", d.BaseURL)
	assert.Equal(t, "integrator", d.Credentials.Username)
	assert.Equal(t, 100, d.Sync.BatchSize)
	assert.Equal(t, 15*time.Second, d.Sync.Timeout)

	_, ok = p.Defaults("expedia")
	assert.False(t, ok)
}

func TestParseDefaultsRejectsGarbage(t *testing.T) {
	_, err := ParseDefaults([]byte("channels: [1, 2"))
	assert.Error(t, err)
}

func TestEnvProviderUsesExplicitLookup(t *testing.T) {
	p := NewEnvProvider(MapLookup(map[string]string{
		"TRIPCOM_API_KEY":    "k",
		"TRIPCOM_API_SECRET": "s",
		"TRIPCOM_BATCH_SIZE": "25",
		"TRIPCOM_TIMEOUT":    "3s",
		"TRIPCOM_RATE_LIMIT": "2.5",
	}))
	d, ok := p.Defaults("tripcom")
	require.True(t, ok)
	assert.Equal(t, "k", d.Credentials.APIKey)
	assert.Equal(t, "s", d.Credentials.APISecret)
	assert.Equal(t, 25, d.Sync.BatchSize)
	assert.Equal(t, 3*time.Second, d.Sync.Timeout)
	assert.Equal(t, 2.5, d.Sync.RateLimitPerSecond)

	_, ok = p.Defaults("agoda")
	assert.False(t, ok)
}

func TestChainProviderLaterWins(t *testing.T) {
	file, err := ParseDefaults([]byte(defaultsYAML))
	require.NoError(t, err)
	env := NewEnvProvider(MapLookup(map[string]string{"BOOKINGCOM_PASSWORD": "rotated"}))

	d, ok := ChainProvider{file, env}.Defaults("bookingcom")
	require.True(t, ok)
	assert.Equal(t, "integrator", d.Credentials.Username)
	assert.Equal(t, "rotated", d.Credentials.Password)
	assert.Equal(t, "https://supply.example.test/api", d.BaseURL)
}
