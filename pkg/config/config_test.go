package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	c, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 2500*time.Millisecond, c.Store.RemoteTimeout)
	assert.Equal(t, "0.0.0.0:8431", c.HTTP.Addr)
	assert.Equal(t, "info", c.Log.Level)
	assert.Equal(t, int64(1), c.Snowflake.Node)
	assert.Equal(t, "rental.events", c.Rabbit.Exchange)
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("RENTAL_STORE_REMOTE_TIMEOUT", "750ms")
	t.Setenv("RENTAL_LOG_DEV", "true")

	c, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 750*time.Millisecond, c.Store.RemoteTimeout)
	assert.True(t, c.Log.Dev)
	assert.Equal(t, "debug", c.Log.Level)
}

func TestLoadFileWithTiers(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rental.yaml")
	body := `
http:
  addr: 127.0.0.1:9000
loyalty:
  tiers:
    - name: Starter
      min_xp: 0
    - name: Pro
      min_xp: 300
      perks: ["free delivery"]
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	c, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:9000", c.HTTP.Addr)
	require.Len(t, c.Loyalty.Tiers, 2)
	assert.Equal(t, "Pro", c.Loyalty.Tiers[1].Name)
	assert.Equal(t, 300, c.Loyalty.Tiers[1].MinXP)
	assert.Equal(t, []string{"free delivery"}, c.Loyalty.Tiers[1].Perks)
}
