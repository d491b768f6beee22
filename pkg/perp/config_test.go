package perp_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"seidefi/pkg/confkit"
	"seidefi/pkg/perp"
	_ "seidefi/pkg/perp/coinbase"
	_ "seidefi/pkg/perp/onchain"
	_ "seidefi/pkg/perp/sim"
)

func TestBuildProviders_SkipsUncredentialedVenues(t *testing.T) {
	t.Setenv("NO_DOTENV", "1")
	t.Setenv("COINBASE_API_KEY", "")
	t.Setenv("COINBASE_API_SECRET", "")

	cfg, err := perp.LoadConfig(confkit.MustProjectPath("etc/perp.yaml"))
	require.NoError(t, err, "the shipped config should load without credentials present")

	providers, err := cfg.BuildProviders()
	require.NoError(t, err, "missing coinbase keys should skip the venue, not fail the build")
	assert.NotContains(t, providers, "coinbase")
	assert.Contains(t, providers, "sim")
	assert.Contains(t, providers, "onchain")
}

func TestBuildProviders_CredentialedVenueRetained(t *testing.T) {
	t.Setenv("NO_DOTENV", "1")

	cfg, err := perp.LoadConfigFromReader(strings.NewReader(`
default: cb
providers:
  cb:
    type: coinbase
    api_key: k
    api_secret: s
`))
	require.NoError(t, err)

	providers, err := cfg.BuildProviders()
	require.NoError(t, err)
	require.Contains(t, providers, "cb")
	assert.Equal(t, "coinbase", providers["cb"].Name())
}

func TestBuildProviders_AllSkippedErrors(t *testing.T) {
	t.Setenv("NO_DOTENV", "1")
	t.Setenv("COINBASE_API_KEY", "")
	t.Setenv("COINBASE_API_SECRET", "")

	cfg, err := perp.LoadConfigFromReader(strings.NewReader(`
providers:
  cb:
    type: coinbase
    api_key: ${COINBASE_API_KEY}
    api_secret: ${COINBASE_API_SECRET}
`))
	require.NoError(t, err)

	_, err = cfg.BuildProviders()
	require.Error(t, err, "a config with only unconfigured venues has nothing to run on")
	assert.Contains(t, err.Error(), "no usable providers")
}
