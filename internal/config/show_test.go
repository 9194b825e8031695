package config

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderEffective_HidesSecrets(t *testing.T) {
	isolateHome(t)

	r, err := Resolve(EnvOverrides{}, Credentials{RefreshToken: "super-secret", ClientID: "id"}, CLIOverrides{})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, RenderEffective(r, &buf))

	out := buf.String()
	assert.NotContains(t, out, "super-secret")
	assert.Contains(t, out, "REFRESH_TOKEN        = (set)")
	assert.Contains(t, out, "CLIENT_SECRET        = (missing)")
	assert.Contains(t, out, `default_retry_after = "5m0s"`)
	assert.Contains(t, out, "folders = 61 entries")
}

func TestSummarize(t *testing.T) {
	isolateHome(t)

	r, err := Resolve(EnvOverrides{}, Credentials{AccessToken: "tok"}, CLIOverrides{})
	require.NoError(t, err)

	s := Summarize(r)
	assert.True(t, s.Credentials[EnvAccessToken])
	assert.False(t, s.Credentials[EnvRefreshToken])
	assert.Equal(t, "5m0s", s.DefaultRetryAfter)
	assert.Equal(t, "0s", s.ProvisionTimeout)
	assert.Len(t, s.Folders, 61)
}
