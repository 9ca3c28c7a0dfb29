package schema

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildManifest(t *testing.T) {
	type cfg struct {
		Limit int `json:"limit"`
	}

	data, err := BuildManifest("rate-limiter", "1.2.0", cfg{})
	require.NoError(t, err)

	var m Manifest
	require.NoError(t, json.Unmarshal(data, &m))
	assert.Equal(t, "rate-limiter", m.Name)
	assert.Equal(t, "1.2.0", m.Version)
	assert.Contains(t, string(m.ConfigSchema), "limit")
}

func TestBuildManifestWithoutConfig(t *testing.T) {
	data, err := BuildManifest("passthrough", "0.1.0", nil)
	require.NoError(t, err)

	var m Manifest
	require.NoError(t, json.Unmarshal(data, &m))
	assert.Empty(t, m.ConfigSchema)
}

func TestBuildManifestRequiresName(t *testing.T) {
	_, err := BuildManifest("", "1.0.0", nil)
	require.Error(t, err)
}
