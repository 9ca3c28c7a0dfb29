package schema

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateFlatStruct(t *testing.T) {
	type cfg struct {
		Limit  int    `json:"limit"`
		Header string `json:"header,omitempty"`
	}

	data, err := Generate(cfg{})
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))

	assert.Contains(t, string(data), "limit")
	assert.Contains(t, string(data), "header")
}

func TestGenerateNestedStruct(t *testing.T) {
	type inner struct {
		Pattern string `json:"pattern"`
	}
	type cfg struct {
		Rules   []inner `json:"rules"`
		Verbose bool    `json:"verbose"`
	}

	data, err := Generate(cfg{})
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))

	assert.Contains(t, string(data), "rules")
	assert.Contains(t, string(data), "pattern")
}
