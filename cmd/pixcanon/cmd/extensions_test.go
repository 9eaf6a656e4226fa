package cmd

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/pixcanon/internal/decoder"
)

func TestExtensionsCommand_Text(t *testing.T) {
	out, _, err := executeCommand(t, "extensions")
	require.NoError(t, err)
	for _, c := range decoder.Classes {
		assert.Contains(t, out, c.String())
	}
	assert.Contains(t, out, ".psd")
}

func TestExtensionsCommand_JSON(t *testing.T) {
	out, _, err := executeCommand(t, "extensions", "--format", "json")
	require.NoError(t, err)

	var byClass map[string][]string
	require.NoError(t, json.Unmarshal([]byte(out), &byClass))
	assert.Len(t, byClass, len(decoder.Classes))
	assert.Contains(t, byClass["camera-raw"], ".cr2")
}

func TestExtensionsCommand_BadFormat(t *testing.T) {
	_, _, err := executeCommand(t, "extensions", "--format", "toml")
	require.Error(t, err)
}
