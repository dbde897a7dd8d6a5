package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEfbridgeCommand(t *testing.T) {
	cmd := NewEfbridgeCommand()
	require.NotNil(t, cmd)

	assert.Equal(t, "efbridge", cmd.Use)
	assert.True(t, cmd.HasExample())
	assert.True(t, cmd.HasSubCommands())
	assert.NotNil(t, cmd.PersistentFlags().Lookup("config"))

	for _, name := range []string{"validate", "inspect", "channels", "relay", "version"} {
		sub, _, err := cmd.Find([]string{name})
		require.NoError(t, err, name)
		assert.Equal(t, name, sub.Name())
	}
}
