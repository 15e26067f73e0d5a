package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tysmp/whitelist/internal/config"
)

func TestSettingValue(t *testing.T) {
	s := config.Settings{GuildID: "1", RconPort: 25575, ManagedRoleIDs: []string{"a", "b"}}
	v, ok := settingValue(s, "guild")
	assert.True(t, ok)
	assert.Equal(t, "1", v)
	v, _ = settingValue(s, "rcon_port")
	assert.Equal(t, "25575", v)
	v, _ = settingValue(s, "managed_roles")
	assert.Equal(t, "a,b", v)
	_, ok = settingValue(s, "favourite_colour")
	assert.False(t, ok)
}

func TestPrintSettingsMasksSecrets(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, printSettings(&buf, config.Settings{Token: "abc", RconHost: "mc.example.net"}))
	out := buf.String()
	assert.NotContains(t, out, "abc")
	assert.Contains(t, out, "********")
	assert.Contains(t, out, "mc.example.net")
	assert.Contains(t, out, "(unset)")
}
