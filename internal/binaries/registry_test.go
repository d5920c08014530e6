package binaries

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolve_Explicit(t *testing.T) {
	path, err := Resolve(NameStunnel, "/opt/stunnel/bin/stunnel")
	require.NoError(t, err)
	assert.Equal(t, "/opt/stunnel/bin/stunnel", path)
}

func TestResolve_Unknown(t *testing.T) {
	_, err := Resolve("openvpn", "")
	assert.Error(t, err)
}

func TestDefs(t *testing.T) {
	def, ok := Defs()[NameStunnel]
	require.True(t, ok)
	assert.Equal(t, EnvStunnelPath, def.EnvOverride)
}
