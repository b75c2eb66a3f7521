package security

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTerminalKeyVerifier(t *testing.T) {
	hash, err := HashTerminalKey("kiosk-key-42")
	require.NoError(t, err)

	v := NewTerminalKeyVerifier(hash)
	assert.True(t, v.Enabled())
	assert.True(t, v.Verify("kiosk-key-42"))
	assert.False(t, v.Verify("wrong-key"))
	assert.False(t, v.Verify(""))
}

func TestTerminalKeyVerifier_Disabled(t *testing.T) {
	v := NewTerminalKeyVerifier("")
	assert.False(t, v.Enabled())
	assert.False(t, v.Verify("anything"))
}
