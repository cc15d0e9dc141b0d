package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nvkha/mailplane/internal/credential"
)

func TestResolveSecretKey(t *testing.T) {
	for _, name := range []string{
		credential.KeyIMAPPassword,
		credential.KeyPlaneAPIKey,
	} {
		key, err := resolveSecretKey(name)
		require.NoError(t, err)
		assert.Equal(t, name, key)
	}

	_, err := resolveSecretKey("smtp-password")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"smtp-password"`)
	assert.Contains(t, err.Error(), credential.KeyIMAPPassword)
}
