package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clustermap.io/clustermap/internal/api/middleware"
)

func TestSplitPermissions(t *testing.T) {
	assert.Equal(t, []string{"registry:reload", "registry:admin"}, splitPermissions(" registry:reload, ,registry:admin "))
	assert.Nil(t, splitPermissions(""))
}

func TestMint(t *testing.T) {
	key := "mint-test-signing-key-0123456789abcdef"
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("security:\n  jwt_signing_key: "+key+"\n"), 0o600))

	token, err := mint(path, "ops-bot", "registry:reload", time.Minute)
	require.NoError(t, err)

	claims, err := middleware.JWTConfig{SigningKey: []byte(key), Issuer: "clustermap"}.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "ops-bot", claims.Subject)
	assert.Equal(t, []string{middleware.PermissionReload}, claims.Permissions)
}

func TestMint_DisabledWithoutKey(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("log:\n  level: error\n"), 0o600))

	_, err := mint(path, "ops-bot", "registry:reload", time.Minute)
	require.Error(t, err)
}
