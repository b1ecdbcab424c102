package utils

import (
	"crypto/tls"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildPostgresDSNFromEnv(t *testing.T) {
	for _, k := range []string{"PG_HOST", "PG_PORT", "PG_USER", "PG_PASSWORD", "PG_DB", "PG_SSLMODE"} {
		t.Setenv(k, "")
	}
	assert.Equal(t, "postgres://postgres@localhost:5432/fieldgeo?sslmode=disable", BuildPostgresDSNFromEnv())

	t.Setenv("PG_HOST", "db")
	t.Setenv("PG_PASSWORD", "pw")
	t.Setenv("PG_DB", "farm")
	assert.Equal(t, "postgres://postgres:pw@db:5432/farm?sslmode=disable", BuildPostgresDSNFromEnv())
}

func TestEnvBool(t *testing.T) {
	t.Setenv("X_FLAG", "")
	assert.True(t, EnvBool("X_FLAG", true))
	t.Setenv("X_FLAG", "Off")
	assert.False(t, EnvBool("X_FLAG", true))
	t.Setenv("X_FLAG", "1")
	assert.True(t, EnvBool("X_FLAG", false))
	t.Setenv("X_FLAG", "maybe")
	assert.False(t, EnvBool("X_FLAG", false))
}

func TestRedisDisabledByDefault(t *testing.T) {
	t.Setenv("REDIS_ENABLED", "")
	assert.Nil(t, OpenRedisFromEnv())
	t.Setenv("REDIS_ENABLED", "true")
	c := OpenRedisFromEnv()
	if assert.NotNil(t, c) {
		_ = c.Close()
	}
}

func TestEnsureSelfSignedCert(t *testing.T) {
	dir := t.TempDir()
	cert := filepath.Join(dir, "certs", "server.crt")
	key := filepath.Join(dir, "keys", "server.key")
	require.NoError(t, EnsureSelfSignedCert(cert, key, "field-geo.local"))

	pair, err := tls.LoadX509KeyPair(cert, key)
	require.NoError(t, err)
	assert.Len(t, pair.Certificate, 1)

	st, err := os.Stat(key)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), st.Mode().Perm())

	// existing files are left alone
	before, _ := os.ReadFile(cert)
	require.NoError(t, EnsureSelfSignedCert(cert, key, "other"))
	after, _ := os.ReadFile(cert)
	assert.Equal(t, before, after)
}
