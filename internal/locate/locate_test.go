package locate

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNilLocatorKnowsNothing(t *testing.T) {
	var l *Locator
	_, ok := l.Locate("203.0.113.7")
	assert.False(t, ok)
	assert.NoError(t, l.Close())
}

func TestEmptyLocator(t *testing.T) {
	l, err := Open("", "", "")
	require.NoError(t, err)
	_, ok := l.Locate("203.0.113.7")
	assert.False(t, ok)
	_, ok = l.Locate("not an ip")
	assert.False(t, ok)
	assert.NoError(t, l.Close())
}

func TestFromEnvWithoutPaths(t *testing.T) {
	t.Setenv("GEOIP_DB_PATH", "")
	t.Setenv("IP2REGION_V4_PATH", "")
	t.Setenv("IP2REGION_V6_PATH", "")
	l, err := FromEnv()
	require.NoError(t, err)
	assert.Nil(t, l)
}

func TestOpenErrors(t *testing.T) {
	dir := t.TempDir()
	_, err := Open(filepath.Join(dir, "missing.mmdb"), "", "")
	assert.Error(t, err)

	junk := filepath.Join(dir, "junk.mmdb")
	require.NoError(t, os.WriteFile(junk, []byte("definitely not maxmind"), 0o644))
	_, err = Open(junk, "", "")
	assert.Error(t, err)
}

func TestParseRegion(t *testing.T) {
	p := parseRegion("China|0|Zhejiang|Hangzhou|Unknown")
	assert.Equal(t, [5]string{"China", "", "Zhejiang", "Hangzhou", ""}, p)
	p = parseRegion("Germany")
	assert.Equal(t, "Germany", p[0])
	assert.Equal(t, "", p[3])
}
