package utils

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnsureDataDirExists(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "referee")
	require.NoError(t, EnsureDataDirExists(dir))

	info, err := os.Stat(filepath.Join(dir, "logs"))
	require.NoError(t, err)
	assert.True(t, info.IsDir())

	// Idempotent.
	require.NoError(t, EnsureDataDirExists(dir))
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("REFEREE_TEST_STR", "  value ")
	t.Setenv("REFEREE_TEST_INT", "12")
	t.Setenv("REFEREE_TEST_BADINT", "twelve")
	t.Setenv("REFEREE_TEST_DUR", "45s")
	t.Setenv("REFEREE_TEST_BLANK", " ")

	assert.Equal(t, "value", EnvString("REFEREE_TEST_STR", "def"))
	assert.Equal(t, "def", EnvString("REFEREE_TEST_BLANK", "def"))
	assert.Equal(t, "def", EnvString("REFEREE_TEST_UNSET", "def"))

	n, err := EnvInt("REFEREE_TEST_INT", 3)
	require.NoError(t, err)
	assert.Equal(t, 12, n)

	n, err = EnvInt("REFEREE_TEST_BADINT", 3)
	assert.Error(t, err)
	assert.Equal(t, 3, n)

	n, err = EnvInt("REFEREE_TEST_UNSET", 3)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	d, err := EnvDuration("REFEREE_TEST_DUR", time.Second)
	require.NoError(t, err)
	assert.Equal(t, 45*time.Second, d)

	_, err = EnvDuration("REFEREE_TEST_INT", time.Second)
	assert.Error(t, err)
}
