package pathing

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	t.Setenv(configDirEnv, "")
	t.Setenv(dataDirEnv, "")
	require.Equal(t, "/etc/han_reader", GetConfigDir())
	require.Equal(t, "/var/lib/han_reader/han-readings.db", GetMeterDbPath())
}

func TestEnvOverrides(t *testing.T) {
	root := t.TempDir()
	t.Setenv(configDirEnv, filepath.Join(root, "etc"))
	t.Setenv(dataDirEnv, filepath.Join(root, "data"))

	require.NoError(t, EnsureDirectories())
	for _, dir := range []string{GetConfigDir(), GetDataDir()} {
		info, err := os.Stat(dir)
		require.NoError(t, err)
		require.True(t, info.IsDir())
	}
	require.Equal(t, filepath.Join(root, "data", "han-readings.db"), GetMeterDbPath())
}
