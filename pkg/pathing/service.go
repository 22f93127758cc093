package pathing

import (
	"os"
	"path/filepath"
)

const (
	configDirEnv = "HAN_READER_CONFIG_DIR"
	dataDirEnv   = "HAN_READER_DATA_DIR"
)

// Ensure directories exist on startup
func EnsureDirectories() error {
	// Directories that must exist:
	dirs := []string{
		GetConfigDir(),
		GetDataDir(),
	}

	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	return nil
}

func GetMeterDbPath() string {
	return filepath.Join(GetDataDir(), "han-readings.db")
}

func GetDataDir() string {
	if dir := os.Getenv(dataDirEnv); dir != "" {
		return dir
	}
	return "/var/lib/han_reader"
}

func GetConfigDir() string {
	if dir := os.Getenv(configDirEnv); dir != "" {
		return dir
	}
	return "/etc/han_reader"
}
