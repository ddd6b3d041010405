package config

import (
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// ProjectDirName is the per-project directory holding data, logs and crash reports.
const ProjectDirName = ".narrativa"

// GetGlobalConfigDir returns the path to the global configuration directory (~/.narrativa).
// It's a variable to allow overriding in tests.
var GetGlobalConfigDir = func() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ProjectDirName), nil
}

// GetDataPath returns the directory holding the SQLite database and JSONL exports.
// Resolution order (first match wins):
// 1. Explicit config via "store.path" (Viper/env/flag)
// 2. Local project directory: .narrativa/data (if exists)
// 3. XDG_DATA_HOME/narrativa/data (if XDG_DATA_HOME is set)
// 4. Global fallback: ~/.narrativa/data
func GetDataPath() string {
	if path := viper.GetString("store.path"); path != "" {
		return path
	}

	localData := filepath.Join(ProjectDirName, "data")
	if info, err := os.Stat(localData); err == nil && info.IsDir() {
		return localData
	}

	if xdgData := os.Getenv("XDG_DATA_HOME"); xdgData != "" {
		return filepath.Join(xdgData, "narrativa", "data")
	}

	dir, err := GetGlobalConfigDir()
	if err != nil {
		return "./data"
	}
	return filepath.Join(dir, "data")
}

// GetJSONLPath returns the JSONL sink path, defaulting to narratives.jsonl inside the data path.
func GetJSONLPath() string {
	if path := viper.GetString("store.jsonlPath"); path != "" {
		return path
	}
	return filepath.Join(GetDataPath(), "narratives.jsonl")
}
