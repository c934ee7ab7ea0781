package core

import (
	"os"
	"path/filepath"
)

type Paths struct {
	HomeDir           string
	DataDir           string
	LogFile           string
	HistoryFile       string
	ConfigFile        string
	OverridesFile     string
	LatestVersionFile string
}

var defaultPaths *Paths

func ensureDefaultPaths() {
	if defaultPaths == nil {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			panic(err)
		}

		dataDir := filepath.Join(homeDir, ".local", "share", "redline")
		defaultPaths = &Paths{
			HomeDir:           homeDir,
			DataDir:           dataDir,
			LogFile:           filepath.Join(dataDir, "redline.log"),
			HistoryFile:       filepath.Join(dataDir, "history.db"),
			ConfigFile:        filepath.Join(homeDir, ".config", "redline", "config.yaml"),
			OverridesFile:     filepath.Join(homeDir, ".config", "redline", "completions.yaml"),
			LatestVersionFile: filepath.Join(dataDir, "latest_version.txt"),
		}

		err = os.MkdirAll(defaultPaths.DataDir, 0755)
		if err != nil {
			panic(err)
		}
	}
}

func HomeDir() string {
	ensureDefaultPaths()
	return defaultPaths.HomeDir
}

func DataDir() string {
	ensureDefaultPaths()
	return defaultPaths.DataDir
}

func LogFile() string {
	ensureDefaultPaths()
	return defaultPaths.LogFile
}

func HistoryFile() string {
	ensureDefaultPaths()
	return defaultPaths.HistoryFile
}

func ConfigFile() string {
	ensureDefaultPaths()
	return defaultPaths.ConfigFile
}

func OverridesFile() string {
	ensureDefaultPaths()
	return defaultPaths.OverridesFile
}

func LatestVersionFile() string {
	ensureDefaultPaths()
	return defaultPaths.LatestVersionFile
}
