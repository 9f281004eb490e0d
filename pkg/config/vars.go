package config

import (
	"path/filepath"
)

var (
	// AppName is used in generating file system paths.
	AppName = "cinder"

	// IPEDSIndexURL is the page that lists yearly IPEDS Access databases.
	IPEDSIndexURL = "https://nces.ed.gov/ipeds/use-the-data/download-access-database"
)

// ConfigDir returns the directory path for configuration files.
// Returns ~/.config/cinder by default.
func ConfigDir(homeDir string) string {
	return filepath.Join(homeDir, ".config", AppName)
}

// LogDir returns the directory path for log files.
// Returns ~/.local/share/cinder/logs by default.
func LogDir(homeDir string) string {
	return filepath.Join(homeDir, ".local", "share", AppName, "logs")
}

// ConfigFilePath returns the full path to the config.yaml file.
// Returns ~/.config/cinder/config.yaml by default.
func ConfigFilePath(homeDir string) string {
	return filepath.Join(ConfigDir(homeDir), "config.yaml")
}
