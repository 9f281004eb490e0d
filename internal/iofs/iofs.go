// Package iofs prepares directories and files cinder keeps in the home
// directory of a user.
package iofs

import (
	_ "embed"
	"os"

	"github.com/gnames/cinder/pkg/config"
)

// ConfigYAML is the documented default configuration.
//
//go:embed config.yaml
var ConfigYAML string

// EnsureDirs creates config and log directories.
func EnsureDirs(homeDir string) error {
	dirs := []string{
		config.ConfigDir(homeDir),
		config.LogDir(homeDir),
	}
	for _, v := range dirs {
		if err := touchDir(v); err != nil {
			return err
		}
	}
	return nil
}

// EnsureOutDir creates the root of the artifact archive and makes sure
// snapshots can be written there before any download starts.
func EnsureOutDir(dir string) error {
	if err := touchDir(dir); err != nil {
		return err
	}

	f, err := os.CreateTemp(dir, ".cinder-write-*")
	if err != nil {
		return OutDirError(dir, err)
	}
	name := f.Name()
	f.Close()
	return os.Remove(name)
}

func touchDir(dir string) error {
	info, err := os.Stat(dir)
	if err == nil && info.IsDir() {
		return nil
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return CreateDirError(dir, err)
	}

	return nil
}

// EnsureConfigFile writes the default config.yaml unless it exists.
func EnsureConfigFile(homeDir string) error {
	configPath := config.ConfigFilePath(homeDir)

	// Check if config file already exists
	if _, err := os.Stat(configPath); err == nil {
		return nil
	}

	// Write embedded config.yaml to the config directory
	if err := os.WriteFile(configPath, []byte(ConfigYAML), 0644); err != nil {
		return CopyFileError(configPath, err)
	}

	return nil
}
