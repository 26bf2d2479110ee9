package config

import (
	"fmt"
	"os"
	"path/filepath"
)

// Lookup reads one environment variable. os.LookupEnv satisfies it.
type Lookup func(key string) (string, bool)

const (
	// EnvConfigPath names a config file explicitly.
	EnvConfigPath = "ENTITYVAULT_CONFIG"
	// ConfigFileName is looked for in the working directory.
	ConfigFileName = "entityvault.yaml"
	// ConfigDirName is the directory under each config root.
	ConfigDirName = "entityvault"
)

// Source records how a config path was chosen.
type Source string

const (
	SourceFlag     Source = "flag"
	SourceEnv      Source = "env"
	SourceSearch   Source = "search"
	SourceDefaults Source = "defaults"
)

// Locate picks the config file to read. A --config path beats
// $ENTITYVAULT_CONFIG, which beats the search list. A file named by flag or
// env must exist; when the search finds nothing the path is "" and the
// source is SourceDefaults.
func Locate(flagPath string, env Lookup) (string, Source, error) {
	if flagPath != "" {
		return explicit(flagPath, SourceFlag)
	}
	if p, ok := env(EnvConfigPath); ok && p != "" {
		return explicit(p, SourceEnv)
	}

	for _, p := range SearchPaths(env) {
		if !fileExists(p) {
			continue
		}
		if abs, err := filepath.Abs(p); err == nil {
			p = abs
		}
		return p, SourceSearch, nil
	}
	return "", SourceDefaults, nil
}

func explicit(path string, src Source) (string, Source, error) {
	if _, err := os.Stat(path); err != nil {
		return path, src, fmt.Errorf("config file from %s: %w", src, err)
	}
	return path, src, nil
}

// SearchPaths lists the implicit locations in priority order:
// ./entityvault.yaml, $XDG_CONFIG_HOME/entityvault/config.yaml,
// ~/.config/entityvault/config.yaml and /etc/entityvault/config.yaml.
func SearchPaths(env Lookup) []string {
	paths := []string{ConfigFileName}
	for _, root := range userConfigRoots(env) {
		paths = append(paths, filepath.Join(root, ConfigDirName, "config.yaml"))
	}
	return append(paths, filepath.Join("/etc", ConfigDirName, "config.yaml"))
}

// InitPath is where `config init` writes: the flag, then
// $ENTITYVAULT_CONFIG, then the first user config root, then the working
// directory.
func InitPath(flagPath string, env Lookup) string {
	if flagPath != "" {
		return flagPath
	}
	if p, ok := env(EnvConfigPath); ok && p != "" {
		return p
	}
	if roots := userConfigRoots(env); len(roots) > 0 {
		return filepath.Join(roots[0], ConfigDirName, "config.yaml")
	}
	return ConfigFileName
}

func userConfigRoots(env Lookup) []string {
	var roots []string
	if xdg, ok := env("XDG_CONFIG_HOME"); ok && xdg != "" {
		roots = append(roots, xdg)
	}
	if home, ok := env("HOME"); ok && home != "" {
		roots = append(roots, filepath.Join(home, ".config"))
	}
	return roots
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
