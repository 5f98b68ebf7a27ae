package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the default configuration file name.
const DefaultConfigFile = ".feedrover"

// xdgConfigFile is the file name inside XDGConfigDir().
const xdgConfigFile = "config.yaml"

// ErrConfigNotFound is returned when the configuration file does not exist.
var ErrConfigNotFound = errors.New("configuration file not found")

// LoadConfigFile reads and decodes a .feedrover YAML file.
// Unknown keys are rejected so a typo does not silently fall back to a default.
func LoadConfigFile(path string) (*File, error) {
	fh, err := os.Open(path) //nolint:gosec // user-provided config path is intentional
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrConfigNotFound
	}
	if err != nil {
		return nil, err
	}
	defer fh.Close()

	f := &File{}
	dec := yaml.NewDecoder(fh)
	dec.KnownFields(true)
	if err := dec.Decode(f); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	if f.Targets == nil {
		f.Targets = make(map[string]TargetConfig)
	}
	return f, nil
}

// SearchPaths returns the locations FindConfigFile tries, in order:
// ./.feedrover, $XDG_CONFIG_HOME/feedrover/config.yaml, ~/.feedrover.
func SearchPaths() []string {
	var paths []string
	if cwd, err := os.Getwd(); err == nil {
		paths = append(paths, filepath.Join(cwd, DefaultConfigFile))
	}
	paths = append(paths, filepath.Join(XDGConfigDir(), xdgConfigFile))
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, DefaultConfigFile))
	}
	return paths
}

// FindConfigFile returns configPath if it exists, or the first existing
// entry of SearchPaths when configPath is empty. It returns "" when nothing
// is found.
func FindConfigFile(configPath string) string {
	candidates := SearchPaths()
	if configPath != "" {
		candidates = []string{configPath}
	}
	for _, p := range candidates {
		if info, err := os.Stat(p); err == nil && !info.IsDir() {
			return p
		}
	}
	return ""
}
