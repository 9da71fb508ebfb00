package config

import (
	"os"
	"path/filepath"
	"strings"
)

// ConfigDir returns the notebot config directory (~/.notebot).
func ConfigDir() (string, error) {
	if configDirOverride != "" {
		dir := configDirOverride
		if dir == "~" || strings.HasPrefix(dir, "~/") {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", err
			}
			if dir == "~" {
				return home, nil
			}
			return filepath.Join(home, dir[2:]), nil
		}
		if filepath.IsAbs(dir) {
			return filepath.Clean(dir), nil
		}
		abs, err := filepath.Abs(dir)
		if err != nil {
			return "", err
		}
		return filepath.Clean(abs), nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".notebot"), nil
}

// ConfigPath returns the default YAML config path.
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, configFileName), nil
}

// ResolvePath expands ~ and makes relative paths relative to the config dir.
func ResolvePath(p string) string {
	if p == "" {
		return p
	}
	if p == "~" || strings.HasPrefix(p, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(p[1:], "/"))
		}
	}
	if filepath.IsAbs(p) {
		return p
	}
	dir, err := ConfigDir()
	if err != nil {
		return p
	}
	return filepath.Join(dir, p)
}
