package am

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"github.com/teranos/searchq/errors"
	"github.com/teranos/searchq/logger"
)

// createBackup creates rotating backups (.back1, .back2, .back3) before modifying config
func createBackup(configPath string) error {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil
	}

	back3 := configPath + ".back3"
	back2 := configPath + ".back2"
	back1 := configPath + ".back1"

	if err := os.Remove(back3); err != nil && !os.IsNotExist(err) {
		logger.Warnw("Failed to delete old config backup", "path", back3, "error", err)
	}

	if _, err := os.Stat(back2); err == nil {
		if err := os.Rename(back2, back3); err != nil {
			return errors.Wrap(err, "failed to rotate .back2 to .back3")
		}
	}

	if _, err := os.Stat(back1); err == nil {
		if err := os.Rename(back1, back2); err != nil {
			return errors.Wrap(err, "failed to rotate .back1 to .back2")
		}
	}

	content, err := os.ReadFile(configPath)
	if err != nil {
		return errors.Wrap(err, "failed to read config for backup")
	}

	if err := os.WriteFile(back1, content, DefaultFilePermissions); err != nil {
		return errors.Wrap(err, "failed to create .back1")
	}

	return nil
}

// SaveTo writes cfg as TOML to path, backing up any existing file first
func SaveTo(path string, cfg *Config) error {
	if err := cfg.Validate(); err != nil {
		return errors.Wrap(err, "refusing to save invalid config")
	}
	data, err := toml.Marshal(cfg)
	if err != nil {
		return errors.Wrap(err, "failed to marshal config")
	}
	return writeConfig(path, data)
}

// UpdateSetting sets a single dotted key (e.g. "completion.globbing") in the
// TOML file at path, creating the file and intermediate tables as needed.
// Other keys in the file are preserved.
func UpdateSetting(path, key string, value interface{}) error {
	parts := strings.Split(key, ".")
	for _, p := range parts {
		if p == "" {
			return errors.NewInvalidRequestError("invalid setting key %q", key)
		}
	}

	doc := map[string]interface{}{}
	if data, err := os.ReadFile(path); err == nil {
		if err := toml.Unmarshal(data, &doc); err != nil {
			return errors.Wrapf(err, "failed to parse %s", path)
		}
	} else if !os.IsNotExist(err) {
		return errors.Wrapf(err, "failed to read %s", path)
	}

	table := doc
	for _, p := range parts[:len(parts)-1] {
		next, ok := table[p].(map[string]interface{})
		if !ok {
			if _, exists := table[p]; exists {
				return errors.NewInvalidRequestError("setting %q is not a table", p)
			}
			next = map[string]interface{}{}
			table[p] = next
		}
		table = next
	}
	table[parts[len(parts)-1]] = value

	data, err := toml.Marshal(doc)
	if err != nil {
		return errors.Wrap(err, "failed to marshal config")
	}
	if err := writeConfig(path, data); err != nil {
		return err
	}
	logger.Infow("Config setting updated", "path", path, "key", key)
	return nil
}

func writeConfig(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), DefaultDirPermissions); err != nil {
		return errors.Wrap(err, "failed to create config directory")
	}
	if err := createBackup(path); err != nil {
		return errors.Wrap(err, "failed to create backup")
	}

	if w := GetGlobalWatcher(); w != nil {
		if abs, err := filepath.Abs(path); err == nil && abs == w.Path() {
			w.MarkOwnWrite(data)
		}
	}

	if err := os.WriteFile(path, data, DefaultFilePermissions); err != nil {
		return errors.Wrapf(err, "failed to write %s", path)
	}
	return nil
}

// Save writes cfg to the user config file (~/.searchq/am.toml)
func Save(cfg *Config) error {
	path := UserConfigPath()
	if path == "" {
		return errors.New("could not determine home directory")
	}
	return SaveTo(path, cfg)
}
