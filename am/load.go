package am

import (
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/teranos/searchq/errors"
)

// EnvPrefix prefixes every environment override, e.g. SEARCHQ_COMPLETION_GLOBBING
const EnvPrefix = "SEARCHQ"

var (
	mu            sync.Mutex
	globalConfig  *Config
	viperInstance *viper.Viper

	// ConfigSources records which file set each key during the last load
	ConfigSources = map[string]SourceInfo{}
)

// Load reads the searchq configuration using Viper
func Load() (*Config, error) {
	mu.Lock()
	defer mu.Unlock()

	if globalConfig != nil {
		return globalConfig, nil
	}

	config, err := LoadWithViper(initViper())
	if err != nil {
		return nil, err
	}
	globalConfig = config
	return globalConfig, nil
}

// GetViper returns the Viper instance for advanced configuration access
func GetViper() *viper.Viper {
	mu.Lock()
	defer mu.Unlock()
	return initViper()
}

// LoadWithViper loads configuration using a provided Viper instance
func LoadWithViper(v *viper.Viper) (*Config, error) {
	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal config")
	}
	if err := config.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid config")
	}
	return &config, nil
}

// LoadFromFile loads configuration from a specific file path over defaults
func LoadFromFile(configPath string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("toml")
	SetDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, errors.Wrapf(err, "failed to read config file %s", configPath)
	}
	return LoadWithViper(v)
}

// Reset clears the cached configuration (useful for testing)
func Reset() {
	mu.Lock()
	defer mu.Unlock()
	globalConfig = nil
	viperInstance = nil
	ConfigSources = map[string]SourceInfo{}
}

// initViper initializes Viper with configuration sources and defaults.
// Callers hold mu.
func initViper() *viper.Viper {
	if viperInstance != nil {
		return viperInstance
	}

	loadDotEnv()

	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	BindEnvVars(v)

	SetDefaults(v)
	mergeConfigFiles(v, configPaths())

	viperInstance = v
	return v
}

// loadDotEnv reads ./.env into the process environment without overriding
// variables that are already set.
func loadDotEnv() {
	if _, err := os.Stat(".env"); err != nil {
		return
	}
	_ = godotenv.Load(".env")
}

// UserConfigDir returns ~/.searchq
func UserConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".searchq")
}

// UserConfigPath returns ~/.searchq/am.toml
func UserConfigPath() string {
	dir := UserConfigDir()
	if dir == "" {
		return ""
	}
	return filepath.Join(dir, "am.toml")
}

// SystemConfigPath is the lowest-precedence config file
const SystemConfigPath = "/etc/searchq/config.toml"

type configPath struct {
	path   string
	source ConfigSource
}

// configPaths lists candidate files, lowest precedence first
func configPaths() []configPath {
	paths := []configPath{{SystemConfigPath, SourceSystem}}
	if user := UserConfigPath(); user != "" {
		paths = append(paths, configPath{user, SourceUser})
	}
	if project := findProjectConfig(); project != "" {
		paths = append(paths, configPath{project, SourceProject})
	}
	return paths
}

// ActiveConfigPath returns the highest-precedence config file that exists,
// or "" when only defaults apply.
func ActiveConfigPath() string {
	active := ""
	for _, p := range configPaths() {
		if _, err := os.Stat(p.path); err == nil {
			active = p.path
		}
	}
	return active
}

// findProjectConfig searches for am.toml walking up from the working directory
func findProjectConfig() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		amPath := filepath.Join(dir, "am.toml")
		if _, err := os.Stat(amPath); err == nil {
			return amPath
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return ""
}

// mergeConfigFiles merges files in order, later files overriding earlier
// ones, and records where each key came from.
func mergeConfigFiles(v *viper.Viper, paths []configPath) {
	for _, p := range paths {
		if _, err := os.Stat(p.path); err != nil {
			continue
		}

		tempViper := viper.New()
		tempViper.SetConfigFile(p.path)
		tempViper.SetConfigType("toml")
		if err := tempViper.ReadInConfig(); err != nil {
			continue
		}

		for _, key := range tempViper.AllKeys() {
			v.Set(key, tempViper.Get(key))
			ConfigSources[key] = SourceInfo{Source: p.source, Path: p.path}
		}
	}
}

// Get returns a configuration value using dot notation, or nil when unset
func Get(key string) interface{} {
	v := GetViper()
	if !v.IsSet(key) {
		return nil
	}
	return v.Get(key)
}
