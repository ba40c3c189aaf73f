package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/devforge-labs/devforge/internal/branding"
	"github.com/spf13/viper"
)

const (
	fileName = "config"
	fileType = "yaml"
)

// Keys understood by the config file and their environment variables
// (prefixed, dots become underscores: DEVFORGE_EXECUTION_PARALLEL).
const (
	KeyExecutionParallel = "execution.parallel"
	KeyExecutionFailFast = "execution.failFast"
	KeyExecutionTimeout  = "execution.timeout" // seconds per extension
	KeySchemaValidation  = "validation.schemaValidation"
	KeyDNSCheck          = "validation.dnsCheck"
	KeyDependencyCheck   = "validation.dependencyCheck"
	KeyConflictStrategy  = "conflict.strategy"
	KeyConflictNoPrompt  = "conflict.noPrompt"
	KeyCatalogDir        = "catalog.dir"
)

// Dir returns the path to the devforge home directory (~/.devforge/).
func Dir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", branding.HomeDir())
	}
	return filepath.Join(home, branding.HomeDir())
}

// FilePath returns the full path to the config file (~/.devforge/config.yaml).
func FilePath() string {
	return filepath.Join(Dir(), fileName+"."+fileType)
}

// ManifestPath returns the path of the installed-extensions manifest.
func ManifestPath() string {
	return filepath.Join(Dir(), "manifest.json")
}

// CatalogDir returns the extension catalog directory, honoring the
// catalog.dir override.
func CatalogDir() string {
	if dir := viper.GetString(KeyCatalogDir); dir != "" {
		return dir
	}
	return filepath.Join(Dir(), "catalog")
}

// ProfilesPath returns the catalog's profiles file.
func ProfilesPath() string {
	return filepath.Join(CatalogDir(), "profiles.yaml")
}

// BOMDir returns where generated bills of materials are written.
func BOMDir() string {
	return filepath.Join(Dir(), "bom")
}

// EnsureDir creates the home directory if it does not exist.
func EnsureDir() error {
	dir := Dir()
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating config directory %s: %w", dir, err)
	}
	return nil
}

// Load initializes Viper to read from the config file and environment.
func Load() {
	viper.SetConfigFile(FilePath())
	viper.SetConfigType(fileType)
	viper.SetEnvPrefix(branding.EnvPrefix())
	viper.AutomaticEnv()

	viper.SetDefault(KeyExecutionParallel, false)
	viper.SetDefault(KeyExecutionFailFast, true)
	viper.SetDefault(KeyExecutionTimeout, 600)
	viper.SetDefault(KeySchemaValidation, true)
	viper.SetDefault(KeyDNSCheck, false)
	viper.SetDefault(KeyDependencyCheck, true)
	viper.SetDefault(KeyConflictStrategy, "")
	viper.SetDefault(KeyConflictNoPrompt, false)

	// Ignore error if config file doesn't exist yet.
	_ = viper.ReadInConfig()
}

// Get returns a config value by key. Returns empty string if not set.
func Get(key string) string {
	return viper.GetString(key)
}

// GetBool returns a boolean config value by key.
func GetBool(key string) bool {
	return viper.GetBool(key)
}

// GetInt returns an integer config value by key.
func GetInt(key string) int {
	return viper.GetInt(key)
}

// Set writes a config key-value pair and saves the config file.
func Set(key, value string) error {
	if err := EnsureDir(); err != nil {
		return err
	}

	viper.Set(key, value)

	configFile := FilePath()

	// Create the file if it doesn't exist.
	if _, err := os.Stat(configFile); os.IsNotExist(err) {
		f, err := os.Create(configFile)
		if err != nil {
			return fmt.Errorf("creating config file %s: %w", configFile, err)
		}
		f.Close()
	}

	if err := viper.WriteConfigAs(configFile); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	return nil
}
