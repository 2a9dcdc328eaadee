// Package config loads CLI configuration for filingstore. Core packages
// take explicit parameters; configuration files are a deployment concern
// of the CLI only.
package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Config represents the filingstore CLI configuration.
type Config struct {
	Collection CollectionConfig `mapstructure:"collection"`
	Log        LogConfig        `mapstructure:"log"`
}

// CollectionConfig locates the collection on disk.
type CollectionConfig struct {
	Dir     string `mapstructure:"dir"`
	Catalog string `mapstructure:"catalog"`
}

// LogConfig configures CLI logging.
type LogConfig struct {
	Level string `mapstructure:"level"`
}

// Load reads filingstore.yml from the working directory, with environment
// variable overrides (FILINGSTORE_COLLECTION_DIR and friends). A missing
// config file means defaults.
func Load() (*Config, error) {
	v := viper.New()

	v.SetDefault("collection.dir", ".filingstore")
	v.SetDefault("collection.catalog", "catalog.db")
	v.SetDefault("log.level", "info")

	v.SetConfigName("filingstore")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	v.SetEnvPrefix("filingstore")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found - use defaults
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &config, nil
}

// CatalogPath returns the catalog database path inside the collection
// directory.
func (c *Config) CatalogPath() string {
	return filepath.Join(c.Collection.Dir, c.Collection.Catalog)
}
