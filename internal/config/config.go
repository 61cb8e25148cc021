package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all configuration for our application
type Config struct {
	Server    ServerConfig  `mapstructure:"server"`
	Address   AddressConfig `mapstructure:"address"`
	Resources []string      `mapstructure:"resources"`
	API       APIConfig     `mapstructure:"api"`
	Logging   LoggingConfig `mapstructure:"logging"`
}

type ServerConfig struct {
	Port           int     `mapstructure:"port"`
	Host           string  `mapstructure:"host"`
	RateLimit      float64 `mapstructure:"rate_limit"`
	RateLimitBurst int     `mapstructure:"rate_limit_burst"`
}

// AddressConfig identifies the physical address whose schedule is polled.
type AddressConfig struct {
	Postcode    string `mapstructure:"postcode"`
	HouseNumber string `mapstructure:"house_number"`
}

type APIConfig struct {
	URL            string  `mapstructure:"url"`
	RateLimit      float64 `mapstructure:"rate_limit"`
	RateLimitBurst int     `mapstructure:"rate_limit_burst"`
	CacheSize      int     `mapstructure:"cache_size"`
	TimeoutSeconds int     `mapstructure:"timeout_seconds"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads configuration from file and environment variables.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	setDefaults(v)

	v.SetEnvPrefix("TWENTEMILIEU")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	// Resource keys are matched against upstream type labels, which are
	// uppercase.
	for i, resource := range config.Resources {
		config.Resources[i] = strings.ToUpper(resource)
	}

	return &config, nil
}

// Validate checks the parts of the configuration without usable defaults.
func (c *Config) Validate() error {
	if len(c.Resources) == 0 {
		return errors.New("at least one resource must be configured")
	}
	if c.Address.Postcode == "" {
		return errors.New("address postcode is required")
	}
	if c.Address.HouseNumber == "" {
		return errors.New("address house number is required")
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.rate_limit", 5.0)
	v.SetDefault("server.rate_limit_burst", 10)

	// Schema fallbacks only; not a meaningful production address.
	v.SetDefault("address.postcode", "1111AA")
	v.SetDefault("address.house_number", "1")

	v.SetDefault("api.url", "https://wasteapi.2go-mobile.com/api")
	v.SetDefault("api.rate_limit", 1.0)
	v.SetDefault("api.rate_limit_burst", 2)
	v.SetDefault("api.cache_size", 128)
	v.SetDefault("api.timeout_seconds", 30)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}
