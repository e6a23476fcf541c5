// Package config loads settings from .env, TOPOLOGY_* environment variables,
// an optional config file and command-line flags, in increasing priority.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const envPrefix = "TOPOLOGY"

// validate is a singleton validator instance
var validate = validator.New()

// Config is the process configuration shared by the server, CLI and MCP tools.
type Config struct {
	DatabaseURL string `mapstructure:"database_url"`
	SQLitePath  string `mapstructure:"sqlite_path"`
	ListenAddr  string `mapstructure:"listen_addr" validate:"required"`
	JWTSecret   string `mapstructure:"jwt_secret"`
	LogLevel    string `mapstructure:"log_level" validate:"omitempty,oneof=debug info warn error"`
	LogFormat   string `mapstructure:"log_format" validate:"omitempty,oneof=text json"`

	BottleneckThreshold    int  `mapstructure:"bottleneck_threshold" validate:"gte=1"`
	HubThreshold           int  `mapstructure:"hub_threshold" validate:"gte=1"`
	MaxAlternatives        int  `mapstructure:"max_alternatives" validate:"gte=0"`
	MaxPathDepth           int  `mapstructure:"max_path_depth" validate:"gte=1"`
	RejectDependencyCycles bool `mapstructure:"reject_dependency_cycles"`
}

// SetDefaults registers every key so AutomaticEnv can resolve it on Unmarshal.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("database_url", "")
	v.SetDefault("sqlite_path", ".topology/topology.db")
	v.SetDefault("listen_addr", ":3000")
	v.SetDefault("jwt_secret", "")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "text")
	v.SetDefault("bottleneck_threshold", 5)
	v.SetDefault("hub_threshold", 5)
	v.SetDefault("max_alternatives", 3)
	v.SetDefault("max_path_depth", 10)
	v.SetDefault("reject_dependency_cycles", true)
}

// Load resolves the configuration into v. cfgFile may be empty.
func Load(v *viper.Viper, cfgFile string) (*Config, error) {
	// A missing .env is fine.
	_ = godotenv.Load()

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()
	SetDefaults(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: read %s: %w", cfgFile, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks field constraints.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				fields = append(fields, fmt.Sprintf("%s (%s)", fe.Field(), fe.Tag()))
			}
			return fmt.Errorf("config: invalid %s", strings.Join(fields, ", "))
		}
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

// UsePostgres reports whether a database URL was configured.
func (c *Config) UsePostgres() bool {
	return c.DatabaseURL != ""
}
