package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// LoadConfig loads configuration from file and environment variables
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()

	v.SetConfigType("yaml")
	v.SetConfigName("config")

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/etc/gestion-condos")

		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".gestion-condos"))
		}
	}

	// Defaults are overridden by config file and env vars
	setDefaults(v)

	v.SetEnvPrefix("CONDOS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	bindEnvVars(v)

	// Config file is optional; defaults and env vars suffice
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	def := NewDefault()

	v.SetDefault("database.driver", def.Database.Driver)
	v.SetDefault("database.path", def.Database.Path)
	v.SetDefault("database.host", def.Database.Host)
	v.SetDefault("database.port", def.Database.Port)
	v.SetDefault("database.user", def.Database.User)
	v.SetDefault("database.password", def.Database.Password)
	v.SetDefault("database.dbname", def.Database.DBName)
	v.SetDefault("database.sslmode", def.Database.SSLMode)
	v.SetDefault("database.max_open_conns", def.Database.MaxOpenConns)
	v.SetDefault("database.max_idle_conns", def.Database.MaxIdleConns)
	v.SetDefault("database.conn_max_lifetime", "5m")
	v.SetDefault("database.conn_max_idle_time", "1m")
	v.SetDefault("database.log_level", def.Database.LogLevel)

	v.SetDefault("migrations.script_dir", def.Migrations.ScriptDir)

	v.SetDefault("bridge.pool_size", def.Bridge.PoolSize)

	v.SetDefault("server.log_level", def.Server.LogLevel)
	v.SetDefault("server.debug", def.Server.Debug)
}

// bindEnvVars binds specific environment variables to configuration keys
func bindEnvVars(v *viper.Viper) {
	// Database path can be set via DATABASE_PATH or CONDOS_DATABASE_PATH
	v.BindEnv("database.path", "DATABASE_PATH", "CONDOS_DATABASE_PATH")

	// Log level can be set via LOG_LEVEL or CONDOS_SERVER_LOG_LEVEL
	v.BindEnv("server.log_level", "LOG_LEVEL", "CONDOS_SERVER_LOG_LEVEL")

	// Debug mode
	v.BindEnv("server.debug", "DEBUG", "CONDOS_SERVER_DEBUG")

	// Migration script directory
	v.BindEnv("migrations.script_dir", "MIGRATIONS_DIR", "CONDOS_MIGRATIONS_SCRIPT_DIR")
}
