package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"

	"github.com/septentria/land-office/internal/domain/workflow"
)

// Config holds all application configuration
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Office   OfficeConfig   `mapstructure:"office"`
	Logger   LoggerConfig   `mapstructure:"logger"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Path            string        `mapstructure:"path"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	MigrationsDir   string        `mapstructure:"migrations_dir"`
}

// OfficeConfig identifies the recorder's office the deployment serves.
// The jurisdiction name selects the routing policy; the code prefix
// brands every transaction code the office issues.
type OfficeConfig struct {
	Jurisdiction string `mapstructure:"jurisdiction"`
	CodePrefix   string `mapstructure:"code_prefix"`
}

// LoggerConfig holds logger configuration
type LoggerConfig struct {
	Level      string `mapstructure:"level"`
	OutputPath string `mapstructure:"output_path"`
	Format     string `mapstructure:"format"`
}

// Load loads configuration from file and environment variables
func Load(configPath string) (*Config, error) {
	viper.SetConfigFile(configPath)
	viper.SetConfigType("yaml")
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	bindEnvVars()

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func setDefaults() {
	// Server defaults
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.read_timeout", 30*time.Second)
	viper.SetDefault("server.write_timeout", 30*time.Second)

	// Database defaults
	viper.SetDefault("database.path", "data/landoffice.db")
	viper.SetDefault("database.max_open_conns", 25)
	viper.SetDefault("database.max_idle_conns", 5)
	viper.SetDefault("database.conn_max_lifetime", 5*time.Minute)
	viper.SetDefault("database.migrations_dir", "migrations")

	// Office defaults
	viper.SetDefault("office.code_prefix", "TX")

	// Logger defaults
	viper.SetDefault("logger.level", "info")
	viper.SetDefault("logger.output_path", "stdout")
	viper.SetDefault("logger.format", "json")
}

func bindEnvVars() {
	viper.BindEnv("office.jurisdiction", "OFFICE_JURISDICTION")
	viper.BindEnv("office.code_prefix", "OFFICE_CODE_PREFIX")
	viper.BindEnv("database.path", "DATABASE_PATH")
}

// Validate validates the configuration. The jurisdiction must name a
// supported routing policy so misconfiguration fails at startup rather
// than on the first reception.
func (c *Config) Validate() error {
	if c.Office.Jurisdiction == "" {
		return fmt.Errorf("office.jurisdiction is required")
	}
	if _, err := workflow.PolicyFor(c.Office.Jurisdiction); err != nil {
		return fmt.Errorf("office.jurisdiction: %w", err)
	}
	if c.Office.CodePrefix == "" {
		return fmt.Errorf("office.code_prefix is required")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port out of range: %d", c.Server.Port)
	}
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}
	return nil
}
