package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Database drivers
const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// Final statuses a completed clearance may be issued with
const (
	FinalReadyForCollection = "Ready for Collection"
	FinalCompleted          = "Completed"
)

// Config structure represents the application configuration
type Config struct {
	Server struct {
		Port        string `yaml:"port" env:"SERVER_PORT"`
		Mode        string `yaml:"mode" env:"SERVER_MODE"`
		StoragePath string `yaml:"storage_path" env:"SERVER_STORAGE_PATH"`
		BaseURL     string `yaml:"base_url" env:"SERVER_BASE_URL"`
	} `yaml:"server"`

	Database struct {
		Driver          string `yaml:"driver" env:"DB_DRIVER"`
		Host            string `yaml:"host" env:"DB_HOST"`
		Port            string `yaml:"port" env:"DB_PORT"`
		User            string `yaml:"user" env:"DB_USER"`
		Password        string `yaml:"password" env:"DB_PASSWORD"`
		DBName          string `yaml:"dbname" env:"DB_NAME"`
		SSLMode         string `yaml:"sslmode" env:"DB_SSLMODE"`
		MaxIdleConns    int    `yaml:"max_idle_conns" env:"DB_MAX_IDLE_CONNS"`
		MaxOpenConns    int    `yaml:"max_open_conns" env:"DB_MAX_OPEN_CONNS"`
		ConnMaxLifetime string `yaml:"conn_max_lifetime" env:"DB_CONN_MAX_LIFETIME"`
		QueryTimeout    string `yaml:"query_timeout" env:"DB_QUERY_TIMEOUT"`
		MigrationsDir   string `yaml:"migrations_dir" env:"DB_MIGRATIONS_DIR"`
	} `yaml:"database"`

	JWT struct {
		Secret                string `yaml:"secret" env:"JWT_SECRET"`
		AccessTokenExpiration string `yaml:"access_token_expiration" env:"JWT_ACCESS_TOKEN_EXPIRATION"`
		Issuer                string `yaml:"issuer" env:"JWT_ISSUER"`
	} `yaml:"jwt"`

	Logging struct {
		Level  string `yaml:"level" env:"LOG_LEVEL"`
		Format string `yaml:"format" env:"LOG_FORMAT"`
	} `yaml:"logging"`

	Workflow struct {
		// CascadeRejection makes a single rejected unit reject the whole request
		CascadeRejection  bool   `yaml:"cascade_rejection" env:"WORKFLOW_CASCADE_REJECTION"`
		FinalStatus       string `yaml:"final_status" env:"WORKFLOW_FINAL_STATUS"`
		ReferenceCacheTTL string `yaml:"reference_cache_ttl" env:"WORKFLOW_REFERENCE_CACHE_TTL"`
		MaxDocuments      int    `yaml:"max_documents" env:"WORKFLOW_MAX_DOCUMENTS"`
	} `yaml:"workflow"`

	Telemetry struct {
		Enabled     bool   `yaml:"enabled" env:"TELEMETRY_ENABLED"`
		Stdout      bool   `yaml:"stdout" env:"TELEMETRY_STDOUT"`
		ServiceName string `yaml:"service_name" env:"TELEMETRY_SERVICE_NAME"`
	} `yaml:"telemetry"`

	Seed struct {
		Enabled         bool   `yaml:"enabled" env:"SEED_ENABLED"`
		AdminEmail      string `yaml:"admin_email" env:"SEED_ADMIN_EMAIL"`
		AdminPassword   string `yaml:"admin_password" env:"SEED_ADMIN_PASSWORD"`
		OfficerPassword string `yaml:"officer_password" env:"SEED_OFFICER_PASSWORD"`
	} `yaml:"seed"`
}

// LoadConfig loads configuration from a file and environment variables.
// A .env file in the working directory, when present, is loaded into the
// process environment first; variables already set are not overridden.
func LoadConfig(configPath string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	// Load default config with sane defaults
	config := &Config{}
	setDefaults(config)

	// Try to read config file if it exists
	if _, err := os.Stat(configPath); err == nil {
		file, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}

		if err := yaml.Unmarshal(file, config); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	// Override with environment variables
	if err := processStructFields(config); err != nil {
		return nil, fmt.Errorf("failed to load from environment: %w", err)
	}

	if err := validateConfig(config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// setDefaults sets default values for the configuration
func setDefaults(config *Config) {
	// Server defaults
	config.Server.Port = "8080"
	config.Server.Mode = "development"
	config.Server.StoragePath = "./uploads"
	config.Server.BaseURL = "http://localhost:8080"

	// Database defaults
	config.Database.Driver = DriverPostgres
	config.Database.Host = "localhost"
	config.Database.Port = "5432"
	config.Database.User = "postgres"
	config.Database.Password = "postgres"
	config.Database.DBName = "nodues"
	config.Database.SSLMode = "disable"
	config.Database.MaxIdleConns = 5
	config.Database.MaxOpenConns = 20
	config.Database.ConnMaxLifetime = "1h"
	config.Database.QueryTimeout = "5s"
	config.Database.MigrationsDir = "migrations"

	// JWT defaults
	config.JWT.AccessTokenExpiration = "24h"
	config.JWT.Issuer = "nodues.app"

	// Logging defaults
	config.Logging.Level = "info"
	config.Logging.Format = "json"

	// Workflow defaults
	config.Workflow.CascadeRejection = false
	config.Workflow.FinalStatus = FinalReadyForCollection
	config.Workflow.ReferenceCacheTTL = "10m"
	config.Workflow.MaxDocuments = 10

	config.Telemetry.ServiceName = "nodues"

	config.Seed.Enabled = true
	config.Seed.AdminEmail = "admin@nodues.app"
}

// validateConfig ensures that the configuration is valid
func validateConfig(config *Config) error {
	switch config.Database.Driver {
	case DriverPostgres:
		if config.Database.Host == "" {
			return fmt.Errorf("database host is required")
		}
	case DriverMemory:
	case "":
		return fmt.Errorf("database driver is required")
	default:
		return fmt.Errorf("unsupported database driver %q", config.Database.Driver)
	}

	if config.JWT.Secret == "" {
		return fmt.Errorf("JWT secret is required")
	}

	if _, err := time.ParseDuration(config.JWT.AccessTokenExpiration); err != nil {
		return fmt.Errorf("invalid JWT access token expiration format: %w", err)
	}

	timeout, err := time.ParseDuration(config.Database.QueryTimeout)
	if err != nil {
		return fmt.Errorf("invalid database query timeout format: %w", err)
	}
	if timeout <= 0 {
		return fmt.Errorf("database query timeout must be positive")
	}

	if _, err := time.ParseDuration(config.Workflow.ReferenceCacheTTL); err != nil {
		return fmt.Errorf("invalid reference cache ttl format: %w", err)
	}

	switch config.Workflow.FinalStatus {
	case FinalReadyForCollection, FinalCompleted:
	default:
		return fmt.Errorf("workflow final status must be %q or %q", FinalReadyForCollection, FinalCompleted)
	}

	if config.Workflow.MaxDocuments < 0 {
		return fmt.Errorf("workflow max documents cannot be negative")
	}

	return nil
}

// GetPostgresConnectionString returns postgres connection string
func (c *Config) GetPostgresConnectionString() string {
	sslMode := c.Database.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}

	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.DBName,
		sslMode,
	)
}

// QueryTimeout returns the parsed per-call store timeout
func (c *Config) QueryTimeout() time.Duration {
	d, err := time.ParseDuration(c.Database.QueryTimeout)
	if err != nil || d <= 0 {
		return 5 * time.Second
	}
	return d
}

// ReferenceCacheTTL returns the parsed lifetime of cached reference data
func (c *Config) ReferenceCacheTTL() time.Duration {
	d, err := time.ParseDuration(c.Workflow.ReferenceCacheTTL)
	if err != nil {
		return 10 * time.Minute
	}
	return d
}

// AccessTokenTTL returns the parsed JWT lifetime
func (c *Config) AccessTokenTTL() time.Duration {
	d, err := time.ParseDuration(c.JWT.AccessTokenExpiration)
	if err != nil {
		return 24 * time.Hour
	}
	return d
}
