package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"go.uber.org/fx"
)

var Module = fx.Module("config",
	fx.Provide(NewConfig),
)

// Storage drivers understood by database.Open.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Config holds all application configuration
type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"local"`
	Debug       bool   `env:"DEBUG" envDefault:"false"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	Database DatabaseConfig

	// Graph settings shared by the bulk save and import flows
	Graph GraphConfig
}

// DatabaseConfig selects the storage engine and holds its connection settings
type DatabaseConfig struct {
	// Driver is "postgres" or "sqlite"
	Driver string `env:"DB_DRIVER" envDefault:"sqlite"`

	// SQLitePath is a file path or ":memory:"
	SQLitePath string `env:"SQLITE_PATH" envDefault:"kg.db"`

	Host         string        `env:"POSTGRES_HOST" envDefault:"localhost"`
	Port         int           `env:"POSTGRES_PORT" envDefault:"5432"`
	User         string        `env:"POSTGRES_USER" envDefault:"truth"`
	Password     string        `env:"POSTGRES_PASSWORD" envDefault:""`
	Database     string        `env:"POSTGRES_DB" envDefault:"truth"`
	SSLMode      string        `env:"POSTGRES_SSL_MODE" envDefault:"disable"`
	MaxOpenConns int           `env:"DB_MAX_OPEN_CONNS" envDefault:"10"`
	MaxIdleConns int           `env:"DB_MAX_IDLE_CONNS" envDefault:"2"`
	MaxIdleTime  time.Duration `env:"DB_MAX_IDLE_TIME" envDefault:"5m"`
	QueryDebug   bool          `env:"DB_QUERY_DEBUG" envDefault:"false"`

	// AutoMigrate runs pending goose migrations when the handle opens
	AutoMigrate bool `env:"DB_AUTO_MIGRATE" envDefault:"true"`
}

// DSN returns the connection string for the configured driver
func (d *DatabaseConfig) DSN() string {
	if d.IsSQLite() {
		return SQLiteDSN(d.SQLitePath)
	}
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Database, d.SSLMode,
	)
}

// IsSQLite reports whether the embedded engine is selected
func (d *DatabaseConfig) IsSQLite() bool {
	return strings.EqualFold(d.Driver, DriverSQLite)
}

// IsMemory reports whether the SQLite database lives only in memory
func (d *DatabaseConfig) IsMemory() bool {
	return d.IsSQLite() && (d.SQLitePath == ":memory:" || strings.Contains(d.SQLitePath, "mode=memory"))
}

// Validate checks the driver name
func (d *DatabaseConfig) Validate() error {
	switch strings.ToLower(d.Driver) {
	case DriverPostgres, DriverSQLite:
		return nil
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q (want %q or %q)", d.Driver, DriverPostgres, DriverSQLite)
	}
}

// SQLiteDSN builds a modernc.org/sqlite DSN with the pragmas the graph
// store relies on.
func SQLiteDSN(path string) string {
	if path == ":memory:" {
		return "file::memory:?_pragma=busy_timeout(5000)"
	}
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + "_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
}

// GraphConfig holds knobs for the bulk save operations
type GraphConfig struct {
	// InstanceOfName is the property type name used for instance-of edges
	InstanceOfName string `env:"GRAPH_INSTANCE_OF" envDefault:"InstanceOf"`

	// BootstrapKinds registers every declared kind's type row at startup
	BootstrapKinds bool `env:"GRAPH_BOOTSTRAP_KINDS" envDefault:"true"`
}

// NewConfig loads configuration from environment variables
func NewConfig(log *slog.Logger) (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Database.Validate(); err != nil {
		return nil, err
	}

	log.Info("configuration loaded",
		slog.String("environment", cfg.Environment),
		slog.String("db_driver", cfg.Database.Driver),
	)

	return cfg, nil
}
