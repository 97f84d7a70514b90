// internal/common/config/config.go
package config

import "fmt"

// Config is the main application configuration struct.
type Config struct {
	App      AppConfig      `mapstructure:"app"`
	Listener ListenerConfig `mapstructure:"listener"`
	Relay    RelayConfig    `mapstructure:"relay"`
	Report   ReportConfig   `mapstructure:"report"`
	Database DatabaseConfig `mapstructure:"database"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
}

// --- Core App/Infrastructure Config ---
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

// ListenerConfig holds settings for the order change listener.
type ListenerConfig struct {
	Transport       string   `mapstructure:"transport"`        // "redis" or "postgres"
	Scopes          []string `mapstructure:"scopes"`           // "merchantId:branchId" entries to watch
	FreshnessWindow int      `mapstructure:"freshness_window"` // seconds; orders older than this are skipped
	PollInterval    int      `mapstructure:"poll_interval"`    // seconds; postgres transport only
	DispatchTimeout int      `mapstructure:"dispatch_timeout"` // seconds per dispatch attempt
}

// RelayConfig holds settings for the outbound mail relay.
type RelayConfig struct {
	Endpoint  string `mapstructure:"endpoint"`
	Timeout   int    `mapstructure:"timeout"` // seconds
	Transport string `mapstructure:"transport"` // "http" or "ses"
	SES       struct {
		Region    string `mapstructure:"region"`
		FromEmail string `mapstructure:"from_email"`
	} `mapstructure:"ses"`
}

// ReportConfig holds settings for user-initiated sales reports.
type ReportConfig struct {
	DefaultStoreName string `mapstructure:"default_store_name"`
	TopItemsLimit    int    `mapstructure:"top_items_limit"`
}

type DatabaseConfig struct {
	Postgres      PostgresConfig      `mapstructure:"postgres"`
	Elasticsearch ElasticsearchConfig `mapstructure:"elasticsearch"`
	Redis         RedisConfig         `mapstructure:"redis"`
}

type PostgresConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Database       string `mapstructure:"database"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	MaxConnections int    `mapstructure:"max_connections"`
	MaxIdle        int    `mapstructure:"max_idle"`
	SSLMode        string `mapstructure:"sslmode"`
}

// GetDSN returns the PostgreSQL connection string
func (p PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

type ElasticsearchConfig struct {
	Addresses []string `mapstructure:"addresses"`
	Username  string   `mapstructure:"username"`
	Password  string   `mapstructure:"password"`
	Index     string   `mapstructure:"index"`
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // "json" or "console"
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Address string `mapstructure:"address"`
}
