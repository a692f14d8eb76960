package config

import (
	"fmt"
	"time"
)

// Config is the main application configuration struct.
type Config struct {
	App           AppConfig               `mapstructure:"app"`
	Camunda       CamundaConfig           `mapstructure:"camunda"`
	Box           BoxConfig               `mapstructure:"box"`
	Database      DatabaseConfig          `mapstructure:"database"`
	Metadata      MetadataConfig          `mapstructure:"metadata"`
	Workers       map[string]WorkerConfig `mapstructure:"workers"`
	Notifications NotificationConfig      `mapstructure:"notifications"`
	Metrics       MetricsConfig           `mapstructure:"metrics"`
	Logging       LoggingConfig           `mapstructure:"logging"`
}

// --- Core App/Infrastructure Config ---
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

type CamundaConfig struct {
	BrokerAddress  string `mapstructure:"broker_address"`
	Plaintext      bool   `mapstructure:"plaintext"`
	MaxJobsActive  int    `mapstructure:"max_jobs_active"`
	Timeout        int    `mapstructure:"timeout"`         // milliseconds
	RequestTimeout int    `mapstructure:"request_timeout"` // milliseconds
}

// BoxConfig holds the Box API endpoint and credentials. Either DeveloperToken
// or the client-credentials pair must be set.
type BoxConfig struct {
	BaseURL        string `mapstructure:"base_url"`
	TokenURL       string `mapstructure:"token_url"`
	ClientID       string `mapstructure:"client_id"`
	ClientSecret   string `mapstructure:"client_secret"`
	SubjectType    string `mapstructure:"subject_type"` // enterprise or user
	SubjectID      string `mapstructure:"subject_id"`
	DeveloperToken string `mapstructure:"developer_token"`
	Timeout        int    `mapstructure:"timeout"` // milliseconds
}

// HasCredentials reports whether some form of Box auth is configured.
func (b BoxConfig) HasCredentials() bool {
	return b.DeveloperToken != "" || (b.ClientID != "" && b.ClientSecret != "")
}

type DatabaseConfig struct {
	Postgres PostgresConfig `mapstructure:"postgres"`
	Redis    RedisConfig    `mapstructure:"redis"`
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

// Enabled reports whether a Postgres session source is configured.
func (p PostgresConfig) Enabled() bool {
	return p.Host != "" && p.Database != ""
}

type RedisConfig struct {
	Address   string `mapstructure:"address"`
	Password  string `mapstructure:"password"`
	DB        int    `mapstructure:"db"`
	KeyPrefix string `mapstructure:"key_prefix"`
}

// MetadataConfig holds the defaults for each metadata run. Jobs and CLI
// flags may override them.
type MetadataConfig struct {
	Timeout            int  `mapstructure:"timeout"` // seconds
	NormalizeKeys      bool `mapstructure:"normalize_keys"`
	FilterPlaceholders bool `mapstructure:"filter_placeholders"`
}

// TimeoutDuration converts the per-file timeout to a time.Duration.
func (m MetadataConfig) TimeoutDuration() time.Duration {
	return time.Duration(m.Timeout) * time.Second
}

// WorkerConfig holds the core settings applicable to every worker.
type WorkerConfig struct {
	Enabled       bool `mapstructure:"enabled"`
	MaxJobsActive int  `mapstructure:"max_jobs_active"`
	Timeout       int  `mapstructure:"timeout"` // milliseconds
	MaxRetries    int  `mapstructure:"max_retries"`
}

// NotificationConfig configures where run summaries are published.
type NotificationConfig struct {
	AWS struct {
		Region string `mapstructure:"region"`
	} `mapstructure:"aws"`
	SNS struct {
		Enabled  bool   `mapstructure:"enabled"`
		TopicARN string `mapstructure:"topic_arn"`
	} `mapstructure:"sns"`
	SES struct {
		Enabled   bool     `mapstructure:"enabled"`
		FromEmail string   `mapstructure:"from_email"`
		To        []string `mapstructure:"to"`
	} `mapstructure:"ses"`
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Address string `mapstructure:"address"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}
