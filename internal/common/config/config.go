package config

import "fmt"

// Config is the main application configuration struct.
type Config struct {
	App           AppConfig          `mapstructure:"app"`
	Database      DatabaseConfig     `mapstructure:"database"`
	Logging       LoggingConfig      `mapstructure:"logging"`
	Notifications NotificationConfig `mapstructure:"notifications"`
	Metrics       MetricsConfig      `mapstructure:"metrics"`
}

// --- Core App/Infrastructure Config ---
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

type DatabaseConfig struct {
	Postgres      PostgresConfig      `mapstructure:"postgres"`
	Redis         RedisConfig         `mapstructure:"redis"`
	Elasticsearch ElasticsearchConfig `mapstructure:"elasticsearch"`
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

// GetDSN returns the PostgreSQL connection string.
func (p PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type ElasticsearchConfig struct {
	Addresses []string `mapstructure:"addresses"`
	Username  string   `mapstructure:"username"`
	Password  string   `mapstructure:"password"`
	Index     string   `mapstructure:"index"`
}

// Enabled reports whether a delivery-log sink is configured at all.
func (e ElasticsearchConfig) Enabled() bool {
	return len(e.Addresses) > 0
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}

// MetricsConfig holds the metrics/pprof listener settings.
type MetricsConfig struct {
	Address string `mapstructure:"address"`
}

// NotificationConfig holds delivery settings for the dispatcher and senders.
type NotificationConfig struct {
	// ChannelPriority is the ordered fallback list the dispatcher walks.
	ChannelPriority []string `mapstructure:"channel_priority"`
	// DefaultLanguage is used when a preference record carries no language.
	DefaultLanguage string `mapstructure:"default_language"`
	// PreferenceCacheTTL bounds preference staleness, in seconds.
	PreferenceCacheTTL int `mapstructure:"preference_cache_ttl"`

	WhatsApp WhatsAppConfig `mapstructure:"whatsapp"`
	SMS      SMSConfig      `mapstructure:"sms"`
	Email    EmailConfig    `mapstructure:"email"`
	Push     PushConfig     `mapstructure:"push"`
}

// WhatsAppConfig holds WhatsApp Business Cloud API settings.
type WhatsAppConfig struct {
	Enabled       bool   `mapstructure:"enabled"`
	BaseURL       string `mapstructure:"base_url"`
	PhoneNumberID string `mapstructure:"phone_number_id"`
	AccessToken   string `mapstructure:"access_token"`
	Timeout       int    `mapstructure:"timeout"` // milliseconds
}

// SMSConfig holds AWS SNS settings. The channel ships disabled; the publish
// path stays wired behind the flag for forward compatibility.
type SMSConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Region   string `mapstructure:"region"`
	SenderID string `mapstructure:"sender_id"`
}

// EmailConfig holds AWS SES settings. Email is a defined channel but not in
// the default attempt order.
type EmailConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Region    string `mapstructure:"region"`
	FromEmail string `mapstructure:"from_email"`
}

// PushConfig holds Firebase Cloud Messaging settings.
type PushConfig struct {
	Enabled         bool   `mapstructure:"enabled"`
	ProjectID       string `mapstructure:"project_id"`
	CredentialsFile string `mapstructure:"credentials_file"`
}
