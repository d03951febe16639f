package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"family-notify/internal/common/validation"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

func Load() (*Config, error) {
	loadEnvFile()

	// Base config
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./configs")
	viper.AddConfigPath("../../configs")
	viper.AddConfigPath(".")

	// Enable ENV override like WHATSAPP_ACCESS_TOKEN
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	env := os.Getenv("APP_ENVIRONMENT")
	if env == "" {
		env = "development"
	}

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading base config: %w", err)
		}
	}

	// Environment overlay, merged on top of the base file when present.
	viper.SetConfigName(fmt.Sprintf("config.%s", env))
	_ = viper.MergeInConfig()

	expandEnvVars(viper.GetViper())

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&cfg)
	overrideEmptyConfig(&cfg)

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// LoadFromFile loads configuration from a specific file path.
func LoadFromFile(path string) (*Config, error) {
	loadEnvFile()

	viper.SetConfigFile(path)
	viper.SetConfigType("yaml")

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	expandEnvVars(viper.GetViper())

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&cfg)
	overrideEmptyConfig(&cfg)

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// loadEnvFile loads .env from the working directory or the project root, so
// both the binary and package tests pick it up.
func loadEnvFile() {
	possiblePaths := []string{
		".env",
		"../.env",
		"../../.env",
		"../../../.env",
	}

	if rootDir := findProjectRoot(); rootDir != "" {
		possiblePaths = append(possiblePaths, filepath.Join(rootDir, ".env"))
	}

	for _, path := range possiblePaths {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Load(path); err == nil {
				return
			}
		}
	}
}

// findProjectRoot walks up from the working directory looking for go.mod.
func findProjectRoot() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return ""
}

// expandEnvVars resolves ${VAR} placeholders in string config values.
func expandEnvVars(v *viper.Viper) {
	for _, key := range v.AllKeys() {
		val := v.Get(key)

		if strVal, ok := val.(string); ok {
			if strings.Contains(strVal, "${") || (strings.HasPrefix(strVal, "$") && len(strVal) > 1) {
				expanded := os.ExpandEnv(strVal)
				if expanded != strVal && expanded != "" {
					v.Set(key, expanded)
				}
			}
		}
	}
}

// overrideEmptyConfig fills secrets from the environment when the config
// files left them empty.
func overrideEmptyConfig(cfg *Config) {
	if cfg.Notifications.WhatsApp.AccessToken == "" {
		if val := os.Getenv("WHATSAPP_ACCESS_TOKEN"); val != "" {
			cfg.Notifications.WhatsApp.AccessToken = val
		}
	}
	if cfg.Notifications.WhatsApp.PhoneNumberID == "" {
		if val := os.Getenv("WHATSAPP_PHONE_NUMBER_ID"); val != "" {
			cfg.Notifications.WhatsApp.PhoneNumberID = val
		}
	}
	if cfg.Notifications.Push.CredentialsFile == "" {
		if val := os.Getenv("FCM_CREDENTIALS_FILE"); val != "" {
			cfg.Notifications.Push.CredentialsFile = val
		}
	}

	if cfg.Database.Postgres.User == "" {
		if val := os.Getenv("DB_USER"); val != "" {
			cfg.Database.Postgres.User = val
		}
	}
	if cfg.Database.Postgres.Password == "" {
		if val := os.Getenv("DB_PASSWORD"); val != "" {
			cfg.Database.Postgres.Password = val
		}
	}
}

// applyDefaults sets default values for optional configuration fields.
func applyDefaults(cfg *Config) {
	if cfg.Database.Postgres.MaxConnections == 0 {
		cfg.Database.Postgres.MaxConnections = 25
	}
	if cfg.Database.Postgres.MaxIdle == 0 {
		cfg.Database.Postgres.MaxIdle = 5
	}
	if cfg.Database.Postgres.SSLMode == "" {
		cfg.Database.Postgres.SSLMode = "disable"
	}

	if cfg.Database.Elasticsearch.Index == "" {
		cfg.Database.Elasticsearch.Index = "notification-deliveries"
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
	if cfg.Logging.Output == "" {
		cfg.Logging.Output = "stdout"
	}

	if cfg.Metrics.Address == "" {
		cfg.Metrics.Address = ":9090"
	}

	if len(cfg.Notifications.ChannelPriority) == 0 {
		cfg.Notifications.ChannelPriority = []string{"whatsapp", "sms", "push"}
	}
	if cfg.Notifications.DefaultLanguage == "" {
		cfg.Notifications.DefaultLanguage = "ar"
	}
	if cfg.Notifications.PreferenceCacheTTL == 0 {
		cfg.Notifications.PreferenceCacheTTL = 120
	}
	if cfg.Notifications.WhatsApp.BaseURL == "" {
		cfg.Notifications.WhatsApp.BaseURL = "https://graph.facebook.com/v19.0"
	}
	if cfg.Notifications.WhatsApp.Timeout == 0 {
		cfg.Notifications.WhatsApp.Timeout = 15000
	}
}

// validateConfig validates critical configuration fields.
func validateConfig(cfg *Config) error {
	if cfg.Database.Postgres.Host == "" {
		return fmt.Errorf("database.postgres.host is required")
	}
	if cfg.Database.Postgres.Database == "" {
		return fmt.Errorf("database.postgres.database is required")
	}
	if cfg.Database.Postgres.User == "" {
		return fmt.Errorf("database.postgres.user is required")
	}

	if cfg.Database.Redis.Address == "" {
		return fmt.Errorf("database.redis.address is required")
	}

	for _, ch := range cfg.Notifications.ChannelPriority {
		if !validation.ValidChannel(ch) {
			return fmt.Errorf("notifications.channel_priority: unknown channel %q", ch)
		}
	}
	if !validation.ValidLanguage(cfg.Notifications.DefaultLanguage) {
		return fmt.Errorf("notifications.default_language must be \"ar\" or \"en\"")
	}

	if cfg.Notifications.WhatsApp.Enabled {
		if cfg.Notifications.WhatsApp.PhoneNumberID == "" {
			return fmt.Errorf("notifications.whatsapp.phone_number_id is required when whatsapp is enabled")
		}
		if cfg.Notifications.WhatsApp.AccessToken == "" {
			return fmt.Errorf("notifications.whatsapp.access_token is required when whatsapp is enabled")
		}
	}
	if cfg.Notifications.Push.Enabled && cfg.Notifications.Push.ProjectID == "" {
		return fmt.Errorf("notifications.push.project_id is required when push is enabled")
	}

	return nil
}

// GetDuration converts milliseconds from config to time.Duration.
func GetDuration(milliseconds int) time.Duration {
	return time.Duration(milliseconds) * time.Millisecond
}

// PreferenceCacheTTL returns the configured cache TTL as a duration.
func (n NotificationConfig) CacheTTL() time.Duration {
	return time.Duration(n.PreferenceCacheTTL) * time.Second
}
