package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"gys/internal/models"
)

type Config struct {
	App        AppConfig        `yaml:"app"`
	Calendar   CalendarConfig   `yaml:"calendar"`
	Firestore  FirestoreConfig  `yaml:"firestore"`
	Sync       SyncConfig       `yaml:"sync"`
	Telegram   TelegramConfig   `yaml:"telegram"`
	Managers   []int64          `yaml:"managers"`
	Database   DatabaseConfig   `yaml:"database"`
	Redis      RedisConfig      `yaml:"redis"`
	Monitoring MonitoringConfig `yaml:"monitoring"`
	Logging    LoggingConfig    `yaml:"logging"`
	API        APIConfig        `yaml:"api"`
	Exports    ExportConfig     `yaml:"exports"`
}

type AppConfig struct {
	Name        string `yaml:"name"`
	Environment string `yaml:"environment"`
	Version     string `yaml:"version"`
}

type CalendarConfig struct {
	CalendarID      string `yaml:"calendar_id"`
	CredentialsFile string `yaml:"credentials_file"`
	Timezone        string `yaml:"timezone"`
	WebhookAddress  string `yaml:"webhook_address"`
	ChannelTTLHours int    `yaml:"channel_ttl_hours"`
	RenewAheadHours int    `yaml:"renew_ahead_hours"`
}

type FirestoreConfig struct {
	ProjectID       string            `yaml:"project_id"`
	CredentialsFile string            `yaml:"credentials_file"`
	Collections     CollectionsConfig `yaml:"collections"`
}

type CollectionsConfig struct {
	Gelinler string `yaml:"gelinler"`
	Meta     string `yaml:"meta"`
	Channels string `yaml:"channels"`
}

type SyncConfig struct {
	IntervalMinutes int `yaml:"interval_minutes"`
	LockTTLSeconds  int `yaml:"lock_ttl_seconds"`
	GraceMinutes    int `yaml:"grace_minutes"`
	ChannelLookback int `yaml:"channel_lookback"`
	YearsBack       int `yaml:"years_back"`
	YearsAhead      int `yaml:"years_ahead"`
}

type TelegramConfig struct {
	BotToken string `yaml:"bot_token"`
	Debug    bool   `yaml:"debug"`
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
}

type RedisConfig struct {
	Address  string `yaml:"address"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	PoolSize int    `yaml:"pool_size"`
}

type MonitoringConfig struct {
	PrometheusEnabled bool `yaml:"prometheus_enabled"`
	PrometheusPort    int  `yaml:"prometheus_port"`
}

type LoggingConfig struct {
	Level    string `yaml:"level"`
	Format   string `yaml:"format"`
	Output   string `yaml:"output"`
	FilePath string `yaml:"file_path"`
}

type APIConfig struct {
	Enabled   bool               `yaml:"enabled"`
	HTTP      APIHTTPConfig      `yaml:"http"`
	Auth      APIAuthConfig      `yaml:"auth"`
	RateLimit APIRateLimitConfig `yaml:"rate_limit"`
}

type APIHTTPConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

type APIAuthConfig struct {
	Enabled      bool           `yaml:"enabled"`
	HeaderAPIKey string         `yaml:"header_api_key"`
	APIKeys      []APIClientKey `yaml:"api_keys"`
}

type APIClientKey struct {
	Key         string   `yaml:"key"`
	Name        string   `yaml:"name"`
	Permissions []string `yaml:"permissions"`
}

type APIRateLimitConfig struct {
	RPS   float64 `yaml:"rps"`
	Burst int     `yaml:"burst"`
}

type ExportConfig struct {
	Path string `yaml:"path"`
}

func Load(configPath string) (*Config, error) {
	err := godotenv.Load(".env")
	if err != nil && !os.IsNotExist(err) {
		return nil, err
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}

	// Environment variables are substituted before parsing so secrets
	// stay out of the YAML file.
	expandedData := []byte(os.ExpandEnv(string(data)))

	var config Config
	if err := yaml.Unmarshal(expandedData, &config); err != nil {
		return nil, err
	}

	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

func (c *Config) Validate() error {
	if c.Calendar.CalendarID == "" {
		return errors.New("calendar id is required")
	}
	if c.Calendar.CredentialsFile == "" {
		return errors.New("calendar credentials file is required")
	}
	if c.Firestore.ProjectID == "" {
		return errors.New("firestore project id is required")
	}
	if c.Database.Path == "" {
		return errors.New("database path is required")
	}
	return nil
}

// ValidateStaff rejects staff lists with blank or duplicate initials.
// Duplicates would make title resolution depend on file order.
func ValidateStaff(staff []models.Staff) error {
	seen := make(map[string]bool)
	for _, s := range staff {
		if s.Initials == "" {
			return fmt.Errorf("staff member '%s' has empty initials", s.Name)
		}
		if seen[s.Initials] {
			return fmt.Errorf("duplicate staff initials found: %s", s.Initials)
		}
		seen[s.Initials] = true
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.API.HTTP.Port == 0 {
		c.API.HTTP.Port = 8080
	}
	if c.Monitoring.PrometheusEnabled && c.Monitoring.PrometheusPort == 0 {
		c.Monitoring.PrometheusPort = 9090
	}
	if !c.API.Auth.Enabled {
		c.API.Auth.Enabled = true
	}
	if !c.API.HTTP.Enabled && c.API.Enabled {
		c.API.HTTP.Enabled = true
	}
	if c.API.Auth.HeaderAPIKey == "" {
		c.API.Auth.HeaderAPIKey = "x-api-key"
	}

	if c.Calendar.Timezone == "" {
		c.Calendar.Timezone = "Europe/Istanbul"
	}
	if c.Calendar.ChannelTTLHours == 0 {
		c.Calendar.ChannelTTLHours = 7 * 24
	}
	if c.Calendar.RenewAheadHours == 0 {
		c.Calendar.RenewAheadHours = 24
	}

	if c.Firestore.Collections.Gelinler == "" {
		c.Firestore.Collections.Gelinler = "gelinler"
	}
	if c.Firestore.Collections.Meta == "" {
		c.Firestore.Collections.Meta = "meta"
	}
	if c.Firestore.Collections.Channels == "" {
		c.Firestore.Collections.Channels = "webhookChannels"
	}

	if c.Sync.IntervalMinutes == 0 {
		c.Sync.IntervalMinutes = 15
	}
	if c.Sync.LockTTLSeconds == 0 {
		c.Sync.LockTTLSeconds = models.SyncLockTTLSeconds
	}
	if c.Sync.GraceMinutes == 0 {
		c.Sync.GraceMinutes = models.ChannelGraceMinutes
	}
	if c.Sync.ChannelLookback == 0 {
		c.Sync.ChannelLookback = models.ChannelLookback
	}
	if c.Sync.YearsBack == 0 {
		c.Sync.YearsBack = models.FullSyncYearsBack
	}
	if c.Sync.YearsAhead == 0 {
		c.Sync.YearsAhead = models.FullSyncYearsAhead
	}
}
