package model

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// MailboxConfig holds the IMAP/SMTP connection settings for the
// watched inbox.
type MailboxConfig struct {
	IMAPHost string `mapstructure:"imap_host" yaml:"imap_host"`
	IMAPPort string `mapstructure:"imap_port" yaml:"imap_port"`
	SMTPHost string `mapstructure:"smtp_host" yaml:"smtp_host"`
	SMTPPort string `mapstructure:"smtp_port" yaml:"smtp_port"`

	Username string `mapstructure:"username" yaml:"username"`

	// Password may be left empty in the config file, in which case it
	// is read from the system keyring under "imap-password".
	Password string `mapstructure:"password" yaml:"password"`

	TLS    bool   `mapstructure:"tls" yaml:"tls"`
	Folder string `mapstructure:"folder" yaml:"folder"`
}

// PlaneConfig holds the connection settings for the Plane workspace.
type PlaneConfig struct {
	BaseURL   string `mapstructure:"base_url" yaml:"base_url"`
	Workspace string `mapstructure:"workspace" yaml:"workspace"`

	// APIKey may be left empty in the config file, in which case it is
	// read from the system keyring under "plane-api-key".
	APIKey string `mapstructure:"api_key" yaml:"api_key"`

	// Project is the default project, given as a project id/UUID or a
	// slug. When unset the first project visible to the credentials is
	// used.
	Project string `mapstructure:"project" yaml:"project"`

	// FilterTag restricts processing to subjects containing "[tag]".
	// Empty means every matched email is processed.
	FilterTag string `mapstructure:"filter_tag" yaml:"filter_tag"`
}

// WatchConfig holds the polling-loop settings.
type WatchConfig struct {
	PollIntervalMS int `mapstructure:"poll_interval_ms" yaml:"poll_interval_ms"`

	// RedisURL enables the Redis-backed seen-filter when set. The
	// default is an in-memory seen-set scoped to one watch session.
	RedisURL string `mapstructure:"redis_url" yaml:"redis_url"`

	// SendConfirmation enables a confirmation reply to the sender
	// after a successful create or update.
	SendConfirmation bool `mapstructure:"send_confirmation" yaml:"send_confirmation"`

	// HistoryDB is the path of the local triage-history database.
	HistoryDB string `mapstructure:"history_db" yaml:"history_db"`
}

// AppConfig is the top-level application configuration.
type AppConfig struct {
	Mailbox MailboxConfig `mapstructure:"mailbox" yaml:"mailbox"`
	Plane   PlaneConfig   `mapstructure:"plane" yaml:"plane"`
	Watch   WatchConfig   `mapstructure:"watch" yaml:"watch"`
}

// PollInterval returns the configured poll interval as a duration.
func (c *AppConfig) PollInterval() time.Duration {
	return time.Duration(c.Watch.PollIntervalMS) * time.Millisecond
}

// DefaultConfigPath returns the default path for the configuration
// file, located at ~/.config/mailplane/config.yaml.
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "config.yaml")
	}
	return filepath.Join(home, ".config", "mailplane", "config.yaml")
}

// defaultHistoryDBPath returns the default triage-history database
// location next to the config file.
func defaultHistoryDBPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "history.db")
	}
	return filepath.Join(home, ".config", "mailplane", "history.db")
}

// defaultAppConfig returns a sensible default configuration.
func defaultAppConfig() *AppConfig {
	return &AppConfig{
		Mailbox: MailboxConfig{
			IMAPPort: "993",
			SMTPPort: "587",
			TLS:      true,
			Folder:   "INBOX",
		},
		Watch: WatchConfig{
			PollIntervalMS: 5000,
			HistoryDB:      defaultHistoryDBPath(),
		},
	}
}

// LoadConfig reads configuration from the given YAML file path using
// Viper. If the file does not exist, it returns a default
// configuration.
func LoadConfig(path string) (*AppConfig, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	// Set defaults so missing keys resolve to sensible values.
	v.SetDefault("mailbox.imap_port", "993")
	v.SetDefault("mailbox.smtp_port", "587")
	v.SetDefault("mailbox.tls", true)
	v.SetDefault("mailbox.folder", "INBOX")
	v.SetDefault("watch.poll_interval_ms", 5000)
	v.SetDefault("watch.history_db", defaultHistoryDBPath())

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(*os.PathError); ok {
			return defaultAppConfig(), nil
		}
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return defaultAppConfig(), nil
		}
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	cfg := defaultAppConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	return cfg, nil
}

// SaveConfig writes the given configuration to a YAML file at path,
// creating parent directories if needed.
func SaveConfig(path string, cfg *AppConfig) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory %s: %w", dir, err)
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.Set("mailbox", cfg.Mailbox)
	v.Set("plane", cfg.Plane)
	v.Set("watch", cfg.Watch)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}

	return nil
}
