package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	envPrefix           = "SNIPPYVAULT"
	defaultHTTPAddress  = "127.0.0.1:8080"
	defaultDatabasePath = "snippyvault.db"
	defaultLogLevel     = "info"
	defaultLogFormat    = "json"
	defaultAPIBaseURL   = "http://127.0.0.1:8080"
	defaultAPITimeout   = 15 * time.Second
	defaultSessionPath  = "~/.config/snippyvault/session.toml"
)

// AppConfig captures runtime configuration for the server and the client commands.
type AppConfig struct {
	HTTPAddress    string
	AllowedOrigins []string
	DatabasePath   string
	LogLevel       string
	LogFormat      string
	APIBaseURL     string
	APITimeout     time.Duration
	SessionPath    string
}

// NewViper returns a viper instance with defaults and env bindings configured.
func NewViper() *viper.Viper {
	configViper := viper.New()
	ApplyDefaults(configViper)
	return configViper
}

// ApplyDefaults configures defaults and env bindings on the provided viper instance.
func ApplyDefaults(configViper *viper.Viper) {
	configViper.SetEnvPrefix(envPrefix)
	configViper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	configViper.AutomaticEnv()

	configViper.SetDefault("http.address", defaultHTTPAddress)
	configViper.SetDefault("http.allowed_origins", []string{"*"})
	configViper.SetDefault("database.path", defaultDatabasePath)
	configViper.SetDefault("log.level", defaultLogLevel)
	configViper.SetDefault("log.format", defaultLogFormat)
	configViper.SetDefault("api.base_url", defaultAPIBaseURL)
	configViper.SetDefault("api.timeout", defaultAPITimeout)
	configViper.SetDefault("session.path", defaultSessionPath)
}

// Load parses runtime configuration from viper.
func Load(configViper *viper.Viper) (AppConfig, error) {
	cfg := AppConfig{
		HTTPAddress:    configViper.GetString("http.address"),
		AllowedOrigins: configViper.GetStringSlice("http.allowed_origins"),
		DatabasePath:   configViper.GetString("database.path"),
		LogLevel:       configViper.GetString("log.level"),
		LogFormat:      configViper.GetString("log.format"),
		APIBaseURL:     configViper.GetString("api.base_url"),
		APITimeout:     configViper.GetDuration("api.timeout"),
		SessionPath:    configViper.GetString("session.path"),
	}

	if err := cfg.validate(); err != nil {
		return AppConfig{}, err
	}

	return cfg, nil
}

func (c AppConfig) validate() error {
	if strings.TrimSpace(c.HTTPAddress) == "" {
		return fmt.Errorf("http.address is required")
	}
	if strings.TrimSpace(c.DatabasePath) == "" {
		return fmt.Errorf("database.path is required")
	}
	if strings.TrimSpace(c.APIBaseURL) == "" {
		return fmt.Errorf("api.base_url is required")
	}
	if c.APITimeout <= 0 {
		return fmt.Errorf("api.timeout must be positive")
	}
	if strings.TrimSpace(c.SessionPath) == "" {
		return fmt.Errorf("session.path is required")
	}
	return nil
}
