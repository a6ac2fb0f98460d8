package main

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Port          string `mapstructure:"PORT"`
	Environment   string `mapstructure:"ENVIRONMENT"`
	Version       string `mapstructure:"VERSION"`
	SiteURL       string `mapstructure:"SITE_URL"`
	SessionSecret string `mapstructure:"SESSION_SECRET"`
	TLSCertFile   string `mapstructure:"TLS_CERT_FILE"`
	TLSKeyFile    string `mapstructure:"TLS_KEY_FILE"`

	MigrationsPath string `mapstructure:"MIGRATIONS_PATH"`
	CacheBackend   string `mapstructure:"CACHE_BACKEND"`
	RedisURL       string `mapstructure:"REDIS_URL"`

	TelemetryExporter string        `mapstructure:"TELEMETRY_EXPORTER"`
	TelemetryInterval time.Duration `mapstructure:"TELEMETRY_INTERVAL"`

	DB struct {
		Host     string `mapstructure:"POSTGRES_HOST"`
		Port     string `mapstructure:"POSTGRES_PORT"`
		User     string `mapstructure:"POSTGRES_USER"`
		Password string `mapstructure:"POSTGRES_PASSWORD"`
		Name     string `mapstructure:"POSTGRES_DB"`
	} `mapstructure:",squash"`

	Storage struct {
		Endpoint  string `mapstructure:"STORAGE_ENDPOINT"`
		Region    string `mapstructure:"STORAGE_REGION"`
		AccessKey string `mapstructure:"STORAGE_ACCESS_KEY"`
		SecretKey string `mapstructure:"STORAGE_SECRET_KEY"`
		PublicURL string `mapstructure:"STORAGE_PUBLIC_URL"`
	} `mapstructure:",squash"`

	Mail struct {
		Host     string `mapstructure:"MAIL_HOST"`
		Port     int    `mapstructure:"MAIL_PORT"`
		User     string `mapstructure:"MAIL_USER"`
		Password string `mapstructure:"MAIL_PASSWORD"`
		Sender   string `mapstructure:"MAIL_SENDER"`
	} `mapstructure:",squash"`

	RabbitMQ struct {
		Host     string `mapstructure:"RABBITMQ_HOST"`
		Port     string `mapstructure:"RABBITMQ_PORT"`
		User     string `mapstructure:"RABBITMQ_USER"`
		Password string `mapstructure:"RABBITMQ_PASSWORD"`
	} `mapstructure:",squash"`

	OAuth struct {
		Provider     string `mapstructure:"OAUTH_PROVIDER"`
		ClientID     string `mapstructure:"OAUTH_CLIENT_ID"`
		ClientSecret string `mapstructure:"OAUTH_CLIENT_SECRET"`
		AuthURL      string `mapstructure:"OAUTH_AUTH_URL"`
		TokenURL     string `mapstructure:"OAUTH_TOKEN_URL"`
		UserInfoURL  string `mapstructure:"OAUTH_USERINFO_URL"`
		Scopes       string `mapstructure:"OAUTH_SCOPES"`
	} `mapstructure:",squash"`
}

func loadConfig(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("env")
	v.AutomaticEnv()

	v.SetDefault("PORT", "4000")
	v.SetDefault("ENVIRONMENT", "development")
	v.SetDefault("SITE_URL", "http://localhost:4000")
	v.SetDefault("MIGRATIONS_PATH", "file://migrations")
	v.SetDefault("CACHE_BACKEND", "memory")
	v.SetDefault("TELEMETRY_EXPORTER", "none")
	v.SetDefault("TELEMETRY_INTERVAL", "1m")
	v.SetDefault("STORAGE_REGION", "us-east-1")
	v.SetDefault("RABBITMQ_PORT", "5672")
	v.SetDefault("POSTGRES_PORT", "5432")
	v.SetDefault("OAUTH_PROVIDER", "oauth")

	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

func (c *Config) isProduction() bool {
	return c.Environment == "production"
}

func (c *Config) oauthScopes() []string {
	if c.OAuth.Scopes == "" {
		return []string{"openid", "email", "profile"}
	}
	return strings.Fields(strings.ReplaceAll(c.OAuth.Scopes, ",", " "))
}
