package main

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadConfig(t *testing.T) {
	// Create a temporary config file
	tempFile, err := os.CreateTemp("", "config.env")
	if err != nil {
		t.Fatalf("Failed to create temporary config file: %v", err)
	}
	defer os.Remove(tempFile.Name())

	// Write test configuration to the temporary file
	configData := []byte(`
PORT=8080
ENVIRONMENT=production
VERSION=1.0.0
SITE_URL=https://writtenwork.example.com
SESSION_SECRET=secret
POSTGRES_HOST=localhost
POSTGRES_USER=testuser
POSTGRES_PASSWORD=testpassword
POSTGRES_DB=testdb
STORAGE_ENDPOINT=http://minio:9000
STORAGE_PUBLIC_URL=https://cdn.example.com
MAIL_HOST=smtp.example.com
MAIL_PORT=587
MAIL_USER=testuser@example.com
MAIL_PASSWORD=testpassword
MAIL_SENDER=sender@example.com
RABBITMQ_HOST=rabbitmq.example.com
RABBITMQ_USER=testuser
RABBITMQ_PASSWORD=testpassword
CACHE_BACKEND=redis
REDIS_URL=redis://localhost:6379/0
TELEMETRY_EXPORTER=stdout
OAUTH_CLIENT_ID=client
OAUTH_SCOPES=read:user,user:email
`)
	if _, err := tempFile.Write(configData); err != nil {
		t.Fatalf("Failed to write test configuration to temporary file: %v", err)
	}

	// Load the config from the temporary file
	config, err := loadConfig(tempFile.Name())
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	// Verify the loaded config values
	assert.Equal(t, "8080", config.Port)
	assert.True(t, config.isProduction())
	assert.Equal(t, "1.0.0", config.Version)
	assert.Equal(t, "https://writtenwork.example.com", config.SiteURL)
	assert.Equal(t, "localhost", config.DB.Host)
	assert.Equal(t, "5432", config.DB.Port)
	assert.Equal(t, "testuser", config.DB.User)
	assert.Equal(t, "testpassword", config.DB.Password)
	assert.Equal(t, "testdb", config.DB.Name)
	assert.Equal(t, "http://minio:9000", config.Storage.Endpoint)
	assert.Equal(t, "us-east-1", config.Storage.Region)
	assert.Equal(t, "https://cdn.example.com", config.Storage.PublicURL)
	assert.Equal(t, "smtp.example.com", config.Mail.Host)
	assert.Equal(t, 587, config.Mail.Port)
	assert.Equal(t, "sender@example.com", config.Mail.Sender)
	assert.Equal(t, "rabbitmq.example.com", config.RabbitMQ.Host)
	assert.Equal(t, "5672", config.RabbitMQ.Port)
	assert.Equal(t, "redis", config.CacheBackend)
	assert.Equal(t, "redis://localhost:6379/0", config.RedisURL)
	assert.Equal(t, "file://migrations", config.MigrationsPath)
	assert.Equal(t, "stdout", config.TelemetryExporter)
	assert.Equal(t, time.Minute, config.TelemetryInterval)
	assert.Equal(t, []string{"read:user", "user:email"}, config.oauthScopes())
}

func TestOAuthProviderDisabledWithoutClient(t *testing.T) {
	cfg := &Config{}
	assert.Nil(t, newOAuthProvider(cfg))
	assert.Equal(t, []string{"openid", "email", "profile"}, cfg.oauthScopes())

	cfg.OAuth.ClientID = "client"
	assert.NotNil(t, newOAuthProvider(cfg))
}
