package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "usd", cfg.Storefront.Currency)
	assert.Equal(t, "cart_session", cfg.Storefront.SessionCookieName)
	assert.Equal(t, 24*time.Hour, cfg.Storefront.CouponTTL)
	assert.True(t, cfg.IsDevelopment())
	assert.False(t, cfg.KafkaEnabled())
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("STOREFRONT_BASE_URL", "https://shop.example.com/")
	t.Setenv("STORE_CURRENCY", "EUR")
	t.Setenv("KAFKA_BROKERS", "kafka-1:9092, kafka-2:9092")
	t.Setenv("SERVER_REQUEST_TIMEOUT", "5s")

	cfg, err := Load()
	require.NoError(t, err)

	assert.True(t, cfg.IsProduction())
	assert.Equal(t, "https://shop.example.com", cfg.Storefront.BaseURL)
	assert.Equal(t, "eur", cfg.Storefront.Currency)
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.External.Kafka.Brokers)
	assert.True(t, cfg.KafkaEnabled())
	assert.Equal(t, 5*time.Second, cfg.Server.RequestTimeout)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"short jwt secret", func(c *Config) { c.JWT.Secret = "short" }, "JWT_SECRET"},
		{"missing db host", func(c *Config) { c.Database.Host = "" }, "DB_HOST"},
		{"missing redis host", func(c *Config) { c.Redis.Host = "" }, "REDIS_HOST"},
		{"missing base url", func(c *Config) { c.Storefront.BaseURL = "" }, "STOREFRONT_BASE_URL"},
		{"bad currency", func(c *Config) { c.Storefront.Currency = "dollars" }, "STORE_CURRENCY"},
		{"zero session ttl", func(c *Config) { c.Storefront.SessionTTL = 0 }, "SESSION_TTL"},
		{"negative rate limit", func(c *Config) { c.Security.RateLimitPerMinute = -1 }, "RATE_LIMIT_PER_MINUTE"},
		{"unknown email provider", func(c *Config) { c.External.Email.Provider = "pigeon" }, "EMAIL_PROVIDER"},
		{"smtp without host", func(c *Config) {
			c.External.Email.Provider = "smtp"
			c.External.Email.SMTPHost = ""
		}, "SMTP_HOST"},
		{"production stripe without webhook secret", func(c *Config) {
			c.App.Environment = "production"
			c.External.Stripe.SecretKey = "sk_live_x"
			c.External.Stripe.WebhookSecret = ""
		}, "STRIPE_WEBHOOK_SECRET"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load()
			require.NoError(t, err)

			tt.mutate(cfg)
			err = cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestGetDatabaseDSN(t *testing.T) {
	cfg := &Config{Database: DatabaseConfig{
		Host: "db", Port: "5432", User: "u", Password: "p", Name: "shop", SSLMode: "disable",
	}}
	assert.Equal(t, "host=db port=5432 user=u password=p dbname=shop sslmode=disable", cfg.GetDatabaseDSN())
}
