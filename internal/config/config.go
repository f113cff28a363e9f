package config

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
	"github.com/tournevent/courierhub/internal/document"
	"go.opentelemetry.io/otel/attribute"
)

// Config holds all configuration for the service.
type Config struct {
	// Server
	Port     int    `envconfig:"PORT" default:"80"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`

	// Dispatch
	DefaultProvider string `envconfig:"DEFAULT_PROVIDER" default:"lalamove"`

	// Demo provider (in-process mock, for local development)
	DemoEnabled bool `envconfig:"DEMO_ENABLED" default:"false"`

	// Lalamove
	LalamoveAPIKey        string `envconfig:"LALAMOVE_API_KEY"`
	LalamoveAPISecret     string `envconfig:"LALAMOVE_API_SECRET"`
	LalamoveBaseURL       string `envconfig:"LALAMOVE_BASE_URL" default:"https://rest.lalamove.com"`
	LalamoveMarket        string `envconfig:"LALAMOVE_MARKET" default:"SG"`
	LalamoveWebhookSecret string `envconfig:"LALAMOVE_WEBHOOK_SECRET"`
	LalamoveEnabled       bool   `envconfig:"LALAMOVE_ENABLED" default:"true"`
	LalamoveUseMock       bool   `envconfig:"LALAMOVE_USE_MOCK" default:"false"`

	// Borzo
	BorzoAuthToken     string `envconfig:"BORZO_AUTH_TOKEN"`
	BorzoBaseURL       string `envconfig:"BORZO_BASE_URL" default:"https://robotapi.borzodelivery.com"`
	BorzoWebhookSecret string `envconfig:"BORZO_WEBHOOK_SECRET"`
	BorzoEnabled       bool   `envconfig:"BORZO_ENABLED" default:"true"`
	BorzoUseMock       bool   `envconfig:"BORZO_USE_MOCK" default:"false"`

	// pandago
	PandagoClientID      string `envconfig:"PANDAGO_CLIENT_ID"`
	PandagoClientSecret  string `envconfig:"PANDAGO_CLIENT_SECRET"`
	PandagoBaseURL       string `envconfig:"PANDAGO_BASE_URL" default:"https://pandago-api-sandbox.deliveryhero.io/sg/api/v1"`
	PandagoTokenURL      string `envconfig:"PANDAGO_TOKEN_URL" default:"https://sts.deliveryhero.io/oauth2/token"`
	PandagoWebhookSecret string `envconfig:"PANDAGO_WEBHOOK_SECRET"`
	PandagoEnabled       bool   `envconfig:"PANDAGO_ENABLED" default:"true"`
	PandagoUseMock       bool   `envconfig:"PANDAGO_USE_MOCK" default:"false"`

	// Storage
	DatabaseURL   string `envconfig:"DATABASE_URL"`
	RedisAddr     string `envconfig:"REDIS_ADDR"`
	RedisPassword string `envconfig:"REDIS_PASSWORD"`

	// Events
	KafkaBrokers []string `envconfig:"KAFKA_BROKERS"`
	KafkaTopic   string   `envconfig:"KAFKA_TOPIC" default:"courierhub.order-status"`

	// Telemetry
	OTELEnabled  bool   `envconfig:"OTEL_ENABLED" default:"true"`
	OTELEndpoint string `envconfig:"OTEL_ENDPOINT" default:"http://jaeger-collector.claude.svc.cluster.local:4318"`
	ServiceName  string `envconfig:"SERVICE_NAME" default:"courierhub"`
	Version      string `envconfig:"SERVICE_VERSION" default:"0.0.1"`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return &cfg, nil
}

// Attributes returns OpenTelemetry attributes for this configuration.
func (c *Config) Attributes() []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String("service.name", c.ServiceName),
		attribute.String("service.version", c.Version),
		attribute.String("dispatch.default_provider", c.DefaultProvider),
		attribute.Bool("lalamove.enabled", c.LalamoveEnabled),
		attribute.Bool("borzo.enabled", c.BorzoEnabled),
		attribute.Bool("pandago.enabled", c.PandagoEnabled),
	}
}

// WebhookSecrets builds the per-provider secret resolver used to
// authenticate inbound webhook calls. Providers without a configured secret
// are simply absent, which the dispatcher treats as unsigned.
func (c *Config) WebhookSecrets() document.StaticSecrets {
	secrets := document.StaticSecrets{}
	put := func(provider, secret string) {
		if secret != "" {
			secrets[provider+"/webhook_secret"] = secret
		}
	}
	put("lalamove", c.LalamoveWebhookSecret)
	put("borzo", c.BorzoWebhookSecret)
	put("pandago", c.PandagoWebhookSecret)
	return secrets
}
