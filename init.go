package main

import (
	"context"

	"github.com/joho/godotenv"
	"github.com/tournevent/courierhub/internal/config"
	"github.com/tournevent/courierhub/internal/events"
	"github.com/tournevent/courierhub/internal/store"
	"github.com/tournevent/courierhub/internal/telemetry"
	"github.com/tournevent/courierhub/pkg/courier"
	"github.com/tournevent/courierhub/pkg/courier/borzo"
	"github.com/tournevent/courierhub/pkg/courier/lalamove"
	"github.com/tournevent/courierhub/pkg/courier/mock"
	"github.com/tournevent/courierhub/pkg/courier/pandago"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

func loadConfig() (*config.Config, error) {
	// Missing .env is fine, env vars take over.
	_ = godotenv.Load()
	return config.Load()
}

func initLogger(level string) (*otelzap.Logger, error) {
	return telemetry.NewLogger(level)
}

func initTracer(ctx context.Context, cfg *config.Config) (trace.Tracer, func(context.Context) error, error) {
	if !cfg.OTELEnabled {
		return otel.Tracer(cfg.ServiceName), func(context.Context) error { return nil }, nil
	}
	return telemetry.InitTracer(ctx, cfg.OTELEndpoint, cfg.ServiceName, cfg.Version)
}

func initCourierRegistry(cfg *config.Config, logger *otelzap.Logger, tracer trace.Tracer) *courier.Registry {
	registry := courier.NewRegistry()

	// Register enabled providers
	if cfg.DemoEnabled {
		registry.Register(mock.New("demo-provider").Courier())
	}

	if cfg.LalamoveEnabled {
		llm := lalamove.New(lalamove.Config{
			APIKey:    cfg.LalamoveAPIKey,
			APISecret: cfg.LalamoveAPISecret,
			BaseURL:   cfg.LalamoveBaseURL,
			Market:    cfg.LalamoveMarket,
			UseMock:   cfg.LalamoveUseMock,
		}, logger, tracer)
		registry.Register(llm.Courier())
	}

	if cfg.BorzoEnabled {
		bz := borzo.New(borzo.Config{
			AuthToken: cfg.BorzoAuthToken,
			BaseURL:   cfg.BorzoBaseURL,
			UseMock:   cfg.BorzoUseMock,
		}, logger, tracer)
		registry.Register(bz.Courier())
	}

	if cfg.PandagoEnabled {
		pg := pandago.New(pandago.Config{
			ClientID:     cfg.PandagoClientID,
			ClientSecret: cfg.PandagoClientSecret,
			BaseURL:      cfg.PandagoBaseURL,
			TokenURL:     cfg.PandagoTokenURL,
			UseMock:      cfg.PandagoUseMock,
		}, logger, tracer)
		registry.Register(pg.Courier())
	}

	return registry
}

func initStore(ctx context.Context, cfg *config.Config, logger *otelzap.Logger) (store.Store, error) {
	var st store.Store
	if cfg.DatabaseURL != "" {
		pg, err := store.NewPostgresStore(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		st = pg
		logger.Info("Using postgres store")
	} else {
		st = store.NewMemoryStore()
		logger.Warn("DATABASE_URL not set, using in-memory store")
	}

	if cfg.RedisAddr != "" {
		cached, err := store.NewRedisQuotationCache(ctx, st, cfg.RedisAddr, cfg.RedisPassword)
		if err != nil {
			st.Close()
			return nil, err
		}
		logger.Info("Quotation cache enabled", zap.String("redis_addr", cfg.RedisAddr))
		return cached, nil
	}
	return st, nil
}

func initPublisher(cfg *config.Config, logger *otelzap.Logger) events.Publisher {
	if len(cfg.KafkaBrokers) == 0 {
		logger.Warn("KAFKA_BROKERS not set, status change events will not be published")
		return events.NoopPublisher{}
	}
	logger.Info("Publishing status change events to Kafka",
		zap.Strings("brokers", cfg.KafkaBrokers),
		zap.String("topic", cfg.KafkaTopic),
	)
	return events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic, logger)
}
