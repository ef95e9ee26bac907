// cmd/chat-server/main.go
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"attendance-chat/internal/common/config"
	"attendance-chat/internal/common/database"
	"attendance-chat/internal/common/errors"
	"attendance-chat/internal/common/genai"
	"attendance-chat/internal/common/logger"
	"attendance-chat/internal/common/observability"
	"attendance-chat/internal/engine"
	"attendance-chat/internal/server"
	"attendance-chat/internal/store"
	"attendance-chat/pkg/registry"

	eq "attendance-chat/internal/engine/execute-query"
	pr "attendance-chat/internal/engine/polish-response"
	ri "attendance-chat/internal/engine/remote-intent"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2 // Exponential backoff
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		os.Exit(1)
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLog.Sync()

	// Wrap zap logger with our logger interface
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting chat server...",
		zap.String("app", cfg.App.Name),
		zap.String("version", cfg.App.Version),
	)

	obs := observability.New("chat-server")
	defer obs.Shutdown()

	ctx := context.Background()

	// --- Init PostgreSQL with retry ---
	var pg *database.PostgresClient
	err = retryWithBackoff(func() error {
		var err error
		pg, err = database.NewPostgres(cfg.Database.Postgres)
		if err != nil {
			return err
		}
		// Test the connection with context
		return pg.Ping(ctx)
	}, 15, 2*time.Second, zapLog, "PostgreSQL connection")

	if err != nil {
		zapLog.Fatal("postgres failed after retries", zap.Error(err))
	}
	defer pg.Close()
	zapLog.Info("PostgreSQL connected successfully")

	// --- Init Redis with retry ---
	var redis *database.RedisClient
	err = retryWithBackoff(func() error {
		var err error
		redis, err = database.NewRedis(cfg.Database.Redis)
		if err != nil {
			return err
		}
		// Test the connection with context
		return redis.Ping(ctx)
	}, 10, 2*time.Second, zapLog, "Redis connection")

	if err != nil {
		zapLog.Fatal("redis failed after retries", zap.Error(err))
	}
	defer redis.Close()
	zapLog.Info("Redis connected successfully")

	// --- Ensure schema ---
	if err := store.EnsureSchema(ctx, pg.DB); err != nil {
		zapLog.Fatal("schema setup failed", zap.Error(err))
	}
	zapLog.Info("Database schema ready")

	// --- Init assistant client ---
	assistant := genai.NewClient(genai.Config{
		BaseURL:    cfg.Assistant.BaseURL,
		APIKey:     cfg.Assistant.APIKey,
		Model:      cfg.Assistant.Model,
		Timeout:    config.GetDuration(cfg.Assistant.Timeout),
		MaxRetries: cfg.Assistant.MaxRetries,
	}, log)

	if assistant.Configured() {
		zapLog.Info("Assistant API configured", zap.String("model", cfg.Assistant.Model))
	} else {
		zapLog.Warn("Assistant API key missing, serving rule-based answers only")
	}

	// --- Load intent catalog ---
	catalog := registry.LoadCatalogOrDefault(cfg.Catalog.Path)
	zapLog.Info("Intent catalog loaded",
		zap.String("version", catalog.Version),
		zap.Int("intents", len(catalog.Intents)),
	)

	// --- Build engine stages ---
	riCfg := ri.LoadConfig()
	riCfg.MaxTokens = cfg.Assistant.ClassifyMaxTokens
	riCfg.Temperature = cfg.Assistant.ClassifyTemperature
	remote := ri.NewHandler(riCfg, assistant, catalog, &remoteIntentLoggerAdapter{log})

	qCfg := eq.LoadConfig()
	qCfg.ListCap = cfg.Query.AttendanceListCap
	qCfg.StudentListCap = cfg.Query.StudentListCap
	qCfg.LowAttendanceCap = cfg.Query.LowAttendanceCap
	qCfg.AbsentCap = cfg.Query.AbsentMoreCap
	qCfg.TopSectionsCap = cfg.Query.SectionTopCap
	qCfg.LowAttendanceWindowDays = cfg.Query.LowAttendanceDays
	qCfg.LowAttendanceThreshold = cfg.Query.LowAttendanceThreshold
	qCfg.DefaultAbsentDays = cfg.Query.DefaultAbsentDays
	query := eq.NewHandler(qCfg, store.New(pg.DB), &executeQueryLoggerAdapter{log})

	pCfg := pr.LoadConfig()
	pCfg.MaxTokens = cfg.Assistant.PolishMaxTokens
	pCfg.Temperature = cfg.Assistant.PolishTemperature
	pCfg.MinReplyRunes = cfg.Assistant.MinPolishLength
	polish := pr.NewHandler(pCfg, assistant, &polishResponseLoggerAdapter{log})

	engCfg := engine.LoadConfig()
	engCfg.GeneralMaxTokens = cfg.Assistant.GeneralMaxTokens
	engCfg.GeneralTemperature = cfg.Assistant.GeneralTemperature
	eng := engine.New(engCfg, remote, query, polish, assistant, &engineLoggerAdapter{log})

	// --- Start HTTP server ---
	limiter := server.NewRateLimiter(redis.Client, cfg.Chat.RateLimitPerMinute, cfg.Chat.DailyCap, &serverLoggerAdapter{log})

	srv := server.New(server.Options{
		Config: &server.Config{
			Port:               cfg.Server.Port,
			ReadTimeout:        config.GetDuration(cfg.Server.ReadTimeout),
			WriteTimeout:       config.GetDuration(cfg.Server.WriteTimeout),
			RateLimitPerMinute: cfg.Chat.RateLimitPerMinute,
			DailyCap:           cfg.Chat.DailyCap,
			MaxQuestionLength:  cfg.Chat.MaxQuestionLength,
		},
		Engine:   eng,
		Limiter:  limiter,
		Catalog:  catalog,
		Postgres: pg,
		Redis:    redis,
		Errors:   errors.NewErrorHandler(log),
		Obs:      obs,
		Logger:   &serverLoggerAdapter{log},
	})

	go func() {
		if err := srv.Start(); err != nil {
			zapLog.Fatal("chat server failed", zap.Error(err))
		}
	}()
	zapLog.Info("Chat server listening", zap.Int("port", cfg.Server.Port))

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	zapLog.Info("Shutdown signal received, draining requests...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), config.GetDuration(cfg.Server.ShutdownTimeout))
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("Error during shutdown", zap.Error(err))
	}

	zapLog.Info("Chat server stopped gracefully")
}

// Logger adapters for packages that define their own Logger interfaces
type engineLoggerAdapter struct {
	logger.Logger
}

func (a *engineLoggerAdapter) With(fields map[string]interface{}) engine.Logger {
	return &engineLoggerAdapter{a.Logger.With(fields)}
}

type remoteIntentLoggerAdapter struct {
	logger.Logger
}

func (a *remoteIntentLoggerAdapter) With(fields map[string]interface{}) ri.Logger {
	return &remoteIntentLoggerAdapter{a.Logger.With(fields)}
}

type executeQueryLoggerAdapter struct {
	logger.Logger
}

func (a *executeQueryLoggerAdapter) With(fields map[string]interface{}) eq.Logger {
	return &executeQueryLoggerAdapter{a.Logger.With(fields)}
}

type polishResponseLoggerAdapter struct {
	logger.Logger
}

func (a *polishResponseLoggerAdapter) With(fields map[string]interface{}) pr.Logger {
	return &polishResponseLoggerAdapter{a.Logger.With(fields)}
}

type serverLoggerAdapter struct {
	logger.Logger
}

func (a *serverLoggerAdapter) With(fields map[string]interface{}) server.Logger {
	return &serverLoggerAdapter{a.Logger.With(fields)}
}
