package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/dbforge/assistant-gate/internal/auth"
	"github.com/dbforge/assistant-gate/internal/engine"
	"github.com/dbforge/assistant-gate/internal/history"
	"github.com/dbforge/assistant-gate/internal/optin"
	"github.com/dbforge/assistant-gate/internal/sanitize"
	"github.com/dbforge/assistant-gate/internal/server"
	"github.com/dbforge/assistant-gate/internal/settings"
	"github.com/dbforge/assistant-gate/internal/storage"
	"github.com/dbforge/assistant-gate/internal/taxonomy"
)

func main() {
	// Logger
	logger := mustBuildLogger(envOrDefault("ASSISTANT_GATE_LOG_LEVEL", "info"))
	defer logger.Sync() //nolint:errcheck // best-effort flush

	// Config from env
	port := envOrDefault("ASSISTANT_GATE_PORT", "8085")
	windowSize := envOrDefaultInt("ASSISTANT_GATE_HISTORY_WINDOW", history.DefaultWindowSize)
	trimLeading := envOrDefault("ASSISTANT_GATE_TRIM_LEADING_USER", "") == "true"
	clickhouseDSN := os.Getenv("CLICKHOUSE_DSN")
	postgresDSN := os.Getenv("POSTGRES_DSN")
	keyCacheTTL := envOrDefaultInt("ASSISTANT_GATE_KEY_CACHE_TTL_S", 30)
	levelCacheTTL := envOrDefaultInt("ASSISTANT_GATE_LEVEL_CACHE_TTL_S", 15)
	staticLevel := envOrDefault("ASSISTANT_GATE_STATIC_LEVEL", string(optin.LevelDisabled))

	logger.Info("starting assistant gate",
		zap.String("port", port),
		zap.Int("history_window", windowSize),
		zap.Bool("trim_leading_user", trimLeading),
	)

	// Policy tables
	tax := taxonomy.Default()
	sanitizers := sanitize.Default(tax)

	// Storage: ClickHouse, or LogWriter when no DSN is configured
	var writer storage.EventWriter
	if clickhouseDSN != "" {
		chWriter, err := storage.NewClickHouseWriter(clickhouseDSN, logger)
		if err != nil {
			logger.Warn("clickhouse connection failed, falling back to log writer",
				zap.Error(err),
			)
			writer = storage.NewLogWriter(logger)
		} else {
			writer = chWriter
			logger.Info("clickhouse writer connected")
		}
	} else {
		writer = storage.NewLogWriter(logger)
		logger.Info("no CLICKHOUSE_DSN set, using log writer")
	}
	defer writer.Close()

	// Auth and settings: Postgres if a DSN is provided, otherwise static dev mode
	var authenticator auth.Authenticator
	var provider settings.Provider
	if postgresDSN != "" {
		db, err := sql.Open("pgx", postgresDSN)
		if err != nil {
			logger.Fatal("failed to open postgres", zap.Error(err))
		}
		defer func() { _ = db.Close() }()
		db.SetMaxOpenConns(10)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(5 * time.Minute)
		if err := db.PingContext(context.Background()); err != nil {
			logger.Fatal("failed to ping postgres", zap.Error(err))
		}

		authenticator = auth.NewPostgresAuthenticator(auth.PostgresAuthConfig{
			DB:       db,
			CacheTTL: time.Duration(keyCacheTTL) * time.Second,
			Logger:   logger,
		})
		provider = settings.NewPostgresProvider(settings.PostgresProviderConfig{
			DB:       db,
			CacheTTL: time.Duration(levelCacheTTL) * time.Second,
			Logger:   logger,
		})
		logger.Info("postgres auth and settings connected")
	} else {
		authenticator = auth.NewStaticAuthenticator()
		provider = settings.NewStaticProvider(optin.Parse(staticLevel))
		logger.Info("no POSTGRES_DSN set, using static auth and settings",
			zap.String("static_level", staticLevel),
		)
	}

	eng := engine.New(engine.Config{
		Taxonomy:   tax,
		Sanitizers: sanitizers,
		Writer:     writer,
		History: history.Options{
			WindowSize:            windowSize,
			TrimLeadingCallerRole: trimLeading,
		},
		Logger: logger,
	})

	srv := server.New(eng, authenticator, provider, logger)
	httpServer := &http.Server{
		Addr:              ":" + port,
		Handler:           srv.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigCh
		logger.Info("received signal, shutting down", zap.String("signal", sig.String()))
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(ctx); err != nil {
			logger.Warn("shutdown error", zap.Error(err))
		}
	}()

	logger.Info("assistant gate listening", zap.String("addr", httpServer.Addr))
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatal("http server failed", zap.Error(err))
	}
}

func mustBuildLogger(level string) *zap.Logger {
	var zapLevel zapcore.Level
	switch level {
	case "debug":
		zapLevel = zapcore.DebugLevel
	case "warn":
		zapLevel = zapcore.WarnLevel
	case "error":
		zapLevel = zapcore.ErrorLevel
	default:
		zapLevel = zapcore.InfoLevel
	}

	cfg := zap.Config{
		Level:            zap.NewAtomicLevelAt(zapLevel),
		Development:      false,
		Encoding:         "json",
		EncoderConfig:    zap.NewProductionEncoderConfig(),
		OutputPaths:      []string{"stdout"},
		ErrorOutputPaths: []string{"stderr"},
	}

	logger, err := cfg.Build()
	if err != nil {
		panic(fmt.Sprintf("failed to build logger: %v", err))
	}
	return logger
}

func envOrDefault(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envOrDefaultInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultVal
}
