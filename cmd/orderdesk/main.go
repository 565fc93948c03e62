package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/phenrril/orderdesk/internal/adapters/httpserver"
	"github.com/phenrril/orderdesk/internal/app"
)

func main() {
	_ = godotenv.Load()

	zerolog.TimeFieldFormat = time.RFC3339
	zlog.Logger = zlog.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.Kitchen})

	appEnv := strings.ToLower(os.Getenv("APP_ENV"))
	isDev := appEnv == "" || appEnv == "development" || appEnv == "dev"
	if !isDev {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	gormCfg := &gorm.Config{}
	if !isDev {
		gormCfg.Logger = logger.Default.LogMode(logger.Warn)
	}
	db, err := gorm.Open(postgres.Open(dsnFromEnv()), gormCfg)
	if err != nil {
		zlog.Fatal().Err(err).Msg("failed to connect to database")
	}

	cfg := app.Config{
		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		VariantTTL:    envDuration("VARIANT_CACHE_TTL", 0),
		MaxProducts:   envInt("MAX_PRODUCTS", 0),
		Seed:          isDev || os.Getenv("SEED") == "1",
		HTTP: httpserver.Config{
			JWTSecret:    []byte(os.Getenv("JWT_SECRET")),
			CORSOrigins:  splitList(os.Getenv("CORS_ORIGINS")),
			RateLimitRPS: envFloat("RATE_LIMIT_RPS", 10),
			RateBurst:    envInt("RATE_LIMIT_BURST", 0),
		},
	}
	if len(cfg.HTTP.JWTSecret) == 0 {
		if !isDev {
			zlog.Fatal().Msg("JWT_SECRET is required outside development")
		}
		zlog.Warn().Msg("JWT_SECRET not set, API is open")
	}

	application, err := app.NewApp(db, cfg)
	if err != nil {
		zlog.Fatal().Err(err).Msg("failed to create app")
	}
	if err := application.MigrateAndSeed(); err != nil {
		zlog.Fatal().Err(err).Msg("failed to migrate and seed database")
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	server := &http.Server{
		Addr:              ":" + port,
		Handler:           application.HTTPHandler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		zlog.Info().Str("port", port).Str("env", appEnv).Msg("orderdesk listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zlog.Fatal().Err(err).Msg("server stopped")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit
	zlog.Info().Msg("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = server.Shutdown(ctx)
	if err := application.Close(); err != nil {
		zlog.Warn().Err(err).Msg("close resources")
	}
}

func dsnFromEnv() string {
	if dsn := strings.TrimSpace(os.Getenv("DB_DSN")); dsn != "" {
		return dsn
	}
	host := envOr("DB_HOST", "localhost")
	port := envOr("DB_PORT", "5432")
	user := envOr("DB_USER", envOr("POSTGRES_USER", "postgres"))
	pass := envOr("DB_PASSWORD", envOr("POSTGRES_PASSWORD", "postgres"))
	name := envOr("DB_NAME", envOr("POSTGRES_DB", "orderdesk"))
	ssl := envOr("DB_SSLMODE", "disable")
	return "host=" + host + " user=" + user + " password=" + pass + " dbname=" + name + " port=" + port + " sslmode=" + ssl
}

func envOr(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	n, err := strconv.Atoi(envOr(key, ""))
	if err != nil {
		return def
	}
	return n
}

func envFloat(key string, def float64) float64 {
	f, err := strconv.ParseFloat(envOr(key, ""), 64)
	if err != nil {
		return def
	}
	return f
}

func envDuration(key string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(envOr(key, ""))
	if err != nil {
		return def
	}
	return d
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
