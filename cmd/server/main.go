package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kingpin/v2"
	"go.uber.org/zap"

	"github.com/eugenenazirov/sessionconf/internal/application"
	"github.com/eugenenazirov/sessionconf/internal/config"
	"github.com/eugenenazirov/sessionconf/internal/dao"
	"github.com/eugenenazirov/sessionconf/internal/logging"
)

var signalNotify = signal.Notify

func main() {
	overrides, err := parseFlags(os.Args[1:])
	kingpin.FatalIfError(err, "parse flags")

	cfg, err := config.Load(overrides)
	if err != nil {
		panic(fmt.Sprintf("failed to load configuration: %v", err))
	}

	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		panic(fmt.Sprintf("failed to initialize logger: %v", err))
	}
	defer func() {
		_ = logger.Sync()
	}()

	app, err := application.New(cfg, logger)
	if err != nil {
		logger.Fatal("failed to initialize application", errorFields(err)...)
	}

	if err := app.Start(); err != nil {
		logger.Fatal("failed to start server", zap.Error(err))
	}

	shutdown(app.Server(), cfg.ShutdownGracePeriod, logger)

	if err := app.Close(); err != nil {
		logger.Error("failed to release resources", errorFields(err)...)
	}
}

// parseFlags maps command-line flags onto config overrides. Only flags the
// user actually passed are set.
func parseFlags(args []string) (*config.CLIOverrides, error) {
	app := kingpin.New("sessionconf", "Session configuration service - serves cache sync and naming service settings")
	configFile := app.Flag("config", "Path to YAML configuration file").String()
	port := app.Flag("port", "HTTP port exposed by the service").String()
	rateLimitRPS := app.Flag("rate-limit-rps", "Requests per second allowed (set 0 to disable)").Default("-1").Float64()
	rateLimitBurst := app.Flag("rate-limit-burst", "Burst capacity for rate limiter (set 0 to disable)").Default("-1").Int()
	logLevel := app.Flag("log-level", "Log level (debug, info, warn, error)").String()
	databasePath := app.Flag("database", "SQLite database path; empty keeps session config in memory").String()

	var cacheSyncSet, namingURLSet bool
	cacheSync := app.Flag("cache-sync", "Enable cache synchronization commands").IsSetByUser(&cacheSyncSet).Bool()
	namingURL := app.Flag("naming-url", "RMI registry naming service URL, stored verbatim").IsSetByUser(&namingURLSet).String()

	if _, err := app.Parse(args); err != nil {
		return nil, err
	}

	overrides := &config.CLIOverrides{
		ConfigFile: *configFile,
	}

	if *port != "" {
		overrides.Port = port
	}

	if *rateLimitRPS >= 0 {
		overrides.RateLimitRPS = rateLimitRPS
	}

	if *rateLimitBurst >= 0 {
		overrides.RateLimitBurst = rateLimitBurst
	}

	if *logLevel != "" {
		overrides.LogLevel = logLevel
	}

	if *databasePath != "" {
		overrides.DatabasePath = databasePath
	}

	if cacheSyncSet {
		overrides.CacheSync = cacheSync
	}

	if namingURLSet {
		overrides.NamingURL = namingURL
	}

	return overrides, nil
}

// errorFields logs a data-access failure with its message and cause as
// separate fields so neither is lost.
func errorFields(err error) []zap.Field {
	fields := []zap.Field{zap.Error(err)}
	if de, ok := dao.AsDaoError(err); ok {
		fields = append(fields, zap.String("dao_message", de.Message()))
		if cause := de.Cause(); cause != nil {
			fields = append(fields, zap.NamedError("dao_cause", cause))
		}
	}
	return fields
}

func shutdown(server *http.Server, timeout time.Duration, logger *zap.Logger) {
	quit := make(chan os.Signal, 1)
	signalNotify(quit, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	<-quit
	logger.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Warn("graceful shutdown failed", zap.Error(err))
		if closeErr := server.Close(); closeErr != nil {
			logger.Error("forced close failed", zap.Error(closeErr))
		}
	}
}
