package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/viper"
	"github.com/tmdojo/viewer/internal/api"
	"github.com/tmdojo/viewer/internal/config"
	"github.com/tmdojo/viewer/internal/logging"
	intOtel "github.com/tmdojo/viewer/internal/otel"
	"github.com/tmdojo/viewer/internal/storage"
)

// app holds the process-wide collaborators shared by every subcommand.
type app struct {
	started   time.Time
	sessionID string
	pctx      *logging.PlaybackContext
	logFile   *os.File

	slogManager *logging.SlogManager
	logger      *slog.Logger
	otel        *intOtel.Provider

	storage storage.Backend
	client  *api.Client
}

func newApp(ctx context.Context, configDir string, started time.Time) (*app, error) {
	a := &app{
		started:     started,
		sessionID:   uuid.NewString(),
		slogManager: logging.NewSlogManager(),
	}
	a.pctx = logging.NewPlaybackContext(a.sessionID)

	defaulted := false
	if err := config.Load(configDir); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
		defaulted = true
	}

	logPath := logging.LogFilePath(viper.GetString("logsDir"), AppName, started)
	f, err := logging.OpenLogFile(logPath)
	if err != nil {
		return nil, err
	}
	a.logFile = f

	otelCfg := config.GetOTelConfig()
	a.otel, err = intOtel.New(ctx, intOtel.Config{
		Enabled:        otelCfg.Enabled,
		ServiceName:    otelCfg.ServiceName,
		ServiceVersion: CurrentVersion,
		SessionID:      a.sessionID,
		BatchTimeout:   otelCfg.BatchTimeout,
		LogWriter:      f,
		Endpoint:       otelCfg.Endpoint,
		Insecure:       otelCfg.Insecure,
	})
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("otel: %w", err)
	}

	a.slogManager.SetContextProvider(a.pctx.Attrs)
	a.slogManager.Setup(f, viper.GetString("logLevel"), a.otel.LoggerProvider())
	a.logger = a.slogManager.Logger()
	if defaulted {
		a.logger.Warn("Config file not found, using defaults", "dir", configDir)
	}
	a.logger.Info("Starting up", "version", CurrentVersion, "build", BuildDate, "log", logPath)

	a.storage, err = createStorageBackend(config.GetStorageConfig(), a.slogManager.Component("storage"))
	if err != nil {
		a.Close()
		return nil, err
	}
	if err := a.storage.Init(); err != nil {
		a.Close()
		return nil, fmt.Errorf("init storage: %w", err)
	}

	apiCfg := config.GetAPIConfig()
	a.client = api.New(apiCfg.ServerURL, apiCfg.APIKey, apiCfg.Timeout)

	return a, nil
}

// Close releases everything newApp opened, in reverse order.
func (a *app) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if a.storage != nil {
		if err := a.storage.Close(); err != nil {
			a.logger.Error("Failed to close storage", "error", err)
		}
	}
	if a.logger != nil {
		a.logger.Info("Shutting down", "uptime", time.Since(a.started))
	}
	if err := a.slogManager.Flush(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "flush logs:", err)
	}
	if a.otel != nil {
		_ = a.otel.Shutdown(ctx)
	}
	if a.logFile != nil {
		_ = a.logFile.Close()
	}
}
