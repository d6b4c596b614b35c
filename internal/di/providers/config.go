// Package providers contains dependency injection providers for the ingest service.
package providers

import (
	"os"
	"time"

	"github.com/samber/do/v2"

	"github.com/alkoparser/catalog-ingest/internal/config"
	"github.com/alkoparser/catalog-ingest/internal/logger"
)

// ProvideConfig provides the application configuration.
func ProvideConfig(i do.Injector) (*config.Config, error) {
	return config.LoadConfig()
}

// LogFileHandle owns the per-run log file. File is nil when file logging is off.
type LogFileHandle struct {
	File *os.File
}

// Shutdown implements do.Shutdownable.
func (h *LogFileHandle) Shutdown() error {
	if h.File == nil {
		return nil
	}
	return h.File.Close()
}

// ProvideLogFile opens logs/ingest_<start>.log when LOG_DIR is set.
func ProvideLogFile(i do.Injector) (*LogFileHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	if cfg.Logger.Dir == "" {
		return &LogFileHandle{}, nil
	}

	f, err := logger.OpenRunFile(cfg.Logger.Dir, time.Now())
	if err != nil {
		return nil, err
	}
	return &LogFileHandle{File: f}, nil
}

// ProvideLogger provides the structured logger.
func ProvideLogger(i do.Injector) (*logger.Logger, error) {
	cfg := do.MustInvoke[*config.Config](i)
	logFile := do.MustInvoke[*LogFileHandle](i)

	lc := logger.Config{
		Level:       logger.ParseLevel(cfg.Logger.Level),
		AddSource:   cfg.App.Environment == "development",
		Environment: cfg.App.Environment,
	}
	if logFile.File != nil {
		lc.File = logFile.File
	}
	log := logger.New(lc)

	log.Info("Starting catalog ingest",
		"environment", cfg.App.Environment,
		"log_level", cfg.Logger.Level,
		"base_url", cfg.Upstream.BaseURL,
		"store", cfg.Storage.Driver,
		"data_path", cfg.Storage.DataPath,
	)

	return log, nil
}
