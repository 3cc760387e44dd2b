// Package logging builds the process logger for the scraper.
package logging

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config selects the logger profile.
type Config struct {
	Development bool
}

// New builds the cmpscrape logger. The development profile is colorized and
// debug-enabled for interactive runs; the production profile emits JSON with
// stacktraces kept on, since aborted runs are diagnosed from logs alone. Both
// share the "ts" time key so shippers parse either profile the same way.
func New(cfg Config) (*zap.Logger, error) {
	zc := zap.NewProductionConfig()
	zc.DisableStacktrace = false
	if cfg.Development {
		zc = zap.NewDevelopmentConfig()
		zc.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	zc.EncoderConfig.TimeKey = "ts"

	logger, err := zc.Build()
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	return logger.Named("cmpscrape"), nil
}
