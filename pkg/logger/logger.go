// Package logger provides the standardized Zap logging setup for ShaleDB.
// Binaries build a real logger from a Config; library code that is handed
// no logger runs against Nop().
package logger

import (
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the logger configuration.
type Config struct {
	// Level is the minimum level to emit ("debug", "info", "warn", "error").
	// Unrecognized values fall back to "info".
	Level string `yaml:"level"`
	// Format selects the encoder: "console" for humans, anything else is JSON.
	Format string `yaml:"format"`
	// OutputFile is the log destination. "stdout", "stderr", or a file path.
	// Empty means stderr so interactive tools keep stdout for results.
	OutputFile string `yaml:"output_file"`
}

// New builds a zap.Logger from the configuration. Call it once at startup
// and pass the logger down; every entry carries a constant service field.
func New(config Config) (*zap.Logger, error) {
	level := zap.NewAtomicLevel()
	if err := level.UnmarshalText([]byte(config.Level)); err != nil {
		level.SetLevel(zap.InfoLevel)
	}

	sink, err := newWriteSyncer(config.OutputFile)
	if err != nil {
		return nil, err
	}

	core := zapcore.NewCore(newEncoder(config.Format), sink, level)

	log := zap.New(core, zap.AddCaller()).
		WithOptions(zap.Fields(zap.String("service", "shaledb")))
	return log, nil
}

// Nop returns a logger that discards everything. The storage packages take
// it as their default so the engine can be embedded silently.
func Nop() *zap.Logger {
	return zap.NewNop()
}

// newEncoder picks the encoder for the configured format.
func newEncoder(format string) zapcore.Encoder {
	cfg := zap.NewProductionEncoderConfig()
	cfg.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.EncodeLevel = zapcore.CapitalLevelEncoder

	if strings.ToLower(format) == "console" {
		return zapcore.NewConsoleEncoder(cfg)
	}
	return zapcore.NewJSONEncoder(cfg)
}

// newWriteSyncer resolves the configured output destination.
func newWriteSyncer(outputFile string) (zapcore.WriteSyncer, error) {
	switch strings.ToLower(outputFile) {
	case "stderr", "":
		return zapcore.AddSync(os.Stderr), nil
	case "stdout":
		return zapcore.AddSync(os.Stdout), nil
	default:
		file, err := os.OpenFile(outputFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file %s: %w", outputFile, err)
		}
		return zapcore.AddSync(file), nil
	}
}
