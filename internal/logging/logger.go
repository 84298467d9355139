// Package logging builds the zap logger used by the CLI and the API server.
// Human readable lines go to the console and JSON lines to
// .releasekit/logs/releasekit.log so failures can be inspected later.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/kingrea/releasekit/internal/policy"
)

// FileName is the log file created inside the logs directory.
const FileName = "releasekit.log"

type options struct {
	debug   bool
	console io.Writer
}

// Option configures New.
type Option func(*options)

// WithDebug lowers the console level to debug.
func WithDebug(enabled bool) Option {
	return func(o *options) { o.debug = enabled }
}

// WithConsole redirects console output, which defaults to stderr.
func WithConsole(w io.Writer) Option {
	return func(o *options) {
		if w != nil {
			o.console = w
		}
	}
}

// New tees a console core and, when dir is non-empty, a JSON file core. The
// returned func closes the log file.
func New(dir string, opts ...Option) (*zap.Logger, func(), error) {
	o := options{console: os.Stderr}
	for _, opt := range opts {
		opt(&o)
	}

	consoleLevel := zapcore.InfoLevel
	if o.debug {
		consoleLevel = zapcore.DebugLevel
	}
	encCfg := zap.NewDevelopmentEncoderConfig()
	encCfg.EncodeLevel = zapcore.CapitalLevelEncoder
	cores := []zapcore.Core{
		zapcore.NewCore(zapcore.NewConsoleEncoder(encCfg), zapcore.AddSync(o.console), consoleLevel),
	}

	closeFn := func() {}
	if dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, nil, fmt.Errorf("logging: ensure log dir: %w", err)
		}
		sink, closeFile, err := zap.Open(filepath.Join(dir, FileName))
		if err != nil {
			return nil, nil, fmt.Errorf("logging: open log file: %w", err)
		}
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()), sink, zapcore.DebugLevel))
		closeFn = closeFile
	}

	return zap.New(zapcore.NewTee(cores...)), closeFn, nil
}

// LogDiagnostics writes each diagnostic at its matching level.
func LogDiagnostics(logger *zap.Logger, diags policy.Diagnostics) {
	if logger == nil {
		return
	}
	for _, d := range diags {
		fields := []zap.Field{
			zap.String("code", d.Code),
			zap.Int("count", d.Count),
		}
		if len(d.Samples) > 0 {
			fields = append(fields, zap.Strings("samples", d.Samples))
		}
		switch d.Level {
		case policy.LevelError:
			logger.Error(d.Message, fields...)
		case policy.LevelWarn:
			logger.Warn(d.Message, fields...)
		default:
			logger.Info(d.Message, fields...)
		}
	}
}
