// Package logger provides leveled logging for the veloctl agent.
//
// Two logging surfaces are exposed:
//
//   - The Logger interface, injected into components (registry repository,
//     hook dispatcher, switchover controller, admin server) so they can be
//     tested with NilLogger or TestLogger.
//   - Package-level functions (Debug, Info, Warning, Error) backed by a
//     global logger, used by the CLI layer where threading a logger through
//     every call adds noise.
//
// Both surfaces are backed by zap. The global logger writes to stderr with
// a console encoder; component loggers built with New write JSON to the
// configured log file, or to stderr in dev mode.
//
// # Initialization
//
// Initialize the global logger based on the --verbose flag:
//
//	logger.Init(verbose)  // verbose=true enables Debug level
//
// By default (verbose=false), only Warning and Error messages are shown.
//
// # Separation of Concerns
//
// The logger is for operational output (stderr or log file), while the
// output package is for user-facing messages (stdout with colors). Use
// logger for internal operation details and diagnostics; use output for
// success/error messages, tables, and JSON shown to users.
package logger

import (
	"os"
	"path"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger is the logging interface components receive.
// Messages use fmt.Printf formatting.
type Logger interface {
	Error(message string, args ...any)
	Warning(message string, args ...any)
	Info(message string, args ...any)
	Debug(message string, args ...any)
}

type zapLogger struct {
	sugar *zap.SugaredLogger
}

func (l *zapLogger) Error(message string, args ...any) {
	l.sugar.Errorf(message, args...)
}

func (l *zapLogger) Warning(message string, args ...any) {
	l.sugar.Warnf(message, args...)
}

func (l *zapLogger) Info(message string, args ...any) {
	l.sugar.Infof(message, args...)
}

func (l *zapLogger) Debug(message string, args ...any) {
	l.sugar.Debugf(message, args...)
}

// New builds a component logger. In dev mode it writes console output to
// stderr; otherwise it writes JSON to logFile, creating the parent
// directory if needed.
func New(logFile string, devMode bool) (Logger, error) {
	var loggerConfig zap.Config
	outputPaths := []string{}

	if devMode {
		loggerConfig = zap.NewDevelopmentConfig()
		outputPaths = append(outputPaths, "stderr")
	} else {
		logDir := path.Dir(logFile)

		if _, err := os.Stat(logDir); os.IsNotExist(err) {
			if err := os.MkdirAll(logDir, 0755); err != nil {
				return nil, err
			}
		}

		loggerConfig = zap.NewProductionConfig()
		outputPaths = append(outputPaths, logFile)
	}

	loggerConfig.OutputPaths = outputPaths
	loggerConfig.EncoderConfig.TimeKey = "timestamp"
	loggerConfig.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout(time.RFC3339)

	zLogger, err := loggerConfig.Build()
	if err != nil {
		return nil, err
	}

	return &zapLogger{sugar: zLogger.Sugar()}, nil
}

var (
	mu  sync.Mutex
	std Logger = newStderr(false)
)

// newStderr builds a console logger on stderr, warn level unless verbose.
func newStderr(verbose bool) Logger {
	loggerConfig := zap.NewDevelopmentConfig()
	loggerConfig.OutputPaths = []string{"stderr"}
	loggerConfig.EncoderConfig.TimeKey = "timestamp"
	loggerConfig.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout(time.RFC3339)

	if !verbose {
		loggerConfig.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
	}

	zLogger, err := loggerConfig.Build()
	if err != nil {
		return &NilLogger{}
	}

	return &zapLogger{sugar: zLogger.Sugar()}
}

// Init initializes the global logger with the specified verbosity.
// When verbose is true, Debug and Info levels are enabled.
// When verbose is false, only Warning and Error are shown.
func Init(verbose bool) {
	mu.Lock()
	defer mu.Unlock()
	std = newStderr(verbose)
}

// Set replaces the global logger. Useful for silencing output in tests.
func Set(l Logger) {
	mu.Lock()
	defer mu.Unlock()
	std = l
}

// Default returns the global logger for injection into components.
func Default() Logger {
	mu.Lock()
	defer mu.Unlock()
	return std
}

// Debug logs a debug message.
// Only shown when verbose mode is enabled.
func Debug(message string, args ...any) {
	Default().Debug(message, args...)
}

// Info logs an informational message.
// Only shown when verbose mode is enabled.
func Info(message string, args ...any) {
	Default().Info(message, args...)
}

// Warning logs a warning message.
// Always shown regardless of verbose mode.
func Warning(message string, args ...any) {
	Default().Warning(message, args...)
}

// Error logs an error message.
// Always shown regardless of verbose mode.
func Error(message string, args ...any) {
	Default().Error(message, args...)
}

// NilLogger discards all messages.
type NilLogger struct{}

func (NilLogger) Error(message string, args ...any) {
}

func (NilLogger) Warning(message string, args ...any) {
}

func (NilLogger) Info(message string, args ...any) {
}

func (NilLogger) Debug(message string, args ...any) {
}

// TestLogger forwards all messages to the test log.
type TestLogger struct {
	T *testing.T
}

func (l *TestLogger) Error(message string, args ...any) {
	l.T.Logf(message, args...)
}

func (l *TestLogger) Warning(message string, args ...any) {
	l.T.Logf(message, args...)
}

func (l *TestLogger) Info(message string, args ...any) {
	l.T.Logf(message, args...)
}

func (l *TestLogger) Debug(message string, args ...any) {
	l.T.Logf(message, args...)
}
