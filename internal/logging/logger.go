package logging

import (
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	// Logger is the process-wide logger. It is a no-op until Initialize is called.
	Logger *zap.SugaredLogger
	// JSONOutput records whether Initialize selected structured JSON output.
	JSONOutput bool
)

func init() {
	Logger = zap.NewNop().Sugar()
}

// Initialize sets up the global logger. level accepts debug|info|warn|error;
// an empty level means info.
func Initialize(jsonOutput bool, level string) error {
	lvl, err := parseLevel(level)
	if err != nil {
		return err
	}
	JSONOutput = jsonOutput

	var zapLogger *zap.Logger
	if jsonOutput {
		config := zap.NewProductionConfig()
		config.Level = zap.NewAtomicLevelAt(lvl)
		zapLogger, err = config.Build()
		if err != nil {
			return err
		}
	} else {
		encoderConfig := zap.NewDevelopmentEncoderConfig()
		encoderConfig.TimeKey = ""
		encoderConfig.CallerKey = ""
		zapLogger = zap.New(
			zapcore.NewCore(
				zapcore.NewConsoleEncoder(encoderConfig),
				zapcore.AddSync(os.Stderr),
				lvl,
			),
		)
	}

	Logger = zapLogger.Sugar()
	return nil
}

// Named returns a child of the global logger tagged with a component field.
func Named(component string) *zap.SugaredLogger {
	return Logger.With(FieldComponent, component)
}

// Sync flushes buffered entries. Errors from syncing stderr are ignored.
func Sync() {
	_ = Logger.Sync()
}

func parseLevel(level string) (zapcore.Level, error) {
	if strings.TrimSpace(level) == "" {
		return zapcore.InfoLevel, nil
	}
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(strings.ToLower(level))); err != nil {
		return zapcore.InfoLevel, err
	}
	return lvl, nil
}
