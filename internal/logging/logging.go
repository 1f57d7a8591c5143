package logging

import (
	"os"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	globalMu     sync.RWMutex
	globalLogger Logger
)

func init() {
	cfg := zap.NewProductionConfig()
	if level := os.Getenv("LOG_LEVEL"); level != "" {
		var zapLevel zapcore.Level
		if err := zapLevel.UnmarshalText([]byte(strings.ToLower(level))); err == nil {
			cfg.Level = zap.NewAtomicLevelAt(zapLevel)
		}
	}

	logger, err := cfg.Build()
	if err != nil {
		panic(err)
	}
	globalLogger = &zapLogger{logger.Sugar()}
}

// InitLogger replaces the global logger. format is "json" or "console";
// output defaults to stderr.
func InitLogger(level string, format string, output zapcore.WriteSyncer) Logger {
	var cfg zap.Config
	if format == "json" {
		cfg = zap.NewProductionConfig()
	} else {
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	if level != "" {
		var zapLevel zapcore.Level
		if err := zapLevel.UnmarshalText([]byte(strings.ToLower(level))); err == nil {
			cfg.Level = zap.NewAtomicLevelAt(zapLevel)
		}
	}

	logger, err := cfg.Build()
	if err != nil {
		panic(err)
	}

	if output != nil {
		var encoder zapcore.Encoder
		if format == "json" {
			encoder = zapcore.NewJSONEncoder(cfg.EncoderConfig)
		} else {
			encoder = zapcore.NewConsoleEncoder(cfg.EncoderConfig)
		}
		logger = zap.New(zapcore.NewCore(encoder, output, cfg.Level))
	}

	l := &zapLogger{logger.Sugar()}
	globalMu.Lock()
	globalLogger = l
	globalMu.Unlock()
	return l
}

// GetLogger returns the global logger instance.
func GetLogger() Logger {
	globalMu.RLock()
	defer globalMu.RUnlock()
	return globalLogger
}

// NewNop returns a logger that discards everything.
func NewNop() Logger {
	return &zapLogger{zap.NewNop().Sugar()}
}

// NewZap wraps an existing zap logger.
func NewZap(logger *zap.Logger) Logger {
	return &zapLogger{logger.Sugar()}
}

type zapLogger struct {
	*zap.SugaredLogger
}

func (l *zapLogger) Debug(msg string, keysAndValues ...interface{}) {
	l.SugaredLogger.Debugw(msg, keysAndValues...)
}

func (l *zapLogger) Info(msg string, keysAndValues ...interface{}) {
	l.SugaredLogger.Infow(msg, keysAndValues...)
}

func (l *zapLogger) Warn(msg string, keysAndValues ...interface{}) {
	l.SugaredLogger.Warnw(msg, keysAndValues...)
}

func (l *zapLogger) Error(msg string, keysAndValues ...interface{}) {
	l.SugaredLogger.Errorw(msg, keysAndValues...)
}

// With creates a child logger carrying the given fields.
func (l *zapLogger) With(keysAndValues ...interface{}) Logger {
	return &zapLogger{l.SugaredLogger.With(keysAndValues...)}
}
