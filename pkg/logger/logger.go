package logger

import (
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type Options struct {
	Level   string // debug|info|warn|error
	Format  string // json|console
	Service string
}

// Logger's sugared core skips one frame, the Logger method (or package
// function) that called into it, so the caller field names the code that
// logged.
type Logger struct {
	sugar *zap.SugaredLogger
}

func New(opts Options) *Logger {
	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "ts"
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encCfg.EncodeLevel = zapcore.CapitalLevelEncoder

	var enc zapcore.Encoder
	if strings.EqualFold(opts.Format, "json") {
		enc = zapcore.NewJSONEncoder(encCfg)
	} else {
		enc = zapcore.NewConsoleEncoder(encCfg)
	}

	core := zapcore.NewCore(enc, zapcore.Lock(os.Stdout), parseLevel(opts.Level))
	z := zap.New(core, zap.AddCaller(), zap.AddCallerSkip(1))
	if opts.Service != "" {
		z = z.With(zap.String("service", opts.Service))
	}
	return &Logger{sugar: z.Sugar()}
}

// NewWithCore wraps an existing zap core, mostly for tests.
func NewWithCore(core zapcore.Core) *Logger {
	return &Logger{sugar: zap.New(core, zap.AddCaller(), zap.AddCallerSkip(1)).Sugar()}
}

func parseLevel(s string) zapcore.Level {
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(strings.ToLower(s))); err != nil {
		return zapcore.InfoLevel
	}
	return lvl
}

func (l *Logger) Info(format string, v ...interface{}) {
	l.sugar.Infof(format, v...)
}

func (l *Logger) Warn(format string, v ...interface{}) {
	l.sugar.Warnf(format, v...)
}

func (l *Logger) Error(format string, v ...interface{}) {
	l.sugar.Errorf(format, v...)
}

func (l *Logger) Debug(format string, v ...interface{}) {
	l.sugar.Debugf(format, v...)
}

func (l *Logger) Fatal(format string, v ...interface{}) {
	fatal(l.sugar, format, v...)
}

func fatal(s *zap.SugaredLogger, format string, v ...interface{}) {
	s.Errorf(format, v...)
	_ = s.Sync()
	os.Exit(1)
}

// With returns a child logger carrying the given key/value pairs.
func (l *Logger) With(keysAndValues ...interface{}) *Logger {
	return &Logger{sugar: l.sugar.With(keysAndValues...)}
}

func (l *Logger) Sync() error {
	return l.sugar.Sync()
}

// Global logger instance
var GlobalLogger = New(Options{})

// Init replaces the global logger.
func Init(opts Options) {
	GlobalLogger = New(opts)
}

// Convenience functions. They call the sugared core directly so the caller
// skip matches the Logger methods.
func Info(format string, v ...interface{}) {
	GlobalLogger.sugar.Infof(format, v...)
}

func Warn(format string, v ...interface{}) {
	GlobalLogger.sugar.Warnf(format, v...)
}

func Error(format string, v ...interface{}) {
	GlobalLogger.sugar.Errorf(format, v...)
}

func Debug(format string, v ...interface{}) {
	GlobalLogger.sugar.Debugf(format, v...)
}

func Fatal(format string, v ...interface{}) {
	fatal(GlobalLogger.sugar, format, v...)
}

func With(keysAndValues ...interface{}) *Logger {
	return GlobalLogger.With(keysAndValues...)
}

func Sync() error {
	return GlobalLogger.Sync()
}
