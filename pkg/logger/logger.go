package logger

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gpuprices/pkg/config"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var Log *zap.Logger
var sugar *zap.SugaredLogger

const (
	defaultTraceID = "0"
	timeLayout     = "2006-01-02 15:04:05.000"
)

type traceIDKey struct{}

func init() {
	cfg := zap.NewDevelopmentConfig()
	cfg.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	cfg.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout(timeLayout)
	cfg.OutputPaths = []string{"stderr"}

	l, _ := cfg.Build(zap.AddCallerSkip(2))
	setLogger(l)
}

func setLogger(l *zap.Logger) {
	Log = l
	sugar = l.Sugar()
}

// Init replaces the global logger according to the logger section of the
// configuration. Console output goes to stderr so CLI results on stdout stay clean.
func Init(cfg config.LoggerConfig) error {
	syncer, err := newSyncer(cfg)
	if err != nil {
		return err
	}

	encoderConfig := zapcore.EncoderConfig{
		TimeKey:        "time",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		MessageKey:     "msg",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.CapitalLevelEncoder,
		EncodeTime:     zapcore.TimeEncoderOfLayout(timeLayout),
		EncodeDuration: zapcore.StringDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}

	core := zapcore.NewCore(zapcore.NewConsoleEncoder(encoderConfig), syncer, ParseLevel(cfg.Level))
	setLogger(zap.New(core, zap.AddCaller(), zap.AddCallerSkip(2)))
	return nil
}

// ParseLevel maps a configured level name to a zap level, info when unknown.
func ParseLevel(name string) zapcore.Level {
	lvl, err := zapcore.ParseLevel(strings.ToLower(strings.TrimSpace(name)))
	if err != nil {
		return zapcore.InfoLevel
	}
	return lvl
}

func newSyncer(cfg config.LoggerConfig) (zapcore.WriteSyncer, error) {
	stderr := zapcore.Lock(os.Stderr)
	switch cfg.Output {
	case "file", "both":
		file, err := openLogFile(cfg.File.Path)
		if err != nil {
			return nil, err
		}
		if cfg.Output == "file" {
			return zapcore.AddSync(file), nil
		}
		return zapcore.NewMultiWriteSyncer(stderr, zapcore.AddSync(file)), nil
	default:
		return stderr, nil
	}
}

func openLogFile(path string) (*os.File, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create log directory: %w", err)
		}
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	return file, nil
}

// WithTraceID returns a context carrying traceID for the *Ctx helpers.
func WithTraceID(ctx context.Context, traceID string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, traceIDKey{}, traceID)
}

// TraceID returns the trace id carried by ctx, "0" when there is none.
func TraceID(ctx context.Context) string {
	if ctx == nil {
		return defaultTraceID
	}
	if id, ok := ctx.Value(traceIDKey{}).(string); ok && id != "" {
		return id
	}
	return defaultTraceID
}

// Warn logs structured fields under the default trace id
func Warn(msg string, fields ...zap.Field) {
	Log.WithOptions(zap.AddCallerSkip(-1)).Warn(msg, append([]zap.Field{zap.String("trace_id", defaultTraceID)}, fields...)...)
}

func logf(traceID string, lvl zapcore.Level, format string, args ...interface{}) {
	if !Log.Core().Enabled(lvl) {
		return
	}
	format = traceID + "\t" + format
	switch lvl {
	case zapcore.DebugLevel:
		sugar.Debugf(format, args...)
	case zapcore.InfoLevel:
		sugar.Infof(format, args...)
	case zapcore.WarnLevel:
		sugar.Warnf(format, args...)
	case zapcore.ErrorLevel:
		sugar.Errorf(format, args...)
	default:
		sugar.Fatalf(format, args...)
	}
}

func Debugf(format string, args ...interface{}) { logf(defaultTraceID, zapcore.DebugLevel, format, args...) }
func Infof(format string, args ...interface{})  { logf(defaultTraceID, zapcore.InfoLevel, format, args...) }
func Warnf(format string, args ...interface{})  { logf(defaultTraceID, zapcore.WarnLevel, format, args...) }
func Errorf(format string, args ...interface{}) { logf(defaultTraceID, zapcore.ErrorLevel, format, args...) }
func Fatalf(format string, args ...interface{}) { logf(defaultTraceID, zapcore.FatalLevel, format, args...) }

func DebugCtx(ctx context.Context, format string, args ...interface{}) {
	logf(TraceID(ctx), zapcore.DebugLevel, format, args...)
}

func InfoCtx(ctx context.Context, format string, args ...interface{}) {
	logf(TraceID(ctx), zapcore.InfoLevel, format, args...)
}

func WarnCtx(ctx context.Context, format string, args ...interface{}) {
	logf(TraceID(ctx), zapcore.WarnLevel, format, args...)
}

func ErrorCtx(ctx context.Context, format string, args ...interface{}) {
	logf(TraceID(ctx), zapcore.ErrorLevel, format, args...)
}

func FatalCtx(ctx context.Context, format string, args ...interface{}) {
	logf(TraceID(ctx), zapcore.FatalLevel, format, args...)
}

// Sync flushes any buffered log entries
func Sync() error {
	return Log.Sync()
}
