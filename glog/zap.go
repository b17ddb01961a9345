package glog

import (
	"context"
	"fmt"
	"io"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var _ GLogger = (*zapLogger)(nil)

type zapLogger struct {
	zapLogger *zap.Logger
	level     zap.AtomicLevel
	config    *Config
}

func newZapLogger(config *Config) (*zapLogger, error) {
	if config == nil {
		config = DefaultConfig()
	}
	writers, err := buildWriters(config)
	if err != nil {
		return nil, err
	}

	// 使用多个writer
	var coreWriter io.Writer
	if len(writers) == 1 {
		coreWriter = writers[0]
	} else {
		coreWriter = io.MultiWriter(writers...)
	}

	level := zap.NewAtomicLevelAt(zapcore.Level(config.Level))
	core := zapcore.NewCore(buildEncoder(config), zapcore.AddSync(coreWriter), level)

	l := zap.New(core, buildOptions(config)...)
	if len(config.InitialFields) > 0 {
		fields := make([]zap.Field, 0, len(config.InitialFields))
		for k, v := range config.InitialFields {
			fields = append(fields, zap.Any(k, v))
		}
		l = l.With(fields...)
	}

	return &zapLogger{
		zapLogger: l,
		level:     level,
		config:    config,
	}, nil
}

func (l *zapLogger) With(args ...interface{}) GLogger {
	return &zapLogger{
		zapLogger: l.zapLogger.With(toFields(args)...),
		level:     l.level,
		config:    l.config,
	}
}

func (l *zapLogger) Debug(msg string, args ...interface{}) {
	l.zapLogger.Debug(msg, toFields(args)...)
}

func (l *zapLogger) Info(msg string, args ...interface{}) {
	l.zapLogger.Info(msg, toFields(args)...)
}

func (l *zapLogger) Warn(msg string, args ...interface{}) {
	l.zapLogger.Warn(msg, toFields(args)...)
}

func (l *zapLogger) Error(msg string, args ...interface{}) {
	l.zapLogger.Error(msg, toFields(args)...)
}

func (l *zapLogger) Fatal(msg string, args ...interface{}) {
	l.zapLogger.Fatal(msg, toFields(args)...)
}

// Debugf 使用格式化字符串记录 debug 级别日志
func (l *zapLogger) Debugf(format string, args ...interface{}) {
	if l.zapLogger.Core().Enabled(zapcore.DebugLevel) {
		l.zapLogger.Debug(fmt.Sprintf(format, args...))
	}
}

// Infof 使用格式化字符串记录 info 级别日志
func (l *zapLogger) Infof(format string, args ...interface{}) {
	if l.zapLogger.Core().Enabled(zapcore.InfoLevel) {
		l.zapLogger.Info(fmt.Sprintf(format, args...))
	}
}

// Warnf 使用格式化字符串记录 warn 级别日志
func (l *zapLogger) Warnf(format string, args ...interface{}) {
	if l.zapLogger.Core().Enabled(zapcore.WarnLevel) {
		l.zapLogger.Warn(fmt.Sprintf(format, args...))
	}
}

// Errorf 使用格式化字符串记录 error 级别日志
func (l *zapLogger) Errorf(format string, args ...interface{}) {
	if l.zapLogger.Core().Enabled(zapcore.ErrorLevel) {
		l.zapLogger.Error(fmt.Sprintf(format, args...))
	}
}

func (l *zapLogger) DebugContext(ctx context.Context, msg string, args ...interface{}) {
	l.zapLogger.Debug(msg, append(toFields(args), traceContextFields(ctx)...)...)
}

func (l *zapLogger) InfoContext(ctx context.Context, msg string, args ...interface{}) {
	l.zapLogger.Info(msg, append(toFields(args), traceContextFields(ctx)...)...)
}

func (l *zapLogger) WarnContext(ctx context.Context, msg string, args ...interface{}) {
	l.zapLogger.Warn(msg, append(toFields(args), traceContextFields(ctx)...)...)
}

func (l *zapLogger) ErrorContext(ctx context.Context, msg string, args ...interface{}) {
	l.zapLogger.Error(msg, append(toFields(args), traceContextFields(ctx)...)...)
}

func (l *zapLogger) SetLevel(lvl Level) {
	l.level.SetLevel(zapcore.Level(lvl))
}

func (l *zapLogger) Config() *Config {
	cfg := cloneConfig(l.config)
	cfg.Level = Level(l.level.Level())
	return cfg
}

func (l *zapLogger) Sync() error {
	return l.zapLogger.Sync()
}

// toFields 将键值对转换为 zap 字段，参数不合法时附带一个 error 字段。
func toFields(args []interface{}) []zap.Field {
	if len(args) == 0 {
		return nil
	}
	fields := make([]zap.Field, 0, len(args)/2+1)
	if len(args)%2 != 0 {
		fields = append(fields, zap.Error(ErrInvalidKeyValuePairs))
		args = args[:len(args)-1]
	}
	for i := 0; i < len(args); i += 2 {
		key, ok := args[i].(string)
		if !ok {
			fields = append(fields, zap.Error(ErrKeyNotString))
			continue
		}
		if err, isErr := args[i+1].(error); isErr {
			fields = append(fields, zap.NamedError(key, err))
			continue
		}
		fields = append(fields, zap.Any(key, args[i+1]))
	}
	return fields
}

func traceContextFields(ctx context.Context) []zap.Field {
	if ctx == nil {
		return nil
	}
	sc := trace.SpanContextFromContext(ctx)
	if !sc.IsValid() {
		return nil
	}
	return []zap.Field{
		zap.String("trace_id", sc.TraceID().String()),
		zap.String("span_id", sc.SpanID().String()),
	}
}

func buildEncoder(config *Config) zapcore.Encoder {
	encoderConfig := zapcore.EncoderConfig{
		TimeKey:        "ts",
		LevelKey:       "lvl",
		NameKey:        "logger",
		CallerKey:      "caller",
		FunctionKey:    zapcore.OmitKey,
		MessageKey:     "msg",
		StacktraceKey:  "stack",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.SecondsDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}
	if ec := config.EncoderConfig; ec != nil {
		if ec.MessageKey != "" {
			encoderConfig.MessageKey = ec.MessageKey
		}
		if ec.LevelKey != "" {
			encoderConfig.LevelKey = ec.LevelKey
		}
		if ec.TimeKey != "" {
			encoderConfig.TimeKey = ec.TimeKey
		}
		if ec.CallerKey != "" {
			encoderConfig.CallerKey = ec.CallerKey
		}
		if ec.StacktraceKey != "" {
			encoderConfig.StacktraceKey = ec.StacktraceKey
		}
	}
	if config.TimeFormat != "" {
		encoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout(config.TimeFormat)
	}

	if config.Encoding == JSONEncoding {
		return zapcore.NewJSONEncoder(encoderConfig)
	}
	encoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	return zapcore.NewConsoleEncoder(encoderConfig)
}

func buildOptions(config *Config) []zap.Option {
	var opts []zap.Option

	if config.Development {
		opts = append(opts, zap.Development())
	}

	if !config.DisableCaller {
		opts = append(opts, zap.AddCaller(), zap.AddCallerSkip(1))
	}

	stackLevel := zap.ErrorLevel
	if config.Development {
		stackLevel = zap.WarnLevel
	}
	if !config.DisableStacktrace {
		opts = append(opts, zap.AddStacktrace(stackLevel))
	}

	return opts
}
