package glog

import (
	"io"
	"os"

	"gopkg.in/natefinch/lumberjack.v2"
)

// RotationConfig 定义了日志轮转的配置。
type RotationConfig struct {
	MaxSize    int // MB
	MaxAge     int // days
	MaxBackups int
	LocalTime  bool
	Compress   bool
}

// EncoderConfig 定义了结构化日志中各个字段的键名。
type EncoderConfig struct {
	MessageKey    string `json:"message_key"`
	LevelKey      string `json:"level_key"`
	TimeKey       string `json:"time_key"`
	CallerKey     string `json:"caller_key"`
	StacktraceKey string `json:"stacktrace_key"`
}

// Config 是一个通用的日志配置结构体。
type Config struct {
	Level             Level
	Encoding          Encoding
	InitialFields     map[string]interface{}
	Console           OutputType
	FilePaths         []string
	EncoderConfig     *EncoderConfig
	RotationConfig    *RotationConfig
	DisableCaller     bool
	DisableStacktrace bool
	Development       bool
	TimeFormat        string
}

// DefaultConfig 返回默认日志配置：控制台编码，输出到 stderr，
// 以免与标准输出上的解码结果混在一起。
func DefaultConfig() *Config {
	return &Config{
		Level:             InfoLevel,
		Encoding:          ConsoleEncoding,
		Console:           StderrOutput,
		FilePaths:         nil,
		Development:       false,
		DisableCaller:     true,
		DisableStacktrace: true,
		InitialFields:     make(map[string]interface{}),
		TimeFormat:        "2006-01-02 15:04:05.000",
		RotationConfig: &RotationConfig{
			MaxSize:    100,
			MaxAge:     30,
			MaxBackups: 7,
			Compress:   true,
			LocalTime:  true,
		},
		EncoderConfig: &EncoderConfig{
			MessageKey:    "msg",
			LevelKey:      "lvl",
			TimeKey:       "ts",
			CallerKey:     "caller",
			StacktraceKey: "stack",
		},
	}
}

// buildWriters 根据配置构建 io.Writer。
func buildWriters(config *Config) ([]io.Writer, error) {
	writers := make([]io.Writer, 0, len(config.FilePaths)+1)

	switch config.Console {
	case StdoutOutput:
		writers = append(writers, os.Stdout)
	case StderrOutput:
		writers = append(writers, os.Stderr)
	}

	// 既没有文件输出也没有控制台输出时，默认使用 os.Stderr
	if len(config.FilePaths) == 0 && len(writers) == 0 {
		writers = append(writers, os.Stderr)
	}

	for _, path := range config.FilePaths {
		var writer io.Writer
		if rc := config.RotationConfig; rc != nil {
			writer = &lumberjack.Logger{
				Filename:   path,
				MaxSize:    rc.MaxSize,
				MaxAge:     rc.MaxAge,
				MaxBackups: rc.MaxBackups,
				LocalTime:  rc.LocalTime,
				Compress:   rc.Compress,
			}
		} else {
			file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
			if err != nil {
				return nil, err
			}
			writer = file
		}
		writers = append(writers, writer)
	}

	return writers, nil
}

func cloneConfig(c *Config) *Config {
	cfg := *c
	if c.RotationConfig != nil {
		rotation := *c.RotationConfig
		cfg.RotationConfig = &rotation
	}
	if c.EncoderConfig != nil {
		encoder := *c.EncoderConfig
		cfg.EncoderConfig = &encoder
	}
	cfg.InitialFields = make(map[string]interface{}, len(c.InitialFields))
	for k, v := range c.InitialFields {
		cfg.InitialFields[k] = v
	}
	cfg.FilePaths = append([]string(nil), c.FilePaths...)
	return &cfg
}
