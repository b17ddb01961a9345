package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sofiworker/ngdump/gconfig"
	"github.com/sofiworker/ngdump/glog"
	"github.com/sofiworker/ngdump/gnet/hexview"
)

// Settings 为 ngdump.yaml、NGDUMP_* 环境变量与命令行参数合并后的配置。
type Settings struct {
	Log struct {
		Level       glog.Level `json:"level"`
		Encoding    string     `json:"encoding"`
		File        string     `json:"file"`
		TimeFormat  string     `json:"time_format"`
		Development bool       `json:"development"`
		Stacktrace  bool       `json:"stacktrace"`
		Rotation    struct {
			MaxSize    int  `json:"max_size"`
			MaxAge     int  `json:"max_age"`
			MaxBackups int  `json:"max_backups"`
			Compress   bool `json:"compress"`
			LocalTime  bool `json:"local_time"`
		} `json:"rotation"`
	} `json:"log"`
	Output struct {
		Format  string `json:"format"`
		Content bool   `json:"content"`
		Options bool   `json:"options"`
	} `json:"output"`
	Hexdump struct {
		Width int `json:"width"`
	} `json:"hexdump"`
}

// 参数名 -> 配置键
var flagKeys = map[string]string{
	"log-level": "log.level",
	"output":    "output.format",
	"content":   "output.content",
	"options":   "output.options",
}

func setDefaults(cfg *gconfig.Config) {
	cfg.SetDefault("log.level", "info")
	cfg.SetDefault("log.encoding", string(glog.ConsoleEncoding))
	cfg.SetDefault("log.file", "")
	cfg.SetDefault("log.time_format", "2006-01-02 15:04:05.000")
	cfg.SetDefault("log.development", false)
	cfg.SetDefault("log.stacktrace", false)
	cfg.SetDefault("log.rotation.max_size", 100)
	cfg.SetDefault("log.rotation.max_age", 30)
	cfg.SetDefault("log.rotation.max_backups", 7)
	cfg.SetDefault("log.rotation.compress", true)
	cfg.SetDefault("log.rotation.local_time", true)
	cfg.SetDefault("output.format", "text")
	cfg.SetDefault("output.content", false)
	cfg.SetDefault("output.options", false)
	cfg.SetDefault("hexdump.width", hexview.DefaultWidth)
}

// loadSettings 依次合并默认值、配置文件、环境变量与 cmd 上显式设置的参数。
func loadSettings(cmd *cobra.Command, configFile string, onChange func(*Settings)) (*Settings, error) {
	opts := []gconfig.Option{}
	if configFile != "" {
		opts = append(opts, gconfig.WithFile(configFile))
	}
	if onChange != nil {
		opts = append(opts, gconfig.WithOnChangeCallback(func(c gconfig.Unmarshaler) {
			var next Settings
			if err := c.Unmarshal(&next); err != nil {
				glog.Warn("settings reload failed", "error", err)
				return
			}
			onChange(&next)
		}))
	}

	cfg, err := gconfig.New(opts...)
	if err != nil {
		return nil, err
	}
	setDefaults(cfg)
	for name, key := range flagKeys {
		if f := cmd.Flags().Lookup(name); f != nil {
			if err := cfg.BindFlag(key, f); err != nil {
				return nil, err
			}
		}
	}

	var s Settings
	if err := cfg.Unmarshal(&s); err != nil {
		return nil, fmt.Errorf("settings: %w", err)
	}
	if err := s.validate(); err != nil {
		return nil, err
	}
	if used := cfg.ConfigFileUsed(); used != "" {
		glog.Debug("settings loaded", "file", used)
	}
	return &s, nil
}

func (s *Settings) validate() error {
	switch s.Output.Format {
	case "text", "json", "yaml", "yml":
	default:
		return fmt.Errorf("settings: unsupported output format %q", s.Output.Format)
	}
	switch glog.Encoding(s.Log.Encoding) {
	case glog.ConsoleEncoding, glog.JSONEncoding:
	default:
		return fmt.Errorf("settings: unsupported log encoding %q", s.Log.Encoding)
	}
	if r := s.Log.Rotation; r.MaxSize < 0 || r.MaxAge < 0 || r.MaxBackups < 0 {
		return fmt.Errorf("settings: negative log rotation limit %+v", r)
	}
	if s.Hexdump.Width < 0 {
		return fmt.Errorf("settings: negative hexdump width %d", s.Hexdump.Width)
	}
	return nil
}

// configureLogging 将全局日志指向 stderr，设置 log.file 时额外写入按 log.rotation 轮转的文件。
func (s *Settings) configureLogging() error {
	var files []string
	if s.Log.File != "" {
		files = append(files, s.Log.File)
	}
	r := s.Log.Rotation
	return glog.Configure(
		glog.WithLevel(s.Log.Level),
		glog.WithEncoding(glog.Encoding(s.Log.Encoding)),
		glog.WithConsole(glog.StderrOutput),
		glog.WithOutputPaths(files...),
		glog.WithTimeFormat(s.Log.TimeFormat),
		glog.WithDevelopment(s.Log.Development),
		glog.WithDisableStacktrace(!s.Log.Stacktrace),
		glog.WithRotation(r.MaxSize, r.MaxAge, r.MaxBackups, r.Compress, r.LocalTime),
	)
}
