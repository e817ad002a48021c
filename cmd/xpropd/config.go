package main

import (
	_ "embed"
	"fmt"
	"time"

	"github.com/omeyang/xprop/pkg/config/xconf"
	"github.com/omeyang/xprop/pkg/observability/xlog"
	"github.com/omeyang/xprop/pkg/observability/xrotate"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// ServiceConfig xpropd 配置。
type ServiceConfig struct {
	Server    ServerConfig    `koanf:"server"`
	Log       LogConfig       `koanf:"log"`
	Scheduler SchedulerConfig `koanf:"scheduler"`
	Probe     ProbeConfig     `koanf:"probe"`
	Trace     TraceConfig     `koanf:"trace"`
}

type ServerConfig struct {
	Addr            string        `koanf:"addr"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	// Carrier 为 true 时每条日志附带完整的显式视图与 ambient 快照。
	Carrier bool `koanf:"carrier"`
	// File 为空时输出到 stderr。
	File   string         `koanf:"file"`
	Rotate xrotate.Config `koanf:"rotate"`
}

// PoolConfig 一个调度器的 worker 数与队列长度。
type PoolConfig struct {
	Workers int `koanf:"workers"`
	Queue   int `koanf:"queue"`
}

type SchedulerConfig struct {
	IO      PoolConfig `koanf:"io"`
	Default PoolConfig `koanf:"default"`
}

type ProbeConfig struct {
	Delay time.Duration `koanf:"delay"`
}

type TraceConfig struct {
	SampleRatio float64 `koanf:"sample_ratio"`
}

// loadConfig path 为空时只使用内置默认值。
func loadConfig(path string) (xconf.Config, ServiceConfig, error) {
	var (
		conf xconf.Config
		err  error
	)
	opt := xconf.WithDefaults(defaultsYAML, xconf.FormatYAML)
	if path == "" {
		conf, err = xconf.NewFromBytes(nil, xconf.FormatYAML, opt)
	} else {
		conf, err = xconf.New(path, opt)
	}
	if err != nil {
		return nil, ServiceConfig{}, err
	}
	cfg, err := decodeConfig(conf)
	if err != nil {
		return nil, ServiceConfig{}, err
	}
	return conf, cfg, nil
}

func decodeConfig(conf xconf.Config) (ServiceConfig, error) {
	var cfg ServiceConfig
	if err := conf.Unmarshal("", &cfg); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

// Validate 校验配置。
func (c ServiceConfig) Validate() error {
	if c.Server.Addr == "" {
		return fmt.Errorf("server.addr is empty")
	}
	if c.Server.ShutdownTimeout <= 0 {
		return fmt.Errorf("server.shutdown_timeout must be positive")
	}
	if _, err := xlog.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	switch c.Log.Format {
	case "", "text", "json":
	default:
		return fmt.Errorf("log.format: unknown format %q", c.Log.Format)
	}
	if c.Probe.Delay < 0 {
		return fmt.Errorf("probe.delay must not be negative")
	}
	for name, p := range map[string]PoolConfig{"io": c.Scheduler.IO, "default": c.Scheduler.Default} {
		if p.Workers <= 0 || p.Queue <= 0 {
			return fmt.Errorf("scheduler.%s: workers and queue must be positive", name)
		}
	}
	if c.Trace.SampleRatio < 0 || c.Trace.SampleRatio > 1 {
		return fmt.Errorf("trace.sample_ratio must be within [0, 1], got %v", c.Trace.SampleRatio)
	}
	return nil
}

// rotation 返回日志轮转配置，未配置文件时返回 false。
func (c LogConfig) rotation() (xrotate.Config, bool) {
	if c.File == "" {
		return xrotate.Config{}, false
	}
	rc := c.Rotate
	rc.Filename = c.File
	return rc, true
}
