package xrotate

import (
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"

	"gopkg.in/natefinch/lumberjack.v2"
)

// 默认值
const (
	DefaultMaxSizeMB  = 100
	DefaultMaxBackups = 7
	DefaultMaxAgeDays = 14

	maxSizeMB  = 10240
	maxBackups = 1024
	maxAgeDays = 3650
)

// Config 轮转配置。
type Config struct {
	Filename   string `koanf:"filename"`
	MaxSizeMB  int    `koanf:"max_size_mb"`
	MaxBackups int    `koanf:"max_backups"`
	MaxAgeDays int    `koanf:"max_age_days"`
	Compress   bool   `koanf:"compress"`
	LocalTime  bool   `koanf:"local_time"`
}

// DefaultConfig 返回 filename 对应的默认配置。
func DefaultConfig(filename string) Config {
	return Config{
		Filename:   filename,
		MaxSizeMB:  DefaultMaxSizeMB,
		MaxBackups: DefaultMaxBackups,
		MaxAgeDays: DefaultMaxAgeDays,
		Compress:   true,
	}
}

// Validate 校验取值范围。
func (c Config) Validate() error {
	switch {
	case c.Filename == "":
		return ErrEmptyFilename
	case c.MaxSizeMB <= 0 || c.MaxSizeMB > maxSizeMB:
		return fmt.Errorf("%w: got %d, want 1~%d", ErrInvalidMaxSize, c.MaxSizeMB, maxSizeMB)
	case c.MaxBackups < 0 || c.MaxBackups > maxBackups:
		return fmt.Errorf("%w: got %d, want 0~%d", ErrInvalidMaxBackups, c.MaxBackups, maxBackups)
	case c.MaxAgeDays < 0 || c.MaxAgeDays > maxAgeDays:
		return fmt.Errorf("%w: got %d, want 0~%d", ErrInvalidMaxAge, c.MaxAgeDays, maxAgeDays)
	case c.MaxBackups == 0 && c.MaxAgeDays == 0:
		return ErrNoCleanupPolicy
	}
	return nil
}

// New 按 cfg 创建 lumberjack 轮转器，父目录不存在时以 0750 创建。
func New(cfg Config) (Rotator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	path := filepath.Clean(cfg.Filename)
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("xrotate: create log dir: %w", err)
	}
	return &lumberjackRotator{logger: &lumberjack.Logger{
		Filename:   path,
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAgeDays,
		Compress:   cfg.Compress,
		LocalTime:  cfg.LocalTime,
	}}, nil
}

type lumberjackRotator struct {
	logger *lumberjack.Logger
	closed atomic.Bool
}

func (r *lumberjackRotator) Write(p []byte) (int, error) {
	if r.closed.Load() {
		return 0, ErrClosed
	}
	n, err := r.logger.Write(p)
	// Close 可能在写入期间完成
	if err != nil && r.closed.Load() {
		return n, ErrClosed
	}
	return n, err
}

// Close 重复调用返回 ErrClosed。
func (r *lumberjackRotator) Close() error {
	if r.closed.Swap(true) {
		return ErrClosed
	}
	return r.logger.Close()
}

func (r *lumberjackRotator) Rotate() error {
	if r.closed.Load() {
		return ErrClosed
	}
	return r.logger.Rotate()
}
