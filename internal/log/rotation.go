package log

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Rotation defaults shared with the [logging] config section.
const (
	DefaultMaxSizeMB = 10
	DefaultMaxFiles  = 5
)

var errEmptyLogPath = errors.New("log file path must not be empty")

type RotationConfig struct {
	File      string
	MaxSizeMB int
	MaxFiles  int
	// Compress gzips rotated backups.
	Compress bool
}

func (c RotationConfig) withDefaults() (RotationConfig, error) {
	if c.File == "" {
		return c, errEmptyLogPath
	}
	if c.MaxSizeMB < 0 || c.MaxFiles < 0 {
		return c, fmt.Errorf("log rotation limits must not be negative (max_size_mb=%d max_files=%d)", c.MaxSizeMB, c.MaxFiles)
	}
	if c.MaxSizeMB == 0 {
		c.MaxSizeMB = DefaultMaxSizeMB
	}
	if c.MaxFiles == 0 {
		c.MaxFiles = DefaultMaxFiles
	}
	return c, nil
}

// NewRotatingWriter opens the log file up front so a bad path fails at
// startup instead of on the first write. Backups are named in local time,
// matching the day boundaries used by reports.
func NewRotatingWriter(cfg RotationConfig) (*lumberjack.Logger, error) {
	cfg, err := cfg.withDefaults()
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(filepath.Dir(cfg.File), 0o700); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}
	f, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}

	return &lumberjack.Logger{
		Filename:   cfg.File,
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxFiles,
		LocalTime:  true,
		Compress:   cfg.Compress,
	}, nil
}
