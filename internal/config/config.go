package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	poslog "github.com/SigitArif/POS/internal/log"
	toml "github.com/pelletier/go-toml/v2"
)

const (
	defaultBusyTimeout      = 5 * time.Second
	defaultLogLevel         = "info"
	defaultLogFormat        = "json"
	defaultReportRangeDays  = 7
	maxReportRangeDays      = 3660
	defaultMetricsListenArg = ""
)

var ErrInvalidConfig = errors.New("invalid config")

type Config struct {
	Storage StorageConfig `toml:"storage"`
	Logging LoggingConfig `toml:"logging"`
	Report  ReportConfig  `toml:"report"`
	Metrics MetricsConfig `toml:"metrics"`
}

type StorageConfig struct {
	Path        string        `toml:"path"`
	BusyTimeout time.Duration `toml:"busy_timeout"`
}

type LoggingConfig struct {
	Level     string `toml:"level"`
	Format    string `toml:"format"`
	File      string `toml:"file"`
	MaxSizeMB int    `toml:"max_size_mb"`
	MaxFiles  int    `toml:"max_files"`
	Compress  bool   `toml:"compress"`
}

type ReportConfig struct {
	DefaultRangeDays int `toml:"default_range_days"`
}

type MetricsConfig struct {
	ListenAddr string `toml:"listen_addr"`
}

type LoadOptions struct {
	ConfigPath string
	Env        map[string]string
	Flags      FlagOverrides
}

type FlagOverrides struct {
	DBPath      *string
	LogLevel    *string
	MetricsAddr *string
}

// LoadReport records where the effective configuration came from.
type LoadReport struct {
	ConfigPath   string
	ConfigLoaded bool
}

func DefaultConfig() Config {
	return Config{
		Storage: StorageConfig{
			Path:        "",
			BusyTimeout: defaultBusyTimeout,
		},
		Logging: LoggingConfig{
			Level:     defaultLogLevel,
			Format:    defaultLogFormat,
			File:      "",
			MaxSizeMB: poslog.DefaultMaxSizeMB,
			MaxFiles:  poslog.DefaultMaxFiles,
		},
		Report: ReportConfig{
			DefaultRangeDays: defaultReportRangeDays,
		},
		Metrics: MetricsConfig{
			ListenAddr: defaultMetricsListenArg,
		},
	}
}

// Load resolves configuration with precedence flags > env > file > defaults.
func Load(opts LoadOptions) (Config, LoadReport, error) {
	cfg := DefaultConfig()
	report := LoadReport{}

	configPath, err := resolveConfigPath(opts)
	if err != nil {
		return Config{}, report, fmt.Errorf("resolve config path: %w", err)
	}
	report.ConfigPath = configPath

	loaded, err := loadAndApplyFile(configPath, &cfg)
	if err != nil {
		return Config{}, report, err
	}
	report.ConfigLoaded = loaded

	if err := applyEnvOverrides(&cfg, opts); err != nil {
		return Config{}, report, err
	}
	applyFlagOverrides(&cfg, opts.Flags)

	if cfg.Storage.Path == "" {
		path, err := defaultDBPath(opts)
		if err != nil {
			return Config{}, report, fmt.Errorf("resolve db path: %w", err)
		}
		cfg.Storage.Path = path
	}

	if err := validate(cfg); err != nil {
		return Config{}, report, err
	}

	return cfg, report, nil
}

type rawConfig struct {
	Storage *rawStorage `toml:"storage"`
	Logging *rawLogging `toml:"logging"`
	Report  *rawReport  `toml:"report"`
	Metrics *rawMetrics `toml:"metrics"`
}

type rawStorage struct {
	Path        *string `toml:"path"`
	BusyTimeout *string `toml:"busy_timeout"`
}

type rawLogging struct {
	Level     *string `toml:"level"`
	Format    *string `toml:"format"`
	File      *string `toml:"file"`
	MaxSizeMB *int    `toml:"max_size_mb"`
	MaxFiles  *int    `toml:"max_files"`
	Compress  *bool   `toml:"compress"`
}

type rawReport struct {
	DefaultRangeDays *int `toml:"default_range_days"`
}

type rawMetrics struct {
	ListenAddr *string `toml:"listen_addr"`
}

func loadAndApplyFile(path string, cfg *Config) (bool, error) {
	if path == "" {
		return false, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("read config file %q: %w", path, err)
	}

	var raw rawConfig
	if err := toml.Unmarshal(data, &raw); err != nil {
		return false, fmt.Errorf("%w: parse TOML file %q: %v", ErrInvalidConfig, path, err)
	}

	if err := applyRawConfig(cfg, raw); err != nil {
		return false, err
	}
	return true, nil
}

func applyRawConfig(cfg *Config, raw rawConfig) error {
	if raw.Storage != nil {
		setString(raw.Storage.Path, &cfg.Storage.Path)
		if err := setDuration("storage.busy_timeout", raw.Storage.BusyTimeout, &cfg.Storage.BusyTimeout); err != nil {
			return err
		}
	}

	if raw.Logging != nil {
		setString(raw.Logging.Level, &cfg.Logging.Level)
		setString(raw.Logging.Format, &cfg.Logging.Format)
		setString(raw.Logging.File, &cfg.Logging.File)
		setInt(raw.Logging.MaxSizeMB, &cfg.Logging.MaxSizeMB)
		setInt(raw.Logging.MaxFiles, &cfg.Logging.MaxFiles)
		if raw.Logging.Compress != nil {
			cfg.Logging.Compress = *raw.Logging.Compress
		}
	}

	if raw.Report != nil {
		setInt(raw.Report.DefaultRangeDays, &cfg.Report.DefaultRangeDays)
	}

	if raw.Metrics != nil {
		setString(raw.Metrics.ListenAddr, &cfg.Metrics.ListenAddr)
	}

	return nil
}

func applyEnvOverrides(cfg *Config, opts LoadOptions) error {
	if value, ok := lookupEnv(opts, "POS_DB_PATH"); ok {
		cfg.Storage.Path = value
	}
	if value, ok := lookupEnv(opts, "POS_DB_BUSY_TIMEOUT"); ok {
		d, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("%w: parse POS_DB_BUSY_TIMEOUT: %v", ErrInvalidConfig, err)
		}
		cfg.Storage.BusyTimeout = d
	}

	if value, ok := lookupEnv(opts, "POS_LOG_LEVEL"); ok {
		cfg.Logging.Level = value
	}
	if value, ok := lookupEnv(opts, "POS_LOG_FORMAT"); ok {
		cfg.Logging.Format = value
	}
	if value, ok := lookupEnv(opts, "POS_LOG_FILE"); ok {
		cfg.Logging.File = value
	}
	if value, ok := lookupEnv(opts, "POS_LOG_MAX_SIZE_MB"); ok {
		parsed, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("%w: parse POS_LOG_MAX_SIZE_MB: %v", ErrInvalidConfig, err)
		}
		cfg.Logging.MaxSizeMB = parsed
	}
	if value, ok := lookupEnv(opts, "POS_LOG_MAX_FILES"); ok {
		parsed, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("%w: parse POS_LOG_MAX_FILES: %v", ErrInvalidConfig, err)
		}
		cfg.Logging.MaxFiles = parsed
	}

	if value, ok := lookupEnv(opts, "POS_REPORT_DEFAULT_RANGE_DAYS"); ok {
		parsed, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("%w: parse POS_REPORT_DEFAULT_RANGE_DAYS: %v", ErrInvalidConfig, err)
		}
		cfg.Report.DefaultRangeDays = parsed
	}

	if value, ok := lookupEnv(opts, "POS_METRICS_ADDR"); ok {
		cfg.Metrics.ListenAddr = value
	}

	return nil
}

func applyFlagOverrides(cfg *Config, flags FlagOverrides) {
	if flags.DBPath != nil {
		cfg.Storage.Path = *flags.DBPath
	}
	if flags.LogLevel != nil {
		cfg.Logging.Level = *flags.LogLevel
	}
	if flags.MetricsAddr != nil {
		cfg.Metrics.ListenAddr = *flags.MetricsAddr
	}
}

func validate(cfg Config) error {
	if strings.TrimSpace(cfg.Storage.Path) == "" {
		return fmt.Errorf("%w: storage.path must not be empty", ErrInvalidConfig)
	}
	if cfg.Storage.BusyTimeout <= 0 || cfg.Storage.BusyTimeout > 5*time.Minute {
		return fmt.Errorf("%w: storage.busy_timeout must be > 0 and <= 5m", ErrInvalidConfig)
	}
	switch strings.ToLower(cfg.Logging.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("%w: logging.level must be one of debug, info, warn, error", ErrInvalidConfig)
	}
	switch strings.ToLower(cfg.Logging.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("%w: logging.format must be text or json", ErrInvalidConfig)
	}
	if cfg.Logging.MaxSizeMB < 0 || cfg.Logging.MaxFiles < 0 {
		return fmt.Errorf("%w: logging rotation limits must not be negative", ErrInvalidConfig)
	}
	if cfg.Report.DefaultRangeDays < 1 || cfg.Report.DefaultRangeDays > maxReportRangeDays {
		return fmt.Errorf("%w: report.default_range_days must be between 1 and %d", ErrInvalidConfig, maxReportRangeDays)
	}
	return nil
}

func setDuration(field string, raw *string, target *time.Duration) error {
	if raw == nil {
		return nil
	}
	d, err := time.ParseDuration(*raw)
	if err != nil {
		return fmt.Errorf("%w: parse %s: %v", ErrInvalidConfig, field, err)
	}
	*target = d
	return nil
}

func setString(raw *string, target *string) {
	if raw == nil {
		return
	}
	*target = *raw
}

func setInt(raw *int, target *int) {
	if raw == nil {
		return
	}
	*target = *raw
}

func resolveConfigPath(opts LoadOptions) (string, error) {
	if opts.ConfigPath != "" {
		return opts.ConfigPath, nil
	}
	if value, ok := lookupEnv(opts, "POS_CONFIG_PATH"); ok {
		return value, nil
	}
	return defaultConfigPath(opts)
}

func lookupEnv(opts LoadOptions, key string) (string, bool) {
	if opts.Env != nil {
		if value, ok := opts.Env[key]; ok {
			return value, true
		}
	}
	return os.LookupEnv(key)
}

// DataHome is the directory holding the database file.
func DataHome(opts LoadOptions) (string, error) {
	if value, ok := lookupEnv(opts, "POS_HOME"); ok && value != "" {
		return value, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve user home: %w", err)
	}

	if runtime.GOOS == "darwin" {
		return filepath.Join(home, "Library", "Application Support", "POS"), nil
	}

	dataHome := filepath.Join(home, ".local", "share")
	if xdgDataHome, ok := lookupEnv(opts, "XDG_DATA_HOME"); ok && xdgDataHome != "" {
		dataHome = xdgDataHome
	}
	return filepath.Join(dataHome, "pos"), nil
}

func defaultDBPath(opts LoadOptions) (string, error) {
	home, err := DataHome(opts)
	if err != nil {
		return "", err
	}
	return filepath.Join(home, "pos.db"), nil
}

func defaultConfigPath(opts LoadOptions) (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve user home: %w", err)
	}

	if runtime.GOOS == "darwin" {
		return filepath.Join(home, "Library", "Application Support", "POS", "config.toml"), nil
	}

	configHome := filepath.Join(home, ".config")
	if xdgConfigHome, ok := lookupEnv(opts, "XDG_CONFIG_HOME"); ok && xdgConfigHome != "" {
		configHome = xdgConfigHome
	}
	return filepath.Join(configHome, "pos", "config.toml"), nil
}
