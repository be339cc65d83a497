// Package config loads application configuration from file and environment.
package config

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store       StoreConfig       `yaml:"store" mapstructure:"store"`
	Oracle      OracleConfig      `yaml:"oracle" mapstructure:"oracle"`
	Verify      VerifyConfig      `yaml:"verify" mapstructure:"verify"`
	Generate    GenerateConfig    `yaml:"generate" mapstructure:"generate"`
	Fingerprint FingerprintConfig `yaml:"fingerprint" mapstructure:"fingerprint"`
	Server      ServerConfig      `yaml:"server" mapstructure:"server"`
	Monitoring  MonitoringConfig  `yaml:"monitoring" mapstructure:"monitoring"`
	Log         LogConfig         `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the run-history database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// OracleConfig configures the remote verification service client.
type OracleConfig struct {
	Endpoint    string  `yaml:"endpoint" mapstructure:"endpoint"`
	TimeoutSecs int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	RatePerSec  float64 `yaml:"rate_per_sec" mapstructure:"rate_per_sec"`
}

// Timeout returns the per-request timeout as a duration.
func (c OracleConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSecs) * time.Second
}

// VerifyConfig configures the verification pipeline files.
type VerifyConfig struct {
	Report        string `yaml:"report" mapstructure:"report"`
	CheckpointDir string `yaml:"checkpoint_dir" mapstructure:"checkpoint_dir"`
	ResultPath    string `yaml:"result_path" mapstructure:"result_path"`
}

// GenerateConfig configures candidate array generation.
type GenerateConfig struct {
	Table     string `yaml:"table" mapstructure:"table"`
	OutputDir string `yaml:"output_dir" mapstructure:"output_dir"`
	ChunkSize int    `yaml:"chunk_size" mapstructure:"chunk_size"`
}

// FingerprintConfig configures checksum report generation.
type FingerprintConfig struct {
	Dir         string `yaml:"dir" mapstructure:"dir"`
	Report      string `yaml:"report" mapstructure:"report"`
	Concurrency int    `yaml:"concurrency" mapstructure:"concurrency"`
}

// ServerConfig configures the status server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// MonitoringConfig configures background health checks and alerting.
type MonitoringConfig struct {
	WebhookURL           string  `yaml:"webhook_url" mapstructure:"webhook_url"`
	FailureRateThreshold float64 `yaml:"failure_rate_threshold" mapstructure:"failure_rate_threshold"`
	StallThresholdSecs   int     `yaml:"stall_threshold_secs" mapstructure:"stall_threshold_secs"`
	CheckIntervalSecs    int     `yaml:"check_interval_secs" mapstructure:"check_interval_secs"`
	LookbackWindowHours  int     `yaml:"lookback_window_hours" mapstructure:"lookback_window_hours"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("KEYSEARCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "keysearch.db")
	v.SetDefault("store.max_conns", 10)
	v.SetDefault("store.min_conns", 2)
	v.SetDefault("oracle.timeout_secs", 30)
	v.SetDefault("oracle.rate_per_sec", 0)
	v.SetDefault("verify.report", "checksums.txt")
	v.SetDefault("verify.checkpoint_dir", ".")
	v.SetDefault("verify.result_path", "result.txt")
	v.SetDefault("generate.output_dir", "output_chunks")
	v.SetDefault("generate.chunk_size", 50000)
	v.SetDefault("fingerprint.dir", "output_chunks")
	v.SetDefault("fingerprint.report", "checksums.txt")
	v.SetDefault("fingerprint.concurrency", 4)
	v.SetDefault("server.port", 8080)
	v.SetDefault("monitoring.failure_rate_threshold", 0.25)
	v.SetDefault("monitoring.stall_threshold_secs", 1800)
	v.SetDefault("monitoring.check_interval_secs", 300)
	v.SetDefault("monitoring.lookback_window_hours", 24)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
