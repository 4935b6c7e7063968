// Package config loads leadcrm runtime settings from the environment and an
// optional .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"leadcrm/internal/infra/kv"
	"leadcrm/pkg/domain"
)

// Environment variable names.
const (
	EnvStorageDriver      = "LEADCRM_STORAGE_DRIVER"
	EnvStateKey           = "LEADCRM_STATE_KEY"
	EnvSQLitePath         = "LEADCRM_SQLITE_PATH"
	EnvFilePath           = "LEADCRM_FILE_PATH"
	EnvPostgresDSN        = "LEADCRM_POSTGRES_DSN"
	EnvRedisURL           = "LEADCRM_REDIS_URL"
	EnvS3Bucket           = "LEADCRM_S3_BUCKET"
	EnvS3Region           = "LEADCRM_S3_REGION"
	EnvS3Endpoint         = "LEADCRM_S3_ENDPOINT"
	EnvS3Prefix           = "LEADCRM_S3_PREFIX"
	EnvS3PathStyle        = "LEADCRM_S3_PATH_STYLE"
	EnvS3AccessKeyID      = "LEADCRM_S3_ACCESS_KEY_ID"
	EnvS3SecretAccessKey  = "LEADCRM_S3_SECRET_ACCESS_KEY"
	EnvS3SessionToken     = "LEADCRM_S3_SESSION_TOKEN"
	EnvStageRemovalPolicy = "LEADCRM_STAGE_REMOVAL_POLICY"
	EnvLogLevel           = "LEADCRM_LOG_LEVEL"
	EnvLogFormat          = "LEADCRM_LOG_FORMAT"
	EnvLogFile            = "LEADCRM_LOG_FILE"
	EnvMetrics            = "LEADCRM_METRICS"
)

// Metrics backends selectable with EnvMetrics.
const (
	MetricsPrometheus = "prometheus"
	MetricsExpvar     = "expvar"
)

// Defaults applied when the matching variable is unset.
const (
	DefaultStateKey   = "leadcrm.state"
	DefaultSQLitePath = "leadcrm.db"
	DefaultFilePath   = "./leadcrm-data"
	DefaultS3Region   = "us-east-1"
)

// Config is the complete runtime configuration.
type Config struct {
	Storage            Storage
	StageRemovalPolicy domain.StageRemovalPolicy
	Log                Log
	Metrics            string // prometheus | expvar
}

// Storage selects and parameterises the durable slot.
type Storage struct {
	Driver      kv.Driver
	Key         string
	SQLitePath  string
	FilePath    string
	PostgresDSN string
	RedisURL    string
	S3          S3
}

// S3 holds bucket settings. Without an access key, credentials come from the
// AWS default chain.
type S3 struct {
	Bucket          string
	Region          string
	Endpoint        string
	Prefix          string
	PathStyle       bool
	AccessKeyID     string
	SecretAccessKey string
	SessionToken    string
}

// Log controls logger construction.
type Log struct {
	Level  logrus.Level
	Format string // text | json
	File   string // optional rotating log file
}

// Default returns the configuration used when no variables are set.
func Default() Config {
	return Config{
		Storage: Storage{
			Driver:     kv.DriverSQLite,
			Key:        DefaultStateKey,
			SQLitePath: DefaultSQLitePath,
			FilePath:   DefaultFilePath,
			S3:         S3{Region: DefaultS3Region},
		},
		StageRemovalPolicy: domain.StageRemovalOrphan,
		Log:                Log{Level: logrus.InfoLevel, Format: "text"},
		Metrics:            MetricsPrometheus,
	}
}

// Load reads the given .env files (".env" when none are named; a missing file
// is ignored) into the process environment without overriding variables that
// are already set, then builds the Config.
func Load(envFiles ...string) (Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", f, err)
		}
	}
	return FromEnv()
}

// FromEnv builds the Config from process environment variables only.
func FromEnv() (Config, error) {
	cfg := Default()
	var errs []error

	driver, err := kv.ParseDriver(os.Getenv(EnvStorageDriver))
	if err != nil {
		errs = append(errs, fmt.Errorf("%s: %w", EnvStorageDriver, err))
	}
	cfg.Storage.Driver = driver
	cfg.Storage.Key = getEnv(EnvStateKey, cfg.Storage.Key)
	cfg.Storage.SQLitePath = getEnv(EnvSQLitePath, cfg.Storage.SQLitePath)
	cfg.Storage.FilePath = getEnv(EnvFilePath, cfg.Storage.FilePath)
	cfg.Storage.PostgresDSN = getEnv(EnvPostgresDSN, "")
	cfg.Storage.RedisURL = getEnv(EnvRedisURL, "")
	cfg.Storage.S3 = S3{
		Bucket:   getEnv(EnvS3Bucket, ""),
		Region:   getEnv(EnvS3Region, DefaultS3Region),
		Endpoint: getEnv(EnvS3Endpoint, ""),
		Prefix:   getEnv(EnvS3Prefix, ""),

		AccessKeyID:     getEnv(EnvS3AccessKeyID, ""),
		SecretAccessKey: getEnv(EnvS3SecretAccessKey, ""),
		SessionToken:    getEnv(EnvS3SessionToken, ""),
	}
	if raw := getEnv(EnvS3PathStyle, ""); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", EnvS3PathStyle, err))
		}
		cfg.Storage.S3.PathStyle = v
	}

	policy, err := domain.ParseStageRemovalPolicy(os.Getenv(EnvStageRemovalPolicy))
	if err != nil {
		errs = append(errs, fmt.Errorf("%s: %w", EnvStageRemovalPolicy, err))
	}
	cfg.StageRemovalPolicy = policy

	if raw := getEnv(EnvLogLevel, ""); raw != "" {
		lvl, err := logrus.ParseLevel(raw)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", EnvLogLevel, err))
		} else {
			cfg.Log.Level = lvl
		}
	}
	switch format := strings.ToLower(getEnv(EnvLogFormat, cfg.Log.Format)); format {
	case "text", "json":
		cfg.Log.Format = format
	default:
		errs = append(errs, fmt.Errorf("%s: unknown log format %q", EnvLogFormat, format))
	}
	cfg.Log.File = getEnv(EnvLogFile, "")

	switch metrics := strings.ToLower(getEnv(EnvMetrics, cfg.Metrics)); metrics {
	case MetricsPrometheus, MetricsExpvar:
		cfg.Metrics = metrics
	default:
		errs = append(errs, fmt.Errorf("%s: unknown metrics backend %q", EnvMetrics, metrics))
	}

	if err := cfg.Storage.Validate(); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return Config{}, errors.Join(errs...)
	}
	return cfg, nil
}

// Validate checks that the selected driver has the settings it needs.
func (s Storage) Validate() error {
	if strings.TrimSpace(s.Key) == "" {
		return fmt.Errorf("%s must not be blank", EnvStateKey)
	}
	switch s.Driver {
	case kv.DriverRedis:
		if s.RedisURL == "" {
			return fmt.Errorf("%s required for redis driver", EnvRedisURL)
		}
	case kv.DriverS3:
		if s.S3.Bucket == "" {
			return fmt.Errorf("%s required for s3 driver", EnvS3Bucket)
		}
		if (s.S3.AccessKeyID == "") != (s.S3.SecretAccessKey == "") {
			return fmt.Errorf("%s and %s must be set together", EnvS3AccessKeyID, EnvS3SecretAccessKey)
		}
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && strings.TrimSpace(value) != "" {
		return strings.TrimSpace(value)
	}
	return fallback
}
