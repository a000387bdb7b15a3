// Package config loads the settings of the vcslog command.
//
// Values come from, in order of precedence: command flags bound to the
// viper instance, VCSLOG_* environment variables, the config file and the
// built-in defaults. Without --config the file is vcslog.yaml in the storage
// directory; a missing file is not an error.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/hupe1980/vcslog"
	"github.com/hupe1980/vcslog/internal/compress"
	"github.com/hupe1980/vcslog/pathindex"
	"github.com/hupe1980/vcslog/pmap"
	"github.com/spf13/viper"
)

const (
	// FileName is the config file looked up in the storage directory.
	FileName = "vcslog.yaml"
	// EnvPrefix prefixes environment overrides: backup.bucket is VCSLOG_BACKUP_BUCKET.
	EnvPrefix = "VCSLOG"
)

// Backup targets.
const (
	TargetLocal = "local"
	TargetS3    = "s3"
	TargetMinio = "minio"
)

// Config is the complete command configuration.
type Config struct {
	Dir               string       `mapstructure:"dir"`
	Roots             []string     `mapstructure:"roots"`
	Backend           string       `mapstructure:"backend"`
	Durability        string       `mapstructure:"durability"`
	Compression       string       `mapstructure:"compression"`
	CacheSize         int64        `mapstructure:"cache_size"`
	IOLimit           int64        `mapstructure:"io_limit"`
	BackgroundWorkers int64        `mapstructure:"background_workers"`
	Log               LogConfig    `mapstructure:"log"`
	Backup            BackupConfig `mapstructure:"backup"`
}

// LogConfig configures diagnostics on stderr.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // text or json
}

// BackupConfig selects where snapshots go.
type BackupConfig struct {
	Target string `mapstructure:"target"`
	// Path is the directory of the local target.
	Path   string `mapstructure:"path"`
	Bucket string `mapstructure:"bucket"`
	Prefix string `mapstructure:"prefix"`
	Region string `mapstructure:"region"`
	// Table is the DynamoDB table holding CURRENT for the s3 target.
	// Empty keeps CURRENT in the bucket.
	Table     string `mapstructure:"table"`
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Secure    bool   `mapstructure:"secure"`
	PartSize  int64  `mapstructure:"part_size"`
	// Concurrency bounds parallel file transfers.
	Concurrency int `mapstructure:"concurrency"`
}

// SetDefaults registers every key so environment overrides apply to all of them.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("dir", ".vcslog")
	v.SetDefault("roots", []string{})
	v.SetDefault("backend", string(pathindex.BackendLog))
	v.SetDefault("durability", "async")
	v.SetDefault("compression", "none")
	v.SetDefault("cache_size", 0)
	v.SetDefault("io_limit", 0)
	v.SetDefault("background_workers", 1)

	v.SetDefault("log.level", "warn")
	v.SetDefault("log.format", "text")

	v.SetDefault("backup.target", TargetLocal)
	v.SetDefault("backup.path", "")
	v.SetDefault("backup.bucket", "")
	v.SetDefault("backup.prefix", "")
	v.SetDefault("backup.region", "")
	v.SetDefault("backup.table", "")
	v.SetDefault("backup.endpoint", "")
	v.SetDefault("backup.access_key", "")
	v.SetDefault("backup.secret_key", "")
	v.SetDefault("backup.secure", true)
	v.SetDefault("backup.part_size", 8*1024*1024)
	v.SetDefault("backup.concurrency", 4)
}

// Load reads the configuration. configFile overrides the lookup of
// FileName in the storage directory and must exist.
func Load(v *viper.Viper, configFile string) (*Config, error) {
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName(strings.TrimSuffix(FileName, ".yaml"))
		v.SetConfigType("yaml")
		v.AddConfigPath(v.GetString("dir"))
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the values that are not parsed by Options.
func (c *Config) Validate() error {
	if c.Dir == "" {
		return errors.New("config: dir is required")
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("config: unknown log format %q", c.Log.Format)
	}
	switch c.Backup.Target {
	case TargetLocal, TargetS3, TargetMinio:
	default:
		return fmt.Errorf("config: unknown backup target %q", c.Backup.Target)
	}
	if c.Backup.Concurrency < 1 {
		return fmt.Errorf("config: backup concurrency must be positive, got %d", c.Backup.Concurrency)
	}
	return nil
}

// LogLevel parses Log.Level.
func (c *Config) LogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Log.Level)); err != nil {
		return 0, fmt.Errorf("config: %w", err)
	}
	return level, nil
}

// Options converts the storage settings into vcslog options.
func (c *Config) Options() ([]vcslog.Option, error) {
	backend, err := pathindex.ParseBackend(c.Backend)
	if err != nil {
		return nil, err
	}
	durability, err := pmap.ParseDurability(c.Durability)
	if err != nil {
		return nil, err
	}
	compression, err := compress.ParseType(c.Compression)
	if err != nil {
		return nil, err
	}

	return []vcslog.Option{
		vcslog.WithBackend(backend),
		vcslog.WithDurability(durability),
		vcslog.WithCompression(compression),
		vcslog.WithCacheSize(c.CacheSize),
		vcslog.WithIOLimit(c.IOLimit),
		vcslog.WithBackgroundWorkers(c.BackgroundWorkers),
		vcslog.WithBackupConcurrency(c.Backup.Concurrency),
	}, nil
}
