// Package config holds the service configuration and its viper-based loader.
package config

import (
	"errors"
	"time"

	"github.com/spf13/viper"
)

// CacheBackend selects the result cache adapter.
type CacheBackend string

const (
	CacheMemory CacheBackend = "memory"
	CacheDisk   CacheBackend = "disk"
	CacheRedis  CacheBackend = "redis"
	CacheS3     CacheBackend = "s3"
)

// Config is the top-level configuration struct.  All fields have safe
// defaults so callers can start with Default() and override what they need.
type Config struct {
	// HTTP listen address.
	Addr string

	// Base directory for local source images.
	BaseDir string

	// Remote fetch controls.
	FetchTimeout   time.Duration
	MaxSourceBytes int64 // 0 = no limit

	// Result cache.
	Cache CacheConfig

	// libvips backend.
	Vips VipsConfig

	LogLevel string // "debug", "info", "warn", "error"
}

// CacheConfig selects and configures the result cache backend.
type CacheConfig struct {
	Backend CacheBackend
	Dir     string // disk backend root
	Redis   RedisConfig
	S3      S3Config
}

// RedisConfig configures the Redis cache backend.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// S3Config configures the S3 cache backend.
type S3Config struct {
	Bucket string
}

// VipsConfig configures the libvips codec.
type VipsConfig struct {
	MaxCacheSize int
	MaxWorkers   int // 0 = NumCPU
	ReportLeaks  bool
}

// Default returns a Config populated with sensible production defaults.
func Default() Config {
	return Config{
		Addr:           ":8080",
		BaseDir:        "./images",
		FetchTimeout:   30 * time.Second,
		MaxSourceBytes: 64 << 20,
		Cache: CacheConfig{
			Backend: CacheMemory,
			Dir:     "./cache",
			Redis:   RedisConfig{Addr: "localhost:6379"},
		},
		LogLevel: "info",
	}
}

// Load reads configuration from the given file (optional) and the
// IMAGE_SERVER_* environment, layered over Default().
func Load(path string) (Config, error) {
	def := Default()

	v := viper.New()
	v.SetDefault("addr", def.Addr)
	v.SetDefault("base_dir", def.BaseDir)
	v.SetDefault("fetch_timeout", def.FetchTimeout)
	v.SetDefault("max_source_bytes", def.MaxSourceBytes)
	v.SetDefault("cache.backend", string(def.Cache.Backend))
	v.SetDefault("cache.dir", def.Cache.Dir)
	v.SetDefault("cache.redis.addr", def.Cache.Redis.Addr)
	v.SetDefault("cache.redis.password", "")
	v.SetDefault("cache.redis.db", 0)
	v.SetDefault("cache.s3.bucket", "")
	v.SetDefault("vips.max_cache_size", 0)
	v.SetDefault("vips.max_workers", 0)
	v.SetDefault("vips.report_leaks", false)
	v.SetDefault("log_level", def.LogLevel)

	v.SetEnvPrefix("IMAGE_SERVER")
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, err
		}
	}

	cfg := Config{
		Addr:           v.GetString("addr"),
		BaseDir:        v.GetString("base_dir"),
		FetchTimeout:   v.GetDuration("fetch_timeout"),
		MaxSourceBytes: v.GetInt64("max_source_bytes"),
		Cache: CacheConfig{
			Backend: CacheBackend(v.GetString("cache.backend")),
			Dir:     v.GetString("cache.dir"),
			Redis: RedisConfig{
				Addr:     v.GetString("cache.redis.addr"),
				Password: v.GetString("cache.redis.password"),
				DB:       v.GetInt("cache.redis.db"),
			},
			S3: S3Config{Bucket: v.GetString("cache.s3.bucket")},
		},
		Vips: VipsConfig{
			MaxCacheSize: v.GetInt("vips.max_cache_size"),
			MaxWorkers:   v.GetInt("vips.max_workers"),
			ReportLeaks:  v.GetBool("vips.report_leaks"),
		},
		LogLevel: v.GetString("log_level"),
	}
	return cfg, Validate(cfg)
}

// Validate returns an error if the configuration is inconsistent.
func Validate(c Config) error {
	if c.Addr == "" {
		return errors.New("config: Addr must not be empty")
	}
	switch c.Cache.Backend {
	case CacheMemory:
	case CacheDisk:
		if c.Cache.Dir == "" {
			return errors.New("config: Cache.Dir required for the disk backend")
		}
	case CacheRedis:
		if c.Cache.Redis.Addr == "" {
			return errors.New("config: Cache.Redis.Addr required for the redis backend")
		}
	case CacheS3:
		if c.Cache.S3.Bucket == "" {
			return errors.New("config: Cache.S3.Bucket required for the s3 backend")
		}
	default:
		return errors.New("config: unknown cache backend")
	}
	if c.MaxSourceBytes < 0 {
		return errors.New("config: MaxSourceBytes must not be negative")
	}
	return nil
}
