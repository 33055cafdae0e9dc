package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// ClientConfig configures the fieldctl command line client
type ClientConfig struct {
	// BaseURL is the API root, e.g. https://crm.example.com/api
	BaseURL string
	// Timeout is the per-request timeout in seconds
	Timeout int
	Cache   ClientCacheConfig
	Logging LoggingConfig
}

// ClientCacheConfig selects where list views keep their last good payloads
type ClientCacheConfig struct {
	// Mode is "file", "redis" or "memory"
	Mode string
	// Dir holds one file per cache key in file mode
	Dir string
	// MaxAge is the longest a cached list is served without a synchronous fetch, in minutes
	MaxAge int
	// SessionFile stores the session cookie between invocations
	SessionFile string
	Redis       RedisConfig
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
}

// TimeoutDuration returns the request timeout as duration
func (c *ClientConfig) TimeoutDuration() time.Duration {
	return time.Duration(c.Timeout) * time.Second
}

// MaxAgeDuration returns the cache max age as duration
func (c *ClientCacheConfig) MaxAgeDuration() time.Duration {
	return time.Duration(c.MaxAge) * time.Minute
}

// LoadClient loads fieldctl configuration from fieldctl.yaml and FIELDCTL_* environment variables.
// An explicit path takes precedence over the search locations.
func LoadClient(path string) (*ClientConfig, error) {
	_ = godotenv.Load()

	v := viper.New()
	setClientDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("fieldctl")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if dir, err := os.UserConfigDir(); err == nil {
			v.AddConfigPath(filepath.Join(dir, "fieldctl"))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	v.SetEnvPrefix("FIELDCTL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg ClientConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return &cfg, nil
}

func setClientDefaults(v *viper.Viper) {
	cacheDir := filepath.Join(os.TempDir(), "fieldctl")
	if dir, err := os.UserCacheDir(); err == nil {
		cacheDir = filepath.Join(dir, "fieldctl")
	}

	v.SetDefault("baseURL", "http://localhost:8080/api")
	v.SetDefault("timeout", 30)

	v.SetDefault("cache.mode", "file")
	v.SetDefault("cache.dir", cacheDir)
	v.SetDefault("cache.maxAge", 24*60)
	v.SetDefault("cache.sessionFile", filepath.Join(cacheDir, "session"))
	v.SetDefault("cache.redis.addr", "localhost:6379")
	v.SetDefault("cache.redis.db", 0)
	v.SetDefault("cache.redis.prefix", "fieldctl:")

	v.SetDefault("logging.level", "warn")
	v.SetDefault("logging.format", "console")
}
