// Package config loads matchday's layered configuration: built-in defaults,
// an optional .env file, an optional YAML config file, then environment
// variables, in increasing priority — the same layering the teacher applies
// via viper + godotenv.
package config

import (
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Version is set at build time via -ldflags.
var Version = "dev"

// Config is the root configuration object.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Indexer   IndexerConfig   `mapstructure:"indexer"`
	AutoSearch AutoSearchConfig `mapstructure:"autoSearch"`
	RssSync   RssSyncConfig   `mapstructure:"rssSync"`
	Cache     CacheConfig     `mapstructure:"cache"`
	Import    ImportConfig    `mapstructure:"import"`
	ApiKey    string          `mapstructure:"apiKey"`
}

// ServerConfig configures the thin HTTP surface.
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// Address returns host:port for net/http.
func (s ServerConfig) Address() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

// DatabaseConfig configures the SQLite connection.
type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

// LoggingConfig configures zerolog + lumberjack rotation.
type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	Path       string `mapstructure:"path"`
	MaxSizeMB  int    `mapstructure:"maxSizeMB"`
	MaxBackups int    `mapstructure:"maxBackups"`
	MaxAgeDays int    `mapstructure:"maxAgeDays"`
	Compress   bool   `mapstructure:"compress"`
}

// IndexerConfig configures global indexer behavior (§4.7).
type IndexerConfig struct {
	MaxConcurrentSearches int           `mapstructure:"maxConcurrentSearches"`
	RequestTimeout        time.Duration `mapstructure:"requestTimeout"`
	BackoffInitialDelay   time.Duration `mapstructure:"backoffInitialDelay"`
	BackoffMaxDelay       time.Duration `mapstructure:"backoffMaxDelay"`
}

// AutoSearchConfig configures the manual/automatic search orchestrator (§4.8).
type AutoSearchConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// RssSyncConfig configures the RSS-Sync Loop (§4.9).
type RssSyncConfig struct {
	Interval         time.Duration `mapstructure:"interval"`
	RecentGrabWindow time.Duration `mapstructure:"recentGrabWindow"`
}

// CacheConfig configures the Release Cache (§4.6).
type CacheConfig struct {
	TTL          time.Duration `mapstructure:"ttl"`
	SweepInterval time.Duration `mapstructure:"sweepInterval"`
}

// ImportConfig configures the File Importer (§4.12).
type ImportConfig struct {
	LinkMode            string `mapstructure:"linkMode"` // "hardlink", "copy", "move"
	MinimumFreeSpaceMB  int64  `mapstructure:"minimumFreeSpaceMB"`
	SkipFreeSpaceCheck  bool   `mapstructure:"skipFreeSpaceCheck"`
	DeleteEmptySourceDir bool  `mapstructure:"deleteEmptySourceDir"`
}

// Load reads configuration from defaults, an optional .env, an optional
// YAML file at configPath, then environment variables (MATCHDAY_ prefix),
// in that increasing order of priority.
func Load(configPath string) (*Config, error) {
	_ = godotenv.Load() // optional; missing .env is not an error

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("MATCHDAY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %q: %w", configPath, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "127.0.0.1")
	v.SetDefault("server.port", 7979)

	v.SetDefault("database.path", "./data/matchday.db")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("logging.path", "./logs")
	v.SetDefault("logging.maxSizeMB", 10)
	v.SetDefault("logging.maxBackups", 5)
	v.SetDefault("logging.maxAgeDays", 30)
	v.SetDefault("logging.compress", true)

	v.SetDefault("indexer.maxConcurrentSearches", 5)
	v.SetDefault("indexer.requestTimeout", 30*time.Second)
	v.SetDefault("indexer.backoffInitialDelay", 30*time.Second)
	v.SetDefault("indexer.backoffMaxDelay", 30*time.Minute)

	v.SetDefault("autoSearch.enabled", true)

	v.SetDefault("rssSync.interval", 15*time.Minute)
	v.SetDefault("rssSync.recentGrabWindow", 30*time.Minute)

	v.SetDefault("cache.ttl", 24*time.Hour)
	v.SetDefault("cache.sweepInterval", 1*time.Hour)

	v.SetDefault("import.linkMode", "hardlink")
	v.SetDefault("import.minimumFreeSpaceMB", 100)
	v.SetDefault("import.skipFreeSpaceCheck", false)
	v.SetDefault("import.deleteEmptySourceDir", true)

	v.SetDefault("apiKey", "")
}

// FindAvailablePort returns the first of the next `attempts` ports starting
// at preferred that accepts a TCP listener, mirroring the teacher's
// port-collision handling for a single-binary service.
func FindAvailablePort(preferred, attempts int) (int, error) {
	for port := preferred; port < preferred+attempts; port++ {
		ln, err := net.Listen("tcp", net.JoinHostPort("127.0.0.1", strconv.Itoa(port)))
		if err == nil {
			_ = ln.Close()
			return port, nil
		}
	}
	return 0, fmt.Errorf("no available port found in range [%d, %d)", preferred, preferred+attempts)
}
