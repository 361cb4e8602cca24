package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/kartikbazzad/bunbase/bunpress/internal/logger"
)

// EnvPrefix is the prefix of every environment variable read by Load.
const EnvPrefix = "BUNPRESS_"

// Config is the whole application configuration.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Media    MediaConfig    `mapstructure:"media"`
	Search   SearchConfig   `mapstructure:"search"`
	Security SecurityConfig `mapstructure:"security"`
	NATS     NATSConfig     `mapstructure:"nats"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
	Log      logger.Config  `mapstructure:"log"`
}

type ServerConfig struct {
	Port        int    `mapstructure:"port"`
	BaseURL     string `mapstructure:"baseurl"`
	Environment string `mapstructure:"environment"`
	SiteName    string `mapstructure:"sitename"`
	// TrustedProxies lists the CIDRs allowed to set X-Forwarded-For.
	// Empty means the socket peer is always the client IP.
	TrustedProxies []string `mapstructure:"trustedproxies"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
	SSLMode  string `mapstructure:"sslmode"`
	MaxConns int32  `mapstructure:"maxconns"`
	// Migrate applies pending migrations on startup.
	Migrate bool `mapstructure:"migrate"`
}

// StorageConfig selects the media store. An empty Endpoint keeps files on
// local disk under LocalDir.
type StorageConfig struct {
	Endpoint        string `mapstructure:"endpoint"`
	AccessKeyID     string `mapstructure:"accesskeyid"`
	SecretAccessKey string `mapstructure:"secretaccesskey"`
	UseSSL          bool   `mapstructure:"usessl"`
	Bucket          string `mapstructure:"bucket"`
	LocalDir        string `mapstructure:"localdir"`
}

type MediaConfig struct {
	MaxUploadBytes int64 `mapstructure:"maxuploadbytes"`
	Quality        int   `mapstructure:"quality"`
	Workers        int   `mapstructure:"workers"` // concurrent resizes, 0 = serial
	// MaxPixels bounds width*height before an upload is decoded.
	MaxPixels int64 `mapstructure:"maxpixels"`
}

type SearchConfig struct {
	PerPage int `mapstructure:"perpage"`
}

type SecurityConfig struct {
	CookieSecure string        `mapstructure:"cookiesecure"`
	SessionTTL   time.Duration `mapstructure:"sessionttl"`
	RememberTTL  time.Duration `mapstructure:"rememberttl"`
	// CommentsPerMinute bounds public comment posts per client IP.
	CommentsPerMinute int `mapstructure:"commentsperminute"`
	LoginsPerMinute   int `mapstructure:"loginsperminute"`
}

// NATSConfig enables domain event publishing when URL is set.
type NATSConfig struct {
	URL           string `mapstructure:"url"`
	SubjectPrefix string `mapstructure:"subjectprefix"`
}

type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// Load loads configuration from .env file and environment variables
// prefix: Environment variable prefix (e.g. "BUNPRESS_")
// target: Pointer to the config struct to load into
func Load(prefix string, target interface{}) error {
	return load(prefix, target, nil)
}

// LoadConfig reads the application configuration with defaults applied.
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := load(EnvPrefix, &cfg, setDefaults); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func load(prefix string, target interface{}, defaults func(*viper.Viper)) error {
	// .env is optional; real environment variables win over it.
	if err := godotenv.Load(".env"); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to read .env: %w", err)
	}

	v := viper.New()
	if defaults != nil {
		defaults(v)
	}

	// BUNPRESS_DATABASE_HOST -> database.host
	prefixUpper := strings.ToUpper(prefix)
	for _, envStr := range os.Environ() {
		pair := strings.SplitN(envStr, "=", 2)
		if len(pair) != 2 {
			continue
		}
		key, value := pair[0], pair[1]

		if strings.HasPrefix(key, prefixUpper) {
			propKey := strings.TrimPrefix(key, prefixUpper)
			propKey = strings.ToLower(strings.ReplaceAll(propKey, "_", "."))
			propKey = strings.TrimPrefix(propKey, ".")

			v.Set(propKey, value)
		}
	}

	if err := v.Unmarshal(target); err != nil {
		return fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 3000)
	v.SetDefault("server.baseurl", "")
	v.SetDefault("server.environment", "development")
	v.SetDefault("server.sitename", "bunpress")
	v.SetDefault("server.trustedproxies", []string{})

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "bunpress")
	v.SetDefault("database.password", "")
	v.SetDefault("database.name", "bunpress")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.maxconns", 10)
	v.SetDefault("database.migrate", true)

	v.SetDefault("storage.endpoint", "")
	v.SetDefault("storage.accesskeyid", "")
	v.SetDefault("storage.secretaccesskey", "")
	v.SetDefault("storage.usessl", false)
	v.SetDefault("storage.bucket", "bunpress-media")
	v.SetDefault("storage.localdir", "./data/uploads")

	v.SetDefault("media.maxuploadbytes", 5*1024*1024)
	v.SetDefault("media.quality", 85)
	v.SetDefault("media.workers", 4)
	v.SetDefault("media.maxpixels", 40_000_000)

	v.SetDefault("search.perpage", 10)

	v.SetDefault("security.cookiesecure", "")
	v.SetDefault("security.sessionttl", 24*time.Hour)
	v.SetDefault("security.rememberttl", 30*24*time.Hour)
	v.SetDefault("security.commentsperminute", 5)
	v.SetDefault("security.loginsperminute", 10)

	v.SetDefault("nats.url", "")
	v.SetDefault("nats.subjectprefix", "bunpress")

	v.SetDefault("metrics.enabled", true)

	v.SetDefault("log.level", "INFO")
	v.SetDefault("log.format", "text")
	v.SetDefault("log.addsource", false)
}

// IsProduction reports whether the server runs in production mode.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Server.Environment, "production")
}

// DatabaseURL builds the postgres connection string.
func (d DatabaseConfig) DatabaseURL() string {
	return buildDSN(d)
}
