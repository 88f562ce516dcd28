package config

import (
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
)

// Storage backends.
const (
	StorageDisk  = "disk"
	StorageMinIO = "minio"
)

// Catalog backends.
const (
	CatalogFile     = "file"
	CatalogPostgres = "postgres"
)

const defaultMaxFileSize = "100MiB"

// Config aggregates runtime configuration for the filedrop API.
type Config struct {
	Server   ServerConfig
	Storage  StorageConfig
	Catalog  CatalogConfig
	Postgres PostgresConfig
	MinIO    MinIOConfig
	Metrics  MetricsConfig
}

// ServerConfig parameterizes the HTTP server.
type ServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// Address returns the listen address in host:port form.
func (s ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// StorageConfig selects where payloads live.
type StorageConfig struct {
	Backend     string
	AssetsDir   string
	MaxFileSize int64
	FileMode    fs.FileMode
	DirMode     fs.FileMode
}

// CatalogConfig selects where records live.
type CatalogConfig struct {
	Backend string
	MetaDir string
}

// PostgresConfig contains PostgreSQL connection details.
type PostgresConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
}

// DSN returns the PostgreSQL DSN string.
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		p.User, p.Password, p.Host, p.Port, p.Database, p.SSLMode)
}

// MinIOConfig carries MinIO connection and bucket information.
type MinIOConfig struct {
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	Bucket          string
	Prefix          string
	UseSSL          bool
	Region          string
}

// MetricsConfig groups observability settings.
type MetricsConfig struct {
	PrometheusPath string
}

// Load reads configuration values from environment variables, applying defaults.
func Load() (Config, error) {
	maxSize, err := getBytes("FILEDROP_MAX_FILE_SIZE", defaultMaxFileSize)
	if err != nil {
		return Config{}, err
	}
	fileMode, err := getFileMode("FILEDROP_FILE_MODE", 0644)
	if err != nil {
		return Config{}, err
	}
	dirMode, err := getFileMode("FILEDROP_DIR_MODE", 0755)
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		Server: ServerConfig{
			Host:         getString("FILEDROP_API_HOST", "0.0.0.0"),
			Port:         getInt("FILEDROP_API_PORT", 8080),
			ReadTimeout:  getDuration("FILEDROP_API_READ_TIMEOUT", 5*time.Minute),
			WriteTimeout: getDuration("FILEDROP_API_WRITE_TIMEOUT", 5*time.Minute),
			IdleTimeout:  getDuration("FILEDROP_API_IDLE_TIMEOUT", 60*time.Second),
		},
		Storage: StorageConfig{
			Backend:     strings.ToLower(getString("FILEDROP_STORAGE_BACKEND", StorageDisk)),
			AssetsDir:   getString("FILEDROP_ASSETS_DIR", "assets"),
			MaxFileSize: maxSize,
			FileMode:    fileMode,
			DirMode:     dirMode,
		},
		Catalog: CatalogConfig{
			Backend: strings.ToLower(getString("FILEDROP_CATALOG_BACKEND", CatalogFile)),
			MetaDir: getString("FILEDROP_META_DIR", "meta"),
		},
		Postgres: PostgresConfig{
			Host:     getString("POSTGRES_HOST", "localhost"),
			Port:     getInt("POSTGRES_PORT", 5432),
			User:     getString("POSTGRES_USER", "filedrop"),
			Password: getString("POSTGRES_PASSWORD", "change-me"),
			Database: getString("POSTGRES_DB", "filedrop"),
			SSLMode:  strings.ToLower(getString("POSTGRES_SSL_MODE", "disable")),
		},
		MinIO: MinIOConfig{
			Endpoint:        getString("MINIO_ENDPOINT", "localhost:9000"),
			AccessKeyID:     getString("MINIO_ROOT_USER", "filedrop"),
			SecretAccessKey: getString("MINIO_ROOT_PASSWORD", "change-me-strong-password"),
			Bucket:          getString("MINIO_BUCKET", "filedrop"),
			Prefix:          getString("MINIO_PREFIX", ""),
			UseSSL:          getBool("MINIO_USE_SSL", false),
			Region:          getString("MINIO_REGION", ""),
		},
		Metrics: MetricsConfig{
			PrometheusPath: getString("FILEDROP_METRICS_PATH", "/metrics"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects configurations the service cannot start with.
func (c Config) Validate() error {
	switch c.Storage.Backend {
	case StorageDisk, StorageMinIO:
	default:
		return fmt.Errorf("unknown storage backend %q", c.Storage.Backend)
	}
	switch c.Catalog.Backend {
	case CatalogFile, CatalogPostgres:
	default:
		return fmt.Errorf("unknown catalog backend %q", c.Catalog.Backend)
	}
	if c.Storage.MaxFileSize <= 0 {
		return fmt.Errorf("max file size must be positive")
	}
	if c.Storage.Backend == StorageDisk && c.Storage.AssetsDir == "" {
		return fmt.Errorf("assets dir is required for the disk backend")
	}
	if c.Catalog.Backend == CatalogFile && c.Catalog.MetaDir == "" {
		return fmt.Errorf("meta dir is required for the file catalog")
	}
	return nil
}

// UsesPostgres reports whether a database connection is needed.
func (c Config) UsesPostgres() bool {
	return c.Catalog.Backend == CatalogPostgres
}

// UsesMinIO reports whether an object storage client is needed.
func (c Config) UsesMinIO() bool {
	return c.Storage.Backend == StorageMinIO
}

func getString(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if val, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.Atoi(val); err == nil {
			return parsed
		}
	}
	return fallback
}

func getBool(key string, fallback bool) bool {
	if val, ok := os.LookupEnv(key); ok {
		val = strings.ToLower(strings.TrimSpace(val))
		switch val {
		case "1", "true", "t", "yes", "y":
			return true
		case "0", "false", "f", "no", "n":
			return false
		}
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	if val, ok := os.LookupEnv(key); ok {
		if parsed, err := time.ParseDuration(val); err == nil {
			return parsed
		}
	}
	return fallback
}

// getBytes parses sizes like "100MiB", "2GB" or "1048576".
func getBytes(key, fallback string) (int64, error) {
	raw := getString(key, fallback)
	n, err := humanize.ParseBytes(raw)
	if err != nil {
		return 0, fmt.Errorf("parse %s=%q: %w", key, raw, err)
	}
	if n > uint64(1<<62) {
		return 0, fmt.Errorf("%s=%q is too large", key, raw)
	}
	return int64(n), nil
}

// getFileMode parses octal permission bits like "0640".
func getFileMode(key string, fallback fs.FileMode) (fs.FileMode, error) {
	val, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(val) == "" {
		return fallback, nil
	}
	parsed, err := strconv.ParseUint(strings.TrimSpace(val), 8, 32)
	if err != nil || parsed > 0o777 {
		return 0, fmt.Errorf("parse %s=%q: want octal permission bits", key, val)
	}
	return fs.FileMode(parsed), nil
}
