package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Env         string `yaml:"app_env"`
	ListenAddr  string `yaml:"listen_addr"`
	StoreDriver string `yaml:"store_driver"`
	DatabaseURL string `yaml:"database_url"`
	H2C         bool   `yaml:"h2c"`

	DependencyDir string `yaml:"dependency_dir"`
	CodeDir       string `yaml:"code_dir"`
	DefaultImage  string `yaml:"default_image"`

	DependencyTimeout time.Duration `yaml:"dependency_timeout"`
	CodeTimeout       time.Duration `yaml:"code_timeout"`
	ImageTimeout      time.Duration `yaml:"image_timeout"`

	S3Endpoint    string `yaml:"s3_endpoint"`
	S3AccessKey   string `yaml:"s3_access_key"`
	S3SecretKey   string `yaml:"s3_secret_key"`
	S3UseSSL      bool   `yaml:"s3_use_ssl"`
	ReportsBucket string `yaml:"reports_bucket"`
}

const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
)

func defaults() Config {
	return Config{
		Env:               "development",
		ListenAddr:        ":8080",
		StoreDriver:       StoreMemory,
		DependencyDir:     ".",
		CodeDir:           ".",
		DefaultImage:      "alpine:latest",
		DependencyTimeout: 60 * time.Second,
		CodeTimeout:       120 * time.Second,
		ImageTimeout:      300 * time.Second,
		ReportsBucket:     "secaudit-reports",
	}
}

// Load builds the config from defaults, then the optional YAML file named by
// CONFIG_FILE, then the environment. Later layers win.
func Load() (Config, error) {
	cfg := defaults()
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := loadFile(path, &cfg); err != nil {
			return cfg, err
		}
	}

	cfg.Env = getenv("APP_ENV", cfg.Env)
	cfg.ListenAddr = getenv("LISTEN_ADDR", cfg.ListenAddr)
	cfg.StoreDriver = strings.ToLower(getenv("STORE_DRIVER", cfg.StoreDriver))
	cfg.DatabaseURL = getenv("DATABASE_URL", cfg.DatabaseURL)
	cfg.H2C = getenvBool("H2C", cfg.H2C)
	cfg.DependencyDir = getenv("DEPENDENCY_DIR", cfg.DependencyDir)
	cfg.CodeDir = getenv("CODE_DIR", cfg.CodeDir)
	cfg.DefaultImage = getenv("DEFAULT_IMAGE", cfg.DefaultImage)
	cfg.DependencyTimeout = getenvSeconds("DEPENDENCY_TIMEOUT", cfg.DependencyTimeout)
	cfg.CodeTimeout = getenvSeconds("CODE_TIMEOUT", cfg.CodeTimeout)
	cfg.ImageTimeout = getenvSeconds("IMAGE_TIMEOUT", cfg.ImageTimeout)
	cfg.S3Endpoint = getenv("S3_ENDPOINT", cfg.S3Endpoint)
	cfg.S3AccessKey = getenv("S3_ACCESS_KEY", cfg.S3AccessKey)
	cfg.S3SecretKey = getenv("S3_SECRET_KEY", cfg.S3SecretKey)
	cfg.S3UseSSL = getenvBool("S3_USE_SSL", cfg.S3UseSSL)
	cfg.ReportsBucket = getenv("REPORTS_BUCKET", cfg.ReportsBucket)

	switch cfg.StoreDriver {
	case StoreMemory:
	case StorePostgres:
		if cfg.DatabaseURL == "" {
			return cfg, fmt.Errorf("DATABASE_URL is required when STORE_DRIVER=postgres")
		}
	default:
		return cfg, fmt.Errorf("unknown STORE_DRIVER %q", cfg.StoreDriver)
	}
	return cfg, nil
}

// ArchiveEnabled reports whether reports should be copied to object storage.
func (c Config) ArchiveEnabled() bool { return c.S3Endpoint != "" }

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		var out int
		_, err := fmt.Sscanf(v, "%d", &out)
		if err == nil {
			return out
		}
	}
	return def
}

// getenvSeconds reads a whole number of seconds.
func getenvSeconds(key string, def time.Duration) time.Duration {
	if n := getenvInt(key, -1); n > 0 {
		return time.Duration(n) * time.Second
	}
	return def
}

func getenvBool(key string, def bool) bool {
	switch strings.ToLower(os.Getenv(key)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	}
	return def
}
