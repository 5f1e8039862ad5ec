package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port            int           `yaml:"port"`
		CORSOrigins     []string      `yaml:"corsOrigins"`
		ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
	} `yaml:"server"`

	Database struct {
		Driver   string `yaml:"driver"` // mysql | postgres | sqlite
		DSN      string `yaml:"dsn"`
		Path     string `yaml:"path"` // sqlite only
		Host     string `yaml:"host"`
		Port     int    `yaml:"port"`
		User     string `yaml:"user"`
		Password string `yaml:"password"`
		Name     string `yaml:"name"`
	} `yaml:"database"`

	Model struct {
		Provider  string        `yaml:"provider"` // anthropic | openai
		Name      string        `yaml:"name"`
		APIKey    string        `yaml:"apiKey"`
		MaxTokens int           `yaml:"maxTokens"`
		Timeout   time.Duration `yaml:"timeout"`
	} `yaml:"model"`

	Worker struct {
		Workers   int `yaml:"workers"`
		QueueSize int `yaml:"queueSize"`
	} `yaml:"worker"`

	Auth struct {
		JWTSecret string        `yaml:"jwtSecret"`
		TokenTTL  time.Duration `yaml:"tokenTTL"`
	} `yaml:"auth"`

	Redis struct {
		URL     string        `yaml:"url"`
		LockTTL time.Duration `yaml:"lockTTL"`
	} `yaml:"redis"`

	Archive struct {
		Endpoint   string `yaml:"endpoint"`
		AccessKey  string `yaml:"accessKey"`
		SecretKey  string `yaml:"secretKey"`
		BucketName string `yaml:"bucketName"`
		Region     string `yaml:"region"`
		UseSSL     bool   `yaml:"useSSL"`
	} `yaml:"archive"`

	Ingest struct {
		SkipDuplicates bool `yaml:"skipDuplicates"`
	} `yaml:"ingest"`
}

// LoadDotEnv reads .env into the process environment outside production.
// A missing file is not an error.
func LoadDotEnv() {
	if os.Getenv("APP_ENV") == "production" {
		return
	}
	_ = godotenv.Load()
}

// Load reads the YAML file at path, applies environment overrides and defaults,
// then validates the result. An empty path yields a config built from defaults
// and environment only.
func Load(path string) (*Config, error) {
	var cfg Config
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}
	}
	cfg.applyEnv()
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyEnv() {
	setFromEnv(&c.Database.DSN, "DATABASE_DSN")
	setFromEnv(&c.Auth.JWTSecret, "JWT_SECRET")
	setFromEnv(&c.Redis.URL, "REDIS_URL")
	setFromEnv(&c.Archive.AccessKey, "MINIO_ACCESS_KEY")
	setFromEnv(&c.Archive.SecretKey, "MINIO_SECRET_KEY")
	switch strings.ToLower(c.Model.Provider) {
	case "openai":
		setFromEnv(&c.Model.APIKey, "OPENAI_API_KEY")
	default:
		setFromEnv(&c.Model.APIKey, "ANTHROPIC_API_KEY")
	}
}

func setFromEnv(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8000
	}
	if len(c.Server.CORSOrigins) == 0 {
		c.Server.CORSOrigins = []string{"http://localhost:5173", "http://localhost:8000"}
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = 30 * time.Second
	}
	if c.Database.Driver == "" {
		c.Database.Driver = "sqlite"
	}
	if c.Database.Driver == "sqlite" && c.Database.Path == "" {
		c.Database.Path = "data/copyguard.db"
	}
	if c.Model.Provider == "" {
		c.Model.Provider = "anthropic"
	}
	if c.Model.MaxTokens == 0 {
		c.Model.MaxTokens = 4096
	}
	if c.Model.Timeout == 0 {
		c.Model.Timeout = 120 * time.Second
	}
	if c.Worker.Workers == 0 {
		c.Worker.Workers = 4
	}
	if c.Worker.QueueSize == 0 {
		c.Worker.QueueSize = 256
	}
	if c.Auth.TokenTTL == 0 {
		c.Auth.TokenTTL = 24 * time.Hour
	}
	if c.Redis.LockTTL == 0 {
		// must outlive the model timeout or a slow analysis loses its lock
		c.Redis.LockTTL = c.Model.Timeout + time.Minute
	}
	if c.Archive.BucketName == "" {
		c.Archive.BucketName = "copyguard-reviews"
	}
}

// Validate rejects combinations the server cannot start with.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "mysql", "postgres", "sqlite":
	default:
		return fmt.Errorf("unsupported database driver: %q", c.Database.Driver)
	}
	switch c.Model.Provider {
	case "anthropic", "openai":
	default:
		return fmt.Errorf("unsupported model provider: %q", c.Model.Provider)
	}
	if c.Model.Timeout < 0 {
		return fmt.Errorf("model timeout must be positive, got %s", c.Model.Timeout)
	}
	if c.Worker.Workers < 0 || c.Worker.QueueSize < 0 {
		return fmt.Errorf("worker settings must be positive")
	}
	return nil
}

// MySQLDSN builds the go-sql-driver DSN unless one was given explicitly.
func (c *Config) MySQLDSN() string {
	if c.Database.DSN != "" {
		return c.Database.DSN
	}
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true&charset=utf8mb4&loc=UTC",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Name,
	)
}

// PostgresDSN builds a lib/pq connection string unless one was given explicitly.
func (c *Config) PostgresDSN() string {
	if c.Database.DSN != "" {
		return c.Database.DSN
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		c.Database.Host,
		c.Database.Port,
		c.Database.User,
		c.Database.Password,
		c.Database.Name,
	)
}
