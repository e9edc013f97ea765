package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port            int           `yaml:"port"`
		ReadTimeout     time.Duration `yaml:"readTimeout"`
		WriteTimeout    time.Duration `yaml:"writeTimeout"`
		IdleTimeout     time.Duration `yaml:"idleTimeout"`
		ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
		CORSOrigins     []string      `yaml:"corsOrigins"`

		// APIKeys maps a client name to its key; empty disables auth on /v1.
		APIKeys   map[string]string `yaml:"apiKeys"`
		RateLimit struct {
			RPS   float64 `yaml:"rps"`
			Burst int     `yaml:"burst"`
		} `yaml:"rateLimit"`
	} `yaml:"server"`

	LLM struct {
		Provider  string        `yaml:"provider"` // openai | eino
		BaseURL   string        `yaml:"baseURL"`
		APIKey    string        `yaml:"apiKey"`
		Model     string        `yaml:"model"`
		MaxTokens int           `yaml:"maxTokens"`
		Language  string        `yaml:"language"`
		Timeout   time.Duration `yaml:"timeout"`
		RPM       int           `yaml:"rpm"`
	} `yaml:"llm"`

	Quotes struct {
		Endpoint string        `yaml:"endpoint"`
		LinkBase string        `yaml:"linkBase"`
		Timeout  time.Duration `yaml:"timeout"`
		RPS      float64       `yaml:"rps"`
		Burst    int           `yaml:"burst"`
	} `yaml:"quotes"`

	Chart struct {
		Size   float64 `yaml:"size"`
		Radius float64 `yaml:"radius"`
	} `yaml:"chart"`

	Session struct {
		TTL time.Duration `yaml:"ttl"`
	} `yaml:"session"`

	Attachment struct {
		MaxBytes    int64 `yaml:"maxBytes"`
		PDFMaxChars int   `yaml:"pdfMaxChars"`
	} `yaml:"attachment"`

	Archive struct {
		Driver   string `yaml:"driver"` // "", mysql or postgres
		Database struct {
			DSN      string `yaml:"dsn"`
			Host     string `yaml:"host"`
			Port     int    `yaml:"port"`
			User     string `yaml:"user"`
			Password string `yaml:"password"`
			Name     string `yaml:"name"`
			SSLMode  string `yaml:"sslMode"`
			MaxOpen  int    `yaml:"maxOpen"`
			MaxIdle  int    `yaml:"maxIdle"`
		} `yaml:"database"`
	} `yaml:"archive"`

	Minio struct {
		Enabled    bool   `yaml:"enabled"`
		Endpoint   string `yaml:"endpoint"`
		AccessKey  string `yaml:"accessKey"`
		SecretKey  string `yaml:"secretKey"`
		BucketName string `yaml:"bucketName"`
		Region     string `yaml:"region"`
		UseSSL     bool   `yaml:"useSSL"`
		PublicBase string `yaml:"publicBase"`
	} `yaml:"minio"`

	Log struct {
		Level string `yaml:"level"`
		File  string `yaml:"file"`
	} `yaml:"log"`
}

// Default returns a config that runs with only an API key set.
func Default() *Config {
	var c Config
	c.Server.Port = 8080
	c.Server.ReadTimeout = 30 * time.Second
	c.Server.WriteTimeout = 5 * time.Minute
	c.Server.IdleTimeout = 60 * time.Second
	c.Server.ShutdownTimeout = 10 * time.Second
	c.Server.CORSOrigins = []string{"*"}
	c.Server.RateLimit.RPS = 5
	c.Server.RateLimit.Burst = 20

	c.LLM.Provider = "openai"
	c.LLM.Model = "gpt-4o"
	c.LLM.MaxTokens = 8192
	c.LLM.Language = "Traditional Chinese (zh-TW)"

	c.Quotes.Endpoint = "https://query1.finance.yahoo.com/v8/finance/chart/"
	c.Quotes.LinkBase = "https://tw.stock.yahoo.com/quote/"
	c.Quotes.Timeout = 8 * time.Second
	c.Quotes.RPS = 10
	c.Quotes.Burst = 10

	c.Chart.Size = 350
	c.Chart.Radius = 120

	c.Session.TTL = 2 * time.Hour

	c.Attachment.MaxBytes = 10 << 20
	c.Attachment.PDFMaxChars = 50000

	c.Archive.Database.SSLMode = "disable"
	c.Minio.Region = "us-east-1"
	c.Minio.BucketName = "alphatrend"

	c.Log.Level = "info"
	return &c
}

// Load reads path over the defaults; a missing file keeps the defaults. Environment overrides apply last.
func Load(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return nil, err
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	}
	if err := cfg.applyEnv(os.Getenv); err != nil {
		return nil, err
	}
	return cfg, cfg.Validate()
}

func (c *Config) applyEnv(getenv func(string) string) error {
	if v := getenv("LLM_API_KEY"); v != "" {
		c.LLM.APIKey = v
	} else if v := getenv("OPENAI_API_KEY"); v != "" && c.LLM.APIKey == "" {
		c.LLM.APIKey = v
	}
	if v := getenv("LLM_MODEL"); v != "" {
		c.LLM.Model = v
	}
	if v := getenv("LLM_BASE_URL"); v != "" {
		c.LLM.BaseURL = v
	}
	if v := getenv("LLM_PROVIDER"); v != "" {
		c.LLM.Provider = v
	}
	if v := getenv("LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := getenv("SERVER_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("SERVER_PORT: %w", err)
		}
		c.Server.Port = port
	}
	if v := getenv("ARCHIVE_DSN"); v != "" {
		c.Archive.Database.DSN = v
	}
	return nil
}

// Validate checks the values main depends on.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	switch strings.ToLower(c.LLM.Provider) {
	case "openai", "eino":
	default:
		return fmt.Errorf("llm.provider %q: want openai or eino", c.LLM.Provider)
	}
	switch strings.ToLower(c.Archive.Driver) {
	case "", "mysql", "postgres":
	default:
		return fmt.Errorf("archive.driver %q: want mysql or postgres", c.Archive.Driver)
	}
	if c.Chart.Size <= 0 || c.Chart.Radius <= 0 || c.Chart.Radius*2 > c.Chart.Size {
		return fmt.Errorf("chart size %.0f / radius %.0f invalid", c.Chart.Size, c.Chart.Radius)
	}
	return nil
}

// Helper untuk build DSN MySQL
func (c *Config) MySQLDSN() string {
	db := c.Archive.Database
	if db.DSN != "" {
		return db.DSN
	}
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true&charset=utf8mb4&loc=UTC",
		db.User,
		db.Password,
		db.Host,
		db.Port,
		db.Name,
	)
}

// PostgresDSN builds a lib/pq connection string.
func (c *Config) PostgresDSN() string {
	db := c.Archive.Database
	if db.DSN != "" {
		return db.DSN
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		db.Host, db.Port, db.User, db.Password, db.Name, db.SSLMode)
}
