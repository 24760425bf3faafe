package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/bryanwahyu/callcenter-analytics/internal/domain/analysis"
)

const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
)

type Config struct {
	// Model call parameters, top level as in the original config.yaml.
	ModelName         string `yaml:"model_name"`
	SystemInstruction string `yaml:"system_instruction"`
	Prompt            string `yaml:"prompt"`

	Server struct {
		Port              int           `yaml:"port"`
		ReadHeaderTimeout time.Duration `yaml:"read_header_timeout"`
	} `yaml:"server"`

	Paths struct {
		AudioDir   string `yaml:"audio_dir"`
		ResultsDir string `yaml:"results_dir"`
	} `yaml:"paths"`

	Model struct {
		Provider           string `yaml:"provider"`
		BaseURL            string `yaml:"base_url"`
		TranscriptionModel string `yaml:"transcription_model"`
		APIKeyEnv          string `yaml:"api_key_env"`
	} `yaml:"model"`

	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`

	CORS struct {
		AllowedOrigins []string `yaml:"allowed_origins"`
	} `yaml:"cors"`

	// Database is optional; an empty driver disables the analysis index.
	Database struct {
		Driver   string `yaml:"driver"`
		Host     string `yaml:"host"`
		Port     int    `yaml:"port"`
		User     string `yaml:"user"`
		Password string `yaml:"password"`
		Name     string `yaml:"name"`
		DSN      string `yaml:"dsn"`
		Path     string `yaml:"path"`
	} `yaml:"database"`

	// Minio is optional; an empty endpoint disables result mirroring.
	Minio struct {
		Endpoint   string `yaml:"endpoint"`
		AccessKey  string `yaml:"accessKey"`
		SecretKey  string `yaml:"secretKey"`
		BucketName string `yaml:"bucketName"`
		Region     string `yaml:"region"`
		UseSSL     bool   `yaml:"useSSL"`
		Prefix     string `yaml:"prefix"`
	} `yaml:"minio"`

	Watcher struct {
		Enabled bool `yaml:"enabled"`
	} `yaml:"watcher"`
}

// Load reads config.yaml and fills defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Parse decodes a YAML document into a Config with defaults applied.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8000
	}
	if c.Server.ReadHeaderTimeout == 0 {
		c.Server.ReadHeaderTimeout = 10 * time.Second
	}
	if c.Paths.AudioDir == "" {
		c.Paths.AudioDir = "audio_files"
	}
	if c.Paths.ResultsDir == "" {
		c.Paths.ResultsDir = "analysis_results"
	}
	c.Model.Provider = strings.ToLower(strings.TrimSpace(c.Model.Provider))
	if c.Model.Provider == "" {
		c.Model.Provider = ProviderGemini
	}
	if c.Model.APIKeyEnv == "" {
		switch c.Model.Provider {
		case ProviderOpenAI:
			c.Model.APIKeyEnv = "OPENAI_API_KEY"
		default:
			c.Model.APIKeyEnv = "GEMINI_API_KEY"
		}
	}
	if strings.TrimSpace(c.SystemInstruction) == "" {
		c.SystemInstruction = analysis.DefaultSystemInstruction
	}
	if strings.TrimSpace(c.Prompt) == "" {
		c.Prompt = analysis.DefaultPrompt
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
	if len(c.CORS.AllowedOrigins) == 0 {
		c.CORS.AllowedOrigins = []string{"*"}
	}
	c.Database.Driver = strings.ToLower(strings.TrimSpace(c.Database.Driver))
	if c.Database.Driver == "sqlite" && c.Database.Path == "" {
		c.Database.Path = "analyses.db"
	}
}

// Validate checks the required model fields and the names the rest of startup switches on.
func (c *Config) Validate() error {
	switch c.Model.Provider {
	case ProviderGemini, ProviderOpenAI:
	default:
		return fmt.Errorf("unknown model provider %q", c.Model.Provider)
	}
	if strings.TrimSpace(c.ModelName) == "" {
		return fmt.Errorf("model_name is required")
	}
	switch c.Database.Driver {
	case "", "mysql", "postgres", "sqlite":
	default:
		return fmt.Errorf("unknown database driver %q", c.Database.Driver)
	}
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port out of range: %d", c.Server.Port)
	}
	if c.Model.BaseURL != "" {
		if _, err := url.ParseRequestURI(c.Model.BaseURL); err != nil {
			return fmt.Errorf("model.base_url: %w", err)
		}
	}
	if c.Minio.Endpoint != "" && c.Minio.BucketName == "" {
		return fmt.Errorf("minio.bucketName is required when minio.endpoint is set")
	}
	return nil
}

// APIKey reads the provider credential from the environment.
func (c *Config) APIKey() string {
	return strings.TrimSpace(os.Getenv(c.Model.APIKeyEnv))
}

// Helper untuk build DSN MySQL
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

// PostgresDSN builds a lib/pq connection string.
func (c *Config) PostgresDSN() string {
	if c.Database.DSN != "" {
		return c.Database.DSN
	}
	port := c.Database.Port
	if port == 0 {
		port = 5432
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		c.Database.Host, port, c.Database.User, c.Database.Password, c.Database.Name)
}
