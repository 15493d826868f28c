package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DevJWTSecret signs tokens outside production. Production refuses to start
// with it.
const DevJWTSecret = "dev-secret-change-in-prod"

type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Log        LogConfig        `yaml:"log"`
	Database   DatabaseConfig   `yaml:"database"`
	KurrentDB  KurrentDBConfig  `yaml:"kurrentdb"`
	Redis      RedisConfig      `yaml:"redis"`
	Auth       AuthConfig       `yaml:"auth"`
	Extraction ExtractionConfig `yaml:"extraction"`
	Speech     SpeechConfig     `yaml:"speech"`
	HIS        HISConfig        `yaml:"his"`
	RateLimit  RateLimitConfig  `yaml:"rateLimit"`
}

type ServerConfig struct {
	Port int    `yaml:"port"`
	Env  string `yaml:"env"`
	// CORSOrigins lists the browser origins allowed to call the API.
	CORSOrigins []string `yaml:"corsOrigins"`
}

type LogConfig struct {
	// Level is a zap level name: debug, info, warn, error.
	Level string `yaml:"level"`
}

type DatabaseConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
	SSLMode  string `yaml:"sslMode"`

	MaxConns       int           `yaml:"maxConns"`
	MinConns       int           `yaml:"minConns"`
	ConnectTimeout time.Duration `yaml:"connectTimeout"`
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Database, d.SSLMode,
	)
}

// KurrentDBConfig holds configuration for KurrentDB (EventStoreDB).
type KurrentDBConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Insecure bool   `yaml:"insecure"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// ConnectionString builds an esdb:// URL for the configured node.
func (k KurrentDBConfig) ConnectionString() string {
	auth := ""
	if k.Username != "" {
		auth = k.Username + ":" + k.Password + "@"
	}
	return fmt.Sprintf("esdb://%s%s:%d?tls=%t", auth, k.Host, k.Port, !k.Insecure)
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type AuthConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Issuer    string `yaml:"issuer"`
	JWTSecret string `yaml:"jwtSecret"`
}

// ExtractionConfig configures the OpenAI-compatible chat endpoint used to
// pull risk variables out of consultation transcripts.
type ExtractionConfig struct {
	BaseURL  string        `yaml:"baseURL"`
	APIKey   string        `yaml:"apiKey"`
	Model    string        `yaml:"model"`
	Timeout  time.Duration `yaml:"timeout"`
	CacheTTL time.Duration `yaml:"cacheTTL"`
}

// SpeechConfig configures the Deepgram temporary key broker.
type SpeechConfig struct {
	BaseURL string        `yaml:"baseURL"`
	APIKey  string        `yaml:"apiKey"`
	TTL     time.Duration `yaml:"ttl"`
}

// HIS source kinds.
const (
	HISSourceSQLServer = "sqlserver"
	HISSourceFHIR      = "fhir"
)

// HISConfig configures the hospital information system connection. Source
// selects between direct database access and a FHIR R4 endpoint.
type HISConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Source   string `yaml:"source"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`

	FHIRBaseURL string        `yaml:"fhirBaseURL"`
	FHIRToken   string        `yaml:"fhirToken"`
	FHIRTimeout time.Duration `yaml:"fhirTimeout"`
}

func (h HISConfig) DSN() string {
	return fmt.Sprintf(
		"sqlserver://%s:%s@%s:%d?database=%s",
		h.User, h.Password, h.Host, h.Port, h.Database,
	)
}

type RateLimitConfig struct {
	// RequestsPerMinute applies per client IP to the API as a whole.
	RequestsPerMinute int `yaml:"requestsPerMinute"`
	// ExtractionPerMinute applies per client IP to transcript extraction.
	ExtractionPerMinute int `yaml:"extractionPerMinute"`
}

// Defaults returns the configuration used when neither a file nor the
// environment overrides a value.
func Defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Port:        8080,
			Env:         "development",
			CORSOrigins: []string{"http://localhost:3000"},
		},
		Log: LogConfig{Level: "info"},
		Database: DatabaseConfig{
			Enabled:  true,
			Host:     "localhost",
			Port:     5432,
			User:     "qdiabetes",
			Password: "qdiabetes",
			Database: "qdiabetes",
			SSLMode:  "disable",

			MaxConns:       10,
			MinConns:       1,
			ConnectTimeout: 5 * time.Second,
		},
		KurrentDB: KurrentDBConfig{
			Host:     "localhost",
			Port:     2113,
			Insecure: true,
		},
		Redis: RedisConfig{Addr: "localhost:6379"},
		Auth: AuthConfig{
			Issuer:    "qdiabetes",
			JWTSecret: DevJWTSecret,
		},
		Extraction: ExtractionConfig{
			BaseURL:  "https://openrouter.ai/api/v1",
			Model:    "openai/gpt-4o-mini",
			Timeout:  30 * time.Second,
			CacheTTL: 24 * time.Hour,
		},
		Speech: SpeechConfig{
			BaseURL: "https://api.deepgram.com/v1",
			TTL:     30 * time.Second,
		},
		HIS: HISConfig{
			Source:      HISSourceSQLServer,
			FHIRTimeout: 10 * time.Second,
			Host:        "localhost",
			Port:        1433,
			User:        "sa",
			Database:    "his",
		},
		RateLimit: RateLimitConfig{
			RequestsPerMinute:   300,
			ExtractionPerMinute: 10,
		},
	}
}

// Load builds the configuration from defaults, then the YAML file named by
// CONFIG_FILE if set, then environment variables. Production always
// authenticates API calls.
func Load() (*Config, error) {
	cfg := Defaults()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	cfg.applyEnv()
	if cfg.IsProduction() {
		cfg.Auth.Enabled = true
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the server must not run with.
func (c *Config) Validate() error {
	if !c.IsProduction() {
		return nil
	}
	if !c.Auth.Enabled {
		return errors.New("auth cannot be disabled in production")
	}
	if c.Auth.JWTSecret == "" || c.Auth.JWTSecret == DevJWTSecret {
		return errors.New("JWT_SECRET must be set in production")
	}
	return nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.Server.Port = getEnvInt("SERVER_PORT", c.Server.Port)
	c.Server.Env = getEnv("ENV", c.Server.Env)
	c.Server.CORSOrigins = getEnvSlice("CORS_ORIGINS", c.Server.CORSOrigins)
	c.Log.Level = getEnv("LOG_LEVEL", c.Log.Level)

	c.Database.Enabled = getEnvBool("DB_ENABLED", c.Database.Enabled)
	c.Database.Host = getEnv("DB_HOST", c.Database.Host)
	c.Database.Port = getEnvInt("DB_PORT", c.Database.Port)
	c.Database.User = getEnv("DB_USER", c.Database.User)
	c.Database.Password = getEnv("DB_PASSWORD", c.Database.Password)
	c.Database.Database = getEnv("DB_NAME", c.Database.Database)
	c.Database.SSLMode = getEnv("DB_SSLMODE", c.Database.SSLMode)
	c.Database.MaxConns = getEnvInt("DB_MAX_CONNS", c.Database.MaxConns)
	c.Database.MinConns = getEnvInt("DB_MIN_CONNS", c.Database.MinConns)
	c.Database.ConnectTimeout = getEnvDuration("DB_CONNECT_TIMEOUT", c.Database.ConnectTimeout)

	c.KurrentDB.Enabled = getEnvBool("KURRENTDB_ENABLED", c.KurrentDB.Enabled)
	c.KurrentDB.Host = getEnv("KURRENTDB_HOST", c.KurrentDB.Host)
	c.KurrentDB.Port = getEnvInt("KURRENTDB_PORT", c.KurrentDB.Port)
	c.KurrentDB.Insecure = getEnvBool("KURRENTDB_INSECURE", c.KurrentDB.Insecure)
	c.KurrentDB.Username = getEnv("KURRENTDB_USERNAME", c.KurrentDB.Username)
	c.KurrentDB.Password = getEnv("KURRENTDB_PASSWORD", c.KurrentDB.Password)

	c.Redis.Addr = getEnv("REDIS_ADDR", c.Redis.Addr)
	c.Redis.Password = getEnv("REDIS_PASSWORD", c.Redis.Password)
	c.Redis.DB = getEnvInt("REDIS_DB", c.Redis.DB)

	c.Auth.Enabled = getEnvBool("AUTH_ENABLED", c.Auth.Enabled)
	c.Auth.Issuer = getEnv("AUTH_ISSUER", c.Auth.Issuer)
	c.Auth.JWTSecret = getEnv("JWT_SECRET", c.Auth.JWTSecret)

	c.Extraction.BaseURL = getEnv("EXTRACTION_BASE_URL", c.Extraction.BaseURL)
	c.Extraction.APIKey = getEnv("OPENROUTER_API_KEY", c.Extraction.APIKey)
	c.Extraction.Model = getEnv("EXTRACTION_MODEL", c.Extraction.Model)
	c.Extraction.Timeout = getEnvDuration("EXTRACTION_TIMEOUT", c.Extraction.Timeout)
	c.Extraction.CacheTTL = getEnvDuration("EXTRACTION_CACHE_TTL", c.Extraction.CacheTTL)

	c.Speech.BaseURL = getEnv("DEEPGRAM_BASE_URL", c.Speech.BaseURL)
	c.Speech.APIKey = getEnv("DEEPGRAM_API_KEY", c.Speech.APIKey)
	c.Speech.TTL = getEnvDuration("DEEPGRAM_KEY_TTL", c.Speech.TTL)

	c.HIS.Enabled = getEnvBool("HIS_ENABLED", c.HIS.Enabled)
	c.HIS.Source = getEnv("HIS_SOURCE", c.HIS.Source)
	c.HIS.FHIRBaseURL = getEnv("HIS_FHIR_BASE_URL", c.HIS.FHIRBaseURL)
	c.HIS.FHIRToken = getEnv("HIS_FHIR_TOKEN", c.HIS.FHIRToken)
	c.HIS.FHIRTimeout = getEnvDuration("HIS_FHIR_TIMEOUT", c.HIS.FHIRTimeout)
	c.HIS.Host = getEnv("HIS_HOST", c.HIS.Host)
	c.HIS.Port = getEnvInt("HIS_PORT", c.HIS.Port)
	c.HIS.User = getEnv("HIS_USER", c.HIS.User)
	c.HIS.Password = getEnv("HIS_PASSWORD", c.HIS.Password)
	c.HIS.Database = getEnv("HIS_DATABASE", c.HIS.Database)

	c.RateLimit.RequestsPerMinute = getEnvInt("RATE_LIMIT_RPM", c.RateLimit.RequestsPerMinute)
	c.RateLimit.ExtractionPerMinute = getEnvInt("RATE_LIMIT_EXTRACTION_RPM", c.RateLimit.ExtractionPerMinute)
}

// IsProduction reports whether the server runs with production settings.
func (c *Config) IsProduction() bool {
	return c.Server.Env == "production"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvSlice(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		var result []string
		for _, v := range strings.Split(value, ",") {
			if v = strings.TrimSpace(v); v != "" {
				result = append(result, v)
			}
		}
		if len(result) > 0 {
			return result
		}
	}
	return defaultValue
}
