package config

import (
	"fmt"
	"log"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	AuthModeFirebase = "firebase"
	AuthModeHeader   = "header"

	// database/sql driver names registered by pgx/v5/stdlib and lib/pq.
	DBDriverPgx = "pgx"
	DBDriverPq  = "postgres"
)

type Config struct {
	Server   ServerConfig
	App      AppConfig
	Ollama   OllamaConfig
	KML      KMLConfig
	Auth     AuthConfig
	Firebase FirebaseConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Chat     ChatConfig
	CORS     CORSConfig
}

type ServerConfig struct {
	Port string
}

type AppConfig struct {
	Name        string
	Environment string
	LogLevel    string
	Version     string
	// URL is the public base URL used to build asset links, e.g. http://localhost:8080.
	URL string
}

type OllamaConfig struct {
	URL           string
	Model         string
	Timeout       time.Duration
	ProbeSchedule string
}

type KMLConfig struct {
	PublicDir string
}

type AuthConfig struct {
	Mode string
}

type FirebaseConfig struct {
	CredentialsPath string
}

type DatabaseConfig struct {
	Enabled  bool
	Driver   string
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	SSLMode  string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type ChatConfig struct {
	RateLimit   float64
	Burst       int
	HistorySize int
	HistoryTTL  time.Duration
}

type CORSConfig struct {
	AllowedOrigins []string
}

func Load() (*Config, error) {
	// Load .env file if it exists (ignore error in production)
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := FromEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// FromEnv builds a Config from the process environment without validating it.
func FromEnv() *Config {
	port := getEnv("PORT", "8080")

	return &Config{
		Server: ServerConfig{
			Port: port,
		},
		App: AppConfig{
			Name:        getEnv("APP_NAME", "kml-dashboard"),
			Environment: getEnv("APP_ENV", "development"),
			LogLevel:    getEnv("LOG_LEVEL", "info"),
			Version:     getEnv("APP_VERSION", "1.0.0"),
			URL:         strings.TrimRight(getEnv("APP_URL", "http://localhost:"+port), "/"),
		},
		Ollama: OllamaConfig{
			URL:           ollamaURL(),
			Model:         getEnv("OLLAMA_MODEL", "phi3:mini"),
			Timeout:       getEnvAsDuration("OLLAMA_TIMEOUT", 30*time.Second),
			ProbeSchedule: getEnv("OLLAMA_PROBE_SCHEDULE", "@every 1m"),
		},
		KML: KMLConfig{
			PublicDir: getEnv("PUBLIC_DIR", "public"),
		},
		Auth: AuthConfig{
			Mode: strings.ToLower(getEnv("AUTH_MODE", AuthModeFirebase)),
		},
		Firebase: FirebaseConfig{
			CredentialsPath: getEnv("FIREBASE_CREDENTIALS_PATH", ""),
		},
		Database: DatabaseConfig{
			Enabled:  os.Getenv("DB_HOST") != "",
			Driver:   strings.ToLower(getEnv("DB_DRIVER", DBDriverPgx)),
			Host:     getEnv("DB_HOST", ""),
			Port:     getEnvAsInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", ""),
			Name:     getEnv("DB_NAME", "dashboard"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", ""),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		Chat: ChatConfig{
			RateLimit:   getEnvAsFloat("CHAT_RATE_LIMIT", 2),
			Burst:       getEnvAsInt("CHAT_RATE_BURST", 5),
			HistorySize: getEnvAsInt("CHAT_HISTORY_SIZE", 50),
			HistoryTTL:  getEnvAsDuration("CHAT_HISTORY_TTL", 7*24*time.Hour),
		},
		CORS: CORSConfig{
			AllowedOrigins: getEnvAsList("CORS_ALLOWED_ORIGINS", []string{"http://localhost:5173"}),
		},
	}
}

func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("PORT is required")
	}

	if u, err := url.Parse(c.App.URL); err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("APP_URL must be an absolute URL, got %q", c.App.URL)
	}

	if c.Ollama.URL == "" {
		return fmt.Errorf("OLLAMA_URL is required")
	}

	switch c.Auth.Mode {
	case AuthModeFirebase:
		if c.Firebase.CredentialsPath == "" {
			return fmt.Errorf("FIREBASE_CREDENTIALS_PATH is required when AUTH_MODE=%s", AuthModeFirebase)
		}
	case AuthModeHeader:
	default:
		return fmt.Errorf("AUTH_MODE must be %q or %q, got %q", AuthModeFirebase, AuthModeHeader, c.Auth.Mode)
	}

	if c.Database.Enabled && c.Database.Driver != DBDriverPgx && c.Database.Driver != DBDriverPq {
		return fmt.Errorf("DB_DRIVER must be %q or %q, got %q", DBDriverPgx, DBDriverPq, c.Database.Driver)
	}

	if len(c.CORS.AllowedOrigins) == 0 {
		return fmt.Errorf("CORS_ALLOWED_ORIGINS must list at least one origin")
	}

	if c.Chat.RateLimit < 0 {
		return fmt.Errorf("CHAT_RATE_LIMIT must not be negative")
	}

	return nil
}

// GenerateURL is the full Ollama generate endpoint.
func (c OllamaConfig) GenerateURL() string {
	base := strings.TrimRight(c.URL, "/")
	if strings.HasSuffix(base, "/api/generate") {
		return base
	}
	return base + "/api/generate"
}

// BaseURL is the Ollama server root, without any /api/generate suffix.
func (c OllamaConfig) BaseURL() string {
	return strings.TrimSuffix(strings.TrimRight(c.URL, "/"), "/api/generate")
}

// ollamaURL prefers OLLAMA_URL and falls back to the older OLLAMA_API_URL.
func ollamaURL() string {
	if v := os.Getenv("OLLAMA_URL"); v != "" {
		return v
	}
	return getEnv("OLLAMA_API_URL", "http://localhost:11434")
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		log.Printf("Warning: Invalid integer for %s, using default: %d", key, defaultValue)
		return defaultValue
	}

	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		log.Printf("Warning: Invalid number for %s, using default: %g", key, defaultValue)
		return defaultValue
	}

	return value
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := time.ParseDuration(valueStr)
	if err != nil {
		log.Printf("Warning: Invalid duration for %s, using default: %s", key, defaultValue)
		return defaultValue
	}

	return value
}

func getEnvAsList(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	var out []string
	for _, part := range strings.Split(valueStr, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
