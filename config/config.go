package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	JWT       JWTConfig
	Email     EmailConfig
	Admin     AdminConfig
	Log       LogConfig
	Dev       DevConfig
	CORS      CORSConfig
	RateLimit RateLimitConfig
	Redis     RedisConfig
	AI        AIConfig
}

type ServerConfig struct {
	Port string
	Host string
	Env  string
}

type DatabaseConfig struct {
	Driver     string
	Host       string
	Port       string
	User       string
	Password   string
	Name       string
	SSLMode    string
	SQLitePath string
}

type JWTConfig struct {
	Secret        string
	AccessExpiry  time.Duration
	RefreshExpiry time.Duration
}

type EmailConfig struct {
	SMTPHost     string
	SMTPPort     int
	SMTPUser     string
	SMTPPassword string
	From         string
	FromName     string
}

// Enabled reports whether outgoing mail has somewhere to go.
func (e EmailConfig) Enabled() bool {
	return e.SMTPHost != ""
}

type AdminConfig struct {
	Email    string
	Username string
	Password string
	Company  string
}

type LogConfig struct {
	Level  string
	Format string
}

type DevConfig struct {
	AutoMigrate bool
	SeedData    bool
}

type CORSConfig struct {
	Origins     []string
	Credentials bool
}

type RateLimitConfig struct {
	Requests int
	Window   int
}

type RedisConfig struct {
	Enabled  bool
	Addr     string
	Password string
	DB       int
}

// AIConfig holds the platform-level LLM settings used when a tenant has not
// brought its own key.
type AIConfig struct {
	PlatformProvider string
	PlatformAPIKey   string
	PlatformModel    string
	OpenAIBaseURL    string
	LlamaBaseURL     string
	RequestTimeout   time.Duration
	MonthlyQuotaUSD  string
	PricingFile      string
	DebugMonitoring  bool
	ScreeningWorkers int
}

var Cfg *Config

// Load reads the configuration from the environment and stores it in Cfg
func Load() error {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := &Config{
		Server: ServerConfig{
			Port: getEnv("PORT", "8080"),
			Host: getEnv("HOST", "localhost"),
			Env:  getEnv("ENV", "development"),
		},
		Database: DatabaseConfig{
			Driver:     getEnv("DB_DRIVER", "sqlite"),
			Host:       getEnv("DB_HOST", "localhost"),
			Port:       getEnv("DB_PORT", "5432"),
			User:       getEnv("DB_USER", "postgres"),
			Password:   getEnv("DB_PASSWORD", "password"),
			Name:       getEnv("DB_NAME", "recruitment_platform"),
			SSLMode:    getEnv("DB_SSLMODE", "disable"),
			SQLitePath: getEnv("SQLITE_PATH", "./data/recruitment.db"),
		},
		JWT: JWTConfig{
			Secret:        getEnv("JWT_SECRET", "dev-secret"),
			AccessExpiry:  parseDuration(getEnv("JWT_ACCESS_EXPIRY", "15m")),
			RefreshExpiry: parseDuration(getEnv("JWT_REFRESH_EXPIRY", "168h")),
		},
		Email: EmailConfig{
			SMTPHost:     getEnv("SMTP_HOST", ""),
			SMTPPort:     parseInt(getEnv("SMTP_PORT", "1025")),
			SMTPUser:     getEnv("SMTP_USER", ""),
			SMTPPassword: getEnv("SMTP_PASSWORD", ""),
			From:         getEnv("EMAIL_FROM", "talent@recruitment-platform.dev"),
			FromName:     getEnv("EMAIL_FROM_NAME", "Recruitment Platform"),
		},
		Admin: AdminConfig{
			Email:    getEnv("ADMIN_EMAIL", "owner@recruitment-platform.dev"),
			Username: getEnv("ADMIN_USERNAME", "owner"),
			Password: getEnv("ADMIN_PASSWORD", "owner12345"),
			Company:  getEnv("ADMIN_COMPANY", "Demo Company"),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		Dev: DevConfig{
			AutoMigrate: parseBool(getEnv("AUTO_MIGRATE", "true")),
			SeedData:    parseBool(getEnv("SEED_DATA", "true")),
		},
		CORS: CORSConfig{
			Origins:     strings.Split(getEnv("CORS_ORIGINS", "http://localhost:3000,http://localhost:8080"), ","),
			Credentials: parseBool(getEnv("CORS_CREDENTIALS", "true")),
		},
		RateLimit: RateLimitConfig{
			Requests: parseInt(getEnv("RATE_LIMIT_REQUESTS", "100")),
			Window:   parseInt(getEnv("RATE_LIMIT_WINDOW", "60")),
		},
		Redis: RedisConfig{
			Enabled:  parseBool(getEnv("REDIS_ENABLED", "false")),
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       parseInt(getEnv("REDIS_DB", "0")),
		},
		AI: AIConfig{
			PlatformProvider: getEnv("AI_PLATFORM_PROVIDER", "openai"),
			PlatformAPIKey:   getEnv("AI_PLATFORM_API_KEY", ""),
			PlatformModel:    getEnv("AI_PLATFORM_MODEL", "gemini-1.5-flash"),
			OpenAIBaseURL:    getEnv("AI_OPENAI_BASE_URL", "https://api.openai.com/v1"),
			LlamaBaseURL:     getEnv("AI_LLAMA_BASE_URL", "http://localhost:11434/v1"),
			RequestTimeout:   parseDuration(getEnv("AI_REQUEST_TIMEOUT", "60s")),
			MonthlyQuotaUSD:  getEnv("AI_MONTHLY_QUOTA_USD", "20.00"),
			PricingFile:      getEnv("AI_PRICING_FILE", ""),
			DebugMonitoring:  parseBool(getEnv("AI_DEBUG_MONITORING", "false")),
			ScreeningWorkers: parseInt(getEnv("AI_SCREENING_WORKERS", "4")),
		},
	}

	Cfg = cfg
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func parseInt(s string) int {
	i, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return i
}

func parseBool(s string) bool {
	b, err := strconv.ParseBool(s)
	if err != nil {
		return false
	}
	return b
}

func parseDuration(s string) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		return time.Hour
	}
	return d
}

// GetDSN returns the connection string for the configured driver
func (c *Config) GetDSN() string {
	switch c.Database.Driver {
	case "postgres":
		return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
			c.Database.Host,
			c.Database.Port,
			c.Database.User,
			c.Database.Password,
			c.Database.Name,
			c.Database.SSLMode,
		)
	default:
		return c.Database.SQLitePath
	}
}

func (c *Config) IsProduction() bool {
	return c.Server.Env == "production"
}

func (c *Config) IsDevelopment() bool {
	return c.Server.Env == "development"
}
