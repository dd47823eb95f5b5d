package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// Record sources a workspace can page from
const (
	SourceDatabase = "database"
	SourceMock     = "mock"
	SourceDrive    = "drive"
)

type Config struct {
	Port               string
	Env                string
	DBPath             string
	LogLevel           string
	JWTSecret          string
	JWTTTL             time.Duration
	CORSOrigins        string
	GoogleClientID     string
	GoogleClientSecret string
	GoogleRedirectURL  string
	RecordSource       string
	MockRecords        int
	MockDelay          time.Duration
	ScrollThrottle     time.Duration
	DefaultLimit       int
}

var AppConfig *Config

// devJWTSecret signs tokens outside production when JWT_SECRET is unset
const devJWTSecret = "formtable-dev-secret"

func Load() {
	_ = godotenv.Load()

	AppConfig = &Config{
		Port:               GetEnv("PORT", "3000"),
		Env:                GetEnv("ENV", "development"),
		DBPath:             GetEnv("DB_PATH", "./data/formtable.db"),
		LogLevel:           GetEnv("LOG_LEVEL", "info"),
		JWTSecret:          GetEnv("JWT_SECRET", ""),
		JWTTTL:             GetDuration("JWT_TTL", 24*time.Hour),
		CORSOrigins:        GetEnv("CORS_ORIGINS", "http://localhost:3000"),
		GoogleClientID:     GetEnv("GOOGLE_CLIENT_ID", ""),
		GoogleClientSecret: GetEnv("GOOGLE_CLIENT_SECRET", ""),
		GoogleRedirectURL:  GetEnv("GOOGLE_REDIRECT_URL", "http://localhost:3000/auth/google/callback"),
		RecordSource:       strings.ToLower(GetEnv("RECORD_SOURCE", SourceDatabase)),
		MockRecords:        GetInt("MOCK_RECORDS", 95),
		MockDelay:          GetDuration("MOCK_DELAY", 500*time.Millisecond),
		ScrollThrottle:     GetDuration("SCROLL_THROTTLE", 300*time.Millisecond),
		DefaultLimit:       GetInt("DEFAULT_LIMIT", 10),
	}

	if AppConfig.JWTSecret == "" {
		if AppConfig.IsProduction() {
			log.Fatal("JWT_SECRET is required in production")
		}
		AppConfig.JWTSecret = devJWTSecret
	}

	switch AppConfig.RecordSource {
	case SourceDatabase, SourceMock:
	case SourceDrive:
		if !AppConfig.DriveEnabled() {
			log.Fatal("RECORD_SOURCE=drive requires GOOGLE_CLIENT_ID and GOOGLE_CLIENT_SECRET")
		}
	default:
		log.Fatalf("unknown RECORD_SOURCE %q", AppConfig.RecordSource)
	}

	if AppConfig.DefaultLimit < 1 || AppConfig.DefaultLimit > 100 {
		AppConfig.DefaultLimit = 10
	}
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// DriveEnabled reports whether Google OAuth credentials are configured
func (c *Config) DriveEnabled() bool {
	return c.GoogleClientID != "" && c.GoogleClientSecret != ""
}

// OAuthConfig builds the Google OAuth client used for Drive linking and token refresh
func OAuthConfig() *oauth2.Config {
	return &oauth2.Config{
		ClientID:     AppConfig.GoogleClientID,
		ClientSecret: AppConfig.GoogleClientSecret,
		RedirectURL:  AppConfig.GoogleRedirectURL,
		Scopes: []string{
			"https://www.googleapis.com/auth/drive.file",
		},
		Endpoint: google.Endpoint,
	}
}

func GetEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func GetInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		log.Printf("invalid %s=%q, using %d", key, value, defaultValue)
		return defaultValue
	}
	return n
}

func GetDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		log.Printf("invalid %s=%q, using %v", key, value, defaultValue)
		return defaultValue
	}
	return d
}
