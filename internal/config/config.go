// backend-go/internal/config/config.go
package config

import (
	"log"
	"os"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	App       AppConfig
	Cache     CacheConfig
	Tracker   TrackerConfig
	RateLimit RateLimitConfig
	Storage   StorageConfig
	Drive     DriveConfig
}

type ServerConfig struct {
	Port           string
	Mode           string
	ReadTimeout    int
	WriteTimeout   int
	AllowedOrigins []string
}

type DatabaseConfig struct {
	Host          string
	Port          string
	User          string
	Password      string
	DBName        string
	SSLMode       string
	MaxOpenConns  int
	MaxConcurrent int64
}

type AppConfig struct {
	ImportDir string
	LogLevel  string
}

type CacheConfig struct {
	Enabled           bool
	RedisURL          string
	RedisHost         string
	RedisPort         string
	RedisPassword     string
	RedisDB           int
	HistoryTTLSeconds int
}

// TrackerConfig tunes the live dashboard sessions.
type TrackerConfig struct {
	QueueSize    int
	FetchTimeout time.Duration
	ProductLimit int
}

type RateLimitConfig struct {
	Enabled           bool
	RequestsPerSecond float64
	Burst             int
}

// StorageConfig points at an S3-compatible bucket holding import CSVs.
type StorageConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Region    string
	Prefix    string
	UseSSL    bool
}

type DriveConfig struct {
	CredentialsFile string
	FolderID        string
}

var (
	once     sync.Once
	instance *Config
)

func Load() *Config {
	once.Do(func() {
		// Load .env file if it exists
		_ = godotenv.Load()

		// Set default values
		viper.SetDefault("SERVER_PORT", "8080")
		viper.SetDefault("SERVER_MODE", "debug")
		viper.SetDefault("SERVER_READ_TIMEOUT", 15)
		viper.SetDefault("SERVER_WRITE_TIMEOUT", 0)
		viper.SetDefault("DB_HOST", "localhost")
		viper.SetDefault("DB_PORT", "5432")
		viper.SetDefault("DB_USER", "postgres")
		viper.SetDefault("DB_PASSWORD", "postgres")
		viper.SetDefault("DB_NAME", "pricetrack")
		viper.SetDefault("DB_SSLMODE", "disable")
		viper.SetDefault("DB_MAX_OPEN_CONNS", 20)
		viper.SetDefault("DB_MAX_CONCURRENT_TX", 10)
		viper.SetDefault("SERVER_ALLOWED_ORIGINS", []string{"*"})
		viper.SetDefault("APP_IMPORT_DIR", "./data/import")
		viper.SetDefault("LOG_LEVEL", "info")
		viper.SetDefault("CACHE_ENABLED", false)
		viper.SetDefault("REDIS_URL", "")
		viper.SetDefault("REDIS_HOST", "127.0.0.1")
		viper.SetDefault("REDIS_PORT", "6379")
		viper.SetDefault("REDIS_PASSWORD", "")
		viper.SetDefault("REDIS_DB", 0)
		viper.SetDefault("CACHE_HISTORY_TTL_SECONDS", 300)
		viper.SetDefault("TRACKER_QUEUE_SIZE", 64)
		viper.SetDefault("TRACKER_FETCH_TIMEOUT", "15s")
		viper.SetDefault("TRACKER_PRODUCT_LIMIT", 500)
		viper.SetDefault("RATE_LIMIT_ENABLED", true)
		viper.SetDefault("RATE_LIMIT_RPS", 20)
		viper.SetDefault("RATE_LIMIT_BURST", 40)
		viper.SetDefault("S3_USE_SSL", true)
		viper.SetDefault("S3_PREFIX", "imports/")

		// Read from environment variables
		viper.AutomaticEnv()

		ensureDir(viper.GetString("APP_IMPORT_DIR"))

		instance = &Config{
			Server: ServerConfig{
				Port:           viper.GetString("SERVER_PORT"),
				Mode:           viper.GetString("SERVER_MODE"),
				ReadTimeout:    viper.GetInt("SERVER_READ_TIMEOUT"),
				WriteTimeout:   viper.GetInt("SERVER_WRITE_TIMEOUT"),
				AllowedOrigins: viper.GetStringSlice("SERVER_ALLOWED_ORIGINS"),
			},
			Database: DatabaseConfig{
				Host:          viper.GetString("DB_HOST"),
				Port:          viper.GetString("DB_PORT"),
				User:          viper.GetString("DB_USER"),
				Password:      viper.GetString("DB_PASSWORD"),
				DBName:        viper.GetString("DB_NAME"),
				SSLMode:       viper.GetString("DB_SSLMODE"),
				MaxOpenConns:  viper.GetInt("DB_MAX_OPEN_CONNS"),
				MaxConcurrent: viper.GetInt64("DB_MAX_CONCURRENT_TX"),
			},
			App: AppConfig{
				ImportDir: viper.GetString("APP_IMPORT_DIR"),
				LogLevel:  viper.GetString("LOG_LEVEL"),
			},
			Cache: CacheConfig{
				Enabled:           viper.GetBool("CACHE_ENABLED"),
				RedisURL:          viper.GetString("REDIS_URL"),
				RedisHost:         viper.GetString("REDIS_HOST"),
				RedisPort:         viper.GetString("REDIS_PORT"),
				RedisPassword:     viper.GetString("REDIS_PASSWORD"),
				RedisDB:           viper.GetInt("REDIS_DB"),
				HistoryTTLSeconds: viper.GetInt("CACHE_HISTORY_TTL_SECONDS"),
			},
			Tracker: TrackerConfig{
				QueueSize:    viper.GetInt("TRACKER_QUEUE_SIZE"),
				FetchTimeout: viper.GetDuration("TRACKER_FETCH_TIMEOUT"),
				ProductLimit: viper.GetInt("TRACKER_PRODUCT_LIMIT"),
			},
			RateLimit: RateLimitConfig{
				Enabled:           viper.GetBool("RATE_LIMIT_ENABLED"),
				RequestsPerSecond: viper.GetFloat64("RATE_LIMIT_RPS"),
				Burst:             viper.GetInt("RATE_LIMIT_BURST"),
			},
			Storage: StorageConfig{
				Endpoint:  viper.GetString("S3_ENDPOINT"),
				AccessKey: viper.GetString("S3_ACCESS_KEY"),
				SecretKey: viper.GetString("S3_SECRET_KEY"),
				Bucket:    viper.GetString("S3_BUCKET"),
				Region:    viper.GetString("S3_REGION"),
				Prefix:    viper.GetString("S3_PREFIX"),
				UseSSL:    viper.GetBool("S3_USE_SSL"),
			},
			Drive: DriveConfig{
				CredentialsFile: viper.GetString("GOOGLE_CREDENTIALS_FILE"),
				FolderID:        viper.GetString("GOOGLE_DRIVE_FOLDER_ID"),
			},
		}
	})

	return instance
}

func ensureDir(dir string) {
	if dir == "" {
		return
	}
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		if err := os.MkdirAll(dir, 0755); err != nil {
			log.Fatalf("Failed to create directory %s: %v", dir, err)
		}
	}
}
