package config

import (
	"log"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config stores the application configuration.
type Config struct {
	ServerAddr      string
	ShutdownTimeout time.Duration
	WebAppDir       string // Path to the upload page UI files
	MaxUploadMB     int64

	// Audio decoding
	FFmpegPath      string
	Decoder         string  // "auto", "ffmpeg" or "wav"
	MaxAudioSeconds float64 // 0 disables the cap

	// Classifier artifact
	ModelSource string // "file" or "minio"
	ModelPath   string // Local artifact path, also the MinIO object key when ModelSource is "minio"
	ModelWatch  bool   // Reload the artifact file when it changes on disk

	Workers int

	// Log configuration
	LogLevel      string
	LogFile       string
	LogMaxSizeMB  int
	LogMaxBackups int
	LogMaxAgeDays int
	LogCompress   bool

	// Redis result cache
	CacheEnabled  bool
	CacheTTL      time.Duration
	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       int

	// Classification history
	HistoryEnabled bool
	DBHost         string
	DBPort         string
	DBUser         string
	DBPassword     string
	DBName         string

	// MinIO object storage
	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioBucket    string
	MinioRegion    string
	MinioUseSSL    bool
	ArchiveUploads bool
}

// getEnv gets an environment variable or returns a default value.
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

// getEnvInt gets an environment variable as int or returns a default value.
func getEnvInt(key string, fallback int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intVal, err := strconv.Atoi(strings.TrimSpace(value)); err == nil {
			return intVal
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if value, exists := os.LookupEnv(key); exists {
		if f, err := strconv.ParseFloat(strings.TrimSpace(value), 64); err == nil {
			return f
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if b, err := strconv.ParseBool(strings.TrimSpace(value)); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if d, err := time.ParseDuration(strings.TrimSpace(value)); err == nil {
			return d
		}
	}
	return fallback
}

func defaultWorkers() int {
	n := runtime.NumCPU()
	if n > 8 {
		n = 8
	}
	return n
}

// Load loads configuration from environment variables (via .env file) or defaults.
func Load() *Config {
	// godotenv.Load() will not override existing env vars.
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found or error loading .env, relying on existing environment variables and defaults.")
	}
	return FromEnv()
}

// FromEnv builds a Config from the current process environment only.
func FromEnv() *Config {
	workers := getEnvInt("WORKERS", 0)
	if workers <= 0 {
		workers = defaultWorkers()
	}

	return &Config{
		ServerAddr:      getEnv("SERVER_ADDR", ":8080"),
		ShutdownTimeout: getEnvDuration("SHUTDOWN_TIMEOUT", 5*time.Second),
		WebAppDir:       getEnv("WEB_APP_DIR", filepath.Join("web", "ui")),
		MaxUploadMB:     int64(getEnvInt("MAX_UPLOAD_MB", 32)),

		FFmpegPath:      getEnv("FFMPEG_PATH", "ffmpeg"),
		Decoder:         strings.ToLower(getEnv("AUDIO_DECODER", "auto")),
		MaxAudioSeconds: getEnvFloat("AUDIO_MAX_SECONDS", 0),

		ModelSource: strings.ToLower(getEnv("MODEL_SOURCE", "file")),
		ModelPath:   getEnv("MODEL_PATH", filepath.Join("data", "models", "genre_forest.yaml")),
		ModelWatch:  getEnvBool("MODEL_WATCH", false),

		Workers: workers,

		LogLevel:      strings.ToLower(getEnv("LOG_LEVEL", "info")),
		LogFile:       getEnv("LOG_FILE", filepath.Join("logs", "genrefm.log")),
		LogMaxSizeMB:  getEnvInt("LOG_MAX_SIZE_MB", 100),
		LogMaxBackups: getEnvInt("LOG_MAX_BACKUPS", 5),
		LogMaxAgeDays: getEnvInt("LOG_MAX_AGE_DAYS", 30),
		LogCompress:   getEnvBool("LOG_COMPRESS", true),

		CacheEnabled:  getEnvBool("CACHE_ENABLED", false),
		CacheTTL:      getEnvDuration("CACHE_TTL", 24*time.Hour),
		RedisHost:     getEnv("REDIS_HOST", "127.0.0.1"),
		RedisPort:     getEnv("REDIS_PORT", "6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		HistoryEnabled: getEnvBool("HISTORY_ENABLED", false),
		DBHost:         getEnv("DB_HOST", "127.0.0.1"),
		DBPort:         getEnv("DB_PORT", "3306"),
		DBUser:         getEnv("DB_USER", "root"),
		DBPassword:     os.Getenv("DB_PASSWORD"), // no hardcoded default for the password
		DBName:         getEnv("DB_NAME", "genrefm"),

		MinioEndpoint:  getEnv("MINIO_ENDPOINT", "127.0.0.1:9000"),
		MinioAccessKey: getEnv("MINIO_ACCESS_KEY", ""),
		MinioSecretKey: getEnv("MINIO_SECRET_KEY", ""),
		MinioBucket:    getEnv("MINIO_BUCKET", "genrefm"),
		MinioRegion:    getEnv("MINIO_REGION", "us-east-1"),
		MinioUseSSL:    getEnvBool("MINIO_USE_SSL", false),
		ArchiveUploads: getEnvBool("ARCHIVE_UPLOADS", false),
	}
}

// MinioEnabled reports whether any component needs an object storage client.
func (c *Config) MinioEnabled() bool {
	return c.ModelSource == "minio" || c.ArchiveUploads
}

// MaxUploadBytes returns the request body limit for uploads.
func (c *Config) MaxUploadBytes() int64 {
	if c.MaxUploadMB <= 0 {
		return 32 << 20
	}
	return c.MaxUploadMB << 20
}
