package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port          string
	Env           string
	LogLevel      string
	AllowedOrigin string

	// Upstream cart service
	UpstreamURL         string
	UpstreamSyncTimeout time.Duration // bound for add/fetch round trips

	// Snapshot persistence: memory | file | postgres | s3
	PersistenceBackend string
	SnapshotDir        string

	// Postgres backend
	DBUrl             string
	DBMaxConns        int32
	DBMinConns        int32
	DBMaxConnIdleTime time.Duration

	// S3-compatible backend (S3, R2, MinIO)
	S3Endpoint        string
	S3Region          string
	S3AccessKeyID     string
	S3AccessKeySecret string
	S3BucketName      string
	S3Timeout         time.Duration

	// Store registry
	StoreTTL             time.Duration
	StoreCleanupInterval time.Duration

	// Business rules
	MaxItemQuantity int
}

func LoadConfig() *Config {
	// 1. Check if a specific config file is requested via env var
	configFile := os.Getenv("CONFIG_FILE")
	if configFile != "" {
		if err := godotenv.Load(configFile); err != nil {
			log.Printf("Warning: Failed to load config file '%s': %v", configFile, err)
		} else {
			log.Printf("Loaded configuration from %s", configFile)
		}
	} else {
		// 2. Default fallback: Try loading .env (standard local dev)
		// In docker/prod envs .env might not exist and we rely on system env vars.
		if err := godotenv.Load(); err != nil {
			log.Println("No .env file found or error loading it, relying on system env vars")
		}
	}

	cfg := &Config{
		Port:          getEnv("PORT", "8080"),
		Env:           getEnv("ENV", "development"),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		AllowedOrigin: getEnv("ALLOWED_ORIGIN", "http://localhost:3000"),

		UpstreamURL:         getEnv("UPSTREAM_CART_URL", ""),
		UpstreamSyncTimeout: getDurationEnv("UPSTREAM_SYNC_TIMEOUT", 8*time.Second),

		PersistenceBackend: getEnv("PERSISTENCE_BACKEND", "file"),
		SnapshotDir:        getEnv("SNAPSHOT_DIR", "./data/carts"),

		DBUrl:             getEnv("DB_DSN", ""),
		DBMaxConns:        getInt32Env("DB_MAX_CONNS", 50),
		DBMinConns:        getInt32Env("DB_MIN_CONNS", 10),
		DBMaxConnIdleTime: getDurationEnv("DB_MAX_CONN_IDLE_TIME", time.Minute*15),

		S3Endpoint:        getEnv("S3_ENDPOINT", ""),
		S3Region:          getEnv("S3_REGION", "auto"),
		S3AccessKeyID:     getEnv("S3_ACCESS_KEY_ID", ""),
		S3AccessKeySecret: getEnv("S3_ACCESS_KEY_SECRET", ""),
		S3BucketName:      getEnv("S3_BUCKET_NAME", ""),
		S3Timeout:         getDurationEnv("S3_TIMEOUT", 10*time.Second),

		// Evicted stores are rebuilt from snapshots on the next request
		StoreTTL:             getDurationEnv("STORE_TTL", 30*time.Minute),
		StoreCleanupInterval: getDurationEnv("STORE_CLEANUP_INTERVAL", 60*time.Minute),

		MaxItemQuantity: getIntEnv("MAX_ITEM_QUANTITY", 999),
	}

	cfg.Validate()
	return cfg
}

func (c *Config) Validate() {
	if c.UpstreamURL == "" {
		log.Fatal("CRITICAL: UPSTREAM_CART_URL environment variable is required")
	}
	switch c.PersistenceBackend {
	case "memory":
		// nothing to check, carts will not survive a restart
	case "file":
		if c.SnapshotDir == "" {
			log.Fatal("CRITICAL: SNAPSHOT_DIR is required for the file backend")
		}
	case "postgres":
		if c.DBUrl == "" {
			log.Fatal("CRITICAL: DB_DSN is required for the postgres backend")
		}
	case "s3":
		if c.S3BucketName == "" || c.S3AccessKeyID == "" || c.S3AccessKeySecret == "" {
			log.Fatal("CRITICAL: S3_BUCKET_NAME, S3_ACCESS_KEY_ID and S3_ACCESS_KEY_SECRET are required for the s3 backend")
		}
	default:
		log.Fatalf("CRITICAL: unknown PERSISTENCE_BACKEND %q (want memory, file, postgres or s3)", c.PersistenceBackend)
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getDurationEnv(key string, fallback time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
		log.Printf("Invalid duration for %s, using fallback", key)
	}
	return fallback
}

func getIntEnv(key string, fallback int) int {
	if value, exists := os.LookupEnv(key); exists {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
		log.Printf("Invalid int for %s, using fallback", key)
	}
	return fallback
}

func getInt32Env(key string, fallback int32) int32 {
	if value, exists := os.LookupEnv(key); exists {
		if i, err := strconv.ParseInt(value, 10, 32); err == nil {
			return int32(i)
		}
		log.Printf("Invalid int32 for %s, using fallback", key)
	}
	return fallback
}
