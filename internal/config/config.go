package config

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/sirupsen/logrus"
)

const (
	DriverMySQL = "mysql"
	DriverMongo = "mongo"
)

const (
	defaultTimeout      = 30 * time.Second
	defaultAddress      = ":9090"
	defaultCacheDB      = 0
	defaultBloomBitSize = 10000000
	defaultReconcile    = time.Second
	defaultCacheTTL     = 5 * time.Minute
	defaultBloomKey     = "bloom:comment:ids"
	defaultBloomHashes  = 3
	defaultBloomRewarm  = time.Minute
)

// Config holds all configuration for the application
type Config struct {
	ServerAddress  string
	ContextTimeout time.Duration
	LogLevel       string

	StoreDriver string

	DatabaseHost string
	DatabasePort string
	DatabaseUser string
	DatabasePass string
	DatabaseName string

	MongoURI      string
	MongoDatabase string

	CacheHost string
	CachePort string
	CachePass string
	CacheDB   int
	CacheTTL  time.Duration

	BloomFilterSize   uint64
	BloomKey          string
	BloomHashes       int
	BloomRewarm       time.Duration
	JWTSecret         string
	AMQPURL           string
	ReconcileInterval time.Duration
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		ServerAddress:     getEnvOrDefault("SERVER_ADDRESS", defaultAddress),
		ContextTimeout:    time.Duration(getIntOrDefault("CONTEXT_TIMEOUT", int(defaultTimeout/time.Second))) * time.Second,
		LogLevel:          getEnvOrDefault("LOG_LEVEL", "info"),
		StoreDriver:       getEnvOrDefault("STORE_DRIVER", DriverMySQL),
		DatabaseHost:      getEnvOrDefault("DATABASE_HOST", "localhost"),
		DatabasePort:      getEnvOrDefault("DATABASE_PORT", "3306"),
		DatabaseUser:      os.Getenv("DATABASE_USER"),
		DatabasePass:      os.Getenv("DATABASE_PASS"),
		DatabaseName:      getEnvOrDefault("DATABASE_NAME", "civicview"),
		MongoURI:          getEnvOrDefault("MONGO_URI", "mongodb://localhost:27017"),
		MongoDatabase:     getEnvOrDefault("MONGO_DATABASE", "civicview"),
		CacheHost:         getEnvOrDefault("CACHE_HOST", "localhost"),
		CachePort:         getEnvOrDefault("CACHE_PORT", "6379"),
		CachePass:         os.Getenv("CACHE_PASS"),
		CacheDB:           getIntOrDefault("CACHE_DB", defaultCacheDB),
		CacheTTL:          getDurationOrDefault("CACHE_TTL", defaultCacheTTL),
		BloomKey:          getEnvOrDefault("BLOOM_KEY", defaultBloomKey),
		BloomHashes:       getIntOrDefault("BLOOM_HASHES", defaultBloomHashes),
		BloomRewarm:       getDurationOrDefault("BLOOM_REWARM_INTERVAL", defaultBloomRewarm),
		AMQPURL:           os.Getenv("AMQP_URL"),
		ReconcileInterval: getDurationOrDefault("RECONCILE_INTERVAL", defaultReconcile),
	}

	size, err := strconv.ParseUint(getEnvOrDefault("BLOOM_FILTER_SIZE", ""), 10, 64)
	if err != nil || size == 0 {
		size = defaultBloomBitSize
	}
	cfg.BloomFilterSize = size

	if cfg.JWTSecret = os.Getenv("JWT_SECRET"); cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET environment variable is required")
	}

	switch cfg.StoreDriver {
	case DriverMySQL, DriverMongo:
	default:
		return nil, fmt.Errorf("unsupported STORE_DRIVER %q", cfg.StoreDriver)
	}

	return cfg, nil
}

// MySQLDSN builds the go-sql-driver DSN. Multi statements are enabled for migrations.
func (c *Config) MySQLDSN() string {
	dsn := mysql.NewConfig()
	dsn.User = c.DatabaseUser
	dsn.Passwd = c.DatabasePass
	dsn.Net = "tcp"
	dsn.Addr = net.JoinHostPort(c.DatabaseHost, c.DatabasePort)
	dsn.DBName = c.DatabaseName
	dsn.ParseTime = true
	dsn.Loc = time.UTC
	dsn.MultiStatements = true
	return dsn.FormatDSN()
}

func (c *Config) CacheAddr() string {
	return net.JoinHostPort(c.CacheHost, c.CachePort)
}

// getEnvOrDefault returns environment variable value or default if not set
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntOrDefault(key string, defaultValue int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		logrus.Warnf("failed to parse %s, using default %d", key, defaultValue)
		return defaultValue
	}
	return v
}

func getDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	v, err := time.ParseDuration(raw)
	if err != nil || v <= 0 {
		logrus.Warnf("failed to parse %s, using default %s", key, defaultValue)
		return defaultValue
	}
	return v
}
