package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds all configuration for the application.
type Config struct {
	Server   ServerConfig
	Tracking TrackingConfig
	Route    RouteConfig
	Redis    RedisConfig
	Mongo    MongoConfig
	Database DatabaseConfig
	NewRelic NewRelicConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// TrackingConfig holds the tracking engine tuning.
type TrackingConfig struct {
	GeofenceRadiusKm float64
	UpdateTimeout    time.Duration
	MaxTripAge       time.Duration
	MaxHistory       int
	CruisingSpeedKmh float64
	ETABufferPct     float64
	ETADebounceMin   int
	ReaperInterval   time.Duration
	CacheTTL         time.Duration
	PersistOpTimeout time.Duration
}

// RouteConfig holds the remote route provider configuration. An empty
// BaseURL disables the remote provider entirely.
type RouteConfig struct {
	BaseURL string
	Timeout time.Duration
}

// RedisConfig holds Redis configuration.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// MongoConfig holds the durable document store configuration.
type MongoConfig struct {
	URI        string
	Database   string
	Collection string
}

// DatabaseConfig holds PostgreSQL configuration for the booking store.
type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// NewRelicConfig holds New Relic configuration.
type NewRelicConfig struct {
	AppName    string
	LicenseKey string
	Enabled    bool
}

// Load loads configuration from environment variables.
func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         getEnv("SERVER_PORT", "8080"),
			ReadTimeout:  getDurationEnv("SERVER_READ_TIMEOUT", 10*time.Second),
			WriteTimeout: getDurationEnv("SERVER_WRITE_TIMEOUT", 10*time.Second),
		},
		Tracking: TrackingConfig{
			GeofenceRadiusKm: getFloatEnv("TRACKING_GEOFENCE_RADIUS_KM", 0.1),
			UpdateTimeout:    getDurationEnv("TRACKING_UPDATE_TIMEOUT", 60*time.Second),
			MaxTripAge:       getDurationEnv("TRACKING_MAX_TRIP_AGE", 24*time.Hour),
			MaxHistory:       getIntEnv("TRACKING_MAX_HISTORY", 100),
			CruisingSpeedKmh: getFloatEnv("TRACKING_CRUISING_SPEED_KMH", 25),
			ETABufferPct:     getFloatEnv("TRACKING_ETA_BUFFER_PCT", 20),
			ETADebounceMin:   getIntEnv("TRACKING_ETA_DEBOUNCE_MIN", 1),
			ReaperInterval:   getDurationEnv("TRACKING_REAPER_INTERVAL", 30*time.Second),
			CacheTTL:         getDurationEnv("TRACKING_CACHE_TTL", time.Hour),
			PersistOpTimeout: getDurationEnv("TRACKING_PERSIST_TIMEOUT", 2*time.Second),
		},
		Route: RouteConfig{
			BaseURL: getEnv("ROUTE_PROVIDER_URL", ""),
			Timeout: getDurationEnv("ROUTE_PROVIDER_TIMEOUT", 5*time.Second),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getIntEnv("REDIS_DB", 0),
		},
		Mongo: MongoConfig{
			URI:        getEnv("MONGO_URI", "mongodb://localhost:27017"),
			Database:   getEnv("MONGO_DATABASE", "delivery"),
			Collection: getEnv("MONGO_COLLECTION", "trip_snapshots"),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			DBName:   getEnv("DB_NAME", "delivery"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		NewRelic: NewRelicConfig{
			AppName:    getEnv("NEW_RELIC_APP_NAME", "trip-tracking-service"),
			LicenseKey: getEnv("NEW_RELIC_LICENSE_KEY", ""),
			Enabled:    getBoolEnv("NEW_RELIC_ENABLED", false),
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getFloatEnv(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
