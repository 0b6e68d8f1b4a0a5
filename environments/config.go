package environments

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Waapi    WaapiConfig
	Dispatch DispatchConfig
	Monitor  MonitorConfig
	Auth     AuthConfig
	Log      LogConfig
}

type ServerConfig struct {
	Port string
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

// WaapiConfig points the gateway client at the vendor API.
// RootURL is only used for the service-availability probe.
type WaapiConfig struct {
	BaseURL string
	RootURL string
	Timeout time.Duration
}

type DispatchConfig struct {
	// SendInterval is the pause between two consecutive sends of one run.
	SendInterval time.Duration
	// CheckpointEvery is the number of contacts between progress writes.
	CheckpointEvery int
	// MigrationDelay is the pause between senders in the instance id migration.
	MigrationDelay time.Duration
}

type MonitorConfig struct {
	Interval        time.Duration
	StuckAfter      time.Duration
	AlertWebhookURL string
	AlertThreshold  int
}

type AuthConfig struct {
	APIKey string
}

type LogConfig struct {
	Level  string
	Format string
}

func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Port: GetEnv("SERVER_PORT", "8080"),
		},
		Database: DatabaseConfig{
			Host:     GetEnv("DB_HOST", "localhost"),
			Port:     GetEnv("DB_PORT", "3306"),
			User:     GetEnv("DB_USER", "campaigns"),
			Password: GetEnv("DB_PASSWORD", "campaigns123"),
			DBName:   GetEnv("DB_NAME", "waapi_campaigns"),
		},
		Redis: RedisConfig{
			Host:     GetEnv("REDIS_HOST", "localhost"),
			Port:     GetEnv("REDIS_PORT", "6379"),
			Password: GetEnv("REDIS_PASSWORD", ""),
			DB:       GetEnvAsInt("REDIS_DB", 0),
		},
		Waapi: WaapiConfig{
			BaseURL: GetEnv("WAAPI_BASE_URL", "https://waapi.app/api/v1"),
			RootURL: GetEnv("WAAPI_ROOT_URL", "https://waapi.app"),
			Timeout: time.Duration(GetEnvAsInt("WAAPI_TIMEOUT_SECONDS", 30)) * time.Second,
		},
		Dispatch: DispatchConfig{
			SendInterval:    GetEnvAsDuration("DISPATCH_SEND_INTERVAL", 2*time.Second),
			CheckpointEvery: GetEnvAsInt("DISPATCH_CHECKPOINT_EVERY", 5),
			MigrationDelay:  GetEnvAsDuration("MIGRATION_SENDER_DELAY", 500*time.Millisecond),
		},
		Monitor: MonitorConfig{
			Interval:        GetEnvAsDuration("MONITOR_INTERVAL", time.Minute),
			StuckAfter:      GetEnvAsDuration("MONITOR_STUCK_AFTER", 30*time.Minute),
			AlertWebhookURL: GetEnv("ALERT_WEBHOOK_URL", ""),
			AlertThreshold:  GetEnvAsInt("ALERT_ITERATION_COUNT", 3),
		},
		Auth: AuthConfig{
			APIKey: GetEnv("API_KEY", ""),
		},
		Log: LogConfig{
			Level:  GetEnv("LOG_LEVEL", "info"),
			Format: GetEnv("LOG_FORMAT", "json"),
		},
	}
}

func GetEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func GetEnvAsInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func GetEnvAsBool(key string, defaultValue bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func GetEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
