package app

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	DatabaseFile string // Optional: path to SQLite database file (default: ./authd.db)

	BcryptCost           int           // Optional: bcrypt cost for password hashing (default: 12)
	MaxLoginAttempts     int           // Optional: failed logins before lockout (default: 5)
	LockoutWindow        time.Duration // Optional: lockout duration (default: 15m)
	SessionTTL           time.Duration // Optional: session lifetime (default: 30m)
	PasswordHistoryLimit int           // Optional: previous passwords blocked from reuse (default: 5)
	PasswordMinLength    int           // Optional: minimum accepted password length (default: 8)

	AuditLogFile    string // Optional: system audit log path (default: ./logs/audit.log)
	SecurityLogFile string // Optional: security audit log path (default: ./logs/security.log)
	AuditMaxSizeMB  int    // Optional: audit log rotation size (default: 50)
	AuditMaxBackups int    // Optional: rotated files kept (default: 10)
	AuditMaxAgeDays int    // Optional: rotated file retention (default: 90)

	Env                  string        // Environment (dev, staging, prod) (default: dev)
	LogLevel             string        // Log level (debug, info, warn, error) (default: info)
	LogFormat            string        // Log format (json, text) (default: json)
	Port                 int           // HTTP server port (default: 8080)
	ShutdownGracePeriod  time.Duration // Graceful shutdown timeout (default: 10s)
	HousekeepingInterval time.Duration // Housekeeping interval (default: 1h)
}

func LoadConfig() Config {
	return Config{
		DatabaseFile: getEnvOrDefault("AUTH_DATABASE_FILE", "authd.db"),

		BcryptCost:           getEnvIntOrDefault("AUTH_BCRYPT_COST", 12),
		MaxLoginAttempts:     getEnvIntOrDefault("AUTH_MAX_LOGIN_ATTEMPTS", 5),
		LockoutWindow:        getEnvDurationOrDefault("AUTH_LOCKOUT_WINDOW", 15*time.Minute),
		SessionTTL:           getEnvDurationOrDefault("AUTH_SESSION_TTL", 30*time.Minute),
		PasswordHistoryLimit: getEnvIntOrDefault("AUTH_PASSWORD_HISTORY_LIMIT", 5),
		PasswordMinLength:    getEnvIntOrDefault("AUTH_PASSWORD_MIN_LENGTH", 8),

		AuditLogFile:    getEnvOrDefault("AUTH_AUDIT_LOG_FILE", "logs/audit.log"),
		SecurityLogFile: getEnvOrDefault("AUTH_SECURITY_LOG_FILE", "logs/security.log"),
		AuditMaxSizeMB:  getEnvIntOrDefault("AUTH_AUDIT_MAX_SIZE_MB", 50),
		AuditMaxBackups: getEnvIntOrDefault("AUTH_AUDIT_MAX_BACKUPS", 10),
		AuditMaxAgeDays: getEnvIntOrDefault("AUTH_AUDIT_MAX_AGE_DAYS", 90),

		Env:                  getEnvOrDefault("ENV", "dev"),
		LogLevel:             getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:            getEnvOrDefault("LOG_FORMAT", "json"),
		Port:                 getEnvIntOrDefault("PORT", 8080),
		ShutdownGracePeriod:  getEnvDurationOrDefault("SHUTDOWN_GRACE_PERIOD", 10*time.Second),
		HousekeepingInterval: getEnvDurationOrDefault("HOUSEKEEPING_INTERVAL", 1*time.Hour),
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if intValue, err := strconv.Atoi(value); err == nil {
		return intValue
	}

	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	// Try parsing as duration (e.g., "1h", "30m", "90s")
	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}

	// Try parsing as integer minutes (for backwards compatibility)
	if minutes, err := strconv.Atoi(value); err == nil {
		return time.Duration(minutes) * time.Minute
	}

	return defaultValue
}
