package config

import (
	"os"
	"time"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "RSSGEN_"

// applyEnv overlays RSSGEN_* environment variables onto c.
func (c *Config) applyEnv() {
	c.Server.Addr = getEnv(EnvPrefix+"ADDR", c.Server.Addr)
	c.Server.APIKey = getEnv(EnvPrefix+"API_KEY", c.Server.APIKey)
	c.Server.ShutdownTimeout = getEnvDuration(EnvPrefix+"SHUTDOWN_TIMEOUT", c.Server.ShutdownTimeout)
	c.Log.Level = getEnv(EnvPrefix+"LOG_LEVEL", c.Log.Level)
	c.Log.Development = getEnvBool(EnvPrefix+"LOG_DEVELOPMENT", c.Log.Development)
	c.Fetch.UserAgent = getEnv(EnvPrefix+"USER_AGENT", c.Fetch.UserAgent)
	c.Fetch.Timeout = getEnvDuration(EnvPrefix+"FETCH_TIMEOUT", c.Fetch.Timeout)
	c.Cache.Type = getEnv(EnvPrefix+"CACHE_TYPE", c.Cache.Type)
	c.Cache.DSN = getEnv(EnvPrefix+"CACHE_DSN", c.Cache.DSN)
	c.SourcesDB = getEnv(EnvPrefix+"SOURCES_DB", c.SourcesDB)
}

// getEnv returns the value of an environment variable or a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvDuration parses a duration from environment variable or returns default.
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// getEnvBool parses a boolean from environment variable or returns default.
func getEnvBool(key string, defaultValue bool) bool {
	switch os.Getenv(key) {
	case "1", "true", "TRUE", "True", "yes":
		return true
	case "0", "false", "FALSE", "False", "no":
		return false
	}
	return defaultValue
}
